package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/san-kum/latsim/internal/logging"
)

const (
	MetadataFile   = "metadata.json"
	TrajectoryFile = "trajectory.py"
	ArchiveFile    = TrajectoryFile + ".zst"
)

var ErrRunNotFound = errors.New("run not found")

type Store struct {
	baseDir string
	log     *slog.Logger
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, log: logging.Discard()}
}

func (s *Store) SetLogger(l *slog.Logger) { s.log = logging.Component(l, "storage") }

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) BaseDir() string {
	return s.baseDir
}

type RunMetadata struct {
	ID            string             `json:"id"`
	Preset        string             `json:"preset"`
	Timestamp     time.Time          `json:"timestamp"`
	Seed          int64              `json:"seed"`
	Ranks         int                `json:"ranks"`
	Sites         int                `json:"sites"`
	StepsTaken    int                `json:"steps_taken"`
	Recorded      int                `json:"recorded"`
	FinalTime     float64            `json:"final_time"`
	Exhausted     bool               `json:"exhausted,omitempty"`
	MaxBufferSize int                `json:"max_buffer_size"`
	MaxBufferTime string             `json:"max_buffer_time"`
	Archived      bool               `json:"archived,omitempty"`
	Error         string             `json:"error,omitempty"`
	CoverageTimes []float64          `json:"coverage_times,omitempty"`
	Coverage      []float64          `json:"coverage,omitempty"`
	Metrics       map[string]float64 `json:"metrics"`
}

// Failed reports whether the run ended with an error. Its trajectory holds
// only the records flushed before the failure.
func (m *RunMetadata) Failed() bool { return m.Error != "" }

// NewRun creates a fresh run directory and returns its metadata skeleton.
func (s *Store) NewRun(preset string) (*RunMetadata, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	if preset == "" {
		preset = "custom"
	}

	now := time.Now()
	base := fmt.Sprintf("%s_%d", preset, now.Unix())
	id := base
	for i := 2; ; i++ {
		err := os.Mkdir(filepath.Join(s.baseDir, id), 0755)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return nil, err
		}
		id = fmt.Sprintf("%s_%d", base, i)
	}

	return &RunMetadata{
		ID:        id,
		Preset:    preset,
		Timestamp: now,
		Metrics:   map[string]float64{},
	}, nil
}

func (s *Store) RunDir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

func (s *Store) TrajectoryPath(runID string) string {
	return filepath.Join(s.baseDir, runID, TrajectoryFile)
}

func (s *Store) ArchivePath(runID string) string {
	return filepath.Join(s.baseDir, runID, ArchiveFile)
}

func (s *Store) IndexPath() string {
	return filepath.Join(s.baseDir, IndexDir)
}

// SaveMetadata writes the run's metadata.json and records it in the index.
func (s *Store) SaveMetadata(meta *RunMetadata) error {
	if err := s.writeMetadata(meta); err != nil {
		return err
	}
	return s.withIndex(func(ix *Index) error {
		return ix.Put(meta)
	})
}

func (s *Store) writeMetadata(meta *RunMetadata) error {
	f, err := os.Create(filepath.Join(s.baseDir, meta.ID, MetadataFile))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		f.Close()
		return fmt.Errorf("metadata for %s: %w", meta.ID, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("metadata for %s: sync: %w", meta.ID, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("metadata for %s: close: %w", meta.ID, err)
	}
	return nil
}

func (s *Store) withIndex(fn func(ix *Index) error) error {
	ix, err := OpenIndex(s.IndexPath(), s.log)
	if err != nil {
		return err
	}
	if err := fn(ix); err != nil {
		ix.Close()
		return err
	}
	return ix.Close()
}

// List returns every indexed run, newest first. A data directory without
// an index is indexed first.
func (s *Store) List() ([]RunMetadata, error) {
	if _, err := os.Stat(s.baseDir); os.IsNotExist(err) {
		return []RunMetadata{}, nil
	}
	if _, err := os.Stat(s.IndexPath()); os.IsNotExist(err) {
		if _, err := s.Reindex(); err != nil {
			return nil, err
		}
	}

	var runs []RunMetadata
	err := s.withIndex(func(ix *Index) error {
		var err error
		runs, err = ix.List()
		return err
	})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(runs)
	return runs, nil
}

// Reindex rebuilds the index from the metadata files on disk and returns
// the number of runs indexed.
func (s *Store) Reindex() (int, error) {
	runs, err := s.scan()
	if err != nil {
		return 0, err
	}
	if err := s.Init(); err != nil {
		return 0, err
	}

	err = s.withIndex(func(ix *Index) error {
		stale, err := ix.List()
		if err != nil {
			return err
		}
		for _, meta := range stale {
			if err := ix.Delete(meta.ID); err != nil {
				return err
			}
		}
		for i := range runs {
			if err := ix.Put(&runs[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("index rebuilt", "runs", len(runs))
	return len(runs), nil
}

func sortNewestFirst(runs []RunMetadata) {
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
}

// scan reads every run directory with readable metadata.
func (s *Store) scan() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, MetadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("metadata for %s: %w", runID, err)
	}
	return &meta, nil
}

// Archive compresses the run's trajectory with zstd and removes the
// plain file once the archive is synced. The metadata is marked archived.
func (s *Store) Archive(runID string) (string, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return "", err
	}

	src, err := os.Open(s.TrajectoryPath(runID))
	if err != nil {
		return "", err
	}
	defer src.Close()

	dstPath := s.ArchivePath(runID)
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", err
	}

	zw, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		dst.Close()
		return "", err
	}
	if _, err := io.Copy(zw, src); err != nil {
		zw.Close()
		dst.Close()
		return "", err
	}
	if err := zw.Close(); err != nil {
		dst.Close()
		return "", err
	}
	if err := dst.Sync(); err != nil {
		dst.Close()
		return "", err
	}
	if err := dst.Close(); err != nil {
		return "", err
	}

	src.Close()
	if err := os.Remove(s.TrajectoryPath(runID)); err != nil {
		return "", err
	}

	meta.Archived = true
	if err := s.SaveMetadata(meta); err != nil {
		return "", err
	}
	return dstPath, nil
}

type archiveReader struct {
	*zstd.Decoder
	f *os.File
}

func (a archiveReader) Close() error {
	a.Decoder.Close()
	return a.f.Close()
}

// OpenTrajectory returns a reader over the run's trajectory text, whether
// it is stored plain or as a zstd archive.
func (s *Store) OpenTrajectory(runID string) (io.ReadCloser, error) {
	f, err := os.Open(s.TrajectoryPath(runID))
	if err == nil {
		return f, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	return s.OpenArchive(runID)
}

func (s *Store) OpenArchive(runID string) (io.ReadCloser, error) {
	f, err := os.Open(s.ArchivePath(runID))
	if err != nil {
		return nil, err
	}
	zr, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return archiveReader{Decoder: zr, f: f}, nil
}

// ExportJSON writes the run's metadata as indented JSON.
func (s *Store) ExportJSON(runID string, w io.Writer) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}
