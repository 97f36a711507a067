package trajectory

import (
	"bufio"
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/san-kum/latsim/internal/collective"
	"github.com/san-kum/latsim/internal/logging"
)

const (
	DefaultMaxBufferSize = 10 * 1024 * 1024 // 10MB
	DefaultMaxBufferTime = 30 * time.Minute

	filePerm = 0644
)

// Configuration is the per-step lattice state handed to Append.
type Configuration interface {
	// Types returns one label per site, in site-list order.
	Types() []string
}

type Option func(*Writer)

func WithMaxBufferSize(n int) Option {
	return func(w *Writer) { w.maxBufferSize = n }
}

// WithMaxBufferTime sets the flush interval. Zero or negative flushes on
// every append.
func WithMaxBufferTime(d time.Duration) Option {
	return func(w *Writer) { w.maxBufferTime = d }
}

func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Writer) { w.log = l }
}

type Writer struct {
	filename string
	sites    [][3]float64
	coord    collective.Coordinator
	log      *slog.Logger
	now      func() time.Time

	buf           Buffer
	written       int
	lastFlush     time.Time
	maxBufferSize int
	maxBufferTime time.Duration
}

// New creates the trajectory file on the master, writes its header, and
// waits on the barrier so no rank proceeds before the file exists.
func New(filename string, sites [][3]float64, coord collective.Coordinator, opts ...Option) (*Writer, error) {
	if coord == nil {
		coord = collective.Single{}
	}

	w := &Writer{
		filename:      filename,
		sites:         append([][3]float64(nil), sites...),
		coord:         coord,
		now:           time.Now,
		maxBufferSize: DefaultMaxBufferSize,
		maxBufferTime: DefaultMaxBufferTime,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = logging.Component(w.log, "trajectory")

	if coord.IsMaster() {
		if err := w.writeHeader(); err != nil {
			w.abort(err)
			return nil, err
		}
		w.log.Info("trajectory created", "file", filename, "sites", len(sites))
	}

	if err := coord.Barrier(); err != nil {
		return nil, fmt.Errorf("trajectory: barrier after header: %w", err)
	}

	w.lastFlush = w.now()
	return w, nil
}

func (w *Writer) writeHeader() error {
	f, err := os.OpenFile(w.filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrIO, w.filename, err)
	}

	bw := bufio.NewWriter(f)
	if err := EncodeHeader(bw, w.sites, w.now()); err != nil {
		f.Close()
		return fmt.Errorf("%w: write header: %v", ErrIO, err)
	}
	return closeSynced(f, bw)
}

// Append buffers the configuration's types for this step and flushes when
// the buffer is too large or too old. With a coordinator that implements
// collective.Agreer the decision is taken by the whole group, so every rank
// flushes at the same step.
func (w *Writer) Append(simTime float64, step int, c Configuration) error {
	types := c.Types()
	if len(types) != len(w.sites) {
		return &ShapeError{Step: step, Want: len(w.sites), Got: len(types)}
	}
	for _, t := range types {
		if !validLabel(t) {
			return fmt.Errorf("%w: step %d: %q", ErrInvalidLabel, step, t)
		}
	}

	w.buf.Add(Record{
		Time:  simTime,
		Step:  step,
		Types: append([]string(nil), types...),
	})

	flush := w.buf.Bytes() > w.maxBufferSize || w.expired()
	if a, ok := w.coord.(collective.Agreer); ok {
		// ranks read their own clocks; the group flushes if any one expired
		agreed, err := a.Agree(flush)
		if err != nil {
			return fmt.Errorf("trajectory: flush vote: %w", err)
		}
		flush = agreed
	}
	if flush {
		return w.Flush()
	}
	return nil
}

func (w *Writer) expired() bool {
	if w.maxBufferTime <= 0 {
		return true
	}
	return w.now().Sub(w.lastFlush) > w.maxBufferTime
}

// Flush appends every buffered record to the file (master only), waits on
// the barrier, then clears the buffer. An empty buffer is a no-op and keeps
// the last flush time. On failure the buffer is left intact and the group
// is aborted.
func (w *Writer) Flush() error {
	if w.buf.Len() == 0 {
		return nil
	}

	records := w.buf.Len()
	size := w.buf.Bytes()

	if w.coord.IsMaster() {
		if err := w.appendRecords(); err != nil {
			w.log.Error("flush failed", "file", w.filename, "records", records, "error", err)
			w.abort(err)
			return err
		}
	}

	if err := w.coord.Barrier(); err != nil {
		return fmt.Errorf("trajectory: barrier after flush: %w", err)
	}

	w.buf.Reset()
	w.written += records
	w.lastFlush = w.now()
	w.log.Debug("flushed", "records", records, "bytes", size)
	return nil
}

func (w *Writer) appendRecords() error {
	var encoded bytes.Buffer
	if err := EncodeRecords(&encoded, w.buf.Records()); err != nil {
		return fmt.Errorf("%w: encode: %v", ErrIO, err)
	}

	f, err := os.OpenFile(w.filename, os.O_APPEND|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrIO, w.filename, err)
	}

	bw := bufio.NewWriterSize(f, encoded.Len())
	if _, err := encoded.WriteTo(bw); err != nil {
		f.Close()
		return fmt.Errorf("%w: append: %v", ErrIO, err)
	}
	return closeSynced(f, bw)
}

func closeSynced(f *os.File, bw *bufio.Writer) error {
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("%w: flush: %v", ErrIO, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("%w: sync: %v", ErrIO, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrIO, err)
	}
	return nil
}

func (w *Writer) abort(err error) {
	if a, ok := w.coord.(collective.Aborter); ok {
		a.Abort(err)
	}
}

// Close flushes any remaining records.
func (w *Writer) Close() error {
	return w.Flush()
}

func (w *Writer) Filename() string { return w.filename }

// Pending is the number of buffered records.
func (w *Writer) Pending() int { return w.buf.Len() }

// Written is the number of records flushed to the file so far.
func (w *Writer) Written() int { return w.written }

func (w *Writer) BufferedBytes() int { return w.buf.Bytes() }

func (w *Writer) LastFlush() time.Time { return w.lastFlush }

func (w *Writer) Sites() [][3]float64 {
	return append([][3]float64(nil), w.sites...)
}
