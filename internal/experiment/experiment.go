package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/san-kum/latsim/internal/collective"
	"github.com/san-kum/latsim/internal/config"
	"github.com/san-kum/latsim/internal/lattice"
	"github.com/san-kum/latsim/internal/logging"
	"github.com/san-kum/latsim/internal/metrics"
	"github.com/san-kum/latsim/internal/sim"
	"github.com/san-kum/latsim/internal/storage"
	"github.com/san-kum/latsim/internal/trajectory"
)

const SaturationThreshold = 0.9

// Experiment runs one configured simulation on all ranks and stores the
// trajectory and metadata as a new run.
type Experiment struct {
	cfg      *config.Config
	preset   string
	store    *storage.Store
	registry *Registry
	log      *slog.Logger
	progress func(Progress)
}

// Progress is the master rank's state after one recorded step.
type Progress struct {
	RunID    string
	Step     int
	Steps    int
	Time     float64
	Coverage float64
	Pending  int
	Written  int
	Done     bool
}

// OnProgress registers fn to be called on the master rank after every
// recorded step and once more when the run finishes. fn runs on the rank's
// goroutine and holds up the whole group while it blocks.
func (e *Experiment) OnProgress(fn func(Progress)) { e.progress = fn }

type progressObserver struct {
	runID string
	steps int
	w     *trajectory.Writer
	cov   *metrics.Coverage
	fn    func(Progress)
	last  Progress
}

func (o *progressObserver) OnStep(t float64, step int, c *lattice.Configuration) error {
	o.last = Progress{
		RunID:    o.runID,
		Step:     step,
		Steps:    o.steps,
		Time:     t,
		Coverage: o.cov.Last(),
		Pending:  o.w.Pending(),
		Written:  o.w.Written(),
	}
	o.fn(o.last)
	return nil
}

func (o *progressObserver) Finish() error {
	o.last.Pending = o.w.Pending()
	o.last.Written = o.w.Written()
	o.last.Done = true
	o.fn(o.last)
	return nil
}

func New(cfg *config.Config, preset string, st *storage.Store, log *slog.Logger) *Experiment {
	if log == nil {
		log = logging.Discard()
	}
	return &Experiment{
		cfg:      cfg,
		preset:   preset,
		store:    st,
		registry: NewRegistry(),
		log:      log,
	}
}

func (e *Experiment) Registry() *Registry { return e.registry }

// BuildLattice expands the lattice settings into a cubic-cell lattice.
func BuildLattice(c config.LatticeConfig) (*lattice.Lattice, error) {
	a := c.Constant
	cell := [3][3]float64{{a, 0, 0}, {0, a, 0}, {0, 0, a}}
	return lattice.New(cell, c.Basis, c.Repetitions, c.Periodic)
}

// Run executes the simulation on every rank and stores the result. A run
// that fails after its directory was created is still stored, with its
// error recorded, and its metadata is returned alongside the error.
func (e *Experiment) Run(ctx context.Context) (*storage.RunMetadata, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}

	l, err := BuildLattice(e.cfg.Lattice)
	if err != nil {
		return nil, err
	}
	neighbours := l.Neighbours(e.cfg.Lattice.Cutoff)

	model := e.cfg.Model
	if len(e.registry.Processes(model, neighbours)) == 0 {
		return nil, sim.ErrNoProcesses
	}

	rng := rand.New(rand.NewSource(e.cfg.Simulation.Seed))
	initial, err := lattice.RandomConfiguration(l.Len(),
		[]string{model.Empty, model.Species},
		[]float64{1 - model.InitialCoverage, model.InitialCoverage},
		rng)
	if err != nil {
		return nil, err
	}

	meta, err := e.store.NewRun(e.preset)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	path := e.store.TrajectoryPath(meta.ID)
	ranks := e.cfg.Simulation.Ranks

	e.log.Info("starting run", "run", meta.ID, "sites", l.Len(), "ranks", ranks)

	coverages := make([]*metrics.Coverage, ranks)
	build := func(m *collective.Member) (*sim.Simulator, *lattice.Configuration, error) {
		rankLog := e.log.With("rank", m.Rank())
		w, err := trajectory.New(path, l.Sites(), m,
			trajectory.WithMaxBufferSize(e.cfg.Trajectory.MaxBufferSize),
			trajectory.WithMaxBufferTime(e.cfg.Trajectory.MaxBufferTime),
			trajectory.WithLogger(rankLog),
		)
		if err != nil {
			return nil, nil, err
		}

		s := sim.New(e.registry.Processes(model, neighbours)...)
		s.SetLogger(rankLog)
		s.AddObserver(sim.NewTrajectoryObserver(w))

		coverages[m.Rank()] = metrics.NewCoverage(model.Species)
		s.AddMetric(coverages[m.Rank()])
		s.AddMetric(metrics.NewSaturation(model.Species, SaturationThreshold))

		if m.IsMaster() && e.progress != nil {
			s.AddObserver(&progressObserver{
				runID: meta.ID,
				steps: e.cfg.Simulation.Steps,
				w:     w,
				cov:   coverages[m.Rank()],
				fn:    e.progress,
			})
		}

		return s, initial.Clone(), nil
	}

	simCfg := sim.Config{
		Steps:        e.cfg.Simulation.Steps,
		DumpInterval: e.cfg.Simulation.DumpInterval,
		Seed:         e.cfg.Simulation.Seed,
	}
	meta.Seed = e.cfg.Simulation.Seed
	meta.Ranks = ranks
	meta.Sites = l.Len()
	meta.MaxBufferSize = e.cfg.Trajectory.MaxBufferSize
	meta.MaxBufferTime = e.cfg.Trajectory.MaxBufferTime.String()

	results, err := sim.NewEnsemble(ranks, build).Run(ctx, simCfg)
	if err != nil {
		err = fmt.Errorf("run %s: %w", meta.ID, err)
		meta.Error = err.Error()
		if res := results[0]; res != nil {
			meta.StepsTaken = res.StepsTaken
			meta.Recorded = res.Recorded
			meta.FinalTime = res.FinalTime
		}
		if coverages[0] != nil {
			meta.CoverageTimes, meta.Coverage = coverages[0].Series()
		}
		if serr := e.store.SaveMetadata(meta); serr != nil {
			e.log.Error("saving failed run", "run", meta.ID, "error", serr)
		}
		e.log.Error("run failed", "run", meta.ID, "error", err)
		return meta, err
	}

	res := results[0]
	meta.StepsTaken = res.StepsTaken
	meta.Recorded = res.Recorded
	meta.FinalTime = res.FinalTime
	meta.Exhausted = res.Exhausted
	meta.CoverageTimes, meta.Coverage = coverages[0].Series()
	for name, v := range res.Metrics {
		meta.Metrics[name] = v
	}

	if err := e.store.SaveMetadata(meta); err != nil {
		return nil, err
	}
	e.log.Info("run stored", "run", meta.ID, "recorded", meta.Recorded)
	return meta, nil
}
