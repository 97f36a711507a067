package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/san-kum/latsim/internal/lattice"
	"github.com/san-kum/latsim/internal/logging"
)

// Simulator runs rejection-free kinetic Monte Carlo over a set of processes.
type Simulator struct {
	processes []Process
	metrics   []Metric
	observers []Observer
	log       *slog.Logger

	events []Event
}

func New(processes ...Process) *Simulator {
	return &Simulator{
		processes: processes,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		log:       logging.Discard(),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) SetLogger(l *slog.Logger) { s.log = logging.Component(l, "sim") }

// Run advances c in place for up to cfg.Steps events. Observers see step 0
// and every DumpInterval-th step. The run stops early when no event is
// possible.
func (s *Simulator) Run(ctx context.Context, c *lattice.Configuration, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	result := &Result{Metrics: make(map[string]float64)}
	t := 0.0

	s.log.Info("run started", "steps", cfg.Steps, "dump_interval", cfg.DumpInterval, "sites", c.Len())

	if err := s.record(t, 0, c); err != nil {
		return result, err
	}
	result.Recorded++

	for step := 1; step <= cfg.Steps; step++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		s.events = s.events[:0]
		for _, p := range s.processes {
			s.events = p.Events(c, s.events)
		}

		total := 0.0
		for _, e := range s.events {
			total += e.Rate
		}
		if total <= 0 {
			result.Exhausted = true
			s.log.Warn("no events left", "step", step, "time", t)
			break
		}

		ev := s.pick(rng.Float64() * total)
		if err := apply(c, ev); err != nil {
			return result, &SimError{Step: step, Time: t, Wrapped: err}
		}

		t += -math.Log(1-rng.Float64()) / total
		result.StepsTaken++
		result.FinalTime = t

		if step%cfg.DumpInterval == 0 {
			if err := s.record(t, step, c); err != nil {
				return result, err
			}
			result.Recorded++
		}
	}

	for _, obs := range s.observers {
		if f, ok := obs.(Finisher); ok {
			if err := f.Finish(); err != nil {
				return result, &SimError{Step: result.StepsTaken, Time: t, Wrapped: fmt.Errorf("%w: %v", ErrObserver, err)}
			}
		}
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	s.log.Info("run finished", "steps", result.StepsTaken, "recorded", result.Recorded, "time", t)
	return result, nil
}

func (s *Simulator) record(t float64, step int, c *lattice.Configuration) error {
	for _, m := range s.metrics {
		m.Observe(c, t)
	}
	for _, obs := range s.observers {
		if err := obs.OnStep(t, step, c); err != nil {
			return &SimError{Step: step, Time: t, Wrapped: fmt.Errorf("%w: %w", ErrObserver, err)}
		}
	}
	return nil
}

// pick returns the event whose cumulative rate interval contains u.
func (s *Simulator) pick(u float64) Event {
	acc := 0.0
	for _, e := range s.events {
		acc += e.Rate
		if u < acc {
			return e
		}
	}
	return s.events[len(s.events)-1]
}

func apply(c *lattice.Configuration, e Event) error {
	if e.Target >= 0 {
		return c.Swap(e.Site, e.Target)
	}
	return c.Set(e.Site, e.To)
}

func (s *Simulator) validateConfig(cfg Config) error {
	if len(s.processes) == 0 {
		return ErrNoProcesses
	}
	if cfg.Steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", cfg.Steps)
	}
	if cfg.DumpInterval <= 0 {
		return fmt.Errorf("dump interval must be positive, got %d", cfg.DumpInterval)
	}
	return nil
}
