package sim

import (
	"errors"
	"fmt"

	"github.com/san-kum/latsim/internal/lattice"
)

// Event is one executable transition of the lattice. Target < 0 means a
// single-site relabel to To; otherwise Site and Target swap labels.
type Event struct {
	Process string
	Site    int
	Target  int
	To      string
	Rate    float64
}

// Process enumerates the events it offers on a configuration.
type Process interface {
	Name() string
	// Events appends the process's events to dst and returns it.
	Events(c *lattice.Configuration, dst []Event) []Event
}

type Metric interface {
	Name() string
	Observe(c *lattice.Configuration, t float64)
	Value() float64
	Reset()
}

// Observer is notified at every recorded step, including step 0.
type Observer interface {
	OnStep(t float64, step int, c *lattice.Configuration) error
}

// Finisher is implemented by observers that hold state to release at the
// end of a run.
type Finisher interface {
	Finish() error
}

type Config struct {
	Steps        int
	DumpInterval int
	Seed         int64
}

func DefaultConfig() Config {
	return Config{
		Steps:        10000,
		DumpInterval: 100,
		Seed:         1,
	}
}

type Result struct {
	StepsTaken int
	Recorded   int
	FinalTime  float64
	Exhausted  bool
	Metrics    map[string]float64
}

var (
	// ErrNoProcesses indicates a simulator without any process.
	ErrNoProcesses = errors.New("sim: no processes configured")

	// ErrObserver indicates an observer failed; the run cannot continue.
	ErrObserver = errors.New("sim: observer failed")
)

// SimError wraps a failure with the step and time it happened at.
type SimError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimError) Unwrap() error {
	return e.Wrapped
}
