package sim

import (
	"github.com/san-kum/latsim/internal/lattice"
	"github.com/san-kum/latsim/internal/trajectory"
)

// TrajectoryObserver records every observed step into a trajectory writer
// and flushes what is left when the run finishes.
type TrajectoryObserver struct {
	w *trajectory.Writer
}

func NewTrajectoryObserver(w *trajectory.Writer) *TrajectoryObserver {
	return &TrajectoryObserver{w: w}
}

func (o *TrajectoryObserver) OnStep(t float64, step int, c *lattice.Configuration) error {
	return o.w.Append(t, step, c)
}

func (o *TrajectoryObserver) Finish() error {
	return o.w.Flush()
}
