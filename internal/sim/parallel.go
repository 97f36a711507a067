package sim

import (
	"context"

	"github.com/san-kum/latsim/internal/collective"
	"github.com/san-kum/latsim/internal/lattice"
)

// RankBuilder prepares one rank: its simulator (with that rank's observers
// attached) and its own copy of the initial configuration.
type RankBuilder func(m *collective.Member) (*Simulator, *lattice.Configuration, error)

// Ensemble runs the same simulation on a fixed number of lock-stepped ranks.
// Every rank uses the same seed, so all ranks evolve identically.
type Ensemble struct {
	ranks int
	build RankBuilder
}

func NewEnsemble(ranks int, build RankBuilder) *Ensemble {
	return &Ensemble{ranks: ranks, build: build}
}

// Run returns one result per rank, indexed by rank. On error the slice is
// still returned; ranks that failed before running have a nil entry.
func (e *Ensemble) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	results := make([]*Result, e.ranks)

	err := collective.Run(ctx, e.ranks, func(ctx context.Context, m *collective.Member) error {
		s, c, err := e.build(m)
		if err != nil {
			return err
		}
		res, err := s.Run(ctx, c, cfg)
		results[m.Rank()] = res
		return err
	})
	return results, err
}
