package collective

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrAborted is returned by Barrier once the group has been aborted.
var ErrAborted = errors.New("collective: group aborted")

// Coordinator is the pair of collective primitives a rank needs.
type Coordinator interface {
	IsMaster() bool
	Barrier() error
}

// ErrMemberLeft is returned by Barrier when a rank of the group has already
// finished and the barrier can never complete.
var ErrMemberLeft = errors.New("collective: member left the group")

// Aborter is implemented by coordinators that can release blocked ranks
// after a fatal failure on one of them.
type Aborter interface {
	Abort(err error)
}

// Agreer is implemented by coordinators that can reduce a per-rank decision
// to one group-wide answer. Agree is collective: every rank must call it, and
// all of them get true if any of them passed true.
type Agreer interface {
	Agree(local bool) (bool, error)
}

// Single is the coordinator of a one-process run: always master, and the
// barrier returns immediately.
type Single struct{}

func (Single) IsMaster() bool { return true }
func (Single) Barrier() error { return nil }

func (Single) Agree(local bool) (bool, error) { return local, nil }

// Group is an in-process group of ranks sharing a reusable barrier.
type Group struct {
	size int

	mu         sync.Mutex
	cond       *sync.Cond
	arrived    int
	generation uint64
	vote       bool
	result     bool
	left       int
	err        error
}

func NewGroup(size int) (*Group, error) {
	if size < 1 {
		return nil, fmt.Errorf("collective: group size must be positive, got %d", size)
	}
	g := &Group{size: size}
	g.cond = sync.NewCond(&g.mu)
	return g, nil
}

func (g *Group) Size() int { return g.size }

// Member returns the coordinator for the given rank. Rank 0 is the master.
func (g *Group) Member(rank int) *Member {
	if rank < 0 || rank >= g.size {
		panic(fmt.Sprintf("collective: rank %d out of range [0,%d)", rank, g.size))
	}
	return &Member{group: g, rank: rank}
}

func (g *Group) barrier() error {
	_, err := g.arrive(false)
	return err
}

// arrive is one rank reaching the current generation. The OR of every
// rank's vote is published when the last one arrives.
func (g *Group) arrive(vote bool) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.err != nil {
		return false, g.err
	}
	if g.left > 0 {
		return false, ErrMemberLeft
	}

	gen := g.generation
	g.vote = g.vote || vote
	g.arrived++
	if g.arrived == g.size {
		g.result = g.vote
		g.vote = false
		g.arrived = 0
		g.generation++
		g.cond.Broadcast()
		return g.result, nil
	}

	for gen == g.generation && g.err == nil && g.left == 0 {
		g.cond.Wait()
	}
	switch {
	case gen != g.generation:
		// result cannot be overwritten before this rank arrives again.
		return g.result, nil
	case g.err != nil:
		return false, g.err
	default:
		return false, ErrMemberLeft
	}
}

// leave records that a rank has returned from Run. Ranks still waiting in,
// or later entering, a barrier fail with ErrMemberLeft.
func (g *Group) leave() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.left++
	g.cond.Broadcast()
}

// Abort marks the group failed. The first error wins.
func (g *Group) Abort(err error) {
	if err == nil {
		err = ErrAborted
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err == nil {
		g.err = fmt.Errorf("%w: %w", ErrAborted, err)
	}
	g.cond.Broadcast()
}

// Err reports the abort cause, if any.
func (g *Group) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Member is one rank's view of a Group.
type Member struct {
	group *Group
	rank  int
}

func (m *Member) Rank() int       { return m.rank }
func (m *Member) Size() int       { return m.group.size }
func (m *Member) IsMaster() bool  { return m.rank == 0 }
func (m *Member) Barrier() error  { return m.group.barrier() }
func (m *Member) Abort(err error) { m.group.Abort(err) }

// Agree returns true on every rank if any rank passed true.
func (m *Member) Agree(local bool) (bool, error) { return m.group.arrive(local) }

// Run starts size ranks, each on its own goroutine, and waits for all of
// them. A rank returning an error aborts the group so the others cannot
// stay blocked in Barrier, and a rank returning at all makes any barrier it
// did not reach fail with ErrMemberLeft. The first error is returned.
func Run(ctx context.Context, size int, fn func(ctx context.Context, m *Member) error) error {
	g, err := NewGroup(size)
	if err != nil {
		return err
	}

	eg, ctx := errgroup.WithContext(ctx)
	for rank := 0; rank < size; rank++ {
		m := g.Member(rank)
		eg.Go(func() error {
			defer g.leave()
			if err := fn(ctx, m); err != nil {
				g.Abort(err)
				return fmt.Errorf("rank %d: %w", m.rank, err)
			}
			return nil
		})
	}
	return eg.Wait()
}
