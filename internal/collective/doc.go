// Package collective provides the process-group primitives used to keep the
// ranks of a parallel run in lock-step.
//
// Only two primitives are required by consumers:
//
//   - [Coordinator.IsMaster]: exactly one rank of a group reports true
//   - [Coordinator.Barrier]: blocks until every rank of the group arrives
//
// [Single] is the one-process coordinator. [Group] runs N ranks inside one
// process (one goroutine per rank) and hands out a [Member] per rank; [Run]
// launches such a group and waits for it.
//
// # Example
//
//	err := collective.Run(ctx, 4, func(ctx context.Context, m *collective.Member) error {
//		w, err := trajectory.New("traj.py", sites, m)
//		...
//	})
//
// # Failure
//
// A rank that hits a fatal error calls [Group.Abort]. Every rank blocked in,
// or later entering, Barrier then returns [ErrAborted] instead of waiting
// forever for the failed rank.
package collective
