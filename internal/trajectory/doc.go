// Package trajectory implements the write-behind lattice trajectory writer.
//
// A [Writer] buffers one [Record] per recorded simulation step and appends
// the buffer to a single text file when it grows past a byte threshold or
// when too much wall-clock time has passed since the last flush.
//
// # File format
//
// The file is a sequence of assignment and append statements:
//
//	# KMCLib Trajectory
//	version="2013.1.0"
//	creation_time="Mon Jan  2 15:04:05 2006"
//	sites=[[       0.000000,       0.000000,       0.000000],
//	       [       1.000000,       0.000000,       0.000000]]
//	times=[]
//	steps=[]
//	types=[]
//	times.append(0.000000)
//	steps.append(0)
//	types.append(["A","B"])
//
// The header is written once; every flush only appends.
//
// # Parallel runs
//
// Every rank of a run owns its own Writer built on the rank's
// [collective.Coordinator]. Only the master touches the file, and every file
// mutation is followed by a barrier. All ranks track the same buffer and
// timestamp state.
//
// # Thread Safety
//
// A Writer is NOT safe for concurrent use.
package trajectory
