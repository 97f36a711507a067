package trajectory

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch indicates a types list whose length differs from the
	// number of lattice sites.
	ErrShapeMismatch = errors.New("trajectory: types length does not match site count")

	// ErrInvalidLabel indicates a type label that cannot be written as a
	// double-quoted string.
	ErrInvalidLabel = errors.New("trajectory: invalid type label")

	// ErrIO indicates the master failed to create or append to the file.
	ErrIO = errors.New("trajectory: file i/o failed")
)

// ShapeError carries the offending step of a shape mismatch.
type ShapeError struct {
	Step int
	Want int
	Got  int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("step %d: %d types given, %d sites expected", e.Step, e.Got, e.Want)
}

func (e *ShapeError) Unwrap() error {
	return ErrShapeMismatch
}
