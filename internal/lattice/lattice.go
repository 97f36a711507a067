// Package lattice models periodic lattices and the per-site type
// configurations that evolve on them.
package lattice

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrEmptyBasis       = errors.New("lattice: basis must contain at least one point")
	ErrRepetitions      = errors.New("lattice: repetitions must be positive")
	ErrSingularCell     = errors.New("lattice: unit cell vectors are linearly dependent")
	ErrSiteOutOfRange   = errors.New("lattice: site index out of range")
	ErrFractionsInvalid = errors.New("lattice: type fractions invalid")
)

// Lattice is a unit cell repeated along its three cell vectors. Basis points
// are given in fractional coordinates of the cell.
type Lattice struct {
	Cell        [3][3]float64
	Basis       [][3]float64
	Repetitions [3]int
	Periodic    [3]bool

	sites [][3]float64
}

func New(cell [3][3]float64, basis [][3]float64, repetitions [3]int, periodic [3]bool) (*Lattice, error) {
	if len(basis) == 0 {
		return nil, ErrEmptyBasis
	}
	for _, r := range repetitions {
		if r < 1 {
			return nil, fmt.Errorf("%w: %v", ErrRepetitions, repetitions)
		}
	}

	cm := cellMatrix(cell)
	if math.Abs(mat.Det(cm)) < 1e-12 {
		return nil, ErrSingularCell
	}

	l := &Lattice{
		Cell:        cell,
		Basis:       append([][3]float64(nil), basis...),
		Repetitions: repetitions,
		Periodic:    periodic,
	}
	l.sites = l.cartesian(cm)
	return l, nil
}

// Cubic is a simple cubic lattice with one point per cell and the given
// lattice constant.
func Cubic(a float64, nx, ny, nz int) (*Lattice, error) {
	cell := [3][3]float64{{a, 0, 0}, {0, a, 0}, {0, 0, a}}
	return New(cell, [][3]float64{{0, 0, 0}}, [3]int{nx, ny, nz}, [3]bool{true, true, true})
}

func cellMatrix(cell [3][3]float64) *mat.Dense {
	data := make([]float64, 0, 9)
	for _, v := range cell {
		data = append(data, v[:]...)
	}
	return mat.NewDense(3, 3, data)
}

// cartesian maps every (a, b, c, basis) fractional point through the cell.
// Site order: a outermost, then b, then c, then basis index.
func (l *Lattice) cartesian(cm *mat.Dense) [][3]float64 {
	points := l.fractional()
	n := len(points)
	frac := mat.NewDense(n, 3, nil)
	for i, p := range points {
		frac.SetRow(i, p[:])
	}

	var cart mat.Dense
	cart.Mul(frac, cm)

	sites := make([][3]float64, n)
	for i := range sites {
		sites[i] = [3]float64{cart.At(i, 0), cart.At(i, 1), cart.At(i, 2)}
	}
	return sites
}

// Sites returns a copy of the cartesian site list.
func (l *Lattice) Sites() [][3]float64 {
	return append([][3]float64(nil), l.sites...)
}

func (l *Lattice) Len() int { return len(l.sites) }

// Neighbours lists, per site, the sites closer than cutoff. Distances use
// the minimum image along periodic directions.
func (l *Lattice) Neighbours(cutoff float64) [][]int {
	frac := l.fractional()
	cm := cellMatrix(l.Cell)

	out := make([][]int, len(l.sites))
	d := mat.NewDense(1, 3, nil)
	var cart mat.Dense
	for i := range frac {
		for j := range frac {
			if i == j {
				continue
			}
			for k := 0; k < 3; k++ {
				delta := frac[j][k] - frac[i][k]
				if l.Periodic[k] {
					span := float64(l.Repetitions[k])
					delta -= span * math.Round(delta/span)
				}
				d.Set(0, k, delta)
			}
			cart.Mul(d, cm)
			if floats.Norm(cart.RawRowView(0), 2) < cutoff {
				out[i] = append(out[i], j)
			}
		}
	}
	return out
}

func (l *Lattice) fractional() [][3]float64 {
	out := make([][3]float64, 0, len(l.sites))
	for a := 0; a < l.Repetitions[0]; a++ {
		for b := 0; b < l.Repetitions[1]; b++ {
			for c := 0; c < l.Repetitions[2]; c++ {
				for _, p := range l.Basis {
					out = append(out, [3]float64{float64(a) + p[0], float64(b) + p[1], float64(c) + p[2]})
				}
			}
		}
	}
	return out
}
