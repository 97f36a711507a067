package lattice

import (
	"fmt"
	"math/rand"
)

// Configuration holds one type label per lattice site.
type Configuration struct {
	types []string
}

func NewConfiguration(types []string) *Configuration {
	return &Configuration{types: append([]string(nil), types...)}
}

// RandomConfiguration fills n sites by drawing each label with the given
// fractions. Fractions must be non-negative and sum to 1 within 1e-9.
func RandomConfiguration(n int, labels []string, fractions []float64, rng *rand.Rand) (*Configuration, error) {
	if len(labels) == 0 || len(labels) != len(fractions) {
		return nil, fmt.Errorf("%w: %d labels, %d fractions", ErrFractionsInvalid, len(labels), len(fractions))
	}
	sum := 0.0
	for _, f := range fractions {
		if f < 0 {
			return nil, fmt.Errorf("%w: negative fraction %g", ErrFractionsInvalid, f)
		}
		sum += f
	}
	if sum < 1-1e-9 || sum > 1+1e-9 {
		return nil, fmt.Errorf("%w: fractions sum to %g", ErrFractionsInvalid, sum)
	}

	types := make([]string, n)
	for i := range types {
		u := rng.Float64()
		acc := 0.0
		types[i] = labels[len(labels)-1]
		for k, f := range fractions {
			acc += f
			if u < acc {
				types[i] = labels[k]
				break
			}
		}
	}
	return &Configuration{types: types}, nil
}

// Types returns a copy of the labels in site order.
func (c *Configuration) Types() []string {
	return append([]string(nil), c.types...)
}

func (c *Configuration) Len() int { return len(c.types) }

func (c *Configuration) Type(i int) string { return c.types[i] }

func (c *Configuration) Set(i int, t string) error {
	if i < 0 || i >= len(c.types) {
		return fmt.Errorf("%w: %d", ErrSiteOutOfRange, i)
	}
	c.types[i] = t
	return nil
}

func (c *Configuration) Swap(i, j int) error {
	if i < 0 || i >= len(c.types) || j < 0 || j >= len(c.types) {
		return fmt.Errorf("%w: %d,%d", ErrSiteOutOfRange, i, j)
	}
	c.types[i], c.types[j] = c.types[j], c.types[i]
	return nil
}

// Count is the number of sites carrying label t.
func (c *Configuration) Count(t string) int {
	n := 0
	for _, v := range c.types {
		if v == t {
			n++
		}
	}
	return n
}

func (c *Configuration) Clone() *Configuration {
	return NewConfiguration(c.types)
}
