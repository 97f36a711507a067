package metrics

import "github.com/san-kum/latsim/internal/lattice"

// Coverage tracks the fraction of sites carrying one species.
type Coverage struct {
	name    string
	species string
	sum     float64
	samples int
	times   []float64
	series  []float64
}

func NewCoverage(species string) *Coverage {
	return &Coverage{
		name:    "coverage_" + species,
		species: species,
	}
}

func (c *Coverage) Name() string { return c.name }

func (c *Coverage) Observe(cfg *lattice.Configuration, t float64) {
	if cfg.Len() == 0 {
		return
	}
	frac := float64(cfg.Count(c.species)) / float64(cfg.Len())
	c.sum += frac
	c.samples++
	c.times = append(c.times, t)
	c.series = append(c.series, frac)
}

// Value is the mean coverage over all samples.
func (c *Coverage) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

// Last is the most recent sample, or 0 before the first one.
func (c *Coverage) Last() float64 {
	if len(c.series) == 0 {
		return 0
	}
	return c.series[len(c.series)-1]
}

// Series returns the sampled times and coverages.
func (c *Coverage) Series() ([]float64, []float64) {
	return append([]float64(nil), c.times...), append([]float64(nil), c.series...)
}

func (c *Coverage) Reset() {
	c.sum = 0
	c.samples = 0
	c.times = c.times[:0]
	c.series = c.series[:0]
}
