package metrics

import "github.com/san-kum/latsim/internal/lattice"

// Saturation is the fraction of samples in which the species covered at
// least threshold of the lattice.
type Saturation struct {
	name      string
	species   string
	threshold float64
	hits      int
	samples   int
}

func NewSaturation(species string, threshold float64) *Saturation {
	return &Saturation{
		name:      "saturation_" + species,
		species:   species,
		threshold: threshold,
	}
}

func (s *Saturation) Name() string {
	return s.name
}

func (s *Saturation) Observe(cfg *lattice.Configuration, t float64) {
	if cfg.Len() == 0 {
		return
	}
	s.samples++
	if float64(cfg.Count(s.species))/float64(cfg.Len()) >= s.threshold {
		s.hits++
	}
}

func (s *Saturation) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.hits) / float64(s.samples)
}

func (s *Saturation) Reset() {
	s.hits = 0
	s.samples = 0
}
