package sim

import "github.com/san-kum/latsim/internal/lattice"

// Adsorption turns an Empty site into Species.
type Adsorption struct {
	Empty   string
	Species string
	Rate    float64
}

func (a *Adsorption) Name() string { return "adsorption" }

func (a *Adsorption) Events(c *lattice.Configuration, dst []Event) []Event {
	for i := 0; i < c.Len(); i++ {
		if c.Type(i) == a.Empty {
			dst = append(dst, Event{Process: a.Name(), Site: i, Target: -1, To: a.Species, Rate: a.Rate})
		}
	}
	return dst
}

// Desorption turns a Species site back into Empty.
type Desorption struct {
	Species string
	Empty   string
	Rate    float64
}

func (d *Desorption) Name() string { return "desorption" }

func (d *Desorption) Events(c *lattice.Configuration, dst []Event) []Event {
	for i := 0; i < c.Len(); i++ {
		if c.Type(i) == d.Species {
			dst = append(dst, Event{Process: d.Name(), Site: i, Target: -1, To: d.Empty, Rate: d.Rate})
		}
	}
	return dst
}

// Diffusion hops Species onto a neighbouring Empty site.
type Diffusion struct {
	Species    string
	Empty      string
	Rate       float64
	Neighbours [][]int
}

func (d *Diffusion) Name() string { return "diffusion" }

func (d *Diffusion) Events(c *lattice.Configuration, dst []Event) []Event {
	for i := 0; i < c.Len() && i < len(d.Neighbours); i++ {
		if c.Type(i) != d.Species {
			continue
		}
		for _, j := range d.Neighbours[i] {
			if c.Type(j) == d.Empty {
				dst = append(dst, Event{Process: d.Name(), Site: i, Target: j, Rate: d.Rate})
			}
		}
	}
	return dst
}
