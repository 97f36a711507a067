package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/latsim/internal/lattice"
)

func TestCoverage(t *testing.T) {
	m := NewCoverage("A")
	if m.Last() != 0 {
		t.Errorf("expected 0 before sampling, got %f", m.Last())
	}

	m.Observe(lattice.NewConfiguration([]string{"A", "*", "*", "*"}), 0)
	m.Observe(lattice.NewConfiguration([]string{"A", "A", "A", "*"}), 1.5)

	if math.Abs(m.Value()-0.5) > 1e-12 {
		t.Errorf("expected mean coverage 0.5, got %f", m.Value())
	}

	times, series := m.Series()
	if len(times) != 2 || times[1] != 1.5 {
		t.Errorf("unexpected times: %v", times)
	}
	if series[0] != 0.25 || series[1] != 0.75 {
		t.Errorf("unexpected series: %v", series)
	}
	if m.Last() != 0.75 {
		t.Errorf("expected last sample 0.75, got %f", m.Last())
	}
	if m.Name() != "coverage_A" {
		t.Errorf("unexpected name %q", m.Name())
	}
}

func TestCoverageReset(t *testing.T) {
	m := NewCoverage("A")
	m.Observe(lattice.NewConfiguration([]string{"A"}), 0)
	if m.Value() == 0 {
		t.Error("expected non-zero coverage")
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero coverage after reset")
	}
	if times, _ := m.Series(); len(times) != 0 {
		t.Errorf("expected empty series after reset, got %v", times)
	}
}

func TestCoverageEmptyLattice(t *testing.T) {
	m := NewCoverage("A")
	m.Observe(lattice.NewConfiguration(nil), 0)
	if m.Value() != 0 {
		t.Errorf("expected 0 for empty lattice, got %f", m.Value())
	}
}

func TestSaturation(t *testing.T) {
	m := NewSaturation("A", 0.5)

	m.Observe(lattice.NewConfiguration([]string{"A", "*"}), 0)
	m.Observe(lattice.NewConfiguration([]string{"*", "*"}), 1)
	m.Observe(lattice.NewConfiguration([]string{"A", "A"}), 2)
	m.Observe(lattice.NewConfiguration([]string{"*", "*"}), 3)

	if m.Value() != 0.5 {
		t.Errorf("expected saturation 0.5, got %f", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero after reset")
	}
}
