package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/latsim/internal/config"
	"github.com/san-kum/latsim/internal/sim"
)

// ProcessFactory builds a process from the model settings. It returns nil
// when the model disables the process.
type ProcessFactory func(m config.ModelConfig, neighbours [][]int) sim.Process

type Registry struct {
	processes map[string]ProcessFactory
}

func NewRegistry() *Registry {
	r := &Registry{processes: make(map[string]ProcessFactory)}

	r.processes["adsorption"] = func(m config.ModelConfig, _ [][]int) sim.Process {
		if m.AdsorptionRate == 0 {
			return nil
		}
		return &sim.Adsorption{Empty: m.Empty, Species: m.Species, Rate: m.AdsorptionRate}
	}
	r.processes["desorption"] = func(m config.ModelConfig, _ [][]int) sim.Process {
		if m.DesorptionRate == 0 {
			return nil
		}
		return &sim.Desorption{Species: m.Species, Empty: m.Empty, Rate: m.DesorptionRate}
	}
	r.processes["diffusion"] = func(m config.ModelConfig, neighbours [][]int) sim.Process {
		if m.DiffusionRate == 0 {
			return nil
		}
		return &sim.Diffusion{Species: m.Species, Empty: m.Empty, Rate: m.DiffusionRate, Neighbours: neighbours}
	}

	return r
}

func (r *Registry) Register(name string, f ProcessFactory) {
	r.processes[name] = f
}

func (r *Registry) GetProcess(name string, m config.ModelConfig, neighbours [][]int) (sim.Process, error) {
	fn, ok := r.processes[name]
	if !ok {
		return nil, fmt.Errorf("unknown process: %s", name)
	}
	return fn(m, neighbours), nil
}

// Processes builds every enabled process in name order.
func (r *Registry) Processes(m config.ModelConfig, neighbours [][]int) []sim.Process {
	var out []sim.Process
	for _, name := range r.ListProcesses() {
		if p := r.processes[name](m, neighbours); p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (r *Registry) ListProcesses() []string {
	names := make([]string, 0, len(r.processes))
	for name := range r.processes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
