// Population dynamics: one generation of agents, its frequency statistics,
// and the generational update.
package engine

import (
	"fmt"

	"github.com/talgya/mini-culture/internal/agents"
	"github.com/talgya/mini-culture/internal/entropy"
	"github.com/talgya/mini-culture/internal/transmission"
)

// Population owns the current generation. It is not safe for concurrent use;
// each run owns its own Population.
type Population struct {
	agents     []agents.Agent
	payoffs    []float64
	cumulative []float64 // Prefix sums of payoffs, rebuilt with them
	model      agents.Model
	rng        entropy.Source
	generation int

	traitHistory  []float64 // Proportion of trait A, one entry per generation
	trait2History []float64 // Proportion of trait 2 X, one entry per generation
}

// NewPopulation spawns size initial agents and records generation 1.
func NewPopulation(size int, spawner *agents.Spawner, rng entropy.Source) (*Population, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: population size %d must be positive", ErrInvalidParameter, size)
	}

	p := &Population{
		agents:     spawner.SpawnPopulation(size, rng),
		model:      spawner.Model(),
		rng:        rng,
		generation: 1,
	}
	if err := p.record(); err != nil {
		return nil, err
	}
	return p, nil
}

// Agents returns a copy of the current generation.
func (p *Population) Agents() []agents.Agent {
	out := make([]agents.Agent, len(p.agents))
	copy(out, p.agents)
	return out
}

// Payoffs returns a copy of the payoff cache computed at the start of the
// last advance, index-aligned with the generation it was computed from.
func (p *Population) Payoffs() []float64 {
	return append([]float64(nil), p.payoffs...)
}

// Size returns the number of agents.
func (p *Population) Size() int {
	return len(p.agents)
}

// Generation returns the current generation number, starting at 1.
func (p *Population) Generation() int {
	return p.generation
}

// TraitFrequency returns the proportion of agents with trait A.
func (p *Population) TraitFrequency() (float64, error) {
	return p.proportion(func(a agents.Agent) bool { return a.Trait == agents.TraitA })
}

// Trait2Frequency returns the proportion of agents with trait 2 X.
func (p *Population) Trait2Frequency() (float64, error) {
	return p.proportion(func(a agents.Agent) bool { return a.Trait2 == agents.Trait2X })
}

func (p *Population) proportion(match func(agents.Agent) bool) (float64, error) {
	if len(p.agents) == 0 {
		return 0, ErrEmptyPopulation
	}
	count := 0
	for _, a := range p.agents {
		if match(a) {
			count++
		}
	}
	return float64(count) / float64(len(p.agents)), nil
}

// TraitHistory returns the trait A frequency for every generation so far.
func (p *Population) TraitHistory() []float64 {
	return append([]float64(nil), p.traitHistory...)
}

// Trait2History returns the trait 2 X frequency for every generation so far.
func (p *Population) Trait2History() []float64 {
	return append([]float64(nil), p.trait2History...)
}

// Advance replaces the whole generation. Payoffs are taken from the current
// agents before any offspring exists, then every agent contributes exactly
// one offspring built by strategy. The new generation is swapped in only
// once it is complete.
func (p *Population) Advance(strategy transmission.Strategy) error {
	p.refreshPayoffs()

	view := generationView{agents: p.agents, payoffs: p.payoffs, cumulative: p.cumulative}
	next := make([]agents.Agent, len(p.agents))
	for i, parent := range p.agents {
		next[i] = strategy.Transmit(parent, view, p.rng)
	}

	p.agents = next
	p.generation++
	return p.record()
}

func (p *Population) refreshPayoffs() {
	if cap(p.payoffs) < len(p.agents) {
		p.payoffs = make([]float64, len(p.agents))
	}
	p.payoffs = p.payoffs[:len(p.agents)]
	for i, a := range p.agents {
		p.payoffs[i] = p.model.Payoff(a)
	}
	p.cumulative = transmission.Cumulative(p.payoffs, p.cumulative)
}

func (p *Population) record() error {
	freqA, err := p.TraitFrequency()
	if err != nil {
		return fmt.Errorf("generation %d: %w", p.generation, err)
	}
	freqX, err := p.Trait2Frequency()
	if err != nil {
		return fmt.Errorf("generation %d: %w", p.generation, err)
	}
	p.traitHistory = append(p.traitHistory, freqA)
	p.trait2History = append(p.trait2History, freqX)
	return nil
}

// generationView hands strategies the live slices without copying them for
// every offspring. Strategies only read from a Pool.
type generationView struct {
	agents     []agents.Agent
	payoffs    []float64
	cumulative []float64
}

func (v generationView) Agents() []agents.Agent       { return v.agents }
func (v generationView) Payoffs() []float64           { return v.payoffs }
func (v generationView) CumulativePayoffs() []float64 { return v.cumulative }
