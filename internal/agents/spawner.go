// Agent spawning: builds the initial generation from prior probabilities.
package agents

import (
	"fmt"
	"math"

	"github.com/talgya/mini-culture/internal/entropy"
)

// Model holds the trait-model constants used to spawn agents and score them.
type Model struct {
	TraitPrior      float64 `json:"trait_prior" yaml:"trait_prior"`           // P(trait = A) for a new agent
	LinkProbability float64 `json:"link_probability" yaml:"link_probability"` // P(trait_2 mirrors trait)
	Trait2Prior     float64 `json:"trait_2_prior" yaml:"trait_2_prior"`       // P(trait_2 = X) when unlinked
	BasePayoff      float64 `json:"base_payoff" yaml:"base_payoff"`
	PayoffBonus     float64 `json:"payoff_bonus" yaml:"payoff_bonus"` // Extra payoff for trait A
}

// DefaultModel returns the reference constants: 5% trait A, a 50% link
// between the traits, 10% unlinked trait X, and payoffs of 11 versus 10.
func DefaultModel() Model {
	return Model{
		TraitPrior:      0.05,
		LinkProbability: 0.5,
		Trait2Prior:     0.1,
		BasePayoff:      BasePayoff,
		PayoffBonus:     PayoffBonus,
	}
}

// Validate checks that probabilities lie in [0, 1] and payoffs are
// usable as sampling weights.
func (m Model) Validate() error {
	probs := []struct {
		name string
		v    float64
	}{
		{"trait_prior", m.TraitPrior},
		{"link_probability", m.LinkProbability},
		{"trait_2_prior", m.Trait2Prior},
	}
	for _, p := range probs {
		if math.IsNaN(p.v) || p.v < 0 || p.v > 1 {
			return fmt.Errorf("%s %.4f outside [0, 1]", p.name, p.v)
		}
	}
	if !finite(m.BasePayoff) || !finite(m.PayoffBonus) {
		return fmt.Errorf("payoffs must be finite (base %.2f, bonus %.2f)", m.BasePayoff, m.PayoffBonus)
	}
	if m.BasePayoff < 0 || m.BasePayoff+m.PayoffBonus < 0 {
		return fmt.Errorf("payoffs must be non-negative (base %.2f, bonus %.2f)", m.BasePayoff, m.PayoffBonus)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Payoff scores an agent under this model.
func (m Model) Payoff(a Agent) float64 {
	if a.Trait == TraitA {
		return m.BasePayoff + m.PayoffBonus
	}
	return m.BasePayoff
}

// Spawner creates initial-generation agents.
type Spawner struct {
	model Model
}

// NewSpawner creates a spawner for the given model.
func NewSpawner(model Model) *Spawner {
	return &Spawner{model: model}
}

// Model returns the spawner's trait model.
func (s *Spawner) Model() Model {
	return s.model
}

// SpawnInitial creates one agent with no parent. Trait A is drawn with the
// trait prior. Trait 2 then either mirrors the trait (A→X, B→Y) with the
// link probability, or is drawn on its own as X with the trait-2 prior.
func (s *Spawner) SpawnInitial(rng entropy.Source) Agent {
	a := Agent{Trait: TraitB}
	if rng.Float64() < s.model.TraitPrior {
		a.Trait = TraitA
	}

	if rng.Float64() < s.model.LinkProbability {
		if a.Trait == TraitA {
			a.Trait2 = Trait2X
		} else {
			a.Trait2 = Trait2Y
		}
		return a
	}

	a.Trait2 = Trait2Y
	if rng.Float64() < s.model.Trait2Prior {
		a.Trait2 = Trait2X
	}
	return a
}

// SpawnPopulation creates count initial agents.
func (s *Spawner) SpawnPopulation(count int, rng entropy.Source) []Agent {
	agents := make([]Agent, 0, count)
	for i := 0; i < count; i++ {
		agents = append(agents, s.SpawnInitial(rng))
	}
	return agents
}
