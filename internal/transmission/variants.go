package transmission

import (
	"sort"

	"github.com/talgya/mini-culture/internal/agents"
	"github.com/talgya/mini-culture/internal/entropy"
)

// unbiasedTransmission copies the trait of a random member of the
// generation; the parent is one candidate among equals.
type unbiasedTransmission struct{}

func (unbiasedTransmission) Name() string { return UnbiasedTransmission }

func (unbiasedTransmission) Transmit(parent agents.Agent, pool Pool, rng entropy.Source) agents.Agent {
	demonstrator := pickUniform(pool.Agents(), rng)
	return parent.Offspring().WithTrait(demonstrator.Trait)
}

// unbiasedMutation flips the trait in either direction at a fixed rate.
type unbiasedMutation struct {
	rate float64
}

func (unbiasedMutation) Name() string { return UnbiasedMutation }

func (s unbiasedMutation) Transmit(parent agents.Agent, _ Pool, rng entropy.Source) agents.Agent {
	child := parent.Offspring()
	if rng.Float64() < s.rate {
		child.Trait = parent.Trait.Flip()
	}
	return child
}

// biasedMutation only ever moves B to A.
type biasedMutation struct {
	rate float64
}

func (biasedMutation) Name() string { return BiasedMutation }

func (s biasedMutation) Transmit(parent agents.Agent, _ Pool, rng entropy.Source) agents.Agent {
	child := parent.Offspring()
	if parent.Trait == agents.TraitB && rng.Float64() < s.rate {
		child.Trait = agents.TraitA
	}
	return child
}

// directBiasedTransmission meets one random demonstrator and adopts A from
// it with a fixed probability.
type directBiasedTransmission struct {
	rate float64
}

func (directBiasedTransmission) Name() string { return DirectBiasedTransmission }

func (s directBiasedTransmission) Transmit(parent agents.Agent, pool Pool, rng entropy.Source) agents.Agent {
	child := parent.Offspring()
	demonstrator := pickUniform(pool.Agents(), rng)
	if demonstrator.Trait == agents.TraitA && rng.Float64() < s.rate {
		child.Trait = agents.TraitA
	}
	return child
}

// indirectBiasedTransmission picks a demonstrator in proportion to payoff
// and copies both of its traits.
type indirectBiasedTransmission struct{}

func (indirectBiasedTransmission) Name() string { return IndirectBiasedTransmission }

func (indirectBiasedTransmission) Transmit(parent agents.Agent, pool Pool, rng entropy.Source) agents.Agent {
	demonstrator := pickWeighted(pool.Agents(), pool.CumulativePayoffs(), rng)
	child := parent.Offspring()
	child.Trait = demonstrator.Trait
	child.Trait2 = demonstrator.Trait2
	return child
}

func pickUniform(candidates []agents.Agent, rng entropy.Source) agents.Agent {
	return candidates[rng.Intn(len(candidates))]
}

// pickWeighted samples one candidate with probability proportional to its
// weight, given the cumulative weights from Cumulative. If no weight is
// positive the draw is uniform.
func pickWeighted(candidates []agents.Agent, cumulative []float64, rng entropy.Source) agents.Agent {
	n := len(candidates)
	if len(cumulative) < n {
		n = len(cumulative)
	}
	if n == 0 || cumulative[n-1] <= 0 {
		return pickUniform(candidates, rng)
	}

	target := rng.Float64() * cumulative[n-1]
	idx := sort.Search(n, func(i int) bool { return cumulative[i] > target })
	if idx == n {
		idx = n - 1
	}
	return candidates[idx]
}
