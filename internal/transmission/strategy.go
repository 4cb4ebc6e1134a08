// Package transmission implements the social-learning rules that build an
// offspring from a parent and the current generation.
package transmission

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/talgya/mini-culture/internal/agents"
	"github.com/talgya/mini-culture/internal/entropy"
)

// ErrUnknownStrategy is returned by New for an unregistered name.
var ErrUnknownStrategy = errors.New("unknown transmission strategy")

// Strategy names, as they appear in configuration and reports.
const (
	UnbiasedTransmission       = "unbiased_transmission"
	UnbiasedMutation           = "unbiased_mutation"
	BiasedMutation             = "biased_mutation"
	DirectBiasedTransmission   = "direct_biased_transmission"
	IndirectBiasedTransmission = "indirect_biased_transmission"
)

// Pool is the read-only view of the current generation a strategy learns from.
// Payoffs and CumulativePayoffs are index-aligned with Agents.
type Pool interface {
	Agents() []agents.Agent
	Payoffs() []float64

	// CumulativePayoffs holds the running sum of the non-negative payoffs,
	// built once per generation with Cumulative.
	CumulativePayoffs() []float64
}

// Cumulative writes the prefix sums of weights into dst, reusing its
// capacity, and returns it. Negative and NaN weights count as zero.
func Cumulative(weights, dst []float64) []float64 {
	if cap(dst) < len(weights) {
		dst = make([]float64, len(weights))
	}
	dst = dst[:len(weights)]
	total := 0.0
	for i, w := range weights {
		if w > 0 {
			total += w
		}
		dst[i] = total
	}
	return dst
}

// Strategy builds one offspring. Implementations never modify the parent
// or the pool.
type Strategy interface {
	Name() string
	Transmit(parent agents.Agent, pool Pool, rng entropy.Source) agents.Agent
}

// Rates are the per-offspring probabilities used by the strategies.
type Rates struct {
	Mutation       float64 `json:"mutation" yaml:"mutation"`               // unbiased_mutation flip rate
	BiasedMutation float64 `json:"biased_mutation" yaml:"biased_mutation"` // B→A rate under biased_mutation
	DirectBias     float64 `json:"direct_bias" yaml:"direct_bias"`         // adoption rate of an A demonstrator
}

// DefaultRates returns the reference rates.
func DefaultRates() Rates {
	return Rates{
		Mutation:       0.05,
		BiasedMutation: 0.05,
		DirectBias:     0.1,
	}
}

// Validate checks every rate is a probability.
func (r Rates) Validate() error {
	rates := []struct {
		name string
		v    float64
	}{
		{"mutation", r.Mutation},
		{"biased_mutation", r.BiasedMutation},
		{"direct_bias", r.DirectBias},
	}
	for _, rate := range rates {
		if math.IsNaN(rate.v) || rate.v < 0 || rate.v > 1 {
			return fmt.Errorf("rate %s %.4f outside [0, 1]", rate.name, rate.v)
		}
	}
	return nil
}

var registry = map[string]func(Rates) Strategy{
	UnbiasedTransmission:       func(Rates) Strategy { return unbiasedTransmission{} },
	UnbiasedMutation:           func(r Rates) Strategy { return unbiasedMutation{rate: r.Mutation} },
	BiasedMutation:             func(r Rates) Strategy { return biasedMutation{rate: r.BiasedMutation} },
	DirectBiasedTransmission:   func(r Rates) Strategy { return directBiasedTransmission{rate: r.DirectBias} },
	IndirectBiasedTransmission: func(Rates) Strategy { return indirectBiasedTransmission{} },
}

// New returns the named strategy configured with rates.
func New(name string, rates Rates) (Strategy, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return ctor(rates), nil
}

// Names lists every registered strategy, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Known reports whether name is a registered strategy.
func Known(name string) bool {
	_, ok := registry[name]
	return ok
}
