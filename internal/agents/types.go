// Package agents provides the agent data model: two categorical traits and
// the payoff (reputation) derived from them.
package agents

import "fmt"

// Trait is the reputation-linked trait.
type Trait uint8

const (
	TraitA Trait = iota + 1 // Productive behaviour, earns the payoff bonus
	TraitB                  // Baseline behaviour
)

// String returns the trait letter.
func (t Trait) String() string {
	switch t {
	case TraitA:
		return "A"
	case TraitB:
		return "B"
	}
	return fmt.Sprintf("Trait(%d)", uint8(t))
}

// Flip returns the other trait.
func (t Trait) Flip() Trait {
	if t == TraitA {
		return TraitB
	}
	return TraitA
}

// Trait2 is the reputation-neutral trait, probabilistically linked to Trait.
type Trait2 uint8

const (
	Trait2X Trait2 = iota + 1 // Linked to A
	Trait2Y                   // Linked to B
)

// String returns the trait letter.
func (t Trait2) String() string {
	switch t {
	case Trait2X:
		return "X"
	case Trait2Y:
		return "Y"
	}
	return fmt.Sprintf("Trait2(%d)", uint8(t))
}

// Reference payoffs, in reputation points.
const (
	BasePayoff  = 10.0
	PayoffBonus = 1.0
)

// Agent is one individual. Agents are values: a strategy builds a new one
// for every offspring and nothing mutates an agent once it is built.
type Agent struct {
	Trait  Trait  `json:"trait"`
	Trait2 Trait2 `json:"trait_2"`
}

// Valid reports whether both traits hold a real value.
func (a Agent) Valid() bool {
	return (a.Trait == TraitA || a.Trait == TraitB) &&
		(a.Trait2 == Trait2X || a.Trait2 == Trait2Y)
}

// Payoff returns the agent's reputation under the reference model:
// 11 for trait A, 10 for trait B.
func (a Agent) Payoff() float64 {
	if a.Trait == TraitA {
		return BasePayoff + PayoffBonus
	}
	return BasePayoff
}

// Offspring returns the starting point of a new agent: a copy of the
// parent's traits, which the strategy then overwrites.
func (a Agent) Offspring() Agent {
	return Agent{Trait: a.Trait, Trait2: a.Trait2}
}

// WithTrait returns a copy of the agent carrying trait t.
func (a Agent) WithTrait(t Trait) Agent {
	a.Trait = t
	return a
}

// Pair is the (trait, trait_2) combination, used for copy checks.
func (a Agent) Pair() string {
	return a.Trait.String() + a.Trait2.String()
}
