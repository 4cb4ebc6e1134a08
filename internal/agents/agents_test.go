package agents

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/mini-culture/internal/entropy"
)

// fixedSource replays a scripted sequence of floats.
type fixedSource struct {
	floats []float64
	i      int
}

func (f *fixedSource) Float64() float64 {
	v := f.floats[f.i]
	f.i++
	return v
}

func (f *fixedSource) Intn(n int) int { return 0 }

func TestPayoff(t *testing.T) {
	assert.Equal(t, 11.0, Agent{Trait: TraitA, Trait2: Trait2Y}.Payoff())
	assert.Equal(t, 10.0, Agent{Trait: TraitB, Trait2: Trait2X}.Payoff())

	m := DefaultModel()
	assert.Equal(t, 11.0, m.Payoff(Agent{Trait: TraitA, Trait2: Trait2X}))
	assert.Equal(t, 10.0, m.Payoff(Agent{Trait: TraitB, Trait2: Trait2Y}))
}

func TestSpawnInitial_LinkedDraw(t *testing.T) {
	s := NewSpawner(DefaultModel())

	// trait draw < 0.05 → A; link draw < 0.5 → mirrored X.
	a := s.SpawnInitial(&fixedSource{floats: []float64{0.01, 0.2}})
	assert.Equal(t, Agent{Trait: TraitA, Trait2: Trait2X}, a)

	// B mirrored → Y.
	b := s.SpawnInitial(&fixedSource{floats: []float64{0.9, 0.2}})
	assert.Equal(t, Agent{Trait: TraitB, Trait2: Trait2Y}, b)
}

func TestSpawnInitial_UnlinkedDraw(t *testing.T) {
	s := NewSpawner(DefaultModel())

	// Unlinked, trait 2 draw < 0.1 → X even for a B agent.
	a := s.SpawnInitial(&fixedSource{floats: []float64{0.9, 0.7, 0.05}})
	assert.Equal(t, Agent{Trait: TraitB, Trait2: Trait2X}, a)

	// Unlinked A agent can still carry Y.
	b := s.SpawnInitial(&fixedSource{floats: []float64{0.01, 0.7, 0.5}})
	assert.Equal(t, Agent{Trait: TraitA, Trait2: Trait2Y}, b)
}

func TestSpawnPopulation_Frequencies(t *testing.T) {
	s := NewSpawner(DefaultModel())
	rng := entropy.New(11)
	const n = 20000
	pop := s.SpawnPopulation(n, rng)
	require.Len(t, pop, n)

	var as, xs int
	for _, a := range pop {
		require.True(t, a.Valid())
		if a.Trait == TraitA {
			as++
		}
		if a.Trait2 == Trait2X {
			xs++
		}
	}

	// P(A) = 0.05; P(X) = 0.5*P(A) + 0.5*0.1 = 0.075.
	pA := float64(as) / n
	pX := float64(xs) / n
	assert.InDelta(t, 0.05, pA, 4*math.Sqrt(0.05*0.95/n))
	assert.InDelta(t, 0.075, pX, 4*math.Sqrt(0.075*0.925/n))
}

func TestModelValidate(t *testing.T) {
	require.NoError(t, DefaultModel().Validate())

	m := DefaultModel()
	m.LinkProbability = 1.5
	assert.Error(t, m.Validate())

	m = DefaultModel()
	m.BasePayoff = 1
	m.PayoffBonus = -2
	assert.Error(t, m.Validate())
}

func TestModelValidate_RejectsNonFinite(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Model)
	}{
		{"nan trait prior", func(m *Model) { m.TraitPrior = math.NaN() }},
		{"nan link", func(m *Model) { m.LinkProbability = math.NaN() }},
		{"nan trait 2 prior", func(m *Model) { m.Trait2Prior = math.NaN() }},
		{"nan base payoff", func(m *Model) { m.BasePayoff = math.NaN() }},
		{"infinite bonus", func(m *Model) { m.PayoffBonus = math.Inf(1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := DefaultModel()
			tt.mutate(&m)
			assert.Error(t, m.Validate())
		})
	}
}

func TestTraitHelpers(t *testing.T) {
	assert.Equal(t, TraitB, TraitA.Flip())
	assert.Equal(t, TraitA, TraitB.Flip())
	assert.Equal(t, "AX", Agent{Trait: TraitA, Trait2: Trait2X}.Pair())
	assert.False(t, Agent{}.Valid())

	parent := Agent{Trait: TraitB, Trait2: Trait2X}
	child := parent.Offspring().WithTrait(TraitA)
	assert.Equal(t, TraitB, parent.Trait)
	assert.Equal(t, Agent{Trait: TraitA, Trait2: Trait2X}, child)
}
