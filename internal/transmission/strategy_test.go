package transmission

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/mini-culture/internal/agents"
	"github.com/talgya/mini-culture/internal/entropy"
)

type staticPool struct {
	agents     []agents.Agent
	payoffs    []float64
	cumulative []float64
}

func (p staticPool) Agents() []agents.Agent       { return p.agents }
func (p staticPool) Payoffs() []float64           { return p.payoffs }
func (p staticPool) CumulativePayoffs() []float64 { return p.cumulative }

func poolOf(as ...agents.Agent) staticPool {
	payoffs := make([]float64, len(as))
	for i, a := range as {
		payoffs[i] = a.Payoff()
	}
	return staticPool{agents: as, payoffs: payoffs, cumulative: Cumulative(payoffs, nil)}
}

// scripted returns fixed values for Float64 and Intn.
type scripted struct {
	f float64
	n int
}

func (s scripted) Float64() float64 { return s.f }
func (s scripted) Intn(int) int     { return s.n }

var (
	ax = agents.Agent{Trait: agents.TraitA, Trait2: agents.Trait2X}
	ay = agents.Agent{Trait: agents.TraitA, Trait2: agents.Trait2Y}
	bx = agents.Agent{Trait: agents.TraitB, Trait2: agents.Trait2X}
	by = agents.Agent{Trait: agents.TraitB, Trait2: agents.Trait2Y}
)

func mustNew(t *testing.T, name string, rates Rates) Strategy {
	t.Helper()
	s, err := New(name, rates)
	require.NoError(t, err)
	require.Equal(t, name, s.Name())
	return s
}

func TestNew_Unknown(t *testing.T) {
	_, err := New("telepathy", DefaultRates())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownStrategy))
	assert.False(t, Known("telepathy"))
}

func TestNames(t *testing.T) {
	names := Names()
	assert.Equal(t, []string{
		BiasedMutation,
		DirectBiasedTransmission,
		IndirectBiasedTransmission,
		UnbiasedMutation,
		UnbiasedTransmission,
	}, names)
	for _, n := range names {
		assert.True(t, Known(n))
	}
}

func TestUnbiasedTransmission_CopiesDemonstratorTrait(t *testing.T) {
	s := mustNew(t, UnbiasedTransmission, DefaultRates())
	pool := poolOf(by, ax, by)

	child := s.Transmit(by, pool, scripted{n: 1})
	assert.Equal(t, agents.TraitA, child.Trait)
	assert.Equal(t, agents.Trait2Y, child.Trait2, "only the primary trait is copied")
}

func TestUnbiasedMutation(t *testing.T) {
	s := mustNew(t, UnbiasedMutation, DefaultRates())

	assert.Equal(t, by, s.Transmit(ay, poolOf(ay), scripted{f: 0.01}))
	assert.Equal(t, ax, s.Transmit(bx, poolOf(bx), scripted{f: 0.01}))
	assert.Equal(t, ay, s.Transmit(ay, poolOf(ay), scripted{f: 0.5}))
}

func TestUnbiasedMutation_ZeroRateNeverFlips(t *testing.T) {
	s := mustNew(t, UnbiasedMutation, Rates{})
	rng := entropy.New(3)
	for i := 0; i < 1000; i++ {
		assert.Equal(t, bx, s.Transmit(bx, poolOf(bx), rng))
	}
}

func TestBiasedMutation_OneDirection(t *testing.T) {
	s := mustNew(t, BiasedMutation, DefaultRates())

	assert.Equal(t, ay, s.Transmit(by, poolOf(by), scripted{f: 0.01}))
	assert.Equal(t, by, s.Transmit(by, poolOf(by), scripted{f: 0.5}))
	// A never flips, whatever the draw.
	assert.Equal(t, ax, s.Transmit(ax, poolOf(ax), scripted{f: 0.0}))
}

func TestDirectBiasedTransmission(t *testing.T) {
	s := mustNew(t, DirectBiasedTransmission, DefaultRates())
	pool := poolOf(by, ax)

	// A demonstrator, draw under 0.1 → adopt A.
	assert.Equal(t, ay, s.Transmit(by, pool, scripted{n: 1, f: 0.05}))
	// A demonstrator, draw over 0.1 → keep.
	assert.Equal(t, by, s.Transmit(by, pool, scripted{n: 1, f: 0.5}))
	// B demonstrator never changes anything.
	assert.Equal(t, by, s.Transmit(by, pool, scripted{n: 0, f: 0.0}))
	// An A parent meeting a B demonstrator stays A.
	assert.Equal(t, ax, s.Transmit(ax, pool, scripted{n: 0, f: 0.0}))
}

func TestIndirectBiasedTransmission_CopiesBothTraits(t *testing.T) {
	s := mustNew(t, IndirectBiasedTransmission, DefaultRates())
	pool := poolOf(by, ax)

	// Weights 10, 11 → cumulative 10, 21. Draw 0.9*21 = 18.9 lands on ax.
	assert.Equal(t, ax, s.Transmit(by, pool, scripted{f: 0.9}))
	// Draw 0.1*21 = 2.1 lands on by.
	assert.Equal(t, by, s.Transmit(ax, pool, scripted{f: 0.1}))
}

func TestIndirectBiasedTransmission_SingleAgentSelfSelects(t *testing.T) {
	s := mustNew(t, IndirectBiasedTransmission, DefaultRates())
	rng := entropy.New(5)
	for i := 0; i < 100; i++ {
		assert.Equal(t, bx, s.Transmit(bx, poolOf(bx), rng))
	}
}

func TestPickWeighted_Proportional(t *testing.T) {
	rng := entropy.New(9)
	candidates := []agents.Agent{by, ax}
	cumulative := Cumulative([]float64{1, 3}, nil)

	const n = 40000
	hits := 0
	for i := 0; i < n; i++ {
		if pickWeighted(candidates, cumulative, rng) == ax {
			hits++
		}
	}
	assert.InDelta(t, 0.75, float64(hits)/n, 0.02)
}

func TestPickWeighted_ZeroWeightsNeverChosen(t *testing.T) {
	rng := entropy.New(10)
	candidates := []agents.Agent{by, ax, bx}
	cumulative := Cumulative([]float64{0, 5, 0}, nil)
	for i := 0; i < 500; i++ {
		assert.Equal(t, ax, pickWeighted(candidates, cumulative, rng))
	}
}

func TestPickWeighted_AllZeroFallsBackToUniform(t *testing.T) {
	candidates := []agents.Agent{by, ax}
	got := pickWeighted(candidates, Cumulative([]float64{0, 0}, nil), scripted{n: 1})
	assert.Equal(t, ax, got)
}

func TestCumulative(t *testing.T) {
	assert.Equal(t, []float64{1, 1, 4, 4}, Cumulative([]float64{1, -2, 3, math.NaN()}, nil))

	buf := make([]float64, 0, 8)
	out := Cumulative([]float64{2, 2}, buf)
	assert.Equal(t, []float64{2, 4}, out)
	assert.Equal(t, 8, cap(out), "reuses the destination")
}

func TestIndirectBiasedTransmission_UsesCumulativePayoffs(t *testing.T) {
	// Payoffs say nothing; the cumulative weights put all mass on ax.
	pool := staticPool{
		agents:     []agents.Agent{by, ax, bx},
		payoffs:    []float64{10, 11, 10},
		cumulative: []float64{0, 7, 7},
	}
	s := mustNew(t, IndirectBiasedTransmission, DefaultRates())
	rng := entropy.New(12)
	for i := 0; i < 200; i++ {
		assert.Equal(t, ax, s.Transmit(by, pool, rng))
	}
}

func TestStrategiesNeverMutateInputs(t *testing.T) {
	rng := entropy.New(1)
	for _, name := range Names() {
		s := mustNew(t, name, Rates{Mutation: 1, BiasedMutation: 1, DirectBias: 1})
		pool := poolOf(by, ax, bx, ay)
		before := append([]agents.Agent(nil), pool.agents...)
		parent := by
		for i := 0; i < 50; i++ {
			child := s.Transmit(parent, pool, rng)
			assert.True(t, child.Valid(), name)
		}
		assert.Equal(t, by, parent, name)
		assert.Equal(t, before, pool.agents, name)
	}
}

func TestRatesValidate(t *testing.T) {
	require.NoError(t, DefaultRates().Validate())
	require.NoError(t, Rates{}.Validate())
	assert.Error(t, Rates{Mutation: -0.1}.Validate())
	assert.Error(t, Rates{DirectBias: 1.1}.Validate())
	assert.Error(t, Rates{Mutation: math.NaN()}.Validate())
	assert.Error(t, Rates{BiasedMutation: math.Inf(1)}.Validate())
}

func TestRatesValidate_ReportsFirstBadRate(t *testing.T) {
	bad := Rates{Mutation: 2, BiasedMutation: -1, DirectBias: 3}
	for i := 0; i < 20; i++ {
		err := bad.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate mutation ")
	}
}
