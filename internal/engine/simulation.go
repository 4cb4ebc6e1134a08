// Runner drives one parameter combination through a fixed number of
// generations and returns the resulting trajectory.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/mini-culture/internal/agents"
	"github.com/talgya/mini-culture/internal/entropy"
	"github.com/talgya/mini-culture/internal/transmission"
)

// DefaultGenerations is the number of generations in a reference run.
const DefaultGenerations = 150

// Params are the parameter-table fields of a run. They are echoed into the
// trajectory; whether they also shape the agent Model is the caller's choice.
type Params struct {
	TraitPrior  float64 `json:"trait_prob"`
	Trait2Prior float64 `json:"trait_2_prob"`
	TraitLink   float64 `json:"trait_link"`
	PayoffBonus float64 `json:"payoff_bonus"`
}

// RunSpec describes one simulation run.
type RunSpec struct {
	PopulationSize int
	Generations    int
	Strategy       transmission.Strategy
	Seed           int64        // 0 draws a fresh seed
	Model          agents.Model // Zero value means agents.DefaultModel()
	Params         Params
}

// Trajectory is the output of a run: one frequency entry per generation,
// including the initial one, plus the inputs that produced it.
type Trajectory struct {
	PopulationSize int          `json:"population_size"`
	Generations    int          `json:"generations"`
	Strategy       string       `json:"strategy"`
	Seed           int64        `json:"seed"`
	Params         Params       `json:"params"`
	Model          agents.Model `json:"model"`
	TraitA         []float64    `json:"trait_a"`
	TraitX         []float64    `json:"trait_x"`
}

// Final returns the last recorded frequencies.
func (t *Trajectory) Final() (traitA, traitX float64) {
	if len(t.TraitA) == 0 {
		return 0, 0
	}
	return t.TraitA[len(t.TraitA)-1], t.TraitX[len(t.TraitX)-1]
}

// Runner executes runs. The zero value is ready to use.
type Runner struct {
	// ProgressEvery logs a progress line every N generations (0 = never).
	ProgressEvery int

	// OnGeneration, if set, is called after every advance.
	OnGeneration func(generation int, pop *Population)
}

// Validate checks a spec without running it.
func (spec RunSpec) Validate() error {
	if spec.PopulationSize <= 0 {
		return fmt.Errorf("%w: population size %d must be positive", ErrInvalidParameter, spec.PopulationSize)
	}
	if spec.Generations < 0 {
		return fmt.Errorf("%w: generations %d must not be negative", ErrInvalidParameter, spec.Generations)
	}
	if spec.Strategy == nil {
		return fmt.Errorf("%w: no transmission strategy", ErrInvalidParameter)
	}
	if spec.Model != (agents.Model{}) {
		if err := spec.Model.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidParameter, err)
		}
	}
	return nil
}

// Run validates spec, builds the initial generation and advances it exactly
// spec.Generations times. Nothing is computed if validation fails, and no
// trajectory is returned on any error.
func (r *Runner) Run(ctx context.Context, spec RunSpec) (*Trajectory, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	model := spec.Model
	if model == (agents.Model{}) {
		model = agents.DefaultModel()
	}
	rng := entropy.New(spec.Seed)

	pop, err := NewPopulation(spec.PopulationSize, agents.NewSpawner(model), rng)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	slog.Debug("run started",
		"strategy", spec.Strategy.Name(),
		"population", spec.PopulationSize,
		"generations", spec.Generations,
		"seed", rng.Seed(),
	)

	for i := 0; i < spec.Generations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := pop.Advance(spec.Strategy); err != nil {
			return nil, err
		}
		if r.OnGeneration != nil {
			r.OnGeneration(pop.Generation(), pop)
		}
		if r.ProgressEvery > 0 && pop.Generation()%r.ProgressEvery == 0 {
			freqA, _ := pop.TraitFrequency()
			freqX, _ := pop.Trait2Frequency()
			slog.Info("generation",
				"strategy", spec.Strategy.Name(),
				"generation", pop.Generation(),
				"trait_a", fmt.Sprintf("%.3f", freqA),
				"trait_x", fmt.Sprintf("%.3f", freqX),
			)
		}
	}

	traj := &Trajectory{
		PopulationSize: spec.PopulationSize,
		Generations:    spec.Generations,
		Strategy:       spec.Strategy.Name(),
		Seed:           rng.Seed(),
		Params:         spec.Params,
		Model:          model,
		TraitA:         pop.TraitHistory(),
		TraitX:         pop.Trait2History(),
	}

	finalA, finalX := traj.Final()
	slog.Debug("run complete",
		"strategy", traj.Strategy,
		"population", traj.PopulationSize,
		"final_trait_a", fmt.Sprintf("%.3f", finalA),
		"final_trait_x", fmt.Sprintf("%.3f", finalX),
		"elapsed", time.Since(start),
	)
	return traj, nil
}
