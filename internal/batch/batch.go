// Package batch runs every row of a parameter table, in parallel across
// rows and sequentially within each run.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/talgya/mini-culture/internal/agents"
	"github.com/talgya/mini-culture/internal/config"
	"github.com/talgya/mini-culture/internal/engine"
	"github.com/talgya/mini-culture/internal/entropy"
	"github.com/talgya/mini-culture/internal/params"
	"github.com/talgya/mini-culture/internal/transmission"
)

// Result is the outcome of one parameter row. Exactly one of Trajectory
// and Err is set once the row has been processed by Run.
type Result struct {
	Index      int
	RunID      string
	Record     params.Record
	Seed       int64
	Trajectory *engine.Trajectory
	Filename   string // Artifact written by AfterRun, if any
	Err        error
	Elapsed    time.Duration
}

// Batch executes parameter rows under one configuration.
type Batch struct {
	Config *config.Config
	Runner *engine.Runner

	// AfterRun, if set, is called from the worker that produced a successful
	// result. It may only touch that result. An error marks the row failed.
	AfterRun func(ctx context.Context, r *Result) error
}

// New creates a batch for cfg.
func New(cfg *config.Config) *Batch {
	return &Batch{Config: cfg, Runner: &engine.Runner{}}
}

// Run executes every record and returns one result per record, in input
// order. A failing row never stops the others; only cancellation of ctx
// returns an error.
func (b *Batch) Run(ctx context.Context, records []params.Record) ([]Result, error) {
	strategy, err := transmission.New(b.Config.Strategy, b.Config.Rates)
	if err != nil {
		return nil, err
	}

	baseSeed := b.Config.Seed
	if baseSeed == 0 {
		baseSeed = entropy.NewSeed()
	}
	slog.Info("batch starting",
		"runs", len(records),
		"strategy", strategy.Name(),
		"generations", b.Config.Generations,
		"workers", b.Config.Workers,
		"seed", baseSeed,
		"wire_params", b.Config.WireParams,
	)

	// Each worker writes only its own slot; results are read after Wait.
	results := make([]Result, len(records))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers())

	for i, rec := range records {
		results[i] = Result{
			Index:  i,
			RunID:  uuid.NewString(),
			Record: rec,
			Seed:   entropy.DeriveSeed(baseSeed, i),
		}
		res := &results[i]

		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				res.Err = err
				return err
			}
			b.runOne(gCtx, strategy, res)
			if res.Err != nil && gCtx.Err() != nil {
				return gCtx.Err()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("batch interrupted: %w", err)
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	slog.Info("batch complete", "runs", len(results), "failed", failed)
	return results, nil
}

func (b *Batch) runOne(ctx context.Context, strategy transmission.Strategy, res *Result) {
	start := time.Now()
	defer func() { res.Elapsed = time.Since(start) }()

	rec := res.Record
	spec := engine.RunSpec{
		PopulationSize: rec.PopulationSize,
		Generations:    b.Config.Generations,
		Strategy:       strategy,
		Seed:           res.Seed,
		Params: engine.Params{
			TraitPrior:  rec.TraitPrior,
			Trait2Prior: rec.Trait2Prior,
			TraitLink:   rec.Link,
			PayoffBonus: float64(rec.PayoffBonus),
		},
	}
	if b.Config.WireParams {
		spec.Model = ModelFor(rec)
	}

	traj, err := b.runner().Run(ctx, spec)
	if err != nil {
		res.Err = fmt.Errorf("row %d: %w", rec.Row, err)
		slog.Error("run failed", "row", rec.Row, "run_id", res.RunID, "error", err)
		return
	}
	res.Trajectory = traj

	if b.AfterRun != nil {
		if err := b.AfterRun(ctx, res); err != nil {
			res.Err = fmt.Errorf("row %d: %w", rec.Row, err)
			slog.Error("run output failed", "row", rec.Row, "run_id", res.RunID, "error", err)
			return
		}
	}

	finalA, finalX := traj.Final()
	slog.Info("run complete",
		"row", rec.Row,
		"population", rec.PopulationSize,
		"final_trait_a", fmt.Sprintf("%.3f", finalA),
		"final_trait_x", fmt.Sprintf("%.3f", finalX),
	)
}

// ModelFor builds the agent model a parameter row describes.
func ModelFor(rec params.Record) agents.Model {
	return agents.Model{
		TraitPrior:      rec.TraitPrior,
		LinkProbability: rec.Link,
		Trait2Prior:     rec.Trait2Prior,
		BasePayoff:      agents.BasePayoff,
		PayoffBonus:     float64(rec.PayoffBonus),
	}
}

func (b *Batch) workers() int {
	if b.Config.Workers < 1 {
		return 1
	}
	return b.Config.Workers
}

func (b *Batch) runner() *engine.Runner {
	if b.Runner == nil {
		return &engine.Runner{}
	}
	return b.Runner
}
