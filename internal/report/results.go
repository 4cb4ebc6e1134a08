package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/talgya/mini-culture/internal/batch"
)

// ResultsFile is the name of the batch results table.
const ResultsFile = "simulation_results.csv"

// ResultsHeader lists the results table columns.
var ResultsHeader = []string{
	"population_size", "trait_prob", "trait_2_prob", "trait_link", "payoff_bonus", "filename",
	"run_id", "strategy", "seed", "final_trait_a", "final_trait_x", "error",
}

// WriteResultsFile writes the results table into dir and returns its path.
func WriteResultsFile(dir string, results []batch.Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, ResultsFile)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create results: %w", err)
	}
	if err := WriteResults(f, results); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close results: %w", err)
	}
	return path, nil
}

// WriteResults writes one row per result; failed rows carry their error and
// empty trajectory columns.
func WriteResults(w io.Writer, results []batch.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ResultsHeader); err != nil {
		return err
	}
	for _, r := range results {
		rec := r.Record
		row := []string{
			strconv.Itoa(rec.PopulationSize),
			formatFloat(rec.TraitPrior),
			formatFloat(rec.Trait2Prior),
			formatFloat(rec.Link),
			strconv.Itoa(rec.PayoffBonus),
			r.Filename,
			r.RunID,
			"", "", "", "", "",
		}
		if r.Trajectory != nil {
			finalA, finalX := r.Trajectory.Final()
			row[7] = r.Trajectory.Strategy
			row[8] = strconv.FormatInt(r.Trajectory.Seed, 10)
			row[9] = strconv.FormatFloat(finalA, 'f', 4, 64)
			row[10] = strconv.FormatFloat(finalX, 'f', 4, 64)
		}
		if r.Err != nil {
			row[11] = r.Err.Error()
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
