package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/mini-culture/internal/batch"
	"github.com/talgya/mini-culture/internal/engine"
	"github.com/talgya/mini-culture/internal/params"
)

func sampleTrajectory() *engine.Trajectory {
	return &engine.Trajectory{
		PopulationSize: 100,
		Generations:    3,
		Strategy:       "biased_mutation",
		Seed:           5,
		TraitA:         []float64{0.05, 0.1, 0.2, 0.3},
		TraitX:         []float64{0.07, 0.07, 0.08, 0.08},
	}
}

func TestPlotFilename(t *testing.T) {
	rec := params.Record{Row: 3, PopulationSize: 1000, TraitPrior: 0.05, Trait2Prior: 0.1, Link: 0.5, PayoffBonus: 1}
	assert.Equal(t, "output_1000_0.05_0.1_0.5_1_r3.svg", PlotFilename(rec))
}

func TestWritePlot(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePlot(&buf, sampleTrajectory()))

	svg := buf.String()
	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(svg), "</svg>"))
	assert.Equal(t, 2, strings.Count(svg, "<polyline"))
	assert.Contains(t, svg, "biased_mutation, N=100")
}

func TestWritePlot_SinglePoint(t *testing.T) {
	traj := sampleTrajectory()
	traj.TraitA = traj.TraitA[:1]
	traj.TraitX = traj.TraitX[:1]
	var buf bytes.Buffer
	require.NoError(t, WritePlot(&buf, traj))
	assert.NotContains(t, buf.String(), "NaN")
}

func TestWritePlotFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Output")
	rec := params.Record{Row: 1, PopulationSize: 100, TraitPrior: 0.05, Trait2Prior: 0.1, Link: 0.5, PayoffBonus: 1}

	name, err := WritePlotFile(dir, rec, sampleTrajectory())
	require.NoError(t, err)
	assert.Equal(t, PlotFilename(rec), name)

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Contains(t, string(data), "<polyline")
}

func TestSeries(t *testing.T) {
	pts := Series([]float64{0.1, 0.2})
	assert.Equal(t, []PlotPoint{{Generation: 1, Value: 0.1}, {Generation: 2, Value: 0.2}}, pts)
}

func TestWriteResults(t *testing.T) {
	results := []batch.Result{
		{
			RunID:      "run-1",
			Record:     params.Record{Row: 1, PopulationSize: 100, TraitPrior: 0.05, Trait2Prior: 0.1, Link: 0.5, PayoffBonus: 1},
			Trajectory: sampleTrajectory(),
			Filename:   "output_100_0.05_0.1_0.5_1_r1.svg",
		},
		{
			RunID:  "run-2",
			Record: params.Record{Row: 2, PopulationSize: 0},
			Err:    errors.New("row 2: invalid parameter"),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, results))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ResultsHeader, rows[0])
	assert.Equal(t, []string{
		"100", "0.05", "0.1", "0.5", "1", "output_100_0.05_0.1_0.5_1_r1.svg",
		"run-1", "biased_mutation", "5", "0.3000", "0.0800", "",
	}, rows[1])
	assert.Equal(t, "0", rows[2][0])
	assert.Equal(t, "", rows[2][7])
	assert.Equal(t, "row 2: invalid parameter", rows[2][11])
}

func TestWriteResultsFile(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteResultsFile(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ResultsFile), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(ResultsHeader, ",")+"\n", string(data))
}
