// Package report writes run artifacts: a trajectory plot per run and the
// results table for a batch.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/talgya/mini-culture/internal/engine"
	"github.com/talgya/mini-culture/internal/params"
)

// Plot geometry, in SVG user units.
const (
	plotWidth    = 640
	plotHeight   = 480
	plotMargin   = 48
	colorTraitA  = "#1f77b4"
	colorTrait2X = "#ff7f0e"
)

// PlotPoint is one sample of a series.
type PlotPoint struct {
	Generation int
	Value      float64
}

// Series converts a frequency history into plot points; index 0 is
// generation 1.
func Series(history []float64) []PlotPoint {
	points := make([]PlotPoint, len(history))
	for i, v := range history {
		points[i] = PlotPoint{Generation: i + 1, Value: v}
	}
	return points
}

// PlotFilename names the plot of one parameter row.
func PlotFilename(rec params.Record) string {
	return fmt.Sprintf("output_%d_%s_%s_%s_%d_r%d.svg",
		rec.PopulationSize,
		formatFloat(rec.TraitPrior),
		formatFloat(rec.Trait2Prior),
		formatFloat(rec.Link),
		rec.PayoffBonus,
		rec.Row,
	)
}

// WritePlotFile writes the trajectory plot into dir and returns the file name.
func WritePlotFile(dir string, rec params.Record, traj *engine.Trajectory) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	name := PlotFilename(rec)
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("create plot: %w", err)
	}
	if err := WritePlot(f, traj); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close plot: %w", err)
	}
	return name, nil
}

// WritePlot renders both frequency series on a fixed [0, 1] y-axis.
func WritePlot(w io.Writer, traj *engine.Trajectory) error {
	bw := bufio.NewWriter(w)

	innerW := float64(plotWidth - 2*plotMargin)
	innerH := float64(plotHeight - 2*plotMargin)
	span := len(traj.TraitA) - 1
	if span < 1 {
		span = 1
	}
	x := func(i int) float64 { return plotMargin + innerW*float64(i)/float64(span) }
	y := func(v float64) float64 { return plotMargin + innerH*(1-v) }

	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		plotWidth, plotHeight, plotWidth, plotHeight)
	fmt.Fprintf(bw, `<title>%s, N=%d</title>`+"\n", traj.Strategy, traj.PopulationSize)
	fmt.Fprintf(bw, `<rect width="%d" height="%d" fill="white"/>`+"\n", plotWidth, plotHeight)

	// Axes and y ticks.
	fmt.Fprintln(bw, `<g stroke="black" stroke-width="1" fill="none">`)
	fmt.Fprintf(bw, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>`+"\n", x(0), y(0), x(span), y(0))
	fmt.Fprintf(bw, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>`+"\n", x(0), y(0), x(0), y(1))
	fmt.Fprintln(bw, `</g>`)
	fmt.Fprintln(bw, `<g font-family="sans-serif" font-size="11" text-anchor="end">`)
	for _, v := range []float64{0, 0.2, 0.4, 0.6, 0.8, 1} {
		fmt.Fprintf(bw, `<text x="%.1f" y="%.1f">%.1f</text>`+"\n", x(0)-6, y(v)+4, v)
	}
	fmt.Fprintln(bw, `</g>`)

	for _, s := range []struct {
		values []float64
		color  string
		label  string
	}{
		{traj.TraitA, colorTraitA, "trait A"},
		{traj.TraitX, colorTrait2X, "trait 2 X"},
	} {
		var pts strings.Builder
		for i, p := range Series(s.values) {
			if i > 0 {
				pts.WriteByte(' ')
			}
			fmt.Fprintf(&pts, "%.2f,%.2f", x(p.Generation-1), y(clamp(p.Value)))
		}
		fmt.Fprintf(bw, `<polyline fill="none" stroke="%s" stroke-width="1.5" points="%s"><title>%s</title></polyline>`+"\n",
			s.color, pts.String(), s.label)
	}

	fmt.Fprintln(bw, `</svg>`)
	return bw.Flush()
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
