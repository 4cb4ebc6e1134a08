// Package params reads the parameter table that drives a batch of runs.
// One row per run; the header names the columns.
package params

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Column names of the parameter table.
const (
	ColPopulation  = "n_agents"
	ColTraitPrior  = "trait_p"
	ColTrait2Prior = "trait_2_p"
	ColLink        = "link"
	ColPayoffBonus = "additional_payoff"
)

var requiredColumns = []string{ColPopulation, ColTraitPrior, ColTrait2Prior, ColLink, ColPayoffBonus}

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("missing column")

// Record is one row of the parameter table.
type Record struct {
	Row            int     `json:"row"` // 1-based data row number
	PopulationSize int     `json:"population_size"`
	TraitPrior     float64 `json:"trait_prob"`
	Trait2Prior    float64 `json:"trait_2_prob"`
	Link           float64 `json:"trait_link"`
	PayoffBonus    int     `json:"payoff_bonus"`
}

// RowError reports a row that could not be parsed.
type RowError struct {
	Row    int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("row %d column %s: %v", e.Row, e.Column, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Load reads a parameter table from a file.
func Load(path string) ([]Record, []*RowError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open parameter table: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses a parameter table. Malformed rows are returned as row errors
// alongside the valid records; only an unreadable header fails the table.
func Read(r io.Reader) ([]Record, []*RowError, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	var records []Record
	var rowErrs []*RowError
	for row := 1; ; row++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			rowErrs = append(rowErrs, &RowError{Row: row, Err: err})
			continue
		}
		if blank(fields) {
			row--
			continue
		}
		rec, rowErr := parseRow(row, fields, index)
		if rowErr != nil {
			rowErrs = append(rowErrs, rowErr)
			continue
		}
		records = append(records, rec)
	}
	return records, rowErrs, nil
}

func parseRow(row int, fields []string, index map[string]int) (Record, *RowError) {
	get := func(col string) (string, *RowError) {
		i := index[col]
		if i >= len(fields) {
			return "", &RowError{Row: row, Column: col, Err: errors.New("missing value")}
		}
		return strings.TrimSpace(fields[i]), nil
	}
	float := func(col string) (float64, *RowError) {
		s, rowErr := get(col)
		if rowErr != nil {
			return 0, rowErr
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, &RowError{Row: row, Column: col, Err: err}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, &RowError{Row: row, Column: col, Err: fmt.Errorf("%q is not a finite number", s)}
		}
		return v, nil
	}

	rec := Record{Row: row}

	// Sizes and bonuses are written as floats by some spreadsheet exports.
	n, rowErr := float(ColPopulation)
	if rowErr != nil {
		return rec, rowErr
	}
	rec.PopulationSize = int(n)

	if rec.TraitPrior, rowErr = float(ColTraitPrior); rowErr != nil {
		return rec, rowErr
	}
	if rec.Trait2Prior, rowErr = float(ColTrait2Prior); rowErr != nil {
		return rec, rowErr
	}
	if rec.Link, rowErr = float(ColLink); rowErr != nil {
		return rec, rowErr
	}
	bonus, rowErr := float(ColPayoffBonus)
	if rowErr != nil {
		return rec, rowErr
	}
	rec.PayoffBonus = int(bonus)
	return rec, nil
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
