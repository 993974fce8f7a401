package export

import (
	"io"

	"github.com/gocarina/gocsv"

	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
)

// PayoffRow is one point of a payoff curve
type PayoffRow struct {
	Spot   float64 `csv:"spot"`
	Payoff float64 `csv:"payoff"`
}

// TerminalSpotRow is the terminal spot of one simulated path
type TerminalSpotRow struct {
	Path int     `csv:"path"`
	Spot float64 `csv:"terminal_spot"`
}

// PathPointRow is one point of the simulated path matrix
type PathPointRow struct {
	Step int     `csv:"step"`
	Path int     `csv:"path"`
	Spot float64 `csv:"spot"`
}

// PayoffRows zips a spot grid with its payoff vector
func PayoffRows(grid, payoff []float64) ([]*PayoffRow, error) {
	if len(grid) != len(payoff) {
		return nil, errors.MismatchedGrid("grid has %d points but payoff has %d", len(grid), len(payoff))
	}
	rows := make([]*PayoffRow, len(grid))
	for i := range grid {
		rows[i] = &PayoffRow{Spot: grid[i], Payoff: payoff[i]}
	}
	return rows, nil
}

// WritePayoffCSV writes a spot,payoff table with a header row
func WritePayoffCSV(w io.Writer, grid, payoff []float64) error {
	rows, err := PayoffRows(grid, payoff)
	if err != nil {
		return err
	}
	return errors.Wrap(gocsv.Marshal(rows, w), "writing payoff csv")
}

// ReadPayoffCSV parses a table written by WritePayoffCSV
func ReadPayoffCSV(r io.Reader) ([]*PayoffRow, error) {
	var rows []*PayoffRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, errors.WithType(errors.Wrap(err, "reading payoff csv"), errors.ErrorTypeInvalidArgument)
	}
	return rows, nil
}

// WriteTerminalSpotsCSV writes one row per simulated path
func WriteTerminalSpotsCSV(w io.Writer, spots []float64) error {
	rows := make([]*TerminalSpotRow, len(spots))
	for i, s := range spots {
		rows[i] = &TerminalSpotRow{Path: i, Spot: s}
	}
	return errors.Wrap(gocsv.Marshal(rows, w), "writing terminal spots csv")
}

// WritePathsCSV writes a path matrix indexed [step][path] in long format
func WritePathsCSV(w io.Writer, matrix [][]float64) error {
	var rows []*PathPointRow
	for step, spots := range matrix {
		for path, s := range spots {
			rows = append(rows, &PathPointRow{Step: step, Path: path, Spot: s})
		}
	}
	return errors.Wrap(gocsv.Marshal(rows, w), "writing paths csv")
}
