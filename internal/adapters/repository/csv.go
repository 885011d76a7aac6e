package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Header is the column order of the CSV record layout.
var Header = []string{
	"team_id", "student_id", "name", "major", "role_pref",
	"O", "C", "E", "A", "N",
	"availability", "performance_score", "success_rate",
}

// WriteCSV writes the header followed by one line per row.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			r.TeamID, r.StudentID, r.Name, r.Major, r.RolePref,
			formatFloat(r.O), formatFloat(r.C), formatFloat(r.E), formatFloat(r.A), formatFloat(r.N),
			r.Availability, formatFloat(r.PerformanceScore), formatFloat(r.SuccessRate),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %s/%s: %w", r.TeamID, r.StudentID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses rows written by WriteCSV. The header must match exactly.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: missing header", ErrMalformedRecord)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	for i, col := range Header {
		if head[i] != col {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrMalformedRecord, i, head[i], col)
		}
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
		}
		row := Row{
			TeamID:       rec[0],
			StudentID:    rec[1],
			Name:         rec[2],
			Major:        rec[3],
			RolePref:     rec[4],
			Availability: rec[10],
		}
		floats := []*float64{&row.O, &row.C, &row.E, &row.A, &row.N}
		for i, dst := range floats {
			if *dst, err = strconv.ParseFloat(rec[5+i], 64); err != nil {
				return nil, fmt.Errorf("%w: line %d column %s: %w", ErrMalformedRecord, line, Header[5+i], err)
			}
		}
		if row.PerformanceScore, err = strconv.ParseFloat(rec[11], 64); err != nil {
			return nil, fmt.Errorf("%w: line %d column performance_score: %w", ErrMalformedRecord, line, err)
		}
		if row.SuccessRate, err = strconv.ParseFloat(rec[12], 64); err != nil {
			return nil, fmt.Errorf("%w: line %d column success_rate: %w", ErrMalformedRecord, line, err)
		}
		rows = append(rows, row)
	}
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
