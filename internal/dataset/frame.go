package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Frame is a minimal named-column table backed by string cells, used at the
// CSV boundaries of the pipeline (processed data in, predictions out).
type Frame struct {
	Columns []string
	Rows    [][]string
}

// ReadCSV loads a CSV file into a Frame. The first record is the header.
func ReadCSV(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty file, expected a header row", path)
	}

	header := make([]string, len(records[0]))
	for i, c := range records[0] {
		header[i] = strings.TrimSpace(c)
	}

	return &Frame{Columns: header, Rows: records[1:]}, nil
}

// WriteCSV writes the frame to path, creating parent directories as needed.
func (f *Frame) WriteCSV(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write(f.Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := w.WriteAll(f.Rows); err != nil {
		return fmt.Errorf("writing rows: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return out.Close()
}

// Len returns the number of data rows.
func (f *Frame) Len() int {
	return len(f.Rows)
}

// ColumnIndex returns the position of a named column.
func (f *Frame) ColumnIndex(name string) (int, bool) {
	for i, c := range f.Columns {
		if c == name {
			return i, true
		}
	}
	return 0, false
}

// Floats parses a column as float64. Blank or unparseable cells are errors;
// use Matrix for predictor columns, where blank means zero.
func (f *Frame) Floats(name string) ([]float64, error) {
	idx, ok := f.ColumnIndex(name)
	if !ok {
		return nil, fmt.Errorf("column %q not found", name)
	}

	vals := make([]float64, len(f.Rows))
	for i, row := range f.Rows {
		if idx >= len(row) {
			return nil, fmt.Errorf("row %d: missing cell for column %q", i+1, name)
		}
		cell := strings.TrimSpace(row[idx])
		if cell == "" {
			return nil, fmt.Errorf("row %d: column %q is empty", i+1, name)
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing column %q: %w", i+1, name, err)
		}
		vals[i] = v
	}
	return vals, nil
}

// Matrix extracts the named columns, in order, as a numeric matrix. Blank
// cells become 0, matching the pipeline's zero-fill policy for predictors.
// A missing column or an unparseable non-blank cell is an error.
func (f *Frame) Matrix(names []string) ([][]float64, error) {
	indices := make([]int, len(names))
	for i, name := range names {
		idx, ok := f.ColumnIndex(name)
		if !ok {
			return nil, fmt.Errorf("column %q not found", name)
		}
		indices[i] = idx
	}

	matrix := make([][]float64, len(f.Rows))
	for r, row := range f.Rows {
		vec := make([]float64, len(names))
		for i, idx := range indices {
			if idx >= len(row) {
				return nil, fmt.Errorf("row %d: missing cell for column %q", r+1, names[i])
			}
			cell := strings.TrimSpace(row[idx])
			if cell == "" {
				continue // zero-fill
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: parsing column %q: %w", r+1, names[i], err)
			}
			vec[i] = v
		}
		matrix[r] = vec
	}
	return matrix, nil
}

// AppendColumn attaches a new column to the frame. The value count must
// match the row count and the name must not collide with an existing column.
func (f *Frame) AppendColumn(name string, values []string) error {
	if _, exists := f.ColumnIndex(name); exists {
		return fmt.Errorf("column %q already exists", name)
	}
	if len(values) != len(f.Rows) {
		return fmt.Errorf("column %q has %d values for %d rows", name, len(values), len(f.Rows))
	}
	f.Columns = append(f.Columns, name)
	for i := range f.Rows {
		f.Rows[i] = append(f.Rows[i], values[i])
	}
	return nil
}

// WritePredictors writes a predictor list, one name per line.
func WritePredictors(path string, predictors []string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	for _, p := range predictors {
		if _, err := fmt.Fprintln(w, p); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return out.Close()
}

// ReadPredictors reads a predictor list written by WritePredictors,
// preserving order and skipping blank lines.
func ReadPredictors(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var predictors []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			predictors = append(predictors, line)
		}
	}
	if len(predictors) == 0 {
		return nil, fmt.Errorf("%s: no predictors listed", path)
	}
	return predictors, nil
}
