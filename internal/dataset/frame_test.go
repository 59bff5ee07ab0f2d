package dataset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_CSVRoundTrip(t *testing.T) {
	path := writeFile(t, t.TempDir(), "data.csv",
		"a,b\n1,x\n2,y\n")

	f, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, f.Columns)
	assert.Equal(t, 2, f.Len())

	out := filepath.Join(t.TempDir(), "nested", "out.csv")
	require.NoError(t, f.WriteCSV(out))

	got, err := ReadCSV(out)
	require.NoError(t, err)
	assert.Equal(t, f.Columns, got.Columns)
	assert.Equal(t, f.Rows, got.Rows)
}

func TestReadCSV_EmptyFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.csv", "")

	_, err := ReadCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header")
}

func TestFrame_Floats(t *testing.T) {
	f := &Frame{
		Columns: []string{"a", "b"},
		Rows:    [][]string{{"1.5", "x"}, {"2", "y"}},
	}

	vals, err := f.Floats("a")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2}, vals)

	_, err = f.Floats("missing")
	assert.Error(t, err)

	_, err = f.Floats("b")
	assert.Error(t, err, "non-numeric cells are errors")

	f.Rows[0][0] = ""
	_, err = f.Floats("a")
	assert.Error(t, err, "blank cells are errors, not zero")
}

func TestFrame_MatrixZeroFillsBlanks(t *testing.T) {
	f := &Frame{
		Columns: []string{"x1", "ignored", "x2"},
		Rows: [][]string{
			{"1", "z", "4"},
			{"", "z", "5"},
			{"3", "z", ""},
		},
	}

	m, err := f.Matrix([]string{"x1", "x2"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 4}, {0, 5}, {3, 0}}, m)

	_, err = f.Matrix([]string{"x1", "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestFrame_AppendColumn(t *testing.T) {
	f := &Frame{
		Columns: []string{"a"},
		Rows:    [][]string{{"1"}, {"2"}},
	}

	require.NoError(t, f.AppendColumn("b", []string{"x", "y"}))
	assert.Equal(t, []string{"a", "b"}, f.Columns)
	assert.Equal(t, []string{"2", "y"}, f.Rows[1])

	assert.Error(t, f.AppendColumn("b", []string{"p", "q"}), "duplicate name")
	assert.Error(t, f.AppendColumn("c", []string{"only one"}), "length mismatch")
}

func TestPredictors_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "predictors.txt")
	want := []string{"month", "lag_1", "lag_7"}

	require.NoError(t, WritePredictors(path, want))

	got, err := ReadPredictors(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReadPredictors_Empty(t *testing.T) {
	path := writeFile(t, t.TempDir(), "predictors.txt", "\n\n")

	_, err := ReadPredictors(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no predictors")
}
