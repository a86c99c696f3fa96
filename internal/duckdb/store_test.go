package duckdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasesbs/scorect/internal/assign"
	"github.com/lucasesbs/scorect/internal/score"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
}

func TestWriteAndReadScores(t *testing.T) {
	s := openInMemory(t)

	scores := score.NewMatrix()
	scores.Set(0, "Astrocyte", 15)
	scores.Set(0, "Neuron", 2)
	scores.Set(1, "Astrocyte", 1)
	scores.Set(1, "Neuron", 12)

	pvals := score.NewMatrix()
	pvals.Set(0, "Astrocyte", 0.01)
	pvals.Set(0, "Neuron", 0.7)
	pvals.Set(1, "Astrocyte", 0.9)
	pvals.Set(1, "Neuron", 0.02)

	nullMean := score.NewMatrix()
	nullMean.Set(0, "Astrocyte", 2.4)

	require.NoError(t, s.WriteScores("run1", scores, pvals, nullMean, nil))

	rows, err := s.Scores("run1")
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, ScoreRow{Cluster: 0, CellType: "Astrocyte", Score: 15, PValue: 0.01, NullMean: 2.4}, rows[0])
	assert.Equal(t, "Neuron", rows[3].CellType)
	assert.Equal(t, 0.02, rows[3].PValue)

	// Unknown run yields nothing
	rows, err = s.Scores("run2")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWriteAndReadAssignments(t *testing.T) {
	s := openInMemory(t)

	in := assign.Result{
		Labels:    map[int]string{0: "Astrocyte", 1: assign.NA, 2: "Alpha"},
		Threshold: 0.1,
		Ambiguous: []int{2},
	}
	require.NoError(t, s.WriteAssignments("run1", in))

	out, err := s.Assignments("run1")
	require.NoError(t, err)

	assert.Equal(t, in.Labels, out.Labels)
	assert.Equal(t, 0.1, out.Threshold)
	assert.Equal(t, []int{2}, out.Ambiguous)
}

func TestMultipleRuns(t *testing.T) {
	s := openInMemory(t)

	scores := score.NewMatrix()
	scores.Set(0, "A", 1)
	pvals := score.NewMatrix()
	pvals.Set(0, "A", 0.5)

	require.NoError(t, s.WriteScores("run1", scores, pvals, nil, nil))
	require.NoError(t, s.WriteScores("run2", scores, pvals, nil, nil))

	rows, err := s.Scores("run1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
