// Package output provides tab-delimited result formatters.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lucasesbs/scorect/internal/assign"
	"github.com/lucasesbs/scorect/internal/score"
)

// MatrixWriter writes a cluster-by-cell-type matrix in tab-delimited
// format: one row per cluster, one column per cell type, both in stable
// sorted order.
type MatrixWriter struct {
	w *bufio.Writer
}

// NewMatrixWriter creates a matrix writer.
func NewMatrixWriter(w io.Writer) *MatrixWriter {
	return &MatrixWriter{w: bufio.NewWriter(w)}
}

// WriteMatrix writes the full matrix including its header row.
func (mw *MatrixWriter) WriteMatrix(m *score.Matrix) error {
	cellTypes := m.CellTypes()

	header := append([]string{"cluster"}, cellTypes...)
	if _, err := mw.w.WriteString(strings.Join(header, "\t") + "\n"); err != nil {
		return err
	}

	for _, cluster := range m.Clusters() {
		fields := make([]string, 0, len(cellTypes)+1)
		fields = append(fields, strconv.Itoa(cluster))
		for _, ct := range cellTypes {
			fields = append(fields, formatValue(m.Get(cluster, ct)))
		}
		if _, err := mw.w.WriteString(strings.Join(fields, "\t") + "\n"); err != nil {
			return err
		}
	}

	return mw.w.Flush()
}

// formatValue renders integral values without a decimal point and
// everything else with full precision.
func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// AssignmentWriter writes the per-cluster assignment table.
type AssignmentWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewAssignmentWriter creates an assignment writer.
func NewAssignmentWriter(w io.Writer) *AssignmentWriter {
	return &AssignmentWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"cluster",
			"cell_type",
			"pvalue",
			"score",
			"ambiguous",
		},
	}
}

// WriteHeader writes the header line.
func (aw *AssignmentWriter) WriteHeader() error {
	_, err := aw.w.WriteString(strings.Join(aw.columns, "\t") + "\n")
	return err
}

// WriteResult writes one row per cluster: the assigned cell type, its
// p-value and score (dashes for NA clusters), and whether the assignment
// survived a residual score-level tie.
func (aw *AssignmentWriter) WriteResult(result assign.Result, scores, pvals *score.Matrix) error {
	ambiguous := make(map[int]bool, len(result.Ambiguous))
	for _, cluster := range result.Ambiguous {
		ambiguous[cluster] = true
	}

	for _, cluster := range pvals.Clusters() {
		label := result.Labels[cluster]

		pval, sc := "-", "-"
		if label != assign.NA {
			pval = strconv.FormatFloat(pvals.Get(cluster, label), 'g', -1, 64)
			sc = formatValue(scores.Get(cluster, label))
		}

		row := []string{
			strconv.Itoa(cluster),
			label,
			pval,
			sc,
			fmt.Sprintf("%t", ambiguous[cluster]),
		}
		if _, err := aw.w.WriteString(strings.Join(row, "\t") + "\n"); err != nil {
			return err
		}
	}

	return nil
}

// Flush flushes buffered output.
func (aw *AssignmentWriter) Flush() error {
	return aw.w.Flush()
}
