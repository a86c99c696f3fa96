// Package score implements the bin-weighted marker-overlap scoring engine
// and the permutation test that estimates the significance of each
// (cluster, cell type) score against randomized gene labels.
package score

import "sort"

// Matrix is a two-level keyed value store: cluster id to cell-type id to
// value. It backs both the observed score matrix and the empirical p-value
// matrix. Key iteration helpers return stable sorted orders so reports are
// reproducible.
type Matrix struct {
	values map[int]map[string]float64
}

// NewMatrix returns an empty matrix.
func NewMatrix() *Matrix {
	return &Matrix{values: make(map[int]map[string]float64)}
}

func (m *Matrix) row(cluster int) map[string]float64 {
	r, ok := m.values[cluster]
	if !ok {
		r = make(map[string]float64)
		m.values[cluster] = r
	}
	return r
}

// Set stores value for (cluster, cellType).
func (m *Matrix) Set(cluster int, cellType string, value float64) {
	m.row(cluster)[cellType] = value
}

// Add increments the value for (cluster, cellType) by delta, treating a
// missing entry as 0.
func (m *Matrix) Add(cluster int, cellType string, delta float64) {
	m.row(cluster)[cellType] += delta
}

// Get returns the value for (cluster, cellType), or 0 if unset.
func (m *Matrix) Get(cluster int, cellType string) float64 {
	return m.values[cluster][cellType]
}

// Has reports whether (cluster, cellType) was explicitly set.
func (m *Matrix) Has(cluster int, cellType string) bool {
	_, ok := m.values[cluster][cellType]
	return ok
}

// Clusters returns the cluster ids in ascending order.
func (m *Matrix) Clusters() []int {
	out := make([]int, 0, len(m.values))
	for c := range m.values {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}

// CellTypes returns the union of cell-type ids across all clusters in
// lexicographic order.
func (m *Matrix) CellTypes() []string {
	seen := make(map[string]struct{})
	for _, row := range m.values {
		for ct := range row {
			seen[ct] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for ct := range seen {
		out = append(out, ct)
	}
	sort.Strings(out)
	return out
}

// ClusterValues returns the cell-type to value mapping for one cluster.
// The map is shared; callers must not mutate it.
func (m *Matrix) ClusterValues(cluster int) map[string]float64 {
	return m.values[cluster]
}
