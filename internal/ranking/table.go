// Package ranking builds the flat per-cluster ranked-gene table consumed by
// the scoring engine. The table is derived from the upstream differential
// expression ranking: one record per (cluster, rank position), rank 0 being
// the most discriminative gene for that cluster.
package ranking

import (
	"errors"
	"fmt"
	"sort"
)

// ErrMissingPrerequisite indicates the upstream clustering or gene ranking
// artifact is absent. The caller must rerun the upstream analysis; there is
// nothing to retry here.
var ErrMissingPrerequisite = errors.New("missing clustering or gene ranking result")

// Record is one ranked gene within a cluster.
type Record struct {
	Cluster   int
	Rank      int
	Gene      string
	ZScore    float64
	AdjPValue float64
}

// Table holds ranked-gene records grouped by cluster. Within a cluster,
// rank positions form a contiguous 0-based sequence in ranking order.
type Table struct {
	records   []Record
	byCluster map[int][]Record
}

// ClusterRanking holds the parallel ranking arrays for a single cluster as
// produced by the upstream differential expression step.
type ClusterRanking struct {
	Cluster  int
	Genes    []string
	ZScores  []float64
	AdjPVals []float64
}

// Source yields the upstream per-cluster ranking arrays.
type Source interface {
	Rankings() ([]ClusterRanking, error)
}

// Build normalizes the upstream ranking into a Table, truncating each
// cluster's ranking to the top topN entries. topN <= 0 keeps all entries.
func Build(src Source, topN int) (*Table, error) {
	rankings, err := src.Rankings()
	if err != nil {
		return nil, err
	}
	if len(rankings) == 0 {
		return nil, fmt.Errorf("%w: ranking source yielded no clusters", ErrMissingPrerequisite)
	}

	var records []Record
	for _, r := range rankings {
		if len(r.Genes) != len(r.ZScores) || len(r.Genes) != len(r.AdjPVals) {
			return nil, fmt.Errorf("cluster %d: ranking arrays have unequal lengths (%d genes, %d z-scores, %d p-values)",
				r.Cluster, len(r.Genes), len(r.ZScores), len(r.AdjPVals))
		}
		n := len(r.Genes)
		if topN > 0 && topN < n {
			n = topN
		}
		for i := 0; i < n; i++ {
			records = append(records, Record{
				Cluster:   r.Cluster,
				Rank:      i,
				Gene:      r.Genes[i],
				ZScore:    r.ZScores[i],
				AdjPValue: r.AdjPVals[i],
			})
		}
	}

	return NewTable(records)
}

// NewTable builds a Table from records and validates that rank positions
// within each cluster are contiguous and 0-based.
func NewTable(records []Record) (*Table, error) {
	byCluster := make(map[int][]Record)
	for _, rec := range records {
		byCluster[rec.Cluster] = append(byCluster[rec.Cluster], rec)
	}

	for cluster, recs := range byCluster {
		sort.Slice(recs, func(i, j int) bool { return recs[i].Rank < recs[j].Rank })
		for i, rec := range recs {
			if rec.Rank != i {
				return nil, fmt.Errorf("cluster %d: rank positions not contiguous (expected %d, got %d)", cluster, i, rec.Rank)
			}
		}
		byCluster[cluster] = recs
	}

	return &Table{records: records, byCluster: byCluster}, nil
}

// Len returns the total number of records across all clusters.
func (t *Table) Len() int { return len(t.records) }

// Records returns all records. The slice is shared; callers must not mutate it.
func (t *Table) Records() []Record { return t.records }

// Clusters returns the cluster ids in ascending order.
func (t *Table) Clusters() []int {
	out := make([]int, 0, len(t.byCluster))
	for c := range t.byCluster {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}

// ClusterRecords returns the records for one cluster in rank order.
func (t *Table) ClusterRecords(cluster int) []Record {
	return t.byCluster[cluster]
}

// NumMarkers returns the ranking depth, i.e. the largest number of ranked
// genes retained for any cluster.
func (t *Table) NumMarkers() int {
	max := 0
	for _, recs := range t.byCluster {
		if len(recs) > max {
			max = len(recs)
		}
	}
	return max
}

// WithGenes returns a copy of the table with the gene column replaced by
// genes, in record order. All other fields, including cluster grouping and
// rank positions, are preserved. Used by the permutation tester.
func (t *Table) WithGenes(genes []string) (*Table, error) {
	if len(genes) != len(t.records) {
		return nil, fmt.Errorf("gene column length %d does not match table length %d", len(genes), len(t.records))
	}
	records := make([]Record, len(t.records))
	copy(records, t.records)
	for i := range records {
		records[i].Gene = genes[i]
	}
	return NewTable(records)
}
