// Package assign resolves the best-supported cell type per cluster from the
// score and p-value matrices, and broadcasts cluster labels to individual
// cells.
package assign

import (
	"sort"

	"github.com/lucasesbs/scorect/internal/score"
)

// NA is assigned to clusters where no cell type is significantly enriched.
const NA = "NA"

// DefaultThreshold is the default p-value threshold for NA assignment.
const DefaultThreshold = 0.1

// Result holds the per-cluster cell-type assignment and the threshold it
// was computed with. The threshold is a pure post-hoc parameter: Resolve
// may be rerun with a different threshold without rescoring.
type Result struct {
	// Labels maps cluster id to the assigned cell type, or NA.
	Labels map[int]string
	// Threshold is the p-value cutoff used for this resolution.
	Threshold float64
	// Ambiguous lists clusters whose assignment survived a residual tie
	// at the score level after the p-value tie-break. Such ties indicate
	// insufficient discriminating power and are reported, not hidden;
	// the lexicographically smallest cell-type id wins deterministically.
	Ambiguous []int
}

// Resolve picks the best-supported cell type for each cluster.
//
// Per cluster: if the minimum p-value exceeds threshold (strictly), the
// cluster is NA. Otherwise, among cell types tied at the minimum p-value,
// the one with the highest raw score wins; p-value resolution is capped at
// 1/K, so near-ties in significance are disambiguated by the finer-grained
// overlap score.
func Resolve(scores, pvals *score.Matrix, threshold float64) Result {
	result := Result{
		Labels:    make(map[int]string),
		Threshold: threshold,
	}

	for _, cluster := range pvals.Clusters() {
		label, ambiguous := resolveCluster(scores, pvals, cluster, threshold)
		result.Labels[cluster] = label
		if ambiguous {
			result.Ambiguous = append(result.Ambiguous, cluster)
		}
	}
	sort.Ints(result.Ambiguous)

	return result
}

func resolveCluster(scores, pvals *score.Matrix, cluster int, threshold float64) (label string, ambiguous bool) {
	row := pvals.ClusterValues(cluster)
	if len(row) == 0 {
		return NA, false
	}

	minP := 0.0
	first := true
	for _, p := range row {
		if first || p < minP {
			minP = p
			first = false
		}
	}

	if minP > threshold {
		return NA, false
	}

	var tied []string
	for ct, p := range row {
		if p == minP {
			tied = append(tied, ct)
		}
	}
	if len(tied) == 1 {
		return tied[0], false
	}

	// Tie at the minimum p-value: fall back to the raw score.
	maxScore := 0.0
	first = true
	for _, ct := range tied {
		sc := scores.Get(cluster, ct)
		if first || sc > maxScore {
			maxScore = sc
			first = false
		}
	}

	var best []string
	for _, ct := range tied {
		if scores.Get(cluster, ct) == maxScore {
			best = append(best, ct)
		}
	}
	sort.Strings(best)

	return best[0], len(best) > 1
}

// Broadcast maps per-cell cluster ids to per-cell type labels using the
// resolved assignment. Cells in clusters absent from the assignment get NA.
// This is the single side-effecting hand-off to the caller's dataset; the
// resolver itself never mutates shared state.
func Broadcast(result Result, cellClusters []int) []string {
	labels := make([]string, len(cellClusters))
	for i, cluster := range cellClusters {
		label, ok := result.Labels[cluster]
		if !ok {
			label = NA
		}
		labels[i] = label
	}
	return labels
}
