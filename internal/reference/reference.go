// Package reference provides curated cell-type marker references. A
// reference maps a cell-type identifier to the set of marker gene symbols
// characteristic of that cell type. References can be parsed from the
// curated per-species TSV files shipped with scorect, from a CellMarker
// database dump, or supplied directly by the caller as a pre-built mapping.
package reference

import (
	"errors"
	"sort"
)

// ErrReferenceParse indicates a malformed or empty reference source.
var ErrReferenceParse = errors.New("malformed reference")

// Reference maps cell-type ids to deduplicated marker gene sets.
type Reference struct {
	markers map[string]map[string]struct{}
}

// New returns an empty reference.
func New() *Reference {
	return &Reference{markers: make(map[string]map[string]struct{})}
}

// FromSets builds a reference from a caller-supplied cell-type to gene-list
// mapping. Duplicate genes are collapsed; gene case is kept as provided.
// A caller-supplied reference takes precedence over any file-based source.
func FromSets(sets map[string][]string) *Reference {
	r := New()
	for cellType, genes := range sets {
		r.ensure(cellType)
		for _, g := range genes {
			r.Add(cellType, g)
		}
	}
	return r
}

func (r *Reference) ensure(cellType string) {
	if _, ok := r.markers[cellType]; !ok {
		r.markers[cellType] = make(map[string]struct{})
	}
}

// Add records gene as a marker for cellType. Empty gene symbols are ignored
// but still register the cell type, so a cell type with no usable markers
// scores 0 everywhere rather than disappearing from the output.
func (r *Reference) Add(cellType, gene string) {
	r.ensure(cellType)
	if gene == "" {
		return
	}
	r.markers[cellType][gene] = struct{}{}
}

// CellTypes returns the cell-type ids in lexicographic order.
func (r *Reference) CellTypes() []string {
	out := make([]string, 0, len(r.markers))
	for ct := range r.markers {
		out = append(out, ct)
	}
	sort.Strings(out)
	return out
}

// Markers returns the marker gene set for cellType. The map is shared;
// callers must not mutate it.
func (r *Reference) Markers(cellType string) map[string]struct{} {
	return r.markers[cellType]
}

// Len returns the number of cell types in the reference.
func (r *Reference) Len() int { return len(r.markers) }
