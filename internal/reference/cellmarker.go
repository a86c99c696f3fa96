package reference

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// CellMarker database dump (Zhang et al., NAR 2019).
const (
	CellMarkerURL      = "http://biocc.hrbmu.edu.cn/CellMarker/download/all_cell_markers.txt"
	CellMarkerFileName = "all_cell_markers.txt"
)

// CellMarker dump column names.
const (
	cmColSpecies  = "speciesType"
	cmColTissue   = "tissueType"
	cmColCellName = "cellName"
	cmColGenes    = "geneSymbol"
)

// geneToken matches runs of word characters; the dump decorates gene
// symbols with brackets and other punctuation that must be stripped.
var geneToken = regexp.MustCompile(`\w+`)

// ParseCellMarkerFile reads a CellMarker database dump and returns the
// reference for the requested species and tissue.
func ParseCellMarkerFile(path, species, tissue string) (*Reference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open CellMarker file: %w", err)
	}
	defer f.Close()
	return ParseCellMarker(f, species, tissue)
}

// ParseCellMarker reads CellMarker dump content (tab-delimited, one marker
// record per row) and returns the reference for the requested species and
// tissue. Gene symbol cells may hold several bracketed, comma-separated
// symbols; they are split on non-word characters.
func ParseCellMarker(r io.Reader, species, tissue string) (*Reference, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read CellMarker header: %w", err)
		}
		return nil, fmt.Errorf("%w: CellMarker input is empty", ErrReferenceParse)
	}

	header := strings.Split(scanner.Text(), "\t")
	speciesIdx, tissueIdx, cellNameIdx, genesIdx := -1, -1, -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case cmColSpecies:
			speciesIdx = i
		case cmColTissue:
			tissueIdx = i
		case cmColCellName:
			cellNameIdx = i
		case cmColGenes:
			genesIdx = i
		}
	}
	if speciesIdx < 0 || tissueIdx < 0 || cellNameIdx < 0 || genesIdx < 0 {
		return nil, fmt.Errorf("%w: CellMarker header is missing one of %q, %q, %q, %q",
			ErrReferenceParse, cmColSpecies, cmColTissue, cmColCellName, cmColGenes)
	}

	ref := New()
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) <= speciesIdx || len(fields) <= tissueIdx ||
			len(fields) <= cellNameIdx || len(fields) <= genesIdx {
			continue
		}
		if fields[speciesIdx] != species || fields[tissueIdx] != tissue {
			continue
		}

		cellName := strings.TrimSpace(fields[cellNameIdx])
		if cellName == "" {
			continue
		}
		for _, gene := range geneToken.FindAllString(fields[genesIdx], -1) {
			if strings.EqualFold(gene, "NA") {
				continue
			}
			ref.Add(cellName, gene)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read CellMarker: %w", err)
	}

	if ref.Len() == 0 {
		return nil, fmt.Errorf("%w: no cell types found for species %q, tissue %q", ErrReferenceParse, species, tissue)
	}

	return ref, nil
}
