package reference

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ParseUserFile reads a caller-provided marker file: one cell type per
// line, tab-separated from a comma-separated list of marker genes, no
// header. A reference built this way takes precedence over the curated and
// CellMarker sources.
func ParseUserFile(path string) (*Reference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open marker file: %w", err)
	}
	defer f.Close()
	return ParseUser(f)
}

// ParseUser reads caller-provided marker content.
func ParseUser(r io.Reader) (*Reference, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	sets := make(map[string][]string)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if line == "" {
			continue
		}
		cellType, genes, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, fmt.Errorf("%w: line %d has no tab separator", ErrReferenceParse, lineNumber)
		}
		cellType = strings.TrimSpace(cellType)
		if cellType == "" {
			return nil, fmt.Errorf("%w: line %d has an empty cell type", ErrReferenceParse, lineNumber)
		}
		sets[cellType] = append(sets[cellType], splitGenes(genes)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read marker file: %w", err)
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("%w: marker input is empty", ErrReferenceParse)
	}

	return FromSets(sets), nil
}
