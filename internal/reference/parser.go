package reference

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Curated reference TSV column names.
const (
	ColOrgan    = "Organ"
	ColContext  = "Context"
	ColCellType = "Cell Type/ Cell State"
	ColGenes    = "Gene name(s)"
	ColComment  = "Comment"
)

// DefaultContext is used when the caller does not specify a tissue context.
const DefaultContext = "healthy"

// ParseFile reads a curated per-species reference TSV and returns the
// reference for the requested organ and context. context defaults to
// DefaultContext when empty.
func ParseFile(path, organ, context string) (*Reference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference file: %w", err)
	}
	defer f.Close()
	return Parse(f, organ, context)
}

// Parse reads curated reference TSV content and returns the reference for
// the requested organ and context. Rows may list several genes in one cell,
// comma-separated; these are split into individual gene tokens.
func Parse(r io.Reader, organ, context string) (*Reference, error) {
	if context == "" {
		context = DefaultContext
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read reference header: %w", err)
		}
		return nil, fmt.Errorf("%w: reference input is empty", ErrReferenceParse)
	}

	header := strings.Split(scanner.Text(), "\t")
	organIdx, contextIdx, cellTypeIdx, genesIdx := -1, -1, -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case ColOrgan:
			organIdx = i
		case ColContext:
			contextIdx = i
		case ColCellType:
			cellTypeIdx = i
		case ColGenes:
			genesIdx = i
		}
	}
	if organIdx < 0 || contextIdx < 0 || cellTypeIdx < 0 || genesIdx < 0 {
		return nil, fmt.Errorf("%w: reference header is missing one of %q, %q, %q, %q",
			ErrReferenceParse, ColOrgan, ColContext, ColCellType, ColGenes)
	}

	ref := New()
	lineNumber := 1
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) <= cellTypeIdx || len(fields) <= genesIdx ||
			len(fields) <= organIdx || len(fields) <= contextIdx {
			return nil, fmt.Errorf("%w: line %d has %d fields", ErrReferenceParse, lineNumber, len(fields))
		}

		if fields[organIdx] != organ || fields[contextIdx] != context {
			continue
		}

		cellType := strings.TrimSpace(fields[cellTypeIdx])
		if cellType == "" {
			continue
		}
		for _, gene := range splitGenes(fields[genesIdx]) {
			ref.Add(cellType, gene)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read reference: %w", err)
	}

	if ref.Len() == 0 {
		return nil, fmt.Errorf("%w: no cell types found for organ %q, context %q", ErrReferenceParse, organ, context)
	}

	return ref, nil
}

// splitGenes splits a comma-separated gene cell into individual tokens.
func splitGenes(cell string) []string {
	var out []string
	for _, g := range strings.Split(cell, ",") {
		g = strings.TrimSpace(g)
		if g != "" {
			out = append(out, g)
		}
	}
	return out
}
