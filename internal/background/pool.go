// Package background provides the background gene pool used by the
// permutation tester: the universe of candidate gene symbols for an
// organism from which randomized rankings are drawn.
package background

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
)

// ErrInvalidBackgroundPool indicates an empty or unusable background gene
// pool. This is a configuration error, surfaced before any permutation work
// begins.
var ErrInvalidBackgroundPool = errors.New("invalid background gene pool")

// Pool is an immutable set of candidate gene symbols for one organism.
type Pool struct {
	genes []string
}

// NewPool builds a pool from genes. Blank entries are dropped; the pool
// must end up non-empty.
func NewPool(genes []string) (*Pool, error) {
	kept := make([]string, 0, len(genes))
	for _, g := range genes {
		g = strings.TrimSpace(g)
		if g != "" {
			kept = append(kept, g)
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: no gene symbols", ErrInvalidBackgroundPool)
	}
	return &Pool{genes: kept}, nil
}

// LoadFile reads a background gene list file: one gene symbol per line,
// with a single header line that is skipped.
func LoadFile(path string) (*Pool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open background gene file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses background gene list content. The first line is a header.
func Read(r io.Reader) (*Pool, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	// Skip header
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read background gene list: %w", err)
		}
		return nil, fmt.Errorf("%w: input is empty", ErrInvalidBackgroundPool)
	}

	var genes []string
	for scanner.Scan() {
		genes = append(genes, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read background gene list: %w", err)
	}

	return NewPool(genes)
}

// Len returns the number of genes in the pool.
func (p *Pool) Len() int { return len(p.genes) }

// Sample draws one gene uniformly with replacement using rng.
func (p *Pool) Sample(rng *rand.Rand) string {
	return p.genes[rng.Intn(len(p.genes))]
}

// SampleN draws n genes uniformly with replacement using rng.
func (p *Pool) SampleN(rng *rand.Rand, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = p.genes[rng.Intn(len(p.genes))]
	}
	return out
}
