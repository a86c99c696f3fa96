// Package dataset reads and writes the per-cell observation table. The
// table carries one row per cell with a clustering-label column; scorect
// writes the resolved cell-type label back as a new column.
package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LabelColumn is the column name under which assigned cell types are
// written back to the observation table.
const LabelColumn = "scorect"

// Cells is a per-cell observation table keyed by row order. Rows are kept
// verbatim so unknown columns pass through the write-back untouched.
type Cells struct {
	header   []string
	rows     [][]string
	clusters []int
}

// Load reads a tab-delimited observation table and resolves the clustering
// label column clusterCol, which must hold integer cluster ids.
func Load(path, clusterCol string) (*Cells, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cells file: %w", err)
	}
	defer f.Close()
	return Read(f, clusterCol)
}

// Read parses observation table content.
func Read(r io.Reader, clusterCol string) (*Cells, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read cells header: %w", err)
		}
		return nil, fmt.Errorf("cells input is empty")
	}

	header := strings.Split(scanner.Text(), "\t")
	clusterIdx := -1
	for i, name := range header {
		if strings.TrimSpace(name) == clusterCol {
			clusterIdx = i
		}
	}
	if clusterIdx < 0 {
		return nil, fmt.Errorf("cells header is missing clustering column %q", clusterCol)
	}

	c := &Cells{header: header}
	lineNumber := 1
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) <= clusterIdx {
			return nil, fmt.Errorf("line %d: row has %d fields, clustering column needs index %d", lineNumber, len(fields), clusterIdx)
		}
		cluster, err := strconv.Atoi(fields[clusterIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid cluster id %q: %w", lineNumber, fields[clusterIdx], err)
		}
		c.rows = append(c.rows, fields)
		c.clusters = append(c.clusters, cluster)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read cells: %w", err)
	}

	return c, nil
}

// Len returns the number of cells.
func (c *Cells) Len() int { return len(c.rows) }

// Clusters returns the per-cell cluster ids in row order. The slice is
// shared; callers must not mutate it.
func (c *Cells) Clusters() []int { return c.clusters }

// WriteLabeled writes the table back out with labels appended as the
// LabelColumn column, one label per cell in row order.
func (c *Cells) WriteLabeled(w io.Writer, labels []string) error {
	if len(labels) != len(c.rows) {
		return fmt.Errorf("have %d labels for %d cells", len(labels), len(c.rows))
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(c.header, "\t") + "\t" + LabelColumn + "\n"); err != nil {
		return err
	}
	for i, row := range c.rows {
		if _, err := bw.WriteString(strings.Join(row, "\t") + "\t" + labels[i] + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
