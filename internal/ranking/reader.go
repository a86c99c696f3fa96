package ranking

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Ranked-genes TSV column names.
const (
	ColCluster   = "cluster"
	ColRank      = "rank"
	ColGene      = "gene"
	ColZScore    = "z_score"
	ColAdjPValue = "adj_pval"
)

// columnIndices holds the indices of the required ranked-genes columns.
type columnIndices struct {
	Cluster   int
	Rank      int
	Gene      int
	ZScore    int
	AdjPValue int
}

// LoadFile reads a ranked-genes TSV file into a Table. Supports plain and
// gzipped (.tsv.gz) files. The file must carry a header line naming the
// cluster, rank, gene, z_score and adj_pval columns in any order.
//
// A missing file is treated as a missing upstream artifact and reported
// with ErrMissingPrerequisite.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: ranked genes file %s not found", ErrMissingPrerequisite, path)
		}
		return nil, fmt.Errorf("open ranked genes file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f

	// Check for gzip magic bytes
	buf := make([]byte, 2)
	if _, err := io.ReadFull(f, buf); err == nil && buf[0] == 0x1f && buf[1] == 0x8b {
		if _, err := f.Seek(0, 0); err != nil {
			return nil, fmt.Errorf("seek ranked genes file: %w", err)
		}
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	} else {
		if _, err := f.Seek(0, 0); err != nil {
			return nil, fmt.Errorf("seek ranked genes file: %w", err)
		}
	}

	return Read(r)
}

// Read parses ranked-genes TSV content into a Table.
func Read(r io.Reader) (*Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		return nil, fmt.Errorf("%w: ranked genes input is empty", ErrMissingPrerequisite)
	}

	cols, err := resolveColumns(scanner.Text())
	if err != nil {
		return nil, err
	}

	var records []Record
	lineNumber := 1
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")

		rec, err := parseRecord(fields, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNumber, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ranked genes: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: ranked genes input has no data rows", ErrMissingPrerequisite)
	}

	return NewTable(records)
}

func resolveColumns(header string) (columnIndices, error) {
	cols := columnIndices{Cluster: -1, Rank: -1, Gene: -1, ZScore: -1, AdjPValue: -1}
	for i, name := range strings.Split(header, "\t") {
		switch strings.TrimSpace(name) {
		case ColCluster:
			cols.Cluster = i
		case ColRank:
			cols.Rank = i
		case ColGene:
			cols.Gene = i
		case ColZScore:
			cols.ZScore = i
		case ColAdjPValue:
			cols.AdjPValue = i
		}
	}
	for name, idx := range map[string]int{
		ColCluster:   cols.Cluster,
		ColRank:      cols.Rank,
		ColGene:      cols.Gene,
		ColZScore:    cols.ZScore,
		ColAdjPValue: cols.AdjPValue,
	} {
		if idx < 0 {
			return cols, fmt.Errorf("ranked genes header is missing required column %q", name)
		}
	}
	return cols, nil
}

func parseRecord(fields []string, cols columnIndices) (Record, error) {
	var rec Record

	for name, idx := range map[string]int{
		ColCluster:   cols.Cluster,
		ColRank:      cols.Rank,
		ColGene:      cols.Gene,
		ColZScore:    cols.ZScore,
		ColAdjPValue: cols.AdjPValue,
	} {
		if idx >= len(fields) {
			return rec, fmt.Errorf("row has %d fields, column %q needs index %d", len(fields), name, idx)
		}
	}

	cluster, err := strconv.Atoi(fields[cols.Cluster])
	if err != nil {
		return rec, fmt.Errorf("invalid cluster id %q: %w", fields[cols.Cluster], err)
	}
	rank, err := strconv.Atoi(fields[cols.Rank])
	if err != nil {
		return rec, fmt.Errorf("invalid rank %q: %w", fields[cols.Rank], err)
	}
	if rank < 0 {
		return rec, fmt.Errorf("negative rank %d", rank)
	}
	zscore, err := strconv.ParseFloat(fields[cols.ZScore], 64)
	if err != nil {
		return rec, fmt.Errorf("invalid z-score %q: %w", fields[cols.ZScore], err)
	}
	adjp, err := strconv.ParseFloat(fields[cols.AdjPValue], 64)
	if err != nil {
		return rec, fmt.Errorf("invalid adjusted p-value %q: %w", fields[cols.AdjPValue], err)
	}

	gene := strings.TrimSpace(fields[cols.Gene])
	if gene == "" {
		return rec, fmt.Errorf("empty gene symbol")
	}

	return Record{
		Cluster:   cluster,
		Rank:      rank,
		Gene:      gene,
		ZScore:    zscore,
		AdjPValue: adjp,
	}, nil
}
