package score

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/lucasesbs/scorect/internal/ranking"
	"github.com/lucasesbs/scorect/internal/reference"
)

// Config holds the binned scoring parameters.
type Config struct {
	// NBMarker is the total number of ranked markers retained per cluster.
	NBMarker int
	// BinSize is the number of consecutive rank positions per bin.
	BinSize int
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.NBMarker <= 0 {
		return fmt.Errorf("nb_marker must be > 0, got %d", c.NBMarker)
	}
	if c.BinSize <= 0 {
		return fmt.Errorf("bin_size must be > 0, got %d", c.BinSize)
	}
	if c.NBMarker < c.BinSize {
		return fmt.Errorf("nb_marker (%d) must be >= bin_size (%d)", c.NBMarker, c.BinSize)
	}
	return nil
}

// NumBins returns the number of full bins. Rank positions past the last
// full bin are excluded from scoring.
func (c Config) NumBins() int {
	return c.NBMarker / c.BinSize
}

// Scorer computes bin-weighted marker-overlap scores.
type Scorer struct {
	cfg    Config
	logger *zap.Logger
}

// NewScorer creates a scorer with the given configuration.
func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg, logger: zap.NewNop()}, nil
}

// SetLogger sets the logger for progress and warning messages.
func (s *Scorer) SetLogger(l *zap.Logger) {
	s.logger = l
}

// Config returns the scoring configuration.
func (s *Scorer) Config() Config { return s.cfg }

// Score computes the observed score matrix for a ranked-gene table against
// a marker reference.
//
// For each cluster, the ranked records are partitioned into NumBins
// contiguous bins of BinSize consecutive rank positions, earliest bin
// first. Bin k carries weight NumBins-k, so the most discriminative genes
// weigh the most. A cell type's score for a cluster is the sum over bins of
// weight times the overlap cardinality between the bin's genes and the cell
// type's marker set. Scoring is deterministic; there is no randomness at
// this layer.
func (s *Scorer) Score(t *ranking.Table, ref *reference.Reference) *Matrix {
	numBins := s.cfg.NumBins()
	cellTypes := ref.CellTypes()
	matrix := NewMatrix()

	for _, cluster := range t.Clusters() {
		records := t.ClusterRecords(cluster)

		// Every (cluster, cell type) pair is present in the output, so a
		// cell type with an empty marker set reports score 0 rather than
		// a missing entry.
		for _, ct := range cellTypes {
			matrix.Set(cluster, ct, 0)
		}

		for k := 0; k < numBins; k++ {
			lo := k * s.cfg.BinSize
			if lo >= len(records) {
				break
			}
			hi := lo + s.cfg.BinSize
			if hi > len(records) {
				hi = len(records)
			}

			binGenes := make(map[string]struct{}, hi-lo)
			for _, rec := range records[lo:hi] {
				binGenes[rec.Gene] = struct{}{}
			}
			weight := float64(numBins - k)

			for _, ct := range cellTypes {
				overlap := intersectionSize(binGenes, ref.Markers(ct))
				if overlap > 0 {
					matrix.Add(cluster, ct, weight*float64(overlap))
				}
			}
		}
	}

	s.logger.Debug("scored ranked table",
		zap.Int("clusters", len(t.Clusters())),
		zap.Int("cell_types", len(cellTypes)),
		zap.Int("bins", numBins))

	return matrix
}

// intersectionSize counts common keys, iterating the smaller set.
func intersectionSize(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
