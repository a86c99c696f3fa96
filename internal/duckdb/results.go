package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/lucasesbs/scorect/internal/assign"
	"github.com/lucasesbs/scorect/internal/score"
)

// ScoreRow is one persisted (cluster, cell type) result.
type ScoreRow struct {
	Cluster  int
	CellType string
	Score    float64
	PValue   float64
	NullMean float64
	NullSD   float64
}

// WriteScores batch-inserts the score and p-value matrices for a run using
// the Appender API. Null summary matrices may be nil, in which case zeros
// are stored.
func (s *Store) WriteScores(runID string, scores, pvals, nullMean, nullSD *score.Matrix) error {
	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "scorect_scores")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	get := func(m *score.Matrix, cluster int, ct string) float64 {
		if m == nil {
			return 0
		}
		return m.Get(cluster, ct)
	}

	for _, cluster := range scores.Clusters() {
		for _, ct := range scores.CellTypes() {
			if err := appender.AppendRow(
				runID, int32(cluster), ct,
				scores.Get(cluster, ct),
				get(pvals, cluster, ct),
				get(nullMean, cluster, ct),
				get(nullSD, cluster, ct),
			); err != nil {
				return fmt.Errorf("append score row: %w", err)
			}
		}
	}

	return appender.Flush()
}

// WriteAssignments inserts the per-cluster assignment for a run.
func (s *Store) WriteAssignments(runID string, result assign.Result) error {
	ambiguous := make(map[int]bool, len(result.Ambiguous))
	for _, cluster := range result.Ambiguous {
		ambiguous[cluster] = true
	}

	for cluster, cellType := range result.Labels {
		if _, err := s.db.Exec(
			`INSERT INTO scorect_assignments (run_id, cluster, cell_type, pval_threshold, ambiguous)
			 VALUES (?, ?, ?, ?, ?)`,
			runID, cluster, cellType, result.Threshold, ambiguous[cluster],
		); err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}
	}
	return nil
}

// Scores returns all persisted score rows for a run, ordered by cluster and
// cell type.
func (s *Store) Scores(runID string) ([]ScoreRow, error) {
	rows, err := s.db.Query(
		`SELECT cluster, cell_type, score, pvalue, null_mean, null_sd
		 FROM scorect_scores WHERE run_id=? ORDER BY cluster, cell_type`, runID)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	var out []ScoreRow
	for rows.Next() {
		var r ScoreRow
		if err := rows.Scan(&r.Cluster, &r.CellType, &r.Score, &r.PValue, &r.NullMean, &r.NullSD); err != nil {
			return nil, fmt.Errorf("scan score row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scores: %w", err)
	}
	return out, nil
}

// Assignments returns the persisted assignment for a run.
func (s *Store) Assignments(runID string) (assign.Result, error) {
	result := assign.Result{Labels: make(map[int]string)}

	rows, err := s.db.Query(
		`SELECT cluster, cell_type, pval_threshold, ambiguous
		 FROM scorect_assignments WHERE run_id=? ORDER BY cluster`, runID)
	if err != nil {
		return result, fmt.Errorf("query assignments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cluster int
		var cellType string
		var threshold float64
		var ambiguous bool
		if err := rows.Scan(&cluster, &cellType, &threshold, &ambiguous); err != nil {
			return result, fmt.Errorf("scan assignment: %w", err)
		}
		result.Labels[cluster] = cellType
		result.Threshold = threshold
		if ambiguous {
			result.Ambiguous = append(result.Ambiguous, cluster)
		}
	}
	if err := rows.Err(); err != nil {
		return result, fmt.Errorf("iterate assignments: %w", err)
	}
	return result, nil
}
