package score

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasesbs/scorect/internal/background"
	"github.com/lucasesbs/scorect/internal/ranking"
	"github.com/lucasesbs/scorect/internal/reference"
)

func makePool(t *testing.T, genes ...string) *background.Pool {
	t.Helper()
	pool, err := background.NewPool(genes)
	require.NoError(t, err)
	return pool
}

func TestPermutationTestBounds(t *testing.T) {
	table := makeTable(t, 0, 40)
	scorer, err := NewScorer(Config{NBMarker: 40, BinSize: 10})
	require.NoError(t, err)

	ref := reference.FromSets(map[string][]string{
		"A": {"g0", "g1"},
		"B": {"zz1", "zz2"},
	})
	// Pool mixes table genes and outsiders so permuted scores vary.
	pool := makePool(t, "g0", "g1", "zz1", "x1", "x2", "x3")

	observed := scorer.Score(table, ref)
	res, err := scorer.PermutationTest(context.Background(), table, ref, pool, observed, PermutationConfig{
		Iterations: 50,
		Workers:    4,
		Seed:       11,
	})
	require.NoError(t, err)
	assert.Equal(t, 50, res.Iterations)

	for _, cluster := range res.PValues.Clusters() {
		for ct, p := range res.PValues.ClusterValues(cluster) {
			assert.GreaterOrEqual(t, p, 0.0, "%s", ct)
			assert.LessOrEqual(t, p, 1.0, "%s", ct)

			// With K=50, p-values land on multiples of 1/50.
			scaled := p * 50
			assert.InDelta(t, math.Round(scaled), scaled, 1e-9, "%s: p=%v is finer than 1/K", ct, p)
		}
	}
}

func TestPermutationTestExtremes(t *testing.T) {
	table := makeTable(t, 0, 40)
	scorer, err := NewScorer(Config{NBMarker: 40, BinSize: 10})
	require.NoError(t, err)

	ref := reference.FromSets(map[string][]string{
		"Matched": {"g0", "g1", "g2"},
		"Absent":  {"nope"},
	})
	// No pool gene ever overlaps a marker, so every permuted score is 0.
	pool := makePool(t, "x1", "x2", "x3")

	observed := scorer.Score(table, ref)
	require.Greater(t, observed.Get(0, "Matched"), 0.0)

	res, err := scorer.PermutationTest(context.Background(), table, ref, pool, observed, PermutationConfig{
		Iterations: 50,
		Workers:    2,
		Seed:       1,
	})
	require.NoError(t, err)

	// Observed positive score never matched by random labels: p = 0.
	assert.Equal(t, 0.0, res.PValues.Get(0, "Matched"))
	// Observed 0 is always met (0 >= 0): p = 1.
	assert.Equal(t, 1.0, res.PValues.Get(0, "Absent"))

	// Null distribution is identically zero here.
	assert.Equal(t, 0.0, res.NullMean.Get(0, "Matched"))
	assert.Equal(t, 0.0, res.NullSD.Get(0, "Matched"))
}

func TestPermutationTestSeedReproducible(t *testing.T) {
	table := makeTable(t, 0, 40)
	scorer, err := NewScorer(Config{NBMarker: 40, BinSize: 10})
	require.NoError(t, err)

	ref := reference.FromSets(map[string][]string{
		"A": {"g0", "g5", "g15"},
	})
	pool := makePool(t, "g0", "g5", "g15", "x1", "x2", "x3", "x4", "x5")

	observed := scorer.Score(table, ref)
	cfg := PermutationConfig{Iterations: 100, Workers: 3, Seed: 42}

	first, err := scorer.PermutationTest(context.Background(), table, ref, pool, observed, cfg)
	require.NoError(t, err)
	second, err := scorer.PermutationTest(context.Background(), table, ref, pool, observed, cfg)
	require.NoError(t, err)

	for _, cluster := range first.PValues.Clusters() {
		for ct, p := range first.PValues.ClusterValues(cluster) {
			assert.Equal(t, p, second.PValues.Get(cluster, ct))
		}
	}
}

func TestPermutationTestPerCluster(t *testing.T) {
	records := []ranking.Record{
		{Cluster: 0, Rank: 0, Gene: "a0"},
		{Cluster: 0, Rank: 1, Gene: "a1"},
		{Cluster: 1, Rank: 0, Gene: "b0"},
		{Cluster: 1, Rank: 1, Gene: "b1"},
	}
	table, err := ranking.NewTable(records)
	require.NoError(t, err)

	scorer, err := NewScorer(Config{NBMarker: 2, BinSize: 1})
	require.NoError(t, err)

	ref := reference.FromSets(map[string][]string{"CT": {"a0", "b0"}})
	pool := makePool(t, "a0", "b0", "x")

	observed := scorer.Score(table, ref)
	res, err := scorer.PermutationTest(context.Background(), table, ref, pool, observed, PermutationConfig{
		Iterations: 50,
		Workers:    2,
		Seed:       5,
		PerCluster: true,
	})
	require.NoError(t, err)

	for _, cluster := range res.PValues.Clusters() {
		for _, p := range res.PValues.ClusterValues(cluster) {
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 1.0)
		}
	}
}

func TestPermutationTestInvalidConfig(t *testing.T) {
	table := makeTable(t, 0, 40)
	scorer, err := NewScorer(Config{NBMarker: 40, BinSize: 10})
	require.NoError(t, err)

	ref := reference.FromSets(map[string][]string{"A": {"g0"}})
	pool := makePool(t, "x")
	observed := scorer.Score(table, ref)

	_, err = scorer.PermutationTest(context.Background(), table, ref, pool, observed, PermutationConfig{Iterations: 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "iterations")

	_, err = scorer.PermutationTest(context.Background(), table, ref, nil, observed, PermutationConfig{Iterations: 10})
	require.Error(t, err)
	assert.ErrorIs(t, err, background.ErrInvalidBackgroundPool)
}

func TestPermutationTestCancellation(t *testing.T) {
	table := makeTable(t, 0, 40)
	scorer, err := NewScorer(Config{NBMarker: 40, BinSize: 10})
	require.NoError(t, err)

	ref := reference.FromSets(map[string][]string{"A": {"g0"}})
	pool := makePool(t, "x1", "x2")
	observed := scorer.Score(table, ref)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = scorer.PermutationTest(ctx, table, ref, pool, observed, PermutationConfig{
		Iterations: 1000,
		Workers:    2,
		Seed:       1,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPermutationTestNullSummary(t *testing.T) {
	table := makeTable(t, 0, 20)
	scorer, err := NewScorer(Config{NBMarker: 20, BinSize: 10})
	require.NoError(t, err)

	// Every record permutes to the single marker gene, so each permuted
	// score is exactly the full-overlap score and the null SD is 0.
	ref := reference.FromSets(map[string][]string{"CT": {"m"}})
	pool := makePool(t, "m")

	observed := scorer.Score(table, ref)
	res, err := scorer.PermutationTest(context.Background(), table, ref, pool, observed, PermutationConfig{
		Iterations: 20,
		Workers:    2,
		Seed:       3,
	})
	require.NoError(t, err)

	// Each bin of 10 identical genes has overlap 1: weights 2 + 1 = 3.
	assert.Equal(t, 3.0, res.NullMean.Get(0, "CT"))
	assert.Equal(t, 0.0, res.NullSD.Get(0, "CT"))
	// Permuted score 3 always exceeds the observed 0.
	assert.Equal(t, 1.0, res.PValues.Get(0, "CT"))
}

func TestPermutationCountResolution(t *testing.T) {
	table := makeTable(t, 0, 40)
	scorer, err := NewScorer(Config{NBMarker: 40, BinSize: 20})
	require.NoError(t, err)

	var refSets = map[string][]string{}
	for i := 0; i < 5; i++ {
		refSets[fmt.Sprintf("CT%d", i)] = []string{fmt.Sprintf("g%d", i*7)}
	}
	ref := reference.FromSets(refSets)
	pool := makePool(t, "g0", "g7", "g14", "x1", "x2")

	observed := scorer.Score(table, ref)
	res, err := scorer.PermutationTest(context.Background(), table, ref, pool, observed, PermutationConfig{
		Iterations: 50,
		Workers:    1,
		Seed:       9,
	})
	require.NoError(t, err)

	for _, cluster := range res.PValues.Clusters() {
		for ct, p := range res.PValues.ClusterValues(cluster) {
			scaled := p * 50
			assert.InDelta(t, math.Round(scaled), scaled, 1e-9, "%s", ct)
		}
	}
}
