package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/lucasesbs/scorect/internal/assign"
	"github.com/lucasesbs/scorect/internal/background"
	"github.com/lucasesbs/scorect/internal/dataset"
	"github.com/lucasesbs/scorect/internal/duckdb"
	"github.com/lucasesbs/scorect/internal/output"
	"github.com/lucasesbs/scorect/internal/ranking"
	"github.com/lucasesbs/scorect/internal/reference"
	"github.com/lucasesbs/scorect/internal/score"
)

func runScore(args []string) int {
	fs := flag.NewFlagSet("score", flag.ExitOnError)

	var (
		rankingPath    string
		refPath        string
		markersPath    string
		useCellMarker  bool
		cellMarkerPath string
		species        string
		organ          string
		tissue         string
		tissueContext  string
		backgroundPath string
		nbMarker       int
		binSize        int
		permutations   int
		workers        int
		seed           int64
		perCluster     bool
		pvalThreshold  float64
		cellsPath      string
		clusterCol     string
		outPrefix      string
		dbPath         string
		runID          string
		verbose        bool
	)

	fs.StringVar(&rankingPath, "ranking", "", "Ranked-genes TSV from the upstream differential expression step (required)")
	fs.StringVar(&refPath, "ref", "", "Curated per-species reference TSV")
	fs.StringVar(&markersPath, "markers", "", "Caller-provided marker file (cell_type<TAB>gene,gene,...); takes precedence over --ref and --cellmarker")
	fs.BoolVar(&useCellMarker, "cellmarker", false, "Use the downloaded CellMarker database dump as the reference")
	fs.StringVar(&cellMarkerPath, "cellmarker-file", "", "Path to a CellMarker dump (default: downloaded copy in ~/.scorect/)")
	fs.StringVar(&species, "species", configString("species", "human"), "Species of interest: human or mouse")
	fs.StringVar(&organ, "organ", configString("organ", "brain"), "Organ of interest for the curated reference")
	fs.StringVar(&tissue, "tissue", "", "Tissue type for the CellMarker reference")
	fs.StringVar(&tissueContext, "context", "", "Tissue context for the curated reference (default: healthy)")
	fs.StringVar(&backgroundPath, "background", "", "Background gene list file (default: downloaded copy, then remote fetch)")
	fs.IntVar(&nbMarker, "nb-marker", 0, "Number of top ranked markers per cluster (default: ranking depth of the input)")
	fs.IntVar(&binSize, "bin-size", configInt("bin_size", 20), "Number of consecutive rank positions per scoring bin")
	fs.IntVar(&permutations, "permutations", configInt("permutations", 1000), "Number of permutation iterations K")
	fs.IntVar(&workers, "workers", 0, "Permutation worker pool size (default: number of CPUs)")
	fs.Int64Var(&seed, "seed", 0, "Random seed; 0 seeds from the clock (p-values then vary between runs)")
	fs.BoolVar(&perCluster, "per-cluster", false, "Randomize gene labels cluster by cluster instead of across the whole table")
	fs.Float64Var(&pvalThreshold, "pval", assign.DefaultThreshold, "P-value threshold below which a cluster is assigned NA")
	fs.StringVar(&cellsPath, "cells", "", "Per-cell observation TSV to write assigned labels back onto")
	fs.StringVar(&clusterCol, "cluster-col", "louvain", "Clustering label column in the --cells table")
	fs.StringVar(&outPrefix, "o", "scorect", "Output file prefix")
	fs.StringVar(&outPrefix, "output", "scorect", "Output file prefix")
	fs.StringVar(&dbPath, "db", "", "DuckDB database to persist results into (optional)")
	fs.StringVar(&runID, "run-id", "", "Run identifier for persisted results (default: timestamp)")
	fs.BoolVar(&verbose, "verbose", false, "Enable verbose logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Score cell types against clusters and assign the best-supported label.

Usage:
  scorect score [options] --ranking <ranked-genes.tsv>

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  scorect score --ranking ranked_genes.tsv --ref human.tsv --organ brain
  scorect score --ranking ranked_genes.tsv --cellmarker --tissue Brain
  scorect score --ranking ranked_genes.tsv --markers my_markers.tsv --seed 42
  scorect score --ranking ranked_genes.tsv --ref human.tsv --cells cells.tsv --cluster-col leiden
`)
	}

	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	if rankingPath == "" {
		fmt.Fprintf(os.Stderr, "Error: --ranking argument required\n\n")
		fs.Usage()
		return ExitUsage
	}

	logger := zap.NewNop()
	if verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
			return ExitError
		}
		defer l.Sync()
		logger = l
	}

	// Load the ranked-genes table
	table, err := ranking.LoadFile(rankingPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, ranking.ErrMissingPrerequisite) {
			fmt.Fprintf(os.Stderr, "Hint: Run clustering and rank_genes_groups upstream, then export the ranking as TSV\n")
		}
		return ExitError
	}
	fmt.Fprintf(os.Stderr, "Loaded ranking: %d clusters, %d records\n", len(table.Clusters()), table.Len())

	// Build the reference; a caller-provided marker file wins over the
	// curated TSV and the CellMarker dump.
	ref, err := buildReference(markersPath, refPath, useCellMarker, cellMarkerPath, species, organ, tissue, tissueContext)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, reference.ErrReferenceParse) {
			fmt.Fprintf(os.Stderr, "Hint: Check the species/organ/context spelling against the reference file\n")
		}
		return ExitError
	}
	fmt.Fprintf(os.Stderr, "Loaded reference: %d cell types\n", ref.Len())

	// Materialize the background pool before any scoring begins
	pool, err := loadBackground(backgroundPath, species)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, background.ErrInvalidBackgroundPool) {
			fmt.Fprintf(os.Stderr, "Hint: Download a background gene list with: scorect download --species %s\n", species)
		}
		return ExitError
	}
	fmt.Fprintf(os.Stderr, "Loaded background pool: %d genes\n", pool.Len())

	if nbMarker == 0 {
		nbMarker = table.NumMarkers()
	}
	scorer, err := score.NewScorer(score.Config{NBMarker: nbMarker, BinSize: binSize})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}
	scorer.SetLogger(logger)

	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	observed := scorer.Score(table, ref)

	fmt.Fprintf(os.Stderr, "Running %d permutations...\n", permutations)
	perm, err := scorer.PermutationTest(ctx, table, ref, pool, observed, score.PermutationConfig{
		Iterations: permutations,
		Workers:    workers,
		Seed:       seed,
		PerCluster: perCluster,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}

	result := assign.Resolve(observed, perm.PValues, pvalThreshold)
	for _, cluster := range result.Ambiguous {
		fmt.Fprintf(os.Stderr, "Warning: cluster %d has a residual score-level tie; assigned %q by cell-type order\n",
			cluster, result.Labels[cluster])
	}

	if err := writeResults(outPrefix, observed, perm, result); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing results: %v\n", err)
		return ExitError
	}

	if dbPath != "" {
		if runID == "" {
			runID = time.Now().UTC().Format("20060102T150405Z")
		}
		if err := persistResults(dbPath, runID, observed, perm, result); err != nil {
			fmt.Fprintf(os.Stderr, "Error persisting results: %v\n", err)
			return ExitError
		}
		fmt.Fprintf(os.Stderr, "Persisted run %s to %s\n", runID, dbPath)
	}

	if cellsPath != "" {
		if err := writeCellLabels(cellsPath, clusterCol, outPrefix, result); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing cell labels: %v\n", err)
			return ExitError
		}
	}

	fmt.Fprintf(os.Stderr, "Done\n")
	return ExitSuccess
}

// buildReference resolves the marker reference from the configured sources.
func buildReference(markersPath, refPath string, useCellMarker bool, cellMarkerPath, species, organ, tissue, tissueContext string) (*reference.Reference, error) {
	switch {
	case markersPath != "":
		return reference.ParseUserFile(markersPath)
	case useCellMarker || cellMarkerPath != "":
		path := cellMarkerPath
		if path == "" {
			var found bool
			path, found = FindCellMarkerFile()
			if !found {
				return nil, fmt.Errorf("no CellMarker dump found; run: scorect download")
			}
		}
		if tissue == "" {
			return nil, fmt.Errorf("--tissue is required with --cellmarker")
		}
		return reference.ParseCellMarkerFile(path, cellMarkerSpecies(species), tissue)
	case refPath != "":
		return reference.ParseFile(refPath, organ, tissueContext)
	default:
		return nil, fmt.Errorf("no reference source; use --markers, --ref or --cellmarker")
	}
}

// cellMarkerSpecies maps scorect species names onto CellMarker's values.
func cellMarkerSpecies(species string) string {
	switch species {
	case "human":
		return "Human"
	case "mouse":
		return "Mouse"
	}
	return species
}

// loadBackground materializes the background gene pool: explicit file
// first, then the downloaded copy, then the remote server.
func loadBackground(path, species string) (*background.Pool, error) {
	if path != "" {
		return background.LoadFile(path)
	}
	if local, found := FindBackgroundFile(species); found {
		return background.LoadFile(local)
	}
	fmt.Fprintf(os.Stderr, "Fetching background gene list for %s...\n", species)
	return background.NewFetcher("").Fetch(species)
}

func writeResults(prefix string, observed *score.Matrix, perm *score.PermutationResult, result assign.Result) error {
	if err := writeMatrix(prefix+"_scores.tsv", observed); err != nil {
		return err
	}
	if err := writeMatrix(prefix+"_pvalues.tsv", perm.PValues); err != nil {
		return err
	}

	f, err := os.Create(prefix + "_assignments.tsv")
	if err != nil {
		return err
	}
	defer f.Close()

	aw := output.NewAssignmentWriter(f)
	if err := aw.WriteHeader(); err != nil {
		return err
	}
	if err := aw.WriteResult(result, observed, perm.PValues); err != nil {
		return err
	}
	return aw.Flush()
}

func writeMatrix(path string, m *score.Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return output.NewMatrixWriter(f).WriteMatrix(m)
}

func persistResults(dbPath, runID string, observed *score.Matrix, perm *score.PermutationResult, result assign.Result) error {
	store, err := duckdb.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.WriteScores(runID, observed, perm.PValues, perm.NullMean, perm.NullSD); err != nil {
		return err
	}
	return store.WriteAssignments(runID, result)
}

func writeCellLabels(cellsPath, clusterCol, prefix string, result assign.Result) error {
	cells, err := dataset.Load(cellsPath, clusterCol)
	if err != nil {
		return err
	}

	labels := assign.Broadcast(result, cells.Clusters())

	outPath := prefix + "_" + filepath.Base(cellsPath)
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := cells.WriteLabeled(f, labels); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote labeled cells to %s\n", outPath)
	return nil
}
