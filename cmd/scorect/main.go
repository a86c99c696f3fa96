// Package main provides the scorect command-line tool.
package main

import (
	"flag"
	"fmt"
	"os"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Global flags
	var showVersion bool
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	// Parse global flags first
	flag.Parse()

	if showVersion {
		fmt.Printf("scorect version %s (%s) built %s\n", version, commit, date)
		return ExitSuccess
	}

	// Check for subcommand
	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		return ExitUsage
	}

	switch args[0] {
	case "score":
		return runScore(args[1:])
	case "download":
		return runDownload(args[1:])
	case "config":
		return runConfig(args[1:])
	case "help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", args[0])
		printUsage()
		return ExitUsage
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `scorect - Automated cell type scoring for scRNA-seq clusters

Usage:
  scorect [options] <command> [arguments]

Commands:
  score       Score and assign cell types to clusters from a ranked-genes table
  download    Download the CellMarker reference and background gene lists
  config      Show, get, or set configuration values
  help        Show this help message

Global Options:
  --version   Show version information

Examples:
  # Download reference data (one-time setup)
  scorect download --species human

  # Score clusters against the curated brain reference
  scorect score --ranking ranked_genes.tsv --ref human.tsv --organ brain

  # Score against the CellMarker database with 5000 permutations
  scorect score --ranking ranked_genes.tsv --cellmarker --tissue Brain --permutations 5000

For more information on a command, use:
  scorect <command> --help
`)
}
