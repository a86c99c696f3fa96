package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lucasesbs/scorect/internal/background"
	"github.com/lucasesbs/scorect/internal/reference"
)

func runDownload(args []string) int {
	fs := flag.NewFlagSet("download", flag.ExitOnError)

	var (
		species   string
		outputDir string
		skipRef   bool
	)

	fs.StringVar(&species, "species", "human", "Species to download a background gene list for: human or mouse")
	fs.StringVar(&outputDir, "output", "", "Output directory (default: ~/.scorect/)")
	fs.BoolVar(&skipRef, "background-only", false, "Only download the background gene list (skip the CellMarker dump)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Download the CellMarker reference dump and background gene lists.

Usage:
  scorect download [options]

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Download the CellMarker dump and the human background gene list
  scorect download

  # Download the mouse background gene list only
  scorect download --species mouse --background-only

Files downloaded:
  - all_cell_markers.txt (CellMarker database dump)
  - <species>_genes.tsv (background gene list)

After downloading, scorect score will pick these files up automatically.
`)
	}

	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	// Determine output directory
	if outputDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot determine home directory: %v\n", err)
			return ExitError
		}
		outputDir = filepath.Join(home, ".scorect")
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot create directory %s: %v\n", outputDir, err)
		return ExitError
	}

	fmt.Printf("Downloading scorect reference data...\n")
	fmt.Printf("Destination: %s\n\n", outputDir)

	if !skipRef {
		cmFile := filepath.Join(outputDir, reference.CellMarkerFileName)
		if err := downloadFile(reference.CellMarkerURL, cmFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error downloading CellMarker dump: %v\n", err)
			return ExitError
		}
	}

	fetcher := background.NewFetcher("")
	bgFile := filepath.Join(outputDir, strings.ToLower(species)+"_genes.tsv")
	if err := downloadFile(fetcher.GeneListURL(species), bgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error downloading background gene list: %v\n", err)
		return ExitError
	}

	fmt.Printf("\nDownload complete!\n")
	fmt.Printf("To score clusters, run:\n")
	fmt.Printf("  scorect score --ranking ranked_genes.tsv --cellmarker --tissue <tissue>\n")

	return ExitSuccess
}

// downloadFile downloads a file from URL to the destination path with progress.
func downloadFile(url, destPath string) error {
	// Check if file already exists
	if info, err := os.Stat(destPath); err == nil {
		fmt.Printf("  %s already exists (%s), skipping\n", filepath.Base(destPath), formatSize(info.Size()))
		return nil
	}

	fmt.Printf("  Downloading %s...\n", filepath.Base(destPath))

	client := &http.Client{
		Timeout: 10 * time.Minute,
	}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %s", resp.Status)
	}

	// Create destination file
	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	// Copy with progress
	var downloaded int64
	pw := &progressWriter{
		total:      resp.ContentLength,
		downloaded: &downloaded,
		lastPrint:  time.Now(),
	}

	_, err = io.Copy(f, io.TeeReader(resp.Body, pw))
	f.Close()

	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download failed: %w", err)
	}

	// Rename temp file to final destination
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}

	fmt.Printf("    Done: %s\n", formatSize(downloaded))
	return nil
}

// progressWriter tracks download progress.
type progressWriter struct {
	total      int64
	downloaded *int64
	lastPrint  time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	*pw.downloaded += int64(n)

	// Print progress every second
	if time.Since(pw.lastPrint) > time.Second {
		if pw.total > 0 {
			pct := float64(*pw.downloaded) / float64(pw.total) * 100
			fmt.Printf("\r    Progress: %s / %s (%.1f%%)  ",
				formatSize(*pw.downloaded), formatSize(pw.total), pct)
		} else {
			fmt.Printf("\r    Progress: %s  ", formatSize(*pw.downloaded))
		}
		pw.lastPrint = time.Now()
	}

	return n, nil
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// DefaultDataPath returns the default directory for downloaded data files.
func DefaultDataPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".scorect")
}

// FindCellMarkerFile looks for a downloaded CellMarker dump in the default
// location.
func FindCellMarkerFile() (string, bool) {
	dir := DefaultDataPath()
	if dir == "" {
		return "", false
	}
	path := filepath.Join(dir, reference.CellMarkerFileName)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// FindBackgroundFile looks for a downloaded background gene list for the
// species in the default location.
func FindBackgroundFile(species string) (string, bool) {
	dir := DefaultDataPath()
	if dir == "" {
		return "", false
	}
	path := filepath.Join(dir, strings.ToLower(species)+"_genes.tsv")
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}
