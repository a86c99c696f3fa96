package background

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultServerURL is the public server hosting per-species background gene
// lists as <species>_genes.tsv. Supported species: human, mouse.
const DefaultServerURL = "http://public.gi.ucsc.edu/~lseninge"

// Fetcher retrieves background gene lists from a remote server.
type Fetcher struct {
	baseURL    string
	httpClient *http.Client
}

// NewFetcher creates a fetcher against baseURL. An empty baseURL uses the
// default public server.
func NewFetcher(baseURL string) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultServerURL
	}
	return &Fetcher{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GeneListURL returns the download URL for a species' gene list.
func (f *Fetcher) GeneListURL(species string) string {
	return fmt.Sprintf("%s/%s_genes.tsv", f.baseURL, strings.ToLower(species))
}

// Fetch downloads the gene list for species and returns it as a Pool.
func (f *Fetcher) Fetch(species string) (*Pool, error) {
	url := f.GeneListURL(species)

	resp, err := f.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("background gene list request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("background gene list server error %d: %s", resp.StatusCode, string(body))
	}

	return Read(resp.Body)
}
