package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/The-culture-connection/businessesgrabber/internal/scraper"
	"github.com/The-culture-connection/businessesgrabber/logger"
	"github.com/The-culture-connection/businessesgrabber/services/exporter"
)

// Test HTML that mimics a directory listing page with a structured data
// block, the way the production site renders one
const structuredBusinessHTML = `
<!DOCTYPE html>
<html>
<head>
    <title>%s</title>
    <script type="application/ld+json">
    {
        "@type": "LocalBusiness",
        "name": "%s",
        "telephone": "%s",
        "address": {
            "streetAddress": "%s",
            "addressLocality": "Cincinnati",
            "addressRegion": "OH",
            "postalCode": "45202"
        }
    }
    </script>
</head>
<body>
    <h1 class="entry-title">%s</h1>
    <div class="entry-content"><p>A fine local establishment serving the neighborhood.</p></div>
</body>
</html>
`

const namelessBusinessHTML = `
<!DOCTYPE html>
<html>
<head><title></title></head>
<body>
    <div class="entry-content"><p>A page with nothing to identify the business by.</p></div>
</body>
</html>
`

// newDirectoryServer serves a sitemap listing three businesses, two of
// which carry structured data and one that has no extractable name
func newDirectoryServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%[1]s/black-owned-business/joes-cafe/</loc></url>
  <url><loc>%[1]s/black-owned-business/adas-books/</loc></url>
  <url><loc>%[1]s/black-owned-business/mystery-listing/</loc></url>
  <url><loc>%[1]s/about/</loc></url>
</urlset>`, server.URL)
	})
	mux.HandleFunc("/black-owned-business/joes-cafe", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, structuredBusinessHTML,
			"Joe's Cafe", "Joe's Cafe", "(513) 555-1234", "123 Main Street", "Joe's Cafe")
	})
	mux.HandleFunc("/black-owned-business/adas-books", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, structuredBusinessHTML,
			"Ada's Books", "Ada's Books", "(513) 555-9876", "45 Vine Street", "Ada's Books")
	})
	mux.HandleFunc("/black-owned-business/mystery-listing", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, namelessBusinessHTML)
	})

	server = httptest.NewServer(mux)
	return server
}

// TestPipelineEndToEnd runs the whole pipeline against a local directory
// site: sitemap discovery, extraction, aggregation and export. The
// nameless listing must be skipped without aborting the run.
func TestPipelineEndToEnd(t *testing.T) {
	server := newDirectoryServer(t)
	defer server.Close()

	ctx := context.Background()
	dir := t.TempDir()

	discoverer := scraper.NewSitemapDiscoverer(server.URL+"/sitemap.xml", "/black-owned-business/")
	ids, err := discoverer.Discover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, ids.Len())

	fetcher := &scraper.HTTPFetcher{}
	extractor := scraper.NewExtractor(fetcher, server.URL, "/black-owned-business-type/")
	writer := &exporter.FileExporter{}
	checkpointPath := filepath.Join(dir, "businesses_checkpoint.json")
	aggregator := scraper.NewAggregator(extractor, writer, nil, 10, checkpointPath, time.Millisecond)

	state, err := aggregator.Run(ctx, ids.Slice(), nil)
	require.NoError(t, err)

	// Two listings yield records; the nameless one is attempted, fails
	// validation and is still marked processed
	require.Len(t, state.Records, 2)
	assert.Len(t, state.Processed, 3)

	byName := map[string]scraper.BusinessRecord{}
	for _, r := range state.Records {
		byName[r.Name] = r
	}

	joes, ok := byName["Joe's Cafe"]
	require.True(t, ok)
	assert.Equal(t, "(513) 555-1234", joes.Phone)
	assert.Equal(t, "123 Main Street", joes.Address)
	assert.Equal(t, "Cincinnati", joes.City)
	assert.Equal(t, "OH", joes.State)
	assert.Equal(t, "45202", joes.Zip)

	adas, ok := byName["Ada's Books"]
	require.True(t, ok)
	assert.Equal(t, "(513) 555-9876", adas.Phone)

	// Both records carry contact info, so the filtered view keeps both
	withContact := 0
	for _, r := range state.Records {
		if r.HasContactInfo() {
			withContact++
		}
	}
	assert.Equal(t, 2, withContact)

	// The final checkpoint holds the same record set
	data, err := os.ReadFile(checkpointPath)
	require.NoError(t, err)
	var saved []scraper.BusinessRecord
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Len(t, saved, 2)
}

// TestRunWritesOutputs drives the whole binary body through run() with
// environment-supplied configuration
func TestRunWritesOutputs(t *testing.T) {
	server := newDirectoryServer(t)
	defer server.Close()

	dir := t.TempDir()
	t.Setenv("DISCOVERY_METHOD", "sitemap")
	t.Setenv("SITEMAP_URL", server.URL+"/sitemap.xml")
	t.Setenv("BASE_URL", server.URL)
	t.Setenv("OUTPUT_DIR", dir)
	t.Setenv("OUTPUT_FORMATS", "json,csv")
	t.Setenv("REQUEST_DELAY_MS", "1")

	logger.Init()
	require.NoError(t, run(logger.Default))

	data, err := os.ReadFile(filepath.Join(dir, "businesses.json"))
	require.NoError(t, err)
	var records []scraper.BusinessRecord
	require.NoError(t, json.Unmarshal(data, &records))
	assert.Len(t, records, 2)

	_, err = os.Stat(filepath.Join(dir, "businesses.csv"))
	assert.NoError(t, err)
}

// TestRunDiscoveryFailureReturnsError verifies a fatal discovery failure
// surfaces as a returned error rather than terminating the process, so
// deferred resource cleanup still executes
func TestRunDiscoveryFailureReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	t.Setenv("DISCOVERY_METHOD", "sitemap")
	t.Setenv("SITEMAP_URL", server.URL+"/sitemap.xml")
	t.Setenv("BASE_URL", server.URL)
	t.Setenv("OUTPUT_DIR", t.TempDir())
	t.Setenv("REQUEST_DELAY_MS", "1")

	logger.Init()
	err := run(logger.Default)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discovery failed")
}

// TestRunInvalidConfigReturnsError verifies validation failures are
// returned, not fatal-logged
func TestRunInvalidConfigReturnsError(t *testing.T) {
	t.Setenv("DISCOVERY_METHOD", "guesswork")

	logger.Init()
	err := run(logger.Default)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

// TestPipelineResumesFromCheckpoint verifies a second run over the same
// identifiers performs no extraction work for already processed listings
func TestPipelineResumesFromCheckpoint(t *testing.T) {
	server := newDirectoryServer(t)
	defer server.Close()

	ctx := context.Background()
	dir := t.TempDir()
	checkpointPath := filepath.Join(dir, "businesses_checkpoint.json")

	discoverer := scraper.NewSitemapDiscoverer(server.URL+"/sitemap.xml", "/black-owned-business/")
	ids, err := discoverer.Discover(ctx)
	require.NoError(t, err)

	fetcher := &scraper.HTTPFetcher{}
	extractor := scraper.NewExtractor(fetcher, server.URL, "/black-owned-business-type/")
	writer := &exporter.FileExporter{}
	aggregator := scraper.NewAggregator(extractor, writer, nil, 10, checkpointPath, time.Millisecond)

	first, err := aggregator.Run(ctx, ids.Slice(), nil)
	require.NoError(t, err)
	require.Len(t, first.Records, 2)

	// Resume: rebuild state from the checkpoint file. Only the nameless
	// listing's URL is absent from it, and even that identifier was
	// already marked processed in-memory; here we verify the reloaded
	// state skips everything it knows about.
	resumed, err := scraper.LoadCheckpoint(checkpointPath)
	require.NoError(t, err)
	assert.Len(t, resumed.Records, 2)

	server.Close()

	// The two checkpointed listings need no network; the nameless one
	// is retried, fails against the closed server and is skipped
	final, err := aggregator.Run(ctx, ids.Slice(), resumed)
	require.NoError(t, err)
	assert.Len(t, final.Records, 2)
}
