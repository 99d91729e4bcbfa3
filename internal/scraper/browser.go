package scraper

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/The-culture-connection/businessesgrabber/logger"
	"github.com/The-culture-connection/businessesgrabber/pkg/errors"
)

// BrowserSession abstracts the scriptable browser used by the
// interactive-exhaustion strategy. The session must be closed on every
// exit path; leaked browser processes are the usual failure mode here.
type BrowserSession interface {
	// Navigate loads the given URL and waits for the document to be ready
	Navigate(ctx context.Context, url string) error

	// LoadMore triggers lazy loading: scrolls to the bottom and clicks a
	// load-more control when one is present, visible and enabled
	LoadMore(ctx context.Context) error

	// ListingLinks returns the hrefs of all listing anchors currently
	// rendered
	ListingLinks(ctx context.Context) ([]string, error)

	// Close releases the browser
	Close() error
}

// BrowserDiscoverer exhausts a dynamically loading directory page by
// repeatedly triggering lazy loads and rescanning, stopping once
// StaleRounds consecutive rounds produce no new listings or the hard
// round ceiling is reached.
type BrowserDiscoverer struct {
	Session     BrowserSession
	EntryURL    string
	DetailPath  string
	StaleRounds int
	MaxRounds   int
	Delay       time.Duration
}

// NewBrowserDiscoverer creates a browser-based discoverer
func NewBrowserDiscoverer(session BrowserSession, entryURL, detailPath string, staleRounds, maxRounds int, delay time.Duration) *BrowserDiscoverer {
	return &BrowserDiscoverer{
		Session:     session,
		EntryURL:    entryURL,
		DetailPath:  detailPath,
		StaleRounds: staleRounds,
		MaxRounds:   maxRounds,
		Delay:       delay,
	}
}

// Discover drives the browser until the link set reaches a fixed point
func (d *BrowserDiscoverer) Discover(ctx context.Context) (*IdentifierSet, error) {
	log := logger.ForStage("discover")

	if err := d.Session.Navigate(ctx, d.EntryURL); err != nil {
		return nil, errors.NewDiscovery(d.EntryURL, "failed to open entry point in browser", err)
	}

	base, err := url.Parse(d.EntryURL)
	if err != nil {
		return nil, errors.NewDiscovery(d.EntryURL, "invalid entry URL", err)
	}

	set := NewIdentifierSet()
	d.scan(ctx, base, set, log)

	stale := 0
	for round := 1; round <= d.MaxRounds && stale < d.StaleRounds; round++ {
		if err := ctx.Err(); err != nil {
			return set, err
		}

		if err := d.Session.LoadMore(ctx); err != nil {
			log.Warn().Int("round", round).Err(err).Msg("Load-more trigger failed")
		}
		if !sleepCtx(ctx, d.Delay) {
			return set, ctx.Err()
		}

		added := d.scan(ctx, base, set, log)
		if added == 0 {
			stale++
		} else {
			stale = 0
		}

		log.Debug().
			Int("round", round).
			Int("new", added).
			Int("total", set.Len()).
			Int("stale", stale).
			Msg("Browser discovery round")
	}

	log.Info().Int("count", set.Len()).Msg("Browser discovery complete")
	return set, nil
}

// scan rescans the rendered page for listing links, returning how many
// were new
func (d *BrowserDiscoverer) scan(ctx context.Context, base *url.URL, set *IdentifierSet, log *logger.Logger) int {
	links, err := d.Session.ListingLinks(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to scan rendered links")
		return 0
	}

	added := 0
	for _, link := range links {
		if !strings.Contains(link, d.DetailPath) {
			continue
		}
		id, err := CanonicalizeURL(link, base)
		if err != nil {
			continue
		}
		if set.Add(id) {
			added++
		}
	}
	return added
}

// GetName returns the discoverer's name
func (d *BrowserDiscoverer) GetName() string {
	return "BrowserDiscoverer"
}
