package scraper

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/The-culture-connection/businessesgrabber/helpers"
	"github.com/The-culture-connection/businessesgrabber/logger"
	"github.com/The-culture-connection/businessesgrabber/pkg/errors"
)

// PaginationDiscoverer walks numbered directory pages
// (entry, entry/page/2, entry/page/3, ...) until a page yields nothing
// new, the server answers 404, or the page ceiling is hit.
type PaginationDiscoverer struct {
	EntryURL   string
	DetailPath string
	MaxPages   int
	Delay      time.Duration
	Fetcher    PageFetcher
}

// NewPaginationDiscoverer creates a pagination-based discoverer
func NewPaginationDiscoverer(entryURL, detailPath string, maxPages int, delay time.Duration, fetcher PageFetcher) *PaginationDiscoverer {
	return &PaginationDiscoverer{
		EntryURL:   entryURL,
		DetailPath: detailPath,
		MaxPages:   maxPages,
		Delay:      delay,
		Fetcher:    fetcher,
	}
}

// Discover walks the paginated directory until the fixed point
func (d *PaginationDiscoverer) Discover(ctx context.Context) (*IdentifierSet, error) {
	log := logger.ForStage("discover")
	set := NewIdentifierSet()

	for page := 1; page <= d.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return set, err
		}

		pageURL := d.pageURL(page)
		body, err := d.Fetcher.Fetch(ctx, pageURL)
		if err != nil {
			if stderrors.Is(err, helpers.ErrNotFound) {
				log.Debug().Int("page", page).Msg("Page not found, pagination exhausted")
				break
			}
			if page == 1 {
				return nil, errors.NewDiscovery(d.EntryURL, "entry point unreachable", err)
			}
			// Transient failure aborts only this page
			log.Warn().Str("url", pageURL).Err(err).Msg("Skipping unreachable page")
			continue
		}

		doc, err := goquery.NewDocumentFromReader(body)
		if err != nil {
			if page == 1 {
				return nil, errors.NewDiscovery(d.EntryURL, "failed to parse entry point", err)
			}
			log.Warn().Str("url", pageURL).Err(err).Msg("Skipping unparseable page")
			continue
		}

		added := d.collectLinks(doc, pageURL, set)
		log.Debug().Int("page", page).Int("new", added).Int("total", set.Len()).Msg("Scanned directory page")
		if added == 0 {
			break
		}

		if !sleepCtx(ctx, d.Delay) {
			return set, ctx.Err()
		}
	}

	log.Info().Int("count", set.Len()).Msg("Pagination discovery complete")
	return set, nil
}

// collectLinks adds all matching anchors on the page to the set,
// returning how many were new
func (d *PaginationDiscoverer) collectLinks(doc *goquery.Document, pageURL string, set *IdentifierSet) int {
	base, err := url.Parse(pageURL)
	if err != nil {
		return 0
	}

	added := 0
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !strings.Contains(href, d.DetailPath) {
			return
		}
		id, err := CanonicalizeURL(href, base)
		if err != nil {
			return
		}
		if set.Add(id) {
			added++
		}
	})
	return added
}

func (d *PaginationDiscoverer) pageURL(page int) string {
	if page == 1 {
		return d.EntryURL
	}
	return fmt.Sprintf("%s/page/%d/", strings.TrimRight(d.EntryURL, "/"), page)
}

// GetName returns the discoverer's name
func (d *PaginationDiscoverer) GetName() string {
	return "PaginationDiscoverer"
}

// sleepCtx sleeps for the given duration, returning false if the
// context was cancelled first
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
