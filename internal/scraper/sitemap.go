package scraper

import (
	"bytes"
	"context"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/The-culture-connection/businessesgrabber/helpers"
	"github.com/The-culture-connection/businessesgrabber/logger"
	"github.com/The-culture-connection/businessesgrabber/pkg/errors"
)

// SitemapDiscoverer enumerates listing URLs from the site's XML sitemap.
// This is the preferred strategy: one fetch, deterministic, complete.
type SitemapDiscoverer struct {
	SitemapURL string
	DetailPath string
}

// NewSitemapDiscoverer creates a sitemap-based discoverer
func NewSitemapDiscoverer(sitemapURL, detailPath string) *SitemapDiscoverer {
	return &SitemapDiscoverer{
		SitemapURL: sitemapURL,
		DetailPath: detailPath,
	}
}

// Discover fetches and parses the sitemap, keeping locations that match
// the listing path pattern
func (d *SitemapDiscoverer) Discover(ctx context.Context) (*IdentifierSet, error) {
	log := logger.ForStage("discover")
	log.Info().Str("sitemap", d.SitemapURL).Msg("Fetching sitemap")

	data, err := helpers.FetchBytes(ctx, d.SitemapURL)
	if err != nil {
		return nil, errors.NewDiscovery(d.SitemapURL, "failed to fetch sitemap", err)
	}

	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, errors.NewDiscovery(d.SitemapURL, "failed to parse sitemap XML", err)
	}

	set := NewIdentifierSet()
	for _, loc := range xmlquery.Find(doc, "//url/loc") {
		raw := strings.TrimSpace(loc.InnerText())
		if raw == "" || !strings.Contains(raw, d.DetailPath) {
			continue
		}
		id, err := CanonicalizeURL(raw, nil)
		if err != nil {
			log.Warn().Str("url", raw).Err(err).Msg("Skipping malformed sitemap entry")
			continue
		}
		set.Add(id)
	}

	log.Info().Int("count", set.Len()).Msg("Sitemap discovery complete")
	return set, nil
}

// GetName returns the discoverer's name
func (d *SitemapDiscoverer) GetName() string {
	return "SitemapDiscoverer"
}
