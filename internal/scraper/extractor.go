package scraper

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/The-culture-connection/businessesgrabber/pkg/errors"
)

// Extractor turns one listing page into a BusinessRecord by running the
// per-field extraction cascades.
type Extractor struct {
	Fetcher      PageFetcher
	Host         string
	CategoryPath string
}

// NewExtractor creates an extractor for the directory at baseURL
func NewExtractor(fetcher PageFetcher, baseURL, categoryPath string) *Extractor {
	host := ""
	if u, err := url.Parse(baseURL); err == nil {
		host = strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	}
	return &Extractor{
		Fetcher:      fetcher,
		Host:         host,
		CategoryPath: categoryPath,
	}
}

// Extract fetches one listing and extracts its fields. Identifiers
// already in the processed set are a no-op with no network I/O. The
// identifier is marked processed even on failure so broken pages are
// not retried on resume.
func (e *Extractor) Extract(ctx context.Context, id string, processed map[string]bool) (*BusinessRecord, error) {
	if processed[id] {
		return nil, nil
	}
	processed[id] = true

	body, err := e.Fetcher.Fetch(ctx, id)
	if err != nil {
		return nil, errors.NewNetwork(id, "failed to fetch listing", err)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, errors.NewParsing(id, "failed to parse listing HTML", err)
	}

	page := newListingPage(doc, id, e.Host, e.CategoryPath)

	record := &BusinessRecord{SourceURL: id}
	record.Name = firstMatch(nameRules, page)
	if record.Name == "" {
		return nil, errors.NewValidation(id, "no business name found")
	}
	if runes := []rune(record.Name); len(runes) > maxNameLength {
		record.Name = string(runes[:maxNameLength])
	}

	record.Category = firstMatch(categoryRules, page)
	record.Description = firstMatch(descriptionRules, page)
	record.Phone = firstMatch(phoneRules, page)
	record.Email = firstMatch(emailRules, page)
	record.Address = firstMatch(addressRules, page)
	record.Website = firstMatch(websiteRules, page)

	if page.ld != nil {
		record.City = strings.TrimSpace(page.ld.address.AddressLocality)
		record.State = strings.TrimSpace(page.ld.address.AddressRegion)
		record.Zip = strings.TrimSpace(page.ld.address.PostalCode)
	}

	return record, nil
}
