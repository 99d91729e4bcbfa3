package scraper

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxNameLength        = 200
	maxDescriptionLength = 500
)

var (
	// Phone shapes, most specific first. The 7-digit local shape is a
	// last resort and is reported raw, never normalized.
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`),
		regexp.MustCompile(`\d{3}[-.\s]\d{4}`),
	}
	nonDigitPattern = regexp.MustCompile(`[^\d]`)

	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	addressPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d+\s+[A-Za-z\s]+(?:Street|St|Avenue|Ave|Road|Rd|Drive|Dr|Lane|Ln|Boulevard|Blvd|Way|Circle|Ct|Court|Place|Pl)`),
		regexp.MustCompile(`\d+\s+[A-Za-z\s]+,\s*[A-Za-z\s]+,\s*[A-Z]{2}\s+\d{5}`),
	}

	// Navigational text the address regexes sometimes capture trailing
	// into the match. Stripping it is mandatory, not cleanup.
	boilerplatePattern = regexp.MustCompile(`(?i)(Post navigation|Previous Business|Next Business).*`)
	whitespacePattern  = regexp.MustCompile(`\s+`)

	// Emails surfaced by platform tooling rather than the business itself
	emailNoiseDomains = []string{"example.com", "sentry.io", "mozilla.org", "schema.org", "wixpress.com"}

	// Hosts that never count as the business's own website
	websiteExcluded = []string{
		"facebook", "instagram", "linkedin", "twitter", "youtube",
		"mailchi.mp", "list-manage", "subscribe", "opentable.com/restref",
	}
)

// postalAddress is the decomposed address inside a LocalBusiness block
type postalAddress struct {
	StreetAddress   string `json:"streetAddress"`
	AddressLocality string `json:"addressLocality"`
	AddressRegion   string `json:"addressRegion"`
	PostalCode      string `json:"postalCode"`
}

// localBusiness is the structured data block embedded in listing pages
type localBusiness struct {
	Type       string          `json:"@type"`
	Name       string          `json:"name"`
	Telephone  string          `json:"telephone"`
	URL        string          `json:"url"`
	RawAddress json.RawMessage `json:"address"`

	address postalAddress
}

// listingPage bundles everything the field rules look at: the parsed
// document, its rendered text, the structured data block if present,
// and the originating URL
type listingPage struct {
	doc          *goquery.Document
	url          string
	host         string
	categoryPath string
	text         string
	ld           *localBusiness
}

func newListingPage(doc *goquery.Document, pageURL, host, categoryPath string) *listingPage {
	p := &listingPage{
		doc:          doc,
		url:          pageURL,
		host:         strings.ToLower(host),
		categoryPath: categoryPath,
		text:         doc.Text(),
	}
	p.ld = extractLocalBusiness(doc)
	return p
}

// extractLocalBusiness finds the first LocalBusiness JSON-LD block on
// the page, tolerating both single-object and array forms
func extractLocalBusiness(doc *goquery.Document) *localBusiness {
	var found *localBusiness
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return true
		}

		var single localBusiness
		if err := json.Unmarshal([]byte(raw), &single); err == nil && single.Type == "LocalBusiness" {
			found = &single
			return false
		}

		var list []localBusiness
		if err := json.Unmarshal([]byte(raw), &list); err == nil {
			for i := range list {
				if list[i].Type == "LocalBusiness" {
					found = &list[i]
					return false
				}
			}
		}
		return true
	})

	if found == nil {
		return nil
	}

	// The address may be a decomposed object or a plain string
	if len(found.RawAddress) > 0 {
		if err := json.Unmarshal(found.RawAddress, &found.address); err != nil {
			var plain string
			if err := json.Unmarshal(found.RawAddress, &plain); err == nil {
				found.address.StreetAddress = strings.TrimSpace(plain)
			}
		}
	}
	return found
}

// fieldRule is one step in a field's extraction cascade
type fieldRule struct {
	name  string
	apply func(p *listingPage) string
}

// firstMatch runs the cascade and returns the first non-empty result
func firstMatch(rules []fieldRule, p *listingPage) string {
	for _, r := range rules {
		if v := r.apply(p); v != "" {
			return v
		}
	}
	return ""
}

var nameRules = []fieldRule{
	{"json-ld", func(p *listingPage) string {
		if p.ld == nil {
			return ""
		}
		return strings.TrimSpace(p.ld.Name)
	}},
	{"entry-title", func(p *listingPage) string {
		return strings.TrimSpace(p.doc.Find("h1.entry-title").First().Text())
	}},
	{"any-heading", func(p *listingPage) string {
		return strings.TrimSpace(p.doc.Find("h1").First().Text())
	}},
}

var categoryRules = []fieldRule{
	{"category-links", func(p *listingPage) string {
		var categories []string
		seen := make(map[string]struct{})
		p.doc.Find(`a[href*="` + p.categoryPath + `"]`).Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len(text) <= 3 {
				return
			}
			if _, ok := seen[text]; ok {
				return
			}
			seen[text] = struct{}{}
			categories = append(categories, text)
		})
		return strings.Join(categories, ", ")
	}},
}

var descriptionRules = []fieldRule{
	{"entry-content", func(p *listingPage) string {
		var parts []string
		p.doc.Find("div.entry-content p").EachWithBreak(func(i int, s *goquery.Selection) bool {
			if len(parts) >= 3 {
				return false
			}
			text := strings.TrimSpace(s.Text())
			if len(text) > 20 {
				parts = append(parts, text)
			}
			return true
		})
		return TruncateText(strings.Join(parts, " "), maxDescriptionLength)
	}},
	{"meta-description", func(p *listingPage) string {
		content, _ := p.doc.Find(`meta[name="description"]`).Attr("content")
		return TruncateText(strings.TrimSpace(content), maxDescriptionLength)
	}},
}

var phoneRules = []fieldRule{
	{"json-ld", func(p *listingPage) string {
		if p.ld == nil {
			return ""
		}
		return strings.TrimSpace(p.ld.Telephone)
	}},
	{"tel-link", func(p *listingPage) string {
		link := p.doc.Find(`a[href^="tel:"]`).First()
		if link.Length() == 0 {
			return ""
		}
		if text := strings.TrimSpace(link.Text()); text != "" {
			return text
		}
		href, _ := link.Attr("href")
		return strings.TrimSpace(strings.TrimPrefix(href, "tel:"))
	}},
	{"text-pattern", func(p *listingPage) string {
		for _, re := range phonePatterns {
			if match := re.FindString(p.text); match != "" {
				return NormalizePhone(match)
			}
		}
		return ""
	}},
}

var emailRules = []fieldRule{
	{"mailto-link", func(p *listingPage) string {
		var email string
		p.doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, _ := s.Attr("href")
			if strings.HasPrefix(href, "mailto:") {
				if text := strings.TrimSpace(s.Text()); strings.Contains(text, "@") {
					email = text
					return false
				}
				addr := strings.TrimPrefix(href, "mailto:")
				if idx := strings.Index(addr, "?"); idx >= 0 {
					addr = addr[:idx]
				}
				if addr != "" {
					email = addr
					return false
				}
			}
			if strings.Contains(href, "email-protection") {
				email = "Email available (Cloudflare protected)"
				return false
			}
			return true
		})
		return email
	}},
	{"text-pattern", func(p *listingPage) string {
		for _, match := range emailPattern.FindAllString(p.text, -1) {
			if !isNoiseEmail(match) {
				return match
			}
		}
		return ""
	}},
}

var addressRules = []fieldRule{
	{"json-ld", func(p *listingPage) string {
		if p.ld == nil {
			return ""
		}
		return strings.TrimSpace(p.ld.address.StreetAddress)
	}},
	{"text-pattern", func(p *listingPage) string {
		for _, re := range addressPatterns {
			if match := re.FindString(p.text); match != "" {
				if cleaned := CleanAddress(match); cleaned != "" {
					return cleaned
				}
			}
		}
		return ""
	}},
}

var websiteRules = []fieldRule{
	{"json-ld", func(p *listingPage) string {
		if p.ld == nil {
			return ""
		}
		return strings.TrimSpace(p.ld.URL)
	}},
	{"external-link", func(p *listingPage) string {
		var website string
		p.doc.Find(`a[href^="http"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, _ := s.Attr("href")
			if isExternalWebsite(href, p.host) {
				website = href
				return false
			}
			return true
		})
		return website
	}},
}

// NormalizePhone formats a matched phone fragment as (NNN) NNN-NNNN
// when exactly 10 digits are recoverable; anything else is returned as
// the raw match
func NormalizePhone(match string) string {
	digits := nonDigitPattern.ReplaceAllString(match, "")
	if len(digits) == 10 {
		return fmt.Sprintf("(%s) %s-%s", digits[:3], digits[3:6], digits[6:])
	}
	return strings.TrimSpace(match)
}

// CleanAddress collapses whitespace and strips trailing navigational
// boilerplate from a matched address
func CleanAddress(match string) string {
	address := whitespacePattern.ReplaceAllString(match, " ")
	address = boilerplatePattern.ReplaceAllString(address, "")
	return strings.TrimSpace(address)
}

// TruncateText cuts text at limit runes, appending an ellipsis marker
// when something was dropped
func TruncateText(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

func isNoiseEmail(email string) bool {
	lower := strings.ToLower(email)
	for _, domain := range emailNoiseDomains {
		if strings.Contains(lower, domain) {
			return true
		}
	}
	return false
}

func isExternalWebsite(href, ownHost string) bool {
	lower := strings.ToLower(href)
	u, err := url.Parse(href)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	if host == "" || host == strings.TrimPrefix(ownHost, "www.") {
		return false
	}
	for _, excluded := range websiteExcluded {
		if strings.Contains(lower, excluded) {
			return false
		}
	}
	return true
}
