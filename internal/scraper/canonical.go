package scraper

import (
	"fmt"
	"net/url"
	"strings"
)

// CanonicalizeURL maps every textual form of a listing URL (relative,
// trailing slash, fragment, query) to a single canonical identifier:
// lowercase scheme+host plus path with no trailing slash.
func CanonicalizeURL(raw string, base *url.URL) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty URL")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL %q: %w", raw, err)
	}
	if base != nil {
		u = base.ResolveReference(u)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme in URL %q", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("no host in URL %q", raw)
	}

	path := u.EscapedPath()
	for strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}

	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + path, nil
}

// IdentifierSet is an ordered set of canonical listing URLs.
// Uniqueness is enforced; insertion order is preserved so discovery
// output is deterministic.
type IdentifierSet struct {
	order []string
	seen  map[string]struct{}
}

// NewIdentifierSet creates an empty identifier set
func NewIdentifierSet() *IdentifierSet {
	return &IdentifierSet{
		seen: make(map[string]struct{}),
	}
}

// Add inserts an identifier and reports whether it was new
func (s *IdentifierSet) Add(id string) bool {
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

// Has reports whether the identifier is present
func (s *IdentifierSet) Has(id string) bool {
	_, ok := s.seen[id]
	return ok
}

// Len returns the number of identifiers in the set
func (s *IdentifierSet) Len() int {
	return len(s.order)
}

// Slice returns the identifiers in insertion order
func (s *IdentifierSet) Slice() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
