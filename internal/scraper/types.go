package scraper

import (
	"context"
	"strings"
)

// BusinessRecord represents one extracted business listing
type BusinessRecord struct {
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
	Website     string `json:"website,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Zip         string `json:"zip,omitempty"`
	SourceURL   string `json:"source_url"`
}

// HasContactInfo reports whether the record carries at least one way to
// reach the business. Records failing this are excluded from the
// contact-info output view.
func (r *BusinessRecord) HasContactInfo() bool {
	return r.Phone != "" || r.Email != "" || r.Website != "" || r.Address != ""
}

// Categories returns the comma-joined category field as a slice
func (r *BusinessRecord) Categories() []string {
	if r.Category == "" {
		return nil
	}
	parts := strings.Split(r.Category, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Discoverer produces the full set of listing URLs for a directory
type Discoverer interface {
	// Discover enumerates all listing identifiers reachable from the
	// configured entry point
	Discover(ctx context.Context) (*IdentifierSet, error)

	// GetName returns the discoverer's name for logging and identification
	GetName() string
}
