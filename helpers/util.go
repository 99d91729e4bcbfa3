package helpers

import (
	"strings"
)

// ListingSlug returns the last non-empty path segment of a listing URL,
// used as a stable short name in logs and stream keys.
func ListingSlug(url string) string {
	trimmed := strings.TrimRight(url, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 || idx == len(trimmed)-1 {
		return trimmed
	}
	return trimmed[idx+1:]
}
