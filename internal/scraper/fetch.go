package scraper

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/The-culture-connection/businessesgrabber/helpers"
	"github.com/The-culture-connection/businessesgrabber/pkg/errors"
	"github.com/The-culture-connection/businessesgrabber/services/cache"
)

// PageFetcher fetches one URL and returns its UTF-8 body
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (io.Reader, error)
}

// HTTPFetcher fetches listing pages over plain HTTP. When the target
// site rate-limits, a block key is set in the cache service and all
// fetches fail fast until it expires.
type HTTPFetcher struct {
	CacheSvc  cache.CacheService
	BlockKey  string
	BlockTime time.Duration
}

// Fetch fetches a URL with rate limiting via the cache service
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (io.Reader, error) {
	// Check if fetching is currently blocked
	if f.CacheSvc != nil && f.BlockKey != "" {
		if _, err := f.CacheSvc.Get(f.BlockKey); err == nil {
			return nil, errors.NewRateLimit(url, f.BlockTime)
		}
	}

	body, err := helpers.FetchPage(ctx, url)
	if err != nil {
		if f.CacheSvc != nil && f.BlockKey != "" && helpers.IsRateLimited(err) {
			// Set the block key so subsequent fetches back off
			f.CacheSvc.Set(f.BlockKey, []byte(fmt.Sprintf("%d", int(f.BlockTime/time.Second))), f.BlockTime)
		}
		return nil, err
	}

	return body, nil
}
