package scraper

import (
	"github.com/The-culture-connection/businessesgrabber/config"
	"github.com/The-culture-connection/businessesgrabber/pkg/errors"
)

// NewDiscoverer selects the discovery strategy from the configuration.
// The browser session is only required for the browser strategy.
func NewDiscoverer(cfg *config.Config, fetcher PageFetcher, session BrowserSession) (Discoverer, error) {
	switch cfg.DiscoveryMethod {
	case config.StrategySitemap:
		return NewSitemapDiscoverer(cfg.SitemapURL, cfg.DetailPath), nil

	case config.StrategyPagination:
		return NewPaginationDiscoverer(cfg.EntryURL, cfg.DetailPath, cfg.MaxPages, cfg.RequestDelay, fetcher), nil

	case config.StrategyBrowser:
		if session == nil {
			return nil, errors.NewConfiguration("browser discovery requires a browser session", nil)
		}
		return NewBrowserDiscoverer(session, cfg.EntryURL, cfg.DetailPath, cfg.StaleRounds, cfg.MaxRounds, cfg.RequestDelay), nil

	default:
		return nil, errors.NewConfiguration("unknown discovery method: "+cfg.DiscoveryMethod, nil)
	}
}
