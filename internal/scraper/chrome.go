package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// loadMoreScript clicks the first visible, enabled load-more control.
// Returns true when something was clicked.
const loadMoreScript = `(function() {
	var labels = ['load more', 'show more', 'view more'];
	var nodes = document.querySelectorAll('button, a, input[type=button], input[type=submit]');
	for (var i = 0; i < nodes.length; i++) {
		var el = nodes[i];
		var text = (el.innerText || el.value || '').trim().toLowerCase();
		var matched = false;
		for (var j = 0; j < labels.length; j++) {
			if (text.indexOf(labels[j]) !== -1) { matched = true; break; }
		}
		if (!matched) continue;
		if (el.disabled) continue;
		var style = window.getComputedStyle(el);
		if (style.display === 'none' || style.visibility === 'hidden') continue;
		el.click();
		return true;
	}
	return false;
})()`

// ChromeSession implements BrowserSession on a headless Chrome instance
// driven over the DevTools protocol.
type ChromeSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	stepTimeout time.Duration
}

// NewChromeSession starts a Chrome instance tied to the given parent
// context
func NewChromeSession(parent context.Context, headless bool) (*ChromeSession, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	taskCtx, cancel := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so a missing Chrome binary surfaces here
	if err := chromedp.Run(taskCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &ChromeSession{
		ctx:         taskCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		stepTimeout: 30 * time.Second,
	}, nil
}

// Navigate loads the URL and waits for the body to be ready
func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := s.runContext()
	defer cancel()
	return chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// LoadMore scrolls to the bottom and clicks a load-more control if one
// is present
func (s *ChromeSession) LoadMore(ctx context.Context) error {
	runCtx, cancel := s.runContext()
	defer cancel()

	var clicked bool
	return chromedp.Run(runCtx,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
		chromedp.Evaluate(loadMoreScript, &clicked),
	)
}

// ListingLinks returns the hrefs of all anchors currently in the DOM.
// Filtering to listing URLs happens in the discoverer.
func (s *ChromeSession) ListingLinks(ctx context.Context) ([]string, error) {
	runCtx, cancel := s.runContext()
	defer cancel()

	var hrefs []string
	err := chromedp.Run(runCtx,
		chromedp.Evaluate(`Array.from(document.querySelectorAll('a[href]')).map(function(a) { return a.href; })`, &hrefs),
	)
	if err != nil {
		return nil, err
	}
	return hrefs, nil
}

// Close shuts down the browser
func (s *ChromeSession) Close() error {
	s.cancel()
	s.allocCancel()
	return nil
}

func (s *ChromeSession) runContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.ctx, s.stepTimeout)
}
