package scraper

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// mockFetcher serves canned HTML per URL and counts fetches so tests
// can assert on network I/O
type mockFetcher struct {
	pages   map[string]string
	fetches map[string]int
	mu      sync.Mutex
}

var _ PageFetcher = (*mockFetcher)(nil)

func newMockFetcher() *mockFetcher {
	return &mockFetcher{
		pages:   make(map[string]string),
		fetches: make(map[string]int),
	}
}

func (m *mockFetcher) Fetch(_ context.Context, url string) (io.Reader, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches[url]++
	page, ok := m.pages[url]
	if !ok {
		return nil, fmt.Errorf("fetch %s unexpected status code: 500", url)
	}
	return strings.NewReader(page), nil
}

func (m *mockFetcher) fetchCount(url string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches[url]
}

// mockSession simulates a lazily loading directory page: each LoadMore
// reveals the next batch of links until the batches are exhausted
type mockSession struct {
	batches    [][]string
	revealed   int
	loadMores  int
	navigated  string
	closed     bool
	linksCalls int
}

var _ BrowserSession = (*mockSession)(nil)

func (m *mockSession) Navigate(_ context.Context, url string) error {
	m.navigated = url
	return nil
}

func (m *mockSession) LoadMore(_ context.Context) error {
	m.loadMores++
	if m.revealed < len(m.batches) {
		m.revealed++
	}
	return nil
}

func (m *mockSession) ListingLinks(_ context.Context) ([]string, error) {
	m.linksCalls++
	var links []string
	for i := 0; i < m.revealed; i++ {
		links = append(links, m.batches[i]...)
	}
	return links, nil
}

func (m *mockSession) Close() error {
	m.closed = true
	return nil
}

// mockWriter records every persisted snapshot in order
type mockWriter struct {
	mu     sync.Mutex
	writes []mockWrite
	fail   bool
}

type mockWrite struct {
	path    string
	records []BusinessRecord
}

var _ RecordWriter = (*mockWriter)(nil)

func (m *mockWriter) WriteJSON(path string, records []BusinessRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return fmt.Errorf("disk full")
	}
	snapshot := make([]BusinessRecord, len(records))
	copy(snapshot, records)
	m.writes = append(m.writes, mockWrite{path: path, records: snapshot})
	return nil
}

func (m *mockWriter) lastWrite() (mockWrite, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.writes) == 0 {
		return mockWrite{}, false
	}
	return m.writes[len(m.writes)-1], true
}

func (m *mockWriter) writesTo(path string) []mockWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []mockWrite
	for _, w := range m.writes {
		if w.path == path {
			out = append(out, w)
		}
	}
	return out
}
