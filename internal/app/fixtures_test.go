package app

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// memSource serves resources from a map; missing names are 404s.
type memSource struct {
	mu    sync.Mutex
	files map[string]string
	calls map[string]int
}

func newMemSource(files map[string]string) *memSource {
	return &memSource{files: files, calls: make(map[string]int)}
}

func (m *memSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[name]++
	data, ok := m.files[name]
	if !ok {
		return nil, &FetchError{Path: name, StatusCode: http.StatusNotFound}
	}
	return []byte(data), nil
}

func (m *memSource) set(name, data string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = data
}

func (m *memSource) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

// writeSiteDir lays out files below a temporary site root.
func writeSiteDir(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

const testIndex = `[
  {"year": 2024, "term": "fall"},
  {"year": 2024, "term": "spring"}
]`

const testFallEvents = `[
  {"date": "Sep 10", "title": "Knots and Braids", "speaker": "Ada Lovelace", "abstract": "An introduction to knot invariants."},
  {"date": "Sep 17", "title": "TBD", "speaker": "Emmy Noether", "abstract": "TBD"},
  {"date": "Sep 24", "title": "No Title", "speaker": "Nobody"},
  {"date": "Oct 1st", "events": [
    {"title": "Lightning Talk A", "speaker": "Alan Turing"},
    {"title": "Lightning Talk B", "speaker": "TBA"}
  ]},
  {"date": "Oct 8", "title": "Career Night", "speaker": "", "link": "https://example.org/careers"}
]`

const testSpringEvents = `[
  {"date": "2024-02-14", "title": "Valentine Graphs", "speaker": "Paul Erdos", "abstract": "No abstract available"}
]`

const testLeadership = `[
  {"name": "Sofia Kovalevskaya", "title": "President", "image": "images/sofia.jpg", "bio": "Analysis enthusiast."},
  {"name": "Henri Poincare", "title": "Treasurer"}
]`

const testPreviousLeadership = `{
  "2023": {"president": "Carl Gauss", "vice president": "Sophie Germain"},
  "2022": {"president": "Leonhard Euler"},
  "2021": {"president": "Bernhard Riemann", "vice president": ""}
}`

const testWorkshop = `{
  "title": "Proof Writing Workshop Fall 2025",
  "material": [
    {"week": 1, "title": "Direct Proofs", "date": "Sep 3", "time": "5:00 PM", "pdf_link": "proofwriting_workshop_data/week1.pdf"},
    {"week": 2, "pdf_link": "proofwriting_workshop_data/week2.pdf"}
  ]
}`

func testFiles() map[string]string {
	return map[string]string{
		"events/index.json":                            testIndex,
		"events/2024_fall_events.json":                 testFallEvents,
		"events/2024_spring_events.json":               testSpringEvents,
		"data/leadership_2025.json":                    testLeadership,
		"data/previous_leadership.json":                testPreviousLeadership,
		"proofwriting_workshop_data/2025_fall_pw.json": testWorkshop,
		"proofwriting_workshop_data/w1.pdf":            "%PDF-1.4",
	}
}

// testNow is a Monday in the fall 2024 semester.
var testNow = time.Date(2024, time.September, 16, 12, 0, 0, 0, time.UTC)

func newTestSite(t *testing.T, src Source) *Site {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Site.Timezone = "UTC"
	site := NewSite(cfg, src, nil)
	site.Now = func() time.Time { return testNow }
	site.ReloadCatalog(context.Background())
	return site
}
