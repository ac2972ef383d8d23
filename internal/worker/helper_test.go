package worker_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/Dhairya-911/vedang-portfolio/internal/config"
	"github.com/Dhairya-911/vedang-portfolio/internal/fetcher"
	"github.com/Dhairya-911/vedang-portfolio/internal/lifecycle"
	"github.com/Dhairya-911/vedang-portfolio/internal/locking"
	"github.com/Dhairya-911/vedang-portfolio/internal/metadata"
	"github.com/Dhairya-911/vedang-portfolio/internal/metadata/metadatatest"
	"github.com/Dhairya-911/vedang-portfolio/internal/partition"
	"github.com/Dhairya-911/vedang-portfolio/internal/partition/memory"
	"github.com/Dhairya-911/vedang-portfolio/internal/worker"
	"github.com/stretchr/testify/require"
)

type site struct {
	server *httptest.Server

	mu       sync.Mutex
	hits     map[string]int
	posted   []string
	pages    map[string]string
	failures map[string]int
}

func newSite(t *testing.T) *site {
	t.Helper()
	s := &site{
		hits: map[string]int{},
		pages: map[string]string{
			"/":                "<html>root</html>",
			"/index.html":      "<html>index</html>",
			"/css/style.css":   "body{}",
			"/js/main.js":      "main()",
			"/images/hero.jpg": "jpeg-bytes",
			"/api/contact":     `{"ok":true}`,
		},
		failures: map[string]int{},
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.server.Close)
	return s
}

func (s *site) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.Method+" "+r.URL.Path]++
	status, failing := s.failures[r.URL.Path]
	body, found := s.pages[r.URL.Path]
	s.mu.Unlock()

	if r.Method == http.MethodPost {
		payload, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.posted = append(s.posted, string(payload))
		s.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"received":true}`))
		return
	}
	if failing {
		w.WriteHeader(status)
		return
	}
	if !found {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write([]byte(body))
}

func (s *site) hitCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[key]
}

func (s *site) fail(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = status
}

func (s *site) origin(t *testing.T) url.URL {
	t.Helper()
	u, err := url.Parse(s.server.URL)
	require.NoError(t, err)
	return *u
}

func (s *site) config(t *testing.T, version string) config.Config {
	t.Helper()
	cfg, err := config.WithDefault(s.origin(t)).
		WithVersion(version).
		WithManifest(lifecycle.Manifest{
			Critical: []string{"/", "/index.html"},
			Static:   []string{"/css/style.css"},
			Images:   []string{"/images/hero.jpg"},
		}).
		WithRevalidateStatic(false).
		WithRevalidateImages(false).
		WithImageMaxEntries(2).
		Build()
	require.NoError(t, err)
	return cfg
}

type env struct {
	site     *site
	registry *partition.Registry
	sink     *metadatatest.RecordingSink
	deps     worker.Deps
}

func newEnv(t *testing.T) *env {
	t.Helper()
	s := newSite(t)
	registry := partition.NewRegistry(memory.NewStore(0))
	sink := &metadatatest.RecordingSink{}
	return &env{
		site:     s,
		registry: registry,
		sink:     sink,
		deps: worker.Deps{
			Registry:     registry,
			Network:      fetcher.NewNetworkFetcherWithClient(&metadata.NoopSink{}, s.server.Client(), "offline-cache-test"),
			Lock:         locking.NewMemLock(),
			MetadataSink: sink,
		},
	}
}

func (e *env) names(t *testing.T) []string {
	t.Helper()
	names, err := e.registry.Names(t.Context())
	require.NoError(t, err)
	return names
}
