package strategy_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Dhairya-911/vedang-portfolio/internal/fetcher"
	"github.com/Dhairya-911/vedang-portfolio/internal/metadata/metadatatest"
	"github.com/Dhairya-911/vedang-portfolio/internal/partition"
	"github.com/Dhairya-911/vedang-portfolio/internal/partition/memory"
	"github.com/Dhairya-911/vedang-portfolio/internal/strategy"
	"github.com/Dhairya-911/vedang-portfolio/pkg/failure"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const origin = "https://vedang.example"

type networkMock struct {
	mock.Mock
}

func (m *networkMock) Fetch(ctx context.Context, req *http.Request) (partition.Response, failure.ClassifiedError) {
	args := m.Called(ctx, req)
	var err failure.ClassifiedError
	if e := args.Get(1); e != nil {
		err = e.(failure.ClassifiedError)
	}
	return args.Get(0).(partition.Response), err
}

func path(p string) interface{} {
	return mock.MatchedBy(func(r *http.Request) bool {
		return r.URL.Path == p
	})
}

func offline() failure.ClassifiedError {
	return &fetcher.FetchError{Message: "dial tcp: connection refused", Retryable: true, Cause: fetcher.ErrCauseNetworkFailure}
}

func ok(contentType, body string) partition.Response {
	return partition.Response{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": {contentType}},
		Body:   []byte(body),
	}
}

func get(target string, headers ...string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, origin+target, nil)
	if len(target) > 0 && target[0] != '/' {
		req = httptest.NewRequest(http.MethodGet, target, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return req
}

type fixture struct {
	registry   *partition.Registry
	names      partition.Set
	network    *networkMock
	sink       *metadatatest.RecordingSink
	dispatcher *strategy.Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	registry := partition.NewRegistry(memory.NewStore(0))
	names := partition.NewSet("vedang", "v2.1")
	for _, name := range names.Names() {
		_, err := registry.Open(ctx, name)
		require.NoError(t, err)
	}

	network := &networkMock{}
	sink := &metadatatest.RecordingSink{}
	options := strategy.DefaultOptions()
	options.RootDocuments = []string{origin + "/index.html", origin + "/"}

	return &fixture{
		registry:   registry,
		names:      names,
		network:    network,
		sink:       sink,
		dispatcher: strategy.NewDispatcher(registry, network, names, options, sink),
	}
}

func (f *fixture) seed(t *testing.T, name string, req *http.Request, resp partition.Response) {
	t.Helper()
	p, err := f.registry.Open(context.Background(), name)
	require.NoError(t, err)
	require.NoError(t, p.Put(context.Background(), req, resp))
}

func (f *fixture) cached(t *testing.T, name string, req *http.Request) (partition.Entry, bool) {
	t.Helper()
	entry, hit, err := f.registry.Partition(name).Match(context.Background(), req)
	require.NoError(t, err)
	return entry, hit
}

// gatedNetwork blocks every Fetch until release is closed and counts calls.
type gatedNetwork struct {
	calls   int32
	started chan struct{}
	release chan struct{}
	once    sync.Once
	resp    partition.Response
}

func (g *gatedNetwork) Fetch(ctx context.Context, req *http.Request) (partition.Response, failure.ClassifiedError) {
	atomic.AddInt32(&g.calls, 1)
	g.once.Do(func() { close(g.started) })
	<-g.release
	return g.resp, nil
}
