package worker_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Dhairya-911/vedang-portfolio/internal/lifecycle"
	"github.com/Dhairya-911/vedang-portfolio/internal/message"
	"github.com/Dhairya-911/vedang-portfolio/internal/metadata"
	"github.com/Dhairya-911/vedang-portfolio/internal/partition"
	"github.com/Dhairya-911/vedang-portfolio/internal/resource"
	"github.com/Dhairya-911/vedang-portfolio/internal/strategy"
	"github.com/Dhairya-911/vedang-portfolio/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeWorker(t *testing.T, e *env) *worker.Worker {
	t.Helper()
	w := worker.New(e.site.config(t, "v2.1"), e.deps)
	require.NoError(t, w.Install(context.Background()))
	_, err := w.Activate(context.Background())
	require.NoError(t, err)
	return w
}

func TestWorker_BypassesUntilControlling(t *testing.T) {
	e := newEnv(t)
	w := worker.New(e.site.config(t, "v2.1"), e.deps)
	req := httptest.NewRequest(http.MethodGet, e.site.server.URL+"/css/style.css", nil)

	_, handled := w.Fetch(context.Background(), req)
	assert.False(t, handled)

	require.NoError(t, w.Install(context.Background()))
	_, handled = w.Fetch(context.Background(), req)
	assert.False(t, handled, "installed but waiting workers do not intercept")

	_, err := w.Activate(context.Background())
	require.NoError(t, err)
	result, handled := w.Fetch(context.Background(), req)
	require.True(t, handled)
	assert.Equal(t, strategy.SourceCache, result.Source)
	assert.Equal(t, resource.ClassStatic, result.Class)
	assert.Equal(t, "body{}", string(result.Response.Body))
}

func TestWorker_BypassesNonGetAndNonHTTP(t *testing.T) {
	e := newEnv(t)
	w := activeWorker(t, e)

	post := httptest.NewRequest(http.MethodPost, e.site.server.URL+"/api/contact", nil)
	_, handled := w.Fetch(context.Background(), post)
	assert.False(t, handled)

	ws := httptest.NewRequest(http.MethodGet, e.site.server.URL+"/socket", nil)
	ws.URL.Scheme = "ws"
	_, handled = w.Fetch(context.Background(), ws)
	assert.False(t, handled)
}

func TestWorker_ImageMissThenMatch(t *testing.T) {
	e := newEnv(t)
	e.site.pages["/img/x.jpg"] = "x-bytes"
	w := activeWorker(t, e)
	req := httptest.NewRequest(http.MethodGet, e.site.server.URL+"/img/x.jpg", nil)

	first, handled := w.Fetch(context.Background(), req)
	require.True(t, handled)
	assert.Equal(t, strategy.SourceNetwork, first.Source)

	entry, hit, err := e.registry.Partition(w.Names().Images).Match(context.Background(), req)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "x-bytes", string(entry.Response.Body))

	second, _ := w.Fetch(context.Background(), req)
	assert.Equal(t, strategy.SourceCache, second.Source)
	assert.Equal(t, 1, e.site.hitCount("GET /img/x.jpg"))
}

func TestWorker_MessageCleanCache(t *testing.T) {
	e := newEnv(t)
	w := activeWorker(t, e)
	images := e.registry.Partition(w.Names().Images)
	for i := 0; i < 3; i++ {
		key := fmt.Sprintf("GET %s/img/%d.png", e.site.server.URL, i)
		require.NoError(t, images.PutKey(context.Background(), key, partition.Response{Status: http.StatusOK}))
	}

	reply, err := w.Message(context.Background(), []byte(`{"type":"CLEAN_CACHE"}`))

	require.NoError(t, err)
	assert.True(t, reply.OK)
	assert.Equal(t, 2, reply.Removed, "hero.jpg plus three images, limit two")
	count, err := images.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, e.sink.Evictions(), 1)
}

func TestWorker_MessageUnknown(t *testing.T) {
	e := newEnv(t)
	w := activeWorker(t, e)

	_, err := w.Message(context.Background(), []byte(`{"type":"SKIP_WAITING"}`))

	assert.True(t, errors.Is(err, &message.MessageError{Cause: message.ErrCauseUnknownCommand}))
	errs := e.sink.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, metadata.CauseContentInvalid, errs[0].Cause)
}

func TestWorker_Partitions(t *testing.T) {
	e := newEnv(t)
	_, err := e.registry.Open(context.Background(), "vedang-static-v2.0")
	require.NoError(t, err)
	w := worker.New(e.site.config(t, "v2.1"), e.deps)
	require.NoError(t, w.Install(context.Background()))

	infos, err := w.Partitions(context.Background())

	require.NoError(t, err)
	require.Len(t, infos, 5)
	byName := map[string]worker.PartitionInfo{}
	for _, info := range infos {
		byName[info.Name] = info
	}
	assert.Equal(t, 2, byName["vedang-critical-v2.1"].Entries)
	assert.True(t, byName["vedang-critical-v2.1"].Current)
	assert.False(t, byName["vedang-static-v2.0"].Current)
	assert.Equal(t, lifecycle.StateInstalled, w.State())
}

func TestWorker_DropRefusesCurrentVersion(t *testing.T) {
	e := newEnv(t)
	_, err := e.registry.Open(context.Background(), "vedang-static-v2.0")
	require.NoError(t, err)
	w := activeWorker(t, e)
	_, err = e.registry.Open(context.Background(), "vedang-static-v2.0")
	require.NoError(t, err)

	dropped, err := w.Drop(context.Background(), "vedang-static-v2.1")
	require.Error(t, err)
	assert.False(t, dropped)

	dropped, err = w.Drop(context.Background(), "vedang-static-v2.0")
	require.NoError(t, err)
	assert.True(t, dropped)
	assert.NotContains(t, e.names(t), "vedang-static-v2.0")
	assert.Contains(t, e.names(t), "vedang-static-v2.1")
}
