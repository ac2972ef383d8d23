package partition_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/Dhairya-911/vedang-portfolio/internal/metadata"
	"github.com/Dhairya-911/vedang-portfolio/internal/partition"
	"github.com/Dhairya-911/vedang-portfolio/internal/partition/memory"
	"github.com/Dhairya-911/vedang-portfolio/pkg/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_OpenTwiceSharesEntries(t *testing.T) {
	ctx := context.Background()
	registry := partition.NewRegistry(memory.NewStore(0))

	first, err := registry.Open(ctx, "vedang-images-v2.1")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "https://vedang.example/img/x.jpg", nil)
	require.NoError(t, first.Put(ctx, req, partition.Response{Status: http.StatusOK, Body: []byte("jpg")}))

	second, err := registry.Open(ctx, "vedang-images-v2.1")
	require.NoError(t, err)
	got, ok, err := second.Match(ctx, req)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("jpg"), got.Response.Body)
	assert.False(t, got.StoredAt.IsZero())

	names, err := registry.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"vedang-images-v2.1"}, names)
}

func TestRegistry_OpenRejectsEmptyName(t *testing.T) {
	registry := partition.NewRegistry(memory.NewStore(0))
	_, err := registry.Open(context.Background(), " ")
	assert.ErrorIs(t, err, &partition.StorageError{Cause: partition.ErrCauseInvalidName})
}

func TestPartition_PutStoresACopy(t *testing.T) {
	ctx := context.Background()
	registry := partition.NewRegistry(memory.NewStore(0))
	p, err := registry.Open(ctx, "p")
	require.NoError(t, err)

	body := []byte("original")
	req := httptest.NewRequest(http.MethodGet, "https://vedang.example/css/app.css", nil)
	require.NoError(t, p.Put(ctx, req, partition.Response{Status: http.StatusOK, Body: body}))
	body[0] = 'X'

	got, _, err := p.Match(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "original", string(got.Response.Body))
}

func TestPartition_PutDropsCookies(t *testing.T) {
	ctx := context.Background()
	registry := partition.NewRegistry(memory.NewStore(0))
	p, err := registry.Open(ctx, "p")
	require.NoError(t, err)

	header := http.Header{"Content-Type": {"application/json"}, "Set-Cookie": {"session=1"}}
	req := httptest.NewRequest(http.MethodGet, "https://vedang.example/api/contact", nil)
	require.NoError(t, p.Put(ctx, req, partition.Response{Status: http.StatusOK, Header: header}))

	got, _, err := p.Match(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, got.Response.Header.Get("Set-Cookie"))
	assert.Equal(t, "application/json", got.Response.Header.Get("Content-Type"))
	assert.Equal(t, "session=1", header.Get("Set-Cookie"))
}

func TestPartition_DeleteAndKeys(t *testing.T) {
	ctx := context.Background()
	registry := partition.NewRegistry(memory.NewStore(0))
	p, err := registry.Open(ctx, "p")
	require.NoError(t, err)

	a := httptest.NewRequest(http.MethodGet, "https://vedang.example/a.png", nil)
	b := httptest.NewRequest(http.MethodGet, "https://vedang.example/b.png", nil)
	require.NoError(t, p.Put(ctx, a, partition.Response{Status: http.StatusOK}))
	require.NoError(t, p.Put(ctx, b, partition.Response{Status: http.StatusOK}))

	removed, err := p.Delete(ctx, a)
	require.NoError(t, err)
	assert.True(t, removed)

	keys, err := p.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{partition.Key(b)}, keys)

	count, err := p.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestKey(t *testing.T) {
	withFragment := httptest.NewRequest(http.MethodGet, "https://vedang.example/", nil)
	withFragment.URL, _ = url.Parse("https://Vedang.Example:443/index.html#gallery")
	plain := httptest.NewRequest(http.MethodGet, "https://vedang.example/index.html", nil)
	withQuery := httptest.NewRequest(http.MethodGet, "https://vedang.example/index.html?v=2", nil)

	assert.Equal(t, "GET https://vedang.example/index.html", partition.Key(plain))
	assert.Equal(t, partition.Key(plain), partition.Key(withFragment))
	assert.NotEqual(t, partition.Key(plain), partition.Key(withQuery))
}

func TestResponse_ReaderIsRepeatable(t *testing.T) {
	resp := partition.Response{Status: http.StatusOK, Body: []byte("same bytes")}

	for i := 0; i < 3; i++ {
		data, err := io.ReadAll(resp.Reader())
		require.NoError(t, err)
		assert.Equal(t, "same bytes", string(data))
	}
}

func TestResponse_OK(t *testing.T) {
	assert.True(t, partition.Response{Status: 200}.OK())
	assert.True(t, partition.Response{Status: 204}.OK())
	assert.False(t, partition.Response{Status: 304}.OK())
	assert.False(t, partition.Response{Status: 404}.OK())
	assert.False(t, partition.Response{Status: 503}.OK())
}

func TestSet(t *testing.T) {
	set := partition.NewSet("vedang", "v2.1")

	assert.Equal(t, "vedang-critical-v2.1", set.Critical)
	assert.Equal(t, "vedang-static-v2.1", set.Static)
	assert.Equal(t, "vedang-dynamic-v2.1", set.Dynamic)
	assert.Equal(t, "vedang-images-v2.1", set.Images)
	assert.True(t, set.Contains("vedang-images-v2.1"))
	assert.False(t, set.Contains("vedang-images-v2.0"))
}

func TestStorageError_SeverityAndCause(t *testing.T) {
	quota := &partition.StorageError{Cause: partition.ErrCauseQuotaExceeded, Retryable: true}
	assert.Equal(t, failure.SeverityRecoverable, quota.Severity())
	assert.Equal(t, metadata.CauseStorageFailure, partition.MapStorageErrorToMetadataCause(quota))

	invalid := &partition.StorageError{Cause: partition.ErrCauseInvalidName}
	assert.Equal(t, failure.SeverityFatal, invalid.Severity())
	assert.Equal(t, metadata.CauseInvariantViolation, partition.MapStorageErrorToMetadataCause(invalid))
}
