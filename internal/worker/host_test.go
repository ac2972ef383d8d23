package worker_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/Dhairya-911/vedang-portfolio/internal/lifecycle"
	"github.com/Dhairya-911/vedang-portfolio/internal/partition"
	"github.com/Dhairya-911/vedang-portfolio/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHost_DeploySupersedesPrevious(t *testing.T) {
	e := newEnv(t)
	host := worker.NewHost(e.deps)
	assert.Nil(t, host.Current())

	first, err := host.Deploy(context.Background(), e.site.config(t, "v2.0"))
	require.NoError(t, err)
	assert.Same(t, first, host.Current())
	assert.ElementsMatch(t, partition.NewSet("vedang", "v2.0").Names(), e.names(t))

	second, err := host.Deploy(context.Background(), e.site.config(t, "v2.1"))
	require.NoError(t, err)

	assert.Same(t, second, host.Current())
	assert.Equal(t, lifecycle.StateSuperseded, first.State())
	assert.False(t, first.Controlling())
	assert.Equal(t, lifecycle.StateActive, second.State())
	assert.ElementsMatch(t, partition.NewSet("vedang", "v2.1").Names(), e.names(t))
}

func TestHost_FailedDeployKeepsPreviousServing(t *testing.T) {
	e := newEnv(t)
	host := worker.NewHost(e.deps)
	current, err := host.Deploy(context.Background(), e.site.config(t, "v2.1"))
	require.NoError(t, err)

	e.site.fail("/css/style.css", http.StatusInternalServerError)
	_, err = host.Deploy(context.Background(), e.site.config(t, "v2.2"))

	require.Error(t, err)
	assert.Same(t, current, host.Current())
	assert.True(t, current.Controlling())
	assert.ElementsMatch(t, partition.NewSet("vedang", "v2.1").Names(), e.names(t))
}

func TestHost_RedeploySameVersion(t *testing.T) {
	e := newEnv(t)
	host := worker.NewHost(e.deps)
	_, err := host.Deploy(context.Background(), e.site.config(t, "v2.1"))
	require.NoError(t, err)
	installHits := e.site.hitCount("GET /css/style.css")

	again, err := host.Deploy(context.Background(), e.site.config(t, "v2.1"))

	require.NoError(t, err)
	assert.True(t, again.Controlling())
	assert.Equal(t, installHits, e.site.hitCount("GET /css/style.css"), "a completed install is resumed, not repeated")
	count, err := e.registry.Partition(again.Names().Critical).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestHost_RestartResumesWithoutOrigin(t *testing.T) {
	e := newEnv(t)
	_, err := worker.NewHost(e.deps).Deploy(context.Background(), e.site.config(t, "v2.1"))
	require.NoError(t, err)
	cfg := e.site.config(t, "v2.1")
	e.site.server.Close()

	restarted := worker.NewHost(e.deps)
	w, err := restarted.Deploy(context.Background(), cfg)

	require.NoError(t, err)
	assert.Same(t, w, restarted.Current())
	assert.Equal(t, lifecycle.StateActive, w.State())
	assert.ElementsMatch(t, partition.NewSet("vedang", "v2.1").Names(), e.names(t))
}

func TestHost_UnfinishedInstallNeedsOrigin(t *testing.T) {
	e := newEnv(t)
	for _, name := range partition.NewSet("vedang", "v2.1").Names() {
		_, err := e.registry.Open(context.Background(), name)
		require.NoError(t, err)
	}
	cfg := e.site.config(t, "v2.1")
	e.site.server.Close()

	_, err := worker.NewHost(e.deps).Deploy(context.Background(), cfg)

	require.Error(t, err)
}
