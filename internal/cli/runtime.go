package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Dhairya-911/vedang-portfolio/internal/config"
	"github.com/Dhairya-911/vedang-portfolio/internal/fetcher"
	"github.com/Dhairya-911/vedang-portfolio/internal/locking"
	"github.com/Dhairya-911/vedang-portfolio/internal/metadata"
	"github.com/Dhairya-911/vedang-portfolio/internal/metrics"
	"github.com/Dhairya-911/vedang-portfolio/internal/partition"
	"github.com/Dhairya-911/vedang-portfolio/internal/partition/memory"
	"github.com/Dhairya-911/vedang-portfolio/internal/partition/sqlite"
	"github.com/Dhairya-911/vedang-portfolio/internal/worker"
)

// runtime holds the process-wide collaborators every command shares.
type runtime struct {
	logger   *slog.Logger
	tracker  *metrics.LatencyTracker
	registry *partition.Registry
	deps     worker.Deps
}

func newLogger(w io.Writer, level string, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func openStore(cfg config.Config) (partition.Store, error) {
	switch cfg.StorageBackend() {
	case config.StorageSQLite:
		return sqlite.Open(cfg.StoragePath())
	case config.StorageMemory:
		return memory.NewStore(cfg.MaxStorageBytes()), nil
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", config.ErrInvalidConfig, cfg.StorageBackend())
	}
}

// openLock picks a cross-process file lock whenever the cache outlives the
// process, so two installs against one database never interleave.
func openLock(cfg config.Config) (locking.Group, error) {
	dir := cfg.LockDir()
	if dir == "" && cfg.StorageBackend() == config.StorageSQLite {
		dir = filepath.Dir(cfg.StoragePath())
	}
	if dir == "" {
		return locking.NewMemLock(), nil
	}
	return locking.NewFileLock(dir)
}

func openRuntime(cfg config.Config, logOut io.Writer) (*runtime, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	lock, err := openLock(cfg)
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}

	logger := newLogger(logOut, cfg.LogLevel(), cfg.LogFormat())
	tracker := metrics.NewLatencyTracker(0.01)
	recorder := metadata.NewRecorder(logger, tracker)
	registry := partition.NewRegistry(store)

	return &runtime{
		logger:   logger,
		tracker:  tracker,
		registry: registry,
		deps: worker.Deps{
			Registry:     registry,
			Network:      fetcher.NewNetworkFetcher(recorder, cfg.Timeout(), cfg.UserAgent()),
			Lock:         lock,
			MetadataSink: recorder,
		},
	}, nil
}

func (r *runtime) Close() error {
	return r.registry.Close()
}
