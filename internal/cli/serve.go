package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Dhairya-911/vedang-portfolio/internal/config"
	"github.com/Dhairya-911/vedang-portfolio/internal/eviction"
	"github.com/Dhairya-911/vedang-portfolio/internal/worker"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Install the current version and serve the site through the cache",
	Long: `serve installs and activates the configured cache version, then listens
for HTTP requests. Origin-form requests are resolved against the configured
origin; absolute-form requests are handled as a forward proxy.

SIGHUP reloads the configuration and deploys it as a new version. The
previous version keeps serving if the new one fails to install.`,
	RunE: func(c *cobra.Command, _ []string) error {
		cfg, err := InitConfigWithError()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		reload := make(chan struct{})
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-hup:
					select {
					case reload <- struct{}{}:
					case <-ctx.Done():
						return
					}
				}
			}
		}()

		listener, err := net.Listen("tcp", cfg.ListenAddr())
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.ListenAddr(), err)
		}
		return serve(ctx, cfg, listener, reload, InitConfigWithError, c.OutOrStdout(), c.ErrOrStderr())
	},
}

// janitorRunner keeps exactly one janitor running for the controlling worker.
type janitorRunner struct {
	parent context.Context
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func (j *janitorRunner) restart(w *worker.Worker, interval time.Duration) {
	j.stop()
	ctx, cancel := context.WithCancel(j.parent)
	j.cancel = cancel
	janitor := eviction.NewJanitor(interval, w.Cleaner())
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		janitor.Run(ctx)
	}()
}

func (j *janitorRunner) stop() {
	if j.cancel != nil {
		j.cancel()
		j.cancel = nil
	}
	j.wg.Wait()
}

// serve runs until ctx is done. Each receive on reload re-resolves the
// config through load and deploys it.
func serve(
	ctx context.Context,
	cfg config.Config,
	listener net.Listener,
	reload <-chan struct{},
	load func() (config.Config, error),
	out io.Writer,
	logOut io.Writer,
) error {
	rt, err := openRuntime(cfg, logOut)
	if err != nil {
		_ = listener.Close()
		return err
	}
	defer rt.Close()

	host := worker.NewHost(rt.deps)
	w, err := host.Deploy(ctx, cfg)
	if err != nil {
		_ = listener.Close()
		return fmt.Errorf("deploy %s: %w", cfg.Version(), err)
	}
	rt.logger.Info("worker controlling", "version", w.Version(), "listen", listener.Addr().String())

	janitors := &janitorRunner{parent: ctx}
	janitors.restart(w, cfg.CleanupInterval())
	defer janitors.stop()

	srv := &http.Server{
		Handler:           worker.NewHandler(host, rt.tracker, nil),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(listener)
	}()

	for running := true; running; {
		select {
		case <-ctx.Done():
			running = false
		case err := <-serveErr:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			running = false
		case <-reload:
			next, err := load()
			if err != nil {
				rt.logger.Error("reload config", "error", err)
				continue
			}
			deployed, err := host.Deploy(ctx, next)
			if err != nil {
				rt.logger.Error("deploy failed, previous version still serving", "version", next.Version(), "error", err)
				continue
			}
			janitors.restart(deployed, next.CleanupInterval())
			rt.logger.Info("worker controlling", "version", deployed.Version())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		rt.logger.Warn("shutdown", "error", err)
	}
	janitors.stop()
	host.Wait()

	stats := rt.tracker.GetAllStats()
	if len(stats) > 0 {
		fmt.Fprintln(out, "Latency:")
		for _, s := range stats {
			fmt.Fprintln(out, s.String())
		}
	}
	return nil
}
