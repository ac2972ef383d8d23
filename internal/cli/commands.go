package cmd

import (
	"context"
	"fmt"
	"net/url"
	"text/tabwriter"

	"github.com/Dhairya-911/vedang-portfolio/internal/build"
	"github.com/Dhairya-911/vedang-portfolio/internal/config"
	"github.com/Dhairya-911/vedang-portfolio/internal/fetcher"
	"github.com/Dhairya-911/vedang-portfolio/internal/manifest"
	"github.com/Dhairya-911/vedang-portfolio/internal/metadata"
	"github.com/Dhairya-911/vedang-portfolio/internal/resource"
	"github.com/Dhairya-911/vedang-portfolio/internal/worker"
	"github.com/Dhairya-911/vedang-portfolio/pkg/urlutil"
	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Precache the configured version and activate it",
	Long: `install fetches every manifest entry, writes the partitions of the
configured version and drops partitions left by other versions. Nothing is
written unless every entry was fetched.`,
	RunE: func(c *cobra.Command, _ []string) error {
		return withWorker(c, func(ctx context.Context, cfg config.Config, w *worker.Worker) error {
			if err := w.Install(ctx); err != nil {
				return fmt.Errorf("install %s: %w", cfg.Version(), err)
			}
			removed, err := w.Activate(ctx)
			if err != nil {
				return fmt.Errorf("activate %s: %w", cfg.Version(), err)
			}

			out := c.OutOrStdout()
			m := cfg.Manifest()
			fmt.Fprintf(out, "Installed %s: %d precached entries\n", cfg.Version(), m.Len())
			for _, name := range removed {
				fmt.Fprintf(out, "Removed %s\n", name)
			}
			return nil
		})
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Trim the image partition to its entry limit",
	RunE: func(c *cobra.Command, _ []string) error {
		return withWorker(c, func(ctx context.Context, cfg config.Config, w *worker.Worker) error {
			out := c.OutOrStdout()
			removed, err := w.Clean(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Evicted %d entries\n", removed)

			if !cleanStale {
				return nil
			}
			infos, err := w.Partitions(ctx)
			if err != nil {
				return err
			}
			for _, info := range infos {
				if info.Current {
					continue
				}
				if _, err := w.Drop(ctx, info.Name); err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %s\n", info.Name)
			}
			return nil
		})
	},
}

var partitionsCmd = &cobra.Command{
	Use:   "partitions",
	Short: "List cache partitions and their entry counts",
	RunE: func(c *cobra.Command, _ []string) error {
		return withWorker(c, func(ctx context.Context, _ config.Config, w *worker.Worker) error {
			infos, err := w.Partitions(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(c.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tENTRIES\tCURRENT")
			for _, info := range infos {
				fmt.Fprintf(tw, "%s\t%d\t%t\n", info.Name, info.Entries, info.Current)
			}
			return tw.Flush()
		})
	},
}

var manifestCmd = &cobra.Command{
	Use:   "manifest [page...]",
	Short: "Generate a precache manifest from site pages",
	Long: `manifest fetches the given pages (paths or URLs, default the origin
root) and prints the stylesheets, scripts, icons and images they reference,
grouped the way the config file's manifest field expects.`,
	RunE: func(c *cobra.Command, args []string) error {
		cfg, err := InitConfigWithError()
		if err != nil {
			return err
		}
		origin := cfg.Origin()

		if len(args) == 0 {
			args = []string{"/"}
		}
		pages := make([]url.URL, 0, len(args))
		for _, arg := range args {
			page, err := urlutil.Resolve(origin, arg)
			if err != nil {
				return fmt.Errorf("page %q: %w", arg, err)
			}
			pages = append(pages, page)
		}

		recorder := metadata.NewRecorder(newLogger(c.ErrOrStderr(), cfg.LogLevel(), cfg.LogFormat()), nil)
		pageFetcher := fetcher.NewNetworkFetcher(recorder, cfg.Timeout(), cfg.UserAgent())
		classifier := resource.NewClassifier(origin, cfg.CDNHosts(), cfg.APIPrefix(), cfg.ImageExtensions())

		m, err := manifest.Generate(c.Context(), pageFetcher, pages, classifier)
		if err != nil {
			return err
		}
		if manifestOutput != "" {
			if err := manifest.Write(manifestOutput, m); err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "Wrote %d entries to %s\n", m.Len(), manifestOutput)
			return nil
		}
		data, err := manifest.Encode(m)
		if err != nil {
			return err
		}
		_, err = c.OutOrStdout().Write(data)
		return err
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(c *cobra.Command, _ []string) {
		fmt.Fprintln(c.OutOrStdout(), build.FullVersion())
	},
}

// withWorker resolves the config, opens storage and hands fn a worker for
// the configured version. The worker is not installed.
func withWorker(c *cobra.Command, fn func(ctx context.Context, cfg config.Config, w *worker.Worker) error) error {
	cfg, err := InitConfigWithError()
	if err != nil {
		return err
	}
	rt, err := openRuntime(cfg, c.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	w := worker.New(cfg, rt.deps)
	defer w.Wait()
	return fn(c.Context(), cfg, w)
}
