package cmd

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/Dhairya-911/vedang-portfolio/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile            string
	origin             string
	cacheVersion       string
	namespace          string
	storageBackend     string
	storagePath        string
	lockDir            string
	listenAddr         string
	userAgent          string
	timeout            time.Duration
	cleanupInterval    time.Duration
	imageMaxEntries    int
	maxAttempt         int
	noRevalidateImages bool
	noRevalidateStatic bool
	logLevel           string
	logFormat          string
	manifestOutput     string
	cleanStale         bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "offline-cache",
	Short: "An offline resource cache for the portfolio site.",
	Long: `offline-cache sits between a browser and the portfolio site and keeps
versioned cache partitions of its pages, stylesheets, scripts, images and API
responses, so the site keeps working when the origin is unreachable.

Each resource class is served with its own strategy: images and static assets
come from the cache first, API calls go to the network first, and every
failure resolves to a cached copy or a synthesized fallback.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// RootCommand exposes the command tree to tests.
func RootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config-file", "", "config file path (e.g., /etc/offline-cache/config.json)")
	flags.StringVar(&origin, "origin", "", "origin of the cached site (e.g., https://vedang.example)")
	flags.StringVar(&cacheVersion, "cache-version", "", "version tag embedded in partition names")
	flags.StringVar(&namespace, "namespace", "", "prefix of partition names")
	flags.StringVar(&storageBackend, "storage", "", "storage backend: memory or sqlite")
	flags.StringVar(&storagePath, "storage-path", "", "sqlite database file")
	flags.StringVar(&lockDir, "lock-dir", "", "directory for cross-process install locks")
	flags.StringVar(&listenAddr, "listen", "", "address the serve command listens on")
	flags.StringVar(&userAgent, "user-agent", "", "user agent string for outbound requests")
	flags.DurationVar(&timeout, "timeout", 0, "timeout for one outbound request (0 keeps the configured value)")
	flags.DurationVar(&cleanupInterval, "cleanup-interval", 0, "how often the image partition is trimmed")
	flags.IntVar(&imageMaxEntries, "image-max-entries", 0, "maximum entries kept in the image partition")
	flags.IntVar(&maxAttempt, "max-attempt", 0, "attempts per precache fetch during install")
	flags.BoolVar(&noRevalidateImages, "no-revalidate-images", false, "serve cached images without refreshing them")
	flags.BoolVar(&noRevalidateStatic, "no-revalidate-static", false, "serve cached static assets without refreshing them")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&logFormat, "log-format", "", "log format: text or json")

	manifestCmd.Flags().StringVarP(&manifestOutput, "output", "o", "", "write the manifest to this file instead of stdout")
	cleanCmd.Flags().BoolVar(&cleanStale, "stale", false, "also drop partitions that belong to other versions")

	rootCmd.AddCommand(serveCmd, installCmd, cleanCmd, partitionsCmd, manifestCmd, versionCmd)
}

// InitConfigWithError resolves the effective config. Precedence is flags,
// then OFFLINE_CACHE_* environment variables, then the config file, then
// defaults.
func InitConfigWithError() (config.Config, error) {
	var configBuilder *config.Config
	if cfgFile != "" {
		fileCfg, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return config.Config{}, fmt.Errorf("error initializing config from file: %w", err)
		}
		configBuilder = &fileCfg
	} else {
		// origin must then come from the environment or a flag
		configBuilder = config.WithDefault(url.URL{})
	}

	configBuilder, err := configBuilder.WithEnv()
	if err != nil {
		return config.Config{}, err
	}

	// Override with CLI flag values where provided
	if origin != "" {
		parsed, err := url.Parse(origin)
		if err != nil {
			return config.Config{}, fmt.Errorf("%w: origin: %s", config.ErrInvalidConfig, err.Error())
		}
		configBuilder = configBuilder.WithOrigin(*parsed)
	}

	if cacheVersion != "" {
		configBuilder = configBuilder.WithVersion(cacheVersion)
	}

	if namespace != "" {
		configBuilder = configBuilder.WithNamespace(namespace)
	}

	if storageBackend != "" {
		configBuilder = configBuilder.WithStorageBackend(storageBackend)
	}

	if storagePath != "" {
		configBuilder = configBuilder.WithStoragePath(storagePath)
	}

	if lockDir != "" {
		configBuilder = configBuilder.WithLockDir(lockDir)
	}

	if listenAddr != "" {
		configBuilder = configBuilder.WithListenAddr(listenAddr)
	}

	if userAgent != "" {
		configBuilder = configBuilder.WithUserAgent(userAgent)
	}

	if timeout > 0 {
		configBuilder = configBuilder.WithTimeout(timeout)
	}

	if cleanupInterval > 0 {
		configBuilder = configBuilder.WithCleanupInterval(cleanupInterval)
	}

	if imageMaxEntries > 0 {
		configBuilder = configBuilder.WithImageMaxEntries(imageMaxEntries)
	}

	if maxAttempt > 0 {
		configBuilder = configBuilder.WithMaxAttempt(maxAttempt)
	}

	if noRevalidateImages {
		configBuilder = configBuilder.WithRevalidateImages(false)
	}

	if noRevalidateStatic {
		configBuilder = configBuilder.WithRevalidateStatic(false)
	}

	if logLevel != "" {
		configBuilder = configBuilder.WithLogLevel(logLevel)
	}

	if logFormat != "" {
		configBuilder = configBuilder.WithLogFormat(logFormat)
	}

	return configBuilder.Build()
}

func ResetFlags() {
	cfgFile = ""
	origin = ""
	cacheVersion = ""
	namespace = ""
	storageBackend = ""
	storagePath = ""
	lockDir = ""
	listenAddr = ""
	userAgent = ""
	timeout = 0
	cleanupInterval = 0
	imageMaxEntries = 0
	maxAttempt = 0
	noRevalidateImages = false
	noRevalidateStatic = false
	logLevel = ""
	logFormat = ""
	manifestOutput = ""
	cleanStale = false
}

// Test helper functions to set flag values from tests
func SetConfigFileForTest(path string) {
	cfgFile = path
}

func SetOriginForTest(o string) {
	origin = o
}

func SetCacheVersionForTest(v string) {
	cacheVersion = v
}

func SetNamespaceForTest(ns string) {
	namespace = ns
}

func SetStorageForTest(backend string, path string) {
	storageBackend = backend
	storagePath = path
}

func SetLockDirForTest(dir string) {
	lockDir = dir
}

func SetTimeoutForTest(t time.Duration) {
	timeout = t
}

func SetImageMaxEntriesForTest(n int) {
	imageMaxEntries = n
}

func SetNoRevalidateImagesForTest(disabled bool) {
	noRevalidateImages = disabled
}

func SetLogFormatForTest(format string) {
	logFormat = format
}
