package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/Dhairya-911/vedang-portfolio/internal/lifecycle"
	"github.com/Dhairya-911/vedang-portfolio/internal/partition"
	"github.com/Dhairya-911/vedang-portfolio/internal/resource"
	"github.com/Dhairya-911/vedang-portfolio/pkg/retry"
	"github.com/Dhairya-911/vedang-portfolio/pkg/timeutil"
)

const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"

	LogFormatText = "text"
	LogFormatJSON = "json"
)

type Config struct {
	//===============
	//  Identity
	//===============
	// Origin the cached site is served from. Origin-form requests are
	// resolved against it.
	origin url.URL
	// Version tag embedded in every partition name. Changing it is the only
	// way to invalidate the previous version's partitions.
	version string
	// Prefix of every partition name.
	namespace string

	//===============
	// Precache
	//===============
	criticalResources []string
	staticResources   []string
	imageResources    []string
	// Maximum number of manifest fetches in flight during install. Zero
	// means unbounded.
	installConcurrency int

	//===============
	// Classification
	//===============
	cdnHosts        []string
	apiPrefix       string
	imageExtensions []string

	//===============
	// Eviction
	//===============
	imageMaxEntries int
	cleanupInterval time.Duration

	//===============
	// Strategy
	//===============
	revalidateImages bool
	revalidateStatic bool

	//===============
	// Storage
	//===============
	// memory or sqlite
	storageBackend string
	// sqlite database file
	storagePath string
	// Directory for cross-process install locks. Empty means in-process
	// locking only.
	lockDir string
	// Upper bound on stored bytes for the memory backend. Zero disables it.
	maxStorageBytes int64

	//===============
	// Fetch
	//===============
	// Maximum time of a single network fetch. Zero means no limit.
	timeout   time.Duration
	userAgent string
	// Retry applies to install fetches only.
	maxAttempt             int
	baseDelay              time.Duration
	jitter                 time.Duration
	randomSeed             int64
	backoffInitialDuration time.Duration
	backoffMultiplier      float64
	backoffMaxDuration     time.Duration

	//===============
	// Serve
	//===============
	listenAddr string
	logLevel   string
	logFormat  string
}

// Duration accepts either a Go duration string ("5m") or integer
// nanoseconds in JSON.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*d = Duration(time.Duration(v))
		return nil
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	default:
		return fmt.Errorf("invalid duration %s", string(data))
	}
}

type configDTO struct {
	Origin             string              `json:"origin"`
	Version            string              `json:"version,omitempty"`
	Namespace          string              `json:"namespace,omitempty"`
	Manifest           *lifecycle.Manifest `json:"manifest,omitempty"`
	InstallConcurrency int                 `json:"installConcurrency,omitempty"`
	CDNHosts           []string            `json:"cdnHosts,omitempty"`
	APIPrefix          string              `json:"apiPrefix,omitempty"`
	ImageExtensions    []string            `json:"imageExtensions,omitempty"`
	ImageMaxEntries    int                 `json:"imageMaxEntries,omitempty"`
	CleanupInterval    Duration            `json:"cleanupInterval,omitempty"`
	RevalidateImages   *bool               `json:"revalidateImages,omitempty"`
	RevalidateStatic   *bool               `json:"revalidateStatic,omitempty"`
	StorageBackend     string              `json:"storageBackend,omitempty"`
	StoragePath        string              `json:"storagePath,omitempty"`
	LockDir            string              `json:"lockDir,omitempty"`
	MaxStorageBytes    int64               `json:"maxStorageBytes,omitempty"`
	// Timeout is a pointer since zero is meaningful.
	Timeout                *Duration `json:"timeout,omitempty"`
	UserAgent              string    `json:"userAgent,omitempty"`
	MaxAttempt             int       `json:"maxAttempt,omitempty"`
	BaseDelay              Duration  `json:"baseDelay,omitempty"`
	Jitter                 Duration  `json:"jitter,omitempty"`
	RandomSeed             int64     `json:"randomSeed,omitempty"`
	BackoffInitialDuration Duration  `json:"backoffInitialDuration,omitempty"`
	BackoffMultiplier      float64   `json:"backoffMultiplier,omitempty"`
	BackoffMaxDuration     Duration  `json:"backoffMaxDuration,omitempty"`
	ListenAddr             string    `json:"listenAddr,omitempty"`
	LogLevel               string    `json:"logLevel,omitempty"`
	LogFormat              string    `json:"logFormat,omitempty"`
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	if strings.TrimSpace(dto.Origin) == "" {
		return Config{}, fmt.Errorf("%w: origin cannot be empty", ErrInvalidConfig)
	}
	origin, err := url.Parse(dto.Origin)
	if err != nil {
		return Config{}, fmt.Errorf("%w: origin: %s", ErrInvalidConfig, err.Error())
	}

	cfg := WithDefault(*origin)

	// Only override when a non-zero value is provided
	if dto.Version != "" {
		cfg.version = dto.Version
	}
	if dto.Namespace != "" {
		cfg.namespace = dto.Namespace
	}
	// An explicit manifest replaces the default one entirely
	if dto.Manifest != nil {
		cfg.criticalResources = dto.Manifest.Critical
		cfg.staticResources = dto.Manifest.Static
		cfg.imageResources = dto.Manifest.Images
	}
	if dto.InstallConcurrency != 0 {
		cfg.installConcurrency = dto.InstallConcurrency
	}
	if len(dto.CDNHosts) > 0 {
		cfg.cdnHosts = dto.CDNHosts
	}
	if dto.APIPrefix != "" {
		cfg.apiPrefix = dto.APIPrefix
	}
	if len(dto.ImageExtensions) > 0 {
		cfg.imageExtensions = dto.ImageExtensions
	}
	if dto.ImageMaxEntries != 0 {
		cfg.imageMaxEntries = dto.ImageMaxEntries
	}
	if dto.CleanupInterval != 0 {
		cfg.cleanupInterval = time.Duration(dto.CleanupInterval)
	}
	if dto.RevalidateImages != nil {
		cfg.revalidateImages = *dto.RevalidateImages
	}
	if dto.RevalidateStatic != nil {
		cfg.revalidateStatic = *dto.RevalidateStatic
	}
	if dto.StorageBackend != "" {
		cfg.storageBackend = dto.StorageBackend
	}
	if dto.StoragePath != "" {
		cfg.storagePath = dto.StoragePath
	}
	if dto.LockDir != "" {
		cfg.lockDir = dto.LockDir
	}
	if dto.MaxStorageBytes != 0 {
		cfg.maxStorageBytes = dto.MaxStorageBytes
	}
	if dto.Timeout != nil {
		cfg.timeout = time.Duration(*dto.Timeout)
	}
	if dto.UserAgent != "" {
		cfg.userAgent = dto.UserAgent
	}
	if dto.MaxAttempt != 0 {
		cfg.maxAttempt = dto.MaxAttempt
	}
	if dto.BaseDelay != 0 {
		cfg.baseDelay = time.Duration(dto.BaseDelay)
	}
	if dto.Jitter != 0 {
		cfg.jitter = time.Duration(dto.Jitter)
	}
	if dto.RandomSeed != 0 {
		cfg.randomSeed = dto.RandomSeed
	}
	if dto.BackoffInitialDuration != 0 {
		cfg.backoffInitialDuration = time.Duration(dto.BackoffInitialDuration)
	}
	if dto.BackoffMultiplier != 0 {
		cfg.backoffMultiplier = dto.BackoffMultiplier
	}
	if dto.BackoffMaxDuration != 0 {
		cfg.backoffMaxDuration = time.Duration(dto.BackoffMaxDuration)
	}
	if dto.ListenAddr != "" {
		cfg.listenAddr = dto.ListenAddr
	}
	if dto.LogLevel != "" {
		cfg.logLevel = dto.LogLevel
	}
	if dto.LogFormat != "" {
		cfg.logFormat = dto.LogFormat
	}

	return cfg.Build()
}

func WithConfigFile(path string) (Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	cfgDTO := configDTO{}

	err = json.Unmarshal(configContent, &cfgDTO)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	return newConfigFromDTO(cfgDTO)
}

// WithDefault creates a new Config for origin with default values for all
// other fields. The precache manifest defaults to the portfolio's critical
// and static resources.
func WithDefault(origin url.URL) *Config {
	defaultConfig := Config{
		origin:    origin,
		version:   "v2.1",
		namespace: "vedang",
		criticalResources: []string{
			"/",
			"/index.html",
			"/css/critical-optimized.css",
			"/js/performance-advanced.js",
			"/images/weddings/KPS-34.jpg",
		},
		staticResources: []string{
			"/css/style.css",
			"/css/carousel.css",
			"/css/no-cursor.css",
			"/css/performance.css",
			"/css/mobile-performance.css",
			"/css/image-optimization.css",
			"/js/main-optimized.js",
			"/js/carousel.js",
			"/js/gsap-animations-optimized.js",
			"/js/contact.js",
			"https://cdnjs.cloudflare.com/ajax/libs/gsap/3.12.2/gsap.min.js",
			"https://cdnjs.cloudflare.com/ajax/libs/gsap/3.12.2/ScrollTrigger.min.js",
			"https://cdnjs.cloudflare.com/ajax/libs/gsap/3.12.2/ScrollToPlugin.min.js",
			"https://fonts.googleapis.com/css2?family=Inter:wght@300;400;500;600;700&family=Playfair+Display:wght@400;500;600;700&display=swap",
		},
		imageResources:         []string{},
		installConcurrency:     6,
		cdnHosts:               append([]string(nil), resource.DefaultCDNHosts...),
		apiPrefix:              resource.DefaultAPIPrefix,
		imageExtensions:        append([]string(nil), resource.DefaultImageExtensions...),
		imageMaxEntries:        50,
		cleanupInterval:        5 * time.Minute,
		revalidateImages:       true,
		revalidateStatic:       true,
		storageBackend:         StorageMemory,
		storagePath:            "offline-cache.db",
		lockDir:                "",
		maxStorageBytes:        0,
		timeout:                0,
		userAgent:              "offline-cache/1.0",
		maxAttempt:             1,
		baseDelay:              0,
		jitter:                 100 * time.Millisecond,
		randomSeed:             time.Now().UnixNano(),
		backoffInitialDuration: 200 * time.Millisecond,
		backoffMultiplier:      2.0,
		backoffMaxDuration:     5 * time.Second,
		listenAddr:             "127.0.0.1:8080",
		logLevel:               "info",
		logFormat:              LogFormatText,
	}
	return &defaultConfig
}

func (c *Config) WithOrigin(origin url.URL) *Config {
	c.origin = origin
	return c
}

func (c *Config) WithVersion(version string) *Config {
	c.version = version
	return c
}

func (c *Config) WithNamespace(namespace string) *Config {
	c.namespace = namespace
	return c
}

func (c *Config) WithManifest(manifest lifecycle.Manifest) *Config {
	c.criticalResources = manifest.Critical
	c.staticResources = manifest.Static
	c.imageResources = manifest.Images
	return c
}

func (c *Config) WithInstallConcurrency(concurrency int) *Config {
	c.installConcurrency = concurrency
	return c
}

func (c *Config) WithCDNHosts(hosts []string) *Config {
	c.cdnHosts = hosts
	return c
}

func (c *Config) WithAPIPrefix(prefix string) *Config {
	c.apiPrefix = prefix
	return c
}

func (c *Config) WithImageExtensions(extensions []string) *Config {
	c.imageExtensions = extensions
	return c
}

func (c *Config) WithImageMaxEntries(entries int) *Config {
	c.imageMaxEntries = entries
	return c
}

func (c *Config) WithCleanupInterval(interval time.Duration) *Config {
	c.cleanupInterval = interval
	return c
}

func (c *Config) WithRevalidateImages(enabled bool) *Config {
	c.revalidateImages = enabled
	return c
}

func (c *Config) WithRevalidateStatic(enabled bool) *Config {
	c.revalidateStatic = enabled
	return c
}

func (c *Config) WithStorageBackend(backend string) *Config {
	c.storageBackend = backend
	return c
}

func (c *Config) WithStoragePath(path string) *Config {
	c.storagePath = path
	return c
}

func (c *Config) WithLockDir(dir string) *Config {
	c.lockDir = dir
	return c
}

func (c *Config) WithMaxStorageBytes(limit int64) *Config {
	c.maxStorageBytes = limit
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithMaxAttempt(attempts int) *Config {
	c.maxAttempt = attempts
	return c
}

func (c *Config) WithBaseDelay(delay time.Duration) *Config {
	c.baseDelay = delay
	return c
}

func (c *Config) WithJitter(jitter time.Duration) *Config {
	c.jitter = jitter
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithBackoffInitialDuration(duration time.Duration) *Config {
	c.backoffInitialDuration = duration
	return c
}

func (c *Config) WithBackoffMultiplier(multiplier float64) *Config {
	c.backoffMultiplier = multiplier
	return c
}

func (c *Config) WithBackoffMaxDuration(duration time.Duration) *Config {
	c.backoffMaxDuration = duration
	return c
}

func (c *Config) WithListenAddr(addr string) *Config {
	c.listenAddr = addr
	return c
}

func (c *Config) WithLogLevel(level string) *Config {
	c.logLevel = level
	return c
}

func (c *Config) WithLogFormat(format string) *Config {
	c.logFormat = format
	return c
}

func (c *Config) Build() (Config, error) {
	if c.origin.Host == "" || (c.origin.Scheme != "http" && c.origin.Scheme != "https") {
		return Config{}, fmt.Errorf("%w: origin must be an absolute http(s) url, got %q", ErrInvalidConfig, c.origin.String())
	}
	if strings.TrimSpace(c.version) == "" || strings.ContainsAny(c.version, " \t\n") {
		return Config{}, fmt.Errorf("%w: version must be a non-empty token", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.namespace) == "" || strings.ContainsAny(c.namespace, " \t\n") {
		return Config{}, fmt.Errorf("%w: namespace must be a non-empty token", ErrInvalidConfig)
	}
	if !strings.HasPrefix(c.apiPrefix, "/") {
		return Config{}, fmt.Errorf("%w: apiPrefix must start with '/'", ErrInvalidConfig)
	}
	if c.imageMaxEntries < 1 {
		return Config{}, fmt.Errorf("%w: imageMaxEntries must be at least 1", ErrInvalidConfig)
	}
	if c.cleanupInterval <= 0 {
		return Config{}, fmt.Errorf("%w: cleanupInterval must be positive", ErrInvalidConfig)
	}
	if c.installConcurrency < 0 {
		return Config{}, fmt.Errorf("%w: installConcurrency cannot be negative", ErrInvalidConfig)
	}
	switch c.storageBackend {
	case StorageMemory:
	case StorageSQLite:
		if strings.TrimSpace(c.storagePath) == "" {
			return Config{}, fmt.Errorf("%w: storagePath is required for the sqlite backend", ErrInvalidConfig)
		}
	default:
		return Config{}, fmt.Errorf("%w: unknown storageBackend %q", ErrInvalidConfig, c.storageBackend)
	}
	if c.maxStorageBytes < 0 {
		return Config{}, fmt.Errorf("%w: maxStorageBytes cannot be negative", ErrInvalidConfig)
	}
	if c.timeout < 0 {
		return Config{}, fmt.Errorf("%w: timeout cannot be negative", ErrInvalidConfig)
	}
	if c.maxAttempt < 1 {
		return Config{}, fmt.Errorf("%w: maxAttempt must be at least 1", ErrInvalidConfig)
	}
	if c.backoffMultiplier < 1 {
		return Config{}, fmt.Errorf("%w: backoffMultiplier must be at least 1", ErrInvalidConfig)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("%w: unknown logLevel %q", ErrInvalidConfig, c.logLevel)
	}
	switch c.logFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return Config{}, fmt.Errorf("%w: unknown logFormat %q", ErrInvalidConfig, c.logFormat)
	}

	return *c, nil
}

func (c Config) Origin() url.URL {
	return c.origin
}

func (c Config) Version() string {
	return c.version
}

func (c Config) Namespace() string {
	return c.namespace
}

// Partitions names the four partitions of the configured version.
func (c Config) Partitions() partition.Set {
	return partition.NewSet(c.namespace, c.version)
}

func (c Config) Manifest() lifecycle.Manifest {
	return lifecycle.Manifest{
		Critical: append([]string(nil), c.criticalResources...),
		Static:   append([]string(nil), c.staticResources...),
		Images:   append([]string(nil), c.imageResources...),
	}
}

// RootDocuments are the absolute URLs served to offline navigations.
func (c Config) RootDocuments() []string {
	root := c.origin
	root.Path = "/index.html"
	root.RawQuery = ""
	root.Fragment = ""
	slash := root
	slash.Path = "/"
	return []string{root.String(), slash.String()}
}

func (c Config) InstallConcurrency() int {
	return c.installConcurrency
}

func (c Config) CDNHosts() []string {
	return append([]string(nil), c.cdnHosts...)
}

func (c Config) APIPrefix() string {
	return c.apiPrefix
}

func (c Config) ImageExtensions() []string {
	return append([]string(nil), c.imageExtensions...)
}

func (c Config) ImageMaxEntries() int {
	return c.imageMaxEntries
}

func (c Config) CleanupInterval() time.Duration {
	return c.cleanupInterval
}

func (c Config) RevalidateImages() bool {
	return c.revalidateImages
}

func (c Config) RevalidateStatic() bool {
	return c.revalidateStatic
}

func (c Config) StorageBackend() string {
	return c.storageBackend
}

func (c Config) StoragePath() string {
	return c.storagePath
}

func (c Config) LockDir() string {
	return c.lockDir
}

func (c Config) MaxStorageBytes() int64 {
	return c.maxStorageBytes
}

func (c Config) Timeout() time.Duration {
	return c.timeout
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) MaxAttempt() int {
	return c.maxAttempt
}

func (c Config) BaseDelay() time.Duration {
	return c.baseDelay
}

func (c Config) Jitter() time.Duration {
	return c.jitter
}

func (c Config) RandomSeed() int64 {
	return c.randomSeed
}

func (c Config) BackoffInitialDuration() time.Duration {
	return c.backoffInitialDuration
}

func (c Config) BackoffMultiplier() float64 {
	return c.backoffMultiplier
}

func (c Config) BackoffMaxDuration() time.Duration {
	return c.backoffMaxDuration
}

// RetryParam assembles the install retry policy.
func (c Config) RetryParam() retry.RetryParam {
	return retry.NewRetryParam(
		c.baseDelay,
		c.jitter,
		c.randomSeed,
		c.maxAttempt,
		timeutil.NewBackoffParam(c.backoffInitialDuration, c.backoffMultiplier, c.backoffMaxDuration),
	)
}

func (c Config) ListenAddr() string {
	return c.listenAddr
}

func (c Config) LogLevel() string {
	return c.logLevel
}

func (c Config) LogFormat() string {
	return c.logFormat
}
