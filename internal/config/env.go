package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

// envOverrides mirrors the overridable fields. It is seeded from the current
// config so unset variables keep the values already present.
type envOverrides struct {
	Origin           string        `env:"OFFLINE_CACHE_ORIGIN"`
	Version          string        `env:"OFFLINE_CACHE_VERSION"`
	Namespace        string        `env:"OFFLINE_CACHE_NAMESPACE"`
	CDNHosts         []string      `env:"OFFLINE_CACHE_CDN_HOSTS" envSeparator:","`
	APIPrefix        string        `env:"OFFLINE_CACHE_API_PREFIX"`
	ImageMaxEntries  int           `env:"OFFLINE_CACHE_IMAGE_MAX_ENTRIES"`
	CleanupInterval  time.Duration `env:"OFFLINE_CACHE_CLEANUP_INTERVAL"`
	RevalidateImages bool          `env:"OFFLINE_CACHE_REVALIDATE_IMAGES"`
	RevalidateStatic bool          `env:"OFFLINE_CACHE_REVALIDATE_STATIC"`
	StorageBackend   string        `env:"OFFLINE_CACHE_STORAGE"`
	StoragePath      string        `env:"OFFLINE_CACHE_STORAGE_PATH"`
	LockDir          string        `env:"OFFLINE_CACHE_LOCK_DIR"`
	MaxStorageBytes  int64         `env:"OFFLINE_CACHE_MAX_STORAGE_BYTES"`
	Timeout          time.Duration `env:"OFFLINE_CACHE_TIMEOUT"`
	UserAgent        string        `env:"OFFLINE_CACHE_USER_AGENT"`
	MaxAttempt       int           `env:"OFFLINE_CACHE_MAX_ATTEMPT"`
	ListenAddr       string        `env:"OFFLINE_CACHE_LISTEN"`
	LogLevel         string        `env:"OFFLINE_CACHE_LOG_LEVEL"`
	LogFormat        string        `env:"OFFLINE_CACHE_LOG_FORMAT"`
}

// WithEnv applies OFFLINE_CACHE_* environment variables on top of c.
func (c *Config) WithEnv() (*Config, error) {
	overrides := envOverrides{
		Origin:           c.origin.String(),
		Version:          c.version,
		Namespace:        c.namespace,
		CDNHosts:         c.cdnHosts,
		APIPrefix:        c.apiPrefix,
		ImageMaxEntries:  c.imageMaxEntries,
		CleanupInterval:  c.cleanupInterval,
		RevalidateImages: c.revalidateImages,
		RevalidateStatic: c.revalidateStatic,
		StorageBackend:   c.storageBackend,
		StoragePath:      c.storagePath,
		LockDir:          c.lockDir,
		MaxStorageBytes:  c.maxStorageBytes,
		Timeout:          c.timeout,
		UserAgent:        c.userAgent,
		MaxAttempt:       c.maxAttempt,
		ListenAddr:       c.listenAddr,
		LogLevel:         c.logLevel,
		LogFormat:        c.logFormat,
	}
	if err := env.Parse(&overrides); err != nil {
		return c, fmt.Errorf("%w: %s", ErrEnvParsingFail, err.Error())
	}

	if overrides.Origin != c.origin.String() {
		origin, err := url.Parse(overrides.Origin)
		if err != nil {
			return c, fmt.Errorf("%w: OFFLINE_CACHE_ORIGIN: %s", ErrEnvParsingFail, err.Error())
		}
		c.origin = *origin
	}
	c.version = overrides.Version
	c.namespace = overrides.Namespace
	c.cdnHosts = overrides.CDNHosts
	c.apiPrefix = overrides.APIPrefix
	c.imageMaxEntries = overrides.ImageMaxEntries
	c.cleanupInterval = overrides.CleanupInterval
	c.revalidateImages = overrides.RevalidateImages
	c.revalidateStatic = overrides.RevalidateStatic
	c.storageBackend = overrides.StorageBackend
	c.storagePath = overrides.StoragePath
	c.lockDir = overrides.LockDir
	c.maxStorageBytes = overrides.MaxStorageBytes
	c.timeout = overrides.Timeout
	c.userAgent = overrides.UserAgent
	c.maxAttempt = overrides.MaxAttempt
	c.listenAddr = overrides.ListenAddr
	c.logLevel = overrides.LogLevel
	c.logFormat = overrides.LogFormat
	return c, nil
}
