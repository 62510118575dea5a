package types

import (
	"errors"
	"time"
)

// Config validation errors.
var (
	ErrPoolSizeInvalid      = errors.New("pool size must not be negative")
	ErrConnLifetimeInvalid  = errors.New("connection lifetime must not be negative")
	ErrCacheEntriesInvalid  = errors.New("cache entry bound must not be negative")
	ErrHealthPeriodInvalid  = errors.New("health check period must not be negative")
)

// Config holds storage parameters for Store.Attach. Zero values select
// defaults via the Get* accessors.
type Config struct {
	// DataDir is the directory holding the database file.
	// Empty means the current directory.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// Pool controls connection pool sizing and recycling.
	Pool PoolConfig `json:"pool" yaml:"pool"`

	// Cache controls the in-process read cache.
	Cache CacheConfig `json:"cache" yaml:"cache"`
}

// PoolConfig sizes the connection pool for the expected 50-150 concurrent
// callers. Base connections stay open; overflow connections are opened on
// demand and recycled.
type PoolConfig struct {
	BaseConns             int `json:"base_conns" yaml:"base_conns"`
	OverflowConns         int `json:"overflow_conns" yaml:"overflow_conns"`
	ConnMaxLifetimeSecs   int `json:"conn_max_lifetime_secs" yaml:"conn_max_lifetime_secs"`
	HealthCheckPeriodSecs int `json:"health_check_period_secs" yaml:"health_check_period_secs"`
}

// CacheConfig bounds the read cache.
type CacheConfig struct {
	MaxEntries int `json:"max_entries" yaml:"max_entries"`
}

// Pool defaults.
const (
	defaultBaseConns         = 10
	defaultOverflowConns     = 20
	defaultConnMaxLifetime   = 15 * time.Minute
	defaultHealthCheckPeriod = 30 * time.Second
	defaultCacheMaxEntries   = 1024
)

// GetBaseConns returns the configured base pool size or the default.
func (p PoolConfig) GetBaseConns() int {
	if p.BaseConns > 0 {
		return p.BaseConns
	}
	return defaultBaseConns
}

// GetOverflowConns returns the configured overflow allowance or the default.
func (p PoolConfig) GetOverflowConns() int {
	if p.OverflowConns > 0 {
		return p.OverflowConns
	}
	return defaultOverflowConns
}

// GetConnMaxLifetime returns how long a pooled connection may live before
// being recycled.
func (p PoolConfig) GetConnMaxLifetime() time.Duration {
	if p.ConnMaxLifetimeSecs > 0 {
		return time.Duration(p.ConnMaxLifetimeSecs) * time.Second
	}
	return defaultConnMaxLifetime
}

// GetHealthCheckPeriod returns the interval between pool health pings.
func (p PoolConfig) GetHealthCheckPeriod() time.Duration {
	if p.HealthCheckPeriodSecs > 0 {
		return time.Duration(p.HealthCheckPeriodSecs) * time.Second
	}
	return defaultHealthCheckPeriod
}

// GetMaxEntries returns the cache size bound or the default.
func (c CacheConfig) GetMaxEntries() int {
	if c.MaxEntries > 0 {
		return c.MaxEntries
	}
	return defaultCacheMaxEntries
}

// Validate checks that the Config is well-formed. It returns a sentinel
// error from this package on failure.
func (c Config) Validate() error {
	if c.Pool.BaseConns < 0 || c.Pool.OverflowConns < 0 {
		return ErrPoolSizeInvalid
	}
	if c.Pool.ConnMaxLifetimeSecs < 0 {
		return ErrConnLifetimeInvalid
	}
	if c.Pool.HealthCheckPeriodSecs < 0 {
		return ErrHealthPeriodInvalid
	}
	if c.Cache.MaxEntries < 0 {
		return ErrCacheEntriesInvalid
	}
	return nil
}
