// Package config holds the coordinator's runtime configuration, loaded from
// command-line flags the way cmd/proc-worker loads its own: plain
// flag.String/flag.Duration calls rather than a configuration framework, so
// the same Config can also be built programmatically for library embedding.
package config

import (
	"flag"
	"time"
)

// LockMode mirrors cacheaccess.LockMode as a string for flag parsing,
// avoiding an import of cacheaccess from this leaf package.
type LockMode string

const (
	LockModeShared    LockMode = "shared"
	LockModeExclusive LockMode = "exclusive"
	LockModeNone      LockMode = "none"
)

// Config is the coordinator's runtime configuration.
type Config struct {
	Mode               LockMode
	LockFilePath       string
	CacheDir           string
	MetricsAddr        string
	WaiterPollInterval time.Duration
	LRUSize            int
}

// Default returns the programmatic defaults used when embedding the
// coordinator as a library rather than driving it from the CLI.
func Default() Config {
	return Config{
		Mode:               LockModeExclusive,
		LockFilePath:       "cachecoord.lock",
		CacheDir:           "cachecoord-data",
		MetricsAddr:        "",
		WaiterPollInterval: 150 * time.Millisecond,
		LRUSize:            256,
	}
}

// RegisterFlags binds fs to c's fields, seeding defaults from Default() for
// anything the caller hasn't already set.
func RegisterFlags(fs *flag.FlagSet, c *Config) {
	def := Default()
	if c.Mode == "" {
		c.Mode = def.Mode
	}
	if c.LockFilePath == "" {
		c.LockFilePath = def.LockFilePath
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
	if c.WaiterPollInterval == 0 {
		c.WaiterPollInterval = def.WaiterPollInterval
	}
	if c.LRUSize == 0 {
		c.LRUSize = def.LRUSize
	}

	fs.StringVar((*string)(&c.Mode), "lock-mode", string(c.Mode), "lock mode: shared, exclusive, or none")
	fs.StringVar(&c.LockFilePath, "lock-file", c.LockFilePath, "path to the coordinator's lock file")
	fs.StringVar(&c.CacheDir, "cache-dir", c.CacheDir, "directory holding cache data files")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "address to serve Prometheus /metrics on (empty disables metrics)")
	fs.DurationVar(&c.WaiterPollInterval, "waiter-poll-interval", c.WaiterPollInterval, "how often a lock holder polls for contention")
	fs.IntVar(&c.LRUSize, "lru-size", c.LRUSize, "in-process LRU capacity per cache, 0 disables it")
}
