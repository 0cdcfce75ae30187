package config

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"time"
)

const (
	DirName   = ".coffeeidx"
	EnvPrefix = "COFFEEIDX"
)

type IndexConfig struct {
	Dir             string        `mapstructure:"dir" yaml:"dir"`
	MaxFileSize     int64         `mapstructure:"max_file_size" yaml:"max_file_size"`
	MaxQueueSize    int           `mapstructure:"max_queue_size" yaml:"max_queue_size"`
	WorkerCount     int           `mapstructure:"worker_count" yaml:"worker_count"`
	RateLimit       int           `mapstructure:"rate_limit" yaml:"rate_limit"`
	Extensions      []string      `mapstructure:"extensions" yaml:"extensions"`
	ExcludePatterns []string      `mapstructure:"exclude_patterns" yaml:"exclude_patterns"`
	ResolverTTL     time.Duration `mapstructure:"resolver_ttl" yaml:"resolver_ttl"`
}

type WatcherConfig struct {
	Enabled        bool          `mapstructure:"enabled" yaml:"enabled"`
	DebounceWindow time.Duration `mapstructure:"debounce_window" yaml:"debounce_window"`
	MaxBatchSize   int           `mapstructure:"max_batch_size" yaml:"max_batch_size"`
	IgnorePatterns []string      `mapstructure:"ignore_patterns" yaml:"ignore_patterns"`
	WatchHidden    bool          `mapstructure:"watch_hidden" yaml:"watch_hidden"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type RPCConfig struct {
	SocketPath string `mapstructure:"socket_path" yaml:"socket_path"`
}

type Config struct {
	Index   IndexConfig   `mapstructure:"index" yaml:"index"`
	Watcher WatcherConfig `mapstructure:"watcher" yaml:"watcher"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	RPC     RPCConfig     `mapstructure:"rpc" yaml:"rpc"`
}

var defaultExcludes = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/bower_components/**",
	"**/vendor/**",
	"**/build/**",
	"**/dist/**",
}

func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, DirName)

	return &Config{
		Index: IndexConfig{
			Dir:             filepath.Join(dataDir, "index"),
			MaxFileSize:     4 * 1024 * 1024,
			MaxQueueSize:    1000,
			WorkerCount:     2,
			RateLimit:       200,
			Extensions:      []string{".coffee"},
			ExcludePatterns: append([]string(nil), defaultExcludes...),
			ResolverTTL:     2 * time.Second,
		},
		Watcher: WatcherConfig{
			Enabled:        true,
			DebounceWindow: 300 * time.Millisecond,
			MaxBatchSize:   100,
			IgnorePatterns: append([]string{"**/*.log", "**/.idea/**"}, defaultExcludes...),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		RPC: RPCConfig{
			SocketPath: filepath.Join(dataDir, "coffeeidx.sock"),
		},
	}
}

// IndexPath is the database file for one project root. Each root gets its own
// database so indexes of different projects never share entries.
func (c *Config) IndexPath(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	sum := sha256.Sum256([]byte(filepath.Clean(abs)))
	name := filepath.Base(abs) + "-" + hex.EncodeToString(sum[:8]) + ".db"
	return filepath.Join(c.Index.Dir, name)
}

func (c *Config) EnsureDirectories() error {
	return os.MkdirAll(c.Index.Dir, 0o700)
}
