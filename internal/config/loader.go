package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration for a project root.
// Priority, lowest to highest: defaults, <root>/.coffeeidx/config.yaml, COFFEEIDX_* env.
func Load(root string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(root, DirName))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, Default())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("index.dir", d.Index.Dir)
	v.SetDefault("index.max_file_size", d.Index.MaxFileSize)
	v.SetDefault("index.max_queue_size", d.Index.MaxQueueSize)
	v.SetDefault("index.worker_count", d.Index.WorkerCount)
	v.SetDefault("index.rate_limit", d.Index.RateLimit)
	v.SetDefault("index.extensions", d.Index.Extensions)
	v.SetDefault("index.exclude_patterns", d.Index.ExcludePatterns)
	v.SetDefault("index.resolver_ttl", d.Index.ResolverTTL)

	v.SetDefault("watcher.enabled", d.Watcher.Enabled)
	v.SetDefault("watcher.debounce_window", d.Watcher.DebounceWindow)
	v.SetDefault("watcher.max_batch_size", d.Watcher.MaxBatchSize)
	v.SetDefault("watcher.ignore_patterns", d.Watcher.IgnorePatterns)
	v.SetDefault("watcher.watch_hidden", d.Watcher.WatchHidden)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("rpc.socket_path", d.RPC.SocketPath)
}
