package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoIndexDir   = errors.New("index.dir is required")
	ErrNoExtensions = errors.New("index.extensions must not be empty")
)

func Validate(cfg *Config) error {
	var errs []error

	if strings.TrimSpace(cfg.Index.Dir) == "" {
		errs = append(errs, ErrNoIndexDir)
	}
	if len(cfg.Index.Extensions) == 0 {
		errs = append(errs, ErrNoExtensions)
	}
	for _, ext := range cfg.Index.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Errorf("index.extensions: %q must start with a dot", ext))
		}
	}
	if cfg.Index.WorkerCount < 1 {
		errs = append(errs, fmt.Errorf("index.worker_count must be at least 1, got %d", cfg.Index.WorkerCount))
	}
	if cfg.Index.MaxQueueSize < 1 {
		errs = append(errs, fmt.Errorf("index.max_queue_size must be at least 1, got %d", cfg.Index.MaxQueueSize))
	}
	if cfg.Index.MaxFileSize <= 0 {
		errs = append(errs, fmt.Errorf("index.max_file_size must be positive, got %d", cfg.Index.MaxFileSize))
	}
	if cfg.Index.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("index.rate_limit must not be negative, got %d", cfg.Index.RateLimit))
	}
	if cfg.Watcher.MaxBatchSize < 1 {
		errs = append(errs, fmt.Errorf("watcher.max_batch_size must be at least 1, got %d", cfg.Watcher.MaxBatchSize))
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format))
	}

	return errors.Join(errs...)
}
