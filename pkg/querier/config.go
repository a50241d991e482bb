package querier

import (
	"fmt"
	"log/slog"
	"time"
)

const (
	defaultQueryTimeout   = 30 * time.Second
	defaultMaxErrorLength = 1000
)

type Config struct {
	Logger *slog.Logger
	DB     Beginner

	// QueryTimeout bounds a single statement execution (default 30s).
	QueryTimeout time.Duration

	// MaxErrorLength caps driver error text surfaced to callers (default 1000).
	MaxErrorLength int
}

func (cfg *Config) Validate() error {
	if cfg.DB == nil {
		return fmt.Errorf("database is required")
	}
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = defaultQueryTimeout
	}
	if cfg.MaxErrorLength == 0 {
		cfg.MaxErrorLength = defaultMaxErrorLength
	}
	return nil
}
