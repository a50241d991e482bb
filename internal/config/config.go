// Package config loads typed settings from the environment and owns the
// Postgres connection pool setup.
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultModel          = "claude-sonnet-4-5"
	defaultMaxTokens      = 4096
	defaultLLMTimeout     = 60 * time.Second
	defaultQueryTimeout   = 30 * time.Second
	defaultMaxErrorLength = 1000
)

// DefaultTables is the initial whitelist of qualified table names.
var DefaultTables = []string{"dbo.customers", "dbo.remitTransactions"}

// Config holds all agent settings loaded from the environment.
type Config struct {
	// Postgres
	PostgresHost     string
	PostgresPort     string
	PostgresDB       string
	PostgresUser     string
	PostgresPassword string

	// Anthropic
	Model     string
	MaxTokens int64

	// Timeouts and limits
	LLMTimeout     time.Duration
	QueryTimeout   time.Duration
	MaxErrorLength int

	// Whitelisted tables (CSV override of DefaultTables)
	Tables []string
}

// Load reads configuration from environment variables. Only the database
// settings are required; everything else has defaults.
func Load() (*Config, error) {
	cfg := &Config{
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getenv("POSTGRES_PORT", "5432"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		Model:            getenv("MODEL_NAME", defaultModel),
		MaxTokens:        defaultMaxTokens,
		LLMTimeout:       defaultLLMTimeout,
		QueryTimeout:     defaultQueryTimeout,
		MaxErrorLength:   defaultMaxErrorLength,
		Tables:           DefaultTables,
	}

	if cfg.PostgresDB == "" {
		return nil, fmt.Errorf("POSTGRES_DB is required")
	}
	if cfg.PostgresUser == "" {
		return nil, fmt.Errorf("POSTGRES_USER is required")
	}

	if v, err := getenvInt("MAX_TOKENS", defaultMaxTokens); err != nil {
		return nil, err
	} else {
		cfg.MaxTokens = int64(v)
	}
	if v, err := getenvInt("MAX_ERROR_LENGTH", defaultMaxErrorLength); err != nil {
		return nil, err
	} else {
		cfg.MaxErrorLength = v
	}
	if v, err := getenvDuration("LLM_TIMEOUT", defaultLLMTimeout); err != nil {
		return nil, err
	} else {
		cfg.LLMTimeout = v
	}
	if v, err := getenvDuration("QUERY_TIMEOUT", defaultQueryTimeout); err != nil {
		return nil, err
	} else {
		cfg.QueryTimeout = v
	}
	if csv := os.Getenv("WHITELISTED_TABLES"); csv != "" {
		cfg.Tables = splitCSV(csv)
	}

	return cfg, nil
}

// ConnString builds the Postgres connection string.
func (c *Config) ConnString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort, c.PostgresDB,
	)
}

// NewPool creates the pgx connection pool with the agent's pool settings
// and verifies connectivity.
func NewPool(ctx context.Context, cfg *Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return pool, nil
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	return i, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	return d, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
