package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/asim-Gelal/Remit-agent/internal/config"
	"github.com/asim-Gelal/Remit-agent/internal/metrics"
	"github.com/asim-Gelal/Remit-agent/internal/server"
	"github.com/asim-Gelal/Remit-agent/pkg/monitor"
	"github.com/asim-Gelal/Remit-agent/pkg/pipeline"
	"github.com/asim-Gelal/Remit-agent/pkg/querier"
	"github.com/asim-Gelal/Remit-agent/pkg/schema"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	defaultHTTPAddr    = ":8080"
	defaultMetricsAddr = ":9090"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type flags struct {
	ShowVersion bool
	Verbose     bool
	HTTPAddr    string
	MetricsAddr string
}

func run() error {
	_ = godotenv.Load()

	var f flags
	flag.BoolVar(&f.ShowVersion, "version", false, "show version and exit")
	flag.BoolVar(&f.Verbose, "verbose", false, "verbose mode - show debug logs")
	flag.StringVar(&f.HTTPAddr, "http-addr", defaultHTTPAddr, "address to listen on for the agent API")
	flag.StringVar(&f.MetricsAddr, "metrics-addr", defaultMetricsAddr, "address to listen on for prometheus metrics (empty to disable)")
	flag.Parse()

	if f.ShowVersion {
		fmt.Printf("version: %s, commit: %s, date: %s\n", version, commit, date)
		return nil
	}

	log := newLogger(f.Verbose)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := config.NewPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Info("database connection successful", "host", cfg.PostgresHost, "database", cfg.PostgresDB)

	if count, err := countWhitelistedTables(ctx, pool, cfg.Tables); err != nil {
		log.Error("failed to count whitelisted tables", "error", err)
	} else {
		log.Info("whitelisted tables present in database", "count", count, "whitelisted", len(cfg.Tables))
	}

	registry := schema.NewRegistry(cfg.Tables...)
	provider := schema.NewProvider(pool, registry, log, cfg.QueryTimeout)

	pg, err := querier.New(querier.Config{
		Logger:         log,
		DB:             pool,
		QueryTimeout:   cfg.QueryTimeout,
		MaxErrorLength: cfg.MaxErrorLength,
	})
	if err != nil {
		return fmt.Errorf("failed to create querier: %w", err)
	}

	prompts, err := pipeline.LoadPrompts()
	if err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}

	recorder := monitor.NewRecorder()
	llm := pipeline.NewAnthropicLLMClient(anthropic.Model(cfg.Model), cfg.MaxTokens, cfg.LLMTimeout, log)

	pipe, err := pipeline.New(&pipeline.Config{
		Logger:   log,
		LLM:      llm,
		Querier:  pg,
		Schema:   provider,
		Tables:   registry,
		Prompts:  prompts,
		Recorder: recorder,
	})
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	srv, err := server.New(server.Config{
		Logger:   log,
		Pipeline: pipe,
		Recorder: recorder,
		Registry: registry,
		Schema:   provider,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if f.MetricsAddr != "" {
		metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
		go func() {
			listener, err := net.Listen("tcp", f.MetricsAddr)
			if err != nil {
				log.Error("failed to start prometheus metrics server listener", "error", err)
				os.Exit(1)
			}
			log.Info("prometheus metrics server listening", "address", listener.Addr().String())
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.Serve(listener, mux); err != nil {
				log.Error("failed to start prometheus metrics server", "error", err)
				os.Exit(1)
			}
		}()
	}

	httpServer := &http.Server{
		Addr:    f.HTTPAddr,
		Handler: srv.Router(),
	}

	go func() {
		log.Info("agent API listening", "address", f.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}

// countWhitelistedTables reports how many of the whitelisted tables exist
// in the connected database.
func countWhitelistedTables(ctx context.Context, pool *pgxpool.Pool, tables []string) (int, error) {
	count := 0
	for _, t := range tables {
		sch, name, ok := splitQualified(t)
		if !ok {
			continue
		}
		var n int
		err := pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2`,
			sch, name).Scan(&n)
		if err != nil {
			return 0, err
		}
		count += n
	}
	return count, nil
}

func splitQualified(name string) (string, string, bool) {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name[:i], name[i+1:], true
		}
	}
	return "", "", false
}

func newLogger(verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				t := a.Value.Time().UTC()
				a.Value = slog.StringValue(formatRFC3339Millis(t))
			}
			if s, ok := a.Value.Any().(string); ok && s == "" {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func formatRFC3339Millis(t time.Time) string {
	t = t.UTC()
	base := t.Format("2006-01-02T15:04:05")
	ms := t.Nanosecond() / 1_000_000
	return fmt.Sprintf("%s.%03dZ", base, ms)
}
