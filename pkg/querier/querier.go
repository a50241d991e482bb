// Package querier executes agent-generated SQL against Postgres.
// Each call opens its own transaction-scoped session; no session is held
// across pipeline stages.
package querier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/asim-Gelal/Remit-agent/internal/metrics"
)

// Result holds the normalized outcome of one SQL execution.
type Result struct {
	Success bool             `json:"success"`
	Rows    []map[string]any `json:"rows,omitempty"`
	Columns []string         `json:"columns,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// Beginner is the transaction entry point of the pgx pool.
// *pgxpool.Pool satisfies it.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PG executes SQL statements over a pgx connection pool.
type PG struct {
	log *slog.Logger
	cfg Config
}

// New creates a PG querier.
func New(cfg Config) (*PG, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate querier config: %w", err)
	}
	return &PG{log: cfg.Logger, cfg: cfg}, nil
}

// Query runs one SQL statement in its own transaction. SELECT statements
// return the full materialized result set; anything else is executed and
// committed with no rows. Failures roll the transaction back and surface
// the driver's error text in the result, never as a returned error.
func (q *PG) Query(ctx context.Context, sql string) Result {
	ctx, cancel := context.WithTimeout(ctx, q.cfg.QueryTimeout)
	defer cancel()

	tx, err := q.cfg.DB.Begin(ctx)
	if err != nil {
		metrics.QueryErrors.Inc()
		return Result{Success: false, Error: q.capError("failed to open database session: " + err.Error())}
	}

	result, err := q.run(ctx, tx, sql)
	if err != nil {
		_ = tx.Rollback(ctx)
		metrics.QueryErrors.Inc()
		if q.log != nil {
			q.log.Error("querier: execution failed", "error", err)
		}
		return Result{Success: false, Error: q.capError(err.Error())}
	}

	if err := tx.Commit(ctx); err != nil {
		metrics.QueryErrors.Inc()
		if q.log != nil {
			q.log.Error("querier: commit failed", "error", err)
		}
		return Result{Success: false, Error: q.capError("failed to commit transaction: " + err.Error())}
	}

	if q.log != nil {
		q.log.Debug("querier: statement executed", "rows", len(result.Rows))
	}
	return result
}

func (q *PG) run(ctx context.Context, tx pgx.Tx, sql string) (Result, error) {
	if !isSelect(sql) {
		if _, err := tx.Exec(ctx, sql); err != nil {
			return Result{}, err
		}
		return Result{Success: true}, nil
	}

	rows, err := tx.Query(ctx, sql)
	if err != nil {
		return Result{}, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	var out []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return Result{}, err
		}
		// Duplicate column names are last-write-wins within a row.
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return Result{}, err
	}

	return Result{Success: true, Rows: out, Columns: columns}, nil
}

// isSelect reports whether the statement's first keyword is SELECT.
func isSelect(sql string) bool {
	fields := strings.Fields(strings.TrimSpace(sql))
	if len(fields) == 0 {
		return false
	}
	return strings.EqualFold(fields[0], "select")
}

func (q *PG) capError(msg string) string {
	if q.cfg.MaxErrorLength > 0 && len(msg) > q.cfg.MaxErrorLength {
		return msg[:q.cfg.MaxErrorLength] + "..."
	}
	return msg
}
