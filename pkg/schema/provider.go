package schema

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// RowQuerier is the subset of the pgx pool used for introspection queries.
// *pgxpool.Pool satisfies it.
type RowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Provider renders a textual description of the whitelisted tables from
// information_schema, in table-then-ordinal order.
type Provider struct {
	db       RowQuerier
	registry *Registry
	log      *slog.Logger
	timeout  time.Duration
}

// NewProvider creates a Provider over the given database and registry.
func NewProvider(db RowQuerier, registry *Registry, log *slog.Logger, timeout time.Duration) *Provider {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Provider{db: db, registry: registry, log: log, timeout: timeout}
}

const columnsQueryTemplate = `
	SELECT
		c.table_schema,
		c.table_name,
		c.column_name,
		c.data_type,
		c.is_nullable,
		CASE WHEN pk.column_name IS NOT NULL THEN 'YES' ELSE 'NO' END AS is_primary_key
	FROM information_schema.columns c
	LEFT JOIN (
		SELECT ku.table_schema, ku.table_name, ku.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage ku
			ON tc.constraint_type = 'PRIMARY KEY'
			AND tc.constraint_name = ku.constraint_name
			AND tc.table_schema = ku.table_schema
	) pk
		ON c.table_schema = pk.table_schema
		AND c.table_name = pk.table_name
		AND c.column_name = pk.column_name
	WHERE %s
	ORDER BY c.table_schema, c.table_name, c.ordinal_position
`

// DescribeSchema returns a formatted description of every whitelisted
// table: one block per table listing column name, type, nullability, and
// primary-key flag. On failure it returns an error-prefixed string rather
// than an error, so prompt construction always has something to embed.
func (p *Provider) DescribeSchema(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	tables := p.registry.List()
	if len(tables) == 0 {
		return "No tables are currently whitelisted."
	}

	conds := make([]string, 0, len(tables))
	args := make([]any, 0, len(tables)*2)
	for i, t := range tables {
		sch, name, ok := strings.Cut(t, ".")
		if !ok {
			sch, name = "public", t
		}
		conds = append(conds, fmt.Sprintf("(c.table_schema = $%d AND c.table_name = $%d)", i*2+1, i*2+2))
		args = append(args, sch, name)
	}
	query := fmt.Sprintf(columnsQueryTemplate, strings.Join(conds, " OR "))

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		if p.log != nil {
			p.log.Error("schema: introspection query failed", "error", err)
		}
		return fmt.Sprintf("Error: failed to retrieve database schema: %v", err)
	}
	defer rows.Close()

	var sb strings.Builder
	currentTable := ""
	for rows.Next() {
		var tableSchema, tableName, columnName, dataType, isNullable, isPrimaryKey string
		if err := rows.Scan(&tableSchema, &tableName, &columnName, &dataType, &isNullable, &isPrimaryKey); err != nil {
			if p.log != nil {
				p.log.Error("schema: failed to scan column row", "error", err)
			}
			return fmt.Sprintf("Error: failed to retrieve database schema: %v", err)
		}

		qualified := tableSchema + "." + tableName
		if qualified != currentTable {
			if currentTable != "" {
				sb.WriteString("\n")
			}
			currentTable = qualified
			sb.WriteString("Table: " + qualified + "\n")
		}

		nullable := "NOT NULL"
		if isNullable == "YES" {
			nullable = "NULL"
		}
		pk := ""
		if isPrimaryKey == "YES" {
			pk = " (Primary Key)"
		}
		sb.WriteString(fmt.Sprintf("- %s: %s %s%s\n", columnName, dataType, nullable, pk))
	}
	if err := rows.Err(); err != nil {
		if p.log != nil {
			p.log.Error("schema: introspection rows failed", "error", err)
		}
		return fmt.Sprintf("Error: failed to retrieve database schema: %v", err)
	}

	description := strings.TrimRight(sb.String(), "\n")
	if description == "" {
		return "No columns found for the whitelisted tables."
	}
	if p.log != nil {
		p.log.Debug("schema: retrieved description", "tables", len(tables))
	}
	return description
}
