package pipeline

import (
	"context"

	"github.com/asim-Gelal/Remit-agent/pkg/querier"
)

// ExecuteSQL runs a synthesized statement against the database. The
// statement must be non-empty; the orchestrator guards the empty case
// before this stage is invoked. The querier never returns an error, so
// database failures surface in the result's Error field.
func (p *Pipeline) ExecuteSQL(ctx context.Context, sql string) querier.Result {
	result := p.cfg.Querier.Query(ctx, sql)

	if result.Error != "" {
		p.logInfo("pipeline: query returned error", "error", result.Error)
	} else {
		p.logInfo("pipeline: query executed", "rows", len(result.Rows))
	}
	return result
}
