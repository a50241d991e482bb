// Package pipeline implements the multi-stage question-answering flow:
// relevance classification, SQL synthesis, query execution, and response
// formatting. Every stage call is wrapped by the invocation recorder, and
// no failure escapes Run to its caller.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/asim-Gelal/Remit-agent/internal/metrics"
	"github.com/asim-Gelal/Remit-agent/pkg/monitor"
	"github.com/asim-Gelal/Remit-agent/pkg/querier"
)

// Pipeline orchestrates the four stages for one question at a time.
// Independent requests may run concurrently; each gets its own State.
type Pipeline struct {
	cfg *Config
	log *slog.Logger
}

// New creates a new Pipeline.
func New(cfg *Config) (*Pipeline, error) {
	if cfg.LLM == nil {
		return nil, fmt.Errorf("LLM client is required")
	}
	if cfg.Querier == nil {
		return nil, fmt.Errorf("querier is required")
	}
	if cfg.Schema == nil {
		return nil, fmt.Errorf("schema describer is required")
	}
	if cfg.Tables == nil {
		return nil, fmt.Errorf("table lister is required")
	}
	if cfg.Prompts == nil {
		return nil, fmt.Errorf("prompts are required")
	}
	if cfg.Recorder == nil {
		cfg.Recorder = monitor.NewRecorder()
	}

	return &Pipeline{
		cfg: cfg,
		log: cfg.Logger,
	}, nil
}

func (p *Pipeline) logInfo(msg string, args ...any) {
	if p.log != nil {
		p.log.Info(msg, args...)
	}
}

// Recorder returns the invocation recorder used by this pipeline.
func (p *Pipeline) Recorder() *monitor.Recorder {
	return p.cfg.Recorder
}

// Run executes the pipeline for a user question. It is synchronous and
// always returns a populated Result; any failure that escapes the stages
// is caught here and converted into an error payload.
func (p *Pipeline) Run(ctx context.Context, question string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			if p.log != nil {
				p.log.Error("pipeline: run failed", "panic", r)
			}
			metrics.PipelineRuns.WithLabelValues("error").Inc()
			result = Result{
				QueryResult: fmt.Sprintf("Error processing request: %v", r),
				Relevance:   nil,
				SQLQuery:    "",
			}
		}
	}()

	p.logInfo("pipeline: starting", "question", question)

	state := State{
		Question:  question,
		QueryRows: []map[string]any{},
		Columns:   []string{},
	}

	state = p.checkRelevance(ctx, state)
	if state.Relevance == nil || !state.Relevance.Relevant {
		// The classifier's explanation is the final answer; synthesis,
		// execution, and formatting are skipped entirely.
		next := state
		if state.Relevance != nil {
			next.QueryResult = state.Relevance.Explanation
		} else {
			next.QueryResult = "Question is not relevant to the available data"
		}
		p.logInfo("pipeline: question not relevant, stopping")
		metrics.PipelineRuns.WithLabelValues("irrelevant").Inc()
		return resultFromState(next)
	}

	state = p.convertToSQL(ctx, state)
	state = p.executeSQL(ctx, state)
	state = p.generateResponse(ctx, state)

	outcome := "ok"
	if state.SQLError {
		outcome = "sql_error"
	}
	metrics.PipelineRuns.WithLabelValues(outcome).Inc()

	p.logInfo("pipeline: finished", "sql_error", state.SQLError)
	return resultFromState(state)
}

func resultFromState(state State) Result {
	return Result{
		QueryResult: state.QueryResult,
		Relevance:   state.Relevance,
		SQLQuery:    state.SQLQuery,
	}
}

// checkRelevance overlays the classification onto the state.
func (p *Pipeline) checkRelevance(ctx context.Context, state State) State {
	out, _ := p.cfg.Recorder.Record(StageCheckRelevance,
		map[string]any{"question": state.Question},
		func() (any, error) {
			return p.CheckRelevance(ctx, state.Question), nil
		})

	next := state
	next.Relevance = out.(*RelevanceResult)
	return next
}

// convertToSQL overlays the synthesized statement onto the state. An
// empty or failed synthesis marks the state with SQLError.
func (p *Pipeline) convertToSQL(ctx context.Context, state State) State {
	next := state
	out, err := p.cfg.Recorder.Record(StageConvertToSQL,
		map[string]any{"question": state.Question, "relevance_result": state.Relevance},
		func() (any, error) {
			sql, err := p.ConvertToSQL(ctx, state.Question, state.Relevance)
			if err != nil {
				return nil, err
			}
			return sql, nil
		})
	if err != nil {
		next.SQLError = true
		next.SQLQuery = ""
		next.QueryResult = fmt.Sprintf("Error in SQL conversion: %v", err)
		return next
	}

	sql := out.(string)
	p.logInfo("pipeline: generated SQL query", "sql", sql)
	next.SQLQuery = sql
	next.SQLError = sql == ""
	return next
}

// executeSQL overlays the execution outcome onto the state. When no
// statement was synthesized the stage is not invoked at all; the state is
// marked failed and flows on to response generation unchanged otherwise.
func (p *Pipeline) executeSQL(ctx context.Context, state State) State {
	next := state
	if state.SQLQuery == "" {
		p.logInfo("pipeline: no SQL query to execute")
		next.SQLError = true
		next.QueryResult = "Failed to generate SQL query"
		return next
	}

	out, _ := p.cfg.Recorder.Record(StageExecuteSQL,
		map[string]any{"sql_query": state.SQLQuery},
		func() (any, error) {
			return p.ExecuteSQL(ctx, state.SQLQuery), nil
		})

	res := out.(querier.Result)
	if !res.Success {
		errMsg := res.Error
		if errMsg == "" {
			errMsg = "Unknown error during query execution"
		}
		next.SQLError = true
		next.QueryResult = "Error: " + errMsg
		return next
	}

	next.SQLError = false
	next.QueryRows = res.Rows
	next.Columns = res.Columns
	if next.QueryRows == nil {
		next.QueryRows = []map[string]any{}
	}
	if next.Columns == nil {
		next.Columns = []string{}
	}
	next.QueryResult = "Query executed successfully"
	return next
}

// generateResponse overlays the final human-readable answer onto the
// state. It always runs after execution, regardless of SQLError; the
// formatter receives whatever rows and columns are present.
func (p *Pipeline) generateResponse(ctx context.Context, state State) State {
	outcome := executionOutcome{
		Rows:     state.QueryRows,
		Columns:  state.Columns,
		Success:  !state.SQLError,
		Question: state.Question,
	}
	if state.SQLError {
		// Carry the execution failure context into the formatting prompt.
		outcome.Error = state.QueryResult
	}

	out, _ := p.cfg.Recorder.Record(StageGenerateResponse,
		map[string]any{"sql": state.SQLQuery, "result": outcome},
		func() (any, error) {
			return p.GenerateResponse(ctx, state.SQLQuery, outcome), nil
		})

	next := state
	next.QueryResult = out.(string)
	return next
}
