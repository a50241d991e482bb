package pipeline

import (
	"context"
	"log/slog"

	"github.com/asim-Gelal/Remit-agent/pkg/monitor"
	"github.com/asim-Gelal/Remit-agent/pkg/querier"
)

// Config holds the configuration for the pipeline.
type Config struct {
	Logger   *slog.Logger
	LLM      LLMClient
	Querier  Querier
	Schema   SchemaDescriber
	Tables   TableLister
	Prompts  *Prompts
	Recorder *monitor.Recorder
}

// LLMClient is the interface for interacting with an LLM.
type LLMClient interface {
	// Complete sends a prompt and returns the response text.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Querier executes SQL statements.
type Querier interface {
	// Query executes a SQL statement and returns the normalized outcome.
	Query(ctx context.Context, sql string) querier.Result
}

// SchemaDescriber returns a textual description of the whitelisted tables.
type SchemaDescriber interface {
	// DescribeSchema never fails; on error it returns an error-prefixed string.
	DescribeSchema(ctx context.Context) string
}

// TableLister exposes the current table whitelist.
type TableLister interface {
	List() []string
}

// Breakdown is the structured analysis of a question extracted during
// relevance classification. All four fields are always populated,
// defaulted when the classifier's output is malformed or absent.
type Breakdown struct {
	Intent     string   `json:"intent"`
	Entities   []string `json:"entities"`
	Conditions []string `json:"conditions"`
	Timeframe  string   `json:"timeframe"`
}

// RelevanceResult is the structured classification of a question.
type RelevanceResult struct {
	Relevant    bool      `json:"relevant"`
	Tables      []string  `json:"tables"`
	Breakdown   Breakdown `json:"breakdown"`
	Explanation string    `json:"explanation"`
}

// State is the record threaded through every pipeline stage. Stages
// overlay their fields on a copy of the incoming state; fields owned by
// other stages are carried through untouched.
type State struct {
	Question    string
	Relevance   *RelevanceResult
	SQLQuery    string
	SQLError    bool
	QueryRows   []map[string]any
	Columns     []string
	QueryResult string
	Attempts    int // reserved for retry counting
}

// Result is what Run returns to the presentation layer. QueryResult is
// always populated, even on total failure.
type Result struct {
	QueryResult string           `json:"query_result"`
	Relevance   *RelevanceResult `json:"relevance_result"`
	SQLQuery    string           `json:"sql_query"`
}

// Stage names as they appear in the invocation log.
const (
	StageCheckRelevance   = "check_relevance"
	StageConvertToSQL     = "convert_to_sql"
	StageExecuteSQL       = "execute_sql"
	StageGenerateResponse = "generate_response"
)
