package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// executionOutcome is the payload handed to the response formatter.
type executionOutcome struct {
	Rows     []map[string]any `json:"rows"`
	Columns  []string         `json:"columns"`
	Success  bool             `json:"success"`
	Question string           `json:"question"`
	Error    string           `json:"error,omitempty"`
}

// GenerateResponse converts a raw result set into a natural-language
// answer. On failure it returns a literal error string rather than an
// error; this is a terminal, user-visible fallback.
func (p *Pipeline) GenerateResponse(ctx context.Context, sql string, outcome executionOutcome) string {
	systemPrompt := p.cfg.Prompts.Respond
	userPrompt := fmt.Sprintf("SQL Query: %s\n\nQuery Result:\n%s\n\nFormat this data into a clear response.",
		sql, formatOutcome(outcome))

	response, err := p.cfg.LLM.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		p.logInfo("pipeline: response generation failed", "error", err)
		return fmt.Sprintf("Error processing results: %v", err)
	}
	return strings.TrimSpace(response)
}

// formatOutcome renders the execution outcome for the formatting prompt.
func formatOutcome(outcome executionOutcome) string {
	b, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", outcome)
	}
	return string(b)
}
