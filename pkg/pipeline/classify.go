package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// defaultRelevance returns a not-relevant result with fully populated
// breakdown defaults and the given explanation.
func defaultRelevance(explanation string) *RelevanceResult {
	return &RelevanceResult{
		Relevant: false,
		Tables:   []string{},
		Breakdown: Breakdown{
			Intent:     "unknown",
			Entities:   []string{},
			Conditions: []string{},
			Timeframe:  "none",
		},
		Explanation: explanation,
	}
}

// CheckRelevance determines whether a question pertains to the whitelisted
// schema and extracts a structured breakdown. It never returns an error:
// classification or parse failures produce a default not-relevant result
// carrying an explanation.
func (p *Pipeline) CheckRelevance(ctx context.Context, question string) *RelevanceResult {
	systemPrompt := buildRelevancePrompt(p.cfg.Prompts.Relevance, p.cfg.Tables.List())
	userPrompt := fmt.Sprintf("Question: %s", question)

	response, err := p.cfg.LLM.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		p.logInfo("pipeline: relevance check failed", "error", err)
		return defaultRelevance(fmt.Sprintf("Error: %v", err))
	}

	result, err := parseRelevanceResponse(response)
	if err != nil {
		p.logInfo("pipeline: relevance parse failed, defaulting to not relevant", "error", err)
		return defaultRelevance("Failed to parse response")
	}
	return result
}

// parseRelevanceResponse extracts the classification from the LLM response.
// Well-formed JSON is merged onto the defaults so missing keys fall back
// rather than being required.
func parseRelevanceResponse(response string) (*RelevanceResult, error) {
	jsonStr := extractJSON(response)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	result := defaultRelevance("No explanation provided")
	if err := json.Unmarshal([]byte(jsonStr), result); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if result.Tables == nil {
		result.Tables = []string{}
	}
	if result.Breakdown.Entities == nil {
		result.Breakdown.Entities = []string{}
	}
	if result.Breakdown.Conditions == nil {
		result.Breakdown.Conditions = []string{}
	}
	return result, nil
}

// buildRelevancePrompt injects the current table whitelist into the
// classification prompt.
func buildRelevancePrompt(staticPrompt string, tables []string) string {
	var catalog strings.Builder
	for i, t := range tables {
		catalog.WriteString(fmt.Sprintf("%d. %s\n", i+1, t))
	}
	return strings.Replace(staticPrompt, "{{TABLES}}", strings.TrimRight(catalog.String(), "\n"), 1)
}
