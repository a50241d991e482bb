package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ConvertToSQL generates a SQL statement for a question using its
// relevance breakdown and the current schema description. On failure it
// returns an empty string and the error; callers treat an empty statement
// as a hard stop for execution.
func (p *Pipeline) ConvertToSQL(ctx context.Context, question string, relevance *RelevanceResult) (string, error) {
	schemaText := p.cfg.Schema.DescribeSchema(ctx)

	systemPrompt := buildGeneratePrompt(p.cfg.Prompts.Generate, schemaText, relevance)
	userPrompt := fmt.Sprintf("Generate a SQL query for: %s", question)

	response, err := p.cfg.LLM.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("LLM completion failed: %w", err)
	}

	sql := extractSQL(response)
	if sql == "" {
		return "", fmt.Errorf("no SQL generated")
	}
	return sql, nil
}

// buildGeneratePrompt combines the static prompt with the schema
// description and the question analysis.
func buildGeneratePrompt(staticPrompt, schemaText string, relevance *RelevanceResult) string {
	breakdown := "{}"
	if relevance != nil {
		if b, err := json.Marshal(relevance); err == nil {
			breakdown = string(b)
		}
	}
	prompt := strings.Replace(staticPrompt, "{{SCHEMA}}", schemaText, 1)
	return strings.Replace(prompt, "{{BREAKDOWN}}", breakdown, 1)
}

// extractSQL normalizes the model's output into a bare SQL statement.
// The prompt asks for raw SQL, but models occasionally wrap it in
// markdown fences anyway; no syntax validation happens here, that is
// deferred to execution.
func extractSQL(response string) string {
	response = strings.TrimSpace(response)

	if start := strings.Index(response, "```sql"); start != -1 {
		start += 6 // len("```sql")
		if end := strings.Index(response[start:], "```"); end != -1 {
			return strings.TrimSpace(response[start : start+end])
		}
	}

	if start := strings.Index(response, "```"); start != -1 {
		start += 3
		if end := strings.Index(response[start:], "```"); end != -1 {
			return strings.TrimSpace(response[start : start+end])
		}
	}

	return response
}
