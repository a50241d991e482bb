package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToSQL_RawStatement(t *testing.T) {
	llm := &mockLLM{responses: []string{"SELECT * FROM dbo.customers LIMIT 100\n"}}
	p := newTestPipeline(t, llm, &mockQuerier{})

	sql, err := p.ConvertToSQL(context.Background(), "Show all customers", defaultRelevance("relevant"))

	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM dbo.customers LIMIT 100", sql)

	// The schema description and the question analysis are injected into
	// the synthesis prompt.
	require.Len(t, llm.calls, 1)
	assert.Contains(t, llm.calls[0].system, testSchemaText)
	assert.Contains(t, llm.calls[0].system, `"intent":"unknown"`)
	assert.Equal(t, "Generate a SQL query for: Show all customers", llm.calls[0].user)
}

func TestConvertToSQL_StripsFences(t *testing.T) {
	for name, response := range map[string]string{
		"sql fence":     "```sql\nSELECT 1\n```",
		"generic fence": "```\nSELECT 1\n```",
		"with prose":    "Here you go:\n```sql\nSELECT 1\n```\nLet me know if you need more.",
	} {
		t.Run(name, func(t *testing.T) {
			llm := &mockLLM{responses: []string{response}}
			p := newTestPipeline(t, llm, &mockQuerier{})

			sql, err := p.ConvertToSQL(context.Background(), "count things", nil)

			require.NoError(t, err)
			assert.Equal(t, "SELECT 1", sql)
		})
	}
}

func TestConvertToSQL_EmptyResponse(t *testing.T) {
	llm := &mockLLM{responses: []string{"   \n"}}
	p := newTestPipeline(t, llm, &mockQuerier{})

	sql, err := p.ConvertToSQL(context.Background(), "Show all customers", nil)

	require.Error(t, err)
	assert.Empty(t, sql)
	assert.Contains(t, err.Error(), "no SQL generated")
}

func TestConvertToSQL_LLMFailure(t *testing.T) {
	llm := &mockLLM{errs: []error{assert.AnError}}
	p := newTestPipeline(t, llm, &mockQuerier{})

	sql, err := p.ConvertToSQL(context.Background(), "Show all customers", nil)

	require.Error(t, err)
	assert.Empty(t, sql)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestGenerateResponse_FormatsOutcome(t *testing.T) {
	llm := &mockLLM{responses: []string{"There are 2 customers.\n"}}
	p := newTestPipeline(t, llm, &mockQuerier{})

	outcome := executionOutcome{
		Rows:     []map[string]any{{"count": 2}},
		Columns:  []string{"count"},
		Success:  true,
		Question: "How many customers are there?",
	}
	answer := p.GenerateResponse(context.Background(), "SELECT count(*) FROM dbo.customers", outcome)

	assert.Equal(t, "There are 2 customers.", answer)
	require.Len(t, llm.calls, 1)
	assert.Contains(t, llm.calls[0].user, "SELECT count(*) FROM dbo.customers")
	assert.Contains(t, llm.calls[0].user, `"count": 2`)
	assert.Contains(t, llm.calls[0].user, "How many customers are there?")
}

func TestGenerateResponse_LLMFailure(t *testing.T) {
	llm := &mockLLM{errs: []error{assert.AnError}}
	p := newTestPipeline(t, llm, &mockQuerier{})

	answer := p.GenerateResponse(context.Background(), "SELECT 1", executionOutcome{Success: true})

	assert.Contains(t, answer, "Error processing results: ")
}
