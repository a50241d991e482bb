package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asim-Gelal/Remit-agent/pkg/monitor"
	"github.com/asim-Gelal/Remit-agent/pkg/querier"
	"github.com/asim-Gelal/Remit-agent/pkg/schema"
)

type llmCall struct {
	system string
	user   string
}

// mockLLM returns scripted responses in call order.
type mockLLM struct {
	responses []string
	errs      []error
	calls     []llmCall
}

func (m *mockLLM) Complete(_ context.Context, system, user string) (string, error) {
	i := len(m.calls)
	m.calls = append(m.calls, llmCall{system: system, user: user})
	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	if i < len(m.responses) {
		return m.responses[i], nil
	}
	return "", nil
}

// panicLLM simulates an unexpected failure escaping a stage.
type panicLLM struct{}

func (panicLLM) Complete(context.Context, string, string) (string, error) {
	panic("llm client misconfigured")
}

type mockQuerier struct {
	result querier.Result
	calls  []string
}

func (m *mockQuerier) Query(_ context.Context, sql string) querier.Result {
	m.calls = append(m.calls, sql)
	return m.result
}

type mockSchema struct {
	text string
}

func (m mockSchema) DescribeSchema(context.Context) string { return m.text }

const testSchemaText = "Table: dbo.customers\n- id: integer NOT NULL (Primary Key)"

func newTestPipeline(t *testing.T, llm LLMClient, q Querier) *Pipeline {
	t.Helper()
	prompts, err := LoadPrompts()
	require.NoError(t, err)

	p, err := New(&Config{
		LLM:      llm,
		Querier:  q,
		Schema:   mockSchema{text: testSchemaText},
		Tables:   schema.NewRegistry("dbo.customers", "dbo.remitTransactions"),
		Prompts:  prompts,
		Recorder: monitor.NewRecorder(),
	})
	require.NoError(t, err)
	return p
}

func recordedStages(p *Pipeline) []string {
	invocations := p.Recorder().List()
	names := make([]string, len(invocations))
	for i, inv := range invocations {
		names[i] = inv.ToolName
	}
	return names
}

const relevantJSON = `{
	"relevant": true,
	"tables": ["dbo.customers", "dbo.remitTransactions"],
	"breakdown": {
		"intent": "lookup",
		"entities": ["John Smith"],
		"conditions": ["name = John Smith"],
		"timeframe": "all"
	},
	"explanation": "Query requires joining customer and transaction data"
}`

func TestRun_RelevantQuestion(t *testing.T) {
	sql := "SELECT rt.send_amount, c.full_name FROM dbo.\"remitTransactions\" rt JOIN dbo.customers c ON rt.sender_id = c.id WHERE c.full_name = 'John Smith'"
	llm := &mockLLM{responses: []string{
		relevantJSON,
		sql,
		"John Smith has 2 transactions totaling $195.50.",
	}}
	q := &mockQuerier{result: querier.Result{
		Success: true,
		Columns: []string{"send_amount", "full_name"},
		Rows: []map[string]any{
			{"send_amount": 120.50, "full_name": "John Smith"},
			{"send_amount": 75.00, "full_name": "John Smith"},
		},
	}}
	p := newTestPipeline(t, llm, q)

	result := p.Run(context.Background(), "Show all transactions for customer John Smith")

	// The executor received the synthesized statement verbatim.
	require.Equal(t, []string{sql}, q.calls)
	assert.Equal(t, sql, result.SQLQuery)
	assert.Equal(t, "John Smith has 2 transactions totaling $195.50.", result.QueryResult)
	require.NotNil(t, result.Relevance)
	assert.True(t, result.Relevance.Relevant)
	assert.Equal(t, []string{"dbo.customers", "dbo.remitTransactions"}, result.Relevance.Tables)

	assert.Equal(t, []string{
		StageCheckRelevance,
		StageConvertToSQL,
		StageExecuteSQL,
		StageGenerateResponse,
	}, recordedStages(p))
	for _, inv := range p.Recorder().List() {
		assert.GreaterOrEqual(t, inv.Duration, time.Duration(0))
	}
}

func TestRun_IrrelevantQuestion(t *testing.T) {
	llm := &mockLLM{responses: []string{`{
		"relevant": false,
		"tables": [],
		"breakdown": {"intent": "unknown", "entities": [], "conditions": [], "timeframe": "none"},
		"explanation": "Question is about weather, unrelated to remittance or customer data"
	}`}}
	q := &mockQuerier{}
	p := newTestPipeline(t, llm, q)

	result := p.Run(context.Background(), "What's the weather today?")

	assert.Equal(t, "Question is about weather, unrelated to remittance or customer data", result.QueryResult)
	assert.Empty(t, result.SQLQuery)
	require.NotNil(t, result.Relevance)
	assert.False(t, result.Relevance.Relevant)

	// No downstream stages were invoked.
	assert.Empty(t, q.calls)
	assert.Len(t, llm.calls, 1)
	assert.Equal(t, []string{StageCheckRelevance}, recordedStages(p))
}

func TestRun_SynthesisReturnsEmpty(t *testing.T) {
	llm := &mockLLM{responses: []string{
		relevantJSON,
		"", // synthesis produced nothing
		"I could not build a query for that question.",
	}}
	q := &mockQuerier{}
	p := newTestPipeline(t, llm, q)

	result := p.Run(context.Background(), "Show all transactions")

	// Execution was skipped, but the formatter still ran with the failure context.
	assert.Empty(t, q.calls)
	assert.Empty(t, result.SQLQuery)
	assert.Equal(t, "I could not build a query for that question.", result.QueryResult)
	assert.Equal(t, []string{
		StageCheckRelevance,
		StageConvertToSQL,
		StageGenerateResponse,
	}, recordedStages(p))

	// The literal failure message is what the formatter was given.
	require.Len(t, llm.calls, 3)
	assert.Contains(t, llm.calls[2].user, "Failed to generate SQL query")
}

func TestRun_ExecutionFailure(t *testing.T) {
	llm := &mockLLM{responses: []string{
		relevantJSON,
		"SELECT * FORM dbo.customers",
		"The query could not be executed due to a syntax error.",
	}}
	q := &mockQuerier{result: querier.Result{
		Success: false,
		Error:   `syntax error at or near "FORM"`,
	}}
	p := newTestPipeline(t, llm, q)

	result := p.Run(context.Background(), "Show all customers")

	assert.Equal(t, "The query could not be executed due to a syntax error.", result.QueryResult)
	assert.Equal(t, []string{
		StageCheckRelevance,
		StageConvertToSQL,
		StageExecuteSQL,
		StageGenerateResponse,
	}, recordedStages(p))

	// The driver's failure text is propagated into the formatting prompt.
	require.Len(t, llm.calls, 3)
	assert.Contains(t, llm.calls[2].user, `syntax error at or near \"FORM\"`)
	assert.Contains(t, llm.calls[2].user, `"success": false`)
}

func TestRun_SynthesisLLMFailure(t *testing.T) {
	llm := &mockLLM{
		responses: []string{relevantJSON, "", "Something went wrong generating your query."},
		errs:      []error{nil, assert.AnError, nil},
	}
	q := &mockQuerier{}
	p := newTestPipeline(t, llm, q)

	result := p.Run(context.Background(), "Show all transactions")

	assert.Empty(t, q.calls)
	assert.Equal(t, "Something went wrong generating your query.", result.QueryResult)

	// The conversion failure is visible in the invocation log.
	invocations := p.Recorder().List()
	require.Len(t, invocations, 3)
	assert.Equal(t, StageConvertToSQL, invocations[1].ToolName)
	assert.Contains(t, invocations[1].Outputs, "Error: ")
}

func TestRun_NeverPanics(t *testing.T) {
	p := newTestPipeline(t, panicLLM{}, &mockQuerier{})

	result := p.Run(context.Background(), "anything")

	assert.Contains(t, result.QueryResult, "Error processing request")
	assert.Contains(t, result.QueryResult, "llm client misconfigured")
	assert.Nil(t, result.Relevance)
	assert.Empty(t, result.SQLQuery)
}

func TestRun_ClearedRecorderYieldsFreshLog(t *testing.T) {
	llm := &mockLLM{responses: []string{
		relevantJSON, "SELECT 1", "One.",
		relevantJSON, "SELECT 1", "One.",
	}}
	q := &mockQuerier{result: querier.Result{Success: true, Columns: []string{"n"}, Rows: []map[string]any{{"n": 1}}}}
	p := newTestPipeline(t, llm, q)

	p.Run(context.Background(), "first")
	first := recordedStages(p)

	p.Recorder().Clear()
	p.Run(context.Background(), "second")

	assert.Equal(t, first, recordedStages(p))
}

func TestNew_Validation(t *testing.T) {
	prompts, err := LoadPrompts()
	require.NoError(t, err)

	base := func() *Config {
		return &Config{
			LLM:     &mockLLM{},
			Querier: &mockQuerier{},
			Schema:  mockSchema{},
			Tables:  schema.NewRegistry(),
			Prompts: prompts,
		}
	}

	_, err = New(base())
	require.NoError(t, err)

	for name, mutate := range map[string]func(*Config){
		"missing LLM":     func(c *Config) { c.LLM = nil },
		"missing querier": func(c *Config) { c.Querier = nil },
		"missing schema":  func(c *Config) { c.Schema = nil },
		"missing tables":  func(c *Config) { c.Tables = nil },
		"missing prompts": func(c *Config) { c.Prompts = nil },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := base()
			mutate(cfg)
			_, err := New(cfg)
			require.Error(t, err)
		})
	}
}
