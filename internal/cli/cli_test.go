package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixbrock/crayon/internal/persistence"
)

const purpose = "A customer support agent that answers billing questions and escalates hard cases."

const objectivesReply = `{"response": [
	{"rubric_name": "Answer billing questions", "rubric_explanation": "Customers mostly ask about invoices."},
	{"rubric_name": "Escalate unresolved issues", "rubric_explanation": "Some issues need another agent."},
	{"rubric_name": "Summarise account status", "rubric_explanation": "Context speeds up every answer."}
]}`

const agentPromptReply = `{"response": {
	"role": "You are a support agent that is an expert in billing.",
	"instruction": "Your job is to answer questions to achieve the following objectives:",
	"objectives": ["Answer billing questions", "Track refunds"],
	"guardrail": "Your response must adhere to the following guidelines:",
	"guidelines": ["Your response must cite the invoice number"]
}}`

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRoot()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(io.Discard)
	err := root.Execute()
	return out.String(), err
}

// completionServer answers the objectives, guardrails and agent prompt calls
// in that order.
func completionServer(t *testing.T) (*httptest.Server, func() int) {
	t.Helper()
	var mu sync.Mutex
	calls := 0
	replies := []string{objectivesReply, "- Your response must cite the invoice number", agentPromptReply}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		content := ""
		if calls < len(replies) {
			content = replies[calls]
		}
		calls++
		mu.Unlock()

		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, err := json.Marshal(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		})
		assert.NoError(t, err)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	return srv, func() int {
		mu.Lock()
		defer mu.Unlock()
		return calls
	}
}

func csvEnv(t *testing.T, url string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "records")
	t.Setenv("OAI_URL", url)
	t.Setenv("OAI_API_KEY", "sk-test")
	t.Setenv("RECORD_STORE", "csv")
	t.Setenv("CSV_DIR", dir)
	return dir
}

func TestEvaluateArgs(t *testing.T) {
	out, err := run(t, "", "evaluate", "summarise", "extraordinarily")

	require.NoError(t, err)
	assert.Equal(t, "1\terror\textraordinarily\tLong word, consider choosing a shorter word.\nscore: 90/100\n", out)
}

func TestEvaluateStdinJSON(t *testing.T) {
	out, err := run(t, "short words only", "evaluate", "--json")

	require.NoError(t, err)
	var got evaluation
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 100, got.Score)
	assert.Empty(t, got.Flags)
	assert.Contains(t, out, `"flags": []`)
}

func TestGenerateListsObjectivesOnly(t *testing.T) {
	srv, calls := completionServer(t)
	dir := csvEnv(t, srv.URL)

	out, err := run(t, "", "generate", "--purpose", purpose, "--session-file", filepath.Join(t.TempDir(), "session.yaml"))

	require.NoError(t, err)
	assert.Equal(t, "1. Answer billing questions: Customers mostly ask about invoices.\n"+
		"2. Escalate unresolved issues: Some issues need another agent.\n"+
		"3. Summarise account status: Context speeds up every answer.\n", out)
	assert.Equal(t, 1, calls())

	prompts, err := persistence.NewCSVStore(dir).ReadPrompts()
	require.NoError(t, err)
	require.Len(t, prompts, 1)
	assert.Equal(t, purpose, prompts[0].Prompt)
	assert.Equal(t, cliUserAgent, prompts[0].UserAgent)
}

func TestGenerateComposesPrompt(t *testing.T) {
	srv, calls := completionServer(t)
	dir := csvEnv(t, srv.URL)
	sessionFile := filepath.Join(t.TempDir(), "session.yaml")

	out, err := run(t, "", "generate",
		"--purpose", purpose,
		"--select", "1",
		"--objective", "Track refunds: Refunds are common.",
		"--session-file", sessionFile)

	require.NoError(t, err)
	assert.Contains(t, out, "You are a support agent that is an expert in billing.\n")
	assert.Contains(t, out, "- Track refunds\n")
	assert.Contains(t, out, "- Your response must cite the invoice number\n")
	assert.True(t, strings.HasSuffix(out, "Your response here:\n"))
	assert.Equal(t, 3, calls())

	sessionId, err := persistence.FileSessionStore{Path: sessionFile}.SessionId()
	require.NoError(t, err)

	records, err := persistence.NewCSVStore(dir).ReadObjectives()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, sessionId, records[0].SessionId)
	assert.Equal(t, []string{"Track refunds: Refunds are common."}, records[0].UserObjectives)
	assert.Len(t, records[0].SelectedObjectives, 2)
}

func TestGenerateShortPurpose(t *testing.T) {
	srv, calls := completionServer(t)
	csvEnv(t, srv.URL)

	_, err := run(t, "", "generate", "--purpose", "too short")

	assert.ErrorContains(t, err, "more than 50 characters")
	assert.Zero(t, calls())
}

func TestGenerateBadObjective(t *testing.T) {
	srv, calls := completionServer(t)
	csvEnv(t, srv.URL)

	_, err := run(t, "", "generate", "--purpose", purpose, "--objective", "no explanation")

	assert.ErrorContains(t, err, "name: explanation")
	assert.Zero(t, calls())
}

func TestGenerateSelectOutOfRange(t *testing.T) {
	srv, _ := completionServer(t)
	csvEnv(t, srv.URL)

	_, err := run(t, "", "generate", "--purpose", purpose, "--select", "7",
		"--session-file", filepath.Join(t.TempDir(), "session.yaml"))

	assert.ErrorContains(t, err, "objective 7")
}

func TestGenerateMissingKey(t *testing.T) {
	srv, calls := completionServer(t)
	csvEnv(t, srv.URL)
	t.Setenv("OAI_API_KEY", "")

	_, err := run(t, "", "generate", "--purpose", purpose,
		"--session-file", filepath.Join(t.TempDir(), "session.yaml"))

	assert.ErrorContains(t, err, "OAI_API_KEY is missing")
	assert.Zero(t, calls())
}
