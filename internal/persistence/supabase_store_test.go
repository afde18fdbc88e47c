package persistence

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixbrock/crayon/internal/domain"
)

func TestSupabaseInsertPrompt(t *testing.T) {
	var path, apiKey, auth, prefer string
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		apiKey = r.Header.Get("apikey")
		auth = r.Header.Get("Authorization")
		prefer = r.Header.Get("Prefer")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	store := SupabaseStore{BaseHeaders: SupabaseHeaders("anon-key"), BaseUrl: srv.URL + "/rest/v1"}
	err := store.InsertPrompt(context.Background(), domain.PromptLog{
		Id:        "p-1",
		UserAgent: "crayon-test",
		SessionId: "s-1",
		Timestamp: 1700000000000,
		Prompt:    "A support agent",
		Response:  `{"response": []}`,
	})

	require.NoError(t, err)
	assert.Equal(t, "/rest/v1/prompt", path)
	assert.Equal(t, "anon-key", apiKey)
	assert.Equal(t, "Bearer anon-key", auth)
	assert.Equal(t, "return=minimal", prefer)
	assert.Equal(t, "p-1", got["id"])
	assert.Equal(t, "s-1", got["session_id"])
	assert.Equal(t, "crayon-test", got["useragent"])
	assert.Equal(t, "", got["ip_address"])
}

func TestSupabaseInsertObjectives(t *testing.T) {
	var path string
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[{"id": "o-1"}]`))
	}))
	defer srv.Close()

	store := SupabaseStore{BaseHeaders: SupabaseHeaders("anon-key"), BaseUrl: srv.URL}
	err := store.InsertObjectives(context.Background(), domain.ObjectivesLog{
		Id:                 "o-1",
		SessionId:          "s-1",
		UserObjectives:     []string{"Track refunds: Refunds are common."},
		SelectedObjectives: []string{"- Be polite: Tone matters."},
		GuardrailResponse:  "Never share card numbers.",
	})

	require.NoError(t, err)
	assert.Equal(t, "/objectives", path)
	assert.Equal(t, []any{"Track refunds: Refunds are common."}, got["user_objectives"])
	assert.Equal(t, "Never share card numbers.", got["guardrail_response"])
}

func TestSupabaseInsertUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := SupabaseStore{BaseHeaders: SupabaseHeaders("anon-key"), BaseUrl: srv.URL}
	err := store.InsertPrompt(context.Background(), domain.PromptLog{Id: "p-1"})

	var status *statusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, http.StatusOK, status.Code)
}

func TestSupabaseInsertRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message": "Invalid API key"}`))
	}))
	defer srv.Close()

	store := SupabaseStore{BaseHeaders: SupabaseHeaders("wrong"), BaseUrl: srv.URL}
	err := store.InsertObjectives(context.Background(), domain.ObjectivesLog{Id: "o-1"})

	assert.ErrorContains(t, err, "Invalid API key")
}
