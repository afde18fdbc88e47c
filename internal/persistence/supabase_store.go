package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/felixbrock/crayon/internal/domain"
)

// SupabaseStore writes interaction records through the PostgREST API of a
// hosted Supabase project. Access uses the project's pre-shared key.
type SupabaseStore struct {
	BaseHeaders []string
	BaseUrl     string
	Client      *http.Client
}

func SupabaseHeaders(apiKey string) []string {
	return []string{
		fmt.Sprintf("apikey: %s", apiKey),
		fmt.Sprintf("Authorization: Bearer %s", apiKey),
		"Content-Type:application/json",
		"Prefer:return=minimal"}
}

func (r SupabaseStore) InsertPrompt(ctx context.Context, record domain.PromptLog) error {
	return r.insert(ctx, "prompt", record)
}

func (r SupabaseStore) InsertObjectives(ctx context.Context, record domain.ObjectivesLog) error {
	return r.insert(ctx, "objectives", record)
}

func (r SupabaseStore) insert(ctx context.Context, table string, record any) error {
	body, err := json.Marshal(record)

	if err != nil {
		return err
	}

	_, err = request[json.RawMessage](ctx, reqConfig{
		Method:  http.MethodPost,
		Url:     fmt.Sprintf("%s/%s", r.BaseUrl, table),
		Body:    body,
		Headers: r.BaseHeaders,
		Client:  r.Client},
		http.StatusCreated)

	if err != nil {
		return err
	}

	return nil
}
