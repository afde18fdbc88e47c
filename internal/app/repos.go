package app

import (
	"context"

	"github.com/felixbrock/crayon/internal/domain"
)

// Completer issues one request to the completion endpoint.
type Completer interface {
	Complete(ctx context.Context, req domain.CompletionReq) (string, error)
}

// RecordStore persists interaction records. Writes are create only.
type RecordStore interface {
	InsertPrompt(ctx context.Context, record domain.PromptLog) error
	InsertObjectives(ctx context.Context, record domain.ObjectivesLog) error
}

// Logger is the best-effort side channel the workflow reports to. The
// returned channel yields the write result once; callers may ignore it.
type Logger interface {
	LogPromptInteraction(session domain.Session, prompt string, response string) <-chan error
	LogObjectivesInteraction(session domain.Session, userObjectives []string, selectedObjectives []string, guardrailResponse string, generatedPromptResponse string) <-chan error
}
