package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixbrock/crayon/internal/domain"
)

const defaultLogTimeout = 10 * time.Second

// InteractionLogger writes PromptLog and ObjectivesLog records in the
// background. A failed write is reported to slog and on the returned channel,
// never to the caller's control flow.
type InteractionLogger struct {
	Store   RecordStore
	Timeout time.Duration
	Now     func() time.Time

	wg sync.WaitGroup
}

func NewInteractionLogger(store RecordStore) *InteractionLogger {
	return &InteractionLogger{Store: store, Timeout: defaultLogTimeout, Now: time.Now}
}

func (l *InteractionLogger) LogPromptInteraction(session domain.Session, prompt string, response string) <-chan error {
	record := domain.PromptLog{
		Id:        uuid.New().String(),
		UserAgent: session.UserAgent,
		IpAddress: "",
		SessionId: session.Id,
		Timestamp: l.now().UnixMilli(),
		Prompt:    prompt,
		Response:  response,
	}

	return l.dispatch("prompt", func(ctx context.Context) error {
		return l.Store.InsertPrompt(ctx, record)
	})
}

func (l *InteractionLogger) LogObjectivesInteraction(session domain.Session, userObjectives []string, selectedObjectives []string, guardrailResponse string, generatedPromptResponse string) <-chan error {
	record := domain.ObjectivesLog{
		Id:                      uuid.New().String(),
		UserAgent:               session.UserAgent,
		IpAddress:               "",
		SessionId:               session.Id,
		Timestamp:               l.now().UnixMilli(),
		UserObjectives:          append([]string{}, userObjectives...),
		SelectedObjectives:      append([]string{}, selectedObjectives...),
		GuardrailResponse:       guardrailResponse,
		GeneratedPromptResponse: generatedPromptResponse,
	}

	return l.dispatch("objectives", func(ctx context.Context) error {
		return l.Store.InsertObjectives(ctx, record)
	})
}

// Wait blocks until every write dispatched so far has finished.
func (l *InteractionLogger) Wait() {
	l.wg.Wait()
}

func (l *InteractionLogger) dispatch(kind string, write func(ctx context.Context) error) <-chan error {
	done := make(chan error, 1)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer close(done)

		timeout := l.Timeout
		if timeout <= 0 {
			timeout = defaultLogTimeout
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		var err error
		if l.Store == nil {
			err = fmt.Errorf("no record store configured")
		} else {
			err = write(ctx)
		}

		if err != nil {
			err = &domain.LoggingFailure{Record: kind, Err: err}
			slog.Error(fmt.Sprintf("Error occured: %s", err.Error()))
		}
		done <- err
	}()

	return done
}

func (l *InteractionLogger) now() time.Time {
	if l.Now == nil {
		return time.Now()
	}
	return l.Now()
}
