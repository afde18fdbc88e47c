package app

import (
	"context"
	"sync"

	"github.com/felixbrock/crayon/internal/domain"
)

type reply struct {
	text string
	err  error
}

type fakeCompleter struct {
	mu      sync.Mutex
	replies []reply
	reqs    []domain.CompletionReq
	block   chan struct{}
}

func (f *fakeCompleter) Complete(ctx context.Context, req domain.CompletionReq) (string, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	block := f.block
	var r reply
	if len(f.replies) > 0 {
		r = f.replies[0]
		f.replies = f.replies[1:]
	}
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", &domain.TransportFailure{Err: ctx.Err()}
		}
	}

	return r.text, r.err
}

func (f *fakeCompleter) calls() []domain.CompletionReq {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.CompletionReq{}, f.reqs...)
}

type promptCall struct {
	session  domain.Session
	prompt   string
	response string
}

type objectivesCall struct {
	session            domain.Session
	userObjectives     []string
	selectedObjectives []string
	guardrailResponse  string
	generatedResponse  string
}

type fakeLogger struct {
	mu         sync.Mutex
	prompts    []promptCall
	objectives []objectivesCall
	err        error
}

func (l *fakeLogger) LogPromptInteraction(session domain.Session, prompt string, response string) <-chan error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompts = append(l.prompts, promptCall{session, prompt, response})
	return l.done()
}

func (l *fakeLogger) LogObjectivesInteraction(session domain.Session, userObjectives []string, selectedObjectives []string, guardrailResponse string, generatedPromptResponse string) <-chan error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.objectives = append(l.objectives, objectivesCall{session, userObjectives, selectedObjectives, guardrailResponse, generatedPromptResponse})
	return l.done()
}

func (l *fakeLogger) done() <-chan error {
	ch := make(chan error, 1)
	ch <- l.err
	close(ch)
	return ch
}

type fakeStore struct {
	mu         sync.Mutex
	prompts    []domain.PromptLog
	objectives []domain.ObjectivesLog
	err        error
}

func (s *fakeStore) InsertPrompt(_ context.Context, record domain.PromptLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.prompts = append(s.prompts, record)
	return nil
}

func (s *fakeStore) InsertObjectives(_ context.Context, record domain.ObjectivesLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.objectives = append(s.objectives, record)
	return nil
}

const objectivesJSON = `{"response": [
	{"rubric_name": "Answer billing questions", "rubric_explanation": "Customers mostly ask about invoices."},
	{"rubric_name": "Escalate unresolved issues", "rubric_explanation": "Some issues need another agent."},
	{"rubric_name": "Summarise account status", "rubric_explanation": "Context speeds up every answer."}
]}`

const agentPromptJSON = `{"response": {
	"role": "You are a support agent that is an expert in billing.",
	"instruction": "Your job is to answer questions to achieve the following objectives:",
	"objectives": ["Answer billing questions"],
	"guardrail": "Your response must adhere to the following guidelines:",
	"guidelines": ["Your response must cite the invoice number"]
}}`

const guardrailsText = "- Your response must cite the invoice number\n- Your response must be polite"
