package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/felixbrock/crayon/internal/domain"
)

type State int

const (
	Idle State = iota
	ExtractingObjectives
	ObjectivesReady
	GeneratingAgentPrompt
	PromptReady
	Failed
)

var stateNames = [...]string{
	Idle:                  "idle",
	ExtractingObjectives:  "extracting_objectives",
	ObjectivesReady:       "objectives_ready",
	GeneratingAgentPrompt: "generating_agent_prompt",
	PromptReady:           "prompt_ready",
	Failed:                "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// busy reports whether a completion step is running in state s.
func (s State) busy() bool {
	return s == ExtractingObjectives || s == GeneratingAgentPrompt
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var (
	ErrEmptyPurpose      = errors.New("agent purpose is empty")
	ErrNothingSelected   = errors.New("no objective is selected")
	ErrBusy              = errors.New("a workflow step is already running")
	ErrInvalidTransition = errors.New("action not allowed in current state")
	ErrNoSuchObjective   = errors.New("objective does not exist")
	ErrInvalidObjective  = errors.New("objective needs a name and an explanation")
)

const DefaultCompletionTimeout = 60 * time.Second

// Snapshot is a copy of the workflow state safe to hand to a presentation layer.
type Snapshot struct {
	State      State                        `json:"state"`
	Purpose    string                       `json:"purpose"`
	Objectives []domain.Objective           `json:"objectives"`
	Prompt     *domain.GeneratedAgentPrompt `json:"prompt,omitempty"`
	Error      string                       `json:"error,omitempty"`
}

// CanGenerate reports whether Generate would issue completion calls.
func (s Snapshot) CanGenerate() bool {
	if s.State != ObjectivesReady && s.State != PromptReady && s.State != Failed {
		return false
	}
	for _, o := range s.Objectives {
		if o.Selected {
			return true
		}
	}
	return false
}

// Workflow drives one agent purpose from objective extraction to a generated
// agent prompt. At most one completion step runs at a time; Submit and
// Generate return ErrBusy while a step is in flight.
type Workflow struct {
	assistant Assistant
	logger    Logger
	session   domain.Session
	timeout   time.Duration

	mu             sync.Mutex
	state          State
	purpose        string
	objectives     []domain.Objective
	userObjectives []string
	prompt         *domain.GeneratedAgentPrompt
	errMsg         string
	subs           map[int]chan Snapshot
	nextSub        int
}

func NewWorkflow(assistant Assistant, logger Logger, session domain.Session, timeout time.Duration) *Workflow {
	if timeout <= 0 {
		timeout = DefaultCompletionTimeout
	}
	return &Workflow{
		assistant: assistant,
		logger:    logger,
		session:   session,
		timeout:   timeout,
		state:     Idle,
		subs:      map[int]chan Snapshot{},
	}
}

func (w *Workflow) Session() domain.Session {
	return w.session
}

// Submit starts over with a new agent purpose and extracts its objectives.
func (w *Workflow) Submit(ctx context.Context, purpose string) error {
	if strings.TrimSpace(purpose) == "" {
		return ErrEmptyPurpose
	}

	w.mu.Lock()
	if w.inFlight() {
		w.mu.Unlock()
		return ErrBusy
	}
	w.purpose = purpose
	w.objectives = nil
	w.userObjectives = nil
	w.prompt = nil
	w.transition(ExtractingObjectives, "")
	w.mu.Unlock()

	var objectives []domain.Objective
	var raw string
	err := w.step(ctx, func(ctx context.Context) error {
		var err error
		objectives, raw, err = w.assistant.ExtractObjectives(ctx, purpose)
		return err
	})

	w.log(w.logger.LogPromptInteraction(w.session, purpose, raw))

	w.mu.Lock()
	defer w.mu.Unlock()

	if err != nil {
		w.transition(Failed, userMessage(err))
		return err
	}

	w.objectives = objectives
	w.transition(ObjectivesReady, "")
	return nil
}

// Toggle flips the selection of the objective at index i.
func (w *Workflow) Toggle(i int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editable(); err != nil {
		return err
	}
	if i < 0 || i >= len(w.objectives) {
		return ErrNoSuchObjective
	}

	w.objectives[i].Selected = !w.objectives[i].Selected
	w.publish()
	return nil
}

// AddObjective appends a user-authored objective, selected.
func (w *Workflow) AddObjective(name string, explanation string) error {
	name = strings.TrimSpace(name)
	explanation = strings.TrimSpace(explanation)
	if name == "" || explanation == "" {
		return ErrInvalidObjective
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editable(); err != nil {
		return err
	}

	w.objectives = append(w.objectives, domain.Objective{Name: name, Explanation: explanation, Selected: true})
	w.userObjectives = append(w.userObjectives, fmt.Sprintf("%s: %s", name, explanation))
	w.publish()
	return nil
}

// Generate derives guardrails for the selected objectives and composes the
// agent prompt from them. With nothing selected it returns ErrNothingSelected
// and leaves the workflow untouched.
func (w *Workflow) Generate(ctx context.Context) error {
	w.mu.Lock()
	if w.inFlight() {
		w.mu.Unlock()
		return ErrBusy
	}
	if err := w.editable(); err != nil {
		w.mu.Unlock()
		return err
	}

	selected := make([]string, 0, len(w.objectives))
	for _, o := range w.objectives {
		if o.Selected {
			selected = append(selected, fmt.Sprintf("- %s: %s", o.Name, o.Explanation))
		}
	}
	if len(selected) == 0 {
		w.mu.Unlock()
		return ErrNothingSelected
	}

	purpose := w.purpose
	userObjectives := append([]string{}, w.userObjectives...)
	w.prompt = nil
	w.transition(GeneratingAgentPrompt, "")
	w.mu.Unlock()

	selectedText := strings.Join(selected, "\n")

	var guardrails string
	err := w.step(ctx, func(ctx context.Context) error {
		var err error
		guardrails, err = w.assistant.DeriveGuardrails(ctx, selectedText)
		return err
	})

	var prompt *domain.GeneratedAgentPrompt
	var raw string
	if err == nil {
		err = w.step(ctx, func(ctx context.Context) error {
			var err error
			prompt, raw, err = w.assistant.ComposeAgentPrompt(ctx, purpose, selectedText, guardrails)
			return err
		})
	}

	w.log(w.logger.LogObjectivesInteraction(w.session, userObjectives, selected, guardrails, raw))

	w.mu.Lock()
	defer w.mu.Unlock()

	if err != nil {
		w.transition(Failed, userMessage(err))
		return err
	}

	w.prompt = prompt
	w.transition(PromptReady, "")
	return nil
}

func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.snapshot()
}

// Subscribe returns a channel that receives a snapshot after every change.
// Slow readers only see the latest snapshot. cancel closes the channel.
func (w *Workflow) Subscribe() (<-chan Snapshot, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextSub
	w.nextSub++
	ch := make(chan Snapshot, 1)
	w.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			delete(w.subs, id)
			close(ch)
		})
	}

	return ch, cancel
}

func (w *Workflow) step(ctx context.Context, call func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	return call(ctx)
}

// log drops the logger result; failures were already reported by the logger.
func (w *Workflow) log(<-chan error) {}

func (w *Workflow) inFlight() bool {
	return w.state.busy()
}

func (w *Workflow) editable() error {
	if w.inFlight() {
		return ErrBusy
	}
	if w.state == Idle || len(w.objectives) == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (w *Workflow) transition(to State, errMsg string) {
	slog.Info("workflow transition", "session_id", w.session.Id, "from", w.state.String(), "to", to.String())
	w.state = to
	w.errMsg = errMsg
	w.publish()
}

func (w *Workflow) snapshot() Snapshot {
	s := Snapshot{
		State:      w.state,
		Purpose:    w.purpose,
		Objectives: append([]domain.Objective{}, w.objectives...),
		Error:      w.errMsg,
	}
	if w.prompt != nil {
		p := *w.prompt
		p.Objectives = append([]string{}, w.prompt.Objectives...)
		p.Guidelines = append([]string{}, w.prompt.Guidelines...)
		s.Prompt = &p
	}
	return s
}

func (w *Workflow) publish() {
	if len(w.subs) == 0 {
		return
	}
	s := w.snapshot()
	for _, ch := range w.subs {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- s
		}
	}
}

func userMessage(err error) string {
	var cfgErr *domain.ConfigurationError
	var malformed *domain.MalformedCompletion
	var transport *domain.TransportFailure

	switch {
	case errors.As(err, &cfgErr):
		return fmt.Sprintf("The completion service is not configured: %s is missing.", cfgErr.Setting)
	case errors.Is(err, context.DeadlineExceeded):
		return "The model took too long to respond. Please try again."
	case errors.As(err, &malformed):
		return "The model returned a response that could not be read. Please try again."
	case errors.As(err, &transport) && transport.StatusCode != 0:
		return fmt.Sprintf("An error occurred while calling OpenAI API: status %d.", transport.StatusCode)
	case errors.As(err, &transport):
		return "An error occurred while calling OpenAI API: the service could not be reached."
	default:
		return "An error occurred while calling OpenAI API."
	}
}
