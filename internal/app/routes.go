package app

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/felixbrock/crayon/internal/components"
	"github.com/felixbrock/crayon/internal/domain"
	"github.com/felixbrock/crayon/internal/scoring"
)

// MinPurposeLen is the number of characters an agent purpose must exceed
// before objectives can be requested.
const MinPurposeLen = 50

func errResponse(ctx errCtx, err error) *ComponentResponse {
	return &ComponentResponse{Component: components.Error(ctx.Code, ctx.Title, ctx.Msg), Code: ctx.Code, Error: err}
}

func workflowView(s Snapshot) components.WorkflowView {
	return components.WorkflowView{
		State:       s.State.String(),
		Busy:        s.State.busy(),
		Objectives:  s.Objectives,
		CanGenerate: s.CanGenerate(),
		Prompt:      s.Prompt,
		Error:       s.Error,
	}
}

func isWorkflowErr(err error) bool {
	for _, target := range []error{ErrEmptyPurpose, ErrNothingSelected, ErrBusy, ErrInvalidTransition, ErrNoSuchObjective, ErrInvalidObjective} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// workflowResponse renders the workflow panel. Completion failures are part
// of the snapshot and shown inside the panel; rejected actions get an error
// component instead.
func workflowResponse(w *Workflow, err error) *ComponentResponse {
	if err != nil && isWorkflowErr(err) {
		return errResponse(errCtxFor(err), nil)
	}

	code := http.StatusOK
	if err != nil {
		code = errCtxFor(err).Code
	}

	return &ComponentResponse{Component: components.Workflow(workflowView(w.Snapshot())), Code: code, Error: err}
}

func allow(r *http.Request, method string) *ComponentResponse {
	if r.Method != method {
		return errResponse(get405(), nil)
	}
	return nil
}

func (a *App) index(w http.ResponseWriter, r *http.Request) *ComponentResponse {
	if r.URL.Path != "/" {
		return errResponse(get404(), nil)
	}
	if resp := allow(r, http.MethodGet); resp != nil {
		return resp
	}

	a.sessionId(w, r)

	return &ComponentResponse{Component: components.Index(), Code: http.StatusOK}
}

func (a *App) evaluate(w http.ResponseWriter, r *http.Request) *ComponentResponse {
	if resp := allow(r, http.MethodPost); resp != nil {
		return resp
	}
	if err := r.ParseForm(); err != nil {
		return errResponse(get400("The prompt could not be read."), err)
	}

	text := r.FormValue("purpose")
	flags, score := scoring.Evaluate(text)

	return &ComponentResponse{Component: components.ScorePanel(scoring.Highlight(text, flags), flags, score), Code: http.StatusOK}
}

func (a *App) submitPurpose(w http.ResponseWriter, r *http.Request) *ComponentResponse {
	if resp := allow(r, http.MethodPost); resp != nil {
		return resp
	}
	if err := r.ParseForm(); err != nil {
		return errResponse(get400("The agent purpose could not be read."), err)
	}

	purpose := strings.TrimSpace(r.FormValue("purpose"))
	if utf8.RuneCountInString(purpose) <= MinPurposeLen {
		return errResponse(get400(fmt.Sprintf("Please describe the agent's purpose in more than %d characters.", MinPurposeLen)), nil)
	}

	entry := a.session(w, r)
	if !entry.limiter.Allow() {
		return errResponse(get429(), nil)
	}

	err := entry.workflow.Submit(r.Context(), purpose)

	return workflowResponse(entry.workflow, err)
}

func (a *App) toggleObjective(w http.ResponseWriter, r *http.Request) *ComponentResponse {
	if resp := allow(r, http.MethodPost); resp != nil {
		return resp
	}
	if err := r.ParseForm(); err != nil {
		return errResponse(get400("The objective could not be read."), err)
	}

	index, err := strconv.Atoi(r.FormValue("index"))
	if err != nil {
		return errResponse(get400("Objective index must be a number."), nil)
	}

	entry := a.lookup(w, r)
	if entry == nil {
		return errResponse(errCtxFor(ErrInvalidTransition), nil)
	}
	err = entry.workflow.Toggle(index)

	return workflowResponse(entry.workflow, err)
}

func (a *App) addObjective(w http.ResponseWriter, r *http.Request) *ComponentResponse {
	if resp := allow(r, http.MethodPost); resp != nil {
		return resp
	}
	if err := r.ParseForm(); err != nil {
		return errResponse(get400("The objective could not be read."), err)
	}

	entry := a.lookup(w, r)
	if entry == nil {
		return errResponse(errCtxFor(ErrInvalidTransition), nil)
	}
	err := entry.workflow.AddObjective(r.FormValue("name"), r.FormValue("explanation"))

	return workflowResponse(entry.workflow, err)
}

func (a *App) generatePrompt(w http.ResponseWriter, r *http.Request) *ComponentResponse {
	if resp := allow(r, http.MethodPost); resp != nil {
		return resp
	}

	entry := a.lookup(w, r)
	if entry == nil {
		return errResponse(errCtxFor(ErrInvalidTransition), nil)
	}
	if !entry.workflow.Snapshot().CanGenerate() {
		return workflowResponse(entry.workflow, entry.workflow.Generate(r.Context()))
	}
	if !entry.limiter.Allow() {
		return errResponse(get429(), nil)
	}

	err := entry.workflow.Generate(r.Context())

	return workflowResponse(entry.workflow, err)
}

func (a *App) state(w http.ResponseWriter, r *http.Request) *ComponentResponse {
	if resp := allow(r, http.MethodGet); resp != nil {
		return resp
	}

	snapshot := Snapshot{State: Idle, Objectives: []domain.Objective{}}
	if entry := a.lookup(w, r); entry != nil {
		snapshot = entry.workflow.Snapshot()
	}

	return &ComponentResponse{Component: components.JSON(snapshot), Code: http.StatusOK, ContentType: jsonContentType}
}
