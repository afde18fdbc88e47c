// Package components renders the Crayon page and the fragments htmx swaps into it.
package components

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/felixbrock/crayon/internal/domain"
	"github.com/felixbrock/crayon/internal/scoring"
)

// WorkflowView is what the objectives panel needs to know about a workflow.
type WorkflowView struct {
	State       string
	Busy        bool
	Objectives  []domain.Objective
	CanGenerate bool
	Prompt      *domain.GeneratedAgentPrompt
	Error       string
}

type html struct {
	w   io.Writer
	err error
}

func (h *html) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *html) rawf(format string, args ...any) {
	h.raw(fmt.Sprintf(format, args...))
}

func render(fn func(h *html)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		fn(h)
		return h.err
	})
}

func Index() templ.Component {
	return render(func(h *html) {
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>Crayon</title>`)
		h.raw(`<script src="https://unpkg.com/htmx.org@1.9.10"></script>`)
		h.raw(`<link rel="stylesheet" href="/static/crayon.css"></head><body>`)
		h.raw(`<main class="crayon"><section class="editor">`)
		h.raw(`<h1>Crayon</h1><p>Type a prompt for your language model below:</p>`)
		h.raw(`<form hx-post="/objectives" hx-target="#workflow" hx-indicator="#loading">`)
		h.raw(`<textarea name="purpose" rows="5" hx-post="/evaluate" hx-trigger="keyup changed delay:150ms" hx-target="#score"></textarea>`)
		h.raw(`<button type="submit">Generate Objectives</button><span id="loading" class="htmx-indicator">Loading...</span></form>`)
		h.raw(`<div id="workflow"></div></section>`)
		h.raw(`<aside id="score">`)
		renderScore(h, nil, nil, 100)
		h.raw(`</aside></main></body></html>`)
	})
}

// ScorePanel shows the highlighted input, the score and the flag list.
func ScorePanel(tokens []scoring.Token, flags []domain.TextFlag, score int) templ.Component {
	return render(func(h *html) {
		renderScore(h, tokens, flags, score)
	})
}

func renderScore(h *html, tokens []scoring.Token, flags []domain.TextFlag, score int) {
	h.raw(`<div class="highlighted">`)
	for i, t := range tokens {
		if i > 0 {
			h.raw(" ")
		}
		if t.Severity == "" {
			h.text(t.Text)
			continue
		}
		h.rawf(`<span class="%s">`, severityClass(t.Severity))
		h.text(t.Text)
		h.raw(`</span>`)
	}
	h.raw(`</div>`)

	h.rawf(`<h2>Overall Score</h2><p class="score %s">%d/100</p>`, scoreClass(score), score)

	h.raw(`<h3>Errors &amp; Suggestions</h3>`)
	if len(flags) == 0 {
		h.raw(`<p>No issues detected.</p>`)
		return
	}
	h.raw(`<ul class="flags">`)
	for _, f := range flags {
		h.rawf(`<li><strong class="%s">`, severityClass(f.Severity))
		h.text(f.Token)
		h.raw(`</strong><p>`)
		h.text(f.Rationale)
		h.raw(`</p><p class="suggestion">Suggestion: `)
		h.text(f.Message)
		h.raw(`</p></li>`)
	}
	h.raw(`</ul>`)
}

// Workflow renders the objectives table, the add form and, once generated,
// the agent prompt.
func Workflow(view WorkflowView) templ.Component {
	return render(func(h *html) {
		if view.Error != "" {
			h.raw(`<p class="error">`)
			h.text(view.Error)
			h.raw(`</p>`)
		}
		if len(view.Objectives) == 0 {
			return
		}

		h.raw(`<h2>Objectives</h2><table class="objectives"><thead><tr>`)
		h.raw(`<th>Include</th><th>Objective</th><th>Explanation</th></tr></thead><tbody>`)
		for i, o := range view.Objectives {
			checked := ""
			if o.Selected {
				checked = " checked"
			}
			h.rawf(`<tr><td><input type="checkbox" value="%d"%s hx-post="/objectives/toggle" hx-vals='{"index": "%d"}' hx-target="#workflow"></td><td>`, i, checked, i)
			h.text(o.Name)
			h.raw(`</td><td>`)
			h.text(o.Explanation)
			h.raw(`</td></tr>`)
		}
		h.raw(`</tbody></table>`)

		h.raw(`<form hx-post="/objectives/add" hx-target="#workflow">`)
		h.raw(`<input type="text" name="name" placeholder="Objective Name">`)
		h.raw(`<input type="text" name="explanation" placeholder="Explanation">`)
		h.raw(`<button type="submit">Add Objective</button></form>`)

		disabled := ""
		if view.Busy || !view.CanGenerate {
			disabled = " disabled"
		}
		label := "Generate Agent Prompt"
		if view.Busy {
			label = "Loading..."
		}
		h.rawf(`<button hx-post="/prompt" hx-target="#workflow"%s>%s</button>`, disabled, label)

		if view.Prompt != nil {
			renderPrompt(h, *view.Prompt)
		}
	})
}

func GeneratedPrompt(p domain.GeneratedAgentPrompt) templ.Component {
	return render(func(h *html) {
		renderPrompt(h, p)
	})
}

func renderPrompt(h *html, p domain.GeneratedAgentPrompt) {
	h.raw(`<div class="generated"><h3>Generated Agent Prompt</h3><p>`)
	h.text(p.Role)
	h.raw(`</p><p>`)
	h.text(p.Instruction)
	h.raw(`</p><ul>`)
	for _, o := range p.Objectives {
		h.raw(`<li>`)
		h.text(o)
		h.raw(`</li>`)
	}
	h.raw(`</ul><p>`)
	h.text(p.GuardrailIntro)
	h.raw(`</p><ul>`)
	for _, g := range p.Guidelines {
		h.raw(`<li>`)
		h.text(g)
		h.raw(`</li>`)
	}
	h.raw(`</ul><p>Your response here:</p></div>`)
}

func Error(code int, title string, msg string) templ.Component {
	return render(func(h *html) {
		h.rawf(`<div class="error" data-code="%d"><h3>`, code)
		h.text(title)
		h.raw(`</h3><p>`)
		h.text(msg)
		h.raw(`</p></div>`)
	})
}

// JSON encodes v as the response body, for polling clients.
func JSON(v any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return json.NewEncoder(w).Encode(v)
	})
}

func severityClass(s domain.Severity) string {
	if s == domain.SeverityError {
		return "flag-error"
	}
	return "flag-warning"
}

func scoreClass(score int) string {
	switch {
	case score >= 70:
		return "score-good"
	case score >= 40:
		return "score-fair"
	default:
		return "score-poor"
	}
}
