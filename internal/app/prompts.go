package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/felixbrock/crayon/internal/domain"
)

const (
	ObjectivesTemplateVersion  = "objectives/v1"
	GuardrailsTemplateVersion  = "guardrails/v1"
	AgentPromptTemplateVersion = "agent-prompt/v1"
)

const objectivesSystemPrompt = `
You are a consultant that is an expert at analyzing software agents.

Given a agent's purpose, identify 3 objectives that the agent must
accomplish to achieve the agent purpose.

1. Each objective should be no more than 5 words
2. Each objective should start with a verb
3. The agent must be the subject of each objective
4. The agent can respond to prompts, access the internet, and call other agents
5. Do not choose objectives that require human input
6. Do not choose redundant objectives
7. Write a justification for how each objective is relevant to the agent purpose


Response should be structured as json:
{
  "response": [
    {
      "rubric_name": $OBJECTIVE
      "rubric_explanation": $JUSTIFICATION
    },
    ...
  ]
}
`

const objectivesUserPrompt = `
Come up with the most important, non-overlapping 3 objectives that must be
satisfied to achieve the following agent purpose:

%s
`

const guardrailsSystemPrompt = `
You are a coach that is an expert in helping people reach their objectives.

Given a set of objectives, create a list of at most 10 guardrails that must be used to achieve the objective.

A guardrail must be a simple rule an agent can apply when generating a response.

An example of a negative guardrail is: do not repeat yourself.
An example of a positive guardrail is: check factuality of each statement.

Please structure as bullet points:
Your response must {guardrail}
`

const guardrailsUserPrompt = `Construct a set of at most 10 guardrails given the following objectives:

%s

Your response here:
`

const agentPromptSystemPrompt = `
You are a consultant that is an expert at writing clear communication.

Given an agent purpose and a set of objectives, write a clear prompt following in the following template.

Please format with json:
{
  "response": {
    "role": "You are a {role} that is an expert in {purpose}.",
    "instruction": "Your job is to answer questions to achieve the following objectives:",
    "objectives": [{objective}, ...],
    "guardrail": "Your response must adhere to the following guidelines:",
    "guidelines": [{guideline}, ...]
  }
}
`

const agentPromptUserPrompt = `Create an agent prompt for the following agent purpose:

%s

The agent prompt must achieve the following objectives and guidelines:

%s

%s

Please ensure the agent's responses are aligned with these goals.
`

// Assistant builds the three fixed completion requests the workflow needs on
// top of a single Completer.
type Assistant struct {
	Completer   Completer
	Model       string
	Temperature float64
}

func (a Assistant) complete(ctx context.Context, template string, req domain.CompletionReq) (string, error) {
	slog.Debug("requesting completion", "template", template, "json", req.WantJSON)
	return a.Completer.Complete(ctx, req)
}

type objectivesReply struct {
	Response *[]domain.Objective `json:"response"`
}

type agentPromptReply struct {
	Response *domain.GeneratedAgentPrompt `json:"response"`
}

// ExtractObjectives asks for three objectives for purpose. It also returns the
// raw completion text so it can be logged.
func (a Assistant) ExtractObjectives(ctx context.Context, purpose string) ([]domain.Objective, string, error) {
	raw, err := a.complete(ctx, ObjectivesTemplateVersion, domain.CompletionReq{
		SystemPrompt: objectivesSystemPrompt,
		UserPrompt:   fmt.Sprintf(objectivesUserPrompt, purpose),
		WantJSON:     true,
		Temperature:  a.Temperature,
		Model:        a.Model,
	})
	if err != nil {
		return nil, "", err
	}

	reply, err := ReadJSON[objectivesReply]([]byte(raw))
	if err != nil {
		return nil, "", &domain.MalformedCompletion{Err: err}
	}
	if reply.Response == nil || len(*reply.Response) == 0 {
		return nil, "", &domain.MalformedCompletion{Err: errors.New("completion lists no objectives")}
	}

	objectives := make([]domain.Objective, 0, len(*reply.Response))
	for _, o := range *reply.Response {
		objectives = append(objectives, domain.Objective{
			Name:        strings.TrimSpace(o.Name),
			Explanation: strings.TrimSpace(o.Explanation),
			Selected:    false,
		})
	}

	return objectives, raw, nil
}

// DeriveGuardrails returns a free text bullet list of at most ten rules for
// the selected objectives.
func (a Assistant) DeriveGuardrails(ctx context.Context, selectedObjectives string) (string, error) {
	return a.complete(ctx, GuardrailsTemplateVersion, domain.CompletionReq{
		SystemPrompt: guardrailsSystemPrompt,
		UserPrompt:   fmt.Sprintf(guardrailsUserPrompt, selectedObjectives),
		WantJSON:     false,
		Temperature:  a.Temperature,
		Model:        a.Model,
	})
}

func (a Assistant) ComposeAgentPrompt(ctx context.Context, purpose string, selectedObjectives string, guardrails string) (*domain.GeneratedAgentPrompt, string, error) {
	raw, err := a.complete(ctx, AgentPromptTemplateVersion, domain.CompletionReq{
		SystemPrompt: agentPromptSystemPrompt,
		UserPrompt:   fmt.Sprintf(agentPromptUserPrompt, purpose, selectedObjectives, guardrails),
		WantJSON:     true,
		Temperature:  a.Temperature,
		Model:        a.Model,
	})
	if err != nil {
		return nil, "", err
	}

	reply, err := ReadJSON[agentPromptReply]([]byte(raw))
	if err != nil {
		return nil, "", &domain.MalformedCompletion{Err: err}
	}
	if reply.Response == nil {
		return nil, "", &domain.MalformedCompletion{Err: errors.New("completion contains no agent prompt")}
	}

	prompt := reply.Response
	if prompt.Objectives == nil {
		prompt.Objectives = []string{}
	}
	if prompt.Guidelines == nil {
		prompt.Guidelines = []string{}
	}

	return prompt, raw, nil
}
