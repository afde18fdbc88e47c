package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/felixbrock/crayon/internal/domain"
)

const (
	DefaultCompletionUrl = "https://api.openai.com/v1/chat/completions"
	DefaultModel         = "gpt-3.5-turbo"
	credentialSetting    = "OAI_API_KEY"
)

// OAIRepo sends single chat completion requests. Credential is consulted on
// every call so a key set after startup is picked up.
type OAIRepo struct {
	BaseHeaders  []string
	Url          string
	DefaultModel string
	Credential   func() string
	Client       *http.Client
}

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiResponseFormat struct {
	Type string `json:"type"`
}

type oaiCompletionReq struct {
	Model          string            `json:"model"`
	Messages       []oaiMessage      `json:"messages"`
	ResponseFormat oaiResponseFormat `json:"response_format"`
	Temperature    float64           `json:"temperature"`
}

type oaiCompletion struct {
	Choices []struct {
		Message oaiMessage `json:"message"`
	} `json:"choices"`
}

func (r OAIRepo) Complete(ctx context.Context, proto domain.CompletionReq) (string, error) {
	apiKey := ""
	if r.Credential != nil {
		apiKey = r.Credential()
	}
	if apiKey == "" {
		return "", &domain.ConfigurationError{Setting: credentialSetting}
	}

	model := proto.Model
	if model == "" {
		model = r.DefaultModel
	}
	if model == "" {
		model = DefaultModel
	}

	format := "text"
	if proto.WantJSON {
		format = "json_object"
	}

	body, err := json.Marshal(oaiCompletionReq{
		Model: model,
		Messages: []oaiMessage{
			{Role: "system", Content: proto.SystemPrompt},
			{Role: "user", Content: proto.UserPrompt},
		},
		ResponseFormat: oaiResponseFormat{Type: format},
		Temperature:    proto.Temperature,
	})

	if err != nil {
		return "", err
	}

	url := r.Url
	if url == "" {
		url = DefaultCompletionUrl
	}

	headers := append([]string{
		"Content-Type:application/json",
		"Authorization:Bearer " + apiKey,
	}, r.BaseHeaders...)

	completion, err := request[oaiCompletion](ctx, reqConfig{
		Method:  http.MethodPost,
		Url:     url,
		Headers: headers,
		Body:    body,
		Client:  r.Client}, anySuccess)

	if err != nil {
		return "", classify(err)
	}

	if completion == nil || len(completion.Choices) == 0 {
		return "", &domain.TransportFailure{Err: errors.New("completion contains no choices")}
	}

	content := completion.Choices[0].Message.Content
	if proto.WantJSON && !json.Valid([]byte(content)) {
		return "", &domain.MalformedCompletion{Err: errors.New("completion content is not valid JSON")}
	}

	return content, nil
}

func classify(err error) error {
	var se *statusError
	if errors.As(err, &se) {
		return &domain.TransportFailure{StatusCode: se.Code, Err: err}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &domain.MalformedCompletion{Err: err}
	}

	return &domain.TransportFailure{Err: err}
}
