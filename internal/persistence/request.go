package persistence

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/felixbrock/crayon/internal/app"
)

// anySuccess accepts every 2xx status code.
const anySuccess = 0

type reqConfig struct {
	Method    string
	Url       string
	UrlParams []string
	Headers   []string
	Body      []byte
	Client    *http.Client
}

type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected response status code %d", e.Code)
	}
	return fmt.Sprintf("unexpected response status code %d: %s", e.Code, e.Body)
}

func request[T any](ctx context.Context, config reqConfig, expectedResCode int) (*T, error) {
	url := config.Url
	if len(config.UrlParams) > 0 {
		url = fmt.Sprintf("%s?%s", url, strings.Join(config.UrlParams, "&"))
	}

	req, err := http.NewRequestWithContext(ctx, config.Method, url, bytes.NewBuffer(config.Body))

	if err != nil {
		return nil, err
	}

	for i := 0; i < len(config.Headers); i++ {
		headerKV := strings.SplitN(config.Headers[i], ":", 2)
		if len(headerKV) != 2 {
			return nil, fmt.Errorf("malformed header %q", config.Headers[i])
		}
		req.Header.Add(strings.TrimSpace(headerKV[0]), strings.TrimSpace(headerKV[1]))
	}

	client := config.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)

	if err != nil {
		return nil, err
	}

	body, err := app.Read(resp.Body)

	if err != nil {
		return nil, err
	}

	if !statusOK(resp.StatusCode, expectedResCode) {
		return nil, &statusError{Code: resp.StatusCode, Body: truncate(string(body), 512)}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var t *T
	t, err = app.ReadJSON[T](body)

	if err != nil {
		return nil, err
	}

	return t, nil
}

func statusOK(code int, expected int) bool {
	if expected == anySuccess {
		return code >= 200 && code < 300
	}
	return code == expected
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
