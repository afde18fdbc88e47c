package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
)

type ComponentResponse struct {
	Error       error
	Code        int
	ContentType string
	Component   templ.Component
}

type ComponentHandler func(http.ResponseWriter, *http.Request) *ComponentResponse

func (ch ComponentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := ch(w, r)

	if resp.Error != nil {
		slog.Error(fmt.Sprintf(`Error occured: %s`, resp.Error.Error()))
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = "text/html; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)

	if resp.Code != 0 {
		// htmx only swaps 2xx responses; error components are sent as 200
		// unless the client asked for JSON.
		code := resp.Code
		if code >= 400 && contentType != jsonContentType {
			code = http.StatusOK
		}
		w.WriteHeader(code)
	}

	if resp.Component == nil {
		return
	}

	err := resp.Component.Render(r.Context(), w)

	if err != nil {
		slog.Error(fmt.Sprintf(`Error occured: %s`, err.Error()))
	}
}
