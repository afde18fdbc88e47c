package app

import (
	"errors"
	"net/http"
)

type errCtx struct {
	Code  int
	Title string
	Msg   string
}

func get400(msg string) errCtx {
	return errCtx{
		Code:  http.StatusBadRequest,
		Title: "Bad request",
		Msg:   msg,
	}
}

func get404() errCtx {
	return errCtx{
		Code:  http.StatusNotFound,
		Title: "Not found",
		Msg:   "Sorry, we couldn't find the page you were looking for.",
	}
}

func get405() errCtx {
	return errCtx{
		Code:  http.StatusMethodNotAllowed,
		Title: "Method not allowed",
		Msg:   "Sorry, this action is not available here.",
	}
}

func get409(msg string) errCtx {
	return errCtx{
		Code:  http.StatusConflict,
		Title: "Please wait",
		Msg:   msg,
	}
}

func get429() errCtx {
	return errCtx{
		Code:  http.StatusTooManyRequests,
		Title: "Too many requests",
		Msg:   "Please wait a moment before asking the model again.",
	}
}

func get500(msg string) errCtx {
	return errCtx{
		Code:  http.StatusInternalServerError,
		Title: "Internal server error",
		Msg:   msg,
	}
}

// errCtxFor maps workflow errors to what the user is shown. Completion
// errors get the same message the workflow snapshot carries.
func errCtxFor(err error) errCtx {
	switch {
	case errors.Is(err, ErrBusy):
		return get409("The model is still working on your last request.")
	case errors.Is(err, ErrInvalidTransition):
		return get409("Generate objectives first.")
	case errors.Is(err, ErrEmptyPurpose),
		errors.Is(err, ErrNothingSelected),
		errors.Is(err, ErrInvalidObjective),
		errors.Is(err, ErrNoSuchObjective):
		return get400(capitalize(err.Error()) + ".")
	default:
		return get500(userMessage(err))
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}
