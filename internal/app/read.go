package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// MaxBodyBytes bounds every body read from the completion endpoint, the record
// store or an HTTP client.
const MaxBodyBytes = 4 << 20

var errBodyTooLarge = errors.New("body exceeds size limit")

// Read drains and closes reader. Bodies larger than MaxBodyBytes are rejected.
func Read(reader io.ReadCloser) ([]byte, error) {
	defer func() {
		if err := reader.Close(); err != nil {
			slog.Error(fmt.Sprintf("Error occured: %s", err.Error()))
		}
	}()

	content, err := io.ReadAll(io.LimitReader(reader, MaxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(content) > MaxBodyBytes {
		return nil, errBodyTooLarge
	}

	return content, nil
}

// ReadJSON decodes content into a new T. A JSON null is an error, so a nil
// result is never returned without one.
func ReadJSON[T any](content []byte) (*T, error) {
	var t *T
	if err := json.Unmarshal(content, &t); err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errors.New("unexpected null JSON value")
	}

	return t, nil
}
