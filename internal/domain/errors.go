package domain

import "fmt"

// ConfigurationError reports a setting that is required at call time but absent.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s is not set", e.Setting)
}

// TransportFailure covers network errors and non-2xx replies from the
// completion endpoint. StatusCode is 0 when no response was received.
type TransportFailure struct {
	StatusCode int
	Err        error
}

func (e *TransportFailure) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("completion failure: status %d: %s", e.StatusCode, e.Err.Error())
	}
	return fmt.Sprintf("completion failure: %s", e.Err.Error())
}

func (e *TransportFailure) Unwrap() error { return e.Err }

type MalformedCompletion struct {
	Err error
}

func (e *MalformedCompletion) Error() string {
	return fmt.Sprintf("malformed completion: %s", e.Err.Error())
}

func (e *MalformedCompletion) Unwrap() error { return e.Err }

// LoggingFailure is recovered by the interaction logger and never reaches the user.
type LoggingFailure struct {
	Record string
	Err    error
}

func (e *LoggingFailure) Error() string {
	return fmt.Sprintf("logging %s record failed: %s", e.Record, e.Err.Error())
}

func (e *LoggingFailure) Unwrap() error { return e.Err }
