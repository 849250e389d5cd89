package process

import (
	"errors"
	"fmt"
)

// NoTextMessage is shown to the user when a tool is run against empty text
const NoTextMessage = "No hay texto disponible para procesar."

// ErrNoTextAvailable is returned when a tool source is empty after trimming.
// The gateway is never called in that case.
var ErrNoTextAvailable = errors.New("no text available for tool")

// ErrCaseNotFound is returned by stores when the case does not exist
var ErrCaseNotFound = errors.New("case not found")

// ErrNoActiveCase is returned by workspace operations before Open
var ErrNoActiveCase = errors.New("no case open in workspace")

// ErrUnknownField is returned for a field name the phase does not declare
var ErrUnknownField = errors.New("unknown field")

// ErrContextChanged is returned when the workspace switched case while a
// request was running; the response is discarded.
var ErrContextChanged = errors.New("workspace case changed while request was running")

// ConfigurationError reports a broken phase table: an unknown phase, an
// empty required-field list or inconsistent completion targets.
// It must never be swallowed.
type ConfigurationError struct {
	Phase  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Phase == "" {
		return "process configuration error: " + e.Reason
	}
	return fmt.Sprintf("process configuration error in phase %q: %s", e.Phase, e.Reason)
}

// GatewayError wraps a failed tool or consolidation fetch
type GatewayError struct {
	Tool    ToolKind // empty for consolidation fetches
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = "gateway request failed"
	}
	if e.Tool == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Tool, msg)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// PersistenceError reports a failed save; Stage is "fields" or "percentage"
type PersistenceError struct {
	Stage    string
	Attempts int
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist %s after %d attempt(s): %v", e.Stage, e.Attempts, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsConfigurationError reports whether err wraps a *ConfigurationError
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
