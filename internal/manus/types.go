// Package manus is a thin client for the Manus AI task API.
//
// Every operation is one synchronous HTTP request. Failures are returned as
// data, never as Go errors: each call yields an Envelope holding either the
// decoded upstream response body, an upstream API error with its HTTP status
// code, or a transport-level failure.
package manus

import "fmt"

// ErrorKind classifies a failed bridge call.
type ErrorKind string

const (
	// KindAPI is a non-2xx response from the Manus API.
	KindAPI ErrorKind = "api"
	// KindTransport is a connection, DNS, or timeout failure where no
	// HTTP response was received.
	KindTransport ErrorKind = "transport"
)

// CallError describes a failed bridge call.
type CallError struct {
	Kind    ErrorKind
	Message string
	// StatusCode is the upstream HTTP status. Zero for transport failures.
	StatusCode int
}

func (e *CallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

// Envelope is the uniform result shape returned by every bridge operation.
// Exactly one of Data and Err is set.
type Envelope struct {
	// Data is the decoded upstream JSON body, passed through verbatim.
	Data map[string]any
	// Err is set when the call failed.
	Err *CallError
}

// OK reports whether the call succeeded.
func (e *Envelope) OK() bool {
	return e.Err == nil
}

// ToMap renders the envelope as the mapping handed back to tool callers.
// On success this is the raw upstream body; on failure a mapping with an
// "error" message and, for API errors, the upstream "status_code".
func (e *Envelope) ToMap() map[string]any {
	if e.Err == nil {
		if e.Data == nil {
			return map[string]any{}
		}
		return e.Data
	}
	m := map[string]any{"error": e.Err.Message}
	if e.Err.StatusCode != 0 {
		m["status_code"] = e.Err.StatusCode
	}
	return m
}

// CreateTaskOptions holds the optional create_task parameters.
// Zero values fall back to the documented defaults.
type CreateTaskOptions struct {
	// AgentProfile selects the model capability preset, e.g. "manus-1.6",
	// "manus-1.6-lite", "manus-1.6-max". Falls back to the configured default.
	AgentProfile string
	// TaskMode selects the execution strategy: "agent", "chat", or
	// "adaptive". Falls back to "agent".
	TaskMode string
	// ProjectID optionally assigns the task to a project. Omitted from the
	// payload when empty.
	ProjectID string
}

// DefaultListLimit is the number of tasks returned when the caller does not
// specify a limit.
const DefaultListLimit = 20

// ListTasksOptions holds the optional list_tasks filters.
type ListTasksOptions struct {
	// Status filters by task status; sent as a single-element filter when set.
	Status string
	// Limit caps the number of returned tasks. Falls back to DefaultListLimit.
	Limit int
	// ProjectID filters by project. Omitted from the query when empty.
	ProjectID string
}
