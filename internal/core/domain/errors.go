package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinels for errors.Is checks across package boundaries.
var (
	ErrAgentNotFound  = errors.New("agent not found")
	ErrModelNotFound  = errors.New("model not found")
	ErrQueueFull      = errors.New("queue is full")
	ErrRequestTimeout = errors.New("request timed out")
	ErrQueueCleared   = errors.New("queue cleared")
)

// ValidationError reports a malformed catalog registration. Fatal to that
// call only; no partial state is committed.
type ValidationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s=%v: %s", e.Field, e.Value, e.Reason)
}

func NewValidationError(field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// AgentNotFoundError is returned by strict lookups when no mapping exists
// and no default could be substituted.
type AgentNotFoundError struct {
	AgentID string
}

func (e *AgentNotFoundError) Error() string {
	return fmt.Sprintf("no model mapping for agent %q", e.AgentID)
}

func (e *AgentNotFoundError) Unwrap() error {
	return ErrAgentNotFound
}

// QueueFullError signals the scheduler rejected an admission. Expected
// steady-state behaviour, returned rather than panicked.
type QueueFullError struct {
	MaxSize int
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("queue is full (max %d)", e.MaxSize)
}

func (e *QueueFullError) Unwrap() error {
	return ErrQueueFull
}

// RequestTimeoutError marks a request that aged out while queued or in
// flight, so callers can tell "too slow" apart from "failed".
type RequestTimeoutError struct {
	RequestID string
	Waited    time.Duration
}

func (e *RequestTimeoutError) Error() string {
	return fmt.Sprintf("request %s timed out after %v", e.RequestID, e.Waited)
}

func (e *RequestTimeoutError) Unwrap() error {
	return ErrRequestTimeout
}

// BackendError wraps a failure talking to a local inference backend.
type BackendError struct {
	Err       error
	Operation string
	Endpoint  string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s failed for %s: %v", e.Operation, e.Endpoint, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func NewBackendError(operation, endpoint string, err error) *BackendError {
	return &BackendError{Operation: operation, Endpoint: endpoint, Err: err}
}
