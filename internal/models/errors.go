package models

import (
	"fmt"
	"strings"
)

// ConfigErrorKind represents the category of a configuration failure
type ConfigErrorKind string

const (
	// ConfigMissingEnvVar is returned when a ${NAME} placeholder references an unset variable
	ConfigMissingEnvVar ConfigErrorKind = "missing_env_var"
	// ConfigUnknownEndpoint is returned when a command references an endpoint that is not defined
	ConfigUnknownEndpoint ConfigErrorKind = "unknown_endpoint"
	// ConfigInvalidDocument covers every other structural or validation failure
	ConfigInvalidDocument ConfigErrorKind = "invalid_document"
)

// ConfigError is fatal at startup: the process must refuse to serve traffic
type ConfigError struct {
	Kind     ConfigErrorKind
	Path     string // dotted document path, e.g. api_endpoints.default_openai.api_key
	Variable string // set for ConfigMissingEnvVar
	Command  string // set for ConfigUnknownEndpoint
	Endpoint string // set for ConfigUnknownEndpoint
	Message  string
	Cause    error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("config error (")
	b.WriteString(string(e.Kind))
	b.WriteString(")")

	switch e.Kind {
	case ConfigMissingEnvVar:
		fmt.Fprintf(&b, ": environment variable %q is not set", e.Variable)
	case ConfigUnknownEndpoint:
		fmt.Fprintf(&b, ": command %q references unknown endpoint %q", e.Command, e.Endpoint)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " (at %s)", e.Path)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap allows error unwrapping
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewMissingEnvVarError creates a missing environment variable error
func NewMissingEnvVarError(variable, path string) *ConfigError {
	return &ConfigError{
		Kind:     ConfigMissingEnvVar,
		Variable: variable,
		Path:     path,
	}
}

// NewUnknownEndpointError creates an unresolved endpoint reference error
func NewUnknownEndpointError(command, endpoint string) *ConfigError {
	return &ConfigError{
		Kind:     ConfigUnknownEndpoint,
		Command:  command,
		Endpoint: endpoint,
		Path:     "commands." + command + ".api_endpoint",
	}
}

// NewInvalidDocumentError creates a structural validation error
func NewInvalidDocumentError(path, message string, cause error) *ConfigError {
	return &ConfigError{
		Kind:    ConfigInvalidDocument,
		Path:    path,
		Message: message,
		Cause:   cause,
	}
}

// DispatchErrorKind represents the category of a dispatch failure
type DispatchErrorKind string

const (
	// DispatchUnknownCommand is returned when the command token is not registered
	DispatchUnknownCommand DispatchErrorKind = "unknown_command"
)

// DispatchError is recovered locally and surfaced to the user as help text
type DispatchError struct {
	Kind    DispatchErrorKind
	Command string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch error (%s): %s", e.Kind, e.Command)
}

// NewUnknownCommandError creates an unknown command error
func NewUnknownCommandError(command string) *DispatchError {
	return &DispatchError{Kind: DispatchUnknownCommand, Command: command}
}

// ClientErrorKind represents the category of an upstream call failure
type ClientErrorKind string

const (
	// ClientUnreachable covers network and connect failures
	ClientUnreachable ClientErrorKind = "unreachable"
	// ClientTimeout is returned when the configured request timeout elapses
	ClientTimeout ClientErrorKind = "timeout"
	// ClientUpstreamRejected is returned for non-2xx upstream responses
	ClientUpstreamRejected ClientErrorKind = "upstream_rejected"
	// ClientMalformedResponse is returned when the response shape cannot be used
	ClientMalformedResponse ClientErrorKind = "malformed_response"
)

// ClientError carries full diagnostic detail for the operational log.
// None of its fields may be shown to chat users.
type ClientError struct {
	Kind       ClientErrorKind
	Endpoint   string
	StatusCode int    // set for ClientUpstreamRejected
	Body       string // truncated upstream body, set for ClientUpstreamRejected
	Message    string
	Cause      error
}

// Error implements the error interface
func (e *ClientError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "endpoint %s: %s", e.Endpoint, e.Kind)
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Body != "" {
		fmt.Fprintf(&b, ": %s", e.Body)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap allows error unwrapping
func (e *ClientError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether the dispatcher may try the call again
func (e *ClientError) IsRetryable() bool {
	return e.Kind == ClientUnreachable || e.Kind == ClientTimeout
}

// NewUnreachableError creates a network failure error
func NewUnreachableError(endpoint string, cause error) *ClientError {
	return &ClientError{
		Kind:     ClientUnreachable,
		Endpoint: endpoint,
		Message:  "upstream unreachable",
		Cause:    cause,
	}
}

// NewClientTimeoutError creates a timeout error
func NewClientTimeoutError(endpoint string, cause error) *ClientError {
	return &ClientError{
		Kind:     ClientTimeout,
		Endpoint: endpoint,
		Message:  "request timed out",
		Cause:    cause,
	}
}

// NewUpstreamRejectedError creates a non-2xx error; body must already be truncated
func NewUpstreamRejectedError(endpoint string, statusCode int, body string) *ClientError {
	return &ClientError{
		Kind:       ClientUpstreamRejected,
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Body:       body,
	}
}

// NewMalformedResponseError creates an unexpected response shape error
func NewMalformedResponseError(endpoint, message string, cause error) *ClientError {
	return &ClientError{
		Kind:     ClientMalformedResponse,
		Endpoint: endpoint,
		Message:  message,
		Cause:    cause,
	}
}

// TruncateBody caps an upstream body to limit bytes without splitting a UTF-8 sequence
func TruncateBody(body string, limit int) string {
	if limit <= 0 || len(body) <= limit {
		return body
	}
	cut := limit
	for cut > 0 && !isRuneStart(body[cut]) {
		cut--
	}
	return body[:cut] + "...(truncated)"
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
