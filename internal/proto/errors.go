/*
Copyright © 2025 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package proto

import "fmt"

// ErrorKind is the closed error taxonomy returned to MCP callers.
type ErrorKind string

const (
	ErrInvalidRequest      ErrorKind = "InvalidRequest"
	ErrToolNotFound        ErrorKind = "ToolNotFound"
	ErrToolNotVisible      ErrorKind = "ToolNotVisible"
	ErrUnauthenticated     ErrorKind = "Unauthenticated"
	ErrUnauthorized        ErrorKind = "Unauthorized"
	ErrLspUnavailable      ErrorKind = "LspUnavailable"
	ErrLspTimeout          ErrorKind = "LspTimeout"
	ErrLspError            ErrorKind = "LspError"
	ErrUnsupportedByServer ErrorKind = "UnsupportedByServer"
	ErrValidationFailed    ErrorKind = "ValidationFailed"
	ErrConflict            ErrorKind = "Conflict"
	ErrConflictingEdits    ErrorKind = "ConflictingEdits"
	ErrNameCollision       ErrorKind = "NameCollision"
	ErrCircularDependency  ErrorKind = "CircularDependency"
	ErrConsolidationFailed ErrorKind = "ConsolidationFailed"
	ErrRollbackPerformed   ErrorKind = "RollbackPerformed"
	ErrIo                  ErrorKind = "Io"
	ErrInternal            ErrorKind = "Internal"
)

// ApiError is the error type every service boundary in codebuddy returns.
// It wraps an underlying cause (for logs) while exposing only Kind,
// Message, and Details on the wire; stack traces and secrets never
// leave the process.
type ApiError struct {
	Kind    ErrorKind
	Message string
	Details map[string]any
	Cause   error
}

func (e *ApiError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ApiError) Unwrap() error { return e.Cause }

// Is supports errors.Is(err, &ApiError{Kind: X}) by comparing Kind only.
func (e *ApiError) Is(target error) bool {
	other, ok := target.(*ApiError)
	if !ok {
		return false
	}
	return other.Kind == e.Kind
}

// NewError builds an *ApiError, optionally wrapping cause.
func NewError(kind ErrorKind, message string, cause error) *ApiError {
	return &ApiError{Kind: kind, Message: message, Cause: cause}
}

// WithDetails attaches machine-readable details and returns e for chaining.
func (e *ApiError) WithDetails(details map[string]any) *ApiError {
	e.Details = details
	return e
}

// Kind-specific constructors used throughout the service layer.

// ErrorInvalidRequest reports arguments that failed schema validation or a
// malformed request envelope.
func ErrorInvalidRequest(details string) *ApiError {
	return NewError(ErrInvalidRequest, details, nil)
}

// ErrorToolNotFound reports a tools/call for a name no handler is
// registered under.
func ErrorToolNotFound(name string) *ApiError {
	return NewError(ErrToolNotFound, fmt.Sprintf("no tool registered with name %q", name), nil).
		WithDetails(map[string]any{"name": name})
}

// ErrorToolNotVisible reports a tools/call for an internal-only tool
// arriving over a transport/session that cannot see it.
func ErrorToolNotVisible(name string) *ApiError {
	return NewError(ErrToolNotVisible, fmt.Sprintf("tool %q is not visible from this endpoint", name), nil).
		WithDetails(map[string]any{"name": name})
}

// ErrorUnauthenticated reports a missing or invalid auth token on a
// transport that requires one.
func ErrorUnauthenticated(reason string) *ApiError {
	return NewError(ErrUnauthenticated, reason, nil)
}

// ErrorUnauthorized reports a validly authenticated caller lacking
// permission for the requested operation.
func ErrorUnauthorized(reason string) *ApiError {
	return NewError(ErrUnauthorized, reason, nil)
}

func ErrorLspUnavailable(ext string) *ApiError {
	return NewError(ErrLspUnavailable, fmt.Sprintf("no language server configured for extension %q", ext), nil).
		WithDetails(map[string]any{"extension": ext})
}

func ErrorLspTimeout(method string) *ApiError {
	return NewError(ErrLspTimeout, fmt.Sprintf("language server did not respond to %q in time", method), nil).
		WithDetails(map[string]any{"method": method})
}

func ErrorUnsupportedByServer(capability string) *ApiError {
	return NewError(ErrUnsupportedByServer, fmt.Sprintf("server does not advertise capability %q", capability), nil).
		WithDetails(map[string]any{"capability": capability})
}

func ErrorValidationFailed(details string) *ApiError {
	return NewError(ErrValidationFailed, details, nil)
}

func ErrorConflict(path string) *ApiError {
	return NewError(ErrConflict, fmt.Sprintf("path already exists: %s", path), nil).
		WithDetails(map[string]any{"path": path})
}

// ErrorConflictingEdits reports two planned targets whose renamed ranges
// overlap in the same file.
func ErrorConflictingEdits(path string) *ApiError {
	return NewError(ErrConflictingEdits, fmt.Sprintf("overlapping renamed ranges in %s", path), nil).
		WithDetails(map[string]any{"path": path})
}

// ErrorNameCollision reports a renamed identifier colliding with one
// already in scope at the target location.
func ErrorNameCollision(name string, path string) *ApiError {
	return NewError(ErrNameCollision, fmt.Sprintf("%q already declared in scope", name), nil).
		WithDetails(map[string]any{"name": name, "path": path})
}

func ErrorCircularDependency(chain []string, modules []string) *ApiError {
	return NewError(ErrCircularDependency, "consolidation would create a dependency cycle", nil).
		WithDetails(map[string]any{"chain": chain, "modules": modules})
}

func ErrorConsolidationFailed(stage string, cause error) *ApiError {
	return NewError(ErrConsolidationFailed, fmt.Sprintf("consolidation failed during %s", stage), cause).
		WithDetails(map[string]any{"stage": stage})
}

func ErrorRollbackPerformed(cause error) *ApiError {
	return NewError(ErrRollbackPerformed, "apply failed; filesystem restored to pre-call state", cause)
}

func ErrorIo(path string, cause error) *ApiError {
	return NewError(ErrIo, fmt.Sprintf("filesystem error for %s", path), cause).
		WithDetails(map[string]any{"path": path})
}

func ErrorInternal(correlationID string, cause error) *ApiError {
	return NewError(ErrInternal, "internal error", cause).
		WithDetails(map[string]any{"correlationId": correlationID})
}
