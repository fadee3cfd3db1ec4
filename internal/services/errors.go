package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRemote         = errors.New("remote service error")
	ErrAuthentication = errors.New("authentication error")
	ErrValidation     = errors.New("validation error")
	ErrConfiguration  = errors.New("configuration error")
	ErrNotFound       = errors.New("not found")
	ErrExternalTool   = errors.New("external tool error")
)

// UnknownProjectError reports a project name the authenticated user cannot see.
type UnknownProjectError struct {
	Project string
}

func (e *UnknownProjectError) Error() string {
	return fmt.Sprintf("unknown project %q", e.Project)
}

func (e *UnknownProjectError) Unwrap() error { return ErrNotFound }

// UnknownTaskError reports a task name that is not assigned to the user.
type UnknownTaskError struct {
	Task string
}

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("unknown task %q", e.Task)
}

func (e *UnknownTaskError) Unwrap() error { return ErrNotFound }

// MissingExportNodeError reports that the container holds no node able to
// produce the requested export kind.
type MissingExportNodeError struct {
	Kind     string
	NodeType string
}

func (e *MissingExportNodeError) Error() string {
	if e.NodeType == "" {
		return fmt.Sprintf("no %s export node in container", e.Kind)
	}
	return fmt.Sprintf("no %s export node (%s) in container", e.Kind, e.NodeType)
}

func (e *MissingExportNodeError) Unwrap() error { return ErrNotFound }

// RemoteServiceError carries the name of the remote operation that failed.
type RemoteServiceError struct {
	Operation string
	Err       error
}

func (e *RemoteServiceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("remote %s failed", e.Operation)
	}
	return fmt.Sprintf("remote %s failed: %v", e.Operation, e.Err)
}

// Unwrap exposes both the marker and the cause to errors.Is / errors.As.
func (e *RemoteServiceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRemote}
	}
	return []error{ErrRemote, e.Err}
}

// NewRemoteError wraps err as a RemoteServiceError unless it already is one or
// is an authentication failure, which keeps its own category.
func NewRemoteError(operation string, err error) error {
	if err == nil {
		return nil
	}
	var remote *RemoteServiceError
	if errors.As(err, &remote) {
		return err
	}
	var auth *AuthenticationError
	if errors.As(err, &auth) {
		return err
	}
	return &RemoteServiceError{Operation: operation, Err: err}
}

// AuthenticationError is returned when a credential token cannot be obtained
// or refreshed.
type AuthenticationError struct {
	Service string
	Err     error
}

func (e *AuthenticationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s authentication failed", e.Service)
	}
	return fmt.Sprintf("%s authentication failed: %v", e.Service, e.Err)
}

func (e *AuthenticationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrAuthentication}
	}
	return []error{ErrAuthentication, e.Err}
}

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrRemote
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Exit codes follow sysexits.h.
const (
	ExitOK             = 0
	ExitFailure        = 1
	ExitValidation     = 65
	ExitNotFound       = 66
	ExitRemote         = 69
	ExitExternalTool   = 70
	ExitAuthentication = 77
	ExitConfiguration  = 78
)

// ExitCode maps an error to the process exit status the CLI reports.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrConfiguration):
		return ExitConfiguration
	case errors.Is(err, ErrAuthentication):
		return ExitAuthentication
	case errors.Is(err, ErrNotFound):
		return ExitNotFound
	case errors.Is(err, ErrValidation):
		return ExitValidation
	case errors.Is(err, ErrRemote):
		return ExitRemote
	case errors.Is(err, ErrExternalTool):
		return ExitExternalTool
	default:
		return ExitFailure
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
