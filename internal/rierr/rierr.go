// Package rierr defines Rivet's abstract error taxonomy (spec §7) and the
// mapping from error kind to HTTP status code used by the orchestrator.
package rierr

import "fmt"

// ValidationError reports that a pipeline or launch parameters violated a
// declared constraint.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error at %s: %s", e.Path, e.Reason)
}

// Conflict reports an illegal state transition: a claim on a non-Pending
// job, a disallowed status transition, or a conflicting complete.
type Conflict struct {
	Reason string
}

func (e *Conflict) Error() string { return "conflict: " + e.Reason }

// NotFound reports an unknown pipeline, job, or runner.
type NotFound struct {
	Kind string
	ID   string
}

func (e *NotFound) Error() string { return fmt.Sprintf("%s not found: %s", e.Kind, e.ID) }

// TransientExternal reports a network or store failure a caller should
// retry with bounded exponential backoff.
type TransientExternal struct {
	Cause error
}

func (e *TransientExternal) Error() string { return fmt.Sprintf("transient external error: %v", e.Cause) }
func (e *TransientExternal) Unwrap() error { return e.Cause }

// StageError reports a script error raised inside a stage body or
// condition; it is terminal for the job.
type StageError struct {
	StageName string
	Message   string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %q failed: %s", e.StageName, e.Message)
}

// ContainerError reports a host-engine failure to start, exec, or destroy a
// container.
type ContainerError struct {
	Op    string
	Image string
	Cause error
}

func (e *ContainerError) Error() string {
	return fmt.Sprintf("container %s (%s) failed: %v", e.Op, e.Image, e.Cause)
}
func (e *ContainerError) Unwrap() error { return e.Cause }

// SandboxViolation reports that the metadata sandbox observed a call to a
// disallowed module. It always surfaces to callers as a ValidationError.
type SandboxViolation struct {
	Module string
}

func (e *SandboxViolation) Error() string {
	return fmt.Sprintf("module %q is not available in the metadata sandbox", e.Module)
}

// AsValidationError converts a SandboxViolation into the ValidationError the
// spec requires callers to see.
func (e *SandboxViolation) AsValidationError() *ValidationError {
	return &ValidationError{Path: "pipeline." + e.Module, Reason: "module not permitted in metadata sandbox"}
}

// StatusCode maps an error kind to the HTTP status the orchestrator should
// return for it. Unrecognized errors map to 500.
func StatusCode(err error) int {
	switch err.(type) {
	case *ValidationError:
		return 422
	case *Conflict:
		return 409
	case *NotFound:
		return 404
	case *TransientExternal:
		return 503
	default:
		return 500
	}
}
