// Package containerdriver abstracts the host container engine so the
// Container Stack (spec §4.2) can be driven by a real Docker daemon in
// production and by an in-memory fake in tests, without the stack itself
// knowing the difference — the same "plug in a different implementation"
// split the spec draws for every host-bridge capability (§9 "Module
// pluggability").
package containerdriver

import "context"

// Spec describes the container to start for one push (spec §4.2: image,
// workspace mount, sleeping entrypoint override).
type Spec struct {
	Image            string
	WorkspaceHostDir string
	WorkspaceMount   string
	Name             string
}

// Handle identifies a running container to later Exec/Destroy calls.
type Handle struct {
	ID    string
	Image string
}

// ExecRequest is one command to run inside a container's current context.
type ExecRequest struct {
	Cmd           string
	Args          []string
	Cwd           string
	Stdin         string
	CaptureStdout bool
	CaptureStderr bool
	OnStdoutLine  func(line string)
	OnStderrLine  func(line string)
}

// ExecResult is the outcome of one exec (spec §4.2).
type ExecResult struct {
	ExitCode int
	Stdout   *string
	Stderr   *string
}

// Engine is the host container engine contract: start a long-lived
// container, exec inside it, destroy it.
type Engine interface {
	Start(ctx context.Context, spec Spec) (Handle, error)
	Exec(ctx context.Context, h Handle, req ExecRequest) (ExecResult, error)
	Destroy(ctx context.Context, h Handle) error
}
