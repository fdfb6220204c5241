// Package rivetcli holds the small pieces rivetctl's subcommands share:
// the teacher's ExitError sentinel (internal/cli/cli.go in burstgridgo),
// retargeted at a multi-subcommand CLI instead of a single flag set.
package rivetcli

// ExitError carries a process exit code alongside its message, the same
// "one error type, one mapping to process exit code" shape the teacher
// uses for its own CLI argument errors.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }
