package runner

import (
	"fmt"
	"os"
	"path/filepath"
)

// workspaceMount is the well-known path every container context mounts the
// job's workspace directory at (spec §3 Workspace).
const workspaceMount = "/workspace"

// newWorkspace allocates a job-scoped host directory unique to jobID (spec
// §4.4: "Allocate a workspace directory unique to the job").
func newWorkspace(root, jobID string) (string, error) {
	dir := filepath.Join(root, "rivet-job-"+jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("runner: create workspace %s: %w", dir, err)
	}
	return dir, nil
}

// removeWorkspace cleans up the job's workspace directory. Failure is
// logged by the caller, not fatal — a leaked temp directory never blocks a
// job from reporting its result.
func removeWorkspace(dir string) error {
	return os.RemoveAll(dir)
}
