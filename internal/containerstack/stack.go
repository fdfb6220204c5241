// Package containerstack implements the per-job LIFO of container execution
// contexts (spec §4.2, §9 "Container stack as scoped acquisition"). Stack
// depth is always >= 1 during a job: New immediately pushes the default
// fallback context, and push/pop are strictly paired via WithContainer.
package containerstack

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/SolracHQ/rivet/internal/containerstack/containerdriver"
	"github.com/SolracHQ/rivet/internal/ctxlog"
)

// Context is one entry in the stack: an image reference and the host-engine
// handle. The workspace mount shared by every context in the job is held
// by the Stack, not by each Context.
type Context struct {
	Image  string
	Handle containerdriver.Handle
}

// Stack is the LIFO of Contexts for one job. It is safe for concurrent use,
// though the scripting sandbox is single-threaded per job (spec §5) so in
// practice access is always sequential.
type Stack struct {
	mu     sync.Mutex
	ctxs   []Context
	engine containerdriver.Engine

	workspaceHostDir string
	workspaceMount   string

	// counter derives unique container names per push, combined with an
	// image hash, to avoid collisions across concurrent jobs on one runner
	// process (spec §4.2 invariants).
	counter atomic.Int64
	jobID   string
}

// New creates a Stack and pushes the default fallback context immediately,
// so Depth() is always >= 1 for the remainder of the job.
func New(ctx context.Context, engine containerdriver.Engine, jobID, workspaceHostDir, workspaceMount, defaultImage string) (*Stack, error) {
	s := &Stack{
		engine:           engine,
		workspaceHostDir: workspaceHostDir,
		workspaceMount:   workspaceMount,
		jobID:            jobID,
	}
	if _, err := s.push(ctx, defaultImage); err != nil {
		return nil, err
	}
	return s, nil
}

// Depth returns the current stack depth.
func (s *Stack) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ctxs)
}

// Top returns the current execution context. It panics if called before New
// has pushed the default context or after every context has been popped,
// which would be a programmer error — the stack is never empty during a
// job (spec §4.2 invariant).
func (s *Stack) Top() Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ctxs) == 0 {
		panic("containerstack: Top called on an empty stack")
	}
	return s.ctxs[len(s.ctxs)-1]
}

// push starts a new container from image and pushes it. On failure the
// stack is left unchanged (spec §4.2).
func (s *Stack) push(ctx context.Context, image string) (Context, error) {
	name := fmt.Sprintf("%s-%x-%d", s.jobID, hashImage(image), s.counter.Add(1))
	handle, err := s.engine.Start(ctx, containerdriver.Spec{
		Image:            image,
		WorkspaceHostDir: s.workspaceHostDir,
		WorkspaceMount:   s.workspaceMount,
		Name:             name,
	})
	if err != nil {
		return Context{}, fmt.Errorf("push %s: %w", image, err)
	}
	c := Context{Image: image, Handle: handle}
	s.mu.Lock()
	s.ctxs = append(s.ctxs, c)
	s.mu.Unlock()
	return c, nil
}

// pop removes and destroys the top context. Destruction is best-effort:
// failures are logged at warning and the pop completes regardless (spec
// §4.2).
func (s *Stack) pop(ctx context.Context) {
	s.mu.Lock()
	if len(s.ctxs) == 0 {
		s.mu.Unlock()
		return
	}
	top := s.ctxs[len(s.ctxs)-1]
	s.ctxs = s.ctxs[:len(s.ctxs)-1]
	s.mu.Unlock()

	if err := s.engine.Destroy(ctx, top.Handle); err != nil {
		ctxlog.FromContext(ctx).Warn("failed to destroy container", "image", top.Image, "error", err)
	}
}

// WithContainer is the scoped-acquisition guard behind the scripted
// container.with(image, fn) contract (spec §4.2): push, invoke fn, and on
// every exit path — normal return or panic — pop exactly once. A panic
// raised by fn is recovered, the stack is restored, and the error is
// re-raised to the caller, mirroring the teacher's cleanup-stack discipline
// in dag/executor.go's defer e.executeCleanupStack(ctx).
func (s *Stack) WithContainer(ctx context.Context, image string, fn func(ctx context.Context) error) (err error) {
	if _, pushErr := s.push(ctx, image); pushErr != nil {
		return pushErr
	}
	defer s.pop(ctx)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("container.with(%s): %v", image, r)
		}
	}()

	return fn(ctx)
}

// Exec runs req inside the container currently on top of the stack. An
// omitted Cwd defaults to the workspace mount (spec §4.3 "cwd defaults to
// the workspace root"), never the container image's own default directory.
func (s *Stack) Exec(ctx context.Context, req containerdriver.ExecRequest) (containerdriver.ExecResult, error) {
	if req.Cwd == "" {
		req.Cwd = s.workspaceMount
	}
	top := s.Top()
	return s.engine.Exec(ctx, top.Handle, req)
}

// DestroyAll pops every remaining context, used on job completion and on
// cancellation to guarantee every container pushed is eventually destroyed
// (spec §8 testable property).
func (s *Stack) DestroyAll(ctx context.Context) {
	for s.Depth() > 0 {
		s.pop(ctx)
	}
}

func hashImage(image string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(image); i++ {
		h ^= uint32(image[i])
		h *= 16777619
	}
	return h
}
