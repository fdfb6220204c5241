// Package faketest is an in-memory containerdriver.Engine used by unit
// tests that exercise the container stack and the script sandbox without a
// Docker daemon (spec §8's testable properties around container.with).
package faketest

import (
	"context"
	"fmt"
	"sync"

	"github.com/SolracHQ/rivet/internal/containerstack/containerdriver"
)

// Call records one Exec invocation for test assertions.
type Call struct {
	Image string
	Cmd   string
	Args  []string
	Cwd   string
}

// Engine is a fake containerdriver.Engine. ExecFunc, when set, computes the
// result of each Exec call; otherwise Exec returns exit code 0 with no
// output. Start succeeds unless FailStart maps the image to an error;
// Destroy always succeeds.
type Engine struct {
	mu      sync.Mutex
	started []containerdriver.Handle
	history []containerdriver.Handle
	calls   []Call
	seq     int

	ExecFunc  func(h containerdriver.Handle, req containerdriver.ExecRequest) (containerdriver.ExecResult, error)
	FailStart map[string]error
}

func New() *Engine {
	return &Engine{FailStart: map[string]error{}}
}

func (e *Engine) Start(_ context.Context, spec containerdriver.Spec) (containerdriver.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err, ok := e.FailStart[spec.Image]; ok {
		return containerdriver.Handle{}, err
	}
	e.seq++
	h := containerdriver.Handle{ID: fmt.Sprintf("fake-%d", e.seq), Image: spec.Image}
	e.started = append(e.started, h)
	e.history = append(e.history, h)
	return h, nil
}

func (e *Engine) Exec(_ context.Context, h containerdriver.Handle, req containerdriver.ExecRequest) (containerdriver.ExecResult, error) {
	e.mu.Lock()
	e.calls = append(e.calls, Call{Image: h.Image, Cmd: req.Cmd, Args: req.Args, Cwd: req.Cwd})
	fn := e.ExecFunc
	e.mu.Unlock()

	if fn != nil {
		return fn(h, req)
	}
	empty := ""
	return containerdriver.ExecResult{ExitCode: 0, Stdout: &empty, Stderr: &empty}, nil
}

func (e *Engine) Destroy(_ context.Context, h containerdriver.Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, s := range e.started {
		if s.ID == h.ID {
			e.started = append(e.started[:i], e.started[i+1:]...)
			return nil
		}
	}
	return nil
}

// Live returns the handles currently started but not yet destroyed.
func (e *Engine) Live() []containerdriver.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]containerdriver.Handle, len(e.started))
	copy(out, e.started)
	return out
}

// Calls returns every Exec call observed, in order.
func (e *Engine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Call, len(e.calls))
	copy(out, e.calls)
	return out
}

// History returns every Start call observed, live or since destroyed, in order.
func (e *Engine) History() []containerdriver.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]containerdriver.Handle, len(e.history))
	copy(out, e.history)
	return out
}
