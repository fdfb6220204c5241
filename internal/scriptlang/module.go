// Package scriptlang is Rivet's embedded scripting sandbox (spec §4.1, §9
// "Embedded scripting and two sandboxes"). It wraps github.com/yuin/gopher-lua,
// the pure-Go analogue of the Lua interpreter the reference implementation
// embeds (see original_source/rivet-lua), and implements the single
// evaluator factory the spec calls for: one function that takes a set of
// named host-provided tables to install before evaluation, and refuses all
// others.
//
// The factory shape mirrors the teacher's registry.Module /
// Register(r *Registry) pattern (internal/registry/registry.go in
// burstgridgo): each host-bridge module is a small Go type that knows how to
// install itself into a sandbox, and the evaluator just ranges over whatever
// set it was given.
package scriptlang

import lua "github.com/yuin/gopher-lua"

// Module is a host-bridge capability installed into the execution sandbox
// (spec §4.3: log, input, output, env, process, container). The metadata
// sandbox installs none of these — only the pipeline-definition surface.
type Module interface {
	// Name is the Lua global name this module installs (e.g. "log").
	Name() string
	// Install registers the module's table of callables as a Lua global.
	Install(L *lua.LState)
}
