package scriptlang

import (
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// Compiled is a pipeline script parsed once and ready to be instantiated
// against any number of Lua states, so the same source can be re-evaluated
// in the metadata sandbox and, later, independently, in the execution
// sandbox (spec §4.1) without re-parsing.
type Compiled struct {
	proto *lua.FunctionProto
}

// CompileSource parses pipeline source text into a reusable chunk.
func CompileSource(name, source string) (*Compiled, error) {
	chunk, err := parse.Parse(strings.NewReader(source), name)
	if err != nil {
		return nil, fmt.Errorf("parse pipeline script: %w", err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, fmt.Errorf("compile pipeline script: %w", err)
	}
	return &Compiled{proto: proto}, nil
}

// Run instantiates the chunk in L and executes it, returning its single
// return value (the table produced by pipeline.define(...) or
// pipeline.builder():build()).
func (c *Compiled) Run(L *lua.LState) (lua.LValue, error) {
	fn := L.NewFunctionFromProto(c.proto)
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		return nil, translateLuaError(err)
	}
	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}
