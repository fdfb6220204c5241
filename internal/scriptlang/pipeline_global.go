package scriptlang

import lua "github.com/yuin/gopher-lua"

// prelude implements the chainable pipeline.builder() surface (spec §6) on
// top of the single Go-registered entry point, pipeline.define. Shipping a
// small Lua-side runtime library alongside the Go-registered primitives is
// the same "host exposes the minimum, the rest is convenience" split the
// teacher draws between its engine and its HCL decoding helpers.
const prelude = `
local _builder_mt = {}
_builder_mt.__index = _builder_mt

function pipeline.builder()
  return setmetatable({
    _data = { inputs = {}, tags = {}, plugins = {}, stages = {} },
  }, _builder_mt)
end

function _builder_mt:name(v) self._data.name = v; return self end
function _builder_mt:description(v) self._data.description = v; return self end
function _builder_mt:input(name, opts)
  self._data.inputs[name] = opts or {}
  return self
end
function _builder_mt:tag(key, value)
  table.insert(self._data.tags, { key = key, value = value })
  return self
end
function _builder_mt:plugin(name)
  table.insert(self._data.plugins, name)
  return self
end
function _builder_mt:stage(name, opts)
  opts = opts or {}
  opts.name = name
  table.insert(self._data.stages, opts)
  return self
end
function _builder_mt:build()
  return pipeline.define(self._data)
end

function pipeline.input(opts)
  return opts or {}
end

function pipeline.stage(name, opts)
  opts = opts or {}
  opts.name = name
  return opts
end

function pipeline.tag(key, value)
  return { key = key, value = value }
end
`

// installPipelineGlobal installs the pipeline-definition surface shared by
// both sandboxes: define, builder, stage, input, tag (spec §6).
func installPipelineGlobal(L *lua.LState) {
	tbl := L.NewTable()
	L.SetField(tbl, "define", L.NewFunction(luaPipelineDefine))
	L.SetGlobal("pipeline", tbl)

	if err := L.DoString(prelude); err != nil {
		// The prelude is Rivet's own code, not user input; a failure here
		// is a programming error, not something a caller can recover from.
		panic("scriptlang: prelude failed to load: " + err.Error())
	}
}

// luaPipelineDefine is the identity function over the declarative table; it
// exists as a Go entry point so DeclaredPipeline extraction (extract.go) has
// a single, unambiguous return value to decode regardless of whether the
// script used pipeline.define directly or pipeline.builder():build().
func luaPipelineDefine(L *lua.LState) int {
	t := L.CheckTable(1)
	L.Push(t)
	return 1
}
