package scriptlang_test

import (
	"testing"

	lua "github.com/yuin/gopher-lua"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SolracHQ/rivet/internal/model"
	"github.com/SolracHQ/rivet/internal/rierr"
	"github.com/SolracHQ/rivet/internal/scriptlang"
)

const simplePipeline = `
return pipeline.define{
  name = "build-and-deploy",
  description = "builds and deploys the service",
  inputs = {
    environment = { type = "string", required = true, options = { "staging", "production" } },
  },
  stages = {
    { name = "build", container = "golang:1.24", body = function() end },
    { name = "deploy", condition = function() return true end, body = function() end },
  },
}
`

func TestExtractDeclaredPipeline_DecodesNameInputsAndStages(t *testing.T) {
	compiled, err := scriptlang.CompileSource("pipeline", simplePipeline)
	require.NoError(t, err)

	declared, err := scriptlang.ExtractDeclaredPipeline(compiled)
	require.NoError(t, err)

	assert.Equal(t, "build-and-deploy", declared.Name)
	require.Len(t, declared.Stages, 2)
	assert.Equal(t, "build", declared.Stages[0].Name)
	assert.Equal(t, "golang:1.24", declared.Stages[0].Container)
	assert.False(t, declared.Stages[0].HasCondition)
	assert.True(t, declared.Stages[1].HasCondition)

	input, ok := declared.Inputs["environment"]
	require.True(t, ok)
	assert.Equal(t, model.InputTypeString, input.Type)
	assert.True(t, input.Required)
	assert.Len(t, input.Options, 2)
}

func TestExtractDeclaredPipeline_RejectsMissingName(t *testing.T) {
	compiled, err := scriptlang.CompileSource("pipeline", `return pipeline.define{ stages = { { name = "x", body = function() end } } }`)
	require.NoError(t, err)

	_, err = scriptlang.ExtractDeclaredPipeline(compiled)
	var verr *rierr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Path)
}

func TestExtractDeclaredPipeline_RejectsEmptyStages(t *testing.T) {
	compiled, err := scriptlang.CompileSource("pipeline", `return pipeline.define{ name = "x" }`)
	require.NoError(t, err)

	_, err = scriptlang.ExtractDeclaredPipeline(compiled)
	var verr *rierr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "stages", verr.Path)
}

func TestExtractDeclaredPipeline_RejectsDuplicateStageNames(t *testing.T) {
	src := `return pipeline.define{
		name = "x",
		stages = {
			{ name = "build", body = function() end },
			{ name = "build", body = function() end },
		},
	}`
	compiled, err := scriptlang.CompileSource("pipeline", src)
	require.NoError(t, err)

	_, err = scriptlang.ExtractDeclaredPipeline(compiled)
	var verr *rierr.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestExtractDeclaredPipeline_MetadataSandboxRejectsHostModuleUse(t *testing.T) {
	src := `
	log.info("this should never be reachable from metadata extraction")
	return pipeline.define{ name = "x", stages = { { name = "s", body = function() end } } }
	`
	compiled, err := scriptlang.CompileSource("pipeline", src)
	require.NoError(t, err)

	_, err = scriptlang.ExtractDeclaredPipeline(compiled)
	var verr *rierr.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestExtractDeclaredPipeline_BuilderDSLProducesSameShape(t *testing.T) {
	src := `
	return pipeline.builder()
	  :name("build-and-deploy")
	  :input("environment", { type = "string", required = true })
	  :stage("build", { body = function() end })
	  :build()
	`
	compiled, err := scriptlang.CompileSource("pipeline", src)
	require.NoError(t, err)

	declared, err := scriptlang.ExtractDeclaredPipeline(compiled)
	require.NoError(t, err)

	assert.Equal(t, "build-and-deploy", declared.Name)
	require.Len(t, declared.Stages, 1)
	assert.Equal(t, "build", declared.Stages[0].Name)
}

func TestExtractForExecution_InstallsSuppliedModules(t *testing.T) {
	src := `
	log.info("hello from the execution sandbox")
	return pipeline.define{ name = "x", stages = { { name = "s", body = function() end } } }
	`
	compiled, err := scriptlang.CompileSource("pipeline", src)
	require.NoError(t, err)

	declared, L, err := scriptlang.ExtractForExecution(compiled, &recordingLogModule{})
	require.NoError(t, err)
	defer L.Close()

	assert.Equal(t, "x", declared.Name)
}

// recordingLogModule is a minimal scriptlang.Module standing in for
// bridge.LogModule, installed to prove ExtractForExecution only rejects
// host-module use in the metadata sandbox, not the execution one.
type recordingLogModule struct {
	messages []string
}

func (*recordingLogModule) Name() string { return "log" }

func (m *recordingLogModule) Install(L *lua.LState) {
	tbl := L.NewTable()
	L.SetField(tbl, "info", L.NewFunction(func(L *lua.LState) int {
		m.messages = append(m.messages, L.CheckString(1))
		return 0
	}))
	L.SetGlobal("log", tbl)
}
