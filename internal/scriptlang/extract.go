package scriptlang

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"github.com/zclconf/go-cty/cty"

	"github.com/SolracHQ/rivet/internal/model"
	"github.com/SolracHQ/rivet/internal/rierr"
)

// ExtractDeclaredPipeline evaluates source in a fresh metadata-sandbox Lua
// state and decodes its return value into a model.DeclaredPipeline,
// performing every validation spec §4.1 requires. The orchestrator uses it
// on pipeline create and launch; the runner evaluates the script through
// ExtractForExecution instead.
func ExtractDeclaredPipeline(compiled *Compiled) (*model.DeclaredPipeline, error) {
	L := NewState(ModeMetadata)
	defer L.Close()

	ret, err := compiled.Run(L)
	if err != nil {
		return nil, err
	}

	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, &rierr.ValidationError{Path: "", Reason: "pipeline script must return a table (pipeline.define(...) or builder():build())"}
	}

	return decodeDeclaredPipeline(tbl)
}

// ExtractForExecution re-evaluates source in a fresh execution-sandbox Lua
// state (bridge modules installed) and returns both the DeclaredPipeline
// and the live state, whose lifetime the caller owns: StageDecl.BodyHandle
// and ConditionHandle are *lua.LFunction values bound to this state and are
// only valid until it is closed.
func ExtractForExecution(compiled *Compiled, modules ...Module) (*model.DeclaredPipeline, *lua.LState, error) {
	L := NewState(ModeExecution, modules...)

	ret, err := compiled.Run(L)
	if err != nil {
		L.Close()
		return nil, nil, err
	}

	tbl, ok := ret.(*lua.LTable)
	if !ok {
		L.Close()
		return nil, nil, &rierr.ValidationError{Path: "", Reason: "pipeline script must return a table"}
	}

	declared, err := decodeDeclaredPipeline(tbl)
	if err != nil {
		L.Close()
		return nil, nil, err
	}
	return declared, L, nil
}

func decodeDeclaredPipeline(tbl *lua.LTable) (*model.DeclaredPipeline, error) {
	name, _ := getString(tbl, "name")
	if name == "" {
		return nil, &rierr.ValidationError{Path: "name", Reason: "required"}
	}
	description, _ := getString(tbl, "description")

	inputs, err := decodeInputs(tbl)
	if err != nil {
		return nil, err
	}

	tags, err := decodeTags(tbl)
	if err != nil {
		return nil, err
	}

	plugins := decodePlugins(tbl)

	stages, err := decodeStages(tbl)
	if err != nil {
		return nil, err
	}

	return &model.DeclaredPipeline{
		Name:        name,
		Description: description,
		Inputs:      inputs,
		RunnerTags:  tags,
		Plugins:     plugins,
		Stages:      stages,
	}, nil
}

var closedInputTypes = map[string]model.InputType{
	"string": model.InputTypeString,
	"number": model.InputTypeNumber,
	"bool":   model.InputTypeBool,
}

func decodeInputs(tbl *lua.LTable) (map[string]model.InputDefinition, error) {
	result := make(map[string]model.InputDefinition)
	inputsTbl, ok := getTable(tbl, "inputs")
	if !ok {
		return result, nil
	}

	var decodeErr error
	inputsTbl.ForEach(func(k, v lua.LValue) {
		if decodeErr != nil {
			return
		}
		name := k.String()
		def, ok := v.(*lua.LTable)
		if !ok {
			decodeErr = &rierr.ValidationError{Path: "inputs." + name, Reason: "must be a table"}
			return
		}

		typeName, _ := getString(def, "type")
		ctyType, ok := closedInputTypes[typeName]
		if !ok {
			decodeErr = &rierr.ValidationError{Path: "inputs." + name + ".type", Reason: "must be one of string, number, bool"}
			return
		}

		input := model.InputDefinition{Type: ctyType}
		input.Description, _ = getString(def, "description")
		input.Required, _ = getBool(def, "required")

		if defaultLV := L0Get(def, "default"); defaultLV != lua.LNil {
			val, err := luaValueToCty(defaultLV, ctyType.CtyType())
			if err != nil {
				decodeErr = &rierr.ValidationError{Path: "inputs." + name + ".default", Reason: err.Error()}
				return
			}
			input.Default = &val
		}

		if optsTbl, ok := getTable(def, "options"); ok {
			n := optsTbl.Len()
			if n == 0 {
				decodeErr = &rierr.ValidationError{Path: "inputs." + name + ".options", Reason: "must be non-empty when present"}
				return
			}
			options := make([]cty.Value, 0, n)
			for i := 1; i <= n; i++ {
				val, err := luaValueToCty(optsTbl.RawGetInt(i), ctyType.CtyType())
				if err != nil {
					decodeErr = &rierr.ValidationError{Path: "inputs." + name + ".options", Reason: err.Error()}
					return
				}
				options = append(options, val)
			}
			input.Options = options
		}

		result[name] = input
	})

	return result, decodeErr
}

func decodeTags(tbl *lua.LTable) (model.TagSet, error) {
	tagsTbl, ok := getTable(tbl, "tags")
	if !ok {
		return nil, nil
	}
	n := tagsTbl.Len()
	tags := make(model.TagSet, 0, n)
	for i := 1; i <= n; i++ {
		entry, ok := tagsTbl.RawGetInt(i).(*lua.LTable)
		if !ok {
			return nil, &rierr.ValidationError{Path: "tags", Reason: "each tag must be a {key,value} table"}
		}
		key, kok := getString(entry, "key")
		value, vok := getString(entry, "value")
		if !kok || !vok || key == "" {
			return nil, &rierr.ValidationError{Path: "tags", Reason: "each tag must have non-empty key and value"}
		}
		tags = append(tags, model.Tag{Key: key, Value: value})
	}
	return tags, nil
}

func decodePlugins(tbl *lua.LTable) []string {
	pluginsTbl, ok := getTable(tbl, "plugins")
	if !ok {
		return nil
	}
	n := pluginsTbl.Len()
	plugins := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if s, ok := pluginsTbl.RawGetInt(i).(lua.LString); ok {
			plugins = append(plugins, string(s))
		}
	}
	return plugins
}

func decodeStages(tbl *lua.LTable) ([]model.StageDecl, error) {
	stagesTbl, ok := getTable(tbl, "stages")
	if !ok || stagesTbl.Len() == 0 {
		return nil, &rierr.ValidationError{Path: "stages", Reason: "must be non-empty"}
	}

	n := stagesTbl.Len()
	stages := make([]model.StageDecl, 0, n)
	seen := make(map[string]struct{}, n)

	for i := 1; i <= n; i++ {
		entry, ok := stagesTbl.RawGetInt(i).(*lua.LTable)
		if !ok {
			return nil, &rierr.ValidationError{Path: fmt.Sprintf("stages[%d]", i), Reason: "must be a table"}
		}

		name, _ := getString(entry, "name")
		if name == "" {
			return nil, &rierr.ValidationError{Path: fmt.Sprintf("stages[%d].name", i), Reason: "required"}
		}
		if _, dup := seen[name]; dup {
			return nil, &rierr.ValidationError{Path: "stages." + name, Reason: "duplicate stage name"}
		}
		seen[name] = struct{}{}

		container, _ := getString(entry, "container")

		bodyFn, hasBody := getFunction(entry, "body")
		if !hasBody {
			return nil, &rierr.ValidationError{Path: "stages." + name + ".body", Reason: "required"}
		}

		conditionFn, hasCondition := getFunction(entry, "condition")

		stages = append(stages, model.StageDecl{
			Name:            name,
			Container:       container,
			HasCondition:    hasCondition,
			ConditionHandle: conditionFn,
			BodyHandle:      bodyFn,
		})
	}

	return stages, nil
}

// --- small Lua table accessor helpers ---

func L0Get(tbl *lua.LTable, key string) lua.LValue {
	return tbl.RawGetString(key)
}

func getString(tbl *lua.LTable, key string) (string, bool) {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s), true
	}
	return "", false
}

func getBool(tbl *lua.LTable, key string) (bool, bool) {
	v := tbl.RawGetString(key)
	if b, ok := v.(lua.LBool); ok {
		return bool(b), true
	}
	return false, false
}

func getTable(tbl *lua.LTable, key string) (*lua.LTable, bool) {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t, true
	}
	return nil, false
}

func getFunction(tbl *lua.LTable, key string) (*lua.LFunction, bool) {
	v := tbl.RawGetString(key)
	if f, ok := v.(*lua.LFunction); ok {
		return f, true
	}
	return nil, false
}

func luaValueToCty(v lua.LValue, want cty.Type) (cty.Value, error) {
	switch want {
	case cty.String:
		s, ok := v.(lua.LString)
		if !ok {
			return cty.NilVal, fmt.Errorf("expected a string")
		}
		return cty.StringVal(string(s)), nil
	case cty.Number:
		n, ok := v.(lua.LNumber)
		if !ok {
			return cty.NilVal, fmt.Errorf("expected a number")
		}
		return cty.NumberFloatVal(float64(n)), nil
	case cty.Bool:
		b, ok := v.(lua.LBool)
		if !ok {
			return cty.NilVal, fmt.Errorf("expected a bool")
		}
		return cty.BoolVal(bool(b)), nil
	default:
		return cty.NilVal, fmt.Errorf("unsupported type")
	}
}
