package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/SolracHQ/rivet/internal/rierr"
	"github.com/zclconf/go-cty/cty"
)

// ValidateParameters type-checks launch parameters against a pipeline's
// declared inputs (spec §4.5 Launch job):
//
//   - for each declared input, if required and no default, the parameter
//     must be present;
//   - each supplied value is parsed into the declared type (string raw,
//     number as a finite real, bool from {true,false,1,0,yes,no} case
//     insensitive);
//   - if options is set, the value must appear in the set.
//
// It returns the fully-resolved parameter map (declared defaults filled in)
// in the canonical string form stored on Job.Parameters.
func ValidateParameters(declared DeclaredPipeline, params map[string]string) (map[string]string, error) {
	resolved := make(map[string]string, len(declared.Inputs))

	for name, def := range declared.Inputs {
		raw, present := params[name]
		if !present {
			if def.Default != nil {
				resolved[name] = canonicalDefault(*def.Default)
				continue
			}
			if def.Required {
				return nil, &rierr.ValidationError{Path: "inputs." + name, Reason: "required"}
			}
			continue
		}

		canonical, err := coerce(def.Type, raw)
		if err != nil {
			return nil, &rierr.ValidationError{Path: "inputs." + name, Reason: err.Error()}
		}

		if len(def.Options) > 0 && !containsOption(def.Options, canonical) {
			return nil, &rierr.ValidationError{Path: "inputs." + name, Reason: "not in options"}
		}

		resolved[name] = canonical
	}

	for name := range params {
		if _, declaredInput := declared.Inputs[name]; !declaredInput {
			return nil, &rierr.ValidationError{Path: "inputs." + name, Reason: "not a declared input"}
		}
	}

	return resolved, nil
}

// coerce parses raw into the canonical string form of the declared type,
// rejecting malformed values.
func coerce(t InputType, raw string) (string, error) {
	switch t {
	case InputTypeNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return "", fmt.Errorf("not a finite number")
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	case InputTypeBool:
		b, ok := parseBool(raw)
		if !ok {
			return "", fmt.Errorf("not a valid bool")
		}
		if b {
			return "true", nil
		}
		return "false", nil
	default:
		return raw, nil
	}
}

// parseBool implements the spec's {true,false,1,0,yes,no} case-insensitive set.
func parseBool(raw string) (bool, bool) {
	switch strings.ToLower(raw) {
	case "true", "1", "yes":
		return true, true
	case "false", "0", "no":
		return false, true
	default:
		return false, false
	}
}

// canonicalDefault renders a cty default value into the canonical string
// form used on Job.Parameters.
func canonicalDefault(v cty.Value) string {
	switch v.Type() {
	case cty.Bool:
		if v.True() {
			return "true"
		}
		return "false"
	case cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return strconv.FormatFloat(f, 'g', -1, 64)
	default:
		return v.AsString()
	}
}

// containsOption reports whether canonical matches one of the declared
// option values, comparing in canonical string form so "1" and "true"
// compare correctly for bool options etc.
func containsOption(options []cty.Value, canonical string) bool {
	for _, opt := range options {
		if canonicalDefault(opt) == canonical {
			return true
		}
	}
	return false
}
