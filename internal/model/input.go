package model

import "github.com/zclconf/go-cty/cty"

// InputType is the closed set of declarable pipeline input types (spec §3).
type InputType string

const (
	InputTypeString InputType = "string"
	InputTypeNumber InputType = "number"
	InputTypeBool   InputType = "bool"
)

// CtyType returns the cty.Type backing this declared input type, used by the
// orchestrator to validate and coerce launch parameters (spec §4.5).
func (t InputType) CtyType() cty.Type {
	switch t {
	case InputTypeNumber:
		return cty.Number
	case InputTypeBool:
		return cty.Bool
	default:
		return cty.String
	}
}

// InputDefinition describes one declared pipeline input.
type InputDefinition struct {
	Type        InputType
	Description string
	Default     *cty.Value
	Options     []cty.Value
	Required    bool
}
