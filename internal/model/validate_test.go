package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/SolracHQ/rivet/internal/rierr"
)

func TestValidateParameters_RequiredMissing(t *testing.T) {
	declared := DeclaredPipeline{
		Inputs: map[string]InputDefinition{
			"environment": {Type: InputTypeString, Required: true},
		},
	}

	_, err := ValidateParameters(declared, map[string]string{})

	var verr *rierr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "inputs.environment", verr.Path)
}

func TestValidateParameters_DefaultFillsMissing(t *testing.T) {
	def := cty.StringVal("staging")
	declared := DeclaredPipeline{
		Inputs: map[string]InputDefinition{
			"environment": {Type: InputTypeString, Default: &def},
		},
	}

	resolved, err := ValidateParameters(declared, map[string]string{})

	require.NoError(t, err)
	assert.Equal(t, "staging", resolved["environment"])
}

func TestValidateParameters_NumberCoercion(t *testing.T) {
	declared := DeclaredPipeline{
		Inputs: map[string]InputDefinition{
			"retries": {Type: InputTypeNumber},
		},
	}

	resolved, err := ValidateParameters(declared, map[string]string{"retries": "3"})

	require.NoError(t, err)
	assert.Equal(t, "3", resolved["retries"])
}

func TestValidateParameters_NumberCoercionRejectsGarbage(t *testing.T) {
	declared := DeclaredPipeline{
		Inputs: map[string]InputDefinition{
			"retries": {Type: InputTypeNumber},
		},
	}

	_, err := ValidateParameters(declared, map[string]string{"retries": "not-a-number"})

	var verr *rierr.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestValidateParameters_NumberCoercionRejectsNonFiniteValues(t *testing.T) {
	declared := DeclaredPipeline{
		Inputs: map[string]InputDefinition{
			"retries": {Type: InputTypeNumber},
		},
	}

	for _, raw := range []string{"NaN", "Inf", "+Inf", "-Inf"} {
		_, err := ValidateParameters(declared, map[string]string{"retries": raw})

		var verr *rierr.ValidationError
		require.ErrorAsf(t, err, &verr, "expected %q to be rejected as non-finite", raw)
	}
}

func TestValidateParameters_BoolCoercionAcceptsYesNo(t *testing.T) {
	declared := DeclaredPipeline{
		Inputs: map[string]InputDefinition{
			"verbose": {Type: InputTypeBool},
		},
	}

	resolved, err := ValidateParameters(declared, map[string]string{"verbose": "Yes"})

	require.NoError(t, err)
	assert.Equal(t, "true", resolved["verbose"])
}

func TestValidateParameters_OptionsViolation(t *testing.T) {
	declared := DeclaredPipeline{
		Inputs: map[string]InputDefinition{
			"environment": {
				Type:    InputTypeString,
				Options: []cty.Value{cty.StringVal("staging"), cty.StringVal("production")},
			},
		},
	}

	_, err := ValidateParameters(declared, map[string]string{"environment": "qa"})

	var verr *rierr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "inputs.environment", verr.Path)
}

func TestValidateParameters_OptionsAcceptsMember(t *testing.T) {
	declared := DeclaredPipeline{
		Inputs: map[string]InputDefinition{
			"environment": {
				Type:    InputTypeString,
				Options: []cty.Value{cty.StringVal("staging"), cty.StringVal("production")},
			},
		},
	}

	resolved, err := ValidateParameters(declared, map[string]string{"environment": "production"})

	require.NoError(t, err)
	assert.Equal(t, "production", resolved["environment"])
}

func TestValidateParameters_RejectsUndeclaredParameter(t *testing.T) {
	declared := DeclaredPipeline{Inputs: map[string]InputDefinition{}}

	_, err := ValidateParameters(declared, map[string]string{"surprise": "value"})

	var verr *rierr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "inputs.surprise", verr.Path)
}
