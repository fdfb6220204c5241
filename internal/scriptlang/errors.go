package scriptlang

import (
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/SolracHQ/rivet/internal/rierr"
)

// translateLuaError turns a gopher-lua call error into one of Rivet's
// taxonomy errors: a "sandbox violation" message (raised by the guards in
// state.go) becomes a ValidationError; anything else becomes a generic
// error whose message the caller wraps as a StageError with the stage name.
func translateLuaError(err error) error {
	msg := luaErrorMessage(err)
	// gopher-lua prefixes raised messages with "chunk:line: ", so the marker
	// is searched for rather than expected at the start.
	const marker = "sandbox violation: module "
	if i := strings.Index(msg, marker); i >= 0 {
		name := msg[i+len(marker):]
		if j := strings.Index(name, " is not available in the metadata sandbox"); j >= 0 {
			name = name[:j]
		}
		name = strings.Trim(name, `"`)
		return (&rierr.SandboxViolation{Module: name}).AsValidationError()
	}
	return &scriptError{message: msg}
}

// scriptError carries a raw script error message up to the caller, which
// decides whether to wrap it as a StageError (execution sandbox) or a
// ValidationError (metadata sandbox).
type scriptError struct{ message string }

func (e *scriptError) Error() string { return e.message }

// Message returns the raw script error text, suitable for StageError.Message.
func (e *scriptError) Message() string { return e.message }

// luaErrorMessage extracts the most useful text out of a gopher-lua call
// error, preferring the Lua-level error value (followed by its traceback,
// when gopher-lua attaches one) over the wrapping Go error.
func luaErrorMessage(err error) string {
	if apiErr, ok := err.(*lua.ApiError); ok {
		if apiErr.Object != lua.LNil {
			msg := apiErr.Object.String()
			if apiErr.StackTrace != "" {
				msg += "\n" + apiErr.StackTrace
			}
			return msg
		}
	}
	return err.Error()
}
