package bridge

import (
	"errors"
	"fmt"
	"strings"
)

var errMissingCmd = errors.New("missing required key \"cmd\"")
var errMissingImage = errors.New("missing required argument: image")

// unknownKeysError reports configuration-table keys that are not part of a
// module's recognized schema (spec §4.3 "reject unrecognized configuration
// keys" for process.run's configuration table).
type unknownKeysError struct {
	keys []string
}

func (e *unknownKeysError) Error() string {
	return fmt.Sprintf("unrecognized configuration key(s): %s", strings.Join(e.keys, ", "))
}
