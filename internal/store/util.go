package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// timeLayout is RFC3339 with a fixed nine-digit fraction. Unlike
// time.RFC3339Nano it never trims trailing zeros, so every stored UTC
// timestamp has the same width.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTime/parseTime fix timeLayout as the on-disk time representation so
// lexical ordering matches chronological ordering, which ORDER BY created_at
// relies on for the FIFO scheduled-jobs query (spec §4.5).
func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("store: parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func marshalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// v is always one of our own simple map/slice types; a marshal
		// failure here is a programming error, not a runtime condition.
		panic(fmt.Sprintf("store: marshal: %v", err))
	}
	return string(b)
}

func unmarshalJSON[T any](s string) (T, error) {
	var out T
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return out, fmt.Errorf("store: unmarshal: %w", err)
	}
	return out, nil
}
