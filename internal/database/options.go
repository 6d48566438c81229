package database

import (
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/koustreak/priam/internal/consistency"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// QueryOptions are the caller's per-execution settings. Non-zero fields win
// over the defaults the driver derives for a call.
type QueryOptions struct {
	// ExecuteAsPrepared requests prepared execution for this statement.
	ExecuteAsPrepared bool

	// Consistency overrides the consistency argument of the call when set.
	Consistency consistency.Level

	// FetchSize overrides the pool's default page size when positive.
	FetchSize int

	// Idempotent marks the statement safe for client-side retries.
	Idempotent bool

	// Extra is passed to the client untouched.
	Extra map[string]any
}

// ResultOptions are handed to the ResultHook for every string field.
type ResultOptions struct {
	// DeserializeJSONStrings makes DefaultResultHook parse string values
	// that hold a JSON object or array.
	DeserializeJSONStrings bool

	// Extra lets custom hooks receive their own settings.
	Extra map[string]any
}

// ResultHook post-processes one decoded string field and returns the value
// to store in the normalized row.
type ResultHook func(value, field string, opts ResultOptions) any

// DefaultResultHook parses JSON documents stored in text columns when
// opts.DeserializeJSONStrings is set, and otherwise returns value unchanged.
// Strings that only look like JSON are returned as they are.
func DefaultResultHook(value, _ string, opts ResultOptions) any {
	if !opts.DeserializeJSONStrings {
		return value
	}
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') {
		return value
	}
	var out any
	if err := json.UnmarshalFromString(trimmed, &out); err != nil {
		return value
	}
	return out
}
