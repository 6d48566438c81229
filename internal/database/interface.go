package database

import "context"

// Executor is the contract layers above the driver talk to. It accepts
// application values (raw or Param), encodes them, runs the statement and
// returns normalized rows.
type Executor interface {
	Execute(ctx context.Context, statement string, params []any, opts QueryOptions) ([]map[string]any, error)
}
