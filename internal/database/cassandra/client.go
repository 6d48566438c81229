package cassandra

import (
	"context"

	"github.com/koustreak/priam/internal/consistency"
	"github.com/koustreak/priam/internal/database"
)

// Client log levels, as reported through LogFunc.
const (
	LogLevelError   = "error"
	LogLevelWarning = "warning"
	LogLevelInfo    = "info"
	LogLevelVerbose = "verbose"
)

// Client is the underlying cluster client one Pool drives. The default
// implementation is backed by gocql; tests substitute their own.
type Client interface {
	// Connect opens the connection set. It is called exactly once.
	Connect(ctx context.Context) error

	// Execute runs one statement with positional values.
	Execute(ctx context.Context, statement string, params []any, opts ExecOptions) (*Result, error)

	// Shutdown releases every connection. It is called at most once, and
	// only after a successful Connect.
	Shutdown(ctx context.Context) error
}

// LogFunc receives log lines produced by a Client.
type LogFunc func(level, message string, data any)

// ClientFactory builds a Client from a normalized configuration.
type ClientFactory func(cfg *ClientConfig, log LogFunc) (Client, error)

// ExecOptions are the merged per-call options handed to Client.Execute.
type ExecOptions struct {
	Prepare     bool
	Consistency consistency.Level
	FetchSize   int
	Idempotent  bool

	// Hints is parallel to the params slice; an empty entry means no hint.
	// Nil when no parameter carried a hint.
	Hints []database.Hint

	Extra map[string]any
}

// Result is what a Client returns for one execution.
type Result struct {
	Rows []map[string]any
}
