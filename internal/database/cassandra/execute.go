package cassandra

import (
	"context"
	"time"

	"github.com/koustreak/priam/internal/consistency"
	"github.com/koustreak/priam/internal/database"
)

// ExecuteCQL runs statement on a ready pool.
//
// Parameters that are database.Param values are unwrapped: their values go
// to the client positionally and their hints travel in ExecOptions.Hints.
// The caller's params slice is left untouched. Fields set in opts take
// precedence over level and the driver defaults. Client errors are returned
// unchanged.
func (d *Driver) ExecuteCQL(ctx context.Context, pool *Pool, statement string, params []any,
	level consistency.Level, opts database.QueryOptions) ([]map[string]any, error) {
	if pool == nil {
		return nil, poolNilError()
	}
	if err := pool.usable(); err != nil {
		return nil, err
	}

	values, hints := ExtractHints(params)
	execOpts := mergeOptions(level, opts)
	execOpts.Hints = hints

	start := time.Now()
	res, err := pool.client.Execute(ctx, statement, values, execOpts)
	d.emitQuery(pool, statement, start, err)
	if err != nil {
		return nil, err
	}
	if res == nil || res.Rows == nil {
		return []map[string]any{}, nil
	}
	return res.Rows, nil
}

func mergeOptions(level consistency.Level, opts database.QueryOptions) ExecOptions {
	out := ExecOptions{
		Prepare:     opts.ExecuteAsPrepared,
		Consistency: level,
		FetchSize:   opts.FetchSize,
		Idempotent:  opts.Idempotent,
	}
	if opts.Consistency.IsSet() {
		out.Consistency = opts.Consistency
	}
	if opts.Extra != nil {
		out.Extra = database.CloneMap(opts.Extra)
	}
	return out
}

// ExtractHints splits params into plain values and a parallel hint list.
// hints is nil when no parameter carries a hint; otherwise its length is
// the index of the last hinted parameter plus one.
func ExtractHints(params []any) (values []any, hints []database.Hint) {
	values = make([]any, len(params))
	for i, v := range params {
		p, ok := database.AsParam(v)
		if !ok {
			values[i] = v
			continue
		}
		values[i] = p.Value
		if p.Hint == database.HintNone {
			continue
		}
		if hints == nil {
			hints = make([]database.Hint, i+1)
		}
		for len(hints) <= i {
			hints = append(hints, database.HintNone)
		}
		hints[i] = p.Hint
	}
	return values, hints
}

// Session binds a Driver to one pool and implements database.Executor:
// parameters are encoded with DataToCQL and rows normalized on the way out.
type Session struct {
	driver *Driver
	pool   *Pool

	// Consistency applies when a call does not set one.
	Consistency consistency.Level

	// ResultOptions are handed to the driver's result hook.
	ResultOptions database.ResultOptions
}

var _ database.Executor = (*Session)(nil)

// Session returns an executor for pool.
func (d *Driver) Session(pool *Pool, level consistency.Level) *Session {
	return &Session{driver: d, pool: pool, Consistency: level}
}

// Pool returns the pool the session runs against.
func (s *Session) Pool() *Pool { return s.pool }

func (s *Session) Execute(ctx context.Context, statement string, params []any, opts database.QueryOptions) ([]map[string]any, error) {
	encoded := make([]any, len(params))
	for i, p := range params {
		v, err := DataToCQL(p)
		if err != nil {
			return nil, err
		}
		encoded[i] = v
	}

	rows, err := s.driver.ExecuteCQL(ctx, s.pool, statement, encoded, s.Consistency, opts)
	if err != nil {
		return nil, err
	}
	return s.driver.GetNormalizedResults(rows, s.ResultOptions), nil
}
