package cassandra

import (
	"context"
	"fmt"
	"math/big"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/gocql/gocql"
	"gopkg.in/inf.v0"

	"github.com/koustreak/priam/internal/database"
	"github.com/koustreak/priam/internal/errs"
)

// gocqlClient is the Client backed by a gocql session.
type gocqlClient struct {
	cluster *gocql.ClusterConfig

	mu      sync.RWMutex
	session *gocql.Session
}

// NewGocqlClient builds a gocql-backed Client. Nothing is dialled until
// Connect.
func NewGocqlClient(cfg *ClientConfig, log LogFunc) (Client, error) {
	cluster, err := buildCluster(cfg, log)
	if err != nil {
		return nil, err
	}
	return &gocqlClient{cluster: cluster}, nil
}

// buildCluster maps a ClientConfig onto gocql's cluster settings.
func buildCluster(cfg *ClientConfig, log LogFunc) (*gocql.ClusterConfig, error) {
	cluster := gocql.NewCluster(cfg.ContactPoints...)
	cluster.Keyspace = cfg.Keyspace

	if cfg.ProtocolOptions.Port > 0 {
		cluster.Port = cfg.ProtocolOptions.Port
	}
	if cfg.QueryOptions.Consistency.IsSet() {
		cluster.Consistency = cfg.QueryOptions.Consistency.Gocql()
	}
	if cfg.QueryOptions.FetchSize > 0 {
		cluster.PageSize = cfg.QueryOptions.FetchSize
	}
	if cfg.AuthProvider != nil {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.AuthProvider.Username,
			Password: cfg.AuthProvider.Password,
		}
	}
	if cfg.ConnectTimeout > 0 {
		cluster.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.QueryTimeout > 0 {
		cluster.Timeout = cfg.QueryTimeout
	}
	if cfg.PoolSize > 0 {
		cluster.NumConns = cfg.PoolSize
	}
	if cfg.CQLVersion != "" {
		cluster.CQLVersion = cfg.CQLVersion
	}
	if log != nil {
		cluster.Logger = stdLogger{log: log}
	}

	if err := applyPassthrough(cluster, cfg.Passthrough); err != nil {
		return nil, err
	}
	return cluster, nil
}

// applyPassthrough honours the pass-through keys gocql has a setting for.
// Unknown keys are ignored.
func applyPassthrough(cluster *gocql.ClusterConfig, extra map[string]any) error {
	if dc, ok := extra["localDataCenter"].(string); ok && dc != "" {
		cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.DCAwareRoundRobinPolicy(dc))
	}
	if v, ok := extra["protocolVersion"]; ok {
		n, ok := toInt64(v)
		if !ok || n < 1 {
			return errs.Newf(errs.ErrKindConfiguration, "invalid protocolVersion %v", v)
		}
		cluster.ProtoVersion = int(n)
	}
	if v, ok := extra["disableInitialHostLookup"].(bool); ok {
		cluster.DisableInitialHostLookup = v
	}
	if v, ok := extra["numRetries"]; ok {
		n, ok := toInt64(v)
		if !ok || n < 0 {
			return errs.Newf(errs.ErrKindConfiguration, "invalid numRetries %v", v)
		}
		cluster.RetryPolicy = &gocql.SimpleRetryPolicy{NumRetries: int(n)}
	}
	return nil
}

func (c *gocqlClient) Connect(ctx context.Context) error {
	type result struct {
		session *gocql.Session
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		s, err := c.cluster.CreateSession()
		ch <- result{session: s, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return r.err
		}
		c.mu.Lock()
		c.session = r.session
		c.mu.Unlock()
		return nil
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.session != nil {
				r.session.Close()
			}
		}()
		return ctx.Err()
	}
}

func (c *gocqlClient) Execute(ctx context.Context, statement string, params []any, opts ExecOptions) (*Result, error) {
	c.mu.RLock()
	session := c.session
	c.mu.RUnlock()
	if session == nil {
		return nil, errs.New(errs.ErrKindConnectionFailed, "client is not connected")
	}

	values, err := applyHints(params, opts.Hints)
	if err != nil {
		return nil, err
	}

	// gocql prepares every statement that has bind values, so opts.Prepare
	// needs no handling here.
	q := session.Query(statement, values...).WithContext(ctx)
	if opts.Consistency.IsSet() {
		q = q.Consistency(opts.Consistency.Gocql())
	}
	if opts.FetchSize > 0 {
		q = q.PageSize(opts.FetchSize)
	}
	if opts.Idempotent {
		q = q.Idempotent(true)
	}

	iter := q.Iter()
	rows, err := iter.SliceMap()
	if cerr := iter.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &Result{Rows: rows}, nil
}

func (c *gocqlClient) Shutdown(context.Context) error {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()
	if session != nil {
		session.Close()
	}
	return nil
}

// applyHints coerces hinted values into the Go types gocql marshals as the
// hinted CQL type. params is not modified.
func applyHints(params []any, hints []database.Hint) ([]any, error) {
	if len(hints) == 0 {
		return params, nil
	}
	out := make([]any, len(params))
	copy(out, params)
	for i, h := range hints {
		if h == database.HintNone || i >= len(out) {
			continue
		}
		v, err := coerce(out[i], h)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("parameter %d (%s)", i, h), err)
		}
		out[i] = v
	}
	return out, nil
}

func coerce(v any, h database.Hint) (any, error) {
	typ, ok := DataTypes[h]
	if !ok {
		return nil, fmt.Errorf("unknown type hint %q", h)
	}
	if v == nil {
		return nil, nil
	}

	switch typ {
	case gocql.TypeTimestamp:
		return toTimestamp(v)
	case gocql.TypeUUID, gocql.TypeTimeUUID:
		if s, ok := v.(string); ok {
			return gocql.ParseUUID(s)
		}
	case gocql.TypeBlob:
		if s, ok := v.(string); ok {
			return []byte(s), nil
		}
	case gocql.TypeBigInt, gocql.TypeCounter:
		return intInRange(v, -1<<63, 1<<63-1, func(n int64) any { return n })
	case gocql.TypeInt:
		return intInRange(v, -1<<31, 1<<31-1, func(n int64) any { return int32(n) })
	case gocql.TypeSmallInt:
		return intInRange(v, -1<<15, 1<<15-1, func(n int64) any { return int16(n) })
	case gocql.TypeTinyInt:
		return intInRange(v, -1<<7, 1<<7-1, func(n int64) any { return int8(n) })
	case gocql.TypeBoolean:
		if s, ok := v.(string); ok {
			return strconv.ParseBool(strings.TrimSpace(s))
		}
	case gocql.TypeDouble:
		if f, ok := floatValue(v); ok {
			return f, nil
		}
	case gocql.TypeFloat:
		if f, ok := floatValue(v); ok {
			return float32(f), nil
		}
	case gocql.TypeInet:
		if s, ok := v.(string); ok {
			ip := net.ParseIP(strings.TrimSpace(s))
			if ip == nil {
				return nil, fmt.Errorf("invalid inet address %q", s)
			}
			return ip, nil
		}
	case gocql.TypeVarint:
		if n, ok := toInt64(v); ok {
			return big.NewInt(n), nil
		}
		if s, ok := v.(string); ok {
			b, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
			if !ok {
				return nil, fmt.Errorf("invalid varint %q", s)
			}
			return b, nil
		}
	case gocql.TypeDecimal:
		if s, ok := v.(string); ok {
			d, ok := new(inf.Dec).SetString(strings.TrimSpace(s))
			if !ok {
				return nil, fmt.Errorf("invalid decimal %q", s)
			}
			return d, nil
		}
	}
	return v, nil
}

func intInRange(v any, lo, hi int64, conv func(int64) any) (any, error) {
	n, ok := toInt64(v)
	if s, isStr := v.(string); isStr {
		parsed, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", s)
		}
		n, ok = parsed, true
	}
	if !ok {
		return v, nil
	}
	if n < lo || n > hi {
		return nil, fmt.Errorf("value %d out of range", n)
	}
	return conv(n), nil
}

func floatValue(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f, err == nil
	}
	return toFloat64(v)
}

// stdLogger adapts gocql's logger to a LogFunc. gocql has no levels, so the
// level is inferred from the message.
type stdLogger struct {
	log LogFunc
}

func (l stdLogger) Print(v ...any)                 { l.emit(fmt.Sprint(v...)) }
func (l stdLogger) Printf(format string, v ...any) { l.emit(fmt.Sprintf(format, v...)) }
func (l stdLogger) Println(v ...any)               { l.emit(fmt.Sprintln(v...)) }

func (l stdLogger) emit(msg string) {
	msg = strings.TrimSpace(msg)
	l.log(levelOf(msg), msg, nil)
}

func levelOf(msg string) string {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "error"):
		return LogLevelError
	case strings.Contains(lower, "unable"), strings.Contains(lower, "failed"),
		strings.Contains(lower, "could not"), strings.Contains(lower, "down"):
		return LogLevelWarning
	default:
		return LogLevelInfo
	}
}
