package database

import "time"

// PoolConfig holds everything needed to open one connection pool against a
// Cassandra cluster. The driver treats it as immutable: it deep-copies the
// value before deriving client settings from it.
type PoolConfig struct {
	// Keyspace is the default keyspace of every session in the pool.
	Keyspace string `mapstructure:"keyspace" yaml:"keyspace" validate:"required"`

	// ContactPoints are the seed hosts, each "host" or "host:port".
	// A port on any entry sets the cluster port; the last one wins.
	ContactPoints []string `mapstructure:"contactPoints" yaml:"contactPoints" validate:"required,min=1,dive,required"`

	// Username and Password enable plain-text auth when both are set.
	Username string `mapstructure:"username" yaml:"username,omitempty"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`

	// ConsistencyLevel is a level name ("LOCAL_QUORUM" or "localQuorum").
	// Empty leaves the client default in place.
	ConsistencyLevel string `mapstructure:"consistencyLevel" yaml:"consistencyLevel,omitempty"`

	// Limit is the default page (fetch) size for queries.
	Limit int `mapstructure:"limit" yaml:"limit,omitempty" validate:"gte=0"`

	// Timeouts and pool tuning, reachable through their legacy names
	// "timeout", "hostPoolSize" and "cqlVersion" as well.
	ConnectTimeout time.Duration `mapstructure:"getAConnectionTimeout" yaml:"getAConnectionTimeout,omitempty"`
	QueryTimeout   time.Duration `mapstructure:"queryTimeout" yaml:"queryTimeout,omitempty"`
	PoolSize       int           `mapstructure:"poolSize" yaml:"poolSize,omitempty" validate:"gte=0"`
	CQLVersion     string        `mapstructure:"version" yaml:"version,omitempty"`

	// SupportsPreparedStatements is set by the driver when it initialises
	// provider options; it is informational for callers.
	SupportsPreparedStatements bool `mapstructure:"supportsPreparedStatements" yaml:"-"`

	// Extra carries client-specific fields the driver passes through as-is.
	Extra map[string]any `mapstructure:",remain" yaml:",inline"`
}

// DefaultPoolConfig returns sensible settings for a local single-node
// cluster. Callers override Keyspace and ContactPoints.
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		ContactPoints:    []string{"127.0.0.1"},
		ConsistencyLevel: "ONE",
		Limit:            5000,
		ConnectTimeout:   10 * time.Second,
		QueryTimeout:     30 * time.Second,
		PoolSize:         2,
	}
}

// Clone returns a deep copy of c.
func (c *PoolConfig) Clone() *PoolConfig {
	if c == nil {
		return nil
	}
	out := *c
	out.ContactPoints = append([]string(nil), c.ContactPoints...)
	if c.Extra != nil {
		out.Extra = CloneMap(c.Extra)
	}
	return &out
}

// CloneMap deep-copies a generic configuration map. Nested maps and slices
// are copied; leaf values are shared.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneMap(t)
	case []any:
		s := make([]any, len(t))
		for i := range t {
			s[i] = cloneValue(t[i])
		}
		return s
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
