package cassandra

import (
	"net"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/koustreak/priam/internal/consistency"
	"github.com/koustreak/priam/internal/database"
	"github.com/koustreak/priam/internal/errs"
)

// ClientConfig is the client-facing form of a PoolConfig.
type ClientConfig struct {
	Keyspace      string
	ContactPoints []string

	// AuthProvider is set only when both username and password are present.
	AuthProvider *PlainTextAuthProvider

	QueryOptions    ClientQueryOptions
	ProtocolOptions ProtocolOptions

	ConnectTimeout time.Duration
	QueryTimeout   time.Duration
	PoolSize       int
	CQLVersion     string

	// Passthrough holds settings the driver does not interpret.
	Passthrough map[string]any
}

// PlainTextAuthProvider carries plain-text credentials.
type PlainTextAuthProvider struct {
	Username string
	Password string
}

// ClientQueryOptions are the client-wide query defaults.
type ClientQueryOptions struct {
	FetchSize   int
	Prepare     bool
	Consistency consistency.Level
}

// ProtocolOptions holds the native protocol port. Zero means client default.
type ProtocolOptions struct {
	Port int
}

// Normalize derives a ClientConfig from cfg without modifying it.
//
// Contact points of the form "host:port" are split; the host part is kept
// and the port becomes ProtocolOptions.Port. When several entries carry a
// port the last one wins. A non-numeric or out-of-range port is a
// configuration error, as is an unknown consistency level name.
func Normalize(cfg *database.PoolConfig) (*ClientConfig, error) {
	if cfg == nil {
		return nil, errs.New(errs.ErrKindConfiguration, "pool configuration is nil")
	}
	c := cfg.Clone()

	out := &ClientConfig{
		Keyspace:       c.Keyspace,
		ConnectTimeout: c.ConnectTimeout,
		QueryTimeout:   c.QueryTimeout,
		PoolSize:       c.PoolSize,
		CQLVersion:     c.CQLVersion,
		Passthrough:    c.Extra,
		QueryOptions: ClientQueryOptions{
			FetchSize: c.Limit,
			Prepare:   false,
		},
	}

	if c.Username != "" && c.Password != "" {
		out.AuthProvider = &PlainTextAuthProvider{Username: c.Username, Password: c.Password}
	}

	if c.ConsistencyLevel != "" {
		lvl, err := consistency.Parse(c.ConsistencyLevel)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindConfiguration, "invalid consistencyLevel", err)
		}
		out.QueryOptions.Consistency = lvl
	}

	out.ContactPoints = make([]string, 0, len(c.ContactPoints))
	for _, cp := range c.ContactPoints {
		host, port, err := splitContactPoint(cp)
		if err != nil {
			return nil, err
		}
		out.ContactPoints = append(out.ContactPoints, host)
		if port != 0 {
			out.ProtocolOptions.Port = port
		}
	}

	return out, nil
}

// splitContactPoint splits "host[:port]". The port is the text between the
// first and second ':'; bracketed IPv6 literals are accepted too.
func splitContactPoint(cp string) (string, int, error) {
	cp = strings.TrimSpace(cp)
	if cp == "" {
		return "", 0, errs.New(errs.ErrKindConfiguration, "empty contact point")
	}

	var host, portStr string
	if strings.HasPrefix(cp, "[") {
		h, p, err := net.SplitHostPort(cp)
		if err != nil {
			if !strings.HasSuffix(cp, "]") {
				return "", 0, errs.Wrap(errs.ErrKindConfiguration, "invalid contact point "+strconv.Quote(cp), err)
			}
			return strings.Trim(cp, "[]"), 0, nil
		}
		host, portStr = h, p
	} else {
		h, rest, found := strings.Cut(cp, ":")
		if !found {
			return cp, 0, nil
		}
		portStr, _, _ = strings.Cut(rest, ":")
		host = strings.TrimSpace(h)
	}

	if host == "" {
		return "", 0, errs.Newf(errs.ErrKindConfiguration, "contact point %q has no host", cp)
	}
	port, err := strconv.Atoi(strings.TrimSpace(portStr))
	if err != nil || port < 1 || port > 65535 {
		return "", 0, errs.Newf(errs.ErrKindConfiguration, "contact point %q has an invalid port", cp)
	}
	return host, port, nil
}

// RemapConnectionOptions renames the legacy connection keys of a raw
// configuration map in place: "user" becomes "username" and "hosts"
// becomes "contactPoints". The old key is removed only when it was present.
func RemapConnectionOptions(raw map[string]any) {
	remapOption(raw, "user", "username")
	remapOption(raw, "hosts", "contactPoints")
}

// InitProviderOptions renames the legacy provider keys of a raw
// configuration map in place, applies RemapConnectionOptions and marks the
// provider as supporting prepared statements.
func InitProviderOptions(raw map[string]any) {
	remapOption(raw, "timeout", "getAConnectionTimeout")
	remapOption(raw, "hostPoolSize", "poolSize")
	remapOption(raw, "cqlVersion", "version")
	RemapConnectionOptions(raw)
	raw["supportsPreparedStatements"] = true
}

func remapOption(raw map[string]any, from, to string) {
	v, ok := raw[from]
	if !ok {
		return
	}
	raw[to] = v
	delete(raw, from)
}

// DecodePoolConfig builds a PoolConfig from a raw map such as a parsed YAML
// document, on top of a copy of base (nil starts from zero values). Legacy
// key names are accepted. Durations may be given as milliseconds or as Go
// duration strings. raw and base are not modified.
func DecodePoolConfig(raw map[string]any, base *database.PoolConfig) (*database.PoolConfig, error) {
	m := database.CloneMap(raw)
	if m == nil {
		m = map[string]any{}
	}
	InitProviderOptions(m)

	cfg := base.Clone()
	if cfg == nil {
		cfg = &database.PoolConfig{}
	}
	if _, ok := m["contactPoints"]; ok {
		// mapstructure decodes slices element-wise onto the existing value
		cfg.ContactPoints = nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			millisecondsHook,
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConfiguration, "building config decoder", err)
	}
	if err := dec.Decode(m); err != nil {
		return nil, errs.Wrap(errs.ErrKindConfiguration, "invalid pool configuration", err)
	}
	return cfg, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// millisecondsHook turns bare numbers into millisecond durations.
func millisecondsHook(from, to reflect.Type, data any) (any, error) {
	if to != durationType || from == durationType {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return time.Duration(reflect.ValueOf(data).Int()) * time.Millisecond, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return time.Duration(reflect.ValueOf(data).Uint()) * time.Millisecond, nil
	case reflect.Float32, reflect.Float64:
		return time.Duration(reflect.ValueOf(data).Float() * float64(time.Millisecond)), nil
	case reflect.String:
		s := strings.TrimSpace(reflect.ValueOf(data).String())
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Duration(n) * time.Millisecond, nil
		}
	}
	return data, nil
}
