package cassandra

import (
	"math"
	"math/big"
	"net"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gocql/gocql"
	jsoniter "github.com/json-iterator/go"
	"gopkg.in/inf.v0"

	"github.com/koustreak/priam/internal/database"
	"github.com/koustreak/priam/internal/errs"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DataTypes maps every supported hint to the client's type code.
var DataTypes = map[database.Hint]gocql.Type{
	database.HintASCII:     gocql.TypeAscii,
	database.HintBigInt:    gocql.TypeBigInt,
	database.HintBlob:      gocql.TypeBlob,
	database.HintBoolean:   gocql.TypeBoolean,
	database.HintCounter:   gocql.TypeCounter,
	database.HintDecimal:   gocql.TypeDecimal,
	database.HintDouble:    gocql.TypeDouble,
	database.HintFloat:     gocql.TypeFloat,
	database.HintInet:      gocql.TypeInet,
	database.HintInt:       gocql.TypeInt,
	database.HintSmallInt:  gocql.TypeSmallInt,
	database.HintTinyInt:   gocql.TypeTinyInt,
	database.HintText:      gocql.TypeText,
	database.HintTimestamp: gocql.TypeTimestamp,
	database.HintDate:      gocql.TypeDate,
	database.HintTime:      gocql.TypeTime,
	database.HintTimeUUID:  gocql.TypeTimeUUID,
	database.HintUUID:      gocql.TypeUUID,
	database.HintVarchar:   gocql.TypeVarchar,
	database.HintVarint:    gocql.TypeVarint,
	database.HintList:      gocql.TypeList,
	database.HintSet:       gocql.TypeSet,
	database.HintMap:       gocql.TypeMap,
}

// timestampLayouts are tried in order for string timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// DataToCQL encodes one bind value.
//
// A hinted database.Param is returned as a Param with its hint retained;
// for the timestamp hint, numbers and numeric strings are taken as epoch
// milliseconds and other strings are parsed as ISO-8601 dates. Maps,
// slices and structs that the client has no native encoding for are
// serialized to JSON text. Everything else is returned unchanged.
func DataToCQL(v any) (any, error) {
	if p, ok := database.AsParam(v); ok {
		if p.Hint == database.HintTimestamp {
			t, err := toTimestamp(p.Value)
			if err != nil {
				return nil, err
			}
			p.Value = t
		}
		return p, nil
	}

	if !isComposite(v) {
		return v, nil
	}
	s, err := json.MarshalToString(v)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "encoding parameter as JSON", err)
	}
	return s, nil
}

// GetNormalizedResults strips the client's column descriptor from every
// row and passes each string field through the driver's result hook.
func (d *Driver) GetNormalizedResults(rows []map[string]any, opts database.ResultOptions) []map[string]any {
	return database.NormalizeRows(rows, d.hook, opts)
}

func toTimestamp(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return t, nil
	case *time.Time:
		if t == nil {
			return nil, nil
		}
		return *t, nil
	case string:
		s := strings.TrimSpace(t)
		if isDigits(s) {
			ms, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, errs.Wrap(errs.ErrKindInvalidInput, "timestamp out of range", err)
			}
			return time.UnixMilli(ms).UTC(), nil
		}
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, nil
			}
		}
		return nil, errs.Newf(errs.ErrKindInvalidInput, "cannot parse %q as a timestamp", t)
	}

	if ms, ok := toInt64(v); ok {
		return time.UnixMilli(ms).UTC(), nil
	}
	if f, ok := toFloat64(v); ok {
		if math.IsNaN(f) || f < minInt64Float || f >= maxInt64Float {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "timestamp %v is outside the epoch millisecond range", f)
		}
		return time.UnixMilli(int64(f)).UTC(), nil
	}
	return v, nil
}

// int64 bounds as floats; 2^63 itself is not representable as int64.
const (
	minInt64Float = -(1 << 63)
	maxInt64Float = 1 << 63
)

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// isComposite reports whether v should be sent as JSON text.
func isComposite(v any) bool {
	switch v.(type) {
	case nil, []byte, time.Time, *time.Time, gocql.UUID, net.IP, *big.Int, *inf.Dec,
		gocql.Duration, gocql.Marshaler:
		return false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Type().Elem().Kind() != reflect.Uint8
	case reflect.Map, reflect.Struct:
		return true
	}
	return false
}

// toInt64 converts integer kinds and integral floats.
func toInt64(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > 1<<63-1 {
			return 0, false
		}
		return int64(u), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || f < minInt64Float || f >= maxInt64Float || f != float64(int64(f)) {
			return 0, false
		}
		return int64(f), true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	}
	return 0, false
}
