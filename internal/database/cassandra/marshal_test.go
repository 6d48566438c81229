package cassandra

import (
	"math"
	"math/big"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/priam/internal/database"
	"github.com/koustreak/priam/internal/errs"
)

func TestDataToCQL(t *testing.T) {
	uuid := gocql.TimeUUID()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ip := net.ParseIP("10.0.0.1")

	type point struct {
		X int `json:"x"`
	}

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"string", "hello", "hello"},
		{"int", 42, 42},
		{"bool", true, true},
		{"bytes", []byte("raw"), []byte("raw")},
		{"time", now, now},
		{"uuid", uuid, uuid},
		{"inet", ip, ip},
		{"map", map[string]any{"b": 2, "a": 1}, `{"a":1,"b":2}`},
		{"slice", []string{"x", "y"}, `["x","y"]`},
		{"struct", point{X: 3}, `{"x":3}`},
		{"struct pointer", &point{X: 4}, `{"x":4}`},
		{"hint kept", database.P("abc", database.HintASCII), database.P("abc", database.HintASCII)},
		{"pointer param", &database.Param{Value: 1, Hint: database.HintInt}, database.P(1, database.HintInt)},
		{"timestamp millis", database.P(int64(1700000000000), database.HintTimestamp),
			database.P(time.UnixMilli(1700000000000).UTC(), database.HintTimestamp)},
		{"timestamp float millis", database.P(1700000000000.0, database.HintTimestamp),
			database.P(time.UnixMilli(1700000000000).UTC(), database.HintTimestamp)},
		{"timestamp numeric string", database.P("1700000000000", database.HintTimestamp),
			database.P(time.UnixMilli(1700000000000).UTC(), database.HintTimestamp)},
		{"timestamp iso", database.P("2024-03-01T12:00:00Z", database.HintTimestamp),
			database.P(now, database.HintTimestamp)},
		{"timestamp date only", database.P("2024-03-01", database.HintTimestamp),
			database.P(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), database.HintTimestamp)},
		{"timestamp already time", database.P(now, database.HintTimestamp), database.P(now, database.HintTimestamp)},
		{"non-timestamp hint untouched", database.P("1700000000000", database.HintText),
			database.P("1700000000000", database.HintText)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DataToCQL(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDataToCQL_BadTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"unparsable string", "yesterday"},
		{"NaN", math.NaN()},
		{"positive infinity", math.Inf(1)},
		{"negative infinity", math.Inf(-1)},
		{"beyond int64 milliseconds", 1e30},
		{"uint64 above int64", uint64(1) << 63},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DataToCQL(database.P(tt.value, database.HintTimestamp))
			assert.True(t, errs.IsInvalidInput(err), "got %v, %v", got, err)
		})
	}
}

func TestDataToCQL_FractionalTimestamp(t *testing.T) {
	got, err := DataToCQL(database.P(1700000000000.75, database.HintTimestamp))
	require.NoError(t, err)
	assert.Equal(t, database.P(time.UnixMilli(1700000000000).UTC(), database.HintTimestamp), got)
}

func TestDataToCQL_UnencodableComposite(t *testing.T) {
	_, err := DataToCQL(map[string]any{"ch": make(chan int)})
	assert.True(t, errs.IsInvalidInput(err))
}

func TestDataTypes_CoversEveryHint(t *testing.T) {
	hints := []database.Hint{
		database.HintASCII, database.HintBigInt, database.HintBlob, database.HintBoolean,
		database.HintCounter, database.HintDecimal, database.HintDouble, database.HintFloat,
		database.HintInet, database.HintInt, database.HintSmallInt, database.HintTinyInt,
		database.HintText, database.HintTimestamp, database.HintDate, database.HintTime,
		database.HintTimeUUID, database.HintUUID, database.HintVarchar, database.HintVarint,
		database.HintList, database.HintSet, database.HintMap,
	}
	for _, h := range hints {
		_, ok := DataTypes[h]
		assert.True(t, ok, "missing type for hint %q", h)
	}
	assert.Equal(t, gocql.TypeTimestamp, DataTypes[database.HintTimestamp])
	assert.Equal(t, gocql.TypeVarint, DataTypes[database.HintVarint])
}

func TestGetNormalizedResults(t *testing.T) {
	rows := []map[string]any{{
		"name":    "alice",
		"balance": big.NewInt(10),
		"columns": []map[string]any{{"name": "name"}},
	}}

	d := New(&Config{ResultHook: func(value, field string, _ database.ResultOptions) any {
		return field + "=" + strings.ToUpper(value)
	}})
	got := d.GetNormalizedResults(rows, database.ResultOptions{})

	assert.Equal(t, []map[string]any{{"name": "name=ALICE", "balance": big.NewInt(10)}}, got)
	assert.Contains(t, rows[0], "columns", "input rows are not modified")

	assert.NotNil(t, New(nil).GetNormalizedResults(nil, database.ResultOptions{}))
}
