package database

// Hint is a CQL type name attached to a parameter so the driver can encode
// the value as that type instead of letting the client infer it.
type Hint string

// Hints understood by the cassandra driver.
const (
	HintNone      Hint = ""
	HintASCII     Hint = "ascii"
	HintBigInt    Hint = "bigint"
	HintBlob      Hint = "blob"
	HintBoolean   Hint = "boolean"
	HintCounter   Hint = "counter"
	HintDecimal   Hint = "decimal"
	HintDouble    Hint = "double"
	HintFloat     Hint = "float"
	HintInet      Hint = "inet"
	HintInt       Hint = "int"
	HintSmallInt  Hint = "smallint"
	HintTinyInt   Hint = "tinyint"
	HintText      Hint = "text"
	HintTimestamp Hint = "timestamp"
	HintDate      Hint = "date"
	HintTime      Hint = "time"
	HintTimeUUID  Hint = "timeuuid"
	HintUUID      Hint = "uuid"
	HintVarchar   Hint = "varchar"
	HintVarint    Hint = "varint"
	HintList      Hint = "list"
	HintSet       Hint = "set"
	HintMap       Hint = "map"
)

// Param pairs a bind value with an optional type hint. An empty Hint means
// the value is used as-is.
type Param struct {
	Value any
	Hint  Hint
}

// P is shorthand for a hinted parameter.
func P(value any, hint Hint) Param {
	return Param{Value: value, Hint: hint}
}

// AsParam reports whether v is a Param (by value or pointer) and returns it.
func AsParam(v any) (Param, bool) {
	switch p := v.(type) {
	case Param:
		return p, true
	case *Param:
		if p != nil {
			return *p, true
		}
	}
	return Param{}, false
}
