package database

import "reflect"

// MetadataField is the name under which some clients attach a column
// descriptor to every row. It is never a column value.
const MetadataField = "columns"

// NormalizeRows turns raw client rows into plain column → value maps.
//
// A "columns" field holding an object (map, slice, struct) is dropped.
// Every string value goes through hook, which may replace it; other values
// are copied as-is. A nil hook leaves strings untouched.
//
// The returned slice is always non-nil (empty slice on zero rows).
func NormalizeRows(rows []map[string]any, hook ResultHook, opts ResultOptions) []map[string]any {
	result := make([]map[string]any, 0, len(rows))

	for _, row := range rows {
		out := make(map[string]any, len(row))
		for name, value := range row {
			if name == MetadataField && isObject(value) {
				continue
			}
			if s, ok := value.(string); ok && hook != nil {
				out[name] = hook(s, name, opts)
				continue
			}
			out[name] = value
		}
		result = append(result, out)
	}

	return result
}

// isObject reports whether v is a composite value rather than a scalar.
func isObject(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	}
	return false
}
