// Package value defines the serializable value domain for the state store
// and the sanitizer that projects arbitrary runtime values into it.
//
// The sanitized domain is closed: nil, booleans, strings, Go integer and
// float types, []byte, ordered sequences ([]any), and keyed structures
// (*Object). Anything outside the domain degrades to absent rather than
// failing — persistence and cross-process transfer must tolerate whatever
// application code put in the table.
package value

import (
	"reflect"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Object is the keyed-structure shape of the sanitized domain. It preserves
// field order, which plain Go maps cannot, so sanitized structures survive
// JSON round-trips with a stable field sequence.
type Object = orderedmap.OrderedMap[string, any]

// NewObject creates an empty keyed structure.
func NewObject() *Object {
	return orderedmap.New[string, any]()
}

// shape is the closed set of value shapes the sanitizer dispatches over.
// Classification is structural (type switch plus reflect.Kind), never based
// on type names.
type shape int

const (
	shapePrimitive shape = iota // nil, bool, string, numbers, []byte
	shapeList                   // slices and arrays
	shapeObject                 // string-keyed maps and *Object
	shapeFunc                   // dropped silently
	shapePointer                // dereferenced and reclassified
	shapeOpaque                 // structs, chans, everything else: dropped with a warning
)

func shapeOf(v any) shape {
	if v == nil {
		return shapePrimitive
	}

	switch v.(type) {
	case bool, string, []byte,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, uintptr,
		float32, float64:
		return shapePrimitive
	case *Object:
		return shapeObject
	case map[string]any:
		return shapeObject
	case []any:
		return shapeList
	}

	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		// Named types with a primitive underlying kind.
		return shapePrimitive
	case reflect.Func:
		return shapeFunc
	case reflect.Pointer, reflect.Interface:
		return shapePointer
	case reflect.Slice, reflect.Array:
		return shapeList
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return shapeObject
		}
		return shapeOpaque
	default:
		return shapeOpaque
	}
}
