package value

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"time"

	"github.com/statefork/statefork/observability"
)

// EventDrop is emitted when a sanitize pass encounters an opaque value.
// At most one is emitted per top-level Sanitize call, however many opaque
// values the tree contains.
const EventDrop observability.EventType = "sanitize.drop"

// maxDepth bounds the sanitize recursion, so cyclic or absurdly deep
// values degrade to absent instead of overflowing the stack.
const maxDepth = 128

// Sanitizer projects arbitrary runtime values into the sanitized domain.
// It never fails: unsupported values degrade to absent. The zero-value
// Sanitizer is not usable; construct with NewSanitizer.
type Sanitizer struct {
	observer observability.Observer
}

// NewSanitizer creates a Sanitizer reporting drops to the given observer.
// A nil observer silences drop warnings.
func NewSanitizer(observer observability.Observer) *Sanitizer {
	if observer == nil {
		observer = observability.NoOpObserver{}
	}
	return &Sanitizer{observer: observer}
}

// Sanitize returns the sanitized form of v and whether v is present in the
// sanitized domain at all. Rules:
//
//   - functions sanitize to absent, silently
//   - primitives pass through unchanged
//   - sequences sanitize element-wise; absent elements are dropped,
//     order is preserved
//   - keyed structures sanitize field-by-field; absent fields are omitted;
//     *Object inputs keep insertion order, plain map inputs get sorted key
//     order (Go maps carry no insertion order)
//   - pointers are dereferenced; nil pointers sanitize to nil
//   - everything else is opaque: absent, with one warning per call
//   - values nested beyond maxDepth, cycles included, sanitize to absent
//     under the same one-warning rule
//
// Empty sequences and structures sanitize to themselves. Absence is
// reserved for unsupported shapes, not for emptiness.
func (s *Sanitizer) Sanitize(v any) (any, bool) {
	warned := false
	return s.walk(v, 0, &warned)
}

func (s *Sanitizer) walk(v any, depth int, warned *bool) (any, bool) {
	if depth > maxDepth {
		s.warnOnce(v, warned)
		return nil, false
	}

	switch shapeOf(v) {
	case shapePrimitive:
		return v, true

	case shapeFunc:
		return nil, false

	case shapePointer:
		rv := reflect.ValueOf(v)
		if rv.IsNil() {
			return nil, true
		}
		return s.walk(rv.Elem().Interface(), depth+1, warned)

	case shapeList:
		return s.walkList(v, depth, warned), true

	case shapeObject:
		return s.walkObject(v, depth, warned), true

	default:
		s.warnOnce(v, warned)
		return nil, false
	}
}

func (s *Sanitizer) walkList(v any, depth int, warned *bool) []any {
	// Fast path for the common concrete type.
	if elems, ok := v.([]any); ok {
		out := make([]any, 0, len(elems))
		for _, e := range elems {
			if sv, present := s.walk(e, depth+1, warned); present {
				out = append(out, sv)
			}
		}
		return out
	}

	rv := reflect.ValueOf(v)
	out := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		if sv, present := s.walk(rv.Index(i).Interface(), depth+1, warned); present {
			out = append(out, sv)
		}
	}
	return out
}

func (s *Sanitizer) walkObject(v any, depth int, warned *bool) *Object {
	out := NewObject()

	switch obj := v.(type) {
	case *Object:
		for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
			if sv, present := s.walk(pair.Value, depth+1, warned); present {
				out.Set(pair.Key, sv)
			}
		}
		return out

	case map[string]any:
		for _, key := range slices.Sorted(maps.Keys(obj)) {
			if sv, present := s.walk(obj[key], depth+1, warned); present {
				out.Set(key, sv)
			}
		}
		return out
	}

	// String-keyed map of some other value type.
	rv := reflect.ValueOf(v)
	keys := make([]string, 0, rv.Len())
	for _, k := range rv.MapKeys() {
		keys = append(keys, k.String())
	}
	slices.Sort(keys)
	for _, key := range keys {
		field := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if sv, present := s.walk(field.Interface(), depth+1, warned); present {
			out.Set(key, sv)
		}
	}
	return out
}

func (s *Sanitizer) warnOnce(v any, warned *bool) {
	if *warned {
		return
	}
	*warned = true

	s.observer.OnEvent(context.Background(), observability.Event{
		Type:      EventDrop,
		Level:     observability.LevelWarning,
		Timestamp: time.Now(),
		Source:    "sanitize",
		Data:      map[string]any{"go_type": fmt.Sprintf("%T", v)},
	})
}
