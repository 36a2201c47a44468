package value_test

import (
	"context"
	"testing"

	"github.com/statefork/statefork/observability"
	"github.com/statefork/statefork/value"
)

type captureObserver struct {
	events []observability.Event
}

func (c *captureObserver) OnEvent(ctx context.Context, event observability.Event) {
	c.events = append(c.events, event)
}

func (c *captureObserver) drops() int {
	n := 0
	for _, e := range c.events {
		if e.Type == value.EventDrop {
			n++
		}
	}
	return n
}

func TestSanitize_Primitives(t *testing.T) {
	tests := []struct {
		name string
		in   any
	}{
		{name: "nil", in: nil},
		{name: "bool", in: true},
		{name: "string", in: "hello"},
		{name: "int", in: 42},
		{name: "int64", in: int64(-7)},
		{name: "uint32", in: uint32(9)},
		{name: "float64", in: 3.25},
		{name: "bytes", in: []byte("raw")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := value.NewSanitizer(nil)

			got, present := s.Sanitize(tt.in)
			if !present {
				t.Fatalf("Sanitize(%v) absent, want present", tt.in)
			}
			switch in := tt.in.(type) {
			case []byte:
				if string(got.([]byte)) != string(in) {
					t.Errorf("Sanitize(%v) = %v, want unchanged", tt.in, got)
				}
			default:
				if got != tt.in {
					t.Errorf("Sanitize(%v) = %v, want unchanged", tt.in, got)
				}
			}
		})
	}
}

func TestSanitize_FunctionsAbsentSilently(t *testing.T) {
	observer := &captureObserver{}
	s := value.NewSanitizer(observer)

	if _, present := s.Sanitize(func() {}); present {
		t.Error("Sanitize(func) present, want absent")
	}
	if observer.drops() != 0 {
		t.Errorf("Sanitize(func) emitted %d drop events, want 0", observer.drops())
	}
}

func TestSanitize_ObjectDropsFunctionFieldKeepsOrder(t *testing.T) {
	obj := value.NewObject()
	obj.Set("first", "a")
	obj.Set("callback", func() {})
	obj.Set("second", int64(2))
	obj.Set("third", true)

	s := value.NewSanitizer(nil)
	got, present := s.Sanitize(obj)
	if !present {
		t.Fatal("Sanitize(object) absent, want present")
	}

	out := got.(*value.Object)
	var keys []string
	for pair := out.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}

	want := []string{"first", "second", "third"}
	if len(keys) != len(want) {
		t.Fatalf("sanitized object has keys %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("sanitized object has keys %v, want %v", keys, want)
		}
	}
}

func TestSanitize_OpaqueWarnsExactlyOnce(t *testing.T) {
	type opaque struct{ n int }

	// Three opaque values nested three levels deep in lists.
	in := []any{
		[]any{
			[]any{opaque{1}, opaque{2}},
			opaque{3},
		},
	}

	observer := &captureObserver{}
	s := value.NewSanitizer(observer)

	got, present := s.Sanitize(in)
	if !present {
		t.Fatal("Sanitize(list) absent, want present")
	}
	if observer.drops() != 1 {
		t.Errorf("Sanitize emitted %d drop events, want exactly 1", observer.drops())
	}
	if observer.events[0].Level != observability.LevelWarning {
		t.Errorf("drop event level = %v, want warning", observer.events[0].Level)
	}

	// The opaque elements are gone; the list structure survives.
	outer := got.([]any)
	if len(outer) != 1 {
		t.Fatalf("outer list has %d elements, want 1", len(outer))
	}
	inner := outer[0].([]any)
	if len(inner) != 1 {
		t.Fatalf("inner list has %d elements, want 1 (the empty innermost list)", len(inner))
	}
	if innermost := inner[0].([]any); len(innermost) != 0 {
		t.Errorf("innermost list has %d elements, want 0", len(innermost))
	}
}

func TestSanitize_WarnsAgainOnNextCall(t *testing.T) {
	observer := &captureObserver{}
	s := value.NewSanitizer(observer)

	s.Sanitize(struct{}{})
	s.Sanitize(struct{}{})

	if observer.drops() != 2 {
		t.Errorf("two Sanitize calls emitted %d drop events, want 2 (one each)", observer.drops())
	}
}

func TestSanitize_EmptyContainersAreNotAbsent(t *testing.T) {
	tests := []struct {
		name string
		in   any
	}{
		{name: "empty list", in: []any{}},
		{name: "empty map", in: map[string]any{}},
		{name: "empty object", in: value.NewObject()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := value.NewSanitizer(nil)

			if _, present := s.Sanitize(tt.in); !present {
				t.Errorf("Sanitize(%s) absent, want present", tt.name)
			}
		})
	}
}

func TestSanitize_PlainMapGetsSortedKeys(t *testing.T) {
	in := map[string]any{"zebra": 1, "apple": 2, "mango": 3}

	s := value.NewSanitizer(nil)
	got, present := s.Sanitize(in)
	if !present {
		t.Fatal("Sanitize(map) absent, want present")
	}

	out := got.(*value.Object)
	var keys []string
	for pair := out.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}

	want := []string{"apple", "mango", "zebra"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("sanitized map keys = %v, want sorted %v", keys, want)
		}
	}
}

func TestSanitize_SequencePreservesOrderDropsAbsent(t *testing.T) {
	in := []any{"keep", func() {}, int64(1), func() {}, "also"}

	s := value.NewSanitizer(nil)
	got, _ := s.Sanitize(in)

	out := got.([]any)
	if len(out) != 3 {
		t.Fatalf("sanitized list has %d elements, want 3", len(out))
	}
	if out[0] != "keep" || out[1] != int64(1) || out[2] != "also" {
		t.Errorf("sanitized list = %v, order not preserved", out)
	}
}

func TestSanitize_PointerDereference(t *testing.T) {
	s := value.NewSanitizer(nil)

	str := "pointed"
	got, present := s.Sanitize(&str)
	if !present || got != "pointed" {
		t.Errorf("Sanitize(*string) = %v, %v, want %q present", got, present, "pointed")
	}

	var nilPtr *string
	got, present = s.Sanitize(nilPtr)
	if !present || got != nil {
		t.Errorf("Sanitize(nil pointer) = %v, %v, want nil present", got, present)
	}
}

func TestSanitize_OpaqueShapes(t *testing.T) {
	tests := []struct {
		name string
		in   any
	}{
		{name: "struct", in: struct{ X int }{1}},
		{name: "channel", in: make(chan int)},
		{name: "int-keyed map", in: map[int]string{1: "a"}},
		{name: "complex", in: complex(1, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			observer := &captureObserver{}
			s := value.NewSanitizer(observer)

			if _, present := s.Sanitize(tt.in); present {
				t.Errorf("Sanitize(%s) present, want absent", tt.name)
			}
			if observer.drops() != 1 {
				t.Errorf("Sanitize(%s) emitted %d drop events, want 1", tt.name, observer.drops())
			}
		})
	}
}

func TestSanitize_NestedMixedTree(t *testing.T) {
	inner := value.NewObject()
	inner.Set("ok", true)
	inner.Set("skip", make(chan int))

	in := map[string]any{
		"list":   []any{int64(1), map[string]any{"deep": "yes"}},
		"object": inner,
	}

	s := value.NewSanitizer(nil)
	got, present := s.Sanitize(in)
	if !present {
		t.Fatal("Sanitize(tree) absent, want present")
	}

	out := got.(*value.Object)
	objVal, ok := out.Get("object")
	if !ok {
		t.Fatal("sanitized tree lost key \"object\"")
	}
	sanitizedInner := objVal.(*value.Object)
	if _, ok := sanitizedInner.Get("skip"); ok {
		t.Error("channel field survived sanitization")
	}
	if v, _ := sanitizedInner.Get("ok"); v != true {
		t.Errorf("inner.ok = %v, want true", v)
	}

	listVal, _ := out.Get("list")
	list := listVal.([]any)
	if len(list) != 2 {
		t.Fatalf("sanitized list has %d elements, want 2", len(list))
	}
	deep := list[1].(*value.Object)
	if v, _ := deep.Get("deep"); v != "yes" {
		t.Errorf("list[1].deep = %v, want \"yes\"", v)
	}
}

func TestSanitize_CyclicValueDegradesInsteadOfRecursing(t *testing.T) {
	cyclic := map[string]any{"name": "loop"}
	cyclic["self"] = cyclic

	observer := &captureObserver{}
	s := value.NewSanitizer(observer)

	got, present := s.Sanitize(cyclic)
	if !present {
		t.Fatal("Sanitize(cyclic map) absent, want present with the cycle truncated")
	}
	if v, _ := got.(*value.Object).Get("name"); v != "loop" {
		t.Errorf("sanitized name = %v, want \"loop\"", v)
	}
	if observer.drops() != 1 {
		t.Errorf("cycle truncation emitted %d drop events, want 1", observer.drops())
	}

	// Self-referential slices bottom out the same way.
	loop := make([]any, 1)
	loop[0] = loop
	if _, present := s.Sanitize(loop); !present {
		t.Error("Sanitize(cyclic slice) absent, want present with the cycle truncated")
	}
}
