package payload

import (
	"sort"
	"time"
)

// Object is one decoded JSON object of unknown shape.
type Object map[string]any

// AsObject reports whether v is a JSON object.
func AsObject(v any) (Object, bool) {
	switch value := v.(type) {
	case Object:
		return value, value != nil
	case map[string]any:
		return Object(value), value != nil
	default:
		return nil, false
	}
}

// Lookup returns the value stored under key. An exact match wins; otherwise
// keys are compared with FoldKey, taking the lexically smallest match so the
// result does not depend on map iteration order.
func (o Object) Lookup(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	if v, ok := o[key]; ok && v != nil {
		return v, true
	}
	want := FoldKey(key)
	var matches []string
	for k, v := range o {
		if v != nil && FoldKey(k) == want {
			matches = append(matches, k)
		}
	}
	if len(matches) == 0 {
		return nil, false
	}
	sort.Strings(matches)
	return o[matches[0]], true
}

// Accessor yields candidate values for one canonical field, in priority order.
type Accessor func(Object) []any

// Key yields the value of every listed key that is present.
func Key(keys ...string) Accessor {
	return func(o Object) []any {
		out := make([]any, 0, len(keys))
		for _, k := range keys {
			if v, ok := o.Lookup(k); ok {
				out = append(out, v)
			}
		}
		return out
	}
}

// Path walks nested objects, e.g. Path("proyecto", "nombre").
func Path(path ...string) Accessor {
	return func(o Object) []any {
		current := o
		for i, k := range path {
			v, ok := current.Lookup(k)
			if !ok {
				return nil
			}
			if i == len(path)-1 {
				return []any{v}
			}
			next, ok := AsObject(v)
			if !ok {
				return nil
			}
			current = next
		}
		return nil
	}
}

// Ref resolves a reference that may be either a plain value or an object.
// A plain value is yielded as is; for an object every listed field is tried.
func Ref(key string, fields ...string) Accessor {
	return func(o Object) []any {
		v, ok := o.Lookup(key)
		if !ok {
			return nil
		}
		nested, isObject := AsObject(v)
		if !isObject {
			return []any{v}
		}
		return Key(fields...)(nested)
	}
}

// Refs applies Ref to each key in turn.
func Refs(keys []string, fields ...string) Accessor {
	return func(o Object) []any {
		var out []any
		for _, k := range keys {
			out = append(out, Ref(k, fields...)(o)...)
		}
		return out
	}
}

// String returns the first candidate that coerces to a non-empty string.
func String(o Object, accessors ...Accessor) (string, bool) {
	for _, acc := range accessors {
		for _, candidate := range acc(o) {
			if s, ok := ToString(candidate); ok {
				return s, true
			}
		}
	}
	return "", false
}

// Number returns the first candidate that coerces to a finite number.
func Number(o Object, accessors ...Accessor) (float64, bool) {
	for _, acc := range accessors {
		for _, candidate := range acc(o) {
			if f, ok := ToNumber(candidate); ok {
				return f, true
			}
		}
	}
	return 0, false
}

// Bool returns the first candidate that coerces to a boolean.
func Bool(o Object, accessors ...Accessor) (bool, bool) {
	for _, acc := range accessors {
		for _, candidate := range acc(o) {
			if b, ok := ToBool(candidate); ok {
				return b, true
			}
		}
	}
	return false, false
}

// Time returns the first candidate that parses as a timestamp.
func Time(o Object, accessors ...Accessor) (time.Time, bool) {
	for _, acc := range accessors {
		for _, candidate := range acc(o) {
			if t, ok := ToTime(candidate); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// List returns the first candidate that is a JSON array.
func List(o Object, accessors ...Accessor) ([]any, bool) {
	for _, acc := range accessors {
		for _, candidate := range acc(o) {
			if list, ok := candidate.([]any); ok {
				return list, true
			}
		}
	}
	return nil, false
}

// FirstObject returns the first candidate that is a JSON object.
func FirstObject(o Object, accessors ...Accessor) (Object, bool) {
	for _, acc := range accessors {
		for _, candidate := range acc(o) {
			if obj, ok := AsObject(candidate); ok {
				return obj, true
			}
		}
	}
	return nil, false
}
