package payload

var (
	envelopeKeys = []string{"data", "result", "payload"}
	listKeys     = []string{"items", "data", "results", "rows", "records"}
)

// Unwrap strips one response envelope such as {"data": {...}} when the outer
// object carries no identifier of its own.
func Unwrap(v any) any {
	obj, ok := AsObject(v)
	if !ok {
		return v
	}
	if _, hasID := obj.Lookup("id"); hasID {
		return v
	}
	for _, k := range envelopeKeys {
		inner, ok := obj.Lookup(k)
		if !ok {
			continue
		}
		switch inner.(type) {
		case map[string]any, Object, []any:
			return inner
		}
	}
	return v
}

// AsList returns the elements of a list response, accepting a bare array or
// an object that wraps one under a conventional key.
func AsList(v any) ([]any, bool) {
	if list, ok := v.([]any); ok {
		return list, true
	}
	obj, ok := AsObject(v)
	if !ok {
		return nil, false
	}
	for _, k := range listKeys {
		inner, ok := obj.Lookup(k)
		if !ok {
			continue
		}
		if list, ok := inner.([]any); ok {
			return list, true
		}
		if nested, ok := AsList(inner); ok {
			return nested, true
		}
	}
	return nil, false
}
