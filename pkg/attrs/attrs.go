// Package attrs reads values out of slog-style key/value attribute lists.
package attrs

// Extract returns the value paired with key in a [k1, v1, k2, v2, ...] list.
func Extract(attrs []any, key string) (any, bool) {
	for i := 0; i+1 < len(attrs); i += 2 {
		if k, ok := attrs[i].(string); ok && k == key {
			return attrs[i+1], true
		}
	}
	return nil, false
}

// ExtractString returns the string value for key, or "" when the key is
// missing or its value is not a string.
func ExtractString(attrs []any, key string) string {
	v, ok := Extract(attrs, key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// ToMap converts an attribute list into a map, skipping non-string keys and
// a trailing unpaired element.
func ToMap(attrs []any) map[string]any {
	out := make(map[string]any, len(attrs)/2)
	for i := 0; i+1 < len(attrs); i += 2 {
		if k, ok := attrs[i].(string); ok {
			out[k] = attrs[i+1]
		}
	}
	return out
}
