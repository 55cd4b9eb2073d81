package normalize

import "strings"

// snakeToCamel converts an underscore-separated identifier to camelCase:
// "foo_bar_baz" becomes "fooBarBaz". Identifiers without underscores pass
// through unchanged.
func snakeToCamel(s string) string {
	if !strings.Contains(s, "_") {
		return s
	}
	parts := strings.Split(s, "_")
	var b strings.Builder
	b.Grow(len(s))
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

// camelToSnake is the exact inverse of snakeToCamel for identifiers that
// round-trip through both: every uppercase ASCII letter becomes an
// underscore followed by its lowercase form.
func camelToSnake(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			b.WriteByte('_')
			b.WriteByte(c + ('a' - 'A'))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// SnakeKeysToCamel recursively converts all map keys from snake_case to
// camelCase. Arrays recurse element-wise; primitives and nils pass through
// unchanged.
func SnakeKeysToCamel(v any) any {
	return convertKeys(v, snakeToCamel)
}

// CamelKeysToSnake recursively converts all map keys from camelCase to
// snake_case.
func CamelKeysToSnake(v any) any {
	return convertKeys(v, camelToSnake)
}

func convertKeys(v any, convert func(string) string) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[convert(k)] = convertKeys(elem, convert)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = convertKeys(elem, convert)
		}
		return out
	default:
		return v
	}
}
