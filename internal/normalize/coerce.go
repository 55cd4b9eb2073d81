package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
)

// toNumber coerces a decoded JSON value to a float64, defaulting to 0 for
// anything it cannot read. Strings are parsed after trimming whitespace.
func toNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	case bool:
		if n {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// toString coerces a value to a string, returning "" for non-strings.
func toString(v any) string {
	s, _ := v.(string)
	return s
}

// asMap returns v as a map, or nil if it is not one.
func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// asSlice returns v as a slice, or nil if it is not one.
func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

// has reports whether key is present in m (with any value, including null).
func has(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

// defined reports whether key is present in m with a non-null value.
func defined(m map[string]any, key string) bool {
	v, ok := m[key]
	return ok && v != nil
}

// digitsIn extracts the numeric portion of a free-form string such as "3x"
// or "~2.5×", returning ok=false when no digits are present.
func digitsIn(s string) (float64, bool) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ceilDiv returns ceil(total/limit), guarding against a zero divisor.
func ceilDiv(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
