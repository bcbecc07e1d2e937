package tools

import (
	"strconv"
	"strings"
)

// Args holds the decoded JSON arguments of a tool call. Numeric arguments
// are accepted both as JSON numbers and as numeric strings.
type Args map[string]any

// String returns the trimmed string form of an argument, or "" when absent.
func (a Args) String(key string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// Float returns a numeric argument and whether it was present and valid.
func (a Args) Float(key string) (float64, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Int returns an integer argument and whether it was present and valid.
func (a Args) Int(key string) (int, bool) {
	f, ok := a.Float(key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// Has reports whether an argument was supplied at all (including null-free
// presence only).
func (a Args) Has(key string) bool {
	v, ok := a[key]
	return ok && v != nil
}
