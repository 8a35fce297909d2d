package mappers

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

func firstNonEmpty(v ...string) string {
	for _, s := range v {
		if strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// capitalize upper-cases the first letter: "imscp" -> "Imscp".
func capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// unixTime returns nil for zero or negative timestamps.
func unixTime(sec int) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(int64(sec), 0).UTC()
	return &t
}

// GetString reads the first present key of a loosely-typed record as text.
func GetString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			switch t := v.(type) {
			case string:
				return t
			case float64:
				if t == float64(int64(t)) {
					return fmt.Sprintf("%d", int64(t))
				}
				return fmt.Sprintf("%g", t)
			default:
				return fmt.Sprintf("%v", t)
			}
		}
	}
	return ""
}

// GetFloat reads the first numeric key of a loosely-typed record.
func GetFloat(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			switch t := v.(type) {
			case float64:
				return t, true
			case int:
				return float64(t), true
			case bool:
				if t {
					return 1, true
				}
				return 0, true
			case string:
				var f float64
				if _, err := fmt.Sscanf(strings.TrimSpace(t), "%g", &f); err == nil {
					return f, true
				}
			}
		}
	}
	return 0, false
}
