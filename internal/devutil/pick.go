// Package devutil holds helpers for the debug commands.
package devutil

import (
	"encoding/json"
	"strconv"
	"strings"
)

// pick round-trips v through JSON and keeps only the requested keys. A key
// may be a dotted path ("profile.fullName", "courses.0.progress"); the
// result is keyed by the path as given. Missing paths are left out.
func pick(v any, keys ...string) map[string]any {
	b, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}

	var root any
	if err := json.Unmarshal(b, &root); err != nil {
		return map[string]any{}
	}

	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if val, ok := lookup(root, strings.Split(k, ".")); ok {
			out[k] = val
		}
	}
	return out
}

func lookup(node any, path []string) (any, bool) {
	for _, seg := range path {
		switch n := node.(type) {
		case map[string]any:
			next, ok := n[seg]
			if !ok {
				return nil, false
			}
			node = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(n) {
				return nil, false
			}
			node = n[i]
		default:
			return nil, false
		}
	}
	return node, true
}

func Pick(v any, keys ...string) map[string]any {
	return pick(v, keys...)
}
