// Package extract pulls fields out of loosely-shaped collaborator payloads.
// Webhook events and session/history entries arrive with schemas we don't
// control, so every accessor probes an ordered list of candidate paths and
// returns the first non-empty hit.
package extract

import (
	"fmt"
	"strings"
)

// FirstString returns the first non-empty string found at any of the given
// paths, in order. Numeric values are rendered; other shapes are skipped.
func FirstString(m map[string]any, paths ...[]string) string {
	for _, path := range paths {
		v, ok := lookup(m, path)
		if !ok {
			continue
		}
		if s := scalarString(v); s != "" {
			return s
		}
	}
	return ""
}

// FirstNumber returns the first numeric value found at any path, in order.
func FirstNumber(m map[string]any, paths ...[]string) (float64, bool) {
	for _, path := range paths {
		v, ok := lookup(m, path)
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n, true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		}
	}
	return 0, false
}

// FirstText runs Text over the value at each path, returning the first
// non-empty extraction. Used for message content, which may be nested
// arbitrarily deep at any of the candidate fields.
func FirstText(m map[string]any, paths ...[]string) string {
	for _, path := range paths {
		v, ok := lookup(m, path)
		if !ok {
			continue
		}
		if s := Text(v); s != "" {
			return s
		}
	}
	return ""
}

func lookup(m map[string]any, path []string) (any, bool) {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func scalarString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		if s == float64(int64(s)) {
			return fmt.Sprintf("%d", int64(s))
		}
		return fmt.Sprintf("%v", s)
	default:
		return ""
	}
}

// Text extracts readable text from a message-content value. Content shows
// up as a plain string, as an array of parts (each a string or an object
// with text/content fields), or with content itself nested another level
// down. Parts are joined with newlines.
func Text(v any) string {
	switch c := v.(type) {
	case string:
		return strings.TrimSpace(c)
	case []any:
		var parts []string
		for _, p := range c {
			if s := Text(p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	case map[string]any:
		if s, ok := c["text"].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
		if inner, ok := c["content"]; ok {
			return Text(inner)
		}
		return ""
	default:
		return ""
	}
}
