package tracker

import (
	"regexp"
	"strings"
)

// Status-query detection is a phrase heuristic, not a grammar. The listed
// phrases are a minimum acceptance set; near-misses falling through to a
// normal dispatch is accepted fuzziness.
var (
	statusPrefixes = []string{
		"check status",
		"job status",
		"status",
	}
	statusContains = []string{
		"status update",
		"are you done",
		"is it done",
	}
)

// fullRunIDPattern matches a backend run identifier: a UUID or a 16+ char
// hex token. shortRunRefPattern matches the #-prefixed 8-char short form.
var (
	fullRunIDPattern   = regexp.MustCompile(`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b|\b[0-9a-fA-F]{16,32}\b`)
	shortRunRefPattern = regexp.MustCompile(`#([0-9a-zA-Z-]{8})\b`)
)

// IsStatusQuery reports whether a message should short-circuit to a status
// lookup instead of dispatching new work.
func IsStatusQuery(text string) bool {
	norm := normalize(text)
	if norm == "" {
		return false
	}
	for _, p := range statusPrefixes {
		if norm == p || strings.HasPrefix(norm, p+" ") {
			return true
		}
	}
	for _, p := range statusContains {
		if strings.Contains(norm, p) {
			return true
		}
	}
	return false
}

// ParseRunRef extracts an explicit run reference from free text: either a
// full identifier, or the short form with its "#" stripped to the caller's
// taste. Returns "" when the text names no run.
func ParseRunRef(text string) string {
	if m := fullRunIDPattern.FindString(text); m != "" {
		return strings.ToLower(m)
	}
	if m := shortRunRefPattern.FindStringSubmatch(text); m != nil {
		return "#" + strings.ToLower(m[1])
	}
	return ""
}

func normalize(text string) string {
	s := strings.ToLower(strings.Join(strings.Fields(text), " "))
	return strings.Trim(s, " ?!.")
}
