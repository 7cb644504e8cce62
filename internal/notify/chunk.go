package notify

import (
	"fmt"
	"strings"
)

// Boundary acceptance fractions: a cut is only taken at a paragraph, line,
// or word boundary if it lands far enough into the window; otherwise the
// next strategy is tried, ending with a hard cut at the limit.
const (
	paragraphFraction = 0.5
	lineFraction      = 0.6
	spaceFraction     = 0.8
)

// ChunkText splits trimmed text into pieces of at most max runes each,
// preferring to cut at a paragraph break, then a line break, then a space.
// The pieces concatenate back to the trimmed input.
func ChunkText(s string, max int) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if max <= 0 {
		max = 1600
	}

	var chunks []string
	rest := []rune(s)
	for len(rest) > max {
		window := string(rest[:max])
		cut := cutPoint(window, max)
		chunks = append(chunks, string(rest[:cut]))
		rest = rest[cut:]
	}
	chunks = append(chunks, string(rest))
	return chunks
}

// cutPoint returns the rune count to take from a full window.
func cutPoint(window string, max int) int {
	type strategy struct {
		sep      string
		fraction float64
	}
	for _, st := range []strategy{
		{"\n\n", paragraphFraction},
		{"\n", lineFraction},
		{" ", spaceFraction},
	} {
		idx := strings.LastIndex(window, st.sep)
		if idx < 0 {
			continue
		}
		// Cut just past the separator so nothing is lost.
		cut := len([]rune(window[:idx+len(st.sep)]))
		if float64(cut) >= st.fraction*float64(max) {
			return cut
		}
	}
	return max
}

// numberChunk prefixes a chunk with its (i/n) marker and clamps the result
// back under the budget.
func numberChunk(chunk string, i, n, max int) string {
	if n <= 1 {
		return chunk
	}
	return clampRunes(fmt.Sprintf("(%d/%d) %s", i, n, chunk), max)
}

func clampRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
