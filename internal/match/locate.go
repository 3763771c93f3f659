// Package match locates edit targets inside the flattened document text.
// Three tiers are available: exact substring, ASCII case-insensitive
// substring, and whitespace-normalized fuzzy search. Every tier returns the
// first match in document order and reports spans in original byte offsets
// so splicing can preserve the surrounding text untouched.
package match

import "strings"

// Span is a half-open [Start, End) byte range in the searched text.
type Span struct {
	Start int
	End   int
}

// Exact finds the first literal occurrence of target at or after from.
// An empty target never matches.
func Exact(hay, target string, from int) (Span, bool) {
	if target == "" || from < 0 || from > len(hay) {
		return Span{}, false
	}
	idx := strings.Index(hay[from:], target)
	if idx < 0 {
		return Span{}, false
	}
	return Span{Start: from + idx, End: from + idx + len(target)}, true
}

// Fold finds the first ASCII case-insensitive occurrence of target at or
// after from. The returned span covers the original-case text so a splice
// keeps the document's own casing outside the match. Folding is ASCII
// only: non-ASCII case pairs such as É and é compare as distinct, since
// Unicode case mapping can change byte lengths and break the offset
// guarantee.
func Fold(hay, target string, from int) (Span, bool) {
	if target == "" || from < 0 || from > len(hay) {
		return Span{}, false
	}
	// Byte-wise ASCII lowering keeps offsets identical between the folded
	// and original strings, which strings.ToLower does not guarantee.
	idx := strings.Index(asciiLower(hay[from:]), asciiLower(target))
	if idx < 0 {
		return Span{}, false
	}
	return Span{Start: from + idx, End: from + idx + len(target)}, true
}

// Normalized finds target after collapsing every whitespace run in both the
// haystack and the target to a single space and trimming the target. The
// match position is mapped back to original offsets through an index table
// built once per call. The back-mapping is approximate when distinct
// whitespace runs collapse to the same normalized form.
func Normalized(hay, target string, from int) (Span, bool) {
	if from < 0 || from > len(hay) {
		return Span{}, false
	}
	normTarget := collapseWhitespace(target)
	if normTarget == "" {
		return Span{}, false
	}

	sub := hay[from:]
	collapsed, index := collapseWithIndex(sub)

	idx := strings.Index(collapsed, normTarget)
	if idx < 0 {
		return Span{}, false
	}

	start := index[idx]
	end := index[idx+len(normTarget)]
	return Span{Start: from + start, End: from + end}, true
}

// Locate is the standard tier order for section replace, contextual value
// replace and insert-after-anchor: exact first, then whitespace-normalized.
func Locate(hay, target string, from int) (Span, bool) {
	if span, ok := Exact(hay, target, from); ok {
		return span, true
	}
	return Normalized(hay, target, from)
}

// collapseWhitespace trims s and squeezes every whitespace run to one space.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// collapseWithIndex collapses whitespace runs in s and returns the
// collapsed string together with an index table mapping each collapsed
// byte position (plus one trailing sentinel) to an original byte offset.
func collapseWithIndex(s string) (string, []int) {
	var b strings.Builder
	index := make([]int, 0, len(s)+1)

	inSpace := false
	pendingSpaceAt := -1
	lastEnd := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isSpace(c) {
			if !inSpace {
				inSpace = true
				pendingSpaceAt = i
			}
			continue
		}
		if inSpace {
			inSpace = false
			// Emit one representative space for the whole run, unless
			// it would lead the collapsed string.
			if b.Len() > 0 {
				b.WriteByte(' ')
				index = append(index, pendingSpaceAt)
			}
		}
		b.WriteByte(c)
		index = append(index, i)
		lastEnd = i + 1
	}
	// Sentinel: a match reaching the end of the collapsed string ends just
	// past the last real character, not past any trailing whitespace.
	index = append(index, lastEnd)
	return b.String(), index
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func asciiLower(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		b.WriteByte(c)
	}
	return b.String()
}
