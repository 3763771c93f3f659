// Package splice rewrites the structural stream so that a located span of
// the flattened text reads as a replacement string. Edits happen at the
// byte level on the affected <w:t> elements only; everything else in the
// stream, images and styles included, is carried through untouched.
package splice

import (
	"bytes"
	"encoding/xml"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/landmark-intel/docpatch/internal/docmap"
)

// Apply rewrites the segments overlapping [start, end) in m's flat text so
// the document reads as if replacement had always been there. It returns
// the new stream and whether any segment was touched; an untouched stream
// means the caller should treat the span as not found.
//
// Single-line replacements edit the affected elements in place. Multi-line
// replacements put the first line in place and append one new paragraph per
// remaining line after the enclosing paragraph, cloning its paragraph and
// run formatting.
func Apply(stream []byte, m *docmap.DocMap, start, end int, replacement string) ([]byte, bool) {
	affected := m.SegmentsInRange(start, end)
	if len(affected) == 0 {
		return stream, false
	}

	lines := strings.Split(replacement, "\n")

	var block *blockContext
	if len(lines) > 1 {
		block = findBlockContext(stream, affected[0])
		if block == nil {
			// No enclosing paragraph to clone; degrade to a literal
			// single-line splice.
			lines = []string{strings.Join(lines, " ")}
		}
	}

	// Rewrite from the last affected segment backward so earlier byte
	// offsets stay valid while the stream shrinks or grows.
	out := stream
	deltaBeforeInsert := 0
	for i := len(affected) - 1; i >= 0; i-- {
		seg := affected[i]

		relStart := start - seg.TextStart
		if relStart < 0 {
			relStart = 0
		}
		relEnd := end - seg.TextStart
		if relEnd > len(seg.Text) {
			relEnd = len(seg.Text)
		}

		// The first affected segment receives the replacement's first
		// line; the rest only lose their matched portion.
		repl := ""
		if i == 0 {
			repl = lines[0]
		}
		newText := seg.Text[:relStart] + repl + seg.Text[relEnd:]

		elem := renderTextElement(seg.Tag, newText)
		if block != nil && seg.StructEnd <= block.insertPos {
			deltaBeforeInsert += len(elem) - (seg.StructEnd - seg.StructStart)
		}
		out = spliceBytes(out, seg.StructStart, seg.StructEnd, elem)
	}

	if block != nil && len(lines) > 1 {
		var b bytes.Buffer
		for _, line := range lines[1:] {
			b.WriteString(block.renderParagraph(line))
		}
		pos := block.insertPos + deltaBeforeInsert
		out = spliceBytes(out, pos, pos, b.Bytes())
	}

	return out, true
}

// renderTextElement serializes a text element with the given tag name and
// unescaped content. Text with leading or trailing whitespace gets the
// xml:space="preserve" attribute, without which the format trims it.
func renderTextElement(tag, text string) []byte {
	var b bytes.Buffer
	b.WriteByte('<')
	b.WriteString(tag)
	if needsPreserve(text) {
		b.WriteString(` xml:space="preserve"`)
	}
	b.WriteByte('>')
	escapeInto(&b, text)
	b.WriteString("</")
	b.WriteString(tag)
	b.WriteByte('>')
	return b.Bytes()
}

func needsPreserve(text string) bool {
	if text == "" {
		return false
	}
	first, _ := utf8.DecodeRuneInString(text)
	last, _ := utf8.DecodeLastRuneInString(text)
	return unicode.IsSpace(first) || unicode.IsSpace(last)
}

func escapeInto(b *bytes.Buffer, text string) {
	// xml.EscapeText only fails on a failing writer; a bytes.Buffer never does.
	_ = xml.EscapeText(b, []byte(text))
}

func spliceBytes(b []byte, start, end int, repl []byte) []byte {
	out := make([]byte, 0, len(b)-(end-start)+len(repl))
	out = append(out, b[:start]...)
	out = append(out, repl...)
	out = append(out, b[end:]...)
	return out
}

// blockContext captures everything needed to clone the paragraph enclosing
// a segment: where new paragraphs go and which formatting they inherit.
type blockContext struct {
	prefix    string // namespace prefix of the enclosing markup, "w:" usually
	insertPos int    // byte offset just past the enclosing </w:p>
	paraProps string // raw <w:pPr>...</w:pPr> of the enclosing paragraph, or ""
	runProps  string // raw <w:rPr>...</w:rPr> of the segment's run, or ""
}

// findBlockContext locates the smallest enclosing paragraph around seg and
// captures its block-level and run-level formatting. Returns nil when the
// segment is not inside a paragraph.
func findBlockContext(stream []byte, seg docmap.Segment) *blockContext {
	prefix := strings.TrimSuffix(seg.Tag, "t")

	pOpen := lastOpenTag(stream, seg.StructStart, prefix+"p")
	if pOpen < 0 {
		return nil
	}
	closeTag := "</" + prefix + "p>"
	pClose := bytes.Index(stream[seg.StructEnd:], []byte(closeTag))
	if pClose < 0 {
		return nil
	}
	insertPos := seg.StructEnd + pClose + len(closeTag)

	paraProps := extractElement(stream[pOpen:seg.StructStart], prefix+"pPr")

	runProps := ""
	if rOpen := lastOpenTag(stream, seg.StructStart, prefix+"r"); rOpen > pOpen {
		runProps = extractElement(stream[rOpen:seg.StructStart], prefix+"rPr")
	}

	return &blockContext{
		prefix:    prefix,
		insertPos: insertPos,
		paraProps: paraProps,
		runProps:  runProps,
	}
}

// renderParagraph builds one new paragraph holding a single run with the
// given line, carrying the captured formatting properties.
func (c *blockContext) renderParagraph(line string) string {
	var b strings.Builder
	b.WriteString("<" + c.prefix + "p>")
	b.WriteString(c.paraProps)
	b.WriteString("<" + c.prefix + "r>")
	b.WriteString(c.runProps)
	b.Write(renderTextElement(c.prefix+"t", line))
	b.WriteString("</" + c.prefix + "r>")
	b.WriteString("</" + c.prefix + "p>")
	return b.String()
}

// lastOpenTag returns the offset of the last "<name>" or "<name ..." open
// tag strictly before pos, or -1. The character after the name is checked
// so that "<w:r" does not match "<w:rPr".
func lastOpenTag(stream []byte, pos int, name string) int {
	needle := []byte("<" + name)
	search := stream[:pos]
	for {
		idx := bytes.LastIndex(search, needle)
		if idx < 0 {
			return -1
		}
		after := idx + len(needle)
		if after < len(stream) {
			c := stream[after]
			if c == '>' || c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '/' {
				return idx
			}
		}
		search = search[:idx]
	}
}

// extractElement returns the raw bytes of the first "<name ...>...</name>"
// (or self-closed "<name .../>") element inside region, or "".
func extractElement(region []byte, name string) string {
	needle := []byte("<" + name)
	from := 0
	for {
		idx := bytes.Index(region[from:], needle)
		if idx < 0 {
			return ""
		}
		open := from + idx
		after := open + len(needle)
		if after >= len(region) {
			return ""
		}
		c := region[after]
		if c != '>' && c != ' ' && c != '\t' && c != '\n' && c != '\r' && c != '/' {
			from = after
			continue
		}

		// Self-closing tag?
		gt := bytes.IndexByte(region[open:], '>')
		if gt < 0 {
			return ""
		}
		if region[open+gt-1] == '/' {
			return string(region[open : open+gt+1])
		}

		closeTag := []byte("</" + name + ">")
		closeIdx := bytes.Index(region[open:], closeTag)
		if closeIdx < 0 {
			return ""
		}
		return string(region[open : open+closeIdx+len(closeTag)])
	}
}
