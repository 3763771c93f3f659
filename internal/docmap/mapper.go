// Package docmap builds the bidirectional mapping between the raw
// word/document.xml byte stream and a flattened text view of the document.
// Each run of real text becomes one Segment carrying both its byte range in
// the structural stream and its character range in the flattened text, so
// edit targets located in the flat view can be spliced back precisely.
package docmap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// nodeKind classifies the structural markers the mapper cares about. The
// scan works on decoded tokens, not on the raw markup's spelling, so the
// matching logic downstream never depends on how the XML is written.
type nodeKind int

const (
	nodeOther   nodeKind = iota
	nodeText             // <w:t> run content
	nodeParaEnd          // </w:p>
	nodeRowEnd           // </w:tr>
	nodeTab              // <w:tab/> inside a run
	nodeBreak            // <w:br/> or <w:cr/> inside a run
)

// Segment ties one contiguous run of document text to the structural text
// element that holds it.
type Segment struct {
	// StructStart and StructEnd delimit the whole text element in the
	// structural stream, open and close tags included.
	StructStart int
	StructEnd   int

	// TextStart and TextEnd delimit this segment's contribution to the
	// flattened text.
	TextStart int
	TextEnd   int

	// Text is the unescaped content of the element.
	Text string

	// Tag is the element name as written in the stream ("w:t" or "t"),
	// kept so rewritten elements use the same namespace prefix.
	Tag string
}

// DocMap is the derived flat view of a document. It is ephemeral: any
// mutation of the structural stream invalidates it, and callers must
// re-run Map before locating further targets.
type DocMap struct {
	// Flat is all visible text in document order, with one synthetic
	// whitespace character per structural boundary (newline for
	// paragraph and table-row ends, space for tabs and breaks). The
	// synthetic characters belong to no segment.
	Flat string

	// Segments in document order; TextStart/TextEnd are monotonically
	// non-decreasing.
	Segments []Segment
}

// Map scans the structural stream and produces the flattened text plus the
// ordered segment list. Re-running Map on an unchanged stream yields an
// identical result.
func Map(stream []byte) (*DocMap, error) {
	dec := xml.NewDecoder(bytes.NewReader(stream))

	var (
		flat     strings.Builder
		segments []Segment

		inText    bool
		textBuf   strings.Builder
		elemStart int
		elemTag   string
		runDepth  int
	)

	tokStart := int(dec.InputOffset())
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan document stream: %w", err)
		}
		tokEnd := int(dec.InputOffset())

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "r" {
				runDepth++
				break
			}
			switch classifyStart(t.Name.Local, runDepth) {
			case nodeText:
				inText = true
				textBuf.Reset()
				elemStart = tokStart
				elemTag = tagName(stream, tokStart)
			case nodeTab, nodeBreak:
				flat.WriteByte(' ')
			}

		case xml.CharData:
			if inText {
				textBuf.Write(t)
			}

		case xml.EndElement:
			if t.Name.Local == "r" {
				if runDepth > 0 {
					runDepth--
				}
				break
			}
			switch classifyEnd(t.Name.Local) {
			case nodeText:
				if !inText {
					break
				}
				inText = false
				if text := textBuf.String(); text != "" {
					segments = append(segments, Segment{
						StructStart: elemStart,
						StructEnd:   tokEnd,
						TextStart:   flat.Len(),
						TextEnd:     flat.Len() + len(text),
						Text:        text,
						Tag:         elemTag,
					})
					flat.WriteString(text)
				}
			case nodeParaEnd, nodeRowEnd:
				flat.WriteByte('\n')
			}
		}

		tokStart = tokEnd
	}

	return &DocMap{Flat: flat.String(), Segments: segments}, nil
}

// classifyStart maps an opening element to a node kind. Text, tab and
// break markers only count inside a run; tab-stop definitions under
// <w:pPr><w:tabs> share the "tab" local name and must not inject
// separators.
func classifyStart(local string, runDepth int) nodeKind {
	if runDepth == 0 {
		return nodeOther
	}
	switch local {
	case "t":
		return nodeText
	case "tab":
		return nodeTab
	case "br", "cr":
		return nodeBreak
	}
	return nodeOther
}

// classifyEnd maps a closing element to a node kind.
func classifyEnd(local string) nodeKind {
	switch local {
	case "t":
		return nodeText
	case "p":
		return nodeParaEnd
	case "tr":
		return nodeRowEnd
	}
	return nodeOther
}

// tagName reads the element name as written at an open angle bracket.
func tagName(stream []byte, start int) string {
	i := start + 1
	for i < len(stream) {
		c := stream[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '>' || c == '/' {
			break
		}
		i++
	}
	return string(stream[start+1 : i])
}

// SegmentsInRange returns the segments whose flat-text ranges overlap
// [start, end).
func (m *DocMap) SegmentsInRange(start, end int) []Segment {
	var out []Segment
	for _, seg := range m.Segments {
		if seg.TextStart < end && seg.TextEnd > start {
			out = append(out, seg)
		}
	}
	return out
}
