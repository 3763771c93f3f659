package engine

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ApplyText applies the same operation kinds directly to a plain string,
// for documents with no structural container. Splices are literal; there
// is no paragraph structure to preserve, so multi-line replacements are
// inserted verbatim.
func (e *Engine) ApplyText(text string, ops []Op) (string, *Result, error) {
	var outcome []string
	applied := 0

	for _, op := range ops {
		newText, lines, ok := e.applyOneText(text, op)
		text = newText
		outcome = append(outcome, lines...)
		if ok {
			applied++
		}
	}

	return text, &Result{
		BatchID: uuid.NewString(),
		Applied: applied,
		Total:   len(ops),
		Log:     outcome,
	}, nil
}

func (e *Engine) applyOneText(text string, op Op) (string, []string, bool) {
	switch op := op.(type) {
	case ReplaceAll:
		count := strings.Count(text, op.Old)
		if op.Old == "" || count == 0 {
			return text, []string{failLine(fmt.Sprintf("replace_all: %s not found", e.snippet(op.Old)))}, false
		}
		out := strings.Join(strings.Split(text, op.Old), op.New)
		return out, []string{okLine(fmt.Sprintf("replace_all: replaced %d occurrence(s) of %s", count, e.snippet(op.Old)))}, true

	case ReplaceValue:
		idx := e.indexNearContext(text, op.Context, op.Old)
		if idx < 0 {
			return text, []string{failLine(fmt.Sprintf("replace_value: %s not found", e.snippet(op.Old)))}, false
		}
		out := text[:idx] + op.New + text[idx+len(op.Old):]
		return out, []string{okLine(fmt.Sprintf("replace_value: %s -> %s", e.snippet(op.Old), e.snippet(op.New)))}, true

	case ReplaceSection:
		if op.Find == "" {
			return text, []string{failLine("replace_section: empty target")}, false
		}
		idx := strings.Index(text, op.Find)
		if idx < 0 {
			return text, []string{failLine(fmt.Sprintf("replace_section: %s not found", e.snippet(op.Find)))}, false
		}
		out := text[:idx] + op.Replace + text[idx+len(op.Find):]
		return out, []string{okLine(fmt.Sprintf("replace_section: replaced %s", e.snippet(op.Find)))}, true

	case AddAfter:
		if op.Anchor == "" {
			return text, []string{failLine("add_after: empty anchor")}, false
		}
		idx := strings.Index(text, op.Anchor)
		if idx < 0 {
			return text, []string{failLine(fmt.Sprintf("add_after: anchor %s not found", e.snippet(op.Anchor)))}, false
		}
		pos := idx + len(op.Anchor)
		out := text[:pos] + op.Content + text[pos:]
		return out, []string{okLine(fmt.Sprintf("add_after: inserted content after %s", e.snippet(op.Anchor)))}, true
	}
	return text, []string{failLine("unknown operation")}, false
}

// indexNearContext finds op.Old close to its context string, falling back
// to the first occurrence anywhere.
func (e *Engine) indexNearContext(text, context, old string) int {
	if old == "" {
		return -1
	}
	if context != "" {
		if ctxIdx := strings.Index(text, context); ctxIdx >= 0 {
			wEnd := ctxIdx + len(context) + e.cfg.ContextWindow
			if wEnd > len(text) {
				wEnd = len(text)
			}
			if idx := strings.Index(text[ctxIdx:wEnd], old); idx >= 0 {
				return ctxIdx + idx
			}
			wStart := ctxIdx - e.cfg.ContextWindow
			if wStart < 0 {
				wStart = 0
			}
			if idx := strings.Index(text[wStart:ctxIdx], old); idx >= 0 {
				return wStart + idx
			}
		}
	}
	return strings.Index(text, old)
}
