// Package engine dispatches change operations over a DOCX document. Each
// operation re-derives the flattened text from the current structural
// stream, locates its target, and splices the replacement in; a miss is
// recorded in the outcome log and the batch carries on.
package engine

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/landmark-intel/docpatch/internal/config"
	"github.com/landmark-intel/docpatch/internal/container"
	"github.com/landmark-intel/docpatch/internal/docmap"
	"github.com/landmark-intel/docpatch/internal/match"
	"github.com/landmark-intel/docpatch/internal/splice"
)

// Result is the outcome of one batch.
type Result struct {
	// BatchID identifies this run in logs.
	BatchID string
	// Docx is the re-serialized container.
	Docx []byte
	// Applied counts operations that changed the document.
	Applied int
	// Total counts attempted operations.
	Total int
	// Log holds one or more human-readable lines per operation, each
	// prefixed with a success or failure marker.
	Log []string
}

// Engine applies ordered operation batches to documents. An Engine is
// stateless across batches; one instance may serve many documents as long
// as batches are not interleaved on it concurrently.
type Engine struct {
	cfg    *config.Config
	logger *zap.Logger
}

func New(cfg *config.Config, logger *zap.Logger) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Apply runs the batch against the document bytes and returns the rewritten
// container. Container and security failures abort before any operation
// runs; individual match failures only produce log entries.
func (e *Engine) Apply(docxData []byte, ops []Op) (*Result, error) {
	limits := container.Limits{
		MaxEntryBytes: e.cfg.MaxEntryBytes,
		MaxTotalBytes: e.cfg.MaxTotalBytes,
	}
	c, err := container.Open(docxData, limits, e.logger)
	if err != nil {
		return nil, err
	}

	batchID := uuid.NewString()
	log := e.logger.With(zap.String("batch", batchID))

	stream := c.Document()
	var outcome []string
	applied := 0

	for i, op := range ops {
		newStream, lines, ok := e.applyOne(stream, op)
		stream = newStream
		outcome = append(outcome, lines...)
		if ok {
			applied++
		}
		log.Debug("operation attempted",
			zap.Int("index", i),
			zap.String("op", op.Name()),
			zap.Bool("applied", ok))
	}

	out, err := c.Rewrite(stream)
	if err != nil {
		return nil, fmt.Errorf("failed to rewrite container: %w", err)
	}

	log.Info("batch complete",
		zap.Int("applied", applied),
		zap.Int("total", len(ops)))

	return &Result{
		BatchID: batchID,
		Docx:    out,
		Applied: applied,
		Total:   len(ops),
		Log:     outcome,
	}, nil
}

// applyOne applies a single operation to the stream, returning the new
// stream, the outcome log lines, and whether the document changed. The
// stream is threaded as a value: a miss returns it unchanged.
func (e *Engine) applyOne(stream []byte, op Op) ([]byte, []string, bool) {
	switch op := op.(type) {
	case ReplaceAll:
		return e.applyReplaceAll(stream, op)
	case ReplaceValue:
		return e.applyReplaceValue(stream, op)
	case ReplaceSection:
		return e.applyReplaceSection(stream, op)
	case AddAfter:
		return e.applyAddAfter(stream, op)
	}
	return stream, []string{failLine("unknown operation")}, false
}

func (e *Engine) applyReplaceAll(stream []byte, op ReplaceAll) ([]byte, []string, bool) {
	count := 0
	from := 0

	for i := 0; i < e.cfg.MaxReplaceIterations; i++ {
		m, err := docmap.Map(stream)
		if err != nil {
			return stream, []string{failLine(fmt.Sprintf("replace_all: document scan failed: %v", err))}, count > 0
		}

		// Exact matches are a subset of case-insensitive ones, so a single
		// folded scan walks every occurrence of either tier in document
		// order. The splice keeps the original-case span boundaries.
		span, ok := match.Fold(m.Flat, op.Old, from)
		if !ok {
			break
		}

		newStream, changed := splice.Apply(stream, m, span.Start, span.End, op.New)
		if !changed {
			// Match fell entirely inside synthetic whitespace; skip past
			// it so the scan still terminates.
			from = span.End
			continue
		}

		stream = newStream
		count++
		// Advance past the inserted replacement, not just past the old
		// text, so a new value containing the old one never rematches.
		from = span.Start + len(op.New)
	}

	if count == 0 {
		return stream, []string{failLine(fmt.Sprintf("replace_all: %s not found", e.snippet(op.Old)))}, false
	}
	return stream, []string{okLine(fmt.Sprintf("replace_all: replaced %d occurrence(s) of %s", count, e.snippet(op.Old)))}, true
}

func (e *Engine) applyReplaceValue(stream []byte, op ReplaceValue) ([]byte, []string, bool) {
	m, err := docmap.Map(stream)
	if err != nil {
		return stream, []string{failLine(fmt.Sprintf("replace_value: document scan failed: %v", err))}, false
	}

	valSpan, found := e.locateValue(m.Flat, op)
	if !found {
		return stream, []string{failLine(fmt.Sprintf("replace_value: %s not found", e.snippet(op.Old)))}, false
	}

	newStream, changed := splice.Apply(stream, m, valSpan.Start, valSpan.End, op.New)
	if !changed {
		return stream, []string{failLine(fmt.Sprintf("replace_value: %s not found", e.snippet(op.Old)))}, false
	}
	return newStream, []string{okLine(fmt.Sprintf("replace_value: %s -> %s", e.snippet(op.Old), e.snippet(op.New)))}, true
}

// locateValue finds the old value near its context, or anywhere in the
// document when the context itself cannot be located.
func (e *Engine) locateValue(flat string, op ReplaceValue) (match.Span, bool) {
	if ctxSpan, ok := match.Locate(flat, op.Context, 0); ok {
		// The value usually sits inside or just after its context, so the
		// forward window is tried first; an occurrence shortly before the
		// context is the fallback. Only then does the search widen to the
		// whole document.
		wEnd := ctxSpan.End + e.cfg.ContextWindow
		if wEnd > len(flat) {
			wEnd = len(flat)
		}
		if span, ok := match.Locate(flat[ctxSpan.Start:wEnd], op.Old, 0); ok {
			return match.Span{Start: ctxSpan.Start + span.Start, End: ctxSpan.Start + span.End}, true
		}
		wStart := ctxSpan.Start - e.cfg.ContextWindow
		if wStart < 0 {
			wStart = 0
		}
		if span, ok := match.Locate(flat[wStart:ctxSpan.Start], op.Old, 0); ok {
			return match.Span{Start: wStart + span.Start, End: wStart + span.End}, true
		}
	}
	return match.Locate(flat, op.Old, 0)
}

func (e *Engine) applyReplaceSection(stream []byte, op ReplaceSection) ([]byte, []string, bool) {
	m, err := docmap.Map(stream)
	if err != nil {
		return stream, []string{failLine(fmt.Sprintf("replace_section: document scan failed: %v", err))}, false
	}

	span, ok := match.Locate(m.Flat, op.Find, 0)
	if !ok {
		return stream, []string{failLine(fmt.Sprintf("replace_section: %s not found", e.snippet(op.Find)))}, false
	}

	newStream, changed := splice.Apply(stream, m, span.Start, span.End, op.Replace)
	if !changed {
		return stream, []string{failLine(fmt.Sprintf("replace_section: %s not found", e.snippet(op.Find)))}, false
	}
	return newStream, []string{okLine(fmt.Sprintf("replace_section: replaced %s", e.snippet(op.Find)))}, true
}

func (e *Engine) applyAddAfter(stream []byte, op AddAfter) ([]byte, []string, bool) {
	m, err := docmap.Map(stream)
	if err != nil {
		return stream, []string{failLine(fmt.Sprintf("add_after: document scan failed: %v", err))}, false
	}

	span, ok := match.Locate(m.Flat, op.Anchor, 0)
	if !ok {
		return stream, []string{failLine(fmt.Sprintf("add_after: anchor %s not found", e.snippet(op.Anchor)))}, false
	}

	// Non-destructive: the replacement is the anchor's own text with the
	// new content appended, so the anchor survives verbatim.
	replacement := m.Flat[span.Start:span.End] + op.Content
	newStream, changed := splice.Apply(stream, m, span.Start, span.End, replacement)
	if !changed {
		return stream, []string{failLine(fmt.Sprintf("add_after: anchor %s not found", e.snippet(op.Anchor)))}, false
	}
	return newStream, []string{okLine(fmt.Sprintf("add_after: inserted content after %s", e.snippet(op.Anchor)))}, true
}

// snippet renders a target string for a log line: quoted, newlines folded,
// truncated to the configured length.
func (e *Engine) snippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	max := e.cfg.MaxLogSnippet
	if len(s) > max {
		s = s[:max] + "..."
	}
	return fmt.Sprintf("%q", s)
}

func okLine(msg string) string   { return "✓ " + msg }
func failLine(msg string) string { return "✗ " + msg }
