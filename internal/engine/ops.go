package engine

import (
	"encoding/json"
	"fmt"
)

// Op is one change operation from the upstream planner. The four variants
// form a closed set; dispatching switches exhaustively over them.
type Op interface {
	isOp()
	// Name is the wire-format type tag, used in outcome log lines.
	Name() string
}

// ReplaceAll replaces every occurrence of Old with New, falling back to a
// case-insensitive search per occurrence when the literal casing differs.
type ReplaceAll struct {
	Old string
	New string
}

// ReplaceValue replaces a short Old value with New, using Context only to
// pick the right occurrence when the value alone is ambiguous.
type ReplaceValue struct {
	Context string
	Old     string
	New     string
}

// ReplaceSection replaces a longer passage, located exactly or by
// whitespace-normalized matching, with Replace.
type ReplaceSection struct {
	Find    string
	Replace string
}

// AddAfter inserts Content immediately after the Anchor text, leaving the
// anchor itself unchanged.
type AddAfter struct {
	Anchor  string
	Content string
}

func (ReplaceAll) isOp()     {}
func (ReplaceValue) isOp()   {}
func (ReplaceSection) isOp() {}
func (AddAfter) isOp()       {}

func (ReplaceAll) Name() string     { return "replace_all" }
func (ReplaceValue) Name() string   { return "replace_value" }
func (ReplaceSection) Name() string { return "replace_section" }
func (AddAfter) Name() string       { return "add_after" }

// wireOp is the JSON envelope for a single operation.
type wireOp struct {
	Type    string `json:"type"`
	Old     string `json:"old,omitempty"`
	New     string `json:"new,omitempty"`
	Context string `json:"context,omitempty"`
	Find    string `json:"find,omitempty"`
	Replace string `json:"replace,omitempty"`
	Anchor  string `json:"anchor,omitempty"`
	Content string `json:"content,omitempty"`
}

// ParseOps decodes the JSON operation array produced by the upstream
// collaborator. Elements with an unknown type are skipped silently.
func ParseOps(data []byte) ([]Op, error) {
	var wire []wireOp
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("failed to parse operations: %w", err)
	}

	var ops []Op
	for _, w := range wire {
		switch w.Type {
		case "replace_all":
			ops = append(ops, ReplaceAll{Old: w.Old, New: w.New})
		case "replace_value":
			ops = append(ops, ReplaceValue{Context: w.Context, Old: w.Old, New: w.New})
		case "replace_section":
			ops = append(ops, ReplaceSection{Find: w.Find, Replace: w.Replace})
		case "add_after":
			ops = append(ops, AddAfter{Anchor: w.Anchor, Content: w.Content})
		default:
			// Unknown operation kinds are ignored without a log entry.
		}
	}
	return ops, nil
}

// MarshalOps encodes operations back into the wire format.
func MarshalOps(ops []Op) ([]byte, error) {
	wire := make([]wireOp, 0, len(ops))
	for _, op := range ops {
		switch o := op.(type) {
		case ReplaceAll:
			wire = append(wire, wireOp{Type: o.Name(), Old: o.Old, New: o.New})
		case ReplaceValue:
			wire = append(wire, wireOp{Type: o.Name(), Context: o.Context, Old: o.Old, New: o.New})
		case ReplaceSection:
			wire = append(wire, wireOp{Type: o.Name(), Find: o.Find, Replace: o.Replace})
		case AddAfter:
			wire = append(wire, wireOp{Type: o.Name(), Anchor: o.Anchor, Content: o.Content})
		}
	}
	return json.MarshalIndent(wire, "", "  ")
}
