package delta

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindRetain Kind = "retain"
	KindInsert Kind = "insert"
	KindDelete Kind = "delete"
)

type Op struct {
	Kind  Kind           `json:"kind"`            // "retain" / "insert" / "delete"
	Count int            `json:"count,omitempty"` // length for retain/delete
	Text  string         `json:"text,omitempty"`  // text for insert
	Attrs map[string]any `json:"attrs,omitempty"` // style attributes (bold/color etc.)
}

// Delta is an ordered run of operations applied left to right against a
// document. Positions are rune offsets.
// "ops":[{"kind":"retain","count":5},{"kind":"insert","text":"Hello"}]
type Delta []Op

func Retain(n int) Op       { return Op{Kind: KindRetain, Count: n} }
func Insert(text string) Op { return Op{Kind: KindInsert, Text: text} }
func Delete(n int) Op       { return Op{Kind: KindDelete, Count: n} }

var ErrMalformed = errors.New("malformed delta")

// Validate rejects deltas that no buffer could apply: unknown kinds,
// non-positive retain/delete counts, empty inserts. Bounds against the
// document length are checked at apply time, not here.
func (d Delta) Validate() error {
	if len(d) == 0 {
		return fmt.Errorf("%w: empty", ErrMalformed)
	}
	for i, op := range d {
		switch op.Kind {
		case KindRetain, KindDelete:
			if op.Count <= 0 {
				return fmt.Errorf("%w: op %d: %s count %d", ErrMalformed, i, op.Kind, op.Count)
			}
			if op.Text != "" {
				return fmt.Errorf("%w: op %d: %s carries text", ErrMalformed, i, op.Kind)
			}
		case KindInsert:
			if op.Text == "" {
				return fmt.Errorf("%w: op %d: empty insert", ErrMalformed, i)
			}
		default:
			return fmt.Errorf("%w: op %d: unknown kind %q", ErrMalformed, i, op.Kind)
		}
	}
	return nil
}

// BaseLen is the number of runes of input document the delta consumes
// (retains plus deletes).
func (d Delta) BaseLen() int {
	n := 0
	for _, op := range d {
		if op.Kind == KindRetain || op.Kind == KindDelete {
			n += op.Count
		}
	}
	return n
}

// TargetDelta returns the change in document length after applying d.
func (d Delta) TargetDelta() int {
	n := 0
	for _, op := range d {
		switch op.Kind {
		case KindInsert:
			n += len([]rune(op.Text))
		case KindDelete:
			n -= op.Count
		}
	}
	return n
}
