package collab

import (
	"fmt"
	"strings"

	"docsync/backend/internal/ot/delta"
)

type spanSource int

const (
	srcOriginal spanSource = iota
	srcAppend
)

// span references a run of runes in either the original or the append
// buffer.
type span struct {
	src    spanSource
	off    int
	length int
}

// PieceTable is an append-only content buffer: the loaded snapshot stays in
// original, every insert lands at the end of appendBuf, and spans describe
// the current document as a sequence of slices over the two.
type PieceTable struct {
	original  []rune
	appendBuf []rune
	spans     []span
}

func NewPieceTable(initial string) *PieceTable {
	r := []rune(initial)
	pt := &PieceTable{original: r}
	if len(r) > 0 {
		pt.spans = []span{{src: srcOriginal, off: 0, length: len(r)}}
	}
	return pt
}

func (pt *PieceTable) Len() int {
	n := 0
	for _, s := range pt.spans {
		n += s.length
	}
	return n
}

func (pt *PieceTable) String() string {
	var b strings.Builder
	for _, s := range pt.spans {
		b.WriteString(string(pt.runes(s)))
	}
	return b.String()
}

func (pt *PieceTable) runes(s span) []rune {
	if s.src == srcOriginal {
		return pt.original[s.off : s.off+s.length]
	}
	return pt.appendBuf[s.off : s.off+s.length]
}

// Apply walks the delta left to right: retain moves the position, insert
// splices a new span at the position, delete trims or drops spans. The delta
// must consume no more runes than the document holds; that is checked up
// front so a failed Apply leaves the table untouched.
func (pt *PieceTable) Apply(d delta.Delta) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if base := d.BaseLen(); base > pt.Len() {
		return fmt.Errorf("%w: delta consumes %d runes, document has %d", delta.ErrMalformed, base, pt.Len())
	}

	pos := 0
	for _, op := range d {
		switch op.Kind {
		case delta.KindRetain:
			pos += op.Count
		case delta.KindInsert:
			pt.insertAt(pos, []rune(op.Text))
			pos += len([]rune(op.Text))
		case delta.KindDelete:
			pt.deleteRange(pos, op.Count)
		}
	}
	return nil
}

func (pt *PieceTable) insertAt(pos int, text []rune) {
	start := len(pt.appendBuf)
	pt.appendBuf = append(pt.appendBuf, text...)
	fresh := span{src: srcAppend, off: start, length: len(text)}

	idx, off := pt.locate(pos)
	if idx == len(pt.spans) {
		pt.spans = append(pt.spans, fresh)
		return
	}

	cur := pt.spans[idx]
	out := make([]span, 0, len(pt.spans)+2)
	out = append(out, pt.spans[:idx]...)
	if off > 0 {
		out = append(out, span{src: cur.src, off: cur.off, length: off})
	}
	out = append(out, fresh)
	if rest := cur.length - off; rest > 0 {
		out = append(out, span{src: cur.src, off: cur.off + off, length: rest})
	}
	out = append(out, pt.spans[idx+1:]...)
	pt.spans = out
}

func (pt *PieceTable) deleteRange(pos, count int) {
	remain := count
	idx, off := pt.locate(pos)

	for remain > 0 && idx < len(pt.spans) {
		cur := &pt.spans[idx]
		avail := cur.length - off
		if avail <= 0 {
			idx++
			off = 0
			continue
		}

		take := remain
		if take > avail {
			take = avail
		}

		if off == 0 && take == cur.length {
			// whole span goes away; idx now points at the next span
			pt.spans = append(pt.spans[:idx], pt.spans[idx+1:]...)
		} else {
			leftLen := off
			rightLen := cur.length - off - take
			out := make([]span, 0, len(pt.spans)+1)
			out = append(out, pt.spans[:idx]...)
			if leftLen > 0 {
				out = append(out, span{src: cur.src, off: cur.off, length: leftLen})
			}
			if rightLen > 0 {
				out = append(out, span{src: cur.src, off: cur.off + off + take, length: rightLen})
			}
			out = append(out, pt.spans[idx+1:]...)
			pt.spans = out
			if leftLen > 0 {
				idx++
			}
			off = 0
		}
		remain -= take
	}
}

// locate maps a logical rune position to (span index, offset within span).
// A position exactly at the end maps to (len(spans), 0).
func (pt *PieceTable) locate(pos int) (idx, off int) {
	cur := 0
	for i, s := range pt.spans {
		if pos < cur+s.length {
			return i, pos - cur
		}
		cur += s.length
	}
	return len(pt.spans), 0
}
