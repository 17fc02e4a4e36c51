// Package reader provides a positioned view over an input buffer, with
// cheap mark/restore for backtracking.
package reader

import "unicode/utf8"

// Offset is a byte offset into the input, usable as a mark to restore to.
type Offset int

// Position is a decoded location: a 0-based byte offset with its
// 1-based line and column (the column of the rune the offset points at).
type Position struct {
	Line   int
	Col    int
	Offset Offset
}

// svpt (save point) bundles a position with the rune found there and its
// width, so that Restore needs no re-decoding.
type svpt struct {
	Position
	rn rune
	w  int
}

// Reader decodes a byte buffer one rune at a time, tracking line/column,
// and supports mark/restore for backtracking parsers. Mark is O(1);
// Restore to a different offset recomputes line/column from the start
// of the buffer.
type Reader struct {
	data []byte
	pt   svpt
}

// New returns a Reader positioned before the first rune of data.
func New(data []byte) *Reader {
	r := &Reader{data: data, pt: svpt{Position: Position{Line: 1, Col: 1}}}
	r.decode()
	return r
}

// decode reads the rune at pt.Offset without advancing past it.
func (r *Reader) decode() {
	if r.pt.Offset >= Offset(len(r.data)) {
		r.pt.rn = utf8.RuneError
		r.pt.w = 0
		return
	}
	rn, n := utf8.DecodeRune(r.data[r.pt.Offset:])
	r.pt.rn = rn
	r.pt.w = n
}

// Peek returns the current rune without advancing. The second result is
// false at end of input.
func (r *Reader) Peek() (rune, bool) {
	if r.pt.Offset >= Offset(len(r.data)) {
		return 0, false
	}
	return r.pt.rn, true
}

// Next returns the current rune and advances past it. The second result
// is false at end of input, and the reader does not advance.
func (r *Reader) Next() (rune, bool) {
	rn, ok := r.Peek()
	if !ok {
		return 0, false
	}
	r.pt.Offset += Offset(r.pt.w)
	if rn == '\n' {
		r.pt.Line++
		r.pt.Col = 1
	} else {
		r.pt.Col++
	}
	r.decode()
	return rn, true
}

// Mark returns a cheap, restorable snapshot of the current position.
func (r *Reader) Mark() Offset {
	return r.pt.Offset
}

// Pos returns the full current position (line, col, offset).
func (r *Reader) Pos() Position {
	return r.pt.Position
}

// Restore unconditionally rewinds the reader to a previously marked
// offset. Restoring to an offset not obtained from Mark on this reader is
// undefined.
func (r *Reader) Restore(o Offset) {
	// Restoring to the current offset is free; any other offset
	// re-derives line/col by walking the buffer from its start.
	if o == r.pt.Offset {
		return
	}
	r.pt.Offset = o
	r.recomputeLineCol()
	r.decode()
}

// recomputeLineCol walks the buffer from the start to Offset to restore
// accurate line/col bookkeeping. It is only paid for on Restore, which is
// called at sequence/alternation boundaries, not per rune.
func (r *Reader) recomputeLineCol() {
	line, col := 1, 1
	for i := Offset(0); i < r.pt.Offset && int(i) < len(r.data); {
		rn, n := utf8.DecodeRune(r.data[i:])
		if rn == '\n' {
			line++
			col = 1
		} else {
			col++
		}
		i += Offset(n)
	}
	r.pt.Line = line
	r.pt.Col = col
}

// Slice returns the raw bytes between two offsets, start inclusive, end
// exclusive. The returned slice aliases the input buffer.
func (r *Reader) Slice(start, end Offset) []byte {
	return r.data[start:end]
}

// LineCol deterministically computes the line and column of an
// arbitrary offset, recomputing from the start of the buffer.
func (r *Reader) LineCol(o Offset) (line, col int) {
	line, col = 1, 1
	for i := Offset(0); i < o && int(i) < len(r.data); {
		rn, n := utf8.DecodeRune(r.data[i:])
		if rn == '\n' {
			line++
			col = 1
		} else {
			col++
		}
		i += Offset(n)
	}
	return line, col
}

// Len returns the length of the underlying buffer in bytes.
func (r *Reader) Len() int {
	return len(r.data)
}

// AtEOF reports whether the reader has no more runes to read.
func (r *Reader) AtEOF() bool {
	_, ok := r.Peek()
	return !ok
}
