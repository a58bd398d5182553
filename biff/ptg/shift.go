package ptg

import (
	"slices"
	"strconv"

	"github.com/joshuapare/cfbkit/internal/buf"
)

// Outcome is the result of shifting one reference.
type Outcome int

const (
	Unchanged Outcome = iota
	Moved
	Deleted
)

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Moved:
		return "moved"
	case Deleted:
		return "deleted"
	}
	return "outcome(" + strconv.Itoa(int(o)) + ")"
}

// Shifter translates references when rows or columns move.
type Shifter interface {
	ShiftArea(a Area) (Area, Outcome)
	// Applies3D reports whether 3D references through extern sheet index
	// ixti point at the sheet being shifted.
	Applies3D(ixti uint16) bool
}

// Axis selects rows or columns.
type Axis int

const (
	Rows Axis = iota
	Cols
)

// BlockShifter moves the rows (or columns) First..Last by Amount. Cells
// overwritten by the moved block are deleted.
type BlockShifter struct {
	Axis   Axis
	First  int
	Last   int
	Amount int
	// ExternSheets lists the extern sheet indexes that resolve to the
	// shifted sheet. 3D references through other indexes are left alone.
	ExternSheets []uint16
}

// InsertRows returns a shifter that opens n empty rows at row at.
func InsertRows(at, n int) BlockShifter {
	return BlockShifter{Axis: Rows, First: at, Last: MaxRow, Amount: n}
}

// DeleteRows returns a shifter that removes n rows starting at row at.
func DeleteRows(at, n int) BlockShifter {
	return BlockShifter{Axis: Rows, First: at + n, Last: MaxRow, Amount: -n}
}

// InsertCols returns a shifter that opens n empty columns at col at.
func InsertCols(at, n int) BlockShifter {
	return BlockShifter{Axis: Cols, First: at, Last: MaxCol, Amount: n}
}

// DeleteCols returns a shifter that removes n columns starting at col at.
func DeleteCols(at, n int) BlockShifter {
	return BlockShifter{Axis: Cols, First: at + n, Last: MaxCol, Amount: -n}
}

func (s BlockShifter) Applies3D(ixti uint16) bool {
	return slices.Contains(s.ExternSheets, ixti)
}

func (s BlockShifter) ShiftArea(a Area) (Area, Outcome) {
	if s.Axis == Cols {
		lo, hi, o := s.span(a.FirstCol, a.LastCol, MaxCol)
		a.FirstCol, a.LastCol = lo, hi
		return a, o
	}
	lo, hi, o := s.span(a.FirstRow, a.LastRow, MaxRow)
	a.FirstRow, a.LastRow = lo, hi
	return a, o
}

// span moves the interval lo..hi along the shifter's axis.
func (s BlockShifter) span(lo, hi, limit int) (int, int, Outcome) {
	f, l, amt := s.First, s.Last, s.Amount
	if amt == 0 || f > l {
		return lo, hi, Unchanged
	}
	df, dl := f+amt, l+amt
	nlo, nhi := lo, hi
	switch {
	case f <= lo && hi <= l:
		// Entirely inside the moved block.
		nlo, nhi = lo+amt, hi+amt
		if nhi < 0 || nlo > limit {
			return lo, hi, Deleted
		}
	case hi < f || lo > l:
		// Outside the block; only the destination can touch it.
		switch {
		case df <= lo && hi <= dl:
			return lo, hi, Deleted
		case lo < df && df <= hi && hi <= dl:
			nhi = df - 1
		case df <= lo && lo <= dl && dl < hi:
			nlo = dl + 1
		}
	case lo < f && l < hi:
		// Block strictly inside the area.
	case lo < f:
		// Block covers the bottom part of the area.
		nhi = hi + amt
		if amt < 0 && df <= lo {
			nlo = df
		}
	default:
		// Block covers the top part of the area.
		nlo = lo + amt
		if amt > 0 && dl >= hi {
			nhi = dl
		}
	}
	nlo, nhi = max(nlo, 0), min(nhi, limit)
	if nlo > nhi {
		return lo, hi, Deleted
	}
	if nlo == lo && nhi == hi {
		return lo, hi, Unchanged
	}
	return nlo, nhi, Moved
}

// Rewrites of deleted references, keeping the operand class bits.
var errOp = map[byte]byte{
	OpRef:    OpRefErr,
	OpArea:   OpAreaErr,
	OpRef3d:  OpRefErr3d,
	OpArea3d: OpAreaErr3d,
}

// Shift returns a copy of formula with its references moved by s, and
// the most severe outcome over all references. Deleted references become
// the matching error tokens. Relative (tRefN/tAreaN) tokens are left as
// they are. A formula that cannot be tokenized is returned unchanged
// with the tokenizer error.
func Shift(formula []byte, s Shifter) ([]byte, Outcome, error) {
	toks, err := Tokenize(formula)
	if err != nil {
		return formula, Unchanged, err
	}
	out := slices.Clone(formula)
	worst := Unchanged
	for _, t := range toks {
		b := out[t.Off : t.Off+t.Len]
		base := t.Base()
		pos := 1
		switch base {
		case OpRef3d, OpArea3d:
			if !s.Applies3D(buf.U16LE(b[1:])) {
				continue
			}
			pos = 3
		case OpRef, OpArea:
		default:
			continue
		}
		area := base == OpArea || base == OpArea3d
		a, flags := decodeRef(b[pos:], area)
		na, o := s.ShiftArea(a)
		switch o {
		case Moved:
			encodeRef(b[pos:], na, flags, area)
		case Deleted:
			b[0] = b[0]&0x60 | errOp[base]&0x1f
			clear(b[pos:])
		}
		worst = max(worst, o)
	}
	return out, worst, nil
}

// Refs lists the references of a formula in token order. Deleted (error)
// references and relative tokens are skipped.
func Refs(formula []byte) ([]Area, error) {
	toks, err := Tokenize(formula)
	if err != nil {
		return nil, err
	}
	var out []Area
	for _, t := range toks {
		b := formula[t.Off : t.Off+t.Len]
		switch t.Base() {
		case OpRef:
			a, _ := decodeRef(b[1:], false)
			out = append(out, a)
		case OpArea:
			a, _ := decodeRef(b[1:], true)
			out = append(out, a)
		case OpRef3d:
			a, _ := decodeRef(b[3:], false)
			out = append(out, a)
		case OpArea3d:
			a, _ := decodeRef(b[3:], true)
			out = append(out, a)
		}
	}
	return out, nil
}

// refFlags keeps the relative-row/relative-column bits of each column
// field: bit 15 marks a relative row, bit 14 a relative column.
type refFlags [2]uint16

const colMask = 0x00FF

func decodeRef(b []byte, area bool) (Area, refFlags) {
	if !area {
		row := int(buf.U16LE(b))
		col := buf.U16LE(b[2:])
		return Cell(row, int(col&colMask)), refFlags{col &^ colMask, col &^ colMask}
	}
	c1, c2 := buf.U16LE(b[4:]), buf.U16LE(b[6:])
	return Area{
		FirstRow: int(buf.U16LE(b)),
		LastRow:  int(buf.U16LE(b[2:])),
		FirstCol: int(c1 & colMask),
		LastCol:  int(c2 & colMask),
	}, refFlags{c1 &^ colMask, c2 &^ colMask}
}

func encodeRef(b []byte, a Area, flags refFlags, area bool) {
	put := func(off int, v uint16) { b[off], b[off+1] = byte(v), byte(v>>8) }
	if !area {
		put(0, uint16(a.FirstRow))
		put(2, uint16(a.FirstCol)|flags[0])
		return
	}
	put(0, uint16(a.FirstRow))
	put(2, uint16(a.LastRow))
	put(4, uint16(a.FirstCol)|flags[0])
	put(6, uint16(a.LastCol)|flags[1])
}
