package cf

import (
	"slices"

	"github.com/joshuapare/cfbkit/biff"
	"github.com/joshuapare/cfbkit/biff/ptg"
	"github.com/joshuapare/cfbkit/internal/buf"
	"github.com/joshuapare/cfbkit/pkg/types"
)

// Header is the CFHEADER record: the rule count and the cell ranges the
// rules apply to.
type Header struct {
	NumCF uint16
	// Recalc holds the tough-recalc bit (bit 0) and the block id.
	Recalc uint16
	Bounds ptg.Area
	Ranges []ptg.Area
}

func (h *Header) Sid() uint16 { return biff.SidCFHeader }

func (h *Header) AppendPayload(dst []byte) []byte {
	dst = buf.AppendU16(dst, h.NumCF)
	dst = buf.AppendU16(dst, h.Recalc)
	dst = appendRange(dst, h.Bounds)
	dst = buf.AppendU16(dst, uint16(len(h.Ranges)))
	for _, r := range h.Ranges {
		dst = appendRange(dst, r)
	}
	return dst
}

func (h *Header) clone() *Header {
	c := *h
	c.Ranges = slices.Clone(h.Ranges)
	return &c
}

// enclosing returns the smallest area covering every range.
func enclosing(ranges []ptg.Area) ptg.Area {
	if len(ranges) == 0 {
		return ptg.Area{}
	}
	b := ranges[0]
	for _, r := range ranges[1:] {
		b.FirstRow = min(b.FirstRow, r.FirstRow)
		b.LastRow = max(b.LastRow, r.LastRow)
		b.FirstCol = min(b.FirstCol, r.FirstCol)
		b.LastCol = max(b.LastCol, r.LastCol)
	}
	return b
}

func appendRange(dst []byte, a ptg.Area) []byte {
	dst = buf.AppendU16(dst, uint16(a.FirstRow))
	dst = buf.AppendU16(dst, uint16(a.LastRow))
	dst = buf.AppendU16(dst, uint16(a.FirstCol))
	return buf.AppendU16(dst, uint16(a.LastCol))
}

func readRange(in *biff.RecordInputStream) (ptg.Area, error) {
	var v [4]uint16
	for i := range v {
		x, err := in.ReadUint16()
		if err != nil {
			return ptg.Area{}, err
		}
		v[i] = x
	}
	return ptg.Area{FirstRow: int(v[0]), LastRow: int(v[1]), FirstCol: int(v[2]), LastCol: int(v[3])}, nil
}

func decodeHeader(in *biff.RecordInputStream) (biff.Record, error) {
	h := &Header{}
	var err error
	if h.NumCF, err = in.ReadUint16(); err != nil {
		return nil, err
	}
	if h.Recalc, err = in.ReadUint16(); err != nil {
		return nil, err
	}
	if h.Bounds, err = readRange(in); err != nil {
		return nil, err
	}
	n, err := in.ReadUint16()
	if err != nil {
		return nil, err
	}
	if _, err := buf.CheckListBounds(in.Remaining(), 0, int(n), 8); err != nil {
		return nil, types.Errorf(types.ErrKindBounds, "CFHEADER declares %d ranges: %v", n, err)
	}
	h.Ranges = make([]ptg.Area, n)
	for i := range h.Ranges {
		if h.Ranges[i], err = readRange(in); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Condition types.
const (
	CondCellIs  byte = 1
	CondFormula byte = 2
)

// Comparison operators of CondCellIs rules.
const (
	CmpNone byte = iota
	CmpBetween
	CmpNotBetween
	CmpEqual
	CmpNotEqual
	CmpGreater
	CmpLess
	CmpGreaterOrEqual
	CmpLessOrEqual
)

// Presence bits of the formatting blocks in Rule.Options.
const (
	HasNumFmt     uint32 = 0x02000000
	HasFont       uint32 = 0x04000000
	HasAlignment  uint32 = 0x08000000
	HasBorder     uint32 = 0x10000000
	HasPattern    uint32 = 0x20000000
	HasProtection uint32 = 0x40000000

	blockBits = HasNumFmt | HasFont | HasAlignment | HasBorder | HasPattern | HasProtection
)

// Fixed sizes of the formatting blocks.
const (
	FontSize       = 118
	AlignmentSize  = 8
	BorderSize     = 8
	PatternSize    = 4
	ProtectionSize = 2
)

// userNumFmt is the Flags bit saying the number format block carries a
// format string rather than a built-in format index.
const userNumFmt = 0x0001

// Rule is one CF record. Formatting blocks are kept as raw bytes; a nil
// block is absent and its presence bit is cleared on output.
type Rule struct {
	Type byte
	Op   byte
	// Options carries the modification flags. Presence bits follow the
	// block fields when encoding.
	Options uint32
	Flags   uint16

	NumFmt     []byte
	Font       []byte
	Alignment  []byte
	Border     []byte
	Pattern    []byte
	Protection []byte

	Formula1 []byte
	Formula2 []byte
}

// NewFormulaRule returns a rule that applies when formula evaluates true.
func NewFormulaRule(formula []byte) *Rule {
	return &Rule{Type: CondFormula, Formula1: slices.Clone(formula)}
}

// NewCellIsRule returns a rule comparing the cell value with one or two
// operands.
func NewCellIsRule(op byte, f1, f2 []byte) *Rule {
	return &Rule{Type: CondCellIs, Op: op, Formula1: slices.Clone(f1), Formula2: slices.Clone(f2)}
}

func (r *Rule) Sid() uint16 { return biff.SidCF }

func (r *Rule) options() uint32 {
	o := r.Options &^ blockBits
	for _, b := range []struct {
		bit  uint32
		data []byte
	}{
		{HasNumFmt, r.NumFmt},
		{HasFont, r.Font},
		{HasAlignment, r.Alignment},
		{HasBorder, r.Border},
		{HasPattern, r.Pattern},
		{HasProtection, r.Protection},
	} {
		if b.data != nil {
			o |= b.bit
		}
	}
	return o
}

func (r *Rule) AppendPayload(dst []byte) []byte {
	dst = append(dst, r.Type, r.Op)
	dst = buf.AppendU16(dst, uint16(len(r.Formula1)))
	dst = buf.AppendU16(dst, uint16(len(r.Formula2)))
	dst = buf.AppendU32(dst, r.options())
	dst = buf.AppendU16(dst, r.Flags)
	for _, b := range [][]byte{r.NumFmt, r.Font, r.Alignment, r.Border, r.Pattern, r.Protection} {
		dst = append(dst, b...)
	}
	dst = append(dst, r.Formula1...)
	return append(dst, r.Formula2...)
}

func (r *Rule) clone() *Rule {
	c := *r
	for _, p := range []*[]byte{&c.NumFmt, &c.Font, &c.Alignment, &c.Border, &c.Pattern, &c.Protection, &c.Formula1, &c.Formula2} {
		if *p != nil {
			*p = slices.Clone(*p)
		}
	}
	return &c
}

func decodeRule(in *biff.RecordInputStream) (biff.Record, error) {
	r := &Rule{}
	var err error
	if r.Type, err = in.ReadUint8(); err != nil {
		return nil, err
	}
	if r.Op, err = in.ReadUint8(); err != nil {
		return nil, err
	}
	cce1, err := in.ReadUint16()
	if err != nil {
		return nil, err
	}
	cce2, err := in.ReadUint16()
	if err != nil {
		return nil, err
	}
	opts, err := in.ReadInt32()
	if err != nil {
		return nil, err
	}
	r.Options = uint32(opts)
	if r.Flags, err = in.ReadUint16(); err != nil {
		return nil, err
	}

	if r.Options&HasNumFmt != 0 {
		if r.NumFmt, err = readNumFmt(in, r.Flags&userNumFmt != 0); err != nil {
			return nil, err
		}
	}
	for _, b := range []struct {
		bit  uint32
		size int
		dst  *[]byte
	}{
		{HasFont, FontSize, &r.Font},
		{HasAlignment, AlignmentSize, &r.Alignment},
		{HasBorder, BorderSize, &r.Border},
		{HasPattern, PatternSize, &r.Pattern},
		{HasProtection, ProtectionSize, &r.Protection},
	} {
		if r.Options&b.bit == 0 {
			continue
		}
		*b.dst = make([]byte, b.size)
		if err := in.ReadFully(*b.dst); err != nil {
			return nil, err
		}
	}

	if r.Formula1, err = readFormula(in, int(cce1)); err != nil {
		return nil, err
	}
	if r.Formula2, err = readFormula(in, int(cce2)); err != nil {
		return nil, err
	}
	return r, nil
}

// readNumFmt reads either a two-byte built-in format index or a
// length-prefixed user format whose length includes the prefix.
func readNumFmt(in *biff.RecordInputStream, user bool) ([]byte, error) {
	if !user {
		b := make([]byte, 2)
		return b, in.ReadFully(b)
	}
	cb, err := in.ReadUint16()
	if err != nil {
		return nil, err
	}
	if cb < 2 {
		return nil, types.Errorf(types.ErrKindBounds, "CF number format size %d", cb)
	}
	b := make([]byte, cb)
	b[0], b[1] = byte(cb), byte(cb>>8)
	return b, in.ReadFully(b[2:])
}

func readFormula(in *biff.RecordInputStream, n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	b := make([]byte, n)
	return b, in.ReadFully(b)
}

// Register installs the CFHEADER and CF decoders in reg.
func Register(reg *biff.Registry) {
	reg.Register(biff.SidCFHeader, decodeHeader)
	reg.Register(biff.SidCF, decodeRule)
}

// DefaultRegistry returns biff.DefaultRegistry with the CF decoders added.
func DefaultRegistry() *biff.Registry {
	reg := biff.DefaultRegistry()
	Register(reg)
	return reg
}
