// Package ptg walks BIFF8 parsed-formula token arrays far enough to find
// and rewrite their cell and area references. It does not evaluate
// formulas or render them as text.
package ptg

import (
	"fmt"

	"github.com/joshuapare/cfbkit/internal/buf"
)

// Token opcodes with special handling. Reference tokens are given in their
// reference class; the value (0x40) and array (0x60) classes share the low
// five bits.
const (
	OpStr       byte = 0x17
	OpExtended  byte = 0x18
	OpAttr      byte = 0x19
	OpArray     byte = 0x20
	OpRef       byte = 0x24
	OpArea      byte = 0x25
	OpRefErr    byte = 0x2A
	OpAreaErr   byte = 0x2B
	OpRefN      byte = 0x2C
	OpAreaN     byte = 0x2D
	OpRef3d     byte = 0x3A
	OpArea3d    byte = 0x3B
	OpRefErr3d  byte = 0x3C
	OpAreaErr3d byte = 0x3D
)

const attrChoose = 0x04

// sizes holds the encoded size of each token by base opcode. Operand class
// tokens are indexed by (op&0x1f)+32. -1 marks a variable size and 0 an
// opcode that is not valid in BIFF8.
var sizes = [64]int8{
	0, 5, 5, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, -1, -1, -1, 0, 0, 2, 2, 3, 9,
	8, 3, 4, 5, 5, 9, 7, 7, 7, 3, 5, 9, 5, 9, 3, 3,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 7, 7, 11, 7, 11, 0, 0,
}

// Base returns the class-free opcode used to index token tables: op itself
// for the control tokens below 0x20, otherwise 0x20 plus the low five bits.
func Base(op byte) byte {
	if op&0x60 == 0 {
		return op & 0x1f
	}
	return op&0x1f | 0x20
}

// Token locates one token inside a formula.
type Token struct {
	Op  byte
	Off int
	Len int
}

// Base returns the class-free opcode of t.
func (t Token) Base() byte { return Base(t.Op) }

// Tokenize splits a formula into tokens. It fails on opcodes it cannot size
// and on tokens that run past the end of the formula.
func Tokenize(f []byte) ([]Token, error) {
	var toks []Token
	for off := 0; off < len(f); {
		op := f[off]
		if op&0x80 != 0 {
			return nil, fmt.Errorf("ptg: invalid opcode 0x%02X at %d", op, off)
		}
		n, err := tokenSize(f, off)
		if err != nil {
			return nil, err
		}
		if !buf.Has(f, off, n) {
			return nil, fmt.Errorf("ptg: token 0x%02X at %d needs %d bytes, %d left", op, off, n, len(f)-off)
		}
		toks = append(toks, Token{Op: op, Off: off, Len: n})
		off += n
	}
	return toks, nil
}

func tokenSize(f []byte, off int) (int, error) {
	op := f[off]
	base := Base(op)
	n := int(sizes[base])
	switch {
	case n > 0:
		return n, nil
	case n == 0:
		return 0, fmt.Errorf("ptg: unknown opcode 0x%02X at %d", op, off)
	}
	switch base {
	case OpStr:
		if !buf.Has(f, off, 3) {
			return 0, fmt.Errorf("ptg: short string token at %d", off)
		}
		cch := int(f[off+1])
		if f[off+2]&0x01 != 0 {
			cch *= 2
		}
		return 3 + cch, nil
	case OpAttr:
		if !buf.Has(f, off, 4) {
			return 0, fmt.Errorf("ptg: short attribute token at %d", off)
		}
		if f[off+1]&attrChoose != 0 {
			return 4 + 2*(int(buf.U16LE(f[off+2:]))+1), nil
		}
		return 4, nil
	}
	return 0, fmt.Errorf("ptg: opcode 0x%02X at %d has no fixed size", op, off)
}
