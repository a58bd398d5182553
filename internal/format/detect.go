package format

import "bytes"

// Kind classifies the leading bytes of an input.
type Kind int

const (
	KindUnknown Kind = iota
	KindCFB
	KindOOXML
	KindRawBIFF
)

func (k Kind) String() string {
	switch k {
	case KindCFB:
		return "cfb"
	case KindOOXML:
		return "ooxml"
	case KindRawBIFF:
		return "raw-biff"
	default:
		return "unknown"
	}
}

func (k Kind) err() error {
	switch k {
	case KindOOXML:
		return ErrOOXML
	case KindRawBIFF:
		return ErrRawBIFF
	default:
		return ErrSignatureMismatch
	}
}

// BIFF2-4 workbooks written without a container start directly with a BOF
// record: opcode, then a 4- or 6-byte length.
var rawBOFOpcodes = [...]uint16{0x0009, 0x0209, 0x0409}

// Detect inspects up to the first eight bytes of b.
func Detect(b []byte) Kind {
	if len(b) >= SignatureSize && bytes.Equal(b[:SignatureSize], Signature) {
		return KindCFB
	}
	if bytes.HasPrefix(b, ZIPSignature) {
		return KindOOXML
	}
	if len(b) >= 4 {
		op := uint16(b[0]) | uint16(b[1])<<8
		n := uint16(b[2]) | uint16(b[3])<<8
		for _, bof := range rawBOFOpcodes {
			if op == bof && (n == 4 || n == 6) {
				return KindRawBIFF
			}
		}
	}
	return KindUnknown
}
