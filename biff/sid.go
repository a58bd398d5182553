package biff

import "fmt"

// Record sids used by this package and its subpackages.
const (
	SidFormula    uint16 = 0x0006
	SidEOF        uint16 = 0x000A
	SidContinue   uint16 = 0x003C
	SidBoundSheet uint16 = 0x0085
	SidDimensions uint16 = 0x0200
	SidCFHeader   uint16 = 0x01B0
	SidCF         uint16 = 0x01B1
	SidBOF        uint16 = 0x0809
)

const (
	// HeaderSize is the size of the sid + length envelope.
	HeaderSize = 4
	// MaxRecordSize is the largest payload a single physical record may hold.
	MaxRecordSize = 8224
)

var sidNames = map[uint16]string{
	SidFormula:    "FORMULA",
	SidEOF:        "EOF",
	SidContinue:   "CONTINUE",
	SidBoundSheet: "BOUNDSHEET",
	SidDimensions: "DIMENSIONS",
	SidCFHeader:   "CFHEADER",
	SidCF:         "CF",
	SidBOF:        "BOF",
}

// SidName returns the record name for sid, or its hex form when unknown.
func SidName(sid uint16) string {
	if n, ok := sidNames[sid]; ok {
		return n
	}
	return fmt.Sprintf("0x%04X", sid)
}
