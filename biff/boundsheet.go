package biff

import (
	"unicode/utf16"

	"github.com/joshuapare/cfbkit/internal/buf"
	"github.com/joshuapare/cfbkit/pkg/types"
)

// Sheet visibility values of BoundSheetRecord.Visibility.
const (
	SheetVisible    uint8 = 0
	SheetHidden     uint8 = 1
	SheetVeryHidden uint8 = 2
)

// BoundSheetRecord names a sheet in the workbook globals and gives the
// stream offset of the sheet's BOF record.
type BoundSheetRecord struct {
	Position   uint32
	Visibility uint8
	Type       uint8
	Name       string
	// Wide keeps the name as UTF-16 even when it fits Latin-1.
	Wide bool
}

func (r *BoundSheetRecord) Sid() uint16 { return SidBoundSheet }

func (r *BoundSheetRecord) AppendPayload(dst []byte) []byte {
	dst = buf.AppendU32(dst, r.Position)
	dst = append(dst, r.Visibility, r.Type)
	units := utf16.Encode([]rune(r.Name))
	dst = append(dst, byte(len(units)))
	if !r.Wide {
		if raw, err := latin1.NewEncoder().Bytes([]byte(r.Name)); err == nil {
			dst = append(dst, 0)
			return append(dst, raw...)
		}
	}
	dst = append(dst, strHighByte)
	for _, u := range units {
		dst = buf.AppendU16(dst, u)
	}
	return dst
}

// DecodeBoundSheet decodes a BIFF8 BOUNDSHEET record.
func DecodeBoundSheet(in *RecordInputStream) (Record, error) {
	r := &BoundSheetRecord{}
	pos, err := in.ReadInt32()
	if err != nil {
		return nil, err
	}
	r.Position = uint32(pos)
	if r.Visibility, err = in.ReadUint8(); err != nil {
		return nil, err
	}
	if r.Type, err = in.ReadUint8(); err != nil {
		return nil, err
	}
	cch, err := in.ReadUint8()
	if err != nil {
		return nil, err
	}
	flags, err := in.ReadUint8()
	if err != nil {
		return nil, err
	}
	r.Wide = flags&strHighByte != 0
	if r.Name, err = in.readChars(int(cch), !r.Wide); err != nil {
		return nil, err
	}
	return r, in.SkipRemainder()
}

// SubstreamOffsets returns the stream offset of every BOF record in recs,
// as laid out by RecordWriter.
func SubstreamOffsets(recs []Record) []uint32 {
	var out []uint32
	var off int
	for _, r := range recs {
		if r.Sid() == SidBOF {
			out = append(out, uint32(off))
		}
		off += len(Encode(r))
	}
	return out
}

// RelocateSheets updates the BOUNDSHEET records of recs after records were
// added or removed. before holds the BOF offsets, from SubstreamOffsets,
// that the positions were valid for. Each sheet keeps pointing at the same
// substream, counted by BOF order. It returns the number of records moved.
func RelocateSheets(recs []Record, before []uint32) (int, error) {
	after := SubstreamOffsets(recs)
	if len(after) != len(before) {
		return 0, types.Errorf(types.ErrKindState, "relocate sheets: %d substreams before, %d after", len(before), len(after))
	}
	index := make(map[uint32]int, len(before))
	for i, off := range before {
		index[off] = i
	}
	moved := 0
	for _, rec := range recs {
		bs, ok := rec.(*BoundSheetRecord)
		if !ok {
			continue
		}
		i, ok := index[bs.Position]
		if !ok {
			return moved, types.Errorf(types.ErrKindCorrupt, "BOUNDSHEET %q points at %d, which is not a BOF record", bs.Name, bs.Position)
		}
		if bs.Position != after[i] {
			bs.Position = after[i]
			moved++
		}
	}
	return moved, nil
}
