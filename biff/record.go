package biff

import (
	"fmt"
	"io"

	"github.com/joshuapare/cfbkit/internal/buf"
)

// Record is one logical BIFF record.
type Record interface {
	Sid() uint16
	// AppendPayload appends the record body, without envelope, to dst.
	AppendPayload(dst []byte) []byte
}

// Encode serializes rec with its envelope. Payloads longer than
// MaxRecordSize are split, the tail going into CONTINUE records.
func Encode(rec Record) []byte {
	return AppendRecord(nil, rec)
}

// AppendRecord appends the encoded form of rec to dst.
func AppendRecord(dst []byte, rec Record) []byte {
	payload := rec.AppendPayload(nil)
	sid := rec.Sid()
	for {
		n := min(len(payload), MaxRecordSize)
		dst = buf.AppendU16(dst, sid)
		dst = buf.AppendU16(dst, uint16(n))
		dst = append(dst, payload[:n]...)
		payload = payload[n:]
		if len(payload) == 0 {
			return dst
		}
		sid = SidContinue
	}
}

// RecordWriter writes encoded records to an underlying writer.
type RecordWriter struct {
	w       io.Writer
	scratch []byte
	written int64
}

func NewRecordWriter(w io.Writer) *RecordWriter {
	return &RecordWriter{w: w}
}

// Write encodes and writes rec.
func (rw *RecordWriter) Write(rec Record) error {
	rw.scratch = AppendRecord(rw.scratch[:0], rec)
	n, err := rw.w.Write(rw.scratch)
	rw.written += int64(n)
	if err != nil {
		return fmt.Errorf("biff: write %s: %w", SidName(rec.Sid()), err)
	}
	return nil
}

// WriteAll writes recs in order.
func (rw *RecordWriter) WriteAll(recs []Record) error {
	for _, r := range recs {
		if err := rw.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Written returns the number of bytes written so far.
func (rw *RecordWriter) Written() int64 { return rw.written }

// UnknownRecord keeps the payload of a record no decoder claimed.
type UnknownRecord struct {
	ID   uint16
	Data []byte
}

func (r *UnknownRecord) Sid() uint16                     { return r.ID }
func (r *UnknownRecord) AppendPayload(dst []byte) []byte { return append(dst, r.Data...) }

// BOFRecord starts a substream (workbook globals, worksheet, chart).
type BOFRecord struct {
	Version  uint16
	Type     uint16
	Build    uint16
	Year     uint16
	History  uint32
	Required uint32
}

// Substream types of BOFRecord.Type.
const (
	BOFWorkbook  uint16 = 0x0005
	BOFWorksheet uint16 = 0x0010
	BOFChart     uint16 = 0x0020
)

func (r *BOFRecord) Sid() uint16 { return SidBOF }

func (r *BOFRecord) AppendPayload(dst []byte) []byte {
	dst = buf.AppendU16(dst, r.Version)
	dst = buf.AppendU16(dst, r.Type)
	dst = buf.AppendU16(dst, r.Build)
	dst = buf.AppendU16(dst, r.Year)
	dst = buf.AppendU32(dst, r.History)
	return buf.AppendU32(dst, r.Required)
}

func decodeBOF(in *RecordInputStream) (Record, error) {
	r := &BOFRecord{}
	var err error
	if r.Version, err = in.ReadUint16(); err != nil {
		return nil, err
	}
	if r.Type, err = in.ReadUint16(); err != nil {
		return nil, err
	}
	// Older writers emit a short BOF; the remaining fields default to zero.
	if in.Remaining() >= 4 {
		if r.Build, err = in.ReadUint16(); err != nil {
			return nil, err
		}
		if r.Year, err = in.ReadUint16(); err != nil {
			return nil, err
		}
	}
	if in.Remaining() >= 8 {
		h, err := in.ReadInt32()
		if err != nil {
			return nil, err
		}
		q, err := in.ReadInt32()
		if err != nil {
			return nil, err
		}
		r.History, r.Required = uint32(h), uint32(q)
	}
	return r, in.SkipRemainder()
}

// EOFRecord ends a substream.
type EOFRecord struct{}

func (EOFRecord) Sid() uint16                     { return SidEOF }
func (EOFRecord) AppendPayload(dst []byte) []byte { return dst }

func decodeEOF(*RecordInputStream) (Record, error) { return EOFRecord{}, nil }

// DimensionsRecord holds the used range of a worksheet: rows
// [FirstRow, LastRow) and columns [FirstCol, LastCol).
type DimensionsRecord struct {
	FirstRow uint32
	LastRow  uint32
	FirstCol uint16
	LastCol  uint16
}

func (r *DimensionsRecord) Sid() uint16 { return SidDimensions }

func (r *DimensionsRecord) AppendPayload(dst []byte) []byte {
	dst = buf.AppendU32(dst, r.FirstRow)
	dst = buf.AppendU32(dst, r.LastRow)
	dst = buf.AppendU16(dst, r.FirstCol)
	dst = buf.AppendU16(dst, r.LastCol)
	return buf.AppendU16(dst, 0)
}

func decodeDimensions(in *RecordInputStream) (Record, error) {
	var r DimensionsRecord
	fr, err := in.ReadInt32()
	if err != nil {
		return nil, err
	}
	lr, err := in.ReadInt32()
	if err != nil {
		return nil, err
	}
	r.FirstRow, r.LastRow = uint32(fr), uint32(lr)
	if r.FirstCol, err = in.ReadUint16(); err != nil {
		return nil, err
	}
	if r.LastCol, err = in.ReadUint16(); err != nil {
		return nil, err
	}
	return &r, in.SkipRemainder()
}
