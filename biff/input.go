package biff

import (
	"bufio"
	"errors"
	"io"
	"math"

	"github.com/joshuapare/cfbkit/internal/buf"
	"github.com/joshuapare/cfbkit/pkg/types"
)

// RecordInputStream is a forward-only cursor over a BIFF record stream.
//
// Between records it only peeks; NextRecord consumes an envelope and makes
// the payload readable. Field reads never cross the current record's end,
// except that a read starting exactly at the end of a record moves into an
// immediately following CONTINUE record.
type RecordInputStream struct {
	r *bufio.Reader

	sid    uint16
	length int // -1 between records
	offset int
}

// NewRecordInputStream returns a cursor positioned before the first record.
func NewRecordInputStream(r io.Reader) *RecordInputStream {
	return &RecordInputStream{r: bufio.NewReader(r), length: -1}
}

func boundsf(format string, args ...any) error {
	return types.Errorf(types.ErrKindBounds, format, args...)
}

// HasNextRecord reports whether another record envelope follows. Fewer than
// four trailing bytes are treated as padding. Calling it with unread bytes
// left in the current record is an error.
func (in *RecordInputStream) HasNextRecord() (bool, error) {
	if n := in.Remaining(); n > 0 {
		return false, boundsf("record %s has %d unread bytes", SidName(in.sid), n)
	}
	_, ok, err := in.peekHeader()
	return ok, err
}

func (in *RecordInputStream) peekHeader() ([]byte, bool, error) {
	b, err := in.r.Peek(HeaderSize)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

// PeekSid returns the sid of the next record without consuming it.
func (in *RecordInputStream) PeekSid() (uint16, bool) {
	if in.Remaining() > 0 {
		return 0, false
	}
	b, ok, err := in.peekHeader()
	if err != nil || !ok {
		return 0, false
	}
	return buf.U16LE(b), true
}

// NextRecord consumes the next envelope and positions at its payload.
func (in *RecordInputStream) NextRecord() error {
	ok, err := in.HasNextRecord()
	if err != nil {
		return err
	}
	if !ok {
		return boundsf("no further records")
	}
	return in.advance()
}

func (in *RecordInputStream) advance() error {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(in.r, hdr[:]); err != nil {
		return err
	}
	in.sid = buf.U16LE(hdr[:])
	in.length = int(buf.U16LE(hdr[2:]))
	in.offset = 0
	if in.length > MaxRecordSize {
		return types.Errorf(types.ErrKindCorrupt, "record %s declares %d bytes, maximum is %d", SidName(in.sid), in.length, MaxRecordSize)
	}
	return nil
}

// Sid returns the current record's sid. After a read moved into a CONTINUE
// record this is SidContinue.
func (in *RecordInputStream) Sid() uint16 { return in.sid }

// Remaining returns the unread byte count of the current record.
func (in *RecordInputStream) Remaining() int {
	if in.length < 0 {
		return 0
	}
	return in.length - in.offset
}

// IsContinueNext reports whether the current record is fully read and the
// next record is a CONTINUE.
func (in *RecordInputStream) IsContinueNext() bool {
	if in.Remaining() != 0 {
		return false
	}
	sid, ok := in.PeekSid()
	return ok && sid == SidContinue
}

// need ensures n bytes can be read from the current record.
func (in *RecordInputStream) need(n int) error {
	if in.length < 0 {
		return boundsf("read of %d bytes outside a record", n)
	}
	avail := in.Remaining()
	if avail >= n {
		return nil
	}
	if avail == 0 && in.IsContinueNext() {
		if err := in.advance(); err != nil {
			return err
		}
		if in.Remaining() >= n {
			return nil
		}
		avail = in.Remaining()
	}
	return boundsf("record %s: %d bytes left, %d requested", SidName(in.sid), avail, n)
}

func (in *RecordInputStream) take(n int) ([]byte, error) {
	if err := in.need(n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(in.r, b); err != nil {
		return nil, types.Errorf(types.ErrKindBounds, "record %s truncated: %w", SidName(in.sid), err)
	}
	in.offset += n
	return b, nil
}

func (in *RecordInputStream) ReadUint8() (uint8, error) {
	b, err := in.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (in *RecordInputStream) ReadInt8() (int8, error) {
	v, err := in.ReadUint8()
	return int8(v), err
}

func (in *RecordInputStream) ReadUint16() (uint16, error) {
	b, err := in.take(2)
	if err != nil {
		return 0, err
	}
	return buf.U16LE(b), nil
}

func (in *RecordInputStream) ReadInt16() (int16, error) {
	v, err := in.ReadUint16()
	return int16(v), err
}

func (in *RecordInputStream) ReadInt32() (int32, error) {
	b, err := in.take(4)
	if err != nil {
		return 0, err
	}
	return buf.I32LE(b), nil
}

func (in *RecordInputStream) ReadInt64() (int64, error) {
	b, err := in.take(8)
	if err != nil {
		return 0, err
	}
	return int64(buf.U64LE(b)), nil
}

// ReadFloat64 reads an IEEE 754 double.
func (in *RecordInputStream) ReadFloat64() (float64, error) {
	b, err := in.take(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(buf.U64LE(b)), nil
}

// ReadFully fills p from the current record.
func (in *RecordInputStream) ReadFully(p []byte) error {
	b, err := in.take(len(p))
	if err != nil {
		return err
	}
	copy(p, b)
	return nil
}

// ReadRemainder returns the unread bytes of the current record without
// following CONTINUE records.
func (in *RecordInputStream) ReadRemainder() ([]byte, error) {
	n := in.Remaining()
	if n == 0 {
		return []byte{}, nil
	}
	return in.take(n)
}

// ReadContinuedFully reads n bytes, moving into CONTINUE records as each
// one is exhausted.
func (in *RecordInputStream) ReadContinuedFully(n int) ([]byte, error) {
	out := make([]byte, 0, min(n, MaxRecordSize))
	for len(out) < n {
		if in.Remaining() == 0 {
			if !in.IsContinueNext() {
				return nil, boundsf("record %s: %d of %d bytes available", SidName(in.sid), len(out), n)
			}
			if err := in.advance(); err != nil {
				return nil, err
			}
			continue
		}
		chunk, err := in.take(min(in.Remaining(), n-len(out)))
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
	return out, nil
}

// ReadAllContinuedRemainder returns the rest of the current record followed
// by the payloads of all directly following CONTINUE records.
func (in *RecordInputStream) ReadAllContinuedRemainder() ([]byte, error) {
	out, err := in.ReadRemainder()
	if err != nil {
		return nil, err
	}
	for in.IsContinueNext() {
		if err := in.advance(); err != nil {
			return nil, err
		}
		more, err := in.ReadRemainder()
		if err != nil {
			return nil, err
		}
		out = append(out, more...)
	}
	return out, nil
}

// SkipRemainder discards the unread bytes of the current record.
func (in *RecordInputStream) SkipRemainder() error {
	n := in.Remaining()
	if n == 0 {
		return nil
	}
	if _, err := in.r.Discard(n); err != nil {
		return types.Errorf(types.ErrKindBounds, "record %s truncated: %w", SidName(in.sid), err)
	}
	in.offset += n
	return nil
}
