package biff

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/cfbkit/internal/buf"
	"github.com/joshuapare/cfbkit/pkg/types"
)

// rec builds one physical record.
func rec(sid uint16, payload ...byte) []byte {
	b := buf.AppendU16(nil, sid)
	b = buf.AppendU16(b, uint16(len(payload)))
	return append(b, payload...)
}

func streamOf(parts ...[]byte) *RecordInputStream {
	return NewRecordInputStream(bytes.NewReader(bytes.Join(parts, nil)))
}

func TestSingleRecordReadPastEnd(t *testing.T) {
	in := streamOf(rec(0x0012, 0x01, 0x00, 0x00, 0x00))

	ok, err := in.HasNextRecord()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, in.NextRecord())
	require.Equal(t, uint16(0x0012), in.Sid())
	require.Equal(t, 4, in.Remaining())

	v, err := in.ReadInt32()
	require.NoError(t, err)
	require.Equal(t, int32(1), v)

	_, err = in.ReadUint8()
	require.ErrorIs(t, err, types.ErrBounds)

	ok, err = in.HasNextRecord()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHasNextRecordRejectsUnreadBytes(t *testing.T) {
	in := streamOf(rec(0x0012, 1, 2, 3, 4), rec(0x0013))
	require.NoError(t, in.NextRecord())
	_, err := in.ReadUint16()
	require.NoError(t, err)

	_, err = in.HasNextRecord()
	require.ErrorIs(t, err, types.ErrBounds)

	require.NoError(t, in.SkipRemainder())
	sid, ok := in.PeekSid()
	require.True(t, ok)
	require.Equal(t, uint16(0x0013), sid)
}

func TestNextRecordAtEnd(t *testing.T) {
	in := streamOf()
	ok, err := in.HasNextRecord()
	require.NoError(t, err)
	require.False(t, ok)
	require.ErrorIs(t, in.NextRecord(), types.ErrBounds)
}

func TestTrailingPaddingIsIgnored(t *testing.T) {
	in := streamOf(rec(SidEOF), []byte{0, 0, 0})
	require.NoError(t, in.NextRecord())
	ok, err := in.HasNextRecord()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOversizedRecordIsCorrupt(t *testing.T) {
	hdr := buf.AppendU16(nil, 0x00FC)
	hdr = buf.AppendU16(hdr, MaxRecordSize+1)
	in := NewRecordInputStream(bytes.NewReader(hdr))
	require.ErrorIs(t, in.NextRecord(), types.ErrCorrupt)
}

func TestReadCrossesIntoContinue(t *testing.T) {
	in := streamOf(rec(0x00AA, 0x01, 0x02), rec(SidContinue, 0x03, 0x04), rec(SidEOF))
	require.NoError(t, in.NextRecord())

	v, err := in.ReadUint16()
	require.NoError(t, err)
	require.Equal(t, uint16(0x0201), v)
	require.True(t, in.IsContinueNext())

	v, err = in.ReadUint16()
	require.NoError(t, err)
	require.Equal(t, uint16(0x0403), v)
	require.Equal(t, SidContinue, in.Sid())

	require.False(t, in.IsContinueNext())
	require.NoError(t, in.NextRecord())
	require.Equal(t, SidEOF, in.Sid())
}

func TestPrimitiveDoesNotStraddleRecords(t *testing.T) {
	in := streamOf(rec(0x00AA, 0x01, 0x02, 0x03), rec(SidContinue, 0x04))
	require.NoError(t, in.NextRecord())
	_, err := in.ReadUint16()
	require.NoError(t, err)

	_, err = in.ReadUint16()
	require.ErrorIs(t, err, types.ErrBounds)
	require.Equal(t, 1, in.Remaining())
}

func TestReadFullyStaysInRecord(t *testing.T) {
	in := streamOf(rec(0x00AA, 1, 2), rec(SidContinue, 3, 4))
	require.NoError(t, in.NextRecord())
	p := make([]byte, 3)
	require.ErrorIs(t, in.ReadFully(p), types.ErrBounds)

	in = streamOf(rec(0x00AA, 1, 2), rec(SidContinue, 3, 4))
	require.NoError(t, in.NextRecord())
	got, err := in.ReadContinuedFully(3)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, got)
	require.Equal(t, 1, in.Remaining())

	_, err = in.ReadContinuedFully(2)
	require.ErrorIs(t, err, types.ErrBounds)
}

func TestReadAllContinuedRemainder(t *testing.T) {
	in := streamOf(rec(0x00AA, 1, 2), rec(SidContinue, 3), rec(SidContinue), rec(SidContinue, 4), rec(SidEOF))
	require.NoError(t, in.NextRecord())
	_, err := in.ReadUint8()
	require.NoError(t, err)

	got, err := in.ReadAllContinuedRemainder()
	require.NoError(t, err)
	require.Equal(t, []byte{2, 3, 4}, got)

	ok, err := in.HasNextRecord()
	require.NoError(t, err)
	require.True(t, ok)
	sid, _ := in.PeekSid()
	require.Equal(t, SidEOF, sid)
}

func TestPrimitiveReads(t *testing.T) {
	payload := []byte{0xFF, 0xFE, 0xFF}
	payload = buf.AppendU32(payload, 0xFFFFFFFE)
	payload = buf.AppendF64(payload, 2.5)
	payload = append(payload, 0x80, 0, 0, 0, 0, 0, 0, 0x80)
	in := streamOf(rec(0x0100, payload...))
	require.NoError(t, in.NextRecord())

	i8, err := in.ReadInt8()
	require.NoError(t, err)
	require.Equal(t, int8(-1), i8)
	i16, err := in.ReadInt16()
	require.NoError(t, err)
	require.Equal(t, int16(-2), i16)
	i32, err := in.ReadInt32()
	require.NoError(t, err)
	require.Equal(t, int32(-2), i32)
	f, err := in.ReadFloat64()
	require.NoError(t, err)
	require.Equal(t, 2.5, f)
	i64, err := in.ReadInt64()
	require.NoError(t, err)
	require.Equal(t, int64(-0x7FFFFFFFFFFFFF80), i64)
	require.Zero(t, in.Remaining())
}
