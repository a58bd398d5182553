package format

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildHeader(t *testing.T, shift uint16, mutate func(b []byte)) []byte {
	t.Helper()
	h, err := NewHeader(1 << shift)
	require.NoError(t, err)
	b := make([]byte, HeaderSize)
	h.Put(b)
	if mutate != nil {
		mutate(b)
	}
	return b
}

func TestParseHeaderSmallSectors(t *testing.T) {
	b := buildHeader(t, SmallSectorShift, func(b []byte) {
		PutU32(b, FATSectorCountOffset, 2)
		PutU32(b, DirStartOffset, 5)
		PutU32(b, MiniFATStartOffset, 7)
		PutU32(b, MiniFATCountOffset, 1)
		PutU32(b, HeaderDIFATOffset, 0)
		PutU32(b, HeaderDIFATOffset+4, 1)
	})

	h, err := ParseHeader(b)
	require.NoError(t, err)
	require.Equal(t, 512, h.SectorSize())
	require.Equal(t, 64, h.MiniSectorSize())
	require.Equal(t, uint16(3), h.MajorVersion)
	require.Equal(t, uint32(2), h.FATSectorCount)
	require.Equal(t, uint32(5), h.DirStart)
	require.Equal(t, uint32(7), h.MiniFATStart)
	require.Equal(t, uint32(1), h.MiniFATCount)
	require.Equal(t, EndOfChain, h.DIFATStart)
	require.Equal(t, []uint32{0, 1}, h.InlineFATSectors())
	require.Equal(t, FreeSect, h.DIFAT[2])
}

func TestParseHeaderAllZeroCounts(t *testing.T) {
	b := make([]byte, HeaderSize)
	copy(b, Signature)
	b[SectorShiftOffset] = 9

	h, err := ParseHeader(b)
	require.NoError(t, err)
	require.Equal(t, 512, h.SectorSize())
	require.Equal(t, 64, h.MiniSectorSize())
	require.Zero(t, h.FATSectorCount)
	require.Zero(t, h.DirStart)
	require.Equal(t, uint32(MiniStreamCutoff), h.MiniStreamCutoff)
	require.Empty(t, h.InlineFATSectors())
}

func TestParseHeaderRejectsSectorShift(t *testing.T) {
	for _, shift := range []uint16{0, 7, 10, 16} {
		b := buildHeader(t, SmallSectorShift, func(b []byte) {
			PutU16(b, SectorShiftOffset, shift)
		})
		_, err := ParseHeader(b)
		require.ErrorIs(t, err, ErrSectorShift, "shift %d", shift)
	}
}

func TestParseHeaderSignatures(t *testing.T) {
	_, err := ParseHeader(make([]byte, HeaderSize))
	require.ErrorIs(t, err, ErrSignatureMismatch)

	zip := append([]byte("PK\x03\x04"), make([]byte, 60)...)
	_, err = ParseHeader(zip)
	require.ErrorIs(t, err, ErrOOXML)

	biff := []byte{0x09, 0x04, 0x06, 0x00, 0x00, 0x00, 0x10, 0x00}
	_, err = ParseHeader(biff)
	require.ErrorIs(t, err, ErrRawBIFF)

	_, err = ParseHeader(Signature[:4])
	require.ErrorIs(t, err, ErrTruncated)

	_, err = ParseHeader(Signature)
	require.ErrorIs(t, err, ErrTruncated)
}

func TestReadHeaderSkipsLargeSectorPadding(t *testing.T) {
	b := buildHeader(t, LargeSectorShift, nil)
	stream := append(append(b, make([]byte, LargeSectorSize-HeaderSize)...), 0xAB)

	r := bytes.NewReader(stream)
	h, err := ReadHeader(r)
	require.NoError(t, err)
	require.Equal(t, 4096, h.SectorSize())
	require.Equal(t, uint16(4), h.MajorVersion)

	next, err := r.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(0xAB), next, "reader must sit at sector boundary 1")
}

func TestReadHeaderTruncatedPadding(t *testing.T) {
	b := buildHeader(t, LargeSectorShift, nil)
	_, err := ReadHeader(bytes.NewReader(b))
	require.ErrorIs(t, err, ErrTruncated)
}

func TestParseHeaderRejectsMiniShift(t *testing.T) {
	b := buildHeader(t, SmallSectorShift, func(b []byte) {
		PutU16(b, MiniSectorShiftOffset, 9)
	})
	_, err := ParseHeader(b)
	require.ErrorIs(t, err, ErrSectorShift)
}

func TestNewHeaderRejectsOddSize(t *testing.T) {
	_, err := NewHeader(1024)
	require.ErrorIs(t, err, ErrSectorShift)
}

func TestHeaderPutRoundTrip(t *testing.T) {
	h, err := NewHeader(LargeSectorSize)
	require.NoError(t, err)
	h.FATSectorCount = 110
	h.DIFATStart = 200
	h.DIFATCount = 1
	h.DirSectorCount = 1
	for i := range h.DIFAT {
		h.DIFAT[i] = uint32(i + 1)
	}
	b := make([]byte, HeaderSize)
	h.Put(b)

	got, err := ParseHeader(b)
	require.NoError(t, err)
	require.Equal(t, h, got)
}
