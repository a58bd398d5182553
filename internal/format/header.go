package format

import (
	"bytes"
	"fmt"
	"io"

	"github.com/joshuapare/cfbkit/internal/buf"
)

// Header captures the fixed compound file header. The diagram below lists the
// fields the container layer consumes.
//
//	Offset  Size  Description
//	------  ----  ----------------------------------------------------------
//	 0x000   8    D0 CF 11 E0 A1 B1 1A E1
//	 0x018   2    Minor version (0x3E)
//	 0x01A   2    Major version (3 = 512-byte sectors, 4 = 4096-byte sectors)
//	 0x01C   2    Byte order mark (0xFFFE)
//	 0x01E   2    Sector shift (9 or 12)
//	 0x020   2    Mini sector shift (6)
//	 0x028   4    Directory sector count (v4 only, zero for v3)
//	 0x02C   4    FAT sector count
//	 0x030   4    First directory sector
//	 0x038   4    Mini stream cutoff (4096)
//	 0x03C   4    First mini FAT sector
//	 0x040   4    Mini FAT sector count
//	 0x044   4    First DIFAT sector
//	 0x048   4    DIFAT sector count
//	 0x04C 436    First 109 FAT sector indices
type Header struct {
	MinorVersion     uint16
	MajorVersion     uint16
	SectorShift      uint16
	MiniSectorShift  uint16
	DirSectorCount   uint32
	FATSectorCount   uint32
	DirStart         uint32
	TxSignature      uint32
	MiniStreamCutoff uint32
	MiniFATStart     uint32
	MiniFATCount     uint32
	DIFATStart       uint32
	DIFATCount       uint32
	DIFAT            [HeaderDIFATEntries]uint32
}

// SectorSize returns the big sector size in bytes.
func (h *Header) SectorSize() int { return 1 << h.SectorShift }

// MiniSectorSize returns the mini sector size in bytes.
func (h *Header) MiniSectorSize() int { return 1 << h.MiniSectorShift }

// InlineFATSectors returns the populated prefix of the inline DIFAT array.
func (h *Header) InlineFATSectors() []uint32 {
	n := int(h.FATSectorCount)
	if n > HeaderDIFATEntries {
		n = HeaderDIFATEntries
	}
	return h.DIFAT[:n]
}

// NewHeader returns a header for an empty container with the given sector
// size. Sector sizes other than 512 and 4096 yield ErrSectorShift.
func NewHeader(sectorSize int) (Header, error) {
	var shift uint16
	switch sectorSize {
	case SmallSectorSize:
		shift = SmallSectorShift
	case LargeSectorSize:
		shift = LargeSectorShift
	default:
		return Header{}, fmt.Errorf("header: %d: %w", sectorSize, ErrSectorShift)
	}
	h := Header{
		MinorVersion:     MinorVersion,
		MajorVersion:     majorForShift(shift),
		SectorShift:      shift,
		MiniSectorShift:  MiniSectorShift,
		DirStart:         EndOfChain,
		MiniStreamCutoff: MiniStreamCutoff,
		MiniFATStart:     EndOfChain,
		DIFATStart:       EndOfChain,
	}
	for i := range h.DIFAT {
		h.DIFAT[i] = FreeSect
	}
	return h, nil
}

func majorForShift(shift uint16) uint16 {
	if shift == LargeSectorShift {
		return 4
	}
	return 3
}

// ParseHeader validates the signature and decodes the fixed header fields
// from the first 512 bytes of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < SignatureSize {
		if k := Detect(b); k != KindUnknown {
			return Header{}, fmt.Errorf("header: %w", k.err())
		}
		return Header{}, fmt.Errorf("header: %w", ErrTruncated)
	}
	if !bytes.Equal(b[:SignatureSize], Signature) {
		if k := Detect(b); k != KindUnknown {
			return Header{}, fmt.Errorf("header: %w", k.err())
		}
		return Header{}, fmt.Errorf("header: %w", ErrSignatureMismatch)
	}
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("header: %d bytes: %w", len(b), ErrTruncated)
	}

	h := Header{
		MinorVersion:     buf.U16LE(b[MinorVersionOffset:]),
		MajorVersion:     buf.U16LE(b[MajorVersionOffset:]),
		SectorShift:      buf.U16LE(b[SectorShiftOffset:]),
		MiniSectorShift:  buf.U16LE(b[MiniSectorShiftOffset:]),
		DirSectorCount:   buf.U32LE(b[DirSectorCountOffset:]),
		FATSectorCount:   buf.U32LE(b[FATSectorCountOffset:]),
		DirStart:         buf.U32LE(b[DirStartOffset:]),
		TxSignature:      buf.U32LE(b[TxSignatureOffset:]),
		MiniStreamCutoff: buf.U32LE(b[MiniStreamCutoffOffset:]),
		MiniFATStart:     buf.U32LE(b[MiniFATStartOffset:]),
		MiniFATCount:     buf.U32LE(b[MiniFATCountOffset:]),
		DIFATStart:       buf.U32LE(b[DIFATStartOffset:]),
		DIFATCount:       buf.U32LE(b[DIFATCountOffset:]),
	}
	if h.SectorShift != SmallSectorShift && h.SectorShift != LargeSectorShift {
		return Header{}, fmt.Errorf("header: shift %d: %w", h.SectorShift, ErrSectorShift)
	}
	if h.MiniSectorShift == 0 {
		h.MiniSectorShift = MiniSectorShift
	}
	if h.MiniSectorShift >= h.SectorShift {
		return Header{}, fmt.Errorf("header: mini shift %d: %w", h.MiniSectorShift, ErrSectorShift)
	}
	if h.MiniStreamCutoff == 0 {
		h.MiniStreamCutoff = MiniStreamCutoff
	}
	for i := range h.DIFAT {
		h.DIFAT[i] = buf.U32LE(b[HeaderDIFATOffset+i*DWORDSize:])
	}
	return h, nil
}

// ReadHeader reads and parses the header from r. When the header declares
// 4096-byte sectors the remaining 3584 header bytes are consumed so that r is
// positioned at the start of sector 0.
func ReadHeader(r io.Reader) (Header, error) {
	raw := make([]byte, HeaderSize)
	n, err := io.ReadFull(r, raw)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return Header{}, fmt.Errorf("header: %w", err)
	}
	h, perr := ParseHeader(raw[:n])
	if perr != nil {
		return Header{}, perr
	}
	if pad := h.SectorSize() - HeaderSize; pad > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(pad)); err != nil {
			return Header{}, fmt.Errorf("header: padding: %w", ErrTruncated)
		}
	}
	return h, nil
}

// Put encodes h into the first 512 bytes of b. Callers writing 4096-byte
// sectors are responsible for zeroing the rest of the header sector.
func (h *Header) Put(b []byte) {
	copy(b[SignatureOffset:], Signature)
	for i := HeaderCLSIDOffset; i < MinorVersionOffset; i++ {
		b[i] = 0
	}
	PutU16(b, MinorVersionOffset, h.MinorVersion)
	PutU16(b, MajorVersionOffset, h.MajorVersion)
	PutU16(b, ByteOrderOffset, ByteOrderMark)
	PutU16(b, SectorShiftOffset, h.SectorShift)
	PutU16(b, MiniSectorShiftOffset, h.MiniSectorShift)
	for i := MiniSectorShiftOffset + 2; i < DirSectorCountOffset; i++ {
		b[i] = 0
	}
	PutU32(b, DirSectorCountOffset, h.DirSectorCount)
	PutU32(b, FATSectorCountOffset, h.FATSectorCount)
	PutU32(b, DirStartOffset, h.DirStart)
	PutU32(b, TxSignatureOffset, h.TxSignature)
	PutU32(b, MiniStreamCutoffOffset, h.MiniStreamCutoff)
	PutU32(b, MiniFATStartOffset, h.MiniFATStart)
	PutU32(b, MiniFATCountOffset, h.MiniFATCount)
	PutU32(b, DIFATStartOffset, h.DIFATStart)
	PutU32(b, DIFATCountOffset, h.DIFATCount)
	for i, v := range h.DIFAT {
		PutU32(b, HeaderDIFATOffset+i*DWORDSize, v)
	}
}
