// Package format houses low-level decoders for the OLE2 Compound File Binary
// Format. The goal is to keep parsing focused and independent from the
// container API so higher-level packages can orchestrate sector chains and
// directory trees in a more ergonomic form.
package format

var (
	// Signature is the eight-byte magic at the start of every compound file.
	//   0x00  D0 CF 11 E0 A1 B1 1A E1
	Signature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

	// ZIPSignature is the local-file-header magic of ZIP archives, which is
	// what the XML-based Office formats (xlsx/docx/pptx) start with.
	ZIPSignature = []byte{'P', 'K', 0x03, 0x04}
)

const (
	// HeaderSize is the size of the fixed header in bytes. For 4096-byte
	// sectors the header still occupies a whole sector; the tail is zero.
	HeaderSize = 512

	// Header field offsets.
	SignatureOffset        = 0x00 // 8
	HeaderCLSIDOffset      = 0x08 // 16, must be zero
	MinorVersionOffset     = 0x18 // 2
	MajorVersionOffset     = 0x1A // 2
	ByteOrderOffset        = 0x1C // 2
	SectorShiftOffset      = 0x1E // 2 (byte 30)
	MiniSectorShiftOffset  = 0x20 // 2 (byte 32)
	DirSectorCountOffset   = 0x28 // 4, v4 only
	FATSectorCountOffset   = 0x2C // 4
	DirStartOffset         = 0x30 // 4
	TxSignatureOffset      = 0x34 // 4
	MiniStreamCutoffOffset = 0x38 // 4
	MiniFATStartOffset     = 0x3C // 4
	MiniFATCountOffset     = 0x40 // 4
	DIFATStartOffset       = 0x44 // 4
	DIFATCountOffset       = 0x48 // 4
	HeaderDIFATOffset      = 0x4C // 109 * 4

	// HeaderDIFATEntries is the number of FAT sector indices stored inline in
	// the header. Further indices live in DIFAT (extension) sectors.
	HeaderDIFATEntries = 109

	SignatureSize = 8
	ByteOrderMark = 0xFFFE
	MinorVersion  = 0x003E

	// Sector size classes.
	SmallSectorShift = 9  // 512 bytes, major version 3
	LargeSectorShift = 12 // 4096 bytes, major version 4
	SmallSectorSize  = 1 << SmallSectorShift
	LargeSectorSize  = 1 << LargeSectorShift
	MiniSectorShift  = 6
	MiniSectorSize   = 1 << MiniSectorShift

	// MiniStreamCutoff is the size below which a stream lives in the mini stream.
	MiniStreamCutoff = 4096

	// EntrySize is the length of one directory entry.
	EntrySize = 128

	// DWORDSize is the width of FAT, miniFAT and DIFAT entries.
	DWORDSize = 4
)

// Sector sentinels. On disk these are the unsigned forms of -6..-1.
const (
	MaxRegSect  uint32 = 0xFFFFFFFA // largest valid sector index
	DIFATSect   uint32 = 0xFFFFFFFC // -4: sector holds DIFAT entries
	FATSect     uint32 = 0xFFFFFFFD // -3: sector holds FAT entries
	EndOfChain  uint32 = 0xFFFFFFFE // -2
	FreeSect    uint32 = 0xFFFFFFFF // -1
	NoStream    uint32 = 0xFFFFFFFF // directory link sentinel
	MaxStreamID uint32 = 0xFFFFFFFA
)

// Directory entry field offsets.
const (
	EntryNameOffset      = 0x00 // 64, UTF-16LE, null terminated
	EntryNameSize        = 64
	EntryNameLenOffset   = 0x40 // 2, bytes incl. terminator
	EntryTypeOffset      = 0x42 // 1
	EntryColorOffset     = 0x43 // 1
	EntryLeftOffset      = 0x44 // 4
	EntryRightOffset     = 0x48 // 4
	EntryChildOffset     = 0x4C // 4
	EntryCLSIDOffset     = 0x50 // 16
	EntryStateBitsOffset = 0x60 // 4
	EntryCreatedOffset   = 0x64 // 8
	EntryModifiedOffset  = 0x6C // 8
	EntryStartOffset     = 0x74 // 4
	EntrySizeOffset      = 0x78 // 8 (only low 4 bytes meaningful for v3)

	// MaxNameChars is the longest name that fits with its terminator.
	MaxNameChars = EntryNameSize/2 - 1
)

// Directory entry object types.
const (
	TypeEmpty     uint8 = 0
	TypeStorage   uint8 = 1
	TypeStream    uint8 = 2
	TypeLockBytes uint8 = 3
	TypeProperty  uint8 = 4
	TypeRoot      uint8 = 5
)

// Red-black colors.
const (
	ColorRed   uint8 = 0
	ColorBlack uint8 = 1
)

// RootEntryName is the conventional name of directory entry 0.
const RootEntryName = "Root Entry"
