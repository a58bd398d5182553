package format

import (
	"fmt"
	stdunicode "unicode"
	"unicode/utf16"

	"golang.org/x/text/encoding/unicode"

	"github.com/joshuapare/cfbkit/internal/buf"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// DirEntry is the decoded form of one 128-byte directory entry.
//
//	Offset  Size  Description
//	------  ----  ----------------------------------------------------------
//	 0x00   64    Name, UTF-16LE, null terminated
//	 0x40    2    Name length in bytes including the terminator
//	 0x42    1    Object type (0 empty, 1 storage, 2 stream, 5 root)
//	 0x43    1    Color (0 red, 1 black)
//	 0x44    4    Left sibling
//	 0x48    4    Right sibling
//	 0x4C    4    Child
//	 0x50   16    CLSID
//	 0x60    4    State bits
//	 0x64    8    Creation FILETIME
//	 0x6C    8    Modification FILETIME
//	 0x74    4    Start sector
//	 0x78    8    Stream size
type DirEntry struct {
	Name      string
	Type      uint8
	Color     uint8
	Left      uint32
	Right     uint32
	Child     uint32
	CLSID     [16]byte
	StateBits uint32
	Created   uint64
	Modified  uint64
	Start     uint32
	Size      uint64
}

// DecodeEntry decodes one directory entry from b. For major version 3 only the
// low 32 bits of the size field are used; writers of that era left garbage in
// the high half. clamped reports that the declared name length did not fit the
// name field and was truncated.
func DecodeEntry(b []byte, majorVersion uint16) (e DirEntry, clamped bool, err error) {
	if len(b) < EntrySize {
		return DirEntry{}, false, fmt.Errorf("dir entry: %w", ErrTruncated)
	}
	nameLen := int(buf.U16LE(b[EntryNameLenOffset:]))
	if nameLen > EntryNameSize {
		nameLen = EntryNameSize
		clamped = true
	}
	nameLen &^= 1
	if nameLen >= 2 {
		raw := b[EntryNameOffset : EntryNameOffset+nameLen-2]
		if i := indexNUL16(raw); i >= 0 {
			raw = raw[:i]
		}
		name, derr := utf16le.NewDecoder().Bytes(raw)
		if derr != nil {
			return DirEntry{}, clamped, fmt.Errorf("dir entry name: %w", derr)
		}
		e.Name = string(name)
	}

	e.Type = b[EntryTypeOffset]
	e.Color = b[EntryColorOffset]
	e.Left = buf.U32LE(b[EntryLeftOffset:])
	e.Right = buf.U32LE(b[EntryRightOffset:])
	e.Child = buf.U32LE(b[EntryChildOffset:])
	copy(e.CLSID[:], b[EntryCLSIDOffset:EntryCLSIDOffset+16])
	e.StateBits = buf.U32LE(b[EntryStateBitsOffset:])
	e.Created = buf.U64LE(b[EntryCreatedOffset:])
	e.Modified = buf.U64LE(b[EntryModifiedOffset:])
	e.Start = buf.U32LE(b[EntryStartOffset:])
	if majorVersion >= 4 {
		e.Size = buf.U64LE(b[EntrySizeOffset:])
	} else {
		e.Size = uint64(buf.U32LE(b[EntrySizeOffset:]))
	}
	return e, clamped, nil
}

func indexNUL16(b []byte) int {
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			return i
		}
	}
	return -1
}

// EncodeName returns the UTF-16LE form of name without terminator.
func EncodeName(name string) ([]byte, error) {
	raw, err := utf16le.NewEncoder().Bytes([]byte(name))
	if err != nil {
		return nil, fmt.Errorf("dir entry name %q: %w", name, err)
	}
	if len(raw)/2 > MaxNameChars {
		return nil, fmt.Errorf("dir entry name %q: %w", name, ErrNameTooLong)
	}
	return raw, nil
}

// Put encodes e into the 128 bytes at b.
func (e *DirEntry) Put(b []byte, majorVersion uint16) error {
	if len(b) < EntrySize {
		return fmt.Errorf("dir entry: %w", ErrTruncated)
	}
	clear(b[:EntrySize])
	if e.Type != TypeEmpty {
		raw, err := EncodeName(e.Name)
		if err != nil {
			return err
		}
		copy(b[EntryNameOffset:], raw)
		PutU16(b, EntryNameLenOffset, uint16(len(raw)+2))
	}
	b[EntryTypeOffset] = e.Type
	b[EntryColorOffset] = e.Color
	PutU32(b, EntryLeftOffset, e.Left)
	PutU32(b, EntryRightOffset, e.Right)
	PutU32(b, EntryChildOffset, e.Child)
	copy(b[EntryCLSIDOffset:], e.CLSID[:])
	PutU32(b, EntryStateBitsOffset, e.StateBits)
	PutU64(b, EntryCreatedOffset, e.Created)
	PutU64(b, EntryModifiedOffset, e.Modified)
	PutU32(b, EntryStartOffset, e.Start)
	if majorVersion >= 4 {
		PutU64(b, EntrySizeOffset, e.Size)
	} else {
		PutU32(b, EntrySizeOffset, uint32(e.Size))
	}
	return nil
}

// EmptyEntry returns an unused directory slot with all links cleared.
func EmptyEntry() DirEntry {
	return DirEntry{Left: NoStream, Right: NoStream, Child: NoStream, Start: FreeSect}
}

// CompareNames orders sibling names the way the red-black directory trees
// are keyed: shorter names first, then by upper-cased UTF-16 code units.
// Each unit is upper-cased on its own so the length never changes.
func CompareNames(a, b string) int {
	ua, ub := upperUnits(a), upperUnits(b)
	if len(ua) != len(ub) {
		if len(ua) < len(ub) {
			return -1
		}
		return 1
	}
	for i := range ua {
		if ua[i] != ub[i] {
			if ua[i] < ub[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func upperUnits(s string) []uint16 {
	units := utf16.Encode([]rune(s))
	for i, u := range units {
		if utf16.IsSurrogate(rune(u)) {
			continue
		}
		if up := stdunicode.ToUpper(rune(u)); up <= 0xFFFF && !utf16.IsSurrogate(up) {
			units[i] = uint16(up)
		}
	}
	return units
}
