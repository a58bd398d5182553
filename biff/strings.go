package biff

import (
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/joshuapare/cfbkit/internal/buf"
)

var (
	latin1  = charmap.ISO8859_1
	utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
)

// String option flags of XLUnicodeRichExtendedString.
const (
	strHighByte = 0x01
	strExt      = 0x04
	strRich     = 0x08
)

// ReadUnicodeLE reads n UTF-16LE characters.
func (in *RecordInputStream) ReadUnicodeLE(n int) (string, error) {
	return in.readChars(n, false)
}

// ReadCompressedUnicode reads n single-byte (Latin-1) characters.
func (in *RecordInputStream) ReadCompressedUnicode(n int) (string, error) {
	return in.readChars(n, true)
}

// ReadUnicodeString reads a BIFF8 unicode string: character count, option
// flags, optional rich-text run count and extension size, the characters,
// then the rich-text runs and extension which are skipped.
func (in *RecordInputStream) ReadUnicodeString() (string, error) {
	cch, err := in.ReadUint16()
	if err != nil {
		return "", err
	}
	flags, err := in.ReadUint8()
	if err != nil {
		return "", err
	}
	var runs uint16
	if flags&strRich != 0 {
		if runs, err = in.ReadUint16(); err != nil {
			return "", err
		}
	}
	var ext int32
	if flags&strExt != 0 {
		if ext, err = in.ReadInt32(); err != nil {
			return "", err
		}
		if ext < 0 {
			return "", boundsf("string extension size %d", ext)
		}
	}
	s, err := in.readChars(int(cch), flags&strHighByte == 0)
	if err != nil {
		return "", err
	}
	if runs > 0 {
		if _, err := in.ReadContinuedFully(4 * int(runs)); err != nil {
			return "", err
		}
	}
	if ext > 0 {
		if _, err := in.ReadContinuedFully(int(ext)); err != nil {
			return "", err
		}
	}
	return s, nil
}

// readChars reads n characters. When a CONTINUE record interrupts the
// characters its first byte restates the compression flag.
func (in *RecordInputStream) readChars(n int, compressed bool) (string, error) {
	var sb strings.Builder
	for got := 0; got < n; {
		if in.Remaining() == 0 {
			if !in.IsContinueNext() {
				return "", boundsf("string: %d of %d characters available", got, n)
			}
			if err := in.advance(); err != nil {
				return "", err
			}
			flag, err := in.ReadUint8()
			if err != nil {
				return "", err
			}
			compressed = flag&strHighByte == 0
			continue
		}
		if compressed {
			k := min(in.Remaining(), n-got)
			raw, err := in.take(k)
			if err != nil {
				return "", err
			}
			dec, err := latin1.NewDecoder().Bytes(raw)
			if err != nil {
				return "", err
			}
			sb.Write(dec)
			got += k
			continue
		}
		k := min(in.Remaining()/2, n-got)
		if k == 0 {
			return "", boundsf("string: odd byte left in record %s", SidName(in.sid))
		}
		raw, err := in.take(2 * k)
		if err != nil {
			return "", err
		}
		dec, err := utf16le.NewDecoder().Bytes(raw)
		if err != nil {
			return "", err
		}
		sb.Write(dec)
		got += k
	}
	return sb.String(), nil
}

// AppendUnicodeString appends s as a BIFF8 unicode string without rich text
// or extension. Strings that fit Latin-1 are stored compressed.
func AppendUnicodeString(dst []byte, s string) []byte {
	units := utf16.Encode([]rune(s))
	if raw, err := latin1.NewEncoder().Bytes([]byte(s)); err == nil {
		dst = buf.AppendU16(dst, uint16(len(units)))
		dst = append(dst, 0)
		return append(dst, raw...)
	}
	dst = buf.AppendU16(dst, uint16(len(units)))
	dst = append(dst, strHighByte)
	for _, u := range units {
		dst = buf.AppendU16(dst, u)
	}
	return dst
}

// UnicodeStringSize returns the encoded size of s as written by
// AppendUnicodeString.
func UnicodeStringSize(s string) int {
	return len(AppendUnicodeString(nil, s))
}
