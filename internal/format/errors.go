package format

import (
	"errors"

	"github.com/joshuapare/cfbkit/pkg/types"
)

var (
	// ErrSignatureMismatch indicates the leading bytes are not a compound file.
	ErrSignatureMismatch = errors.New("format: signature mismatch")
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrSectorShift indicates a sector size class other than 512 or 4096 bytes.
	ErrSectorShift = errors.New("format: unsupported sector size")
	// ErrOOXML indicates a ZIP container, i.e. an XML-based Office document.
	ErrOOXML = types.ErrOOXML
	// ErrRawBIFF indicates a bare BIFF2-4 record stream without a container.
	ErrRawBIFF = types.ErrRawBIFF
	// ErrNameTooLong indicates a directory entry name longer than 31 UTF-16 units.
	ErrNameTooLong = errors.New("format: entry name too long")
)
