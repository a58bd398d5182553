package types

import "time"

// EntryType mirrors the directory entry object type byte.
type EntryType uint8

const (
	EntryEmpty   EntryType = 0
	EntryStorage EntryType = 1
	EntryStream  EntryType = 2
	EntryRoot    EntryType = 5
)

func (t EntryType) String() string {
	switch t {
	case EntryEmpty:
		return "empty"
	case EntryStorage:
		return "storage"
	case EntryStream:
		return "stream"
	case EntryRoot:
		return "root"
	default:
		return "unknown"
	}
}

// MarshalText lets EntryType render as its name in JSON and YAML output.
func (t EntryType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// EntryInfo is a flat, serializable description of one directory entry.
type EntryInfo struct {
	Path     string    `json:"path" yaml:"path"`
	Name     string    `json:"name" yaml:"name"`
	Type     EntryType `json:"type" yaml:"type"`
	Size     uint64    `json:"size" yaml:"size"`
	Start    uint32    `json:"start" yaml:"start"`
	Mini     bool      `json:"mini" yaml:"mini"`
	CLSID    string    `json:"clsid,omitempty" yaml:"clsid,omitempty"`
	Created  time.Time `json:"created,omitempty" yaml:"created,omitempty"`
	Modified time.Time `json:"modified,omitempty" yaml:"modified,omitempty"`
}

// ContainerInfo exposes header-level metadata of an opened container.
type ContainerInfo struct {
	MajorVersion     uint16 `json:"major_version" yaml:"major_version"`
	MinorVersion     uint16 `json:"minor_version" yaml:"minor_version"`
	SectorSize       int    `json:"sector_size" yaml:"sector_size"`
	MiniSectorSize   int    `json:"mini_sector_size" yaml:"mini_sector_size"`
	MiniStreamCutoff uint32 `json:"mini_stream_cutoff" yaml:"mini_stream_cutoff"`
	Sectors          int    `json:"sectors" yaml:"sectors"`
	FATSectors       uint32 `json:"fat_sectors" yaml:"fat_sectors"`
	MiniFATSectors   uint32 `json:"minifat_sectors" yaml:"minifat_sectors"`
	DIFATSectors     uint32 `json:"difat_sectors" yaml:"difat_sectors"`
	Entries          int    `json:"entries" yaml:"entries"`
	MiniStreamSize   uint64 `json:"mini_stream_size" yaml:"mini_stream_size"`
}
