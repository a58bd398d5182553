package cfb

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joshuapare/cfbkit/internal/format"
	"github.com/joshuapare/cfbkit/pkg/types"
)

// Entry is a storage or stream in the directory tree. Sibling links from
// disk are resolved into an ordered child list; they are regenerated on save
// for storages whose children changed.
type Entry struct {
	d        *Directory
	id       uint32
	raw      format.DirEntry
	parent   *Entry
	children []*Entry
	relink   bool
}

// ID returns the entry's index in the directory.
func (e *Entry) ID() uint32 { return e.id }

// Name returns the entry name.
func (e *Entry) Name() string { return e.raw.Name }

// Type returns the entry's object type.
func (e *Entry) Type() types.EntryType { return types.EntryType(e.raw.Type) }

// IsStream reports whether e holds data.
func (e *Entry) IsStream() bool { return e.raw.Type == format.TypeStream }

// IsStorage reports whether e can have children. The root is a storage.
func (e *Entry) IsStorage() bool {
	return e.raw.Type == format.TypeStorage || e.raw.Type == format.TypeRoot
}

// Size returns the declared stream size.
func (e *Entry) Size() uint64 { return e.raw.Size }

// Start returns the first sector (or mini sector) of the entry's data.
func (e *Entry) Start() uint32 { return e.raw.Start }

// Parent returns the containing storage, nil for the root.
func (e *Entry) Parent() *Entry { return e.parent }

// CLSID returns the entry's class id.
func (e *Entry) CLSID() uuid.UUID { return format.ClassID(e.raw.CLSID) }

// SetCLSID sets the entry's class id.
func (e *Entry) SetCLSID(id uuid.UUID) {
	e.raw.CLSID = format.RawClassID(id)
	if e.d != nil {
		e.d.modified = true
	}
}

// StateBits returns the user-defined flags.
func (e *Entry) StateBits() uint32 { return e.raw.StateBits }

func (e *Entry) Created() time.Time  { return format.FiletimeToTime(e.raw.Created) }
func (e *Entry) Modified() time.Time { return format.FiletimeToTime(e.raw.Modified) }

// Children returns the entries directly below e in directory order.
func (e *Entry) Children() []*Entry { return slices.Clone(e.children) }

// Child finds a direct child by name. Matching is case-insensitive.
func (e *Entry) Child(name string) (*Entry, bool) {
	for _, c := range e.children {
		if format.CompareNames(c.raw.Name, name) == 0 {
			return c, true
		}
	}
	return nil, false
}

// Path returns the slash-separated path from the root; the root is "/".
func (e *Entry) Path() string {
	if e.parent == nil {
		return "/"
	}
	var parts []string
	for p := e; p.parent != nil; p = p.parent {
		parts = append(parts, p.raw.Name)
	}
	slices.Reverse(parts)
	return "/" + strings.Join(parts, "/")
}

// Info returns a serializable summary of e.
func (e *Entry) Info() types.EntryInfo {
	info := types.EntryInfo{
		Path:     e.Path(),
		Name:     e.raw.Name,
		Type:     e.Type(),
		Size:     e.raw.Size,
		Start:    e.raw.Start,
		Mini:     e.IsStream() && e.raw.Size > 0 && e.raw.Size < format.MiniStreamCutoff,
		Created:  e.Created(),
		Modified: e.Modified(),
	}
	if e.raw.CLSID != ([16]byte{}) {
		info.CLSID = e.CLSID().String()
	}
	return info
}

func (e *Entry) addChild(c *Entry) {
	i, _ := slices.BinarySearchFunc(e.children, c, func(a, b *Entry) int {
		return format.CompareNames(a.raw.Name, b.raw.Name)
	})
	e.children = slices.Insert(e.children, i, c)
	c.parent = e
	e.relink = true
}

func (e *Entry) removeChild(c *Entry) {
	e.children = slices.DeleteFunc(e.children, func(x *Entry) bool { return x == c })
	c.parent = nil
	e.relink = true
}
