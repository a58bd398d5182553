package cfb

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joshuapare/cfbkit/internal/format"
	"github.com/joshuapare/cfbkit/internal/mmfile"
	"github.com/joshuapare/cfbkit/pkg/types"
)

// File is an opened compound file. It is not safe for concurrent use.
type File struct {
	opts  Options
	log   *slog.Logger
	hdr   format.Header
	store *sectorStore
	fat   *AllocationTable
	mini  *MiniStream
	dir   *Directory
	dirty bool
}

// Open maps the file at path and opens it read-write in memory. Changes are
// persisted with Save or SaveFile.
func Open(path string, opts ...Option) (*File, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	data, release, err := mmfile.Map(path)
	if err != nil {
		return nil, fmt.Errorf("cfb: open %s: %w", path, err)
	}
	return openBytes(data, release, o)
}

// OpenBytes opens a container held in b. b must not be modified while the
// File is in use.
func OpenBytes(b []byte, opts ...Option) (*File, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return openBytes(b, nil, o)
}

func openBytes(data []byte, release func() error, o Options) (*File, error) {
	hdr, err := format.ParseHeader(data)
	if err != nil {
		if release != nil {
			_ = release()
		}
		return nil, classifyHeaderErr(err)
	}
	return load(hdr, newMemSource(data, hdr.SectorSize(), release, o.Logger), o)
}

// OpenReaderAt opens a container of the given size read through r. Sectors
// are fetched on demand and cached up to Options.CacheSectors, so memory use
// does not grow with the file. If r is an io.Closer it is closed by Close.
func OpenReaderAt(r io.ReaderAt, size int64, opts ...Option) (*File, error) {
	o, err := buildOptions(opts)
	if err != nil {
		closeReader(r)
		return nil, err
	}
	hdr, err := format.ReadHeader(io.NewSectionReader(r, 0, size))
	if err != nil {
		closeReader(r)
		return nil, classifyHeaderErr(err)
	}
	src, err := newReaderAtSource(r, size, hdr.SectorSize(), o.CacheSectors)
	if err != nil {
		closeReader(r)
		return nil, err
	}
	return load(hdr, src, o)
}

// closeReader closes r if it is an io.Closer. Once a source wraps r, the
// source owns it instead.
func closeReader(r io.ReaderAt) {
	if c, ok := r.(io.Closer); ok {
		_ = c.Close()
	}
}

// load decodes the allocation tables and directory. src is closed on error.
func load(hdr format.Header, src SectorSource, o Options) (f *File, err error) {
	defer func() {
		if err != nil {
			_ = src.Close()
		}
	}()
	if o.MaxSectors > 0 && src.Count() > o.MaxSectors {
		return nil, sanityf("file holds %d sectors, limit is %d", src.Count(), o.MaxSectors)
	}
	if hdr.MiniStreamCutoff != format.MiniStreamCutoff {
		o.Logger.Warn("ignoring non-standard mini stream cutoff", "cutoff", hdr.MiniStreamCutoff)
	}
	store := newSectorStore(src)
	fat, err := BuildFAT(&hdr, store)
	if err != nil {
		return nil, err
	}
	dir, err := ReadDirectory(&hdr, fat, store, o.Logger)
	if err != nil {
		return nil, err
	}
	mini, err := BuildMiniStream(&hdr, fat, store, dir.root.raw)
	if err != nil {
		return nil, err
	}
	o.Logger.Debug("opened compound file",
		"version", hdr.MajorVersion,
		"sector_size", hdr.SectorSize(),
		"sectors", src.Count(),
		"fat_sectors", hdr.FATSectorCount,
		"minifat_sectors", hdr.MiniFATCount,
		"difat_sectors", hdr.DIFATCount,
		"entries", dir.Len())
	return &File{opts: o, log: o.Logger, hdr: hdr, store: store, fat: fat, mini: mini, dir: dir}, nil
}

// New creates an empty container holding only the root storage.
func New(opts ...Option) (*File, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	hdr, err := format.NewHeader(o.SectorSize)
	if err != nil {
		return nil, classifyHeaderErr(err)
	}
	src := newMemSource(nil, hdr.SectorSize(), nil, o.Logger)
	root := format.EmptyEntry()
	root.Name = format.RootEntryName
	root.Type = format.TypeRoot
	root.Color = format.ColorBlack
	root.Start = format.EndOfChain
	dir := &Directory{}
	dir.root = &Entry{d: dir, id: 0, raw: root}
	dir.entries = []*Entry{dir.root}
	return &File{
		opts:  o,
		log:   o.Logger,
		hdr:   hdr,
		store: newSectorStore(src),
		fat:   newAllocationTable("fat", nil, 0),
		mini:  &MiniStream{msz: hdr.MiniSectorSize(), table: newAllocationTable("minifat", nil, 0)},
		dir:   dir,
		dirty: true,
	}, nil
}

// Close releases the underlying source. Calling Close more than once is a
// no-op.
func (f *File) Close() error {
	if f == nil || f.store == nil {
		return nil
	}
	err := f.store.src.Close()
	f.store = nil
	f.fat = nil
	f.mini = nil
	f.dir = nil
	return err
}

func (f *File) check() error {
	if f == nil || f.store == nil {
		return statef("compound file is closed")
	}
	return nil
}

// Header returns a copy of the decoded header.
func (f *File) Header() format.Header { return f.hdr }

// FAT returns the sector allocation table, or nil once f is closed.
func (f *File) FAT() *AllocationTable {
	if f.check() != nil {
		return nil
	}
	return f.fat
}

// MiniStream returns the mini stream and its allocation table, or nil once
// f is closed.
func (f *File) MiniStream() *MiniStream {
	if f.check() != nil {
		return nil
	}
	return f.mini
}

// Root returns the root storage, or nil once f is closed.
func (f *File) Root() *Entry {
	if f.check() != nil {
		return nil
	}
	return f.dir.root
}

// RootEntries returns the entries directly below the root.
func (f *File) RootEntries() []*Entry {
	if f.check() != nil {
		return nil
	}
	return f.dir.root.Children()
}

// Info summarizes the container. A closed file reports only its header.
func (f *File) Info() types.ContainerInfo {
	if f == nil {
		return types.ContainerInfo{}
	}
	if f.check() != nil {
		return types.ContainerInfo{
			MajorVersion:     f.hdr.MajorVersion,
			MinorVersion:     f.hdr.MinorVersion,
			SectorSize:       f.hdr.SectorSize(),
			MiniSectorSize:   f.hdr.MiniSectorSize(),
			MiniStreamCutoff: format.MiniStreamCutoff,
		}
	}
	used := 0
	for _, e := range f.dir.entries {
		if e.raw.Type != format.TypeEmpty {
			used++
		}
	}
	return types.ContainerInfo{
		MajorVersion:     f.hdr.MajorVersion,
		MinorVersion:     f.hdr.MinorVersion,
		SectorSize:       f.hdr.SectorSize(),
		MiniSectorSize:   f.hdr.MiniSectorSize(),
		MiniStreamCutoff: format.MiniStreamCutoff,
		Sectors:          f.store.count,
		FATSectors:       f.hdr.FATSectorCount,
		MiniFATSectors:   f.hdr.MiniFATCount,
		DIFATSectors:     f.hdr.DIFATCount,
		Entries:          used,
		MiniStreamSize:   uint64(f.mini.Size()),
	}
}

func splitPath(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
}

// Lookup resolves a slash-separated path from the root. Names match
// case-insensitively; "" and "/" resolve to the root.
func (f *File) Lookup(path string) (*Entry, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	cur := f.dir.root
	for _, name := range splitPath(path) {
		next, ok := cur.Child(name)
		if !ok {
			return nil, notFoundf("%s: no entry %q below %s", path, name, cur.Path())
		}
		cur = next
	}
	return cur, nil
}

// parentOf resolves the storage that should hold path and the final name.
func (f *File) parentOf(path string) (*Entry, string, error) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, "", statef("%q names the root", path)
	}
	parent, err := f.Lookup(strings.Join(parts[:len(parts)-1], "/"))
	if err != nil {
		return nil, "", err
	}
	if !parent.IsStorage() {
		return nil, "", statef("%s is a stream", parent.Path())
	}
	name := parts[len(parts)-1]
	if _, err := format.EncodeName(name); err != nil {
		return nil, "", types.Errorf(types.ErrKindUnsupported, "%w", err)
	}
	return parent, name, nil
}

// CreateStream returns a writer for the stream at path, creating the entry
// when needed. The parent storage must exist. Content is committed when the
// writer is closed and replaces any previous content.
func (f *File) CreateStream(path string) (io.WriteCloser, error) {
	parent, name, err := f.parentOf(path)
	if err != nil {
		return nil, err
	}
	e, ok := parent.Child(name)
	switch {
	case ok && !e.IsStream():
		return nil, statef("%s exists and is a %s", e.Path(), e.Type())
	case !ok:
		raw := format.EmptyEntry()
		raw.Name = name
		raw.Type = format.TypeStream
		raw.Start = format.EndOfChain
		if e, err = f.dir.newEntry(raw); err != nil {
			return nil, err
		}
		parent.addChild(e)
		f.dirty = true
	}
	return &streamWriter{f: f, e: e}, nil
}

// WriteStream replaces the content of the stream at path with data.
func (f *File) WriteStream(path string, data []byte) error {
	w, err := f.CreateStream(path)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	return w.Close()
}

// CreateStorage creates the storage at path, or returns it if it exists.
func (f *File) CreateStorage(path string) (*Entry, error) {
	parent, name, err := f.parentOf(path)
	if err != nil {
		return nil, err
	}
	if e, ok := parent.Child(name); ok {
		if !e.IsStorage() {
			return nil, statef("%s exists and is a %s", e.Path(), e.Type())
		}
		return e, nil
	}
	now := format.TimeToFiletime(time.Now())
	raw := format.EmptyEntry()
	raw.Name = name
	raw.Type = format.TypeStorage
	raw.Start = 0
	raw.Created = now
	raw.Modified = now
	e, err := f.dir.newEntry(raw)
	if err != nil {
		return nil, err
	}
	parent.addChild(e)
	f.dirty = true
	return e, nil
}

// Delete removes the entry at path. Storages are removed with everything
// below them; their data chains are returned to the free lists.
func (f *File) Delete(path string) error {
	e, err := f.Lookup(path)
	if err != nil {
		return err
	}
	if e == f.dir.root {
		return statef("cannot delete the root entry")
	}
	var drop func(*Entry)
	drop = func(x *Entry) {
		for _, c := range x.children {
			drop(c)
		}
		if x.IsStream() {
			f.releaseData(x)
		}
		f.dir.free(x)
	}
	e.parent.removeChild(e)
	drop(e)
	f.dirty = true
	return nil
}

// Walk calls fn for every entry below the root in depth-first order.
// Returning fs.SkipDir from a storage skips its children; any other error
// stops the walk and is returned.
func (f *File) Walk(fn func(path string, e *Entry) error) error {
	if err := f.check(); err != nil {
		return err
	}
	var visit func(*Entry) error
	visit = func(s *Entry) error {
		for _, c := range s.children {
			err := fn(c.Path(), c)
			if errors.Is(err, fs.SkipDir) {
				continue
			}
			if err != nil {
				return err
			}
			if c.IsStorage() {
				if err := visit(c); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return visit(f.dir.root)
}
