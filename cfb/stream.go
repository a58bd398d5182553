package cfb

import (
	"bytes"
	"errors"
	"io"

	"github.com/joshuapare/cfbkit/internal/format"
)

// chainReader exposes a chain of fixed-size units as one contiguous byte
// range of the given size.
type chainReader struct {
	chain []uint32
	unit  int
	size  int64
	fetch func(uint32) ([]byte, error)
}

func newChainReader(chain []uint32, unit int, size int64, fetch func(uint32) ([]byte, error)) *chainReader {
	return &chainReader{chain: chain, unit: unit, size: size, fetch: fetch}
}

func (c *chainReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("cfb: negative offset")
	}
	if off >= c.size {
		return 0, io.EOF
	}
	n := 0
	for n < len(p) && off < c.size {
		k := off / int64(c.unit)
		within := int(off % int64(c.unit))
		b, err := c.fetch(c.chain[k])
		if err != nil {
			return n, err
		}
		avail := c.unit - within
		if rem := c.size - off; rem < int64(avail) {
			avail = int(rem)
		}
		m := copy(p[n:], b[within:within+avail])
		n += m
		off += int64(m)
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Stream reads one stream entry. Reads never go past the declared size.
type Stream struct {
	*io.SectionReader
	entry *Entry
}

// Name returns the stream's entry name.
func (s *Stream) Name() string { return s.entry.Name() }

// Entry returns the directory entry backing s.
func (s *Stream) Entry() *Entry { return s.entry }

// OpenStream opens the stream at path for reading. The stream stays valid
// until the container is modified or closed.
func (f *File) OpenStream(path string) (*Stream, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	e, err := f.Lookup(path)
	if err != nil {
		return nil, err
	}
	if !e.IsStream() {
		return nil, statef("%s is a %s, not a stream", path, e.Type())
	}
	r, err := f.streamReader(e)
	if err != nil {
		return nil, err
	}
	return &Stream{SectionReader: io.NewSectionReader(r, 0, int64(e.raw.Size)), entry: e}, nil
}

func (f *File) streamReader(e *Entry) (io.ReaderAt, error) {
	size := e.raw.Size
	if size == 0 {
		return bytes.NewReader(nil), nil
	}
	if size < format.MiniStreamCutoff {
		chain, more, err := f.mini.table.chainFor(e.raw.Start, size, f.mini.msz)
		if err != nil {
			return nil, err
		}
		if more {
			f.log.Warn("mini chain longer than stream size", "entry", e.Path(), "size", size)
		}
		return newChainReader(chain, f.mini.msz, int64(size), f.mini.unit), nil
	}
	chain, more, err := f.fat.chainFor(e.raw.Start, size, f.store.ssz)
	if err != nil {
		return nil, err
	}
	if more {
		f.log.Warn("chain longer than stream size", "entry", e.Path(), "size", size)
	}
	return newChainReader(chain, f.store.ssz, int64(size), f.store.read), nil
}

// ReadStream returns the full content of the stream at path.
func (f *File) ReadStream(path string) ([]byte, error) {
	s, err := f.OpenStream(path)
	if err != nil {
		return nil, err
	}
	out := make([]byte, s.Size())
	if _, err := io.ReadFull(s, out); err != nil {
		return nil, err
	}
	return out, nil
}

// streamWriter buffers a stream's new content until Close.
type streamWriter struct {
	f      *File
	e      *Entry
	buf    bytes.Buffer
	closed bool
}

func (w *streamWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, statef("write to closed stream %s", w.e.Name())
	}
	return w.buf.Write(p)
}

// Close commits the buffered content to the container.
func (w *streamWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.f.check(); err != nil {
		return err
	}
	if w.e.parent == nil {
		return statef("stream %s was deleted", w.e.Name())
	}
	return w.f.writeStream(w.e, w.buf.Bytes())
}
