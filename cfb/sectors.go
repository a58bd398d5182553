package cfb

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/joshuapare/cfbkit/internal/buf"
)

// SectorSource is the raw sector list of a container. Sector i starts at
// byte offset (i+1)*SectorSize(); the header occupies the first sector slot.
//
// Slices returned by Sector must not be modified by callers.
type SectorSource interface {
	SectorSize() int
	Count() int
	Sector(i uint32) ([]byte, error)
	Close() error
}

// sectorCount reports how many sectors follow the header in size bytes. A
// partial final sector counts; its missing tail reads as zeros.
func sectorCount(size int64, ssz int) int {
	if size <= int64(ssz) {
		return 0
	}
	return int((size - int64(ssz) + int64(ssz) - 1) / int64(ssz))
}

// memSource serves sectors straight out of a byte slice, typically a
// read-only mapping of the file.
type memSource struct {
	data    []byte
	ssz     int
	count   int
	release func() error
	padded  map[uint32][]byte
}

func newMemSource(data []byte, ssz int, release func() error, log *slog.Logger) *memSource {
	s := &memSource{data: data, ssz: ssz, count: sectorCount(int64(len(data)), ssz), release: release}
	if s.count > 0 && (len(data)-ssz)%ssz != 0 {
		log.Warn("final sector truncated", "have", (len(data)-ssz)%ssz, "sector_size", ssz)
	}
	return s
}

func (s *memSource) SectorSize() int { return s.ssz }
func (s *memSource) Count() int      { return s.count }

func (s *memSource) Sector(i uint32) ([]byte, error) {
	if int64(i) >= int64(s.count) {
		return nil, corruptf("sector %d beyond end of file (%d sectors)", i, s.count)
	}
	off, ok := buf.MulOverflowSafe(int(i)+1, s.ssz)
	if !ok {
		return nil, corruptf("sector %d offset overflows", i)
	}
	if b, ok := buf.Slice(s.data, off, s.ssz); ok {
		return b, nil
	}
	if p, ok := s.padded[i]; ok {
		return p, nil
	}
	p := make([]byte, s.ssz)
	copy(p, s.data[off:])
	if s.padded == nil {
		s.padded = make(map[uint32][]byte, 1)
	}
	s.padded[i] = p
	return p, nil
}

func (s *memSource) Close() error {
	s.data = nil
	s.padded = nil
	if s.release == nil {
		return nil
	}
	release := s.release
	s.release = nil
	return release()
}

// readerAtSource reads sectors on demand and keeps the most recently used
// ones in a bounded cache, so arbitrarily large files need bounded memory.
type readerAtSource struct {
	r     io.ReaderAt
	ssz   int
	count int
	cache *lru.Cache[uint32, []byte]
}

func newReaderAtSource(r io.ReaderAt, size int64, ssz, cacheSectors int) (*readerAtSource, error) {
	cache, err := lru.New[uint32, []byte](cacheSectors)
	if err != nil {
		return nil, fmt.Errorf("cfb: sector cache: %w", err)
	}
	return &readerAtSource{r: r, ssz: ssz, count: sectorCount(size, ssz), cache: cache}, nil
}

func (s *readerAtSource) SectorSize() int { return s.ssz }
func (s *readerAtSource) Count() int      { return s.count }

func (s *readerAtSource) Sector(i uint32) ([]byte, error) {
	if int64(i) >= int64(s.count) {
		return nil, corruptf("sector %d beyond end of file (%d sectors)", i, s.count)
	}
	if b, ok := s.cache.Get(i); ok {
		return b, nil
	}
	b := make([]byte, s.ssz)
	n, err := s.r.ReadAt(b, (int64(i)+1)*int64(s.ssz))
	if err != nil && !(errors.Is(err, io.EOF) && n > 0) {
		return nil, fmt.Errorf("cfb: read sector %d: %w", i, err)
	}
	s.cache.Add(i, b)
	return b, nil
}

func (s *readerAtSource) Close() error {
	if s.cache != nil {
		s.cache.Purge()
	}
	if c, ok := s.r.(io.Closer); ok {
		s.r = nil
		return c.Close()
	}
	s.r = nil
	return nil
}

// sectorStore overlays modified and appended sectors on top of a source.
// Reads prefer the overlay; sectors past the source end read as zeros until
// written.
type sectorStore struct {
	src   SectorSource
	ssz   int
	count int
	dirty map[uint32][]byte
}

func newSectorStore(src SectorSource) *sectorStore {
	return &sectorStore{src: src, ssz: src.SectorSize(), count: src.Count(), dirty: make(map[uint32][]byte)}
}

func (s *sectorStore) read(i uint32) ([]byte, error) {
	if b, ok := s.dirty[i]; ok {
		return b, nil
	}
	if int64(i) < int64(s.src.Count()) {
		return s.src.Sector(i)
	}
	if int64(i) < int64(s.count) {
		return make([]byte, s.ssz), nil
	}
	return nil, corruptf("sector %d beyond end of file (%d sectors)", i, s.count)
}

// writable returns a private, modifiable copy of sector i, growing the
// store when i lies past the current end.
func (s *sectorStore) writable(i uint32) ([]byte, error) {
	if b, ok := s.dirty[i]; ok {
		return b, nil
	}
	if int(i) >= s.count {
		s.count = int(i) + 1
	}
	b := make([]byte, s.ssz)
	if int64(i) < int64(s.src.Count()) {
		cur, err := s.src.Sector(i)
		if err != nil {
			return nil, err
		}
		copy(b, cur)
	}
	s.dirty[i] = b
	return b, nil
}

func (s *sectorStore) grow(n int) {
	if n > s.count {
		s.count = n
	}
}

// The store itself is a SectorSource, so decoders read through the overlay.

func (s *sectorStore) SectorSize() int                  { return s.ssz }
func (s *sectorStore) Count() int                       { return s.count }
func (s *sectorStore) Sector(i uint32) ([]byte, error) { return s.read(i) }
func (s *sectorStore) Close() error                     { return s.src.Close() }
