package cfb

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/cfbkit/internal/format"
)

// rawContainer lays out a 512-byte-sector container by hand so tests can
// plant exact FAT and directory contents, including broken ones.
type rawContainer struct {
	hdr     format.Header
	sectors [][]byte
}

// newRawContainer returns a minimal valid container: sector 0 holds the FAT,
// sector 1 the directory with an empty root entry.
func newRawContainer(t *testing.T, nSectors int) *rawContainer {
	t.Helper()
	require.GreaterOrEqual(t, nSectors, 2)
	h, err := format.NewHeader(format.SmallSectorSize)
	require.NoError(t, err)
	r := &rawContainer{hdr: h}
	for i := 0; i < nSectors; i++ {
		r.sectors = append(r.sectors, make([]byte, format.SmallSectorSize))
	}
	r.hdr.FATSectorCount = 1
	r.hdr.DIFAT[0] = 0
	r.hdr.DirStart = 1
	r.setFAT(format.FATSect, format.EndOfChain)

	root := format.EmptyEntry()
	root.Name = format.RootEntryName
	root.Type = format.TypeRoot
	root.Color = format.ColorBlack
	root.Start = format.EndOfChain
	r.putEntry(t, 1, 0, root)
	for slot := 1; slot < 4; slot++ {
		r.putEntry(t, 1, slot, format.EmptyEntry())
	}
	return r
}

// setFAT rewrites sector 0 as a FAT whose leading entries are given; the
// rest are free.
func (r *rawContainer) setFAT(entries ...uint32) {
	b := r.sectors[0]
	for i := 0; i < len(b)/4; i++ {
		v := format.FreeSect
		if i < len(entries) {
			v = entries[i]
		}
		format.PutU32(b, i*4, v)
	}
}

func (r *rawContainer) putEntry(t *testing.T, sector, slot int, e format.DirEntry) {
	t.Helper()
	require.NoError(t, e.Put(r.sectors[sector][slot*format.EntrySize:], r.hdr.MajorVersion))
}

func (r *rawContainer) bytes() []byte {
	var out bytes.Buffer
	head := make([]byte, format.SmallSectorSize)
	r.hdr.Put(head)
	out.Write(head)
	for _, s := range r.sectors {
		out.Write(s)
	}
	return out.Bytes()
}

func streamEntry(name string, start uint32, size uint64) format.DirEntry {
	e := format.EmptyEntry()
	e.Name = name
	e.Type = format.TypeStream
	e.Color = format.ColorBlack
	e.Start = start
	e.Size = size
	return e
}

// payload returns n bytes of a repeating, position-dependent pattern.
func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + i/251)
	}
	return b
}

// saveAndReopen serializes f and opens the result from memory.
func saveAndReopen(t *testing.T, f *File, opts ...Option) *File {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, f.Save(&out))
	g, err := OpenBytes(out.Bytes(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}
