package cfb

import (
	"io"

	"github.com/joshuapare/cfbkit/internal/buf"
	"github.com/joshuapare/cfbkit/internal/format"
)

// MiniStream holds the 64-byte mini sectors used by streams shorter than the
// cutoff. The sectors live inside the root entry's stream (the container),
// addressed through the mini FAT.
type MiniStream struct {
	table     *AllocationTable
	msz       int
	container *chainReader
	// data is the container copied into memory once the first mini stream
	// is written. Until then reads go through container.
	data  []byte
	dirty bool
	// fatChain is the big-sector chain holding the mini FAT on disk.
	fatChain []uint32
}

// BuildMiniStream decodes the mini FAT and resolves the mini stream
// container from the root entry.
func BuildMiniStream(h *format.Header, fat *AllocationTable, src SectorSource, root format.DirEntry) (*MiniStream, error) {
	count := src.Count()
	if int64(h.MiniFATCount) > int64(count) {
		return nil, sanityf("header declares %d mini FAT sectors, file holds %d sectors", h.MiniFATCount, count)
	}
	m := &MiniStream{msz: h.MiniSectorSize()}

	var entries []uint32
	if h.MiniFATCount > 0 && h.MiniFATStart != format.EndOfChain {
		chain, err := fat.Chain(h.MiniFATStart)
		if err != nil {
			return nil, err
		}
		per := src.SectorSize() / format.DWORDSize
		entries = make([]uint32, 0, len(chain)*per)
		for _, s := range chain {
			sec, err := src.Sector(s)
			if err != nil {
				return nil, err
			}
			for j := 0; j < per; j++ {
				entries = append(entries, buf.U32LE(sec[j*format.DWORDSize:]))
			}
		}
		m.fatChain = chain
	}

	var limit int
	if root.Size > 0 && root.Start != format.EndOfChain {
		chain, err := fat.ChainFor(root.Start, root.Size, src.SectorSize())
		if err != nil {
			return nil, err
		}
		m.container = newChainReader(chain, src.SectorSize(), int64(root.Size), src.Sector)
		limit = int(buf.CeilDiv64(root.Size, m.msz))
	}
	m.table = newAllocationTable("minifat", entries, limit)
	return m, nil
}

// Chain follows the mini FAT chain at start.
func (m *MiniStream) Chain(start uint32) ([]uint32, error) { return m.table.Chain(start) }

// Size returns the container length in bytes.
func (m *MiniStream) Size() int64 {
	if m.data != nil {
		return int64(len(m.data))
	}
	if m.container == nil {
		return 0
	}
	return m.container.size
}

// ReadAt reads from the mini stream container.
func (m *MiniStream) ReadAt(p []byte, off int64) (int, error) {
	if m.data != nil {
		if off >= int64(len(m.data)) {
			return 0, io.EOF
		}
		n := copy(p, m.data[off:])
		if n < len(p) {
			return n, io.EOF
		}
		return n, nil
	}
	if m.container == nil {
		return 0, io.EOF
	}
	return m.container.ReadAt(p, off)
}

// unit returns mini sector i, zero-padded when the container ends inside it.
func (m *MiniStream) unit(i uint32) ([]byte, error) {
	b := make([]byte, m.msz)
	if _, err := m.ReadAt(b, int64(i)*int64(m.msz)); err != nil && err != io.EOF {
		return nil, err
	}
	return b, nil
}

// materialize copies the container into memory so it can be modified.
func (m *MiniStream) materialize() error {
	if m.data != nil {
		return nil
	}
	data := make([]byte, m.table.limit*m.msz)
	if m.container != nil {
		if _, err := m.container.ReadAt(data, 0); err != nil && err != io.EOF {
			return err
		}
	}
	m.data = data
	m.container = nil
	return nil
}

func (m *MiniStream) writeUnit(i uint32, chunk []byte) {
	end := (int(i) + 1) * m.msz
	if end > len(m.data) {
		m.data = append(m.data, make([]byte, end-len(m.data))...)
	}
	off := int(i) * m.msz
	n := copy(m.data[off:end], chunk)
	clear(m.data[off+n : end])
}
