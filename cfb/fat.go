package cfb

import (
	"github.com/joshuapare/cfbkit/internal/buf"
	"github.com/joshuapare/cfbkit/internal/format"
)

// AllocationTable maps each sector (or mini sector) to its successor in a
// chain, or to one of the sentinel values. The same type backs the FAT and
// the mini FAT.
type AllocationTable struct {
	name    string
	entries []uint32
	// limit is the number of addressable units; indices at or past it are
	// out of range even when the table has entries for them.
	limit int
	// hint is the lowest index that may be free.
	hint int
}

func newAllocationTable(name string, entries []uint32, limit int) *AllocationTable {
	return &AllocationTable{name: name, entries: entries, limit: limit}
}

// Len returns the number of entries in the table.
func (t *AllocationTable) Len() int { return len(t.entries) }

// Limit returns the number of addressable units.
func (t *AllocationTable) Limit() int { return t.limit }

func (t *AllocationTable) inRange(i uint32) bool {
	return int64(i) < int64(t.limit) && int64(i) < int64(len(t.entries))
}

// Next returns the successor of unit i.
func (t *AllocationTable) Next(i uint32) (uint32, error) {
	if !t.inRange(i) {
		return 0, corruptf("%s: index %d out of range (%d units)", t.name, i, t.limit)
	}
	return t.entries[i], nil
}

// Chain follows the chain starting at start until ENDOFCHAIN. A revisited
// index, an index outside the table or any other sentinel is corruption.
// A start of ENDOFCHAIN yields an empty chain.
func (t *AllocationTable) Chain(start uint32) ([]uint32, error) {
	chain, _, err := t.walk(start, -1)
	return chain, err
}

// ChainFor returns the first ceil(size/unit) units of the chain at start.
// A chain shorter than that is corruption; links past the declared size are
// ignored.
func (t *AllocationTable) ChainFor(start uint32, size uint64, unit int) ([]uint32, error) {
	chain, _, err := t.chainFor(start, size, unit)
	return chain, err
}

// chainFor is ChainFor that also reports whether the chain continues past
// the declared size.
func (t *AllocationTable) chainFor(start uint32, size uint64, unit int) ([]uint32, bool, error) {
	need := buf.CeilDiv64(size, unit)
	if need == 0 {
		return nil, false, nil
	}
	if need > uint64(t.limit) {
		return nil, false, corruptf("%s: size %d needs %d units, table addresses %d", t.name, size, need, t.limit)
	}
	chain, more, err := t.walk(start, int(need))
	if err != nil {
		return nil, false, err
	}
	if uint64(len(chain)) < need {
		return nil, false, corruptf("%s: chain at %d has %d units, size %d needs %d", t.name, start, len(chain), size, need)
	}
	return chain, more, nil
}

// walk collects up to maxUnits units (all when negative). more reports that the
// chain continued past maxUnits.
func (t *AllocationTable) walk(start uint32, maxUnits int) (chain []uint32, more bool, err error) {
	seen := newBitset(t.limit)
	cur := start
	for cur != format.EndOfChain {
		if maxUnits >= 0 && len(chain) == maxUnits {
			return chain, true, nil
		}
		if format.IsSentinel(cur) {
			return nil, false, corruptf("%s: chain at %d reaches sentinel %#x after %d units", t.name, start, cur, len(chain))
		}
		if !t.inRange(cur) {
			return nil, false, corruptf("%s: chain at %d reaches index %d outside [0,%d)", t.name, start, cur, t.limit)
		}
		if seen.testAndSet(cur) {
			return nil, false, corruptf("%s: chain at %d revisits index %d", t.name, start, cur)
		}
		chain = append(chain, cur)
		cur = t.entries[cur]
	}
	return chain, false, nil
}

type bitset []uint64

func newBitset(n int) bitset { return make(bitset, (n+63)/64) }

func (b bitset) testAndSet(i uint32) bool {
	w, m := i/64, uint64(1)<<(i%64)
	if b[w]&m != 0 {
		return true
	}
	b[w] |= m
	return false
}

// BuildFAT locates every FAT sector through the header's inline DIFAT array
// and the DIFAT sector chain, then decodes them into one table.
//
// Declared counts are checked against the number of sectors in src before
// anything is allocated from them.
func BuildFAT(h *format.Header, src SectorSource) (*AllocationTable, error) {
	count := src.Count()
	if int64(h.FATSectorCount) > int64(count) {
		return nil, sanityf("header declares %d FAT sectors, file holds %d sectors", h.FATSectorCount, count)
	}
	if int64(h.DIFATCount) > int64(count) {
		return nil, sanityf("header declares %d DIFAT sectors, file holds %d sectors", h.DIFATCount, count)
	}
	nFAT := int(h.FATSectorCount)
	per := src.SectorSize() / format.DWORDSize

	fatSects := make([]uint32, 0, nFAT)
	fatSects = append(fatSects, h.InlineFATSectors()...)

	seen := newBitset(count)
	cur := h.DIFATStart
	for len(fatSects) < nFAT {
		if cur == format.EndOfChain || cur == format.FreeSect {
			return nil, corruptf("DIFAT chain ends after %d of %d FAT sectors", len(fatSects), nFAT)
		}
		if int64(cur) >= int64(count) {
			return nil, corruptf("DIFAT sector %d outside [0,%d)", cur, count)
		}
		if seen.testAndSet(cur) {
			return nil, corruptf("DIFAT chain revisits sector %d", cur)
		}
		sec, err := src.Sector(cur)
		if err != nil {
			return nil, err
		}
		for j := 0; j < per-1 && len(fatSects) < nFAT; j++ {
			fatSects = append(fatSects, buf.U32LE(sec[j*format.DWORDSize:]))
		}
		cur = buf.U32LE(sec[(per-1)*format.DWORDSize:])
	}

	entries := make([]uint32, 0, nFAT*per)
	for k, idx := range fatSects {
		if int64(idx) >= int64(count) {
			return nil, corruptf("FAT sector %d is %#x, outside [0,%d)", k, idx, count)
		}
		sec, err := src.Sector(idx)
		if err != nil {
			return nil, err
		}
		for j := 0; j < per; j++ {
			entries = append(entries, buf.U32LE(sec[j*format.DWORDSize:]))
		}
	}
	return newAllocationTable("fat", entries, count), nil
}
