package cfb

import (
	"github.com/joshuapare/cfbkit/internal/buf"
	"github.com/joshuapare/cfbkit/internal/format"
)

// allocate reserves n units, reusing free entries before extending the
// table. Reserved units are marked ENDOFCHAIN until linked.
func (t *AllocationTable) allocate(n int) []uint32 {
	out := make([]uint32, 0, n)
	for i := t.hint; i < len(t.entries) && len(out) < n; i++ {
		if t.entries[i] == format.FreeSect {
			t.entries[i] = format.EndOfChain
			out = append(out, uint32(i))
			t.hint = i + 1
		}
	}
	for len(out) < n {
		t.entries = append(t.entries, format.EndOfChain)
		out = append(out, uint32(len(t.entries)-1))
		t.hint = len(t.entries)
	}
	for _, i := range out {
		if int(i) >= t.limit {
			t.limit = int(i) + 1
		}
	}
	return out
}

// link writes the successor of each unit so chain reads back in order.
func (t *AllocationTable) link(chain []uint32) {
	for k, i := range chain {
		if k+1 < len(chain) {
			t.entries[i] = chain[k+1]
		} else {
			t.entries[i] = format.EndOfChain
		}
	}
}

// release marks every unit of chain free.
func (t *AllocationTable) release(chain []uint32) {
	for _, i := range chain {
		t.entries[i] = format.FreeSect
		if int(i) < t.hint {
			t.hint = int(i)
		}
	}
}

// usedLimit returns one past the highest unit that is not free.
func (t *AllocationTable) usedLimit() int {
	for i := min(t.limit, len(t.entries)) - 1; i >= 0; i-- {
		if t.entries[i] != format.FreeSect {
			return i + 1
		}
	}
	return 0
}

// writeBig stores data in a fresh chain of regular sectors and returns it.
func (f *File) writeBig(data []byte) ([]uint32, error) {
	ssz := f.store.ssz
	chain := f.fat.allocate(buf.CeilDiv(len(data), ssz))
	f.fat.link(chain)
	f.store.grow(f.fat.limit)
	for k, s := range chain {
		b, err := f.store.writable(s)
		if err != nil {
			return nil, err
		}
		n := copy(b, data[k*ssz:])
		clear(b[n:])
	}
	return chain, nil
}

// writeMini stores data in a fresh chain of mini sectors and returns it.
func (f *File) writeMini(data []byte) ([]uint32, error) {
	if err := f.mini.materialize(); err != nil {
		return nil, err
	}
	chain := f.mini.table.allocate(buf.CeilDiv(len(data), f.mini.msz))
	f.mini.table.link(chain)
	for k, u := range chain {
		end := min((k+1)*f.mini.msz, len(data))
		f.mini.writeUnit(u, data[k*f.mini.msz:end])
	}
	f.mini.dirty = true
	return chain, nil
}

// releaseData returns the chain behind a stream entry to its table. A chain
// that cannot be walked is left allocated.
func (f *File) releaseData(e *Entry) {
	if e.raw.Size == 0 || e.raw.Start == format.EndOfChain {
		return
	}
	table, unit := f.fat, f.store.ssz
	if e.raw.Type == format.TypeStream && e.raw.Size < format.MiniStreamCutoff {
		table, unit = f.mini.table, f.mini.msz
		f.mini.dirty = true
	}
	chain, err := table.ChainFor(e.raw.Start, e.raw.Size, unit)
	if err != nil {
		f.log.Warn("leaking unreadable chain", "entry", e.Path(), "err", err)
		return
	}
	table.release(chain)
}

// writeStream replaces the content of a stream entry with data.
func (f *File) writeStream(e *Entry, data []byte) error {
	f.releaseData(e)
	e.raw.Start, e.raw.Size = format.EndOfChain, 0
	f.dirty = true
	if len(data) == 0 {
		return nil
	}
	var (
		chain []uint32
		err   error
	)
	if len(data) < format.MiniStreamCutoff {
		chain, err = f.writeMini(data)
	} else {
		chain, err = f.writeBig(data)
	}
	if err != nil {
		return err
	}
	e.raw.Start, e.raw.Size = chain[0], uint64(len(data))
	return nil
}
