package cfb

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joshuapare/cfbkit/internal/buf"
	"github.com/joshuapare/cfbkit/internal/format"
	"github.com/joshuapare/cfbkit/internal/mmfile"
)

// Save writes the container to w. Pending changes are laid out first: the
// mini stream container, mini FAT and directory are rewritten into fresh
// chains, then FAT and DIFAT sectors are sized until the FAT covers itself.
func (f *File) Save(w io.Writer) error {
	if err := f.check(); err != nil {
		return err
	}
	if err := f.flush(); err != nil {
		return err
	}
	bw := bufio.NewWriterSize(w, 64<<10)
	head := make([]byte, f.store.ssz)
	f.hdr.Put(head)
	if _, err := bw.Write(head); err != nil {
		return fmt.Errorf("cfb: write header: %w", err)
	}
	for i := 0; i < f.store.count; i++ {
		b, err := f.store.read(uint32(i))
		if err != nil {
			return err
		}
		if _, err := bw.Write(b); err != nil {
			return fmt.Errorf("cfb: write sector %d: %w", i, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("cfb: flush: %w", err)
	}
	f.log.Debug("saved compound file",
		"sectors", f.store.count,
		"fat_sectors", f.hdr.FATSectorCount,
		"difat_sectors", f.hdr.DIFATCount,
		"minifat_sectors", f.hdr.MiniFATCount)
	return nil
}

// SaveFile writes the container to path through a temporary file in the
// same directory, synced and renamed into place.
func (f *File) SaveFile(path string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("cfb: save %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	if err = f.Save(tmp); err != nil {
		return err
	}
	if err = mmfile.Sync(tmp); err != nil {
		return fmt.Errorf("cfb: sync %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("cfb: close %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("cfb: rename to %s: %w", path, err)
	}
	return nil
}

func (f *File) flush() error {
	if !f.dirty && !f.dir.modified {
		return nil
	}
	if err := f.flushMini(); err != nil {
		return err
	}
	if err := f.flushDirectory(); err != nil {
		return err
	}
	if err := f.layoutFAT(); err != nil {
		return err
	}
	f.dirty = false
	f.dir.modified = false
	return nil
}

// flushMini writes the mini stream container to the root entry's chain and
// the mini FAT to its own chain.
func (f *File) flushMini() error {
	m := f.mini
	if !m.dirty {
		return nil
	}
	if err := m.materialize(); err != nil {
		return err
	}
	root := f.dir.root
	f.releaseData(root)
	root.raw.Start, root.raw.Size = format.EndOfChain, 0

	used := m.table.usedLimit()
	m.table.limit = used
	if len(m.table.entries) > used {
		m.table.entries = m.table.entries[:used]
	}
	if m.table.hint > used {
		m.table.hint = used
	}
	m.data = m.data[:min(len(m.data), used*m.msz)]
	if used > 0 {
		chain, err := f.writeBig(m.data)
		if err != nil {
			return err
		}
		root.raw.Start, root.raw.Size = chain[0], uint64(len(m.data))
	}

	f.fat.release(m.fatChain)
	m.fatChain = nil
	f.hdr.MiniFATStart, f.hdr.MiniFATCount = format.EndOfChain, 0
	if used > 0 {
		per := f.store.ssz / format.DWORDSize
		raw := make([]byte, buf.CeilDiv(used, per)*per*format.DWORDSize)
		for i := range raw[:len(raw)/format.DWORDSize] {
			v := format.FreeSect
			if i < used {
				v = m.table.entries[i]
			}
			format.PutU32(raw, i*format.DWORDSize, v)
		}
		chain, err := f.writeBig(raw)
		if err != nil {
			return err
		}
		m.fatChain = chain
		f.hdr.MiniFATStart, f.hdr.MiniFATCount = chain[0], uint32(len(chain))
	}
	m.dirty = false
	return nil
}

func (f *File) flushDirectory() error {
	f.dir.relink()
	raw, err := f.dir.encode(f.store.ssz, f.hdr.MajorVersion)
	if err != nil {
		return err
	}
	f.fat.release(f.dir.chain)
	chain, err := f.writeBig(raw)
	if err != nil {
		return err
	}
	f.dir.chain = chain
	f.hdr.DirStart = chain[0]
	f.hdr.DirSectorCount = 0
	if f.hdr.MajorVersion >= 4 {
		f.hdr.DirSectorCount = uint32(len(chain))
	}
	return nil
}

// layoutFAT places FAT and DIFAT sectors. Adding them can grow the file,
// which can require more of them, so sizing repeats until stable.
func (f *File) layoutFAT() error {
	t := f.fat
	for i, v := range t.entries {
		if v == format.FATSect || v == format.DIFATSect {
			t.entries[i] = format.FreeSect
			t.hint = min(t.hint, i)
		}
	}
	per := f.store.ssz / format.DWORDSize
	var fatSects, difSects []uint32
	for {
		needFAT := buf.CeilDiv(t.limit, per)
		needDIF := 0
		if needFAT > format.HeaderDIFATEntries {
			needDIF = buf.CeilDiv(needFAT-format.HeaderDIFATEntries, per-1)
		}
		if len(fatSects) >= needFAT && len(difSects) >= needDIF {
			break
		}
		for len(fatSects) < needFAT {
			s := t.allocate(1)[0]
			t.entries[s] = format.FATSect
			fatSects = append(fatSects, s)
		}
		for len(difSects) < needDIF {
			s := t.allocate(1)[0]
			t.entries[s] = format.DIFATSect
			difSects = append(difSects, s)
		}
	}

	size := len(fatSects) * per
	for i := t.limit; i < min(len(t.entries), size); i++ {
		t.entries[i] = format.FreeSect
	}
	if len(t.entries) > size {
		t.entries = t.entries[:size]
	}
	for len(t.entries) < size {
		t.entries = append(t.entries, format.FreeSect)
	}
	f.store.grow(t.limit)

	for k, s := range fatSects {
		b, err := f.store.writable(s)
		if err != nil {
			return err
		}
		for j := 0; j < per; j++ {
			format.PutU32(b, j*format.DWORDSize, t.entries[k*per+j])
		}
	}

	h := &f.hdr
	h.FATSectorCount = uint32(len(fatSects))
	for i := range h.DIFAT {
		h.DIFAT[i] = format.FreeSect
		if i < len(fatSects) {
			h.DIFAT[i] = fatSects[i]
		}
	}
	var rest []uint32
	if len(fatSects) > format.HeaderDIFATEntries {
		rest = fatSects[format.HeaderDIFATEntries:]
	}
	h.DIFATStart, h.DIFATCount = format.EndOfChain, uint32(len(difSects))
	if len(difSects) > 0 {
		h.DIFATStart = difSects[0]
	}
	for d, s := range difSects {
		b, err := f.store.writable(s)
		if err != nil {
			return err
		}
		for j := 0; j < per-1; j++ {
			v := format.FreeSect
			if idx := d*(per-1) + j; idx < len(rest) {
				v = rest[idx]
			}
			format.PutU32(b, j*format.DWORDSize, v)
		}
		next := format.EndOfChain
		if d+1 < len(difSects) {
			next = difSects[d+1]
		}
		format.PutU32(b, (per-1)*format.DWORDSize, next)
	}
	return nil
}
