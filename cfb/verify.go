package cfb

import (
	"errors"
	"fmt"
	"time"

	"github.com/joshuapare/cfbkit/internal/format"
	"github.com/joshuapare/cfbkit/pkg/types"
)

// Verify checks every stream chain against the allocation tables and
// collects all problems rather than stopping at the first. Corrupt streams
// are reported as errors; chains longer than their stream, sectors shared
// between chains and allocated but unreferenced sectors are reported too.
//
// Verify inspects the state last opened or saved, so pending edits are a
// state error.
func (f *File) Verify() (*types.DiagnosticReport, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	if f.dirty || f.dir.modified {
		return nil, statef("verify: container has unsaved changes")
	}
	started := time.Now()
	v := &verifier{
		f:        f,
		report:   types.NewDiagnosticReport(),
		used:     newBitset(f.fat.Len()),
		miniUsed: newBitset(f.mini.table.Len()),
	}

	v.claim(f.fat, v.used, "directory", "", f.dir.chain)
	v.claim(f.fat, v.used, "minifat", "", f.mini.fatChain)
	if root := f.dir.root.raw; root.Size > 0 {
		v.stream(f.fat, v.used, "/", root.Start, root.Size, f.store.ssz)
	}

	_ = f.Walk(func(path string, e *Entry) error {
		switch {
		case !e.IsStream() || e.raw.Size == 0:
		case e.raw.Size < format.MiniStreamCutoff:
			v.stream(f.mini.table, v.miniUsed, path, e.raw.Start, e.raw.Size, f.mini.msz)
		default:
			v.stream(f.fat, v.used, path, e.raw.Start, e.raw.Size, f.store.ssz)
		}
		return nil
	})

	v.leaks(f.fat, v.used)
	v.leaks(f.mini.table, v.miniUsed)

	v.report.ScanTime = time.Since(started)
	v.report.Finalize()
	return v.report, nil
}

type verifier struct {
	f        *File
	report   *types.DiagnosticReport
	used     bitset
	miniUsed bitset
}

// offset returns the file offset of unit i of t, or -1 for mini units.
func (v *verifier) offset(t *AllocationTable, i uint32) int64 {
	if t != v.f.fat {
		return -1
	}
	return int64(i+1) * int64(v.f.store.ssz)
}

// claim marks chain as used and reports units already claimed by another
// chain.
func (v *verifier) claim(t *AllocationTable, used bitset, structure, path string, chain []uint32) {
	for _, s := range chain {
		if int(s) >= t.Len() {
			continue
		}
		if used.testAndSet(s) {
			v.report.Add(types.Diagnostic{
				Severity:  types.SevError,
				Category:  types.DiagIntegrity,
				Structure: structure,
				Path:      path,
				Offset:    v.offset(t, s),
				Issue:     fmt.Sprintf("%s unit %d is shared with another chain", t.name, s),
			})
		}
	}
}

func (v *verifier) stream(t *AllocationTable, used bitset, path string, start uint32, size uint64, unit int) {
	chain, more, err := t.chainFor(start, size, unit)
	if err != nil {
		sev, cat := types.SevError, types.DiagData
		if !errors.Is(err, types.ErrCorrupt) {
			cat = types.DiagStructure
		}
		v.report.Add(types.Diagnostic{
			Severity:  sev,
			Category:  cat,
			Structure: "stream",
			Path:      path,
			Offset:    v.offset(t, start),
			Issue:     err.Error(),
		})
		return
	}
	if more {
		v.report.Add(types.Diagnostic{
			Severity:  types.SevWarning,
			Category:  types.DiagIntegrity,
			Structure: "stream",
			Path:      path,
			Offset:    v.offset(t, chain[len(chain)-1]),
			Issue:     fmt.Sprintf("%s chain continues past the %d-byte stream", t.name, size),
		})
		if full, err := t.Chain(start); err == nil {
			chain = full
		}
	}
	v.claim(t, used, "stream", path, chain)
}

// leaks reports allocated units that no chain reaches.
func (v *verifier) leaks(t *AllocationTable, used bitset) {
	n := 0
	first := -1
	for i := 0; i < min(t.Len(), t.limit); i++ {
		switch t.entries[i] {
		case format.FreeSect, format.FATSect, format.DIFATSect:
			continue
		}
		if used.testAndSet(uint32(i)) {
			continue
		}
		if first < 0 {
			first = i
		}
		n++
	}
	if n == 0 {
		return
	}
	v.report.Add(types.Diagnostic{
		Severity:  types.SevInfo,
		Category:  types.DiagPerformance,
		Structure: t.name,
		Offset:    v.offset(t, uint32(first)),
		Issue:     fmt.Sprintf("%d allocated units are not reachable from any chain", n),
	})
}
