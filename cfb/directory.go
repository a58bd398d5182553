package cfb

import (
	"log/slog"
	"math/bits"
	"slices"

	"github.com/joshuapare/cfbkit/internal/format"
	"github.com/joshuapare/cfbkit/pkg/types"
)

// Directory is the flat entry table plus the tree rebuilt from its links.
// Unused slots stay in the table so entry ids remain stable.
type Directory struct {
	entries []*Entry
	root    *Entry
	chain   []uint32
	// modified is set by entry setters that do not go through File.
	modified bool
}

// Root returns the root storage.
func (d *Directory) Root() *Entry { return d.root }

// Len returns the number of slots, used or not.
func (d *Directory) Len() int { return len(d.entries) }

// ReadDirectory decodes every entry on the directory chain and resolves the
// child and sibling links into a tree.
func ReadDirectory(h *format.Header, fat *AllocationTable, src SectorSource, log *slog.Logger) (*Directory, error) {
	if h.DirStart == format.EndOfChain {
		return nil, corruptf("directory: header has no directory chain")
	}
	chain, err := fat.Chain(h.DirStart)
	if err != nil {
		return nil, err
	}
	per := src.SectorSize() / format.EntrySize
	d := &Directory{entries: make([]*Entry, 0, len(chain)*per), chain: chain}
	for _, s := range chain {
		sec, err := src.Sector(s)
		if err != nil {
			return nil, err
		}
		for j := 0; j < per; j++ {
			id := uint32(len(d.entries))
			raw, clamped, err := format.DecodeEntry(sec[j*format.EntrySize:], h.MajorVersion)
			if err != nil {
				return nil, corruptf("directory entry %d: %w", id, err)
			}
			if clamped {
				log.Warn("directory name length clamped", "entry", id)
			}
			d.entries = append(d.entries, &Entry{d: d, id: id, raw: raw})
		}
	}
	if err := d.resolve(log); err != nil {
		return nil, err
	}
	return d, nil
}

// resolve builds the tree from entry 0. Each storage's sibling tree is walked
// in order, so children come out sorted the way the writer keyed them.
func (d *Directory) resolve(log *slog.Logger) error {
	if len(d.entries) == 0 || d.entries[0].raw.Type != format.TypeRoot {
		return corruptf("directory: no root entry")
	}
	d.root = d.entries[0]
	visited := make([]bool, len(d.entries))
	visited[0] = true

	queue := []*Entry{d.root}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		var stack []uint32
		cur := s.raw.Child
		for cur != format.NoStream || len(stack) > 0 {
			for cur != format.NoStream {
				if int64(cur) >= int64(len(d.entries)) {
					return corruptf("directory: entry %d links to %d outside [0,%d)", s.id, cur, len(d.entries))
				}
				if visited[cur] {
					return corruptf("directory: entry %d reached twice", cur)
				}
				visited[cur] = true
				e := d.entries[cur]
				switch e.raw.Type {
				case format.TypeEmpty:
					return corruptf("directory: link to unused entry %d", cur)
				case format.TypeRoot:
					return corruptf("directory: second root entry at %d", cur)
				}
				stack = append(stack, cur)
				cur = e.raw.Left
			}
			cur = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			e := d.entries[cur]
			e.parent = s
			s.children = append(s.children, e)
			if e.IsStorage() {
				queue = append(queue, e)
			} else if e.raw.Child != format.NoStream {
				log.Warn("stream entry has a child link, ignoring", "entry", cur)
			}
			cur = e.raw.Right
		}
	}

	orphans := 0
	for i, e := range d.entries {
		if !visited[i] && e.raw.Type != format.TypeEmpty {
			orphans++
		}
	}
	if orphans > 0 {
		log.Warn("unreachable directory entries", "count", orphans)
	}
	return nil
}

// newEntry places a fresh entry in the first unused slot.
func (d *Directory) newEntry(raw format.DirEntry) (*Entry, error) {
	for i := 1; i < len(d.entries); i++ {
		if d.entries[i].raw.Type == format.TypeEmpty && d.entries[i].parent == nil {
			e := &Entry{d: d, id: uint32(i), raw: raw}
			d.entries[i] = e
			return e, nil
		}
	}
	if uint64(len(d.entries)) > uint64(format.MaxStreamID) {
		return nil, types.Errorf(types.ErrKindUnsupported, "directory: entry table full")
	}
	e := &Entry{d: d, id: uint32(len(d.entries)), raw: raw}
	d.entries = append(d.entries, e)
	return e, nil
}

// free turns e's slot into an unused entry.
func (d *Directory) free(e *Entry) {
	d.entries[e.id] = &Entry{d: d, id: e.id, raw: format.EmptyEntry()}
}

// relink regenerates the sibling trees of every storage whose child set
// changed. Each tree is balanced; the deepest level is red when it is not
// full, so every path carries the same number of black nodes.
func (d *Directory) relink() {
	for _, s := range d.entries {
		if !s.relink || !s.IsStorage() {
			continue
		}
		s.relink = false
		kids := slices.Clone(s.children)
		slices.SortStableFunc(kids, func(a, b *Entry) int {
			return format.CompareNames(a.raw.Name, b.raw.Name)
		})
		s.children = kids
		n := len(kids)
		if n == 0 {
			s.raw.Child = format.NoStream
			continue
		}
		maxDepth := bits.Len(uint(n)) - 1
		full := n == 1<<(maxDepth+1)-1
		var build func(lo, hi, depth int) uint32
		build = func(lo, hi, depth int) uint32 {
			if lo >= hi {
				return format.NoStream
			}
			mid := (lo + hi) / 2
			e := kids[mid]
			e.raw.Left = build(lo, mid, depth+1)
			e.raw.Right = build(mid+1, hi, depth+1)
			e.raw.Color = format.ColorBlack
			if depth == maxDepth && !full {
				e.raw.Color = format.ColorRed
			}
			return e.id
		}
		s.raw.Child = build(0, n, 0)
	}
}

// encode serializes the table, dropping unused slots at the end and padding
// to whole sectors.
func (d *Directory) encode(ssz int, majorVersion uint16) ([]byte, error) {
	n := len(d.entries)
	for n > 1 && d.entries[n-1].raw.Type == format.TypeEmpty {
		n--
	}
	d.entries = d.entries[:n]
	per := ssz / format.EntrySize
	slots := (n + per - 1) / per * per
	out := make([]byte, slots*format.EntrySize)
	empty := format.EmptyEntry()
	for i := 0; i < slots; i++ {
		raw := &empty
		if i < n {
			raw = &d.entries[i].raw
		}
		if err := raw.Put(out[i*format.EntrySize:], majorVersion); err != nil {
			return nil, err
		}
	}
	return out, nil
}
