package cf

import (
	"slices"

	"github.com/joshuapare/cfbkit/biff"
	"github.com/joshuapare/cfbkit/biff/ptg"
)

// Table is the ordered list of conditional formatting blocks of a sheet.
type Table struct {
	aggs []*Aggregate
}

func NewTable() *Table { return &Table{} }

// ReadTable collects every block in recs. Records outside blocks are
// ignored.
func ReadTable(recs []biff.Record, opts ...Option) (*Table, error) {
	if _, err := buildOptions(opts); err != nil {
		return nil, err
	}
	t := NewTable()
	rs := biff.NewRecordStream(recs)
	for rs.HasNext() {
		if rs.PeekSid() != biff.SidCFHeader {
			rs.Next()
			continue
		}
		a, err := ReadAggregate(rs, opts...)
		if err != nil {
			return nil, err
		}
		t.aggs = append(t.aggs, a)
	}
	return t, nil
}

func (t *Table) Len() int { return len(t.aggs) }

func (t *Table) Get(i int) (*Aggregate, error) {
	if i < 0 || i >= len(t.aggs) {
		return nil, boundsf("block %d of %d", i, len(t.aggs))
	}
	return t.aggs[i], nil
}

// Aggregates returns the blocks in order.
func (t *Table) Aggregates() []*Aggregate { return slices.Clone(t.aggs) }

func (t *Table) Add(a *Aggregate) {
	t.aggs = append(t.aggs, a)
}

func (t *Table) Remove(i int) error {
	if i < 0 || i >= len(t.aggs) {
		return boundsf("block %d of %d", i, len(t.aggs))
	}
	t.aggs = slices.Delete(t.aggs, i, i+1)
	return nil
}

// Shift applies s to every block and removes the blocks that no longer
// cover any cell. It returns the number removed.
func (t *Table) Shift(s ptg.Shifter) int {
	kept := t.aggs[:0]
	for _, a := range t.aggs {
		if a.Shift(s) {
			kept = append(kept, a)
		}
	}
	removed := len(t.aggs) - len(kept)
	clear(t.aggs[len(kept):])
	t.aggs = kept
	return removed
}

// Records returns all blocks as one record sequence.
func (t *Table) Records() []biff.Record {
	var out []biff.Record
	for _, a := range t.aggs {
		out = append(out, a.Records()...)
	}
	return out
}
