package cf

import (
	"errors"
	"log/slog"
	"slices"

	"github.com/joshuapare/cfbkit/biff"
	"github.com/joshuapare/cfbkit/biff/ptg"
	"github.com/joshuapare/cfbkit/pkg/types"
)

func boundsf(format string, args ...any) error {
	return types.Errorf(types.ErrKindBounds, format, args...)
}

// Aggregate is one conditional formatting block: a header and its rules.
// The header's rule count always matches the rule list.
type Aggregate struct {
	header *Header
	rules  []*Rule
	opts   Options
}

// ReadAggregate consumes a CFHEADER record and the CF records it declares
// from rs. A missing or foreign record where a rule is expected is a
// bounds error.
func ReadAggregate(rs *biff.RecordStream, opts ...Option) (*Aggregate, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	rec := rs.Next()
	h, ok := rec.(*Header)
	if !ok {
		if rec == nil {
			return nil, boundsf("expected CFHEADER, stream ended")
		}
		return nil, boundsf("expected CFHEADER, found %s", biff.SidName(rec.Sid()))
	}
	a := &Aggregate{header: h.clone(), opts: o}
	a.rules = make([]*Rule, 0, min(int(h.NumCF), 64))
	for i := range int(h.NumCF) {
		if !rs.HasNext() {
			return nil, boundsf("CFHEADER declares %d rules, stream ended after %d", h.NumCF, i)
		}
		r, ok := rs.Next().(*Rule)
		if !ok {
			return nil, boundsf("CFHEADER declares %d rules, record %d is not CF", h.NumCF, i)
		}
		a.rules = append(a.rules, r.clone())
	}
	a.checkLimit()
	return a, nil
}

// NewAggregate builds a block applying rules to ranges.
func NewAggregate(ranges []ptg.Area, rules []*Rule, opts ...Option) (*Aggregate, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	if len(ranges) == 0 {
		return nil, errors.New("cf: at least one range is required")
	}
	for _, r := range ranges {
		if !r.Valid() {
			return nil, boundsf("range %v outside the sheet", r)
		}
	}
	a := &Aggregate{
		header: &Header{Ranges: slices.Clone(ranges), Bounds: enclosing(ranges)},
		opts:   o,
	}
	for i, r := range rules {
		if r == nil {
			return nil, boundsf("rule %d is nil", i)
		}
		a.rules = append(a.rules, r.clone())
	}
	a.sync()
	a.checkLimit()
	return a, nil
}

func (a *Aggregate) sync() { a.header.NumCF = uint16(len(a.rules)) }

func (a *Aggregate) checkLimit() {
	if n := len(a.rules); n > a.opts.SoftRuleLimit {
		a.opts.Logger.Warn("conditional format block exceeds legacy rule limit",
			slog.Int("rules", n), slog.Int("limit", a.opts.SoftRuleLimit))
	}
}

// Header returns a copy of the header with the current rule count.
func (a *Aggregate) Header() *Header { return a.header.clone() }

// Ranges returns the cell ranges the block applies to.
func (a *Aggregate) Ranges() []ptg.Area { return slices.Clone(a.header.Ranges) }

func (a *Aggregate) Len() int { return len(a.rules) }

func (a *Aggregate) Get(i int) (*Rule, error) {
	if i < 0 || i >= len(a.rules) {
		return nil, boundsf("rule %d of %d", i, len(a.rules))
	}
	return a.rules[i], nil
}

// Set replaces rule i with a copy of r.
func (a *Aggregate) Set(i int, r *Rule) error {
	if r == nil {
		return boundsf("rule %d is nil", i)
	}
	if i < 0 || i >= len(a.rules) {
		return boundsf("rule %d of %d", i, len(a.rules))
	}
	a.rules[i] = r.clone()
	return nil
}

// Add appends a copy of r. Going past the soft rule limit logs a warning only.
func (a *Aggregate) Add(r *Rule) error {
	if r == nil {
		return boundsf("rule is nil")
	}
	if len(a.rules) == 0xFFFF {
		return boundsf("block already holds %d rules", len(a.rules))
	}
	a.rules = append(a.rules, r.clone())
	a.sync()
	a.checkLimit()
	return nil
}

func (a *Aggregate) Remove(i int) error {
	if i < 0 || i >= len(a.rules) {
		return boundsf("rule %d of %d", i, len(a.rules))
	}
	a.rules = slices.Delete(a.rules, i, i+1)
	a.sync()
	return nil
}

// Records returns the header followed by the rules.
func (a *Aggregate) Records() []biff.Record {
	a.sync()
	out := make([]biff.Record, 0, 1+len(a.rules))
	out = append(out, a.header.clone())
	for _, r := range a.rules {
		out = append(out, r)
	}
	return out
}

// Serialize encodes the block as a record sequence.
func (a *Aggregate) Serialize() []byte {
	var dst []byte
	for _, r := range a.Records() {
		dst = biff.AppendRecord(dst, r)
	}
	return dst
}

// Shift moves the block's ranges and the references inside its rule
// formulas. Ranges that are deleted are dropped; when none remain Shift
// returns false and the block should be removed. Deleted formula
// references become error tokens. Formulas that cannot be tokenized are
// kept as they are.
func (a *Aggregate) Shift(s ptg.Shifter) bool {
	var ranges []ptg.Area
	for _, r := range a.header.Ranges {
		nr, o := s.ShiftArea(r)
		if o == ptg.Deleted {
			continue
		}
		ranges = append(ranges, nr)
	}
	if len(ranges) == 0 {
		return false
	}
	a.header.Ranges = ranges
	a.header.Bounds = enclosing(ranges)

	for i, r := range a.rules {
		for _, f := range []*[]byte{&r.Formula1, &r.Formula2} {
			if len(*f) == 0 {
				continue
			}
			out, _, err := ptg.Shift(*f, s)
			if err != nil {
				a.opts.Logger.Warn("conditional format formula left unshifted",
					slog.Int("rule", i), slog.String("error", err.Error()))
				continue
			}
			*f = out
		}
	}
	return true
}
