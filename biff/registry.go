package biff

import (
	"fmt"
	"maps"
	"slices"

	"github.com/joshuapare/cfbkit/pkg/types"
)

// Decoder reads the payload of the current record. The stream is positioned
// just after the envelope; the decoder must consume the whole payload.
type Decoder func(in *RecordInputStream) (Record, error)

// Registry maps sids to decoders.
type Registry struct {
	decoders map[uint16]Decoder
}

func NewRegistry() *Registry {
	return &Registry{decoders: make(map[uint16]Decoder)}
}

// DefaultRegistry returns a registry with the substream framing records.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.Register(SidBoundSheet, DecodeBoundSheet)
	reg.Register(SidBOF, decodeBOF)
	reg.Register(SidEOF, decodeEOF)
	reg.Register(SidDimensions, decodeDimensions)
	return reg
}

// Register installs dec for sid, replacing any previous decoder.
func (reg *Registry) Register(sid uint16, dec Decoder) {
	reg.decoders[sid] = dec
}

// Lookup returns the decoder for sid.
func (reg *Registry) Lookup(sid uint16) (Decoder, bool) {
	dec, ok := reg.decoders[sid]
	return dec, ok
}

// Sids returns the registered sids in ascending order.
func (reg *Registry) Sids() []uint16 {
	return slices.Sorted(maps.Keys(reg.decoders))
}

// ReadRecords decodes every remaining record of in. Records without a
// decoder, and CONTINUE records nobody consumed, come back as
// *UnknownRecord holding their raw payload, so writing the result out
// again reproduces the input.
func ReadRecords(in *RecordInputStream, reg *Registry) ([]Record, error) {
	if reg == nil {
		reg = DefaultRegistry()
	}
	var out []Record
	for {
		ok, err := in.HasNextRecord()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		if err := in.NextRecord(); err != nil {
			return out, err
		}
		rec, err := readOne(in, reg)
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

func readOne(in *RecordInputStream, reg *Registry) (Record, error) {
	sid := in.Sid()
	dec, ok := reg.Lookup(sid)
	if !ok {
		data, err := in.ReadRemainder()
		if err != nil {
			return nil, err
		}
		return &UnknownRecord{ID: sid, Data: data}, nil
	}
	rec, err := dec(in)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", SidName(sid), err)
	}
	if n := in.Remaining(); n > 0 {
		return nil, types.Errorf(types.ErrKindBounds, "decoder for %s left %d bytes unread", SidName(sid), n)
	}
	return rec, nil
}
