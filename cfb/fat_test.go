package cfb

import (
	"io"
	"log/slog"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/cfbkit/internal/buf"
	"github.com/joshuapare/cfbkit/internal/format"
	"github.com/joshuapare/cfbkit/pkg/types"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func sourceOf(b []byte) SectorSource {
	return newMemSource(b, format.SmallSectorSize, nil, discard)
}

func TestBuildFATMinimal(t *testing.T) {
	r := newRawContainer(t, 2)
	fat, err := BuildFAT(&r.hdr, sourceOf(r.bytes()))
	require.NoError(t, err)
	require.Equal(t, 128, fat.Len())
	require.Equal(t, 2, fat.Limit())

	next, err := fat.Next(0)
	require.NoError(t, err)
	require.Equal(t, format.FATSect, next)

	chain, err := fat.Chain(1)
	require.NoError(t, err)
	require.Equal(t, []uint32{1}, chain)
}

func TestBuildFATSizeSanity(t *testing.T) {
	r := newRawContainer(t, 2)
	r.hdr.FATSectorCount = 0x00FFFFFF
	_, err := BuildFAT(&r.hdr, sourceOf(r.bytes()))
	require.ErrorIs(t, err, types.ErrSizeSanity)

	_, err = OpenBytes(r.bytes())
	require.ErrorIs(t, err, types.ErrSizeSanity)
}

func TestBuildFATDIFATSizeSanity(t *testing.T) {
	r := newRawContainer(t, 2)
	r.hdr.DIFATCount = 1000
	_, err := BuildFAT(&r.hdr, sourceOf(r.bytes()))
	require.ErrorIs(t, err, types.ErrSizeSanity)
}

func TestBuildFATMissingDIFATChain(t *testing.T) {
	r := newRawContainer(t, format.HeaderDIFATEntries+2)
	r.hdr.FATSectorCount = format.HeaderDIFATEntries + 1
	for i := range r.hdr.DIFAT {
		r.hdr.DIFAT[i] = 0
	}
	r.hdr.DIFATStart = format.EndOfChain
	_, err := BuildFAT(&r.hdr, sourceOf(r.bytes()))
	require.ErrorIs(t, err, types.ErrCorrupt)
	require.Contains(t, err.Error(), "DIFAT chain ends")
}

func TestBuildFATDIFATCycle(t *testing.T) {
	r := newRawContainer(t, 240)
	r.hdr.FATSectorCount = format.HeaderDIFATEntries + 127 + 1
	for i := range r.hdr.DIFAT {
		r.hdr.DIFAT[i] = 0
	}
	// Sector 2 is a DIFAT sector whose next pointer is itself.
	difat := r.sectors[2]
	for j := 0; j < 127; j++ {
		format.PutU32(difat, j*4, 0)
	}
	format.PutU32(difat, 127*4, 2)
	r.hdr.DIFATStart = 2
	r.hdr.DIFATCount = 1
	_, err := BuildFAT(&r.hdr, sourceOf(r.bytes()))
	require.ErrorIs(t, err, types.ErrCorrupt)
	require.Contains(t, err.Error(), "revisits")
}

func TestBuildFATOutOfRangeFATSector(t *testing.T) {
	r := newRawContainer(t, 2)
	r.hdr.DIFAT[0] = 40
	_, err := BuildFAT(&r.hdr, sourceOf(r.bytes()))
	require.ErrorIs(t, err, types.ErrCorrupt)
}

func TestChainSelfReference(t *testing.T) {
	r := newRawContainer(t, 3)
	r.setFAT(format.FATSect, format.EndOfChain, 2)
	fat, err := BuildFAT(&r.hdr, sourceOf(r.bytes()))
	require.NoError(t, err)

	_, err = fat.Chain(2)
	require.ErrorIs(t, err, types.ErrCorrupt)
	require.Contains(t, err.Error(), "revisits")

	_, err = fat.ChainFor(2, 4*512, 512)
	require.ErrorIs(t, err, types.ErrCorrupt)
}

func TestChainLongCycle(t *testing.T) {
	r := newRawContainer(t, 5)
	r.setFAT(format.FATSect, format.EndOfChain, 3, 4, 2)
	fat, err := BuildFAT(&r.hdr, sourceOf(r.bytes()))
	require.NoError(t, err)
	_, err = fat.Chain(2)
	require.ErrorIs(t, err, types.ErrCorrupt)
}

func TestChainOutOfRangeAndSentinels(t *testing.T) {
	r := newRawContainer(t, 4)
	r.setFAT(format.FATSect, format.EndOfChain, 90, format.FreeSect)
	fat, err := BuildFAT(&r.hdr, sourceOf(r.bytes()))
	require.NoError(t, err)

	_, err = fat.Chain(2)
	require.ErrorIs(t, err, types.ErrCorrupt)
	require.Contains(t, err.Error(), "outside")

	_, err = fat.Chain(3)
	require.ErrorIs(t, err, types.ErrCorrupt)
	require.Contains(t, err.Error(), "sentinel")

	_, err = fat.Next(4)
	require.ErrorIs(t, err, types.ErrCorrupt)

	chain, err := fat.Chain(format.EndOfChain)
	require.NoError(t, err)
	require.Empty(t, chain)
}

func TestChainForSizes(t *testing.T) {
	r := newRawContainer(t, 6)
	r.setFAT(format.FATSect, format.EndOfChain, 3, 4, 5, format.EndOfChain)
	fat, err := BuildFAT(&r.hdr, sourceOf(r.bytes()))
	require.NoError(t, err)

	tests := []struct {
		size uint64
		want []uint32
	}{
		{0, nil},
		{1, []uint32{2}},
		{512, []uint32{2}},
		{513, []uint32{2, 3}},
		{4 * 512, []uint32{2, 3, 4, 5}},
	}
	for _, tt := range tests {
		got, err := fat.ChainFor(2, tt.size, 512)
		require.NoError(t, err, "size %d", tt.size)
		require.Equal(t, tt.want, got, "size %d", tt.size)
	}

	_, err = fat.ChainFor(2, 4*512+1, 512)
	require.ErrorIs(t, err, types.ErrCorrupt)
	_, err = fat.ChainFor(2, 1<<40, 512)
	require.ErrorIs(t, err, types.ErrCorrupt)
}

func TestAllocateReusesFreedUnits(t *testing.T) {
	table := newAllocationTable("fat", nil, 0)
	a := table.allocate(3)
	table.link(a)
	require.Equal(t, []uint32{0, 1, 2}, a)
	b := table.allocate(2)
	table.link(b)
	require.Equal(t, []uint32{3, 4}, b)

	table.release(a)
	c := table.allocate(4)
	table.link(c)
	require.Equal(t, []uint32{0, 1, 2, 5}, c)
	require.Equal(t, 6, table.Limit())

	got, err := table.Chain(0)
	require.NoError(t, err)
	require.Equal(t, c, got)
	require.Equal(t, 6, table.usedLimit())
}

func TestChainProperties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	// Interleave allocations and releases so chains are fragmented, then
	// check that every chain resolves to ceil(size/unit) distinct in-range
	// units.
	properties.Property("ChainFor length matches size", prop.ForAll(
		func(in []int) bool {
			for _, unit := range []int{64, 512, 4096} {
				sizes := append([]int(nil), in...)
				table := newAllocationTable("fat", nil, 0)
				starts := make([]uint32, len(sizes))
				for i, s := range sizes {
					chain := table.allocate(buf.CeilDiv(s, unit))
					table.link(chain)
					if len(chain) > 0 {
						starts[i] = chain[0]
					}
					if i%3 == 2 && sizes[i-1] > 0 {
						old, err := table.ChainFor(starts[i-1], uint64(sizes[i-1]), unit)
						if err != nil {
							return false
						}
						table.release(old)
						sizes[i-1] = 0
					}
				}
				for i, s := range sizes {
					if s == 0 {
						continue
					}
					chain, err := table.ChainFor(starts[i], uint64(s), unit)
					if err != nil || len(chain) != buf.CeilDiv(s, unit) {
						return false
					}
					seen := map[uint32]bool{}
					for _, u := range chain {
						if seen[u] || int(u) >= table.Limit() {
							return false
						}
						seen[u] = true
					}
				}
			}
			return true
		},
		gen.SliceOfN(12, gen.IntRange(0, 20000)),
	))

	properties.TestingRun(t)
}
