package buf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEndianHelpers(t *testing.T) {
	data := []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}

	require.Equal(t, uint16(0x2301), U16LE(data))
	require.Equal(t, uint32(0x67452301), U32LE(data))
	require.Equal(t, uint64(0xefcdab8967452301), U64LE(data))
	require.Equal(t, int32(0x67452301), I32LE(data))
	require.Equal(t, int16(-2), I16LE([]byte{0xFE, 0xFF}))

	short := []byte{0xAA}
	require.Zero(t, U16LE(short))
	require.Zero(t, U32LE(short))
	require.Zero(t, U64LE(short))
	require.Zero(t, F64LE(short))
}

func TestAppendHelpers(t *testing.T) {
	b := AppendU16(nil, 0x0201)
	b = AppendU32(b, 0x06050403)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6}, b)

	f := AppendF64(nil, 1.5)
	require.Equal(t, 1.5, F64LE(f))
}
