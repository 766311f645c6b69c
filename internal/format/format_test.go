package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncoding_RoundTrip(t *testing.T) {
	b := make([]byte, 16)
	PutU16(b, 0, 0xBEEF)
	PutU32(b, 2, 0xCAFEBABE)
	PutU64(b, 6, 0x0123456789ABCDEF)

	require.Equal(t, uint16(0xBEEF), ReadU16(b, 0))
	require.Equal(t, uint32(0xCAFEBABE), ReadU32(b, 2))
	require.Equal(t, uint64(0x0123456789ABCDEF), ReadU64(b, 6))
}

func TestCheckedReads(t *testing.T) {
	b := make([]byte, 8)
	_, err := CheckedReadU64(b, 1)
	require.ErrorIs(t, err, ErrBoundsCheck)

	v, err := CheckedReadU64(b, 0)
	require.NoError(t, err)
	require.Zero(t, v)

	_, err = CheckedReadU32(b, 6)
	require.ErrorIs(t, err, ErrBoundsCheck)
}

func TestAlignUp(t *testing.T) {
	require.Equal(t, uint64(0), AlignUp(0, 8))
	require.Equal(t, uint64(8), AlignUp(1, 8))
	require.Equal(t, uint64(8), AlignUp(8, 8))
	require.Equal(t, uint64(16), AlignUp(9, 8))
	require.Equal(t, uint64(7), AlignUp(7, 0))
}

func TestHashes_IndependentDigests(t *testing.T) {
	data := []byte("parlib chunk payload")
	require.NotEqual(t, Checksum64(data), ContentHash64(data))
	require.Equal(t, Checksum64(data), Checksum64(data))

	// empty payloads share the FNV offset basis
	require.Equal(t, uint64(fnvOffset64), Checksum64(nil))
}

func TestTocLayoutIs48Bytes(t *testing.T) {
	require.Equal(t, 48, TocEntrySize)
	require.Equal(t, 0x2C, TocDeduplicatedOffset)
}
