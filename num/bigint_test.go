package num

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brant-lang/brant/types"
)

func TestParseLit(t *testing.T) {
	l, ok := ParseLit("1_000_000i64")
	require.True(t, ok)
	require.Equal(t, "1000000", l.Value.String())
	require.Equal(t, "i64", l.Suffix)

	l, ok = ParseLit("42")
	require.True(t, ok)
	require.Equal(t, "42", l.Value.String())
	require.Empty(t, l.Suffix)

	_, ok = ParseLit("abc")
	require.False(t, ok)
}

func TestFits_ExactBoundaries(t *testing.T) {
	maxI32 := big.NewInt(2147483647)
	require.True(t, Fits(maxI32, types.BuiltinI32))

	oneBeyond := big.NewInt(2147483648)
	require.False(t, Fits(oneBeyond, types.BuiltinI32))

	minI32 := big.NewInt(-2147483648)
	require.True(t, Fits(minI32, types.BuiltinI32))
	require.False(t, Fits(big.NewInt(-2147483649), types.BuiltinI32))

	require.True(t, Fits(big.NewInt(255), types.BuiltinU8))
	require.False(t, Fits(big.NewInt(256), types.BuiltinU8))
	require.False(t, Fits(big.NewInt(-1), types.BuiltinU8))
}

func TestFits_128Bit(t *testing.T) {
	one := big.NewInt(1)
	maxU128 := new(big.Int).Sub(new(big.Int).Lsh(one, 128), one)
	require.True(t, Fits(maxU128, types.BuiltinU128))
	require.False(t, Fits(new(big.Int).Add(maxU128, one), types.BuiltinU128))
}

func TestWrapTo(t *testing.T) {
	// i32 wrap: 2^31 wraps to -2^31
	v := new(big.Int).Lsh(big.NewInt(1), 31)
	require.Equal(t, "-2147483648", WrapTo(v, types.BuiltinI32).String())

	// u8 wrap: 300 -> 44
	require.Equal(t, "44", WrapTo(big.NewInt(300), types.BuiltinU8).String())

	// negative into unsigned: -1 -> 255
	require.Equal(t, "255", WrapTo(big.NewInt(-1), types.BuiltinU8).String())

	// in-range value unchanged
	require.Equal(t, "7", WrapTo(big.NewInt(7), types.BuiltinI32).String())
}

func TestSuffixBuiltin(t *testing.T) {
	b, ok := SuffixBuiltin("i32")
	require.True(t, ok)
	require.Equal(t, types.BuiltinI32, b)

	_, ok = SuffixBuiltin("f32")
	require.False(t, ok)
	_, ok = SuffixBuiltin("")
	require.False(t, ok)
}
