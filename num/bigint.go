// Package num models integer-literal values during deferred inference.
// A literal keeps its exact arbitrary-precision value until the checker
// discovers a context type; the range check against that type is done
// here. isize/usize are treated as 64-bit for range purposes.
package num

import (
	"math/big"
	"strings"

	"github.com/brant-lang/brant/types"
)

// Lit is the parsed form of an integer literal: its exact value plus the
// optional type suffix spelled in source ("42i32" -> suffix "i32").
type Lit struct {
	Value  *big.Int
	Suffix string
}

// SplitSuffix separates the digit portion of an integer-literal lexeme
// from its trailing type suffix. Underscores stay in the digit portion.
func SplitSuffix(lexeme string) (digits, suffix string) {
	i := 0
	for i < len(lexeme) {
		c := lexeme[i]
		if (c >= '0' && c <= '9') || c == '_' {
			i++
			continue
		}
		break
	}
	return lexeme[:i], lexeme[i:]
}

// ParseLit parses an integer-literal lexeme, tolerating digit-group
// underscores and a trailing suffix. ok is false when the digit portion
// is empty or malformed.
func ParseLit(lexeme string) (Lit, bool) {
	digits, suffix := SplitSuffix(lexeme)
	cleaned := strings.ReplaceAll(digits, "_", "")
	if cleaned == "" {
		return Lit{}, false
	}
	v, ok := new(big.Int).SetString(cleaned, 10)
	if !ok {
		return Lit{}, false
	}
	return Lit{Value: v, Suffix: suffix}, true
}

// SuffixBuiltin maps a literal suffix to its builtin integer type.
func SuffixBuiltin(suffix string) (types.Builtin, bool) {
	switch suffix {
	case "i8":
		return types.BuiltinI8, true
	case "i16":
		return types.BuiltinI16, true
	case "i32":
		return types.BuiltinI32, true
	case "i64":
		return types.BuiltinI64, true
	case "i128":
		return types.BuiltinI128, true
	case "u8":
		return types.BuiltinU8, true
	case "u16":
		return types.BuiltinU16, true
	case "u32":
		return types.BuiltinU32, true
	case "u64":
		return types.BuiltinU64, true
	case "u128":
		return types.BuiltinU128, true
	case "isize":
		return types.BuiltinISize, true
	case "usize":
		return types.BuiltinUSize, true
	}
	return 0, false
}

type intRange struct {
	bits   uint
	signed bool
}

var ranges = map[types.Builtin]intRange{
	types.BuiltinI8:    {8, true},
	types.BuiltinI16:   {16, true},
	types.BuiltinI32:   {32, true},
	types.BuiltinI64:   {64, true},
	types.BuiltinI128:  {128, true},
	types.BuiltinU8:    {8, false},
	types.BuiltinU16:   {16, false},
	types.BuiltinU32:   {32, false},
	types.BuiltinU64:   {64, false},
	types.BuiltinU128:  {128, false},
	types.BuiltinISize: {64, true},
	types.BuiltinUSize: {64, false},
}

// Bounds returns the inclusive [min, max] range of a builtin integer
// type, or ok=false for non-integer builtins.
func Bounds(b types.Builtin) (min, max *big.Int, ok bool) {
	r, found := ranges[b]
	if !found {
		return nil, nil, false
	}
	one := big.NewInt(1)
	if r.signed {
		// [-2^(N-1), 2^(N-1)-1]
		half := new(big.Int).Lsh(one, r.bits-1)
		min = new(big.Int).Neg(half)
		max = new(big.Int).Sub(half, one)
		return min, max, true
	}
	// [0, 2^N-1]
	min = big.NewInt(0)
	max = new(big.Int).Sub(new(big.Int).Lsh(one, r.bits), one)
	return min, max, true
}

// Fits reports whether v lies inside the range of builtin b.
func Fits(v *big.Int, b types.Builtin) bool {
	min, max, ok := Bounds(b)
	if !ok {
		return false
	}
	return v.Cmp(min) >= 0 && v.Cmp(max) <= 0
}

// WrapTo reduces v into the modular range of builtin b: unsigned types
// reduce mod 2^N, signed types to [-2^(N-1), 2^(N-1)). Used by the
// constant folder so folding matches run-time wrap-around semantics.
func WrapTo(v *big.Int, b types.Builtin) *big.Int {
	r, found := ranges[b]
	if !found {
		return new(big.Int).Set(v)
	}
	mod := new(big.Int).Lsh(big.NewInt(1), r.bits)
	out := new(big.Int).Mod(v, mod) // Go Mod is Euclidean: result in [0, mod)
	if r.signed {
		half := new(big.Int).Lsh(big.NewInt(1), r.bits-1)
		if out.Cmp(half) >= 0 {
			out.Sub(out, mod)
		}
	}
	return out
}
