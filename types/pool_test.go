package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPool_BuiltinsReservedAndStable(t *testing.T) {
	p := NewPool()
	i32a := p.InternIdent("i32")
	i32b := p.BuiltinType(BuiltinI32)
	require.Equal(t, i32a, i32b)
	require.Equal(t, "i32", p.String(i32a))

	// internal pseudo-type is not spellable by name
	inf := p.InternIdent("{integer}")
	require.NotEqual(t, p.InferInteger(), inf)
	require.Equal(t, KindNamedUser, p.Get(inf).Kind)
}

func TestPool_StructuralInterning(t *testing.T) {
	p := NewPool()
	i32 := p.InternIdent("i32")

	a := p.MakeOptional(i32)
	b := p.MakeOptional(i32)
	require.Equal(t, a, b)

	arr := p.MakeSizedArray(i32, 3)
	require.Equal(t, arr, p.MakeSizedArray(i32, 3))
	require.NotEqual(t, arr, p.MakeArray(i32))

	br := p.MakeBorrow(i32, false)
	brm := p.MakeBorrow(i32, true)
	require.NotEqual(t, br, brm)
	require.Equal(t, br, p.MakeBorrow(i32, false))

	fa := p.MakeFn(i32, []TypeID{i32, i32})
	fb := p.MakeFn(i32, []TypeID{i32, i32})
	require.Equal(t, fa, fb)
	require.Equal(t, []TypeID{i32, i32}, p.FnParams(fa))
}

func TestPool_NamedPathInterning(t *testing.T) {
	p := NewPool()
	a := p.InternPath([]string{"net", "Conn"})
	b := p.InternPath([]string{"net", "Conn"})
	c := p.InternPath([]string{"net", "Conn2"})
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Equal(t, []string{"net", "Conn"}, p.Path(a))
	require.Equal(t, "net::Conn", p.String(a))
}

func TestPool_Strings(t *testing.T) {
	p := NewPool()
	i32 := p.InternIdent("i32")

	require.Equal(t, "i32?", p.String(p.MakeOptional(i32)))
	require.Equal(t, "i32[]", p.String(p.MakeArray(i32)))
	require.Equal(t, "i32[4]", p.String(p.MakeSizedArray(i32, 4)))
	require.Equal(t, "&mut i32", p.String(p.MakeBorrow(i32, true)))
	require.Equal(t, "&&i32", p.String(p.MakeEscape(i32)))
	require.Equal(t, "ptr i32", p.String(p.MakePtr(i32, false)))
	require.Equal(t, "fn(i32) -> i32", p.String(p.MakeFn(i32, []TypeID{i32})))

	// escape binds outside the suffix: &&(i32?)
	require.Equal(t, "&&i32?", p.String(p.MakeEscape(p.MakeOptional(i32))))
}

func TestPool_Predicates(t *testing.T) {
	p := NewPool()
	require.True(t, p.IsInteger(p.InternIdent("u64")))
	require.True(t, p.IsInteger(p.BuiltinType(BuiltinUSize)))
	require.False(t, p.IsInteger(p.Bool()))
	require.True(t, p.IsFloat(p.InternIdent("f32")))
	require.True(t, p.IsNumeric(p.InferInteger()))
	require.True(t, p.IsError(p.ErrorType()))
	require.True(t, p.IsError(InvalidType))

	require.False(t, p.IsBorrowable(p.Null()))
	require.False(t, p.IsBorrowable(p.InferInteger()))
	require.True(t, p.IsBorrowable(p.InternIdent("i8")))
}
