package cap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brant-lang/brant/ast"
	"github.com/brant-lang/brant/diag"
	"github.com/brant-lang/brant/lex"
	"github.com/brant-lang/brant/parse"
	"github.com/brant-lang/brant/types"
)

func checkSrc(t *testing.T, src string) (*diag.Bag, Result) {
	t.Helper()
	var bag diag.Bag
	toks := lex.New(src, 0, &bag).LexAll()
	arena := &ast.Arena{}
	pool := types.NewPool()
	root := parse.New(toks, arena, pool, &bag, 0).ParseProgram()
	res := Check(arena, root, &bag)
	return &bag, res
}

func TestCap_BorrowOfPlaceOK(t *testing.T) {
	bag, res := checkSrc(t, `
fn f(xs: i32[]) -> unit {
  let a: &i32 = &xs[0];
  let b: &mut i32[] = &mut xs;
  return;
}
`)
	require.True(t, res.OK, "diags: %v", bag.Diags())
}

func TestCap_BorrowOfTemporaryRejected(t *testing.T) {
	bag, res := checkSrc(t, `
fn f() -> unit { let a: &i32 = &(1 + 2); return; }
`)
	require.False(t, res.OK)
	require.True(t, bag.HasCode(diag.CodeBorrowOperandMustBePlace))
}

func TestCap_EscapeOfBorrowRejected(t *testing.T) {
	bag, res := checkSrc(t, `
fn f(x: i32) -> unit { let a: &&i32 = &&(&x); return; }
`)
	require.False(t, res.OK)
	// &&(&x): the operand is a borrow expression, not a place
	require.True(t,
		bag.HasCode(diag.CodeEscapeOperandMustNotBeBorrow) ||
			bag.HasCode(diag.CodeEscapeOperandMustBePlace))
}

func TestCap_EscapeOfTemporaryRejected(t *testing.T) {
	bag, res := checkSrc(t, `
fn g() -> i32 { return 1; }
fn f() -> &&i32 { return &&g(); }
`)
	require.False(t, res.OK)
	require.True(t, bag.HasCode(diag.CodeEscapeOfTemporary))
}

func TestCap_EscapeOfPlaceOK(t *testing.T) {
	bag, res := checkSrc(t, `
static g: i32 = 1;
fn f() -> &&i32 { return &&g; }
`)
	require.True(t, res.OK, "diags: %v", bag.Diags())
}
