package tyck

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brant-lang/brant/ast"
	"github.com/brant-lang/brant/diag"
	"github.com/brant-lang/brant/lex"
	"github.com/brant-lang/brant/parse"
	"github.com/brant-lang/brant/passes"
	"github.com/brant-lang/brant/types"
)

type checked struct {
	arena *ast.Arena
	pool  *types.Pool
	root  ast.StmtID
	res   Result
	bag   *diag.Bag
}

func checkSrc(t *testing.T, src string, opt Options) checked {
	t.Helper()
	var bag diag.Bag
	toks := lex.New(src, 0, &bag).LexAll()
	arena := &ast.Arena{}
	pool := types.NewPool()
	root := parse.New(toks, arena, pool, &bag, 0).ParseProgram()
	require.False(t, bag.HasError(), "parse diags: %v", bag.Diags())

	pres := passes.Run(arena, root, &bag, passes.Options{})
	c := New(arena, pool, pres.Table, pres.NameResolve, &bag, opt)
	res := c.CheckProgram(root)
	return checked{arena: arena, pool: pool, root: root, res: res, bag: &bag}
}

func exprTypeOf(t *testing.T, r checked, pred func(*ast.Expr) bool) types.TypeID {
	t.Helper()
	for id := range r.arena.Exprs() {
		e := r.arena.Expr(ast.ExprID(id))
		if pred(e) {
			return r.res.ExprTypes[id]
		}
	}
	t.Fatal("expression not found")
	return types.InvalidType
}

func TestTyck_SimpleReturnBackpatch(t *testing.T) {
	r := checkSrc(t, "fn main() -> i32 { return 0; }", Options{})
	require.True(t, r.res.OK, "diags: %v", r.bag.Diags())

	// the unsuffixed 0 was backpatched to i32
	lit := exprTypeOf(t, r, func(e *ast.Expr) bool { return e.Kind == ast.ExprIntLit })
	require.Equal(t, r.pool.InternIdent("i32"), lit)
}

func TestTyck_SuffixedLiteralRangeError(t *testing.T) {
	r := checkSrc(t, "fn main() -> i32 { return 2147483648i32; }", Options{})
	require.False(t, r.res.OK)
	require.True(t, r.bag.HasCode(diag.CodeIntLitOutOfRange))

	// the exact value is echoed in the diagnostic
	found := false
	for _, d := range r.bag.Diags() {
		if d.Code == diag.CodeIntLitOutOfRange {
			require.Equal(t, "2147483648", d.Args[0])
			require.Equal(t, "i32", d.Args[1])
			found = true
		}
	}
	require.True(t, found)
}

func TestTyck_LiteralBoundaryAccepted(t *testing.T) {
	r := checkSrc(t, "fn main() -> i32 { return 2147483647i32; }", Options{})
	require.True(t, r.res.OK, "diags: %v", r.bag.Diags())

	r = checkSrc(t, "fn f() -> u8 { return 255; }", Options{})
	require.True(t, r.res.OK)

	r = checkSrc(t, "fn f() -> u8 { return 256; }", Options{})
	require.True(t, r.bag.HasCode(diag.CodeIntLitOutOfRange))
}

func TestTyck_InferThroughArithmetic(t *testing.T) {
	r := checkSrc(t, "fn f() -> i32 { let x: i32 = 2 + 3; return x; }", Options{})
	require.True(t, r.res.OK, "diags: %v", r.bag.Diags())

	add := exprTypeOf(t, r, func(e *ast.Expr) bool { return e.Kind == ast.ExprBinary })
	require.Equal(t, r.pool.InternIdent("i32"), add)
}

func TestTyck_UnresolvedInferIsError(t *testing.T) {
	r := checkSrc(t, "fn f() -> unit { set x = 2; return; }", Options{})
	require.False(t, r.res.OK)
	require.True(t, r.bag.HasCode(diag.CodeUnresolvedInferInt))
}

func TestTyck_SetInferredFromConcreteInit(t *testing.T) {
	r := checkSrc(t, "fn f() -> i64 { set x = 2i64; return x; }", Options{})
	require.True(t, r.res.OK, "diags: %v", r.bag.Diags())
}

func TestTyck_AssignabilityNullToOptional(t *testing.T) {
	r := checkSrc(t, "fn f() -> i32? { return null; }", Options{})
	require.True(t, r.res.OK, "diags: %v", r.bag.Diags())
}

func TestTyck_ImplicitPromotionSwitch(t *testing.T) {
	src := "fn f(v: i32) -> i32? { return v; }"

	r := checkSrc(t, src, Options{})
	require.False(t, r.res.OK) // off by default

	r = checkSrc(t, src, Options{ImplicitOptionalPromotion: true})
	require.True(t, r.res.OK, "diags: %v", r.bag.Diags())
}

func TestTyck_TernaryUnification(t *testing.T) {
	r := checkSrc(t, "fn f(c: bool, a: i32) -> i32? { return c ? a : null; }", Options{})
	require.True(t, r.res.OK, "diags: %v", r.bag.Diags())

	r = checkSrc(t, `fn f(c: bool, a: i32, s: text) -> i32 { return c ? a : s; }`, Options{})
	require.True(t, r.bag.HasCode(diag.CodeCannotUnify))
}

func TestTyck_OptionalUnwrap(t *testing.T) {
	r := checkSrc(t, "fn f(v: i32?) -> i32 { return v?; }", Options{})
	require.True(t, r.res.OK, "diags: %v", r.bag.Diags())

	r = checkSrc(t, "fn f(v: i32) -> i32 { return v?; }", Options{})
	require.True(t, r.bag.HasCode(diag.CodeOptionalUnwrapOnNonOptional))
}

func TestTyck_NonPlaceAssign(t *testing.T) {
	r := checkSrc(t, "fn f() -> unit { 1 = 2; return; }", Options{})
	require.True(t, r.bag.HasCode(diag.CodeNonPlaceAssign))
}

func TestTyck_WriteToImmutable(t *testing.T) {
	r := checkSrc(t, "fn f() -> unit { let x: i32 = 1; x = 2; return; }", Options{})
	require.True(t, r.bag.HasCode(diag.CodeWriteToImmutable))

	r = checkSrc(t, "fn f() -> unit { let mut x: i32 = 1; x = 2; return; }", Options{})
	require.True(t, r.res.OK, "diags: %v", r.bag.Diags())
}

func TestTyck_WriteThroughMutBorrow(t *testing.T) {
	r := checkSrc(t, `
fn f(r: &mut i32[]) -> unit { r[0] = 1; return; }
`, Options{})
	require.True(t, r.res.OK, "diags: %v", r.bag.Diags())

	r = checkSrc(t, `
fn f(r: &i32[]) -> unit { r[0] = 1; return; }
`, Options{})
	require.True(t, r.bag.HasCode(diag.CodeWriteToImmutable))
}

func TestTyck_IndexAssignRootMutability(t *testing.T) {
	r := checkSrc(t, `
fn f() -> unit { let xs: i32[2] = [1, 2]; xs[0] = 9; return; }
`, Options{})
	require.True(t, r.bag.HasCode(diag.CodeWriteToImmutable))

	r = checkSrc(t, `
fn f() -> unit { let mut xs: i32[2] = [1, 2]; xs[0] = 9; return; }
`, Options{})
	require.True(t, r.res.OK, "diags: %v", r.bag.Diags())
}

func TestTyck_ArrayLiteralAgainstSizedType(t *testing.T) {
	r := checkSrc(t, "fn f() -> unit { let mut x: i32[3] = [1, 2, 3]; return; }", Options{})
	require.True(t, r.res.OK, "diags: %v", r.bag.Diags())

	// element count mismatch
	r = checkSrc(t, "fn f() -> unit { let x: i32[3] = [1, 2]; return; }", Options{})
	require.True(t, r.bag.HasCode(diag.CodeTypeMismatch))
}

func TestTyck_Casts(t *testing.T) {
	r := checkSrc(t, "fn f(v: i32) -> i64 { return v as i64; }", Options{})
	require.True(t, r.res.OK, "diags: %v", r.bag.Diags())

	r = checkSrc(t, "fn f(v: i32) -> i64? { return v as? i64; }", Options{})
	require.True(t, r.res.OK, "diags: %v", r.bag.Diags())

	r = checkSrc(t, "fn f(v: i32) -> i64 { return v as! i64; }", Options{})
	require.True(t, r.res.OK)

	r = checkSrc(t, "fn f(v: text) -> i64 { return v as i64; }", Options{})
	require.True(t, r.bag.HasCode(diag.CodeBadCast))
}

func TestTyck_CallChecks(t *testing.T) {
	r := checkSrc(t, `
fn add(a: i32, b: i32) -> i32 { return a + b; }
fn main() -> i32 { return add(a: 1i32, b: 2i32); }
`, Options{})
	require.True(t, r.res.OK, "diags: %v", r.bag.Diags())

	r = checkSrc(t, `
fn add(a: i32, b: i32) -> i32 { return a + b; }
fn main() -> i32 { return add(a: 1i32); }
`, Options{})
	require.True(t, r.bag.HasCode(diag.CodeCallArityMismatch))

	r = checkSrc(t, `
fn add(a: i32, b: i32) -> i32 { return a + b; }
fn main() -> i32 { return add(1i32, b: 2i32); }
`, Options{})
	require.True(t, r.bag.HasCode(diag.CodeCallArgMixNotAllowed))

	r = checkSrc(t, `
fn main() -> i32 { let x: i32 = 1; return x(); }
`, Options{})
	require.True(t, r.bag.HasCode(diag.CodeCalleeNotFunction))
}

func TestTyck_PipeTypesHoleFromLhs(t *testing.T) {
	r := checkSrc(t, `
fn double(v: i32) -> i32 { return v + v; }
fn main() -> i32 { let x: i32 = 3; return x << double(v: _); }
`, Options{})
	require.True(t, r.res.OK, "diags: %v", r.bag.Diags())
}

func TestTyck_LoopBreakValueJoin(t *testing.T) {
	r := checkSrc(t, `
fn f(xs: i32[]) -> i32? {
  set found = loop (x in xs) {
    if (x == 3i32) { break x; }
  };
  return found;
}
`, Options{})
	require.True(t, r.res.OK, "diags: %v", r.bag.Diags())
}

func TestTyck_BreakOutsideLoop(t *testing.T) {
	r := checkSrc(t, "fn f() -> unit { break; return; }", Options{})
	require.True(t, r.bag.HasCode(diag.CodeBreakOutsideLoop))
}

func TestTyck_ReturnMismatch(t *testing.T) {
	r := checkSrc(t, `fn f(s: text) -> i32 { return s; }`, Options{})
	require.True(t, r.bag.HasCode(diag.CodeReturnTypeMismatch))
}

func TestTyck_FieldAccess(t *testing.T) {
	r := checkSrc(t, `
field Point { i32 x; i32 y; }
fn f(p: Point) -> i32 { return p.x; }
`, Options{})
	require.True(t, r.res.OK, "diags: %v", r.bag.Diags())

	r = checkSrc(t, `
field Point { i32 x; }
fn f(p: Point) -> i32 { return p.z; }
`, Options{})
	require.True(t, r.bag.HasCode(diag.CodeUnknownIdentifier))
}

func TestTyck_ErrorAnnihilatorSuppressesCascades(t *testing.T) {
	r := checkSrc(t, "fn f() -> i32 { return ghost + 1; }", Options{})
	// only the resolver's unknown-identifier error; no cascaded
	// type-mismatch on the addition or the return
	require.True(t, r.bag.HasCode(diag.CodeUnknownIdentifier))
	require.False(t, r.bag.HasCode(diag.CodeCannotUnify))
	require.False(t, r.bag.HasCode(diag.CodeReturnTypeMismatch))
}
