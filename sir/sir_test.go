package sir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brant-lang/brant/ast"
	"github.com/brant-lang/brant/diag"
	"github.com/brant-lang/brant/lex"
	"github.com/brant-lang/brant/parse"
	"github.com/brant-lang/brant/passes"
	"github.com/brant-lang/brant/sema"
	"github.com/brant-lang/brant/tyck"
	"github.com/brant-lang/brant/types"
)

type built struct {
	mod   *Module
	pool  *types.Pool
	table *sema.Table
	bag   *diag.Bag
}

// buildSrc runs the front half of the pipeline and lowers to SIR. The
// source must be diagnostics-clean through tyck.
func buildSrc(t *testing.T, src string) built {
	t.Helper()
	mod, b := buildSrcAllowErrors(t, src)
	require.False(t, b.bag.HasError(), "front-end diags: %v", b.bag.Diags())
	b.mod = mod
	return b
}

func buildSrcAllowErrors(t *testing.T, src string) (*Module, built) {
	t.Helper()
	bag := &diag.Bag{}
	toks := lex.New(src, 0, bag).LexAll()
	arena := &ast.Arena{}
	pool := types.NewPool()
	root := parse.New(toks, arena, pool, bag, 0).ParseProgram()

	pres := passes.Run(arena, root, bag, passes.Options{})
	tres := tyck.New(arena, pool, pres.Table, pres.NameResolve, bag, tyck.Options{}).CheckProgram(root)

	mod := Build(arena, root, pool, pres.Table, pres.NameResolve, &tres, BuildOptions{})
	return mod, built{mod: mod, pool: pool, table: pres.Table, bag: bag}
}

func TestBuild_SimpleFunctionShape(t *testing.T) {
	b := buildSrc(t, "fn main() -> i32 { return 0; }")

	require.Len(t, b.mod.Funcs, 1)
	f := b.mod.Funcs[0]
	require.Equal(t, "main", f.Name)
	require.True(t, b.mod.ValidBlock(f.Entry))

	blk := b.mod.Blocks[f.Entry]
	require.Equal(t, uint32(1), blk.StmtCount)
	ret := b.mod.Stmts[blk.StmtBegin]
	require.Equal(t, StmtReturn, ret.Kind)
	require.True(t, b.mod.ValidValue(ret.Expr))
	require.Equal(t, ValIntLit, b.mod.Values[ret.Expr].Kind)
	require.Equal(t, "0", b.mod.Values[ret.Expr].Text)
}

func TestBuild_EveryEscapeHasExactlyOneHandle(t *testing.T) {
	b := buildSrc(t, `
static g: i32 = 1;
fn f() -> &&i32 { return &&g; }
`)
	escapes := 0
	for _, v := range b.mod.Values {
		if v.Kind == ValEscape {
			escapes++
		}
	}
	require.Equal(t, 1, escapes)
	require.Len(t, b.mod.EscapeHandles, 1)

	h := b.mod.EscapeHandles[0]
	require.True(t, h.FromStatic)
	require.Equal(t, BoundaryReturn, h.Boundary)
	require.Equal(t, HandleCallerSlot, h.Kind)
	require.Equal(t, uint32(0), h.MaterializeCount)

	require.Empty(t, VerifyEscapeHandles(b.mod))
}

func TestCanonicalize_Idempotent(t *testing.T) {
	b := buildSrc(t, `
fn add(a: i32, b: i32) -> i32 { return a + b; }
fn main() -> i32 {
  let mut x: i32[3] = [1, 2, 3];
  x[1] = 9;
  while (x[0] < 3i32) { x[0] = x[0] + 1; }
  return add(a: x[1], b: x[2]);
}
`)
	Canonicalize(b.mod, b.pool)
	snapshotValues := append([]Value(nil), b.mod.Values...)
	snapshotArgs := append([]Arg(nil), b.mod.Args...)

	second := Canonicalize(b.mod, b.pool)
	require.Zero(t, second.RewrittenValues)
	require.Zero(t, second.RewrittenCalls)
	require.Equal(t, snapshotValues, b.mod.Values)
	require.Equal(t, snapshotArgs, b.mod.Args)
}

func TestCanonicalize_RangeIndexIsNotPlace(t *testing.T) {
	b := buildSrc(t, `
fn f(xs: i32[]) -> i32[] { return xs[0 ..: 2]; }
`)
	Canonicalize(b.mod, b.pool)

	found := false
	for _, v := range b.mod.Values {
		if v.Kind == ValIndex {
			require.Equal(t, NotPlace, v.Place)
			found = true
		}
	}
	require.True(t, found)
}

func TestCanonicalize_EffectJoin(t *testing.T) {
	b := buildSrc(t, `
fn g() -> i32 { return 1; }
fn f() -> i32 { let mut x: i32 = 1; x = g(); return x; }
`)
	Canonicalize(b.mod, b.pool)

	// the assignment joins MayWrite with the call's Unknown
	found := false
	for _, v := range b.mod.Values {
		if v.Kind == ValAssign {
			require.Equal(t, EffectUnknown, v.Effect)
			found = true
		}
	}
	require.True(t, found)
}

func TestVerify_CleanModule(t *testing.T) {
	b := buildSrc(t, `
fn main() -> i32 {
  let mut x: i32[3] = [1, 2, 3];
  x[1] = 9;
  return x[1];
}
`)
	Canonicalize(b.mod, b.pool)
	require.Empty(t, VerifyModule(b.mod))
}

func TestVerify_CatchesBadChild(t *testing.T) {
	b := buildSrc(t, "fn main() -> i32 { return 0; }")
	b.mod.AddValue(Value{Kind: ValBinary, A: 9999, B: 9999})
	errs := VerifyModule(b.mod)
	require.NotEmpty(t, errs)
}

func TestMutAnalysis_IllegalWrite(t *testing.T) {
	// bypass tyck gating: run mut analysis even though tyck also reports
	mod, b := buildSrcAllowErrors(t, `
fn f() -> unit { let x: i32 = 1; x = 2; return; }
`)
	Canonicalize(mod, b.pool)

	var bag diag.Bag
	res := AnalyzeMut(mod, b.pool, &bag)
	require.True(t, bag.HasCode(diag.CodeWriteToImmutable))

	illegal := false
	for _, mi := range res.BySymbol {
		if mi.IllegalWrite {
			illegal = true
		}
	}
	require.True(t, illegal)
}

func TestMutAnalysis_MutBorrowWriteThroughOK(t *testing.T) {
	b := buildSrc(t, `
fn f(r: &mut i32[]) -> unit { r[0] = 1; return; }
`)
	Canonicalize(b.mod, b.pool)

	var bag diag.Bag
	AnalyzeMut(b.mod, b.pool, &bag)
	require.False(t, bag.HasCode(diag.CodeWriteToImmutable))
}

func TestCapability_EscapeNonStatic(t *testing.T) {
	// S5: returning an escape of a local is the dangling-slot case
	mod, b := buildSrcAllowErrors(t, `
fn f() -> &&i32 { let x: i32 = 1; return &&x; }
`)
	Canonicalize(mod, b.pool)

	var bag diag.Bag
	res := AnalyzeCapabilities(mod, b.pool, b.table, &bag)
	require.False(t, res.OK)
	require.True(t, bag.HasCode(diag.CodeEscapeNonStatic))
}

func TestCapability_StaticEscapeOK(t *testing.T) {
	b := buildSrc(t, `
static g: i32 = 1;
fn f() -> &&i32 { return &&g; }
`)
	Canonicalize(b.mod, b.pool)

	var bag diag.Bag
	res := AnalyzeCapabilities(b.mod, b.pool, b.table, &bag)
	require.True(t, res.OK, "diags: %v", bag.Diags())
}

func TestCapability_UseAfterMove(t *testing.T) {
	mod, b := buildSrcAllowErrors(t, `
fn sink(v: &&i32) -> unit { return; }
fn f(p: i32) -> i32 {
  sink(v: &&p);
  return p;
}
`)
	Canonicalize(mod, b.pool)

	var bag diag.Bag
	res := AnalyzeCapabilities(mod, b.pool, b.table, &bag)
	require.False(t, res.OK)
	require.True(t, bag.HasCode(diag.CodeUseAfterMove))
}

func TestCapability_BorrowConflict(t *testing.T) {
	mod, b := buildSrcAllowErrors(t, `
fn f() -> unit {
  let mut x: i32 = 1;
  let a: &mut i32 = &mut x;
  let c: &i32 = &x;
  return;
}
`)
	Canonicalize(mod, b.pool)

	var bag diag.Bag
	res := AnalyzeCapabilities(mod, b.pool, b.table, &bag)
	require.False(t, res.OK)
	require.True(t, bag.HasCode(diag.CodeBorrowConflict))
}

func TestCapability_SharedBorrowsCoexist(t *testing.T) {
	b := buildSrc(t, `
fn f() -> unit {
  let x: i32 = 1;
  let a: &i32 = &x;
  let c: &i32 = &x;
  return;
}
`)
	Canonicalize(b.mod, b.pool)

	var bag diag.Bag
	res := AnalyzeCapabilities(b.mod, b.pool, b.table, &bag)
	require.True(t, res.OK, "diags: %v", bag.Diags())
}

func TestCapability_BorrowReleasedAtScopeEnd(t *testing.T) {
	b := buildSrc(t, `
fn f() -> unit {
  let mut x: i32 = 1;
  { let a: &mut i32 = &mut x; }
  { let c: &mut i32 = &mut x; }
  return;
}
`)
	Canonicalize(b.mod, b.pool)

	var bag diag.Bag
	res := AnalyzeCapabilities(b.mod, b.pool, b.table, &bag)
	require.True(t, res.OK, "diags: %v", bag.Diags())
}

func TestEscapeVerify_NonStaticMaterialization(t *testing.T) {
	mod, b := buildSrcAllowErrors(t, `
fn f(p: i32) -> unit { let y: &&i32 = &&p; return; }
`)
	Canonicalize(mod, b.pool)

	errs := VerifyEscapeHandles(mod)
	require.NotEmpty(t, errs)
}

func TestEscapeVerify_DuplicateHandleCaught(t *testing.T) {
	b := buildSrc(t, `
static g: i32 = 1;
fn f() -> &&i32 { return &&g; }
`)
	h := b.mod.EscapeHandles[0]
	b.mod.AddEscapeHandle(h)
	errs := VerifyEscapeHandles(b.mod)
	require.NotEmpty(t, errs)
}
