package sema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brant-lang/brant/ast"
	"github.com/brant-lang/brant/diag"
	"github.com/brant-lang/brant/lex"
	"github.com/brant-lang/brant/parse"
	"github.com/brant-lang/brant/types"
)

type resolved struct {
	arena *ast.Arena
	root  ast.StmtID
	table *Table
	res   *Result
	bag   *diag.Bag
}

func resolveSrc(t *testing.T, src string, opt Options) resolved {
	t.Helper()
	var bag diag.Bag
	toks := lex.New(src, 0, &bag).LexAll()
	arena := &ast.Arena{}
	pool := types.NewPool()
	root := parse.New(toks, arena, pool, &bag, 0).ParseProgram()
	require.False(t, bag.HasError(), "parse diags: %v", bag.Diags())

	table := NewTable()
	res := Resolve(arena, root, table, &bag, opt)
	return resolved{arena: arena, root: root, table: table, res: res, bag: &bag}
}

func identResolution(t *testing.T, r resolved, name string) ResolvedSymbol {
	t.Helper()
	for id, e := range r.arena.Exprs() {
		if e.Kind == ast.ExprIdent && e.Text == name {
			rs, ok := r.res.LookupExpr(ast.ExprID(id))
			require.True(t, ok, "ident %q has no resolution", name)
			return rs
		}
	}
	t.Fatalf("ident %q not found", name)
	return ResolvedSymbol{}
}

func TestResolve_LocalAndParamBindings(t *testing.T) {
	r := resolveSrc(t, `
fn add(a: i32, b: i32) -> i32 {
  let c: i32 = a + b;
  return c;
}
`, Options{})
	require.False(t, r.bag.HasError(), "diags: %v", r.bag.Diags())

	require.Equal(t, BindParam, identResolution(t, r, "a").Bind)
	require.Equal(t, BindLocalVar, identResolution(t, r, "c").Bind)
}

func TestResolve_FnReference(t *testing.T) {
	r := resolveSrc(t, `
fn helper() -> i32 { return 1; }
fn main() -> i32 { return helper(); }
`, Options{})
	require.False(t, r.bag.HasError())
	require.Equal(t, BindFn, identResolution(t, r, "helper").Bind)
}

func TestResolve_UnknownIdentifier(t *testing.T) {
	r := resolveSrc(t, "fn f() -> i32 { return ghost; }", Options{})
	require.True(t, r.bag.HasCode(diag.CodeUnknownIdentifier))
	require.Equal(t, BindError, identResolution(t, r, "ghost").Bind)
}

func TestResolve_DuplicateInScope(t *testing.T) {
	r := resolveSrc(t, `
fn f() -> i32 {
  let x: i32 = 1;
  let x: i32 = 2;
  return x;
}
`, Options{})
	require.True(t, r.bag.HasCode(diag.CodeDuplicateInScope))
}

func TestResolve_DuplicateTopLevelFns(t *testing.T) {
	r := resolveSrc(t, `
fn f() -> i32 { return 1; }
fn f() -> i32 { return 2; }
`, Options{})
	require.True(t, r.bag.HasCode(diag.CodeDuplicateInScope))
}

func TestResolve_ShadowingPolicy(t *testing.T) {
	src := `
fn f() -> i32 {
  let x: i32 = 1;
  { let x: i32 = 2; x; }
  return x;
}
`
	r := resolveSrc(t, src, Options{})
	require.False(t, r.bag.HasError())
	require.Len(t, r.table.Shadowings(), 1)

	r = resolveSrc(t, src, Options{Shadowing: ShadowingWarn})
	require.False(t, r.bag.HasError())
	require.True(t, r.bag.HasCode(diag.CodeShadowedDecl))

	r = resolveSrc(t, src, Options{Shadowing: ShadowingError})
	require.True(t, r.bag.HasError())
}

func TestResolve_LoopVarScoped(t *testing.T) {
	r := resolveSrc(t, `
fn f(xs: i32[]) -> i32 {
  loop (x in xs) { x; };
  return 0;
}
`, Options{})
	require.False(t, r.bag.HasError(), "diags: %v", r.bag.Diags())
	require.Equal(t, BindLocalVar, identResolution(t, r, "x").Bind)
}

func TestResolve_LoopVarNotVisibleAfterLoop(t *testing.T) {
	r := resolveSrc(t, `
fn f(xs: i32[]) -> i32 {
  loop (v in xs) { v; };
  return v;
}
`, Options{})
	require.True(t, r.bag.HasCode(diag.CodeUnknownIdentifier))
}

func TestResolve_InitSeesOuterBinding(t *testing.T) {
	// "let x = x;" resolves init against the outer x, then declares
	r := resolveSrc(t, `
fn f(x: i32) -> i32 {
  let x: i32 = x;
  return x;
}
`, Options{})
	require.False(t, r.bag.HasError())
}

func TestResolve_ScopeChainProperty(t *testing.T) {
	r := resolveSrc(t, `
fn f(p: i32) -> i32 {
  let a: i32 = 1;
  {
    let b: i32 = a + p;
    b;
  }
  return a;
}
`, Options{})
	require.False(t, r.bag.HasError())

	// for every LocalVar/Param use, the decl scope is an ancestor of the
	// use scope
	for id := range r.arena.Exprs() {
		rs, ok := r.res.LookupExpr(ast.ExprID(id))
		if !ok || (rs.Bind != BindLocalVar && rs.Bind != BindParam) {
			continue
		}
		declScope := r.table.Symbol(rs.Sym).OwnerScope
		require.True(t, r.table.IsAncestorScope(declScope, rs.UseScope),
			"decl scope %d not an ancestor of use scope %d", declScope, rs.UseScope)
	}
}

func TestResolve_IndexTablesSized(t *testing.T) {
	r := resolveSrc(t, "fn f(a: i32) -> i32 { return a; }", Options{})
	require.Len(t, r.res.ExprToResolved, r.arena.ExprCount())
	require.Len(t, r.res.StmtToResolved, r.arena.StmtCount())
	require.Len(t, r.res.ParamToResolved, r.arena.ParamCount())
}
