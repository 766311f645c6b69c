package parse

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brant-lang/brant/ast"
	"github.com/brant-lang/brant/diag"
	"github.com/brant-lang/brant/lex"
	"github.com/brant-lang/brant/syntax"
	"github.com/brant-lang/brant/types"
)

type parseResult struct {
	arena *ast.Arena
	pool  *types.Pool
	root  ast.StmtID
	bag   *diag.Bag
}

func parseSrc(t *testing.T, src string) parseResult {
	t.Helper()
	var bag diag.Bag
	toks := lex.New(src, 0, &bag).LexAll()
	arena := &ast.Arena{}
	pool := types.NewPool()
	p := New(toks, arena, pool, &bag, 0)
	root := p.ParseProgram()
	return parseResult{arena: arena, pool: pool, root: root, bag: &bag}
}

func topItems(t *testing.T, r parseResult) []ast.StmtID {
	t.Helper()
	rootStmt := r.arena.Stmt(r.root)
	require.Equal(t, ast.StmtBlock, rootStmt.Kind)
	return r.arena.BlockChildren(rootStmt)
}

func firstExprStmt(t *testing.T, r parseResult) *ast.Expr {
	t.Helper()
	items := topItems(t, r)
	require.NotEmpty(t, items)
	s := r.arena.Stmt(items[0])
	require.Equal(t, ast.StmtExpr, s.Kind)
	return r.arena.Expr(s.Expr)
}

func TestParse_PrecedenceMulOverAdd(t *testing.T) {
	r := parseSrc(t, "a + b * c;")
	require.False(t, r.bag.HasError())

	e := firstExprStmt(t, r)
	require.Equal(t, ast.ExprBinary, e.Kind)
	require.Equal(t, syntax.Plus, e.Op)
	rhs := r.arena.Expr(e.B)
	require.Equal(t, syntax.Star, rhs.Op)
}

func TestParse_AssignmentRightAssoc(t *testing.T) {
	r := parseSrc(t, "a = b = c;")
	require.False(t, r.bag.HasError())

	e := firstExprStmt(t, r)
	require.Equal(t, ast.ExprAssign, e.Kind)
	rhs := r.arena.Expr(e.B)
	require.Equal(t, ast.ExprAssign, rhs.Kind)
}

func TestParse_CompoundAssign(t *testing.T) {
	r := parseSrc(t, "a += 1;")
	require.False(t, r.bag.HasError())
	e := firstExprStmt(t, r)
	require.Equal(t, ast.ExprAssign, e.Kind)
	require.Equal(t, syntax.PlusAssign, e.Op)
}

func TestParse_TernaryNonNestable(t *testing.T) {
	r := parseSrc(t, "a ? b ? c : d : e;")
	require.True(t, r.bag.HasCode(diag.CodeNestedTernaryNotAllowed))

	r = parseSrc(t, "a ? b : c;")
	require.False(t, r.bag.HasError())
	e := firstExprStmt(t, r)
	require.Equal(t, ast.ExprTernary, e.Kind)
}

func TestParse_PostfixChain(t *testing.T) {
	r := parseSrc(t, "f(1)[2].m++;")
	require.False(t, r.bag.HasError())

	e := firstExprStmt(t, r)
	require.Equal(t, ast.ExprPostfixUnary, e.Kind)
	require.Equal(t, syntax.PlusPlus, e.Op)

	fieldE := r.arena.Expr(e.A)
	require.Equal(t, ast.ExprField, fieldE.Kind)
	require.Equal(t, "m", fieldE.Text)

	idxE := r.arena.Expr(fieldE.A)
	require.Equal(t, ast.ExprIndex, idxE.Kind)

	callE := r.arena.Expr(idxE.A)
	require.Equal(t, ast.ExprCall, callE.Kind)
}

func TestParse_CallArgForms(t *testing.T) {
	r := parseSrc(t, "f(a: 1, b: _, { c: 2, d: 3 });")
	require.False(t, r.bag.HasError())

	e := firstExprStmt(t, r)
	require.Equal(t, ast.ExprCall, e.Kind)
	args := r.arena.CallArgs(e)
	require.Len(t, args, 3)

	require.True(t, args[0].HasLabel)
	require.Equal(t, "a", args[0].Label)

	require.True(t, args[1].IsHole)
	require.Equal(t, "b", args[1].Label)

	require.Equal(t, ast.ArgNamedGroup, args[2].Kind)
	kids := r.arena.NamedGroupChildren(&args[2])
	require.Len(t, kids, 2)
	require.Equal(t, "c", kids[0].Label)
}

func TestParse_NestedNamedGroupRejected(t *testing.T) {
	r := parseSrc(t, "f({ a: 1, { b: 2 } });")
	require.True(t, r.bag.HasCode(diag.CodeNestedNamedGroupNotAllowed))
}

func TestParse_BorrowAndEscapePrefix(t *testing.T) {
	r := parseSrc(t, "&mut x;")
	require.False(t, r.bag.HasError())
	e := firstExprStmt(t, r)
	require.Equal(t, ast.ExprUnary, e.Kind)
	require.Equal(t, syntax.Amp, e.Op)
	require.True(t, e.UnaryIsMut)

	r = parseSrc(t, "&&x;")
	e = firstExprStmt(t, r)
	require.Equal(t, syntax.AmpAmp, e.Op)
}

func TestParse_CastForms(t *testing.T) {
	r := parseSrc(t, "x as i64;")
	require.False(t, r.bag.HasError())
	e := firstExprStmt(t, r)
	require.Equal(t, ast.ExprCast, e.Kind)
	require.Equal(t, ast.CastAs, e.CastKind)

	r = parseSrc(t, "x as? i64;")
	e = firstExprStmt(t, r)
	require.Equal(t, ast.CastOptional, e.CastKind)

	r = parseSrc(t, "x as! i64;")
	e = firstExprStmt(t, r)
	require.Equal(t, ast.CastForce, e.CastKind)
}

func TestParse_TypeSyntaxPrecedence(t *testing.T) {
	r := parseSrc(t, "fn f(a: &&i32?) -> i32 { return 0; }")
	require.False(t, r.bag.HasError())

	items := topItems(t, r)
	fn := r.arena.Stmt(items[0])
	require.Equal(t, ast.StmtFnDecl, fn.Kind)
	params := r.arena.FnParams(fn)
	require.Len(t, params, 1)

	// &&i32? must parse as &&(i32?)
	pt := r.pool.Get(params[0].Type)
	require.Equal(t, types.KindEscape, pt.Kind)
	elem := r.pool.Get(pt.Elem)
	require.Equal(t, types.KindOptional, elem.Kind)
}

func TestParse_SizedArrayType(t *testing.T) {
	r := parseSrc(t, "fn f() -> i32 { let mut x: i32[3] = [1, 2, 3]; return x[1]; }")
	require.False(t, r.bag.HasError())
}

func TestParse_VarForms(t *testing.T) {
	r := parseSrc(t, "fn f() -> i32 { let mut a: i32 = 1; set b = 2; return a; }")
	require.False(t, r.bag.HasError())

	fn := r.arena.Stmt(topItems(t, r)[0])
	body := r.arena.Stmt(fn.A)
	kids := r.arena.BlockChildren(body)
	require.Len(t, kids, 3)

	va := r.arena.Stmt(kids[0])
	require.Equal(t, ast.StmtVar, va.Kind)
	require.True(t, va.IsMut)
	require.False(t, va.IsSet)
	require.Equal(t, "a", va.Name)

	vb := r.arena.Stmt(kids[1])
	require.True(t, vb.IsSet)
}

func TestParse_StaticVarTopLevel(t *testing.T) {
	r := parseSrc(t, "static g: i32 = 7;")
	require.False(t, r.bag.HasError())
	s := r.arena.Stmt(topItems(t, r)[0])
	require.Equal(t, ast.StmtVar, s.Kind)
	require.True(t, s.IsStatic)
}

func TestParse_ControlStatements(t *testing.T) {
	src := `
fn f() -> i32 {
  if (a) { b; } elif (c) { d; } else { e; }
  while (x) { y; }
  do { z; }
  do { w; } while (q);
  switch (v) {
    case 1: { one; }
    default: { other; }
  }
  return 0;
}
`
	r := parseSrc(t, src)
	require.False(t, r.bag.HasError(), "diags: %v", r.bag.Diags())

	fn := r.arena.Stmt(topItems(t, r)[0])
	kids := r.arena.BlockChildren(r.arena.Stmt(fn.A))
	require.Len(t, kids, 6)

	ifS := r.arena.Stmt(kids[0])
	require.Equal(t, ast.StmtIf, ifS.Kind)
	elifS := r.arena.Stmt(ifS.B)
	require.Equal(t, ast.StmtIf, elifS.Kind)
	require.NotEqual(t, ast.InvalidStmt, elifS.B)

	require.Equal(t, ast.StmtWhile, r.arena.Stmt(kids[1]).Kind)
	require.Equal(t, ast.StmtDoScope, r.arena.Stmt(kids[2]).Kind)
	require.Equal(t, ast.StmtDoWhile, r.arena.Stmt(kids[3]).Kind)

	sw := r.arena.Stmt(kids[4])
	require.Equal(t, ast.StmtSwitch, sw.Kind)
	require.True(t, sw.HasDefault)
	require.Len(t, r.arena.Cases(sw), 2)
}

func TestParse_LoopExpr(t *testing.T) {
	r := parseSrc(t, "fn f() -> i32 { loop (x in xs) { x; }; return 0; }")
	require.False(t, r.bag.HasError(), "diags: %v", r.bag.Diags())
}

func TestParse_DeclForms(t *testing.T) {
	src := `
import os as sys;
use Money = u64;
use a.b = thing;
nest util;
field Point { i32 x; i32 y; }
acts Render for Point { fn draw(self p: Point) -> unit { return; } }
`
	r := parseSrc(t, src)
	require.False(t, r.bag.HasError(), "diags: %v", r.bag.Diags())

	items := topItems(t, r)
	require.Len(t, items, 6)
	require.Equal(t, ast.StmtImport, r.arena.Stmt(items[0]).Kind)
	require.Equal(t, ast.UseTypeAlias, r.arena.Stmt(items[1]).UseKind)
	require.Equal(t, ast.UsePathAlias, r.arena.Stmt(items[2]).UseKind)
	require.Equal(t, ast.StmtNestDecl, r.arena.Stmt(items[3]).Kind)

	fd := r.arena.Stmt(items[4])
	require.Equal(t, ast.StmtFieldDecl, fd.Kind)
	require.Len(t, r.arena.Members(fd), 2)

	ad := r.arena.Stmt(items[5])
	require.Equal(t, ast.StmtActsDecl, ad.Kind)
	require.True(t, ad.ActsIsFor)
	require.Equal(t, uint32(1), ad.StmtCount)
}

func TestParse_RecoveryToSemicolon(t *testing.T) {
	r := parseSrc(t, "fn f() -> i32 { let x: = ; return 0; }")
	require.True(t, r.bag.HasError())
	// the fn and the return statement still parse
	fn := r.arena.Stmt(topItems(t, r)[0])
	require.Equal(t, ast.StmtFnDecl, fn.Kind)
}

func TestParse_MaxErrorsTerminal(t *testing.T) {
	var bag diag.Bag
	toks := lex.New("@@; @@; @@; @@; @@; @@; @@; @@;", 0, &bag).LexAll()
	arena := &ast.Arena{}
	pool := types.NewPool()
	p := New(toks, arena, pool, &bag, 3)
	p.ParseProgram()

	require.True(t, p.Aborted())
	require.True(t, bag.HasCode(diag.CodeTooManyErrors))
}

func TestParse_DuplicateDiagsSuppressed(t *testing.T) {
	r := parseSrc(t, "fn f( { return; }")
	seen := map[string]int{}
	for _, d := range r.bag.Diags() {
		key := d.Code.Name() + string(rune(d.Span.Lo))
		seen[key]++
		require.LessOrEqual(t, seen[key], 1)
	}
}

func TestParse_SpansOrdered(t *testing.T) {
	r := parseSrc(t, "fn main() -> i32 { return 1 + 2; }")
	require.False(t, r.bag.HasError())
	for _, e := range r.arena.Exprs() {
		require.LessOrEqual(t, e.Span.Lo, e.Span.Hi)
	}
	for _, s := range r.arena.Stmts() {
		require.LessOrEqual(t, s.Span.Lo, s.Span.Hi)
	}
}
