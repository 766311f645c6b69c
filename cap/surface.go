// Package cap performs the AST-level surface checks for the borrow and
// escape operators. The precise per-symbol state machine runs later over
// SIR; this pass only rejects shapes that are locally, obviously wrong:
// non-place operands, escapes of borrows, escapes of temporaries.
package cap

import (
	"github.com/brant-lang/brant/ast"
	"github.com/brant-lang/brant/diag"
	"github.com/brant-lang/brant/syntax"
)

// Result summarizes a surface check run.
type Result struct {
	OK         bool
	ErrorCount uint32
}

// Check walks the program and validates every '&', '&mut', and '&&'.
func Check(arena *ast.Arena, root ast.StmtID, bag *diag.Bag) Result {
	c := &checker{arena: arena, bag: bag}
	c.walkStmt(root)
	return Result{OK: c.errors == 0, ErrorCount: c.errors}
}

type checker struct {
	arena  *ast.Arena
	bag    *diag.Bag
	errors uint32
}

func (c *checker) report(code diag.Code, e *ast.Expr) {
	c.errors++
	c.bag.Add(diag.New(diag.SeverityError, code, e.Span))
}

// isPlaceExpr reports whether the expression denotes a storage location:
// an identifier, an index whose base is a place, a field of a place, or
// a deref.
func (c *checker) isPlaceExpr(id ast.ExprID) bool {
	if id == ast.InvalidExpr {
		return false
	}
	e := c.arena.Expr(id)
	switch e.Kind {
	case ast.ExprIdent:
		return true
	case ast.ExprIndex:
		return c.isPlaceExpr(e.A)
	case ast.ExprField:
		return c.isPlaceExpr(e.A)
	case ast.ExprUnary:
		return e.Op == syntax.Star && c.isPlaceExpr(e.A)
	}
	return false
}

func (c *checker) isBorrowUnary(id ast.ExprID) bool {
	if id == ast.InvalidExpr {
		return false
	}
	e := c.arena.Expr(id)
	return e.Kind == ast.ExprUnary && e.Op == syntax.Amp
}

func (c *checker) checkUnary(e *ast.Expr) {
	switch e.Op {
	case syntax.Amp:
		if !c.isPlaceExpr(e.A) {
			c.report(diag.CodeBorrowOperandMustBePlace, e)
		}

	case syntax.AmpAmp:
		if c.isBorrowUnary(e.A) {
			c.report(diag.CodeEscapeOperandMustNotBeBorrow, e)
			return
		}
		if !c.isPlaceExpr(e.A) {
			// a call result or literal under '&&' is a temporary
			opnd := c.arena.Expr(e.A)
			if opnd.Kind == ast.ExprCall || isLiteral(opnd.Kind) {
				c.report(diag.CodeEscapeOfTemporary, e)
			} else {
				c.report(diag.CodeEscapeOperandMustBePlace, e)
			}
			return
		}
	}
}

func isLiteral(k ast.ExprKind) bool {
	switch k {
	case ast.ExprIntLit, ast.ExprFloatLit, ast.ExprStringLit,
		ast.ExprCharLit, ast.ExprBoolLit, ast.ExprNullLit, ast.ExprArrayLit:
		return true
	}
	return false
}

func (c *checker) walkStmt(sid ast.StmtID) {
	if sid == ast.InvalidStmt {
		return
	}
	s := c.arena.Stmt(sid)
	switch s.Kind {
	case ast.StmtBlock:
		for _, k := range c.arena.BlockChildren(s) {
			c.walkStmt(k)
		}
	case ast.StmtExpr, ast.StmtReturn, ast.StmtBreak:
		c.walkExpr(s.Expr)
	case ast.StmtVar:
		c.walkExpr(s.Init)
	case ast.StmtIf:
		c.walkExpr(s.Expr)
		c.walkStmt(s.A)
		c.walkStmt(s.B)
	case ast.StmtWhile, ast.StmtDoWhile:
		c.walkExpr(s.Expr)
		c.walkStmt(s.A)
	case ast.StmtDoScope:
		c.walkStmt(s.A)
	case ast.StmtSwitch:
		c.walkExpr(s.Expr)
		for _, cs := range c.arena.Cases(s) {
			c.walkStmt(cs.Body)
		}
	case ast.StmtFnDecl:
		c.walkStmt(s.A)
	case ast.StmtActsDecl:
		for _, k := range c.arena.BlockChildren(s) {
			c.walkStmt(k)
		}
	}
}

func (c *checker) walkExpr(eid ast.ExprID) {
	if eid == ast.InvalidExpr {
		return
	}
	e := c.arena.Expr(eid)

	switch e.Kind {
	case ast.ExprUnary:
		c.checkUnary(e)
		c.walkExpr(e.A)
	case ast.ExprPostfixUnary, ast.ExprCast, ast.ExprField:
		c.walkExpr(e.A)
	case ast.ExprBinary, ast.ExprAssign, ast.ExprIndex:
		c.walkExpr(e.A)
		c.walkExpr(e.B)
	case ast.ExprTernary, ast.ExprIfExpr:
		c.walkExpr(e.A)
		c.walkExpr(e.B)
		c.walkExpr(e.C)
	case ast.ExprCall:
		c.walkExpr(e.A)
		c.walkArgs(e)
	case ast.ExprArrayLit:
		c.walkArgs(e)
	case ast.ExprLoop:
		if e.LoopIter != ast.InvalidExpr {
			c.walkExpr(e.LoopIter)
		}
		c.walkStmt(e.LoopBody)
	case ast.ExprBlockExpr:
		c.walkStmt(e.LoopBody)
	}
}

func (c *checker) walkArgs(e *ast.Expr) {
	for i := range c.arena.CallArgs(e) {
		a := c.arena.CallArgs(e)[i]
		if a.Kind == ast.ArgNamedGroup {
			for _, ch := range c.arena.NamedGroupChildren(&a) {
				if !ch.IsHole && ch.Expr != ast.InvalidExpr {
					c.walkExpr(ch.Expr)
				}
			}
			continue
		}
		if !a.IsHole && a.Expr != ast.InvalidExpr {
			c.walkExpr(a.Expr)
		}
	}
}
