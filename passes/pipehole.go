package passes

import (
	"github.com/brant-lang/brant/ast"
	"github.com/brant-lang/brant/diag"
	"github.com/brant-lang/brant/syntax"
	"github.com/brant-lang/brant/text"
)

// CheckPipeHole validates every pipe expression in the tree: the RHS of
// '<<' must be a call containing exactly one labeled hole '_', with no
// positional holes and no labeled/positional mixing.
func CheckPipeHole(arena *ast.Arena, root ast.StmtID, bag *diag.Bag) {
	w := &pipeWalker{arena: arena, bag: bag}
	w.walkStmt(root)
}

type pipeWalker struct {
	arena *ast.Arena
	bag   *diag.Bag
}

type pipeScan struct {
	anyLabeled    bool
	anyPositional bool
	holeCount     int
}

func (w *pipeWalker) report(code diag.Code, sp text.Span, argInt int) {
	d := diag.New(diag.SeverityError, code, sp)
	if argInt >= 0 {
		d = d.WithArgInt(argInt)
	}
	w.bag.Add(d)
}

func (w *pipeWalker) walkStmt(sid ast.StmtID) {
	if sid == ast.InvalidStmt {
		return
	}
	s := w.arena.Stmt(sid)
	switch s.Kind {
	case ast.StmtBlock:
		for _, c := range w.arena.BlockChildren(s) {
			w.walkStmt(c)
		}
	case ast.StmtExpr, ast.StmtReturn, ast.StmtBreak:
		w.walkExpr(s.Expr)
	case ast.StmtVar:
		w.walkExpr(s.Init)
	case ast.StmtIf:
		w.walkExpr(s.Expr)
		w.walkStmt(s.A)
		w.walkStmt(s.B)
	case ast.StmtWhile, ast.StmtDoWhile:
		w.walkExpr(s.Expr)
		w.walkStmt(s.A)
	case ast.StmtDoScope:
		w.walkStmt(s.A)
	case ast.StmtSwitch:
		w.walkExpr(s.Expr)
		for _, c := range w.arena.Cases(s) {
			w.walkStmt(c.Body)
		}
	case ast.StmtFnDecl:
		w.walkStmt(s.A)
	case ast.StmtActsDecl:
		for _, c := range w.arena.BlockChildren(s) {
			w.walkStmt(c)
		}
	}
}

func (w *pipeWalker) walkExpr(eid ast.ExprID) {
	if eid == ast.InvalidExpr {
		return
	}
	e := w.arena.Expr(eid)

	switch e.Kind {
	case ast.ExprBinary:
		if e.Op == syntax.LessLess {
			w.checkPipe(e)
		}
		w.walkExpr(e.A)
		w.walkExpr(e.B)

	case ast.ExprAssign, ast.ExprIndex:
		w.walkExpr(e.A)
		w.walkExpr(e.B)

	case ast.ExprUnary, ast.ExprPostfixUnary, ast.ExprCast, ast.ExprField:
		w.walkExpr(e.A)

	case ast.ExprTernary, ast.ExprIfExpr:
		w.walkExpr(e.A)
		w.walkExpr(e.B)
		w.walkExpr(e.C)

	case ast.ExprCall:
		w.walkExpr(e.A)
		w.walkArgs(e)

	case ast.ExprArrayLit:
		w.walkArgs(e)

	case ast.ExprLoop:
		if e.LoopIter != ast.InvalidExpr {
			w.walkExpr(e.LoopIter)
		}
		w.walkStmt(e.LoopBody)

	case ast.ExprBlockExpr:
		w.walkStmt(e.LoopBody)
	}
}

func (w *pipeWalker) walkArgs(e *ast.Expr) {
	for i := range w.arena.CallArgs(e) {
		a := w.arena.CallArgs(e)[i]
		if a.Kind == ast.ArgNamedGroup {
			for _, c := range w.arena.NamedGroupChildren(&a) {
				if !c.IsHole && c.Expr != ast.InvalidExpr {
					w.walkExpr(c.Expr)
				}
			}
			continue
		}
		if !a.IsHole && a.Expr != ast.InvalidExpr {
			w.walkExpr(a.Expr)
		}
	}
}

func (w *pipeWalker) checkPipe(pipe *ast.Expr) {
	rhs := w.arena.Expr(pipe.B)
	if rhs.Kind != ast.ExprCall {
		w.report(diag.CodePipeRhsMustBeCall, pipe.Span, -1)
		return
	}
	w.validatePipeCall(rhs)
}

func (w *pipeWalker) validatePipeCall(call *ast.Expr) {
	var scan pipeScan
	w.scanArgList(w.arena.CallArgs(call), &scan)

	if scan.anyLabeled && scan.anyPositional {
		w.report(diag.CodeCallArgMixNotAllowed, call.Span, -1)
	}
	if scan.holeCount != 1 {
		w.report(diag.CodePipeHoleCountMismatch, call.Span, scan.holeCount)
	}
}

func (w *pipeWalker) scanArgList(args []ast.Arg, scan *pipeScan) {
	for i := range args {
		a := args[i]

		if a.Kind == ast.ArgNamedGroup {
			// the group itself counts as labeled
			scan.anyLabeled = true
			w.scanArgList(w.arena.NamedGroupChildren(&a), scan)
			continue
		}

		if a.HasLabel {
			scan.anyLabeled = true
		} else {
			scan.anyPositional = true
		}

		if a.IsHole {
			scan.holeCount++
			if !a.HasLabel {
				w.report(diag.CodePipeHoleMustBeLabeled, a.Span, -1)
			}
			continue
		}

		if a.Expr != ast.InvalidExpr {
			if w.arena.Expr(a.Expr).Kind == ast.ExprHole {
				w.report(diag.CodePipeHolePositionalNotAllowed, w.arena.Expr(a.Expr).Span, -1)
			}
		}
	}
}
