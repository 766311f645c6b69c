package tyck

import (
	"github.com/brant-lang/brant/ast"
	"github.com/brant-lang/brant/diag"
	"github.com/brant-lang/brant/sema"
	"github.com/brant-lang/brant/types"
)

func (c *Checker) checkFnDecl(sid ast.StmtID) {
	s := c.arena.Stmt(sid)

	ret := s.FnRet
	if ret == types.InvalidType {
		ret = c.pool.Unit()
	}

	prev := c.fn
	c.fn = fnCtx{inFn: true, ret: ret}

	// default parameter values must be assignable to the parameter type
	for _, p := range c.arena.FnParams(s) {
		if !p.HasDefault || p.DefaultExpr == ast.InvalidExpr {
			continue
		}
		dt := c.checkExpr(p.DefaultExpr, slotValue)
		if c.pool.IsInfer(dt) && c.pool.IsInteger(p.Type) {
			c.resolveInferInContext(p.DefaultExpr, p.Type)
			dt = c.exprType(p.DefaultExpr)
		}
		if !c.canAssign(p.Type, dt) {
			c.report(diag.CodeTypeMismatch, p.Span,
				c.pool.String(p.Type), c.pool.String(dt))
		}
	}

	if s.A != ast.InvalidStmt {
		c.checkStmt(s.A)
	}

	c.finishFnInference()
	c.fn = prev
}

func (c *Checker) checkStmt(sid ast.StmtID) {
	if sid == ast.InvalidStmt {
		return
	}
	s := c.arena.Stmt(sid)

	switch s.Kind {
	case ast.StmtBlock:
		for _, k := range c.arena.BlockChildren(s) {
			c.checkStmt(k)
		}

	case ast.StmtExpr:
		c.checkExpr(s.Expr, slotDiscard)

	case ast.StmtVar:
		c.checkVarStmt(sid)

	case ast.StmtIf:
		c.checkCond(s.Expr)
		c.checkStmt(s.A)
		c.checkStmt(s.B)

	case ast.StmtWhile:
		c.checkCond(s.Expr)
		c.stmtLoops++
		c.checkStmt(s.A)
		c.stmtLoops--

	case ast.StmtDoWhile:
		c.stmtLoops++
		c.checkStmt(s.A)
		c.stmtLoops--
		c.checkCond(s.Expr)

	case ast.StmtDoScope:
		c.checkStmt(s.A)

	case ast.StmtReturn:
		c.checkReturn(s)

	case ast.StmtBreak:
		if !c.inLoop() {
			c.report(diag.CodeBreakOutsideLoop, s.Span, "break")
		}
		if s.Expr != ast.InvalidExpr {
			t := c.checkExpr(s.Expr, slotValue)
			c.noteBreak(t, true)
		} else {
			c.noteBreak(types.InvalidType, false)
		}

	case ast.StmtContinue:
		if !c.inLoop() {
			c.report(diag.CodeBreakOutsideLoop, s.Span, "continue")
		}

	case ast.StmtSwitch:
		c.checkExpr(s.Expr, slotValue)
		for _, cs := range c.arena.Cases(s) {
			c.checkStmt(cs.Body)
		}

	case ast.StmtFnDecl:
		c.checkFnDecl(sid)
	}
}

func (c *Checker) checkCond(eid ast.ExprID) {
	t := c.checkExpr(eid, slotValue)
	if c.pool.IsError(t) || c.pool.IsBool(t) {
		return
	}
	c.report(diag.CodeTypeMismatch, c.arena.Expr(eid).Span,
		c.pool.String(c.pool.Bool()), c.pool.String(t))
}

func (c *Checker) checkReturn(s *ast.Stmt) {
	want := c.fn.ret
	if !c.fn.inFn {
		want = c.pool.Unit()
	}

	if s.Expr == ast.InvalidExpr {
		if !c.pool.IsUnit(want) && !c.pool.IsError(want) {
			c.report(diag.CodeReturnTypeMismatch, s.Span,
				c.pool.String(want), c.pool.String(c.pool.Unit()))
		}
		return
	}

	got := c.checkExpr(s.Expr, slotValue)
	if c.pool.IsError(want) || c.pool.IsError(got) {
		c.poisonInfer(s.Expr)
		return
	}
	if c.pool.IsInfer(got) && c.pool.IsInteger(want) {
		if c.resolveInferInContext(s.Expr, want) {
			return
		}
		return // range failure already reported
	}
	if !c.canAssign(want, got) {
		c.report(diag.CodeReturnTypeMismatch, s.Span,
			c.pool.String(want), c.pool.String(got))
	}
}

func (c *Checker) checkVarStmt(sid ast.StmtID) {
	s := c.arena.Stmt(sid)

	var initT types.TypeID = types.InvalidType
	if s.Init != ast.InvalidExpr {
		initT = c.checkExpr(s.Init, slotValue)
	}

	declared := s.Type

	if declared != types.InvalidType {
		if s.Init != ast.InvalidExpr {
			if c.pool.IsInfer(initT) && c.pool.IsInteger(declared) {
				c.resolveInferInContext(s.Init, declared)
				initT = c.exprType(s.Init)
			}
			if !c.assignableInit(declared, initT, s.Init) {
				c.report(diag.CodeTypeMismatch, c.arena.Expr(s.Init).Span,
					c.pool.String(declared), c.pool.String(initT))
			}
		}
		c.bindSymbolType(sid, declared)
		return
	}

	// no annotation: infer from init
	if s.Init == ast.InvalidExpr {
		c.bindSymbolType(sid, c.pool.ErrorType())
		return
	}

	if c.pool.IsInfer(initT) {
		// deferred: keep the pseudo-type on the symbol until a use site
		// or the end of the function fixes it
		c.bindSymbolType(sid, c.pool.InferInteger())
		if rs, ok := c.nres.LookupStmt(sid); ok && rs.Sym != sema.InvalidSymbol {
			if v, okV := c.inferValueOf(s.Init); okV {
				c.pendingSym[rs.Sym] = &pendingInt{value: v, hasValue: true}
			} else {
				c.pendingSym[rs.Sym] = &pendingInt{}
			}
		}
		return
	}
	c.bindSymbolType(sid, initT)
}

// assignableInit widens canAssign for declarations: an array literal
// whose elements fit the declared element type initializes both sized
// and unsized array types.
func (c *Checker) assignableInit(declared, initT types.TypeID, initE ast.ExprID) bool {
	if c.canAssign(declared, initT) {
		return true
	}
	dt := c.pool.Get(declared)
	if dt.Kind != types.KindArray || initE == ast.InvalidExpr {
		return false
	}
	init := c.arena.Expr(initE)
	if init.Kind != ast.ExprArrayLit {
		// unsized slice accepts a sized array of the same element
		it := c.pool.Get(initT)
		return it.Kind == types.KindArray && it.Elem == dt.Elem && !dt.ArrayHasSize
	}
	if dt.ArrayHasSize && uint32(init.ArgCount) != dt.ArraySize {
		return false
	}
	for _, a := range c.arena.CallArgs(init) {
		et := c.exprType(a.Expr)
		if c.pool.IsInfer(et) && c.pool.IsInteger(dt.Elem) {
			if !c.resolveInferInContext(a.Expr, dt.Elem) {
				return true // range error already reported
			}
			et = c.exprType(a.Expr)
		}
		if !c.canAssign(dt.Elem, et) {
			return false
		}
	}
	c.setExprType(initE, declared)
	return true
}

func (c *Checker) bindSymbolType(sid ast.StmtID, t types.TypeID) {
	if rs, ok := c.nres.LookupStmt(sid); ok && rs.Sym != sema.InvalidSymbol {
		c.table.UpdateDeclaredType(rs.Sym, t)
	}
}
