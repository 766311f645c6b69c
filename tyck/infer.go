package tyck

import (
	"math/big"

	"github.com/brant-lang/brant/ast"
	"github.com/brant-lang/brant/diag"
	"github.com/brant-lang/brant/num"
	"github.com/brant-lang/brant/sema"
	"github.com/brant-lang/brant/syntax"
	"github.com/brant-lang/brant/types"
)

// pendingInt is one deferred-inference entry: the literal's exact value
// (when literal-backed) and its resolution state.
type pendingInt struct {
	value        *big.Int
	hasValue     bool
	resolved     bool
	resolvedType types.TypeID
}

// checkIntLit types an integer literal: a suffixed literal gets its
// concrete type immediately (with range check); an unsuffixed one gets
// the "{integer}" pseudo-type and a pending entry.
func (c *Checker) checkIntLit(eid ast.ExprID, e *ast.Expr) types.TypeID {
	lit, ok := num.ParseLit(e.Text)
	if !ok {
		c.report(diag.CodeUnexpectedToken, e.Span, e.Text)
		return c.setExprType(eid, c.pool.ErrorType())
	}

	if lit.Suffix != "" {
		b, known := num.SuffixBuiltin(lit.Suffix)
		if !known {
			c.report(diag.CodeBadCast, e.Span, e.Text, lit.Suffix)
			return c.setExprType(eid, c.pool.ErrorType())
		}
		if !num.Fits(lit.Value, b) {
			c.report(diag.CodeIntLitOutOfRange, e.Span,
				lit.Value.String(), c.pool.String(c.pool.BuiltinType(b)))
			return c.setExprType(eid, c.pool.ErrorType())
		}
		return c.setExprType(eid, c.pool.BuiltinType(b))
	}

	c.pendingExpr[eid] = &pendingInt{value: lit.Value, hasValue: true}
	c.fnPending = append(c.fnPending, eid)
	return c.setExprType(eid, c.pool.InferInteger())
}

// inferValueOf computes the literal value of an expression made only of
// integer literals and +,-,* arithmetic, for resolution range checks.
func (c *Checker) inferValueOf(eid ast.ExprID) (*big.Int, bool) {
	if eid == ast.InvalidExpr {
		return nil, false
	}
	if p, ok := c.pendingExpr[eid]; ok && p.hasValue {
		return p.value, true
	}
	e := c.arena.Expr(eid)
	switch e.Kind {
	case ast.ExprUnary:
		v, ok := c.inferValueOf(e.A)
		if !ok {
			return nil, false
		}
		switch e.Op {
		case syntax.Plus:
			return v, true
		case syntax.Minus:
			return new(big.Int).Neg(v), true
		}
		return nil, false
	case ast.ExprBinary:
		a, okA := c.inferValueOf(e.A)
		b, okB := c.inferValueOf(e.B)
		if !okA || !okB {
			return nil, false
		}
		switch e.Op {
		case syntax.Plus:
			return new(big.Int).Add(a, b), true
		case syntax.Minus:
			return new(big.Int).Sub(a, b), true
		case syntax.Star:
			return new(big.Int).Mul(a, b), true
		}
	}
	return nil, false
}

// resolveInferInContext backpatches an "{integer}"-typed expression tree
// to a concrete integer type discovered from context. Literal-backed
// nodes are range-checked against the target. Reports and returns false
// when the value does not fit.
func (c *Checker) resolveInferInContext(eid ast.ExprID, expected types.TypeID) bool {
	if eid == ast.InvalidExpr {
		return false
	}
	if !c.pool.IsInteger(expected) {
		return false
	}
	if !c.pool.IsInfer(c.exprType(eid)) {
		return true
	}

	e := c.arena.Expr(eid)
	b := c.pool.Get(expected).Builtin

	if p, ok := c.pendingExpr[eid]; ok && p.hasValue {
		if !num.Fits(p.value, b) {
			c.report(diag.CodeIntLitOutOfRange, e.Span,
				p.value.String(), c.pool.String(expected))
			c.setExprType(eid, c.pool.ErrorType())
			p.resolved = true
			p.resolvedType = c.pool.ErrorType()
			return false
		}
		p.resolved = true
		p.resolvedType = expected
		c.setExprType(eid, expected)
		return true
	}

	switch e.Kind {
	case ast.ExprUnary:
		if !c.resolveInferInContext(e.A, expected) {
			return false
		}
		c.setExprType(eid, expected)
		return true

	case ast.ExprBinary:
		okA := c.resolveInferInContext(e.A, expected)
		okB := c.resolveInferInContext(e.B, expected)
		if !okA || !okB {
			return false
		}
		c.setExprType(eid, expected)
		return true

	case ast.ExprTernary, ast.ExprIfExpr:
		okB := c.resolveInferInContext(e.B, expected)
		okC := e.C == ast.InvalidExpr || c.resolveInferInContext(e.C, expected)
		if !okB || !okC {
			return false
		}
		c.setExprType(eid, expected)
		return true

	case ast.ExprIdent:
		// an ident carrying "{integer}" refers to a set-inferred symbol
		if rs, ok := c.nres.LookupExpr(eid); ok && rs.Sym != sema.InvalidSymbol {
			if sp, pending := c.pendingSym[rs.Sym]; pending && !sp.resolved {
				if sp.hasValue && !num.Fits(sp.value, b) {
					c.report(diag.CodeIntLitOutOfRange, e.Span,
						sp.value.String(), c.pool.String(expected))
					return false
				}
				sp.resolved = true
				sp.resolvedType = expected
				c.table.UpdateDeclaredType(rs.Sym, expected)
			}
		}
		c.setExprType(eid, expected)
		return true
	}

	c.setExprType(eid, expected)
	return true
}

// poisonInfer marks every pending literal under eid as resolved-to-error
// so the annihilator stops follow-on unresolved-inference reports.
func (c *Checker) poisonInfer(eid ast.ExprID) {
	if eid == ast.InvalidExpr {
		return
	}
	if p, ok := c.pendingExpr[eid]; ok && !p.resolved {
		p.resolved = true
		p.resolvedType = c.pool.ErrorType()
		c.setExprType(eid, c.pool.ErrorType())
		return
	}
	e := c.arena.Expr(eid)
	switch e.Kind {
	case ast.ExprUnary, ast.ExprPostfixUnary, ast.ExprCast:
		c.poisonInfer(e.A)
	case ast.ExprBinary, ast.ExprAssign, ast.ExprIndex:
		c.poisonInfer(e.A)
		c.poisonInfer(e.B)
	case ast.ExprTernary, ast.ExprIfExpr:
		c.poisonInfer(e.A)
		c.poisonInfer(e.B)
		c.poisonInfer(e.C)
	}
}

// finishFnInference reports any literal that never received a concrete
// type by the end of the function body.
func (c *Checker) finishFnInference() {
	for _, eid := range c.fnPending {
		p := c.pendingExpr[eid]
		if p == nil || p.resolved {
			continue
		}
		if !c.pool.IsInfer(c.exprType(eid)) {
			p.resolved = true
			p.resolvedType = c.exprType(eid)
			continue
		}
		c.report(diag.CodeUnresolvedInferInt, c.arena.Expr(eid).Span)
		c.setExprType(eid, c.pool.ErrorType())
	}
	c.fnPending = c.fnPending[:0]
}
