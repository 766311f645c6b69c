package tyck

import (
	"github.com/brant-lang/brant/ast"
	"github.com/brant-lang/brant/diag"
	"github.com/brant-lang/brant/sema"
	"github.com/brant-lang/brant/syntax"
	"github.com/brant-lang/brant/types"
)

func (c *Checker) checkExpr(eid ast.ExprID, sl slot) types.TypeID {
	if eid == ast.InvalidExpr {
		return c.pool.ErrorType()
	}
	e := c.arena.Expr(eid)

	switch e.Kind {
	case ast.ExprError:
		return c.setExprType(eid, c.pool.ErrorType())

	case ast.ExprIntLit:
		return c.checkIntLit(eid, e)

	case ast.ExprFloatLit:
		return c.setExprType(eid, c.checkFloatLit(e))

	case ast.ExprStringLit:
		return c.setExprType(eid, c.pool.Text())

	case ast.ExprCharLit:
		return c.setExprType(eid, c.pool.Char())

	case ast.ExprBoolLit:
		return c.setExprType(eid, c.pool.Bool())

	case ast.ExprNullLit:
		return c.setExprType(eid, c.pool.Null())

	case ast.ExprHole:
		return c.setExprType(eid, c.pool.ErrorType())

	case ast.ExprIdent:
		return c.checkIdent(eid)

	case ast.ExprArrayLit:
		return c.checkArrayLit(eid, e)

	case ast.ExprUnary:
		return c.checkUnary(eid, e)

	case ast.ExprPostfixUnary:
		return c.checkPostfixUnary(eid, e)

	case ast.ExprBinary:
		return c.checkBinary(eid, e)

	case ast.ExprAssign:
		return c.checkAssign(eid, e)

	case ast.ExprTernary:
		return c.checkTernary(eid, e)

	case ast.ExprCall:
		return c.checkCall(eid, e, types.InvalidType)

	case ast.ExprIndex:
		return c.checkIndex(eid, e)

	case ast.ExprField:
		return c.checkField(eid, e)

	case ast.ExprLoop:
		return c.checkLoop(eid, e, sl)

	case ast.ExprIfExpr:
		return c.checkIfExpr(eid, e, sl)

	case ast.ExprBlockExpr:
		c.checkStmt(e.LoopBody)
		return c.setExprType(eid, c.pool.Unit())

	case ast.ExprCast:
		return c.checkCast(eid, e)
	}

	return c.setExprType(eid, c.pool.ErrorType())
}

func (c *Checker) checkFloatLit(e *ast.Expr) types.TypeID {
	// suffix picks the width; default is f64
	switch {
	case hasSuffix(e.Text, "f32"):
		return c.pool.BuiltinType(types.BuiltinF32)
	case hasSuffix(e.Text, "f128"):
		return c.pool.BuiltinType(types.BuiltinF128)
	default:
		return c.pool.BuiltinType(types.BuiltinF64)
	}
}

func hasSuffix(s, suf string) bool {
	return len(s) >= len(suf) && s[len(s)-len(suf):] == suf
}

func (c *Checker) checkIdent(eid ast.ExprID) types.TypeID {
	rs, ok := c.nres.LookupExpr(eid)
	if !ok || rs.Bind == sema.BindError || rs.Sym == sema.InvalidSymbol {
		return c.setExprType(eid, c.pool.ErrorType())
	}
	t := c.table.Symbol(rs.Sym).DeclaredType
	if t == types.InvalidType {
		t = c.pool.ErrorType()
	}
	return c.setExprType(eid, t)
}

func (c *Checker) checkArrayLit(eid ast.ExprID, e *ast.Expr) types.TypeID {
	elem := types.InvalidType
	for _, a := range c.arena.CallArgs(e) {
		at := c.checkExpr(a.Expr, slotValue)
		if elem == types.InvalidType {
			elem = at
			continue
		}
		if u, ok := c.unify(elem, at); ok {
			elem = u
		} else {
			c.report(diag.CodeCannotUnify, a.Span,
				c.pool.String(elem), c.pool.String(at))
			elem = c.pool.ErrorType()
		}
	}
	if elem == types.InvalidType {
		elem = c.pool.ErrorType()
	}
	return c.setExprType(eid, c.pool.MakeSizedArray(elem, e.ArgCount))
}

// isPlaceExpr mirrors the capability surface rule: ident, index of a
// place, field of a place, deref.
func (c *Checker) isPlaceExpr(id ast.ExprID) bool {
	if id == ast.InvalidExpr {
		return false
	}
	e := c.arena.Expr(id)
	switch e.Kind {
	case ast.ExprIdent:
		return true
	case ast.ExprIndex, ast.ExprField:
		return c.isPlaceExpr(e.A)
	case ast.ExprUnary:
		return e.Op == syntax.Star && c.isPlaceExpr(e.A)
	}
	return false
}

func (c *Checker) checkUnary(eid ast.ExprID, e *ast.Expr) types.TypeID {
	switch e.Op {
	case syntax.Amp:
		t := c.checkExpr(e.A, slotValue)
		if !c.isPlaceExpr(e.A) {
			c.report(diag.CodeBorrowOperandMustBePlace, e.Span)
			return c.setExprType(eid, c.pool.ErrorType())
		}
		if c.pool.IsError(t) {
			return c.setExprType(eid, c.pool.ErrorType())
		}
		if c.pool.IsInfer(t) {
			// borrowing fixes nothing; a borrow element must be concrete
			c.report(diag.CodeUnresolvedInferInt, c.arena.Expr(e.A).Span)
			return c.setExprType(eid, c.pool.ErrorType())
		}
		if !c.pool.IsBorrowable(t) {
			c.report(diag.CodeTypeMismatch, e.Span, "borrowable type", c.pool.String(t))
			return c.setExprType(eid, c.pool.ErrorType())
		}
		return c.setExprType(eid, c.pool.MakeBorrow(t, e.UnaryIsMut))

	case syntax.AmpAmp:
		t := c.checkExpr(e.A, slotValue)
		if !c.isPlaceExpr(e.A) {
			c.report(diag.CodeEscapeOperandMustBePlace, e.Span)
			return c.setExprType(eid, c.pool.ErrorType())
		}
		if c.pool.IsError(t) {
			return c.setExprType(eid, c.pool.ErrorType())
		}
		if c.pool.Valid(t) && c.pool.Get(t).Kind == types.KindEscape {
			c.report(diag.CodeDoubleEscapeNotAllowed, e.Span)
			return c.setExprType(eid, c.pool.ErrorType())
		}
		return c.setExprType(eid, c.pool.MakeEscape(t))

	case syntax.Star:
		t := c.checkExpr(e.A, slotValue)
		if c.pool.IsError(t) {
			return c.setExprType(eid, c.pool.ErrorType())
		}
		tt := c.pool.Get(t)
		if tt.Kind == types.KindPtr || tt.Kind == types.KindBorrow {
			return c.setExprType(eid, tt.Elem)
		}
		c.report(diag.CodeTypeMismatch, e.Span, "pointer or borrow", c.pool.String(t))
		return c.setExprType(eid, c.pool.ErrorType())

	case syntax.Bang, syntax.KwNot:
		t := c.checkExpr(e.A, slotValue)
		if !c.pool.IsError(t) && !c.pool.IsBool(t) {
			c.report(diag.CodeTypeMismatch, e.Span,
				c.pool.String(c.pool.Bool()), c.pool.String(t))
		}
		return c.setExprType(eid, c.pool.Bool())

	case syntax.Plus, syntax.Minus:
		t := c.checkExpr(e.A, slotValue)
		if c.pool.IsError(t) {
			return c.setExprType(eid, c.pool.ErrorType())
		}
		if !c.pool.IsNumeric(t) {
			c.report(diag.CodeTypeMismatch, e.Span, "numeric type", c.pool.String(t))
			return c.setExprType(eid, c.pool.ErrorType())
		}
		return c.setExprType(eid, t)
	}

	return c.setExprType(eid, c.pool.ErrorType())
}

func (c *Checker) checkPostfixUnary(eid ast.ExprID, e *ast.Expr) types.TypeID {
	switch e.Op {
	case syntax.PlusPlus:
		t := c.checkExpr(e.A, slotValue)
		if !c.isPlaceExpr(e.A) {
			c.report(diag.CodeNonPlaceAssign, e.Span)
			return c.setExprType(eid, c.pool.ErrorType())
		}
		c.checkWritable(e.A, e, "postfix++")
		if c.pool.IsError(t) {
			return c.setExprType(eid, c.pool.ErrorType())
		}
		if !c.pool.IsInteger(t) && !c.pool.IsInfer(t) {
			c.report(diag.CodeTypeMismatch, e.Span, "integer type", c.pool.String(t))
			return c.setExprType(eid, c.pool.ErrorType())
		}
		return c.setExprType(eid, t)

	case syntax.Question:
		t := c.checkExpr(e.A, slotValue)
		if c.pool.IsError(t) {
			return c.setExprType(eid, c.pool.ErrorType())
		}
		if elem := c.pool.OptionalElem(t); elem != types.InvalidType {
			return c.setExprType(eid, elem)
		}
		c.report(diag.CodeOptionalUnwrapOnNonOptional, e.Span, c.pool.String(t))
		return c.setExprType(eid, c.pool.ErrorType())
	}

	return c.setExprType(eid, c.pool.ErrorType())
}

func isComparisonOp(k syntax.TokenKind) bool {
	switch k {
	case syntax.EqEq, syntax.BangEq, syntax.Lt, syntax.LtEq, syntax.Gt, syntax.GtEq:
		return true
	}
	return false
}

func isLogicalOp(k syntax.TokenKind) bool {
	switch k {
	case syntax.AmpAmp, syntax.PipePipe, syntax.Caret,
		syntax.KwAnd, syntax.KwOr, syntax.KwXor:
		return true
	}
	return false
}

func isArithOp(k syntax.TokenKind) bool {
	switch k {
	case syntax.Plus, syntax.Minus, syntax.Star, syntax.Slash, syntax.Percent:
		return true
	}
	return false
}

func (c *Checker) checkBinary(eid ast.ExprID, e *ast.Expr) types.TypeID {
	// pipe: type the RHS call with the LHS value as the hole type
	if e.Op == syntax.LessLess {
		lt := c.checkExpr(e.A, slotValue)
		rhs := c.arena.Expr(e.B)
		if rhs.Kind != ast.ExprCall {
			// shape error already reported by the pipe-hole pass
			c.checkExpr(e.B, slotValue)
			return c.setExprType(eid, c.pool.ErrorType())
		}
		rt := c.checkCall(e.B, rhs, lt)
		return c.setExprType(eid, rt)
	}

	// range operands type as their join; the range itself is not a value
	// type in v0 and only appears as an index operand
	if e.Op == syntax.DotDot || e.Op == syntax.DotDotColon {
		a := c.checkExpr(e.A, slotValue)
		b := c.checkExpr(e.B, slotValue)
		if u, ok := c.unify(a, b); ok {
			return c.setExprType(eid, u)
		}
		c.report(diag.CodeCannotUnify, e.Span, c.pool.String(a), c.pool.String(b))
		return c.setExprType(eid, c.pool.ErrorType())
	}

	a := c.checkExpr(e.A, slotValue)
	b := c.checkExpr(e.B, slotValue)

	if c.pool.IsError(a) || c.pool.IsError(b) {
		c.poisonInfer(e.A)
		c.poisonInfer(e.B)
		if isComparisonOp(e.Op) || isLogicalOp(e.Op) {
			return c.setExprType(eid, c.pool.Bool())
		}
		return c.setExprType(eid, c.pool.ErrorType())
	}

	// reconcile deferred integers against a concrete partner
	if c.pool.IsInfer(a) && c.pool.IsInteger(b) {
		c.resolveInferInContext(e.A, b)
		a = c.exprType(e.A)
	} else if c.pool.IsInfer(b) && c.pool.IsInteger(a) {
		c.resolveInferInContext(e.B, a)
		b = c.exprType(e.B)
	}

	switch {
	case isLogicalOp(e.Op):
		if !c.pool.IsBool(a) || !c.pool.IsBool(b) {
			c.report(diag.CodeTypeMismatch, e.Span,
				c.pool.String(c.pool.Bool()),
				c.pool.String(pickNonBool(c.pool, a, b)))
		}
		return c.setExprType(eid, c.pool.Bool())

	case isComparisonOp(e.Op):
		if _, ok := c.unify(a, b); !ok {
			c.report(diag.CodeCannotUnify, e.Span, c.pool.String(a), c.pool.String(b))
		}
		return c.setExprType(eid, c.pool.Bool())

	case isArithOp(e.Op):
		u, ok := c.unify(a, b)
		if !ok {
			c.report(diag.CodeCannotUnify, e.Span, c.pool.String(a), c.pool.String(b))
			return c.setExprType(eid, c.pool.ErrorType())
		}
		if !c.pool.IsNumeric(u) {
			c.report(diag.CodeTypeMismatch, e.Span, "numeric type", c.pool.String(u))
			return c.setExprType(eid, c.pool.ErrorType())
		}
		return c.setExprType(eid, u)
	}

	return c.setExprType(eid, c.pool.ErrorType())
}

func pickNonBool(p *types.Pool, a, b types.TypeID) types.TypeID {
	if !p.IsBool(a) {
		return a
	}
	return b
}

// rootPlaceSymbol follows index/field/deref bases to the root symbol of
// a place expression.
func (c *Checker) rootPlaceSymbol(id ast.ExprID) (sema.SymbolID, bool) {
	if id == ast.InvalidExpr {
		return sema.InvalidSymbol, false
	}
	e := c.arena.Expr(id)
	switch e.Kind {
	case ast.ExprIdent:
		if rs, ok := c.nres.LookupExpr(id); ok && rs.Sym != sema.InvalidSymbol {
			return rs.Sym, true
		}
	case ast.ExprIndex, ast.ExprField:
		return c.rootPlaceSymbol(e.A)
	case ast.ExprUnary:
		if e.Op == syntax.Star {
			return c.rootPlaceSymbol(e.A)
		}
	}
	return sema.InvalidSymbol, false
}

// checkWritable enforces the mutability rule for a write to lhs:
// declared mut, or a write through a &mut borrow.
func (c *Checker) checkWritable(lhs ast.ExprID, at *ast.Expr, what string) {
	if c.isWriteThroughMutBorrow(lhs) {
		return
	}
	sym, ok := c.rootPlaceSymbol(lhs)
	if !ok {
		return
	}
	s := c.table.Symbol(sym)
	if s.IsMut {
		return
	}
	if c.pool.IsError(s.DeclaredType) {
		return
	}
	c.report(diag.CodeWriteToImmutable, at.Span, what)
}

// isWriteThroughMutBorrow reports whether lhs writes through a &mut
// borrow: either the lhs itself has &mut type, or it indexes/derefs a
// base of &mut type.
func (c *Checker) isWriteThroughMutBorrow(lhs ast.ExprID) bool {
	if lhs == ast.InvalidExpr {
		return false
	}
	isMutBorrow := func(t types.TypeID) bool {
		if !c.pool.Valid(t) {
			return false
		}
		tt := c.pool.Get(t)
		return tt.Kind == types.KindBorrow && tt.BorrowIsMut
	}
	e := c.arena.Expr(lhs)
	if e.Kind == ast.ExprIdent {
		return isMutBorrow(c.exprType(lhs))
	}
	if e.Kind == ast.ExprIndex || e.Kind == ast.ExprField {
		return isMutBorrow(c.exprType(e.A))
	}
	if e.Kind == ast.ExprUnary && e.Op == syntax.Star {
		t := c.exprType(e.A)
		if isMutBorrow(t) {
			return true
		}
		if c.pool.Valid(t) {
			tt := c.pool.Get(t)
			return tt.Kind == types.KindPtr && tt.PtrIsMut
		}
	}
	return false
}

func (c *Checker) checkAssign(eid ast.ExprID, e *ast.Expr) types.TypeID {
	lt := c.checkExpr(e.A, slotValue)
	rt := c.checkExpr(e.B, slotValue)

	if !c.isPlaceExpr(e.A) {
		c.report(diag.CodeNonPlaceAssign, e.Span)
		c.poisonInfer(e.A)
		c.poisonInfer(e.B)
		return c.setExprType(eid, c.pool.ErrorType())
	}
	c.checkWritable(e.A, e, "assignment")

	// compound assigns require numeric operands; plain assign requires
	// assignability
	if c.pool.IsInfer(rt) && c.pool.IsInteger(lt) {
		c.resolveInferInContext(e.B, lt)
		rt = c.exprType(e.B)
	}
	if c.pool.IsInfer(lt) && c.pool.IsInteger(rt) {
		c.resolveInferInContext(e.A, rt)
		lt = c.exprType(e.A)
	}

	if e.Op == syntax.Assign {
		if !c.canAssign(lt, rt) {
			c.report(diag.CodeTypeMismatch, e.Span, c.pool.String(lt), c.pool.String(rt))
		}
	} else {
		if u, ok := c.unify(lt, rt); !ok || (!c.pool.IsNumeric(u) && !c.pool.IsError(u)) {
			c.report(diag.CodeCannotUnify, e.Span, c.pool.String(lt), c.pool.String(rt))
		}
	}

	return c.setExprType(eid, c.pool.Unit())
}

func (c *Checker) checkTernary(eid ast.ExprID, e *ast.Expr) types.TypeID {
	c.checkCond(e.A)
	b := c.checkExpr(e.B, slotValue)
	d := c.checkExpr(e.C, slotValue)

	u, ok := c.unify(b, d)
	if !ok {
		c.report(diag.CodeCannotUnify, e.Span, c.pool.String(b), c.pool.String(d))
		return c.setExprType(eid, c.pool.ErrorType())
	}
	if c.pool.IsInteger(u) {
		c.resolveInferInContext(e.B, u)
		c.resolveInferInContext(e.C, u)
	}
	return c.setExprType(eid, u)
}

func (c *Checker) checkIfExpr(eid ast.ExprID, e *ast.Expr, sl slot) types.TypeID {
	c.checkCond(e.A)
	b := c.checkExpr(e.B, sl)
	if e.C == ast.InvalidExpr {
		return c.setExprType(eid, c.pool.Unit())
	}
	d := c.checkExpr(e.C, sl)
	if sl == slotDiscard {
		return c.setExprType(eid, c.pool.Unit())
	}
	u, ok := c.unify(b, d)
	if !ok {
		c.report(diag.CodeCannotUnify, e.Span, c.pool.String(b), c.pool.String(d))
		u = c.pool.ErrorType()
	}
	return c.setExprType(eid, u)
}

// checkCall types a call. pipeHoleType, when valid, is the type injected
// into the single labeled hole of a pipe call.
func (c *Checker) checkCall(eid ast.ExprID, e *ast.Expr, pipeHoleType types.TypeID) types.TypeID {
	calleeT := c.checkExpr(e.A, slotValue)

	// flatten named groups; reject labeled/positional mixing
	type flatArg struct {
		expr    ast.ExprID
		isHole  bool
		labeled bool
	}
	var flat []flatArg
	anyLabeled, anyPositional := false, false

	collect := func(a ast.Arg) {
		if a.HasLabel {
			anyLabeled = true
		} else {
			anyPositional = true
		}
		flat = append(flat, flatArg{expr: a.Expr, isHole: a.IsHole, labeled: a.HasLabel})
	}
	for i := range c.arena.CallArgs(e) {
		a := c.arena.CallArgs(e)[i]
		if a.Kind == ast.ArgNamedGroup {
			anyLabeled = true
			for _, ch := range c.arena.NamedGroupChildren(&a) {
				collect(ch)
			}
			continue
		}
		collect(a)
	}

	if anyLabeled && anyPositional {
		c.report(diag.CodeCallArgMixNotAllowed, e.Span)
	}

	// type every non-hole argument
	argTypes := make([]types.TypeID, len(flat))
	for i, fa := range flat {
		if fa.isHole {
			argTypes[i] = pipeHoleType
			continue
		}
		argTypes[i] = c.checkExpr(fa.expr, slotValue)
	}

	if c.pool.IsError(calleeT) {
		for _, fa := range flat {
			if !fa.isHole {
				c.poisonInfer(fa.expr)
			}
		}
		return c.setExprType(eid, c.pool.ErrorType())
	}
	ct := c.pool.Get(calleeT)
	if ct.Kind != types.KindFn {
		callee := c.arena.Expr(e.A)
		c.report(diag.CodeCalleeNotFunction, e.Span, callee.Text)
		return c.setExprType(eid, c.pool.ErrorType())
	}

	params := c.pool.FnParams(calleeT)
	if len(params) != len(flat) {
		c.report(diag.CodeCallArityMismatch, e.Span,
			itoa(len(params)), itoa(len(flat)))
		return c.setExprType(eid, ct.Ret)
	}

	for i, pt := range params {
		at := argTypes[i]
		if at == types.InvalidType {
			continue // hole with no pipe context; shape pass reported it
		}
		if c.pool.IsInfer(at) && c.pool.IsInteger(pt) {
			if !flat[i].isHole {
				c.resolveInferInContext(flat[i].expr, pt)
				at = c.exprType(flat[i].expr)
			}
		}
		if !c.canAssign(pt, at) {
			sp := e.Span
			if !flat[i].isHole && flat[i].expr != ast.InvalidExpr {
				sp = c.arena.Expr(flat[i].expr).Span
			}
			c.report(diag.CodeTypeMismatch, sp, c.pool.String(pt), c.pool.String(at))
		}
	}

	return c.setExprType(eid, ct.Ret)
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [12]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func (c *Checker) checkIndex(eid ast.ExprID, e *ast.Expr) types.TypeID {
	baseT := c.checkExpr(e.A, slotValue)
	idxE := c.arena.Expr(e.B)

	isRange := idxE.Kind == ast.ExprBinary &&
		(idxE.Op == syntax.DotDot || idxE.Op == syntax.DotDotColon)

	idxT := c.checkExpr(e.B, slotValue)
	if c.pool.IsInfer(idxT) {
		c.resolveInferInContext(e.B, c.pool.BuiltinType(types.BuiltinUSize))
		idxT = c.exprType(e.B)
	}
	if !c.pool.IsError(idxT) && !c.pool.IsInteger(idxT) {
		c.report(diag.CodeTypeMismatch, idxE.Span, "integer type", c.pool.String(idxT))
	}

	if c.pool.IsError(baseT) {
		return c.setExprType(eid, c.pool.ErrorType())
	}

	bt := c.pool.Get(baseT)
	// indexing through a borrow reads the element of the borrowed array
	if bt.Kind == types.KindBorrow {
		bt = c.pool.Get(bt.Elem)
	}
	if bt.Kind != types.KindArray {
		c.report(diag.CodeTypeMismatch, e.Span, "array type", c.pool.String(baseT))
		return c.setExprType(eid, c.pool.ErrorType())
	}

	if isRange {
		// a[lo..hi] slices: result is the unsized array of the element
		return c.setExprType(eid, c.pool.MakeArray(bt.Elem))
	}
	return c.setExprType(eid, bt.Elem)
}

func (c *Checker) checkField(eid ast.ExprID, e *ast.Expr) types.TypeID {
	baseT := c.checkExpr(e.A, slotValue)
	if c.pool.IsError(baseT) {
		return c.setExprType(eid, c.pool.ErrorType())
	}
	bt := c.pool.Get(baseT)
	if bt.Kind == types.KindBorrow {
		baseT = bt.Elem
		bt = c.pool.Get(baseT)
	}
	if bt.Kind == types.KindNamedUser {
		if info, ok := c.fieldDecls[baseT]; ok {
			if mt, okM := info.members[e.Text]; okM {
				return c.setExprType(eid, mt)
			}
			c.report(diag.CodeUnknownIdentifier, e.Span, e.Text)
			return c.setExprType(eid, c.pool.ErrorType())
		}
	}
	c.report(diag.CodeTypeMismatch, e.Span, "field type", c.pool.String(baseT))
	return c.setExprType(eid, c.pool.ErrorType())
}

func (c *Checker) checkLoop(eid ast.ExprID, e *ast.Expr, sl slot) types.TypeID {
	if e.LoopHasHeader && e.LoopIter != ast.InvalidExpr {
		iterT := c.checkExpr(e.LoopIter, slotValue)

		// bind the loop variable's element type
		elem := c.pool.ErrorType()
		if !c.pool.IsError(iterT) {
			it := c.pool.Get(iterT)
			if it.Kind == types.KindBorrow {
				it = c.pool.Get(it.Elem)
			}
			if it.Kind == types.KindArray {
				elem = it.Elem
			} else {
				c.report(diag.CodeTypeMismatch, c.arena.Expr(e.LoopIter).Span,
					"array type", c.pool.String(iterT))
			}
		}
		if rs, ok := c.nres.LookupExpr(eid); ok && rs.Sym != sema.InvalidSymbol {
			c.table.UpdateDeclaredType(rs.Sym, elem)
		}
	}

	c.loopStack = append(c.loopStack, loopCtx{mayNaturalEnd: e.LoopHasHeader})
	c.checkStmt(e.LoopBody)
	ctx := c.loopStack[len(c.loopStack)-1]
	c.loopStack = c.loopStack[:len(c.loopStack)-1]

	if sl == slotDiscard {
		return c.setExprType(eid, c.pool.Unit())
	}

	// natural end of an iterated loop injects Null into the join
	result := ctx.joinedValue
	if ctx.mayNaturalEnd && ctx.hasValueBreak {
		if u, ok := c.unify(result, c.pool.Null()); ok {
			result = u
		}
	}
	if !ctx.hasValueBreak {
		if ctx.hasNullBreak || ctx.mayNaturalEnd {
			return c.setExprType(eid, c.pool.Unit())
		}
		return c.setExprType(eid, c.pool.Unit())
	}
	if result == types.InvalidType {
		result = c.pool.Unit()
	}
	return c.setExprType(eid, result)
}

func (c *Checker) checkCast(eid ast.ExprID, e *ast.Expr) types.TypeID {
	srcT := c.checkExpr(e.A, slotValue)
	dstT := e.CastType
	if dstT == types.InvalidType {
		dstT = c.pool.ErrorType()
	}

	if c.pool.IsError(srcT) || c.pool.IsError(dstT) {
		return c.setExprType(eid, c.pool.ErrorType())
	}

	// double-optional is rejected at this boundary
	if c.pool.IsOptional(dstT) && c.pool.IsOptional(c.pool.OptionalElem(dstT)) {
		c.report(diag.CodeDoubleOptionalNotAllowed, e.Span)
		return c.setExprType(eid, c.pool.ErrorType())
	}

	if c.pool.IsInfer(srcT) && c.pool.IsInteger(dstT) {
		c.resolveInferInContext(e.A, dstT)
		srcT = c.exprType(e.A)
	}

	if !c.castCompatible(srcT, dstT) {
		c.report(diag.CodeBadCast, e.Span, c.pool.String(srcT), c.pool.String(dstT))
		return c.setExprType(eid, c.pool.ErrorType())
	}

	switch e.CastKind {
	case ast.CastOptional:
		if c.pool.IsOptional(dstT) {
			return c.setExprType(eid, dstT)
		}
		return c.setExprType(eid, c.pool.MakeOptional(dstT))
	default:
		return c.setExprType(eid, dstT)
	}
}

// castCompatible is the cast compatibility table: numeric <-> numeric
// (widening and narrowing), identity, optional wrapping/unwrapping one
// layer, and named user conversions to themselves.
func (c *Checker) castCompatible(src, dst types.TypeID) bool {
	if src == dst {
		return true
	}
	if c.pool.IsNumeric(src) && c.pool.IsNumeric(dst) {
		return true
	}
	// T -> T? and T? -> T
	if c.pool.OptionalElem(dst) == src {
		return true
	}
	if c.pool.OptionalElem(src) == dst {
		return true
	}
	// char <-> integer
	if c.pool.IsBuiltin(src, types.BuiltinChar) && c.pool.IsInteger(dst) {
		return true
	}
	if c.pool.IsInteger(src) && c.pool.IsBuiltin(dst, types.BuiltinChar) {
		return true
	}
	return false
}
