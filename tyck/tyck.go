// Package tyck is the bidirectional type checker. Expressions are
// checked in a Value or Discard slot; every expression receives a result
// type in Result.ExprTypes. Integer literals without a suffix carry the
// internal "{integer}" pseudo-type until a context fixes a concrete
// integer type; the exact literal value is kept arbitrary-precision and
// range-checked on resolution. The Error type is an annihilator: it
// silences follow-on diagnostics at the same expression.
package tyck

import (
	"github.com/brant-lang/brant/ast"
	"github.com/brant-lang/brant/diag"
	"github.com/brant-lang/brant/sema"
	"github.com/brant-lang/brant/text"
	"github.com/brant-lang/brant/types"
)

// Options configures checker policy switches.
type Options struct {
	// ImplicitOptionalPromotion enables the T -> T? assignability rule.
	// Default off.
	ImplicitOptionalPromotion bool
}

// Error is one recorded type error (the bag receives the same report).
type Error struct {
	Span text.Span
	Code diag.Code
}

// Result is the checker output.
type Result struct {
	OK        bool
	ExprTypes []types.TypeID // by ExprID
	Errors    []Error
}

type slot uint8

const (
	slotValue slot = iota
	slotDiscard
)

type loopCtx struct {
	hasAnyBreak   bool
	hasValueBreak bool
	hasNullBreak  bool
	mayNaturalEnd bool
	joinedValue   types.TypeID
}

type fnCtx struct {
	inFn bool
	ret  types.TypeID
}

// fieldInfo is the member layout of a top-level field declaration.
type fieldInfo struct {
	members map[string]types.TypeID
}

// Checker checks one program.
type Checker struct {
	arena *ast.Arena
	pool  *types.Pool
	table *sema.Table
	nres  *sema.Result
	bag   *diag.Bag
	opt   Options

	res Result

	loopStack []loopCtx
	stmtLoops int
	fn        fnCtx

	pendingExpr map[ast.ExprID]*pendingInt
	pendingSym  map[sema.SymbolID]*pendingInt

	// per-function list of literal exprs awaiting resolution
	fnPending []ast.ExprID

	fieldDecls map[types.TypeID]fieldInfo
}

// New builds a checker over resolved input.
func New(arena *ast.Arena, pool *types.Pool, table *sema.Table, nres *sema.Result, bag *diag.Bag, opt Options) *Checker {
	return &Checker{
		arena:       arena,
		pool:        pool,
		table:       table,
		nres:        nres,
		bag:         bag,
		opt:         opt,
		pendingExpr: make(map[ast.ExprID]*pendingInt),
		pendingSym:  make(map[sema.SymbolID]*pendingInt),
		fieldDecls:  make(map[types.TypeID]fieldInfo),
	}
}

func (c *Checker) report(code diag.Code, sp text.Span, args ...string) {
	d := diag.New(diag.SeverityError, code, sp)
	for _, a := range args {
		d = d.WithArg(a)
	}
	c.bag.AddUnique(d)
	c.res.Errors = append(c.res.Errors, Error{Span: sp, Code: code})
	c.res.OK = false
}

// CheckProgram runs the checker over the root block.
func (c *Checker) CheckProgram(root ast.StmtID) Result {
	c.res = Result{OK: true, ExprTypes: make([]types.TypeID, c.arena.ExprCount())}
	for i := range c.res.ExprTypes {
		c.res.ExprTypes[i] = types.InvalidType
	}

	if root == ast.InvalidStmt {
		return c.res
	}
	r := c.arena.Stmt(root)
	if r.Kind != ast.StmtBlock {
		return c.res
	}

	c.collectTopLevel(r)

	for _, sid := range c.arena.BlockChildren(r) {
		s := c.arena.Stmt(sid)
		switch s.Kind {
		case ast.StmtFnDecl:
			c.checkFnDecl(sid)
		case ast.StmtVar:
			c.checkVarStmt(sid)
		case ast.StmtActsDecl:
			for _, fsid := range c.arena.BlockChildren(s) {
				if c.arena.Stmt(fsid).Kind == ast.StmtFnDecl {
					c.checkFnDecl(fsid)
				}
			}
		}
	}
	return c.res
}

// collectTopLevel fixes function signature types and field member
// layouts before bodies are checked, so forward calls type correctly.
func (c *Checker) collectTopLevel(root *ast.Stmt) {
	for _, sid := range c.arena.BlockChildren(root) {
		s := c.arena.Stmt(sid)
		switch s.Kind {
		case ast.StmtFnDecl:
			c.assignFnSignature(sid, s)
		case ast.StmtFieldDecl:
			tid := c.pool.InternIdent(s.Name)
			info := fieldInfo{members: make(map[string]types.TypeID)}
			for _, m := range c.arena.Members(s) {
				info.members[m.Name] = m.Type
			}
			c.fieldDecls[tid] = info
		case ast.StmtActsDecl:
			for _, fsid := range c.arena.BlockChildren(s) {
				fs := c.arena.Stmt(fsid)
				if fs.Kind == ast.StmtFnDecl {
					c.assignFnSignature(fsid, fs)
				}
			}
		}
	}
}

func (c *Checker) assignFnSignature(sid ast.StmtID, s *ast.Stmt) {
	ret := s.FnRet
	if ret == types.InvalidType {
		ret = c.pool.Unit()
	}
	params := make([]types.TypeID, 0, s.ParamCount)
	for _, p := range c.arena.FnParams(s) {
		pt := p.Type
		if pt == types.InvalidType {
			pt = c.pool.ErrorType()
		}
		params = append(params, pt)
	}
	sig := c.pool.MakeFn(ret, params)

	if rs, ok := c.nres.LookupStmt(sid); ok && rs.Sym != sema.InvalidSymbol {
		c.table.UpdateDeclaredType(rs.Sym, sig)
	}
}

func (c *Checker) exprType(id ast.ExprID) types.TypeID {
	if id == ast.InvalidExpr || int(id) >= len(c.res.ExprTypes) {
		return c.pool.ErrorType()
	}
	return c.res.ExprTypes[id]
}

func (c *Checker) setExprType(id ast.ExprID, t types.TypeID) types.TypeID {
	if id != ast.InvalidExpr && int(id) < len(c.res.ExprTypes) {
		c.res.ExprTypes[id] = t
	}
	return t
}

// canAssign implements assignability: exact match, Null -> T?, and the
// optional implicit T -> T? promotion.
func (c *Checker) canAssign(dst, src types.TypeID) bool {
	if c.pool.IsError(dst) || c.pool.IsError(src) {
		return true // annihilator
	}
	if dst == src {
		return true
	}
	if c.pool.IsOptional(dst) {
		if c.pool.IsNull(src) {
			return true
		}
		if c.opt.ImplicitOptionalPromotion && c.pool.OptionalElem(dst) == src {
			return true
		}
	}
	// deferred integers are reconciled by the caller before this check
	return false
}

// unify joins two types for ternary/if-expr/break collection:
// equal -> that type; Null + T? -> T?; Null + T -> T?; infer + concrete
// integer -> concrete. Anything else is an error at the caller.
func (c *Checker) unify(a, b types.TypeID) (types.TypeID, bool) {
	if c.pool.IsError(a) || c.pool.IsError(b) {
		return c.pool.ErrorType(), true
	}
	if a == b {
		return a, true
	}
	if c.pool.IsNull(a) {
		if c.pool.IsOptional(b) {
			return b, true
		}
		return c.pool.MakeOptional(b), true
	}
	if c.pool.IsNull(b) {
		if c.pool.IsOptional(a) {
			return a, true
		}
		return c.pool.MakeOptional(a), true
	}
	if c.pool.IsInfer(a) && c.pool.IsInteger(b) {
		return b, true
	}
	if c.pool.IsInfer(b) && c.pool.IsInteger(a) {
		return a, true
	}
	return c.pool.ErrorType(), false
}

func (c *Checker) inLoop() bool { return len(c.loopStack) > 0 || c.stmtLoops > 0 }

func (c *Checker) noteBreak(t types.TypeID, isValueBreak bool) {
	if len(c.loopStack) == 0 {
		return
	}
	ctx := &c.loopStack[len(c.loopStack)-1]
	ctx.hasAnyBreak = true
	if !isValueBreak {
		ctx.hasNullBreak = true
		return
	}
	ctx.hasValueBreak = true
	if ctx.joinedValue == types.InvalidType {
		ctx.joinedValue = t
		return
	}
	if u, ok := c.unify(ctx.joinedValue, t); ok {
		ctx.joinedValue = u
	} else {
		ctx.joinedValue = c.pool.ErrorType()
	}
}
