package sema

import (
	"github.com/brant-lang/brant/ast"
	"github.com/brant-lang/brant/diag"
	"github.com/brant-lang/brant/text"
	"github.com/brant-lang/brant/types"
)

// ShadowingMode is the resolver's policy for inner declarations hiding
// outer ones.
type ShadowingMode uint8

const (
	ShadowingAllow ShadowingMode = iota
	ShadowingWarn
	ShadowingError
)

// Options configures a resolve run.
type Options struct {
	Shadowing ShadowingMode
}

// BindingKind classifies what an identifier resolved to.
type BindingKind uint8

const (
	BindNone BindingKind = iota
	BindLocalVar
	BindParam
	BindFn
	BindType
	BindModule
	BindUseAlias
	BindOverloadSet
	BindBuiltin
	BindError
)

// ResolvedSymbol is one resolution record: what the name bound to, and
// from which scope the use site looked it up.
type ResolvedSymbol struct {
	Bind     BindingKind
	Sym      SymbolID
	Span     text.Span
	UseScope uint32
}

// ResolvedID indexes Result.Resolved.
type ResolvedID = uint32

// InvalidResolved is the pre-fill sentinel of the index tables.
const InvalidResolved ResolvedID = 0xFFFF_FFFF

// Result carries the resolution tables, each sized to its arena vector
// and pre-filled with InvalidResolved.
type Result struct {
	Resolved []ResolvedSymbol

	ExprToResolved  []ResolvedID // by ExprID
	StmtToResolved  []ResolvedID // by StmtID (declaring stmts)
	ParamToResolved []ResolvedID // by arena param index
}

// LookupExpr returns the resolution for an identifier expression.
func (r *Result) LookupExpr(id ast.ExprID) (ResolvedSymbol, bool) {
	if int(id) >= len(r.ExprToResolved) {
		return ResolvedSymbol{}, false
	}
	rid := r.ExprToResolved[id]
	if rid == InvalidResolved {
		return ResolvedSymbol{}, false
	}
	return r.Resolved[rid], true
}

// LookupStmt returns the resolution for a declaring statement.
func (r *Result) LookupStmt(id ast.StmtID) (ResolvedSymbol, bool) {
	if int(id) >= len(r.StmtToResolved) {
		return ResolvedSymbol{}, false
	}
	rid := r.StmtToResolved[id]
	if rid == InvalidResolved {
		return ResolvedSymbol{}, false
	}
	return r.Resolved[rid], true
}

// LookupParam returns the resolution for a parameter by arena index.
func (r *Result) LookupParam(idx uint32) (ResolvedSymbol, bool) {
	if int(idx) >= len(r.ParamToResolved) {
		return ResolvedSymbol{}, false
	}
	rid := r.ParamToResolved[idx]
	if rid == InvalidResolved {
		return ResolvedSymbol{}, false
	}
	return r.Resolved[rid], true
}

type resolver struct {
	arena *ast.Arena
	table *Table
	bag   *diag.Bag
	opt   Options

	res *Result

	// params get BindParam instead of BindLocalVar
	paramSyms map[SymbolID]struct{}
}

// Resolve runs both passes over the program root and returns the filled
// tables. The same Table instance is reused by later stages.
func Resolve(arena *ast.Arena, root ast.StmtID, table *Table, bag *diag.Bag, opt Options) *Result {
	res := &Result{
		ExprToResolved:  make([]ResolvedID, arena.ExprCount()),
		StmtToResolved:  make([]ResolvedID, arena.StmtCount()),
		ParamToResolved: make([]ResolvedID, arena.ParamCount()),
	}
	for i := range res.ExprToResolved {
		res.ExprToResolved[i] = InvalidResolved
	}
	for i := range res.StmtToResolved {
		res.StmtToResolved[i] = InvalidResolved
	}
	for i := range res.ParamToResolved {
		res.ParamToResolved[i] = InvalidResolved
	}

	rv := &resolver{
		arena:     arena,
		table:     table,
		bag:       bag,
		opt:       opt,
		res:       res,
		paramSyms: make(map[SymbolID]struct{}),
	}

	if root != ast.InvalidStmt {
		rv.collectTopLevel(root)
		rv.resolveTopLevel(root)
	}
	return res
}

func (rv *resolver) report(code diag.Code, sev diag.Severity, sp text.Span, args ...string) {
	if rv.bag == nil {
		return
	}
	d := diag.New(sev, code, sp)
	for _, a := range args {
		d = d.WithArg(a)
	}
	rv.bag.Add(d)
}

func (rv *resolver) addResolved(r ResolvedSymbol) ResolvedID {
	rv.res.Resolved = append(rv.res.Resolved, r)
	return ResolvedID(len(rv.res.Resolved) - 1)
}

func (rv *resolver) bindKindOf(sym SymbolID) BindingKind {
	if _, isParam := rv.paramSyms[sym]; isParam {
		return BindParam
	}
	switch rv.table.Symbol(sym).Kind {
	case SymVar:
		return BindLocalVar
	case SymFn:
		return BindFn
	case SymType, SymField:
		return BindType
	case SymActs:
		return BindType
	case SymModule:
		return BindModule
	}
	return BindNone
}

// collectTopLevel is pass 1: top-level fn, type, and use/import symbols
// land in the global scope; duplicates are reported.
func (rv *resolver) collectTopLevel(root ast.StmtID) {
	r := rv.arena.Stmt(root)
	if r.Kind != ast.StmtBlock {
		return
	}
	for _, sid := range rv.arena.BlockChildren(r) {
		s := rv.arena.Stmt(sid)
		switch s.Kind {
		case ast.StmtFnDecl:
			rv.declare(sid, SymFn, s.Name, types.InvalidType, s.NameSpan)
		case ast.StmtFieldDecl:
			rv.declare(sid, SymField, s.Name, types.InvalidType, s.NameSpan)
		case ast.StmtActsDecl:
			rv.declare(sid, SymActs, s.Name, types.InvalidType, s.NameSpan)
		case ast.StmtUse:
			if s.UseKind == ast.UseTypeAlias {
				rv.declare(sid, SymType, s.UseName, s.Type, s.Span)
			}
		case ast.StmtImport:
			name := s.UseRhsIdent
			if name == "" {
				name = s.UseName
			}
			rv.declare(sid, SymModule, name, types.InvalidType, s.NameSpan)
		case ast.StmtVar:
			if s.IsStatic {
				res := rv.declare(sid, SymVar, s.Name, s.Type, s.NameSpan)
				if res.OK {
					sym := rv.table.Symbol(res.SymbolID)
					sym.IsStatic = true
					sym.IsMut = s.IsMut
				}
			}
		}
	}
}

func (rv *resolver) declare(sid ast.StmtID, kind SymbolKind, name string, ty types.TypeID, sp text.Span) InsertResult {
	if name == "" || name == "_" {
		return InsertResult{}
	}
	r := rv.table.Insert(kind, name, ty, sp)
	if r.IsDuplicate {
		rv.report(diag.CodeDuplicateInScope, diag.SeverityError, sp, name)
		return r
	}
	if r.IsShadowing {
		switch rv.opt.Shadowing {
		case ShadowingWarn:
			rv.report(diag.CodeShadowedDecl, diag.SeverityWarning, sp, name)
		case ShadowingError:
			rv.report(diag.CodeShadowedDecl, diag.SeverityError, sp, name)
		}
	}
	if sid != ast.InvalidStmt {
		rid := rv.addResolved(ResolvedSymbol{
			Bind:     rv.bindKindOfNew(kind),
			Sym:      r.SymbolID,
			Span:     sp,
			UseScope: rv.table.CurrentScope(),
		})
		rv.res.StmtToResolved[sid] = rid
	}
	return r
}

func (rv *resolver) bindKindOfNew(kind SymbolKind) BindingKind {
	switch kind {
	case SymVar:
		return BindLocalVar
	case SymFn:
		return BindFn
	case SymType, SymField, SymActs:
		return BindType
	case SymModule:
		return BindModule
	}
	return BindNone
}

// resolveTopLevel is pass 2: expression-level resolution with a scope
// stack.
func (rv *resolver) resolveTopLevel(root ast.StmtID) {
	r := rv.arena.Stmt(root)
	if r.Kind != ast.StmtBlock {
		return
	}
	for _, sid := range rv.arena.BlockChildren(r) {
		rv.resolveStmt(sid, true)
	}
}

func (rv *resolver) resolveStmt(sid ast.StmtID, topLevel bool) {
	if sid == ast.InvalidStmt {
		return
	}
	s := rv.arena.Stmt(sid)

	switch s.Kind {
	case ast.StmtBlock:
		rv.table.PushScope()
		for _, c := range rv.arena.BlockChildren(s) {
			rv.resolveStmt(c, false)
		}
		rv.table.PopScope()

	case ast.StmtVar:
		// init resolves before the name becomes visible
		if s.Init != ast.InvalidExpr {
			rv.resolveExpr(s.Init)
		}
		if topLevel && s.IsStatic {
			return // already declared in pass 1
		}
		res := rv.declare(sid, SymVar, s.Name, s.Type, s.NameSpan)
		if res.OK {
			sym := rv.table.Symbol(res.SymbolID)
			sym.IsMut = s.IsMut
			sym.IsStatic = s.IsStatic
		}

	case ast.StmtExpr:
		rv.resolveExpr(s.Expr)

	case ast.StmtIf:
		rv.resolveExpr(s.Expr)
		rv.resolveStmt(s.A, false)
		rv.resolveStmt(s.B, false)

	case ast.StmtWhile, ast.StmtDoWhile:
		rv.resolveExpr(s.Expr)
		rv.resolveStmt(s.A, false)

	case ast.StmtDoScope:
		rv.resolveStmt(s.A, false)

	case ast.StmtReturn, ast.StmtBreak:
		if s.Expr != ast.InvalidExpr {
			rv.resolveExpr(s.Expr)
		}

	case ast.StmtSwitch:
		rv.resolveExpr(s.Expr)
		for _, c := range rv.arena.Cases(s) {
			rv.resolveStmt(c.Body, false)
		}

	case ast.StmtFnDecl:
		rv.resolveFnDecl(sid, topLevel)

	case ast.StmtActsDecl:
		for _, c := range rv.arena.BlockChildren(s) {
			rv.resolveStmt(c, false)
		}
	}
}

func (rv *resolver) resolveFnDecl(sid ast.StmtID, topLevel bool) {
	s := rv.arena.Stmt(sid)

	if !topLevel {
		// nested fns declare into the enclosing scope
		rv.declare(sid, SymFn, s.Name, types.InvalidType, s.NameSpan)
	}

	// parameter scope, then body scope
	rv.table.PushScope()
	for i := uint32(0); i < s.ParamCount; i++ {
		paramIdx := s.ParamBegin + i
		p := rv.arena.Params()[paramIdx]
		if p.Name == "" || p.Name == "_" {
			continue
		}
		ir := rv.table.Insert(SymVar, p.Name, p.Type, p.Span)
		if ir.IsDuplicate {
			rv.report(diag.CodeDuplicateInScope, diag.SeverityError, p.Span, p.Name)
			continue
		}
		sym := rv.table.Symbol(ir.SymbolID)
		sym.IsMut = p.IsMut
		rv.paramSyms[ir.SymbolID] = struct{}{}

		rid := rv.addResolved(ResolvedSymbol{
			Bind:     BindParam,
			Sym:      ir.SymbolID,
			Span:     p.Span,
			UseScope: rv.table.CurrentScope(),
		})
		rv.res.ParamToResolved[paramIdx] = rid

		// default values resolve in the parameter scope
		if p.HasDefault && p.DefaultExpr != ast.InvalidExpr {
			rv.resolveExpr(p.DefaultExpr)
		}
	}

	if s.A != ast.InvalidStmt {
		rv.resolveStmt(s.A, false)
	}
	rv.table.PopScope()
}

func (rv *resolver) resolveExpr(eid ast.ExprID) {
	if eid == ast.InvalidExpr {
		return
	}
	e := rv.arena.Expr(eid)

	switch e.Kind {
	case ast.ExprIdent:
		if sym, ok := rv.table.Lookup(e.Text); ok {
			rid := rv.addResolved(ResolvedSymbol{
				Bind:     rv.bindKindOf(sym),
				Sym:      sym,
				Span:     e.Span,
				UseScope: rv.table.CurrentScope(),
			})
			rv.res.ExprToResolved[eid] = rid
			return
		}
		rv.report(diag.CodeUnknownIdentifier, diag.SeverityError, e.Span, e.Text)
		rid := rv.addResolved(ResolvedSymbol{
			Bind:     BindError,
			Sym:      InvalidSymbol,
			Span:     e.Span,
			UseScope: rv.table.CurrentScope(),
		})
		rv.res.ExprToResolved[eid] = rid

	case ast.ExprUnary, ast.ExprPostfixUnary, ast.ExprCast:
		rv.resolveExpr(e.A)

	case ast.ExprBinary, ast.ExprAssign, ast.ExprIndex:
		rv.resolveExpr(e.A)
		rv.resolveExpr(e.B)

	case ast.ExprField:
		rv.resolveExpr(e.A)

	case ast.ExprTernary, ast.ExprIfExpr:
		rv.resolveExpr(e.A)
		rv.resolveExpr(e.B)
		rv.resolveExpr(e.C)

	case ast.ExprCall:
		rv.resolveExpr(e.A)
		rv.resolveArgs(e)

	case ast.ExprArrayLit:
		rv.resolveArgs(e)

	case ast.ExprLoop:
		if e.LoopIter != ast.InvalidExpr {
			rv.resolveExpr(e.LoopIter)
		}
		rv.table.PushScope()
		if e.LoopHasHeader && e.LoopVar != "" && e.LoopVar != "_" {
			ir := rv.table.Insert(SymVar, e.LoopVar, types.InvalidType, e.LoopVarSpan)
			if ir.OK {
				rid := rv.addResolved(ResolvedSymbol{
					Bind:     BindLocalVar,
					Sym:      ir.SymbolID,
					Span:     e.LoopVarSpan,
					UseScope: rv.table.CurrentScope(),
				})
				rv.res.ExprToResolved[eid] = rid
			}
		}
		rv.resolveStmt(e.LoopBody, false)
		rv.table.PopScope()

	case ast.ExprBlockExpr:
		rv.resolveStmt(e.LoopBody, false)
	}
}

func (rv *resolver) resolveArgs(e *ast.Expr) {
	for i := range rv.arena.CallArgs(e) {
		a := rv.arena.CallArgs(e)[i]
		if a.Kind == ast.ArgNamedGroup {
			for _, c := range rv.arena.NamedGroupChildren(&a) {
				if !c.IsHole && c.Expr != ast.InvalidExpr {
					rv.resolveExpr(c.Expr)
				}
			}
			continue
		}
		if !a.IsHole && a.Expr != ast.InvalidExpr {
			rv.resolveExpr(a.Expr)
		}
	}
}
