package sir

import (
	"github.com/brant-lang/brant/ast"
	"github.com/brant-lang/brant/sema"
	"github.com/brant-lang/brant/syntax"
	"github.com/brant-lang/brant/tyck"
	"github.com/brant-lang/brant/types"
)

// BuildOptions reserves lowering switches.
type BuildOptions struct{}

// Build lowers the resolved, typed AST into a SIR module. Structured
// control stays statement-shaped with block ids; expressions become
// values with children by id. Every ValEscape receives exactly one
// EscapeHandle whose kind and boundary come from its syntactic consumer.
func Build(arena *ast.Arena, root ast.StmtID, pool *types.Pool, table *sema.Table,
	nres *sema.Result, tres *tyck.Result, _ BuildOptions) *Module {

	b := &builder{
		arena: arena,
		pool:  pool,
		table: table,
		nres:  nres,
		tres:  tres,
		mod:   &Module{},
	}
	b.lowerProgram(root)
	b.attachEscapeHandles()
	return b.mod
}

type builder struct {
	arena *ast.Arena
	pool  *types.Pool
	table *sema.Table
	nres  *sema.Result
	tres  *tyck.Result
	mod   *Module

	// escape-consumer classification gathered during lowering
	escBoundary map[ValueID]EscapeBoundaryKind
	escToStatic map[ValueID]bool
}

func (b *builder) exprType(eid ast.ExprID) types.TypeID {
	if eid == ast.InvalidExpr || int(eid) >= len(b.tres.ExprTypes) {
		return b.pool.ErrorType()
	}
	t := b.tres.ExprTypes[eid]
	if t == types.InvalidType {
		return b.pool.ErrorType()
	}
	return t
}

func (b *builder) lowerProgram(root ast.StmtID) {
	b.escBoundary = make(map[ValueID]EscapeBoundaryKind)
	b.escToStatic = make(map[ValueID]bool)

	if root == ast.InvalidStmt {
		return
	}
	r := b.arena.Stmt(root)
	if r.Kind != ast.StmtBlock {
		return
	}

	for _, sid := range b.arena.BlockChildren(r) {
		s := b.arena.Stmt(sid)
		switch s.Kind {
		case ast.StmtVar:
			if s.IsStatic {
				b.lowerGlobal(sid, s)
			}
		case ast.StmtFieldDecl:
			b.lowerFieldDecl(s)
		case ast.StmtFnDecl:
			b.lowerFnDecl(sid, s, InvalidFunc)
		case ast.StmtActsDecl:
			b.lowerActsDecl(s)
		}
	}
}

func (b *builder) symOf(sid ast.StmtID) sema.SymbolID {
	if rs, ok := b.nres.LookupStmt(sid); ok {
		return rs.Sym
	}
	return sema.InvalidSymbol
}

func (b *builder) lowerGlobal(sid ast.StmtID, s *ast.Stmt) {
	init := InvalidValue
	if s.Init != ast.InvalidExpr {
		init = b.lowerExpr(s.Init)
		if b.mod.ValidValue(init) && b.mod.Values[init].Kind == ValEscape {
			// escape materialized into static storage
			b.escBoundary[init] = BoundaryAbi
			b.escToStatic[init] = true
		}
	}
	b.mod.Globals = append(b.mod.Globals, Global{
		Span:     s.Span,
		Name:     s.Name,
		Sym:      b.symOf(sid),
		Type:     s.Type,
		IsStatic: true,
		IsMut:    s.IsMut,
		Init:     init,
	})
}

func (b *builder) lowerFieldDecl(s *ast.Stmt) {
	begin := uint32(len(b.mod.FieldMembers))
	for _, m := range b.arena.Members(s) {
		b.mod.FieldMembers = append(b.mod.FieldMembers, FieldMember{
			Name: m.Name, Type: m.Type, Span: m.Span,
		})
	}
	b.mod.Fields = append(b.mod.Fields, FieldDecl{
		Span:        s.Span,
		Name:        s.Name,
		MemberBegin: begin,
		MemberCount: uint32(len(b.arena.Members(s))),
	})
}

func (b *builder) lowerActsDecl(s *ast.Stmt) {
	funcBegin := uint32(len(b.mod.Funcs))
	actsID := uint32(len(b.mod.Acts))
	count := uint32(0)
	for _, fsid := range b.arena.BlockChildren(s) {
		fs := b.arena.Stmt(fsid)
		if fs.Kind != ast.StmtFnDecl {
			continue
		}
		b.lowerFnDecl(fsid, fs, actsID)
		count++
	}
	b.mod.Acts = append(b.mod.Acts, ActsDecl{
		Span:      s.Span,
		Name:      s.Name,
		FuncBegin: funcBegin,
		FuncCount: count,
	})
}

func (b *builder) lowerFnDecl(sid ast.StmtID, s *ast.Stmt, _ FuncID) {
	attrBegin := uint32(len(b.mod.Attrs))
	for _, a := range b.arena.FnAttrs(s) {
		b.mod.Attrs = append(b.mod.Attrs, Attr{Name: a.Name, Span: a.Span})
	}

	paramBegin := uint32(len(b.mod.Params))
	for i := uint32(0); i < s.ParamCount; i++ {
		idx := s.ParamBegin + i
		p := b.arena.Params()[idx]

		sym := sema.InvalidSymbol
		if rs, ok := b.nres.LookupParam(idx); ok {
			sym = rs.Sym
		}
		dflt := InvalidValue
		if p.HasDefault && p.DefaultExpr != ast.InvalidExpr {
			dflt = b.lowerExpr(p.DefaultExpr)
		}
		b.mod.Params = append(b.mod.Params, Param{
			Name:         p.Name,
			Type:         p.Type,
			IsMut:        p.IsMut,
			HasDefault:   p.HasDefault,
			DefaultValue: dflt,
			IsNamedGroup: p.IsNamedGroup,
			Sym:          sym,
			Span:         p.Span,
		})
	}

	ret := s.FnRet
	if ret == types.InvalidType {
		ret = b.pool.Unit()
	}

	entry := InvalidBlock
	if s.A != ast.InvalidStmt {
		entry = b.lowerBlock(s.A)
	}

	mode := FnModeNone
	switch s.FnMode {
	case ast.FnModePub:
		mode = FnModePub
	case ast.FnModeSub:
		mode = FnModeSub
	}

	fn := Func{
		Span:                 s.Span,
		Name:                 s.Name,
		Sym:                  b.symOf(sid),
		Ret:                  ret,
		IsExport:             s.IsExport,
		Mode:                 mode,
		IsPure:               s.IsPure,
		IsComptime:           s.IsComptime,
		AttrBegin:            attrBegin,
		AttrCount:            s.AttrCount,
		ParamBegin:           paramBegin,
		ParamCount:           s.ParamCount,
		PositionalParamCount: s.PositionalParamCount,
		HasNamedGroup:        s.HasNamedGroup,
		Entry:                entry,
	}
	if fn.Sym != sema.InvalidSymbol {
		fn.Sig = b.table.Symbol(fn.Sym).DeclaredType
	}
	b.mod.AddFunc(fn)
}

// lowerBlock lowers an AST block into a SIR block with a contiguous
// statement slice. Nested blocks and values are appended freely; only
// the direct children of this block must be adjacent in Module.Stmts,
// so the records are staged locally first.
func (b *builder) lowerBlock(sid ast.StmtID) BlockID {
	s := b.arena.Stmt(sid)
	var staged []Stmt

	if s.Kind == ast.StmtBlock {
		for _, k := range b.arena.BlockChildren(s) {
			if st, ok := b.lowerStmt(k); ok {
				staged = append(staged, st)
			}
		}
	} else if st, ok := b.lowerStmt(sid); ok {
		// a non-block body wraps into a single-statement block
		staged = append(staged, st)
	}

	begin := uint32(len(b.mod.Stmts))
	for _, st := range staged {
		b.mod.AddStmt(st)
	}
	return b.mod.AddBlock(Block{
		Span:      s.Span,
		StmtBegin: begin,
		StmtCount: uint32(len(staged)),
	})
}

func (b *builder) lowerStmt(sid ast.StmtID) (Stmt, bool) {
	s := b.arena.Stmt(sid)

	switch s.Kind {
	case ast.StmtEmpty, ast.StmtError:
		return Stmt{}, false

	case ast.StmtBlock:
		// a bare nested block keeps its own borrow scope
		return Stmt{Kind: StmtDoScope, Span: s.Span, Expr: InvalidValue,
			A: b.lowerBlock(sid), B: InvalidBlock}, true

	case ast.StmtExpr:
		return Stmt{Kind: StmtExpr, Span: s.Span, Expr: b.lowerExpr(s.Expr)}, true

	case ast.StmtVar:
		init := InvalidValue
		if s.Init != ast.InvalidExpr {
			init = b.lowerExpr(s.Init)
			if b.mod.ValidValue(init) && b.mod.Values[init].Kind == ValEscape && s.IsStatic {
				b.escBoundary[init] = BoundaryAbi
				b.escToStatic[init] = true
			}
		}
		declared := s.Type
		sym := b.symOf(sid)
		if declared == types.InvalidType && sym != sema.InvalidSymbol {
			declared = b.table.Symbol(sym).DeclaredType
		}
		return Stmt{
			Kind:         StmtVarDecl,
			Span:         s.Span,
			IsSet:        s.IsSet,
			IsMut:        s.IsMut,
			IsStatic:     s.IsStatic,
			Name:         s.Name,
			Sym:          sym,
			DeclaredType: declared,
			Init:         init,
		}, true

	case ast.StmtIf:
		st := Stmt{Kind: StmtIf, Span: s.Span, Expr: b.lowerExpr(s.Expr)}
		st.A = b.lowerBlock(s.A)
		st.B = InvalidBlock
		if s.B != ast.InvalidStmt {
			st.B = b.lowerBlock(s.B)
		}
		return st, true

	case ast.StmtWhile:
		return Stmt{
			Kind: StmtWhile, Span: s.Span,
			Expr: b.lowerExpr(s.Expr),
			A:    b.lowerBlock(s.A),
			B:    InvalidBlock,
		}, true

	case ast.StmtDoScope:
		return Stmt{Kind: StmtDoScope, Span: s.Span, Expr: InvalidValue,
			A: b.lowerBlock(s.A), B: InvalidBlock}, true

	case ast.StmtDoWhile:
		return Stmt{
			Kind: StmtDoWhile, Span: s.Span,
			Expr: b.lowerExpr(s.Expr),
			A:    b.lowerBlock(s.A),
			B:    InvalidBlock,
		}, true

	case ast.StmtReturn:
		v := InvalidValue
		if s.Expr != ast.InvalidExpr {
			v = b.lowerExpr(s.Expr)
			if b.mod.ValidValue(v) && b.mod.Values[v].Kind == ValEscape {
				b.escBoundary[v] = BoundaryReturn
			}
		}
		return Stmt{Kind: StmtReturn, Span: s.Span, Expr: v, A: InvalidBlock, B: InvalidBlock}, true

	case ast.StmtBreak:
		v := InvalidValue
		if s.Expr != ast.InvalidExpr {
			v = b.lowerExpr(s.Expr)
		}
		return Stmt{Kind: StmtBreak, Span: s.Span, Expr: v, A: InvalidBlock, B: InvalidBlock}, true

	case ast.StmtContinue:
		return Stmt{Kind: StmtContinue, Span: s.Span, Expr: InvalidValue,
			A: InvalidBlock, B: InvalidBlock}, true

	case ast.StmtSwitch:
		st := Stmt{Kind: StmtSwitch, Span: s.Span, Expr: b.lowerExpr(s.Expr),
			A: InvalidBlock, B: InvalidBlock, HasDefault: s.HasDefault}
		st.CaseBegin = uint32(len(b.mod.CaseBlocks))
		for _, cs := range b.arena.Cases(s) {
			b.mod.CaseBlocks = append(b.mod.CaseBlocks, b.lowerBlock(cs.Body))
			b.mod.CasePats = append(b.mod.CasePats, cs.PatText)
			st.CaseCount++
		}
		return st, true

	case ast.StmtFnDecl:
		// nested decls lower as their own functions; no statement remains
		b.lowerFnDecl(sid, s, InvalidFunc)
		return Stmt{}, false
	}

	return Stmt{Kind: StmtError, Span: s.Span, Expr: InvalidValue,
		A: InvalidBlock, B: InvalidBlock}, true
}

func (b *builder) newValue(v Value) ValueID {
	return b.mod.AddValue(v)
}

func (b *builder) lowerExpr(eid ast.ExprID) ValueID {
	if eid == ast.InvalidExpr {
		return InvalidValue
	}
	e := b.arena.Expr(eid)
	t := b.exprType(eid)

	base := Value{
		Span: e.Span, Type: t,
		A: InvalidValue, B: InvalidValue, C: InvalidValue,
		Sym: sema.InvalidSymbol, OriginSym: sema.InvalidSymbol,
		PlaceElemType: types.InvalidType, CastTo: types.InvalidType,
	}

	switch e.Kind {
	case ast.ExprIntLit:
		base.Kind = ValIntLit
		base.Text = e.Text
		return b.newValue(base)
	case ast.ExprFloatLit:
		base.Kind = ValFloatLit
		base.Text = e.Text
		return b.newValue(base)
	case ast.ExprStringLit:
		base.Kind = ValStringLit
		base.Text = e.Text
		return b.newValue(base)
	case ast.ExprCharLit:
		base.Kind = ValCharLit
		base.Text = e.Text
		return b.newValue(base)
	case ast.ExprBoolLit:
		base.Kind = ValBoolLit
		base.Text = e.Text
		return b.newValue(base)
	case ast.ExprNullLit:
		base.Kind = ValNullLit
		base.Text = e.Text
		return b.newValue(base)

	case ast.ExprIdent:
		base.Text = e.Text
		base.Place = PlaceLocal
		base.PlaceElemType = t
		if rs, ok := b.nres.LookupExpr(eid); ok && rs.Sym != sema.InvalidSymbol {
			base.Sym = rs.Sym
			base.OriginSym = rs.Sym
			if b.table.Symbol(rs.Sym).IsStatic {
				base.Kind = ValGlobal
				return b.newValue(base)
			}
		}
		base.Kind = ValLocal
		return b.newValue(base)

	case ast.ExprHole:
		base.Kind = ValError
		base.Text = e.Text
		return b.newValue(base)

	case ast.ExprArrayLit:
		begin, count := b.lowerArgs(e)
		base.Kind = ValArrayLit
		base.ArgBegin = begin
		base.ArgCount = count
		return b.newValue(base)

	case ast.ExprUnary:
		a := b.lowerExpr(e.A)
		base.A = a
		base.Op = e.Op
		switch e.Op {
		case syntax.Amp:
			base.Kind = ValBorrow
		case syntax.AmpAmp:
			base.Kind = ValEscape
			base.Effect = EffectMayWrite
		case syntax.Star:
			base.Kind = ValUnary
			base.Place = PlaceDeref
		default:
			base.Kind = ValUnary
		}
		return b.newValue(base)

	case ast.ExprPostfixUnary:
		a := b.lowerExpr(e.A)
		base.A = a
		base.Op = e.Op
		if e.Op == syntax.PlusPlus {
			base.Kind = ValPostfixInc
			base.Effect = EffectMayWrite
		} else {
			base.Kind = ValUnary
		}
		return b.newValue(base)

	case ast.ExprBinary:
		base.Kind = ValBinary
		base.Op = e.Op
		base.A = b.lowerExpr(e.A)
		base.B = b.lowerExpr(e.B)
		return b.newValue(base)

	case ast.ExprAssign:
		base.Kind = ValAssign
		base.Op = e.Op
		base.A = b.lowerExpr(e.A)
		base.B = b.lowerExpr(e.B)
		base.Effect = EffectMayWrite
		if b.mod.ValidValue(base.B) && b.mod.Values[base.B].Kind == ValEscape {
			if b.isStaticPlaceAST(e.A) {
				b.escBoundary[base.B] = BoundaryAbi
				b.escToStatic[base.B] = true
			}
		}
		return b.newValue(base)

	case ast.ExprTernary, ast.ExprIfExpr:
		base.Kind = ValIfExpr
		base.A = b.lowerExpr(e.A)
		base.B = b.lowerExpr(e.B)
		if e.C != ast.InvalidExpr {
			base.C = b.lowerExpr(e.C)
		}
		return b.newValue(base)

	case ast.ExprCall:
		callee := b.lowerExpr(e.A)
		begin, count := b.lowerArgs(e)
		base.Kind = ValCall
		base.A = callee
		base.ArgBegin = begin
		base.ArgCount = count
		base.Effect = EffectUnknown
		return b.newValue(base)

	case ast.ExprIndex:
		base.Kind = ValIndex
		base.A = b.lowerExpr(e.A)
		base.B = b.lowerExpr(e.B)
		base.Place = PlaceIndex
		base.PlaceElemType = t
		return b.newValue(base)

	case ast.ExprField:
		base.Kind = ValField
		base.A = b.lowerExpr(e.A)
		base.Text = e.Text
		base.Place = PlaceField
		base.PlaceElemType = t
		return b.newValue(base)

	case ast.ExprLoop:
		base.Kind = ValLoopExpr
		if e.LoopIter != ast.InvalidExpr {
			base.A = b.lowerExpr(e.LoopIter)
		}
		base.B = ValueID(b.lowerBlock(e.LoopBody))
		base.Text = e.LoopVar
		if rs, ok := b.nres.LookupExpr(eid); ok {
			base.Sym = rs.Sym
		}
		return b.newValue(base)

	case ast.ExprBlockExpr:
		base.Kind = ValBlockExpr
		base.A = ValueID(b.lowerBlock(e.LoopBody))
		return b.newValue(base)

	case ast.ExprCast:
		base.Kind = ValCast
		base.A = b.lowerExpr(e.A)
		base.CastTo = e.CastType
		base.CastKind = uint8(e.CastKind)
		return b.newValue(base)
	}

	base.Kind = ValError
	return b.newValue(base)
}

// lowerArgs stages the argument list first so that an argument slice —
// including the children of a named group — lands contiguously.
func (b *builder) lowerArgs(e *ast.Expr) (uint32, uint32) {
	type stagedArg struct {
		arg      Arg
		children []Arg
	}
	var staged []stagedArg

	for i := range b.arena.CallArgs(e) {
		a := b.arena.CallArgs(e)[i]
		if a.Kind == ast.ArgNamedGroup {
			sa := stagedArg{arg: Arg{
				Kind: ArgNamedGroup,
				Span: a.Span, Value: InvalidValue,
			}}
			for _, c := range b.arena.NamedGroupChildren(&a) {
				sa.children = append(sa.children, b.lowerOneArg(c))
			}
			staged = append(staged, sa)
			continue
		}
		staged = append(staged, stagedArg{arg: b.lowerOneArg(a)})
	}

	begin := uint32(len(b.mod.Args))
	count := uint32(0)
	for _, sa := range staged {
		if sa.arg.Kind == ArgNamedGroup {
			parentIdx := b.mod.AddArg(sa.arg)
			count++
			childBegin := uint32(len(b.mod.Args))
			for _, c := range sa.children {
				b.mod.AddArg(c)
				count++
			}
			b.mod.Args[parentIdx].ChildBegin = childBegin
			b.mod.Args[parentIdx].ChildCount = uint32(len(sa.children))
			continue
		}
		b.mod.AddArg(sa.arg)
		count++
	}
	return begin, count
}

func (b *builder) lowerOneArg(a ast.Arg) Arg {
	out := Arg{
		Kind:     ArgPositional,
		HasLabel: a.HasLabel,
		IsHole:   a.IsHole,
		Label:    a.Label,
		Value:    InvalidValue,
		Span:     a.Span,
	}
	if a.Kind == ast.ArgLabeled {
		out.Kind = ArgLabeled
	}
	if !a.IsHole && a.Expr != ast.InvalidExpr {
		out.Value = b.lowerExpr(a.Expr)
		if b.mod.ValidValue(out.Value) && b.mod.Values[out.Value].Kind == ValEscape {
			b.escBoundary[out.Value] = BoundaryCallArg
		}
	}
	return out
}

// isStaticPlaceAST reports whether an assignment target is rooted at a
// static symbol, checked at AST level while the consumer context is
// still visible.
func (b *builder) isStaticPlaceAST(eid ast.ExprID) bool {
	if eid == ast.InvalidExpr {
		return false
	}
	e := b.arena.Expr(eid)
	switch e.Kind {
	case ast.ExprIdent:
		if rs, ok := b.nres.LookupExpr(eid); ok && rs.Sym != sema.InvalidSymbol {
			return b.table.Symbol(rs.Sym).IsStatic
		}
	case ast.ExprIndex, ast.ExprField:
		return b.isStaticPlaceAST(e.A)
	}
	return false
}

// attachEscapeHandles creates the one metadata handle every escape value
// must carry. Kind and boundary derive from the syntactic consumer noted
// during lowering; from_static reflects the origin symbol.
func (b *builder) attachEscapeHandles() {
	for vid := range b.mod.Values {
		v := &b.mod.Values[vid]
		if v.Kind != ValEscape {
			continue
		}

		origin := b.rootSymbol(ValueID(vid))
		fromStatic := false
		if origin != sema.InvalidSymbol {
			fromStatic = b.table.Symbol(origin).IsStatic
		}

		h := EscapeHandle{
			EscapeValue: ValueID(vid),
			Kind:        HandleTrivial,
			Boundary:    BoundaryNone,
			FromStatic:  fromStatic,
			OriginSym:   origin,
		}
		if bd, ok := b.escBoundary[ValueID(vid)]; ok {
			h.Boundary = bd
			switch bd {
			case BoundaryReturn, BoundaryCallArg:
				h.Kind = HandleCallerSlot
			case BoundaryAbi, BoundaryFfi:
				h.Kind = HandleStackSlot
			}
		}
		b.mod.AddEscapeHandle(h)

		v.OriginSym = origin
	}
}

// rootSymbol follows a-children through borrow/escape/index/field to the
// nearest local or global.
func (b *builder) rootSymbol(vid ValueID) sema.SymbolID {
	seen := make(map[ValueID]bool)
	for b.mod.ValidValue(vid) && !seen[vid] {
		seen[vid] = true
		v := &b.mod.Values[vid]
		switch v.Kind {
		case ValLocal, ValGlobal:
			return v.Sym
		case ValBorrow, ValEscape, ValIndex, ValField:
			vid = v.A
		case ValUnary:
			if v.Op == syntax.Star {
				vid = v.A
				continue
			}
			return sema.InvalidSymbol
		default:
			return sema.InvalidSymbol
		}
	}
	return sema.InvalidSymbol
}
