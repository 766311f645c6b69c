package sir

import (
	"github.com/brant-lang/brant/diag"
	"github.com/brant-lang/brant/sema"
	"github.com/brant-lang/brant/types"
)

// CapabilitySymbolState is the per-symbol machine state.
type CapabilitySymbolState struct {
	MovedByEscape       bool
	ActiveSharedBorrows uint32
	ActiveMutBorrow     bool
}

// CapabilityAnalysisResult is the outcome of the SIR state machine.
type CapabilityAnalysisResult struct {
	OK            bool
	ErrorCount    uint32
	StateBySymbol map[sema.SymbolID]*CapabilitySymbolState
}

// AnalyzeCapabilities runs the per-symbol state machine over program
// order within each function. Shared and mutable borrows are released at
// the end of their enclosing block scope; an escape of a non-static
// origin moves the symbol.
func AnalyzeCapabilities(m *Module, pool *types.Pool, table *sema.Table, bag *diag.Bag) CapabilityAnalysisResult {
	a := &capAnalyzer{
		m:     m,
		pool:  pool,
		table: table,
		bag:   bag,
		res: CapabilityAnalysisResult{
			OK:            true,
			StateBySymbol: make(map[sema.SymbolID]*CapabilitySymbolState),
		},
		handleByValue: make(map[ValueID]*EscapeHandle),
	}
	for i := range m.EscapeHandles {
		h := &m.EscapeHandles[i]
		a.handleByValue[h.EscapeValue] = h
	}

	for fi := range m.Funcs {
		a.analyzeFunc(&m.Funcs[fi])
	}
	return a.res
}

type borrowRecord struct {
	sym   sema.SymbolID
	isMut bool
}

type capAnalyzer struct {
	m     *Module
	pool  *types.Pool
	table *sema.Table
	bag   *diag.Bag
	res   CapabilityAnalysisResult

	handleByValue map[ValueID]*EscapeHandle
	paramSyms     map[sema.SymbolID]bool
}

func (a *capAnalyzer) state(sym sema.SymbolID) *CapabilitySymbolState {
	if st, ok := a.res.StateBySymbol[sym]; ok {
		return st
	}
	st := &CapabilitySymbolState{}
	a.res.StateBySymbol[sym] = st
	return st
}

func (a *capAnalyzer) report(code diag.Code, v *Value, name string) {
	a.res.OK = false
	a.res.ErrorCount++
	d := diag.New(diag.SeverityError, code, v.Span)
	if name != "" {
		d = d.WithArg(name)
	}
	a.bag.AddUnique(d)
}

func (a *capAnalyzer) symName(sym sema.SymbolID) string {
	if sym == sema.InvalidSymbol {
		return "?"
	}
	return a.table.Symbol(sym).Name
}

func (a *capAnalyzer) isStatic(sym sema.SymbolID) bool {
	return sym != sema.InvalidSymbol && a.table.Symbol(sym).IsStatic
}

func (a *capAnalyzer) analyzeFunc(f *Func) {
	a.paramSyms = make(map[sema.SymbolID]bool, f.ParamCount)
	for i := uint32(0); i < f.ParamCount; i++ {
		p := a.m.Params[f.ParamBegin+i]
		if p.Sym != sema.InvalidSymbol {
			a.paramSyms[p.Sym] = true
		}
	}
	if f.Entry != InvalidBlock {
		a.walkBlock(f.Entry)
	}
}

func (a *capAnalyzer) walkBlock(bid BlockID) {
	if !a.m.ValidBlock(bid) {
		return
	}
	b := &a.m.Blocks[bid]

	var frame []borrowRecord
	for i := uint32(0); i < b.StmtCount; i++ {
		a.walkStmt(b.StmtBegin+i, &frame)
	}

	// end of borrow scope: release in reverse order
	for i := len(frame) - 1; i >= 0; i-- {
		st := a.state(frame[i].sym)
		if frame[i].isMut {
			st.ActiveMutBorrow = false
		} else if st.ActiveSharedBorrows > 0 {
			st.ActiveSharedBorrows--
		}
	}
}

func (a *capAnalyzer) walkStmt(sid StmtID, frame *[]borrowRecord) {
	if int(sid) >= len(a.m.Stmts) {
		return
	}
	s := &a.m.Stmts[sid]

	switch s.Kind {
	case StmtExpr, StmtReturn, StmtBreak:
		a.walkValue(s.Expr, frame)
	case StmtVarDecl:
		a.walkValue(s.Init, frame)
	case StmtIf:
		a.walkValue(s.Expr, frame)
		a.walkBlock(s.A)
		a.walkBlock(s.B)
	case StmtWhile, StmtDoWhile:
		a.walkValue(s.Expr, frame)
		a.walkBlock(s.A)
	case StmtDoScope:
		a.walkBlock(s.A)
	case StmtSwitch:
		a.walkValue(s.Expr, frame)
		for i := uint32(0); i < s.CaseCount; i++ {
			a.walkBlock(a.m.CaseBlocks[s.CaseBegin+i])
		}
	}
}

func (a *capAnalyzer) walkValue(vid ValueID, frame *[]borrowRecord) {
	if !a.m.ValidValue(vid) {
		return
	}
	v := &a.m.Values[vid]

	switch v.Kind {
	case ValLocal:
		// Read x: requires the symbol not moved by escape.
		if v.Sym != sema.InvalidSymbol {
			st := a.state(v.Sym)
			if st.MovedByEscape {
				a.report(diag.CodeUseAfterMove, v, a.symName(v.Sym))
			}
		}
		return

	case ValBorrow:
		a.walkValue(v.A, frame)
		root := v.OriginSym
		if root == sema.InvalidSymbol {
			return
		}
		st := a.state(root)
		isMut := a.isMutBorrow(v.Type)

		if st.MovedByEscape {
			a.report(diag.CodeUseAfterMove, v, a.symName(root))
			return
		}
		if isMut {
			if st.ActiveSharedBorrows > 0 || st.ActiveMutBorrow {
				a.report(diag.CodeBorrowConflict, v, a.symName(root))
				return
			}
			st.ActiveMutBorrow = true
			*frame = append(*frame, borrowRecord{sym: root, isMut: true})
			return
		}
		if st.ActiveMutBorrow {
			a.report(diag.CodeBorrowConflict, v, a.symName(root))
			return
		}
		st.ActiveSharedBorrows++
		*frame = append(*frame, borrowRecord{sym: root, isMut: false})
		return

	case ValEscape:
		a.walkValue(v.A, frame)
		root := v.OriginSym
		if root == sema.InvalidSymbol {
			return
		}
		if a.isStatic(root) {
			return // static-backed escape; no move
		}

		h := a.handleByValue[vid]
		consumedAtBoundary := h != nil &&
			(h.Boundary == BoundaryReturn || h.Boundary == BoundaryCallArg)

		// only a caller-provided slot may escape through a return or
		// call-argument boundary; anything else is the classic dangling
		// local
		if !a.paramSyms[root] || !consumedAtBoundary {
			a.report(diag.CodeEscapeNonStatic, v, a.symName(root))
		}

		st := a.state(root)
		st.MovedByEscape = true
		return

	case ValLoopExpr:
		a.walkValue(v.A, frame)
		a.walkBlock(BlockID(v.B))
		return

	case ValBlockExpr:
		a.walkBlock(BlockID(v.A))
		return
	}

	// generic traversal
	a.walkValue(v.A, frame)
	a.walkValue(v.B, frame)
	a.walkValue(v.C, frame)
	if v.Kind == ValCall || v.Kind == ValArrayLit {
		forEachCallArgValue(a.m, v, func(cid ValueID) {
			a.walkValue(cid, frame)
		})
	}
}

func (a *capAnalyzer) isMutBorrow(t types.TypeID) bool {
	if !a.pool.Valid(t) {
		return false
	}
	tt := a.pool.Get(t)
	return tt.Kind == types.KindBorrow && tt.BorrowIsMut
}
