package sir

import (
	"github.com/brant-lang/brant/diag"
	"github.com/brant-lang/brant/sema"
	"github.com/brant-lang/brant/types"
)

// MutInfo is the per-symbol mutability record.
type MutInfo struct {
	DeclaredMut  bool
	IsSet        bool
	EverWritten  bool
	IllegalWrite bool
}

// MutAnalysisResult maps symbols to their write facts.
type MutAnalysisResult struct {
	BySymbol map[sema.SymbolID]*MutInfo
}

func isMutBorrowType(pool *types.Pool, t types.TypeID) bool {
	if !pool.Valid(t) {
		return false
	}
	tt := pool.Get(t)
	return tt.Kind == types.KindBorrow && tt.BorrowIsMut
}

// isWriteThroughMutBorrowLHS reports whether the write target is a &mut
// write-through: a local of &mut type, or an index/field whose base has
// &mut type.
func isWriteThroughMutBorrowLHS(m *Module, pool *types.Pool, lhs ValueID) bool {
	if !m.ValidValue(lhs) {
		return false
	}
	v := &m.Values[lhs]
	switch v.Kind {
	case ValLocal, ValGlobal:
		return isMutBorrowType(pool, v.Type)
	case ValIndex, ValField:
		if !m.ValidValue(v.A) {
			return false
		}
		return isMutBorrowType(pool, m.Values[v.A].Type)
	}
	return false
}

// rootWrittenSymbol finds the symbol a write lands on.
func rootWrittenSymbol(m *Module, lhs ValueID) (sema.SymbolID, bool) {
	if !m.ValidValue(lhs) {
		return sema.InvalidSymbol, false
	}
	v := &m.Values[lhs]

	if (v.Kind == ValLocal || v.Kind == ValGlobal) && v.Sym != sema.InvalidSymbol {
		return v.Sym, true
	}
	if v.Kind == ValIndex || v.Kind == ValField {
		return rootWrittenSymbol(m, v.A)
	}
	return sema.InvalidSymbol, false
}

// AnalyzeMut walks SIR values: Assign and PostfixInc are writes. A write
// whose root symbol is not declared mutable and which is not a &mut
// write-through records an illegal write and reports CodeWriteToImmutable.
// Duplicate reports at the same position are suppressed.
func AnalyzeMut(m *Module, pool *types.Pool, bag *diag.Bag) MutAnalysisResult {
	r := MutAnalysisResult{BySymbol: make(map[sema.SymbolID]*MutInfo)}

	info := func(sym sema.SymbolID) *MutInfo {
		if mi, ok := r.BySymbol[sym]; ok {
			return mi
		}
		mi := &MutInfo{}
		r.BySymbol[sym] = mi
		return mi
	}

	// 1) declared mutability from var decls and globals
	for i := range m.Stmts {
		s := &m.Stmts[i]
		if s.Kind != StmtVarDecl || s.Sym == sema.InvalidSymbol {
			continue
		}
		mi := info(s.Sym)
		mi.DeclaredMut = s.IsMut
		mi.IsSet = s.IsSet
	}
	for i := range m.Globals {
		g := &m.Globals[i]
		if g.Sym == sema.InvalidSymbol {
			continue
		}
		info(g.Sym).DeclaredMut = g.IsMut
	}
	for i := range m.Params {
		p := &m.Params[i]
		if p.Sym == sema.InvalidSymbol {
			continue
		}
		info(p.Sym).DeclaredMut = p.IsMut
	}

	// 2) walk writes
	for vid := range m.Values {
		v := &m.Values[vid]
		if v.Kind != ValAssign && v.Kind != ValPostfixInc {
			continue
		}

		sym, ok := rootWrittenSymbol(m, v.A)
		if !ok {
			continue
		}
		writeThrough := isWriteThroughMutBorrowLHS(m, pool, v.A)

		mi := info(sym)
		mi.EverWritten = true

		if !mi.DeclaredMut && !writeThrough {
			mi.IllegalWrite = true
			what := "assignment"
			if v.Kind == ValPostfixInc {
				what = "postfix++"
			}
			bag.AddUnique(diag.New(diag.SeverityError, diag.CodeWriteToImmutable, v.Span).
				WithArg(what))
		}
	}

	return r
}
