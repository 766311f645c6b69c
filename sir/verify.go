package sir

import (
	"fmt"

	"github.com/brant-lang/brant/sema"
)

// VerifyError is one structural verification failure.
type VerifyError struct {
	Msg string
}

func (e VerifyError) Error() string { return e.Msg }

func pushError(out *[]VerifyError, format string, args ...any) {
	*out = append(*out, VerifyError{Msg: fmt.Sprintf(format, args...)})
}

// VerifyModule checks the structural invariants of a SIR module: block
// statement slices are in range and non-overlapping, function slices are
// valid, statements reference live values and blocks, and every value's
// children are in range. Any error fails the OIR gate.
func VerifyModule(m *Module) []VerifyError {
	var errs []VerifyError

	// 1) block stmt slice bounds + ownership
	stmtOwner := make([]int32, len(m.Stmts))
	for i := range stmtOwner {
		stmtOwner[i] = -1
	}
	for bid := range m.Blocks {
		b := &m.Blocks[bid]
		end := uint64(b.StmtBegin) + uint64(b.StmtCount)
		if end > uint64(len(m.Stmts)) {
			pushError(&errs, "block #%d has out-of-range stmt slice: begin=%d count=%d (stmts.size=%d)",
				bid, b.StmtBegin, b.StmtCount, len(m.Stmts))
			continue
		}
		for i := uint32(0); i < b.StmtCount; i++ {
			sid := b.StmtBegin + i
			if stmtOwner[sid] != -1 {
				pushError(&errs, "stmt #%d belongs to multiple blocks (%d, %d)", sid, stmtOwner[sid], bid)
			} else {
				stmtOwner[sid] = int32(bid)
			}
		}
	}

	// 2) function slices / entry blocks
	for fid := range m.Funcs {
		f := &m.Funcs[fid]
		if f.Entry != InvalidBlock && !m.ValidBlock(f.Entry) {
			pushError(&errs, "func #%d has invalid entry block id %d", fid, f.Entry)
		}
		if uint64(f.AttrBegin)+uint64(f.AttrCount) > uint64(len(m.Attrs)) {
			pushError(&errs, "func #%d has out-of-range attrs slice", fid)
		}
		if uint64(f.ParamBegin)+uint64(f.ParamCount) > uint64(len(m.Params)) {
			pushError(&errs, "func #%d has out-of-range params slice", fid)
		}
	}

	// 2.5) field/acts slices
	for i := range m.Fields {
		f := &m.Fields[i]
		if uint64(f.MemberBegin)+uint64(f.MemberCount) > uint64(len(m.FieldMembers)) {
			pushError(&errs, "field #%d has out-of-range member slice", i)
		}
	}
	for i := range m.Acts {
		a := &m.Acts[i]
		if uint64(a.FuncBegin)+uint64(a.FuncCount) > uint64(len(m.Funcs)) {
			pushError(&errs, "acts #%d has out-of-range function slice", i)
		}
	}

	// 3) stmt references
	for sid := range m.Stmts {
		s := &m.Stmts[sid]

		needValue := func(v ValueID, what string) {
			if v == InvalidValue {
				pushError(&errs, "stmt #%d requires %s value but got invalid id", sid, what)
				return
			}
			if !m.ValidValue(v) {
				pushError(&errs, "stmt #%d has invalid %s value id %d", sid, what, v)
			}
		}
		needBlock := func(b BlockID, what string) {
			if !m.ValidBlock(b) {
				pushError(&errs, "stmt #%d %s has invalid block id %d", sid, what, b)
			}
		}

		switch s.Kind {
		case StmtExpr:
			needValue(s.Expr, "expr")
		case StmtVarDecl:
			if s.Init != InvalidValue && !m.ValidValue(s.Init) {
				pushError(&errs, "stmt #%d has invalid init value id %d", sid, s.Init)
			}
		case StmtIf:
			needValue(s.Expr, "cond")
			needBlock(s.A, "if-then")
			if s.B != InvalidBlock && !m.ValidBlock(s.B) {
				pushError(&errs, "stmt #%d if-else has invalid block id %d", sid, s.B)
			}
		case StmtWhile, StmtDoWhile:
			needValue(s.Expr, "cond")
			needBlock(s.A, "loop-body")
		case StmtDoScope:
			needBlock(s.A, "do-body")
		case StmtReturn, StmtBreak:
			if s.Expr != InvalidValue && !m.ValidValue(s.Expr) {
				pushError(&errs, "stmt #%d has invalid optional expr value id %d", sid, s.Expr)
			}
		case StmtSwitch:
			needValue(s.Expr, "subject")
			if uint64(s.CaseBegin)+uint64(s.CaseCount) > uint64(len(m.CaseBlocks)) {
				pushError(&errs, "stmt #%d has out-of-range case slice", sid)
				break
			}
			for i := uint32(0); i < s.CaseCount; i++ {
				needBlock(m.CaseBlocks[s.CaseBegin+i], "switch-case")
			}
		}
	}

	// 4) value references
	for vid := range m.Values {
		v := &m.Values[vid]

		needChild := func(cid ValueID, what string) {
			if !m.ValidValue(cid) {
				pushError(&errs, "value #%d has invalid %s child value id %d", vid, what, cid)
			}
		}

		switch v.Kind {
		case ValUnary, ValBorrow, ValEscape, ValPostfixInc, ValCast:
			needChild(v.A, "a")

		case ValBinary, ValAssign, ValIndex:
			needChild(v.A, "a")
			needChild(v.B, "b")

		case ValField:
			needChild(v.A, "a")

		case ValIfExpr:
			needChild(v.A, "a")
			needChild(v.B, "b")
			if v.C != InvalidValue {
				needChild(v.C, "c")
			}

		case ValLoopExpr:
			if v.A != InvalidValue && !m.ValidValue(v.A) {
				pushError(&errs, "value #%d loop has invalid iter value id %d", vid, v.A)
			}
			if !m.ValidBlock(BlockID(v.B)) {
				pushError(&errs, "value #%d loop has invalid body block id %d", vid, v.B)
			}

		case ValBlockExpr:
			if !m.ValidBlock(BlockID(v.A)) {
				pushError(&errs, "value #%d block-expr has invalid block id %d", vid, v.A)
			}

		case ValCall, ValArrayLit:
			if v.Kind == ValCall {
				needChild(v.A, "callee")
			}
			end := uint64(v.ArgBegin) + uint64(v.ArgCount)
			if end > uint64(len(m.Args)) {
				pushError(&errs, "value #%d has out-of-range arg slice", vid)
				continue
			}
			for i := uint32(0); i < v.ArgCount; i++ {
				a := m.Args[v.ArgBegin+i]
				if a.Kind == ArgNamedGroup {
					if uint64(a.ChildBegin)+uint64(a.ChildCount) > uint64(len(m.Args)) {
						pushError(&errs, "value #%d named-group has out-of-range child slice", vid)
					}
					continue
				}
				if !a.IsHole && a.Value != InvalidValue && !m.ValidValue(a.Value) {
					pushError(&errs, "value #%d arg %d has invalid value id %d", vid, i, a.Value)
				}
			}
		}

		// span ordering
		if v.Span.Lo > v.Span.Hi {
			pushError(&errs, "value #%d has inverted span [%d, %d)", vid, v.Span.Lo, v.Span.Hi)
		}
	}

	return errs
}

// buildStaticSymbols collects every static symbol of the module.
func buildStaticSymbols(m *Module) map[sema.SymbolID]bool {
	out := make(map[sema.SymbolID]bool)
	for i := range m.Globals {
		g := &m.Globals[i]
		if g.IsStatic && g.Sym != sema.InvalidSymbol {
			out[g.Sym] = true
		}
	}
	for i := range m.Stmts {
		s := &m.Stmts[i]
		if s.Kind == StmtVarDecl && s.IsStatic && s.Sym != sema.InvalidSymbol {
			out[s.Sym] = true
		}
	}
	return out
}
