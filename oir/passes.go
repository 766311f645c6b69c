package oir

import (
	"math/big"

	"github.com/brant-lang/brant/num"
	"github.com/brant-lang/brant/types"
)

// RunPasses executes the OIR pass pipeline in its fixed order:
// critical-edge split, mem2reg, const-fold + DCE. Effectful
// instructions are never reordered relative to each other; pure
// instructions may be deleted. Running the pipeline twice reaches a
// fixed point.
func RunPasses(m *Module, pool *types.Pool) {
	for fi := range m.Funcs {
		f := &m.Funcs[fi]
		SplitCriticalEdges(m, f)
		Mem2Reg(m, f, pool)
	}
	ConstFoldAndDCE(m, pool)
}

// SplitCriticalEdges inserts a forwarding block on every edge u -> v
// where u has multiple successors and v has multiple predecessors. The
// edge's branch arguments move onto the new block's terminator.
func SplitCriticalEdges(m *Module, f *Function) {
	preds := make(map[BlockID]int)
	inFunc := make(map[BlockID]bool)
	for _, bid := range f.Blocks {
		inFunc[bid] = true
	}
	for _, bid := range f.Blocks {
		b := &m.Blocks[bid]
		if !b.HasTerm {
			continue
		}
		for _, s := range b.Term.Successors() {
			if inFunc[s] {
				preds[s]++
			}
		}
	}

	for _, bid := range f.Blocks {
		b := &m.Blocks[bid]
		if !b.HasTerm || b.Term.Kind != TermCondBr {
			continue // only multi-successor blocks create critical edges
		}

		split := func(target BlockID, args []ValueID) (BlockID, []ValueID) {
			if preds[target] < 2 {
				return target, args
			}
			nb := m.AddBlock(Block{
				Term:    Terminator{Kind: TermBr, Target: target, Args: args},
				HasTerm: true,
			})
			f.Blocks = append(f.Blocks, nb)
			m.OptStats.CriticalEdgesSplit++
			return nb, nil
		}

		t := &m.Blocks[bid].Term
		t.Then, t.ThenArgs = split(t.Then, t.ThenArgs)
		t.Else, t.ElseArgs = split(t.Else, t.ElseArgs)
	}
}

// Mem2Reg promotes AllocaLocal slots whose address never escapes (no
// Index, Field, Call, or address-flow use) into SSA values, inserting
// block parameters at dominance-frontier join points and rewriting
// every predecessor's branch arguments.
func Mem2Reg(m *Module, f *Function, pool *types.Pool) {
	_ = pool

	// classify alloca usage
	type slotInfo struct {
		instID   InstID
		defs     map[BlockID]bool
		escaped  bool
		anyLoad  bool
		anyStore bool
	}
	slots := make(map[ValueID]*slotInfo) // keyed by the alloca's result value

	for _, bid := range f.Blocks {
		for _, iid := range m.Blocks[bid].Insts {
			inst := &m.Insts[iid]
			if inst.Kind == InstAllocaLocal {
				slots[inst.Result] = &slotInfo{instID: iid, defs: make(map[BlockID]bool)}
			}
		}
	}
	if len(slots) == 0 {
		return
	}

	markEscaped := func(v ValueID) {
		if si, ok := slots[v]; ok {
			si.escaped = true
		}
	}

	for _, bid := range f.Blocks {
		b := &m.Blocks[bid]
		for _, iid := range b.Insts {
			inst := &m.Insts[iid]
			switch inst.Kind {
			case InstLoad:
				if si, ok := slots[inst.A]; ok {
					si.anyLoad = true
				}
			case InstStore:
				if si, ok := slots[inst.A]; ok {
					si.anyStore = true
					si.defs[bid] = true
				}
				markEscaped(inst.B) // storing the address itself escapes it
			case InstIndex, InstField:
				markEscaped(inst.A)
				markEscaped(inst.B)
			case InstCall:
				markEscaped(inst.A)
				for _, a := range inst.Args {
					markEscaped(a)
				}
			case InstUnary, InstCast:
				markEscaped(inst.A)
			case InstBinOp:
				markEscaped(inst.A)
				markEscaped(inst.B)
			}
		}
		if b.HasTerm {
			t := &b.Term
			switch t.Kind {
			case TermCondBr:
				markEscaped(t.Cond)
				for _, a := range t.ThenArgs {
					markEscaped(a)
				}
				for _, a := range t.ElseArgs {
					markEscaped(a)
				}
			case TermBr:
				for _, a := range t.Args {
					markEscaped(a)
				}
			case TermRet:
				if t.HasValue {
					markEscaped(t.Value)
				}
			}
		}
	}

	// promotable slots in deterministic order
	var promote []ValueID
	for _, bid := range f.Blocks {
		for _, iid := range m.Blocks[bid].Insts {
			inst := &m.Insts[iid]
			if inst.Kind != InstAllocaLocal {
				continue
			}
			si := slots[inst.Result]
			if si != nil && !si.escaped {
				promote = append(promote, inst.Result)
			}
		}
	}
	if len(promote) == 0 {
		return
	}

	cfg := BuildCFG(m, f)

	// phi placement at iterated dominance frontiers
	phiFor := make(map[BlockID]map[ValueID]ValueID) // block -> slot -> param value
	for _, slotV := range promote {
		si := slots[slotV]
		slotT := m.Insts[si.instID].SlotType

		work := make([]BlockID, 0, len(si.defs))
		for _, bid := range cfg.RPO { // deterministic frontier iteration
			if si.defs[bid] {
				work = append(work, bid)
			}
		}
		placed := make(map[BlockID]bool)
		for len(work) > 0 {
			wb := work[0]
			work = work[1:]
			for _, df := range cfg.Frontier[wb] {
				if placed[df] {
					continue
				}
				placed[df] = true
				if phiFor[df] == nil {
					phiFor[df] = make(map[ValueID]ValueID)
				}
				blk := &m.Blocks[df]
				pv := m.AddValue(Value{Type: slotT, Eff: EffPure,
					DefA: df, DefB: uint32(len(blk.Params))})
				blk.Params = append(blk.Params, pv)
				phiFor[df][slotV] = pv
				m.OptStats.Mem2RegPhiParams++
				if !si.defs[df] {
					si.defs[df] = true
					work = append(work, df)
				}
			}
		}
		m.OptStats.Mem2RegPromotedSlots++
	}

	// rename along the dominator tree
	replace := make(map[ValueID]ValueID)  // load result -> reaching def
	dead := make(map[InstID]bool)         // removed loads/stores/allocas
	current := make(map[ValueID]ValueID)  // slot -> reaching def

	promoteSet := make(map[ValueID]bool, len(promote))
	for _, s := range promote {
		promoteSet[s] = true
	}

	domKids := cfg.DomChildren()
	var rename func(bid BlockID, saved map[ValueID]ValueID)
	rename = func(bid BlockID, _ map[ValueID]ValueID) {
		// snapshot for restoration
		snapshot := make(map[ValueID]ValueID, len(current))
		for k, v := range current {
			snapshot[k] = v
		}

		if params := phiFor[bid]; params != nil {
			for slotV, pv := range params {
				current[slotV] = pv
			}
		}

		for _, iid := range m.Blocks[bid].Insts {
			inst := &m.Insts[iid]
			switch inst.Kind {
			case InstAllocaLocal:
				if promoteSet[inst.Result] {
					dead[iid] = true
				}
			case InstLoad:
				if promoteSet[inst.A] {
					def, ok := current[inst.A]
					if !ok {
						// use before any store: a null of the slot type
						def = synthesizeNull(m, f, bid, iid)
						m.Values[def].Type = m.Insts[slots[inst.A].instID].SlotType
					}
					replace[inst.Result] = def
					dead[iid] = true
				}
			case InstStore:
				if promoteSet[inst.A] {
					current[inst.A] = resolveReplace(replace, inst.B)
					dead[iid] = true
				}
			}
		}

		// feed successor phis
		b := &m.Blocks[bid]
		if b.HasTerm {
			t := &b.Term
			appendArgs := func(target BlockID, args *[]ValueID) {
				params := phiFor[target]
				if params == nil {
					return
				}
				for _, slotV := range promote {
					pv, need := params[slotV]
					_ = pv
					if !need {
						continue
					}
					def, ok := current[slotV]
					if !ok {
						def = synthesizeNullAtEnd(m, f, bid)
					}
					*args = append(*args, resolveReplace(replace, def))
				}
			}
			switch t.Kind {
			case TermBr:
				appendArgs(t.Target, &t.Args)
			case TermCondBr:
				appendArgs(t.Then, &t.ThenArgs)
				appendArgs(t.Else, &t.ElseArgs)
			}
		}

		for _, kid := range domKids[bid] {
			rename(kid, nil)
		}

		current = snapshot
	}
	if cfg.Reachable(f.Entry) {
		rename(f.Entry, nil)
	}

	// rewrite all operands through the replacement map and drop dead insts
	for _, bid := range f.Blocks {
		b := &m.Blocks[bid]
		kept := b.Insts[:0]
		for _, iid := range b.Insts {
			if dead[iid] {
				continue
			}
			inst := &m.Insts[iid]
			// unreachable blocks never went through renaming; their
			// accesses to promoted slots are dropped outright
			if !cfg.Reachable(bid) {
				switch inst.Kind {
				case InstAllocaLocal:
					if promoteSet[inst.Result] {
						continue
					}
				case InstLoad:
					if promoteSet[inst.A] {
						continue
					}
				case InstStore:
					if promoteSet[inst.A] {
						continue
					}
				}
			}
			inst.A = resolveReplace(replace, inst.A)
			inst.B = resolveReplace(replace, inst.B)
			for i := range inst.Args {
				inst.Args[i] = resolveReplace(replace, inst.Args[i])
			}
			kept = append(kept, iid)
		}
		b.Insts = kept

		if b.HasTerm {
			t := &b.Term
			t.Cond = resolveReplace(replace, t.Cond)
			if t.HasValue {
				t.Value = resolveReplace(replace, t.Value)
			}
			for i := range t.Args {
				t.Args[i] = resolveReplace(replace, t.Args[i])
			}
			for i := range t.ThenArgs {
				t.ThenArgs[i] = resolveReplace(replace, t.ThenArgs[i])
			}
			for i := range t.ElseArgs {
				t.ElseArgs[i] = resolveReplace(replace, t.ElseArgs[i])
			}
		}
	}
}

func resolveReplace(replace map[ValueID]ValueID, v ValueID) ValueID {
	seen := 0
	for {
		next, ok := replace[v]
		if !ok {
			return v
		}
		v = next
		seen++
		if seen > len(replace)+1 {
			return v
		}
	}
}

// synthesizeNull materializes a null in place of a load from a slot that
// has no reaching definition. It is inserted before the dead load.
func synthesizeNull(m *Module, f *Function, bid BlockID, before InstID) ValueID {
	_ = f
	inst := Inst{Kind: InstConstNull, Eff: EffPure}
	id := InstID(len(m.Insts))
	res := m.AddValue(Value{Type: types.InvalidType, Eff: EffPure, DefA: id, DefB: InvalidID})
	inst.Result = res
	m.AddInst(inst)

	b := &m.Blocks[bid]
	out := make([]InstID, 0, len(b.Insts)+1)
	for _, iid := range b.Insts {
		if iid == before {
			out = append(out, id)
		}
		out = append(out, iid)
	}
	b.Insts = out
	return res
}

func synthesizeNullAtEnd(m *Module, f *Function, bid BlockID) ValueID {
	_ = f
	inst := Inst{Kind: InstConstNull, Eff: EffPure}
	id := InstID(len(m.Insts))
	res := m.AddValue(Value{Type: types.InvalidType, Eff: EffPure, DefA: id, DefB: InvalidID})
	inst.Result = res
	m.AddInst(inst)
	b := &m.Blocks[bid]
	b.Insts = append(b.Insts, id)
	return res
}

// ConstFoldAndDCE folds pure unary/binary operations over constants
// using the result type's wrap-around semantics, then removes dead pure
// instructions. An instruction is live when it has a non-pure effect,
// feeds a terminator or branch argument, or transitively feeds a live
// instruction.
func ConstFoldAndDCE(m *Module, pool *types.Pool) {
	defInst := make(map[ValueID]InstID, len(m.Insts))
	for iid := range m.Insts {
		inst := &m.Insts[iid]
		if inst.Result != InvalidID {
			defInst[inst.Result] = InstID(iid)
		}
	}

	constIntOf := func(v ValueID) (string, bool) {
		iid, ok := defInst[v]
		if !ok {
			return "", false
		}
		inst := &m.Insts[iid]
		if inst.Kind != InstConstInt {
			return "", false
		}
		return inst.Text, true
	}
	constBoolOf := func(v ValueID) (bool, bool) {
		iid, ok := defInst[v]
		if !ok {
			return false, false
		}
		inst := &m.Insts[iid]
		if inst.Kind != InstConstBool {
			return false, false
		}
		return inst.BoolVal, true
	}

	// fold in block order so folded inputs feed later folds
	for bi := range m.Blocks {
		for _, iid := range m.Blocks[bi].Insts {
			inst := &m.Insts[iid]
			if inst.Eff != EffPure {
				continue
			}

			switch inst.Kind {
			case InstBinOp:
				if folded := foldBinOp(m, pool, inst, constIntOf, constBoolOf); folded {
					m.OptStats.ConstFoldedInsts++
				}
			case InstUnary:
				if folded := foldUnary(m, pool, inst, constIntOf, constBoolOf); folded {
					m.OptStats.ConstFoldedInsts++
				}
			}
		}
	}

	// liveness
	live := make(map[InstID]bool)
	var work []InstID

	markValue := func(v ValueID) {
		if iid, ok := defInst[v]; ok && !live[iid] {
			live[iid] = true
			work = append(work, iid)
		}
	}

	for bi := range m.Blocks {
		b := &m.Blocks[bi]
		for _, iid := range b.Insts {
			if m.Insts[iid].Eff != EffPure {
				if !live[iid] {
					live[iid] = true
					work = append(work, iid)
				}
			}
		}
		if !b.HasTerm {
			continue
		}
		t := &b.Term
		if t.Cond != InvalidID && t.Kind == TermCondBr {
			markValue(t.Cond)
		}
		if t.Kind == TermRet && t.HasValue {
			markValue(t.Value)
		}
		for _, a := range t.Args {
			markValue(a)
		}
		for _, a := range t.ThenArgs {
			markValue(a)
		}
		for _, a := range t.ElseArgs {
			markValue(a)
		}
	}

	for len(work) > 0 {
		iid := work[len(work)-1]
		work = work[:len(work)-1]
		inst := &m.Insts[iid]
		switch inst.Kind {
		case InstUnary, InstCast, InstLoad, InstField:
			markValue(inst.A)
		case InstBinOp, InstIndex, InstStore:
			markValue(inst.A)
			markValue(inst.B)
		case InstCall:
			markValue(inst.A)
			for _, a := range inst.Args {
				markValue(a)
			}
		}
	}

	for bi := range m.Blocks {
		b := &m.Blocks[bi]
		kept := b.Insts[:0]
		for _, iid := range b.Insts {
			if live[iid] {
				kept = append(kept, iid)
				continue
			}
			m.OptStats.DeadInstsRemoved++
		}
		b.Insts = kept
	}
}

func builtinOf(pool *types.Pool, t types.TypeID) (types.Builtin, bool) {
	if !pool.Valid(t) {
		return 0, false
	}
	tt := pool.Get(t)
	if tt.Kind != types.KindBuiltin {
		return 0, false
	}
	return tt.Builtin, true
}

func foldBinOp(m *Module, pool *types.Pool, inst *Inst,
	constIntOf func(ValueID) (string, bool),
	constBoolOf func(ValueID) (bool, bool)) bool {

	// bool ops
	if la, okA := constBoolOf(inst.A); okA {
		if lb, okB := constBoolOf(inst.B); okB {
			var r bool
			switch inst.Bin {
			case OpAnd:
				r = la && lb
			case OpOr:
				r = la || lb
			case OpXor:
				r = la != lb
			case OpEq:
				r = la == lb
			case OpNe:
				r = la != lb
			default:
				return false
			}
			*inst = Inst{Kind: InstConstBool, Eff: EffPure, Result: inst.Result, BoolVal: r}
			return true
		}
	}

	ta, okA := constIntOf(inst.A)
	tb, okB := constIntOf(inst.B)
	if !okA || !okB {
		return false
	}
	la, okA := num.ParseLit(ta)
	lb, okB := num.ParseLit(tb)
	if !okA || !okB {
		return false
	}

	resultT := types.InvalidType
	if m.ValidValue(inst.Result) {
		resultT = m.Values[inst.Result].Type
	}

	switch inst.Bin {
	case OpAdd, OpSub, OpMul:
		v := la.Value
		switch inst.Bin {
		case OpAdd:
			v = new(big.Int).Add(la.Value, lb.Value)
		case OpSub:
			v = new(big.Int).Sub(la.Value, lb.Value)
		case OpMul:
			v = new(big.Int).Mul(la.Value, lb.Value)
		}
		if b, ok := builtinOf(pool, resultT); ok {
			v = num.WrapTo(v, b)
		}
		*inst = Inst{Kind: InstConstInt, Eff: EffPure, Result: inst.Result, Text: v.String()}
		return true

	case OpLt, OpLe, OpGt, OpGe, OpEq, OpNe:
		cmp := la.Value.Cmp(lb.Value)
		var r bool
		switch inst.Bin {
		case OpLt:
			r = cmp < 0
		case OpLe:
			r = cmp <= 0
		case OpGt:
			r = cmp > 0
		case OpGe:
			r = cmp >= 0
		case OpEq:
			r = cmp == 0
		case OpNe:
			r = cmp != 0
		}
		*inst = Inst{Kind: InstConstBool, Eff: EffPure, Result: inst.Result, BoolVal: r}
		return true
	}

	// division and remainder carry MayTrap and are never folded here
	return false
}

func foldUnary(m *Module, pool *types.Pool, inst *Inst,
	constIntOf func(ValueID) (string, bool),
	constBoolOf func(ValueID) (bool, bool)) bool {

	switch inst.Un {
	case OpNot:
		if v, ok := constBoolOf(inst.A); ok {
			*inst = Inst{Kind: InstConstBool, Eff: EffPure, Result: inst.Result, BoolVal: !v}
			return true
		}
		return false

	case OpNeg, OpPlus:
		txt, ok := constIntOf(inst.A)
		if !ok {
			return false
		}
		lit, ok := num.ParseLit(txt)
		if !ok {
			return false
		}
		v := lit.Value
		if inst.Un == OpNeg {
			v = new(big.Int).Neg(v)
		}
		resultT := types.InvalidType
		if m.ValidValue(inst.Result) {
			resultT = m.Values[inst.Result].Type
		}
		if b, okB := builtinOf(pool, resultT); okB {
			v = num.WrapTo(v, b)
		}
		*inst = Inst{Kind: InstConstInt, Eff: EffPure, Result: inst.Result, Text: v.String()}
		return true
	}
	return false
}
