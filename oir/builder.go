package oir

import (
	"github.com/brant-lang/brant/sema"
	"github.com/brant-lang/brant/sir"
	"github.com/brant-lang/brant/syntax"
	"github.com/brant-lang/brant/types"
)

// BuildResult is the gated output of OIR lowering. When the SIR
// verifiers fail, GatePassed is false and the driver must not proceed.
type BuildResult struct {
	Mod        *Module
	GatePassed bool
	GateErrors []sir.VerifyError
}

// Build lowers a SIR module to basic-block OIR. The gate runs the SIR
// structural verifier and the escape-handle verifier first; any error
// fails the gate.
func Build(sm *sir.Module, pool *types.Pool) BuildResult {
	var gateErrs []sir.VerifyError
	gateErrs = append(gateErrs, sir.VerifyModule(sm)...)
	gateErrs = append(gateErrs, sir.VerifyEscapeHandles(sm)...)
	if len(gateErrs) > 0 {
		return BuildResult{Mod: &Module{}, GatePassed: false, GateErrors: gateErrs}
	}

	b := &obuilder{sm: sm, pool: pool, mod: &Module{}}
	for fi := range sm.Funcs {
		b.lowerFunc(&sm.Funcs[fi])
	}
	b.copyEscapeHints()
	return BuildResult{Mod: b.mod, GatePassed: true}
}

type loopFrame struct {
	header BlockID
	exit   BlockID
	// a value-producing loop stores its break values here
	resultSlot ValueID
}

type obuilder struct {
	sm   *sir.Module
	pool *types.Pool
	mod  *Module

	fn         *Function
	fnID       FuncID
	cur        BlockID
	terminated bool
	deadBlock  bool // current block is unreachable dead-code spill

	slots     map[sema.SymbolID]ValueID
	fnNameSym map[sema.SymbolID]string
	loops     []loopFrame
}

func (b *obuilder) copyEscapeHints() {
	for _, h := range b.sm.EscapeHandles {
		pointee := types.InvalidType
		if b.sm.ValidValue(h.EscapeValue) {
			t := b.sm.Values[h.EscapeValue].Type
			if b.pool.Valid(t) && b.pool.Get(t).Kind == types.KindEscape {
				pointee = b.pool.Get(t).Elem
			}
		}
		b.mod.EscapeHints = append(b.mod.EscapeHints, EscapeHandleHint{
			Value:           InvalidID, // materialized lazily by the backend
			PointeeType:     pointee,
			Kind:            EscapeHandleKind(h.Kind),
			Boundary:        EscapeBoundaryKind(h.Boundary),
			FromStatic:      h.FromStatic,
			HasDrop:         h.HasDrop,
			AbiPackRequired: h.AbiPackRequired,
			FfiPackRequired: h.FfiPackRequired,
		})
	}
}

func (b *obuilder) newBlock() BlockID {
	bid := b.mod.AddBlock(Block{})
	b.fn.Blocks = append(b.fn.Blocks, bid)
	return bid
}

func (b *obuilder) switchTo(bid BlockID) {
	b.cur = bid
	b.terminated = false
	b.deadBlock = false
}

func (b *obuilder) terminate(t Terminator) {
	if b.terminated {
		return
	}
	// an unreachable spill block must not feed real edges (its branch
	// would carry no phi arguments); it simply returns
	if b.deadBlock && t.Kind != TermRet {
		t = Terminator{Kind: TermRet}
	}
	blk := &b.mod.Blocks[b.cur]
	blk.Term = t
	blk.HasTerm = true
	b.terminated = true
}

// emit appends an instruction to the current block and returns its
// result value (InvalidID for store).
func (b *obuilder) emit(inst Inst, resultType types.TypeID) ValueID {
	if b.terminated {
		// dead code after a terminator lands in a fresh unreachable block
		nb := b.newBlock()
		b.switchTo(nb)
		b.deadBlock = true
	}
	if inst.Kind == InstStore {
		inst.Result = InvalidID
		id := b.mod.AddInst(inst)
		b.mod.Blocks[b.cur].Insts = append(b.mod.Blocks[b.cur].Insts, id)
		return InvalidID
	}
	id := InstID(len(b.mod.Insts))
	res := b.mod.AddValue(Value{Type: resultType, Eff: inst.Eff, DefA: id, DefB: InvalidID})
	inst.Result = res
	b.mod.AddInst(inst)
	b.mod.Blocks[b.cur].Insts = append(b.mod.Blocks[b.cur].Insts, id)
	return res
}

func (b *obuilder) constInt(text string, t types.TypeID) ValueID {
	return b.emit(Inst{Kind: InstConstInt, Eff: EffPure, Text: text}, t)
}

func (b *obuilder) addBlockParam(bid BlockID, t types.TypeID) ValueID {
	blk := &b.mod.Blocks[bid]
	v := b.mod.AddValue(Value{Type: t, Eff: EffPure, DefA: bid, DefB: uint32(len(blk.Params))})
	blk.Params = append(blk.Params, v)
	return v
}

func (b *obuilder) lowerFunc(f *sir.Func) {
	fn := Function{Name: f.Name, RetTy: f.Ret, Entry: InvalidID}
	b.fnID = b.mod.AddFunc(fn)
	b.fn = &b.mod.Funcs[b.fnID]
	b.slots = make(map[sema.SymbolID]ValueID)
	b.fnNameSym = make(map[sema.SymbolID]string)
	b.loops = nil

	for i := range b.sm.Funcs {
		sf := &b.sm.Funcs[i]
		if sf.Sym != sema.InvalidSymbol {
			b.fnNameSym[sf.Sym] = sf.Name
		}
	}

	entry := b.newBlock()
	b.fn.Entry = entry
	b.switchTo(entry)

	// parameters arrive as entry block params and spill into slots
	for i := uint32(0); i < f.ParamCount; i++ {
		p := b.sm.Params[f.ParamBegin+i]
		pv := b.addBlockParam(entry, p.Type)
		if p.Sym == sema.InvalidSymbol {
			continue
		}
		slot := b.emit(Inst{Kind: InstAllocaLocal, Eff: EffPure, SlotType: p.Type}, p.Type)
		b.emit(Inst{Kind: InstStore, Eff: EffMayWriteMem, A: slot, B: pv}, types.InvalidType)
		b.slots[p.Sym] = slot
	}

	if f.Entry != sir.InvalidBlock {
		b.lowerSIRBlock(f.Entry)
	}

	if !b.terminated {
		b.terminate(Terminator{Kind: TermRet})
	}

	// every block needs a terminator; empty tails fall through to return
	for _, bid := range b.fn.Blocks {
		blk := &b.mod.Blocks[bid]
		if !blk.HasTerm {
			blk.Term = Terminator{Kind: TermRet}
			blk.HasTerm = true
		}
	}

	// unreachable blocks keep no real edges: a branch from dead code
	// would reach phi-carrying headers without arguments
	b.pruneUnreachableEdges()
}

func (b *obuilder) pruneUnreachableEdges() {
	reachable := make(map[BlockID]bool, len(b.fn.Blocks))
	var visit func(BlockID)
	visit = func(bid BlockID) {
		if reachable[bid] {
			return
		}
		reachable[bid] = true
		blk := &b.mod.Blocks[bid]
		if blk.HasTerm {
			for _, s := range blk.Term.Successors() {
				visit(s)
			}
		}
	}
	visit(b.fn.Entry)

	for _, bid := range b.fn.Blocks {
		if reachable[bid] {
			continue
		}
		blk := &b.mod.Blocks[bid]
		if blk.Term.Kind != TermRet {
			blk.Term = Terminator{Kind: TermRet}
		}
	}
}

func (b *obuilder) lowerSIRBlock(bid sir.BlockID) {
	blk := &b.sm.Blocks[bid]
	for i := uint32(0); i < blk.StmtCount; i++ {
		b.lowerStmt(blk.StmtBegin + i)
	}
}

func (b *obuilder) lowerStmt(sid sir.StmtID) {
	s := &b.sm.Stmts[sid]

	switch s.Kind {
	case sir.StmtExpr:
		b.evalValue(s.Expr)

	case sir.StmtVarDecl:
		b.lowerVarDecl(s)

	case sir.StmtIf:
		cond := b.evalValue(s.Expr)
		thenB := b.newBlock()
		elseB := InvalidID
		join := b.newBlock()
		if s.B != sir.InvalidBlock {
			elseB = b.newBlock()
		} else {
			elseB = join
		}
		b.terminate(Terminator{Kind: TermCondBr, Cond: cond, Then: thenB, Else: elseB})

		b.switchTo(thenB)
		b.lowerSIRBlock(s.A)
		b.terminate(Terminator{Kind: TermBr, Target: join})

		if s.B != sir.InvalidBlock {
			b.switchTo(elseB)
			b.lowerSIRBlock(s.B)
			b.terminate(Terminator{Kind: TermBr, Target: join})
		}
		b.switchTo(join)

	case sir.StmtWhile:
		header := b.newBlock()
		body := b.newBlock()
		exit := b.newBlock()

		b.terminate(Terminator{Kind: TermBr, Target: header})
		b.switchTo(header)
		cond := b.evalValue(s.Expr)
		b.terminate(Terminator{Kind: TermCondBr, Cond: cond, Then: body, Else: exit})

		b.loops = append(b.loops, loopFrame{header: header, exit: exit, resultSlot: InvalidID})
		b.switchTo(body)
		b.lowerSIRBlock(s.A)
		b.terminate(Terminator{Kind: TermBr, Target: header})
		b.loops = b.loops[:len(b.loops)-1]

		b.switchTo(exit)

	case sir.StmtDoScope:
		b.lowerSIRBlock(s.A)

	case sir.StmtDoWhile:
		body := b.newBlock()
		exit := b.newBlock()

		b.terminate(Terminator{Kind: TermBr, Target: body})
		b.loops = append(b.loops, loopFrame{header: body, exit: exit, resultSlot: InvalidID})
		b.switchTo(body)
		b.lowerSIRBlock(s.A)
		cond := b.evalValue(s.Expr)
		b.terminate(Terminator{Kind: TermCondBr, Cond: cond, Then: body, Else: exit})
		b.loops = b.loops[:len(b.loops)-1]

		b.switchTo(exit)

	case sir.StmtReturn:
		if s.Expr != sir.InvalidValue {
			v := b.evalValue(s.Expr)
			b.terminate(Terminator{Kind: TermRet, HasValue: v != InvalidID, Value: v})
		} else {
			b.terminate(Terminator{Kind: TermRet})
		}

	case sir.StmtBreak:
		if len(b.loops) == 0 {
			return
		}
		frame := b.loops[len(b.loops)-1]
		if s.Expr != sir.InvalidValue && frame.resultSlot != InvalidID {
			v := b.evalValue(s.Expr)
			if v != InvalidID {
				b.emit(Inst{Kind: InstStore, Eff: EffMayWriteMem,
					A: frame.resultSlot, B: v}, types.InvalidType)
			}
		}
		b.terminate(Terminator{Kind: TermBr, Target: frame.exit})

	case sir.StmtContinue:
		if len(b.loops) == 0 {
			return
		}
		b.terminate(Terminator{Kind: TermBr, Target: b.loops[len(b.loops)-1].header})

	case sir.StmtSwitch:
		b.lowerSwitch(s)
	}
}

func (b *obuilder) lowerVarDecl(s *sir.Stmt) {
	if s.Sym == sema.InvalidSymbol {
		// discard binding: evaluate the initializer for effect only
		if s.Init != sir.InvalidValue {
			b.evalValue(s.Init)
		}
		return
	}

	declared := s.DeclaredType
	if declared == types.InvalidType {
		declared = b.pool.ErrorType()
	}
	slot := b.emit(Inst{Kind: InstAllocaLocal, Eff: EffPure, SlotType: declared}, declared)
	b.slots[s.Sym] = slot

	if s.Init == sir.InvalidValue {
		return
	}

	init := &b.sm.Values[s.Init]
	if init.Kind == sir.ValArrayLit {
		// element-wise stores through the slot; the slot is
		// address-taken via the indexes and stays out of mem2reg
		b.storeArrayLit(slot, init)
		return
	}

	v := b.evalValue(s.Init)
	if v != InvalidID {
		b.emit(Inst{Kind: InstStore, Eff: EffMayWriteMem, A: slot, B: v}, types.InvalidType)
	}
}

func (b *obuilder) storeArrayLit(slot ValueID, lit *sir.Value) {
	usize := b.pool.BuiltinType(types.BuiltinUSize)
	for i := uint32(0); i < lit.ArgCount; i++ {
		a := b.sm.Args[lit.ArgBegin+i]
		ev := b.evalValue(a.Value)
		if ev == InvalidID {
			continue
		}
		idx := b.constInt(uitoa(i), usize)
		elemT := types.InvalidType
		if b.sm.ValidValue(a.Value) {
			elemT = b.sm.Values[a.Value].Type
		}
		addr := b.emit(Inst{Kind: InstIndex, Eff: EffPure, A: slot, B: idx}, elemT)
		b.emit(Inst{Kind: InstStore, Eff: EffMayWriteMem, A: addr, B: ev}, types.InvalidType)
	}
}

func uitoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

func (b *obuilder) lowerSwitch(s *sir.Stmt) {
	subject := b.evalValue(s.Expr)
	exit := b.newBlock()

	subjT := types.InvalidType
	if b.sm.ValidValue(s.Expr) {
		subjT = b.sm.Values[s.Expr].Type
	}

	for i := uint32(0); i < s.CaseCount; i++ {
		caseBlk := b.sm.CaseBlocks[s.CaseBegin+i]
		pat := b.sm.CasePats[s.CaseBegin+i]

		body := b.newBlock()

		isDefault := pat == "" && i == s.CaseCount-1 && s.HasDefault
		// a default case takes the fallthrough edge unconditionally
		if pat == "" || isDefault {
			b.terminate(Terminator{Kind: TermBr, Target: body})
			b.switchTo(body)
			b.lowerSIRBlock(caseBlk)
			b.terminate(Terminator{Kind: TermBr, Target: exit})
			b.switchTo(b.newBlock())
			b.terminate(Terminator{Kind: TermBr, Target: exit})
			break
		}

		next := b.newBlock()
		patV := b.constInt(pat, subjT)
		cmp := b.emit(Inst{Kind: InstBinOp, Eff: EffPure, Bin: OpEq,
			A: subject, B: patV}, b.pool.Bool())
		b.terminate(Terminator{Kind: TermCondBr, Cond: cmp, Then: body, Else: next})

		b.switchTo(body)
		b.lowerSIRBlock(caseBlk)
		b.terminate(Terminator{Kind: TermBr, Target: exit})

		b.switchTo(next)
	}

	b.terminate(Terminator{Kind: TermBr, Target: exit})
	b.switchTo(exit)
}

func tokenToBinOp(op syntax.TokenKind) (BinOp, bool) {
	switch op {
	case syntax.Plus, syntax.PlusAssign:
		return OpAdd, true
	case syntax.Minus, syntax.MinusAssign:
		return OpSub, true
	case syntax.Star, syntax.StarAssign:
		return OpMul, true
	case syntax.Slash, syntax.SlashAssign:
		return OpDiv, true
	case syntax.Percent, syntax.PercentAssign:
		return OpRem, true
	case syntax.Lt:
		return OpLt, true
	case syntax.LtEq:
		return OpLe, true
	case syntax.Gt:
		return OpGt, true
	case syntax.GtEq:
		return OpGe, true
	case syntax.EqEq:
		return OpEq, true
	case syntax.BangEq:
		return OpNe, true
	case syntax.AmpAmp, syntax.KwAnd:
		return OpAnd, true
	case syntax.PipePipe, syntax.KwOr:
		return OpOr, true
	case syntax.Caret, syntax.KwXor:
		return OpXor, true
	}
	return 0, false
}

func binOpEffect(op BinOp) Effect {
	if op == OpDiv || op == OpRem {
		return EffMayTrap
	}
	return EffPure
}

// evalPlaceAddr produces the address value of a place expression.
func (b *obuilder) evalPlaceAddr(vid sir.ValueID) ValueID {
	if !b.sm.ValidValue(vid) {
		return InvalidID
	}
	v := &b.sm.Values[vid]

	switch v.Kind {
	case sir.ValLocal, sir.ValGlobal:
		return b.slotFor(v.Sym, v.Type)

	case sir.ValIndex:
		base := b.basePlaceValue(v.A)
		idx := b.evalValue(v.B)
		return b.emit(Inst{Kind: InstIndex, Eff: EffPure, A: base, B: idx}, v.Type)

	case sir.ValField:
		base := b.basePlaceValue(v.A)
		return b.emit(Inst{Kind: InstField, Eff: EffPure, A: base, Text: v.Text}, v.Type)

	case sir.ValUnary:
		if v.Op == syntax.Star {
			return b.evalValue(v.A)
		}
	}
	return b.evalValue(vid)
}

// basePlaceValue resolves the base of an index/field access: a local of
// borrow type loads its slot (the borrow carries the address); any other
// place contributes its own address.
func (b *obuilder) basePlaceValue(vid sir.ValueID) ValueID {
	if !b.sm.ValidValue(vid) {
		return InvalidID
	}
	v := &b.sm.Values[vid]
	if v.Kind == sir.ValLocal || v.Kind == sir.ValGlobal {
		if b.pool.Valid(v.Type) && b.pool.Get(v.Type).Kind == types.KindBorrow {
			slot := b.slotFor(v.Sym, v.Type)
			return b.emit(Inst{Kind: InstLoad, Eff: EffMayReadMem, A: slot}, v.Type)
		}
		return b.slotFor(v.Sym, v.Type)
	}
	return b.evalPlaceAddr(vid)
}

// slotFor returns (creating on first use) the stack slot of a symbol.
// Globals get a per-function shadow slot; the backend rebinds them to
// real static storage.
func (b *obuilder) slotFor(sym sema.SymbolID, t types.TypeID) ValueID {
	if sym == sema.InvalidSymbol {
		return InvalidID
	}
	if slot, ok := b.slots[sym]; ok {
		return slot
	}
	slot := b.emit(Inst{Kind: InstAllocaLocal, Eff: EffPure, SlotType: t}, t)
	b.slots[sym] = slot
	return slot
}

// evalValue lowers a SIR value to an OIR value id.
func (b *obuilder) evalValue(vid sir.ValueID) ValueID {
	if !b.sm.ValidValue(vid) {
		return InvalidID
	}
	v := &b.sm.Values[vid]

	switch v.Kind {
	case sir.ValIntLit, sir.ValFloatLit, sir.ValCharLit, sir.ValStringLit:
		return b.constInt(v.Text, v.Type)

	case sir.ValBoolLit:
		return b.emit(Inst{Kind: InstConstBool, Eff: EffPure, BoolVal: v.Text == "true"}, v.Type)

	case sir.ValNullLit:
		return b.emit(Inst{Kind: InstConstNull, Eff: EffPure}, v.Type)

	case sir.ValLocal, sir.ValGlobal:
		if name, isFn := b.fnNameSym[v.Sym]; isFn {
			// function value: a symbolic constant the backend resolves
			return b.constInt(name, v.Type)
		}
		slot := b.slotFor(v.Sym, v.Type)
		if slot == InvalidID {
			return InvalidID
		}
		return b.emit(Inst{Kind: InstLoad, Eff: EffMayReadMem, A: slot}, v.Type)

	case sir.ValArrayLit:
		elemT := v.Type
		slot := b.emit(Inst{Kind: InstAllocaLocal, Eff: EffPure, SlotType: elemT}, elemT)
		b.storeArrayLit(slot, v)
		return slot

	case sir.ValUnary:
		if v.Op == syntax.Star {
			addr := b.evalValue(v.A)
			return b.emit(Inst{Kind: InstLoad, Eff: EffMayReadMem, A: addr}, v.Type)
		}
		if v.Op == syntax.Question {
			src := b.evalValue(v.A)
			return b.emit(Inst{Kind: InstCast, Eff: EffMayTrap, CastK: CastAsB,
				CastTo: v.Type, A: src}, v.Type)
		}
		src := b.evalValue(v.A)
		un := OpPlus
		switch v.Op {
		case syntax.Minus:
			un = OpNeg
		case syntax.Bang, syntax.KwNot:
			un = OpNot
		}
		return b.emit(Inst{Kind: InstUnary, Eff: EffPure, Un: un, A: src}, v.Type)

	case sir.ValPostfixInc:
		addr := b.evalPlaceAddr(v.A)
		old := b.emit(Inst{Kind: InstLoad, Eff: EffMayReadMem, A: addr}, v.Type)
		one := b.constInt("1", v.Type)
		sum := b.emit(Inst{Kind: InstBinOp, Eff: EffPure, Bin: OpAdd, A: old, B: one}, v.Type)
		b.emit(Inst{Kind: InstStore, Eff: EffMayWriteMem, A: addr, B: sum}, types.InvalidType)
		return old

	case sir.ValBinary:
		if v.Op == syntax.LessLess {
			return b.lowerPipe(v)
		}
		op, ok := tokenToBinOp(v.Op)
		if !ok {
			// ranges and other non-value operators do not survive to OIR
			a := b.evalValue(v.A)
			_ = b.evalValue(v.B)
			return a
		}
		a := b.evalValue(v.A)
		c := b.evalValue(v.B)
		return b.emit(Inst{Kind: InstBinOp, Eff: binOpEffect(op), Bin: op, A: a, B: c}, v.Type)

	case sir.ValAssign:
		return b.lowerAssign(v)

	case sir.ValBorrow, sir.ValEscape:
		return b.evalPlaceAddr(v.A)

	case sir.ValCall:
		return b.lowerCall(v, InvalidID)

	case sir.ValIndex:
		addr := b.evalPlaceAddr(vid)
		return b.emit(Inst{Kind: InstLoad, Eff: EffMayReadMem, A: addr}, v.Type)

	case sir.ValField:
		addr := b.evalPlaceAddr(vid)
		return b.emit(Inst{Kind: InstLoad, Eff: EffMayReadMem, A: addr}, v.Type)

	case sir.ValIfExpr:
		return b.lowerIfExpr(v)

	case sir.ValBlockExpr:
		b.lowerSIRBlock(sir.BlockID(v.A))
		return b.emit(Inst{Kind: InstConstNull, Eff: EffPure}, v.Type)

	case sir.ValLoopExpr:
		return b.lowerLoopExpr(v)

	case sir.ValCast:
		src := b.evalValue(v.A)
		ck := CastAs
		eff := EffPure
		switch v.CastKind {
		case 1:
			ck = CastAsQ
		case 2:
			ck = CastAsB
			eff = EffMayTrap
		}
		return b.emit(Inst{Kind: InstCast, Eff: eff, CastK: ck, CastTo: v.CastTo, A: src}, v.Type)
	}

	return InvalidID
}

func (b *obuilder) lowerAssign(v *sir.Value) ValueID {
	addr := b.evalPlaceAddr(v.A)
	rhs := b.evalValue(v.B)
	if addr == InvalidID || rhs == InvalidID {
		return InvalidID
	}

	if op, isCompound := tokenToBinOp(v.Op); isCompound && v.Op != syntax.Assign {
		lhsT := types.InvalidType
		if b.sm.ValidValue(v.A) {
			lhsT = b.sm.Values[v.A].Type
		}
		old := b.emit(Inst{Kind: InstLoad, Eff: EffMayReadMem, A: addr}, lhsT)
		rhs = b.emit(Inst{Kind: InstBinOp, Eff: binOpEffect(op), Bin: op, A: old, B: rhs}, lhsT)
	}

	b.emit(Inst{Kind: InstStore, Eff: EffMayWriteMem, A: addr, B: rhs}, types.InvalidType)
	return InvalidID
}

func (b *obuilder) lowerCall(v *sir.Value, pipeValue ValueID) ValueID {
	callee := b.evalValue(v.A)

	var args []ValueID
	end := uint64(v.ArgBegin) + uint64(v.ArgCount)
	if end <= uint64(len(b.sm.Args)) {
		for i := uint32(0); i < v.ArgCount; i++ {
			a := b.sm.Args[v.ArgBegin+i]
			if a.Kind == sir.ArgNamedGroup {
				for j := uint32(0); j < a.ChildCount; j++ {
					args = append(args, b.lowerCallArg(b.sm.Args[a.ChildBegin+j], pipeValue))
				}
				continue
			}
			args = append(args, b.lowerCallArg(a, pipeValue))
		}
	}

	return b.emit(Inst{Kind: InstCall, Eff: EffCall, A: callee, Args: args}, v.Type)
}

func (b *obuilder) lowerCallArg(a sir.Arg, pipeValue ValueID) ValueID {
	if a.IsHole {
		return pipeValue
	}
	return b.evalValue(a.Value)
}

func (b *obuilder) lowerPipe(v *sir.Value) ValueID {
	lhs := b.evalValue(v.A)
	if !b.sm.ValidValue(v.B) || b.sm.Values[v.B].Kind != sir.ValCall {
		return lhs
	}
	call := b.sm.Values[v.B]
	return b.lowerCall(&call, lhs)
}

// lowerIfExpr lowers a value-producing conditional: both arms branch to
// a join block that carries the result as a block parameter.
func (b *obuilder) lowerIfExpr(v *sir.Value) ValueID {
	cond := b.evalValue(v.A)

	thenB := b.newBlock()
	elseB := b.newBlock()
	join := b.newBlock()

	producesValue := b.pool.Valid(v.Type) && !b.pool.IsUnit(v.Type) && v.C != sir.InvalidValue

	var joinParam ValueID = InvalidID
	if producesValue {
		joinParam = b.addBlockParam(join, v.Type)
	}

	b.terminate(Terminator{Kind: TermCondBr, Cond: cond, Then: thenB, Else: elseB})

	b.switchTo(thenB)
	tv := b.evalValue(v.B)
	if producesValue {
		b.terminate(Terminator{Kind: TermBr, Target: join, Args: []ValueID{tv}})
	} else {
		b.terminate(Terminator{Kind: TermBr, Target: join})
	}

	b.switchTo(elseB)
	var ev ValueID = InvalidID
	if v.C != sir.InvalidValue {
		ev = b.evalValue(v.C)
	}
	if producesValue {
		b.terminate(Terminator{Kind: TermBr, Target: join, Args: []ValueID{ev}})
	} else {
		b.terminate(Terminator{Kind: TermBr, Target: join})
	}

	b.switchTo(join)
	return joinParam
}

// lowerLoopExpr lowers loop (x in it) to a while-shaped form: an index
// slot, an element load, and a sentinel check deciding exit. Break
// values funnel through a result slot, which is seeded with null before
// the header, so a natural end yields null.
func (b *obuilder) lowerLoopExpr(v *sir.Value) ValueID {
	producesValue := b.pool.Valid(v.Type) && !b.pool.IsUnit(v.Type)

	var resultSlot ValueID = InvalidID
	if producesValue {
		resultSlot = b.emit(Inst{Kind: InstAllocaLocal, Eff: EffPure, SlotType: v.Type}, v.Type)
		null := b.emit(Inst{Kind: InstConstNull, Eff: EffPure}, v.Type)
		b.emit(Inst{Kind: InstStore, Eff: EffMayWriteMem, A: resultSlot, B: null}, types.InvalidType)
	}

	usize := b.pool.BuiltinType(types.BuiltinUSize)

	hasIter := v.A != sir.InvalidValue && b.sm.ValidValue(v.A)
	var iterV, idxSlot ValueID
	var elemT types.TypeID = types.InvalidType
	if hasIter {
		iterV = b.basePlaceValue(v.A)
		it := b.sm.Values[v.A].Type
		if b.pool.Valid(it) {
			tt := b.pool.Get(it)
			if tt.Kind == types.KindBorrow {
				tt = b.pool.Get(tt.Elem)
			}
			if tt.Kind == types.KindArray {
				elemT = tt.Elem
			}
		}
		idxSlot = b.emit(Inst{Kind: InstAllocaLocal, Eff: EffPure, SlotType: usize}, usize)
		zero := b.constInt("0", usize)
		b.emit(Inst{Kind: InstStore, Eff: EffMayWriteMem, A: idxSlot, B: zero}, types.InvalidType)
	}

	header := b.newBlock()
	body := b.newBlock()
	exit := b.newBlock()

	b.terminate(Terminator{Kind: TermBr, Target: header})

	b.switchTo(header)
	if hasIter {
		idx := b.emit(Inst{Kind: InstLoad, Eff: EffMayReadMem, A: idxSlot}, usize)
		elemAddr := b.emit(Inst{Kind: InstIndex, Eff: EffPure, A: iterV, B: idx}, elemT)
		elem := b.emit(Inst{Kind: InstLoad, Eff: EffMayReadMem, A: elemAddr}, elemT)
		sentinel := b.emit(Inst{Kind: InstConstNull, Eff: EffPure}, elemT)
		atEnd := b.emit(Inst{Kind: InstBinOp, Eff: EffPure, Bin: OpEq, A: elem, B: sentinel}, b.pool.Bool())
		b.terminate(Terminator{Kind: TermCondBr, Cond: atEnd, Then: exit, Else: body})

		b.loops = append(b.loops, loopFrame{header: header, exit: exit, resultSlot: resultSlot})
		b.switchTo(body)
		if v.Sym != sema.InvalidSymbol {
			varSlot := b.slotFor(v.Sym, elemT)
			b.emit(Inst{Kind: InstStore, Eff: EffMayWriteMem, A: varSlot, B: elem}, types.InvalidType)
		}
		b.lowerSIRBlock(sir.BlockID(v.B))
		// advance the index
		idx2 := b.emit(Inst{Kind: InstLoad, Eff: EffMayReadMem, A: idxSlot}, usize)
		one := b.constInt("1", usize)
		next := b.emit(Inst{Kind: InstBinOp, Eff: EffPure, Bin: OpAdd, A: idx2, B: one}, usize)
		b.emit(Inst{Kind: InstStore, Eff: EffMayWriteMem, A: idxSlot, B: next}, types.InvalidType)
		b.terminate(Terminator{Kind: TermBr, Target: header})
		b.loops = b.loops[:len(b.loops)-1]
	} else {
		// headerless loop spins until an explicit break
		b.terminate(Terminator{Kind: TermBr, Target: body})
		b.loops = append(b.loops, loopFrame{header: header, exit: exit, resultSlot: resultSlot})
		b.switchTo(body)
		b.lowerSIRBlock(sir.BlockID(v.B))
		b.terminate(Terminator{Kind: TermBr, Target: header})
		b.loops = b.loops[:len(b.loops)-1]
	}

	b.switchTo(exit)
	if producesValue {
		return b.emit(Inst{Kind: InstLoad, Eff: EffMayReadMem, A: resultSlot}, v.Type)
	}
	return InvalidID
}
