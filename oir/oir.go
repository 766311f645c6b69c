// Package oir is the optimization-oriented IR: basic blocks with
// explicit terminators and block parameters in place of phi nodes. The
// pass manager (critical-edge split, mem2reg, const-fold + DCE) and the
// structural verifier run here before backend handoff.
package oir

import (
	"github.com/brant-lang/brant/types"
)

// Ids into the module vectors.
type (
	FuncID  = uint32
	BlockID = uint32
	InstID  = uint32
	ValueID = uint32
)

// InvalidID is the shared sentinel.
const InvalidID uint32 = 0xFFFF_FFFF

// Effect is the OIR effect model. Anything non-Pure is ordered.
type Effect uint8

const (
	EffPure Effect = iota
	EffMayReadMem
	EffMayWriteMem
	EffMayTrap
	EffCall
)

func (e Effect) String() string {
	switch e {
	case EffPure:
		return "pure"
	case EffMayReadMem:
		return "may_read"
	case EffMayWriteMem:
		return "may_write"
	case EffMayTrap:
		return "may_trap"
	case EffCall:
		return "call"
	}
	return "unknown"
}

// Value carries a type, an effect, and its def site: an inst result has
// DefA = inst id; a block parameter has DefA = block id, DefB = index.
type Value struct {
	Type types.TypeID
	Eff  Effect

	DefA uint32
	DefB uint32
}

// BinOp enumerates binary operations.
type BinOp uint8

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
	OpAnd
	OpOr
	OpXor
	OpNullCoalesce
)

// UnOp enumerates unary operations.
type UnOp uint8

const (
	OpPlus UnOp = iota
	OpNeg
	OpNot
	OpBitNot
)

// CastKind mirrors the three source-level cast spellings.
type CastKind uint8

const (
	CastAs CastKind = iota
	CastAsQ
	CastAsB
)

// InstKind discriminates instructions.
type InstKind uint8

const (
	InstConstInt InstKind = iota
	InstConstBool
	InstConstNull
	InstUnary
	InstBinOp
	InstCast
	InstCall
	InstIndex
	InstField
	InstAllocaLocal
	InstLoad
	InstStore
)

func (k InstKind) String() string {
	switch k {
	case InstConstInt:
		return "const_int"
	case InstConstBool:
		return "const_bool"
	case InstConstNull:
		return "const_null"
	case InstUnary:
		return "unary"
	case InstBinOp:
		return "bin_op"
	case InstCast:
		return "cast"
	case InstCall:
		return "call"
	case InstIndex:
		return "index"
	case InstField:
		return "field"
	case InstAllocaLocal:
		return "alloca_local"
	case InstLoad:
		return "load"
	case InstStore:
		return "store"
	}
	return "unknown"
}

// Inst is one instruction. Operand slots are interpreted by Kind:
//
//	Unary:  A = src
//	BinOp:  A = lhs, B = rhs
//	Cast:   A = src, CastTo = target
//	Call:   A = callee, Args = arguments
//	Index:  A = base, B = index
//	Field:  A = base, Text = member
//	Load:   A = slot
//	Store:  A = slot, B = value (Result is the id sentinel)
type Inst struct {
	Kind   InstKind
	Eff    Effect
	Result ValueID // InvalidID when the inst produces no value

	Text    string // ConstInt payload and Field member
	BoolVal bool   // ConstBool payload

	Un     UnOp
	Bin    BinOp
	CastK  CastKind
	CastTo types.TypeID

	SlotType types.TypeID // AllocaLocal

	A ValueID
	B ValueID

	Args []ValueID // Call
}

// TermKind discriminates terminators.
type TermKind uint8

const (
	TermNone TermKind = iota
	TermBr
	TermCondBr
	TermRet
)

// Terminator ends a block. Br carries target args matching the target's
// params; CondBr carries both edges; Ret optionally carries a value.
type Terminator struct {
	Kind TermKind

	// Br
	Target BlockID
	Args   []ValueID

	// CondBr
	Cond     ValueID
	Then     BlockID
	ThenArgs []ValueID
	Else     BlockID
	ElseArgs []ValueID

	// Ret
	HasValue bool
	Value    ValueID
}

// Block is a parameter list, an ordered instruction list, and a
// terminator.
type Block struct {
	Params []ValueID
	Insts  []InstID

	Term    Terminator
	HasTerm bool
}

// Function owns an entry block and the block ids belonging to it.
type Function struct {
	Name  string
	RetTy types.TypeID

	Blocks []BlockID
	Entry  BlockID
}

// EscapeHandleKind / EscapeBoundaryKind mirror the SIR metadata at the
// OIR boundary.
type EscapeHandleKind uint8

const (
	HandleTrivial EscapeHandleKind = iota
	HandleStackSlot
	HandleCallerSlot
	HandleHeapBox
)

type EscapeBoundaryKind uint8

const (
	BoundaryNone EscapeBoundaryKind = iota
	BoundaryReturn
	BoundaryCallArg
	BoundaryAbi
	BoundaryFfi
)

// EscapeHandleHint is optimization metadata tracked through OIR; it is
// not a runtime object.
type EscapeHandleHint struct {
	Value       ValueID
	PointeeType types.TypeID

	Kind     EscapeHandleKind
	Boundary EscapeBoundaryKind

	FromStatic      bool
	HasDrop         bool
	AbiPackRequired bool
	FfiPackRequired bool
}

// OptStats accumulates pass counters.
type OptStats struct {
	CriticalEdgesSplit    uint32
	Mem2RegPromotedSlots  uint32
	Mem2RegPhiParams      uint32
	ConstFoldedInsts      uint32
	DeadInstsRemoved      uint32
	EscapePackElided      uint32
	EscapeBoundaryRewrites uint32
}

// Module is the OIR container.
type Module struct {
	Funcs  []Function
	Blocks []Block
	Insts  []Inst
	Values []Value

	EscapeHints []EscapeHandleHint
	OptStats    OptStats
}

func (m *Module) AddValue(v Value) ValueID {
	m.Values = append(m.Values, v)
	return ValueID(len(m.Values) - 1)
}

func (m *Module) AddInst(i Inst) InstID {
	m.Insts = append(m.Insts, i)
	return InstID(len(m.Insts) - 1)
}

func (m *Module) AddBlock(b Block) BlockID {
	m.Blocks = append(m.Blocks, b)
	return BlockID(len(m.Blocks) - 1)
}

func (m *Module) AddFunc(f Function) FuncID {
	m.Funcs = append(m.Funcs, f)
	return FuncID(len(m.Funcs) - 1)
}

// ValidValue reports whether the id indexes the value vector.
func (m *Module) ValidValue(id ValueID) bool {
	return id != InvalidID && int(id) < len(m.Values)
}

// ValidBlock reports whether the id indexes the block vector.
func (m *Module) ValidBlock(id BlockID) bool {
	return id != InvalidID && int(id) < len(m.Blocks)
}

// Successors returns the successor block ids of a terminator.
func (t *Terminator) Successors() []BlockID {
	switch t.Kind {
	case TermBr:
		return []BlockID{t.Target}
	case TermCondBr:
		return []BlockID{t.Then, t.Else}
	}
	return nil
}
