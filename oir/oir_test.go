package oir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brant-lang/brant/ast"
	"github.com/brant-lang/brant/diag"
	"github.com/brant-lang/brant/lex"
	"github.com/brant-lang/brant/parse"
	"github.com/brant-lang/brant/passes"
	"github.com/brant-lang/brant/sir"
	"github.com/brant-lang/brant/tyck"
	"github.com/brant-lang/brant/types"
)

// lowerSrc drives the pipeline through OIR lowering (without passes).
func lowerSrc(t *testing.T, src string) (*Module, *types.Pool) {
	t.Helper()
	var bag diag.Bag
	toks := lex.New(src, 0, &bag).LexAll()
	arena := &ast.Arena{}
	pool := types.NewPool()
	root := parse.New(toks, arena, pool, &bag, 0).ParseProgram()

	pres := passes.Run(arena, root, &bag, passes.Options{})
	tres := tyck.New(arena, pool, pres.Table, pres.NameResolve, &bag, tyck.Options{}).CheckProgram(root)
	require.False(t, bag.HasError(), "front-end diags: %v", bag.Diags())

	sm := sir.Build(arena, root, pool, pres.Table, pres.NameResolve, &tres, sir.BuildOptions{})
	sir.Canonicalize(sm, pool)

	res := Build(sm, pool)
	require.True(t, res.GatePassed, "gate errors: %v", res.GateErrors)
	return res.Mod, pool
}

func instKinds(m *Module) map[InstKind]int {
	out := make(map[InstKind]int)
	for bi := range m.Blocks {
		for _, iid := range m.Blocks[bi].Insts {
			out[m.Insts[iid].Kind]++
		}
	}
	return out
}

func TestLower_SimpleReturn(t *testing.T) {
	m, _ := lowerSrc(t, "fn main() -> i32 { return 0; }")

	require.Len(t, m.Funcs, 1)
	f := m.Funcs[0]
	require.True(t, m.ValidBlock(f.Entry))

	entry := m.Blocks[f.Entry]
	require.True(t, entry.HasTerm)
	require.Equal(t, TermRet, entry.Term.Kind)
	require.True(t, entry.Term.HasValue)

	require.Len(t, entry.Insts, 1)
	ci := m.Insts[entry.Insts[0]]
	require.Equal(t, InstConstInt, ci.Kind)
	require.Equal(t, "0", ci.Text)

	require.Empty(t, Verify(m))
}

func TestLower_ArrayIndexShapes(t *testing.T) {
	m, _ := lowerSrc(t, `
fn main() -> i32 {
  let mut x: i32[3] = [1, 2, 3];
  x[1] = 9;
  return x[1];
}
`)
	kinds := instKinds(m)
	require.GreaterOrEqual(t, kinds[InstIndex], 1)
	require.GreaterOrEqual(t, kinds[InstStore], 1)
	require.GreaterOrEqual(t, kinds[InstLoad], 1)
	require.Empty(t, Verify(m))
}

func TestLower_CallWithFunctionValue(t *testing.T) {
	m, _ := lowerSrc(t, `
fn add(a: i32, b: i32) -> i32 { return a + b; }
fn main() -> i32 { return add(a: 1i32, b: 2i32); }
`)
	foundCall := false
	for bi := range m.Blocks {
		for _, iid := range m.Blocks[bi].Insts {
			inst := m.Insts[iid]
			if inst.Kind != InstCall {
				continue
			}
			foundCall = true
			require.Len(t, inst.Args, 2)
			// the callee is the add function-value constant
			calleeKind, ok := defKind(m, inst.A)
			require.True(t, ok)
			require.Equal(t, InstConstInt, calleeKind)
		}
	}
	require.True(t, foundCall)
	require.Empty(t, Verify(m))
}

func TestCFG_DominatorsAndFrontier(t *testing.T) {
	m, pool := lowerSrc(t, `
fn f(c: bool) -> i32 {
  let mut x: i32 = 1;
  if (c) { x = 2; } else { x = 3; }
  return x;
}
`)
	_ = pool
	f := &m.Funcs[0]
	cfg := BuildCFG(m, f)

	require.True(t, cfg.Reachable(f.Entry))
	require.Equal(t, f.Entry, cfg.IDom[f.Entry])

	// the join block has two predecessors; its idom is the entry
	var join BlockID
	found := false
	for _, bid := range cfg.RPO {
		if len(cfg.Preds[bid]) == 2 {
			join = bid
			found = true
		}
	}
	require.True(t, found)
	require.True(t, cfg.Dominates(f.Entry, join))

	// both branch blocks carry the join in their dominance frontier
	inFrontier := 0
	for _, bid := range cfg.RPO {
		if contains(cfg.Frontier[bid], join) {
			inFrontier++
		}
	}
	require.GreaterOrEqual(t, inFrontier, 2)
}

func TestPasses_Mem2RegPromotesScalar(t *testing.T) {
	m, pool := lowerSrc(t, `
fn f(c: bool) -> i32 {
  let mut x: i32 = 1;
  if (c) { x = 2; } else { x = 3; }
  return x;
}
`)
	RunPasses(m, pool)
	require.Empty(t, Verify(m))

	require.GreaterOrEqual(t, m.OptStats.Mem2RegPromotedSlots, uint32(1))
	require.GreaterOrEqual(t, m.OptStats.Mem2RegPhiParams, uint32(1))

	// property: no Load/Store of a promoted slot remains; with every
	// local scalar promoted, x's slot is gone entirely
	kinds := instKinds(m)
	require.Zero(t, kinds[InstAllocaLocal])
	require.Zero(t, kinds[InstLoad])
	require.Zero(t, kinds[InstStore])
}

func TestPasses_AddressTakenSlotSurvives(t *testing.T) {
	m, pool := lowerSrc(t, `
fn main() -> i32 {
  let mut x: i32[3] = [1, 2, 3];
  x[1] = 9;
  return x[1];
}
`)
	RunPasses(m, pool)
	require.Empty(t, Verify(m))

	// the array slot is address-taken via Index and must survive
	kinds := instKinds(m)
	require.GreaterOrEqual(t, kinds[InstAllocaLocal], 1)
	require.GreaterOrEqual(t, kinds[InstIndex], 1)
}

func TestPasses_ConstFoldAndDCE(t *testing.T) {
	m, pool := lowerSrc(t, `
fn main() -> i32 { let _: i32 = 2 + 3; return 0; }
`)
	RunPasses(m, pool)
	require.Empty(t, Verify(m))

	// the discarded 2+3 is folded then removed
	kinds := instKinds(m)
	require.Zero(t, kinds[InstBinOp])
	require.GreaterOrEqual(t, m.OptStats.DeadInstsRemoved, uint32(1))
}

func TestPasses_FoldedLiveConstant(t *testing.T) {
	m, pool := lowerSrc(t, `
fn main() -> i32 { return 2 + 3; }
`)
	RunPasses(m, pool)
	require.Empty(t, Verify(m))

	// the live 2+3 folds to ConstInt "5" feeding the return
	f := m.Funcs[0]
	ret := m.Blocks[f.Entry].Term
	require.Equal(t, TermRet, ret.Kind)

	foundFive := false
	for bi := range m.Blocks {
		for _, iid := range m.Blocks[bi].Insts {
			inst := m.Insts[iid]
			if inst.Kind == InstConstInt && inst.Text == "5" {
				foundFive = true
			}
		}
	}
	require.True(t, foundFive)
	require.Zero(t, instKinds(m)[InstBinOp])
}

func TestPasses_FoldWrapsAroundResultType(t *testing.T) {
	m, pool := lowerSrc(t, `
fn main() -> i32 { let x: i32 = 2147483647i32; return x + 1; }
`)
	RunPasses(m, pool)
	require.Empty(t, Verify(m))

	// 2147483647 + 1 wraps to -2147483648 under i32 modular semantics
	foundWrapped := false
	for bi := range m.Blocks {
		for _, iid := range m.Blocks[bi].Insts {
			inst := m.Insts[iid]
			if inst.Kind == InstConstInt && inst.Text == "-2147483648" {
				foundWrapped = true
			}
		}
	}
	require.True(t, foundWrapped)
}

func TestPasses_EffectfulInstsKeepOrder(t *testing.T) {
	m, pool := lowerSrc(t, `
fn side(v: i32) -> i32 { return v; }
fn main() -> i32 {
  side(v: 1i32);
  side(v: 2i32);
  return 0;
}
`)
	RunPasses(m, pool)
	require.Empty(t, Verify(m))

	// both calls survive DCE and keep their relative order
	var callArgs []string
	for bi := range m.Blocks {
		for _, iid := range m.Blocks[bi].Insts {
			inst := m.Insts[iid]
			if inst.Kind != InstCall {
				continue
			}
			argKind, _ := defKind(m, inst.Args[0])
			require.Equal(t, InstConstInt, argKind)
			for j := range m.Insts {
				if m.Insts[j].Result == inst.Args[0] {
					callArgs = append(callArgs, m.Insts[j].Text)
				}
			}
		}
	}
	require.Equal(t, []string{"1i32", "2i32"}, callArgs)
}

func TestPasses_FixedPoint(t *testing.T) {
	m, pool := lowerSrc(t, `
fn f(c: bool) -> i32 {
  let mut x: i32 = 1;
  while (x < 10i32) { x = x + 1; }
  if (c) { x = 2 + 3; }
  return x;
}
`)
	RunPasses(m, pool)
	require.Empty(t, Verify(m))

	snapBlocks := deepCopyBlocks(m)
	snapInsts := append([]Inst(nil), m.Insts...)
	stats := m.OptStats

	RunPasses(m, pool)
	require.Empty(t, Verify(m))

	require.Equal(t, snapBlocks, deepCopyBlocks(m))
	require.Equal(t, snapInsts, m.Insts)
	// second run found no new promotions or folds
	require.Equal(t, stats.Mem2RegPromotedSlots, m.OptStats.Mem2RegPromotedSlots)
	require.Equal(t, stats.ConstFoldedInsts, m.OptStats.ConstFoldedInsts)
}

func deepCopyBlocks(m *Module) []Block {
	out := make([]Block, len(m.Blocks))
	for i, b := range m.Blocks {
		nb := b
		nb.Params = append([]ValueID(nil), b.Params...)
		nb.Insts = append([]InstID(nil), b.Insts...)
		nb.Term.Args = append([]ValueID(nil), b.Term.Args...)
		nb.Term.ThenArgs = append([]ValueID(nil), b.Term.ThenArgs...)
		nb.Term.ElseArgs = append([]ValueID(nil), b.Term.ElseArgs...)
		out[i] = nb
	}
	return out
}

func TestVerify_CatchesArityMismatch(t *testing.T) {
	m := &Module{}
	target := m.AddBlock(Block{HasTerm: true, Term: Terminator{Kind: TermRet}})
	pv := m.AddValue(Value{DefA: target, DefB: 0})
	m.Blocks[target].Params = append(m.Blocks[target].Params, pv)

	src := m.AddBlock(Block{HasTerm: true, Term: Terminator{Kind: TermBr, Target: target}})
	m.AddFunc(Function{Name: "bad", Entry: src, Blocks: []BlockID{src, target}})

	errs := Verify(m)
	require.NotEmpty(t, errs)
}

func TestVerify_CatchesMissingTerminator(t *testing.T) {
	m := &Module{}
	b := m.AddBlock(Block{})
	m.AddFunc(Function{Name: "f", Entry: b, Blocks: []BlockID{b}})
	require.NotEmpty(t, Verify(m))
}
