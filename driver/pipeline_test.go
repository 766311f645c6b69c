package driver

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brant-lang/brant/diag"
	"github.com/brant-lang/brant/oir"
	"github.com/brant-lang/brant/text"
)

func runSrc(t *testing.T, src string, opt Options) (*Artifacts, *diag.Bag) {
	t.Helper()
	var sm text.SourceManager
	id := sm.Add("main.bt", src)
	var bag diag.Bag
	art := Run(&sm, id, &bag, opt)
	return art, &bag
}

func countInstKind(m *oir.Module, k oir.InstKind) int {
	n := 0
	for bi := range m.Blocks {
		for _, iid := range m.Blocks[bi].Insts {
			if m.Insts[iid].Kind == k {
				n++
			}
		}
	}
	return n
}

// S1: trivial function reaches a verified OIR module.
func TestPipeline_S1_SimpleMain(t *testing.T) {
	art, bag := runSrc(t, "fn main() -> i32 { return 0; }", Options{})
	require.True(t, art.OK(bag), "stage=%s diags=%v", art.Stage, bag.Diags())

	require.Len(t, art.OIR.Funcs, 1)
	f := art.OIR.Funcs[0]
	entry := art.OIR.Blocks[f.Entry]
	require.Equal(t, oir.TermRet, entry.Term.Kind)
	require.True(t, entry.Term.HasValue)
	require.Empty(t, art.OIRVerifyErrors)

	found := false
	for _, iid := range entry.Insts {
		inst := art.OIR.Insts[iid]
		if inst.Kind == oir.InstConstInt && inst.Text == "0" {
			found = true
		}
	}
	require.True(t, found)
}

// S2: array writes keep their Index/Store/Load shape and the slot
// survives mem2reg.
func TestPipeline_S2_ArraySlotSurvives(t *testing.T) {
	art, bag := runSrc(t, `
fn main() -> i32 {
  let mut x: i32[3] = [1, 2, 3];
  x[1] = 9;
  return x[1];
}
`, Options{})
	require.True(t, art.OK(bag), "stage=%s diags=%v", art.Stage, bag.Diags())

	require.GreaterOrEqual(t, countInstKind(art.OIR, oir.InstIndex), 1)
	require.GreaterOrEqual(t, countInstKind(art.OIR, oir.InstStore), 1)
	require.GreaterOrEqual(t, countInstKind(art.OIR, oir.InstLoad), 1)
	require.GreaterOrEqual(t, countInstKind(art.OIR, oir.InstAllocaLocal), 1)
}

// S3: calls survive with the callee function-value and pass the verifier.
func TestPipeline_S3_Call(t *testing.T) {
	art, bag := runSrc(t, `
fn add(a: i32, b: i32) -> i32 { return a + b; }
fn main() -> i32 { return add(a: 1i32, b: 2i32); }
`, Options{})
	require.True(t, art.OK(bag), "stage=%s diags=%v", art.Stage, bag.Diags())
	require.GreaterOrEqual(t, countInstKind(art.OIR, oir.InstCall), 1)
	require.Empty(t, art.OIRVerifyErrors)
}

// S4: a dead pure addition is folded away; a live one folds to "5".
func TestPipeline_S4_ConstFoldDCE(t *testing.T) {
	art, bag := runSrc(t, "fn main() -> i32 { let _: i32 = 2 + 3; return 0; }", Options{})
	require.True(t, art.OK(bag), "stage=%s diags=%v", art.Stage, bag.Diags())
	require.Zero(t, countInstKind(art.OIR, oir.InstBinOp))

	art, bag = runSrc(t, "fn main() -> i32 { return 2 + 3; }", Options{})
	require.True(t, art.OK(bag))
	found := false
	for i := range art.OIR.Insts {
		if art.OIR.Insts[i].Kind == oir.InstConstInt && art.OIR.Insts[i].Text == "5" {
			found = true
		}
	}
	require.True(t, found)
}

// S5: a non-static escape aborts before OIR.
func TestPipeline_S5_EscapeNonStatic(t *testing.T) {
	art, bag := runSrc(t, "fn f() -> &&i32 { let x: i32 = 1; return &&x; }", Options{})
	require.False(t, art.OK(bag))
	require.True(t, bag.HasCode(diag.CodeEscapeNonStatic))
	require.Nil(t, art.OIR)
}

// S6: an out-of-range suffixed literal reports with the value echoed.
func TestPipeline_S6_LiteralOutOfRange(t *testing.T) {
	art, bag := runSrc(t, "fn main() -> i32 { return 2147483648i32; }", Options{})
	require.False(t, art.OK(bag))
	require.True(t, bag.HasCode(diag.CodeIntLitOutOfRange))

	for _, d := range bag.Diags() {
		if d.Code == diag.CodeIntLitOutOfRange {
			require.Equal(t, "2147483648", d.Args[0])
		}
	}
	require.Nil(t, art.SIR)
}

func TestPipeline_LexFatalAborts(t *testing.T) {
	art, bag := runSrc(t, "fn main() -> i32 { return \xff; }", Options{})
	require.Equal(t, StageLex, art.Stage)
	require.True(t, bag.HasFatal())
	require.Nil(t, art.Arena)
}

func TestPipeline_SpanInvariantAcrossIRs(t *testing.T) {
	src := `
fn add(a: i32, b: i32) -> i32 { return a + b; }
fn main() -> i32 { return add(a: 1i32, b: 2i32); }
`
	art, bag := runSrc(t, src, Options{})
	require.True(t, art.OK(bag))

	srcLen := uint32(len(src))
	for _, e := range art.Arena.Exprs() {
		require.LessOrEqual(t, e.Span.Lo, e.Span.Hi)
		require.LessOrEqual(t, e.Span.Hi, srcLen)
	}
	for _, v := range art.SIR.Values {
		require.LessOrEqual(t, v.Span.Lo, v.Span.Hi)
		require.LessOrEqual(t, v.Span.Hi, srcLen)
	}
}

func TestPipeline_Dumps(t *testing.T) {
	var buf bytes.Buffer
	var sm text.SourceManager
	id := sm.Add("d.bt", "fn main() -> i32 { return 1 + 2; }")
	var bag diag.Bag
	art := Run(&sm, id, &bag, Options{
		Internal:   InternalFlags{TokenDump: true, ASTDump: true, SIRDump: true, OIRDump: true},
		DumpWriter: &buf,
	})
	require.True(t, art.OK(&bag))

	out := buf.String()
	require.Contains(t, out, "fn main")
	require.Contains(t, out, "oir fn main")
	require.Contains(t, out, "ret has_value=true")
}

func TestPipeline_WhileLoopVerifies(t *testing.T) {
	art, bag := runSrc(t, `
fn main() -> i32 {
  let mut i: i32 = 0;
  let mut sum: i32 = 0;
  while (i < 10i32) {
    sum = sum + i;
    i = i + 1;
  }
  return sum;
}
`, Options{})
	require.True(t, art.OK(bag), "stage=%s diags=%v", art.Stage, bag.Diags())
	require.GreaterOrEqual(t, art.OIR.OptStats.Mem2RegPromotedSlots, uint32(1))
}

func TestPipeline_MutErrorGates(t *testing.T) {
	art, bag := runSrc(t, "fn f() -> unit { let x: i32 = 1; x = 2; return; }", Options{})
	require.False(t, art.OK(bag))
	require.True(t, bag.HasCode(diag.CodeWriteToImmutable))
	require.Nil(t, art.OIR)
}
