package oir

import "fmt"

// VerifyError is one structural OIR failure; any failure aborts the
// pipeline before backend handoff.
type VerifyError struct {
	Msg string
}

func (e VerifyError) Error() string { return e.Msg }

func verr(out *[]VerifyError, format string, args ...any) {
	*out = append(*out, VerifyError{Msg: fmt.Sprintf(format, args...)})
}

// Verify checks the module's structural invariants:
//
//   - every function has a valid entry block;
//   - every block has a terminator;
//   - every branch's argument count equals the target's parameter count;
//   - every value id referenced by an instruction is in range;
//   - every Store's slot operand is an AllocaLocal result, or an address
//     defined by an Index, Field or Load instruction.
func Verify(m *Module) []VerifyError {
	var errs []VerifyError

	for fi := range m.Funcs {
		f := &m.Funcs[fi]
		if f.Entry == InvalidID || !m.ValidBlock(f.Entry) {
			verr(&errs, "function has invalid entry: %s", f.Name)
		}
	}

	allocaResults := make(map[ValueID]bool)
	for i := range m.Insts {
		inst := &m.Insts[i]
		if inst.Kind == InstAllocaLocal && inst.Result != InvalidID {
			allocaResults[inst.Result] = true
		}
	}

	checkValue := func(ctx string, v ValueID) {
		if v == InvalidID {
			verr(&errs, "%s references the invalid value id", ctx)
			return
		}
		if !m.ValidValue(v) {
			verr(&errs, "%s references out-of-range value id %d", ctx, v)
		}
	}

	for bi := range m.Blocks {
		b := &m.Blocks[bi]

		if !b.HasTerm {
			verr(&errs, "block has no terminator: #%d", bi)
		}

		for _, iid := range b.Insts {
			if int(iid) >= len(m.Insts) {
				verr(&errs, "block #%d lists out-of-range inst id %d", bi, iid)
				continue
			}
			inst := &m.Insts[iid]
			ctx := fmt.Sprintf("inst #%d (%s) in block #%d", iid, inst.Kind, bi)

			switch inst.Kind {
			case InstConstInt, InstConstBool, InstConstNull, InstAllocaLocal:
				// no operands

			case InstUnary, InstCast, InstLoad:
				checkValue(ctx, inst.A)

			case InstBinOp, InstIndex:
				checkValue(ctx, inst.A)
				checkValue(ctx, inst.B)

			case InstField:
				checkValue(ctx, inst.A)

			case InstCall:
				checkValue(ctx, inst.A)
				for _, a := range inst.Args {
					checkValue(ctx, a)
				}

			case InstStore:
				checkValue(ctx, inst.A)
				checkValue(ctx, inst.B)
				if m.ValidValue(inst.A) && !allocaResults[inst.A] {
					// stores may also target computed element addresses
					if def, ok := defKind(m, inst.A); !ok ||
						(def != InstIndex && def != InstField && def != InstLoad) {
						verr(&errs, "%s stores through a non-slot value", ctx)
					}
				}
				if inst.Result != InvalidID {
					verr(&errs, "%s must not produce a result", ctx)
				}
			}
		}

		if !b.HasTerm {
			continue
		}
		t := &b.Term
		switch t.Kind {
		case TermBr:
			checkBranch(m, &errs, bi, t.Target, t.Args)
		case TermCondBr:
			checkValue(fmt.Sprintf("cond-br in block #%d", bi), t.Cond)
			checkBranch(m, &errs, bi, t.Then, t.ThenArgs)
			checkBranch(m, &errs, bi, t.Else, t.ElseArgs)
		case TermRet:
			if t.HasValue {
				checkValue(fmt.Sprintf("ret in block #%d", bi), t.Value)
			}
		case TermNone:
			verr(&errs, "block #%d carries an empty terminator", bi)
		}
	}

	return errs
}

func defKind(m *Module, v ValueID) (InstKind, bool) {
	for i := range m.Insts {
		inst := &m.Insts[i]
		if inst.Result == v {
			return inst.Kind, true
		}
	}
	return 0, false
}

func checkBranch(m *Module, errs *[]VerifyError, from int, target BlockID, args []ValueID) {
	if !m.ValidBlock(target) {
		verr(errs, "block #%d branches to invalid block id %d", from, target)
		return
	}
	want := len(m.Blocks[target].Params)
	if len(args) != want {
		verr(errs, "block #%d branch to #%d passes %d args, target has %d params",
			from, target, len(args), want)
	}
	for _, a := range args {
		if !m.ValidValue(a) {
			verr(errs, "block #%d branch arg references invalid value id %d", from, a)
		}
	}
}
