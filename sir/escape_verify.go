package sir

import (
	"github.com/brant-lang/brant/sema"
)

// VerifyEscapeHandles checks the escape-handle metadata rules ahead of
// OIR lowering:
//
//   - materialize_count is 0 before lowering;
//   - a non-static origin must carry a boundary;
//   - return/call-arg boundaries require a caller slot;
//   - heap_box is forbidden;
//   - packing flags require the matching boundary;
//   - boundary none stays trivial and unpacked;
//   - escape tokens may only materialize into static storage;
//   - every ValEscape has exactly one handle.
func VerifyEscapeHandles(m *Module) []VerifyError {
	var errs []VerifyError

	escapeHandleCount := make(map[ValueID]int)
	staticSymbols := buildStaticSymbols(m)

	for i := range m.EscapeHandles {
		h := &m.EscapeHandles[i]

		if !m.ValidValue(h.EscapeValue) {
			pushError(&errs, "escape-handle #%d has invalid value id %d", i, h.EscapeValue)
			continue
		}

		v := &m.Values[h.EscapeValue]
		if v.Kind != ValEscape {
			pushError(&errs, "escape-handle #%d points to non-escape value #%d", i, h.EscapeValue)
		} else {
			escapeHandleCount[h.EscapeValue]++
		}

		if h.MaterializeCount != 0 {
			pushError(&errs, "escape-handle #%d materialize_count must be 0 before OIR lowering (got %d)",
				i, h.MaterializeCount)
		}

		if !h.FromStatic && h.Boundary == BoundaryNone {
			pushError(&errs, "escape-handle #%d violates static/boundary rule (non-static origin with boundary=none)", i)
		}

		if h.FromStatic {
			if h.OriginSym == sema.InvalidSymbol || !staticSymbols[h.OriginSym] {
				pushError(&errs, "escape-handle #%d marked from_static=true but origin symbol is not static", i)
			}
		}

		if (h.Boundary == BoundaryReturn || h.Boundary == BoundaryCallArg) && h.Kind != HandleCallerSlot {
			pushError(&errs, "escape-handle #%d boundary=%s requires kind=caller_slot (got %s)",
				i, h.Boundary, h.Kind)
		}

		if h.Kind == HandleHeapBox {
			pushError(&errs, "escape-handle #%d uses heap_box kind, which is forbidden", i)
		}

		if h.AbiPackRequired && !(h.Boundary == BoundaryAbi || h.Boundary == BoundaryFfi) {
			pushError(&errs, "escape-handle #%d abi_pack_required=true but boundary is %s", i, h.Boundary)
		}
		if h.FfiPackRequired && h.Boundary != BoundaryFfi {
			pushError(&errs, "escape-handle #%d ffi_pack_required=true but boundary is %s", i, h.Boundary)
		}

		if h.Boundary == BoundaryNone {
			if h.Kind != HandleTrivial {
				pushError(&errs, "escape-handle #%d boundary=none must keep trivial non-materialized kind (got %s)",
					i, h.Kind)
			}
			if h.AbiPackRequired || h.FfiPackRequired {
				pushError(&errs, "escape-handle #%d boundary=none cannot request ABI/FFI packing", i)
			}
		}
	}

	// escape tokens may not materialize into non-static bindings
	for sid := range m.Stmts {
		s := &m.Stmts[sid]
		if s.Kind != StmtVarDecl || !m.ValidValue(s.Init) {
			continue
		}
		if m.Values[s.Init].Kind != ValEscape || s.IsStatic {
			continue
		}
		pushError(&errs, "stmt #%d materializes escape handle into non-static variable declaration", sid)
	}

	for vid := range m.Values {
		v := &m.Values[vid]
		if v.Kind != ValAssign || !m.ValidValue(v.B) {
			continue
		}
		if m.Values[v.B].Kind != ValEscape {
			continue
		}
		if isStaticPlace(m, v.A, staticSymbols) {
			continue
		}
		pushError(&errs, "value #%d materializes escape handle into non-static assignment target", vid)
	}

	// exactly one handle per escape value
	for vid := range m.Values {
		if m.Values[vid].Kind != ValEscape {
			continue
		}
		switch escapeHandleCount[ValueID(vid)] {
		case 0:
			pushError(&errs, "escape value #%d has no EscapeHandle metadata", vid)
		case 1:
			// ok
		default:
			pushError(&errs, "escape value #%d has %d EscapeHandles (want exactly 1)",
				vid, escapeHandleCount[ValueID(vid)])
		}
	}

	return errs
}

func isStaticPlace(m *Module, lhs ValueID, staticSymbols map[sema.SymbolID]bool) bool {
	if !m.ValidValue(lhs) {
		return false
	}
	v := &m.Values[lhs]
	if v.OriginSym != sema.InvalidSymbol {
		return staticSymbols[v.OriginSym]
	}
	switch v.Kind {
	case ValLocal, ValGlobal:
		return v.Sym != sema.InvalidSymbol && staticSymbols[v.Sym]
	case ValIndex, ValField:
		return isStaticPlace(m, v.A, staticSymbols)
	}
	return false
}
