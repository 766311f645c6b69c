package sir

import (
	"github.com/brant-lang/brant/sema"
	"github.com/brant-lang/brant/syntax"
	"github.com/brant-lang/brant/types"
)

// CanonicalizeResult counts what canonicalization rewrote.
type CanonicalizeResult struct {
	RewrittenValues uint32
	RewrittenCalls  uint32
}

// Canonicalize normalizes the module before capability analysis:
// place classes are recomputed from kinds (a range subscript demotes an
// index from place), origin symbols are re-derived through a-children,
// effects are recomputed by joining children over the Pure < MayWrite <
// Unknown lattice, and call-argument slices are rewritten into canonical
// form (nested named groups demoted to positional, slices compacted).
// The pass is idempotent.
func Canonicalize(m *Module, pool *types.Pool) CanonicalizeResult {
	_ = pool // reserved for type-driven canonicalization

	var out CanonicalizeResult
	canonicalizeArgSlices(m, &out)

	for vid := range m.Values {
		v := &m.Values[vid]

		// 1) place canonicalization
		oldPlace := v.Place
		switch v.Kind {
		case ValLocal, ValGlobal:
			v.Place = PlaceLocal
		case ValIndex:
			if isRangeIndex(m, v) {
				v.Place = NotPlace
			} else {
				v.Place = PlaceIndex
			}
		case ValField:
			v.Place = PlaceField
		case ValUnary:
			if v.Op == syntax.Star {
				v.Place = PlaceDeref
			} else {
				v.Place = NotPlace
			}
		default:
			v.Place = NotPlace
		}

		// 2) origin symbol canonicalization
		if v.Kind == ValBorrow || v.Kind == ValEscape || v.Kind == ValIndex || v.Kind == ValField {
			visiting := make(map[ValueID]bool)
			if root := rootSymbolFromValue(m, ValueID(vid), visiting); root != sema.InvalidSymbol {
				v.OriginSym = root
			}
		}

		// 3) effect canonicalization
		newEff := baseEffect(v.Kind)
		join := func(cid ValueID) {
			if m.ValidValue(cid) {
				newEff = JoinEffect(newEff, m.Values[cid].Effect)
			}
		}
		switch v.Kind {
		case ValUnary, ValBorrow, ValEscape, ValPostfixInc, ValCast:
			join(v.A)
		case ValBinary, ValAssign, ValIndex, ValField:
			join(v.A)
			join(v.B)
		case ValIfExpr:
			join(v.A)
			join(v.B)
			join(v.C)
		case ValCall:
			join(v.A)
			forEachCallArgValue(m, v, join)
		case ValArrayLit:
			end := uint64(v.ArgBegin) + uint64(v.ArgCount)
			if end <= uint64(len(m.Args)) {
				for i := uint32(0); i < v.ArgCount; i++ {
					join(m.Args[v.ArgBegin+i].Value)
				}
			}
		}

		if v.Effect != newEff || v.Place != oldPlace {
			out.RewrittenValues++
		}
		v.Effect = newEff
	}

	return out
}

func baseEffect(k ValueKind) EffectClass {
	switch k {
	case ValAssign, ValPostfixInc, ValEscape:
		return EffectMayWrite
	case ValCall:
		return EffectUnknown
	}
	return EffectPure
}

// isRangeIndex reports a subscript of the form a[lo..hi] / a[lo..:hi].
func isRangeIndex(m *Module, v *Value) bool {
	if v.Kind != ValIndex || !m.ValidValue(v.B) {
		return false
	}
	idx := &m.Values[v.B]
	if idx.Kind != ValBinary {
		return false
	}
	return idx.Op == syntax.DotDot || idx.Op == syntax.DotDotColon
}

// rootSymbolFromValue walks a-children to the nearest Local/Global.
func rootSymbolFromValue(m *Module, vid ValueID, visiting map[ValueID]bool) sema.SymbolID {
	if !m.ValidValue(vid) || visiting[vid] {
		return sema.InvalidSymbol
	}
	visiting[vid] = true
	defer delete(visiting, vid)

	v := &m.Values[vid]
	switch v.Kind {
	case ValLocal, ValGlobal:
		return v.Sym
	case ValIndex, ValField, ValBorrow, ValEscape:
		return rootSymbolFromValue(m, v.A, visiting)
	case ValUnary:
		if v.Op == syntax.Star {
			return rootSymbolFromValue(m, v.A, visiting)
		}
	}
	return sema.InvalidSymbol
}

func forEachCallArgValue(m *Module, v *Value, fn func(ValueID)) {
	end := uint64(v.ArgBegin) + uint64(v.ArgCount)
	if end > uint64(len(m.Args)) {
		return
	}
	for i := uint32(0); i < v.ArgCount; i++ {
		a := m.Args[v.ArgBegin+i]
		if a.Kind == ArgNamedGroup {
			cend := uint64(a.ChildBegin) + uint64(a.ChildCount)
			if cend <= uint64(len(m.Args)) {
				for j := uint32(0); j < a.ChildCount; j++ {
					fn(m.Args[a.ChildBegin+j].Value)
				}
			}
			continue
		}
		fn(a.Value)
	}
}

func clampArgSlice(args []Arg, begin, count *uint32) {
	if uint64(*begin) > uint64(len(args)) {
		*begin = uint32(len(args))
		*count = 0
		return
	}
	if uint64(*begin)+uint64(*count) > uint64(len(args)) {
		*count = uint32(uint64(len(args)) - uint64(*begin))
	}
}

// canonicalizeArgSlices rebuilds the argument vector so every call and
// array-literal slice is compact, in value order, with nested named
// groups demoted to positional entries.
func canonicalizeArgSlices(m *Module, out *CanonicalizeResult) {
	if len(m.Args) == 0 {
		return
	}

	oldArgs := append([]Arg(nil), m.Args...)
	newArgs := make([]Arg, 0, len(oldArgs))

	for vid := range m.Values {
		v := &m.Values[vid]
		if v.Kind != ValCall && v.Kind != ValArrayLit {
			continue
		}

		begin, count := v.ArgBegin, v.ArgCount
		clampArgSlice(oldArgs, &begin, &count)

		newBegin := uint32(len(newArgs))
		newCount := uint32(0)

		for i := uint32(0); i < count; i++ {
			src := oldArgs[begin+i]

			if v.Kind == ValCall && src.Kind == ArgNamedGroup {
				parent := src
				parent.ChildBegin = 0
				parent.ChildCount = 0

				parentIdx := uint32(len(newArgs))
				newArgs = append(newArgs, parent)
				newCount++

				childBegin := src.ChildBegin
				childCount := src.ChildCount
				clampArgSlice(oldArgs, &childBegin, &childCount)

				packedBegin := uint32(len(newArgs))
				packedCount := uint32(0)
				for j := uint32(0); j < childCount; j++ {
					child := oldArgs[childBegin+j]
					// nested named groups are not allowed inside a
					// group; demote to positional to stabilize later
					// passes
					if child.Kind == ArgNamedGroup {
						child.Kind = ArgPositional
						child.ChildBegin = 0
						child.ChildCount = 0
					}
					newArgs = append(newArgs, child)
					newCount++
					packedCount++
				}
				newArgs[parentIdx].ChildBegin = packedBegin
				newArgs[parentIdx].ChildCount = packedCount
				continue
			}

			plain := src
			plain.ChildBegin = 0
			plain.ChildCount = 0
			if v.Kind == ValArrayLit && plain.Kind == ArgNamedGroup {
				plain.Kind = ArgPositional
			}
			newArgs = append(newArgs, plain)
			newCount++
		}

		if v.ArgBegin != newBegin || v.ArgCount != newCount {
			out.RewrittenCalls++
		}
		v.ArgBegin = newBegin
		v.ArgCount = newCount
	}

	m.Args = newArgs
}
