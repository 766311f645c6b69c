package parse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brant-lang/brant/ast"
	"github.com/brant-lang/brant/diag"
)

const incrSrcV1 = `fn one() -> i32 { return 1; }
fn two() -> i32 { return 2; }
fn three() -> i32 { return 3; }
`

func TestSession_InitializeThenNoEdits(t *testing.T) {
	var bag diag.Bag
	s := NewSession(0)
	require.True(t, s.Initialize(incrSrcV1, 0, &bag))
	require.True(t, s.Ready())
	require.Equal(t, ReparseFullRebuild, s.LastMode())
	require.Len(t, s.Snapshot().TopItems, 3)
	require.Equal(t, uint64(1), s.Snapshot().Revision)

	// empty edit set forces a full rebuild
	require.True(t, s.ReparseWithEdits(incrSrcV1, 0, nil, &bag))
	require.Equal(t, ReparseFullRebuild, s.LastMode())
	require.Equal(t, uint64(2), s.Snapshot().Revision)
}

func TestSession_IncrementalMergeReusesPrefixIds(t *testing.T) {
	var bag diag.Bag
	s := NewSession(0)
	require.True(t, s.Initialize(incrSrcV1, 0, &bag))

	oldItems := append([]TopItemMeta(nil), s.Snapshot().TopItems...)

	// edit inside the third function only
	editLo := uint32(strings.Index(incrSrcV1, "return 3"))
	newSrc := strings.Replace(incrSrcV1, "return 3;", "return 33;", 1)

	require.True(t, s.ReparseWithEdits(newSrc, 0, []EditWindow{{Lo: editLo, Hi: editLo + 9}}, &bag))
	require.Equal(t, ReparseIncrementalMerge, s.LastMode())

	newItems := s.Snapshot().TopItems
	require.Len(t, newItems, 3)

	// items before the edit keep their old statement ids
	require.Equal(t, oldItems[0].SID, newItems[0].SID)
	require.Equal(t, oldItems[1].SID, newItems[1].SID)
	// the edited item is freshly parsed
	require.NotEqual(t, oldItems[2].SID, newItems[2].SID)

	// the reused ids still resolve to fn decls in the cloned arena
	st := s.Snapshot().Arena.Stmt(newItems[0].SID)
	require.Equal(t, ast.StmtFnDecl, st.Kind)
	require.Equal(t, "one", st.Name)
}

func TestSession_EditInFirstItemFallsBack(t *testing.T) {
	var bag diag.Bag
	s := NewSession(0)
	require.True(t, s.Initialize(incrSrcV1, 0, &bag))

	newSrc := strings.Replace(incrSrcV1, "return 1;", "return 11;", 1)
	require.True(t, s.ReparseWithEdits(newSrc, 0, []EditWindow{{Lo: 0, Hi: 10}}, &bag))
	require.Equal(t, ReparseFallbackFullRebuild, s.LastMode())
	require.Len(t, s.Snapshot().TopItems, 3)
}

func TestSession_FatalLexFallsBack(t *testing.T) {
	var bag diag.Bag
	s := NewSession(0)
	require.True(t, s.Initialize(incrSrcV1, 0, &bag))

	bad := incrSrcV1 + "fn x() -> i32 { return \xff; }"
	editLo := uint32(len(incrSrcV1))
	s.ReparseWithEdits(bad, 0, []EditWindow{{Lo: editLo, Hi: editLo + 5}}, &bag)
	require.Equal(t, ReparseFallbackFullRebuild, s.LastMode())
}

func TestSession_SourceOwnerCompaction(t *testing.T) {
	var bag diag.Bag
	s := NewSession(0)
	require.True(t, s.Initialize(incrSrcV1, 0, &bag))

	src := incrSrcV1
	editLo := uint32(strings.Index(src, "fn three"))
	sawFallback := false
	for i := 0; i < sourceOwnerCompactThreshold+2; i++ {
		src += "\n// trailing\n"
		s.ReparseWithEdits(src, 0, []EditWindow{{Lo: editLo, Hi: uint32(len(src))}}, &bag)
		if s.LastMode() == ReparseFallbackFullRebuild {
			sawFallback = true
			break
		}
	}
	require.True(t, sawFallback, "retention threshold should force a compacting rebuild")
	require.LessOrEqual(t, len(s.sourceOwners), sourceOwnerCompactThreshold)
}
