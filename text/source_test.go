package text

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLineCol_Basic(t *testing.T) {
	var sm SourceManager
	id := sm.Add("a.bt", "ab\ncd\n")

	require.Equal(t, LineCol{Line: 1, Col: 1}, sm.LineCol(id, 0))
	require.Equal(t, LineCol{Line: 1, Col: 3}, sm.LineCol(id, 2))
	require.Equal(t, LineCol{Line: 2, Col: 1}, sm.LineCol(id, 3))
	require.Equal(t, LineCol{Line: 2, Col: 2}, sm.LineCol(id, 4))
}

func TestLineCol_WideRunes(t *testing.T) {
	var sm SourceManager
	// "가" is East-Asian wide (3 bytes, 2 display cells).
	id := sm.Add("w.bt", "가a\n")

	require.Equal(t, LineCol{Line: 1, Col: 1}, sm.LineCol(id, 0))
	require.Equal(t, LineCol{Line: 1, Col: 3}, sm.LineCol(id, 3))
	require.Equal(t, LineCol{Line: 1, Col: 4}, sm.LineCol(id, 4))
}

func TestLineCol_ClampsPastEnd(t *testing.T) {
	var sm SourceManager
	id := sm.Add("c.bt", "xy")
	require.Equal(t, LineCol{Line: 1, Col: 3}, sm.LineCol(id, 99))
}

func TestSnippetForSpan_SingleLine(t *testing.T) {
	var sm SourceManager
	id := sm.Add("s.bt", "let x = 1;\nlet y = 2;\n")

	// span over "y" on line 2
	sn := sm.SnippetForSpan(Span{FileID: id, Lo: 15, Hi: 16})
	require.Equal(t, "let y = 2;", sn.LineText)
	require.Equal(t, uint32(2), sn.LineNo)
	require.Equal(t, uint32(5), sn.ColLo)
	require.Equal(t, uint32(6), sn.ColHi)
}

func TestSnippetForSpan_MultiLineClampsToFirstLine(t *testing.T) {
	var sm SourceManager
	id := sm.Add("m.bt", "abc\ndef\n")

	sn := sm.SnippetForSpan(Span{FileID: id, Lo: 1, Hi: 6})
	require.Equal(t, "abc", sn.LineText)
	require.Equal(t, uint32(1), sn.LineNo)
	require.Equal(t, uint32(2), sn.ColLo)
	require.Equal(t, uint32(4), sn.ColHi) // end of line 1
}

func TestContextSnippetForSpan(t *testing.T) {
	var sm SourceManager
	id := sm.Add("ctx.bt", "l1\nl2\nl3\nl4\nl5\n")

	sn := sm.ContextSnippetForSpan(Span{FileID: id, Lo: 6, Hi: 8}, 1)
	require.Equal(t, "l3", sn.LineText)
	require.Equal(t, []string{"l2"}, sn.Before)
	require.Equal(t, []string{"l4"}, sn.After)

	sn = sm.ContextSnippetForSpan(Span{FileID: id, Lo: 0, Hi: 2}, 2)
	require.Empty(t, sn.Before)
	require.Equal(t, []string{"l2", "l3"}, sn.After)
}

func TestSpanJoin(t *testing.T) {
	a := Span{FileID: 1, Lo: 4, Hi: 8}
	b := Span{FileID: 1, Lo: 2, Hi: 6}
	require.Equal(t, Span{FileID: 1, Lo: 2, Hi: 8}, Join(a, b))

	zero := Span{}
	require.Equal(t, uint32(1), Join(zero, a).FileID)
}

func TestUnknownFilePanics(t *testing.T) {
	var sm SourceManager
	require.Panics(t, func() { sm.Name(0) })
}
