// Package text owns source file contents and the mapping from byte
// offsets to human-facing (line, display-column) positions. Columns are
// measured in display cells, not bytes: combining marks are zero wide and
// East-Asian wide runes occupy two cells.
package text

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// LineCol is a 1-based (line, display-column) position.
type LineCol struct {
	Line uint32
	Col  uint32
}

// Snippet is a single source line prepared for caret rendering.
// ColLo/ColHi are 1-based display columns; a span that crosses lines is
// clamped to the end of its first line.
type Snippet struct {
	LineText string
	LineNo   uint32
	ColLo    uint32
	ColHi    uint32
}

// ContextSnippet is a snippet plus surrounding lines for multi-line
// diagnostic output.
type ContextSnippet struct {
	Snippet
	Before []string
	After  []string
}

type file struct {
	name       string
	content    string
	lineStarts []uint32
}

// SourceManager stores named source buffers and never mutates them.
// File ids are dense, starting at 0, in add order. Passing an unknown
// file id to any accessor is a programmer error and panics.
type SourceManager struct {
	files []file
}

// Add registers a source buffer and returns its file id.
func (m *SourceManager) Add(name, content string) uint32 {
	m.files = append(m.files, file{
		name:       name,
		content:    content,
		lineStarts: buildLineStarts(content),
	})
	return uint32(len(m.files) - 1)
}

// Name returns the registered name of the file.
func (m *SourceManager) Name(fileID uint32) string { return m.file(fileID).name }

// Content returns the full content of the file.
func (m *SourceManager) Content(fileID uint32) string { return m.file(fileID).content }

// FileCount returns how many buffers have been added.
func (m *SourceManager) FileCount() int { return len(m.files) }

func (m *SourceManager) file(fileID uint32) *file {
	if int(fileID) >= len(m.files) {
		panic(fmt.Sprintf("text: unknown file id %d (have %d files)", fileID, len(m.files)))
	}
	return &m.files[fileID]
}

func buildLineStarts(s string) []uint32 {
	starts := []uint32{0}
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			starts = append(starts, uint32(i+1))
		}
	}
	return starts
}

// LineCol maps a byte offset to its 1-based line and display column.
// Offsets past the end of the buffer clamp to the final position.
func (m *SourceManager) LineCol(fileID, byteOff uint32) LineCol {
	f := m.file(fileID)
	if byteOff > uint32(len(f.content)) {
		byteOff = uint32(len(f.content))
	}

	// First line start strictly greater than byteOff, minus one.
	idx := sort.Search(len(f.lineStarts), func(i int) bool {
		return f.lineStarts[i] > byteOff
	})
	if idx > 0 {
		idx--
	}

	lineStart := f.lineStarts[idx]
	return LineCol{
		Line: uint32(idx + 1),
		Col:  displayWidthBetween(f.content, lineStart, byteOff) + 1,
	}
}

// RuneDisplayWidth returns the number of display cells the rune occupies:
// 0 for control and combining characters, 2 for East-Asian wide and
// fullwidth forms, 1 otherwise.
func RuneDisplayWidth(r rune) uint32 {
	if r == utf8.RuneError {
		return 1
	}
	if r < 0x20 || (r >= 0x7F && r < 0xA0) {
		return 0
	}
	if r >= 0x0300 && r <= 0x036F { // combining diacritics
		return 0
	}
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	default:
		return 1
	}
}

func displayWidthBetween(s string, lo, hi uint32) uint32 {
	if hi > uint32(len(s)) {
		hi = uint32(len(s))
	}
	var w uint32
	for i := lo; i < hi; {
		r, sz := utf8.DecodeRuneInString(s[i:hi])
		if sz == 0 {
			break
		}
		w += RuneDisplayWidth(r)
		i += uint32(sz)
	}
	return w
}

func (m *SourceManager) lineBounds(f *file, lineIdx uint32) (uint32, uint32) {
	start := f.lineStarts[lineIdx]
	var end uint32
	if int(lineIdx)+1 < len(f.lineStarts) {
		end = f.lineStarts[lineIdx+1] - 1 // drop the '\n'
	} else {
		end = uint32(len(f.content))
	}
	return start, end
}

// SnippetForSpan renders the first line the span touches. A multi-line
// span clamps its caret range to the end of that line.
func (m *SourceManager) SnippetForSpan(sp Span) Snippet {
	f := m.file(sp.FileID)

	lo := min(sp.Lo, uint32(len(f.content)))
	hi := min(sp.Hi, uint32(len(f.content)))

	lcLo := m.LineCol(sp.FileID, lo)
	lcHi := m.LineCol(sp.FileID, hi)

	lineIdx := lcLo.Line - 1
	start, end := m.lineBounds(f, lineIdx)
	lineText := f.content[start:end]

	sn := Snippet{
		LineText: lineText,
		LineNo:   lcLo.Line,
		ColLo:    lcLo.Col,
	}
	if lcHi.Line == lcLo.Line {
		sn.ColHi = max(lcHi.Col, lcLo.Col)
	} else {
		sn.ColHi = displayWidthBetween(f.content, start, end) + 1
	}
	return sn
}

// ContextSnippetForSpan is SnippetForSpan plus up to contextLines lines of
// surrounding source on each side.
func (m *SourceManager) ContextSnippetForSpan(sp Span, contextLines uint32) ContextSnippet {
	f := m.file(sp.FileID)
	sn := ContextSnippet{Snippet: m.SnippetForSpan(sp)}

	lineIdx := sn.LineNo - 1
	for i := uint32(1); i <= contextLines && i <= lineIdx; i++ {
		start, end := m.lineBounds(f, lineIdx-i)
		sn.Before = append([]string{f.content[start:end]}, sn.Before...)
	}
	for i := uint32(1); i <= contextLines && int(lineIdx+i) < len(f.lineStarts); i++ {
		start, end := m.lineBounds(f, lineIdx+i)
		sn.After = append(sn.After, f.content[start:end])
	}
	return sn
}
