package lex

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brant-lang/brant/diag"
	"github.com/brant-lang/brant/syntax"
)

func kinds(toks []Token) []syntax.TokenKind {
	out := make([]syntax.TokenKind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func lexAll(t *testing.T, src string) []Token {
	t.Helper()
	var bag diag.Bag
	toks := New(src, 0, &bag).LexAll()
	require.False(t, bag.HasError(), "unexpected lex diagnostics for %q", src)
	return toks
}

func TestLex_PunctLongestMatch(t *testing.T) {
	toks := lexAll(t, "..: .. << <= < && & ++ += +")
	require.Equal(t, []syntax.TokenKind{
		syntax.DotDotColon, syntax.DotDot, syntax.LessLess, syntax.LtEq, syntax.Lt,
		syntax.AmpAmp, syntax.Amp, syntax.PlusPlus, syntax.PlusAssign, syntax.Plus,
		syntax.EOF,
	}, kinds(toks))
}

func TestLex_KeywordsAndHole(t *testing.T) {
	toks := lexAll(t, "fn let mut _ _x as loop in")
	require.Equal(t, []syntax.TokenKind{
		syntax.KwFn, syntax.KwLet, syntax.KwMut, syntax.Hole, syntax.Ident,
		syntax.KwAs, syntax.KwLoop, syntax.KwIn, syntax.EOF,
	}, kinds(toks))
	require.Equal(t, "_x", toks[4].Lexeme)
}

func TestLex_NumbersWithUnderscoresAndSuffix(t *testing.T) {
	toks := lexAll(t, "1_000 42i32 3.14 2.5f64")
	require.Equal(t, []syntax.TokenKind{
		syntax.IntLit, syntax.IntLit, syntax.FloatLit, syntax.FloatLit, syntax.EOF,
	}, kinds(toks))
	require.Equal(t, "1_000", toks[0].Lexeme)
	require.Equal(t, "42i32", toks[1].Lexeme)
	require.Equal(t, "2.5f64", toks[3].Lexeme)
}

func TestLex_RangeNotFloat(t *testing.T) {
	// "1..3" must lex as IntLit DotDot IntLit, not a float
	toks := lexAll(t, "1..3")
	require.Equal(t, []syntax.TokenKind{
		syntax.IntLit, syntax.DotDot, syntax.IntLit, syntax.EOF,
	}, kinds(toks))
}

func TestLex_StringEscapes(t *testing.T) {
	toks := lexAll(t, `"a\"b\\c\n"`)
	require.Equal(t, syntax.StringLit, toks[0].Kind)
	require.Equal(t, `"a\"b\\c\n"`, toks[0].Lexeme)
}

func TestLex_CharLit(t *testing.T) {
	toks := lexAll(t, `'x' '\n' '한'`)
	require.Equal(t, []syntax.TokenKind{
		syntax.CharLit, syntax.CharLit, syntax.CharLit, syntax.EOF,
	}, kinds(toks))
}

func TestLex_Comments(t *testing.T) {
	toks := lexAll(t, "a // line\nb /* block\nstill */ c")
	require.Equal(t, []syntax.TokenKind{
		syntax.Ident, syntax.Ident, syntax.Ident, syntax.EOF,
	}, kinds(toks))
}

func TestLex_UnterminatedBlockComment(t *testing.T) {
	var bag diag.Bag
	New("a /* never", 0, &bag).LexAll()
	require.True(t, bag.HasCode(diag.CodeUnterminatedBlockComment))
}

func TestLex_UnterminatedString(t *testing.T) {
	var bag diag.Bag
	New(`"open`, 0, &bag).LexAll()
	require.True(t, bag.HasCode(diag.CodeUnterminatedString))
}

func TestLex_InvalidUTF8IsFatalAndSticky(t *testing.T) {
	var bag diag.Bag
	l := New("ok\xffrest", 0, &bag)
	toks := l.LexAll()

	require.True(t, l.Fatal())
	require.True(t, bag.HasFatal())
	require.True(t, bag.HasCode(diag.CodeInvalidUTF8))
	// stream is EOF-terminated and nothing else
	require.Equal(t, []syntax.TokenKind{syntax.EOF}, kinds(toks))
}

func TestLex_UnknownPunctRecoverable(t *testing.T) {
	var bag diag.Bag
	toks := New("a $ b", 0, &bag).LexAll()
	require.Equal(t, []syntax.TokenKind{
		syntax.Ident, syntax.UnknownPunct, syntax.Ident, syntax.EOF,
	}, kinds(toks))
	require.False(t, bag.HasFatal())
}

func TestLex_SpansAreHalfOpen(t *testing.T) {
	toks := lexAll(t, "ab cd")
	require.Equal(t, uint32(0), toks[0].Span.Lo)
	require.Equal(t, uint32(2), toks[0].Span.Hi)
	require.Equal(t, uint32(3), toks[1].Span.Lo)
	require.Equal(t, uint32(5), toks[1].Span.Hi)
	require.Equal(t, "cd", toks[1].Lexeme)
}
