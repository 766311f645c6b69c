// Package lex turns Brant source text into a finite token sequence
// terminated by an EOF token. The lexer validates the whole input as
// strict UTF-8 up front; an invalid byte is a fatal, sticky failure that
// the parser treats as an abort.
package lex

import (
	"strings"
	"unicode/utf8"

	"github.com/brant-lang/brant/diag"
	"github.com/brant-lang/brant/syntax"
	"github.com/brant-lang/brant/text"
)

// Lexer scans one source buffer.
type Lexer struct {
	source string
	fileID uint32
	pos    uint32
	bag    *diag.Bag
	fatal  bool
}

// New builds a lexer over source. bag may be nil when the caller does not
// collect diagnostics (tests, token dumps).
func New(source string, fileID uint32, bag *diag.Bag) *Lexer {
	return &Lexer{source: source, fileID: fileID, bag: bag}
}

// Fatal reports whether lexing hit a sticky fatal condition (invalid
// UTF-8). The token stream is still EOF-terminated but must not be parsed.
func (l *Lexer) Fatal() bool { return l.fatal }

func (l *Lexer) report(code diag.Code, sp text.Span, sev diag.Severity, args ...string) {
	if l.bag == nil {
		return
	}
	d := diag.New(sev, code, sp)
	for _, a := range args {
		d = d.WithArg(a)
	}
	l.bag.Add(d)
}

func (l *Lexer) eof() bool { return l.pos >= uint32(len(l.source)) }

func (l *Lexer) peek(k uint32) byte {
	i := l.pos + k
	if i >= uint32(len(l.source)) {
		return 0
	}
	return l.source[i]
}

func (l *Lexer) bump() byte {
	if l.eof() {
		return 0
	}
	c := l.source[l.pos]
	l.pos++
	return c
}

func (l *Lexer) span(lo uint32) text.Span {
	return text.Span{FileID: l.fileID, Lo: lo, Hi: l.pos}
}

func (l *Lexer) token(kind syntax.TokenKind, lo uint32) Token {
	return Token{Kind: kind, Span: l.span(lo), Lexeme: l.source[lo:l.pos]}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool { return isIdentStart(c) || isDigit(c) }

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\v' || c == '\f'
}

// LexAll validates the input and produces the full token vector. The last
// token is always EOF, even after a fatal.
func (l *Lexer) LexAll() []Token {
	out := make([]Token, 0, len(l.source)/4+1)

	if bad, off := firstInvalidUTF8(l.source); bad {
		l.fatal = true
		sp := text.Span{FileID: l.fileID, Lo: off, Hi: off + 1}
		l.report(diag.CodeInvalidUTF8, sp, diag.SeverityFatal, uintToString(off))
		out = append(out, Token{Kind: syntax.EOF, Span: sp})
		return out
	}

	for {
		l.skipWSAndComments()
		if l.eof() {
			break
		}

		c := l.peek(0)
		switch {
		case isDigit(c):
			out = append(out, l.lexNumber())
		case c == '"':
			out = append(out, l.lexString())
		case c == '\'':
			out = append(out, l.lexChar())
		case isIdentStart(c):
			out = append(out, l.lexIdentOrKeyword())
		default:
			out = append(out, l.lexPunctOrUnknown())
		}
	}

	end := uint32(len(l.source))
	out = append(out, Token{Kind: syntax.EOF, Span: text.Span{FileID: l.fileID, Lo: end, Hi: end}})
	return out
}

func firstInvalidUTF8(s string) (bool, uint32) {
	for i := 0; i < len(s); {
		r, sz := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && sz <= 1 {
			return true, uint32(i)
		}
		i += sz
	}
	return false, 0
}

func uintToString(v uint32) string {
	// small helper to avoid strconv in the hot path signature
	var buf [10]byte
	i := len(buf)
	for {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
		if v == 0 {
			break
		}
	}
	return string(buf[i:])
}

func (l *Lexer) skipWSAndComments() {
	for {
		for !l.eof() && isSpace(l.peek(0)) {
			l.bump()
		}

		// line comment //
		if l.peek(0) == '/' && l.peek(1) == '/' {
			l.bump()
			l.bump()
			for !l.eof() && l.peek(0) != '\n' {
				l.bump()
			}
			continue
		}

		// block comment /* ... */ (non-nesting)
		if l.peek(0) == '/' && l.peek(1) == '*' {
			lo := l.pos
			l.bump()
			l.bump()
			closed := false
			for !l.eof() {
				if l.peek(0) == '*' && l.peek(1) == '/' {
					l.bump()
					l.bump()
					closed = true
					break
				}
				l.bump()
			}
			if !closed {
				l.report(diag.CodeUnterminatedBlockComment, l.span(lo), diag.SeverityError)
			}
			continue
		}

		break
	}
}

func (l *Lexer) scanDigits() {
	for !l.eof() {
		c := l.peek(0)
		if isDigit(c) || c == '_' {
			l.bump()
			continue
		}
		break
	}
}

func (l *Lexer) lexNumber() Token {
	lo := l.pos
	sawDot := false

	l.scanDigits()

	// float: digits '.' digits (but not '..' range punct)
	if l.peek(0) == '.' && isDigit(l.peek(1)) {
		sawDot = true
		l.bump()
		l.scanDigits()
	}

	// suffix letters consumed into the literal (i32, u8, f64, ...)
	for !l.eof() && (isIdentCont(l.peek(0))) {
		l.bump()
	}

	if sawDot {
		return l.token(syntax.FloatLit, lo)
	}
	return l.token(syntax.IntLit, lo)
}

func (l *Lexer) lexString() Token {
	lo := l.pos
	l.bump() // opening "

	closed := false
	for !l.eof() {
		c := l.bump()
		if c == '\\' {
			if !l.eof() {
				l.bump() // escape payload: \n \t \r \" \\
			}
			continue
		}
		if c == '"' {
			closed = true
			break
		}
	}
	if !closed {
		l.report(diag.CodeUnterminatedString, l.span(lo), diag.SeverityError)
	}
	return l.token(syntax.StringLit, lo)
}

func (l *Lexer) lexChar() Token {
	lo := l.pos
	l.bump() // opening '

	closed := false
	for !l.eof() {
		c := l.bump()
		if c == '\\' {
			if !l.eof() {
				l.bump()
			}
			continue
		}
		if c == '\'' {
			closed = true
			break
		}
		if c == '\n' {
			break
		}
	}
	if !closed {
		l.report(diag.CodeUnterminatedChar, l.span(lo), diag.SeverityError)
	}
	return l.token(syntax.CharLit, lo)
}

func (l *Lexer) lexIdentOrKeyword() Token {
	lo := l.pos
	l.bump()
	for !l.eof() && isIdentCont(l.peek(0)) {
		l.bump()
	}
	t := l.token(syntax.Ident, lo)

	if t.Lexeme == "_" {
		t.Kind = syntax.Hole
		return t
	}
	if kw, ok := syntax.KeywordKind(t.Lexeme); ok {
		t.Kind = kw
	}
	return t
}

func (l *Lexer) lexPunctOrUnknown() Token {
	lo := l.pos

	// maximal munch against the ordered punct table
	rest := l.source[l.pos:]
	for _, e := range syntax.PunctTable {
		if strings.HasPrefix(rest, e.Text) {
			l.pos += uint32(len(e.Text))
			return Token{Kind: e.Kind, Span: l.span(lo), Lexeme: e.Text}
		}
	}

	// unknown punctuation: consume one rune, recoverable
	_, sz := utf8.DecodeRuneInString(rest)
	l.pos += uint32(sz)
	return l.token(syntax.UnknownPunct, lo)
}
