package parse

import (
	"github.com/brant-lang/brant/lex"
	"github.com/brant-lang/brant/syntax"
)

// cursor walks a token vector. The vector is always EOF-terminated, so
// reads past the end synthesize the final EOF token.
type cursor struct {
	toks []lex.Token
	pos  int
}

func newCursor(toks []lex.Token) cursor {
	return cursor{toks: toks}
}

func (c *cursor) peek(k int) lex.Token {
	i := c.pos + k
	if i >= len(c.toks) {
		return c.toks[len(c.toks)-1]
	}
	return c.toks[i]
}

func (c *cursor) cur() lex.Token { return c.peek(0) }

func (c *cursor) at(k syntax.TokenKind) bool { return c.cur().Kind == k }

func (c *cursor) atEOF() bool { return c.at(syntax.EOF) }

func (c *cursor) bump() lex.Token {
	t := c.cur()
	if c.pos < len(c.toks)-1 {
		c.pos++
	}
	return t
}

func (c *cursor) eat(k syntax.TokenKind) bool {
	if c.at(k) {
		c.bump()
		return true
	}
	return false
}

func (c *cursor) prev() lex.Token {
	if c.pos == 0 {
		return c.toks[0]
	}
	return c.toks[c.pos-1]
}
