package lex

import (
	"github.com/brant-lang/brant/syntax"
	"github.com/brant-lang/brant/text"
)

// Token is one lexed unit. Lexeme is a non-owning view into the source
// buffer handed to the Lexer; its lifetime follows the SourceManager that
// owns the buffer.
type Token struct {
	Kind   syntax.TokenKind
	Span   text.Span
	Lexeme string
}
