package parse

import (
	"github.com/brant-lang/brant/diag"
	"github.com/brant-lang/brant/lex"
	"github.com/brant-lang/brant/num"
	"github.com/brant-lang/brant/syntax"
	"github.com/brant-lang/brant/text"
	"github.com/brant-lang/brant/types"
)

// ParsedType pairs an interned type id with the source span it was
// spelled at.
type ParsedType struct {
	ID   types.TypeID
	Span text.Span
}

// ParseType parses the type grammar:
//
//	Type       := PrefixType
//	PrefixType := ( '&' ['mut'] | '&&' )* SuffixType
//	SuffixType := PrimaryType ( '?' | '[' [IntLit] ']' )*
//	PrimaryType:= 'fn' '(' TypeList? ')' '->' Type
//	            | Ident ( '::' is not spelled; paths use '.' segments )
//	            | '(' Type ')'
//
// Suffix binds tighter than prefix, so &&T? parses as &&(T?).
func (p *Parser) ParseType() ParsedType {
	var prefixOps []prefixTypeOp
	for {
		if p.cursor.at(syntax.Amp) {
			tok := p.cursor.bump()
			op := prefixTypeOp{escape: false, tok: tok}
			if p.cursor.eat(syntax.KwMut) {
				op.isMut = true
			}
			prefixOps = append(prefixOps, op)
			continue
		}
		if p.cursor.at(syntax.AmpAmp) {
			tok := p.cursor.bump()
			prefixOps = append(prefixOps, prefixTypeOp{escape: true, tok: tok})
			continue
		}
		break
	}

	out := p.parseSuffixType()

	// apply prefixes right-to-left: && &mut & T => &&(&mut(&T))
	for i := len(prefixOps) - 1; i >= 0; i-- {
		op := prefixOps[i]
		if op.escape {
			if p.pool.Valid(out.ID) && p.pool.Get(out.ID).Kind == types.KindEscape {
				p.report(diag.CodeDoubleEscapeNotAllowed, op.tok.Span)
				out.ID = p.pool.ErrorType()
			} else {
				out.ID = p.pool.MakeEscape(out.ID)
			}
		} else {
			out.ID = p.pool.MakeBorrow(out.ID, op.isMut)
		}
		out.Span = text.Join(op.tok.Span, out.Span)
	}
	return out
}

type prefixTypeOp struct {
	escape bool
	isMut  bool
	tok    lex.Token
}

func (p *Parser) parseSuffixType() ParsedType {
	base := p.parsePrimaryType()

	for {
		// Optional suffix: T?
		if p.cursor.at(syntax.Question) {
			q := p.cursor.bump()
			if p.pool.IsOptional(base.ID) {
				p.report(diag.CodeDoubleOptionalNotAllowed, q.Span)
				base.ID = p.pool.ErrorType()
			} else {
				base.ID = p.pool.MakeOptional(base.ID)
			}
			base.Span = text.Join(base.Span, q.Span)
			continue
		}

		// Array suffix: T[] or T[N]
		if p.cursor.at(syntax.LBracket) {
			p.cursor.bump()

			if p.cursor.at(syntax.IntLit) {
				szTok := p.cursor.bump()
				lit, ok := num.ParseLit(szTok.Lexeme)
				var size uint64
				if ok && lit.Value.IsUint64() {
					size = lit.Value.Uint64()
				}
				if !ok || lit.Suffix != "" || size > uint64(^uint32(0)) {
					p.report(diag.CodeUnexpectedToken, szTok.Span, szTok.Lexeme)
					base.ID = p.pool.ErrorType()
				} else {
					base.ID = p.pool.MakeSizedArray(base.ID, uint32(size))
				}
			} else {
				base.ID = p.pool.MakeArray(base.ID)
			}

			rb := p.cursor.cur()
			if !p.cursor.eat(syntax.RBracket) {
				p.report(diag.CodeExpectedToken, rb.Span, "]")
				p.recoverTo(syntax.RBracket, syntax.Question, syntax.Comma)
				p.cursor.eat(syntax.RBracket)
			}
			base.Span = text.Join(base.Span, rb.Span)
			continue
		}

		break
	}

	return base
}

func (p *Parser) parsePrimaryType() ParsedType {
	s := p.cursor.cur()

	// fn(...) -> R
	if p.cursor.at(syntax.KwFn) {
		p.cursor.bump()

		if !p.cursor.eat(syntax.LParen) {
			p.report(diag.CodeExpectedToken, p.cursor.cur().Span, "(")
			p.recoverTo(syntax.LParen, syntax.Arrow, syntax.RParen)
			p.cursor.eat(syntax.LParen)
		}

		var params []types.TypeID
		last := s.Span
		if !p.cursor.at(syntax.RParen) {
			for !p.cursor.at(syntax.RParen) && !p.cursor.atEOF() {
				pt := p.ParseType()
				if pt.ID != types.InvalidType {
					params = append(params, pt.ID)
				}
				if pt.Span.Hi != 0 {
					last = pt.Span
				}
				if p.cursor.eat(syntax.Comma) {
					if p.cursor.at(syntax.RParen) {
						break
					}
					continue
				}
				break
			}
		}
		_ = last

		rp := p.cursor.cur()
		if !p.cursor.eat(syntax.RParen) {
			p.report(diag.CodeExpectedToken, rp.Span, ")")
			p.recoverTo(syntax.RParen, syntax.Arrow, syntax.LBrace)
			p.cursor.eat(syntax.RParen)
		}

		if !p.cursor.at(syntax.Arrow) {
			p.report(diag.CodeExpectedToken, p.cursor.cur().Span, "->")
			p.recoverTo(syntax.Arrow, syntax.LBrace, syntax.Semicolon)
			p.cursor.eat(syntax.Arrow)
		} else {
			p.cursor.bump()
		}

		rt := p.ParseType()
		if rt.ID == types.InvalidType {
			rt.ID = p.pool.ErrorType()
		}

		return ParsedType{
			ID:   p.pool.MakeFn(rt.ID, params),
			Span: text.Join(s.Span, rt.Span),
		}
	}

	// ( Type )
	if p.cursor.at(syntax.LParen) {
		lp := p.cursor.bump()
		inner := p.ParseType()
		if inner.ID == types.InvalidType {
			inner.ID = p.pool.ErrorType()
		}
		rp := p.cursor.cur()
		if !p.cursor.eat(syntax.RParen) {
			p.report(diag.CodeExpectedToken, rp.Span, ")")
			p.recoverTo(syntax.RParen, syntax.Question, syntax.LBracket)
			p.cursor.eat(syntax.RParen)
		}
		return ParsedType{ID: inner.ID, Span: text.Join(lp.Span, rp.Span)}
	}

	// Ident type, possibly a dotted path
	if p.cursor.at(syntax.Ident) {
		name := p.cursor.bump()
		if !p.cursor.at(syntax.Dot) || p.cursor.peek(1).Kind != syntax.Ident {
			return ParsedType{ID: p.pool.InternIdent(name.Lexeme), Span: name.Span}
		}
		segs := []string{name.Lexeme}
		sp := name.Span
		for p.cursor.at(syntax.Dot) && p.cursor.peek(1).Kind == syntax.Ident {
			p.cursor.bump()
			seg := p.cursor.bump()
			segs = append(segs, seg.Lexeme)
			sp = text.Join(sp, seg.Span)
		}
		return ParsedType{ID: p.pool.InternPath(segs), Span: sp}
	}

	p.report(diag.CodeUnexpectedToken, s.Span, typeTokenLabel(s.Lexeme))
	if !p.cursor.atEOF() {
		p.cursor.bump()
	}
	return ParsedType{ID: p.pool.ErrorType(), Span: s.Span}
}

func typeTokenLabel(lexeme string) string {
	if lexeme == "" {
		return "type"
	}
	return lexeme
}
