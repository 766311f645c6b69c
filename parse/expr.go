package parse

import (
	"github.com/brant-lang/brant/ast"
	"github.com/brant-lang/brant/diag"
	"github.com/brant-lang/brant/lex"
	"github.com/brant-lang/brant/syntax"
	"github.com/brant-lang/brant/text"
)

// ParseExpr parses a full expression at the lowest precedence.
func (p *Parser) ParseExpr() ast.ExprID {
	return p.parseExprPratt(0, 0)
}

func isAssignOp(k syntax.TokenKind) bool {
	switch k {
	case syntax.Assign, syntax.PlusAssign, syntax.MinusAssign,
		syntax.StarAssign, syntax.SlashAssign, syntax.PercentAssign:
		return true
	}
	return false
}

func (p *Parser) parseExprPratt(minPrec, ternaryDepth int) ast.ExprID {
	lhs := p.parsePrefix(ternaryDepth)
	lhs = p.parsePostfix(lhs, ternaryDepth)

	for !p.aborted {
		tok := p.cursor.cur()

		// ternary ?: (non-nestable)
		if tok.Kind == syntax.Question && p.isTernaryQuestion() {
			if ternaryDepth > 0 {
				p.report(diag.CodeNestedTernaryNotAllowed, tok.Span)
				p.cursor.bump()
				continue
			}
			p.cursor.bump() // '?'
			thenE := p.parseExprPratt(0, ternaryDepth+1)
			p.expect(syntax.Colon)
			elseE := p.parseExprPratt(0, ternaryDepth+1)

			lhs = p.arena.AddExpr(ast.Expr{
				Kind: ast.ExprTernary,
				Span: p.spanJoin(p.exprSpan(lhs), p.exprSpan(elseE)),
				A:    lhs,
				B:    thenE,
				C:    elseE,
			})
			continue
		}

		info, ok := syntax.InfixInfoFor(tok.Kind)
		if !ok || info.Prec < minPrec {
			break
		}

		opTok := p.cursor.bump()
		nextMin := info.Prec + 1
		if info.Assoc == syntax.AssocRight {
			nextMin = info.Prec
		}

		rhs := p.parseExprPratt(nextMin, ternaryDepth)
		rhs = p.parsePostfix(rhs, ternaryDepth)

		kind := ast.ExprBinary
		if isAssignOp(opTok.Kind) {
			kind = ast.ExprAssign
		}
		lhs = p.arena.AddExpr(ast.Expr{
			Kind: kind,
			Op:   opTok.Kind,
			A:    lhs,
			B:    rhs,
			Span: p.spanJoin(p.exprSpan(lhs), p.exprSpan(rhs)),
		})
	}

	return lhs
}

// isTernaryQuestion distinguishes "cond ? a : b" from the postfix
// optional unwrap "x?". The unwrap form is consumed in parsePostfix;
// by the time the Pratt loop sees a '?' it is always ternary. Kept as a
// hook for future lookahead refinements.
func (p *Parser) isTernaryQuestion() bool { return true }

// canEndUnwrap lists tokens after which a '?' cannot start a ternary and
// is therefore the optional-unwrap postfix.
func canEndUnwrap(k syntax.TokenKind) bool {
	switch k {
	case syntax.Semicolon, syntax.RParen, syntax.RBracket, syntax.RBrace,
		syntax.Comma, syntax.Colon, syntax.Dot, syntax.EOF,
		syntax.EqEq, syntax.BangEq, syntax.Lt, syntax.LtEq, syntax.Gt, syntax.GtEq,
		syntax.Plus, syntax.Minus, syntax.Star, syntax.Slash, syntax.Percent,
		syntax.AmpAmp, syntax.PipePipe, syntax.KwAnd, syntax.KwOr, syntax.KwXor,
		syntax.Assign, syntax.LessLess, syntax.KwAs, syntax.Question:
		return true
	}
	return false
}

func (p *Parser) parsePrefix(ternaryDepth int) ast.ExprID {
	t := p.cursor.cur()

	// borrow '&' / '&mut' and escape '&&' prefix forms
	if t.Kind == syntax.Amp || t.Kind == syntax.AmpAmp {
		op := p.cursor.bump()
		isMut := false
		if op.Kind == syntax.Amp && p.cursor.eat(syntax.KwMut) {
			isMut = true
		}
		rhs := p.parsePrefix(ternaryDepth)
		rhs = p.parsePostfix(rhs, ternaryDepth)
		return p.arena.AddExpr(ast.Expr{
			Kind:       ast.ExprUnary,
			Op:         op.Kind,
			UnaryIsMut: isMut,
			A:          rhs,
			Span:       p.spanJoin(op.Span, p.exprSpan(rhs)),
		})
	}

	// deref '*p'
	if t.Kind == syntax.Star {
		op := p.cursor.bump()
		rhs := p.parsePrefix(ternaryDepth)
		rhs = p.parsePostfix(rhs, ternaryDepth)
		return p.arena.AddExpr(ast.Expr{
			Kind: ast.ExprUnary,
			Op:   op.Kind,
			A:    rhs,
			Span: p.spanJoin(op.Span, p.exprSpan(rhs)),
		})
	}

	if _, ok := syntax.PrefixInfoFor(t.Kind); ok {
		op := p.cursor.bump()
		rhs := p.parsePrefix(ternaryDepth)
		rhs = p.parsePostfix(rhs, ternaryDepth)
		return p.arena.AddExpr(ast.Expr{
			Kind: ast.ExprUnary,
			Op:   op.Kind,
			A:    rhs,
			Span: p.spanJoin(op.Span, p.exprSpan(rhs)),
		})
	}

	return p.parsePrimary(ternaryDepth)
}

func (p *Parser) litExpr(kind ast.ExprKind, t lex.Token) ast.ExprID {
	return p.arena.AddExpr(ast.Expr{Kind: kind, Span: t.Span, Text: t.Lexeme})
}

func (p *Parser) parsePrimary(ternaryDepth int) ast.ExprID {
	t := p.cursor.cur()

	switch t.Kind {
	case syntax.IntLit:
		p.cursor.bump()
		return p.litExpr(ast.ExprIntLit, t)
	case syntax.FloatLit:
		p.cursor.bump()
		return p.litExpr(ast.ExprFloatLit, t)
	case syntax.StringLit:
		p.cursor.bump()
		return p.litExpr(ast.ExprStringLit, t)
	case syntax.CharLit:
		p.cursor.bump()
		return p.litExpr(ast.ExprCharLit, t)
	case syntax.KwTrue, syntax.KwFalse:
		p.cursor.bump()
		return p.litExpr(ast.ExprBoolLit, t)
	case syntax.KwNull:
		p.cursor.bump()
		return p.litExpr(ast.ExprNullLit, t)
	case syntax.Ident:
		p.cursor.bump()
		return p.litExpr(ast.ExprIdent, t)
	case syntax.Hole:
		p.cursor.bump()
		return p.litExpr(ast.ExprHole, t)
	}

	// parenthesized
	if p.cursor.eat(syntax.LParen) {
		inner := p.parseExprPratt(0, ternaryDepth)
		p.expect(syntax.RParen)
		return inner
	}

	// array literal [e1, e2, ...]
	if t.Kind == syntax.LBracket {
		return p.parseArrayLit(ternaryDepth)
	}

	// loop (x in e) { ... } / loop { ... }
	if t.Kind == syntax.KwLoop {
		return p.parseLoopExpr(ternaryDepth)
	}

	// if-expression
	if t.Kind == syntax.KwIf {
		return p.parseIfExpr(ternaryDepth)
	}

	// block expression
	if t.Kind == syntax.LBrace {
		return p.parseBlockExpr(ternaryDepth)
	}

	// fallback: error node
	p.report(diag.CodeUnexpectedToken, t.Span, t.Lexeme)
	if !p.cursor.atEOF() {
		p.cursor.bump()
	}
	return p.arena.AddExpr(ast.Expr{Kind: ast.ExprError, Span: t.Span, Text: "<error>"})
}

func (p *Parser) parseArrayLit(ternaryDepth int) ast.ExprID {
	lb := p.cursor.bump() // '['

	var elems []ast.Arg
	if !p.cursor.at(syntax.RBracket) {
		for !p.aborted {
			e := p.parseExprPratt(0, ternaryDepth)
			elems = append(elems, ast.Arg{
				Kind: ast.ArgPositional,
				Expr: e,
				Span: p.exprSpan(e),
			})
			if p.cursor.eat(syntax.Comma) {
				if p.cursor.at(syntax.RBracket) {
					break
				}
				continue
			}
			break
		}
	}

	rb := p.cursor.cur()
	p.expect(syntax.RBracket)

	begin := uint32(len(p.arena.Args()))
	for _, a := range elems {
		p.arena.AddArg(a)
	}
	return p.arena.AddExpr(ast.Expr{
		Kind:     ast.ExprArrayLit,
		Span:     p.spanJoin(lb.Span, rb.Span),
		ArgBegin: begin,
		ArgCount: uint32(len(elems)),
	})
}

func (p *Parser) parseLoopExpr(ternaryDepth int) ast.ExprID {
	kw := p.cursor.bump() // 'loop'

	e := ast.Expr{Kind: ast.ExprLoop, Span: kw.Span}

	if p.cursor.eat(syntax.LParen) {
		nameTok := p.cursor.cur()
		if p.expect(syntax.Ident) {
			e.LoopHasHeader = true
			e.LoopVar = nameTok.Lexeme
			e.LoopVarSpan = nameTok.Span
		}
		p.expect(syntax.KwIn)
		e.LoopIter = p.parseExprPratt(0, ternaryDepth)
		p.expect(syntax.RParen)
	} else {
		e.LoopIter = ast.InvalidExpr
	}

	e.LoopBody = p.parseBlock()
	if e.LoopBody != ast.InvalidStmt {
		e.Span = p.spanJoin(kw.Span, p.arena.Stmt(e.LoopBody).Span)
	}
	if !e.LoopHasHeader {
		e.LoopIter = ast.InvalidExpr
	}
	return p.arena.AddExpr(e)
}

func (p *Parser) parseIfExpr(ternaryDepth int) ast.ExprID {
	kw := p.cursor.bump() // 'if'
	p.expect(syntax.LParen)
	cond := p.parseExprPratt(0, ternaryDepth)
	p.expect(syntax.RParen)

	thenE := p.parseBlockExpr(ternaryDepth)

	elseE := ast.InvalidExpr
	if p.cursor.at(syntax.KwElif) {
		// rewrite "elif" into a nested if-expression
		elifTok := p.cursor.cur()
		p.cursor.bump()
		// push the elif back through the same path by re-parsing as if
		elseE = p.parseIfExprAfterKeyword(elifTok.Span, ternaryDepth)
	} else if p.cursor.eat(syntax.KwElse) {
		if p.cursor.at(syntax.KwIf) {
			elseE = p.parseIfExpr(ternaryDepth)
		} else {
			elseE = p.parseBlockExpr(ternaryDepth)
		}
	}

	sp := kw.Span
	if elseE != ast.InvalidExpr {
		sp = p.spanJoin(sp, p.exprSpan(elseE))
	} else {
		sp = p.spanJoin(sp, p.exprSpan(thenE))
	}
	return p.arena.AddExpr(ast.Expr{
		Kind: ast.ExprIfExpr,
		Span: sp,
		A:    cond,
		B:    thenE,
		C:    elseE,
	})
}

func (p *Parser) parseIfExprAfterKeyword(kwSpan text.Span, ternaryDepth int) ast.ExprID {
	p.expect(syntax.LParen)
	cond := p.parseExprPratt(0, ternaryDepth)
	p.expect(syntax.RParen)

	thenE := p.parseBlockExpr(ternaryDepth)

	elseE := ast.InvalidExpr
	if p.cursor.at(syntax.KwElif) {
		tok := p.cursor.bump()
		elseE = p.parseIfExprAfterKeyword(tok.Span, ternaryDepth)
	} else if p.cursor.eat(syntax.KwElse) {
		elseE = p.parseBlockExpr(ternaryDepth)
	}

	sp := kwSpan
	if elseE != ast.InvalidExpr {
		sp = p.spanJoin(sp, p.exprSpan(elseE))
	} else {
		sp = p.spanJoin(sp, p.exprSpan(thenE))
	}
	return p.arena.AddExpr(ast.Expr{
		Kind: ast.ExprIfExpr,
		Span: sp,
		A:    cond,
		B:    thenE,
		C:    elseE,
	})
}

func (p *Parser) parseBlockExpr(ternaryDepth int) ast.ExprID {
	_ = ternaryDepth
	blk := p.parseBlock()
	e := ast.Expr{Kind: ast.ExprBlockExpr, B: ast.InvalidExpr, LoopBody: blk}
	if blk != ast.InvalidStmt {
		e.Span = p.arena.Stmt(blk).Span
	} else {
		e.Span = p.cursor.cur().Span
	}
	return p.arena.AddExpr(e)
}

func (p *Parser) parsePostfix(base ast.ExprID, ternaryDepth int) ast.ExprID {
	for !p.aborted {
		t := p.cursor.cur()

		switch t.Kind {
		case syntax.LParen:
			p.cursor.bump()
			base = p.parseCall(base, ternaryDepth)
			continue

		case syntax.LBracket:
			p.cursor.bump()
			base = p.parseIndex(base, ternaryDepth)
			continue

		case syntax.Dot:
			p.cursor.bump()
			nameTok := p.cursor.cur()
			if !p.expect(syntax.Ident) {
				return base
			}
			base = p.arena.AddExpr(ast.Expr{
				Kind: ast.ExprField,
				A:    base,
				Text: nameTok.Lexeme,
				Span: p.spanJoin(p.exprSpan(base), nameTok.Span),
			})
			continue

		case syntax.PlusPlus:
			op := p.cursor.bump()
			base = p.arena.AddExpr(ast.Expr{
				Kind: ast.ExprPostfixUnary,
				Op:   op.Kind,
				A:    base,
				Span: p.spanJoin(p.exprSpan(base), op.Span),
			})
			continue

		case syntax.Question:
			// optional unwrap "x?" only when what follows cannot continue
			// a ternary arm; otherwise leave '?' for the Pratt loop
			if canEndUnwrap(p.cursor.peek(1).Kind) {
				op := p.cursor.bump()
				base = p.arena.AddExpr(ast.Expr{
					Kind: ast.ExprPostfixUnary,
					Op:   op.Kind,
					A:    base,
					Span: p.spanJoin(p.exprSpan(base), op.Span),
				})
				continue
			}

		case syntax.KwAs:
			p.cursor.bump()
			kind := ast.CastAs
			if p.cursor.eat(syntax.Question) {
				kind = ast.CastOptional
			} else if p.cursor.eat(syntax.Bang) {
				kind = ast.CastForce
			}
			pt := p.ParseType()
			base = p.arena.AddExpr(ast.Expr{
				Kind:     ast.ExprCast,
				A:        base,
				CastType: pt.ID,
				CastKind: kind,
				Span:     p.spanJoin(p.exprSpan(base), pt.Span),
			})
			continue
		}

		break
	}

	return base
}

func (p *Parser) parseArg(ternaryDepth int) ast.Arg {
	var a ast.Arg
	first := p.cursor.cur()

	// named-group: '{' entries '}'
	if first.Kind == syntax.LBrace {
		return p.parseNamedGroup(ternaryDepth)
	}

	// labeled arg: Ident ':' (Expr | Hole)
	if first.Kind == syntax.Ident && p.cursor.peek(1).Kind == syntax.Colon {
		p.cursor.bump() // label
		p.cursor.bump() // ':'
		a.Kind = ast.ArgLabeled
		a.HasLabel = true
		a.Label = first.Lexeme

		next := p.cursor.cur()
		if next.Kind == syntax.Hole {
			p.cursor.bump()
			a.IsHole = true
			a.Expr = ast.InvalidExpr
			a.Span = p.spanJoin(first.Span, next.Span)
			return a
		}

		a.Expr = p.parseExprPratt(0, ternaryDepth)
		a.Span = p.spanJoin(first.Span, p.exprSpan(a.Expr))
		return a
	}

	// positional
	a.Kind = ast.ArgPositional
	a.Expr = p.parseExprPratt(0, ternaryDepth)
	a.Span = p.exprSpan(a.Expr)
	return a
}

// parseNamedGroup parses a call-site "{ name: expr, ... }" group. A
// nested named-group inside one is reported and skipped.
func (p *Parser) parseNamedGroup(ternaryDepth int) ast.Arg {
	lb := p.cursor.bump() // '{'

	var children []ast.Arg
	if !p.cursor.at(syntax.RBrace) {
		for !p.aborted {
			if p.cursor.at(syntax.LBrace) {
				p.report(diag.CodeNestedNamedGroupNotAllowed, p.cursor.cur().Span)
				p.recoverTo(syntax.RBrace, syntax.Comma)
				p.cursor.eat(syntax.RBrace)
			} else {
				children = append(children, p.parseArg(ternaryDepth))
			}
			if p.cursor.eat(syntax.Comma) {
				if p.cursor.at(syntax.RBrace) {
					break
				}
				continue
			}
			break
		}
	}

	rb := p.cursor.cur()
	p.expect(syntax.RBrace)

	begin := uint32(len(p.arena.NamedGroupArgs()))
	for _, c := range children {
		p.arena.AddNamedGroupArg(c)
	}

	return ast.Arg{
		Kind:       ast.ArgNamedGroup,
		ChildBegin: begin,
		ChildCount: uint32(len(children)),
		Expr:       ast.InvalidExpr,
		Span:       p.spanJoin(lb.Span, rb.Span),
	}
}

func (p *Parser) parseCall(callee ast.ExprID, ternaryDepth int) ast.ExprID {
	var parsed []ast.Arg
	if !p.cursor.at(syntax.RParen) {
		for !p.aborted {
			parsed = append(parsed, p.parseArg(ternaryDepth))
			if p.cursor.eat(syntax.Comma) {
				if p.cursor.at(syntax.RParen) {
					break
				}
				continue
			}
			break
		}
	}

	rp := p.cursor.cur()
	p.expect(syntax.RParen)

	begin := uint32(len(p.arena.Args()))
	for _, a := range parsed {
		p.arena.AddArg(a)
	}

	return p.arena.AddExpr(ast.Expr{
		Kind:     ast.ExprCall,
		Span:     p.spanJoin(p.exprSpan(callee), rp.Span),
		A:        callee,
		ArgBegin: begin,
		ArgCount: uint32(len(parsed)),
	})
}

func (p *Parser) parseIndex(base ast.ExprID, ternaryDepth int) ast.ExprID {
	idx := p.parseExprPratt(0, ternaryDepth)

	// range subscript: a[lo .. hi] / a[lo ..: hi]
	if p.cursor.at(syntax.DotDot) || p.cursor.at(syntax.DotDotColon) {
		op := p.cursor.bump()
		hi := p.parseExprPratt(0, ternaryDepth)
		idx = p.arena.AddExpr(ast.Expr{
			Kind: ast.ExprBinary,
			Op:   op.Kind,
			A:    idx,
			B:    hi,
			Span: p.spanJoin(p.exprSpan(idx), p.exprSpan(hi)),
		})
	}

	rb := p.cursor.cur()
	p.expect(syntax.RBracket)

	return p.arena.AddExpr(ast.Expr{
		Kind: ast.ExprIndex,
		Span: p.spanJoin(p.exprSpan(base), rb.Span),
		A:    base,
		B:    idx,
	})
}
