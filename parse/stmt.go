package parse

import (
	"github.com/brant-lang/brant/ast"
	"github.com/brant-lang/brant/diag"
	"github.com/brant-lang/brant/syntax"
	"github.com/brant-lang/brant/text"
	"github.com/brant-lang/brant/types"
)

// parseStmt dispatches one statement or declaration.
func (p *Parser) parseStmt() ast.StmtID {
	t := p.cursor.cur()

	switch t.Kind {
	case syntax.Semicolon:
		p.cursor.bump()
		return p.arena.AddStmt(ast.Stmt{Kind: ast.StmtEmpty, Span: t.Span})

	case syntax.LBrace:
		return p.parseBlock()

	case syntax.KwLet, syntax.KwSet, syntax.KwStatic:
		return p.parseVarStmt()

	case syntax.KwIf:
		return p.parseIfStmt()

	case syntax.KwWhile:
		return p.parseWhileStmt()

	case syntax.KwDo:
		return p.parseDoStmt()

	case syntax.KwReturn:
		return p.parseReturnStmt()

	case syntax.KwBreak, syntax.KwContinue:
		return p.parseBreakContinue()

	case syntax.KwSwitch:
		return p.parseSwitchStmt()

	case syntax.At, syntax.KwExport, syntax.KwPub, syntax.KwSub,
		syntax.KwPure, syntax.KwComptime, syntax.KwFn:
		return p.parseFnDecl()

	case syntax.KwField:
		return p.parseFieldDecl()

	case syntax.KwActs:
		return p.parseActsDecl()

	case syntax.KwUse:
		return p.parseUseDecl()

	case syntax.KwImport:
		return p.parseImportDecl()

	case syntax.KwNest:
		return p.parseNestDecl()
	}

	// expression statement
	e := p.ParseExpr()
	sp := p.exprSpan(e)
	if !p.cursor.eat(syntax.Semicolon) {
		p.report(diag.CodeExpectedToken, p.cursor.cur().Span, ";")
		p.recoverTo()
		p.cursor.eat(syntax.Semicolon)
	}
	return p.arena.AddStmt(ast.Stmt{Kind: ast.StmtExpr, Span: sp, Expr: e})
}

// parseBlock parses '{' stmt* '}' into a block statement.
func (p *Parser) parseBlock() ast.StmtID {
	lb := p.cursor.cur()
	if !p.expect(syntax.LBrace) {
		p.recoverTo(syntax.LBrace)
		if !p.cursor.eat(syntax.LBrace) {
			return p.arena.AddStmt(ast.Stmt{Kind: ast.StmtError, Span: lb.Span})
		}
	}

	var children []ast.StmtID
	for !p.cursor.at(syntax.RBrace) && !p.cursor.atEOF() && !p.aborted {
		before := p.cursor.pos
		sid := p.parseStmt()
		if sid != ast.InvalidStmt {
			children = append(children, sid)
		}
		if p.cursor.pos == before {
			p.cursor.bump()
		}
	}

	rb := p.cursor.cur()
	p.expect(syntax.RBrace)

	begin := uint32(len(p.arena.StmtChildren()))
	for _, c := range children {
		p.arena.AddStmtChild(c)
	}

	return p.arena.AddStmt(ast.Stmt{
		Kind:      ast.StmtBlock,
		Span:      text.Join(lb.Span, rb.Span),
		StmtBegin: begin,
		StmtCount: uint32(len(children)),
	})
}

func (p *Parser) parseVarStmt() ast.StmtID {
	kw := p.cursor.bump() // let / set / static

	s := ast.Stmt{Kind: ast.StmtVar, Span: kw.Span, Type: types.InvalidType, Init: ast.InvalidExpr}
	switch kw.Kind {
	case syntax.KwSet:
		s.IsSet = true
	case syntax.KwStatic:
		s.IsStatic = true
	}

	if p.cursor.eat(syntax.KwMut) {
		s.IsMut = true
	}

	nameTok := p.cursor.cur()
	if nameTok.Kind == syntax.Hole {
		// "let _: T = e;" discard binding
		p.cursor.bump()
		s.Name = "_"
		s.NameSpan = nameTok.Span
	} else if p.expect(syntax.Ident) {
		s.Name = nameTok.Lexeme
		s.NameSpan = nameTok.Span
	} else {
		p.recoverTo()
		p.cursor.eat(syntax.Semicolon)
		s.Span = text.Join(kw.Span, p.cursor.prev().Span)
		return p.arena.AddStmt(s)
	}

	if p.cursor.eat(syntax.Colon) {
		pt := p.ParseType()
		s.Type = pt.ID
	}

	if p.cursor.eat(syntax.Assign) {
		s.Init = p.ParseExpr()
	}

	end := p.cursor.cur()
	if !p.cursor.eat(syntax.Semicolon) {
		p.report(diag.CodeExpectedToken, end.Span, ";")
		p.recoverTo()
		p.cursor.eat(syntax.Semicolon)
	}
	s.Span = text.Join(kw.Span, p.cursor.prev().Span)
	return p.arena.AddStmt(s)
}

func (p *Parser) parseIfStmt() ast.StmtID {
	kw := p.cursor.bump() // 'if'
	p.expect(syntax.LParen)
	cond := p.ParseExpr()
	p.expect(syntax.RParen)

	thenB := p.parseBlock()

	elseB := ast.InvalidStmt
	if p.cursor.at(syntax.KwElif) {
		// elif chains as an if-statement in the else slot
		p.cursor.bump()
		elseB = p.parseIfTail(p.cursor.prev().Span)
	} else if p.cursor.eat(syntax.KwElse) {
		if p.cursor.at(syntax.KwIf) {
			elseB = p.parseIfStmt()
		} else {
			elseB = p.parseBlock()
		}
	}

	sp := text.Join(kw.Span, p.arena.Stmt(thenB).Span)
	if elseB != ast.InvalidStmt {
		sp = text.Join(sp, p.arena.Stmt(elseB).Span)
	}
	return p.arena.AddStmt(ast.Stmt{
		Kind: ast.StmtIf,
		Span: sp,
		Expr: cond,
		A:    thenB,
		B:    elseB,
	})
}

// parseIfTail parses the remainder of an if/elif statement after its
// keyword has been consumed.
func (p *Parser) parseIfTail(kwSpan text.Span) ast.StmtID {
	p.expect(syntax.LParen)
	cond := p.ParseExpr()
	p.expect(syntax.RParen)

	thenB := p.parseBlock()

	elseB := ast.InvalidStmt
	if p.cursor.at(syntax.KwElif) {
		p.cursor.bump()
		elseB = p.parseIfTail(p.cursor.prev().Span)
	} else if p.cursor.eat(syntax.KwElse) {
		if p.cursor.at(syntax.KwIf) {
			elseB = p.parseIfStmt()
		} else {
			elseB = p.parseBlock()
		}
	}

	sp := text.Join(kwSpan, p.arena.Stmt(thenB).Span)
	if elseB != ast.InvalidStmt {
		sp = text.Join(sp, p.arena.Stmt(elseB).Span)
	}
	return p.arena.AddStmt(ast.Stmt{
		Kind: ast.StmtIf,
		Span: sp,
		Expr: cond,
		A:    thenB,
		B:    elseB,
	})
}

func (p *Parser) parseWhileStmt() ast.StmtID {
	kw := p.cursor.bump() // 'while'
	p.expect(syntax.LParen)
	cond := p.ParseExpr()
	p.expect(syntax.RParen)

	body := p.parseBlock()

	return p.arena.AddStmt(ast.Stmt{
		Kind: ast.StmtWhile,
		Span: text.Join(kw.Span, p.arena.Stmt(body).Span),
		Expr: cond,
		A:    body,
	})
}

func (p *Parser) parseDoStmt() ast.StmtID {
	kw := p.cursor.bump() // 'do'
	body := p.parseBlock()

	// do { } while (cond);
	if p.cursor.eat(syntax.KwWhile) {
		p.expect(syntax.LParen)
		cond := p.ParseExpr()
		p.expect(syntax.RParen)
		if !p.cursor.eat(syntax.Semicolon) {
			p.report(diag.CodeExpectedToken, p.cursor.cur().Span, ";")
			p.recoverTo()
			p.cursor.eat(syntax.Semicolon)
		}
		return p.arena.AddStmt(ast.Stmt{
			Kind: ast.StmtDoWhile,
			Span: text.Join(kw.Span, p.cursor.prev().Span),
			Expr: cond,
			A:    body,
		})
	}

	return p.arena.AddStmt(ast.Stmt{
		Kind: ast.StmtDoScope,
		Span: text.Join(kw.Span, p.arena.Stmt(body).Span),
		A:    body,
	})
}

func (p *Parser) parseReturnStmt() ast.StmtID {
	kw := p.cursor.bump() // 'return'

	e := ast.InvalidExpr
	if !p.cursor.at(syntax.Semicolon) {
		e = p.ParseExpr()
	}
	if !p.cursor.eat(syntax.Semicolon) {
		p.report(diag.CodeExpectedToken, p.cursor.cur().Span, ";")
		p.recoverTo()
		p.cursor.eat(syntax.Semicolon)
	}
	return p.arena.AddStmt(ast.Stmt{
		Kind: ast.StmtReturn,
		Span: text.Join(kw.Span, p.cursor.prev().Span),
		Expr: e,
	})
}

func (p *Parser) parseBreakContinue() ast.StmtID {
	kw := p.cursor.bump()

	kind := ast.StmtBreak
	if kw.Kind == syntax.KwContinue {
		kind = ast.StmtContinue
	}

	e := ast.InvalidExpr
	if kind == ast.StmtBreak && !p.cursor.at(syntax.Semicolon) {
		e = p.ParseExpr()
	}
	if !p.cursor.eat(syntax.Semicolon) {
		p.report(diag.CodeExpectedToken, p.cursor.cur().Span, ";")
		p.recoverTo()
		p.cursor.eat(syntax.Semicolon)
	}
	return p.arena.AddStmt(ast.Stmt{
		Kind: kind,
		Span: text.Join(kw.Span, p.cursor.prev().Span),
		Expr: e,
	})
}

func casePatKindOf(k syntax.TokenKind) ast.CasePatKind {
	switch k {
	case syntax.IntLit:
		return ast.CasePatInt
	case syntax.CharLit:
		return ast.CasePatChar
	case syntax.StringLit:
		return ast.CasePatString
	case syntax.KwTrue, syntax.KwFalse:
		return ast.CasePatBool
	case syntax.KwNull:
		return ast.CasePatNull
	case syntax.Ident:
		return ast.CasePatIdent
	}
	return ast.CasePatError
}

func (p *Parser) parseSwitchStmt() ast.StmtID {
	kw := p.cursor.bump() // 'switch'
	p.expect(syntax.LParen)
	subject := p.ParseExpr()
	p.expect(syntax.RParen)

	p.expect(syntax.LBrace)

	var cases []ast.SwitchCase
	hasDefault := false
	for !p.cursor.at(syntax.RBrace) && !p.cursor.atEOF() && !p.aborted {
		if p.cursor.at(syntax.KwCase) {
			ck := p.cursor.bump()
			patTok := p.cursor.cur()
			pk := casePatKindOf(patTok.Kind)
			if pk == ast.CasePatError {
				p.report(diag.CodeUnexpectedToken, patTok.Span, patTok.Lexeme)
			}
			p.cursor.bump()
			p.expect(syntax.Colon)
			body := p.parseBlock()
			cases = append(cases, ast.SwitchCase{
				PatKind: pk,
				PatText: patTok.Lexeme,
				Body:    body,
				Span:    text.Join(ck.Span, p.arena.Stmt(body).Span),
			})
			continue
		}
		if p.cursor.at(syntax.KwDefault) {
			dk := p.cursor.bump()
			p.expect(syntax.Colon)
			body := p.parseBlock()
			hasDefault = true
			cases = append(cases, ast.SwitchCase{
				IsDefault: true,
				Body:      body,
				Span:      text.Join(dk.Span, p.arena.Stmt(body).Span),
			})
			continue
		}

		p.report(diag.CodeExpectedToken, p.cursor.cur().Span, "case")
		p.recoverTo(syntax.KwCase, syntax.KwDefault, syntax.RBrace)
		if p.cursor.at(syntax.Semicolon) {
			p.cursor.bump()
		}
		if !p.cursor.at(syntax.KwCase) && !p.cursor.at(syntax.KwDefault) && !p.cursor.at(syntax.RBrace) {
			break
		}
	}

	rb := p.cursor.cur()
	p.expect(syntax.RBrace)

	begin := uint32(len(p.arena.SwitchCases()))
	for _, c := range cases {
		p.arena.AddSwitchCase(c)
	}

	return p.arena.AddStmt(ast.Stmt{
		Kind:       ast.StmtSwitch,
		Span:       text.Join(kw.Span, rb.Span),
		Expr:       subject,
		CaseBegin:  begin,
		CaseCount:  uint32(len(cases)),
		HasDefault: hasDefault,
	})
}
