package parse

import (
	"github.com/brant-lang/brant/ast"
	"github.com/brant-lang/brant/diag"
	"github.com/brant-lang/brant/syntax"
	"github.com/brant-lang/brant/text"
	"github.com/brant-lang/brant/types"
)

// parseFnDecl parses
//
//	[@attr]* [export] [pub|sub] [pure] [comptime]
//	fn name '(' params [',' '{' named-group params '}'] ')' ['->' Type] block
func (p *Parser) parseFnDecl() ast.StmtID {
	start := p.cursor.cur()

	// attributes
	var attrs []ast.Attr
	for p.cursor.at(syntax.At) {
		at := p.cursor.bump()
		nameTok := p.cursor.cur()
		if !p.expect(syntax.Ident) {
			break
		}
		attrs = append(attrs, ast.Attr{
			Name: nameTok.Lexeme,
			Span: text.Join(at.Span, nameTok.Span),
		})
	}

	s := ast.Stmt{Kind: ast.StmtFnDecl, FnRet: types.InvalidType}

	// qualifiers in any order before 'fn'
	for {
		switch p.cursor.cur().Kind {
		case syntax.KwExport:
			p.cursor.bump()
			s.IsExport = true
			continue
		case syntax.KwPub:
			p.cursor.bump()
			s.FnMode = ast.FnModePub
			continue
		case syntax.KwSub:
			p.cursor.bump()
			s.FnMode = ast.FnModeSub
			continue
		case syntax.KwPure:
			p.cursor.bump()
			s.IsPure = true
			continue
		case syntax.KwComptime:
			p.cursor.bump()
			s.IsComptime = true
			continue
		}
		break
	}

	if !p.expect(syntax.KwFn) {
		p.recoverTo()
		p.cursor.eat(syntax.Semicolon)
		s.Span = text.Join(start.Span, p.cursor.prev().Span)
		return p.arena.AddStmt(s)
	}

	nameTok := p.cursor.cur()
	if p.expect(syntax.Ident) {
		s.Name = nameTok.Lexeme
		s.NameSpan = nameTok.Span
	}

	// params
	p.expect(syntax.LParen)
	var params []ast.Param
	positional := uint32(0)
	hasNamedGroup := false

	if !p.cursor.at(syntax.RParen) {
		for !p.aborted {
			if p.cursor.at(syntax.LBrace) {
				// named-group parameter section
				hasNamedGroup = true
				p.cursor.bump()
				for !p.cursor.at(syntax.RBrace) && !p.cursor.atEOF() && !p.aborted {
					pr, ok := p.parseParam(true)
					if ok {
						params = append(params, pr)
					}
					if p.cursor.eat(syntax.Comma) {
						continue
					}
					break
				}
				p.expect(syntax.RBrace)
			} else {
				pr, ok := p.parseParam(false)
				if ok {
					if !hasNamedGroup {
						positional++
					}
					params = append(params, pr)
				}
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
	p.expect(syntax.RParen)

	// return type
	if p.cursor.eat(syntax.Arrow) {
		rt := p.ParseType()
		s.FnRet = rt.ID
	}

	body := p.parseBlock()
	s.A = body

	s.AttrBegin = uint32(len(p.arena.Attrs()))
	for _, a := range attrs {
		p.arena.AddAttr(a)
	}
	s.AttrCount = uint32(len(attrs))

	s.ParamBegin = uint32(len(p.arena.Params()))
	for _, pr := range params {
		p.arena.AddParam(pr)
	}
	s.ParamCount = uint32(len(params))
	s.PositionalParamCount = positional
	s.HasNamedGroup = hasNamedGroup

	s.Span = text.Join(start.Span, p.arena.Stmt(body).Span)
	return p.arena.AddStmt(s)
}

// parseParam parses "[mut] [self] name ':' Type ['=' default]".
func (p *Parser) parseParam(inNamedGroup bool) (ast.Param, bool) {
	var pr ast.Param
	pr.Type = types.InvalidType
	pr.DefaultExpr = ast.InvalidExpr
	pr.IsNamedGroup = inNamedGroup

	start := p.cursor.cur()

	if p.cursor.eat(syntax.KwMut) {
		pr.IsMut = true
	}
	if p.cursor.at(syntax.Ident) && p.cursor.cur().Lexeme == "self" &&
		p.cursor.peek(1).Kind == syntax.Ident {
		p.cursor.bump()
		pr.IsSelf = true
	}

	nameTok := p.cursor.cur()
	if !p.expect(syntax.Ident) {
		p.recoverTo(syntax.Comma, syntax.RParen, syntax.RBrace)
		return pr, false
	}
	pr.Name = nameTok.Lexeme

	if p.expect(syntax.Colon) {
		pt := p.ParseType()
		pr.Type = pt.ID
	}

	if p.cursor.eat(syntax.Assign) {
		pr.HasDefault = true
		pr.DefaultExpr = p.ParseExpr()
	}

	pr.Span = text.Join(start.Span, p.cursor.prev().Span)
	return pr, true
}

// parseFieldDecl parses "field Name '{' (Type name ';')* '}'".
func (p *Parser) parseFieldDecl() ast.StmtID {
	kw := p.cursor.bump() // 'field'

	s := ast.Stmt{Kind: ast.StmtFieldDecl}

	nameTok := p.cursor.cur()
	if p.expect(syntax.Ident) {
		s.Name = nameTok.Lexeme
		s.NameSpan = nameTok.Span
	}

	p.expect(syntax.LBrace)

	var members []ast.FieldMember
	for !p.cursor.at(syntax.RBrace) && !p.cursor.atEOF() && !p.aborted {
		mt := p.ParseType()
		mname := p.cursor.cur()
		if !p.expect(syntax.Ident) {
			p.recoverTo(syntax.RBrace)
			p.cursor.eat(syntax.Semicolon)
			continue
		}
		if !p.cursor.eat(syntax.Semicolon) {
			p.report(diag.CodeExpectedToken, p.cursor.cur().Span, ";")
			p.recoverTo(syntax.RBrace)
			p.cursor.eat(syntax.Semicolon)
		}
		members = append(members, ast.FieldMember{
			Type: mt.ID,
			Name: mname.Lexeme,
			Span: text.Join(mt.Span, mname.Span),
		})
	}

	rb := p.cursor.cur()
	p.expect(syntax.RBrace)

	s.FieldMemberBegin = uint32(len(p.arena.FieldMembers()))
	for _, m := range members {
		p.arena.AddFieldMember(m)
	}
	s.FieldMemberCount = uint32(len(members))

	s.Span = text.Join(kw.Span, rb.Span)
	return p.arena.AddStmt(s)
}

// parseActsDecl parses "acts Name ['for' Type] '{' fn-decl* '}'". Member
// functions become child statements of the decl's block.
func (p *Parser) parseActsDecl() ast.StmtID {
	kw := p.cursor.bump() // 'acts'

	s := ast.Stmt{Kind: ast.StmtActsDecl, ActsTargetType: types.InvalidType}

	nameTok := p.cursor.cur()
	if p.expect(syntax.Ident) {
		s.Name = nameTok.Lexeme
		s.NameSpan = nameTok.Span
	}

	if p.cursor.eat(syntax.KwFor) {
		s.ActsIsFor = true
		tt := p.ParseType()
		s.ActsTargetType = tt.ID
	}

	p.expect(syntax.LBrace)

	var fns []ast.StmtID
	for !p.cursor.at(syntax.RBrace) && !p.cursor.atEOF() && !p.aborted {
		if !p.cursor.at(syntax.KwFn) && !p.cursor.at(syntax.At) &&
			!p.cursor.at(syntax.KwPub) && !p.cursor.at(syntax.KwSub) &&
			!p.cursor.at(syntax.KwExport) {
			p.report(diag.CodeExpectedToken, p.cursor.cur().Span, "fn")
			p.recoverTo(syntax.KwFn, syntax.RBrace)
			if !p.cursor.at(syntax.KwFn) {
				break
			}
		}
		fns = append(fns, p.parseFnDecl())
	}

	rb := p.cursor.cur()
	p.expect(syntax.RBrace)

	s.StmtBegin = uint32(len(p.arena.StmtChildren()))
	for _, f := range fns {
		p.arena.AddStmtChild(f)
	}
	s.StmtCount = uint32(len(fns))

	s.Span = text.Join(kw.Span, rb.Span)
	return p.arena.AddStmt(s)
}

// parseUseDecl parses the alias forms:
//
//	use Name = Type ;          (type alias)
//	use A.B.C = name ;         (path alias)
func (p *Parser) parseUseDecl() ast.StmtID {
	kw := p.cursor.bump() // 'use'

	s := ast.Stmt{Kind: ast.StmtUse, UseKind: ast.UseError, Type: types.InvalidType}

	nameTok := p.cursor.cur()
	if !p.expect(syntax.Ident) {
		p.recoverTo()
		p.cursor.eat(syntax.Semicolon)
		s.Span = text.Join(kw.Span, p.cursor.prev().Span)
		return p.arena.AddStmt(s)
	}
	s.UseName = nameTok.Lexeme

	if p.cursor.at(syntax.Dot) {
		// path alias: use A.B = name;
		segs := []string{nameTok.Lexeme}
		for p.cursor.at(syntax.Dot) && p.cursor.peek(1).Kind == syntax.Ident {
			p.cursor.bump()
			segs = append(segs, p.cursor.bump().Lexeme)
		}
		s.UsePathBegin = uint32(len(p.arena.PathSegs()))
		for _, seg := range segs {
			p.arena.AddPathSeg(seg)
		}
		s.UsePathCount = uint32(len(segs))

		p.expect(syntax.Assign)
		rhs := p.cursor.cur()
		if p.expect(syntax.Ident) {
			s.UseRhsIdent = rhs.Lexeme
		}
		s.UseKind = ast.UsePathAlias
	} else {
		p.expect(syntax.Assign)
		pt := p.ParseType()
		s.Type = pt.ID
		s.UseKind = ast.UseTypeAlias
	}

	if !p.cursor.eat(syntax.Semicolon) {
		p.report(diag.CodeExpectedToken, p.cursor.cur().Span, ";")
		p.recoverTo()
		p.cursor.eat(syntax.Semicolon)
	}
	s.Span = text.Join(kw.Span, p.cursor.prev().Span)
	return p.arena.AddStmt(s)
}

// parseImportDecl parses "import name ['as' alias] ;".
func (p *Parser) parseImportDecl() ast.StmtID {
	kw := p.cursor.bump() // 'import'

	s := ast.Stmt{Kind: ast.StmtImport, UseKind: ast.UseImport}

	nameTok := p.cursor.cur()
	if p.expect(syntax.Ident) {
		s.Name = nameTok.Lexeme
		s.NameSpan = nameTok.Span
		s.UseName = nameTok.Lexeme
	}
	if p.cursor.eat(syntax.KwAs) {
		alias := p.cursor.cur()
		if p.expect(syntax.Ident) {
			s.UseRhsIdent = alias.Lexeme
		}
	}

	if !p.cursor.eat(syntax.Semicolon) {
		p.report(diag.CodeExpectedToken, p.cursor.cur().Span, ";")
		p.recoverTo()
		p.cursor.eat(syntax.Semicolon)
	}
	s.Span = text.Join(kw.Span, p.cursor.prev().Span)
	return p.arena.AddStmt(s)
}

// parseNestDecl parses "nest a.b ;" (file directive) or "nest a.b { items }".
func (p *Parser) parseNestDecl() ast.StmtID {
	kw := p.cursor.bump() // 'nest'

	s := ast.Stmt{Kind: ast.StmtNestDecl}

	var segs []string
	nameTok := p.cursor.cur()
	if p.expect(syntax.Ident) {
		segs = append(segs, nameTok.Lexeme)
		for p.cursor.at(syntax.Dot) && p.cursor.peek(1).Kind == syntax.Ident {
			p.cursor.bump()
			segs = append(segs, p.cursor.bump().Lexeme)
		}
	}
	s.NestPathBegin = uint32(len(p.arena.PathSegs()))
	for _, seg := range segs {
		p.arena.AddPathSeg(seg)
	}
	s.NestPathCount = uint32(len(segs))

	if p.cursor.at(syntax.LBrace) {
		body := p.parseBlock()
		s.A = body
		s.Span = text.Join(kw.Span, p.arena.Stmt(body).Span)
		return p.arena.AddStmt(s)
	}

	s.NestIsFileDirective = true
	if !p.cursor.eat(syntax.Semicolon) {
		p.report(diag.CodeExpectedToken, p.cursor.cur().Span, ";")
		p.recoverTo()
		p.cursor.eat(syntax.Semicolon)
	}
	s.Span = text.Join(kw.Span, p.cursor.prev().Span)
	return p.arena.AddStmt(s)
}
