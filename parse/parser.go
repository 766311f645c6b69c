// Package parse builds the AST arena from a token vector: a recursive
// statement/declaration parser over a Pratt expression core. On an
// expected-token failure the parser reports, then skips to the nearest
// matching closer, statement boundary, or EOF while tracking bracket
// depth. Duplicate diagnostics at the same (code, position) are
// suppressed, and after MaxErrors a single terminal diagnostic is issued
// and parsing aborts.
package parse

import (
	"github.com/brant-lang/brant/ast"
	"github.com/brant-lang/brant/diag"
	"github.com/brant-lang/brant/lex"
	"github.com/brant-lang/brant/syntax"
	"github.com/brant-lang/brant/text"
	"github.com/brant-lang/brant/types"
)

// DefaultMaxErrors caps parser diagnostics before the terminal abort.
const DefaultMaxErrors = 256

// Parser consumes one token vector into an arena.
type Parser struct {
	cursor cursor
	arena  *ast.Arena
	pool   *types.Pool
	bag    *diag.Bag

	maxErrors  int
	errorCount int
	aborted    bool

	seenDiags map[diagKey]struct{}
}

type diagKey struct {
	code diag.Code
	span text.Span
}

// New builds a parser. bag may be nil for silent parses.
func New(toks []lex.Token, arena *ast.Arena, pool *types.Pool, bag *diag.Bag, maxErrors int) *Parser {
	if maxErrors <= 0 {
		maxErrors = DefaultMaxErrors
	}
	return &Parser{
		cursor:    newCursor(toks),
		arena:     arena,
		pool:      pool,
		bag:       bag,
		maxErrors: maxErrors,
		seenDiags: make(map[diagKey]struct{}),
	}
}

// Aborted reports whether the parser hit the error cap.
func (p *Parser) Aborted() bool { return p.aborted }

func (p *Parser) report(code diag.Code, sp text.Span, args ...string) {
	if p.aborted {
		return
	}
	key := diagKey{code, sp}
	if _, dup := p.seenDiags[key]; dup {
		return
	}
	p.seenDiags[key] = struct{}{}

	p.errorCount++
	if p.bag != nil {
		d := diag.New(diag.SeverityError, code, sp)
		for _, a := range args {
			d = d.WithArg(a)
		}
		p.bag.Add(d)
	}

	if p.errorCount >= p.maxErrors {
		p.aborted = true
		if p.bag != nil {
			p.bag.Add(diag.New(diag.SeverityError, diag.CodeTooManyErrors, sp).
				WithArgInt(p.errorCount))
		}
	}
}

func (p *Parser) expect(k syntax.TokenKind) bool {
	if p.cursor.eat(k) {
		return true
	}
	t := p.cursor.cur()
	p.report(diag.CodeExpectedToken, t.Span, k.String())
	return false
}

// recoverTo skips tokens until one of the wanted kinds appears at the
// current bracket depth, or until a statement boundary ';' or EOF. Depth
// is tracked across all three bracket pairs so a closer inside a nested
// group never terminates recovery for the outer one.
func (p *Parser) recoverTo(wanted ...syntax.TokenKind) {
	depth := 0
	for !p.cursor.atEOF() {
		k := p.cursor.cur().Kind

		if depth == 0 {
			for _, w := range wanted {
				if k == w {
					return
				}
			}
			if k == syntax.Semicolon {
				return
			}
		}

		switch k {
		case syntax.LParen, syntax.LBracket, syntax.LBrace:
			depth++
		case syntax.RParen, syntax.RBracket, syntax.RBrace:
			if depth == 0 {
				return // unmatched closer belongs to an enclosing construct
			}
			depth--
		}
		p.cursor.bump()
	}
}

// ParseProgram parses the whole token vector into a root block whose
// children are the top-level items. It always returns a valid root, even
// for an empty or aborted parse.
func (p *Parser) ParseProgram() ast.StmtID {
	var items []ast.StmtID
	startSpan := p.cursor.cur().Span

	for !p.cursor.atEOF() && !p.aborted {
		before := p.cursor.pos
		sid := p.parseStmt()
		if sid != ast.InvalidStmt {
			items = append(items, sid)
		}
		if p.cursor.pos == before {
			// no progress: drop one token so the loop terminates
			p.cursor.bump()
		}
	}

	begin := uint32(len(p.arena.StmtChildren()))
	for _, sid := range items {
		p.arena.AddStmtChild(sid)
	}

	root := ast.Stmt{
		Kind:      ast.StmtBlock,
		StmtBegin: begin,
		StmtCount: uint32(len(items)),
	}
	if len(items) > 0 {
		root.Span = text.Join(p.arena.Stmt(items[0]).Span, p.arena.Stmt(items[len(items)-1]).Span)
	} else {
		root.Span = startSpan
	}
	return p.arena.AddStmt(root)
}

func (p *Parser) spanJoin(a, b text.Span) text.Span { return text.Join(a, b) }

func (p *Parser) exprSpan(id ast.ExprID) text.Span {
	if id == ast.InvalidExpr {
		return p.cursor.cur().Span
	}
	return p.arena.Expr(id).Span
}
