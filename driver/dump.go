package driver

import (
	"fmt"
	"io"
	"strings"

	"github.com/brant-lang/brant/ast"
	"github.com/brant-lang/brant/lex"
	"github.com/brant-lang/brant/oir"
	"github.com/brant-lang/brant/sir"
	"github.com/brant-lang/brant/types"
)

// DumpTokens prints one token per line.
func DumpTokens(w io.Writer, toks []lex.Token) {
	for _, t := range toks {
		fmt.Fprintf(w, "%-14s [%d,%d) %q\n", t.Kind, t.Span.Lo, t.Span.Hi, t.Lexeme)
	}
}

// DumpAST prints the statement tree with indentation.
func DumpAST(w io.Writer, arena *ast.Arena, pool *types.Pool, root ast.StmtID) {
	dumpStmt(w, arena, pool, root, 0)
}

func indent(w io.Writer, depth int) {
	io.WriteString(w, strings.Repeat("  ", depth))
}

func dumpStmt(w io.Writer, arena *ast.Arena, pool *types.Pool, sid ast.StmtID, depth int) {
	if sid == ast.InvalidStmt {
		return
	}
	s := arena.Stmt(sid)
	indent(w, depth)

	switch s.Kind {
	case ast.StmtBlock:
		fmt.Fprintf(w, "block (%d stmts)\n", s.StmtCount)
		for _, c := range arena.BlockChildren(s) {
			dumpStmt(w, arena, pool, c, depth+1)
		}
	case ast.StmtFnDecl:
		fmt.Fprintf(w, "fn %s (%d params)", s.Name, s.ParamCount)
		if s.FnRet != types.InvalidType {
			fmt.Fprintf(w, " -> %s", pool.String(s.FnRet))
		}
		io.WriteString(w, "\n")
		dumpStmt(w, arena, pool, s.A, depth+1)
	case ast.StmtVar:
		kw := "let"
		if s.IsSet {
			kw = "set"
		}
		if s.IsStatic {
			kw = "static"
		}
		fmt.Fprintf(w, "%s %s", kw, s.Name)
		if s.Type != types.InvalidType {
			fmt.Fprintf(w, ": %s", pool.String(s.Type))
		}
		io.WriteString(w, "\n")
		dumpExpr(w, arena, pool, s.Init, depth+1)
	case ast.StmtExpr:
		io.WriteString(w, "expr\n")
		dumpExpr(w, arena, pool, s.Expr, depth+1)
	case ast.StmtReturn:
		io.WriteString(w, "return\n")
		dumpExpr(w, arena, pool, s.Expr, depth+1)
	case ast.StmtIf:
		io.WriteString(w, "if\n")
		dumpExpr(w, arena, pool, s.Expr, depth+1)
		dumpStmt(w, arena, pool, s.A, depth+1)
		dumpStmt(w, arena, pool, s.B, depth+1)
	case ast.StmtWhile:
		io.WriteString(w, "while\n")
		dumpExpr(w, arena, pool, s.Expr, depth+1)
		dumpStmt(w, arena, pool, s.A, depth+1)
	default:
		fmt.Fprintf(w, "stmt#%d kind=%d\n", sid, s.Kind)
	}
}

func dumpExpr(w io.Writer, arena *ast.Arena, pool *types.Pool, eid ast.ExprID, depth int) {
	if eid == ast.InvalidExpr {
		return
	}
	e := arena.Expr(eid)
	indent(w, depth)

	switch e.Kind {
	case ast.ExprIntLit, ast.ExprFloatLit, ast.ExprStringLit,
		ast.ExprCharLit, ast.ExprBoolLit, ast.ExprNullLit:
		fmt.Fprintf(w, "lit %q\n", e.Text)
	case ast.ExprIdent:
		fmt.Fprintf(w, "ident %s\n", e.Text)
	case ast.ExprBinary, ast.ExprAssign:
		fmt.Fprintf(w, "binary %s\n", e.Op)
		dumpExpr(w, arena, pool, e.A, depth+1)
		dumpExpr(w, arena, pool, e.B, depth+1)
	case ast.ExprUnary, ast.ExprPostfixUnary:
		fmt.Fprintf(w, "unary %s\n", e.Op)
		dumpExpr(w, arena, pool, e.A, depth+1)
	case ast.ExprCall:
		fmt.Fprintf(w, "call (%d args)\n", e.ArgCount)
		dumpExpr(w, arena, pool, e.A, depth+1)
		for i := range arena.CallArgs(e) {
			a := arena.CallArgs(e)[i]
			if !a.IsHole && a.Expr != ast.InvalidExpr {
				dumpExpr(w, arena, pool, a.Expr, depth+1)
			}
		}
	case ast.ExprIndex:
		io.WriteString(w, "index\n")
		dumpExpr(w, arena, pool, e.A, depth+1)
		dumpExpr(w, arena, pool, e.B, depth+1)
	case ast.ExprCast:
		fmt.Fprintf(w, "cast -> %s\n", pool.String(e.CastType))
		dumpExpr(w, arena, pool, e.A, depth+1)
	default:
		fmt.Fprintf(w, "expr#%d kind=%d\n", eid, e.Kind)
	}
}

// DumpSIR prints the SIR module summary.
func DumpSIR(w io.Writer, m *sir.Module, pool *types.Pool) {
	for i := range m.Funcs {
		f := &m.Funcs[i]
		fmt.Fprintf(w, "sir fn %s ret=%s entry=block#%d\n", f.Name, pool.String(f.Ret), f.Entry)
	}
	for i := range m.Values {
		v := &m.Values[i]
		fmt.Fprintf(w, "  v%-4d kind=%-2d type=%-12s place=%d effect=%d", i, v.Kind,
			pool.String(v.Type), v.Place, v.Effect)
		if v.Text != "" {
			fmt.Fprintf(w, " text=%q", v.Text)
		}
		io.WriteString(w, "\n")
	}
	fmt.Fprintf(w, "  %d escape handle(s)\n", len(m.EscapeHandles))
}

// DumpOIR prints the OIR module: blocks, params, insts, terminators.
func DumpOIR(w io.Writer, m *oir.Module, pool *types.Pool) {
	for fi := range m.Funcs {
		f := &m.Funcs[fi]
		fmt.Fprintf(w, "oir fn %s ret=%s\n", f.Name, pool.String(f.RetTy))
		for _, bid := range f.Blocks {
			b := &m.Blocks[bid]
			fmt.Fprintf(w, " block#%d params=%d\n", bid, len(b.Params))
			for _, iid := range b.Insts {
				inst := &m.Insts[iid]
				fmt.Fprintf(w, "   i%-4d %-12s eff=%s", iid, inst.Kind, inst.Eff)
				if inst.Text != "" {
					fmt.Fprintf(w, " %q", inst.Text)
				}
				io.WriteString(w, "\n")
			}
			if b.HasTerm {
				switch b.Term.Kind {
				case oir.TermBr:
					fmt.Fprintf(w, "   br block#%d (%d args)\n", b.Term.Target, len(b.Term.Args))
				case oir.TermCondBr:
					fmt.Fprintf(w, "   cond_br block#%d / block#%d\n", b.Term.Then, b.Term.Else)
				case oir.TermRet:
					fmt.Fprintf(w, "   ret has_value=%t\n", b.Term.HasValue)
				}
			}
		}
	}
	fmt.Fprintf(w, "opt: split=%d promoted=%d phis=%d folded=%d dce=%d\n",
		m.OptStats.CriticalEdgesSplit, m.OptStats.Mem2RegPromotedSlots,
		m.OptStats.Mem2RegPhiParams, m.OptStats.ConstFoldedInsts, m.OptStats.DeadInstsRemoved)
}
