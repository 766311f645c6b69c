// Package passes runs the AST surface passes between parsing and type
// checking: top-level shape enforcement, pipe-hole validation, and name
// resolution.
package passes

import (
	"github.com/brant-lang/brant/ast"
	"github.com/brant-lang/brant/diag"
)

// CheckTopLevelDeclOnly reports every top-level item that is not a
// declaration or declaration-like statement.
func CheckTopLevelDeclOnly(arena *ast.Arena, root ast.StmtID, bag *diag.Bag) {
	if root == ast.InvalidStmt {
		return
	}
	r := arena.Stmt(root)
	if r.Kind != ast.StmtBlock {
		return
	}
	for _, sid := range arena.BlockChildren(r) {
		s := arena.Stmt(sid)
		switch s.Kind {
		case ast.StmtFnDecl, ast.StmtFieldDecl, ast.StmtActsDecl,
			ast.StmtUse, ast.StmtImport, ast.StmtNestDecl:
			continue
		case ast.StmtVar:
			if s.IsStatic {
				continue
			}
		case ast.StmtEmpty, ast.StmtError:
			continue
		}
		bag.Add(diag.New(diag.SeverityError, diag.CodeTopLevelStmtNotAllowed, s.Span))
	}
}
