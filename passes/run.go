package passes

import (
	"github.com/brant-lang/brant/ast"
	"github.com/brant-lang/brant/diag"
	"github.com/brant-lang/brant/sema"
)

// Options configures the pass runner.
type Options struct {
	Shadowing sema.ShadowingMode
}

// Result carries the pass outputs the later stages consume.
type Result struct {
	Table       *sema.Table
	NameResolve *sema.Result
}

// Run executes the AST surface passes in order: top-level shape check,
// pipe-hole validation, then name resolution. Surface diagnostics land
// in the bag; resolution results are returned for the checker and the
// SIR builder.
func Run(arena *ast.Arena, root ast.StmtID, bag *diag.Bag, opt Options) Result {
	CheckTopLevelDeclOnly(arena, root, bag)
	CheckPipeHole(arena, root, bag)

	table := sema.NewTable()
	res := sema.Resolve(arena, root, table, bag, sema.Options{Shadowing: opt.Shadowing})
	return Result{Table: table, NameResolve: res}
}
