// Package driver orchestrates the full front-end pipeline: lex, parse,
// surface passes, type check, capability surface check, SIR lowering and
// analyses, OIR lowering and passes, and the final verifier. Each stage
// reads the diagnostic bag; a fatal or failed verifier skips everything
// downstream.
package driver

import (
	"io"

	"github.com/brant-lang/brant/ast"
	"github.com/brant-lang/brant/cap"
	"github.com/brant-lang/brant/diag"
	"github.com/brant-lang/brant/lex"
	"github.com/brant-lang/brant/oir"
	"github.com/brant-lang/brant/parse"
	"github.com/brant-lang/brant/passes"
	"github.com/brant-lang/brant/sema"
	"github.com/brant-lang/brant/sir"
	"github.com/brant-lang/brant/text"
	"github.com/brant-lang/brant/tyck"
	"github.com/brant-lang/brant/types"
)

// Stage identifies how far the pipeline progressed.
type Stage uint8

const (
	StageNone Stage = iota
	StageLex
	StageParse
	StagePasses
	StageTyck
	StageSIR
	StageSIRAnalysis
	StageOIR
	StageOIRVerified
)

func (s Stage) String() string {
	switch s {
	case StageNone:
		return "none"
	case StageLex:
		return "lex"
	case StageParse:
		return "parse"
	case StagePasses:
		return "passes"
	case StageTyck:
		return "tyck"
	case StageSIR:
		return "sir"
	case StageSIRAnalysis:
		return "sir-analysis"
	case StageOIR:
		return "oir"
	case StageOIRVerified:
		return "oir-verified"
	}
	return "unknown"
}

// InternalFlags mirrors the debug-emission switches of the CLI contract.
type InternalFlags struct {
	TokenDump bool
	ASTDump   bool
	SIRDump   bool
	OIRDump   bool
}

// Options configures one pipeline run.
type Options struct {
	MaxErrors    int
	ContextLines uint32
	Language     diag.Language

	Shadowing                 sema.ShadowingMode
	ImplicitOptionalPromotion bool

	OptLevel int

	Internal   InternalFlags
	DumpWriter io.Writer // receives internal dumps; nil discards them
}

// Artifacts carries every intermediate product of a run.
type Artifacts struct {
	Stage Stage

	Tokens []lex.Token
	Arena  *ast.Arena
	Root   ast.StmtID
	Pool   *types.Pool

	Passes passes.Result
	Tyck   tyck.Result

	SIR *sir.Module
	OIR *oir.Module

	SIRVerifyErrors    []sir.VerifyError
	HandleVerifyErrors []sir.VerifyError
	OIRGateErrors      []sir.VerifyError
	OIRVerifyErrors    []oir.VerifyError
}

// OK reports whether the run reached a verified OIR module with no
// errors in the bag.
func (a *Artifacts) OK(bag *diag.Bag) bool {
	return a.Stage == StageOIRVerified && !bag.HasError()
}

// Run executes the pipeline over one registered source file.
func Run(sm *text.SourceManager, fileID uint32, bag *diag.Bag, opt Options) *Artifacts {
	art := &Artifacts{Root: ast.InvalidStmt}

	lx := lex.New(sm.Content(fileID), fileID, bag)
	art.Tokens = lx.LexAll()
	art.Stage = StageLex
	if opt.Internal.TokenDump && opt.DumpWriter != nil {
		DumpTokens(opt.DumpWriter, art.Tokens)
	}
	if lx.Fatal() {
		return art // sticky lex fatal aborts before parsing
	}

	art.Arena = &ast.Arena{}
	art.Pool = types.NewPool()
	p := parse.New(art.Tokens, art.Arena, art.Pool, bag, opt.MaxErrors)
	art.Root = p.ParseProgram()
	art.Stage = StageParse

	art.Passes = passes.Run(art.Arena, art.Root, bag, passes.Options{Shadowing: opt.Shadowing})
	art.Stage = StagePasses

	checker := tyck.New(art.Arena, art.Pool, art.Passes.Table, art.Passes.NameResolve, bag,
		tyck.Options{ImplicitOptionalPromotion: opt.ImplicitOptionalPromotion})
	art.Tyck = checker.CheckProgram(art.Root)

	capRes := cap.Check(art.Arena, art.Root, bag)
	art.Stage = StageTyck

	if opt.Internal.ASTDump && opt.DumpWriter != nil {
		DumpAST(opt.DumpWriter, art.Arena, art.Pool, art.Root)
	}

	// front-end diagnostics gate the mid-end
	if bag.HasError() || !art.Tyck.OK || !capRes.OK {
		return art
	}

	art.SIR = sir.Build(art.Arena, art.Root, art.Pool, art.Passes.Table,
		art.Passes.NameResolve, &art.Tyck, sir.BuildOptions{})
	sir.Canonicalize(art.SIR, art.Pool)
	art.Stage = StageSIR

	art.SIRVerifyErrors = sir.VerifyModule(art.SIR)
	if len(art.SIRVerifyErrors) > 0 {
		return art
	}

	sir.AnalyzeMut(art.SIR, art.Pool, bag)
	capSIR := sir.AnalyzeCapabilities(art.SIR, art.Pool, art.Passes.Table, bag)
	art.Stage = StageSIRAnalysis
	if bag.HasError() || !capSIR.OK {
		return art
	}

	art.HandleVerifyErrors = sir.VerifyEscapeHandles(art.SIR)
	if len(art.HandleVerifyErrors) > 0 {
		return art
	}

	if opt.Internal.SIRDump && opt.DumpWriter != nil {
		DumpSIR(opt.DumpWriter, art.SIR, art.Pool)
	}

	build := oir.Build(art.SIR, art.Pool)
	if !build.GatePassed {
		art.OIRGateErrors = build.GateErrors
		return art
	}
	art.OIR = build.Mod
	art.Stage = StageOIR

	oir.RunPasses(art.OIR, art.Pool)

	art.OIRVerifyErrors = oir.Verify(art.OIR)
	if len(art.OIRVerifyErrors) > 0 {
		return art
	}
	art.Stage = StageOIRVerified

	if opt.Internal.OIRDump && opt.DumpWriter != nil {
		DumpOIR(opt.DumpWriter, art.OIR, art.Pool)
	}
	return art
}
