// Command brantc is the thin CLI over the compiler core: it reads one
// source file, runs the front-end and mid-end pipeline, renders
// diagnostics, and exits 0 on success or 1 on any reported error. The
// -x* flags control debug emission only.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/brant-lang/brant/diag"
	"github.com/brant-lang/brant/driver"
	"github.com/brant-lang/brant/sema"
	"github.com/brant-lang/brant/text"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		optLevel     = flag.Int("O", 0, "optimization level (forwarded to the backend)")
		maxErrors    = flag.Int("max-errors", 256, "parser error cap before aborting")
		contextLines = flag.Uint("context-lines", 0, "context lines around diagnostic snippets")
		shadowing    = flag.String("shadowing", "allow", "shadowing policy: allow, warn, error")

		tokenDump = flag.Bool("xtoken-dump", false, "dump the token stream")
		astDump   = flag.Bool("xast-dump", false, "dump the AST")
		sirDump   = flag.Bool("xsir-dump", false, "dump the SIR module")
		oirDump   = flag.Bool("xoir-dump", false, "dump the OIR module")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: brantc [flags] <input.bt>")
		return 1
	}
	inputPath := flag.Arg(0)

	content, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	shadowMode := sema.ShadowingAllow
	switch *shadowing {
	case "warn":
		shadowMode = sema.ShadowingWarn
	case "error":
		shadowMode = sema.ShadowingError
	}

	var sm text.SourceManager
	fileID := sm.Add(inputPath, string(content))

	var bag diag.Bag
	art := driver.Run(&sm, fileID, &bag, driver.Options{
		MaxErrors:    *maxErrors,
		ContextLines: uint32(*contextLines),
		Shadowing:    shadowMode,
		OptLevel:     *optLevel,
		Internal: driver.InternalFlags{
			TokenDump: *tokenDump,
			ASTDump:   *astDump,
			SIRDump:   *sirDump,
			OIRDump:   *oirDump,
		},
		DumpWriter: os.Stdout,
	})

	for _, d := range bag.Diags() {
		fmt.Fprintln(os.Stderr, diag.RenderOneContext(d, diag.LangEn, &sm, uint32(*contextLines)))
	}
	for _, e := range art.SIRVerifyErrors {
		fmt.Fprintf(os.Stderr, "error: SIR verify: %s\n", e.Msg)
	}
	for _, e := range art.HandleVerifyErrors {
		fmt.Fprintf(os.Stderr, "error: SIR escape-handle verify: %s\n", e.Msg)
	}
	for _, e := range art.OIRGateErrors {
		fmt.Fprintf(os.Stderr, "error: OIR gate: %s\n", e.Msg)
	}
	for _, e := range art.OIRVerifyErrors {
		fmt.Fprintf(os.Stderr, "error: OIR verify: %s\n", e.Msg)
	}

	if !art.OK(&bag) {
		return 1
	}
	return 0
}
