package parse

import (
	"github.com/brant-lang/brant/ast"
	"github.com/brant-lang/brant/diag"
	"github.com/brant-lang/brant/lex"
	"github.com/brant-lang/brant/syntax"
	"github.com/brant-lang/brant/text"
	"github.com/brant-lang/brant/types"
)

// EditWindow is one edited byte range in the new source.
type EditWindow struct {
	Lo uint32
	Hi uint32
}

// TopItemMeta records a top-level item's statement id and byte extent.
type TopItemMeta struct {
	SID ast.StmtID
	Lo  uint32
	Hi  uint32
}

// Snapshot is the result of one (full or incremental) parse. Token
// lexemes from preserved items may reference source buffers retained by
// the session, not the latest one.
type Snapshot struct {
	Arena    *ast.Arena
	Pool     *types.Pool
	Root     ast.StmtID
	Tokens   []lex.Token
	TopItems []TopItemMeta
	Revision uint64
}

// ReparseMode reports how the last reparse was satisfied.
type ReparseMode uint8

const (
	ReparseNone ReparseMode = iota
	ReparseFullRebuild
	ReparseIncrementalMerge
	ReparseFallbackFullRebuild
)

// sourceOwnerCompactThreshold bounds how many retired source buffers the
// session keeps alive for preserved-item lexemes before forcing a full
// rebuild (which releases them all).
const sourceOwnerCompactThreshold = 16

// Session reparses a single file across edits, reusing top-level items
// that precede the earliest edited byte.
type Session struct {
	snapshot    Snapshot
	ready       bool
	lastMode    ReparseMode
	revisionSeq uint64
	maxErrors   int

	// retained source buffers; preserved tokens may still view them
	sourceOwners []string
}

// NewSession builds an empty session. maxErrors <= 0 uses the default cap.
func NewSession(maxErrors int) *Session {
	return &Session{maxErrors: maxErrors}
}

// Snapshot returns the last successful parse snapshot.
func (s *Session) Snapshot() *Snapshot { return &s.snapshot }

// Ready reports whether an initial parse has completed.
func (s *Session) Ready() bool { return s.ready }

// LastMode reports how the last reparse was performed.
func (s *Session) LastMode() ReparseMode { return s.lastMode }

// Initialize performs the initial full parse.
func (s *Session) Initialize(source string, fileID uint32, bag *diag.Bag) bool {
	return s.fullRebuild(source, fileID, bag, ReparseFullRebuild)
}

// ReparseWithEdits reparses after source changed within the given edit
// windows. Items entirely before the earliest edit are reused from the
// prior snapshot; any structural surprise falls back to a full rebuild.
func (s *Session) ReparseWithEdits(source string, fileID uint32, edits []EditWindow, bag *diag.Bag) bool {
	if !s.ready {
		return s.Initialize(source, fileID, bag)
	}
	if len(edits) == 0 {
		return s.fullRebuild(source, fileID, bag, ReparseFullRebuild)
	}
	if s.tryIncrementalMerge(source, fileID, edits, bag) {
		s.lastMode = ReparseIncrementalMerge
		return true
	}
	return s.fullRebuild(source, fileID, bag, ReparseFallbackFullRebuild)
}

func collectTopItems(arena *ast.Arena, root ast.StmtID) []TopItemMeta {
	if root == ast.InvalidStmt {
		return nil
	}
	r := arena.Stmt(root)
	if r.Kind != ast.StmtBlock {
		return nil
	}
	kids := arena.BlockChildren(r)
	out := make([]TopItemMeta, 0, len(kids))
	for _, sid := range kids {
		if sid == ast.InvalidStmt {
			continue
		}
		st := arena.Stmt(sid)
		out = append(out, TopItemMeta{SID: sid, Lo: st.Span.Lo, Hi: st.Span.Hi})
	}
	return out
}

func (s *Session) fullRebuild(source string, fileID uint32, bag *diag.Bag, mode ReparseMode) bool {
	toks := lex.New(source, fileID, bag).LexAll()

	arena := &ast.Arena{}
	pool := types.NewPool()
	p := New(toks, arena, pool, bag, s.maxErrors)
	root := p.ParseProgram()

	s.revisionSeq++
	s.snapshot = Snapshot{
		Arena:    arena,
		Pool:     pool,
		Root:     root,
		Tokens:   toks,
		TopItems: collectTopItems(arena, root),
		Revision: s.revisionSeq,
	}
	s.sourceOwners = []string{source}
	s.ready = true
	s.lastMode = mode
	return true
}

func earliestEditLo(edits []EditWindow) uint32 {
	lo := ^uint32(0)
	for _, e := range edits {
		if e.Lo < lo {
			lo = e.Lo
		}
		if e.Hi < lo {
			lo = e.Hi
		}
	}
	if lo == ^uint32(0) {
		return 0
	}
	return lo
}

func firstAffectedItem(items []TopItemMeta, editLo uint32) int {
	for i, it := range items {
		if editLo <= it.Hi {
			return i
		}
	}
	return len(items)
}

func findTokenBegin(toks []lex.Token, parseLo uint32) int {
	i := 0
	for i < len(toks) {
		t := toks[i]
		if t.Kind == syntax.EOF || t.Span.Lo >= parseLo {
			break
		}
		i++
	}
	return i
}

func (s *Session) tryIncrementalMerge(source string, fileID uint32, edits []EditWindow, bag *diag.Bag) bool {
	if s.snapshot.Root == ast.InvalidStmt {
		return false
	}
	if len(s.sourceOwners) > sourceOwnerCompactThreshold {
		return false // compact by rebuilding
	}

	oldItems := s.snapshot.TopItems
	if len(oldItems) == 0 {
		return false
	}

	earliest := earliestEditLo(edits)
	first := firstAffectedItem(oldItems, earliest)
	if first == 0 {
		return false // first item affected: full parse
	}
	if first >= len(oldItems) {
		first = len(oldItems) - 1
	}

	var localBag diag.Bag
	lx := lex.New(source, fileID, &localBag)
	newTokens := lx.LexAll()
	if localBag.HasFatal() || len(newTokens) == 0 {
		return false
	}

	parseLo := min(oldItems[first].Lo, earliest)
	tokBegin := findTokenBegin(newTokens, parseLo)
	if tokBegin >= len(newTokens) {
		return false
	}
	partial := newTokens[tokBegin:]
	if len(partial) == 0 {
		return false
	}

	// reparse into a clone so ids of preserved items stay valid
	arena := s.snapshot.Arena.Clone()
	pool := s.snapshot.Pool

	partialParser := New(partial, arena, pool, &localBag, s.maxErrors)
	partialRoot := partialParser.ParseProgram()
	if partialRoot == ast.InvalidStmt {
		return false
	}

	oldRoot := arena.Stmt(s.snapshot.Root)
	if oldRoot.Kind != ast.StmtBlock {
		return false
	}
	partialRootStmt := arena.Stmt(partialRoot)
	if partialRootStmt.Kind != ast.StmtBlock {
		return false
	}

	var merged []ast.StmtID
	for i := 0; i < first; i++ {
		merged = append(merged, oldItems[i].SID)
	}
	merged = append(merged, arena.BlockChildren(partialRootStmt)...)

	mergedBegin := uint32(len(arena.StmtChildren()))
	for _, sid := range merged {
		arena.AddStmtChild(sid)
	}

	mergedRoot := ast.Stmt{
		Kind:      ast.StmtBlock,
		StmtBegin: mergedBegin,
		StmtCount: uint32(len(merged)),
	}
	if len(merged) > 0 {
		mergedRoot.Span = text.Join(
			arena.Stmt(merged[0]).Span,
			arena.Stmt(merged[len(merged)-1]).Span,
		)
	} else {
		mergedRoot.Span = partialRootStmt.Span
	}
	newRoot := arena.AddStmt(mergedRoot)

	s.revisionSeq++
	s.snapshot = Snapshot{
		Arena:    arena,
		Pool:     pool,
		Root:     newRoot,
		Tokens:   newTokens,
		TopItems: collectTopItems(arena, newRoot),
		Revision: s.revisionSeq,
	}
	s.sourceOwners = append(s.sourceOwners, source)

	bag.Append(&localBag)
	return true
}
