// Package sema provides the scope-forest symbol table and the two-pass
// name resolver. Pass 1 collects top-level declarations into the global
// scope; pass 2 walks statements with a scope stack and records a
// ResolvedSymbol for every identifier expression, declaring statement,
// and parameter.
package sema

import (
	"github.com/brant-lang/brant/text"
	"github.com/brant-lang/brant/types"
)

// SymbolID indexes Table.symbols.
type SymbolID = uint32

// InvalidSymbol is the id sentinel.
const InvalidSymbol SymbolID = 0xFFFF_FFFF

// SymbolKind classifies declared names.
type SymbolKind uint8

const (
	SymVar SymbolKind = iota // let/set locals and params
	SymFn
	SymType
	SymField
	SymActs
	SymModule
)

// Symbol is one declared name.
type Symbol struct {
	Kind SymbolKind

	Name         string
	DeclaredType types.TypeID

	DeclSpan   text.Span
	OwnerScope uint32

	IsMut    bool
	IsStatic bool
}

// Shadowing records a declaration that hides an outer one; policy
// (allow/warn/error) is applied by the resolver, not the table.
type Shadowing struct {
	OldSymbol SymbolID
	NewSymbol SymbolID
	Span      text.Span
}

type scope struct {
	parent uint32
	table  map[string]SymbolID
}

// NoScope is the parent marker of the global scope.
const NoScope uint32 = 0xFFFF_FFFF

// Table is the scope forest plus symbol storage. Scope 0 is global.
type Table struct {
	scopes     []scope
	scopeStack []uint32

	symbols    []Symbol
	shadowings []Shadowing
}

// NewTable builds a table with the global scope pushed.
func NewTable() *Table {
	t := &Table{}
	t.scopes = append(t.scopes, scope{parent: NoScope, table: make(map[string]SymbolID)})
	t.scopeStack = append(t.scopeStack, 0)
	return t
}

// CurrentScope returns the innermost open scope id.
func (t *Table) CurrentScope() uint32 {
	return t.scopeStack[len(t.scopeStack)-1]
}

// PushScope opens a child of the current scope and returns its id.
func (t *Table) PushScope() uint32 {
	s := scope{parent: t.CurrentScope(), table: make(map[string]SymbolID)}
	t.scopes = append(t.scopes, s)
	id := uint32(len(t.scopes) - 1)
	t.scopeStack = append(t.scopeStack, id)
	return id
}

// PopScope closes the innermost scope. The global scope never pops.
func (t *Table) PopScope() {
	if len(t.scopeStack) > 1 {
		t.scopeStack = t.scopeStack[:len(t.scopeStack)-1]
	}
}

// Lookup resolves a name along the current scope chain.
func (t *Table) Lookup(name string) (SymbolID, bool) {
	s := t.CurrentScope()
	for s != NoScope {
		if id, ok := t.scopes[s].table[name]; ok {
			return id, true
		}
		s = t.scopes[s].parent
	}
	return InvalidSymbol, false
}

// LookupInCurrent checks only the innermost scope (duplicate detection).
func (t *Table) LookupInCurrent(name string) (SymbolID, bool) {
	id, ok := t.scopes[t.CurrentScope()].table[name]
	if !ok {
		return InvalidSymbol, false
	}
	return id, true
}

// InsertResult reports what Insert did.
type InsertResult struct {
	OK               bool
	IsDuplicate      bool
	IsShadowing      bool
	SymbolID         SymbolID
	ShadowedSymbolID SymbolID
}

// Insert declares a name in the current scope. A same-scope duplicate
// fails; an outer-scope hit records a shadowing and succeeds.
func (t *Table) Insert(kind SymbolKind, name string, declaredType types.TypeID, declSpan text.Span) InsertResult {
	var r InsertResult

	if dup, ok := t.LookupInCurrent(name); ok {
		r.IsDuplicate = true
		r.SymbolID = dup
		return r
	}

	if outer, ok := t.Lookup(name); ok {
		r.IsShadowing = true
		r.ShadowedSymbolID = outer
	}

	t.symbols = append(t.symbols, Symbol{
		Kind:         kind,
		Name:         name,
		DeclaredType: declaredType,
		DeclSpan:     declSpan,
		OwnerScope:   t.CurrentScope(),
	})
	sid := SymbolID(len(t.symbols) - 1)
	t.scopes[t.CurrentScope()].table[name] = sid

	r.OK = true
	r.SymbolID = sid

	if r.IsShadowing {
		t.shadowings = append(t.shadowings, Shadowing{
			OldSymbol: r.ShadowedSymbolID,
			NewSymbol: sid,
			Span:      declSpan,
		})
	}
	return r
}

// Symbol returns the entry by id.
func (t *Table) Symbol(id SymbolID) *Symbol { return &t.symbols[id] }

// Symbols returns all entries in declaration order.
func (t *Table) Symbols() []Symbol { return t.symbols }

// Shadowings returns the recorded shadowings.
func (t *Table) Shadowings() []Shadowing { return t.shadowings }

// UpdateDeclaredType rebinds a symbol's declared type. Used when `set`
// inference or deferred-integer resolution fixes the type late.
func (t *Table) UpdateDeclaredType(id SymbolID, newType types.TypeID) bool {
	if int(id) >= len(t.symbols) {
		return false
	}
	t.symbols[id].DeclaredType = newType
	return true
}

// ScopeParent exposes the parent link for scope-chain property checks.
func (t *Table) ScopeParent(id uint32) uint32 { return t.scopes[id].parent }

// IsAncestorScope reports whether anc is on parent chain of desc
// (inclusive).
func (t *Table) IsAncestorScope(anc, desc uint32) bool {
	for s := desc; s != NoScope; s = t.scopes[s].parent {
		if s == anc {
			return true
		}
	}
	return false
}
