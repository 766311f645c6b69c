package diag

import (
	"strconv"

	"github.com/brant-lang/brant/text"
)

// Diagnostic is one reported issue. Args are pre-rendered strings; a
// diagnostic carries at most three.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Span     text.Span
	Args     []string
}

// New builds a diagnostic with no arguments.
func New(sev Severity, code Code, sp text.Span) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Span: sp}
}

// WithArg appends a string argument and returns the diagnostic.
func (d Diagnostic) WithArg(s string) Diagnostic {
	d.Args = append(d.Args, s)
	return d
}

// WithArgInt appends an integer argument and returns the diagnostic.
func (d Diagnostic) WithArgInt(v int) Diagnostic {
	return d.WithArg(strconv.Itoa(v))
}

// Bag accumulates diagnostics in insertion order.
type Bag struct {
	diags      []Diagnostic
	errorCount uint32
	fatalCount uint32
}

// Add appends a diagnostic.
func (b *Bag) Add(d Diagnostic) {
	switch d.Severity {
	case SeverityError:
		b.errorCount++
	case SeverityFatal:
		b.fatalCount++
	}
	b.diags = append(b.diags, d)
}

// AddUnique appends d unless an identical (code, position) diagnostic is
// already present. Used by passes that would otherwise cascade the same
// report from several walks.
func (b *Bag) AddUnique(d Diagnostic) {
	for _, have := range b.diags {
		if have.Code == d.Code && have.Span == d.Span {
			return
		}
	}
	b.Add(d)
}

// Diags returns the collected diagnostics in insertion order.
func (b *Bag) Diags() []Diagnostic { return b.diags }

// HasError reports whether any error or fatal diagnostic was added.
func (b *Bag) HasError() bool { return b.errorCount != 0 || b.fatalCount != 0 }

// HasFatal reports whether any fatal diagnostic was added.
func (b *Bag) HasFatal() bool { return b.fatalCount != 0 }

// HasCode reports whether a diagnostic with the given code was added.
func (b *Bag) HasCode(c Code) bool {
	for _, d := range b.diags {
		if d.Code == c {
			return true
		}
	}
	return false
}

// ErrorCount returns the number of error-severity diagnostics.
func (b *Bag) ErrorCount() uint32 { return b.errorCount }

// FatalCount returns the number of fatal-severity diagnostics.
func (b *Bag) FatalCount() uint32 { return b.fatalCount }

// IssueCount returns errors plus fatals.
func (b *Bag) IssueCount() uint32 { return b.errorCount + b.fatalCount }

// Append copies every diagnostic from src into b, preserving order.
func (b *Bag) Append(src *Bag) {
	for _, d := range src.diags {
		b.Add(d)
	}
}
