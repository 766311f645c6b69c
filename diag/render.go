package diag

import (
	"fmt"
	"strings"

	"github.com/brant-lang/brant/text"
)

// Language selects the message catalog for rendering.
type Language uint8

const (
	LangEn Language = iota
)

var templatesEn = map[Code]string{
	CodeInvalidUTF8:                 "source is not valid UTF-8 at byte offset {0}",
	CodeUnterminatedString:          "unterminated string literal",
	CodeUnterminatedChar:            "unterminated character literal",
	CodeUnterminatedBlockComment:    "unterminated block comment",
	CodeExpectedToken:               "expected '{0}'",
	CodeUnexpectedToken:             "unexpected token '{0}'",
	CodeNestedTernaryNotAllowed:     "nested ternary operator is not allowed",
	CodeTooManyErrors:               "too many errors ({0}); giving up",
	CodeTopLevelStmtNotAllowed:      "only declarations are allowed at the top level",
	CodeNestedNamedGroupNotAllowed:  "named-group arguments may not nest",
	CodePipeRhsMustBeCall:           "pipe operator '<<' requires a function call on the right-hand side",
	CodePipeHoleMustBeLabeled:       "hole '_' must appear as a labeled argument value (e.g., a: _)",
	CodePipeHoleCountMismatch:       "pipe call must contain exactly one labeled hole '_' (found {0})",
	CodePipeHolePositionalNotAllowed: "hole '_' is not allowed as a positional argument in pipe calls",
	CodeCallArgMixNotAllowed:        "mixing labeled and positional arguments is not allowed",
	CodeUnknownIdentifier:           "unknown identifier '{0}'",
	CodeDuplicateInScope:            "'{0}' is already declared in this scope",
	CodeShadowedDecl:                "'{0}' shadows an outer declaration",
	CodeTypeMismatch:                "type mismatch: expected '{0}', found '{1}'",
	CodeCannotUnify:                 "cannot unify types '{0}' and '{1}'",
	CodeNonPlaceAssign:              "left-hand side is not assignable",
	CodeWriteToImmutable:            "cannot write through '{0}': target is not declared 'mut'",
	CodeOptionalUnwrapOnNonOptional: "'?' unwrap requires an optional operand, found '{0}'",
	CodeDoubleOptionalNotAllowed:    "optional of optional is not allowed",
	CodeDoubleEscapeNotAllowed:      "escape of escape is not allowed",
	CodeBadCast:                     "cannot cast '{0}' to '{1}'",
	CodeIntLitOutOfRange:            "integer literal {0} is out of range for '{1}'",
	CodeUnresolvedInferInt:          "cannot infer a concrete integer type for this literal",
	CodeReturnTypeMismatch:          "return type mismatch: expected '{0}', found '{1}'",
	CodeBreakOutsideLoop:            "'{0}' outside of a loop",
	CodeCallArityMismatch:           "call expects {0} arguments, found {1}",
	CodeCalleeNotFunction:           "'{0}' is not callable",
	CodeBorrowOperandMustBePlace:    "'&' operand must be a place expression",
	CodeEscapeOperandMustBePlace:    "'&&' operand must be a place expression",
	CodeEscapeOperandMustNotBeBorrow: "'&&' may not be applied to a borrow",
	CodeEscapeOfTemporary:           "'&&' may not capture a temporary value",
	CodeBorrowConflict:              "conflicting borrows of '{0}'",
	CodeEscapeNonStatic:             "'&&' of non-static '{0}' outside a return or call-argument position",
	CodeUseAfterMove:                "use of '{0}' after it was moved by '&&'",
}

func formatTemplate(tmpl string, args []string) string {
	for i, a := range args {
		tmpl = strings.ReplaceAll(tmpl, fmt.Sprintf("{%d}", i), a)
	}
	return tmpl
}

// Message renders the localized message text for one diagnostic.
func Message(d Diagnostic, lang Language) string {
	tmpl, ok := templatesEn[d.Code]
	if !ok {
		return "unknown diagnostic"
	}
	_ = lang // only English is bundled; the switch is the localization seam
	return formatTemplate(tmpl, d.Args)
}

// RenderOne formats a diagnostic with its location and a caret snippet.
func RenderOne(d Diagnostic, lang Language, sm *text.SourceManager) string {
	return RenderOneContext(d, lang, sm, 0)
}

// RenderOneContext is RenderOne with contextLines lines of surrounding
// source above and below the snippet line.
func RenderOneContext(d Diagnostic, lang Language, sm *text.SourceManager, contextLines uint32) string {
	msg := Message(d, lang)
	lc := sm.LineCol(d.Span.FileID, d.Span.Lo)
	sn := sm.ContextSnippetForSpan(d.Span, contextLines)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s[%s]: %s\n", d.Severity, d.Code.Name(), msg)
	fmt.Fprintf(&sb, " --> %s:%d:%d\n", sm.Name(d.Span.FileID), lc.Line, lc.Col)
	sb.WriteString("  |\n")

	lineNo := sn.LineNo
	for i, l := range sn.Before {
		fmt.Fprintf(&sb, "%d | %s\n", lineNo-uint32(len(sn.Before)-i), l)
	}
	fmt.Fprintf(&sb, "%d | %s\n", lineNo, sn.LineText)
	sb.WriteString("  | ")

	caretPos := uint32(0)
	if sn.ColLo > 0 {
		caretPos = sn.ColLo - 1
	}
	sb.WriteString(strings.Repeat(" ", int(caretPos)))

	caretLen := uint32(1)
	if sn.ColHi > sn.ColLo {
		caretLen = sn.ColHi - sn.ColLo
	}
	sb.WriteString(strings.Repeat("^", int(caretLen)))

	for i, l := range sn.After {
		fmt.Fprintf(&sb, "\n%d | %s", lineNo+uint32(i+1), l)
	}
	return sb.String()
}
