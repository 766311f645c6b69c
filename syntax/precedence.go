package syntax

// Assoc is the associativity of an infix operator.
type Assoc uint8

const (
	AssocLeft Assoc = iota
	AssocRight
)

// InfixInfo describes an infix operator's binding power. Higher Prec
// binds tighter.
type InfixInfo struct {
	Prec  int
	Assoc Assoc
}

// PrecPostfix is the binding power of call (), index [] and postfix ++.
const PrecPostfix = 100

// InfixInfoFor returns the precedence entry for an infix operator token,
// or ok=false when the token is not infix. The ternary '?:' is handled
// specially by the parser and does not appear here.
func InfixInfoFor(k TokenKind) (InfixInfo, bool) {
	switch k {
	// assignment (right assoc)
	case Assign, PlusAssign, MinusAssign, StarAssign, SlashAssign, PercentAssign:
		return InfixInfo{Prec: 10, Assoc: AssocRight}, true

	// pipe operator '<<'
	case LessLess:
		return InfixInfo{Prec: 20, Assoc: AssocLeft}, true

	// logical or
	case PipePipe, KwOr:
		return InfixInfo{Prec: 30, Assoc: AssocLeft}, true

	// logical xor
	case Caret, KwXor:
		return InfixInfo{Prec: 40, Assoc: AssocLeft}, true

	// logical and
	case AmpAmp, KwAnd:
		return InfixInfo{Prec: 50, Assoc: AssocLeft}, true

	// equality
	case EqEq, BangEq:
		return InfixInfo{Prec: 60, Assoc: AssocLeft}, true

	// relational
	case Lt, LtEq, Gt, GtEq:
		return InfixInfo{Prec: 70, Assoc: AssocLeft}, true

	// additive
	case Plus, Minus:
		return InfixInfo{Prec: 80, Assoc: AssocLeft}, true

	// multiplicative
	case Star, Slash, Percent:
		return InfixInfo{Prec: 90, Assoc: AssocLeft}, true
	}
	return InfixInfo{}, false
}

// PrefixInfoFor reports whether the token is a prefix operator. The
// borrow forms '&', '&mut' and the escape form '&&' are also prefix but
// are parsed by the dedicated borrow path, not the generic table.
func PrefixInfoFor(k TokenKind) (int, bool) {
	switch k {
	case Bang, KwNot, Plus, Minus:
		return 95, true
	}
	return 0, false
}
