package syntax

// PunctEntry pairs a punctuation lexeme with its token kind.
type PunctEntry struct {
	Text string
	Kind TokenKind
}

// PunctTable is ordered for maximal munch: longer punctuation first. The
// lexer tries entries in order and takes the first full match.
var PunctTable = []PunctEntry{
	{"..:", DotDotColon},
	{"..", DotDot},

	{"<<", LessLess},

	{"&&", AmpAmp},
	{"||", PipePipe},

	{"==", EqEq},
	{"!=", BangEq},
	{"<=", LtEq},
	{">=", GtEq},

	{"->", Arrow},

	{"++", PlusPlus},
	{"+=", PlusAssign},
	{"-=", MinusAssign},
	{"*=", StarAssign},
	{"/=", SlashAssign},
	{"%=", PercentAssign},

	{"(", LParen},
	{")", RParen},
	{"{", LBrace},
	{"}", RBrace},
	{"[", LBracket},
	{"]", RBracket},

	{",", Comma},
	{".", Dot},
	{":", Colon},
	{";", Semicolon},
	{"?", Question},
	{"@", At},

	{"=", Assign},
	{"+", Plus},
	{"-", Minus},
	{"*", Star},
	{"/", Slash},
	{"%", Percent},

	{"!", Bang},
	{"^", Caret},
	{"&", Amp},

	{"<", Lt},
	{">", Gt},
}
