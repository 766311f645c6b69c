// Package ast holds the syntax tree arena. Nodes live in append-only
// parallel vectors keyed by 32-bit ids; relationships are begin+count
// slices into sibling vectors. Entries never move once added, so ids stay
// stable for the lifetime of a parse snapshot.
package ast

import (
	"github.com/brant-lang/brant/syntax"
	"github.com/brant-lang/brant/text"
	"github.com/brant-lang/brant/types"
)

// ExprID indexes Arena.exprs.
type ExprID = uint32

// StmtID indexes Arena.stmts.
type StmtID = uint32

// InvalidExpr and InvalidStmt are the id sentinels.
const (
	InvalidExpr ExprID = 0xFFFF_FFFF
	InvalidStmt StmtID = 0xFFFF_FFFF
)

// ExprKind discriminates expression nodes.
type ExprKind uint8

const (
	ExprError ExprKind = iota

	// literals / primary
	ExprIntLit
	ExprFloatLit
	ExprStringLit
	ExprCharLit
	ExprBoolLit
	ExprNullLit
	ExprArrayLit
	ExprIdent
	ExprHole // "_" (pipe/call hole)

	// operators
	ExprUnary        // op in {+, -, !, not, *, &, &&}; &mut marked by UnaryIsMut
	ExprPostfixUnary // ++ and '?' unwrap
	ExprBinary
	ExprAssign
	ExprTernary

	// postfix
	ExprCall
	ExprIndex
	ExprField

	ExprLoop

	ExprIfExpr
	ExprBlockExpr

	ExprCast
)

// StmtKind discriminates statement nodes.
type StmtKind uint8

const (
	StmtError StmtKind = iota
	StmtEmpty // ';'
	StmtExpr  // expr ';'
	StmtBlock // '{' ... '}'

	StmtVar // let / set / static
	StmtIf
	StmtWhile
	StmtDoScope // do { ... }
	StmtDoWhile // do { ... } while (cond);
	StmtReturn
	StmtBreak
	StmtContinue

	StmtSwitch

	// decl-like
	StmtFnDecl
	StmtFieldDecl
	StmtActsDecl

	StmtUse
	StmtImport
	StmtNestDecl
)

// ArgKind classifies call arguments.
type ArgKind uint8

const (
	ArgPositional ArgKind = iota
	ArgLabeled
	ArgNamedGroup // the call-site "{ ... }" group itself
)

// Arg is one call argument. NamedGroup children are stored in the
// arena's named-group vector as an adjacent slice.
type Arg struct {
	Kind ArgKind

	HasLabel bool
	IsHole   bool // label: _
	Label    string
	Expr     ExprID

	ChildBegin uint32
	ChildCount uint32

	Span text.Span
}

// Attr is a function attribute such as "@pure".
type Attr struct {
	Name string
	Span text.Span
}

// Param is one function parameter.
type Param struct {
	Name string
	Type types.TypeID

	IsMut  bool
	IsSelf bool // acts-for receiver marker

	HasDefault  bool
	DefaultExpr ExprID

	IsNamedGroup bool // declared inside the "{ ... }" param section

	Span text.Span
}

// CasePatKind classifies switch case patterns.
type CasePatKind uint8

const (
	CasePatError CasePatKind = iota
	CasePatInt
	CasePatChar
	CasePatString
	CasePatBool
	CasePatNull
	CasePatIdent
)

// SwitchCase is one case (or default) arm; Body is always a block.
type SwitchCase struct {
	IsDefault bool

	PatKind CasePatKind
	PatText string

	Body StmtID
	Span text.Span
}

// FieldMember is one member of a field declaration.
type FieldMember struct {
	Type types.TypeID
	Name string
	Span text.Span
}

// CastKind discriminates the three cast spellings.
type CastKind uint8

const (
	CastAs       CastKind = iota // expr as T
	CastOptional                 // expr as? T  (produces T?)
	CastForce                    // expr as! T  (runtime-checked)
)

// Expr is one expression node. Generic slots A/B/C are interpreted by
// Kind; unused slots hold InvalidExpr.
type Expr struct {
	Kind ExprKind
	Span text.Span

	Op syntax.TokenKind
	A  ExprID
	B  ExprID
	C  ExprID

	// Unary with Op == Amp: "&mut x" when set
	UnaryIsMut bool

	// literal / identifier raw text (field access member name too)
	Text string

	// call / array-literal args slice
	ArgBegin uint32
	ArgCount uint32

	// loop expr
	LoopHasHeader bool
	LoopVar       string
	LoopVarSpan   text.Span
	LoopIter      ExprID
	LoopBody      StmtID

	// cast payload
	CastType types.TypeID
	CastKind CastKind

	// expected type of the slot this expr sits in, filled by the checker
	TargetType types.TypeID
}

// FnMode is the pub/sub marker on a function declaration.
type FnMode uint8

const (
	FnModeNone FnMode = iota
	FnModePub
	FnModeSub
)

// UseKind discriminates use/import statements.
type UseKind uint8

const (
	UseError UseKind = iota
	UseImport
	UseTypeAlias // use NewT = u32;
	UsePathAlias // use A.B = name;
)

// Stmt is one statement or declaration node.
type Stmt struct {
	Kind StmtKind
	Span text.Span

	Expr ExprID // ExprStmt / cond / return value

	A StmtID // if-then / while-body / fn-body / do-body
	B StmtID // if-else

	// block children slice
	StmtBegin uint32
	StmtCount uint32

	// var
	IsSet    bool
	IsMut    bool
	IsStatic bool
	Name     string
	NameSpan text.Span
	Type     types.TypeID
	Init     ExprID

	// fn decl
	AttrBegin uint32
	AttrCount uint32

	IsExport bool
	FnMode   FnMode
	FnRet    types.TypeID

	IsPure     bool
	IsComptime bool

	ParamBegin uint32
	ParamCount uint32

	PositionalParamCount uint32
	HasNamedGroup        bool

	// switch
	CaseBegin  uint32
	CaseCount  uint32
	HasDefault bool

	// field decl
	FieldMemberBegin uint32
	FieldMemberCount uint32

	// acts decl
	ActsIsFor      bool
	ActsTargetType types.TypeID

	// use / import
	UseKind     UseKind
	UseName     string
	UsePathBegin uint32
	UsePathCount uint32
	UseRhsIdent string

	// nest decl
	NestPathBegin       uint32
	NestPathCount       uint32
	NestIsFileDirective bool
}
