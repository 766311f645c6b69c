package ast

// Arena owns every node vector of one parse. Add methods append and
// return the new id; nothing is ever removed or reordered.
type Arena struct {
	exprs []Expr
	stmts []Stmt

	args           []Arg
	namedGroupArgs []Arg

	attrs  []Attr
	params []Param

	switchCases  []SwitchCase
	fieldMembers []FieldMember

	pathSegs     []string
	stmtChildren []StmtID
}

// Clone returns a deep copy sharing no backing storage with the
// receiver. The incremental session reparses into a clone so old
// snapshot ids survive unchanged.
func (a *Arena) Clone() *Arena {
	c := &Arena{
		exprs:          append([]Expr(nil), a.exprs...),
		stmts:          append([]Stmt(nil), a.stmts...),
		args:           append([]Arg(nil), a.args...),
		namedGroupArgs: append([]Arg(nil), a.namedGroupArgs...),
		attrs:          append([]Attr(nil), a.attrs...),
		params:         append([]Param(nil), a.params...),
		switchCases:    append([]SwitchCase(nil), a.switchCases...),
		fieldMembers:   append([]FieldMember(nil), a.fieldMembers...),
		pathSegs:       append([]string(nil), a.pathSegs...),
		stmtChildren:   append([]StmtID(nil), a.stmtChildren...),
	}
	return c
}

func (a *Arena) AddExpr(e Expr) ExprID {
	a.exprs = append(a.exprs, e)
	return ExprID(len(a.exprs) - 1)
}

func (a *Arena) AddStmt(s Stmt) StmtID {
	a.stmts = append(a.stmts, s)
	return StmtID(len(a.stmts) - 1)
}

func (a *Arena) AddArg(g Arg) uint32 {
	a.args = append(a.args, g)
	return uint32(len(a.args) - 1)
}

func (a *Arena) AddNamedGroupArg(g Arg) uint32 {
	a.namedGroupArgs = append(a.namedGroupArgs, g)
	return uint32(len(a.namedGroupArgs) - 1)
}

func (a *Arena) AddAttr(at Attr) uint32 {
	a.attrs = append(a.attrs, at)
	return uint32(len(a.attrs) - 1)
}

func (a *Arena) AddParam(p Param) uint32 {
	a.params = append(a.params, p)
	return uint32(len(a.params) - 1)
}

func (a *Arena) AddSwitchCase(c SwitchCase) uint32 {
	a.switchCases = append(a.switchCases, c)
	return uint32(len(a.switchCases) - 1)
}

func (a *Arena) AddFieldMember(f FieldMember) uint32 {
	a.fieldMembers = append(a.fieldMembers, f)
	return uint32(len(a.fieldMembers) - 1)
}

func (a *Arena) AddPathSeg(s string) uint32 {
	a.pathSegs = append(a.pathSegs, s)
	return uint32(len(a.pathSegs) - 1)
}

func (a *Arena) AddStmtChild(id StmtID) uint32 {
	a.stmtChildren = append(a.stmtChildren, id)
	return uint32(len(a.stmtChildren) - 1)
}

// Expr returns the node by id. Ids out of range panic; passing
// InvalidExpr is a programmer error.
func (a *Arena) Expr(id ExprID) *Expr { return &a.exprs[id] }

// Stmt returns the node by id.
func (a *Arena) Stmt(id StmtID) *Stmt { return &a.stmts[id] }

func (a *Arena) Exprs() []Expr                { return a.exprs }
func (a *Arena) Stmts() []Stmt                { return a.stmts }
func (a *Arena) Args() []Arg                  { return a.args }
func (a *Arena) NamedGroupArgs() []Arg        { return a.namedGroupArgs }
func (a *Arena) Attrs() []Attr                { return a.attrs }
func (a *Arena) Params() []Param              { return a.params }
func (a *Arena) SwitchCases() []SwitchCase    { return a.switchCases }
func (a *Arena) FieldMembers() []FieldMember  { return a.fieldMembers }
func (a *Arena) PathSegs() []string           { return a.pathSegs }
func (a *Arena) StmtChildren() []StmtID       { return a.stmtChildren }

// ExprCount / StmtCount / ParamCount size the resolver's index tables.
func (a *Arena) ExprCount() int  { return len(a.exprs) }
func (a *Arena) StmtCount() int  { return len(a.stmts) }
func (a *Arena) ParamCount() int { return len(a.params) }

// BlockChildren returns the child statement ids of a block statement.
func (a *Arena) BlockChildren(s *Stmt) []StmtID {
	return a.stmtChildren[s.StmtBegin : s.StmtBegin+s.StmtCount]
}

// CallArgs returns the argument slice of a call or array-literal expr.
func (a *Arena) CallArgs(e *Expr) []Arg {
	return a.args[e.ArgBegin : e.ArgBegin+e.ArgCount]
}

// NamedGroupChildren returns the children of a named-group argument.
func (a *Arena) NamedGroupChildren(g *Arg) []Arg {
	return a.namedGroupArgs[g.ChildBegin : g.ChildBegin+g.ChildCount]
}

// FnParams returns the parameter slice of a fn declaration.
func (a *Arena) FnParams(s *Stmt) []Param {
	return a.params[s.ParamBegin : s.ParamBegin+s.ParamCount]
}

// FnAttrs returns the attribute slice of a fn declaration.
func (a *Arena) FnAttrs(s *Stmt) []Attr {
	return a.attrs[s.AttrBegin : s.AttrBegin+s.AttrCount]
}

// Cases returns the case slice of a switch statement.
func (a *Arena) Cases(s *Stmt) []SwitchCase {
	return a.switchCases[s.CaseBegin : s.CaseBegin+s.CaseCount]
}

// Members returns the member slice of a field declaration.
func (a *Arena) Members(s *Stmt) []FieldMember {
	return a.fieldMembers[s.FieldMemberBegin : s.FieldMemberBegin+s.FieldMemberCount]
}
