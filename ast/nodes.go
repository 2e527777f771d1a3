package ast

// Node is the interface for all AST nodes.
type Node interface {
	node()
}

// Statement is the interface for statement nodes.
type Statement interface {
	Node
	stmt()
	StmtLine() int
}

// BaseStmt provides common fields for all statements.
type BaseStmt struct {
	SourceLine int // line in the original source (0 for synthesized nodes)
}

func (b BaseStmt) StmtLine() int { return b.SourceLine }

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr()
}

// Module is the root node.
type Module struct {
	Body       []Statement
	SourceFile string // display path of the source file
}

func (m *Module) node() {}

// Param is a def or lambda parameter.
type Param struct {
	Name       string
	Annotation Expr   // nil when unannotated
	Default    Expr   // nil when the parameter has no default
	Star       string // "", "*" or "**"
}

// ClassDef represents class Name(bases): body.
type ClassDef struct {
	BaseStmt
	Name       string
	Bases      []Expr
	Keywords   []*Keyword
	Body       []Statement
	Decorators []Expr
}

func (c *ClassDef) node() {}
func (c *ClassDef) stmt() {}

// FuncDef represents def name(params): body.
type FuncDef struct {
	BaseStmt
	Name       string
	Params     []Param
	Returns    Expr // return annotation, nil if absent
	Body       []Statement
	Decorators []Expr
}

func (f *FuncDef) node() {}
func (f *FuncDef) stmt() {}

// Assign represents t1 = t2 = ... = value.
type Assign struct {
	BaseStmt
	Targets []Expr
	Value   Expr
}

func (a *Assign) node() {}
func (a *Assign) stmt() {}

// AugAssign represents target op= value.
type AugAssign struct {
	BaseStmt
	Target Expr
	Op     string // operator without the trailing '=' (e.g. "+")
	Value  Expr
}

func (a *AugAssign) node() {}
func (a *AugAssign) stmt() {}

// ExprStmt is a statement that is just an expression.
type ExprStmt struct {
	BaseStmt
	Value Expr
}

func (e *ExprStmt) node() {}
func (e *ExprStmt) stmt() {}

// Return represents return [value].
type Return struct {
	BaseStmt
	Value Expr // nil if bare return
}

func (r *Return) node() {}
func (r *Return) stmt() {}

// If represents if/elif/else. An elif chain is a single nested If in Else.
type If struct {
	BaseStmt
	Test Expr
	Body []Statement
	Else []Statement
}

func (i *If) node() {}
func (i *If) stmt() {}

// For represents for target in iter: body [else: body].
type For struct {
	BaseStmt
	Target Expr
	Iter   Expr
	Body   []Statement
	Else   []Statement
}

func (f *For) node() {}
func (f *For) stmt() {}

// While represents while test: body [else: body].
type While struct {
	BaseStmt
	Test Expr
	Body []Statement
	Else []Statement
}

func (w *While) node() {}
func (w *While) stmt() {}

// Pass represents pass.
type Pass struct{ BaseStmt }

func (p *Pass) node() {}
func (p *Pass) stmt() {}

// Break represents break.
type Break struct{ BaseStmt }

func (b *Break) node() {}
func (b *Break) stmt() {}

// Continue represents continue.
type Continue struct{ BaseStmt }

func (c *Continue) node() {}
func (c *Continue) stmt() {}

// Alias is one name in an import statement: name [as asname].
type Alias struct {
	Name   string
	AsName string
}

// Import represents import a.b [as c], ...
type Import struct {
	BaseStmt
	Names []Alias
}

func (i *Import) node() {}
func (i *Import) stmt() {}

// ImportFrom represents from [.]module import names.
type ImportFrom struct {
	BaseStmt
	Module string
	Level  int     // number of leading dots
	Names  []Alias // a single Alias{Name: "*"} for a star import
}

func (i *ImportFrom) node() {}
func (i *ImportFrom) stmt() {}

// Raise represents raise [exc [from cause]].
type Raise struct {
	BaseStmt
	Exc   Expr
	Cause Expr
}

func (r *Raise) node() {}
func (r *Raise) stmt() {}

// Assert represents assert test [, msg].
type Assert struct {
	BaseStmt
	Test Expr
	Msg  Expr
}

func (a *Assert) node() {}
func (a *Assert) stmt() {}

// Name is an identifier reference.
type Name struct {
	ID string
}

func (n *Name) node() {}
func (n *Name) expr() {}

// Attribute represents value.attr.
type Attribute struct {
	Value Expr
	Attr  string
}

func (a *Attribute) node() {}
func (a *Attribute) expr() {}

// Call represents func(args..., keywords...).
type Call struct {
	Func     Expr
	Args     []Expr
	Keywords []*Keyword
}

func (c *Call) node() {}
func (c *Call) expr() {}

// Keyword is a name=value call argument. An empty Name means **value.
type Keyword struct {
	Name  string
	Value Expr
}

func (k *Keyword) node() {}

// Starred represents *value in a call or target list.
type Starred struct {
	Value Expr
}

func (s *Starred) node() {}
func (s *Starred) expr() {}

// BinOp represents left op right.
type BinOp struct {
	Left  Expr
	Op    string
	Right Expr
}

func (b *BinOp) node() {}
func (b *BinOp) expr() {}

// UnaryOp represents op operand ("-", "+", "~" or "not").
type UnaryOp struct {
	Op      string
	Operand Expr
}

func (u *UnaryOp) node() {}
func (u *UnaryOp) expr() {}

// BoolOp represents v1 op v2 op ... with op "and" or "or".
type BoolOp struct {
	Op     string
	Values []Expr
}

func (b *BoolOp) node() {}
func (b *BoolOp) expr() {}

// Compare represents left op1 c1 op2 c2 ...
type Compare struct {
	Left        Expr
	Ops         []string
	Comparators []Expr
}

func (c *Compare) node() {}
func (c *Compare) expr() {}

// IfExp represents body if test else orelse.
type IfExp struct {
	Test   Expr
	Body   Expr
	OrElse Expr
}

func (i *IfExp) node() {}
func (i *IfExp) expr() {}

// Lambda represents lambda params: body.
type Lambda struct {
	Params []Param
	Body   Expr
}

func (l *Lambda) node() {}
func (l *Lambda) expr() {}

// Subscript represents value[index].
type Subscript struct {
	Value Expr
	Index Expr
}

func (s *Subscript) node() {}
func (s *Subscript) expr() {}

// Slice represents lower:upper[:step] inside a subscript. Any part may be nil.
type Slice struct {
	Lower Expr
	Upper Expr
	Step  Expr
}

func (s *Slice) node() {}
func (s *Slice) expr() {}

// Tuple represents a, b, ... (Parens records whether the source wrapped it).
type Tuple struct {
	Elts   []Expr
	Parens bool
}

func (t *Tuple) node() {}
func (t *Tuple) expr() {}

// List represents [a, b, ...].
type List struct {
	Elts []Expr
}

func (l *List) node() {}
func (l *List) expr() {}

// Dict represents {k: v, ...}.
type Dict struct {
	Keys   []Expr
	Values []Expr
}

func (d *Dict) node() {}
func (d *Dict) expr() {}

// Num is a numeric literal kept as its source text.
type Num struct {
	Value string
}

func (n *Num) node() {}
func (n *Num) expr() {}

// Str is a string literal kept as its source text, quotes and prefix included.
type Str struct {
	Value string
}

func (s *Str) node() {}
func (s *Str) expr() {}

// Constant is None, True or False.
type Constant struct {
	Value string
}

func (c *Constant) node() {}
func (c *Constant) expr() {}
