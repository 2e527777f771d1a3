// Package parser builds layerize AST nodes from Python source.
//
// It is a hand-written recursive-descent parser over the token stream of
// package scanner. Only the subset of Python that appears in model
// definitions is supported: imports, classes, functions, assignments,
// control flow and the full expression grammar except comprehensions.
// Parsing stops at the first error.
package parser

import (
	"fmt"
	gotoken "go/token"
	"strings"

	"github.com/rubiojr/layerize/ast"
	"github.com/rubiojr/layerize/scanner"
	mscanner "modernc.org/scanner"
)

// Parser turns a token slice into AST nodes.
type Parser struct {
	toks []scanner.Token
	pos  int
	errs mscanner.ErrList
}

// bailout unwinds the parser on the first error.
type bailout struct{}

func newParser(toks []scanner.Token) *Parser {
	return &Parser{toks: toks}
}

// run calls fn, converting a bailout into the recorded error list.
func (p *Parser) run(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			err = p.errs
		}
	}()
	fn()
	return nil
}

// --- Token helpers ---

func (p *Parser) cur() scanner.Token {
	if p.pos >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos]
}

func (p *Parser) peek(n int) scanner.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *Parser) advance() scanner.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

// at reports whether the current token is the operator or keyword text.
func (p *Parser) at(text string) bool { return p.cur().Is(text) }

func (p *Parser) atKind(k scanner.Kind) bool { return p.cur().Kind == k }

func (p *Parser) accept(text string) bool {
	if p.at(text) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(text string) scanner.Token {
	if !p.at(text) {
		p.errorf("expected %q, got %s", text, describe(p.cur()))
	}
	return p.advance()
}

func (p *Parser) expectKind(k scanner.Kind) scanner.Token {
	if !p.atKind(k) {
		p.errorf("expected %s, got %s", strings.ToLower(k.String()), describe(p.cur()))
	}
	return p.advance()
}

func (p *Parser) expectName() string {
	t := p.cur()
	if t.Kind != scanner.NAME || scanner.IsKeyword(t.Text) {
		p.errorf("expected identifier, got %s", describe(t))
	}
	p.advance()
	return t.Text
}

func (p *Parser) errorf(format string, args ...any) {
	p.errs = append(p.errs, mscanner.ErrWithPosition{
		Pos: gotoken.Position(p.cur().Pos),
		Err: fmt.Errorf(format, args...),
	})
	panic(bailout{})
}

func describe(t scanner.Token) string {
	switch t.Kind {
	case scanner.EOF:
		return "end of file"
	case scanner.NEWLINE:
		return "newline"
	case scanner.INDENT:
		return "indent"
	case scanner.DEDENT:
		return "dedent"
	}
	return fmt.Sprintf("%q", t.Text)
}

// --- Statements ---

func (p *Parser) parseModule() []ast.Statement {
	var body []ast.Statement
	for !p.atKind(scanner.EOF) {
		if p.atKind(scanner.NEWLINE) {
			p.advance()
			continue
		}
		body = append(body, p.parseStatement()...)
	}
	return body
}

// parseStatement returns the statements of one logical line or one
// compound statement (a line may hold several simple statements).
func (p *Parser) parseStatement() []ast.Statement {
	t := p.cur()
	if t.Kind == scanner.INDENT {
		p.errorf("unexpected indent")
	}
	if t.Kind == scanner.NAME {
		switch t.Text {
		case "if":
			return []ast.Statement{p.parseIf()}
		case "for":
			return []ast.Statement{p.parseFor()}
		case "while":
			return []ast.Statement{p.parseWhile()}
		case "def":
			return []ast.Statement{p.parseFuncDef(nil)}
		case "class":
			return []ast.Statement{p.parseClassDef(nil)}
		case "try", "with", "async", "global", "nonlocal", "del", "yield":
			p.errorf("unsupported statement %q", t.Text)
		}
	}
	if p.at("@") {
		return []ast.Statement{p.parseDecorated()}
	}
	return p.parseSimpleStatements()
}

func (p *Parser) parseSimpleStatements() []ast.Statement {
	stmts := []ast.Statement{p.parseSimpleStatement()}
	for p.accept(";") {
		if p.atKind(scanner.NEWLINE) {
			break
		}
		stmts = append(stmts, p.parseSimpleStatement())
	}
	p.expectKind(scanner.NEWLINE)
	return stmts
}

func (p *Parser) parseSimpleStatement() ast.Statement {
	t := p.cur()
	line := t.Pos.Line
	if t.Kind == scanner.NAME {
		switch t.Text {
		case "pass":
			p.advance()
			return &ast.Pass{BaseStmt: ast.BaseStmt{SourceLine: line}}
		case "break":
			p.advance()
			return &ast.Break{BaseStmt: ast.BaseStmt{SourceLine: line}}
		case "continue":
			p.advance()
			return &ast.Continue{BaseStmt: ast.BaseStmt{SourceLine: line}}
		case "return":
			p.advance()
			r := &ast.Return{BaseStmt: ast.BaseStmt{SourceLine: line}}
			if !p.atLineEnd() {
				r.Value = p.parseTestList(true)
			}
			return r
		case "raise":
			p.advance()
			r := &ast.Raise{BaseStmt: ast.BaseStmt{SourceLine: line}}
			if !p.atLineEnd() {
				r.Exc = p.parseTest()
				if p.accept("from") {
					r.Cause = p.parseTest()
				}
			}
			return r
		case "assert":
			p.advance()
			a := &ast.Assert{BaseStmt: ast.BaseStmt{SourceLine: line}, Test: p.parseTest()}
			if p.accept(",") {
				a.Msg = p.parseTest()
			}
			return a
		case "import":
			return p.parseImport()
		case "from":
			return p.parseImportFrom()
		}
	}
	return p.parseExprStatement()
}

func (p *Parser) atLineEnd() bool {
	return p.atKind(scanner.NEWLINE) || p.at(";") || p.atKind(scanner.EOF)
}

func (p *Parser) parseExprStatement() ast.Statement {
	line := p.cur().Pos.Line
	first := p.parseTestList(true)

	if t := p.cur(); isAugOp(t) {
		p.checkTarget(first, false)
		p.advance()
		return &ast.AugAssign{
			BaseStmt: ast.BaseStmt{SourceLine: line},
			Target:   first,
			Op:       strings.TrimSuffix(t.Text, "="),
			Value:    p.parseTestList(true),
		}
	}

	if !p.at("=") {
		return &ast.ExprStmt{BaseStmt: ast.BaseStmt{SourceLine: line}, Value: first}
	}
	exprs := []ast.Expr{first}
	for p.accept("=") {
		exprs = append(exprs, p.parseTestList(true))
	}
	targets := exprs[:len(exprs)-1]
	for _, t := range targets {
		p.checkTarget(t, true)
	}
	return &ast.Assign{
		BaseStmt: ast.BaseStmt{SourceLine: line},
		Targets:  targets,
		Value:    exprs[len(exprs)-1],
	}
}

func isAugOp(t scanner.Token) bool {
	if t.Kind != scanner.OP || len(t.Text) < 2 || !strings.HasSuffix(t.Text, "=") {
		return false
	}
	switch t.Text {
	case "==", "!=", "<=", ">=", ":=":
		return false
	}
	return true
}

// checkTarget rejects expressions that cannot be assigned to. Tuple and
// list destructuring is only allowed for plain assignment.
func (p *Parser) checkTarget(e ast.Expr, destructure bool) {
	switch t := e.(type) {
	case *ast.Name, *ast.Attribute, *ast.Subscript:
		return
	case *ast.Tuple:
		if destructure {
			for _, el := range t.Elts {
				p.checkTarget(el, true)
			}
			return
		}
	case *ast.List:
		if destructure {
			for _, el := range t.Elts {
				p.checkTarget(el, true)
			}
			return
		}
	case *ast.Starred:
		if destructure {
			p.checkTarget(t.Value, true)
			return
		}
	}
	p.errorf("cannot assign to %s", exprKind(e))
}

func exprKind(e ast.Expr) string {
	switch e.(type) {
	case *ast.Call:
		return "function call"
	case *ast.Num, *ast.Str, *ast.Constant:
		return "literal"
	case *ast.Lambda:
		return "lambda"
	}
	return "expression"
}

func (p *Parser) parseImport() ast.Statement {
	line := p.expect("import").Pos.Line
	imp := &ast.Import{BaseStmt: ast.BaseStmt{SourceLine: line}}
	for {
		a := ast.Alias{Name: p.parseDottedName()}
		if p.accept("as") {
			a.AsName = p.expectName()
		}
		imp.Names = append(imp.Names, a)
		if !p.accept(",") {
			return imp
		}
	}
}

func (p *Parser) parseImportFrom() ast.Statement {
	line := p.expect("from").Pos.Line
	imp := &ast.ImportFrom{BaseStmt: ast.BaseStmt{SourceLine: line}}
	for p.at(".") || p.at("...") {
		imp.Level += len(p.advance().Text)
	}
	if !p.at("import") {
		imp.Module = p.parseDottedName()
	}
	p.expect("import")
	if p.accept("*") {
		imp.Names = []ast.Alias{{Name: "*"}}
		return imp
	}
	paren := p.accept("(")
	for {
		a := ast.Alias{Name: p.expectName()}
		if p.accept("as") {
			a.AsName = p.expectName()
		}
		imp.Names = append(imp.Names, a)
		if !p.accept(",") {
			break
		}
		if paren && p.at(")") {
			break
		}
	}
	if paren {
		p.expect(")")
	}
	return imp
}

func (p *Parser) parseDottedName() string {
	name := p.expectName()
	for p.accept(".") {
		name += "." + p.expectName()
	}
	return name
}

// parseBlock parses ':' followed by an indented suite or a same-line
// simple statement list.
func (p *Parser) parseBlock() []ast.Statement {
	p.expect(":")
	if !p.atKind(scanner.NEWLINE) {
		return p.parseSimpleStatements()
	}
	p.advance()
	p.expectKind(scanner.INDENT)
	var body []ast.Statement
	for !p.atKind(scanner.DEDENT) && !p.atKind(scanner.EOF) {
		if p.atKind(scanner.NEWLINE) {
			p.advance()
			continue
		}
		body = append(body, p.parseStatement()...)
	}
	p.expectKind(scanner.DEDENT)
	return body
}

func (p *Parser) parseIf() ast.Statement {
	line := p.advance().Pos.Line // "if" or "elif"
	st := &ast.If{BaseStmt: ast.BaseStmt{SourceLine: line}, Test: p.parseTest()}
	st.Body = p.parseBlock()
	switch {
	case p.at("elif"):
		st.Else = []ast.Statement{p.parseIf()}
	case p.accept("else"):
		st.Else = p.parseBlock()
	}
	return st
}

func (p *Parser) parseFor() ast.Statement {
	line := p.expect("for").Pos.Line
	target := p.parseTargetList()
	p.checkTarget(target, true)
	p.expect("in")
	st := &ast.For{
		BaseStmt: ast.BaseStmt{SourceLine: line},
		Target:   target,
		Iter:     p.parseTestList(true),
	}
	st.Body = p.parseBlock()
	if p.accept("else") {
		st.Else = p.parseBlock()
	}
	return st
}

func (p *Parser) parseWhile() ast.Statement {
	line := p.expect("while").Pos.Line
	st := &ast.While{BaseStmt: ast.BaseStmt{SourceLine: line}, Test: p.parseTest()}
	st.Body = p.parseBlock()
	if p.accept("else") {
		st.Else = p.parseBlock()
	}
	return st
}

func (p *Parser) parseDecorated() ast.Statement {
	var decorators []ast.Expr
	for p.accept("@") {
		decorators = append(decorators, p.parseTest())
		p.expectKind(scanner.NEWLINE)
	}
	switch {
	case p.at("def"):
		return p.parseFuncDef(decorators)
	case p.at("class"):
		return p.parseClassDef(decorators)
	}
	p.errorf("expected def or class after decorator, got %s", describe(p.cur()))
	return nil
}

func (p *Parser) parseFuncDef(decorators []ast.Expr) ast.Statement {
	line := p.expect("def").Pos.Line
	fd := &ast.FuncDef{
		BaseStmt:   ast.BaseStmt{SourceLine: line},
		Name:       p.expectName(),
		Decorators: decorators,
	}
	p.expect("(")
	fd.Params = p.parseParams(")", true)
	p.expect(")")
	if p.accept("->") {
		fd.Returns = p.parseTest()
	}
	fd.Body = p.parseBlock()
	return fd
}

func (p *Parser) parseClassDef(decorators []ast.Expr) ast.Statement {
	line := p.expect("class").Pos.Line
	cd := &ast.ClassDef{
		BaseStmt:   ast.BaseStmt{SourceLine: line},
		Name:       p.expectName(),
		Decorators: decorators,
	}
	if p.accept("(") {
		cd.Bases, cd.Keywords = p.parseArgs()
		p.expect(")")
	}
	cd.Body = p.parseBlock()
	return cd
}

// parseParams parses a parameter list up to (not including) end.
// Annotations are only allowed in def parameter lists.
func (p *Parser) parseParams(end string, annotations bool) []ast.Param {
	var params []ast.Param
	for !p.at(end) {
		var prm ast.Param
		switch {
		case p.accept("**"):
			prm.Star = "**"
		case p.accept("*"):
			prm.Star = "*"
		}
		switch {
		case prm.Star == "*" && (p.at(",") || p.at(end)):
			// bare *: keyword-only marker
		case prm.Star == "" && p.accept("/"):
			prm.Name = "/"
		default:
			prm.Name = p.expectName()
			if annotations && p.accept(":") {
				prm.Annotation = p.parseTest()
			}
			if p.accept("=") {
				prm.Default = p.parseTest()
			}
		}
		params = append(params, prm)
		if !p.accept(",") {
			break
		}
	}
	return params
}

// --- Expressions ---

// parseTestList parses test (',' test)* [','], returning a Tuple when a
// comma is present. Starred items are allowed when star is true.
func (p *Parser) parseTestList(star bool) ast.Expr {
	first := p.parseTestOrStar(star)
	if !p.at(",") {
		return first
	}
	elts := []ast.Expr{first}
	for p.accept(",") {
		if p.atExprEnd() {
			break
		}
		elts = append(elts, p.parseTestOrStar(star))
	}
	return &ast.Tuple{Elts: elts}
}

// parseTargetList parses a for-loop target, stopping before "in".
func (p *Parser) parseTargetList() ast.Expr {
	first := p.parseTargetItem()
	if !p.at(",") {
		return first
	}
	elts := []ast.Expr{first}
	for p.accept(",") {
		if p.at("in") {
			break
		}
		elts = append(elts, p.parseTargetItem())
	}
	return &ast.Tuple{Elts: elts}
}

func (p *Parser) parseTargetItem() ast.Expr {
	if p.accept("*") {
		return &ast.Starred{Value: p.parseBitOr()}
	}
	return p.parseBitOr()
}

func (p *Parser) atExprEnd() bool {
	if p.atLineEnd() {
		return true
	}
	for _, s := range []string{")", "]", "}", "=", ":"} {
		if p.at(s) {
			return true
		}
	}
	return isAugOp(p.cur())
}

func (p *Parser) parseTestOrStar(star bool) ast.Expr {
	if star && p.at("*") {
		p.advance()
		return &ast.Starred{Value: p.parseBitOr()}
	}
	return p.parseTest()
}

func (p *Parser) parseTest() ast.Expr {
	if p.at("lambda") {
		return p.parseLambda()
	}
	body := p.parseOr()
	if p.at(":=") {
		p.errorf("assignment expressions are not supported")
	}
	if !p.at("if") {
		return body
	}
	p.advance()
	test := p.parseOr()
	p.expect("else")
	return &ast.IfExp{Test: test, Body: body, OrElse: p.parseTest()}
}

func (p *Parser) parseLambda() ast.Expr {
	p.expect("lambda")
	params := p.parseParams(":", false)
	p.expect(":")
	return &ast.Lambda{Params: params, Body: p.parseTest()}
}

func (p *Parser) parseOr() ast.Expr {
	left := p.parseAnd()
	if !p.at("or") {
		return left
	}
	values := []ast.Expr{left}
	for p.accept("or") {
		values = append(values, p.parseAnd())
	}
	return &ast.BoolOp{Op: "or", Values: values}
}

func (p *Parser) parseAnd() ast.Expr {
	left := p.parseNot()
	if !p.at("and") {
		return left
	}
	values := []ast.Expr{left}
	for p.accept("and") {
		values = append(values, p.parseNot())
	}
	return &ast.BoolOp{Op: "and", Values: values}
}

func (p *Parser) parseNot() ast.Expr {
	if p.accept("not") {
		return &ast.UnaryOp{Op: "not", Operand: p.parseNot()}
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() ast.Expr {
	left := p.parseBitOr()
	var ops []string
	var comps []ast.Expr
	for {
		var op string
		switch {
		case p.at("<"), p.at(">"), p.at("=="), p.at(">="), p.at("<="), p.at("!="), p.at("in"):
			op = p.advance().Text
		case p.at("not") && p.peek(1).Is("in"):
			p.advance()
			p.advance()
			op = "not in"
		case p.at("is"):
			p.advance()
			op = "is"
			if p.accept("not") {
				op = "is not"
			}
		default:
			if len(ops) == 0 {
				return left
			}
			return &ast.Compare{Left: left, Ops: ops, Comparators: comps}
		}
		ops = append(ops, op)
		comps = append(comps, p.parseBitOr())
	}
}

// binaryLevels lists left-associative binary operators from loosest to
// tightest binding.
var binaryLevels = [][]string{
	{"|"},
	{"^"},
	{"&"},
	{"<<", ">>"},
	{"+", "-"},
	{"*", "/", "//", "%", "@"},
}

func (p *Parser) parseBitOr() ast.Expr { return p.parseBinary(0) }

func (p *Parser) parseBinary(level int) ast.Expr {
	if level == len(binaryLevels) {
		return p.parseFactor()
	}
	left := p.parseBinary(level + 1)
	for {
		op, ok := p.matchOp(binaryLevels[level])
		if !ok {
			return left
		}
		left = &ast.BinOp{Left: left, Op: op, Right: p.parseBinary(level + 1)}
	}
}

func (p *Parser) matchOp(ops []string) (string, bool) {
	t := p.cur()
	if t.Kind != scanner.OP {
		return "", false
	}
	for _, op := range ops {
		if t.Text == op {
			p.advance()
			return op, true
		}
	}
	return "", false
}

func (p *Parser) parseFactor() ast.Expr {
	if op, ok := p.matchOp([]string{"-", "+", "~"}); ok {
		return &ast.UnaryOp{Op: op, Operand: p.parseFactor()}
	}
	return p.parsePower()
}

func (p *Parser) parsePower() ast.Expr {
	if p.at("await") {
		p.errorf("await is not supported")
	}
	base := p.parsePrimary()
	if p.accept("**") {
		return &ast.BinOp{Left: base, Op: "**", Right: p.parseFactor()}
	}
	return base
}

func (p *Parser) parsePrimary() ast.Expr {
	e := p.parseAtom()
	for {
		switch {
		case p.accept("("):
			args, kws := p.parseArgs()
			p.expect(")")
			e = &ast.Call{Func: e, Args: args, Keywords: kws}
		case p.accept("["):
			e = &ast.Subscript{Value: e, Index: p.parseSubscriptList()}
			p.expect("]")
		case p.accept("."):
			e = &ast.Attribute{Value: e, Attr: p.expectName()}
		default:
			return e
		}
	}
}

// parseArgs parses call arguments up to (not including) the closing paren.
func (p *Parser) parseArgs() ([]ast.Expr, []*ast.Keyword) {
	var args []ast.Expr
	var kws []*ast.Keyword
	for !p.at(")") {
		switch {
		case p.accept("**"):
			kws = append(kws, &ast.Keyword{Value: p.parseTest()})
		case p.accept("*"):
			args = append(args, &ast.Starred{Value: p.parseTest()})
		case p.atKind(scanner.NAME) && p.peek(1).Is("="):
			name := p.expectName()
			p.advance()
			kws = append(kws, &ast.Keyword{Name: name, Value: p.parseTest()})
		default:
			if len(kws) > 0 {
				p.errorf("positional argument follows keyword argument")
			}
			arg := p.parseTest()
			if p.at("for") {
				p.errorf("comprehensions are not supported")
			}
			args = append(args, arg)
		}
		if !p.accept(",") {
			break
		}
	}
	return args, kws
}

func (p *Parser) parseSubscriptList() ast.Expr {
	first := p.parseSubscript()
	if !p.at(",") {
		return first
	}
	elts := []ast.Expr{first}
	for p.accept(",") {
		if p.at("]") {
			break
		}
		elts = append(elts, p.parseSubscript())
	}
	return &ast.Tuple{Elts: elts}
}

func (p *Parser) parseSubscript() ast.Expr {
	var lower ast.Expr
	if !p.at(":") {
		lower = p.parseTest()
		if !p.at(":") {
			return lower
		}
	}
	p.expect(":")
	s := &ast.Slice{Lower: lower}
	if !p.at(":") && !p.at("]") && !p.at(",") {
		s.Upper = p.parseTest()
	}
	if p.accept(":") && !p.at("]") && !p.at(",") {
		s.Step = p.parseTest()
	}
	return s
}

func (p *Parser) parseAtom() ast.Expr {
	t := p.cur()
	switch t.Kind {
	case scanner.NUMBER:
		p.advance()
		return &ast.Num{Value: t.Text}
	case scanner.STRING:
		p.advance()
		parts := []string{t.Text}
		for p.atKind(scanner.STRING) {
			parts = append(parts, p.advance().Text)
		}
		return &ast.Str{Value: strings.Join(parts, " ")}
	case scanner.NAME:
		switch t.Text {
		case "None", "True", "False":
			p.advance()
			return &ast.Constant{Value: t.Text}
		}
		return &ast.Name{ID: p.expectName()}
	}

	switch {
	case p.accept("..."):
		return &ast.Constant{Value: "..."}
	case p.accept("("):
		if p.accept(")") {
			return &ast.Tuple{Parens: true}
		}
		e := p.parseTestList(true)
		if p.at("for") {
			p.errorf("comprehensions are not supported")
		}
		p.expect(")")
		if tup, ok := e.(*ast.Tuple); ok {
			tup.Parens = true
		}
		return e
	case p.accept("["):
		l := &ast.List{}
		for !p.at("]") {
			l.Elts = append(l.Elts, p.parseTestOrStar(true))
			if p.at("for") {
				p.errorf("comprehensions are not supported")
			}
			if !p.accept(",") {
				break
			}
		}
		p.expect("]")
		return l
	case p.accept("{"):
		d := &ast.Dict{}
		for !p.at("}") {
			if p.accept("**") {
				d.Keys = append(d.Keys, nil)
				d.Values = append(d.Values, p.parseBitOr())
			} else {
				k := p.parseTest()
				if !p.at(":") {
					p.errorf("set literals are not supported")
				}
				p.advance()
				d.Keys = append(d.Keys, k)
				d.Values = append(d.Values, p.parseTest())
			}
			if !p.accept(",") {
				break
			}
		}
		p.expect("}")
		return d
	}
	p.errorf("unexpected %s", describe(t))
	return nil
}
