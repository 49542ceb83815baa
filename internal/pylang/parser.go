package pylang

import (
	"fmt"
	"strings"
)

// ParseError reports a syntax error with its source position.
type ParseError struct {
	Line int
	Col  int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("syntax error at %d:%d: %s", e.Line, e.Col, e.Msg)
}

// ParseModule parses source text as a statement sequence.
func ParseModule(src string) (m *Module, err error) {
	toks, lerr := Lex(src)
	if lerr != nil {
		return nil, lerr
	}
	p := newParser(toks)
	defer p.recoverBailout(&err)

	var body []Stmt
	for p.cur().Kind != TokEOF {
		if p.cur().Kind == TokNewline {
			p.next()
			continue
		}
		body = append(body, p.parseStatement()...)
	}
	return &Module{Body: body}, nil
}

// ParseExpression parses source text as a single expression.
func ParseExpression(src string) (e Expr, err error) {
	toks, lerr := Lex(src)
	if lerr != nil {
		return nil, lerr
	}
	p := newParser(toks)
	defer p.recoverBailout(&err)

	for p.cur().Kind == TokNewline {
		p.next()
	}
	expr := p.parseTestListStar()
	for p.cur().Kind == TokNewline {
		p.next()
	}
	if p.cur().Kind != TokEOF {
		p.fail("unexpected %s after expression", p.cur())
	}
	return expr, nil
}

type parser struct {
	toks []Token
	pos  int
}

func newParser(toks []Token) *parser {
	// Comments are non-semantic for parsing.
	filtered := make([]Token, 0, len(toks))
	for _, t := range toks {
		if t.Kind != TokComment {
			filtered = append(filtered, t)
		}
	}
	return &parser{toks: filtered}
}

type bailout struct{ err *ParseError }

func (p *parser) recoverBailout(err *error) {
	if r := recover(); r != nil {
		if b, ok := r.(bailout); ok {
			*err = b.err
			return
		}
		panic(r)
	}
}

func (p *parser) fail(format string, args ...any) {
	t := p.cur()
	panic(bailout{&ParseError{Line: t.Line, Col: t.Col, Msg: fmt.Sprintf(format, args...)}})
}

func (p *parser) cur() Token {
	if p.pos >= len(p.toks) {
		return Token{Kind: TokEOF}
	}
	return p.toks[p.pos]
}

func (p *parser) peek() Token {
	if p.pos+1 >= len(p.toks) {
		return Token{Kind: TokEOF}
	}
	return p.toks[p.pos+1]
}

func (p *parser) next() Token {
	t := p.cur()
	p.pos++
	return t
}

// accept consumes the current token if it is the given operator or keyword.
func (p *parser) accept(lexeme string) bool {
	if p.cur().Is(lexeme) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(lexeme string) {
	if !p.accept(lexeme) {
		p.fail("expected %q, found %s", lexeme, p.cur())
	}
}

func (p *parser) expectName() string {
	if p.cur().Kind != TokName {
		p.fail("expected name, found %s", p.cur())
	}
	return p.next().Lexeme
}

func (p *parser) endOfSimpleStmt() {
	switch p.cur().Kind {
	case TokNewline:
		p.next()
	case TokEOF:
	default:
		if !p.cur().Is(";") {
			p.fail("unexpected %s", p.cur())
		}
	}
}

// Statements

func (p *parser) parseStatement() []Stmt {
	t := p.cur()
	if t.Kind == TokKeyword {
		switch t.Lexeme {
		case "if":
			return []Stmt{p.parseIf()}
		case "while":
			return []Stmt{p.parseWhile()}
		case "for":
			return []Stmt{p.parseFor()}
		case "def":
			return []Stmt{p.parseFuncDef()}
		case "class":
			return []Stmt{p.parseClassDef()}
		case "try":
			return []Stmt{p.parseTry()}
		case "with", "global", "as", "elif", "else", "except", "finally":
			p.fail("unsupported statement %q", t.Lexeme)
		}
	}
	return p.parseSimpleLine()
}

func (p *parser) parseSimpleLine() []Stmt {
	stmts := []Stmt{p.parseSmallStmt()}
	for p.accept(";") {
		if p.cur().Kind == TokNewline || p.cur().Kind == TokEOF {
			break
		}
		stmts = append(stmts, p.parseSmallStmt())
	}
	p.endOfSimpleStmt()
	return stmts
}

func (p *parser) parseSmallStmt() Stmt {
	t := p.cur()
	if t.Kind == TokKeyword {
		switch t.Lexeme {
		case "pass":
			p.next()
			return &Pass{}
		case "break":
			p.next()
			return &Break{}
		case "continue":
			p.next()
			return &Continue{}
		case "return":
			p.next()
			var v Expr
			if !p.atStmtEnd() {
				v = p.parseTestListStar()
			}
			return &Return{Value: v}
		case "raise":
			p.next()
			r := &Raise{}
			if !p.atStmtEnd() {
				r.Exc = p.parseTest()
				if p.accept("from") {
					r.Cause = p.parseTest()
				}
			}
			return r
		case "assert":
			p.next()
			a := &Assert{Test: p.parseTest()}
			if p.accept(",") {
				a.Msg = p.parseTest()
			}
			return a
		case "import":
			return p.parseImport()
		case "from":
			return p.parseFromImport()
		case "del":
			p.next()
			return &Del{Targets: p.parseTargetListExprs()}
		case "yield":
			p.next()
			y := &Yield{}
			if !p.atStmtEnd() {
				y.Value = p.parseTestListStar()
			}
			return &ExprStmt{X: y}
		}
	}
	return p.parseExprOrAssign()
}

func (p *parser) atStmtEnd() bool {
	k := p.cur().Kind
	return k == TokNewline || k == TokEOF || p.cur().Is(";")
}

var augOps = map[string]bool{
	"+=": true, "-=": true, "*=": true, "/=": true, "//=": true, "%=": true,
	"**=": true, ">>=": true, "<<=": true, "&=": true, "|=": true, "^=": true, "@=": true,
}

func (p *parser) parseExprOrAssign() Stmt {
	first := p.parseTestListStar()

	if p.cur().Is(":") {
		// Annotated assignment: x: int = 5. The annotation is dropped so
		// annotated and bare forms compare equal.
		p.next()
		p.parseTest()
		if p.accept("=") {
			return &Assign{Targets: []Expr{first}, Value: p.parseTestListStar()}
		}
		return &ExprStmt{X: first}
	}

	if p.cur().Kind == TokOp && augOps[p.cur().Lexeme] {
		op := p.next().Lexeme
		value := p.parseTestListStar()
		return &AugAssign{Target: first, Op: strings.TrimSuffix(op, "="), Value: value}
	}

	if p.cur().Is("=") {
		exprs := []Expr{first}
		for p.accept("=") {
			exprs = append(exprs, p.parseTestListStar())
		}
		value := exprs[len(exprs)-1]
		return &Assign{Targets: exprs[:len(exprs)-1], Value: value}
	}

	return &ExprStmt{X: first}
}

func (p *parser) parseBlock() []Stmt {
	p.expect(":")
	if p.cur().Kind != TokNewline {
		// Single-line suite: def f(a): return a + 1
		return p.parseSimpleLine()
	}
	p.next()
	if p.cur().Kind != TokIndent {
		p.fail("expected an indented block")
	}
	p.next()
	var body []Stmt
	for p.cur().Kind != TokDedent && p.cur().Kind != TokEOF {
		if p.cur().Kind == TokNewline {
			p.next()
			continue
		}
		body = append(body, p.parseStatement()...)
	}
	if p.cur().Kind == TokDedent {
		p.next()
	}
	return body
}

func (p *parser) parseIf() Stmt {
	p.expect("if")
	n := &If{Cond: p.parseTest()}
	n.Body = p.parseBlock()
	if p.cur().Is("elif") {
		p.toks[p.pos] = Token{Kind: TokKeyword, Lexeme: "if", Line: p.cur().Line, Col: p.cur().Col}
		n.Else = []Stmt{p.parseIf()}
	} else if p.accept("else") {
		n.Else = p.parseBlock()
	}
	return n
}

func (p *parser) parseWhile() Stmt {
	p.expect("while")
	n := &While{Cond: p.parseTest()}
	n.Body = p.parseBlock()
	if p.accept("else") {
		n.Else = p.parseBlock()
	}
	return n
}

func (p *parser) parseFor() Stmt {
	p.expect("for")
	n := &For{Target: p.parseTargetList()}
	p.expect("in")
	n.Iter = p.parseTestListStar()
	n.Body = p.parseBlock()
	if p.accept("else") {
		n.Else = p.parseBlock()
	}
	return n
}

func (p *parser) parseFuncDef() Stmt {
	p.expect("def")
	n := &FuncDef{Name: p.expectName()}
	p.expect("(")
	n.Params = p.parseParams(")")
	p.expect(")")
	if p.accept("->") {
		p.parseTest() // return annotations carry no grading weight
	}
	n.Body = p.parseBlock()
	return n
}

func (p *parser) parseClassDef() Stmt {
	p.expect("class")
	n := &ClassDef{Name: p.expectName()}
	if p.accept("(") {
		for !p.cur().Is(")") {
			n.Bases = append(n.Bases, p.parseTest())
			if !p.accept(",") {
				break
			}
		}
		p.expect(")")
	}
	n.Body = p.parseBlock()
	return n
}

func (p *parser) parseTry() Stmt {
	p.expect("try")
	n := &Try{Body: p.parseBlock()}
	for p.cur().Is("except") {
		p.next()
		h := ExceptHandler{}
		if !p.cur().Is(":") {
			h.Type = p.parseTest()
			if p.accept("as") {
				h.Name = p.expectName()
			}
		}
		h.Body = p.parseBlock()
		n.Handlers = append(n.Handlers, h)
	}
	if p.accept("else") {
		n.Else = p.parseBlock()
	}
	if p.accept("finally") {
		n.Finally = p.parseBlock()
	}
	if len(n.Handlers) == 0 && n.Finally == nil {
		p.fail("expected except or finally block")
	}
	return n
}

func (p *parser) parseImport() Stmt {
	p.expect("import")
	n := &Import{}
	for {
		in := ImportName{Path: p.parseDottedName()}
		if p.accept("as") {
			in.Alias = p.expectName()
		}
		n.Names = append(n.Names, in)
		if !p.accept(",") {
			break
		}
	}
	return n
}

func (p *parser) parseFromImport() Stmt {
	p.expect("from")
	n := &FromImport{Module: p.parseDottedName()}
	p.expect("import")
	if p.accept("*") {
		n.Names = append(n.Names, ImportName{Path: "*"})
		return n
	}
	paren := p.accept("(")
	for {
		in := ImportName{Path: p.expectName()}
		if p.accept("as") {
			in.Alias = p.expectName()
		}
		n.Names = append(n.Names, in)
		if !p.accept(",") {
			break
		}
		if paren && p.cur().Is(")") {
			break
		}
	}
	if paren {
		p.expect(")")
	}
	return n
}

func (p *parser) parseDottedName() string {
	var b strings.Builder
	b.WriteString(p.expectName())
	for p.cur().Is(".") {
		p.next()
		b.WriteByte('.')
		b.WriteString(p.expectName())
	}
	return b.String()
}

// Assignment and loop targets

func (p *parser) parseTarget() Expr {
	if p.accept("*") {
		return &Starred{Value: p.parseTarget()}
	}
	if p.accept("(") {
		inner := p.parseTargetList()
		p.expect(")")
		return inner
	}
	if p.accept("[") {
		var elts []Expr
		for !p.cur().Is("]") {
			elts = append(elts, p.parseTarget())
			if !p.accept(",") {
				break
			}
		}
		p.expect("]")
		return &List{Elts: elts}
	}
	return p.parsePostfix()
}

func (p *parser) parseTargetList() Expr {
	first := p.parseTarget()
	if !p.cur().Is(",") {
		return first
	}
	elts := []Expr{first}
	for p.accept(",") {
		if !p.startsTarget() {
			break
		}
		elts = append(elts, p.parseTarget())
	}
	return &Tuple{Elts: elts}
}

func (p *parser) parseTargetListExprs() []Expr {
	elts := []Expr{p.parseTarget()}
	for p.accept(",") {
		if !p.startsTarget() {
			break
		}
		elts = append(elts, p.parseTarget())
	}
	return elts
}

func (p *parser) startsTarget() bool {
	t := p.cur()
	return t.Kind == TokName || t.Is("*") || t.Is("(") || t.Is("[")
}

// Expressions

func (p *parser) parseTest() Expr {
	if p.cur().Is("lambda") {
		return p.parseLambda()
	}
	v := p.parseOr()
	if p.cur().Is("if") {
		p.next()
		cond := p.parseOr()
		p.expect("else")
		els := p.parseTest()
		return &IfExp{Body: v, Cond: cond, Else: els}
	}
	return v
}

func (p *parser) parseTestOrStar() Expr {
	if p.accept("*") {
		return &Starred{Value: p.parseOr()}
	}
	return p.parseTest()
}

// parseTestListStar parses a comma-separated expression list, producing a
// Tuple when more than one element (or a trailing comma) is present.
func (p *parser) parseTestListStar() Expr {
	first := p.parseTestOrStar()
	if !p.cur().Is(",") {
		return first
	}
	elts := []Expr{first}
	for p.accept(",") {
		if !p.startsExpr() {
			break
		}
		elts = append(elts, p.parseTestOrStar())
	}
	return &Tuple{Elts: elts}
}

func (p *parser) startsExpr() bool {
	t := p.cur()
	switch t.Kind {
	case TokName, TokNumber, TokString:
		return true
	case TokKeyword:
		switch t.Lexeme {
		case "True", "False", "None", "not", "lambda":
			return true
		}
		return false
	case TokOp:
		switch t.Lexeme {
		case "(", "[", "{", "+", "-", "~", "*", "**", "...":
			return true
		}
		return false
	}
	return false
}

func (p *parser) parseLambda() Expr {
	p.expect("lambda")
	params := p.parseParams(":")
	p.expect(":")
	return &Lambda{Params: params, Body: p.parseTest()}
}

func (p *parser) parseParams(closing string) Params {
	var params Params
	for !p.cur().Is(closing) {
		switch {
		case p.accept("**"):
			params.Kwarg = p.expectName()
		case p.accept("*"):
			params.Vararg = p.expectName()
		default:
			param := Param{Name: p.expectName()}
			// Lambda params end at ':', so only def params carry annotations.
			if closing == ")" && p.accept(":") {
				p.parseTest() // parameter annotation, ignored
			}
			if p.accept("=") {
				param.Default = p.parseTest()
			}
			params.Args = append(params.Args, param)
		}
		if !p.accept(",") {
			break
		}
	}
	return params
}

func (p *parser) parseOr() Expr {
	v := p.parseAnd()
	if !p.cur().Is("or") {
		return v
	}
	n := &BoolOp{Op: "or", Values: []Expr{v}}
	for p.accept("or") {
		n.Values = append(n.Values, p.parseAnd())
	}
	return n
}

func (p *parser) parseAnd() Expr {
	v := p.parseNot()
	if !p.cur().Is("and") {
		return v
	}
	n := &BoolOp{Op: "and", Values: []Expr{v}}
	for p.accept("and") {
		n.Values = append(n.Values, p.parseNot())
	}
	return n
}

func (p *parser) parseNot() Expr {
	if p.accept("not") {
		return &UnaryOp{Op: "not", Operand: p.parseNot()}
	}
	return p.parseComparison()
}

func (p *parser) comparisonOp() (string, bool) {
	t := p.cur()
	if t.Kind == TokOp {
		switch t.Lexeme {
		case "==", "!=", "<", "<=", ">", ">=":
			return t.Lexeme, true
		}
		return "", false
	}
	if t.Kind == TokKeyword {
		switch t.Lexeme {
		case "in":
			return "in", true
		case "is":
			if p.peek().Is("not") {
				return "is not", true
			}
			return "is", true
		case "not":
			if p.peek().Is("in") {
				return "not in", true
			}
		}
	}
	return "", false
}

func (p *parser) parseComparison() Expr {
	left := p.parseBitOr()
	op, ok := p.comparisonOp()
	if !ok {
		return left
	}
	n := &Compare{Left: left}
	for {
		op, ok = p.comparisonOp()
		if !ok {
			break
		}
		p.next()
		if op == "is not" || op == "not in" {
			p.next()
		}
		n.Ops = append(n.Ops, op)
		n.Comparators = append(n.Comparators, p.parseBitOr())
	}
	return n
}

func (p *parser) parseBinOpLevel(ops []string, operand func() Expr) Expr {
	left := operand()
	for {
		matched := false
		for _, op := range ops {
			if p.cur().Is(op) {
				p.next()
				left = &BinOp{Left: left, Op: op, Right: operand()}
				matched = true
				break
			}
		}
		if !matched {
			return left
		}
	}
}

func (p *parser) parseBitOr() Expr {
	return p.parseBinOpLevel([]string{"|"}, p.parseBitXor)
}

func (p *parser) parseBitXor() Expr {
	return p.parseBinOpLevel([]string{"^"}, p.parseBitAnd)
}

func (p *parser) parseBitAnd() Expr {
	return p.parseBinOpLevel([]string{"&"}, p.parseShift)
}

func (p *parser) parseShift() Expr {
	return p.parseBinOpLevel([]string{"<<", ">>"}, p.parseArith)
}

func (p *parser) parseArith() Expr {
	return p.parseBinOpLevel([]string{"+", "-"}, p.parseTerm)
}

func (p *parser) parseTerm() Expr {
	return p.parseBinOpLevel([]string{"*", "//", "/", "%", "@"}, p.parseFactor)
}

func (p *parser) parseFactor() Expr {
	t := p.cur()
	if t.Is("+") || t.Is("-") || t.Is("~") {
		p.next()
		return &UnaryOp{Op: t.Lexeme, Operand: p.parseFactor()}
	}
	return p.parsePower()
}

func (p *parser) parsePower() Expr {
	base := p.parsePostfix()
	if p.accept("**") {
		return &BinOp{Left: base, Op: "**", Right: p.parseFactor()}
	}
	return base
}

func (p *parser) parsePostfix() Expr {
	e := p.parseAtom()
	for {
		switch {
		case p.accept("("):
			e = p.parseCall(e)
		case p.accept("["):
			e = &Subscript{Value: e, Index: p.parseSubscriptIndex()}
			p.expect("]")
		case p.accept("."):
			e = &Attribute{Value: e, Attr: p.expectName()}
		default:
			return e
		}
	}
}

func (p *parser) parseCall(fn Expr) Expr {
	call := &Call{Func: fn}
	for !p.cur().Is(")") {
		switch {
		case p.accept("**"):
			call.Keywords = append(call.Keywords, Keyword{Value: p.parseTest()})
		case p.accept("*"):
			call.Args = append(call.Args, &Starred{Value: p.parseTest()})
		case p.cur().Kind == TokName && p.peek().Is("="):
			name := p.next().Lexeme
			p.next()
			call.Keywords = append(call.Keywords, Keyword{Name: name, Value: p.parseTest()})
		default:
			arg := p.parseTest()
			if p.cur().Is("for") {
				// sum(x*x for x in xs): a bare generator expression argument.
				arg = &GeneratorExp{Elt: arg, Gens: p.parseComprehensionClauses()}
			}
			call.Args = append(call.Args, arg)
		}
		if !p.accept(",") {
			break
		}
	}
	p.expect(")")
	return call
}

func (p *parser) parseSubscriptIndex() Expr {
	first := p.parseSliceItem()
	if !p.cur().Is(",") {
		return first
	}
	elts := []Expr{first}
	for p.accept(",") {
		if p.cur().Is("]") {
			break
		}
		elts = append(elts, p.parseSliceItem())
	}
	return &Tuple{Elts: elts}
}

func (p *parser) parseSliceItem() Expr {
	var lower Expr
	if !p.cur().Is(":") {
		lower = p.parseTest()
		if !p.cur().Is(":") {
			return lower
		}
	}
	p.expect(":")
	s := &Slice{Lower: lower}
	if !p.cur().Is(":") && !p.cur().Is("]") && !p.cur().Is(",") {
		s.Upper = p.parseTest()
	}
	if p.accept(":") {
		if !p.cur().Is("]") && !p.cur().Is(",") {
			s.Step = p.parseTest()
		}
	}
	return s
}

func (p *parser) parseComprehensionClauses() []Comprehension {
	var gens []Comprehension
	for p.cur().Is("for") {
		p.next()
		g := Comprehension{Target: p.parseTargetList()}
		p.expect("in")
		g.Iter = p.parseOr()
		for p.cur().Is("if") {
			p.next()
			g.Ifs = append(g.Ifs, p.parseOr())
		}
		gens = append(gens, g)
	}
	return gens
}

func (p *parser) parseAtom() Expr {
	t := p.cur()
	switch t.Kind {
	case TokName:
		p.next()
		return &Name{ID: t.Lexeme}
	case TokNumber:
		p.next()
		return &Num{Lit: t.Lexeme}
	case TokString:
		return p.parseStringGroup()
	case TokKeyword:
		switch t.Lexeme {
		case "True", "False", "None":
			p.next()
			return &Const{Kind: t.Lexeme}
		case "lambda":
			return p.parseLambda()
		}
	case TokOp:
		switch t.Lexeme {
		case "(":
			return p.parseParenAtom()
		case "[":
			return p.parseListAtom()
		case "{":
			return p.parseBraceAtom()
		}
	}
	p.fail("unexpected %s", t)
	return nil
}

// parseStringGroup handles implicit concatenation of adjacent string
// literals. A group containing any f-string stays an FString.
func (p *parser) parseStringGroup() Expr {
	var lits, values []string
	hasF := false
	for p.cur().Kind == TokString {
		lex := p.next().Lexeme
		lits = append(lits, lex)
		if isFStringLexeme(lex) {
			hasF = true
		} else {
			values = append(values, stringValue(lex))
		}
	}
	joined := strings.Join(lits, " ")
	if hasF {
		return &FString{Lit: joined}
	}
	return &Str{Lit: joined, Value: strings.Join(values, "")}
}

func isFStringLexeme(lex string) bool {
	for i := 0; i < len(lex) && i < 3; i++ {
		c := lex[i]
		if c == '"' || c == '\'' {
			return false
		}
		if c == 'f' || c == 'F' {
			return true
		}
	}
	return false
}

// stringValue decodes a string literal lexeme to its value. Only the common
// escapes are interpreted; raw strings keep backslashes verbatim.
func stringValue(lex string) string {
	raw := false
	i := 0
	for i < len(lex) && lex[i] != '"' && lex[i] != '\'' {
		if lex[i] == 'r' || lex[i] == 'R' {
			raw = true
		}
		i++
	}
	if i >= len(lex) {
		return lex
	}
	quote := lex[i]
	body := lex[i+1 : len(lex)-1]
	if strings.HasPrefix(lex[i:], string([]byte{quote, quote, quote})) {
		body = lex[i+3 : len(lex)-3]
	}
	if raw {
		return body
	}
	var b strings.Builder
	for j := 0; j < len(body); j++ {
		if body[j] != '\\' || j+1 >= len(body) {
			b.WriteByte(body[j])
			continue
		}
		j++
		switch body[j] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\', '\'', '"':
			b.WriteByte(body[j])
		case '\n':
			// Escaped newline joins lines.
		default:
			b.WriteByte('\\')
			b.WriteByte(body[j])
		}
	}
	return b.String()
}

func (p *parser) parseParenAtom() Expr {
	p.expect("(")
	if p.accept(")") {
		return &Tuple{}
	}
	if p.cur().Is("yield") {
		p.next()
		y := &Yield{}
		if !p.cur().Is(")") {
			y.Value = p.parseTestListStar()
		}
		p.expect(")")
		return y
	}
	first := p.parseTestOrStar()
	if p.cur().Is("for") {
		g := &GeneratorExp{Elt: first, Gens: p.parseComprehensionClauses()}
		p.expect(")")
		return g
	}
	if p.cur().Is(",") {
		elts := []Expr{first}
		for p.accept(",") {
			if p.cur().Is(")") {
				break
			}
			elts = append(elts, p.parseTestOrStar())
		}
		p.expect(")")
		return &Tuple{Elts: elts}
	}
	p.expect(")")
	return first
}

func (p *parser) parseListAtom() Expr {
	p.expect("[")
	if p.accept("]") {
		return &List{}
	}
	first := p.parseTestOrStar()
	if p.cur().Is("for") {
		c := &ListComp{Elt: first, Gens: p.parseComprehensionClauses()}
		p.expect("]")
		return c
	}
	elts := []Expr{first}
	for p.accept(",") {
		if p.cur().Is("]") {
			break
		}
		elts = append(elts, p.parseTestOrStar())
	}
	p.expect("]")
	return &List{Elts: elts}
}

func (p *parser) parseBraceAtom() Expr {
	p.expect("{")
	if p.accept("}") {
		return &Dict{}
	}
	if p.accept("**") {
		d := &Dict{Keys: []Expr{nil}, Values: []Expr{p.parseOr()}}
		p.parseDictRest(d)
		return d
	}
	first := p.parseTestOrStar()
	if p.accept(":") {
		value := p.parseTest()
		if p.cur().Is("for") {
			c := &DictComp{Key: first, Value: value, Gens: p.parseComprehensionClauses()}
			p.expect("}")
			return c
		}
		d := &Dict{Keys: []Expr{first}, Values: []Expr{value}}
		p.parseDictRest(d)
		return d
	}
	if p.cur().Is("for") {
		c := &SetComp{Elt: first, Gens: p.parseComprehensionClauses()}
		p.expect("}")
		return c
	}
	s := &Set{Elts: []Expr{first}}
	for p.accept(",") {
		if p.cur().Is("}") {
			break
		}
		s.Elts = append(s.Elts, p.parseTestOrStar())
	}
	p.expect("}")
	return s
}

func (p *parser) parseDictRest(d *Dict) {
	for p.accept(",") {
		if p.cur().Is("}") {
			break
		}
		if p.accept("**") {
			d.Keys = append(d.Keys, nil)
			d.Values = append(d.Values, p.parseOr())
			continue
		}
		key := p.parseTest()
		p.expect(":")
		d.Keys = append(d.Keys, key)
		d.Values = append(d.Values, p.parseTest())
	}
	p.expect("}")
}
