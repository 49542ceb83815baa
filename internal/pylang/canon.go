package pylang

import "fmt"

// Options control which canonicalization rewrites are applied.
type Options struct {
	// RenameLocals replaces locally bound names with positional placeholders
	// so `def f(x): return x` and `def f(n): return n` fingerprint equal.
	RenameLocals bool
	// NormalizeSlices drops redundant slice parts: a lower bound of 0 and a
	// step of 1.
	NormalizeSlices bool
	// IgnoreDocstrings strips the leading string literal of module, function
	// and class bodies.
	IgnoreDocstrings bool
}

// DefaultOptions enables every rewrite.
func DefaultOptions() Options {
	return Options{RenameLocals: true, NormalizeSlices: true, IgnoreDocstrings: true}
}

// Fingerprint parses code and returns its canonical structural form. Two
// snippets with the same fingerprint are structurally equivalent under the
// given options.
func Fingerprint(code string, opts Options) (string, error) {
	m, err := ParseModule(code)
	if err != nil {
		return "", err
	}
	Canonicalize(m, opts)
	return Render(m), nil
}

// Canonicalize rewrites the module in place.
func Canonicalize(m *Module, opts Options) {
	c := &canonicalizer{opts: opts}
	if opts.IgnoreDocstrings {
		m.Body = stripDocstring(m.Body)
	}
	c.pushScope(bindingsIn(m.Body))
	c.stmts(m.Body)
	c.popScope()
}

type canonicalizer struct {
	opts    Options
	counter int
	scopes  []map[string]string
}

// pushScope assigns a placeholder to each bound name. The placeholder counter
// is shared across all scopes of one canonicalization run so names bound in
// nested scopes can never collide with names captured from enclosing ones.
func (c *canonicalizer) pushScope(bound []string) {
	scope := make(map[string]string, len(bound))
	if c.opts.RenameLocals {
		for _, name := range bound {
			if _, ok := scope[name]; ok {
				continue
			}
			scope[name] = fmt.Sprintf("_v%d", c.counter)
			c.counter++
		}
	}
	c.scopes = append(c.scopes, scope)
}

// pushIdentityScope makes names resolve to themselves. Class bodies use it:
// their assignments define attributes, which keep their spelled names while
// still shadowing any renamed outer local.
func (c *canonicalizer) pushIdentityScope(bound []string) {
	scope := make(map[string]string, len(bound))
	for _, name := range bound {
		scope[name] = name
	}
	c.scopes = append(c.scopes, scope)
}

func (c *canonicalizer) popScope() {
	c.scopes = c.scopes[:len(c.scopes)-1]
}

func (c *canonicalizer) lookup(name string) (string, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if repl, ok := c.scopes[i][name]; ok {
			return repl, true
		}
	}
	return "", false
}

func stripDocstring(body []Stmt) []Stmt {
	if len(body) == 0 {
		return body
	}
	if es, ok := body[0].(*ExprStmt); ok {
		if _, isStr := es.X.(*Str); isStr {
			return body[1:]
		}
	}
	return body
}

// bindingsIn collects, in textual order, the names a statement list binds in
// its own scope. Nested def, lambda, class and comprehension bodies bind in
// their own scopes and are not descended into. Function and class names stay
// verbatim, as do import names.
func bindingsIn(body []Stmt) []string {
	var order []string
	seen := map[string]bool{}
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			order = append(order, name)
		}
	}
	var walk func([]Stmt)
	walk = func(stmts []Stmt) {
		for _, s := range stmts {
			switch n := s.(type) {
			case *Assign:
				for _, t := range n.Targets {
					for _, name := range targetNames(t) {
						add(name)
					}
				}
			case *AugAssign:
				for _, name := range targetNames(n.Target) {
					add(name)
				}
			case *If:
				walk(n.Body)
				walk(n.Else)
			case *While:
				walk(n.Body)
				walk(n.Else)
			case *For:
				for _, name := range targetNames(n.Target) {
					add(name)
				}
				walk(n.Body)
				walk(n.Else)
			case *Try:
				walk(n.Body)
				for _, h := range n.Handlers {
					add(h.Name)
					walk(h.Body)
				}
				walk(n.Else)
				walk(n.Finally)
			}
		}
	}
	walk(body)
	return order
}

// targetNames lists the plain names an assignment target binds. Attribute and
// subscript targets mutate existing objects and bind nothing.
func targetNames(e Expr) []string {
	switch t := e.(type) {
	case *Name:
		return []string{t.ID}
	case *Starred:
		return targetNames(t.Value)
	case *Tuple:
		var names []string
		for _, elt := range t.Elts {
			names = append(names, targetNames(elt)...)
		}
		return names
	case *List:
		var names []string
		for _, elt := range t.Elts {
			names = append(names, targetNames(elt)...)
		}
		return names
	}
	return nil
}

func paramNames(p Params) []string {
	names := make([]string, 0, len(p.Args)+2)
	for _, a := range p.Args {
		names = append(names, a.Name)
	}
	if p.Vararg != "" {
		names = append(names, p.Vararg)
	}
	if p.Kwarg != "" {
		names = append(names, p.Kwarg)
	}
	return names
}

func (c *canonicalizer) renameParams(p *Params) {
	for i := range p.Args {
		if repl, ok := c.lookup(p.Args[i].Name); ok {
			p.Args[i].Name = repl
		}
	}
	if p.Vararg != "" {
		if repl, ok := c.lookup(p.Vararg); ok {
			p.Vararg = repl
		}
	}
	if p.Kwarg != "" {
		if repl, ok := c.lookup(p.Kwarg); ok {
			p.Kwarg = repl
		}
	}
}

func (c *canonicalizer) stmts(body []Stmt) {
	for _, s := range body {
		c.stmt(s)
	}
}

func (c *canonicalizer) stmt(s Stmt) {
	switch n := s.(type) {
	case *ExprStmt:
		c.expr(n.X)
	case *Assign:
		for _, t := range n.Targets {
			c.expr(t)
		}
		c.expr(n.Value)
	case *AugAssign:
		c.expr(n.Target)
		c.expr(n.Value)
	case *If:
		c.expr(n.Cond)
		c.stmts(n.Body)
		c.stmts(n.Else)
	case *While:
		c.expr(n.Cond)
		c.stmts(n.Body)
		c.stmts(n.Else)
	case *For:
		c.expr(n.Target)
		c.expr(n.Iter)
		c.stmts(n.Body)
		c.stmts(n.Else)
	case *FuncDef:
		// Defaults evaluate in the enclosing scope.
		for i := range n.Params.Args {
			if n.Params.Args[i].Default != nil {
				c.expr(n.Params.Args[i].Default)
			}
		}
		if c.opts.IgnoreDocstrings {
			n.Body = stripDocstring(n.Body)
		}
		bound := append(paramNames(n.Params), bindingsIn(n.Body)...)
		c.pushScope(bound)
		c.renameParams(&n.Params)
		c.stmts(n.Body)
		c.popScope()
	case *ClassDef:
		for _, b := range n.Bases {
			c.expr(b)
		}
		if c.opts.IgnoreDocstrings {
			n.Body = stripDocstring(n.Body)
		}
		c.pushIdentityScope(bindingsIn(n.Body))
		c.stmts(n.Body)
		c.popScope()
	case *Return:
		if n.Value != nil {
			c.expr(n.Value)
		}
	case *Raise:
		if n.Exc != nil {
			c.expr(n.Exc)
		}
		if n.Cause != nil {
			c.expr(n.Cause)
		}
	case *Assert:
		c.expr(n.Test)
		if n.Msg != nil {
			c.expr(n.Msg)
		}
	case *Try:
		c.stmts(n.Body)
		for i := range n.Handlers {
			h := &n.Handlers[i]
			if h.Type != nil {
				c.expr(h.Type)
			}
			if h.Name != "" {
				if repl, ok := c.lookup(h.Name); ok {
					h.Name = repl
				}
			}
			c.stmts(h.Body)
		}
		c.stmts(n.Else)
		c.stmts(n.Finally)
	case *Del:
		for _, t := range n.Targets {
			c.expr(t)
		}
	case *Pass, *Break, *Continue, *Import, *FromImport:
	}
}

func (c *canonicalizer) expr(e Expr) {
	switch n := e.(type) {
	case *Name:
		if repl, ok := c.lookup(n.ID); ok {
			n.ID = repl
		}
	case *Tuple:
		c.exprs(n.Elts)
	case *List:
		c.exprs(n.Elts)
	case *Set:
		c.exprs(n.Elts)
	case *Dict:
		for i := range n.Values {
			if n.Keys[i] != nil {
				c.expr(n.Keys[i])
			}
			c.expr(n.Values[i])
		}
	case *BinOp:
		c.expr(n.Left)
		c.expr(n.Right)
	case *BoolOp:
		c.exprs(n.Values)
	case *UnaryOp:
		c.expr(n.Operand)
	case *Compare:
		c.expr(n.Left)
		c.exprs(n.Comparators)
	case *Call:
		c.expr(n.Func)
		c.exprs(n.Args)
		for i := range n.Keywords {
			c.expr(n.Keywords[i].Value)
		}
	case *Attribute:
		c.expr(n.Value)
	case *Subscript:
		c.expr(n.Value)
		c.expr(n.Index)
	case *Slice:
		if c.opts.NormalizeSlices {
			if num, ok := n.Lower.(*Num); ok && num.Lit == "0" {
				n.Lower = nil
			}
			if num, ok := n.Step.(*Num); ok && num.Lit == "1" {
				n.Step = nil
			}
		}
		if n.Lower != nil {
			c.expr(n.Lower)
		}
		if n.Upper != nil {
			c.expr(n.Upper)
		}
		if n.Step != nil {
			c.expr(n.Step)
		}
	case *Lambda:
		for i := range n.Params.Args {
			if n.Params.Args[i].Default != nil {
				c.expr(n.Params.Args[i].Default)
			}
		}
		c.pushScope(paramNames(n.Params))
		c.renameParams(&n.Params)
		c.expr(n.Body)
		c.popScope()
	case *IfExp:
		c.expr(n.Body)
		c.expr(n.Cond)
		c.expr(n.Else)
	case *Starred:
		c.expr(n.Value)
	case *ListComp:
		c.comprehension(n.Gens, n.Elt)
	case *SetComp:
		c.comprehension(n.Gens, n.Elt)
	case *GeneratorExp:
		c.comprehension(n.Gens, n.Elt)
	case *DictComp:
		c.comprehension(n.Gens, n.Key, n.Value)
	case *Yield:
		if n.Value != nil {
			c.expr(n.Value)
		}
	case *Num, *Str, *FString, *Const:
	}
}

func (c *canonicalizer) exprs(list []Expr) {
	for _, e := range list {
		c.expr(e)
	}
}

// comprehension runs a comprehension's own scope. The first iterable
// evaluates in the enclosing scope, everything else inside.
func (c *canonicalizer) comprehension(gens []Comprehension, elts ...Expr) {
	if len(gens) == 0 {
		for _, e := range elts {
			c.expr(e)
		}
		return
	}
	c.expr(gens[0].Iter)
	var bound []string
	for i := range gens {
		bound = append(bound, targetNames(gens[i].Target)...)
	}
	c.pushScope(bound)
	for i := range gens {
		c.expr(gens[i].Target)
		if i > 0 {
			c.expr(gens[i].Iter)
		}
		for _, f := range gens[i].Ifs {
			c.expr(f)
		}
	}
	for _, e := range elts {
		c.expr(e)
	}
	c.popScope()
}
