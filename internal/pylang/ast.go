package pylang

import (
	"strings"
)

// The AST is a closed set of node kinds. Statements and expressions are
// separate sum types so the canonicalizer can be exhaustive over each.

// Stmt is a statement node.
type Stmt interface{ stmtNode() }

// Expr is an expression node.
type Expr interface{ exprNode() }

// Module is the root of a parsed program.
type Module struct {
	Body []Stmt
}

type (
	// ExprStmt is a bare expression used as a statement.
	ExprStmt struct{ X Expr }

	// Assign is `a = b = value`; Targets holds each chained target.
	Assign struct {
		Targets []Expr
		Value   Expr
	}

	// AugAssign is `target op= value`.
	AugAssign struct {
		Target Expr
		Op     string
		Value  Expr
	}

	// If covers if/elif/else; elif chains nest inside Else.
	If struct {
		Cond Expr
		Body []Stmt
		Else []Stmt
	}

	While struct {
		Cond Expr
		Body []Stmt
		Else []Stmt
	}

	For struct {
		Target Expr
		Iter   Expr
		Body   []Stmt
		Else   []Stmt
	}

	FuncDef struct {
		Name   string
		Params Params
		Body   []Stmt
	}

	ClassDef struct {
		Name  string
		Bases []Expr
		Body  []Stmt
	}

	Return struct{ Value Expr } // Value may be nil

	Pass     struct{}
	Break    struct{}
	Continue struct{}

	Raise struct {
		Exc   Expr // may be nil
		Cause Expr // may be nil
	}

	Assert struct {
		Test Expr
		Msg  Expr // may be nil
	}

	Import struct{ Names []ImportName }

	FromImport struct {
		Module string
		Names  []ImportName
	}

	Try struct {
		Body     []Stmt
		Handlers []ExceptHandler
		Else     []Stmt
		Finally  []Stmt
	}

	Del struct{ Targets []Expr }
)

// ImportName is one imported path with an optional alias.
type ImportName struct {
	Path  string
	Alias string
}

// ExceptHandler is one except clause of a try statement.
type ExceptHandler struct {
	Type Expr   // may be nil (bare except)
	Name string // may be empty
	Body []Stmt
}

// Params describes a parameter list for def and lambda.
type Params struct {
	Args   []Param
	Vararg string // name after *, empty if absent
	Kwarg  string // name after **, empty if absent
}

// Param is a positional parameter with an optional default.
type Param struct {
	Name    string
	Default Expr // may be nil
}

func (*ExprStmt) stmtNode()   {}
func (*Assign) stmtNode()     {}
func (*AugAssign) stmtNode()  {}
func (*If) stmtNode()         {}
func (*While) stmtNode()      {}
func (*For) stmtNode()        {}
func (*FuncDef) stmtNode()    {}
func (*ClassDef) stmtNode()   {}
func (*Return) stmtNode()     {}
func (*Pass) stmtNode()       {}
func (*Break) stmtNode()      {}
func (*Continue) stmtNode()   {}
func (*Raise) stmtNode()      {}
func (*Assert) stmtNode()     {}
func (*Import) stmtNode()     {}
func (*FromImport) stmtNode() {}
func (*Try) stmtNode()        {}
func (*Del) stmtNode()        {}

type (
	Name struct{ ID string }

	// Num keeps the exact numeric lexeme.
	Num struct{ Lit string }

	// Str holds a plain string literal: the raw lexeme and its decoded value.
	Str struct {
		Lit   string
		Value string
	}

	// FString holds an interpolated string literal by raw lexeme; its
	// embedded expressions are treated as opaque.
	FString struct{ Lit string }

	// Const is True, False or None.
	Const struct{ Kind string }

	Tuple struct{ Elts []Expr }
	List  struct{ Elts []Expr }
	Set   struct{ Elts []Expr }

	// Dict pairs Keys[i] with Values[i]; a nil key marks a **expansion.
	Dict struct {
		Keys   []Expr
		Values []Expr
	}

	BinOp struct {
		Left  Expr
		Op    string
		Right Expr
	}

	BoolOp struct {
		Op     string // "and" or "or"
		Values []Expr
	}

	UnaryOp struct {
		Op      string
		Operand Expr
	}

	// Compare is a chained comparison: Left Ops[0] Comparators[0] Ops[1] ...
	Compare struct {
		Left        Expr
		Ops         []string
		Comparators []Expr
	}

	Call struct {
		Func     Expr
		Args     []Expr
		Keywords []Keyword
	}

	Attribute struct {
		Value Expr
		Attr  string
	}

	Subscript struct {
		Value Expr
		Index Expr
	}

	// Slice is a [lower:upper:step] subscript index; any part may be nil.
	Slice struct {
		Lower Expr
		Upper Expr
		Step  Expr
	}

	Lambda struct {
		Params Params
		Body   Expr
	}

	// IfExp is the conditional expression `Body if Cond else Else`.
	IfExp struct {
		Body Expr
		Cond Expr
		Else Expr
	}

	Starred struct{ Value Expr }

	ListComp struct {
		Elt  Expr
		Gens []Comprehension
	}

	SetComp struct {
		Elt  Expr
		Gens []Comprehension
	}

	GeneratorExp struct {
		Elt  Expr
		Gens []Comprehension
	}

	DictComp struct {
		Key   Expr
		Value Expr
		Gens  []Comprehension
	}

	Yield struct{ Value Expr } // Value may be nil
)

// Keyword is a name=value (or **value when Name is empty) call argument.
type Keyword struct {
	Name  string
	Value Expr
}

// Comprehension is one `for target in iter [if cond]*` clause.
type Comprehension struct {
	Target Expr
	Iter   Expr
	Ifs    []Expr
}

func (*Name) exprNode()         {}
func (*Num) exprNode()          {}
func (*Str) exprNode()          {}
func (*FString) exprNode()      {}
func (*Const) exprNode()        {}
func (*Tuple) exprNode()        {}
func (*List) exprNode()         {}
func (*Set) exprNode()          {}
func (*Dict) exprNode()         {}
func (*BinOp) exprNode()        {}
func (*BoolOp) exprNode()       {}
func (*UnaryOp) exprNode()      {}
func (*Compare) exprNode()      {}
func (*Call) exprNode()         {}
func (*Attribute) exprNode()    {}
func (*Subscript) exprNode()    {}
func (*Slice) exprNode()        {}
func (*Lambda) exprNode()       {}
func (*IfExp) exprNode()        {}
func (*Starred) exprNode()      {}
func (*ListComp) exprNode()     {}
func (*SetComp) exprNode()      {}
func (*GeneratorExp) exprNode() {}
func (*DictComp) exprNode()     {}
func (*Yield) exprNode()        {}

// Render produces the deterministic structural form of a module, used as the
// comparison fingerprint after canonicalization.
func Render(m *Module) string {
	var b strings.Builder
	b.WriteString("Module")
	renderBody(&b, m.Body)
	return b.String()
}

func renderBody(b *strings.Builder, body []Stmt) {
	b.WriteByte('[')
	for i, s := range body {
		if i > 0 {
			b.WriteByte(';')
		}
		renderStmt(b, s)
	}
	b.WriteByte(']')
}

func renderStmt(b *strings.Builder, s Stmt) {
	switch n := s.(type) {
	case *ExprStmt:
		b.WriteString("Expr(")
		renderExpr(b, n.X)
		b.WriteByte(')')
	case *Assign:
		b.WriteString("Assign(")
		renderExprList(b, n.Targets)
		b.WriteByte('=')
		renderExpr(b, n.Value)
		b.WriteByte(')')
	case *AugAssign:
		b.WriteString("AugAssign(")
		renderExpr(b, n.Target)
		b.WriteString(n.Op)
		renderExpr(b, n.Value)
		b.WriteByte(')')
	case *If:
		b.WriteString("If(")
		renderExpr(b, n.Cond)
		renderBody(b, n.Body)
		renderBody(b, n.Else)
		b.WriteByte(')')
	case *While:
		b.WriteString("While(")
		renderExpr(b, n.Cond)
		renderBody(b, n.Body)
		renderBody(b, n.Else)
		b.WriteByte(')')
	case *For:
		b.WriteString("For(")
		renderExpr(b, n.Target)
		b.WriteString(" in ")
		renderExpr(b, n.Iter)
		renderBody(b, n.Body)
		renderBody(b, n.Else)
		b.WriteByte(')')
	case *FuncDef:
		b.WriteString("FuncDef(")
		b.WriteString(n.Name)
		renderParams(b, n.Params)
		renderBody(b, n.Body)
		b.WriteByte(')')
	case *ClassDef:
		b.WriteString("ClassDef(")
		b.WriteString(n.Name)
		b.WriteByte('(')
		renderExprList(b, n.Bases)
		b.WriteByte(')')
		renderBody(b, n.Body)
		b.WriteByte(')')
	case *Return:
		b.WriteString("Return(")
		if n.Value != nil {
			renderExpr(b, n.Value)
		}
		b.WriteByte(')')
	case *Pass:
		b.WriteString("Pass")
	case *Break:
		b.WriteString("Break")
	case *Continue:
		b.WriteString("Continue")
	case *Raise:
		b.WriteString("Raise(")
		if n.Exc != nil {
			renderExpr(b, n.Exc)
		}
		if n.Cause != nil {
			b.WriteString(" from ")
			renderExpr(b, n.Cause)
		}
		b.WriteByte(')')
	case *Assert:
		b.WriteString("Assert(")
		renderExpr(b, n.Test)
		if n.Msg != nil {
			b.WriteByte(',')
			renderExpr(b, n.Msg)
		}
		b.WriteByte(')')
	case *Import:
		b.WriteString("Import(")
		renderImportNames(b, n.Names)
		b.WriteByte(')')
	case *FromImport:
		b.WriteString("From(")
		b.WriteString(n.Module)
		b.WriteByte(':')
		renderImportNames(b, n.Names)
		b.WriteByte(')')
	case *Try:
		b.WriteString("Try(")
		renderBody(b, n.Body)
		for _, h := range n.Handlers {
			b.WriteString("Except(")
			if h.Type != nil {
				renderExpr(b, h.Type)
			}
			if h.Name != "" {
				b.WriteString(" as ")
				b.WriteString(h.Name)
			}
			renderBody(b, h.Body)
			b.WriteByte(')')
		}
		renderBody(b, n.Else)
		renderBody(b, n.Finally)
		b.WriteByte(')')
	case *Del:
		b.WriteString("Del(")
		renderExprList(b, n.Targets)
		b.WriteByte(')')
	}
}

func renderImportNames(b *strings.Builder, names []ImportName) {
	for i, n := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(n.Path)
		if n.Alias != "" {
			b.WriteString(" as ")
			b.WriteString(n.Alias)
		}
	}
}

func renderParams(b *strings.Builder, p Params) {
	b.WriteByte('(')
	for i, a := range p.Args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(a.Name)
		if a.Default != nil {
			b.WriteByte('=')
			renderExpr(b, a.Default)
		}
	}
	if p.Vararg != "" {
		b.WriteString(",*")
		b.WriteString(p.Vararg)
	}
	if p.Kwarg != "" {
		b.WriteString(",**")
		b.WriteString(p.Kwarg)
	}
	b.WriteByte(')')
}

func renderExprList(b *strings.Builder, list []Expr) {
	for i, e := range list {
		if i > 0 {
			b.WriteByte(',')
		}
		renderExpr(b, e)
	}
}

func renderGens(b *strings.Builder, gens []Comprehension) {
	for _, g := range gens {
		b.WriteString(" for ")
		renderExpr(b, g.Target)
		b.WriteString(" in ")
		renderExpr(b, g.Iter)
		for _, c := range g.Ifs {
			b.WriteString(" if ")
			renderExpr(b, c)
		}
	}
}

func renderExpr(b *strings.Builder, e Expr) {
	switch n := e.(type) {
	case *Name:
		b.WriteString("Name(")
		b.WriteString(n.ID)
		b.WriteByte(')')
	case *Num:
		b.WriteString("Num(")
		b.WriteString(n.Lit)
		b.WriteByte(')')
	case *Str:
		b.WriteString("Str(")
		b.WriteString(n.Value)
		b.WriteByte(')')
	case *FString:
		b.WriteString("FStr(")
		b.WriteString(n.Lit)
		b.WriteByte(')')
	case *Const:
		b.WriteString(n.Kind)
	case *Tuple:
		b.WriteString("Tuple(")
		renderExprList(b, n.Elts)
		b.WriteByte(')')
	case *List:
		b.WriteString("List(")
		renderExprList(b, n.Elts)
		b.WriteByte(')')
	case *Set:
		b.WriteString("Set(")
		renderExprList(b, n.Elts)
		b.WriteByte(')')
	case *Dict:
		b.WriteString("Dict(")
		for i := range n.Values {
			if i > 0 {
				b.WriteByte(',')
			}
			if n.Keys[i] != nil {
				renderExpr(b, n.Keys[i])
				b.WriteByte(':')
			} else {
				b.WriteString("**")
			}
			renderExpr(b, n.Values[i])
		}
		b.WriteByte(')')
	case *BinOp:
		b.WriteString("BinOp(")
		b.WriteString(n.Op)
		b.WriteByte(',')
		renderExpr(b, n.Left)
		b.WriteByte(',')
		renderExpr(b, n.Right)
		b.WriteByte(')')
	case *BoolOp:
		b.WriteString("BoolOp(")
		b.WriteString(n.Op)
		b.WriteByte(',')
		renderExprList(b, n.Values)
		b.WriteByte(')')
	case *UnaryOp:
		b.WriteString("Unary(")
		b.WriteString(n.Op)
		b.WriteByte(',')
		renderExpr(b, n.Operand)
		b.WriteByte(')')
	case *Compare:
		b.WriteString("Compare(")
		renderExpr(b, n.Left)
		for i, op := range n.Ops {
			b.WriteByte(' ')
			b.WriteString(op)
			b.WriteByte(' ')
			renderExpr(b, n.Comparators[i])
		}
		b.WriteByte(')')
	case *Call:
		b.WriteString("Call(")
		renderExpr(b, n.Func)
		b.WriteByte(',')
		b.WriteByte('[')
		renderExprList(b, n.Args)
		for _, k := range n.Keywords {
			b.WriteByte(',')
			if k.Name != "" {
				b.WriteString(k.Name)
				b.WriteByte('=')
			} else {
				b.WriteString("**")
			}
			renderExpr(b, k.Value)
		}
		b.WriteByte(']')
		b.WriteByte(')')
	case *Attribute:
		b.WriteString("Attr(")
		renderExpr(b, n.Value)
		b.WriteByte('.')
		b.WriteString(n.Attr)
		b.WriteByte(')')
	case *Subscript:
		b.WriteString("Sub(")
		renderExpr(b, n.Value)
		b.WriteByte('[')
		renderExpr(b, n.Index)
		b.WriteByte(']')
		b.WriteByte(')')
	case *Slice:
		b.WriteString("Slice(")
		if n.Lower != nil {
			renderExpr(b, n.Lower)
		}
		b.WriteByte(':')
		if n.Upper != nil {
			renderExpr(b, n.Upper)
		}
		b.WriteByte(':')
		if n.Step != nil {
			renderExpr(b, n.Step)
		}
		b.WriteByte(')')
	case *Lambda:
		b.WriteString("Lambda")
		renderParams(b, n.Params)
		b.WriteByte('(')
		renderExpr(b, n.Body)
		b.WriteByte(')')
	case *IfExp:
		b.WriteString("IfExp(")
		renderExpr(b, n.Body)
		b.WriteString(" if ")
		renderExpr(b, n.Cond)
		b.WriteString(" else ")
		renderExpr(b, n.Else)
		b.WriteByte(')')
	case *Starred:
		b.WriteString("Star(")
		renderExpr(b, n.Value)
		b.WriteByte(')')
	case *ListComp:
		b.WriteString("ListComp(")
		renderExpr(b, n.Elt)
		renderGens(b, n.Gens)
		b.WriteByte(')')
	case *SetComp:
		b.WriteString("SetComp(")
		renderExpr(b, n.Elt)
		renderGens(b, n.Gens)
		b.WriteByte(')')
	case *GeneratorExp:
		b.WriteString("GenExp(")
		renderExpr(b, n.Elt)
		renderGens(b, n.Gens)
		b.WriteByte(')')
	case *DictComp:
		b.WriteString("DictComp(")
		renderExpr(b, n.Key)
		b.WriteByte(':')
		renderExpr(b, n.Value)
		renderGens(b, n.Gens)
		b.WriteByte(')')
	case *Yield:
		b.WriteString("Yield(")
		if n.Value != nil {
			renderExpr(b, n.Value)
		}
		b.WriteByte(')')
	}
}
