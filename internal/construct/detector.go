// Package construct detects syntactic idioms in submitted code. Detection
// runs over the token stream rather than the AST so it still works on code
// that parses but uses constructs the parser subset treats opaquely.
package construct

import (
	"github.com/practalearn/grader/internal/domain"
	"github.com/practalearn/grader/internal/pylang"
)

// Pattern ties a construct kind to its matcher and the coaching line shown
// when a correct answer skipped the construct.
type Pattern struct {
	Kind     domain.ConstructKind
	Coaching string
	Matches  func(toks []pylang.Token) bool
}

// Detector scans code for target constructs.
type Detector struct {
	patterns []Pattern
}

// NewDetector creates a detector with the default pattern set.
func NewDetector() *Detector {
	return &Detector{patterns: defaultPatterns()}
}

// Detect reports whether the construct appears in code. Code that does not
// lex uses no construct.
func (d *Detector) Detect(code string, kind domain.ConstructKind) bool {
	toks := pylang.Tokenize(code)
	if toks == nil {
		return false
	}
	for _, p := range d.patterns {
		if p.Kind == kind {
			return p.Matches(toks)
		}
	}
	return false
}

// DetectAny returns the first of kinds found in code, short-circuiting in
// argument order. The second return is false when none matched.
func (d *Detector) DetectAny(code string, kinds []domain.ConstructKind) (domain.ConstructKind, bool) {
	toks := pylang.Tokenize(code)
	if toks == nil {
		return "", false
	}
	for _, kind := range kinds {
		for _, p := range d.patterns {
			if p.Kind == kind && p.Matches(toks) {
				return kind, true
			}
		}
	}
	return "", false
}

// DetectAll returns every construct found in code, in registry order.
func (d *Detector) DetectAll(code string) []domain.ConstructKind {
	toks := pylang.Tokenize(code)
	if toks == nil {
		return nil
	}
	var kinds []domain.ConstructKind
	for _, p := range d.patterns {
		if p.Matches(toks) {
			kinds = append(kinds, p.Kind)
		}
	}
	return kinds
}

// Coaching returns the default coaching line for a construct kind.
func (d *Detector) Coaching(kind domain.ConstructKind) string {
	for _, p := range d.patterns {
		if p.Kind == kind {
			return p.Coaching
		}
	}
	return ""
}

func defaultPatterns() []Pattern {
	return []Pattern{
		{
			Kind:     domain.ConstructSlice,
			Coaching: "Correct! This is also a great place for slice syntax, like items[1:4].",
			Matches:  hasSlice,
		},
		{
			Kind:     domain.ConstructComprehension,
			Coaching: "Correct! A list comprehension could express this in a single line.",
			Matches:  hasComprehension,
		},
		{
			Kind:     domain.ConstructFString,
			Coaching: "Correct! An f-string like f\"{name}\" can make this formatting cleaner.",
			Matches:  hasFString,
		},
		{
			Kind:     domain.ConstructTernary,
			Coaching: "Correct! A conditional expression (x if cond else y) would also work here.",
			Matches:  hasTernary,
		},
		{
			Kind:     domain.ConstructEnumerate,
			Coaching: "Correct! enumerate() gives you the index and value together.",
			Matches:  callTo("enumerate"),
		},
		{
			Kind:     domain.ConstructZip,
			Coaching: "Correct! zip() walks several sequences in lockstep.",
			Matches:  callTo("zip"),
		},
		{
			Kind:     domain.ConstructLambda,
			Coaching: "Correct! A lambda could define this small function inline.",
			Matches:  hasKeyword("lambda"),
		},
		{
			Kind:     domain.ConstructGenerator,
			Coaching: "Correct! A generator would produce these values lazily.",
			Matches:  hasGenerator,
		},
	}
}

func hasKeyword(kw string) func([]pylang.Token) bool {
	return func(toks []pylang.Token) bool {
		for _, t := range toks {
			if t.Kind == pylang.TokKeyword && t.Lexeme == kw {
				return true
			}
		}
		return false
	}
}

func callTo(name string) func([]pylang.Token) bool {
	return func(toks []pylang.Token) bool {
		for i := 0; i+1 < len(toks); i++ {
			if toks[i].Kind == pylang.TokName && toks[i].Lexeme == name && toks[i+1].Is("(") {
				return true
			}
		}
		return false
	}
}

func hasFString(toks []pylang.Token) bool {
	for _, t := range toks {
		if t.Kind == pylang.TokString && fPrefixed(t.Lexeme) {
			return true
		}
	}
	return false
}

func fPrefixed(lex string) bool {
	for i := 0; i < len(lex); i++ {
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

// hasSlice looks for a ':' whose innermost open bracket is '[': a bare colon
// directly inside square brackets can only be slice syntax. A lambda's colon
// is skipped so [lambda: 1] does not count.
func hasSlice(toks []pylang.Token) bool {
	var stack []string
	pendingLambda := false
	for _, t := range toks {
		switch {
		case t.Is("(") || t.Is("[") || t.Is("{"):
			stack = append(stack, t.Lexeme)
		case t.Is(")") || t.Is("]") || t.Is("}"):
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case t.Is("lambda"):
			pendingLambda = true
		case t.Is(":"):
			if pendingLambda {
				pendingLambda = false
				continue
			}
			if len(stack) > 0 && stack[len(stack)-1] == "[" {
				return true
			}
		}
	}
	return false
}

// hasComprehension looks for a 'for' while the innermost open bracket is
// '[' or '{'; hasGenerator for 'for' under '(' or a yield anywhere.
func hasComprehension(toks []pylang.Token) bool {
	return forUnder(toks, "[", "{")
}

func hasGenerator(toks []pylang.Token) bool {
	if hasKeyword("yield")(toks) {
		return true
	}
	return forUnder(toks, "(")
}

func forUnder(toks []pylang.Token, opens ...string) bool {
	var stack []string
	for _, t := range toks {
		switch {
		case t.Is("(") || t.Is("[") || t.Is("{"):
			stack = append(stack, t.Lexeme)
		case t.Is(")") || t.Is("]") || t.Is("}"):
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case t.Is("for"):
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			for _, o := range opens {
				if top == o {
					return true
				}
			}
		}
	}
	return false
}

// hasTernary looks for an 'if' in expression position: one not opening a
// statement and not acting as a comprehension filter. Inside brackets an
// 'if' after a 'for' at the same level filters a comprehension; an 'if'
// before any 'for' at that level is a conditional expression.
func hasTernary(toks []pylang.Token) bool {
	type frame struct {
		open    string
		forSeen bool
	}
	var stack []frame
	for i, t := range toks {
		switch {
		case t.Is("(") || t.Is("[") || t.Is("{"):
			stack = append(stack, frame{open: t.Lexeme})
		case t.Is(")") || t.Is("]") || t.Is("}"):
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case t.Is("for"):
			if len(stack) > 0 {
				stack[len(stack)-1].forSeen = true
			}
		case t.Is("if"):
			if !expressionPosition(toks, i) {
				continue
			}
			if len(stack) > 0 && stack[len(stack)-1].forSeen {
				continue
			}
			return true
		}
	}
	return false
}

func expressionPosition(toks []pylang.Token, i int) bool {
	if i == 0 {
		return false
	}
	prev := toks[i-1]
	switch prev.Kind {
	case pylang.TokNewline, pylang.TokIndent, pylang.TokDedent:
		return false
	}
	if prev.Is(":") || prev.Is(";") {
		return false
	}
	return true
}
