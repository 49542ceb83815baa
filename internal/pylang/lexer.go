package pylang

import (
	"fmt"
	"strings"
)

// LexError reports a lexical error with its source position.
type LexError struct {
	Line int
	Col  int
	Msg  string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at %d:%d: %s", e.Line, e.Col, e.Msg)
}

// Lex scans source text into a token stream including layout tokens
// (NEWLINE, INDENT, DEDENT) and comments. The stream always ends with EOF.
func Lex(src string) ([]Token, error) {
	l := &lexer{src: src, line: 1, col: 1, indents: []int{0}}
	if err := l.run(); err != nil {
		return nil, err
	}
	return l.toks, nil
}

// Tokenize lexes source text and strips non-semantic tokens: comments and
// the trailing EOF marker. Logical newlines and indentation tokens are kept
// since they separate and group statements. Returns nil on any lex error.
func Tokenize(src string) []Token {
	toks, err := Lex(src)
	if err != nil {
		return nil
	}
	out := make([]Token, 0, len(toks))
	for _, t := range toks {
		if t.Kind == TokComment || t.Kind == TokEOF {
			continue
		}
		out = append(out, t)
	}
	return out
}

type lexer struct {
	src     string
	pos     int
	line    int
	col     int
	indents []int
	parens  int
	hasTok  bool // non-comment token seen on the current logical line
	toks    []Token
}

func (l *lexer) run() error {
	for {
		if l.parens == 0 && !l.hasTok && l.atLineStart() {
			if err := l.handleIndent(); err != nil {
				return err
			}
		}
		l.skipSpaces()

		if l.pos >= len(l.src) {
			if l.hasTok {
				l.emit(TokNewline, "\n")
				l.hasTok = false
			}
			for len(l.indents) > 1 {
				l.indents = l.indents[:len(l.indents)-1]
				l.emit(TokDedent, "")
			}
			l.emit(TokEOF, "")
			return nil
		}

		c := l.src[l.pos]
		switch {
		case c == '\r':
			l.pos++
		case c == '\n':
			l.pos++
			l.line++
			l.col = 1
			if l.parens == 0 && l.hasTok {
				l.emit(TokNewline, "\n")
				l.hasTok = false
			}
		case c == '\\' && l.peekAt(1) == '\n':
			l.pos += 2
			l.line++
			l.col = 1
		case c == '\\' && l.peekAt(1) == '\r' && l.peekAt(2) == '\n':
			l.pos += 3
			l.line++
			l.col = 1
		case c == '#':
			start := l.pos
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
			l.emit(TokComment, l.src[start:l.pos])
		case isDigit(c) || (c == '.' && isDigit(l.peekAt(1))):
			if err := l.lexNumber(); err != nil {
				return err
			}
		case c == '"' || c == '\'':
			if err := l.lexString(""); err != nil {
				return err
			}
		case isNameStart(c):
			if err := l.lexNameOrPrefixedString(); err != nil {
				return err
			}
		default:
			if err := l.lexOperator(); err != nil {
				return err
			}
		}
	}
}

func (l *lexer) atLineStart() bool {
	return l.pos == 0 || (l.pos <= len(l.src) && l.pos > 0 && l.src[l.pos-1] == '\n')
}

// handleIndent measures leading whitespace at a logical line start and emits
// INDENT/DEDENT tokens. Blank and comment-only lines never change indentation.
func (l *lexer) handleIndent() error {
	p := l.pos
	width := 0
	for p < len(l.src) {
		switch l.src[p] {
		case ' ':
			width++
		case '\t':
			width += 8 - width%8
		default:
			goto measured
		}
		p++
	}
measured:
	if p >= len(l.src) || l.src[p] == '\n' || l.src[p] == '\r' || l.src[p] == '#' {
		return nil
	}

	top := l.indents[len(l.indents)-1]
	switch {
	case width > top:
		l.indents = append(l.indents, width)
		l.emit(TokIndent, l.src[l.pos:p])
	case width < top:
		for len(l.indents) > 1 && l.indents[len(l.indents)-1] > width {
			l.indents = l.indents[:len(l.indents)-1]
			l.emit(TokDedent, "")
		}
		if l.indents[len(l.indents)-1] != width {
			return &LexError{Line: l.line, Col: 1, Msg: "unindent does not match any outer indentation level"}
		}
	}
	return nil
}

func (l *lexer) skipSpaces() {
	for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t') {
		l.pos++
		l.col++
	}
}

func (l *lexer) peekAt(n int) byte {
	if l.pos+n >= len(l.src) {
		return 0
	}
	return l.src[l.pos+n]
}

func (l *lexer) emit(kind TokenKind, lexeme string) {
	l.toks = append(l.toks, Token{Kind: kind, Lexeme: lexeme, Line: l.line, Col: l.col})
	if kind != TokComment && kind != TokNewline && kind != TokIndent && kind != TokDedent && kind != TokEOF {
		l.hasTok = true
	}
}

func (l *lexer) lexNameOrPrefixedString() error {
	start := l.pos
	for l.pos < len(l.src) && isNameChar(l.src[l.pos]) {
		l.pos++
	}
	word := l.src[start:l.pos]

	// A short all-letter word directly followed by a quote is a string prefix.
	if len(word) <= 2 && l.pos < len(l.src) && (l.src[l.pos] == '"' || l.src[l.pos] == '\'') && isStringPrefix(word) {
		l.pos = start
		return l.lexString(word)
	}

	if keywords[word] {
		l.emit(TokKeyword, word)
	} else {
		l.emit(TokName, word)
	}
	return nil
}

func isStringPrefix(word string) bool {
	for i := 0; i < len(word); i++ {
		switch word[i] {
		case 'r', 'R', 'b', 'B', 'f', 'F', 'u', 'U':
		default:
			return false
		}
	}
	return len(word) > 0
}

func (l *lexer) lexString(prefix string) error {
	start := l.pos
	l.pos += len(prefix)
	quote := l.src[l.pos]
	triple := false
	if l.peekAt(1) == quote && l.peekAt(2) == quote {
		triple = true
		l.pos += 3
	} else {
		l.pos++
	}

	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '\\' && l.pos+1 < len(l.src) {
			if l.src[l.pos+1] == '\n' {
				l.line++
			}
			l.pos += 2
			continue
		}
		if c == '\n' {
			if !triple {
				return &LexError{Line: l.line, Col: l.col, Msg: "EOL while scanning string literal"}
			}
			l.line++
			l.pos++
			continue
		}
		if c == quote {
			if triple {
				if l.peekAt(1) == quote && l.peekAt(2) == quote {
					l.pos += 3
					l.emit(TokString, l.src[start:l.pos])
					return nil
				}
				l.pos++
				continue
			}
			l.pos++
			l.emit(TokString, l.src[start:l.pos])
			return nil
		}
		l.pos++
	}
	return &LexError{Line: l.line, Col: l.col, Msg: "unterminated string literal"}
}

func (l *lexer) lexNumber() error {
	start := l.pos
	if l.src[l.pos] == '0' && (l.peekAt(1) == 'x' || l.peekAt(1) == 'X' ||
		l.peekAt(1) == 'o' || l.peekAt(1) == 'O' ||
		l.peekAt(1) == 'b' || l.peekAt(1) == 'B') {
		l.pos += 2
		for l.pos < len(l.src) && (isHexDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
			l.pos++
		}
		l.emit(TokNumber, l.src[start:l.pos])
		return nil
	}

	digits := func() {
		for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
			l.pos++
		}
	}
	digits()
	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		l.pos++
		digits()
	}
	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		mark := l.pos
		l.pos++
		if l.pos < len(l.src) && (l.src[l.pos] == '+' || l.src[l.pos] == '-') {
			l.pos++
		}
		if l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			digits()
		} else {
			l.pos = mark
		}
	}
	if l.pos < len(l.src) && (l.src[l.pos] == 'j' || l.src[l.pos] == 'J') {
		l.pos++
	}
	l.emit(TokNumber, l.src[start:l.pos])
	return nil
}

var operators = []string{
	"**=", "//=", ">>=", "<<=", "...",
	"**", "//", ">>", "<<", "<=", ">=", "==", "!=", "->", ":=",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "@=",
	"+", "-", "*", "/", "%", "@", "&", "|", "^", "~", "<", ">", "=",
	"(", ")", "[", "]", "{", "}", ",", ":", ".", ";",
}

func (l *lexer) lexOperator() error {
	rest := l.src[l.pos:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op) {
			switch op {
			case "(", "[", "{":
				l.parens++
			case ")", "]", "}":
				if l.parens > 0 {
					l.parens--
				}
			}
			l.pos += len(op)
			l.emit(TokOp, op)
			return nil
		}
	}
	return &LexError{Line: l.line, Col: l.col, Msg: fmt.Sprintf("invalid character %q", l.src[l.pos])}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isNameChar(c byte) bool { return isNameStart(c) || isDigit(c) }
