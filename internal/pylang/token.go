// Package pylang implements a Python-subset tokenizer, parser and AST
// canonicalizer used for token- and structure-based answer comparison.
package pylang

import "fmt"

// TokenKind classifies a lexical token.
type TokenKind string

const (
	TokName    TokenKind = "NAME"
	TokKeyword TokenKind = "KEYWORD"
	TokNumber  TokenKind = "NUMBER"
	TokString  TokenKind = "STRING"
	TokOp      TokenKind = "OP"
	TokNewline TokenKind = "NEWLINE"
	TokIndent  TokenKind = "INDENT"
	TokDedent  TokenKind = "DEDENT"
	TokComment TokenKind = "COMMENT"
	TokEOF     TokenKind = "EOF"
)

// Token is a (kind, lexeme) pair with its source position.
type Token struct {
	Kind   TokenKind
	Lexeme string
	Line   int
	Col    int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)", t.Kind, t.Lexeme)
}

// Is reports whether the token is an operator or keyword with the given lexeme.
func (t Token) Is(lexeme string) bool {
	return (t.Kind == TokOp || t.Kind == TokKeyword) && t.Lexeme == lexeme
}

var keywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "break": true, "class": true, "continue": true,
	"def": true, "del": true, "elif": true, "else": true, "except": true,
	"finally": true, "for": true, "from": true, "global": true, "if": true,
	"import": true, "in": true, "is": true, "lambda": true, "not": true,
	"or": true, "pass": true, "raise": true, "return": true, "try": true,
	"while": true, "with": true, "yield": true,
}
