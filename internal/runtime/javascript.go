package runtime

import (
	"context"
	"strings"

	"github.com/practalearn/grader/internal/domain"
	"github.com/practalearn/grader/internal/sandbox"
)

// JavaScript grades JS exercises with a lexical tokenizer and a Node sandbox
// worker. It has no structural parser, so CompareByAST reports itself
// unavailable and the router degrades per the fallback table.
type JavaScript struct {
	executor *sandbox.Executor
}

// NewJavaScript creates the JavaScript runtime.
func NewJavaScript(executor *sandbox.Executor) *JavaScript {
	return &JavaScript{executor: executor}
}

func (j *JavaScript) Name() string { return "javascript" }

func (j *JavaScript) Execute(ctx context.Context, code string) sandbox.Result {
	if j.executor == nil {
		return sandbox.Result{Kind: sandbox.FailureInfra, Error: "no sandbox executor configured"}
	}
	return j.executor.Execute(ctx, code)
}

func (j *JavaScript) CompareByTokens(user, expected string, alternatives []string) domain.StrategyResult {
	userToks, ok := jsTokenize(user)
	if !ok {
		return domain.StrategyResult{InfraAvailable: true}
	}
	res := domain.StrategyResult{
		InfraAvailable: true,
		NormalizedUser: strings.Join(userToks, " "),
	}
	if expToks, ok := jsTokenize(expected); ok {
		res.NormalizedExpected = strings.Join(expToks, " ")
		if slicesEqual(userToks, expToks) {
			res.IsCorrect = true
			return res
		}
	}
	for _, alt := range alternatives {
		altToks, ok := jsTokenize(alt)
		if !ok {
			continue
		}
		if slicesEqual(userToks, altToks) {
			res.IsCorrect = true
			res.MatchedAlternative = alt
			return res
		}
	}
	return res
}

func (j *JavaScript) CompareByAST(user, expected string, alternatives []string) domain.StrategyResult {
	return domain.StrategyResult{InfraAvailable: false}
}

func slicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var jsOperators = []string{
	">>>=", "===", "!==", "**=", "...", ">>>", "<<=", ">>=", "&&=", "||=", "??=",
	"=>", "&&", "||", "??", "?.", "++", "--", "<<", ">>", "<=", ">=", "==", "!=",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "**",
	"+", "-", "*", "/", "%", "&", "|", "^", "~", "!", "<", ">", "=", "?",
	"(", ")", "[", "]", "{", "}", ",", ";", ":", ".",
}

// jsTokenize lexes JavaScript source into lexemes, dropping whitespace and
// comments. Regex literals are not supported; code using them simply fails
// to tokenize and compares as a no-match.
func jsTokenize(src string) ([]string, bool) {
	var toks []string
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return nil, false
			}
			i += end + 4
		case c == '"' || c == '\'' || c == '`':
			start := i
			i++
			for i < len(src) {
				if src[i] == '\\' && i+1 < len(src) {
					i += 2
					continue
				}
				if src[i] == '\n' && c != '`' {
					return nil, false
				}
				if src[i] == c {
					i++
					break
				}
				i++
			}
			if i > len(src) || src[i-1] != c || i-1 == start {
				return nil, false
			}
			toks = append(toks, src[start:i])
		case c >= '0' && c <= '9':
			start := i
			for i < len(src) && (isJSNumChar(src[i]) || ((src[i] == '+' || src[i] == '-') && (src[i-1] == 'e' || src[i-1] == 'E'))) {
				i++
			}
			toks = append(toks, src[start:i])
		case isJSNameChar(c) && !(c >= '0' && c <= '9'):
			start := i
			for i < len(src) && isJSNameChar(src[i]) {
				i++
			}
			toks = append(toks, src[start:i])
		default:
			matched := false
			for _, op := range jsOperators {
				if strings.HasPrefix(src[i:], op) {
					toks = append(toks, op)
					i += len(op)
					matched = true
					break
				}
			}
			if !matched {
				return nil, false
			}
		}
	}
	return toks, true
}

func isJSNumChar(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') ||
		c == 'x' || c == 'X' || c == 'o' || c == 'O' || c == '.' || c == '_' || c == 'n'
}

func isJSNameChar(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
