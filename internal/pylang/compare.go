package pylang

import "strings"

// TokenResult is the outcome of a token-level comparison.
type TokenResult struct {
	Match              bool
	MatchedAlternative string
	NormalizedUser     string
	NormalizedExpected string
}

// ASTResult is the outcome of a structural comparison. InfraAvailable is
// false when the comparison itself could not run, which is distinct from the
// answer being wrong.
type ASTResult struct {
	Match              bool
	InfraAvailable     bool
	MatchedAlternative string
	NormalizedUser     string
	NormalizedExpected string
}

// TokenString renders a token stream in a single normalized line, with
// layout tokens spelled out so indentation differences still compare.
func TokenString(toks []Token) string {
	parts := make([]string, 0, len(toks))
	for _, t := range toks {
		switch t.Kind {
		case TokNewline:
			parts = append(parts, "<NL>")
		case TokIndent:
			parts = append(parts, "<IN>")
		case TokDedent:
			parts = append(parts, "<DE>")
		default:
			parts = append(parts, t.Lexeme)
		}
	}
	return strings.Join(parts, " ")
}

func tokensEqual(a, b []Token) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Kind != b[i].Kind || a[i].Lexeme != b[i].Lexeme {
			return false
		}
	}
	return true
}

// CompareByTokens lexes both sides and compares their token streams, making
// the match insensitive to whitespace and comments. A lex failure on either
// side is a plain no-match: malformed source is a wrong answer here, not an
// infrastructure fault.
func CompareByTokens(user, expected string, alternatives []string) TokenResult {
	userToks := Tokenize(user)
	if userToks == nil {
		return TokenResult{}
	}
	res := TokenResult{NormalizedUser: TokenString(userToks)}

	expToks := Tokenize(expected)
	if expToks != nil {
		res.NormalizedExpected = TokenString(expToks)
		if tokensEqual(userToks, expToks) {
			res.Match = true
			return res
		}
	}
	for _, alt := range alternatives {
		altToks := Tokenize(alt)
		if altToks == nil {
			continue
		}
		if tokensEqual(userToks, altToks) {
			res.Match = true
			res.MatchedAlternative = alt
			return res
		}
	}
	return res
}

// CompareByAST compares canonical fingerprints of both sides. The two parse
// failure modes are deliberately asymmetric: a user answer that does not
// parse is simply wrong, while an expected answer that does not parse means
// the exercise content is broken and the strategy cannot run at all.
func CompareByAST(user, expected string, alternatives []string, opts Options) (res ASTResult) {
	defer func() {
		if r := recover(); r != nil {
			res = ASTResult{InfraAvailable: false}
		}
	}()

	expFP, err := Fingerprint(expected, opts)
	if err != nil {
		return ASTResult{InfraAvailable: false}
	}
	res = ASTResult{InfraAvailable: true, NormalizedExpected: expFP}

	userFP, err := Fingerprint(user, opts)
	if err != nil {
		return res
	}
	res.NormalizedUser = userFP

	if userFP == expFP {
		res.Match = true
		return res
	}
	for _, alt := range alternatives {
		altFP, err := Fingerprint(alt, opts)
		if err != nil {
			// A broken alternative never blocks the primary comparison.
			continue
		}
		if userFP == altFP {
			res.Match = true
			res.MatchedAlternative = alt
			return res
		}
	}
	return res
}
