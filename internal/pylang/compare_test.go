package pylang

import "testing"

func TestCompareByTokens(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		expected string
		alts     []string
		match    bool
		matched  string
	}{
		{
			name:     "whitespace insensitive",
			user:     "x=[1, 2]",
			expected: "x = [1,2]",
			match:    true,
		},
		{
			name:     "comment insensitive",
			user:     "y = 1  # the answer",
			expected: "y = 1",
			match:    true,
		},
		{
			name:     "different value",
			user:     "x = 1",
			expected: "x = 2",
			match:    false,
		},
		{
			name:     "different identifier",
			user:     "x = 1",
			expected: "y = 1",
			match:    false,
		},
		{
			name:     "matches alternative",
			user:     "x += 1",
			expected: "x = x + 1",
			alts:     []string{"x += 1"},
			match:    true,
			matched:  "x += 1",
		},
		{
			name:     "user lex failure is a no-match",
			user:     `x = "unterminated`,
			expected: "x = 1",
			match:    false,
		},
		{
			name:     "expected lex failure is a no-match",
			user:     "x = 1",
			expected: `x = "unterminated`,
			match:    false,
		},
		{
			name:     "indentation is semantic",
			user:     "if a:\n    b()\nc()\n",
			expected: "if a:\n    b()\n    c()\n",
			match:    false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := CompareByTokens(tt.user, tt.expected, tt.alts)
			if res.Match != tt.match {
				t.Errorf("Match = %v, want %v", res.Match, tt.match)
			}
			if res.MatchedAlternative != tt.matched {
				t.Errorf("MatchedAlternative = %q, want %q", res.MatchedAlternative, tt.matched)
			}
		})
	}
}

func TestCompareByASTMatch(t *testing.T) {
	res := CompareByAST("def f(n): return n + 1", "def f(x): return x + 1", nil, DefaultOptions())
	if !res.InfraAvailable {
		t.Fatal("InfraAvailable = false, want true")
	}
	if !res.Match {
		t.Errorf("Match = false for alpha-equivalent answers (user %q, expected %q)",
			res.NormalizedUser, res.NormalizedExpected)
	}
}

// A user answer that does not parse is wrong; an expected answer that does
// not parse means the comparison itself cannot run.
func TestCompareByASTParseFailureAsymmetry(t *testing.T) {
	res := CompareByAST("const x = ", "x = 1", nil, DefaultOptions())
	if res.Match {
		t.Error("unparseable user answer matched")
	}
	if !res.InfraAvailable {
		t.Error("user parse failure reported as infrastructure failure")
	}

	res = CompareByAST("x = 1", "const x = ", nil, DefaultOptions())
	if res.InfraAvailable {
		t.Error("unparseable expected answer did not disable the strategy")
	}
	if res.Match {
		t.Error("Match = true with no usable expected answer")
	}
}

func TestCompareByASTAlternatives(t *testing.T) {
	res := CompareByAST("m = 1", "y = 2", []string{"const x = ", "n = 1"}, DefaultOptions())
	if !res.Match {
		t.Fatal("Match = false, want match via alternative")
	}
	if res.MatchedAlternative != "n = 1" {
		t.Errorf("MatchedAlternative = %q, want %q", res.MatchedAlternative, "n = 1")
	}
}

func TestCompareByASTNoMatch(t *testing.T) {
	res := CompareByAST("def f(x): return x - 1", "def f(x): return x + 1", nil, DefaultOptions())
	if res.Match {
		t.Error("Match = true for different operators")
	}
	if !res.InfraAvailable {
		t.Error("InfraAvailable = false for a clean comparison")
	}
}
