package exercise

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/practalearn/grader/internal/domain"
)

func writeExercise(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeExercise(t, dir, "py-slice.yaml", `
id: py-slice-001
language: python
type: write
expected_answer: "first_three = items[:3]"
accepted_solutions:
  - "first_three = items[0:3]"
grading_strategy: ast
target_construct:
  type: slice
  feedback: "Try a slice like items[:3]."
`)

	ex, err := NewLoader(dir).LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if ex.ID != "py-slice-001" || ex.Type != domain.TypeWrite {
		t.Errorf("got id=%q type=%q", ex.ID, ex.Type)
	}
	if ex.Strategy != domain.StrategyAST {
		t.Errorf("Strategy = %q; want ast", ex.Strategy)
	}
	if len(ex.AcceptedSolutions) != 1 {
		t.Errorf("AcceptedSolutions = %v; want 1 entry", ex.AcceptedSolutions)
	}
	if ex.Target == nil || ex.Target.Kind != domain.ConstructSlice {
		t.Fatalf("Target = %+v; want slice construct", ex.Target)
	}
	if ex.Target.Feedback == "" {
		t.Error("target feedback lost")
	}
}

func TestLoadFile_PredictExercise(t *testing.T) {
	dir := t.TempDir()
	path := writeExercise(t, dir, "py-predict.yaml", `
id: py-predict-001
type: predict
code: |
  x = [1, 2, 3]
  print(x[::-1])
expected_answer: "[3, 2, 1]"
`)

	ex, err := NewLoader(dir).LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if ex.Type != domain.TypePredict || ex.Code == "" {
		t.Errorf("got type=%q code=%q", ex.Type, ex.Code)
	}
	if ex.EffectiveLanguage() != "python" {
		t.Errorf("EffectiveLanguage() = %q; want python default", ex.EffectiveLanguage())
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing id", "type: write\nexpected_answer: x\n"},
		{"missing type", "id: a\nexpected_answer: x\n"},
		{"bad type", "id: a\ntype: quiz\nexpected_answer: x\n"},
		{"bad strategy", "id: a\ntype: write\nexpected_answer: x\ngrading_strategy: vibes\n"},
		{"predict without code", "id: a\ntype: predict\nexpected_answer: x\n"},
		{"no answer or script", "id: a\ntype: write\n"},
		{"not yaml", "{{{{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeExercise(t, dir, "ex.yaml", tt.content)
			if _, err := NewLoader(dir).LoadFile(path); err == nil {
				t.Error("LoadFile() accepted invalid exercise")
			}
		})
	}
}

func TestLoadAllAndRegistry(t *testing.T) {
	dir := t.TempDir()
	writeExercise(t, dir, "a.yaml", "id: ex-a\ntype: write\nexpected_answer: \"x = 1\"\n")
	writeExercise(t, dir, "b.yml", "id: ex-b\ntype: fill-in\nexpected_answer: range\n")
	writeExercise(t, dir, "notes.txt", "not an exercise")

	exercises, err := NewLoader(dir).LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(exercises) != 2 {
		t.Fatalf("loaded %d exercises; want 2", len(exercises))
	}

	reg := NewRegistry()
	if err := reg.Replace(exercises); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if got := reg.IDs(); len(got) != 2 || got[0] != "ex-a" || got[1] != "ex-b" {
		t.Errorf("IDs() = %v; want [ex-a ex-b]", got)
	}
	if _, err := reg.Get("ex-a"); err != nil {
		t.Errorf("Get(ex-a) error = %v", err)
	}
	if _, err := reg.Get("missing"); !errors.Is(err, domain.ErrExerciseNotFound) {
		t.Errorf("Get(missing) error = %v; want ErrExerciseNotFound", err)
	}
}

func TestRegistry_ReplaceRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	err := reg.Replace([]*domain.Exercise{
		{ID: "dup", Type: domain.TypeWrite, ExpectedAnswer: "x"},
		{ID: "dup", Type: domain.TypeWrite, ExpectedAnswer: "y"},
	})
	if err == nil {
		t.Error("Replace() accepted duplicate IDs")
	}
}
