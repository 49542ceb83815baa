// Package exercise loads exercise content from YAML files and serves it to
// the grading core through an in-memory registry.
package exercise

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/practalearn/grader/internal/domain"
)

// ExerciseFile is the YAML structure for one exercise.
type ExerciseFile struct {
	ID                 string   `yaml:"id"`
	Language           string   `yaml:"language"`
	Type               string   `yaml:"type"`
	ExpectedAnswer     string   `yaml:"expected_answer"`
	AcceptedSolutions  []string `yaml:"accepted_solutions"`
	GradingStrategy    string   `yaml:"grading_strategy"`
	VerificationScript string   `yaml:"verification_script"`
	Code               string   `yaml:"code"`
	ExecutionTemplate  string   `yaml:"execution_template"`
	ExpectedOutput     string   `yaml:"expected_output"`
	TargetConstruct    *struct {
		Type     string `yaml:"type"`
		Feedback string `yaml:"feedback"`
	} `yaml:"target_construct"`
}

// Loader reads exercise files from a content directory.
type Loader struct {
	basePath string
}

// NewLoader creates a loader rooted at basePath.
func NewLoader(basePath string) *Loader {
	return &Loader{basePath: basePath}
}

// LoadFile loads and validates a single exercise file.
func (l *Loader) LoadFile(path string) (*domain.Exercise, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read exercise file: %w", err)
	}

	var file ExerciseFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse exercise file %s: %w", filepath.Base(path), err)
	}

	ex := &domain.Exercise{
		ID:                 file.ID,
		Language:           file.Language,
		Type:               domain.ExerciseType(file.Type),
		ExpectedAnswer:     file.ExpectedAnswer,
		AcceptedSolutions:  file.AcceptedSolutions,
		Strategy:           domain.Strategy(file.GradingStrategy),
		VerificationScript: file.VerificationScript,
		Code:               file.Code,
		ExecutionTemplate:  file.ExecutionTemplate,
		ExpectedOutput:     file.ExpectedOutput,
	}
	if file.TargetConstruct != nil {
		ex.Target = &domain.TargetConstruct{
			Kind:     domain.ConstructKind(file.TargetConstruct.Type),
			Feedback: file.TargetConstruct.Feedback,
		}
	}

	if err := validate(ex); err != nil {
		return nil, fmt.Errorf("exercise %s: %w", filepath.Base(path), err)
	}
	return ex, nil
}

// LoadAll walks the content directory and loads every .yaml exercise.
func (l *Loader) LoadAll() ([]*domain.Exercise, error) {
	var exercises []*domain.Exercise
	err := filepath.Walk(l.basePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isYAML(path) {
			return nil
		}
		ex, err := l.LoadFile(path)
		if err != nil {
			return err
		}
		exercises = append(exercises, ex)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load exercises from %s: %w", l.basePath, err)
	}
	return exercises, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func validate(ex *domain.Exercise) error {
	if ex.ID == "" {
		return fmt.Errorf("missing id")
	}
	switch ex.Type {
	case domain.TypeWrite, domain.TypeFillIn, domain.TypePredict:
	case "":
		return fmt.Errorf("missing type")
	default:
		return fmt.Errorf("unknown type %q", ex.Type)
	}
	switch ex.Strategy {
	case "", domain.StrategyExact, domain.StrategyToken, domain.StrategyAST, domain.StrategyExecution:
	default:
		return fmt.Errorf("unknown grading strategy %q", ex.Strategy)
	}
	if ex.Type == domain.TypePredict && ex.Code == "" {
		return fmt.Errorf("predict exercise has no code snippet")
	}
	if ex.ExpectedAnswer == "" && !ex.HasVerificationScript() {
		return fmt.Errorf("no expected answer and no verification script")
	}
	return nil
}
