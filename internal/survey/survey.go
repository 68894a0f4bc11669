package survey

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// Answer is one selected question for one survey stage. Answers are immutable
// once recorded and are collected in stage order.
type Answer struct {
	SurveyIndex int    `json:"surveyIndex" yaml:"surveyIndex"`
	SurveyTitle string `json:"surveyTitle" yaml:"surveyTitle"`
	ID          string `json:"id" yaml:"id"`
	Question    string `json:"question" yaml:"question"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Result is the survey basis that seeds prompt construction for a
// conversation. It is created once per survey completion and never mutated;
// follow-ups are tracked separately by the orchestrator.
type Result struct {
	NeedReferences  bool     `json:"needReferences" yaml:"needReferences"`
	OpenEndedAnswer string   `json:"openEndedAnswer" yaml:"openEndedAnswer"`
	ChosenQuestions []Answer `json:"chosenQuestions" yaml:"chosenQuestions"`
}

// Empty reports whether the result carries nothing to build a prompt from.
func (r Result) Empty() bool {
	return strings.TrimSpace(r.OpenEndedAnswer) == "" && len(r.ChosenQuestions) == 0
}

// ParseResult decodes a survey result from YAML or JSON bytes.
func ParseResult(b []byte) (Result, error) {
	var r Result
	if err := yaml.Unmarshal(b, &r); err != nil {
		if jerr := json.Unmarshal(b, &r); jerr != nil {
			return r, fmt.Errorf("parse survey: %v (yaml) / %v (json)", err, jerr)
		}
	}
	return r, nil
}

// ParseResultFile reads a survey result from a .yaml/.yml/.json file. Other
// extensions are tried as YAML first, then JSON.
func ParseResultFile(path string) (Result, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read survey: %w", err)
	}
	switch filepath.Ext(path) {
	case ".json":
		var r Result
		if err := json.Unmarshal(b, &r); err != nil {
			return r, fmt.Errorf("parse survey json: %w", err)
		}
		return r, nil
	default:
		return ParseResult(b)
	}
}
