package report

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SchemaVersion is stamped onto every normalized document. There is a single
// schema version today; the stamp exists so stored payloads can be migrated
// if the shape ever changes.
const SchemaVersion = 1

// Theme is one recurring idea extracted from the survey answers.
type Theme struct {
	Name        string `json:"name"`
	Explanation string `json:"explanation"`
}

// ProjectIdea is one proposed capstone project.
type ProjectIdea struct {
	Name            string   `json:"name"`
	Goal            string   `json:"goal"`
	PotentialImpact string   `json:"potentialImpact"`
	NextSteps       []string `json:"nextSteps"`
}

// Reference is one cited source. Type and URL are optional.
type Reference struct {
	Type   string `json:"type,omitempty"`
	Source string `json:"source"`
	URL    string `json:"url,omitempty"`
}

// Document is the canonical structured report. A fresh instance supersedes
// the previous one each generation round; the latest instance is what gets
// persisted and exported. After normalization the four list fields are never
// nil and Title/Summary are always defined strings.
type Document struct {
	Title         string
	Summary       string
	Themes        []Theme
	ProjectIdeas  []ProjectIdea
	References    []Reference
	Risks         []string
	SchemaVersion int
	// Extra carries extension keys (visualTable, researchQuestions, ...)
	// untouched. Renderers must treat everything in here as optional.
	Extra map[string]any
}

// Parse decodes sanitized JSON text into a generic value for validation.
func Parse(text string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// canonicalKeys are owned by the typed fields of Document; everything else
// passes through Extra.
var canonicalKeys = map[string]bool{
	"title": true, "summary": true, "themes": true, "projectIdeas": true,
	"references": true, "risks": true, "schemaVersion": true,
}

// MarshalJSON emits the canonical shape with extension keys inlined.
func (d Document) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(d.Extra)+7)
	for k, v := range d.Extra {
		if !canonicalKeys[k] {
			m[k] = v
		}
	}
	m["title"] = d.Title
	m["summary"] = d.Summary
	m["themes"] = emptyWhenNil(d.Themes)
	m["projectIdeas"] = emptyWhenNil(d.ProjectIdeas)
	m["references"] = emptyWhenNil(d.References)
	m["risks"] = emptyWhenNil(d.Risks)
	m["schemaVersion"] = d.SchemaVersion
	return json.Marshal(m)
}

// UnmarshalJSON rehydrates a stored payload. Stored payloads may predate
// normalization or be partial, so decoding runs through Normalize.
func (d *Document) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	*d = Normalize(m)
	return nil
}

// Empty reports whether the document has no renderable content.
func (d Document) Empty() bool {
	return strings.TrimSpace(d.Title) == "" && strings.TrimSpace(d.Summary) == "" &&
		len(d.Themes) == 0 && len(d.ProjectIdeas) == 0 &&
		len(d.References) == 0 && len(d.Risks) == 0
}

func emptyWhenNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
