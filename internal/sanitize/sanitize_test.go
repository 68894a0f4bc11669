package sanitize

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestSanitize_FencedVariants(t *testing.T) {
	want := map[string]any{"title": "T", "risks": []any{"a"}}
	cases := []struct {
		name string
		raw  string
	}{
		{"bare", `{"title":"T","risks":["a"]}`},
		{"fence no tag", "```\n{\"title\":\"T\",\"risks\":[\"a\"]}\n```"},
		{"fence json tag", "```json\n{\"title\":\"T\",\"risks\":[\"a\"]}\n```"},
		{"fence upper tag", "```JSON\n{\"title\":\"T\",\"risks\":[\"a\"]}\n```"},
		{"leading bom", "\uFEFF{\"title\":\"T\",\"risks\":[\"a\"]}"},
		{"bom inside fence", "```json\n\uFEFF{\"title\":\"T\",\"risks\":[\"a\"]}\n```"},
		{"surrounding whitespace", "  \n```json\n{\"title\":\"T\",\"risks\":[\"a\"]}\n```  \n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got map[string]any
			if err := json.Unmarshal([]byte(Sanitize(tc.raw)), &got); err != nil {
				t.Fatalf("sanitized output does not parse: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("round-trip mismatch: got %v want %v", got, want)
			}
		})
	}
}

func TestSanitize_TrailingCommas(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"object", `{"title":"T","risks":[],}`},
		{"array", `{"title":"T","risks":["a",]}`},
		{"comma then newline", "{\"title\":\"T\",\"risks\":[\"a\",\n]}"},
		{"nested", `{"title":"T","themes":[{"name":"n",},],"risks":[]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got map[string]any
			if err := json.Unmarshal([]byte(Sanitize(tc.raw)), &got); err != nil {
				t.Fatalf("sanitized output does not parse: %v", err)
			}
		})
	}
}

func TestSanitize_CommaInsideStringKept(t *testing.T) {
	raw := `{"title":"a, }","summary":"x,]"}`
	var got map[string]any
	if err := json.Unmarshal([]byte(Sanitize(raw)), &got); err != nil {
		t.Fatalf("sanitized output does not parse: %v", err)
	}
	if got["title"] != "a, }" || got["summary"] != "x,]" {
		t.Fatalf("string content altered: %v", got)
	}
}

func TestSanitize_NonJSONPassesThrough(t *testing.T) {
	if got := Sanitize("not json at all"); got != "not json at all" {
		t.Fatalf("expected pass-through, got %q", got)
	}
}
