package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/IvanClarion/CapStack-sub000/internal/report"
)

func sampleDocument() report.Document {
	return report.Normalize(map[string]any{
		"title":   "Campus Energy Monitor",
		"summary": "A low-cost sensing platform for dormitory energy audits.",
		"themes": []any{
			map[string]any{"name": "Sustainability", "explanation": "Recurring interest in measurable impact."},
		},
		"projectIdeas": []any{
			map[string]any{
				"name":            "Dorm dashboard",
				"goal":            "Visualize per-room consumption",
				"potentialImpact": "Cuts waste through awareness",
				"nextSteps":       []any{"Survey meters", "Prototype ingest"},
			},
		},
		"references": []any{
			map[string]any{"type": "article", "source": "Energy Informatics 2023", "url": "https://example.com/ei"},
			map[string]any{"source": "Facilities annual report"},
		},
		"risks":             []any{"Sensor procurement delays"},
		"researchQuestions": []any{"Which buildings have accessible meters?"},
	})
}

func TestPDF_WritesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.pdf")
	if err := PDF(sampleDocument(), Meta{FileName: out, ShareURL: "https://example.com/r/abc"}); err != nil {
		t.Fatalf("export: %v", err)
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("expected a non-empty pdf")
	}
}

func TestPDF_EmptyDocument(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.pdf")
	err := PDF(report.Document{}, Meta{FileName: out})
	if err == nil {
		t.Fatal("expected an error for an empty document")
	}
	if _, statErr := os.Stat(out); statErr == nil {
		t.Fatal("no file may be written for an empty document")
	}
}

func TestPDF_MissingFileName(t *testing.T) {
	if err := PDF(sampleDocument(), Meta{}); err == nil {
		t.Fatal("expected an error when the file name is missing")
	}
}

func TestResearchQuestions_LenientDecode(t *testing.T) {
	doc := report.Normalize(map[string]any{
		"title": "T", "summary": "S",
		"themes": []any{}, "projectIdeas": []any{}, "references": []any{}, "risks": []any{},
		"researchQuestions": []any{"keep", 42, "", "also keep"},
	})
	got := researchQuestions(doc)
	if len(got) != 2 || got[0] != "keep" || got[1] != "also keep" {
		t.Fatalf("unexpected questions %v", got)
	}
	if researchQuestions(report.Document{}) != nil {
		t.Fatal("missing extension must yield nil")
	}
}
