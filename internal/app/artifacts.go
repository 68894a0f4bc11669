package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/IvanClarion/CapStack-sub000/internal/report"
)

// writeDocumentJSON writes the canonical document to path, creating parent
// directories as needed. The file holds exactly the normalized shape, so it
// can be fed back through the store or exporter unchanged.
func writeDocumentJSON(path string, doc report.Document) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("write document: %w", err)
		}
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	b = append(b, '\n')
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}
