// Package export renders the canonical structured document into shareable
// artifacts. It consumes only the normalized shape and treats every extension
// key as optional.
package export

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/rs/zerolog/log"

	"github.com/IvanClarion/CapStack-sub000/internal/report"
)

// Meta carries per-export presentation options. FileName is required; the
// logo and share link are decoration and may be absent.
type Meta struct {
	FileName string
	LogoURL  string
	ShareURL string
}

// PDF writes the document to meta.FileName as a portable artifact. An empty
// document or a missing file name is a caller error, reported back rather
// than producing a blank file.
func PDF(doc report.Document, meta Meta) error {
	if strings.TrimSpace(meta.FileName) == "" {
		return errors.New("pdf export: no output file name")
	}
	if doc.Empty() {
		return errors.New("pdf export: nothing to export")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	if meta.LogoURL != "" {
		placeLogo(pdf, meta.LogoURL)
	}

	pdf.SetFont("Helvetica", "B", 16)
	pdf.MultiCell(0, 8, doc.Title, "", "L", false)
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 5, doc.Summary, "", "L", false)
	pdf.Ln(4)

	if len(doc.Themes) > 0 {
		heading(pdf, "Themes")
		for _, th := range doc.Themes {
			bold(pdf, th.Name)
			pdf.MultiCell(0, 5, th.Explanation, "", "L", false)
			pdf.Ln(2)
		}
	}

	if len(doc.ProjectIdeas) > 0 {
		heading(pdf, "Project Ideas")
		for _, idea := range doc.ProjectIdeas {
			bold(pdf, idea.Name)
			if idea.Goal != "" {
				pdf.MultiCell(0, 5, "Goal: "+idea.Goal, "", "L", false)
			}
			if idea.PotentialImpact != "" {
				pdf.MultiCell(0, 5, "Potential impact: "+idea.PotentialImpact, "", "L", false)
			}
			for _, step := range idea.NextSteps {
				pdf.MultiCell(0, 5, "- "+step, "", "L", false)
			}
			pdf.Ln(2)
		}
	}

	if qs := researchQuestions(doc); len(qs) > 0 {
		heading(pdf, "Research Questions")
		for _, q := range qs {
			pdf.MultiCell(0, 5, "- "+q, "", "L", false)
		}
		pdf.Ln(2)
	}

	if len(doc.References) > 0 {
		heading(pdf, "References")
		for _, ref := range doc.References {
			label := ref.Source
			if ref.Type != "" {
				label = fmt.Sprintf("[%s] %s", ref.Type, ref.Source)
			}
			if ref.URL != "" {
				pdf.WriteLinkString(5, label, ref.URL)
			} else {
				pdf.Write(5, label)
			}
			pdf.Ln(6)
		}
		pdf.Ln(2)
	}

	if len(doc.Risks) > 0 {
		heading(pdf, "Risks")
		for _, r := range doc.Risks {
			pdf.MultiCell(0, 5, "- "+r, "", "L", false)
		}
	}

	if meta.ShareURL != "" {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.WriteLinkString(5, "Open this report online", meta.ShareURL)
		pdf.Ln(5)
	}

	if err := pdf.OutputFileAndClose(meta.FileName); err != nil {
		return fmt.Errorf("pdf export: %w", err)
	}
	return nil
}

func heading(pdf *gofpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, text, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
}

func bold(pdf *gofpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.MultiCell(0, 5, text, "", "L", false)
	pdf.SetFont("Helvetica", "", 11)
}

// researchQuestions pulls the optional extension list, dropping anything
// that is not a string.
func researchQuestions(doc report.Document) []string {
	raw, ok := doc.Extra["researchQuestions"].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// placeLogo fetches and registers the header image. The logo is cosmetic, so
// any failure is logged and the export continues without it.
func placeLogo(pdf *gofpdf.Fpdf, url string) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("logo fetch failed; exporting without logo")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Str("url", url).Msg("logo fetch failed; exporting without logo")
		return
	}
	kind := imageKind(resp.Header.Get("Content-Type"), url)
	if kind == "" {
		log.Warn().Str("url", url).Msg("logo format not supported; exporting without logo")
		return
	}
	opts := gofpdf.ImageOptions{ImageType: kind, ReadDpi: true}
	pdf.RegisterImageOptionsReader("logo", opts, io.LimitReader(resp.Body, 4<<20))
	if pdf.Err() {
		log.Warn().Err(pdf.Error()).Str("url", url).Msg("logo decode failed; exporting without logo")
		pdf.ClearError()
		return
	}
	pdf.ImageOptions("logo", 10, 8, 30, 0, false, opts, 0, "")
	pdf.Ln(14)
}

func imageKind(contentType, url string) string {
	switch {
	case strings.Contains(contentType, "png"), strings.HasSuffix(url, ".png"):
		return "PNG"
	case strings.Contains(contentType, "jpeg"), strings.Contains(contentType, "jpg"),
		strings.HasSuffix(url, ".jpg"), strings.HasSuffix(url, ".jpeg"):
		return "JPG"
	default:
		return ""
	}
}
