package report

import (
	"bytes"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/kdimtricp/ansimtalk/internal/media"
	"github.com/kdimtricp/ansimtalk/internal/models"
	"github.com/kdimtricp/ansimtalk/internal/textproc"
)

const (
	coreFont    = "Arial"
	unicodeFont = "ReportFont"

	pdfImageWidth = 80.0
	pdfImageMax   = 1024
	errorPreview  = 50
)

func init() {
	api.DisableConfigDir()
}

type pdfWriter struct {
	pdf     *fpdf.Fpdf
	family  string
	unicode bool
}

func newPDFWriter(fontPath string, logger *slog.Logger) *pdfWriter {
	if fontPath != "" {
		pdf := fpdf.New("P", "mm", "A4", "")
		pdf.AddUTF8Font(unicodeFont, "", fontPath)
		pdf.AddUTF8Font(unicodeFont, "B", fontPath)
		if pdf.Err() {
			logger.Warn("Failed to load report font, using core font", "font", fontPath, "error", pdf.Error())
		} else {
			return &pdfWriter{pdf: pdf, family: unicodeFont, unicode: true}
		}
	}
	return &pdfWriter{pdf: fpdf.New("P", "mm", "A4", ""), family: coreFont}
}

// text makes s printable in the active font: core fonts only cover ASCII.
func (w *pdfWriter) text(s string) string {
	if w.unicode {
		return s
	}
	return textproc.ASCIIOnly(s)
}

func (w *pdfWriter) heading(s string) {
	w.pdf.SetFont(w.family, "B", 14)
	w.pdf.CellFormat(0, 10, s, "", 1, "L", false, 0, "")
	w.pdf.SetFont(w.family, "", 10)
}

func (w *pdfWriter) line(s string) {
	w.pdf.CellFormat(0, 8, w.text(s), "", 1, "L", false, 0, "")
}

func (w *pdfWriter) paragraph(s string) {
	w.pdf.MultiCell(0, 8, w.text(s), "", "L", false)
}

// RenderPDF draws the report with fpdf and stamps document properties with
// pdfcpu. A failed stamp is logged and the unstamped PDF returned.
func RenderPDF(doc *Document, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w := newPDFWriter(doc.FontPath, logger)
	pdf := w.pdf

	pdf.SetTitle("AnsimTalk Digital Evidence Analysis Report", true)
	pdf.SetSubject(doc.ReportID, true)
	pdf.SetCreator(w.text(doc.Platform), true)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(w.family, "", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Report ID: %s | Page %d", doc.ReportID, pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont(w.family, "B", 16)
	pdf.CellFormat(0, 10, "AnsimTalk Digital Evidence Analysis Report", "", 1, "C", false, 0, "")
	pdf.Ln(10)

	w.heading("1. Basic Information")
	w.line("Report ID: " + doc.ReportID)
	w.line("Created: " + doc.CreatedAt.Format(timeLayout))
	w.line("Analysis Type: " + orNA(string(doc.Type)))
	pdf.Ln(5)

	r := doc.Result
	w.heading("2. File Information")
	w.line("Filename: " + r.FileInfo.Filename)
	w.line("File Size: " + strconv.FormatInt(r.FileInfo.SizeBytes, 10) + " Bytes")
	w.line("SHA-256: " + r.SHA256)
	if r.UploaderID != "" {
		w.line("Uploader ID: " + r.UploaderID)
	}
	if r.ImageResolution != "" {
		w.line("Resolution: " + r.ImageResolution)
	}
	pdf.Ln(5)

	w.heading("3. Analysis Results")
	writeResults(w, r)
	pdf.Ln(5)

	w.heading("4. Legal Disclaimer")
	if w.unicode {
		w.paragraph(Disclaimer)
	}
	w.paragraph(DisclaimerEN)

	if doc.ImagePath != "" {
		img, err := media.Thumbnail(doc.ImagePath, pdfImageMax, pdfImageMax)
		if err != nil {
			logger.Warn("Failed to embed evidence image", "error", err)
		} else {
			pdf.Ln(5)
			w.heading("5. Evidence Image")
			pdf.RegisterImageOptionsReader("evidence", fpdf.ImageOptions{ImageType: "JPG"}, bytes.NewReader(img))
			pdf.ImageOptions("evidence", pdf.GetX(), pdf.GetY(), pdfImageWidth, 0, true, fpdf.ImageOptions{ImageType: "JPG"}, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf report: %w", err)
	}

	stamped, err := stamp(buf.Bytes(), doc)
	if err != nil {
		logger.Warn("PDF post-processing failed, returning unstamped report", "reportId", doc.ReportID, "error", err)
		return buf.Bytes(), nil
	}
	return stamped, nil
}

func writeResults(w *pdfWriter, r *models.AnalysisResult) {
	switch {
	case r.Error != "":
		w.line("Analysis Error: " + textproc.SafeText(r.Error, errorPreview))
	case r.Type == models.AnalysisDeepfake && r.Deepfake != nil:
		d := r.Deepfake
		if d.Error != "" {
			w.line("Deepfake Analysis Error: " + truncateRunes(d.Error, errorPreview))
			return
		}
		if d.Probability == nil {
			w.line("Deepfake Probability: N/A")
		} else {
			w.line(fmt.Sprintf("Deepfake Probability: %.1f%%", *d.Probability*100))
		}
		for _, s := range []struct {
			label string
			v     *float64
		}{
			{"Offensive", d.Offensive},
			{"Nudity (raw)", d.NudityRaw},
			{"Weapon", d.Weapon},
			{"Alcohol", d.Alcohol},
			{"Drugs", d.Drugs},
		} {
			if s.v != nil {
				w.line(fmt.Sprintf("%s: %.1f%%", s.label, *s.v*100))
			}
		}
	case r.Type == models.AnalysisCyberbullying && r.Cyberbullying != nil:
		w.line("Cyberbullying Risk: " + textproc.EnglishRisk(r.Cyberbullying.RiskLine))
		if r.Cyberbullying.Degraded {
			w.line("Method: keyword analysis (AI service unavailable)")
		}
		if w.unicode && r.Cyberbullying.Summary != "" {
			w.paragraph(r.Cyberbullying.Summary)
		}
	default:
		w.line("Analysis Results: N/A")
	}
}

// stamp validates the rendered PDF and records the report id and evidence
// digest in its document properties.
func stamp(raw []byte, doc *Document) ([]byte, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if err := api.Validate(bytes.NewReader(raw), conf); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	props := map[string]string{
		"ReportID":     doc.ReportID,
		"CaseNumber":   doc.CaseNumber,
		"AnalysisType": string(doc.Type),
		"SHA256":       doc.Result.SHA256,
	}
	var out bytes.Buffer
	if err := api.AddProperties(bytes.NewReader(raw), &out, props, conf); err != nil {
		return nil, fmt.Errorf("add properties: %w", err)
	}
	return out.Bytes(), nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
