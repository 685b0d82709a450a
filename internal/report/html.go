package report

import (
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"io"

	"github.com/kdimtricp/ansimtalk/internal/media"
	"github.com/kdimtricp/ansimtalk/internal/models"
	"github.com/kdimtricp/ansimtalk/internal/textproc"
)

//go:embed templates/report.html
var templateFS embed.FS

var htmlTemplate = template.Must(template.New("report.html").Funcs(template.FuncMap{
	"formatTime": func(d *Document) string { return d.CreatedAt.Format(timeLayout) },
	"disclaimer": func() string { return Disclaimer },
	"riskClass":  textproc.RiskClass,
}).ParseFS(templateFS, "templates/report.html"))

const (
	embedMaxWidth  = 800
	embedMaxHeight = 1000
)

type htmlView struct {
	*Document
	IsDeepfake      bool
	IsCyberbullying bool
	ImageURI        template.URL
	ImageError      string
	TableHTML       template.HTML
	RiskLine        string
	Conversation    string
}

// RenderHTML writes a self-contained HTML report. The evidence image is
// inlined as a JPEG data URI.
func RenderHTML(w io.Writer, doc *Document) error {
	view := htmlView{
		Document:        doc,
		IsDeepfake:      doc.Type == models.AnalysisDeepfake,
		IsCyberbullying: doc.Type == models.AnalysisCyberbullying,
	}

	if cb := doc.Result.Cyberbullying; cb != nil {
		// produced by textproc, cell text already escaped
		view.TableHTML = template.HTML(cb.TableHTML)
		view.RiskLine = cb.RiskLine
		view.Conversation = cb.Summary
	}

	if doc.ImagePath != "" {
		uri, err := imageDataURI(doc.ImagePath)
		if err != nil {
			view.ImageError = err.Error()
		} else {
			view.ImageURI = uri
		}
	}

	if err := htmlTemplate.Execute(w, view); err != nil {
		return fmt.Errorf("failed to render html report: %w", err)
	}
	return nil
}

func imageDataURI(path string) (template.URL, error) {
	data, err := media.Thumbnail(path, embedMaxWidth, embedMaxHeight)
	if err != nil {
		return "", err
	}
	return template.URL("data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)), nil
}
