package api

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/kdimtricp/ansimtalk/internal/models"
	"github.com/kdimtricp/ansimtalk/internal/textproc"
)

var pageNames = []string{
	"index.html",
	"results.html",
	"evidence.html",
	"deepfake_help.html",
	"cyberbullying_help.html",
}

var templateFuncs = template.FuncMap{
	"pipeTable": func(s string) template.HTML { return template.HTML(textproc.PipeTableToHTML(s)) },
	"safeHTML":  func(s string) template.HTML { return template.HTML(s) },
	"percent":   percent,
	"riskClass": textproc.RiskClass,
}

// pageData is what every page template receives.
type pageData struct {
	Flashes      []string
	MaxSizeMB    int64
	Result       *models.AnalysisResult
	Upload       *models.UploadedFile
	AnalysisType string
}

// parsePages builds one template set per page, each joined with the shared
// layout.
func parsePages(fsys fs.FS) (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(fsys, "layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

func (app *App) render(w http.ResponseWriter, name string, data pageData) {
	tmpl, ok := app.pages[name]
	if !ok {
		http.Error(w, "Error loading template", http.StatusInternalServerError)
		return
	}

	data.MaxSizeMB = app.Config.Upload.MaxSize / (1024 * 1024)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		app.Logger.Error("Failed to render template", "template", name, "error", err)
		http.Error(w, "Error rendering template", http.StatusInternalServerError)
	}
}

func percent(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", *v*100)
}
