package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kdimtricp/ansimtalk/web"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(app.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/", app.IndexHandler)
	r.Get("/health", HealthHandler)

	r.Post("/analyze_deepfake", app.AnalyzeDeepfakeHandler)
	r.Post("/analyze_cyberbullying", app.AnalyzeCyberbullyingHandler)
	r.Get("/results", app.ResultsHandler)
	r.Get("/download_pdf", app.DownloadPDFHandler)
	r.Get("/download_html", app.DownloadHTMLHandler)
	r.Get("/reset", app.ResetHandler)

	r.Get("/evidence", app.staticPage("evidence.html"))
	r.Get("/deepfake_help", app.staticPage("deepfake_help.html"))
	r.Get("/cyberbullying_help", app.staticPage("cyberbullying_help.html"))

	staticServer := http.FileServer(http.FS(web.Static()))
	r.Handle("/static/*", http.StripPrefix("/static", staticServer))

	uploadServer := http.FileServer(http.Dir(app.Storage.PublicDir()))
	r.Handle("/uploads/*", http.StripPrefix("/uploads", uploadServer))

	return r
}
