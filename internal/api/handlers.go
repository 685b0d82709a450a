package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/kdimtricp/ansimtalk/internal/archive"
	"github.com/kdimtricp/ansimtalk/internal/config"
	"github.com/kdimtricp/ansimtalk/internal/custody"
	"github.com/kdimtricp/ansimtalk/internal/events"
	"github.com/kdimtricp/ansimtalk/internal/media"
	"github.com/kdimtricp/ansimtalk/internal/models"
	"github.com/kdimtricp/ansimtalk/internal/report"
	"github.com/kdimtricp/ansimtalk/internal/session"
	"github.com/kdimtricp/ansimtalk/internal/storage"
)

const (
	msgNoFile        = "파일이 없습니다."
	msgNoFilename    = "파일을 선택해주세요."
	msgNotAllowed    = "허용되지 않는 파일 형식입니다."
	msgTooLarge      = "파일 크기가 너무 큽니다."
	msgSaveFailed    = "파일 저장에 실패했습니다."
	msgNoResult      = "분석 결과가 없습니다."
	msgReportFailed  = "보고서 생성 중 오류가 발생했습니다."
	msgSessionFailed = "세션을 불러올 수 없습니다."
)

const (
	actorUser     = "user"
	actorServer   = "ansimtalk-server"
	actorAnalyzer = "ansimtalk-analyzer"
	actorSweeper  = "session-sweeper"
)

// multipart framing allowance on top of the file size limit
const formOverhead = 1 << 20

type Analyzer interface {
	Analyze(ctx context.Context, file *models.UploadedFile, typ models.AnalysisType) (*models.AnalysisResult, error)
}

type App struct {
	Config    *config.Config
	Storage   storage.Storage
	Analyzer  Analyzer
	Sessions  *session.Manager
	Custody   *custody.Recorder
	Archiver  archive.Archiver
	Publisher events.Publisher
	Logger    *slog.Logger

	pages map[string]*template.Template
	now   func() time.Time
}

// NewApp parses the page templates from fsys and fills in defaults. A nil
// Archiver becomes archive.NopArchiver and a nil Publisher drops events.
func NewApp(app App, fsys fs.FS) (*App, error) {
	pages, err := parsePages(fsys)
	if err != nil {
		return nil, err
	}
	app.pages = pages
	app.now = time.Now
	if app.Logger == nil {
		app.Logger = slog.Default()
	}
	if app.Archiver == nil {
		app.Archiver = archive.NopArchiver{}
	}
	if app.Publisher == nil {
		app.Publisher = events.NopPublisher{}
	}
	return &app, nil
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (app *App) IndexHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := app.loadSession(w, r)
	if !ok {
		return
	}

	flashes := sess.PopFlashes()
	if len(flashes) > 0 {
		app.saveSession(w, r, sess)
	}
	app.render(w, "index.html", pageData{Flashes: flashes})
}

func (app *App) staticPage(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		app.render(w, name, pageData{})
	}
}

func (app *App) AnalyzeDeepfakeHandler(w http.ResponseWriter, r *http.Request) {
	app.handleUpload(w, r, models.AnalysisDeepfake)
}

func (app *App) AnalyzeCyberbullyingHandler(w http.ResponseWriter, r *http.Request) {
	app.handleUpload(w, r, models.AnalysisCyberbullying)
}

func (app *App) handleUpload(w http.ResponseWriter, r *http.Request, typ models.AnalysisType) {
	sess, ok := app.loadSession(w, r)
	if !ok {
		return
	}
	logger := app.Logger.With("sessionId", sess.ID, "analysisType", typ)
	ctx := r.Context()

	maxSize := app.Config.Upload.MaxSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+formOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Warn("Upload rejected", "reason", "too large")
			app.redirectWithFlash(w, r, sess, msgTooLarge)
			return
		}
		logger.Warn("Upload rejected", "reason", "no multipart form", "error", err)
		app.redirectWithFlash(w, r, sess, msgNoFile)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		// browsers send an unselected file input as a part without a filename
		if _, sent := r.MultipartForm.Value["file"]; sent {
			app.redirectWithFlash(w, r, sess, msgNoFilename)
			return
		}
		logger.Warn("Upload rejected", "reason", "missing file part")
		app.redirectWithFlash(w, r, sess, msgNoFile)
		return
	}
	defer file.Close()

	if header.Filename == "" {
		app.redirectWithFlash(w, r, sess, msgNoFilename)
		return
	}
	if !storage.Allowed(header.Filename, app.Config.Upload.AllowedExtensions) {
		logger.Warn("Upload rejected", "reason", "extension", "filename", header.Filename)
		app.redirectWithFlash(w, r, sess, msgNotAllowed)
		return
	}
	if header.Size > maxSize {
		logger.Warn("Upload rejected", "reason", "too large", "size", header.Size)
		app.redirectWithFlash(w, r, sess, msgTooLarge)
		return
	}

	app.disposeUpload(ctx, sess.ID, sess.State.Upload, actorUser)
	sess.Reset()

	ext := storage.Extension(header.Filename)
	stored, err := app.Storage.SaveFile(file, storage.FileInfo{
		Filename:  header.Filename,
		Extension: ext,
		Size:      header.Size,
	})
	if err != nil {
		logger.Error("Failed to save upload", "error", err)
		app.redirectWithFlash(w, r, sess, msgSaveFailed)
		return
	}

	upload := &models.UploadedFile{
		StagingPath:  stored.StagingPath,
		PublicPath:   stored.PublicPath,
		PublicURL:    stored.PublicURL,
		OriginalName: header.Filename,
		SafeName:     storage.SecureFilename(header.Filename),
		StoredName:   stored.StoredName,
		Extension:    ext,
		Size:         stored.Size,
		SHA256:       stored.SHA256,
		UploaderIP:   clientIP(r),
		UploadedAt:   app.now(),
	}
	if upload.IsImage() {
		info := media.Inspect(upload.StagingPath)
		upload.Width, upload.Height, upload.Metadata = info.Width, info.Height, info.Metadata
	}
	logger = logger.With("file", upload.StoredName, "sha256", upload.SHA256)
	logger.Info("Evidence uploaded", "size", upload.Size, "original", upload.SafeName)

	app.Custody.Record(ctx, sess.ID, upload.SHA256, models.StepUpload, actorUser, upload.SafeName)
	app.Custody.Record(ctx, sess.ID, upload.SHA256, models.StepHash, actorServer, "SHA-256")
	app.publish(ctx, logger, events.Event{
		Kind:         events.KindUploaded,
		SessionID:    sess.ID,
		SHA256:       upload.SHA256,
		AnalysisType: string(typ),
	})

	result, err := app.Analyzer.Analyze(ctx, upload, typ)
	if err != nil {
		logger.Error("Analysis failed", "error", err)
		app.disposeUpload(ctx, sess.ID, upload, actorServer)
		app.redirectWithFlash(w, r, sess, fmt.Sprintf("%s 분석 중 오류: %v", typ, err))
		return
	}
	result.Annotate(upload, models.NewUploaderID(upload.UploadedAt))

	app.Custody.Record(ctx, sess.ID, upload.SHA256, models.StepAnalysis, actorAnalyzer, analysisDetail(result))
	app.archiveEvidence(ctx, logger, sess.ID, upload)
	app.publish(ctx, logger, analyzedEvent(sess.ID, result))

	sess.State.Upload = upload
	sess.State.Result = result
	if !app.saveSession(w, r, sess) {
		http.Error(w, msgSessionFailed, http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/results", http.StatusSeeOther)
}

func (app *App) ResultsHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := app.loadSession(w, r)
	if !ok {
		return
	}
	if sess.State.Result == nil {
		app.redirectWithFlash(w, r, sess, msgNoResult)
		return
	}

	flashes := sess.PopFlashes()
	if len(flashes) > 0 {
		app.saveSession(w, r, sess)
	}
	app.render(w, "results.html", pageData{
		Flashes:      flashes,
		Result:       sess.State.Result,
		Upload:       sess.State.Upload,
		AnalysisType: string(sess.State.Result.Type),
	})
}

// DownloadPDFHandler sends the PDF report, or the plain-text report when
// PDF rendering fails.
func (app *App) DownloadPDFHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := app.loadSession(w, r)
	if !ok {
		return
	}
	if sess.State.Result == nil {
		app.redirectWithFlash(w, r, sess, msgNoResult)
		return
	}
	ctx := r.Context()
	logger := app.Logger.With("sessionId", sess.ID)

	doc := app.buildReport(ctx, sess, "pdf")
	data, err := report.RenderPDF(doc, logger)
	if err != nil {
		logger.Error("PDF rendering failed, sending text report", "reportId", doc.ReportID, "error", err)
		app.sendAttachment(w, "evidence_"+doc.ReportID+".txt", "text/plain; charset=utf-8", []byte(report.RenderText(doc)))
		app.publish(ctx, logger, exportedEvent(sess.ID, doc, "txt"))
		return
	}

	app.archiveReport(ctx, logger, sess.ID, doc, ".pdf", data)
	app.publish(ctx, logger, exportedEvent(sess.ID, doc, "pdf"))
	app.sendAttachment(w, "evidence_"+doc.ReportID+".pdf", "application/pdf", data)
}

func (app *App) DownloadHTMLHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := app.loadSession(w, r)
	if !ok {
		return
	}
	if sess.State.Result == nil {
		app.redirectWithFlash(w, r, sess, msgNoResult)
		return
	}
	ctx := r.Context()
	logger := app.Logger.With("sessionId", sess.ID)

	doc := app.buildReport(ctx, sess, "html")
	var buf bytes.Buffer
	if err := report.RenderHTML(&buf, doc); err != nil {
		logger.Error("HTML rendering failed", "reportId", doc.ReportID, "error", err)
		app.redirectWithFlash(w, r, sess, msgReportFailed)
		return
	}

	app.archiveReport(ctx, logger, sess.ID, doc, ".html", buf.Bytes())
	app.publish(ctx, logger, exportedEvent(sess.ID, doc, "html"))
	app.sendAttachment(w, "evidence_"+doc.ReportID+".html", "text/html; charset=utf-8", buf.Bytes())
}

func (app *App) ResetHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := app.loadSession(w, r)
	if !ok {
		return
	}

	app.disposeUpload(r.Context(), sess.ID, sess.State.Upload, actorUser)
	sess.Reset()
	if !sess.IsNew() {
		app.saveSession(w, r, sess)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ExpireSession disposes of the evidence of a session removed by the
// sweeper.
func (app *App) ExpireSession(ctx context.Context, sessionID string, state models.SessionState) {
	app.disposeUpload(ctx, sessionID, state.Upload, actorSweeper)
}

func (app *App) loadSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := app.Sessions.Load(r)
	if err != nil {
		app.Logger.Error("Failed to load session", "error", err)
		http.Error(w, msgSessionFailed, http.StatusInternalServerError)
		return nil, false
	}
	return sess, true
}

func (app *App) saveSession(w http.ResponseWriter, r *http.Request, sess *session.Session) bool {
	if err := app.Sessions.Save(w, r, sess); err != nil {
		app.Logger.Error("Failed to save session", "sessionId", sess.ID, "error", err)
		return false
	}
	return true
}

func (app *App) redirectWithFlash(w http.ResponseWriter, r *http.Request, sess *session.Session, msg string) {
	sess.AddFlash(msg)
	app.saveSession(w, r, sess)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (app *App) disposeUpload(ctx context.Context, sessionID string, upload *models.UploadedFile, actor string) {
	if upload == nil {
		return
	}
	logger := app.Logger.With("sessionId", sessionID, "file", upload.StoredName)

	if err := app.Storage.DeleteFile(upload.StoredName); err != nil {
		logger.Error("Failed to delete evidence files", "error", err)
		return
	}
	logger.Info("Evidence files deleted", "actor", actor)

	app.Custody.Record(ctx, sessionID, upload.SHA256, models.StepDisposal, actor, upload.StoredName)
	app.publish(ctx, logger, events.Event{
		Kind:      events.KindDisposed,
		SessionID: sessionID,
		SHA256:    upload.SHA256,
	})
}

func (app *App) archiveEvidence(ctx context.Context, logger *slog.Logger, sessionID string, upload *models.UploadedFile) {
	name := archive.ObjectName(app.Config.Archive.Prefix, upload.SHA256, upload.StoredName)
	f, err := app.Storage.OpenFile(upload.StoredName)
	if err != nil {
		logger.Error("Failed to open evidence for archiving", "error", err)
		return
	}
	defer f.Close()
	if err := app.Archiver.Archive(ctx, name, f); err != nil {
		if !errors.Is(err, archive.ErrDisabled) {
			logger.Error("Failed to archive evidence", "object", name, "error", err)
		}
		return
	}
	app.Custody.Record(ctx, sessionID, upload.SHA256, models.StepArchive, actorServer, name)
}

func (app *App) archiveReport(ctx context.Context, logger *slog.Logger, sessionID string, doc *report.Document, ext string, data []byte) {
	name := archive.ObjectName(app.Config.Archive.Prefix, doc.Result.SHA256, doc.ReportID+ext)
	if err := app.Archiver.Archive(ctx, name, bytes.NewReader(data)); err != nil {
		if !errors.Is(err, archive.ErrDisabled) {
			logger.Error("Failed to archive report", "object", name, "error", err)
		}
		return
	}
	app.Custody.Record(ctx, sessionID, doc.Result.SHA256, models.StepArchive, actorServer, name)
}

// buildReport records the report step and assembles the document with the
// custody trail of the current evidence file.
func (app *App) buildReport(ctx context.Context, sess *session.Session, format string) *report.Document {
	result := sess.State.Result
	app.Custody.Record(ctx, sess.ID, result.SHA256, models.StepReport, actorServer, format)

	var trail []models.CustodyEvent
	for _, e := range app.Custody.Trail(ctx, sess.ID) {
		if e.SHA256 == result.SHA256 {
			trail = append(trail, e)
		}
	}

	return report.BuildDocument(result, sess.State.Upload, trail, report.Options{
		Platform:          app.Config.Report.Platform,
		ReleaseDate:       app.Config.Report.ReleaseDate,
		ConversationModel: app.Config.Gemini.Model,
		FontPath:          app.Config.Report.FontPath,
		Now:               app.now,
	})
}

func (app *App) sendAttachment(w http.ResponseWriter, filename, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (app *App) publish(ctx context.Context, logger *slog.Logger, event events.Event) {
	if err := app.Publisher.Publish(ctx, event); err != nil {
		logger.Warn("Failed to publish event", "kind", event.Kind, "error", err)
	}
}

func analyzedEvent(sessionID string, result *models.AnalysisResult) events.Event {
	e := events.Event{
		Kind:         events.KindAnalyzed,
		SessionID:    sessionID,
		ResultID:     result.ID,
		SHA256:       result.SHA256,
		AnalysisType: string(result.Type),
		Risk:         result.RiskLine(),
	}
	if result.Deepfake != nil {
		e.DeepfakeProbability = result.Deepfake.Probability
	}
	if result.Cyberbullying != nil {
		e.Degraded = result.Cyberbullying.Degraded
	}
	return e
}

func exportedEvent(sessionID string, doc *report.Document, format string) events.Event {
	return events.Event{
		Kind:         events.KindExported,
		SessionID:    sessionID,
		ResultID:     doc.Result.ID,
		SHA256:       doc.Result.SHA256,
		AnalysisType: string(doc.Type),
		Format:       format,
	}
}

func analysisDetail(result *models.AnalysisResult) string {
	switch {
	case result.Error != "":
		return "unsupported: " + result.Error
	case result.Cyberbullying != nil && result.Cyberbullying.Degraded:
		return string(result.Type) + " (keyword fallback)"
	default:
		return string(result.Type)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
