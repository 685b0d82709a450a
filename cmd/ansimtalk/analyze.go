package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kdimtricp/ansimtalk/internal/ai"
	"github.com/kdimtricp/ansimtalk/internal/analysis"
	"github.com/kdimtricp/ansimtalk/internal/media"
	"github.com/kdimtricp/ansimtalk/internal/models"
	"github.com/kdimtricp/ansimtalk/internal/report"
	"github.com/kdimtricp/ansimtalk/internal/storage"
	"github.com/kdimtricp/ansimtalk/internal/textproc"
)

var (
	analyzeType    string
	analyzePDFPath string
	analyzeHTMLOut string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze FILE",
	Short: "Analyze one evidence file without the web server",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeType, "type", "t", "", "analysis type: deepfake or cyberbullying")
	analyzeCmd.Flags().StringVar(&analyzePDFPath, "pdf", "", "write a PDF report to this path (bare flag: report output dir)")
	analyzeCmd.Flags().StringVar(&analyzeHTMLOut, "html", "", "write an HTML report to this path (bare flag: report output dir)")
	analyzeCmd.Flags().Lookup("pdf").NoOptDefVal = autoOutput
	analyzeCmd.Flags().Lookup("html").NoOptDefVal = autoOutput
	analyzeCmd.MarkFlagRequired("type")
}

// autoOutput is the value of a bare --pdf or --html flag: the report goes
// to the configured output directory under its report id.
const autoOutput = "auto"

func outputPath(flagValue, outputDir, reportID, ext string) string {
	if flagValue == autoOutput {
		return filepath.Join(outputDir, reportID+ext)
	}
	return flagValue
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	typ := models.AnalysisType(strings.ToLower(analyzeType))
	if !typ.Valid() {
		return fmt.Errorf("unknown analysis type %q", analyzeType)
	}

	path := args[0]
	if !storage.Allowed(path, cfg.Upload.AllowedExtensions) {
		return fmt.Errorf("file type of %s is not allowed", filepath.Base(path))
	}
	store, err := storage.NewLocalStorage(cfg.Upload.StagingDir, cfg.Upload.PublicDir)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	upload, err := stageLocal(store, path, time.Now())
	if err != nil {
		return err
	}
	defer func() {
		if err := store.DeleteFile(upload.StoredName); err != nil {
			logger.Warn("Failed to remove staged copy", "file", upload.StoredName, "error", err)
		}
	}()
	if upload.Size > cfg.Upload.MaxSize {
		return fmt.Errorf("%s is larger than %d bytes", filepath.Base(path), cfg.Upload.MaxSize)
	}

	clients := ai.NewClients(cmd.Context(), cfg, logger)
	defer clients.Close()

	result, err := analysis.NewService(clients, store, logger).Analyze(cmd.Context(), upload, typ)
	if err != nil {
		return err
	}
	result.Annotate(upload, models.NewUploaderID(upload.UploadedAt))

	printResult(result)

	if analyzePDFPath == "" && analyzeHTMLOut == "" {
		return nil
	}
	doc := report.BuildDocument(result, upload, nil, report.Options{
		Platform:          cfg.Report.Platform,
		ReleaseDate:       cfg.Report.ReleaseDate,
		ConversationModel: cfg.Gemini.Model,
		FontPath:          cfg.Report.FontPath,
	})

	var errs []error
	if analyzePDFPath != "" {
		errs = append(errs, writePDF(doc, outputPath(analyzePDFPath, cfg.Report.OutputDir, doc.ReportID, ".pdf")))
	}
	if analyzeHTMLOut != "" {
		errs = append(errs, writeHTML(doc, outputPath(analyzeHTMLOut, cfg.Report.OutputDir, doc.ReportID, ".html")))
	}
	return errors.Join(errs...)
}

// stageLocal copies a file on disk into store the way the web upload path
// does. The staged copy is what gets hashed and analyzed.
func stageLocal(store storage.Storage, path string, now time.Time) (*models.UploadedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := filepath.Base(path)
	ext := storage.Extension(name)
	stored, err := store.SaveFile(f, storage.FileInfo{Filename: name, Extension: ext})
	if err != nil {
		return nil, err
	}

	upload := &models.UploadedFile{
		StagingPath:  stored.StagingPath,
		PublicPath:   stored.PublicPath,
		PublicURL:    stored.PublicURL,
		OriginalName: name,
		SafeName:     storage.SecureFilename(name),
		StoredName:   stored.StoredName,
		Extension:    ext,
		Size:         stored.Size,
		SHA256:       stored.SHA256,
		UploaderIP:   "127.0.0.1",
		UploadedAt:   now,
	}
	if upload.IsImage() {
		m := media.Inspect(upload.StagingPath)
		upload.Width, upload.Height, upload.Metadata = m.Width, m.Height, m.Metadata
	}
	return upload, nil
}

func printResult(r *models.AnalysisResult) {
	lines := []string{
		styleTitle.Render("AnsimTalk analysis"),
		field("File", r.FileInfo.Filename),
		field("SHA-256", r.SHA256),
		field("Size", fmt.Sprintf("%d bytes (%.2f MB)", r.FileSizeBytes, r.FileSizeMB)),
		field("Resolution", r.ImageResolution),
		field("Type", string(r.Type)),
	}

	switch {
	case r.Error != "":
		lines = append(lines, styleError.Render(iconError+" "+r.Error))
	case r.Deepfake != nil:
		if r.Deepfake.Error != "" {
			lines = append(lines, styleError.Render(iconError+" "+r.Deepfake.Error))
		} else {
			lines = append(lines, field("Deepfake", styleWarning.Render(report.Summary(r))))
		}
	case r.Cyberbullying != nil:
		lines = append(lines, field("Risk", styleWarning.Render(textproc.EnglishRisk(r.Cyberbullying.RiskLine))))
		if r.Cyberbullying.Degraded {
			lines = append(lines, styleMuted.Render(iconWarning+" keyword fallback, AI service unavailable"))
		}
	}

	fmt.Println(styleBox.Render(strings.Join(lines, "\n")))

	if r.Cyberbullying != nil && r.Cyberbullying.TableMarkdown != "" {
		fmt.Println()
		fmt.Println(r.Cyberbullying.TableMarkdown)
		fmt.Println()
		fmt.Println(r.Cyberbullying.Summary)
	}
}

func writePDF(doc *report.Document, path string) error {
	data, err := report.RenderPDF(doc, logger)
	if err != nil {
		logger.Error("PDF rendering failed, writing text report", "error", err)
		path = strings.TrimSuffix(path, filepath.Ext(path)) + ".txt"
		data = []byte(report.RenderText(doc))
	}
	if err := writeReport(path, data); err != nil {
		return err
	}
	fmt.Println(styleSuccess.Render(iconSuccess+" Report written: ") + path)
	return nil
}

func writeHTML(doc *report.Document, path string) error {
	var b strings.Builder
	if err := report.RenderHTML(&b, doc); err != nil {
		return err
	}
	if err := writeReport(path, []byte(b.String())); err != nil {
		return err
	}
	fmt.Println(styleSuccess.Render(iconSuccess+" Report written: ") + path)
	return nil
}

func writeReport(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
