package api

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kdimtricp/ansimtalk/internal/analysis"
	"github.com/kdimtricp/ansimtalk/internal/archive"
	"github.com/kdimtricp/ansimtalk/internal/config"
	"github.com/kdimtricp/ansimtalk/internal/custody"
	"github.com/kdimtricp/ansimtalk/internal/database"
	"github.com/kdimtricp/ansimtalk/internal/events"
	"github.com/kdimtricp/ansimtalk/internal/models"
	"github.com/kdimtricp/ansimtalk/internal/session"
	"github.com/kdimtricp/ansimtalk/internal/storage"
	"github.com/kdimtricp/ansimtalk/web"
)

const testMaxSize = 64 * 1024

type fakePublisher struct {
	mu    sync.Mutex
	kinds []events.Kind
}

func (p *fakePublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kinds = append(p.kinds, event.Kind)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) has(kind events.Kind) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, k := range p.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

type fakeArchiver struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (a *fakeArchiver) Archive(ctx context.Context, objectName string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.objects == nil {
		a.objects = map[string][]byte{}
	}
	a.objects[objectName] = data
	return nil
}

func (a *fakeArchiver) names() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for name := range a.objects {
		out = append(out, name)
	}
	return out
}

type failingAnalyzer struct{}

func (failingAnalyzer) Analyze(ctx context.Context, file *models.UploadedFile, typ models.AnalysisType) (*models.AnalysisResult, error) {
	return nil, errors.New("vendor exploded")
}

type testServer struct {
	server     *httptest.Server
	app        *App
	db         *database.DB
	client     *http.Client
	stagingDir string
	publicDir  string
	publisher  *fakePublisher
	archiver   *fakeArchiver
}

func setupTestServer(t *testing.T, analyzer Analyzer) *testServer {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Upload.StagingDir = filepath.Join(dir, "staging")
	cfg.Upload.PublicDir = filepath.Join(dir, "public")
	cfg.Upload.MaxSize = testMaxSize

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	localStorage, err := storage.NewLocalStorage(cfg.Upload.StagingDir, cfg.Upload.PublicDir)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	db := database.NewTestDB(t)
	sessions := session.NewManager(database.NewSessionRepository(db), session.Options{
		SecretKey: "test-secret",
		MaxAge:    time.Hour,
		Logger:    logger,
	})
	recorder := custody.NewRecorder(custody.NewSQLLedger(database.NewCustodyRepository(db)), logger)

	if analyzer == nil {
		analyzer = analysis.NewService(nil, localStorage, logger)
	}

	publisher := &fakePublisher{}
	archiver := &fakeArchiver{}
	app, err := NewApp(App{
		Config:    cfg,
		Storage:   localStorage,
		Analyzer:  analyzer,
		Sessions:  sessions,
		Custody:   recorder,
		Archiver:  archiver,
		Publisher: publisher,
		Logger:    logger,
	}, web.Templates())
	if err != nil {
		t.Fatalf("Failed to create app: %v", err)
	}

	server := httptest.NewServer(NewRouter(app))
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("Failed to create cookie jar: %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testServer{
		server:     server,
		app:        app,
		db:         db,
		client:     client,
		stagingDir: cfg.Upload.StagingDir,
		publicDir:  cfg.Upload.PublicDir,
		publisher:  publisher,
		archiver:   archiver,
	}
}

func createMultipartUpload(field, filename string, content []byte) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, bytes.NewReader(content)); err != nil {
		return nil, "", err
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

func (ts *testServer) upload(t *testing.T, path, field, filename string, content []byte) *http.Response {
	t.Helper()
	body, contentType, err := createMultipartUpload(field, filename, content)
	if err != nil {
		t.Fatalf("Failed to create multipart upload: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, ts.server.URL+path, body)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := ts.client.Do(req)
	if err != nil {
		t.Fatalf("Failed to upload file: %v", err)
	}
	resp.Body.Close()
	return resp
}

func (ts *testServer) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := ts.client.Get(ts.server.URL + path)
	if err != nil {
		t.Fatalf("Failed to GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	return resp, body
}

func expectRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("Expected status 303, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); got != location {
		t.Fatalf("Expected redirect to %s, got %s", location, got)
	}
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read dir: %v", err)
	}
	return len(entries)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for x := 0; x < 32; x++ {
		for y := 0; y < 24; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(y * 10), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func TestHealthHandler(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp, body := ts.get(t, "/health")
	if resp.StatusCode != http.StatusOK || string(body) != "OK" {
		t.Errorf("Expected 200 OK, got %d %q", resp.StatusCode, body)
	}
}

func TestPages(t *testing.T) {
	ts := setupTestServer(t, nil)

	tests := []struct {
		path string
		want string
	}{
		{"/", "딥페이크 분석"},
		{"/evidence", "디지털 증거 보관 안내"},
		{"/deepfake_help", "딥페이크 분석 도움말"},
		{"/cyberbullying_help", "사이버폭력 분석 도움말"},
		{"/static/style.css", ".risk-severe"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := ts.get(t, tt.path)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("Expected 200, got %d", resp.StatusCode)
			}
			if !strings.Contains(string(body), tt.want) {
				t.Errorf("Expected body to contain %q", tt.want)
			}
		})
	}
}

func TestUploadValidation(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		filename string
		content  []byte
		wantMsg  string
	}{
		{name: "missing file part", field: "other", filename: "a.txt", content: []byte("x"), wantMsg: msgNoFile},
		{name: "empty filename", field: "file", filename: "", content: []byte("x"), wantMsg: msgNoFilename},
		{name: "disallowed extension", field: "file", filename: "run.exe", content: []byte("MZ"), wantMsg: msgNotAllowed},
		{name: "too large", field: "file", filename: "big.txt", content: bytes.Repeat([]byte("a"), testMaxSize+10), wantMsg: msgTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := setupTestServer(t, nil)

			resp := ts.upload(t, "/analyze_cyberbullying", tt.field, tt.filename, tt.content)
			expectRedirect(t, resp, "/")

			_, body := ts.get(t, "/")
			if !strings.Contains(string(body), tt.wantMsg) {
				t.Errorf("Expected flash %q on index page", tt.wantMsg)
			}
			if n := countFiles(t, ts.stagingDir); n != 0 {
				t.Errorf("Expected no stored files, got %d", n)
			}

			// flashes are shown once
			_, body = ts.get(t, "/")
			if strings.Contains(string(body), tt.wantMsg) {
				t.Error("Expected flash to be cleared after display")
			}
		})
	}
}

func TestCyberbullyingFlow(t *testing.T) {
	ts := setupTestServer(t, nil)
	content := []byte("\ufeff철수: 너 진짜 죽어\n영희: 왜 그래\n철수: 내일 보자\n")
	sum := digest(content)

	resp := ts.upload(t, "/analyze_cyberbullying", "file", "chat.txt", content)
	expectRedirect(t, resp, "/results")

	resp, body := ts.get(t, "/results")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected results page, got %d", resp.StatusCode)
	}
	page := string(body)
	for _, want := range []string{"사이버폭력 분석", sum, "키워드 기반 분석", "risk-"} {
		if !strings.Contains(page, want) {
			t.Errorf("Expected results page to contain %q", want)
		}
	}

	resp, body = ts.get(t, "/download_pdf")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected pdf download, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Content-Type") != "application/pdf" {
		t.Errorf("Unexpected content type %s", resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), "attachment; filename=\"evidence_DF-CB-") {
		t.Errorf("Unexpected disposition %s", resp.Header.Get("Content-Disposition"))
	}
	if !bytes.HasPrefix(body, []byte("%PDF")) {
		t.Error("Expected PDF body")
	}

	resp, body = ts.get(t, "/download_html")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected html download, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "연계 보관성(Chain of Custody)") {
		t.Error("Expected HTML report sections")
	}

	trail, err := database.NewCustodyRepository(ts.db).ListBySHA256(context.Background(), sum)
	if err != nil {
		t.Fatalf("Failed to list custody events: %v", err)
	}
	steps := map[models.CustodyStep]int{}
	for _, e := range trail {
		steps[e.Step]++
	}
	for step, want := range map[models.CustodyStep]int{
		models.StepUpload:   1,
		models.StepHash:     1,
		models.StepAnalysis: 1,
		models.StepReport:   2,
		models.StepArchive:  3,
	} {
		if steps[step] != want {
			t.Errorf("Expected %d %s events, got %d", want, step, steps[step])
		}
	}

	for _, name := range ts.archiver.names() {
		if !strings.HasPrefix(name, "evidence/"+sum+"/") {
			t.Errorf("Unexpected archive object %s", name)
		}
	}

	for _, kind := range []events.Kind{events.KindUploaded, events.KindAnalyzed, events.KindExported} {
		if !ts.publisher.has(kind) {
			t.Errorf("Expected %s event", kind)
		}
	}

	resp, _ = ts.get(t, "/reset")
	expectRedirect(t, resp, "/")
	if n := countFiles(t, ts.stagingDir); n != 0 {
		t.Errorf("Expected staging dir to be empty after reset, got %d", n)
	}
	if n := countFiles(t, ts.publicDir); n != 0 {
		t.Errorf("Expected public dir to be empty after reset, got %d", n)
	}
	if !ts.publisher.has(events.KindDisposed) {
		t.Error("Expected disposed event")
	}

	resp, _ = ts.get(t, "/results")
	expectRedirect(t, resp, "/")
	_, body = ts.get(t, "/")
	if !strings.Contains(string(body), msgNoResult) {
		t.Errorf("Expected %q flash", msgNoResult)
	}
}

func TestUploadWithoutArchive(t *testing.T) {
	ts := setupTestServer(t, nil)
	ts.app.Archiver = archive.NopArchiver{}
	content := []byte("철수: 안녕")

	resp := ts.upload(t, "/analyze_cyberbullying", "file", "chat.txt", content)
	expectRedirect(t, resp, "/results")
	if resp, _ := ts.get(t, "/download_html"); resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected html download, got %d", resp.StatusCode)
	}

	trail, err := database.NewCustodyRepository(ts.db).ListBySHA256(context.Background(), digest(content))
	if err != nil {
		t.Fatalf("Failed to list custody events: %v", err)
	}
	for _, e := range trail {
		if e.Step == models.StepArchive {
			t.Errorf("Expected no archive events, got %+v", e)
		}
	}
	if len(ts.archiver.names()) != 0 {
		t.Error("Expected nothing archived")
	}
}

type failingStorage struct {
	storage.Storage
}

func (failingStorage) SaveFile(file io.Reader, info storage.FileInfo) (*storage.StoredFile, error) {
	return nil, errors.New("disk full")
}

func TestUploadSaveFailure(t *testing.T) {
	ts := setupTestServer(t, nil)
	ts.app.Storage = failingStorage{Storage: ts.app.Storage}

	resp := ts.upload(t, "/analyze_cyberbullying", "file", "chat.txt", []byte("철수: 안녕"))
	expectRedirect(t, resp, "/")

	_, body := ts.get(t, "/")
	if !strings.Contains(string(body), msgSaveFailed) {
		t.Errorf("Expected %q flash", msgSaveFailed)
	}
	if ts.publisher.has(events.KindUploaded) {
		t.Error("Expected no upload event")
	}
}

func TestDeepfakeImageUpload(t *testing.T) {
	ts := setupTestServer(t, nil)
	img := pngBytes(t)

	resp := ts.upload(t, "/analyze_deepfake", "file", "face.png", img)
	expectRedirect(t, resp, "/results")

	_, body := ts.get(t, "/results")
	page := string(body)
	if !strings.Contains(page, "Sightengine API 인증 정보가 설정되지 않았습니다.") {
		t.Error("Expected missing credentials message")
	}
	if !strings.Contains(page, "32x24") {
		t.Error("Expected image resolution on results page")
	}
	if !strings.Contains(page, `src="/uploads/`) {
		t.Fatal("Expected uploaded image to be linked")
	}

	start := strings.Index(page, `src="/uploads/`) + len(`src="`)
	end := strings.Index(page[start:], `"`)
	resp, served := ts.get(t, page[start:start+end])
	if resp.StatusCode != http.StatusOK || !bytes.Equal(served, img) {
		t.Errorf("Expected public copy to be served, got %d", resp.StatusCode)
	}
}

func TestDeepfakeRejectsText(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp := ts.upload(t, "/analyze_deepfake", "file", "notes.txt", []byte("hello"))
	expectRedirect(t, resp, "/results")

	_, body := ts.get(t, "/results")
	if !strings.Contains(string(body), "딥페이크 분석은 이미지 파일만 지원합니다.") {
		t.Error("Expected image-only message")
	}
}

func TestAnalysisErrorDisposesFiles(t *testing.T) {
	ts := setupTestServer(t, failingAnalyzer{})

	resp := ts.upload(t, "/analyze_cyberbullying", "file", "chat.txt", []byte("철수: 안녕"))
	expectRedirect(t, resp, "/")

	_, body := ts.get(t, "/")
	if !strings.Contains(string(body), "cyberbullying 분석 중 오류: vendor exploded") {
		t.Error("Expected analysis error flash")
	}
	if n := countFiles(t, ts.stagingDir); n != 0 {
		t.Errorf("Expected files to be removed, got %d", n)
	}
}

func TestNewUploadReplacesPrevious(t *testing.T) {
	ts := setupTestServer(t, nil)

	ts.upload(t, "/analyze_cyberbullying", "file", "first.txt", []byte("철수: 안녕"))
	ts.upload(t, "/analyze_cyberbullying", "file", "second.txt", []byte("영희: 반가워"))

	if n := countFiles(t, ts.stagingDir); n != 1 {
		t.Errorf("Expected one staged file, got %d", n)
	}
	if n := countFiles(t, ts.publicDir); n != 1 {
		t.Errorf("Expected one public file, got %d", n)
	}
}

func TestDownloadWithoutResult(t *testing.T) {
	ts := setupTestServer(t, nil)

	for _, path := range []string{"/download_pdf", "/download_html"} {
		resp, _ := ts.get(t, path)
		expectRedirect(t, resp, "/")
	}
}

func TestExpireSession(t *testing.T) {
	ts := setupTestServer(t, nil)
	content := []byte("철수: 안녕")

	ts.upload(t, "/analyze_cyberbullying", "file", "chat.txt", content)
	entries, err := os.ReadDir(ts.stagingDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("Expected one staged file, got %v (%v)", entries, err)
	}

	state := models.SessionState{Upload: &models.UploadedFile{
		StoredName: entries[0].Name(),
		SHA256:     digest(content),
	}}
	ts.app.ExpireSession(context.Background(), "expired-session", state)

	if n := countFiles(t, ts.stagingDir); n != 0 {
		t.Errorf("Expected expired session files to be deleted, got %d", n)
	}
	trail, err := database.NewCustodyRepository(ts.db).ListBySession(context.Background(), "expired-session")
	if err != nil {
		t.Fatalf("Failed to list custody events: %v", err)
	}
	if len(trail) != 1 || trail[0].Step != models.StepDisposal || trail[0].Actor != actorSweeper {
		t.Errorf("Expected one sweeper disposal event, got %+v", trail)
	}
}

func TestPercent(t *testing.T) {
	v := 0.8734
	if got := percent(&v); got != "87.3%" {
		t.Errorf("percent() = %q", got)
	}
	if got := percent(nil); got != "N/A" {
		t.Errorf("percent(nil) = %q", got)
	}
}
