package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kdimtricp/ansimtalk/internal/ai"
	"github.com/kdimtricp/ansimtalk/internal/models"
	"github.com/kdimtricp/ansimtalk/internal/storage"
	"github.com/kdimtricp/ansimtalk/internal/textproc"
)

const (
	msgDeepfakeImageOnly   = "딥페이크 분석은 이미지 파일만 지원합니다."
	msgCyberbullyingFormat = "사이버폭력 분석은 텍스트 또는 이미지 파일만 지원합니다."
	msgUnknownType         = "알 수 없는 분석 타입입니다."

	msgNoExtractedText = "[이미지에서 텍스트를 추출할 수 없습니다.]"
	msgOCRFallbackText = "이미지에서 텍스트를 추출할 수 없어 기본 분석을 제공합니다."

	msgSightengineNotConfigured = "Sightengine API 인증 정보가 설정되지 않았습니다."
)

var (
	ErrHashMismatch = errors.New("evidence file changed since upload")
	ErrNotUTF8      = errors.New("text file is not valid UTF-8")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// EvidenceOpener opens a staged evidence file by its stored name.
type EvidenceOpener interface {
	OpenFile(name string) (io.ReadSeekCloser, error)
}

type Service struct {
	evidence     EvidenceOpener
	deepfake     ai.DeepfakeDetector
	ocr          ai.TextExtractor
	conversation ai.ConversationAnalyzer
	logger       *slog.Logger
	now          func() time.Time
}

// NewService builds the orchestrator from whichever vendor clients are
// available. Nil clients make the matching step fall back. Evidence is read
// through evidence by stored name.
func NewService(clients *ai.Clients, evidence EvidenceOpener, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{evidence: evidence, logger: logger, now: time.Now}
	if clients != nil {
		s.deepfake = clients.Deepfake
		s.ocr = clients.OCR
		s.conversation = clients.Conversation
	}
	return s
}

// Analyze runs one analysis of the staged evidence file. Unsupported
// type/format combinations are reported in the result's Error field; a
// returned error means the file itself could not be processed.
func (s *Service) Analyze(ctx context.Context, file *models.UploadedFile, typ models.AnalysisType) (*models.AnalysisResult, error) {
	logger := s.logger.With("file", file.StoredName, "analysisType", typ)

	data, sum, err := s.readEvidence(file)
	if err != nil {
		return nil, err
	}
	if file.SHA256 != "" && file.SHA256 != sum {
		return nil, fmt.Errorf("%s: %w", file.StoredName, ErrHashMismatch)
	}

	result := &models.AnalysisResult{
		ID:   uuid.New().String(),
		Type: typ,
		FileInfo: models.FileInfo{
			Filename:  file.StoredName,
			Type:      file.Extension,
			SizeBytes: int64(len(data)),
			SHA256:    sum,
		},
		AnalyzedAt: s.now(),
		SHA256:     sum,
	}

	switch typ {
	case models.AnalysisDeepfake:
		if !file.IsImage() {
			result.Error = msgDeepfakeImageOnly
			break
		}
		s.analyzeDeepfake(ctx, file, data, result)

	case models.AnalysisCyberbullying:
		switch {
		case file.IsImage():
			s.analyzeChatImage(ctx, file, data, result)
		case strings.EqualFold(file.Extension, "txt"):
			if err := s.analyzeTextFile(ctx, file, data, result); err != nil {
				return nil, err
			}
		default:
			result.Error = msgCyberbullyingFormat
		}

	default:
		result.Error = msgUnknownType
	}

	logger.Info("Analysis finished",
		"sha256", sum,
		"error", result.Error,
		"degraded", result.Cyberbullying != nil && result.Cyberbullying.Degraded,
	)
	return result, nil
}

// readEvidence hashes the staged file and returns its content.
func (s *Service) readEvidence(file *models.UploadedFile) ([]byte, string, error) {
	f, err := s.evidence.OpenFile(file.StoredName)
	if err != nil {
		return nil, "", fmt.Errorf("open evidence file: %w", err)
	}
	defer f.Close()

	sum, err := storage.SHA256Reader(f)
	if err != nil {
		return nil, "", fmt.Errorf("hash evidence file: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, "", fmt.Errorf("rewind evidence file: %w", err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", fmt.Errorf("read evidence file: %w", err)
	}
	return data, sum, nil
}

func (s *Service) analyzeDeepfake(ctx context.Context, file *models.UploadedFile, image []byte, result *models.AnalysisResult) {
	var deepfake *models.DeepfakeAnalysis
	var text string

	var g errgroup.Group
	g.Go(func() error {
		deepfake = s.checkDeepfake(ctx, image, file.SafeName)
		return nil
	})
	g.Go(func() error {
		t, err := s.extractText(ctx, image)
		if err != nil {
			s.logger.Info("No text recorded for deepfake evidence", "file", file.StoredName, "error", err)
			return nil
		}
		text = t
		return nil
	})
	g.Wait()

	result.Deepfake = deepfake
	result.ExtractedText = text
}

func (s *Service) checkDeepfake(ctx context.Context, image []byte, filename string) *models.DeepfakeAnalysis {
	if s.deepfake == nil {
		return &models.DeepfakeAnalysis{Error: msgSightengineNotConfigured}
	}

	res, err := s.deepfake.Check(ctx, image, filename)
	if err != nil {
		s.logger.Error("Deepfake check failed", "error", err)
		return &models.DeepfakeAnalysis{Error: err.Error()}
	}

	return &models.DeepfakeAnalysis{
		Probability: res.Deepfake,
		Offensive:   res.Offensive,
		NudityRaw:   res.Nudity,
		Weapon:      res.Weapon,
		Alcohol:     res.Alcohol,
		Drugs:       res.Drugs,
		RequestID:   res.RequestID,
		Raw:         res.Raw,
	}
}

func (s *Service) extractText(ctx context.Context, image []byte) (string, error) {
	if s.ocr == nil {
		return "", ai.ErrNotConfigured
	}
	text, err := s.ocr.ExtractText(ctx, image)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ai.ErrNoText
	}
	return text, nil
}

func (s *Service) analyzeChatImage(ctx context.Context, file *models.UploadedFile, image []byte, result *models.AnalysisResult) {
	text, err := s.extractText(ctx, image)
	if err != nil {
		s.logger.Warn("OCR failed, using keyword analysis", "file", file.StoredName, "error", err)
		result.ExtractedText = msgNoExtractedText
		result.Cyberbullying = KeywordAnalysis(msgOCRFallbackText)
		return
	}

	result.ExtractedText = text
	result.Cyberbullying = s.analyzeConversation(ctx, textproc.NormalizeTranscript(text))
}

func (s *Service) analyzeTextFile(ctx context.Context, file *models.UploadedFile, raw []byte, result *models.AnalysisResult) error {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if !utf8.Valid(raw) {
		return fmt.Errorf("%s: %w", file.StoredName, ErrNotUTF8)
	}

	text := string(raw)
	result.ExtractedText = text
	result.Cyberbullying = s.analyzeConversation(ctx, textproc.NormalizeTranscript(text))
	return nil
}

// analyzeConversation asks the conversation analyzer for the risk table and
// falls back to keyword scoring whenever no usable table comes back.
func (s *Service) analyzeConversation(ctx context.Context, transcript string) *models.CyberbullyingAnalysis {
	if s.conversation == nil {
		return KeywordAnalysis(transcript)
	}

	raw, err := s.conversation.AnalyzeConversation(ctx, transcript)
	if err != nil {
		s.logger.Error("Conversation analysis failed, using keyword analysis", "error", err)
		return KeywordAnalysis(transcript)
	}

	table, summary := textproc.SplitTableAndSummary(raw)
	if table == "" {
		s.logger.Warn("Conversation analysis returned no table, using keyword analysis")
		return KeywordAnalysis(transcript)
	}

	risk, _ := textproc.ExtractRiskLine(summary)
	return &models.CyberbullyingAnalysis{
		TableMarkdown: table,
		TableHTML:     textproc.MarkdownTableToHTML(table),
		Summary:       summary,
		RiskLine:      risk,
	}
}
