// Package custody records the chain of custody for each piece of evidence.
package custody

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/kdimtricp/ansimtalk/internal/config"
	"github.com/kdimtricp/ansimtalk/internal/database"
	"github.com/kdimtricp/ansimtalk/internal/models"
)

type Ledger interface {
	Record(ctx context.Context, event *models.CustodyEvent) error
	List(ctx context.Context, sessionID string) ([]models.CustodyEvent, error)
}

type SQLLedger struct {
	repo *database.CustodyRepository
}

func NewSQLLedger(repo *database.CustodyRepository) *SQLLedger {
	return &SQLLedger{repo: repo}
}

func (l *SQLLedger) Record(ctx context.Context, event *models.CustodyEvent) error {
	return l.repo.Create(ctx, event)
}

func (l *SQLLedger) List(ctx context.Context, sessionID string) ([]models.CustodyEvent, error) {
	return l.repo.ListBySession(ctx, sessionID)
}

// New picks the ledger backend named in cfg. The returned closer releases
// backend clients and is never nil.
func New(ctx context.Context, cfg config.CustodyConfig, db *database.DB) (Ledger, io.Closer, error) {
	switch cfg.Backend {
	case "", "sql":
		return NewSQLLedger(database.NewCustodyRepository(db)), nopCloser{}, nil
	case "firestore":
		l, err := NewFirestoreLedger(ctx, cfg.ProjectID, cfg.Collection)
		if err != nil {
			return nil, nil, err
		}
		return l, l, nil
	default:
		return nil, nil, fmt.Errorf("unsupported custody backend: %s", cfg.Backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Recorder writes custody events without failing the caller. A lost event
// is logged.
type Recorder struct {
	ledger Ledger
	logger *slog.Logger
}

func NewRecorder(ledger Ledger, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{ledger: ledger, logger: logger}
}

func (r *Recorder) Record(ctx context.Context, sessionID, sha256 string, step models.CustodyStep, actor, detail string) {
	event := &models.CustodyEvent{
		SessionID: sessionID,
		SHA256:    sha256,
		Step:      step,
		Actor:     actor,
		Detail:    detail,
	}
	if err := r.ledger.Record(ctx, event); err != nil {
		r.logger.Error("Failed to record custody event", "sessionId", sessionID, "step", step, "error", err)
	}
}

// Trail returns the session's events oldest first, or nil when the ledger
// cannot be read.
func (r *Recorder) Trail(ctx context.Context, sessionID string) []models.CustodyEvent {
	events, err := r.ledger.List(ctx, sessionID)
	if err != nil {
		r.logger.Error("Failed to read custody trail", "sessionId", sessionID, "error", err)
		return nil
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
	return events
}
