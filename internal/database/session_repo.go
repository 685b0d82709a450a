package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kdimtricp/ansimtalk/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionRepository struct {
	db *DB
}

func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	result := r.db.GORM().WithContext(ctx).First(&session, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", result.Error)
	}
	return &session, nil
}

// Save inserts the session or replaces its state and expiry.
func (r *SessionRepository) Save(ctx context.Context, session *models.Session) error {
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	session.ExpiresAt = session.ExpiresAt.UTC()
	if len(session.State) == 0 {
		session.State = []byte("{}")
	}

	result := r.db.GORM().WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "updated_at", "expires_at"}),
	}).Create(session)
	if result.Error != nil {
		return fmt.Errorf("failed to save session: %w", result.Error)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	result := r.db.GORM().WithContext(ctx).Delete(&models.Session{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete session: %w", result.Error)
	}
	return nil
}

// ListExpired returns up to limit sessions whose expiry is at or before now.
func (r *SessionRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Session, error) {
	var sessions []models.Session
	result := r.db.GORM().WithContext(ctx).
		Where("expires_at <= ?", now.UTC()).
		Order("expires_at ASC").
		Limit(limit).
		Find(&sessions)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list expired sessions: %w", result.Error)
	}
	return sessions, nil
}
