package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kdimtricp/ansimtalk/internal/models"
)

type CustodyRepository struct {
	db *DB
}

func NewCustodyRepository(db *DB) *CustodyRepository {
	return &CustodyRepository{db: db}
}

func (r *CustodyRepository) Create(ctx context.Context, event *models.CustodyEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	event.CreatedAt = event.CreatedAt.UTC()

	if result := r.db.GORM().WithContext(ctx).Create(event); result.Error != nil {
		return fmt.Errorf("failed to insert custody event: %w", result.Error)
	}
	return nil
}

func (r *CustodyRepository) ListBySession(ctx context.Context, sessionID string) ([]models.CustodyEvent, error) {
	var events []models.CustodyEvent
	result := r.db.GORM().WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&events)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list custody events: %w", result.Error)
	}
	return events, nil
}

func (r *CustodyRepository) ListBySHA256(ctx context.Context, sha string) ([]models.CustodyEvent, error) {
	var events []models.CustodyEvent
	result := r.db.GORM().WithContext(ctx).
		Where("sha256 = ?", sha).
		Order("created_at ASC").
		Find(&events)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list custody events: %w", result.Error)
	}
	return events, nil
}
