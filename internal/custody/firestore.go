package custody

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"github.com/kdimtricp/ansimtalk/internal/models"
)

const defaultCollection = "custody_events"

// FirestoreLedger stores one document per custody event, keyed by the event id.
type FirestoreLedger struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreLedger(ctx context.Context, projectID, collection string) (*FirestoreLedger, error) {
	if projectID == "" {
		return nil, errors.New("projectID must be provided to create a firestore client")
	}
	if collection == "" {
		collection = defaultCollection
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return &FirestoreLedger{client: client, collection: collection}, nil
}

func (l *FirestoreLedger) Record(ctx context.Context, event *models.CustodyEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	if _, err := l.client.Collection(l.collection).Doc(event.ID).Create(ctx, event); err != nil {
		return fmt.Errorf("failed to write custody event %s: %w", event.ID, err)
	}
	return nil
}

func (l *FirestoreLedger) List(ctx context.Context, sessionID string) ([]models.CustodyEvent, error) {
	docs, err := l.client.Collection(l.collection).Where("sessionId", "==", sessionID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query custody events: %w", err)
	}

	events := make([]models.CustodyEvent, 0, len(docs))
	for _, doc := range docs {
		var e models.CustodyEvent
		if err := doc.DataTo(&e); err != nil {
			return nil, fmt.Errorf("failed to decode custody event %s: %w", doc.Ref.ID, err)
		}
		events = append(events, e)
	}

	// no OrderBy: it would need a composite index on (sessionId, createdAt)
	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
	return events, nil
}

func (l *FirestoreLedger) Close() error {
	return l.client.Close()
}
