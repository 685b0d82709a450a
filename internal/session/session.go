// Package session keeps per-browser analysis state in the database behind a
// signed cookie.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"gorm.io/datatypes"

	"github.com/kdimtricp/ansimtalk/internal/database"
	"github.com/kdimtricp/ansimtalk/internal/models"
)

const CookieName = "ansimtalk_session"

const sweepBatch = 100

// Session is the state of one browser session for the duration of a request.
type Session struct {
	ID    string
	State models.SessionState
	isNew bool
}

func (s *Session) IsNew() bool {
	return s.isNew
}

func (s *Session) AddFlash(msg string) {
	s.State.Flashes = append(s.State.Flashes, msg)
}

// PopFlashes returns and clears the pending flash messages.
func (s *Session) PopFlashes() []string {
	flashes := s.State.Flashes
	s.State.Flashes = nil
	return flashes
}

// Reset drops the upload and result but keeps pending flashes.
func (s *Session) Reset() {
	s.State.Upload = nil
	s.State.Result = nil
}

type Manager struct {
	repo   *database.SessionRepository
	codec  *securecookie.SecureCookie
	maxAge time.Duration
	secure bool
	logger *slog.Logger
	now    func() time.Time
}

type Options struct {
	SecretKey string
	MaxAge    time.Duration
	Secure    bool
	Logger    *slog.Logger
}

func NewManager(repo *database.SessionRepository, opts Options) *Manager {
	if opts.MaxAge <= 0 {
		opts.MaxAge = 24 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	hashKey := sha256.Sum256([]byte(opts.SecretKey))
	codec := securecookie.New(hashKey[:], nil)
	codec.MaxAge(int(opts.MaxAge.Seconds()))

	return &Manager{
		repo:   repo,
		codec:  codec,
		maxAge: opts.MaxAge,
		secure: opts.Secure,
		logger: opts.Logger,
		now:    time.Now,
	}
}

// Load returns the session named by the request cookie. A missing, forged
// or expired cookie yields a fresh empty session.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return m.newSession(), nil
	}

	var id string
	if err := m.codec.Decode(CookieName, cookie.Value, &id); err != nil {
		m.logger.Warn("Rejected session cookie", "error", err)
		return m.newSession(), nil
	}

	row, err := m.repo.Get(r.Context(), id)
	if errors.Is(err, database.ErrSessionNotFound) {
		return m.newSession(), nil
	}
	if err != nil {
		return nil, err
	}
	if !row.ExpiresAt.After(m.now()) {
		return m.newSession(), nil
	}

	s := &Session{ID: row.ID}
	if len(row.State) > 0 {
		if err := json.Unmarshal(row.State, &s.State); err != nil {
			return nil, fmt.Errorf("failed to decode session %s: %w", row.ID, err)
		}
	}
	return s, nil
}

// Save persists the session state, extends its expiry and refreshes the
// cookie.
func (m *Manager) Save(w http.ResponseWriter, r *http.Request, s *Session) error {
	state, err := json.Marshal(s.State)
	if err != nil {
		return fmt.Errorf("failed to encode session state: %w", err)
	}

	row := &models.Session{
		ID:        s.ID,
		State:     datatypes.JSON(state),
		ExpiresAt: m.now().Add(m.maxAge),
	}
	if err := m.repo.Save(r.Context(), row); err != nil {
		return err
	}

	value, err := m.codec.Encode(CookieName, s.ID)
	if err != nil {
		return fmt.Errorf("failed to sign session cookie: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(m.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	s.isNew = false
	return nil
}

func (m *Manager) newSession() *Session {
	return &Session{ID: uuid.New().String(), isNew: true}
}

// ExpireFunc receives the last state of a session being swept.
type ExpireFunc func(ctx context.Context, sessionID string, state models.SessionState)

// Sweep deletes expired sessions, handing each state to onExpire first so
// its files can be disposed of. It returns the number of sessions removed.
func (m *Manager) Sweep(ctx context.Context, onExpire ExpireFunc) (int, error) {
	removed := 0
	for {
		expired, err := m.repo.ListExpired(ctx, m.now(), sweepBatch)
		if err != nil {
			return removed, err
		}
		if len(expired) == 0 {
			return removed, nil
		}

		for _, row := range expired {
			var state models.SessionState
			if err := json.Unmarshal(row.State, &state); err != nil {
				m.logger.Warn("Dropping undecodable session state", "sessionId", row.ID, "error", err)
			} else if onExpire != nil {
				onExpire(ctx, row.ID, state)
			}

			if err := m.repo.Delete(ctx, row.ID); err != nil {
				return removed, err
			}
			removed++
		}

		if len(expired) < sweepBatch {
			return removed, nil
		}
	}
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration, onExpire ExpireFunc) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.Sweep(ctx, onExpire)
			if err != nil {
				m.logger.Error("Session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				m.logger.Info("Expired sessions removed", "count", n)
			}
		}
	}
}
