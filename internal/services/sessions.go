package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/stealthdetect/internal/common"
	"github.com/dmitrijs2005/stealthdetect/internal/dbx"
	"github.com/dmitrijs2005/stealthdetect/internal/logging"
	"github.com/dmitrijs2005/stealthdetect/internal/models"
	"github.com/dmitrijs2005/stealthdetect/internal/repositories/repomanager"
	"github.com/google/uuid"
)

// SessionManager owns the session lifecycle. A user has at most one active
// session; opening a new one closes the previous one.
//
// Open and Close run under a per-user mutex and inside a transaction. The
// partial unique index on sessions backs the same invariant in the schema.
type SessionManager struct {
	db    *sql.DB
	rm    repomanager.RepositoryManager
	log   logging.Logger
	locks *userLocks
	now   func() time.Time
	newID func() string
}

func NewSessionManager(db *sql.DB, rm repomanager.RepositoryManager, log logging.Logger) *SessionManager {
	return &SessionManager{
		db:    db,
		rm:    rm,
		log:   log,
		locks: newUserLocks(),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Open starts a session for userID in the given mode.
func (m *SessionManager) Open(ctx context.Context, userID string, mode models.Mode) (*models.Session, error) {
	unlock := m.locks.lock(userID)
	defer unlock()

	s := &models.Session{
		ID:       m.newID(),
		UserID:   userID,
		Mode:     mode,
		OpenedAt: m.now().UTC(),
	}

	err := dbx.WithImmediateTx(ctx, m.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := m.rm.Sessions(tx)
		prev, err := repo.FindActive(ctx, userID)
		if err != nil {
			return err
		}
		if prev != nil {
			if err := repo.UpdateClose(ctx, prev.ID, s.OpenedAt); err != nil {
				return err
			}
		}
		return repo.Insert(ctx, s)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	m.log.Info(ctx, "session opened", "user_id", userID, "session_id", s.ID)
	return s, nil
}

// Close ends the session. Closing a closed session is a no-op; an unknown
// id yields common.ErrSessionNotFound.
func (m *SessionManager) Close(ctx context.Context, sessionID string) error {
	s, err := m.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if !s.Active() {
		return nil
	}

	unlock := m.locks.lock(s.UserID)
	defer unlock()

	if err := m.rm.Sessions(m.db).UpdateClose(ctx, sessionID, m.now().UTC()); err != nil {
		return err
	}
	m.log.Info(ctx, "session closed", "user_id", s.UserID, "session_id", sessionID)
	return nil
}

// GetActive returns the user's open session, or nil when there is none.
func (m *SessionManager) GetActive(ctx context.Context, userID string) (*models.Session, error) {
	unlock := m.locks.lock(userID)
	defer unlock()

	return m.rm.Sessions(m.db).FindActive(ctx, userID)
}

// IsDuress reports whether the session was unlocked with the duress PIN.
// It answers for closed sessions too.
func (m *SessionManager) IsDuress(ctx context.Context, sessionID string) (bool, error) {
	s, err := m.Get(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return s.IsDuress(), nil
}

// Get loads a session by id.
func (m *SessionManager) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	s, err := m.rm.Sessions(m.db).Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrSessionNotFound
		}
		return nil, err
	}
	return s, nil
}

// History lists every session of the user, newest first.
func (m *SessionManager) History(ctx context.Context, userID string) ([]models.Session, error) {
	return m.rm.Sessions(m.db).ListByUser(ctx, userID)
}

// CloseAll closes every open session of the user and returns the count.
func (m *SessionManager) CloseAll(ctx context.Context, userID string) (int64, error) {
	unlock := m.locks.lock(userID)
	defer unlock()

	n, err := m.rm.Sessions(m.db).CloseAllForUser(ctx, userID, m.now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		m.log.Info(ctx, "sessions closed", "user_id", userID, "count", n)
	}
	return n, nil
}
