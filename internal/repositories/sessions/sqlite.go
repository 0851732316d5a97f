// Package sessions stores authenticated sessions in the local SQLite database.
package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/stealthdetect/internal/common"
	"github.com/dmitrijs2005/stealthdetect/internal/dbx"
	"github.com/dmitrijs2005/stealthdetect/internal/models"
)

const selectColumns = `SELECT id, user_id, mode, opened_at, closed_at FROM sessions`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		s        models.Session
		mode     string
		openedAt string
		closedAt sql.NullString
	)
	if err := row.Scan(&s.ID, &s.UserID, &mode, &openedAt, &closedAt); err != nil {
		return nil, err
	}

	var err error
	if s.Mode, err = models.ParseMode(mode); err != nil {
		return nil, err
	}
	if s.OpenedAt, err = dbx.ParseTime(openedAt); err != nil {
		return nil, err
	}
	if s.ClosedAt, err = dbx.ParseNullTime(closedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, s *models.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, mode, opened_at, closed_at) VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.UserID, string(s.Mode), dbx.FormatTime(s.OpenedAt), dbx.NullTime(s.ClosedAt))
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// UpdateClose stamps closed_at on an open session. Closing an already closed
// session leaves the original timestamp in place.
func (r *SQLiteRepository) UpdateClose(ctx context.Context, id string, closedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET closed_at = ? WHERE id = ? AND closed_at IS NULL`,
		dbx.FormatTime(closedAt), id)
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) FindActive(ctx context.Context, userID string) (*models.Session, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE user_id = ? AND closed_at IS NULL`, userID)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active session: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// ListByUser returns the user's sessions, newest first.
func (r *SQLiteRepository) ListByUser(ctx context.Context, userID string) ([]models.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		selectColumns+` WHERE user_id = ? ORDER BY opened_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var result []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	return result, nil
}

// CloseAllForUser closes every open session of the user and reports how many
// rows changed.
func (r *SQLiteRepository) CloseAllForUser(ctx context.Context, userID string, closedAt time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET closed_at = ? WHERE user_id = ? AND closed_at IS NULL`,
		dbx.FormatTime(closedAt), userID)
	if err != nil {
		return 0, fmt.Errorf("failed to close sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to close sessions: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	return nil
}
