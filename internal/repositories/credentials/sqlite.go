// Package credentials stores salted PIN hashes in the local SQLite database.
package credentials

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

// SQLiteRepository implements Repository over a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, userID string) (*models.Credential, error) {
	query := `SELECT user_id, salt, real_hash, duress_hash,
			hash_time, hash_memory, hash_threads, hash_keylen,
			created_at, updated_at, last_auth_at
		FROM credentials WHERE user_id = ?`

	var (
		c                    models.Credential
		createdAt, updatedAt string
		lastAuth             sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&c.UserID, &c.Salt, &c.RealHash, &c.DuressHash,
		&c.Params.Time, &c.Params.MemoryKiB, &c.Params.Threads, &c.Params.KeyLen,
		&createdAt, &updatedAt, &lastAuth)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	if c.CreatedAt, err = dbx.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	if c.UpdatedAt, err = dbx.ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	if c.LastAuthAt, err = dbx.ParseNullTime(lastAuth); err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	return &c, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, c *models.Credential) error {
	query := `INSERT INTO credentials (user_id, salt, real_hash, duress_hash,
			hash_time, hash_memory, hash_threads, hash_keylen, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET salt = excluded.salt,
			real_hash = excluded.real_hash,
			duress_hash = excluded.duress_hash,
			hash_time = excluded.hash_time,
			hash_memory = excluded.hash_memory,
			hash_threads = excluded.hash_threads,
			hash_keylen = excluded.hash_keylen,
			updated_at = excluded.updated_at`

	var duress any
	if c.HasDuress() {
		duress = c.DuressHash
	}
	_, err := r.db.ExecContext(ctx, query,
		c.UserID, c.Salt, c.RealHash, duress,
		c.Params.Time, c.Params.MemoryKiB, c.Params.Threads, c.Params.KeyLen,
		dbx.FormatTime(c.CreatedAt), dbx.FormatTime(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert credential: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) TouchLastAuth(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE credentials SET last_auth_at = ? WHERE user_id = ?`,
		dbx.FormatTime(at), userID)
	if err != nil {
		return fmt.Errorf("failed to update last auth: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}
