package credentials

import (
	"context"
	"time"

	"github.com/dmitrijs2005/stealthdetect/internal/models"
)

// Repository persists PIN credentials, one row per user.
type Repository interface {
	// Get returns the credential for userID or common.ErrorNotFound.
	Get(ctx context.Context, userID string) (*models.Credential, error)

	// Upsert inserts the credential or replaces salt, hashes and params of
	// an existing one. CreatedAt is kept on update.
	Upsert(ctx context.Context, c *models.Credential) error

	// TouchLastAuth records a successful unlock.
	TouchLastAuth(ctx context.Context, userID string, at time.Time) error

	// Delete removes the credential. Deleting an absent row is not an error.
	Delete(ctx context.Context, userID string) error
}
