package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/stealthdetect/internal/models"
)

// Repository persists authenticated sessions.
//
// FindActive returns (nil, nil) when the user has no open session.
// Get returns common.ErrorNotFound for an unknown id.
type Repository interface {
	Insert(ctx context.Context, s *models.Session) error
	UpdateClose(ctx context.Context, id string, closedAt time.Time) error
	FindActive(ctx context.Context, userID string) (*models.Session, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	ListByUser(ctx context.Context, userID string) ([]models.Session, error)
	CloseAllForUser(ctx context.Context, userID string, closedAt time.Time) (int64, error)
	DeleteByUser(ctx context.Context, userID string) error
}
