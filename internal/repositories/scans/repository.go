package scans

import (
	"context"

	"github.com/dmitrijs2005/stealthdetect/internal/models"
)

// Repository persists scan sessions and everything attached to them.
// GetScan returns common.ErrorNotFound for an unknown id.
type Repository interface {
	SaveScan(ctx context.Context, s *models.ScanSession) error
	ListScans(ctx context.Context, userID string) ([]models.ScanSession, error)
	GetScan(ctx context.Context, id string) (*models.ScanSession, error)

	SaveReport(ctx context.Context, r *models.Report) error
	ReportsByScan(ctx context.Context, scanID string) ([]models.Report, error)

	SaveMatch(ctx context.Context, m *models.IOCMatch) error
	MatchesByScan(ctx context.Context, scanID string) ([]models.IOCMatch, error)

	SaveSnapshot(ctx context.Context, s *models.DeviceSnapshot) error
	SnapshotsByScan(ctx context.Context, scanID string) ([]models.DeviceSnapshot, error)

	DeleteByUser(ctx context.Context, userID string) error
}
