package scans

import (
	"context"

	"github.com/dmitrijs2005/stealthdetect/internal/common"
	"github.com/dmitrijs2005/stealthdetect/internal/models"
	"github.com/dmitrijs2005/stealthdetect/internal/sessionctx"
)

// Guarded wraps a Repository so that every call requires an open real-mode
// session on the context. Calls without one, including untagged contexts,
// fail with common.ErrDecoyIsolation before the database is touched.
func Guarded(inner Repository) Repository {
	return &guarded{inner: inner}
}

type guarded struct {
	inner Repository
}

func check(ctx context.Context) error {
	if !sessionctx.RealActive(ctx) {
		return common.ErrDecoyIsolation
	}
	return nil
}

// checkUser additionally pins user-scoped calls to the session owner.
func checkUser(ctx context.Context, userID string) error {
	if err := check(ctx); err != nil {
		return err
	}
	s, _ := sessionctx.FromContext(ctx)
	if s.UserID != userID {
		return common.ErrDecoyIsolation
	}
	return nil
}

func (g *guarded) SaveScan(ctx context.Context, s *models.ScanSession) error {
	if err := checkUser(ctx, s.UserID); err != nil {
		return err
	}
	return g.inner.SaveScan(ctx, s)
}

func (g *guarded) ListScans(ctx context.Context, userID string) ([]models.ScanSession, error) {
	if err := checkUser(ctx, userID); err != nil {
		return nil, err
	}
	return g.inner.ListScans(ctx, userID)
}

func (g *guarded) GetScan(ctx context.Context, id string) (*models.ScanSession, error) {
	if err := check(ctx); err != nil {
		return nil, err
	}
	s, err := g.inner.GetScan(ctx, id)
	if err != nil {
		return nil, err
	}
	if owner, _ := sessionctx.FromContext(ctx); owner.UserID != s.UserID {
		return nil, common.ErrorNotFound
	}
	return s, nil
}

func (g *guarded) SaveReport(ctx context.Context, r *models.Report) error {
	if err := check(ctx); err != nil {
		return err
	}
	return g.inner.SaveReport(ctx, r)
}

func (g *guarded) ReportsByScan(ctx context.Context, scanID string) ([]models.Report, error) {
	if err := check(ctx); err != nil {
		return nil, err
	}
	return g.inner.ReportsByScan(ctx, scanID)
}

func (g *guarded) SaveMatch(ctx context.Context, m *models.IOCMatch) error {
	if err := check(ctx); err != nil {
		return err
	}
	return g.inner.SaveMatch(ctx, m)
}

func (g *guarded) MatchesByScan(ctx context.Context, scanID string) ([]models.IOCMatch, error) {
	if err := check(ctx); err != nil {
		return nil, err
	}
	return g.inner.MatchesByScan(ctx, scanID)
}

func (g *guarded) SaveSnapshot(ctx context.Context, s *models.DeviceSnapshot) error {
	if err := check(ctx); err != nil {
		return err
	}
	return g.inner.SaveSnapshot(ctx, s)
}

func (g *guarded) SnapshotsByScan(ctx context.Context, scanID string) ([]models.DeviceSnapshot, error) {
	if err := check(ctx); err != nil {
		return nil, err
	}
	return g.inner.SnapshotsByScan(ctx, scanID)
}

func (g *guarded) DeleteByUser(ctx context.Context, userID string) error {
	if err := checkUser(ctx, userID); err != nil {
		return err
	}
	return g.inner.DeleteByUser(ctx, userID)
}
