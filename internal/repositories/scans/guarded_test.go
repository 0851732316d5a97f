package scans

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/stealthdetect/internal/common"
	"github.com/dmitrijs2005/stealthdetect/internal/models"
	"github.com/dmitrijs2005/stealthdetect/internal/sessionctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// panicRepo fails the test if the guard lets a call through.
type panicRepo struct{ Repository }

func TestGuarded_RejectsWithoutRealSession(t *testing.T) {
	g := Guarded(panicRepo{})
	now := time.Now()

	contexts := map[string]context.Context{
		"untagged": context.Background(),
		"duress":   sessionctx.WithSession(context.Background(), &models.Session{ID: "d", UserID: "u1", Mode: models.ModeDuress}),
		"closed":   sessionctx.WithSession(context.Background(), &models.Session{ID: "c", UserID: "u1", Mode: models.ModeReal, ClosedAt: &now}),
	}

	for name, ctx := range contexts {
		t.Run(name, func(t *testing.T) {
			_, err := g.ListScans(ctx, "u1")
			assert.ErrorIs(t, err, common.ErrDecoyIsolation)
			_, err = g.GetScan(ctx, "sc1")
			assert.ErrorIs(t, err, common.ErrDecoyIsolation)
			_, err = g.ReportsByScan(ctx, "sc1")
			assert.ErrorIs(t, err, common.ErrDecoyIsolation)
			_, err = g.MatchesByScan(ctx, "sc1")
			assert.ErrorIs(t, err, common.ErrDecoyIsolation)
			_, err = g.SnapshotsByScan(ctx, "sc1")
			assert.ErrorIs(t, err, common.ErrDecoyIsolation)
			assert.ErrorIs(t, g.SaveScan(ctx, &models.ScanSession{UserID: "u1"}), common.ErrDecoyIsolation)
			assert.ErrorIs(t, g.SaveReport(ctx, &models.Report{}), common.ErrDecoyIsolation)
			assert.ErrorIs(t, g.SaveMatch(ctx, &models.IOCMatch{}), common.ErrDecoyIsolation)
			assert.ErrorIs(t, g.SaveSnapshot(ctx, &models.DeviceSnapshot{}), common.ErrDecoyIsolation)
			assert.ErrorIs(t, g.DeleteByUser(ctx, "u1"), common.ErrDecoyIsolation)
		})
	}
}

func TestGuarded_AllowsRealSessionOwner(t *testing.T) {
	inner := NewSQLiteRepository(setupDB(t))
	seedScan(t, inner, "sc1", "u1", t0)
	seedScan(t, inner, "sc2", "u2", t0)

	g := Guarded(inner)
	ctx := sessionctx.WithSession(context.Background(), &models.Session{ID: "s", UserID: "u1", Mode: models.ModeReal})

	list, err := g.ListScans(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = g.ListScans(ctx, "u2")
	require.ErrorIs(t, err, common.ErrDecoyIsolation)

	got, err := g.GetScan(ctx, "sc1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	_, err = g.GetScan(ctx, "sc2")
	require.ErrorIs(t, err, common.ErrorNotFound)
}
