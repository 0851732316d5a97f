package sessionctx

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/stealthdetect/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	s := &models.Session{ID: "s1", Mode: models.ModeReal}
	got, ok := FromContext(WithSession(context.Background(), s))
	require.True(t, ok)
	assert.Same(t, s, got)

	_, ok = FromContext(WithSession(context.Background(), nil))
	assert.False(t, ok)
}

func TestRealActive(t *testing.T) {
	ctx := context.Background()
	assert.False(t, RealActive(ctx))

	realSession := &models.Session{ID: "s1", Mode: models.ModeReal}
	assert.True(t, RealActive(WithSession(ctx, realSession)))

	duress := &models.Session{ID: "s2", Mode: models.ModeDuress}
	assert.False(t, RealActive(WithSession(ctx, duress)))

	now := time.Now()
	closed := &models.Session{ID: "s3", Mode: models.ModeReal, ClosedAt: &now}
	assert.False(t, RealActive(WithSession(ctx, closed)))
}
