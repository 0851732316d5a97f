// Package sessionctx carries the authenticated session through a request
// context so the data-access layer can decide what a caller may read.
package sessionctx

import (
	"context"

	"github.com/dmitrijs2005/stealthdetect/internal/models"
)

type ctxKey struct{}

// WithSession returns a copy of ctx tagged with s.
func WithSession(ctx context.Context, s *models.Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session tagged on ctx, if any.
func FromContext(ctx context.Context) (*models.Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*models.Session)
	return s, ok && s != nil
}

// RealActive reports whether ctx carries an open real-mode session.
func RealActive(ctx context.Context) bool {
	s, ok := FromContext(ctx)
	return ok && s.Active() && s.Mode == models.ModeReal
}
