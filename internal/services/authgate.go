package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/stealthdetect/internal/common"
	"github.com/dmitrijs2005/stealthdetect/internal/cryptox"
	"github.com/dmitrijs2005/stealthdetect/internal/logging"
	"github.com/dmitrijs2005/stealthdetect/internal/models"
	"github.com/dmitrijs2005/stealthdetect/internal/repositories/repomanager"
)

// AuthGate checks an entered PIN against both stored hashes and opens a
// session in the matching mode.
//
// Every call derives exactly one hash and performs two constant-time
// comparisons before any branch on the result. A missing duress hash is
// replaced by a random one, and an unknown user is checked against a random
// credential hashed with the configured parameters, so all paths do the same
// work.
type AuthGate struct {
	db       *sql.DB
	rm       repomanager.RepositoryManager
	sessions *SessionManager
	params   cryptox.HashParams
	log      logging.Logger
	now      func() time.Time
}

func NewAuthGate(db *sql.DB, rm repomanager.RepositoryManager, sessions *SessionManager,
	params cryptox.HashParams, log logging.Logger) *AuthGate {
	return &AuthGate{
		db:       db,
		rm:       rm,
		sessions: sessions,
		params:   params,
		log:      log,
		now:      time.Now,
	}
}

// Authenticate returns the outcome and, when unlocked, the new session.
//
// Errors: common.ErrRejected for a wrong PIN, common.ErrUnknownUser when
// no credential exists. Presentation layers must render both identically.
func (g *AuthGate) Authenticate(ctx context.Context, userID string, secret []byte) (models.AuthOutcome, *models.Session, error) {
	outcome, err := g.verify(ctx, userID, secret)
	if err != nil {
		g.log.Info(ctx, "authentication failed", "user_id", userID)
		return models.OutcomeRejected, nil, err
	}

	mode, _ := outcome.Mode()
	s, err := g.sessions.Open(ctx, userID, mode)
	if err != nil {
		return models.OutcomeRejected, nil, err
	}

	if err := g.rm.Credentials(g.db).TouchLastAuth(ctx, userID, g.now().UTC()); err != nil {
		g.log.Warn(ctx, "failed to record last auth", "user_id", userID, "error", err)
	}
	g.log.Info(ctx, "authentication succeeded", "user_id", userID, "session_id", s.ID)
	return outcome, s, nil
}

// verify is the constant-work core of Authenticate. It never touches
// sessions.
func (g *AuthGate) verify(ctx context.Context, userID string, secret []byte) (models.AuthOutcome, error) {
	c, err := g.rm.Credentials(g.db).Get(ctx, userID)
	unknown, corrupt := false, false
	switch {
	case errors.Is(err, common.ErrorNotFound):
		unknown = true
		c = g.dummyCredential()
	case err != nil:
		return models.OutcomeRejected, fmt.Errorf("failed to load credential: %w", err)
	case !c.Params.Valid():
		// argon2 panics on these; nothing can match, so spend the same work
		// on a dummy and refuse.
		corrupt = true
		c = g.dummyCredential()
	}

	duressRef := c.DuressHash
	if !c.HasDuress() {
		duressRef = common.GenerateRandByteArray(len(c.RealHash))
	}

	candidate := cryptox.HashSecret(secret, c.Salt, c.Params)
	realOK := cryptox.Equal(candidate, c.RealHash)
	duressOK := cryptox.Equal(candidate, duressRef)
	common.WipeByteArray(candidate)

	switch {
	case unknown:
		return models.OutcomeRejected, common.ErrUnknownUser
	case corrupt:
		g.log.Error(ctx, "stored credential unusable", "user_id", userID, "error", common.ErrCorruptCredential)
		return models.OutcomeRejected, common.ErrRejected
	case realOK && duressOK:
		g.log.Error(ctx, "credential integrity anomaly", "user_id", userID, "error", common.ErrIntegrityAnomaly)
		return models.OutcomeUnlockedReal, nil
	case realOK:
		return models.OutcomeUnlockedReal, nil
	case duressOK:
		return models.OutcomeUnlockedDuress, nil
	}
	return models.OutcomeRejected, common.ErrRejected
}

// dummyCredential stands in for a credential that cannot be checked. It is
// hashed with the configured parameters so the cost matches an enrolled
// user, or with the defaults when those are unusable.
func (g *AuthGate) dummyCredential() *models.Credential {
	p := g.params
	if !p.Valid() {
		p = cryptox.DefaultHashParams
	}
	return &models.Credential{
		Salt:     cryptox.NewSalt(),
		RealHash: common.GenerateRandByteArray(int(p.KeyLen)),
		Params:   p,
	}
}
