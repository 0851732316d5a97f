package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/dmitrijs2005/stealthdetect/internal/common"
	"github.com/dmitrijs2005/stealthdetect/internal/cryptox"
	"github.com/dmitrijs2005/stealthdetect/internal/dbx"
	"github.com/dmitrijs2005/stealthdetect/internal/logging"
	"github.com/dmitrijs2005/stealthdetect/internal/models"
	"github.com/dmitrijs2005/stealthdetect/internal/repositories/repomanager"
)

var pinPattern = regexp.MustCompile(`^\d{4,8}$`)

// ValidatePIN enforces the enrollment policy: 4 to 8 ASCII digits.
// Authentication never calls it; malformed input is hashed like any other.
func ValidatePIN(pin []byte) error {
	if !pinPattern.Match(pin) {
		return common.ErrInvalidPINFormat
	}
	return nil
}

// CredentialService owns the credential record: enrollment, lookup and
// account reset.
type CredentialService struct {
	db       *sql.DB
	rm       repomanager.RepositoryManager
	sessions *SessionManager
	params   cryptox.HashParams
	log      logging.Logger
	now      func() time.Time
}

func NewCredentialService(db *sql.DB, rm repomanager.RepositoryManager, sessions *SessionManager,
	params cryptox.HashParams, log logging.Logger) *CredentialService {
	return &CredentialService{
		db:       db,
		rm:       rm,
		sessions: sessions,
		params:   params,
		log:      log,
		now:      time.Now,
	}
}

// GetCredential returns the user's credential or common.ErrUnknownUser.
func (s *CredentialService) GetCredential(ctx context.Context, userID string) (*models.Credential, error) {
	c, err := s.rm.Credentials(s.db).Get(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUnknownUser
		}
		return nil, err
	}
	return c, nil
}

// Exists reports whether the user has enrolled.
func (s *CredentialService) Exists(ctx context.Context, userID string) (bool, error) {
	_, err := s.GetCredential(ctx, userID)
	switch {
	case errors.Is(err, common.ErrUnknownUser):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// SetCredential enrolls or replaces the user's PINs. duressPIN may be nil.
// Every check runs before the store is touched, so a refused call leaves the
// previous credential intact.
func (s *CredentialService) SetCredential(ctx context.Context, userID string, realPIN, duressPIN []byte) error {
	c, err := s.build(userID, realPIN, duressPIN)
	if err != nil {
		return err
	}
	return s.store(ctx, c)
}

// checkPins applies the enrollment policy to a new pair of PINs.
func checkPins(realPIN, duressPIN []byte) error {
	if len(duressPIN) > 0 && bytes.Equal(realPIN, duressPIN) {
		return common.ErrDuressEqualsReal
	}
	if err := ValidatePIN(realPIN); err != nil {
		return err
	}
	if len(duressPIN) > 0 {
		return ValidatePIN(duressPIN)
	}
	return nil
}

// build hashes a new credential for userID without storing it.
func (s *CredentialService) build(userID string, realPIN, duressPIN []byte) (*models.Credential, error) {
	if err := checkPins(realPIN, duressPIN); err != nil {
		return nil, err
	}
	if !s.params.Valid() {
		return nil, fmt.Errorf("invalid hash parameters: %+v", s.params)
	}

	now := s.now().UTC()
	c := &models.Credential{
		UserID:    userID,
		Salt:      cryptox.NewSalt(),
		Params:    s.params,
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.RealHash = cryptox.HashSecret(realPIN, c.Salt, c.Params)
	if len(duressPIN) > 0 {
		c.DuressHash = cryptox.HashSecret(duressPIN, c.Salt, c.Params)
	}
	return c, nil
}

// store upserts c. An existing row keeps its created_at.
func (s *CredentialService) store(ctx context.Context, c *models.Credential) error {
	if err := s.rm.Credentials(s.db).Upsert(ctx, c); err != nil {
		return err
	}
	s.log.Info(ctx, "credential saved", "user_id", c.UserID)
	return nil
}

// Reset wipes the account: credential, sessions, scan history and the
// device auth state, in one transaction under the user's session lock.
func (s *CredentialService) Reset(ctx context.Context, userID string) error {
	unlock := s.sessions.locks.lock(userID)
	defer unlock()

	err := dbx.WithImmediateTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.rm.Sessions(tx).DeleteByUser(ctx, userID); err != nil {
			return err
		}
		if err := s.rm.Scans(tx).DeleteByUser(ctx, userID); err != nil {
			return err
		}
		if err := s.rm.Credentials(tx).Delete(ctx, userID); err != nil {
			return err
		}
		return s.rm.Metadata(tx).Delete(ctx, common.AuthStateKeys...)
	})
	if err != nil {
		return fmt.Errorf("failed to reset account: %w", err)
	}
	s.log.Warn(ctx, "account reset", "user_id", userID)
	return nil
}
