package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/stealthdetect/internal/common"
	"github.com/dmitrijs2005/stealthdetect/internal/models"
)

// ChangePins replaces both PINs from inside an unlocked session. current
// must be the PIN that session was unlocked with; duressPIN may be nil to
// drop the duress PIN.
//
// From a real session the new credential is stored and the session stays
// open. From a duress session the same checks and hashing run, the result is
// discarded and the call reports success: only the main PIN can rewrite the
// stored credential, and the caller cannot tell which of the two happened.
func (c *Core) ChangePins(ctx context.Context, sessionID string, current, realPIN, duressPIN []byte) error {
	s, err := c.Sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if !s.Active() {
		return common.ErrSessionClosed
	}
	if err := checkPins(realPIN, duressPIN); err != nil {
		return err
	}

	outcome, err := c.Gate.verify(ctx, s.UserID, current)
	switch {
	case errors.Is(err, common.ErrUnknownUser):
		return common.ErrRejected
	case err != nil:
		return err
	}
	want := models.OutcomeUnlockedReal
	if s.IsDuress() {
		want = models.OutcomeUnlockedDuress
	}
	if outcome != want {
		c.Credentials.log.Info(ctx, "pin change refused", "user_id", s.UserID)
		return common.ErrRejected
	}

	cred, err := c.Credentials.build(s.UserID, realPIN, duressPIN)
	if err != nil {
		return err
	}
	if s.IsDuress() {
		common.WipeByteArray(cred.RealHash)
		common.WipeByteArray(cred.DuressHash)
		c.Credentials.log.Info(ctx, "credential saved", "user_id", s.UserID)
		return nil
	}
	return c.Credentials.store(ctx, cred)
}
