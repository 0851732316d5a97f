package flow

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/stealthdetect/internal/common"
	"github.com/dmitrijs2005/stealthdetect/internal/models"
	"github.com/dmitrijs2005/stealthdetect/internal/services"
)

// Machine drives the flow for one profile.
type Machine struct {
	core   *services.Core
	userID string
}

func NewMachine(core *services.Core, userID string) *Machine {
	return &Machine{core: core, userID: userID}
}

func (m *Machine) UserID() string { return m.userID }

// Begin picks the entry state: the lock screen once setup completed and a
// credential exists, the intro otherwise.
func (m *Machine) Begin(ctx context.Context) (State, error) {
	done, err := m.core.State.SetupComplete(ctx)
	if err != nil {
		return nil, err
	}
	exists, err := m.core.Credentials.Exists(ctx, m.userID)
	if err != nil {
		return nil, err
	}
	if done && exists {
		return EnterPin{}, nil
	}
	return Welcome{}, nil
}

// Start leaves the intro. Permission collection is skipped when system usage
// access was granted earlier.
func (m *Machine) Start(ctx context.Context, _ Welcome) (State, error) {
	p, err := m.core.State.Permissions(ctx)
	if err != nil {
		return nil, err
	}
	if p.SystemUsage {
		return SetupPins{}, nil
	}
	return Permissions{Granted: p}, nil
}

// GrantPermissions stores the grants. System usage access is mandatory.
func (m *Machine) GrantPermissions(ctx context.Context, cur Permissions, p models.Permissions) (State, error) {
	if !p.SystemUsage {
		return cur, common.ErrPermissionMissing
	}
	if err := m.core.State.SavePermissions(ctx, p); err != nil {
		return cur, err
	}
	return SetupPins{}, nil
}

// SavePins enrolls the PINs, marks setup complete and unlocks with the main
// PIN. The form is wiped before returning.
func (m *Machine) SavePins(ctx context.Context, cur SetupPins, form PinForm) (State, error) {
	defer form.Wipe()

	if err := form.confirmed(); err != nil {
		return cur, err
	}
	if err := m.core.Credentials.SetCredential(ctx, m.userID, form.PIN, form.DuressPIN); err != nil {
		return cur, err
	}
	if err := m.core.State.MarkSetupComplete(ctx); err != nil {
		return cur, err
	}

	_, s, err := m.core.Gate.Authenticate(ctx, m.userID, form.PIN)
	if err != nil {
		return EnterPin{}, fmt.Errorf("failed to unlock after setup: %w", err)
	}
	return Dashboard{Session: s}, nil
}

// confirmed checks both confirmation fields.
func (f *PinForm) confirmed() error {
	if !bytes.Equal(f.PIN, f.ConfirmPIN) {
		return common.ErrPINMismatch
	}
	if len(f.DuressPIN) > 0 && !bytes.Equal(f.DuressPIN, f.ConfirmDuressPIN) {
		return common.ErrPINMismatch
	}
	return nil
}

// Unlock checks pin. A wrong PIN and an unknown profile both stay on the
// lock screen with common.ErrInvalidPIN.
func (m *Machine) Unlock(ctx context.Context, cur EnterPin, pin []byte) (State, error) {
	outcome, s, err := m.core.Gate.Authenticate(ctx, m.userID, pin)
	if err != nil {
		if errors.Is(err, common.ErrRejected) || errors.Is(err, common.ErrUnknownUser) {
			return cur, common.ErrInvalidPIN
		}
		return cur, err
	}
	if outcome == models.OutcomeUnlockedDuress {
		return Decoy{Session: s}, nil
	}
	return Dashboard{Session: s}, nil
}

// Lock closes the session of an unlocked state.
func (m *Machine) Lock(ctx context.Context, cur State) (State, error) {
	s, ok := Unlocked(cur)
	if !ok {
		return cur, ErrInvalidTransition
	}
	if err := m.core.Sessions.Close(ctx, s.ID); err != nil {
		return cur, err
	}
	return EnterPin{}, nil
}

// ChangePins replaces the PINs from an unlocked state. A wrong current PIN
// reads as common.ErrInvalidPIN. From Decoy the change is accepted and never
// stored; both states stay where they are.
func (m *Machine) ChangePins(ctx context.Context, cur State, form ChangePinForm) (State, error) {
	defer form.Wipe()

	s, ok := Unlocked(cur)
	if !ok {
		return cur, ErrInvalidTransition
	}
	if err := form.confirmed(); err != nil {
		return cur, err
	}
	err := m.core.ChangePins(ctx, s.ID, form.CurrentPIN, form.PIN, form.DuressPIN)
	switch {
	case errors.Is(err, common.ErrRejected):
		return cur, common.ErrInvalidPIN
	case errors.Is(err, common.ErrSessionClosed), errors.Is(err, common.ErrSessionNotFound):
		return EnterPin{}, err
	case err != nil:
		return cur, err
	}
	return cur, nil
}

// Reset wipes the profile from the lock screen and restarts onboarding.
func (m *Machine) Reset(ctx context.Context, cur EnterPin) (State, error) {
	if err := m.core.Credentials.Reset(ctx, m.userID); err != nil {
		return cur, err
	}
	return Welcome{}, nil
}
