// Package flow is the onboarding and unlock state machine shared by the
// presentation layers. Each state carries only its own data; transitions are
// methods on Machine that take the current state and return the next one.
package flow

import (
	"errors"

	"github.com/dmitrijs2005/stealthdetect/internal/models"
)

// ErrInvalidTransition is returned when a transition is applied to a state
// it does not start from.
var ErrInvalidTransition = errors.New("invalid transition")

// State is one screen of the flow.
type State interface {
	isState()
}

// Welcome is the first-run intro.
type Welcome struct{}

// Permissions asks for the OS grants. Granted holds what is already stored.
type Permissions struct {
	Granted models.Permissions
}

// SetupPins collects the main PIN and an optional duress PIN.
type SetupPins struct{}

// EnterPin is the lock screen.
type EnterPin struct{}

// Dashboard is the unlocked view over real data.
type Dashboard struct {
	Session *models.Session
}

// Decoy is the unlocked view served after a duress unlock. Presentation
// layers render it with the same screens as Dashboard.
type Decoy struct {
	Session *models.Session
}

func (Welcome) isState()     {}
func (Permissions) isState() {}
func (SetupPins) isState()   {}
func (EnterPin) isState()    {}
func (Dashboard) isState()   {}
func (Decoy) isState()       {}

// Unlocked returns the session of an unlocked state.
func Unlocked(s State) (*models.Session, bool) {
	switch st := s.(type) {
	case Dashboard:
		return st.Session, true
	case Decoy:
		return st.Session, true
	}
	return nil, false
}

// PinForm is the setup form. Duress fields may be empty.
type PinForm struct {
	PIN              []byte
	ConfirmPIN       []byte
	DuressPIN        []byte
	ConfirmDuressPIN []byte
}

// Wipe zeroes every field.
func (f *PinForm) Wipe() {
	for _, b := range [][]byte{f.PIN, f.ConfirmPIN, f.DuressPIN, f.ConfirmDuressPIN} {
		for i := range b {
			b[i] = 0
		}
	}
}

// ChangePinForm is the PIN change form: the PIN the session was unlocked
// with plus the new pair.
type ChangePinForm struct {
	CurrentPIN []byte
	PinForm
}

// Wipe zeroes every field.
func (f *ChangePinForm) Wipe() {
	for i := range f.CurrentPIN {
		f.CurrentPIN[i] = 0
	}
	f.PinForm.Wipe()
}
