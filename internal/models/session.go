package models

import (
	"fmt"
	"time"
)

// Mode tags a session with the credential it was unlocked with.
type Mode string

const (
	ModeReal   Mode = "real"
	ModeDuress Mode = "duress"
)

// ParseMode validates a stored mode value.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeReal, ModeDuress:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown session mode %q", s)
}

// Session is one authenticated period. ClosedAt is nil while active.
type Session struct {
	ID       string
	UserID   string
	Mode     Mode
	OpenedAt time.Time
	ClosedAt *time.Time
}

func (s *Session) Active() bool   { return s.ClosedAt == nil }
func (s *Session) IsDuress() bool { return s.Mode == ModeDuress }

// AuthOutcome is the transient result of a PIN check.
type AuthOutcome int

const (
	OutcomeRejected AuthOutcome = iota
	OutcomeUnlockedReal
	OutcomeUnlockedDuress
)

func (o AuthOutcome) String() string {
	switch o {
	case OutcomeUnlockedReal:
		return "Unlocked(Real)"
	case OutcomeUnlockedDuress:
		return "Unlocked(Duress)"
	default:
		return "Rejected"
	}
}

// Mode maps an unlocked outcome to its session mode.
func (o AuthOutcome) Mode() (Mode, bool) {
	switch o {
	case OutcomeUnlockedReal:
		return ModeReal, true
	case OutcomeUnlockedDuress:
		return ModeDuress, true
	}
	return "", false
}
