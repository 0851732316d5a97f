package models

import (
	"time"

	"github.com/dmitrijs2005/stealthdetect/internal/cryptox"
)

// Credential holds the salted hashes of the main and duress PINs for one user.
//
// RealHash and DuressHash share Salt and Params. DuressHash is nil when the
// user did not configure a duress PIN.
type Credential struct {
	UserID     string
	Salt       []byte
	RealHash   []byte
	DuressHash []byte
	Params     cryptox.HashParams
	CreatedAt  time.Time
	UpdatedAt  time.Time
	LastAuthAt *time.Time
}

// HasDuress reports whether a duress PIN is configured.
func (c *Credential) HasDuress() bool {
	return len(c.DuressHash) > 0
}
