package services

import (
	"database/sql"

	"github.com/dmitrijs2005/stealthdetect/internal/cryptox"
	"github.com/dmitrijs2005/stealthdetect/internal/logging"
	"github.com/dmitrijs2005/stealthdetect/internal/repositories/repomanager"
)

// Core bundles the services every presentation layer consumes.
type Core struct {
	Credentials *CredentialService
	Sessions    *SessionManager
	Gate        *AuthGate
	State       *AuthState
	Scans       *ScanData
}

func NewCore(db *sql.DB, rm repomanager.RepositoryManager, params cryptox.HashParams, log logging.Logger) *Core {
	sessions := NewSessionManager(db, rm, log)
	return &Core{
		Credentials: NewCredentialService(db, rm, sessions, params, log),
		Sessions:    sessions,
		Gate:        NewAuthGate(db, rm, sessions, params, log),
		State:       NewAuthState(db, rm),
		Scans:       NewScanData(db, rm, sessions, log),
	}
}
