package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/stealthdetect/internal/common"
	"github.com/dmitrijs2005/stealthdetect/internal/models"
	"github.com/dmitrijs2005/stealthdetect/internal/repositories/metadata"
	"github.com/dmitrijs2005/stealthdetect/internal/repositories/repomanager"
)

// AuthState is the device-local onboarding state: whether setup finished
// and which OS permissions were granted.
type AuthState struct {
	db *sql.DB
	rm repomanager.RepositoryManager
}

func NewAuthState(db *sql.DB, rm repomanager.RepositoryManager) *AuthState {
	return &AuthState{db: db, rm: rm}
}

func (a *AuthState) repo() metadata.Repository {
	return a.rm.Metadata(a.db)
}

func (a *AuthState) SetupComplete(ctx context.Context) (bool, error) {
	return metadata.GetFlag(ctx, a.repo(), common.MetaSetupComplete)
}

func (a *AuthState) MarkSetupComplete(ctx context.Context) error {
	return metadata.SetFlag(ctx, a.repo(), common.MetaSetupComplete, true)
}

// Permissions returns the stored grants; nothing stored reads as none granted.
func (a *AuthState) Permissions(ctx context.Context) (models.Permissions, error) {
	var p models.Permissions
	if _, err := metadata.GetJSON(ctx, a.repo(), common.MetaPermissions, &p); err != nil {
		return models.Permissions{}, err
	}
	return p, nil
}

func (a *AuthState) SavePermissions(ctx context.Context, p models.Permissions) error {
	return metadata.SetJSON(ctx, a.repo(), common.MetaPermissions, p)
}
