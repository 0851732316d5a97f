package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/stealthdetect/internal/common"
	"github.com/dmitrijs2005/stealthdetect/internal/dbx"
	"github.com/dmitrijs2005/stealthdetect/internal/logging"
	"github.com/dmitrijs2005/stealthdetect/internal/models"
	"github.com/dmitrijs2005/stealthdetect/internal/repositories/repomanager"
	"github.com/dmitrijs2005/stealthdetect/internal/repositories/scans"
	"github.com/dmitrijs2005/stealthdetect/internal/sessionctx"
	"github.com/google/uuid"
)

// ScanReader is what a presentation layer gets to render history with.
// The same interface is served for both session modes.
type ScanReader interface {
	ListScans(ctx context.Context) ([]models.ScanSession, error)
	GetReport(ctx context.Context, scanID string) (*models.ScanResult, error)
	// Sessions lists the unlock history visible to this session.
	Sessions(ctx context.Context) ([]models.Session, error)
}

// ScanData routes scan reads and writes by session mode. Real sessions go
// to the guarded repository; duress sessions get a reader that has no
// repository at all and writes that are dropped.
type ScanData struct {
	db       *sql.DB
	rm       repomanager.RepositoryManager
	sessions *SessionManager
	log      logging.Logger
	newID    func() string
}

func NewScanData(db *sql.DB, rm repomanager.RepositoryManager, sessions *SessionManager, log logging.Logger) *ScanData {
	return &ScanData{db: db, rm: rm, sessions: sessions, log: log, newID: uuid.NewString}
}

// activeSession loads the session and rejects closed ones.
func (d *ScanData) activeSession(ctx context.Context, sessionID string) (*models.Session, error) {
	s, err := d.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !s.Active() {
		return nil, common.ErrSessionClosed
	}
	return s, nil
}

// View returns the reader for the session and a context tagged with it.
// Readers must be called with the returned context.
func (d *ScanData) View(ctx context.Context, sessionID string) (ScanReader, context.Context, error) {
	s, err := d.activeSession(ctx, sessionID)
	if err != nil {
		return nil, ctx, err
	}
	ctx = sessionctx.WithSession(ctx, s)

	if s.IsDuress() {
		r, err := d.decoy(ctx, s)
		if err != nil {
			return nil, ctx, err
		}
		return r, ctx, nil
	}
	return &realReader{
		userID:   s.UserID,
		repo:     scans.Guarded(d.rm.Scans(d.db)),
		sessions: d.sessions,
	}, ctx, nil
}

// decoy gathers what the decoy view is built from: the profile's enrollment
// time and its earlier duress sessions. Nothing from a real session is read.
func (d *ScanData) decoy(ctx context.Context, s *models.Session) (*decoyReader, error) {
	c, err := d.rm.Credentials(d.db).Get(ctx, s.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	history, err := d.sessions.History(ctx, s.UserID)
	if err != nil {
		return nil, err
	}
	var past []models.Session
	for _, h := range history {
		if h.IsDuress() {
			past = append(past, h)
		}
	}
	return newDecoyReader(s, c.CreatedAt, past), nil
}

// Record stores a finished scan and returns its id. Under a duress session
// the result is accepted and discarded, and a fresh id is still returned.
func (d *ScanData) Record(ctx context.Context, sessionID string, result *models.ScanResult) (string, error) {
	s, err := d.activeSession(ctx, sessionID)
	if err != nil {
		return "", err
	}

	if result.Scan.ID == "" {
		result.Scan.ID = d.newID()
	}
	if s.IsDuress() {
		d.log.Info(ctx, "scan recorded", "scan_id", result.Scan.ID)
		return result.Scan.ID, nil
	}

	d.stamp(s, result)
	ctx = sessionctx.WithSession(ctx, s)
	err = dbx.WithImmediateTx(ctx, d.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := scans.Guarded(d.rm.Scans(tx))
		if err := repo.SaveScan(ctx, &result.Scan); err != nil {
			return err
		}
		for i := range result.Reports {
			if err := repo.SaveReport(ctx, &result.Reports[i]); err != nil {
				return err
			}
		}
		for i := range result.Matches {
			if err := repo.SaveMatch(ctx, &result.Matches[i]); err != nil {
				return err
			}
		}
		for i := range result.Snapshots {
			if err := repo.SaveSnapshot(ctx, &result.Snapshots[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	d.log.Info(ctx, "scan recorded", "scan_id", result.Scan.ID)
	return result.Scan.ID, nil
}

// stamp fills ownership, ids and timestamps the caller left empty.
func (d *ScanData) stamp(s *models.Session, r *models.ScanResult) {
	now := time.Now().UTC()
	r.Scan.UserID = s.UserID
	if r.Scan.StartedAt.IsZero() {
		r.Scan.StartedAt = now
	}
	if r.Scan.Kind == "" {
		r.Scan.Kind = models.ScanQuick
	}
	if r.Scan.Status == "" {
		r.Scan.Status = models.ScanCompleted
	}
	for i := range r.Reports {
		rep := &r.Reports[i]
		rep.ScanID = r.Scan.ID
		if rep.ID == "" {
			rep.ID = d.newID()
		}
		if rep.CreatedAt.IsZero() {
			rep.CreatedAt = now
		}
	}
	for i := range r.Matches {
		m := &r.Matches[i]
		m.ScanID = r.Scan.ID
		if m.ID == "" {
			m.ID = d.newID()
		}
		if m.DetectedAt.IsZero() {
			m.DetectedAt = now
		}
	}
	for i := range r.Snapshots {
		sn := &r.Snapshots[i]
		sn.ScanID = r.Scan.ID
		if sn.ID == "" {
			sn.ID = d.newID()
		}
		if sn.CreatedAt.IsZero() {
			sn.CreatedAt = now
		}
	}
}

type realReader struct {
	userID   string
	repo     scans.Repository
	sessions *SessionManager
}

func (r *realReader) ListScans(ctx context.Context) ([]models.ScanSession, error) {
	return r.repo.ListScans(ctx, r.userID)
}

func (r *realReader) GetReport(ctx context.Context, scanID string) (*models.ScanResult, error) {
	scan, err := r.repo.GetScan(ctx, scanID)
	if err != nil {
		return nil, err
	}
	res := &models.ScanResult{Scan: *scan}
	if res.Reports, err = r.repo.ReportsByScan(ctx, scanID); err != nil {
		return nil, err
	}
	if res.Matches, err = r.repo.MatchesByScan(ctx, scanID); err != nil {
		return nil, err
	}
	if res.Snapshots, err = r.repo.SnapshotsByScan(ctx, scanID); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *realReader) Sessions(ctx context.Context) ([]models.Session, error) {
	if !sessionctx.RealActive(ctx) {
		return nil, common.ErrDecoyIsolation
	}
	return r.sessions.History(ctx, r.userID)
}
