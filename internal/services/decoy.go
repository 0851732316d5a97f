package services

import (
	"context"
	"encoding/binary"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/stealthdetect/internal/common"
	"github.com/dmitrijs2005/stealthdetect/internal/dbx"
	"github.com/dmitrijs2005/stealthdetect/internal/models"
	"github.com/google/uuid"
)

// Decoy schedule: the first scan shortly after enrollment, then one every
// two to four days.
const (
	decoyFirstScanAfter = 2 * time.Minute
	decoyMinGap         = 48 * time.Hour
	decoyGapSpread      = 48 * time.Hour
	decoyMaxScans       = 1000
)

var decoyNamespace = uuid.MustParse("6f0c5d2e-8a47-4b8e-9d0e-3c1f2a9b7e51")

// decoyReader serves a benign, clean history. It is built from plain values
// and holds no repository.
//
// The fabricated scans hang off a fixed schedule anchored at the profile's
// enrollment time and seeded by the profile, so every duress session of the
// same profile sees the same past, growing only as time passes. A reset
// enrolls a new profile and with it a new history.
type decoyReader struct {
	scans    []models.ScanResult // newest first
	sessions []models.Session    // newest first
}

// newDecoyReader builds the view for duress session s. enrolledAt is the
// profile's creation time; past are the profile's duress sessions so far,
// which may include s itself.
func newDecoyReader(s *models.Session, enrolledAt time.Time, past []models.Session) *decoyReader {
	d := &decoyReader{}
	seen := map[string]bool{s.ID: true}
	d.sessions = append(d.sessions, *s)
	for _, p := range past {
		if !seen[p.ID] {
			seen[p.ID] = true
			d.sessions = append(d.sessions, p)
		}
	}

	profile := uuid.NewSHA1(decoyNamespace, []byte(s.UserID+"/"+dbx.FormatTime(enrolledAt)))
	at := enrolledAt.Add(decoyFirstScanAfter)
	for i := 0; i < decoyMaxScans; i++ {
		id := uuid.NewSHA1(profile, []byte(fmt.Sprint(i)))
		seed := binary.BigEndian.Uint32(id[:4])
		if i == 0 {
			at = at.Add(time.Duration(seed%480) * time.Second)
		} else {
			at = at.Add(decoyMinGap + time.Duration(seed%uint32(decoyGapSpread/time.Second))*time.Second)
		}

		scan, unlock := fabricateScan(id, seed, s.UserID, s.Mode, at)
		if unlock.ClosedAt == nil || !unlock.ClosedAt.Before(s.OpenedAt) {
			break
		}
		d.scans = append(d.scans, scan)
		d.sessions = append(d.sessions, unlock)
	}

	for i, j := 0, len(d.scans)-1; i < j; i, j = i+1, j-1 {
		d.scans[i], d.scans[j] = d.scans[j], d.scans[i]
	}
	sort.SliceStable(d.sessions, func(i, j int) bool {
		return d.sessions[i].OpenedAt.After(d.sessions[j].OpenedAt)
	})
	return d
}

// fabricateScan derives one clean quick scan started at started, plus the
// unlock session it ran in.
func fabricateScan(id uuid.UUID, seed uint32, userID string, mode models.Mode, started time.Time) (models.ScanResult, models.Session) {
	ended := started.Add(time.Duration(20+seed%40) * time.Second)
	opened := started.Add(-time.Duration(30+seed%90) * time.Second)
	closed := ended.Add(time.Duration(15+seed%120) * time.Second)
	scanID := id.String()

	scan := models.ScanResult{
		Scan: models.ScanSession{
			ID:         scanID,
			UserID:     userID,
			Kind:       models.ScanQuick,
			Status:     models.ScanCompleted,
			AppVersion: "1.0.0",
			StartedAt:  started,
			EndedAt:    &ended,
		},
		Reports: []models.Report{{
			ID:        uuid.NewSHA1(id, []byte("report")).String(),
			ScanID:    scanID,
			Summary:   "No threats found",
			Severity:  models.SeveritySafe,
			CreatedAt: ended,
		}},
		Snapshots: []models.DeviceSnapshot{{
			ID:           uuid.NewSHA1(id, []byte("snapshot")).String(),
			ScanID:       scanID,
			BatteryLevel: float64(40+seed%60) / 100,
			NetworkType:  "wifi",
			IPAddress:    fmt.Sprintf("192.168.1.%d", 2+seed%200),
			CreatedAt:    started,
		}},
	}
	unlock := models.Session{
		ID:       uuid.NewSHA1(id, []byte("session")).String(),
		UserID:   userID,
		Mode:     mode,
		OpenedAt: opened,
		ClosedAt: &closed,
	}
	return scan, unlock
}

func (d *decoyReader) ListScans(ctx context.Context) ([]models.ScanSession, error) {
	out := make([]models.ScanSession, 0, len(d.scans))
	for _, r := range d.scans {
		out = append(out, r.Scan)
	}
	return out, nil
}

func (d *decoyReader) GetReport(ctx context.Context, scanID string) (*models.ScanResult, error) {
	for _, r := range d.scans {
		if r.Scan.ID == scanID {
			res := r
			return &res, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (d *decoyReader) Sessions(ctx context.Context) ([]models.Session, error) {
	return append([]models.Session(nil), d.sessions...), nil
}
