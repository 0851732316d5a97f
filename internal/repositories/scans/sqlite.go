// Package scans stores network scan history: scan sessions, reports,
// indicator matches and device snapshots.
package scans

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/stealthdetect/internal/common"
	"github.com/dmitrijs2005/stealthdetect/internal/dbx"
	"github.com/dmitrijs2005/stealthdetect/internal/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

const scanColumns = `SELECT id, user_id, kind, status, app_version, started_at, ended_at FROM scan_sessions`

func scanScan(row rowScanner) (*models.ScanSession, error) {
	var (
		s            models.ScanSession
		kind, status string
		started      string
		ended        sql.NullString
	)
	if err := row.Scan(&s.ID, &s.UserID, &kind, &status, &s.AppVersion, &started, &ended); err != nil {
		return nil, err
	}
	s.Kind = models.ScanKind(kind)
	s.Status = models.ScanStatus(status)

	var err error
	if s.StartedAt, err = dbx.ParseTime(started); err != nil {
		return nil, err
	}
	if s.EndedAt, err = dbx.ParseNullTime(ended); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SQLiteRepository) SaveScan(ctx context.Context, s *models.ScanSession) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scan_sessions (id, user_id, kind, status, app_version, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status, ended_at = excluded.ended_at`,
		s.ID, s.UserID, string(s.Kind), string(s.Status), s.AppVersion,
		dbx.FormatTime(s.StartedAt), dbx.NullTime(s.EndedAt))
	if err != nil {
		return fmt.Errorf("failed to save scan: %w", err)
	}
	return nil
}

// ListScans returns the user's scans, newest first.
func (r *SQLiteRepository) ListScans(ctx context.Context, userID string) ([]models.ScanSession, error) {
	rows, err := r.db.QueryContext(ctx, scanColumns+` WHERE user_id = ? ORDER BY started_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	var result []models.ScanSession
	for rows.Next() {
		s, err := scanScan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scan row: %w", err)
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scan rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) GetScan(ctx context.Context, id string) (*models.ScanSession, error) {
	s, err := scanScan(r.db.QueryRowContext(ctx, scanColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) SaveReport(ctx context.Context, rep *models.Report) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reports (id, scan_id, summary, severity, created_at) VALUES (?, ?, ?, ?, ?)`,
		rep.ID, rep.ScanID, rep.Summary, string(rep.Severity), dbx.FormatTime(rep.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ReportsByScan(ctx context.Context, scanID string) ([]models.Report, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, scan_id, summary, severity, created_at FROM reports WHERE scan_id = ? ORDER BY created_at, id`, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var result []models.Report
	for rows.Next() {
		var (
			rep      models.Report
			severity string
			created  string
		)
		if err := rows.Scan(&rep.ID, &rep.ScanID, &rep.Summary, &severity, &created); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		rep.Severity = models.Severity(severity)
		if rep.CreatedAt, err = dbx.ParseTime(created); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		result = append(result, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate report rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) SaveMatch(ctx context.Context, m *models.IOCMatch) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ioc_matches (id, scan_id, indicator_type, indicator_value, source,
			rule_version, confidence, severity, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ScanID, m.IndicatorType, m.IndicatorValue, m.Source,
		m.RuleVersion, m.Confidence, string(m.Severity), dbx.FormatTime(m.DetectedAt))
	if err != nil {
		return fmt.Errorf("failed to save match: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MatchesByScan(ctx context.Context, scanID string) ([]models.IOCMatch, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, scan_id, indicator_type, indicator_value, source,
			rule_version, confidence, severity, detected_at
		FROM ioc_matches WHERE scan_id = ? ORDER BY detected_at, id`, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var result []models.IOCMatch
	for rows.Next() {
		var (
			m        models.IOCMatch
			severity string
			detected string
		)
		if err := rows.Scan(&m.ID, &m.ScanID, &m.IndicatorType, &m.IndicatorValue, &m.Source,
			&m.RuleVersion, &m.Confidence, &severity, &detected); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		m.Severity = models.Severity(severity)
		if m.DetectedAt, err = dbx.ParseTime(detected); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate match rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, s *models.DeviceSnapshot) error {
	var raw sql.NullString
	if s.RawJSON != "" {
		raw = sql.NullString{String: s.RawJSON, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO device_snapshots (id, scan_id, battery_level, network_type, ip_address, raw_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.ScanID, s.BatteryLevel, s.NetworkType, s.IPAddress, raw, dbx.FormatTime(s.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SnapshotsByScan(ctx context.Context, scanID string) ([]models.DeviceSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, scan_id, battery_level, network_type, ip_address, raw_json, created_at
		FROM device_snapshots WHERE scan_id = ? ORDER BY created_at, id`, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var result []models.DeviceSnapshot
	for rows.Next() {
		var (
			s       models.DeviceSnapshot
			raw     sql.NullString
			created string
		)
		if err := rows.Scan(&s.ID, &s.ScanID, &s.BatteryLevel, &s.NetworkType, &s.IPAddress, &raw, &created); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		s.RawJSON = raw.String
		if s.CreatedAt, err = dbx.ParseTime(created); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshot rows: %w", err)
	}
	return result, nil
}

// DeleteByUser removes the user's scans. Child rows go with them via
// ON DELETE CASCADE, which needs foreign_keys enabled on the connection.
func (r *SQLiteRepository) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM scan_sessions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete scans: %w", err)
	}
	return nil
}
