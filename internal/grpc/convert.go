package grpc

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/stealthdetect/internal/models"
	"google.golang.org/protobuf/types/known/structpb"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(v any) (time.Time, error) {
	s, _ := v.(string)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func num(m map[string]any, key string) float64 {
	f, _ := m[key].(float64)
	return f
}

func list(m map[string]any, key string) []map[string]any {
	raw, _ := m[key].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

func scanToMap(s models.ScanSession) map[string]any {
	return map[string]any{
		"id":          s.ID,
		"kind":        string(s.Kind),
		"status":      string(s.Status),
		"app_version": s.AppVersion,
		"started_at":  formatTime(s.StartedAt),
		"ended_at":    formatTimePtr(s.EndedAt),
	}
}

func reportToMap(r models.Report) map[string]any {
	return map[string]any{
		"id":         r.ID,
		"summary":    r.Summary,
		"severity":   string(r.Severity),
		"created_at": formatTime(r.CreatedAt),
	}
}

func matchToMap(m models.IOCMatch) map[string]any {
	return map[string]any{
		"id":              m.ID,
		"indicator_type":  m.IndicatorType,
		"indicator_value": m.IndicatorValue,
		"source":          m.Source,
		"rule_version":    m.RuleVersion,
		"confidence":      m.Confidence,
		"severity":        string(m.Severity),
		"detected_at":     formatTime(m.DetectedAt),
	}
}

func snapshotToMap(s models.DeviceSnapshot) map[string]any {
	return map[string]any{
		"id":            s.ID,
		"battery_level": s.BatteryLevel,
		"network_type":  s.NetworkType,
		"ip_address":    s.IPAddress,
		"raw_json":      s.RawJSON,
		"created_at":    formatTime(s.CreatedAt),
	}
}

func scansToStruct(scans []models.ScanSession) (*structpb.Struct, error) {
	items := make([]any, 0, len(scans))
	for _, s := range scans {
		items = append(items, scanToMap(s))
	}
	return structpb.NewStruct(map[string]any{"scans": items})
}

func resultToStruct(r *models.ScanResult) (*structpb.Struct, error) {
	reports := make([]any, 0, len(r.Reports))
	for _, x := range r.Reports {
		reports = append(reports, reportToMap(x))
	}
	matches := make([]any, 0, len(r.Matches))
	for _, x := range r.Matches {
		matches = append(matches, matchToMap(x))
	}
	snapshots := make([]any, 0, len(r.Snapshots))
	for _, x := range r.Snapshots {
		snapshots = append(snapshots, snapshotToMap(x))
	}
	return structpb.NewStruct(map[string]any{
		"scan":      scanToMap(r.Scan),
		"reports":   reports,
		"matches":   matches,
		"snapshots": snapshots,
	})
}

// resultFromStruct decodes a RecordScan request. Ids and timestamps left
// empty are filled in when the result is stored.
func resultFromStruct(in *structpb.Struct) (*models.ScanResult, error) {
	m := in.AsMap()
	r := &models.ScanResult{
		Scan: models.ScanSession{
			Kind:       models.ScanKind(str(m, "kind")),
			Status:     models.ScanStatus(str(m, "status")),
			AppVersion: str(m, "app_version"),
		},
	}

	var err error
	if r.Scan.StartedAt, err = parseTime(m["started_at"]); err != nil {
		return nil, err
	}
	ended, err := parseTime(m["ended_at"])
	if err != nil {
		return nil, err
	}
	if !ended.IsZero() {
		r.Scan.EndedAt = &ended
	}

	switch r.Scan.Kind {
	case "", models.ScanQuick, models.ScanFull:
	default:
		return nil, fmt.Errorf("unknown scan kind %q", r.Scan.Kind)
	}

	for _, x := range list(m, "reports") {
		r.Reports = append(r.Reports, models.Report{
			Summary:  str(x, "summary"),
			Severity: models.Severity(str(x, "severity")),
		})
	}
	for _, x := range list(m, "matches") {
		r.Matches = append(r.Matches, models.IOCMatch{
			IndicatorType:  str(x, "indicator_type"),
			IndicatorValue: str(x, "indicator_value"),
			Source:         str(x, "source"),
			RuleVersion:    str(x, "rule_version"),
			Confidence:     num(x, "confidence"),
			Severity:       models.Severity(str(x, "severity")),
		})
	}
	for _, x := range list(m, "snapshots") {
		r.Snapshots = append(r.Snapshots, models.DeviceSnapshot{
			BatteryLevel: num(x, "battery_level"),
			NetworkType:  str(x, "network_type"),
			IPAddress:    str(x, "ip_address"),
			RawJSON:      str(x, "raw_json"),
		})
	}
	return r, nil
}

// resultToRequest is the client-side inverse of resultFromStruct.
func resultToRequest(r *models.ScanResult) (*structpb.Struct, error) {
	m := map[string]any{
		"kind":        string(r.Scan.Kind),
		"status":      string(r.Scan.Status),
		"app_version": r.Scan.AppVersion,
	}
	if !r.Scan.StartedAt.IsZero() {
		m["started_at"] = formatTime(r.Scan.StartedAt)
	}
	if r.Scan.EndedAt != nil {
		m["ended_at"] = formatTime(*r.Scan.EndedAt)
	}
	reports := make([]any, 0, len(r.Reports))
	for _, x := range r.Reports {
		reports = append(reports, map[string]any{"summary": x.Summary, "severity": string(x.Severity)})
	}
	matches := make([]any, 0, len(r.Matches))
	for _, x := range r.Matches {
		matches = append(matches, map[string]any{
			"indicator_type":  x.IndicatorType,
			"indicator_value": x.IndicatorValue,
			"source":          x.Source,
			"rule_version":    x.RuleVersion,
			"confidence":      x.Confidence,
			"severity":        string(x.Severity),
		})
	}
	snapshots := make([]any, 0, len(r.Snapshots))
	for _, x := range r.Snapshots {
		snapshots = append(snapshots, map[string]any{
			"battery_level": x.BatteryLevel,
			"network_type":  x.NetworkType,
			"ip_address":    x.IPAddress,
			"raw_json":      x.RawJSON,
		})
	}
	m["reports"] = reports
	m["matches"] = matches
	m["snapshots"] = snapshots
	return structpb.NewStruct(m)
}

func scansFromStruct(in *structpb.Struct) ([]models.ScanSession, error) {
	var out []models.ScanSession
	for _, x := range list(in.AsMap(), "scans") {
		s, err := scanFromMap(x)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func scanFromMap(x map[string]any) (models.ScanSession, error) {
	s := models.ScanSession{
		ID:         str(x, "id"),
		Kind:       models.ScanKind(str(x, "kind")),
		Status:     models.ScanStatus(str(x, "status")),
		AppVersion: str(x, "app_version"),
	}
	var err error
	if s.StartedAt, err = parseTime(x["started_at"]); err != nil {
		return s, err
	}
	ended, err := parseTime(x["ended_at"])
	if err != nil {
		return s, err
	}
	if !ended.IsZero() {
		s.EndedAt = &ended
	}
	return s, nil
}

func resultFromResponse(in *structpb.Struct) (*models.ScanResult, error) {
	m := in.AsMap()
	scan, _ := m["scan"].(map[string]any)
	s, err := scanFromMap(scan)
	if err != nil {
		return nil, err
	}
	r := &models.ScanResult{Scan: s}
	for _, x := range list(m, "reports") {
		created, err := parseTime(x["created_at"])
		if err != nil {
			return nil, err
		}
		r.Reports = append(r.Reports, models.Report{
			ID:        str(x, "id"),
			ScanID:    s.ID,
			Summary:   str(x, "summary"),
			Severity:  models.Severity(str(x, "severity")),
			CreatedAt: created,
		})
	}
	for _, x := range list(m, "matches") {
		detected, err := parseTime(x["detected_at"])
		if err != nil {
			return nil, err
		}
		r.Matches = append(r.Matches, models.IOCMatch{
			ID:             str(x, "id"),
			ScanID:         s.ID,
			IndicatorType:  str(x, "indicator_type"),
			IndicatorValue: str(x, "indicator_value"),
			Source:         str(x, "source"),
			RuleVersion:    str(x, "rule_version"),
			Confidence:     num(x, "confidence"),
			Severity:       models.Severity(str(x, "severity")),
			DetectedAt:     detected,
		})
	}
	for _, x := range list(m, "snapshots") {
		created, err := parseTime(x["created_at"])
		if err != nil {
			return nil, err
		}
		r.Snapshots = append(r.Snapshots, models.DeviceSnapshot{
			ID:           str(x, "id"),
			ScanID:       s.ID,
			BatteryLevel: num(x, "battery_level"),
			NetworkType:  str(x, "network_type"),
			IPAddress:    str(x, "ip_address"),
			RawJSON:      str(x, "raw_json"),
			CreatedAt:    created,
		})
	}
	return r, nil
}

func historyToStruct(sessions []models.Session) (*structpb.Struct, error) {
	items := make([]any, 0, len(sessions))
	for _, s := range sessions {
		items = append(items, map[string]any{
			"opened_at": formatTime(s.OpenedAt),
			"closed_at": formatTimePtr(s.ClosedAt),
		})
	}
	return structpb.NewStruct(map[string]any{"sessions": items})
}

// HistoryEntry is one unlock period as the daemon reports it.
type HistoryEntry struct {
	OpenedAt time.Time
	ClosedAt *time.Time
}

func historyFromStruct(in *structpb.Struct) ([]HistoryEntry, error) {
	var out []HistoryEntry
	for _, x := range list(in.AsMap(), "sessions") {
		opened, err := parseTime(x["opened_at"])
		if err != nil {
			return nil, err
		}
		e := HistoryEntry{OpenedAt: opened}
		closed, err := parseTime(x["closed_at"])
		if err != nil {
			return nil, err
		}
		if !closed.IsZero() {
			e.ClosedAt = &closed
		}
		out = append(out, e)
	}
	return out, nil
}
