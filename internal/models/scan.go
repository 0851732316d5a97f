package models

import "time"

type ScanKind string

const (
	ScanQuick ScanKind = "quick"
	ScanFull  ScanKind = "full"
)

type ScanStatus string

const (
	ScanRunning   ScanStatus = "running"
	ScanCompleted ScanStatus = "completed"
	ScanFailed    ScanStatus = "failed"
)

// Severity grades a report or a single indicator match.
type Severity string

const (
	SeveritySafe       Severity = "safe"
	SeveritySuspicious Severity = "suspicious"
	SeverityDanger     Severity = "danger"
)

// ScanSession is one run of the network scan.
type ScanSession struct {
	ID         string
	UserID     string
	Kind       ScanKind
	Status     ScanStatus
	AppVersion string
	StartedAt  time.Time
	EndedAt    *time.Time
}

// Report summarises a scan.
type Report struct {
	ID        string
	ScanID    string
	Summary   string
	Severity  Severity
	CreatedAt time.Time
}

// IOCMatch is a single indicator-of-compromise finding.
type IOCMatch struct {
	ID             string
	ScanID         string
	IndicatorType  string
	IndicatorValue string
	Source         string
	RuleVersion    string
	Confidence     float64
	Severity       Severity
	DetectedAt     time.Time
}

// DeviceSnapshot records device state at scan time.
type DeviceSnapshot struct {
	ID           string
	ScanID       string
	BatteryLevel float64
	NetworkType  string
	IPAddress    string
	RawJSON      string
	CreatedAt    time.Time
}

// ScanResult bundles everything a finished scan produces. It is both the
// unit of recording and what a report view returns.
type ScanResult struct {
	Scan      ScanSession
	Reports   []Report
	Matches   []IOCMatch
	Snapshots []DeviceSnapshot
}
