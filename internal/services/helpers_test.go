package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/stealthdetect/internal/cryptox"
	"github.com/dmitrijs2005/stealthdetect/internal/dbx"
	"github.com/dmitrijs2005/stealthdetect/internal/logging"
	"github.com/dmitrijs2005/stealthdetect/internal/repositories/repomanager"
	"github.com/dmitrijs2005/stealthdetect/internal/repositories/scans"
	"github.com/dmitrijs2005/stealthdetect/internal/storage"
	"github.com/stretchr/testify/require"
)

var fastParams = cryptox.HashParams{Time: 1, MemoryKiB: 1024, Threads: 1, KeyLen: 32}

type logEntry struct {
	level string
	msg   string
	args  []any
}

// recLogger records entries so tests can assert on what was logged.
type recLogger struct {
	mu      *sync.Mutex
	entries *[]logEntry
	with    []any
}

func newRecLogger() *recLogger {
	return &recLogger{mu: &sync.Mutex{}, entries: &[]logEntry{}}
}

func (l *recLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = append(*l.entries, logEntry{level: level, msg: msg, args: append(append([]any{}, l.with...), args...)})
}

func (l *recLogger) Debug(_ context.Context, msg string, args ...any) { l.add("debug", msg, args) }
func (l *recLogger) Info(_ context.Context, msg string, args ...any)  { l.add("info", msg, args) }
func (l *recLogger) Warn(_ context.Context, msg string, args ...any)  { l.add("warn", msg, args) }
func (l *recLogger) Error(_ context.Context, msg string, args ...any) { l.add("error", msg, args) }

func (l *recLogger) With(args ...any) logging.Logger {
	return &recLogger{mu: l.mu, entries: l.entries, with: append(append([]any{}, l.with...), args...)}
}

func (l *recLogger) byLevel(level string) []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []logEntry
	for _, e := range *l.entries {
		if e.level == level {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	db   *sql.DB
	rm   *repomanager.SQLiteRepositoryManager
	core *Core
	log  *recLogger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rm := repomanager.NewSQLiteRepositoryManager()
	db, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "core.db"), rm)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := newRecLogger()
	return &fixture{db: db, rm: rm, core: NewCore(db, rm, fastParams, log), log: log}
}

// enroll registers u1 with main PIN 1234 and duress PIN 0000.
func (f *fixture) enroll(t *testing.T) {
	t.Helper()
	require.NoError(t, f.core.Credentials.SetCredential(context.Background(), "u1", []byte("1234"), []byte("0000")))
}

// backdate moves the enrollment of every profile age into the past.
func (f *fixture) backdate(t *testing.T, age time.Duration) {
	t.Helper()
	_, err := f.db.Exec(`UPDATE credentials SET created_at = ?`, dbx.FormatTime(time.Now().Add(-age)))
	require.NoError(t, err)
}

// tick returns a clock that advances one second per call.
func tick(start time.Time) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Second)
		return cur
	}
}

func (f *fixture) countRows(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

func guardedScans(f *fixture) scans.Repository {
	return scans.Guarded(f.rm.Scans(f.db))
}
