package grpc

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/stealthdetect/internal/cryptox"
	"github.com/dmitrijs2005/stealthdetect/internal/dbx"
	"github.com/dmitrijs2005/stealthdetect/internal/logging"
	"github.com/dmitrijs2005/stealthdetect/internal/repositories/repomanager"
	"github.com/dmitrijs2005/stealthdetect/internal/services"
	"github.com/dmitrijs2005/stealthdetect/internal/storage"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

var testSecret = []byte("test-secret")

func newCore(t *testing.T) *services.Core {
	t.Helper()
	rm := repomanager.NewSQLiteRepositoryManager()
	db, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "daemon.db"), rm)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	core := services.NewCore(db, rm, cryptox.HashParams{Time: 1, MemoryKiB: 1024, Threads: 1, KeyLen: 32}, nopLogger{})
	require.NoError(t, core.Credentials.SetCredential(context.Background(), "u1", []byte("1234"), []byte("0000")))

	// a month-old profile, so the decoy view has a history to show
	_, err = db.Exec(`UPDATE credentials SET created_at = ?`, dbx.FormatTime(time.Now().Add(-30*24*time.Hour)))
	require.NoError(t, err)
	return core
}

// startServer serves core over an in-memory listener until the test ends
// and returns a constructor for clients connected to it.
func startServer(t *testing.T, core *services.Core) func(t *testing.T) *Client {
	t.Helper()
	srv := NewGRPCServer("bufnet", nopLogger{}, core, testSecret, time.Minute)
	lis := bufconn.Listen(1 << 20)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	dialer := func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }
	return func(t *testing.T) *Client {
		t.Helper()
		c, err := NewClient("passthrough:///bufnet", grpc.WithContextDialer(dialer))
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })
		return c
	}
}
