// Package server initializes and runs the StealthDetect daemon.
// It opens storage, builds the shared core, handles graceful shutdown
// and serves the local gRPC API.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/stealthdetect/internal/common"
	"github.com/dmitrijs2005/stealthdetect/internal/config"
	"github.com/dmitrijs2005/stealthdetect/internal/logging"
	"github.com/dmitrijs2005/stealthdetect/internal/repositories/repomanager"
	"github.com/dmitrijs2005/stealthdetect/internal/services"
	"github.com/dmitrijs2005/stealthdetect/internal/storage"

	gs "github.com/dmitrijs2005/stealthdetect/internal/grpc"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	core   *services.Core
	secret []byte
}

func NewApp(ctx context.Context, c *config.Config, logOut io.Writer) (*App, error) {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.NewJSONLogger(logOut, level)

	rm := repomanager.NewSQLiteRepositoryManager()
	db, err := storage.Open(ctx, c.DatabaseDSN, rm)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	secret := []byte(c.SecretKey)
	if len(secret) == 0 {
		secret = common.GenerateRandByteArray(32)
		logger.Warn(ctx, "no secret key configured, session tokens will not survive a restart")
	}

	core := services.NewCore(db, rm, c.HashParams(), logger)
	return &App{config: c, logger: logger, db: db, core: core, secret: secret}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.core, app.secret, app.config.SessionTokenValidityDuration)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// closes the database.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.logger.Info(context.Background(), "Stopped")
	return app.db.Close()
}
