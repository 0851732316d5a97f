package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/stealthdetect/internal/cli"
	"github.com/dmitrijs2005/stealthdetect/internal/config"
	"github.com/dmitrijs2005/stealthdetect/internal/logging"
	"github.com/dmitrijs2005/stealthdetect/internal/repositories/repomanager"
	"github.com/dmitrijs2005/stealthdetect/internal/services"
	"github.com/dmitrijs2005/stealthdetect/internal/storage"
	"golang.org/x/term"
)

func main() {

	ctx := context.Background()
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("%v", err)
	}
	logger := logging.NewConsoleLogger(os.Stderr, level, !term.IsTerminal(int(os.Stderr.Fd())))

	rm := repomanager.NewSQLiteRepositoryManager()
	db, err := storage.Open(ctx, cfg.DatabaseDSN, rm)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer db.Close()

	core := services.NewCore(db, rm, cfg.HashParams(), logger)
	app := cli.NewApp(core, cfg.UserID, logger, os.Stdin, os.Stdout)

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, err.Error())
	}

}
