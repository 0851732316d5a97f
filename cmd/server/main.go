package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/stealthdetect/internal/config"
	"github.com/dmitrijs2005/stealthdetect/internal/server"
)

func main() {

	ctx := context.Background()
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	app, err := server.NewApp(ctx, cfg, os.Stdout)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
	}

}
