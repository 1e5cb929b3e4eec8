package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/dmitrijs2005/keyproxy/internal/admin"
	"github.com/dmitrijs2005/keyproxy/internal/flagx"
	"github.com/dmitrijs2005/keyproxy/internal/server/config"
)

func main() {
	ctx := context.Background()
	args := os.Args[1:]

	cfg, err := config.LoadConfig(args)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	app, closeDB, err := admin.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	err = app.Run(ctx, flagx.Positional(args, config.ValueFlags))
	_ = closeDB()

	if errors.Is(err, admin.ErrUsage) {
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
}
