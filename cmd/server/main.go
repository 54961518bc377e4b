package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/supportchat/internal/server"
	"github.com/dmitrijs2005/supportchat/internal/server/config"
)

func main() {

	ctx := context.Background()

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := server.NewLogger()

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)

}
