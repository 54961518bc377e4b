// Command admin creates an administrator account. It reads the same
// database settings as the server (-d, -c) plus -email and -name, and asks
// for the password on the terminal.
package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/supportchat/internal/admincli"
	"github.com/dmitrijs2005/supportchat/internal/server"
	"github.com/dmitrijs2005/supportchat/internal/server/config"
	"github.com/dmitrijs2005/supportchat/internal/server/repositories/repomanager"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := server.NewLogger()

	db, err := server.OpenDB(ctx, cfg, repomanager.NewPostgresRepositoryManager())
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer db.Close()

	users, audit := server.NewUserService(db, cfg, logger)
	defer audit.Close()

	if err := admincli.Run(ctx, os.Args[1:], users, int(os.Stdin.Fd()), os.Stdout); err != nil {
		log.Printf("admin: %v", err)
		audit.Close()
		db.Close()
		os.Exit(1)
	}
}
