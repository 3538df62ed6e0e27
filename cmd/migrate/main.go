// Command migrate applies the embedded schema migrations and, with -seed,
// loads the demo catalog.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	characterrepo "github.com/maplewind/maplewind-api/internal/character/repo"
	"github.com/maplewind/maplewind-api/pkg/database"
	"github.com/maplewind/maplewind-api/pkg/utilities"
)

func main() {
	seed := flag.Bool("seed", false, "load the demo characters and settlements after migrating")
	flag.Parse()

	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = lg.Sync() }()
	sugar := lg.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := database.ConfigFromEnv()
	if err != nil {
		sugar.Fatalw("database config", "error", err)
	}
	sqlDB, err := database.Connect(cfg)
	if err != nil {
		sugar.Fatalw("db connect", "error", err)
	}
	defer sqlDB.Close()

	if err := database.Migrate(ctx, sqlDB, sugar.Named("goose")); err != nil {
		sugar.Fatalw("migrate", "error", err)
	}
	sugar.Info("migrations applied")

	if !*seed {
		return
	}
	n, err := seedCatalog(ctx, characterrepo.NewRepo(sqlx.NewDb(sqlDB, "postgres")))
	if err != nil {
		sugar.Fatalw("seed", "error", err)
	}
	sugar.Infow("demo catalog loaded", "characters", n)
}
