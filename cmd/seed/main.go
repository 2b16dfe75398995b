// Seed fills the configured database with demo profiles and interaction
// edges for local development.
package main

import (
	"os"

	"tanishuv-bot/internal/config"
	"tanishuv-bot/internal/db"
	"tanishuv-bot/internal/logger"
)

func main() {
	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.L()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	if err := db.SeedDemoData(database); err != nil {
		log.Error("failed to seed demo data", "err", err)
		os.Exit(1)
	}
	log.Info("demo data seeded")
}
