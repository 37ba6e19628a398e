// main.go
//
// Entry point for the GO BACK! server.
// Responsibilities:
//   - Load .env and set the log level.
//   - Read default game options (OPTIONS_FILE, YAML) if configured.
//   - Open + migrate the SQLite database.
//   - Start the HTTP server.

package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/goback/assets"
	"github.com/robalobadob/goback/internal/db"
	"github.com/robalobadob/goback/internal/game"
	"github.com/robalobadob/goback/internal/httpserver"
	"github.com/robalobadob/goback/internal/store"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if os.Getenv("NODE_ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cfg := httpserver.ConfigFromEnv()
	if path := os.Getenv("OPTIONS_FILE"); path != "" {
		opts, err := game.LoadOptions(path)
		if err != nil {
			log.Fatal().Err(err).Str("file", path).Msg("failed to load options")
		}
		cfg.Defaults = opts
	}

	sqlDB, err := db.Open(getEnv("DB_PATH", "./data/goback.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer sqlDB.Close()
	if err := db.Migrate(sqlDB, assets.Migrations()); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	srv := httpserver.New(cfg, store.NewMemoryStore(), sqlDB)
	port := getEnv("PORT", "5175")
	log.Info().Str("port", port).Msg("starting goback server")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
