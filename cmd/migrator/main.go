package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, or status")
		dir     = flag.String("dir", "db/migrations", "Directory containing migration files")
	)
	flag.Parse()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := run(logger, *command, *dir); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}
}

func run(logger zerolog.Logger, command, dir string) error {
	dsn, err := dsnFromEnv()
	if err != nil {
		return err
	}

	migrationDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve migration directory %q: %w", dir, err)
	}
	if _, err := os.Stat(migrationDir); err != nil {
		return fmt.Errorf("migration directory %q: %w", migrationDir, err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	logger.Info().Str("command", command).Str("dir", migrationDir).Msg("running migrations")

	switch command {
	case "up":
		return goose.Up(db, migrationDir)
	case "down":
		return goose.Down(db, migrationDir)
	case "status":
		return goose.Status(db, migrationDir)
	default:
		return fmt.Errorf("unknown command %q, use: up, down, or status", command)
	}
}

func dsnFromEnv() (string, error) {
	host := envOr("PG_HOST", "localhost")
	port := envOr("PG_PORT", "5432")
	sslMode := envOr("PG_SSL_MODE", "disable")

	user := os.Getenv("PG_USER")
	password := os.Getenv("PG_PASSWORD")
	database := os.Getenv("PG_DATABASE")
	if user == "" || password == "" || database == "" {
		return "", fmt.Errorf("PG_USER, PG_PASSWORD and PG_DATABASE must be set")
	}

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, database, sslMode), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
