package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"pulse/pkg/database/migrations"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// Serverless PG: keep pool small, connections short-lived
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetConnMaxIdleTime(30 * time.Second)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	log.Println("[DB] PostgreSQL connection established")
	return db, nil
}

func useEmbedded() error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	return nil
}

// Migrate applies every embedded migration that has not run yet.
func Migrate(db *sql.DB) error {
	return Run(context.Background(), db, "up")
}

// Run executes a goose command (up, down, status, redo, version...) against
// the embedded migrations.
func Run(ctx context.Context, db *sql.DB, command string, args ...string) error {
	if err := useEmbedded(); err != nil {
		return err
	}
	if err := goose.RunContext(ctx, command, db, ".", args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	log.Printf("[DB] goose %s done", command)
	return nil
}

// Migrations lists the embedded migration files in version order.
func Migrations() ([]string, error) {
	if err := useEmbedded(); err != nil {
		return nil, err
	}
	found, err := goose.CollectMigrations(".", 0, goose.MaxVersion)
	if err != nil {
		return nil, fmt.Errorf("collect migrations: %w", err)
	}
	names := make([]string, len(found))
	for i, m := range found {
		names[i] = filepath.Base(m.Source)
	}
	return names, nil
}
