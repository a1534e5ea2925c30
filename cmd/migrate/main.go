package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"pulse/pkg/config"
	"pulse/pkg/database"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: migrate [-config path] <list|up|down|status|redo|version> [args]")
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}
	command, args := flag.Arg(0), flag.Args()[1:]

	if command == "list" {
		names, err := database.Migrations()
		if err != nil {
			log.Fatalf("[DB] %v", err)
		}
		fmt.Printf("Collected %d migrations\n", len(names))
		for _, n := range names {
			fmt.Printf(" - %s\n", n)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[DB] config: %v", err)
	}
	if cfg.Storage != "postgres" {
		log.Fatalf("[DB] storage is %q, nothing to migrate", cfg.Storage)
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("[DB] %v", err)
	}
	defer db.Close()

	if err := database.Run(ctx, db, command, args...); err != nil {
		log.Fatalf("[DB] %v", err)
	}
}
