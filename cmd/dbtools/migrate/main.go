// Applies schema migrations to a dev backend database outside the server
// process, which normally migrates on startup. Useful for inspecting a
// database at an intermediate schema version.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	var (
		dbPath         = flag.String("db", "devbackend.db", "path to SQLite database")
		migrationsPath = flag.String("migrations", "internal/devbackend/migrations", "path to migrations directory")
		command        = flag.String("command", "", "command to run (up, down, version)")
	)
	flag.Parse()

	if *command == "" {
		flag.Usage()
		os.Exit(1)
	}

	m, err := migrate.New(
		fmt.Sprintf("file://%s", *migrationsPath),
		fmt.Sprintf("sqlite3://%s", *dbPath),
	)
	if err != nil {
		log.Fatalf("migrate init failed: %v", err)
	}
	defer m.Close()

	switch *command {
	case "up":
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("migrate up failed: %v", err)
		}
	case "down":
		if err := m.Down(); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("migrate down failed: %v", err)
		}
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			log.Fatalf("read version failed: %v", err)
		}
		fmt.Printf("version: %d, dirty: %v\n", version, dirty)
	default:
		log.Fatalf("unknown command: %s", *command)
	}
}
