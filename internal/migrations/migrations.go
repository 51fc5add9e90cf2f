package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is the registry every migration file attaches to via init().
var Migrations = migrate.NewMigrations()
