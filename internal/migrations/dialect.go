package migrations

import (
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// The credential schema runs on PostgreSQL in production and in-memory
// SQLite in tests. Foreign keys must be declared inline on SQLite but are
// added as named constraints on PostgreSQL, so the schema migrations branch
// on these helpers.

// IsSQLite reports whether db speaks the SQLite dialect.
func IsSQLite(db *bun.DB) bool {
	return db.Dialect().Name() == dialect.SQLite
}

// IsPostgreSQL reports whether db speaks the PostgreSQL dialect.
func IsPostgreSQL(db *bun.DB) bool {
	return db.Dialect().Name() == dialect.PG
}
