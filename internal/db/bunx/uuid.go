package bunx

import "github.com/google/uuid"

// NewUUIDv7 generates a time-ordered UUIDv7 string for database primary
// keys. Generated in code rather than by the database so the same schema
// works on PostgreSQL and SQLite. Panics only if the entropy source fails,
// at which point nothing else works either.
func NewUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}
