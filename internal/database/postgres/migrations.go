package postgres

import (
	"context"
	"embed"

	"github.com/kozaktomas/attendai/internal/database"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies all pending migrations automatically on startup
func (p *Pool) Migrate(ctx context.Context) error {
	m := &database.Migrator{DB: p.db, FS: migrationsFS, Dir: "migrations", Placeholder: "$1"}
	_, err := m.Migrate(ctx)
	return err
}
