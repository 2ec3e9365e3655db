package db

import (
	"embed"
	"io/fs"
	"os"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// getMigrationsFS returns the filesystem holding the migration files. The
// embedded copy is authoritative; setting SENSOR_REPORT_MIGRATIONS_DIR points
// at a local directory instead, which is handy while writing a new migration.
func getMigrationsFS() (fs.FS, error) {
	if dir := os.Getenv("SENSOR_REPORT_MIGRATIONS_DIR"); dir != "" {
		return os.DirFS(dir), nil
	}
	return fs.Sub(embeddedMigrations, "migrations")
}
