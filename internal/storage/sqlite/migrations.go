package sqlite

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/yashwanth-reddy909/ghia/internal/storage/sqlite/migrations"
)

// Migration is a single idempotent schema change.
type Migration struct {
	Name string
	Func func(*sql.DB) error
}

var migrationsList = []Migration{
	{"repo_created_index", migrations.MigrateRepoCreatedIndex},
}

// SchemaVersion is the number of migrations this build knows about.
func SchemaVersion() int {
	return len(migrationsList)
}

// RunMigrations applies every migration in order and records the resulting
// schema version in the metadata table. Each migration is idempotent, so it
// is safe to run on every open.
func RunMigrations(db *sql.DB) error {
	for _, m := range migrationsList {
		if err := m.Func(db); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.Name, err)
		}
	}

	_, err := db.Exec(`
		INSERT INTO metadata (key, value) VALUES ('schema_version', ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, strconv.Itoa(SchemaVersion()))
	if err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}

// StoredSchemaVersion returns the schema version recorded by the last
// RunMigrations, or 0 when none was recorded.
func StoredSchemaVersion(db *sql.DB) (int, error) {
	var raw string
	err := db.QueryRow(`SELECT value FROM metadata WHERE key = 'schema_version'`).Scan(&raw)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid schema version %q: %w", raw, err)
	}
	return v, nil
}
