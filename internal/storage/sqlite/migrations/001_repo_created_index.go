package migrations

import (
	"database/sql"
	"fmt"
)

// MigrateRepoCreatedIndex creates the index backing ListIssues ordering.
func MigrateRepoCreatedIndex(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_issues_repo_created ON issues(repo, created_at DESC)`)
	if err != nil {
		return fmt.Errorf("failed to create index on (repo, created_at): %w", err)
	}
	return nil
}
