// Package sqlite - schema compatibility probing
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrSchemaIncompatible is returned when the database schema is incompatible with the current version
var ErrSchemaIncompatible = errors.New("database schema is incompatible")

// expectedSchema defines all expected tables and their required columns
// This is used to verify migrations completed successfully
var expectedSchema = map[string][]string{
	"issues":     {"id", "repo", "title", "body", "html_url", "created_at", "updated_at", "cached_at"},
	"repo_syncs": {"repo", "mode", "last_synced_at", "inserted", "updated", "unchanged", "removed"},
	"metadata":   {"key", "value"},
}

// probeOrder keeps probe results stable across runs
var probeOrder = []string{"issues", "repo_syncs", "metadata"}

// SchemaProbeResult contains the results of a schema compatibility check
type SchemaProbeResult struct {
	Compatible     bool
	MissingTables  []string
	MissingColumns map[string][]string // table -> missing columns
	ErrorMessage   string
}

// probeSchema verifies all expected tables and columns exist
// Returns SchemaProbeResult with details about any missing schema elements
func probeSchema(db *sql.DB) SchemaProbeResult {
	result := SchemaProbeResult{
		Compatible:     true,
		MissingTables:  []string{},
		MissingColumns: make(map[string][]string),
	}

	for _, table := range probeOrder {
		expectedCols := expectedSchema[table]
		// Try to query the table with all expected columns
		query := fmt.Sprintf("SELECT %s FROM %s LIMIT 0", strings.Join(expectedCols, ", "), table)
		_, err := db.Exec(query)

		if err != nil {
			errMsg := err.Error()

			// Check if table doesn't exist
			if strings.Contains(errMsg, "no such table") {
				result.Compatible = false
				result.MissingTables = append(result.MissingTables, table)
				continue
			}

			// Check if column doesn't exist
			if strings.Contains(errMsg, "no such column") {
				result.Compatible = false
				// Try to find which columns are missing
				missingCols := findMissingColumns(db, table, expectedCols)
				if len(missingCols) > 0 {
					result.MissingColumns[table] = missingCols
				}
			}
		}
	}

	// Build error message if incompatible
	if !result.Compatible {
		var parts []string
		if len(result.MissingTables) > 0 {
			parts = append(parts, fmt.Sprintf("missing tables: %s", strings.Join(result.MissingTables, ", ")))
		}
		for _, table := range probeOrder {
			if cols, ok := result.MissingColumns[table]; ok {
				parts = append(parts, fmt.Sprintf("missing columns in %s: %s", table, strings.Join(cols, ", ")))
			}
		}
		result.ErrorMessage = strings.Join(parts, "; ")
	}

	return result
}

// findMissingColumns determines which columns are missing from a table
func findMissingColumns(db *sql.DB, table string, expectedCols []string) []string {
	missing := []string{}

	for _, col := range expectedCols {
		query := fmt.Sprintf("SELECT %s FROM %s LIMIT 0", col, table)
		_, err := db.Exec(query)
		if err != nil && strings.Contains(err.Error(), "no such column") {
			missing = append(missing, col)
		}
	}

	return missing
}

// verifySchemaCompatibility runs schema probe and returns detailed error on failure
func verifySchemaCompatibility(db *sql.DB) error {
	result := probeSchema(db)

	if !result.Compatible {
		return fmt.Errorf("%w: %s", ErrSchemaIncompatible, result.ErrorMessage)
	}

	return nil
}

// ProbeSchema reports which expected tables and columns are missing from db.
func ProbeSchema(db *sql.DB) SchemaProbeResult {
	return probeSchema(db)
}
