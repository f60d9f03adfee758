// Package types defines the core data types shared by the store, the sync
// engine and the HTTP surface.
package types

import (
	"time"
)

// IssueSnapshot is the cached copy of one open issue of a repository.
// The pair (Repo, ID) is unique in the store.
type IssueSnapshot struct {
	// Immutable once cached
	ID        int64     `json:"id" yaml:"id"`
	Repo      string    `json:"repo" yaml:"repo"`
	URL       string    `json:"html_url" yaml:"html_url"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// Mutable, refreshed when UpdatedAt moves
	Title     string    `json:"title" yaml:"title"`
	Body      *string   `json:"body" yaml:"body,omitempty"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`

	// Set to the sync time on every insert or update
	CachedAt time.Time `json:"cached_at,omitempty" yaml:"cached_at,omitempty"`
}

// BodyText returns the issue body or "" when the issue has none.
func (i *IssueSnapshot) BodyText() string {
	if i.Body == nil {
		return ""
	}
	return *i.Body
}

// Validate checks the fields a snapshot must carry before it is stored.
func (i *IssueSnapshot) Validate() error {
	if i.ID <= 0 {
		return &ValidationError{Field: "id", Message: "issue id must be positive"}
	}
	if err := ValidateRepo(i.Repo); err != nil {
		return err
	}
	if i.CreatedAt.IsZero() {
		return &ValidationError{Field: "created_at", Message: "created_at is required"}
	}
	if i.UpdatedAt.IsZero() {
		return &ValidationError{Field: "updated_at", Message: "updated_at is required"}
	}
	return nil
}

// SyncMode identifies how a batch was applied to the store.
type SyncMode string

const (
	// SyncModeSmart only writes new and changed issues.
	SyncModeSmart SyncMode = "smart"
	// SyncModeFull clears the repository and reinserts the batch.
	SyncModeFull SyncMode = "full"
)

// SyncStats reports what a synchronization did to the store.
type SyncStats struct {
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Removed   int `json:"removed,omitempty"` // full refresh only
}

// Total returns the number of candidates the sync processed.
func (s SyncStats) Total() int {
	return s.Inserted + s.Updated + s.Unchanged
}

// RepoSync records the last successful synchronization of a repository.
type RepoSync struct {
	Repo         string    `json:"repo" yaml:"repo"`
	Mode         SyncMode  `json:"mode" yaml:"mode"`
	LastSyncedAt time.Time `json:"last_synced_at" yaml:"last_synced_at"`
	IssueCount   int       `json:"issue_count" yaml:"issue_count"`
	Stats        SyncStats `json:"stats" yaml:"stats"`
}
