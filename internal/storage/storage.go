// Package storage defines the interface for issue cache storage backends.
package storage

import (
	"context"
	"time"

	"github.com/yashwanth-reddy909/ghia/internal/types"
)

// Transaction is the set of store operations available inside
// RunInTransaction. All of them observe the writes made earlier in the same
// transaction.
type Transaction interface {
	// GetUpdatedAt returns the stored updated_at for (repo, id) and whether
	// the issue exists.
	GetUpdatedAt(ctx context.Context, repo string, id int64) (time.Time, bool, error)

	// UpsertIssue inserts the snapshot when (repo, id) is absent, otherwise
	// overwrites the mutable fields (title, body, updated_at, cached_at).
	// Reports whether a row was inserted.
	UpsertIssue(ctx context.Context, issue *types.IssueSnapshot) (bool, error)

	// ClearRepo deletes every cached issue of repo and returns the count.
	ClearRepo(ctx context.Context, repo string) (int64, error)

	// RecordSync stores the outcome of a successful synchronization.
	RecordSync(ctx context.Context, sync *types.RepoSync) error

	// ClearRepoSync forgets the recorded sync of repo. Reports whether one
	// existed.
	ClearRepoSync(ctx context.Context, repo string) (bool, error)
}

// Storage is the Issue Record Store.
type Storage interface {
	Transaction

	// ListIssues returns the cached issues of repo, newest created first.
	// Issues created at the same instant keep insertion order.
	ListIssues(ctx context.Context, repo string) ([]*types.IssueSnapshot, error)

	// CountIssues returns the number of cached issues of repo.
	CountIssues(ctx context.Context, repo string) (int, error)

	// GetRepoSync returns the last recorded sync of repo, or nil.
	GetRepoSync(ctx context.Context, repo string) (*types.RepoSync, error)

	// ListRepos returns the last recorded sync of every repository.
	ListRepos(ctx context.Context) ([]*types.RepoSync, error)

	// RunInTransaction runs fn in a single write transaction. The transaction
	// commits only when fn returns nil; any error or panic rolls it back.
	RunInTransaction(ctx context.Context, fn func(tx Transaction) error) error

	Path() string
	Close() error
}
