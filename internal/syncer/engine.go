// Package syncer reconciles freshly fetched issue batches against the issue
// store and serves the cached set back in creation order.
package syncer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/yashwanth-reddy909/ghia/internal/storage"
	"github.com/yashwanth-reddy909/ghia/internal/types"
)

// Engine applies issue batches to a store. Operations on the same repository
// are serialized; different repositories proceed in parallel.
type Engine struct {
	store  storage.Storage
	locks  *repoLocks
	now    func() time.Time
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for cached_at and sync timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger sync outcomes are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New returns an Engine backed by store.
func New(store storage.Storage, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		locks:  newRepoLocks(),
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the underlying store.
func (e *Engine) Store() storage.Storage {
	return e.store
}

// SmartSync reconciles issues against the cached snapshots of repo in one
// transaction. New ids are inserted, ids whose updated_at moved get their
// mutable fields rewritten, and everything else is left untouched. Cached
// issues missing from the batch are kept.
//
// On any failure nothing is written and the returned stats are zero.
func (e *Engine) SmartSync(ctx context.Context, repo string, issues []*types.IssueSnapshot) (types.SyncStats, error) {
	candidates, err := prepare(repo, issues)
	if err != nil {
		return types.SyncStats{}, err
	}

	unlock := e.locks.lock(repo)
	defer unlock()

	now := e.now().UTC()
	var stats types.SyncStats
	err = e.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		stats = types.SyncStats{}
		for _, c := range candidates {
			stored, ok, err := tx.GetUpdatedAt(ctx, repo, c.ID)
			if err != nil {
				return err
			}
			if ok && stored.Equal(c.UpdatedAt) {
				stats.Unchanged++
				continue
			}

			c.CachedAt = now
			if _, err := tx.UpsertIssue(ctx, c); err != nil {
				return err
			}
			if ok {
				stats.Updated++
			} else {
				stats.Inserted++
			}
		}
		return tx.RecordSync(ctx, &types.RepoSync{
			Repo:         repo,
			Mode:         types.SyncModeSmart,
			LastSyncedAt: now,
			Stats:        stats,
		})
	})
	if err != nil {
		e.logger.Error("smart sync failed", "repo", repo, "candidates", len(candidates), "error", err)
		return types.SyncStats{}, types.NewStorageError("sync "+repo, err)
	}

	e.logger.Info("smart sync complete", "repo", repo,
		"inserted", stats.Inserted, "updated", stats.Updated, "unchanged", stats.Unchanged)
	return stats, nil
}

// FullRefresh replaces every cached issue of repo with issues in one
// transaction. Issues that are no longer open upstream are dropped.
func (e *Engine) FullRefresh(ctx context.Context, repo string, issues []*types.IssueSnapshot) (types.SyncStats, error) {
	candidates, err := prepare(repo, issues)
	if err != nil {
		return types.SyncStats{}, err
	}

	unlock := e.locks.lock(repo)
	defer unlock()

	now := e.now().UTC()
	var stats types.SyncStats
	err = e.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		stats = types.SyncStats{}
		removed, err := tx.ClearRepo(ctx, repo)
		if err != nil {
			return err
		}
		stats.Removed = int(removed)

		for _, c := range candidates {
			c.CachedAt = now
			inserted, err := tx.UpsertIssue(ctx, c)
			if err != nil {
				return err
			}
			// A repeated id within the batch overwrites its first occurrence
			if inserted {
				stats.Inserted++
			} else {
				stats.Updated++
			}
		}
		return tx.RecordSync(ctx, &types.RepoSync{
			Repo:         repo,
			Mode:         types.SyncModeFull,
			LastSyncedAt: now,
			Stats:        stats,
		})
	})
	if err != nil {
		e.logger.Error("full refresh failed", "repo", repo, "candidates", len(candidates), "error", err)
		return types.SyncStats{}, types.NewStorageError("refresh "+repo, err)
	}

	e.logger.Info("full refresh complete", "repo", repo, "cached", stats.Total(), "removed", stats.Removed)
	return stats, nil
}

// Clear removes every cached issue of repo together with its sync record,
// so the repository reads as never synchronized afterwards.
func (e *Engine) Clear(ctx context.Context, repo string) (int64, error) {
	if err := types.ValidateRepo(repo); err != nil {
		return 0, err
	}

	unlock := e.locks.lock(repo)
	defer unlock()

	var removed int64
	err := e.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		var err error
		if removed, err = tx.ClearRepo(ctx, repo); err != nil {
			return err
		}
		_, err = tx.ClearRepoSync(ctx, repo)
		return err
	})
	if err != nil {
		e.logger.Error("clear failed", "repo", repo, "error", err)
		return 0, types.NewStorageError("clear "+repo, err)
	}

	e.logger.Info("cleared repository", "repo", repo, "removed", removed)
	return removed, nil
}

// Issues returns the cached issues of repo, newest created first. A repository
// that was never synchronized yields an empty slice.
func (e *Engine) Issues(ctx context.Context, repo string) ([]*types.IssueSnapshot, error) {
	if err := types.ValidateRepo(repo); err != nil {
		return nil, err
	}

	// Readers wait for an in-flight sync of the same repo, so they only see
	// committed batches.
	unlock := e.locks.lock(repo)
	defer unlock()

	return e.store.ListIssues(ctx, repo)
}

// LastSync returns the last successful sync of repo, or nil.
func (e *Engine) LastSync(ctx context.Context, repo string) (*types.RepoSync, error) {
	if err := types.ValidateRepo(repo); err != nil {
		return nil, err
	}
	return e.store.GetRepoSync(ctx, repo)
}

// prepare validates the batch and returns private copies, so the engine never
// writes to snapshots owned by the caller.
func prepare(repo string, issues []*types.IssueSnapshot) ([]*types.IssueSnapshot, error) {
	if err := types.ValidateRepo(repo); err != nil {
		return nil, err
	}

	out := make([]*types.IssueSnapshot, 0, len(issues))
	for i, issue := range issues {
		if issue == nil {
			return nil, &types.ValidationError{Field: "issues", Message: fmt.Sprintf("entry %d is nil", i)}
		}
		c := *issue
		if c.Repo == "" {
			c.Repo = repo
		}
		if c.Repo != repo {
			return nil, &types.ValidationError{
				Field:   "issues",
				Message: fmt.Sprintf("issue %d belongs to %s, not %s", c.ID, c.Repo, repo),
			}
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, nil
}
