package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/yashwanth-reddy909/ghia/internal/storage"
	"github.com/yashwanth-reddy909/ghia/internal/types"
)

// dbExecutor is satisfied by *sql.DB and *sql.Conn, so the same queries run
// inside and outside a transaction.
type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getUpdatedAt(ctx context.Context, q dbExecutor, repo string, id int64) (time.Time, bool, error) {
	var raw string
	err := q.QueryRowContext(ctx, `
		SELECT updated_at FROM issues WHERE id = ? AND repo = ?
	`, id, repo).Scan(&raw)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, types.NewStorageError("get updated_at", err)
	}
	t, err := parseTime(raw)
	if err != nil {
		return time.Time{}, false, types.NewStorageError("get updated_at", err)
	}
	return t, true, nil
}

// upsertIssue updates the mutable columns of an existing row and falls back
// to an insert when no row matched. Callers run it inside a transaction.
func upsertIssue(ctx context.Context, q dbExecutor, issue *types.IssueSnapshot) (bool, error) {
	if err := issue.Validate(); err != nil {
		return false, err
	}

	res, err := q.ExecContext(ctx, `
		UPDATE issues
		SET title = ?, body = ?, updated_at = ?, cached_at = ?
		WHERE id = ? AND repo = ?
	`, issue.Title, nullableString(issue.Body), formatTime(issue.UpdatedAt), formatTime(issue.CachedAt),
		issue.ID, issue.Repo)
	if err != nil {
		return false, types.NewStorageError(fmt.Sprintf("update issue %s#%d", issue.Repo, issue.ID), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, types.NewStorageError("read rows affected", err)
	}
	if n > 0 {
		return false, nil
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO issues (id, repo, title, body, html_url, created_at, updated_at, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, issue.ID, issue.Repo, issue.Title, nullableString(issue.Body), issue.URL,
		formatTime(issue.CreatedAt), formatTime(issue.UpdatedAt), formatTime(issue.CachedAt))
	if err != nil {
		return false, types.NewStorageError(fmt.Sprintf("insert issue %s#%d", issue.Repo, issue.ID), err)
	}
	return true, nil
}

func clearRepo(ctx context.Context, q dbExecutor, repo string) (int64, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM issues WHERE repo = ?`, repo)
	if err != nil {
		return 0, types.NewStorageError("clear repo "+repo, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, types.NewStorageError("read rows affected", err)
	}
	return n, nil
}

func clearRepoSync(ctx context.Context, q dbExecutor, repo string) (bool, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM repo_syncs WHERE repo = ?`, repo)
	if err != nil {
		return false, types.NewStorageError("clear sync record of "+repo, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, types.NewStorageError("read rows affected", err)
	}
	return n > 0, nil
}

func recordSync(ctx context.Context, q dbExecutor, sync *types.RepoSync) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO repo_syncs (repo, mode, last_synced_at, inserted, updated, unchanged, removed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (repo) DO UPDATE SET
			mode = excluded.mode,
			last_synced_at = excluded.last_synced_at,
			inserted = excluded.inserted,
			updated = excluded.updated,
			unchanged = excluded.unchanged,
			removed = excluded.removed
	`, sync.Repo, string(sync.Mode), formatTime(sync.LastSyncedAt),
		sync.Stats.Inserted, sync.Stats.Updated, sync.Stats.Unchanged, sync.Stats.Removed)
	if err != nil {
		return types.NewStorageError("record sync for "+sync.Repo, err)
	}
	return nil
}

// GetUpdatedAt returns the stored updated_at of (repo, id)
func (s *SQLiteStorage) GetUpdatedAt(ctx context.Context, repo string, id int64) (time.Time, bool, error) {
	return getUpdatedAt(ctx, s.db, repo, id)
}

// UpsertIssue inserts or refreshes a single issue in its own transaction
func (s *SQLiteStorage) UpsertIssue(ctx context.Context, issue *types.IssueSnapshot) (bool, error) {
	var inserted bool
	err := s.RunInTransaction(ctx, func(tx storage.Transaction) error {
		var err error
		inserted, err = tx.UpsertIssue(ctx, issue)
		return err
	})
	return inserted, err
}

// ClearRepo deletes all cached issues of repo
func (s *SQLiteStorage) ClearRepo(ctx context.Context, repo string) (int64, error) {
	return clearRepo(ctx, s.db, repo)
}

// ClearRepoSync deletes the recorded sync of repo
func (s *SQLiteStorage) ClearRepoSync(ctx context.Context, repo string) (bool, error) {
	return clearRepoSync(ctx, s.db, repo)
}

// RecordSync stores the last sync of a repository
func (s *SQLiteStorage) RecordSync(ctx context.Context, sync *types.RepoSync) error {
	return recordSync(ctx, s.db, sync)
}

// ListIssues returns the cached issues of repo ordered by created_at
// descending, then by insertion order.
//
// Insertion order is the implicit rowid. issues has no INTEGER PRIMARY KEY,
// so a VACUUM may renumber rows; nothing in ghia runs one.
func (s *SQLiteStorage) ListIssues(ctx context.Context, repo string) ([]*types.IssueSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, repo, title, body, html_url, created_at, updated_at, cached_at
		FROM issues
		WHERE repo = ?
		ORDER BY created_at DESC, rowid ASC
	`, repo)
	if err != nil {
		return nil, types.NewStorageError("list issues", err)
	}
	defer func() { _ = rows.Close() }()

	issues := []*types.IssueSnapshot{}
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, types.NewStorageError("scan issue", err)
		}
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewStorageError("iterate issues", err)
	}
	return issues, nil
}

func scanIssue(rows *sql.Rows) (*types.IssueSnapshot, error) {
	var issue types.IssueSnapshot
	var body sql.NullString
	var createdAt, updatedAt, cachedAt string
	if err := rows.Scan(&issue.ID, &issue.Repo, &issue.Title, &body, &issue.URL,
		&createdAt, &updatedAt, &cachedAt); err != nil {
		return nil, err
	}
	if body.Valid {
		issue.Body = &body.String
	}
	var err error
	if issue.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if issue.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if cachedAt != "" {
		if issue.CachedAt, err = parseTime(cachedAt); err != nil {
			return nil, err
		}
	}
	return &issue, nil
}

// CountIssues returns the number of cached issues for repo
func (s *SQLiteStorage) CountIssues(ctx context.Context, repo string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM issues WHERE repo = ?`, repo).Scan(&n); err != nil {
		return 0, types.NewStorageError("count issues", err)
	}
	return n, nil
}

const repoSyncColumns = `
	SELECT rs.repo, rs.mode, rs.last_synced_at, rs.inserted, rs.updated, rs.unchanged, rs.removed,
	       (SELECT COUNT(*) FROM issues i WHERE i.repo = rs.repo)
	FROM repo_syncs rs`

// GetRepoSync returns the last sync of repo, or nil if it was never synced
func (s *SQLiteStorage) GetRepoSync(ctx context.Context, repo string) (*types.RepoSync, error) {
	rows, err := s.db.QueryContext(ctx, repoSyncColumns+` WHERE rs.repo = ?`, repo)
	if err != nil {
		return nil, types.NewStorageError("get repo sync", err)
	}
	syncs, err := scanRepoSyncs(rows)
	if err != nil {
		return nil, err
	}
	if len(syncs) == 0 {
		return nil, nil
	}
	return syncs[0], nil
}

// ListRepos returns the last sync of every repository, most recent first
func (s *SQLiteStorage) ListRepos(ctx context.Context) ([]*types.RepoSync, error) {
	rows, err := s.db.QueryContext(ctx, repoSyncColumns+` ORDER BY rs.last_synced_at DESC, rs.repo ASC`)
	if err != nil {
		return nil, types.NewStorageError("list repos", err)
	}
	return scanRepoSyncs(rows)
}

func scanRepoSyncs(rows *sql.Rows) ([]*types.RepoSync, error) {
	defer func() { _ = rows.Close() }()

	var syncs []*types.RepoSync
	for rows.Next() {
		var rs types.RepoSync
		var mode, lastSynced string
		if err := rows.Scan(&rs.Repo, &mode, &lastSynced, &rs.Stats.Inserted, &rs.Stats.Updated,
			&rs.Stats.Unchanged, &rs.Stats.Removed, &rs.IssueCount); err != nil {
			return nil, types.NewStorageError("scan repo sync", err)
		}
		rs.Mode = types.SyncMode(mode)
		t, err := parseTime(lastSynced)
		if err != nil {
			return nil, types.NewStorageError("scan repo sync", err)
		}
		rs.LastSyncedAt = t
		syncs = append(syncs, &rs)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewStorageError("iterate repo syncs", err)
	}
	return syncs, nil
}
