package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite3 "github.com/ncruces/go-sqlite3"

	"github.com/yashwanth-reddy909/ghia/internal/storage"
	"github.com/yashwanth-reddy909/ghia/internal/types"
)

// Verify sqliteTxStorage implements storage.Transaction at compile time
var _ storage.Transaction = (*sqliteTxStorage)(nil)

// sqliteTxStorage implements storage.Transaction on a dedicated connection
// holding an open transaction.
type sqliteTxStorage struct {
	conn *sql.Conn
}

// RunInTransaction executes fn within a database transaction.
//
// BEGIN IMMEDIATE takes the write lock up front, so two syncs of the same
// database never deadlock upgrading a read lock. The transaction commits only
// if fn returns nil. On error or panic it is rolled back and a panic is
// re-raised to the caller.
func (s *SQLiteStorage) RunInTransaction(ctx context.Context, fn func(tx storage.Transaction) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return types.NewStorageError("acquire connection for transaction", err)
	}
	defer func() { _ = conn.Close() }()

	if err := beginImmediateWithRetry(ctx, conn, 5, 10*time.Millisecond); err != nil {
		return types.NewStorageError("begin transaction", err)
	}

	committed := false
	defer func() {
		if !committed {
			// Background context so the rollback runs even when ctx is canceled
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			panic(r)
		}
	}()

	if err := fn(&sqliteTxStorage{conn: conn}); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return types.NewStorageError("commit transaction", err)
	}
	committed = true
	return nil
}

// beginImmediateWithRetry starts an IMMEDIATE transaction, backing off
// exponentially while another writer holds the lock.
func beginImmediateWithRetry(ctx context.Context, conn *sql.Conn, maxRetries int, initialDelay time.Duration) error {
	delay := initialDelay
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		_, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE")
		if err == nil {
			return nil
		}
		lastErr = err
		if !isBusyError(err) {
			return err
		}
		if attempt == maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("database still busy after %d retries: %w", maxRetries, lastErr)
}

func isBusyError(err error) bool {
	if errors.Is(err, sqlite3.BUSY) || errors.Is(err, sqlite3.LOCKED) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// GetUpdatedAt reads the stored updated_at inside the transaction.
func (t *sqliteTxStorage) GetUpdatedAt(ctx context.Context, repo string, id int64) (time.Time, bool, error) {
	return getUpdatedAt(ctx, t.conn, repo, id)
}

// UpsertIssue writes a snapshot inside the transaction.
func (t *sqliteTxStorage) UpsertIssue(ctx context.Context, issue *types.IssueSnapshot) (bool, error) {
	return upsertIssue(ctx, t.conn, issue)
}

func (t *sqliteTxStorage) ClearRepo(ctx context.Context, repo string) (int64, error) {
	return clearRepo(ctx, t.conn, repo)
}

func (t *sqliteTxStorage) ClearRepoSync(ctx context.Context, repo string) (bool, error) {
	return clearRepoSync(ctx, t.conn, repo)
}

func (t *sqliteTxStorage) RecordSync(ctx context.Context, sync *types.RepoSync) error {
	return recordSync(ctx, t.conn, sync)
}
