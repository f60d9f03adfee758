package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/yashwanth-reddy909/ghia/internal/storage"
	"github.com/yashwanth-reddy909/ghia/internal/storage/sqlite"
	"github.com/yashwanth-reddy909/ghia/internal/testutil/fixtures"
	"github.com/yashwanth-reddy909/ghia/internal/types"
)

const repo = "acme/widgets"

var (
	t1 = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	t2 = t1.Add(24 * time.Hour)
	t3 = t2.Add(24 * time.Hour)
)

func newStore(t *testing.T) *sqlite.SQLiteStorage {
	t.Helper()
	store, err := sqlite.New(t.TempDir() + "/cache.db")
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newEngine(t *testing.T, store storage.Storage) (*Engine, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: t3.Add(time.Hour)}
	return New(store, WithClock(clock.Now)), clock
}

func issue(id int64, title string, created, updated time.Time) *types.IssueSnapshot {
	body := "details for " + title
	return &types.IssueSnapshot{
		ID:        id,
		Repo:      repo,
		URL:       fmt.Sprintf("https://github.com/%s/issues/%d", repo, id),
		CreatedAt: created,
		Title:     title,
		Body:      &body,
		UpdatedAt: updated,
	}
}

func ids(issues []*types.IssueSnapshot) []int64 {
	out := make([]int64, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.ID)
	}
	return out
}

func TestSmartSync_Idempotent(t *testing.T) {
	engine, _ := newEngine(t, newStore(t))
	ctx := context.Background()

	cfg := fixtures.DefaultLargeConfig()
	cfg.Repo = repo
	cfg.TotalIssues = 25
	batch := fixtures.Generate(cfg)

	first, err := engine.SmartSync(ctx, repo, batch)
	if err != nil {
		t.Fatalf("first SmartSync failed: %v", err)
	}
	if want := (types.SyncStats{Inserted: 25}); first != want {
		t.Errorf("first sync stats = %+v, want %+v", first, want)
	}

	second, err := engine.SmartSync(ctx, repo, batch)
	if err != nil {
		t.Fatalf("second SmartSync failed: %v", err)
	}
	if want := (types.SyncStats{Unchanged: 25}); second != want {
		t.Errorf("second sync stats = %+v, want %+v", second, want)
	}
}

func TestSmartSync_UpdateDetection(t *testing.T) {
	engine, clock := newEngine(t, newStore(t))
	ctx := context.Background()

	original := issue(1, "Crash on start", t1, t1)
	if _, err := engine.SmartSync(ctx, repo, []*types.IssueSnapshot{original}); err != nil {
		t.Fatalf("SmartSync failed: %v", err)
	}
	firstCachedAt := clock.Now()
	clock.Advance(time.Hour)

	edited := issue(1, "Crash on start (regression)", t1, t2)
	edited.Body = nil
	// Immutable fields in the candidate must not be rewritten
	edited.URL = "https://example.invalid/moved"
	edited.CreatedAt = t3

	stats, err := engine.SmartSync(ctx, repo, []*types.IssueSnapshot{edited})
	if err != nil {
		t.Fatalf("SmartSync failed: %v", err)
	}
	if want := (types.SyncStats{Updated: 1}); stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}

	got, err := engine.Issues(ctx, repo)
	if err != nil {
		t.Fatalf("Issues failed: %v", err)
	}
	want := &types.IssueSnapshot{
		ID:        1,
		Repo:      repo,
		URL:       original.URL,
		CreatedAt: t1,
		Title:     "Crash on start (regression)",
		Body:      nil,
		UpdatedAt: t2,
		CachedAt:  clock.Now(),
	}
	if diff := cmp.Diff([]*types.IssueSnapshot{want}, got); diff != "" {
		t.Errorf("cached issue mismatch (-want +got):\n%s", diff)
	}
	if got[0].CachedAt.Equal(firstCachedAt) {
		t.Error("cached_at should move when the issue is updated")
	}
}

func TestSmartSync_UnchangedRowsUntouched(t *testing.T) {
	engine, clock := newEngine(t, newStore(t))
	ctx := context.Background()

	batch := []*types.IssueSnapshot{issue(1, "a", t1, t1)}
	if _, err := engine.SmartSync(ctx, repo, batch); err != nil {
		t.Fatalf("SmartSync failed: %v", err)
	}
	cachedAt := clock.Now()
	clock.Advance(time.Hour)

	// A different title with the same updated_at is not a change
	batch[0].Title = "retitled without bumping updated_at"
	if _, err := engine.SmartSync(ctx, repo, batch); err != nil {
		t.Fatalf("SmartSync failed: %v", err)
	}

	got, _ := engine.Issues(ctx, repo)
	if got[0].Title != "a" || !got[0].CachedAt.Equal(cachedAt) {
		t.Errorf("unchanged row was rewritten: title=%q cached_at=%v", got[0].Title, got[0].CachedAt)
	}
}

func TestSmartSync_NoSilentDeletion(t *testing.T) {
	engine, _ := newEngine(t, newStore(t))
	ctx := context.Background()

	if _, err := engine.SmartSync(ctx, repo, []*types.IssueSnapshot{
		issue(1, "closed upstream later", t1, t1),
		issue(2, "still open", t2, t2),
	}); err != nil {
		t.Fatalf("SmartSync failed: %v", err)
	}

	stats, err := engine.SmartSync(ctx, repo, []*types.IssueSnapshot{issue(2, "still open", t2, t2)})
	if err != nil {
		t.Fatalf("SmartSync failed: %v", err)
	}
	if want := (types.SyncStats{Unchanged: 1}); stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}

	got, _ := engine.Issues(ctx, repo)
	if diff := cmp.Diff([]int64{2, 1}, ids(got)); diff != "" {
		t.Errorf("cached ids mismatch (-want +got):\n%s", diff)
	}
}

func TestSmartSync_EmptyBatchIsSuccess(t *testing.T) {
	engine, _ := newEngine(t, newStore(t))

	stats, err := engine.SmartSync(context.Background(), repo, nil)
	if err != nil {
		t.Fatalf("SmartSync with empty batch failed: %v", err)
	}
	if stats != (types.SyncStats{}) {
		t.Errorf("stats = %+v, want zero", stats)
	}

	last, err := engine.LastSync(context.Background(), repo)
	if err != nil || last == nil {
		t.Fatalf("LastSync = (%v, %v), want a recorded sync", last, err)
	}
	if last.Mode != types.SyncModeSmart {
		t.Errorf("LastSync mode = %q, want %q", last.Mode, types.SyncModeSmart)
	}
}

func TestSmartSync_DuplicateIDsInBatch(t *testing.T) {
	engine, _ := newEngine(t, newStore(t))

	stats, err := engine.SmartSync(context.Background(), repo, []*types.IssueSnapshot{
		issue(1, "first", t1, t1),
		issue(1, "second", t1, t2),
		issue(1, "second again", t1, t2),
	})
	if err != nil {
		t.Fatalf("SmartSync failed: %v", err)
	}
	if want := (types.SyncStats{Inserted: 1, Updated: 1, Unchanged: 1}); stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
	got, _ := engine.Issues(context.Background(), repo)
	if len(got) != 1 || got[0].Title != "second" {
		t.Errorf("cached = %+v, want single issue titled \"second\"", got)
	}
}

func TestSmartSync_DoesNotMutateInput(t *testing.T) {
	engine, _ := newEngine(t, newStore(t))

	in := issue(1, "a", t1, t1)
	in.Repo = ""
	if _, err := engine.SmartSync(context.Background(), repo, []*types.IssueSnapshot{in}); err != nil {
		t.Fatalf("SmartSync failed: %v", err)
	}
	if in.Repo != "" || !in.CachedAt.IsZero() {
		t.Errorf("input snapshot was modified: %+v", in)
	}
}

// faultyStore fails the k-th UpsertIssue of every transaction.
type faultyStore struct {
	storage.Storage
	failAt int
}

type faultyTx struct {
	storage.Transaction
	failAt  int
	upserts int
}

var errInjected = errors.New("injected disk failure")

func (s *faultyStore) RunInTransaction(ctx context.Context, fn func(tx storage.Transaction) error) error {
	return s.Storage.RunInTransaction(ctx, func(tx storage.Transaction) error {
		return fn(&faultyTx{Transaction: tx, failAt: s.failAt})
	})
}

func (t *faultyTx) UpsertIssue(ctx context.Context, issue *types.IssueSnapshot) (bool, error) {
	t.upserts++
	if t.upserts == t.failAt {
		return false, errInjected
	}
	return t.Transaction.UpsertIssue(ctx, issue)
}

func TestSmartSync_AtomicOnFailure(t *testing.T) {
	store := newStore(t)
	healthy, _ := newEngine(t, store)
	ctx := context.Background()

	seed := []*types.IssueSnapshot{issue(1, "one", t1, t1), issue(2, "two", t2, t2)}
	if _, err := healthy.SmartSync(ctx, repo, seed); err != nil {
		t.Fatalf("seed SmartSync failed: %v", err)
	}
	before, _ := store.ListIssues(ctx, repo)
	beforeSync, _ := store.GetRepoSync(ctx, repo)

	// Update 1, insert 3 and 4; the third write fails
	faulty, _ := newEngine(t, &faultyStore{Storage: store, failAt: 3})
	stats, err := faulty.SmartSync(ctx, repo, []*types.IssueSnapshot{
		issue(1, "one edited", t1, t3),
		issue(3, "three", t3, t3),
		issue(4, "four", t3, t3),
		issue(2, "two", t2, t2),
	})
	if err == nil {
		t.Fatal("expected SmartSync to fail")
	}
	if !errors.Is(err, types.ErrStorage) || !errors.Is(err, errInjected) {
		t.Errorf("error = %v, want storage failure wrapping the injected fault", err)
	}
	if stats != (types.SyncStats{}) {
		t.Errorf("failed sync reported stats %+v, want zero", stats)
	}

	after, _ := store.ListIssues(ctx, repo)
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("store changed after failed sync (-before +after):\n%s", diff)
	}
	afterSync, _ := store.GetRepoSync(ctx, repo)
	if diff := cmp.Diff(beforeSync, afterSync); diff != "" {
		t.Errorf("sync record changed after failed sync (-before +after):\n%s", diff)
	}
}

func TestIssues_Ordering(t *testing.T) {
	engine, _ := newEngine(t, newStore(t))
	ctx := context.Background()

	if _, err := engine.SmartSync(ctx, repo, []*types.IssueSnapshot{
		issue(30, "c", t3, t3),
		issue(10, "a", t1, t1),
		issue(20, "b", t2, t2),
	}); err != nil {
		t.Fatalf("SmartSync failed: %v", err)
	}

	got, err := engine.Issues(ctx, repo)
	if err != nil {
		t.Fatalf("Issues failed: %v", err)
	}
	if diff := cmp.Diff([]int64{30, 20, 10}, ids(got)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestIssues_NeverSynced(t *testing.T) {
	engine, _ := newEngine(t, newStore(t))

	got, err := engine.Issues(context.Background(), "nobody/nothing")
	if err != nil {
		t.Fatalf("Issues failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Issues = %#v, want empty slice", got)
	}
}

// countingStore records whether any store operation ran.
type countingStore struct {
	storage.Storage
	calls int
}

func (s *countingStore) RunInTransaction(ctx context.Context, fn func(tx storage.Transaction) error) error {
	s.calls++
	return s.Storage.RunInTransaction(ctx, fn)
}

func (s *countingStore) ListIssues(ctx context.Context, repo string) ([]*types.IssueSnapshot, error) {
	s.calls++
	return s.Storage.ListIssues(ctx, repo)
}

func TestValidation_RejectedBeforeStore(t *testing.T) {
	store := &countingStore{Storage: newStore(t)}
	engine, _ := newEngine(t, store)
	ctx := context.Background()

	if _, err := engine.SmartSync(ctx, "not-a-valid-repo", []*types.IssueSnapshot{issue(1, "a", t1, t1)}); !errors.Is(err, types.ErrValidation) {
		t.Errorf("SmartSync error = %v, want validation failure", err)
	}
	if _, err := engine.FullRefresh(ctx, "not-a-valid-repo", nil); !errors.Is(err, types.ErrValidation) {
		t.Errorf("FullRefresh error = %v, want validation failure", err)
	}
	if _, err := engine.Issues(ctx, "not-a-valid-repo"); !errors.Is(err, types.ErrValidation) {
		t.Errorf("Issues error = %v, want validation failure", err)
	}

	foreign := issue(1, "a", t1, t1)
	foreign.Repo = "someone/else"
	if _, err := engine.SmartSync(ctx, repo, []*types.IssueSnapshot{foreign}); !errors.Is(err, types.ErrValidation) {
		t.Errorf("SmartSync with foreign issue error = %v, want validation failure", err)
	}

	if store.calls != 0 {
		t.Errorf("store was called %d times for rejected input", store.calls)
	}
}

func TestFullRefresh_ReplacesRepo(t *testing.T) {
	engine, _ := newEngine(t, newStore(t))
	ctx := context.Background()

	if _, err := engine.SmartSync(ctx, repo, []*types.IssueSnapshot{
		issue(1, "closed since", t1, t1),
		issue(2, "still open", t2, t2),
	}); err != nil {
		t.Fatalf("SmartSync failed: %v", err)
	}

	stats, err := engine.FullRefresh(ctx, repo, []*types.IssueSnapshot{
		issue(2, "still open", t2, t2),
		issue(3, "new", t3, t3),
	})
	if err != nil {
		t.Fatalf("FullRefresh failed: %v", err)
	}
	if want := (types.SyncStats{Inserted: 2, Removed: 2}); stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}

	got, _ := engine.Issues(ctx, repo)
	if diff := cmp.Diff([]int64{3, 2}, ids(got)); diff != "" {
		t.Errorf("cached ids mismatch (-want +got):\n%s", diff)
	}
	last, _ := engine.LastSync(ctx, repo)
	if last == nil || last.Mode != types.SyncModeFull || last.IssueCount != 2 {
		t.Errorf("LastSync = %+v, want full refresh with 2 issues", last)
	}
}

func TestFullRefresh_AtomicOnFailure(t *testing.T) {
	store := newStore(t)
	healthy, _ := newEngine(t, store)
	ctx := context.Background()

	if _, err := healthy.SmartSync(ctx, repo, []*types.IssueSnapshot{issue(1, "one", t1, t1)}); err != nil {
		t.Fatalf("seed SmartSync failed: %v", err)
	}

	faulty, _ := newEngine(t, &faultyStore{Storage: store, failAt: 2})
	if _, err := faulty.FullRefresh(ctx, repo, []*types.IssueSnapshot{
		issue(2, "two", t2, t2),
		issue(3, "three", t3, t3),
	}); err == nil {
		t.Fatal("expected FullRefresh to fail")
	}

	got, _ := store.ListIssues(ctx, repo)
	if diff := cmp.Diff([]int64{1}, ids(got)); diff != "" {
		t.Errorf("clear was not rolled back (-want +got):\n%s", diff)
	}
}

func TestClear(t *testing.T) {
	engine, _ := newEngine(t, newStore(t))
	ctx := context.Background()

	if _, err := engine.SmartSync(ctx, repo, []*types.IssueSnapshot{issue(1, "a", t1, t1), issue(2, "b", t2, t2)}); err != nil {
		t.Fatalf("SmartSync failed: %v", err)
	}
	n, err := engine.Clear(ctx, repo)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Clear removed %d issues, want 2", n)
	}
	if got, _ := engine.Issues(ctx, repo); len(got) != 0 {
		t.Errorf("Issues after Clear = %d entries, want 0", len(got))
	}

	// The repository reads as never synchronized
	rs, err := engine.LastSync(ctx, repo)
	if err != nil {
		t.Fatalf("LastSync failed: %v", err)
	}
	if rs != nil {
		t.Errorf("LastSync after Clear = %+v, want nil", rs)
	}
	repos, err := engine.Store().ListRepos(ctx)
	if err != nil {
		t.Fatalf("ListRepos failed: %v", err)
	}
	if len(repos) != 0 {
		t.Errorf("ListRepos after Clear = %d entries, want 0", len(repos))
	}
}

func TestClear_NeverSynced(t *testing.T) {
	engine, _ := newEngine(t, newStore(t))

	n, err := engine.Clear(context.Background(), repo)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Clear removed %d issues, want 0", n)
	}
}

func TestSmartSync_ConcurrentSameRepo(t *testing.T) {
	engine, _ := newEngine(t, newStore(t))
	ctx := context.Background()

	cfg := fixtures.DefaultLargeConfig()
	cfg.Repo = repo
	cfg.TotalIssues = 40
	batch := fixtures.Generate(cfg)

	const workers = 4
	results := make([]types.SyncStats, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = engine.SmartSync(ctx, repo, batch)
		}(i)
	}
	wg.Wait()

	var inserted, unchanged int
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("worker %d failed: %v", i, errs[i])
		}
		inserted += results[i].Inserted
		unchanged += results[i].Unchanged
		if results[i].Updated != 0 {
			t.Errorf("worker %d reported %d updates", i, results[i].Updated)
		}
	}
	// Exactly one worker inserts; the rest see the committed batch
	if inserted != 40 || unchanged != 40*(workers-1) {
		t.Errorf("inserted=%d unchanged=%d, want 40 and %d", inserted, unchanged, 40*(workers-1))
	}
	if n := engine.locks.active(); n != 0 {
		t.Errorf("%d repo locks still held", n)
	}
}

func TestSmartSync_DifferentReposInParallel(t *testing.T) {
	engine, _ := newEngine(t, newStore(t))
	ctx := context.Background()

	repos := []string{"acme/one", "acme/two", "acme/three"}
	var wg sync.WaitGroup
	errs := make(chan error, len(repos))
	for i, r := range repos {
		wg.Add(1)
		go func(i int, r string) {
			defer wg.Done()
			cfg := fixtures.DefaultLargeConfig()
			cfg.Repo = r
			cfg.TotalIssues = 10
			cfg.RandSeed = int64(i)
			if _, err := engine.SmartSync(ctx, r, fixtures.Generate(cfg)); err != nil {
				errs <- err
			}
		}(i, r)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("parallel sync failed: %v", err)
	}

	for _, r := range repos {
		got, err := engine.Issues(ctx, r)
		if err != nil {
			t.Fatalf("Issues(%s) failed: %v", r, err)
		}
		if len(got) != 10 {
			t.Errorf("%s has %d issues, want 10", r, len(got))
		}
	}
}
