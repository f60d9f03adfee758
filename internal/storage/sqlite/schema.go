package sqlite

const schema = `
-- Issues table: one row per (id, repo)
CREATE TABLE IF NOT EXISTS issues (
    id INTEGER NOT NULL,
    repo TEXT NOT NULL,
    title TEXT NOT NULL,
    body TEXT,
    html_url TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    cached_at TEXT NOT NULL,
    PRIMARY KEY (id, repo)
);

CREATE INDEX IF NOT EXISTS idx_issues_repo ON issues(repo);
-- Note: idx_issues_repo_created is created in migrations/001_repo_created_index.go

-- Last successful sync per repository
CREATE TABLE IF NOT EXISTS repo_syncs (
    repo TEXT PRIMARY KEY,
    mode TEXT NOT NULL CHECK(mode IN ('smart', 'full')),
    last_synced_at TEXT NOT NULL,
    inserted INTEGER NOT NULL DEFAULT 0,
    updated INTEGER NOT NULL DEFAULT 0,
    unchanged INTEGER NOT NULL DEFAULT 0,
    removed INTEGER NOT NULL DEFAULT 0
);

-- Metadata table (for storing internal state like the schema version)
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`
