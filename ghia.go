// Package ghia provides a minimal public API for building on top of the
// ghia issue cache.
//
// Programs that talk to a running 'ghia serve' use NewClient. Programs that
// embed the cache open it with NewSQLiteStorage and synchronize it through an
// Engine. Everything else stays internal.
package ghia

import (
	"net/http"

	"github.com/yashwanth-reddy909/ghia/internal/server"
	"github.com/yashwanth-reddy909/ghia/internal/storage"
	"github.com/yashwanth-reddy909/ghia/internal/storage/sqlite"
	"github.com/yashwanth-reddy909/ghia/internal/syncer"
	"github.com/yashwanth-reddy909/ghia/internal/types"
	"github.com/yashwanth-reddy909/ghia/internal/utils"
)

// Core types from internal/types
type (
	IssueSnapshot   = types.IssueSnapshot
	SyncStats       = types.SyncStats
	SyncMode        = types.SyncMode
	RepoSync        = types.RepoSync
	ValidationError = types.ValidationError
	StorageError    = types.StorageError
)

// SyncMode constants
const (
	SyncModeSmart = types.SyncModeSmart
	SyncModeFull  = types.SyncModeFull
)

// Failure kinds, for use with errors.Is
var (
	ErrValidation      = types.ErrValidation
	ErrFetch           = types.ErrFetch
	ErrStorage         = types.ErrStorage
	ErrVersionMismatch = server.ErrVersionMismatch
)

// HTTP API types
type (
	Client          = server.Client
	RemoteError     = server.RemoteError
	ScanResponse    = server.ScanResponse
	AnalyzeResponse = server.AnalyzeResponse
	IssuesResponse  = server.IssuesResponse
	HealthResponse  = server.HealthResponse
)

// NewClient returns a client for the 'ghia serve' API at baseURL. version is
// sent with every request so the server can refuse incompatible clients; it
// may be empty. A nil httpClient selects a default with a generous timeout.
func NewClient(baseURL, version string, httpClient *http.Client) (*Client, error) {
	return server.NewClient(baseURL, version, httpClient)
}

// Storage is the interface of the issue cache
type Storage = storage.Storage

// NewSQLiteStorage opens (creating and migrating if needed) the cache at path.
// Use ":memory:" for a throwaway cache.
func NewSQLiteStorage(path string) (Storage, error) {
	return sqlite.New(path)
}

// Engine applies fetched issue batches to a Storage.
type Engine = syncer.Engine

// NewEngine returns an Engine over store.
func NewEngine(store Storage) *Engine {
	return syncer.New(store)
}

// ParseRepo normalizes "owner/name" input and GitHub URLs to "owner/name".
func ParseRepo(input string) string {
	return utils.ParseRepo(input)
}

// ValidateRepo checks that repo is a well-formed "owner/name".
func ValidateRepo(repo string) error {
	return types.ValidateRepo(repo)
}

// ValidatePrompt checks that an analysis prompt has an acceptable length.
func ValidatePrompt(prompt string) error {
	return types.ValidatePrompt(prompt)
}
