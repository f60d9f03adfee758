package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yashwanth-reddy909/ghia/internal/storage/sqlite"
	"github.com/yashwanth-reddy909/ghia/internal/types"
)

func TestParseRepo(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "bare", input: "acme/widgets", expected: "acme/widgets"},
		{name: "whitespace", input: "  acme/widgets \n", expected: "acme/widgets"},
		{name: "web url", input: "https://github.com/acme/widgets", expected: "acme/widgets"},
		{name: "web url trailing slash", input: "https://github.com/acme/widgets/", expected: "acme/widgets"},
		{name: "issues page", input: "https://github.com/acme/widgets/issues/12", expected: "acme/widgets"},
		{name: "clone url", input: "https://github.com/acme/widgets.git", expected: "acme/widgets"},
		{name: "ssh clone url", input: "git@github.com:acme/widgets.git", expected: "acme/widgets"},
		{name: "scheme-less", input: "github.com/acme/widgets", expected: "acme/widgets"},
		{name: "name only", input: "widgets", expected: "widgets"},
		{name: "dots and dashes", input: "my-org/my.repo_v2", expected: "my-org/my.repo_v2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseRepo(tt.input)
			if got != tt.expected {
				t.Errorf("ParseRepo(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSplitRepo(t *testing.T) {
	tests := []struct {
		input       string
		owner, name string
		ok          bool
	}{
		{"acme/widgets", "acme", "widgets", true},
		{"acme", "", "", false},
		{"/widgets", "", "", false},
		{"acme/", "", "", false},
		{"a/b/c", "", "", false},
	}

	for _, tt := range tests {
		owner, name, ok := SplitRepo(tt.input)
		if owner != tt.owner || name != tt.name || ok != tt.ok {
			t.Errorf("SplitRepo(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.input, owner, name, ok, tt.owner, tt.name, tt.ok)
		}
	}
}

func TestResolveRepo(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer store.Close()

	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	for _, repo := range []string{"acme/widgets", "acme/gadgets", "other/gadgets"} {
		if err := store.RecordSync(ctx, &types.RepoSync{Repo: repo, Mode: types.SyncModeSmart, LastSyncedAt: now}); err != nil {
			t.Fatalf("RecordSync failed: %v", err)
		}
	}

	tests := []struct {
		name      string
		input     string
		expected  string
		shouldErr bool
	}{
		{name: "full id", input: "acme/widgets", expected: "acme/widgets"},
		{name: "full id never synced", input: "new/repo", expected: "new/repo"},
		{name: "url", input: "https://github.com/acme/widgets", expected: "acme/widgets"},
		{name: "unique name", input: "widgets", expected: "acme/widgets"},
		{name: "case-insensitive name", input: "Widgets", expected: "acme/widgets"},
		{name: "ambiguous name", input: "gadgets", shouldErr: true},
		{name: "unknown name", input: "sprockets", shouldErr: true},
		{name: "empty", input: "", shouldErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveRepo(ctx, store, tt.input)
			if tt.shouldErr {
				if err == nil {
					t.Errorf("ResolveRepo(%q) expected error, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveRepo(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("ResolveRepo(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestResolveRepo_InvalidFullID(t *testing.T) {
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer store.Close()

	_, err = ResolveRepo(context.Background(), store, "acme/wid gets")
	if !errors.Is(err, types.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
