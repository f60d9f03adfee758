package main

import (
	"fmt"
	"os"
)

// ensureDirectMode makes sure the CLI is operating on the local database.
// Commands the HTTP API does not cover call it even when --server is set.
func ensureDirectMode(reason string, write bool) error {
	if apiClient != nil {
		apiClient = nil
		if reason != "" {
			fmt.Fprintf(os.Stderr, "Note: %s; using the local database\n", reason)
		}
	}
	return openStore(write)
}
