package doctor

import (
	"database/sql"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	// Import SQLite driver
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

var cpuProfileFile *os.File

// RunPerformanceDiagnostics times the cache's hot queries against the
// database at dbPath and writes a CPU profile next to the working directory.
func RunPerformanceDiagnostics(dbPath string) {
	fmt.Println("\nghia Performance Diagnostics")
	fmt.Println(strings.Repeat("=", 50))

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: No database found at %s\n", dbPath)
		fmt.Fprintf(os.Stderr, "Run 'ghia scan <owner/name>' to create it\n")
		os.Exit(1)
	}

	platformInfo := collectPlatformInfo(dbPath)
	fmt.Printf("\nPlatform: %s\n", platformInfo["os_arch"])
	fmt.Printf("Go: %s\n", platformInfo["go_version"])
	fmt.Printf("SQLite: %s\n", platformInfo["sqlite_version"])

	dbStats := collectDatabaseStats(dbPath)
	fmt.Printf("\nDatabase Statistics:\n")
	fmt.Printf("  Cached issues:     %s\n", dbStats["total_issues"])
	fmt.Printf("  Repositories:      %s\n", dbStats["repos"])
	fmt.Printf("  Largest repo:      %s\n", dbStats["largest_repo"])
	fmt.Printf("  Database size:     %s\n", dbStats["db_size"])

	profilePath := fmt.Sprintf("ghia-perf-%s.prof", time.Now().Format("2006-01-02-150405"))
	if err := startCPUProfile(profilePath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to start CPU profiling: %v\n", err)
	} else {
		defer stopCPUProfile()
		fmt.Printf("\nCPU profiling enabled: %s\n", profilePath)
	}

	fmt.Printf("\nOperation Performance:\n")

	reposDuration := measureOperation(func() error {
		return runListRepos(dbPath)
	})
	fmt.Printf("  ghia repos                %dms\n", reposDuration.Milliseconds())

	if repo := dbStats["largest_repo"]; repo != "" && repo != "none" && repo != "error" {
		issuesDuration := measureOperation(func() error {
			return runListIssues(dbPath, repo)
		})
		fmt.Printf("  ghia issues <largest>     %dms\n", issuesDuration.Milliseconds())

		lookupDuration := measureOperation(func() error {
			return runLookupRandom(dbPath, repo)
		})
		if lookupDuration > 0 {
			fmt.Printf("  smart-sync lookup         %dms\n", lookupDuration.Milliseconds())
		}
	}

	fmt.Printf("\nProfile saved: %s\n", profilePath)
	fmt.Printf("Share this file with bug reports for performance issues.\n\n")
	fmt.Printf("View flamegraph:\n")
	fmt.Printf("  go tool pprof -http=:8080 %s\n\n", profilePath)
}

func openReadOnly(dbPath string) (*sql.DB, error) {
	return sql.Open("sqlite3", "file:"+dbPath+"?mode=ro&_pragma=busy_timeout(30000)")
}

func collectPlatformInfo(dbPath string) map[string]string {
	info := make(map[string]string)
	info["os_arch"] = fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
	info["go_version"] = runtime.Version()
	info["sqlite_version"] = "unknown"

	db, err := openReadOnly(dbPath)
	if err != nil {
		return info
	}
	defer db.Close()
	var version string
	if err := db.QueryRow("SELECT sqlite_version()").Scan(&version); err == nil {
		info["sqlite_version"] = version
	}
	return info
}

func collectDatabaseStats(dbPath string) map[string]string {
	stats := map[string]string{
		"total_issues": "error",
		"repos":        "error",
		"largest_repo": "error",
		"db_size":      "error",
	}

	if info, err := os.Stat(dbPath); err == nil {
		stats["db_size"] = fmt.Sprintf("%.2f MB", float64(info.Size())/(1024*1024))
	}

	db, err := openReadOnly(dbPath)
	if err != nil {
		return stats
	}
	defer db.Close()

	var total int
	if err := db.QueryRow("SELECT COUNT(*) FROM issues").Scan(&total); err == nil {
		stats["total_issues"] = fmt.Sprintf("%d", total)
	}

	var repos int
	if err := db.QueryRow("SELECT COUNT(DISTINCT repo) FROM issues").Scan(&repos); err == nil {
		stats["repos"] = fmt.Sprintf("%d", repos)
	}

	var largest string
	err = db.QueryRow("SELECT repo FROM issues GROUP BY repo ORDER BY COUNT(*) DESC, repo LIMIT 1").Scan(&largest)
	switch {
	case err == sql.ErrNoRows:
		stats["largest_repo"] = "none"
	case err == nil:
		stats["largest_repo"] = largest
	}

	return stats
}

func startCPUProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	cpuProfileFile = f
	return pprof.StartCPUProfile(f)
}

// stopCPUProfile stops CPU profiling and closes the profile file.
// Must be called after pprof.StartCPUProfile() to flush profile data to disk.
func stopCPUProfile() {
	pprof.StopCPUProfile()
	if cpuProfileFile != nil {
		_ = cpuProfileFile.Close() // best effort cleanup
	}
}

func measureOperation(op func() error) time.Duration {
	start := time.Now()
	if err := op(); err != nil {
		return 0
	}
	return time.Since(start)
}

// runQuery executes a read-only database query and returns any error
func runQuery(dbPath string, queryFn func(*sql.DB) error) error {
	db, err := openReadOnly(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	return queryFn(db)
}

// drain reads every row so the timing covers the full scan
func drain(rows *sql.Rows) error {
	defer rows.Close()
	for rows.Next() {
	}
	return rows.Err()
}

func runListRepos(dbPath string) error {
	return runQuery(dbPath, func(db *sql.DB) error {
		rows, err := db.Query(`
			SELECT s.repo, s.mode, s.last_synced_at, COUNT(i.id)
			FROM repo_syncs s
			LEFT JOIN issues i ON i.repo = s.repo
			GROUP BY s.repo
			ORDER BY s.repo
		`)
		if err != nil {
			return err
		}
		return drain(rows)
	})
}

func runListIssues(dbPath, repo string) error {
	return runQuery(dbPath, func(db *sql.DB) error {
		rows, err := db.Query(`
			SELECT id, title, body, html_url, created_at, updated_at
			FROM issues
			WHERE repo = ?
			ORDER BY created_at DESC, rowid ASC
		`, repo)
		if err != nil {
			return err
		}
		return drain(rows)
	})
}

func runLookupRandom(dbPath, repo string) error {
	return runQuery(dbPath, func(db *sql.DB) error {
		var id int64
		if err := db.QueryRow("SELECT id FROM issues WHERE repo = ? ORDER BY RANDOM() LIMIT 1", repo).Scan(&id); err != nil {
			return err
		}
		var updatedAt string
		return db.QueryRow("SELECT updated_at FROM issues WHERE repo = ? AND id = ?", repo, id).Scan(&updatedAt)
	})
}
