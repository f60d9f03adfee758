package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yashwanth-reddy909/ghia/cmd/ghia/doctor"
	"github.com/yashwanth-reddy909/ghia/internal/config"
	"github.com/yashwanth-reddy909/ghia/internal/server"
	"github.com/yashwanth-reddy909/ghia/internal/storage/sqlite"
)

// Status constants for doctor checks
const (
	statusOK      = "ok"
	statusWarning = "warning"
	statusError   = "error"
)

type doctorCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // statusOK, statusWarning, or statusError
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Fix     string `json:"fix,omitempty"`
}

type doctorResult struct {
	Path       string        `json:"path"`
	Checks     []doctorCheck `json:"checks"`
	OverallOK  bool          `json:"overall_ok"`
	CLIVersion string        `json:"cli_version"`
}

var perfMode bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the ghia installation",
	Long: `Sanity check the cache database and the configured credentials.

This command checks:
  - Which config file is in use
  - Database presence and schema version
  - Schema compatibility (all required tables and columns present)
  - GitHub token (anonymous requests are heavily rate limited)
  - LLM API key (required by analyze)
  - Server health and version compatibility, when --server is set

The database is opened read-only; doctor never migrates it.

Performance Mode (--perf):
  Times the cache's hot queries and writes a CPU profile.

Examples:
  ghia doctor          # Check the default database
  ghia doctor --json   # Machine-readable output
  ghia doctor --perf   # Performance diagnostics`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		path := dbPath
		if path == "" {
			path = config.DefaultDBPath()
		}

		if perfMode {
			doctor.RunPerformanceDiagnostics(path)
			return
		}

		result := runDiagnostics(path)

		if jsonOutput {
			outputJSON(result)
		} else {
			printDiagnostics(result)
		}

		if !result.OverallOK {
			os.Exit(1)
		}
	},
}

func runDiagnostics(path string) doctorResult {
	result := doctorResult{
		Path:       path,
		CLIVersion: Version,
		OverallOK:  true,
	}
	add := func(check doctorCheck) {
		result.Checks = append(result.Checks, check)
		if check.Status == statusError {
			result.OverallOK = false
		}
	}

	add(checkConfigFile())

	dbCheck := checkDatabaseVersion(path)
	add(dbCheck)
	// Nothing to probe without a readable database
	if dbCheck.Status != statusError && !strings.HasPrefix(dbCheck.Message, "N/A") {
		add(checkSchemaCompatibility(path))
	}

	add(checkGitHubToken())
	add(checkLLMKey())

	if serverURL != "" {
		add(checkServer(serverURL))
	}

	return result
}

func checkConfigFile() doctorCheck {
	used := config.ConfigFileUsed()
	if used == "" {
		return doctorCheck{
			Name:    "Config",
			Status:  statusOK,
			Message: "No config file (defaults and environment only)",
			Detail:  fmt.Sprintf("Searched for %s.yaml in ./ and ~/.config/ghia/", config.ConfigName),
		}
	}
	return doctorCheck{
		Name:    "Config",
		Status:  statusOK,
		Message: used,
	}
}

func openReadOnly(path string) (*sql.DB, error) {
	return sql.Open("sqlite3", "file:"+path+"?mode=ro&_pragma=busy_timeout(30000)")
}

func checkDatabaseVersion(path string) doctorCheck {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return doctorCheck{
			Name:    "Database",
			Status:  statusOK,
			Message: "N/A (no database yet)",
			Detail:  path,
			Fix:     "Run 'ghia scan <owner/name>' to create it",
		}
	}

	db, err := openReadOnly(path)
	if err == nil {
		err = db.Ping()
	}
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return doctorCheck{
			Name:    "Database",
			Status:  statusError,
			Message: "Unable to open database",
			Detail:  err.Error(),
			Fix:     "The cache can be rebuilt: delete " + path + " and scan again",
		}
	}
	defer db.Close()

	stored, err := sqlite.StoredSchemaVersion(db)
	if err != nil {
		return doctorCheck{
			Name:    "Database",
			Status:  statusError,
			Message: "Unable to read schema version",
			Detail:  err.Error(),
			Fix:     "The cache can be rebuilt: delete " + path + " and scan again",
		}
	}

	current := sqlite.SchemaVersion()
	switch {
	case stored < current:
		return doctorCheck{
			Name:    "Database",
			Status:  statusWarning,
			Message: fmt.Sprintf("schema version %d (current %d)", stored, current),
			Detail:  path,
			Fix:     "Any write command (e.g. 'ghia scan') migrates the database",
		}
	case stored > current:
		return doctorCheck{
			Name:    "Database",
			Status:  statusError,
			Message: fmt.Sprintf("schema version %d is newer than this ghia (%d)", stored, current),
			Detail:  path,
			Fix:     "Upgrade ghia",
		}
	}
	return doctorCheck{
		Name:    "Database",
		Status:  statusOK,
		Message: fmt.Sprintf("schema version %d", stored),
		Detail:  path,
	}
}

func checkSchemaCompatibility(path string) doctorCheck {
	db, err := openReadOnly(path)
	if err != nil {
		return doctorCheck{
			Name:    "Schema Compatibility",
			Status:  statusError,
			Message: "Failed to open database",
			Detail:  err.Error(),
		}
	}
	defer db.Close()

	probe := sqlite.ProbeSchema(db)
	if !probe.Compatible {
		return doctorCheck{
			Name:    "Schema Compatibility",
			Status:  statusError,
			Message: "Database schema is incomplete or incompatible",
			Detail:  probe.ErrorMessage,
			Fix:     "Run 'ghia scan' to migrate, or delete " + path + " to rebuild the cache",
		}
	}
	return doctorCheck{
		Name:    "Schema Compatibility",
		Status:  statusOK,
		Message: "All required tables and columns present",
	}
}

func checkGitHubToken() doctorCheck {
	token := config.GetString("github.token")
	if token == "" {
		return doctorCheck{
			Name:    "GitHub Token",
			Status:  statusWarning,
			Message: "Not configured (60 requests per hour)",
			Fix:     "Set GITHUB_TOKEN or github.token in ghia.yaml",
		}
	}
	return doctorCheck{
		Name:    "GitHub Token",
		Status:  statusOK,
		Message: "Configured",
		Detail:  config.Redact(token),
	}
}

func checkLLMKey() doctorCheck {
	key := config.GetString("llm.api-key")
	if key == "" {
		return doctorCheck{
			Name:    "LLM API Key",
			Status:  statusWarning,
			Message: "Not configured (analyze is unavailable)",
			Fix:     "Set ANTHROPIC_API_KEY or llm.api-key in ghia.yaml",
		}
	}
	return doctorCheck{
		Name:    "LLM API Key",
		Status:  statusOK,
		Message: "Configured for " + config.GetString("llm.model"),
		Detail:  config.Redact(key),
	}
}

func checkServer(url string) doctorCheck {
	client, err := server.NewClient(url, Version, nil)
	if err != nil {
		return doctorCheck{
			Name:    "Server",
			Status:  statusError,
			Message: "Invalid server URL",
			Detail:  err.Error(),
		}
	}

	ctx, cancel := context.WithTimeout(rootCtx, 5*time.Second)
	defer cancel()
	health, err := client.Health(ctx)
	if health == nil {
		return doctorCheck{
			Name:    "Server",
			Status:  statusError,
			Message: "Not reachable at " + url,
			Detail:  err.Error(),
			Fix:     "Start it with 'ghia serve' or drop --server to use the database directly",
		}
	}

	detail := fmt.Sprintf("version %s, %d repos cached, db %.1fms", health.Version, health.Repos, health.DBResponseTime)
	switch {
	case !health.Compatible:
		return doctorCheck{
			Name:    "Server",
			Status:  statusError,
			Message: "Incompatible version",
			Detail:  health.Error,
			Fix:     "Upgrade the server to match this client",
		}
	case health.Status != server.StatusHealthy:
		return doctorCheck{
			Name:    "Server",
			Status:  statusWarning,
			Message: health.Status,
			Detail:  detail,
		}
	}
	return doctorCheck{
		Name:    "Server",
		Status:  statusOK,
		Message: "healthy",
		Detail:  detail,
	}
}

func printDiagnostics(result doctorResult) {
	fmt.Println("\nDiagnostics")

	for i, check := range result.Checks {
		prefix := "├"
		if i == len(result.Checks)-1 {
			prefix = "└"
		}

		var statusIcon string
		switch check.Status {
		case statusWarning:
			statusIcon = color.YellowString(" ⚠")
		case statusError:
			statusIcon = color.RedString(" ✗")
		}

		fmt.Printf(" %s %s: %s%s\n", prefix, check.Name, check.Message, statusIcon)

		if check.Detail != "" {
			detailPrefix := "│"
			if i == len(result.Checks)-1 {
				detailPrefix = " "
			}
			fmt.Printf(" %s   %s\n", detailPrefix, color.New(color.Faint).Sprint(check.Detail))
		}
	}

	fmt.Println()

	hasIssues := false
	for _, check := range result.Checks {
		if check.Status == statusOK || check.Fix == "" {
			continue
		}
		hasIssues = true

		switch check.Status {
		case statusWarning:
			fmt.Println(color.YellowString("⚠ Warning: %s", check.Message))
		case statusError:
			fmt.Println(color.RedString("✗ Error: %s", check.Message))
		}
		fmt.Printf("  Fix: %s\n\n", check.Fix)
	}

	if !hasIssues {
		fmt.Println(color.GreenString("✓ All checks passed"))
	}
}

func init() {
	doctorCmd.Flags().BoolVar(&perfMode, "perf", false, "Run performance diagnostics and generate CPU profile")
	rootCmd.AddCommand(doctorCmd)
}
