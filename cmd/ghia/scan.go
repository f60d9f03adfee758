package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yashwanth-reddy909/ghia/internal/github"
	"github.com/yashwanth-reddy909/ghia/internal/server"
	"github.com/yashwanth-reddy909/ghia/internal/types"
	"github.com/yashwanth-reddy909/ghia/internal/utils"
)

var scanCmd = &cobra.Command{
	Use:   "scan <owner/name>",
	Short: "Fetch a repository's open issues into the cache",
	Long: `Fetch every open issue of a GitHub repository and cache it locally.

By default only new and changed issues are written; cached issues that are
no longer open upstream are kept. Use --full to clear the repository's cache
first so closed issues disappear.

Examples:
  ghia scan facebook/react
  ghia scan https://github.com/golang/go --full
  ghia scan acme/widgets --server http://127.0.0.1:8000`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		full, _ := cmd.Flags().GetBool("full")
		repo := utils.ParseRepo(args[0])
		if err := types.ValidateRepo(repo); err != nil {
			fatalf("%v", err)
		}

		var resp *server.ScanResponse
		var err error
		if apiClient != nil {
			resp, err = apiClient.Scan(rootCtx, repo, full)
		} else {
			resp, err = scanDirect(repo, full)
		}
		if err != nil {
			if github.IsNotFound(err) {
				fatalf("scan %s failed: %v\nHint: check the repository name; private repositories need github.token", repo, err)
			}
			fatalf("scan %s failed: %v", repo, err)
		}

		if jsonOutput {
			outputJSON(resp)
			return
		}
		fmt.Printf("%s Cached %d open issues from %s\n", color.GreenString("✓"), resp.IssuesFetched, resp.Repo)
		fmt.Printf("  %s\n", resp.Message)
	},
}

// scanDirect fetches and syncs in this process, mirroring POST /scan.
func scanDirect(repo string, full bool) (*server.ScanResponse, error) {
	client, err := newGitHubClient(newCLILogger())
	if err != nil {
		return nil, err
	}
	issues, err := client.ListOpenIssues(rootCtx, repo)
	if err != nil {
		return nil, err
	}

	var stats types.SyncStats
	if full {
		stats, err = engine.FullRefresh(rootCtx, repo, issues)
	} else {
		stats, err = engine.SmartSync(rootCtx, repo, issues)
	}
	if err != nil {
		return nil, err
	}

	return &server.ScanResponse{
		Repo:               repo,
		IssuesFetched:      len(issues),
		CachedSuccessfully: true,
		Message:            server.ScanMessage(stats, full),
		Stats:              stats,
	}, nil
}

func init() {
	scanCmd.Flags().Bool("full", false, "Clear the repository's cache before caching the fetched issues")
	rootCmd.AddCommand(scanCmd)
}
