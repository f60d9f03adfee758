package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yashwanth-reddy909/ghia/internal/server"
	"github.com/yashwanth-reddy909/ghia/internal/types"
	"github.com/yashwanth-reddy909/ghia/internal/utils"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"

	maxTitleWidth = 72
)

var issuesCmd = &cobra.Command{
	Use:   "issues <repo>",
	Short: "List a repository's cached issues, newest first",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("format")
		limit, _ := cmd.Flags().GetInt("limit")
		if jsonOutput {
			format = formatJSON
		}
		switch format {
		case formatTable, formatJSON, formatYAML:
		default:
			fatalf("unknown format %q (want table, json or yaml)", format)
		}

		var resp *server.IssuesResponse
		var err error
		if apiClient != nil {
			repo := utils.ParseRepo(args[0])
			if err := types.ValidateRepo(repo); err != nil {
				fatalf("%v", err)
			}
			resp, err = apiClient.Issues(rootCtx, repo)
		} else {
			resp, err = issuesDirect(args[0])
		}
		if err != nil {
			fatalf("%v", err)
		}
		if limit > 0 && len(resp.Issues) > limit {
			resp.Issues = resp.Issues[:limit]
		}

		switch format {
		case formatJSON:
			outputJSON(resp)
		case formatYAML:
			outputYAML(resp)
		default:
			printIssueTable(resp)
		}
	},
}

func issuesDirect(input string) (*server.IssuesResponse, error) {
	repo, err := utils.ResolveRepo(rootCtx, store, input)
	if err != nil {
		return nil, err
	}
	issues, err := engine.Issues(rootCtx, repo)
	if err != nil {
		return nil, err
	}
	lastSync, err := engine.LastSync(rootCtx, repo)
	if err != nil {
		return nil, err
	}
	return &server.IssuesResponse{Repo: repo, Issues: issues, LastSync: lastSync}, nil
}

func printIssueTable(resp *server.IssuesResponse) {
	if len(resp.Issues) == 0 {
		fmt.Printf("No cached issues for %s\n", resp.Repo)
		fmt.Printf("Hint: run 'ghia scan %s' first\n", resp.Repo)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tUPDATED\tTITLE")
	for _, issue := range resp.Issues {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			issue.ID,
			issue.CreatedAt.Format("2006-01-02"),
			issue.UpdatedAt.Format("2006-01-02"),
			truncate(issue.Title, maxTitleWidth))
	}
	_ = w.Flush()

	if resp.LastSync != nil {
		fmt.Println(color.New(color.Faint).Sprintf("\n%d issues, last %s sync %s",
			resp.LastSync.IssueCount, resp.LastSync.Mode, resp.LastSync.LastSyncedAt.Local().Format("2006-01-02 15:04")))
	}
}

func truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	return string(runes[:width-1]) + "…"
}

func init() {
	issuesCmd.Flags().String("format", formatTable, "Output format: table, json or yaml")
	issuesCmd.Flags().Int("limit", 0, "Show at most this many issues (0 = all)")
	rootCmd.AddCommand(issuesCmd)
}
