package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yashwanth-reddy909/ghia/internal/utils"
)

var clearCmd = &cobra.Command{
	Use:   "clear <repo>",
	Short: "Remove every cached issue of a repository",
	Long: `Remove every cached issue of a repository from the local database.

This always works on the local database, even with --server.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := ensureDirectMode("clear is not served over HTTP", true); err != nil {
			fatalf("%v", err)
		}

		repo, err := utils.ResolveRepo(rootCtx, store, args[0])
		if err != nil {
			fatalf("%v", err)
		}
		removed, err := engine.Clear(rootCtx, repo)
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{
				"repo":    repo,
				"removed": removed,
			})
			return
		}
		fmt.Printf("%s Removed %d cached issues of %s\n", color.GreenString("✓"), removed, repo)
	},
}

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List cached repositories and their last sync",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := ensureDirectMode("repos is not served over HTTP", false); err != nil {
			fatalf("%v", err)
		}

		repos, err := store.ListRepos(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			outputJSON(repos)
			return
		}
		if len(repos) == 0 {
			fmt.Println("No repositories cached yet")
			return
		}
		for _, rs := range repos {
			fmt.Printf("%-40s %5d issues  %s sync %s\n",
				rs.Repo, rs.IssueCount, rs.Mode, rs.LastSyncedAt.Local().Format("2006-01-02 15:04"))
		}
	},
}

func init() {
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(reposCmd)
}
