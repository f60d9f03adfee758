package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yashwanth-reddy909/ghia/internal/server"
	"github.com/yashwanth-reddy909/ghia/internal/types"
	"github.com/yashwanth-reddy909/ghia/internal/utils"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <repo> <prompt...>",
	Short: "Ask the LLM a question about a repository's cached issues",
	Long: `Send every cached issue of a repository, newest first, together with a
prompt of 10 to 2000 characters to the LLM and print its answer.

Run 'ghia scan' first; an empty cache is analyzed as "no issues found".
In direct mode the repository may be given by its bare name when exactly
one cached repository has that name.

Examples:
  ghia analyze facebook/react "Which issues look like regressions?"
  ghia analyze react Find themes across recent issues`,
	Args: cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		prompt := strings.Join(args[1:], " ")
		if err := types.ValidatePrompt(prompt); err != nil {
			fatalf("%v", err)
		}

		var resp *server.AnalyzeResponse
		var err error
		if apiClient != nil {
			repo := utils.ParseRepo(args[0])
			if err := types.ValidateRepo(repo); err != nil {
				fatalf("%v", err)
			}
			resp, err = apiClient.Analyze(rootCtx, repo, prompt)
		} else {
			resp, err = analyzeDirect(args[0], prompt)
		}
		if err != nil {
			fatalf("analysis failed: %v", err)
		}

		if jsonOutput {
			outputJSON(resp)
			return
		}
		fmt.Printf("%s %s\n\n", color.CyanString("Analysis of"), resp.Repo)
		fmt.Println(resp.Analysis)
	},
}

// analyzeDirect reads the cache and calls the LLM in this process, mirroring
// POST /analyze.
func analyzeDirect(input, prompt string) (*server.AnalyzeResponse, error) {
	repo, err := utils.ResolveRepo(rootCtx, store, input)
	if err != nil {
		return nil, err
	}
	analyzer, err := newAnalyzer()
	if err != nil {
		return nil, err
	}

	issues, err := engine.Issues(rootCtx, repo)
	if err != nil {
		return nil, err
	}
	result, err := analyzer.Analyze(rootCtx, issues, prompt)
	if err != nil {
		return nil, err
	}
	return &server.AnalyzeResponse{Repo: repo, Prompt: prompt, Analysis: result}, nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
