package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yashwanth-reddy909/ghia/internal/config"
	"github.com/yashwanth-reddy909/ghia/internal/server"
)

var (
	// Version is the current version of ghia (overridden by ldflags at build time)
	Version = "0.3.0"
	// Build can be set via ldflags at compile time
	Build = "dev"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		checkServer, _ := cmd.Flags().GetBool("server-version")

		if checkServer {
			showServerVersion()
			return
		}

		if jsonOutput {
			outputJSON(map[string]string{
				"version": Version,
				"build":   Build,
			})
		} else {
			fmt.Printf("ghia version %s (%s)\n", Version, Build)
		}
	},
}

func showServerVersion() {
	url := serverURL
	if url == "" {
		url = "http://" + config.GetString("listen")
	}
	client, err := server.NewClient(url, Version, nil)
	if err != nil {
		fatalf("%v", err)
	}

	health, err := client.Health(rootCtx)
	if health == nil {
		fmt.Fprintf(os.Stderr, "Error: server is not reachable at %s: %v\n", url, err)
		fmt.Fprintf(os.Stderr, "Hint: start it with 'ghia serve'\n")
		os.Exit(1)
	}

	if jsonOutput {
		outputJSON(map[string]interface{}{
			"server_version": health.Version,
			"client_version": Version,
			"compatible":     health.Compatible,
			"server_uptime":  health.Uptime,
		})
	} else {
		fmt.Printf("Server version: %s\n", health.Version)
		fmt.Printf("Client version: %s\n", Version)
		if health.Compatible {
			fmt.Printf("Compatibility: %s compatible\n", color.GreenString("✓"))
		} else {
			fmt.Printf("Compatibility: %s incompatible (upgrade the server)\n", color.RedString("✗"))
		}
		fmt.Printf("Server uptime: %.1f seconds\n", health.Uptime)
	}

	if !health.Compatible {
		os.Exit(1)
	}
}

func init() {
	versionCmd.Flags().Bool("server-version", false, "Check the server's version and compatibility")
	rootCmd.AddCommand(versionCmd)
}
