package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yashwanth-reddy909/ghia/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML (secrets redacted)",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		reveal, _ := cmd.Flags().GetBool("reveal")
		settings := config.Settings(!reveal)

		if jsonOutput {
			outputJSON(settings)
			return
		}
		outputYAML(nestSettings(settings))
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file in use",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if used := config.ConfigFileUsed(); used != "" {
			fmt.Println(used)
			return
		}
		fmt.Printf("No config file found; searched for %s.yaml in ./ and ~/.config/ghia/\n", config.ConfigName)
	},
}

// nestSettings turns dotted keys back into nested maps so the YAML output
// has the same shape as ghia.yaml.
func nestSettings(flat map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	for key, value := range flat {
		parts := strings.Split(key, ".")
		node := out
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]interface{})
			if !ok {
				child = make(map[string]interface{})
				node[part] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = value
	}
	return out
}

func init() {
	configShowCmd.Flags().Bool("reveal", false, "Print secrets in clear text")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}
