// taskflow is a command-line client for the task-management API.
//
// It is deliberately thin: session state, authorization, and statistics all
// come from the internal engines; the commands here only parse flags, call
// the engines, and print.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "taskflow",
		Short:         "taskflow - task management from the terminal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (default ~/.taskflow/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "API base URL (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(newLoginCommand(opts))
	rootCmd.AddCommand(newLogoutCommand(opts))
	rootCmd.AddCommand(newRegisterCommand(opts))
	rootCmd.AddCommand(newWhoamiCommand(opts))
	rootCmd.AddCommand(newTasksCommand(opts))
	rootCmd.AddCommand(newStatsCommand(opts))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
