package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	apiURL     string
	output     string
	actor      string
	roles      []string
	assumeYes  bool
	noColor    bool
	logLevel   string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "wsactl",
	Short: "WSA CLI - workspace action orchestrator command line tool",
	Long: `wsactl drives workspace build actions against the WSA API: start, stop,
restart, delete, update and version changes, with confirmations and
parameter prompts.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadProfile(cmd.Flags())
	},
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if cliLog != nil {
		cliLog.Sync()
	}
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&apiURL, "api-url", "a", "http://localhost:8080", "WSA API URL")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", "", "Acting user name")
	rootCmd.PersistentFlags().StringSliceVar(&roles, "roles", nil, "Roles of the acting user (admin, template-admin)")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "Answer yes to confirmations")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Profile file (default $XDG_CONFIG_HOME/wsactl/profile.yaml)")
}
