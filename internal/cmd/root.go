// Package cmd implements the teamctl command line.
package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/nexeed/teamforge/internal/cohort"
	logging "github.com/nexeed/teamforge/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "teamctl",
	Short: "Generate cohorts and form teams",
	Long: `teamctl generates synthetic student cohorts and forms teams from them,
either in-process or against a running teamforge server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := logging.Init(logging.WithWriter(cmd.ErrOrStderr())); err != nil {
			return err
		}
		return logging.SetLevelString(logLevel)
	},
}

var (
	serverURL string        // Remote teamforge server; empty runs in-process
	apiKey    string        // Sent as X-API-Key
	timeout   time.Duration // Per-request timeout against a server
	logLevel  string
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "teamforge server URL (default runs in-process)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for the server")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout against the server")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
}

func remoteClient() (*cohort.Client, error) {
	return cohort.NewClient(serverURL, apiKey, timeout)
}
