package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/amy/portal-client/internal/infrastructure/config"
	"github.com/amy/portal-client/pkg/logger"
)

var (
	envFile  string
	logLevel string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "portalctl",
	Short: "Portal client - cached access to the community portal API",
	Long: `portalctl keeps a cached, refreshable view of the portal session, news
and public profiles. Use it to inspect the session, run account actions, or
serve a local inspection API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}

		var err error
		cfg, err = config.Load(cmd.Context())
		if err != nil {
			return err
		}
		level := cfg.LogLevel
		if logLevel != "" {
			level = logLevel
		}
		logger.Init(logger.Options{Level: level, Pretty: cfg.LogPretty || cmd.Name() != serveCmd.Name()})
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file loaded before reading the environment (skipped when missing)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(presenceCmd)
	rootCmd.AddCommand(applicationCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(snapshotCmd)
}
