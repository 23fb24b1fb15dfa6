package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/amy/portal-client/internal/api/middleware"
)

var (
	tokenSubject string
	tokenRole    string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the inspection API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenRole != middleware.RoleViewer && tokenRole != middleware.RoleOperator {
			return fmt.Errorf("role must be %s or %s", middleware.RoleViewer, middleware.RoleOperator)
		}
		signed, err := middleware.IssueToken(cfg.Inspect.Secret, tokenSubject, tokenRole, tokenTTL)
		if err != nil {
			return fmt.Errorf("INSPECT_SECRET must be set: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), signed)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "portalctl", "Token subject")
	tokenCmd.Flags().StringVar(&tokenRole, "role", middleware.RoleViewer, "viewer or operator")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "Token lifetime")
}
