package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amy/portal-client/internal/core/domain"
)

var applicationCmd = &cobra.Command{
	Use:   "application",
	Short: "Submit or withdraw roleplay applications",
}

var applicationFile string

var applicationSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a roleplay application from a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(applicationFile)
		if err != nil {
			return fmt.Errorf("read application: %w", err)
		}
		var payload domain.ApplicationPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("decode %s: %w", applicationFile, err)
		}
		return runAction(cmd, "Application submitted", func(ctx context.Context, a *app) error {
			return a.actions.SubmitApplication(ctx, payload)
		})
	},
}

var applicationDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Withdraw a roleplay application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "Application withdrawn", func(ctx context.Context, a *app) error {
			return a.actions.DeleteApplication(ctx, args[0])
		})
	},
}

func init() {
	applicationSubmitCmd.Flags().StringVarP(&applicationFile, "file", "f", "application.json", "JSON file holding the application")
	applicationCmd.AddCommand(applicationSubmitCmd)
	applicationCmd.AddCommand(applicationDeleteCmd)
}
