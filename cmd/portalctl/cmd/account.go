package cmd

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// runAction executes one session action and prints the refreshed session.
func runAction(cmd *cobra.Command, done string, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	a.awaitSession(cmd.Context())
	if err := fn(cmd.Context(), a); err != nil {
		return err
	}
	pterm.Success.Println(done)
	printSession(a)
	return nil
}

var linkCmd = &cobra.Command{
	Use:   "link <nickname>",
	Short: "Link a Minecraft nickname to the signed-in account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "Nickname linked, confirm with the in-game code", func(ctx context.Context, a *app) error {
			return a.actions.LinkExternalAccount(ctx, args[0])
		})
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <code>",
	Short: "Confirm the Minecraft link with the in-game code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "Link verified", func(ctx context.Context, a *app) error {
			return a.actions.VerifyCode(ctx, args[0])
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the portal session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "Logged out", func(ctx context.Context, a *app) error {
			return a.actions.Logout(ctx)
		})
	},
}

var presenceCmd = &cobra.Command{
	Use:   "presence <active|idle>",
	Short: "Report presence for the signed-in account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var active bool
		switch args[0] {
		case "active":
			active = true
		case "idle":
		default:
			return fmt.Errorf("presence must be active or idle, got %q", args[0])
		}
		a, err := newApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.actions.ReportPresence(cmd.Context(), active); err != nil {
			return err
		}
		pterm.Success.Printf("Presence reported: %s\n", args[0])
		return nil
	},
}
