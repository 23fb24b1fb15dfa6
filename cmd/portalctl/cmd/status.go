package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/amy/portal-client/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display the portal session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		a.awaitSession(cmd.Context())
		printSession(a)
		if err := a.session.Err(); err != nil {
			return fmt.Errorf("session unavailable: %w", err)
		}
		return nil
	},
}

func printSession(a *app) {
	st := a.session.State()
	pterm.DefaultSection.Println("Session")
	if !st.Authenticated {
		pterm.Warning.Println("Not signed in")
		pterm.Info.Printf("Sign in at: %s\n", st.LoginURL)
		return
	}

	u, _ := st.User.Get()
	rows := pterm.TableData{
		{"FIELD", "VALUE"},
		{"id", u.ID},
		{"username", u.Username},
		{"display name", u.DisplayName.OrElse("-")},
		{"minecraft", u.LinkedMinecraft.OrElse("-")},
		{"profile", st.ProfilePath},
	}
	if application, ok := st.Application.Get(); ok {
		rows = append(rows,
			[]string{"application", application.ID},
			[]string{"status", statusLabel(application.Status)},
		)
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func statusLabel(s domain.ApplicationStatus) string {
	if s.Final() {
		return string(s) + " (final)"
	}
	return string(s)
}
