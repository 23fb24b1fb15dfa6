package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile <id>",
	Short: "Show a public profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		p, ok, err := a.profiles.Profile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("profile %q not found", args[0])
		}

		pterm.DefaultSection.Println(p.Username)
		return pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
			{"FIELD", "VALUE"},
			{"id", p.ID},
			{"display name", p.DisplayName.OrElse("-")},
			{"minecraft", p.LinkedMinecraft.OrElse("-")},
			{"online", fmt.Sprint(p.IsOnline.OrElse(false))},
		}).Render()
	},
}
