package cmd

import (
	"context"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "List the latest news",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout)
		defer cancel()
		if _, err := a.news.Cell().Await(ctx); err != nil {
			return err
		}

		items := a.news.Items()
		if len(items) == 0 {
			pterm.Info.Println("No news")
			return nil
		}
		rows := pterm.TableData{{"ID", "TITLE", "TAGS", "VARIANT"}}
		for _, item := range items {
			variant := "-"
			if v, ok := item.Variant.Get(); ok {
				variant = string(v)
			}
			rows = append(rows, []string{item.ID, item.Title, strings.Join(item.Tags, ", "), variant})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}
