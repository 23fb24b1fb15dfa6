package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/amy/portal-client/internal/infrastructure/db/redis"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <cache-key>",
	Short: "Show the last good payload mirrored to Redis by serve",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Redis.Addr == "" {
			return errors.New("REDIS_ADDR is not set")
		}
		rdb, err := redis.Connect(cmd.Context(), redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer rdb.Close()

		rec, found, err := redis.NewSnapshotMirror(rdb, cfg.Redis.SnapshotTTL).Latest(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no snapshot stored for %q", args[0])
		}

		pterm.DefaultSection.Println(args[0])
		pterm.Info.Printf("generation %d, stored %s ago\n", rec.Generation, time.Since(rec.StoredAt).Round(time.Second))
		fmt.Fprintln(cmd.OutOrStdout(), string(rec.Payload))
		return nil
	},
}
