package cmd

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	syncsvc "github.com/joshdurbin/komoot-stats/internal/sync"
	"github.com/spf13/cobra"
)

var statsWeeks int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Fetch all tours once and print the snapshot summary and recent weeks",
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, err := loadLocation(timezone)
		if err != nil {
			return err
		}

		client, err := newKomootClient()
		if err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()

		snap, err := syncsvc.NewService(client, loc).BuildSnapshot(ctx, time.Now(), nil)
		if err != nil {
			return err
		}

		weeks := snap.Weeks
		if statsWeeks >= 0 && len(weeks) > statsWeeks {
			weeks = weeks[:statsWeeks]
		}

		out, err := json.MarshalIndent(map[string]any{
			"stats": snap.Stats(),
			"weeks": weeks,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding stats: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	statsCmd.Flags().IntVar(&statsWeeks, "weeks", 4, "number of recent weeks to print")
}
