package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var renameCmd = &cobra.Command{
	Use:   "rename <tour-id> <name>",
	Short: "Rename a Komoot tour",
	Long: `Rename a tour on Komoot. Words after the tour ID are joined with spaces.

Keep a bike suffix such as (R), (P) or (C) at the end of the name so the
tour stays attributed to the right bike.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tourID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || tourID <= 0 {
			return fmt.Errorf("invalid tour ID %q", args[0])
		}
		name := strings.TrimSpace(strings.Join(args[1:], " "))
		if name == "" {
			return fmt.Errorf("name must not be empty")
		}

		client, err := newKomootClient()
		if err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()

		if err := client.RenameTour(ctx, tourID, name); err != nil {
			return fmt.Errorf("renaming tour %d: %w", tourID, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Renamed tour %d to %q\n", tourID, name)
		return nil
	},
}
