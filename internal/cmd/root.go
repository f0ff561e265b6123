package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/joshdurbin/komoot-stats/internal/logging"
	"github.com/spf13/cobra"
)

var (
	verbosity       int
	httpPort        int
	refreshInterval time.Duration
	timezone        string
	rateLimit       int
)

var rootCmd = &cobra.Command{
	Use:   "komoot-stats",
	Short: "Komoot tour stats - weekly and monthly aggregates of your Komoot tours",
	Long: `komoot-stats logs in to Komoot, pulls every recorded tour, drops duplicate
recordings of the same activity and serves weekly distance stats and monthly
tour listings over HTTP and the Model Context Protocol (MCP).

The server runs with:
- A background refresh that rebuilds all aggregates on an interval
- A paginated JSON API
- Prometheus metrics on /metrics
- An MCP endpoint on /mcp (or stdio with --port 0)

Credentials are read from the environment:
  KOMOOT_EMAIL, KOMOOT_PASSWORD (required)
  KOMOOT_API_BASE, KOMOOT_ACCOUNT_BASE (optional)
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Set up logging based on verbosity before any command runs
		logging.Setup(logging.Level(verbosity))
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		rtCfg := &RuntimeConfig{
			Port:            httpPort,
			RefreshInterval: refreshInterval,
			Timezone:        timezone,
			RateLimit:       rateLimit,
		}

		return Run(rtCfg)
	},
}

func init() {
	// Logging verbosity
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase verbosity (-v for debug, -vv for trace with HTTP headers)")

	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", "", "IANA time zone used for weeks and months (default: local time zone)")

	rootCmd.PersistentFlags().IntVarP(&httpPort, "port", "p", 8080, "HTTP server port (0 for MCP over stdio)")
	rootCmd.PersistentFlags().DurationVar(&refreshInterval, "refresh-interval", 60*time.Minute, "interval between tour refreshes")
	rootCmd.PersistentFlags().IntVar(&rateLimit, "rate-limit", 120, "requests per minute allowed from one IP (0 disables)")

	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(statsCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadLocation resolves the --timezone flag
func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", name, err)
	}
	return loc, nil
}
