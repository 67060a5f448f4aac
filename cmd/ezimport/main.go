package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const (
	exitOK        = 0
	exitFailure   = 1
	exitInterrupt = 130
)

var (
	cfgFile string
	verbose bool
	dryRun  bool
	format  string
	dump    bool
)

var rootCmd = &cobra.Command{
	Use:           "ezimport",
	Short:         "Import bank export files into ezbookkeeping",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runImport(cmd, dryRun)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Import all export files (default command)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runImport(cmd, dryRun)
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what an import would create without writing anything",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runImport(cmd, true)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration, API access and account mapping",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runCheck(cmd)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "Config file (yaml, json or toml)")
	pf.StringP("json-folder", "f", "", "Folder with the <account>.json export files")
	pf.StringP("api-url", "u", "", "ezbookkeeping API base URL")
	pf.StringP("api-token", "t", "", "ezbookkeeping API token")
	pf.StringP("min-date", "d", "", "Ignore records booked before this date (YYYY-MM-DD)")
	pf.Int("tolerance-days", 0, "Maximum booking date gap between transfer legs")
	pf.String("timezone", "", "Timezone for transaction times")
	pf.StringP("log-level", "l", "", "Log level (debug, info, warn, error)")
	pf.String("log-file", "", "Log file, empty to disable")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	pf.StringVar(&format, "format", "text", "Dry run output format (text, yaml, csv)")
	pf.BoolVar(&dump, "dump", false, "Dry run: pretty print every planned payload")

	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Record writes instead of sending them")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Record writes instead of sending them")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(checkCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitInterrupt
	default:
		return exitFailure
	}
}
