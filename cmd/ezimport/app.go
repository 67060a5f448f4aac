package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/yurifrl/ezimport/pkg/categories"
	"github.com/yurifrl/ezimport/pkg/config"
	"github.com/yurifrl/ezimport/pkg/ezb"
	"github.com/yurifrl/ezimport/pkg/importer"
	"github.com/yurifrl/ezimport/pkg/marker"
	"github.com/yurifrl/ezimport/pkg/models"
	"github.com/yurifrl/ezimport/pkg/plan"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

type session struct {
	cfg    *config.Config
	logger *log.Logger
	client *ezb.Client
	closer io.Closer
}

func (s *session) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// setup loads and validates the configuration, builds the logger and the
// API client and runs the health check. Nothing touches the network before
// the configuration is valid.
func setup(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Build(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, closer, err := newLogger(cfg, verbose, os.Stderr)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, logger: logger, closer: closer}

	client, err := ezb.New(clientOptions(cfg), logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.client = client

	logger.Debug("checking API", "url", cfg.API.URL)
	if err := client.Health(cmd.Context()); err != nil {
		s.Close()
		return nil, fmt.Errorf("ezbookkeeping API not reachable at %s: %w", cfg.API.URL, err)
	}
	return s, nil
}

// newLogger writes to stderr and, when configured, appends to the log file.
// Every logger carries a run id.
func newLogger(cfg *config.Config, verbose bool, stderr io.Writer) (*log.Logger, io.Closer, error) {
	level := cfg.LogLevel()
	if verbose {
		level = log.DebugLevel
	}

	var (
		w      = stderr
		closer io.Closer
	)
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = io.MultiWriter(stderr, f)
		closer = f
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          "ezimport",
		Level:           level,
	})
	return logger.With("run", uuid.NewString()[:8]), closer, nil
}

func clientOptions(cfg *config.Config) ezb.Options {
	return ezb.Options{
		BaseURL:  cfg.API.URL,
		Token:    cfg.API.Token,
		Timezone: cfg.API.Timezone,
		Timeout:  cfg.API.Timeout,
		PageSize: cfg.API.PageSize,
	}
}

func importerOptions(cfg *config.Config) (importer.Options, error) {
	minDate, err := cfg.MinDate()
	if err != nil {
		return importer.Options{}, err
	}
	return importer.Options{
		Folder:           cfg.Import.Folder,
		MinDate:          minDate,
		ToleranceDays:    cfg.Import.ToleranceDays,
		TransferCategory: cfg.Import.TransferCategory,
		ExternalPrefix:   cfg.Import.ExternalPrefix,
		TransferPrefix:   cfg.Import.TransferPrefix,
		TransactionTag:   cfg.Markers.TransactionTag,
		AccountTag:       cfg.Markers.AccountTag,
		Heuristic: categories.Heuristic{
			GroupTerms:   cfg.Categories.GroupTerms,
			BankTerms:    cfg.Categories.BankTerms,
			ExternalTerm: cfg.Categories.ExternalTerm,
		},
		Location: cfg.Location(),
	}, nil
}

func runImport(cmd *cobra.Command, dry bool) error {
	switch format {
	case "text", "yaml", "csv":
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	s, err := setup(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	opts, err := importerOptions(s.cfg)
	if err != nil {
		return err
	}

	var (
		api      importer.API = s.client
		recorder *plan.Recorder
	)
	if dry {
		recorder = plan.NewRecorder(s.client, s.logger)
		api = recorder
		s.logger.Info("dry run, nothing will be written")
	}

	imp, err := importer.New(api, opts, s.logger)
	if err != nil {
		return err
	}

	stats, runErr := imp.Run(cmd.Context())
	out := cmd.OutOrStdout()

	if recorder != nil {
		if err := writePlan(out, recorder.Plan(stats), imp.Report()); err != nil {
			return err
		}
	} else {
		printSummary(out, stats)
	}

	if runErr != nil {
		return runErr
	}
	if stats.Failed() {
		return fmt.Errorf("import finished with %d error(s), see %s", stats.Errors, logTarget(s.cfg))
	}
	return nil
}

func writePlan(w io.Writer, p *plan.Plan, report *importer.Report) error {
	if dump {
		if err := p.Dump(w); err != nil {
			return err
		}
	}
	switch format {
	case "yaml":
		return p.WriteYAML(w)
	case "csv":
		return p.WriteCSV(w)
	default:
		p.Print(w, report)
		return nil
	}
}

func printSummary(w io.Writer, stats *models.Stats) {
	fmt.Fprintln(w, titleStyle.Render("Import summary"))
	fmt.Fprintf(w, "  new transactions: %d\n", stats.NewTransactions)
	fmt.Fprintf(w, "  new transfers:    %d\n", stats.NewTransfers)
	fmt.Fprintf(w, "  new categories:   %d\n", stats.NewCategories)
	fmt.Fprintf(w, "  skipped:          %d\n", stats.Skipped)
	line := fmt.Sprintf("  errors:           %d", stats.Errors)
	if stats.Failed() {
		fmt.Fprintln(w, failedStyle.Render(line))
	} else {
		fmt.Fprintln(w, okStyle.Render(line))
	}
}

func runCheck(cmd *cobra.Command) error {
	s, err := setup(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, okStyle.Render("API reachable at "+s.cfg.API.URL))

	opts, err := importerOptions(s.cfg)
	if err != nil {
		return err
	}
	imp, err := importer.New(s.client, opts, s.logger)
	if err != nil {
		return err
	}

	checks, err := imp.CheckFiles(cmd.Context())
	if err != nil {
		return err
	}
	if len(checks) == 0 {
		fmt.Fprintf(out, "no %s files in %s\n", importer.ExportPattern, s.cfg.Import.Folder)
		return nil
	}

	tag := marker.Must(s.cfg.Markers.AccountTag)
	for _, c := range checks {
		if c.Mapped() {
			fmt.Fprintln(out, okStyle.Render(fmt.Sprintf("+ %s -> %s (%s)", c.Path, c.TargetName, c.TargetAccountID)))
			continue
		}
		fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("= %s skipped, no account comment contains %s", c.Path, tag.Encode(c.SourceAccountID))))
	}
	return nil
}

func logTarget(cfg *config.Config) string {
	if cfg.Log.File == "" {
		return "the log output"
	}
	return cfg.Log.File
}
