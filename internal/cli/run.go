package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/memcheck/internal/config"
	"github.com/roach88/memcheck/internal/gateway"
	"github.com/roach88/memcheck/internal/harness"
)

// RunOptions holds flags for the run command and the bare invocation.
type RunOptions struct {
	*RootOptions
	BaseURL    string
	Symbol     string
	Focus      string
	Timeout    time.Duration
	ReportPath string

	// RunID allows overriding the run ID generator (for testing).
	// If nil, the runner generates a UUIDv7.
	RunID func() string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the contract suite",
		Long: `Run every contract case in order against the admin API.

Cases are grouped by capability and always run in the same order; a failing
case never stops the run. Settings come from built-in defaults, then the
--config file, then flags.

Example:
  memcheck run
  memcheck run --base-url http://localhost:8080 --symbol ETH
  memcheck run --format json --report ./report.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(opts, cmd)
		},
	}

	addRunFlags(cmd, opts)
	return cmd
}

func addRunFlags(cmd *cobra.Command, opts *RunOptions) {
	cmd.Flags().StringVar(&opts.BaseURL, "base-url", config.DefaultBaseURL, "base address of the service under test")
	cmd.Flags().StringVar(&opts.Symbol, "symbol", config.DefaultSymbol, "asset symbol to check")
	cmd.Flags().StringVar(&opts.Focus, "focus", config.Default().Focus, "horizon used for latest-snapshot and calibration cases")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", config.DefaultTimeout, "per-call timeout")
	cmd.Flags().StringVar(&opts.ReportPath, "report", "", "write the JSON report to this path")
}

// resolveConfig layers flags explicitly set on the command line over the
// config file (or the defaults when no file is given).
func resolveConfig(opts *RunOptions, cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL = opts.BaseURL
	}
	if flags.Changed("symbol") {
		cfg.Symbol = opts.Symbol
	}
	if flags.Changed("focus") {
		cfg.Focus = opts.Focus
	}
	if flags.Changed("timeout") {
		cfg.Timeout = opts.Timeout
	}
	return cfg, cfg.Validate()
}

func runSuite(opts *RunOptions, cmd *cobra.Command) error {
	logger := newLogger(opts.Verbose, cmd.ErrOrStderr())
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	cfg, err := resolveConfig(opts, cmd)
	if err != nil {
		_ = out.Error(CodeConfig, "invalid configuration", err.Error())
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	client, err := gateway.New(cfg.BaseURL, gateway.WithTimeout(cfg.Timeout), gateway.WithLogger(logger))
	if err != nil {
		_ = out.Error(CodeGateway, "failed to create gateway", err.Error())
		return WrapExitError(ExitCommandError, "failed to create gateway", err)
	}

	suite := harness.DefaultSuite(harness.SuiteOptions{
		Symbol:    cfg.Symbol,
		Focus:     cfg.Focus,
		APIPrefix: cfg.APIPrefix,
	})

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// In JSON mode stdout carries only the final document.
	var stream io.Writer = cmd.OutOrStdout()
	if out.JSON() {
		stream = io.Discard
	}
	runnerOpts := []harness.Option{harness.WithOutput(stream), harness.WithLogger(logger)}
	if opts.RunID != nil {
		runnerOpts = append(runnerOpts, harness.WithRunID(opts.RunID))
	}

	report := harness.NewRunner(client, runnerOpts...).Run(ctx, suite)

	if opts.ReportPath != "" {
		if err := writeReport(report, opts.ReportPath); err != nil {
			_ = out.Error(CodeOutput, "failed to write report", err.Error())
			return WrapExitError(ExitCommandError, "failed to write report", err)
		}
		logger.Info("report written", "path", opts.ReportPath)
	}

	if out.JSON() {
		status := "passed"
		if !report.OK() {
			status = "failed"
		}
		if err := out.Result(status, report); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
	}

	if !report.OK() {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d cases failed", report.Failed(), report.Total))
	}
	return nil
}

func writeReport(report *harness.Report, path string) error {
	data, err := report.MarshalCanonical()
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
