package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/memcheck/internal/fakeservice"
)

// MockOptions holds flags for the mock command.
type MockOptions struct {
	*RootOptions
	Addr        string
	Prefix      string
	AsofDate    string
	MinResolved int
	SeedDays    []int
	SeedSymbols []string
	Database    string

	// Ready, if set, receives the bound address once the listener is up (for testing).
	Ready chan<- string
}

// NewMockCommand creates the mock command.
func NewMockCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MockOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Serve a reference implementation of the admin API",
		Long: `Serve the memory and governance admin API locally, for runs of the
contract suite without the real service.

State lives in memory and starts empty, unless --db names a SQLite file
that survives restarts. --seed-days writes snapshot days in the past,
which gives the resolver matured snapshots to work with.

Example:
  memcheck mock --addr :8080 --seed-days 400
  memcheck run --base-url http://localhost:8080`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveMock(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&opts.Prefix, "prefix", fakeservice.DefaultPrefix, "admin route prefix")
	cmd.Flags().StringVar(&opts.AsofDate, "asof", "", "snapshot and candle date, YYYY-MM-DD (default today, UTC)")
	cmd.Flags().IntVar(&opts.MinResolved, "min-resolved", fakeservice.DefaultMinResolved, "resolved outcomes needed for a policy proposal")
	cmd.Flags().IntSliceVar(&opts.SeedDays, "seed-days", nil, "seed snapshot days this many days before --asof")
	cmd.Flags().StringSliceVar(&opts.SeedSymbols, "seed-symbol", []string{"BTC"}, "symbols to seed")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database file (default in-memory)")

	return cmd
}

func serveMock(opts *MockOptions, cmd *cobra.Command) error {
	logger := newLogger(opts.Verbose, cmd.ErrOrStderr())

	asof := opts.AsofDate
	if asof == "" {
		asof = time.Now().UTC().Format(time.DateOnly)
	}
	day, err := time.Parse(time.DateOnly, asof)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --asof", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := fakeservice.New(fakeservice.Options{
		Prefix:      opts.Prefix,
		AsofDate:    asof,
		MinResolved: opts.MinResolved,
		DBPath:      opts.Database,
		Logger:      logger,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start mock service", err)
	}
	defer func() {
		if closeErr := svc.Close(); closeErr != nil {
			logger.Error("error closing store", "error", closeErr)
		}
	}()

	for _, d := range opts.SeedDays {
		if d <= 0 {
			return NewExitError(ExitCommandError, fmt.Sprintf("invalid --seed-days value %d: must be positive", d))
		}
		for _, symbol := range opts.SeedSymbols {
			if err := svc.Seed(ctx, symbol, day.AddDate(0, 0, -d).Format(time.DateOnly)); err != nil {
				return WrapExitError(ExitCommandError, "failed to seed", err)
			}
		}
	}

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	srv := &http.Server{Handler: svc, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	addr := ln.Addr().String()
	logger.Info("mock service listening", "addr", addr, "prefix", opts.Prefix, "asof", asof, "db", opts.Database)
	fmt.Fprintf(cmd.OutOrStdout(), "Mock service listening on %s\n", addr)
	if opts.Ready != nil {
		opts.Ready <- addr
	}

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitCommandError, "mock service failed", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down mock service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitCommandError, "shutdown failed", err)
	}
	return nil
}
