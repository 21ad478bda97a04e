package harness

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/memcheck/internal/gateway"
)

// Caller performs one gateway call. *gateway.Client satisfies it.
type Caller interface {
	Call(ctx context.Context, req gateway.Request) gateway.Result
}

// baseURLer is implemented by callers that know their target address.
type baseURLer interface {
	BaseURL() string
}

// Runner executes a Suite strictly in order, one case at a time.
type Runner struct {
	caller Caller
	out    io.Writer
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithOutput sets where the streamed text report goes. Defaults to discarding.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) { r.out = w }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithRunID overrides the UUIDv7 run ID generator.
func WithRunID(gen func() string) Option {
	return func(r *Runner) { r.newID = gen }
}

// NewRunner creates a runner that sends every call through caller.
func NewRunner(caller Caller, opts ...Option) *Runner {
	r := &Runner{
		caller: caller,
		out:    io.Discard,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		newID:  func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes every case of suite in order and returns the finished report.
//
// A failing case never stops the run: transport, protocol, schema and
// invariant failures all become failing outcomes and the next case runs.
func (r *Runner) Run(ctx context.Context, suite *Suite) *Report {
	report := NewReport(r.newID())
	report.Suite = suite.Name
	report.Symbol = suite.Symbol
	if b, ok := r.caller.(baseURLer); ok {
		report.BaseURL = b.BaseURL()
	}
	start := r.now()
	report.StartedAt = start.UTC()

	rep := NewReporter(r.out, report)
	rep.Start()

	r.logger.Info("run started", "run_id", report.RunID, "suite", suite.Name, "cases", suite.Len())

	for _, group := range suite.Groups {
		rep.BeginGroup(group)
		for _, tc := range group.Cases {
			res := r.caller.Call(ctx, tc.Endpoint.Request())
			out := tc.Verify(res)
			rep.Record(group.Name, tc, out)

			r.logger.Debug("case verified",
				"group", group.Name,
				"case", tc.Name,
				"passed", out.Passed,
				"diagnostic", out.Diagnostic,
			)
		}
	}

	report.Duration = r.now().Sub(start)
	report.DurationMS = report.Duration.Milliseconds()
	rep.Finish()

	r.logger.Info("run finished",
		"run_id", report.RunID,
		"passed", report.Passed,
		"total", report.Total,
		"duration", report.Duration,
	)
	return report
}
