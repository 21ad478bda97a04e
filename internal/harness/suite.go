package harness

import (
	"net/http"
	"strings"

	"github.com/roach88/memcheck/internal/verify"
)

// Group names.
const (
	GroupSnapshots   = "snapshots"
	GroupOutcomes    = "outcomes"
	GroupAttribution = "attribution"
	GroupGovernance  = "governance"
)

// SuiteOptions parameterizes DefaultSuite.
type SuiteOptions struct {
	Symbol    string
	Focus     string
	APIPrefix string
}

// DefaultSuite builds the memory and governance contract pipeline:
// snapshot persistence, outcome resolution, attribution, then policy
// governance. The second write must directly follow the first for the
// idempotency check to mean anything.
func DefaultSuite(opts SuiteOptions) *Suite {
	if opts.Symbol == "" {
		opts.Symbol = "BTC"
	}
	if opts.Focus == "" {
		opts.Focus = verify.DefaultFocus
	}
	prefix := strings.Trim(opts.APIPrefix, "/")

	path := func(p string) string {
		if prefix == "" {
			return p
		}
		return prefix + "/" + p
	}
	symbol := func() map[string]string {
		return map[string]string{"symbol": opts.Symbol}
	}
	symbolFocus := func() map[string]string {
		return map[string]string{"symbol": opts.Symbol, "focus": opts.Focus}
	}

	return &Suite{
		Name:   "memory-governance",
		Symbol: opts.Symbol,
		Groups: []Group{
			{
				Name:  GroupSnapshots,
				Title: "Snapshot Persistence",
				Cases: []TestCase{
					{
						Name:     "Write Snapshots - Initial Call",
						Endpoint: Endpoint{Method: http.MethodPost, Path: path("memory/write-snapshots"), Query: symbol()},
						Verify:   verify.WriteSnapshots,
					},
					{
						Name:     "Write Snapshots - Idempotency",
						Endpoint: Endpoint{Method: http.MethodPost, Path: path("memory/write-snapshots"), Query: symbol()},
						Verify:   verify.WriteSnapshotsIdempotent,
					},
					{
						Name:     "Get Latest Snapshot",
						Endpoint: Endpoint{Method: http.MethodGet, Path: path("memory/snapshots/latest"), Query: symbolFocus()},
						Verify:   verify.LatestSnapshot,
					},
					{
						Name:     "Count Snapshots",
						Endpoint: Endpoint{Method: http.MethodGet, Path: path("memory/snapshots/count"), Query: symbol()},
						Verify:   verify.SnapshotCount,
					},
				},
			},
			{
				Name:  GroupOutcomes,
				Title: "Forward Truth Outcome Resolver",
				Cases: []TestCase{
					{
						Name:     "Resolve Outcomes",
						Endpoint: Endpoint{Method: http.MethodPost, Path: path("memory/resolve-outcomes"), Query: symbol()},
						Verify:   verify.ResolveOutcomes,
					},
					{
						Name:     "Forward Stats",
						Endpoint: Endpoint{Method: http.MethodGet, Path: path("memory/forward-stats"), Query: symbol()},
						Verify:   verify.ForwardStats,
					},
					{
						Name:     "Calibration Stats",
						Endpoint: Endpoint{Method: http.MethodGet, Path: path("memory/calibration"), Query: symbolFocus()},
						Verify:   verify.Calibration(opts.Focus),
					},
				},
			},
			{
				Name:  GroupAttribution,
				Title: "Attribution Service",
				Cases: []TestCase{
					{
						Name:     "Attribution Summary",
						Endpoint: Endpoint{Method: http.MethodGet, Path: path("memory/attribution/summary"), Query: symbol()},
						Verify:   verify.AttributionSummary,
					},
				},
			},
			{
				Name:  GroupGovernance,
				Title: "Policy Governance",
				Cases: []TestCase{
					{
						Name:     "Policy Dry Run",
						Endpoint: Endpoint{Method: http.MethodPost, Path: path("governance/policy/dry-run"), Query: symbol()},
						Verify:   verify.PolicyDryRun,
					},
					{
						Name:     "Current Policy",
						Endpoint: Endpoint{Method: http.MethodGet, Path: path("governance/policy/current"), Query: symbol()},
						Verify:   verify.CurrentPolicy,
					},
					{
						Name:     "Policy History",
						Endpoint: Endpoint{Method: http.MethodGet, Path: path("governance/policy/history"), Query: symbol()},
						Verify:   verify.PolicyHistory,
					},
				},
			},
		},
	}
}
