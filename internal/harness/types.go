package harness

import (
	"time"

	"github.com/roach88/memcheck/internal/canonical"
	"github.com/roach88/memcheck/internal/gateway"
	"github.com/roach88/memcheck/internal/verify"
)

// Endpoint describes the call a case makes, relative to the base address.
type Endpoint struct {
	Method string
	Path   string
	Query  map[string]string
	Body   any
}

// Request converts the endpoint into a gateway request.
func (e Endpoint) Request() gateway.Request {
	return gateway.Request{Method: e.Method, Path: e.Path, Query: e.Query, Body: e.Body}
}

// TestCase is one named call plus the rule its response must satisfy.
// Cases are built once at startup and never mutated.
type TestCase struct {
	Name     string
	Endpoint Endpoint
	Verify   verify.Verifier
}

// Group is an ordered set of cases for one capability.
type Group struct {
	Name  string
	Title string
	Cases []TestCase
}

// Suite is the full ordered pipeline. Execution order is part of the
// contract: later cases depend on state earlier cases create remotely.
type Suite struct {
	Name   string
	Symbol string
	Groups []Group
}

// Cases returns every case in execution order.
func (s *Suite) Cases() []TestCase {
	var out []TestCase
	for _, g := range s.Groups {
		out = append(out, g.Cases...)
	}
	return out
}

// Len returns the number of cases.
func (s *Suite) Len() int {
	n := 0
	for _, g := range s.Groups {
		n += len(g.Cases)
	}
	return n
}

// CaseOutcome is the recorded verdict for one case.
type CaseOutcome struct {
	Group      string `json:"group"`
	Name       string `json:"name"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	Passed     bool   `json:"passed"`
	Diagnostic string `json:"diagnostic,omitempty"`
	Response   any    `json:"response,omitempty"`
}

// Report aggregates one run.
//
// Invariants: Total == len(Outcomes) and Passed == number of passing
// outcomes. Both are maintained by Reporter.Record.
type Report struct {
	RunID      string        `json:"run_id"`
	Suite      string        `json:"suite"`
	Symbol     string        `json:"symbol"`
	BaseURL    string        `json:"base_url,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
	Total      int           `json:"total"`
	Passed     int           `json:"passed"`
	Outcomes   []CaseOutcome `json:"outcomes"`
}

// NewReport creates an empty report.
func NewReport(runID string) *Report {
	return &Report{
		RunID:    runID,
		Outcomes: []CaseOutcome{},
	}
}

// Failed returns the number of failing cases.
func (r *Report) Failed() int {
	return r.Total - r.Passed
}

// OK reports whether every case passed.
func (r *Report) OK() bool {
	return r.Passed == r.Total
}

// MarshalCanonical renders the report as indented canonical JSON.
func (r *Report) MarshalCanonical() ([]byte, error) {
	return canonical.MarshalIndent(r, "  ")
}
