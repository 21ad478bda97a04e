package harness

import (
	"fmt"
	"io"
	"strings"

	"github.com/roach88/memcheck/internal/verify"
)

// ruleWidth is the width of the separator lines in text output.
const ruleWidth = 80

// Reporter accumulates outcomes into a Report and streams one line per
// case as soon as it is recorded.
type Reporter struct {
	w      io.Writer
	report *Report
}

// NewReporter creates a reporter that fills report and writes to w.
// A nil w discards the text stream.
func NewReporter(w io.Writer, report *Report) *Reporter {
	if w == nil {
		w = io.Discard
	}
	return &Reporter{w: w, report: report}
}

// Report returns the report being filled.
func (r *Reporter) Report() *Report {
	return r.report
}

// Start prints the run header.
func (r *Reporter) Start() {
	fmt.Fprintf(r.w, "Starting %s contract run\n", r.report.Suite)
	if r.report.BaseURL != "" {
		fmt.Fprintf(r.w, "Base URL: %s\n", r.report.BaseURL)
	}
	fmt.Fprintf(r.w, "Symbol: %s\n", r.report.Symbol)
	fmt.Fprintln(r.w, strings.Repeat("=", ruleWidth))
}

// BeginGroup prints a group heading.
func (r *Reporter) BeginGroup(g Group) {
	fmt.Fprintf(r.w, "\n%s\n", g.Title)
}

// Record appends the outcome of tc and prints its status line.
func (r *Reporter) Record(group string, tc TestCase, out verify.Outcome) {
	r.report.Outcomes = append(r.report.Outcomes, CaseOutcome{
		Group:      group,
		Name:       tc.Name,
		Method:     tc.Endpoint.Method,
		Path:       tc.Endpoint.Path,
		Passed:     out.Passed,
		Diagnostic: out.Diagnostic,
		Response:   out.Response,
	})
	r.report.Total++

	switch {
	case out.Passed && out.Diagnostic != "":
		r.report.Passed++
		fmt.Fprintf(r.w, "✅ %s (%s)\n", tc.Name, out.Diagnostic)
	case out.Passed:
		r.report.Passed++
		fmt.Fprintf(r.w, "✅ %s\n", tc.Name)
	default:
		fmt.Fprintf(r.w, "❌ %s - %s\n", tc.Name, out.Diagnostic)
	}
}

// Finish prints the summary.
func (r *Reporter) Finish() {
	fmt.Fprintf(r.w, "\n%s\n", strings.Repeat("=", ruleWidth))
	fmt.Fprintf(r.w, "Results: %d/%d passed\n", r.report.Passed, r.report.Total)
	if r.report.OK() {
		fmt.Fprintln(r.w, "All cases passed")
		return
	}
	fmt.Fprintf(r.w, "%d case(s) failed\n", r.report.Failed())
}
