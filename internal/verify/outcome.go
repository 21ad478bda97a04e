// Package verify holds the response contract for each endpoint of the
// memory and governance API.
//
// A Verifier is a pure function from a gateway.Result to an Outcome. It
// never performs I/O. Every failing Outcome names the sub-check that
// failed: the missing fields, the mismatched count, or the incomplete
// enumeration.
package verify

import (
	"fmt"

	"github.com/roach88/memcheck/internal/gateway"
)

// Outcome is the verdict for one case.
type Outcome struct {
	Passed bool `json:"passed"`
	// Diagnostic explains a failure. Passing outcomes may carry a note.
	Diagnostic string `json:"diagnostic,omitempty"`
	// Response echoes the payload the verdict was based on.
	Response any `json:"response,omitempty"`
}

// Verifier decides whether a response satisfies an endpoint's contract.
type Verifier func(res gateway.Result) Outcome

// Pass returns a passing outcome.
func Pass(response any) Outcome {
	return Outcome{Passed: true, Response: response}
}

// PassWithNote returns a passing outcome that still carries a remark.
func PassWithNote(response any, format string, args ...any) Outcome {
	return Outcome{Passed: true, Diagnostic: fmt.Sprintf(format, args...), Response: response}
}

// Fail returns a failing outcome.
func Fail(response any, format string, args ...any) Outcome {
	return Outcome{Passed: false, Diagnostic: fmt.Sprintf(format, args...), Response: response}
}
