package harness

import (
	"bytes"
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden executes suite and compares the streamed text transcript
// against testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// The transcript must be deterministic: callers should pin the service
// state and use a caller without a base URL, or a fixed one.
func RunWithGolden(t *testing.T, name string, caller Caller, suite *Suite, opts ...Option) *Report {
	t.Helper()

	var buf bytes.Buffer
	opts = append(opts, WithOutput(&buf))
	report := NewRunner(caller, opts...).Run(context.Background(), suite)

	AssertGolden(t, name, buf.Bytes())
	return report
}

// AssertGolden compares transcript against testdata/golden/{name}.golden.
func AssertGolden(t *testing.T, name string, transcript []byte) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, transcript)
}
