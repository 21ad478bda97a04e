package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/memcheck/internal/fakeservice"
	"github.com/roach88/memcheck/internal/gateway"
	"github.com/roach88/memcheck/internal/testutil"
	"github.com/roach88/memcheck/internal/verify"
)

const testAsofDate = "2026-06-01"

var fixedTime = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

// deterministic pins the run ID and makes every run last 250ms.
func deterministic() []Option {
	return []Option{
		WithRunID(testutil.FixedRunID("run-test-001")),
		WithClock(testutil.NewStepClock(fixedTime, 250*time.Millisecond).Now),
	}
}

func newFake(t *testing.T, opts fakeservice.Options) *fakeservice.Service {
	t.Helper()
	svc, err := fakeservice.New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func fakeClient(t *testing.T, svc *fakeservice.Service) *gateway.Client {
	t.Helper()
	c, err := gateway.New("http://fake.local", gateway.WithHTTPClient(svc.Client()))
	require.NoError(t, err)
	return c
}

func fakeSuite() *Suite {
	return DefaultSuite(SuiteOptions{Symbol: "BTC", APIPrefix: fakeservice.DefaultPrefix})
}

func outcomeNames(r *Report) []string {
	names := make([]string, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		names = append(names, o.Name)
	}
	return names
}

func field(t *testing.T, out CaseOutcome, key string) any {
	t.Helper()
	obj, ok := out.Response.(map[string]any)
	require.True(t, ok, "response of %q is not an object", out.Name)
	return obj[key]
}

func TestRun_FakeServiceGolden(t *testing.T) {
	svc := newFake(t, fakeservice.Options{AsofDate: testAsofDate})
	// A year-old day gives the resolver matured snapshots for every horizon.
	require.NoError(t, svc.Seed(context.Background(), "BTC", "2025-05-01"))

	report := RunWithGolden(t, "fake_service_run", fakeClient(t, svc), fakeSuite(), deterministic()...)

	assert.Equal(t, "run-test-001", report.RunID)
	assert.Equal(t, "memory-governance", report.Suite)
	assert.Equal(t, "http://fake.local", report.BaseURL)
	assert.Equal(t, fixedTime, report.StartedAt)
	assert.Equal(t, 250*time.Millisecond, report.Duration)
	assert.Equal(t, int64(250), report.DurationMS)
	assert.Equal(t, 11, report.Total)
	assert.Equal(t, 11, report.Passed)
	assert.True(t, report.OK())
	assert.Equal(t, fakeSuite().Len(), len(report.Outcomes))
}

func TestRun_CleanStore(t *testing.T) {
	svc := newFake(t, fakeservice.Options{AsofDate: testAsofDate})
	report := NewRunner(fakeClient(t, svc), deterministic()...).Run(context.Background(), fakeSuite())

	require.Len(t, report.Outcomes, 11)
	assert.Equal(t, report.Total, len(report.Outcomes))

	first, second, count := report.Outcomes[0], report.Outcomes[1], report.Outcomes[3]
	assert.True(t, first.Passed)
	assert.Equal(t, json.Number("36"), field(t, first, "written"))
	assert.Equal(t, json.Number("0"), field(t, first, "skipped"))

	assert.True(t, second.Passed)
	assert.Equal(t, json.Number("0"), field(t, second, "written"))
	assert.Equal(t, json.Number("36"), field(t, second, "skipped"))

	assert.True(t, count.Passed)
	assert.Equal(t, json.Number("36"), field(t, count, "total"))

	// Nothing has matured, so both stats breakdowns are empty.
	stats := report.Outcomes[5]
	assert.Equal(t, "Forward Stats", stats.Name)
	assert.False(t, stats.Passed)
	assert.Equal(t, "no data in byPreset or byRole", stats.Diagnostic)

	assert.Equal(t, 10, report.Passed)
	assert.Equal(t, 1, report.Failed())
	assert.False(t, report.OK())
}

func TestRun_PolicyProposal(t *testing.T) {
	svc := newFake(t, fakeservice.Options{AsofDate: testAsofDate, MinResolved: 10})
	require.NoError(t, svc.Seed(context.Background(), "BTC", "2025-05-01"))
	require.NoError(t, svc.AddProposal(context.Background(), "BTC", map[string]any{"id": "p-1", "status": "APPLIED"}))

	report := NewRunner(fakeClient(t, svc), deterministic()...).Run(context.Background(), fakeSuite())
	require.True(t, report.OK())

	dryRun := report.Outcomes[8]
	assert.Equal(t, "Policy Dry Run", dryRun.Name)
	assert.Empty(t, dryRun.Diagnostic)
	assert.Equal(t, true, field(t, dryRun, "success"))

	history := report.Outcomes[10]
	assert.Equal(t, json.Number("1"), field(t, history, "count"))
}

type stubCaller struct {
	paths  []string
	result gateway.Result
}

func (s *stubCaller) Call(_ context.Context, req gateway.Request) gateway.Result {
	s.paths = append(s.paths, req.Method+" "+req.Path)
	return s.result
}

func TestRun_FailuresDoNotStopTheRun(t *testing.T) {
	caller := &stubCaller{result: gateway.Failure(gateway.FailureConnection, "connection error: connection refused")}
	suite := DefaultSuite(SuiteOptions{})

	var buf bytes.Buffer
	report := NewRunner(caller, append(deterministic(), WithOutput(&buf))...).Run(context.Background(), suite)

	require.Len(t, caller.paths, 11)
	assert.Equal(t, "POST memory/write-snapshots", caller.paths[0])
	assert.Equal(t, "POST memory/write-snapshots", caller.paths[1])
	assert.Equal(t, "GET governance/policy/history", caller.paths[10])

	assert.Equal(t, 11, report.Total)
	assert.Equal(t, 0, report.Passed)
	assert.Empty(t, report.BaseURL)
	for _, o := range report.Outcomes {
		assert.False(t, o.Passed)
		assert.Equal(t, "connection error: connection refused", o.Diagnostic)
		assert.Nil(t, o.Response)
	}

	out := buf.String()
	assert.NotContains(t, out, "Base URL:")
	assert.Contains(t, out, "❌ Write Snapshots - Initial Call - connection error: connection refused\n")
	assert.True(t, strings.HasSuffix(out, "Results: 0/11 passed\n11 case(s) failed\n"))
}

func TestRun_OrderFollowsSuite(t *testing.T) {
	caller := &stubCaller{result: gateway.Success(200, map[string]any{})}
	suite := DefaultSuite(SuiteOptions{})

	report := NewRunner(caller, deterministic()...).Run(context.Background(), suite)

	var want []string
	for _, tc := range suite.Cases() {
		want = append(want, tc.Name)
	}
	assert.Equal(t, want, outcomeNames(report))
	assert.Equal(t, GroupSnapshots, report.Outcomes[0].Group)
	assert.Equal(t, GroupGovernance, report.Outcomes[10].Group)
}

func TestRun_DefaultRunIDIsUUIDv7(t *testing.T) {
	caller := &stubCaller{result: gateway.Failure(gateway.FailureTimeout, "timeout")}
	report := NewRunner(caller).Run(context.Background(), DefaultSuite(SuiteOptions{}))

	id, err := uuid.Parse(report.RunID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestReporter_Record(t *testing.T) {
	var buf bytes.Buffer
	report := NewReport("r")
	rep := NewReporter(&buf, report)
	tc := func(name string) TestCase { return TestCase{Name: name, Endpoint: Endpoint{Method: "GET", Path: "x"}} }

	rep.Record("g", tc("A"), verify.Pass(nil))
	rep.Record("g", tc("B"), verify.PassWithNote(nil, "weak assertion: byRole is empty"))
	rep.Record("g", tc("C"), verify.Fail(nil, "HTTP 500: boom"))

	assert.Equal(t, "✅ A\n✅ B (weak assertion: byRole is empty)\n❌ C - HTTP 500: boom\n", buf.String())
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Passed)
	assert.Equal(t, 1, report.Failed())
	assert.Same(t, report, rep.Report())
}

func TestReporter_EmptyRun(t *testing.T) {
	var buf bytes.Buffer
	report := NewReport("r")
	report.Suite = "empty"
	rep := NewReporter(&buf, report)
	rep.Start()
	rep.Finish()

	assert.True(t, report.OK())
	assert.Contains(t, buf.String(), "Results: 0/0 passed\nAll cases passed\n")
}

func TestReporter_NilWriter(t *testing.T) {
	rep := NewReporter(nil, NewReport("r"))
	rep.Start()
	rep.Record("g", TestCase{Name: "A"}, verify.Pass(nil))
	rep.Finish()
	assert.Equal(t, 1, rep.Report().Passed)
}

func TestDefaultSuite(t *testing.T) {
	suite := DefaultSuite(SuiteOptions{})
	assert.Equal(t, "BTC", suite.Symbol)
	assert.Equal(t, 11, suite.Len())
	require.Len(t, suite.Groups, 4)
	assert.Equal(t, []string{"Snapshot Persistence", "Forward Truth Outcome Resolver", "Attribution Service", "Policy Governance"},
		[]string{suite.Groups[0].Title, suite.Groups[1].Title, suite.Groups[2].Title, suite.Groups[3].Title})

	latest := suite.Groups[0].Cases[2]
	assert.Equal(t, "memory/snapshots/latest", latest.Endpoint.Path)
	assert.Equal(t, map[string]string{"symbol": "BTC", "focus": "30d"}, latest.Endpoint.Query)

	calibration := suite.Groups[1].Cases[2]
	assert.Equal(t, map[string]string{"symbol": "BTC", "focus": "30d"}, calibration.Endpoint.Query)
}

func TestDefaultSuite_Options(t *testing.T) {
	suite := DefaultSuite(SuiteOptions{Symbol: "ETH", Focus: "90d", APIPrefix: "/api/fractal/v2.1/admin/"})
	assert.Equal(t, "ETH", suite.Symbol)

	for _, tc := range suite.Cases() {
		assert.True(t, strings.HasPrefix(tc.Endpoint.Path, "api/fractal/v2.1/admin/"), tc.Endpoint.Path)
		assert.Equal(t, "ETH", tc.Endpoint.Query["symbol"])
	}
	assert.Equal(t, "90d", suite.Groups[1].Cases[2].Endpoint.Query["focus"])

	// The calibration verifier follows the requested focus.
	out := suite.Groups[1].Cases[2].Verify(gateway.Success(200, map[string]any{
		"symbol": "ETH", "focus": "90d", "preset": "balanced",
		"hitRate": 0.5, "bandHitRate": 0.5, "avgError": 1.0, "count": json.Number("2"),
	}))
	assert.True(t, out.Passed, out.Diagnostic)
}

func TestReport_MarshalCanonical(t *testing.T) {
	caller := &stubCaller{result: gateway.Failure(gateway.FailureStatus, "HTTP 404: not found")}
	report := NewRunner(caller, deterministic()...).Run(context.Background(), DefaultSuite(SuiteOptions{}))

	data, err := report.MarshalCanonical()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run-test-001", decoded["run_id"])
	assert.Equal(t, float64(11), decoded["total"])
	assert.NotContains(t, decoded, "Duration")

	s := string(data)
	assert.Less(t, strings.Index(s, `"duration_ms"`), strings.Index(s, `"outcomes"`))
	assert.Less(t, strings.Index(s, `"outcomes"`), strings.Index(s, `"passed"`))
}
