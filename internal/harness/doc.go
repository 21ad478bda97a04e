// Package harness runs the memory and governance contract pipeline.
//
// A Suite is an ordered list of capability groups, each an ordered list of
// TestCases. A TestCase pairs one endpoint call with the verify rule its
// response must satisfy. The Runner executes cases strictly in order:
//
//	Snapshot Persistence → Outcome Resolution → Attribution → Policy Governance
//
// Order matters because the service under test is stateful. The second
// snapshot write only proves idempotency if it directly follows the first,
// and the statistics endpoints assume outcomes were just resolved.
//
// # Reporting
//
// The Reporter streams one status line per case while filling a Report:
//
//	✅ Write Snapshots - Initial Call
//	❌ Count Snapshots - total mismatch: total=40, ACTIVE+SHADOW=36
//
// A Report's Total always equals len(Outcomes) and Passed counts the
// passing outcomes. Report.OK is the run's overall verdict.
//
// # Usage
//
//	client, err := gateway.New(baseURL)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	suite := harness.DefaultSuite(harness.SuiteOptions{Symbol: "BTC"})
//	report := harness.NewRunner(client, harness.WithOutput(os.Stdout)).Run(ctx, suite)
//	if !report.OK() {
//	    os.Exit(1)
//	}
package harness
