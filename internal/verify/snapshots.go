package verify

import (
	"strings"

	"github.com/roach88/memcheck/internal/gateway"
)

// WriteSnapshots checks the first write pass: every (horizon, preset, role)
// combination is either written or skipped.
func WriteSnapshots(res gateway.Result) Outcome {
	obj, failed, ok := payloadObject(res)
	if !ok {
		return failed
	}
	if out, ok := requireFields(obj, "response", "symbol", "asofDate", "written", "skipped", "focusBreakdown"); !ok {
		return out
	}
	counts, failed, ok := countFields(obj, "written", "skipped")
	if !ok {
		return failed
	}
	total := counts[0] + counts[1]
	if total != ExpectedSnapshotTotal {
		return Fail(obj, "expected %d total snapshots (written+skipped), got %d", ExpectedSnapshotTotal, total)
	}
	return Pass(obj)
}

// WriteSnapshotsIdempotent checks a repeated write for the same date:
// nothing new is written and every combination is skipped.
func WriteSnapshotsIdempotent(res gateway.Result) Outcome {
	obj, failed, ok := payloadObject(res)
	if !ok {
		return failed
	}
	if out, ok := requireFields(obj, "response", "written", "skipped"); !ok {
		return out
	}
	counts, failed, ok := countFields(obj, "written", "skipped")
	if !ok {
		return failed
	}
	written, skipped := counts[0], counts[1]
	if written != 0 || skipped != ExpectedSnapshotTotal {
		return Fail(obj, "expected written=0, skipped=%d, got written=%d, skipped=%d",
			ExpectedSnapshotTotal, written, skipped)
	}
	return Pass(obj)
}

// LatestSnapshot checks the most recent snapshot and its digests.
func LatestSnapshot(res gateway.Result) Outcome {
	obj, failed, ok := payloadObject(res)
	if !ok {
		return failed
	}
	found, _ := obj["found"].(bool)
	snapshot, isObj := asObject(obj["snapshot"])
	if !found || !isObj {
		return Fail(obj, "no snapshot found or invalid response structure")
	}
	if m := missing(snapshot, "kernelDigest", "tierWeights", "asofDate", "focus", "role", "preset"); len(m) > 0 {
		return Fail(obj, "snapshot missing fields: %s", strings.Join(m, ", "))
	}

	var problems []string
	if msg := nestedMissing(snapshot, "kernelDigest", "direction", "mode", "finalSize", "consensusIndex", "conflictLevel"); msg != "" {
		problems = append(problems, msg)
	}
	if msg := nestedMissing(snapshot, "tierWeights", "structureWeightSum", "tacticalWeightSum", "timingWeightSum"); msg != "" {
		problems = append(problems, msg)
	}
	if len(problems) > 0 {
		return Fail(obj, "%s", strings.Join(problems, "; "))
	}
	return Pass(obj)
}

// nestedMissing describes what parent[key] lacks, or "" when complete.
func nestedMissing(parent object, key string, fields ...string) string {
	child, ok := asObject(parent[key])
	if !ok {
		return key + " is not an object"
	}
	if m := missing(child, fields...); len(m) > 0 {
		return key + " missing fields: " + strings.Join(m, ", ")
	}
	return ""
}

// SnapshotCount checks that the per-role counts add up to a non-zero total.
func SnapshotCount(res gateway.Result) Outcome {
	obj, failed, ok := payloadObject(res)
	if !ok {
		return failed
	}
	if out, ok := requireFields(obj, "response", "total", "byRole"); !ok {
		return out
	}
	byRole, isObj := asObject(obj["byRole"])
	if !isObj {
		return Fail(obj, "byRole is not an object")
	}
	if m := missing(byRole, Roles...); len(m) > 0 {
		return Fail(obj, "byRole missing role counts: %s", strings.Join(m, ", "))
	}

	total, ok := asCount(obj["total"])
	if !ok {
		return Fail(obj, "non-integer count fields: total")
	}
	roles, failed, ok := countFields(byRole, Roles...)
	if !ok {
		failed.Response = obj
		return failed
	}
	sum := 0
	for _, n := range roles {
		sum += n
	}
	if total != sum {
		return Fail(obj, "total mismatch: total=%d, ACTIVE+SHADOW=%d", total, sum)
	}
	if total <= 0 {
		return Fail(obj, "zero snapshot count: total=%d", total)
	}
	return Pass(obj)
}
