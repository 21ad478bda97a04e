package verify

import (
	"fmt"
	"strings"

	"github.com/roach88/memcheck/internal/gateway"
)

// AttributionSummary checks that tier accuracy covers every tier.
// Order is irrelevant and duplicates are tolerated.
func AttributionSummary(res gateway.Result) Outcome {
	obj, failed, ok := payloadObject(res)
	if !ok {
		return failed
	}
	if out, ok := requireFields(obj, "response", "symbol", "period", "totalOutcomes", "tierAccuracy", "dominantTier", "insights"); !ok {
		return out
	}
	entries, isArr := asArray(obj["tierAccuracy"])
	if !isArr {
		return Fail(obj, "tierAccuracy is not an array")
	}
	if len(entries) < len(Tiers) {
		return Fail(obj, "expected %d tiers in tierAccuracy, got %d", len(Tiers), len(entries))
	}

	seen := make(map[string]bool, len(entries))
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		entry, _ := asObject(e)
		tier, _ := entry["tier"].(string)
		seen[tier] = true
		names = append(names, fmt.Sprintf("%v", entry["tier"]))
	}
	if m := notIn(Tiers, seen); len(m) > 0 {
		return Fail(obj, "missing tiers in tierAccuracy: %s (got %s)", strings.Join(m, ", "), strings.Join(names, ", "))
	}
	return Pass(obj)
}

// PolicyDryRun checks a dry-run evaluation. A successful run must include
// both configurations; an unsuccessful one is a valid "no proposal" answer.
func PolicyDryRun(res gateway.Result) Outcome {
	obj, failed, ok := payloadObject(res)
	if !ok {
		return failed
	}
	if out, ok := requireFields(obj, "response", "mode", "success", "message", "guardrailsPass", "guardrailViolations"); !ok {
		return out
	}
	if mode, _ := obj["mode"].(string); mode != DryRunMode {
		return Fail(obj, "expected mode=%s, got %v", DryRunMode, obj["mode"])
	}
	success, isBool := obj["success"].(bool)
	if !isBool {
		return Fail(obj, "success is not a boolean: %v", obj["success"])
	}
	if !success {
		return PassWithNote(obj, "no proposal: %v", obj["message"])
	}
	if m := missing(obj, "currentConfig", "proposedConfig"); len(m) > 0 {
		return Fail(obj, "success=true but missing config fields: %s", strings.Join(m, ", "))
	}
	return Pass(obj)
}

// CurrentPolicy checks the active policy configuration.
func CurrentPolicy(res gateway.Result) Outcome {
	obj, failed, ok := payloadObject(res)
	if !ok {
		return failed
	}
	if out, ok := requireFields(obj, "response", "symbol", "config"); !ok {
		return out
	}
	config, isObj := asObject(obj["config"])
	if !isObj {
		return Fail(obj, "config is not an object")
	}
	if m := missing(config, "tierWeights", "horizonWeights", "regimeMultipliers"); len(m) > 0 {
		return Fail(obj, "config missing fields: %s", strings.Join(m, ", "))
	}
	weights, isObj := asObject(config["tierWeights"])
	if !isObj {
		return Fail(obj, "config.tierWeights is not an object")
	}
	if m := missing(weights, Tiers...); len(m) > 0 {
		return Fail(obj, "missing tier weights: %s", strings.Join(m, ", "))
	}
	return Pass(obj)
}

// PolicyHistory checks that count matches the number of proposals.
func PolicyHistory(res gateway.Result) Outcome {
	obj, failed, ok := payloadObject(res)
	if !ok {
		return failed
	}
	if out, ok := requireFields(obj, "response", "symbol", "count", "proposals"); !ok {
		return out
	}
	proposals, isArr := asArray(obj["proposals"])
	if !isArr {
		return Fail(obj, "proposals is not an array")
	}
	count, ok := asCount(obj["count"])
	if !ok {
		return Fail(obj, "non-integer count fields: count")
	}
	if count != len(proposals) {
		return Fail(obj, "count mismatch: count=%d, proposals length=%d", count, len(proposals))
	}
	return Pass(obj)
}
