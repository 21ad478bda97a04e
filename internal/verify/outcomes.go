package verify

import (
	"strings"

	"github.com/roach88/memcheck/internal/gateway"
)

// ResolveOutcomes checks the resolver summary. byFocus must enumerate
// exactly the known horizons.
func ResolveOutcomes(res gateway.Result) Outcome {
	obj, failed, ok := payloadObject(res)
	if !ok {
		return failed
	}
	if out, ok := requireFields(obj, "response", "symbol", "latestCandleDate", "resolved", "skipped", "byFocus", "reasons"); !ok {
		return out
	}
	byFocus, isObj := asObject(obj["byFocus"])
	if !isObj {
		return Fail(obj, "byFocus is not an object")
	}

	have := make(map[string]bool, len(byFocus))
	for k := range byFocus {
		have[k] = true
	}
	var problems []string
	if m := notIn(Horizons, have); len(m) > 0 {
		problems = append(problems, "byFocus missing horizons: "+strings.Join(m, ", "))
	}
	var extra []string
	for _, k := range sortedKeys(byFocus) {
		if !IsHorizon(k) {
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		problems = append(problems, "byFocus has unexpected horizons: "+strings.Join(extra, ", "))
	}
	if len(problems) > 0 {
		return Fail(obj, "%s", strings.Join(problems, "; "))
	}
	return Pass(obj)
}

// ForwardStats checks the forward-performance breakdowns.
//
// Only one of byPreset and byRole has to carry data. A lone empty breakdown
// passes with a note, since it may hide a backend defect.
func ForwardStats(res gateway.Result) Outcome {
	obj, failed, ok := payloadObject(res)
	if !ok {
		return failed
	}
	if out, ok := requireFields(obj, "response", "symbol", "totalResolved", "hitRate", "avgRealizedReturnPct", "byPreset", "byRole"); !ok {
		return out
	}
	presets, roles := size(obj["byPreset"]), size(obj["byRole"])
	switch {
	case presets == 0 && roles == 0:
		return Fail(obj, "no data in byPreset or byRole")
	case presets == 0:
		return PassWithNote(obj, "weak assertion: byPreset is empty")
	case roles == 0:
		return PassWithNote(obj, "weak assertion: byRole is empty")
	}
	return Pass(obj)
}

// Calibration returns a verifier for calibration stats requested with focus
// and no explicit preset; the service must echo focus and DefaultPreset.
func Calibration(focus string) Verifier {
	return func(res gateway.Result) Outcome {
		obj, failed, ok := payloadObject(res)
		if !ok {
			return failed
		}
		if out, ok := requireFields(obj, "response", "symbol", "focus", "preset", "hitRate", "bandHitRate", "avgError", "count"); !ok {
			return out
		}
		gotFocus, _ := obj["focus"].(string)
		gotPreset, _ := obj["preset"].(string)
		if gotFocus != focus || gotPreset != DefaultPreset {
			return Fail(obj, "unexpected focus/preset: %v/%v (want %s/%s)", obj["focus"], obj["preset"], focus, DefaultPreset)
		}
		return Pass(obj)
	}
}
