package verify

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/roach88/memcheck/internal/gateway"
)

// object is a decoded JSON object.
type object = map[string]any

// payloadObject applies the checks shared by every endpoint and returns the
// response as a JSON object. When ok is false, failed is the outcome to report.
func payloadObject(res gateway.Result) (obj object, failed Outcome, ok bool) {
	if !res.OK {
		return nil, Fail(nil, "%s", res.Error), false
	}
	if isEmpty(res.Data) {
		return nil, Fail(res.Data, "empty response body"), false
	}
	obj, isObj := res.Data.(map[string]any)
	if !isObj {
		return nil, Fail(res.Data, "expected JSON object, got %s", kindOf(res.Data)), false
	}
	// The service reports handler errors in-band with a 200 status.
	if flag, _ := obj["error"].(bool); flag {
		msg, _ := obj["message"].(string)
		if msg == "" {
			msg = "no message"
		}
		return nil, Fail(obj, "service error: %s", msg), false
	}
	return obj, Outcome{}, true
}

// missing returns the names in fields that obj lacks, in the given order.
func missing(obj object, fields ...string) []string {
	var out []string
	for _, f := range fields {
		if _, ok := obj[f]; !ok {
			out = append(out, f)
		}
	}
	return out
}

// requireFields fails the outcome when obj lacks any of fields.
// what names the object in the diagnostic ("response", "snapshot", ...).
func requireFields(obj object, what string, fields ...string) (Outcome, bool) {
	if m := missing(obj, fields...); len(m) > 0 {
		return Fail(obj, "%s missing fields: %s", what, strings.Join(m, ", ")), false
	}
	return Outcome{}, true
}

// asObject returns v as a JSON object.
func asObject(v any) (object, bool) {
	obj, ok := v.(map[string]any)
	return obj, ok
}

// asArray returns v as a JSON array.
func asArray(v any) ([]any, bool) {
	arr, ok := v.([]any)
	return arr, ok
}

// asNumber returns v as a float64 when it is a JSON number.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// asCount returns v as an integer count. Fractional numbers are rejected.
func asCount(v any) (int, bool) {
	f, ok := asNumber(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// countFields reads several integer fields at once.
func countFields(obj object, fields ...string) ([]int, Outcome, bool) {
	out := make([]int, len(fields))
	var bad []string
	for i, f := range fields {
		n, ok := asCount(obj[f])
		if !ok {
			bad = append(bad, f)
			continue
		}
		out[i] = n
	}
	if len(bad) > 0 {
		return nil, Fail(obj, "non-integer count fields: %s", strings.Join(bad, ", ")), false
	}
	return out, Outcome{}, true
}

// size returns the number of entries in a JSON object or array.
func size(v any) int {
	switch c := v.(type) {
	case map[string]any:
		return len(c)
	case []any:
		return len(c)
	default:
		return 0
	}
}

// isEmpty mirrors JSON "falsy" payloads: null, "", {} and [].
func isEmpty(v any) bool {
	switch c := v.(type) {
	case nil:
		return true
	case string:
		return c == ""
	case map[string]any, []any:
		return size(c) == 0
	default:
		return false
	}
}

// sortedKeys returns the keys of obj in lexical order.
func sortedKeys(obj object) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// notIn returns the members of want that are absent from have.
func notIn(want []string, have map[string]bool) []string {
	var out []string
	for _, w := range want {
		if !have[w] {
			out = append(out, w)
		}
	}
	return out
}

// kindOf names the JSON kind of v for diagnostics.
func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "text"
	case bool:
		return "boolean"
	case json.Number, float64, int, int64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
