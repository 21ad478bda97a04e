package gateway

// FailureKind categorizes why a call did not produce a usable response.
type FailureKind string

// Failure kinds.
const (
	FailureStatus     FailureKind = "status"     // non-2xx HTTP status
	FailureTimeout    FailureKind = "timeout"    // no response within the client timeout
	FailureConnection FailureKind = "connection" // refused, reset, DNS failure
	FailureRequest    FailureKind = "request"    // anything else (bad method, unreadable body, ...)
)

// Result is the outcome of a single gateway call.
//
// Exactly one of the two shapes is populated:
//   - OK == true: Data holds the decoded JSON value, or the raw body text
//     when the body was not valid JSON. Status is the HTTP status code.
//   - OK == false: Kind and Error describe the failure. Status is set only
//     for FailureStatus.
type Result struct {
	OK     bool        `json:"ok"`
	Data   any         `json:"data,omitempty"`
	Status int         `json:"status,omitempty"`
	Kind   FailureKind `json:"kind,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Success builds a successful result.
func Success(status int, data any) Result {
	return Result{OK: true, Status: status, Data: data}
}

// Failure builds a failed result with a diagnostic message.
func Failure(kind FailureKind, message string) Result {
	return Result{Kind: kind, Error: message}
}
