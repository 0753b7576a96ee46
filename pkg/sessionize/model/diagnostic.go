package model

type DiagnosticKind string

const (
	LateArrivalDiagnostic   DiagnosticKind = "late_arrival"
	ForcedClosureDiagnostic DiagnosticKind = "forced_closure"
	InvalidSpanIdDiagnostic DiagnosticKind = "invalid_span_id"
)

// Diagnostic is a non-fatal condition surfaced to the caller instead of being
// silently dropped: a late arrival for an already closed session, a forced
// closure, or a span id excluded from tree building.
type Diagnostic struct {
	Kind      DiagnosticKind `json:"kind"`
	SessionID string         `json:"session_id"`
	Timestamp int64          `json:"timestamp"`
	Detail    string         `json:"detail,omitempty"`
}
