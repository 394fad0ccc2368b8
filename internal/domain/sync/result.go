// Package sync defines the domain types of the persistence synchronization
// subsystem: the sync result contract, the typed failure taxonomy with its
// fallback policy, the sync marker timestamp policy, and the historical
// backup layouts.
package sync

import "time"

// FailureKind classifies a push or restore failure. The kind, not the error
// text, decides whether the dispatcher may fall back to another channel.
type FailureKind int

const (
	// KindNone means the operation succeeded.
	KindNone FailureKind = iota

	// KindConfigMissing is a definitive source-side failure: the local
	// clawdbot.json is absent. Retrying through a different channel would
	// fail on the same broken source.
	KindConfigMissing

	// KindUnconfigured is a definitive failure: the remote store has no
	// credentials, so no channel can possibly push.
	KindUnconfigured

	// KindTransport covers executor disconnects, unexpected non-zero exits,
	// and missing completion sentinels. Eligible for channel fallback.
	KindTransport

	// KindPayloadCorrupt marks an undersized or undecodable archive payload.
	// Treated as transport-class: the source may well be fine.
	KindPayloadCorrupt

	// KindTimeout marks a bounded wait that expired. Treated as transport-class.
	KindTimeout

	// KindMountFailure means the fallback channel's own prerequisite failed.
	// No further fallback exists.
	KindMountFailure

	// KindValidation is restore-side: a restored layout failed its sanity
	// check. The coordinator tries the next-priority layout.
	KindValidation
)

// String returns the failure kind name for logs and diagnostics.
func (k FailureKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindConfigMissing:
		return "config_missing"
	case KindUnconfigured:
		return "unconfigured"
	case KindTransport:
		return "transport"
	case KindPayloadCorrupt:
		return "payload_corrupt"
	case KindTimeout:
		return "timeout"
	case KindMountFailure:
		return "mount_failure"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// fallbackPolicy maps each failure kind to its fallback eligibility.
// Transport-class failures may be retried through the next channel;
// definitive failures stop the dispatch walk immediately.
var fallbackPolicy = map[FailureKind]bool{
	KindNone:           false,
	KindConfigMissing:  false,
	KindUnconfigured:   false,
	KindTransport:      true,
	KindPayloadCorrupt: true,
	KindTimeout:        true,
	KindMountFailure:   false,
	KindValidation:     false,
}

// EligibleForFallback reports whether a failure of this kind permits the
// dispatcher to attempt the next channel.
func (k FailureKind) EligibleForFallback() bool {
	return fallbackPolicy[k]
}

// Definitive reports whether the failure is attributable to the source state
// or configuration itself rather than the transport path.
func (k FailureKind) Definitive() bool {
	return k != KindNone && !fallbackPolicy[k]
}

// Result is the only contract value the sync subsystem exposes to external
// callers: the diagnostics endpoint and the scheduler log report it verbatim.
type Result struct {
	Success  bool       `json:"success"`
	LastSync *time.Time `json:"lastSync,omitempty"`
	Error    string     `json:"error,omitempty"`
	Details  string     `json:"details,omitempty"`

	// Kind carries the typed classification for dispatch decisions.
	// It is internal to the subsystem and never serialized.
	Kind FailureKind `json:"-"`
}

// Succeeded builds a successful result stamped with the marker time.
func Succeeded(lastSync time.Time) Result {
	return Result{Success: true, LastSync: &lastSync}
}

// Failed builds a failed result with the given classification.
func Failed(kind FailureKind, errMsg, details string) Result {
	return Result{Success: false, Kind: kind, Error: errMsg, Details: details}
}
