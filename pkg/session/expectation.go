package session

import (
	"github.com/platinummonkey/verihub/pkg/state"
)

// Capability names a cross-cutting grouping of variants a caller may
// request instead of one exact variant.
type Capability string

const (
	CapabilityResponsePrepared      Capability = "response_prepared"
	CapabilityErrorResponsePrepared Capability = "error_response_prepared"
	CapabilityMatchRequestPending   Capability = "match_request_pending"
)

// Expectation is what a caller asks GetStateController for: either one
// exact variant or any variant satisfying a capability.
type Expectation struct {
	name       state.Name
	capability Capability
	exact      bool
}

// ExpectState expects one exact variant.
func ExpectState(n state.Name) Expectation {
	return Expectation{name: n, exact: true}
}

// ExpectCapability expects any variant satisfying the capability.
func ExpectCapability(c Capability) Expectation {
	return Expectation{capability: c}
}

// Matches reports whether s satisfies the expectation.
func (e Expectation) Matches(s state.State) bool {
	if e.exact {
		return s.Name() == e.name
	}
	switch e.capability {
	case CapabilityResponsePrepared:
		return state.IsResponsePrepared(s)
	case CapabilityErrorResponsePrepared:
		return state.IsErrorResponsePrepared(s)
	case CapabilityMatchRequestPending:
		return state.IsMatchRequestPending(s)
	}
	return false
}

// IsTimeout reports whether the expectation is exactly the Timeout
// variant.
func (e Expectation) IsTimeout() bool {
	return e.exact && e.name == state.NameTimeout
}

// String renders the expectation for error context and audit records.
func (e Expectation) String() string {
	if e.exact {
		return string(e.name)
	}
	return "capability:" + string(e.capability)
}

// TimeoutTolerance decides whether an already-expired session may still
// be handed out for the given expectation without the Timeout
// conversion. The rule is a predicate rather than a hard-coded list so
// deployments can widen or narrow it.
type TimeoutTolerance func(expected Expectation, current state.State) bool

// DefaultTimeoutTolerance tolerates expiry only for the response
// families, and only when the stored state already satisfies the
// requested capability: a prepared answer may still be delivered to
// the relying party after the deadline.
func DefaultTimeoutTolerance(expected Expectation, current state.State) bool {
	if expected.exact {
		return false
	}
	switch expected.capability {
	case CapabilityResponsePrepared, CapabilityErrorResponsePrepared:
		return expected.Matches(current)
	}
	return false
}
