package audit

import (
	"time"

	"github.com/platinummonkey/verihub/pkg/state"
)

// EventType categorizes a business-relevant session event.
type EventType string

const (
	// Session lifecycle
	EventSessionStarted      EventType = "session.started"
	EventSessionTimeout      EventType = "session.timeout"
	EventSessionStateInvalid EventType = "session.state_invalid"
	EventStateTransition     EventType = "session.state_transition"

	// IDP leg
	EventIdpSelected        EventType = "idp.selected"
	EventCountrySelected    EventType = "country.selected"
	EventIdpAuthnFailed     EventType = "idp.authn_failed"
	EventFraudDetected      EventType = "idp.fraud_detected"
	EventPausedRegistration EventType = "idp.paused_registration"

	// Matching leg
	EventMatchRequestSent   EventType = "match.request_sent"
	EventMatchSucceeded     EventType = "match.succeeded"
	EventMatchNoMatch       EventType = "match.no_match"
	EventMatchRequestError  EventType = "match.request_error"
	EventCycle3Requested    EventType = "cycle3.requested"
	EventCycle3Cancelled    EventType = "cycle3.cancelled"
	EventAccountCreationReq EventType = "account.creation_requested"
	EventAccountCreated     EventType = "account.created"
	EventAccountCreateFail  EventType = "account.creation_failed"

	// Relying party leg
	EventRequesterError EventType = "requester.error"
)

// TransitionEventType maps the state a committed transition lands in
// to the business event it represents. Landings with no richer
// meaning stay plain state transitions.
func TransitionEventType(to state.Name) EventType {
	switch to {
	case state.NameIdpSelected:
		return EventIdpSelected
	case state.NameCountrySelected:
		return EventCountrySelected
	case state.NameCycle0And1MatchRequestSent,
		state.NameEidasCycle0And1MatchRequestSent,
		state.NameCycle3MatchRequestSent:
		return EventMatchRequestSent
	case state.NameAwaitingCycle3Data:
		return EventCycle3Requested
	case state.NameCycle3DataInputCancelled:
		return EventCycle3Cancelled
	case state.NameSuccessfulMatch, state.NameEidasSuccessfulMatch:
		return EventMatchSucceeded
	case state.NameNoMatch:
		return EventMatchNoMatch
	case state.NameMatchingServiceRequestError:
		return EventMatchRequestError
	case state.NameUserAccountCreationRequestSent:
		return EventAccountCreationReq
	case state.NameUserAccountCreated:
		return EventAccountCreated
	case state.NameUserAccountCreationFailed:
		return EventAccountCreateFail
	case state.NamePausedRegistration:
		return EventPausedRegistration
	case state.NameFraudEventDetected:
		return EventFraudDetected
	case state.NameAuthnFailedError:
		return EventIdpAuthnFailed
	case state.NameRequesterError:
		return EventRequesterError
	default:
		return EventStateTransition
	}
}

// Event is one audit record. Events are informational: emitting them
// never influences protocol flow.
type Event struct {
	Timestamp      time.Time         `json:"timestamp"`
	Type           EventType         `json:"event_type"`
	SessionID      state.SessionID   `json:"session_id"`
	RequestID      string            `json:"request_id,omitempty"`
	IssuerEntityID string            `json:"issuer_entity_id,omitempty"`
	FromState      state.Name        `json:"from_state,omitempty"`
	ToState        state.Name        `json:"to_state,omitempty"`
	Message        string            `json:"message,omitempty"`
	Details        map[string]string `json:"details,omitempty"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent(eventType EventType, sessionID state.SessionID) *Event {
	return &Event{
		Timestamp: time.Now().UTC(),
		Type:      eventType,
		SessionID: sessionID,
	}
}

// WithDetail adds one key/value to the event and returns it for
// chaining.
func (e *Event) WithDetail(key, value string) *Event {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}
