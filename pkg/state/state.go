package state

import (
	"time"

	"github.com/google/uuid"
)

// SessionID is the opaque key one session is stored under. It is minted
// once at session creation and never reused.
type SessionID string

// NewSessionID mints a fresh session id.
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

func (id SessionID) String() string {
	return string(id)
}

// Name is the discriminator naming a concrete State variant. Name values
// are part of the persisted record shape and must never be renamed.
type Name string

const (
	NameSessionStarted                  Name = "session_started"
	NameIdpSelected                     Name = "idp_selected"
	NameCountrySelected                 Name = "country_selected"
	NameCycle0And1MatchRequestSent      Name = "cycle0_and_1_match_request_sent"
	NameEidasCycle0And1MatchRequestSent Name = "eidas_cycle0_and_1_match_request_sent"
	NameCycle3MatchRequestSent          Name = "cycle3_match_request_sent"
	NameAwaitingCycle3Data              Name = "awaiting_cycle3_data"
	NameCycle3DataInputCancelled        Name = "cycle3_data_input_cancelled"
	NameSuccessfulMatch                 Name = "successful_match"
	NameEidasSuccessfulMatch            Name = "eidas_successful_match"
	NameNoMatch                         Name = "no_match"
	NameUserAccountCreationRequestSent  Name = "user_account_creation_request_sent"
	NameUserAccountCreated              Name = "user_account_created"
	NameUserAccountCreationFailed       Name = "user_account_creation_failed"
	NamePausedRegistration              Name = "paused_registration"
	NameFraudEventDetected              Name = "fraud_event_detected"
	NameRequesterError                  Name = "requester_error"
	NameAuthnFailedError                Name = "authn_failed_error"
	NameMatchingServiceRequestError     Name = "matching_service_request_error"
	NameTimeout                         Name = "timeout"
)

// AllNames lists every variant discriminator. Used by the controller
// factory to assert its dispatch table is exhaustive.
func AllNames() []Name {
	return []Name{
		NameSessionStarted,
		NameIdpSelected,
		NameCountrySelected,
		NameCycle0And1MatchRequestSent,
		NameEidasCycle0And1MatchRequestSent,
		NameCycle3MatchRequestSent,
		NameAwaitingCycle3Data,
		NameCycle3DataInputCancelled,
		NameSuccessfulMatch,
		NameEidasSuccessfulMatch,
		NameNoMatch,
		NameUserAccountCreationRequestSent,
		NameUserAccountCreated,
		NameUserAccountCreationFailed,
		NamePausedRegistration,
		NameFraudEventDetected,
		NameRequesterError,
		NameAuthnFailedError,
		NameMatchingServiceRequestError,
		NameTimeout,
	}
}

// Envelope holds the fields every variant carries.
type Envelope struct {
	RequestID                   string    `json:"request_id"`
	RequestIssuerEntityID       string    `json:"request_issuer_entity_id"`
	SessionExpiryTimestamp      time.Time `json:"session_expiry_timestamp"`
	AssertionConsumerServiceURI string    `json:"assertion_consumer_service_uri"`
	RelayState                  string    `json:"relay_state,omitempty"`
	ForceAuthentication         *bool     `json:"force_authentication,omitempty"`
	TransactionSupportsEidas    bool      `json:"transaction_supports_eidas"`
}

// Common returns the envelope itself; embedding Envelope is what makes
// a struct a State variant.
func (e *Envelope) Common() *Envelope { return e }

func (e *Envelope) sealed() {}

// Expired reports whether the session deadline has passed at now.
func (e *Envelope) Expired(now time.Time) bool {
	return !now.Before(e.SessionExpiryTimestamp)
}

// State is one stage of a session's protocol progress. The set of
// implementations is closed to this package.
type State interface {
	// Name returns the variant discriminator.
	Name() Name

	// Common returns the shared envelope fields.
	Common() *Envelope

	sealed()
}
