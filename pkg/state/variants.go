package state

import "time"

// SessionStarted is the admitted transaction before an identity provider
// (or country) has been chosen.
type SessionStarted struct {
	Envelope
}

func (*SessionStarted) Name() Name { return NameSessionStarted }

// IdpSelected records the chosen identity provider together with the
// candidates it was picked from and the levels of assurance the relying
// party will accept.
type IdpSelected struct {
	Envelope

	IdpEntityID                string             `json:"idp_entity_id"`
	AvailableIdentityProviders []string           `json:"available_identity_providers,omitempty"`
	LevelsOfAssurance          []LevelOfAssurance `json:"levels_of_assurance"`
	RegistrationTransaction    bool               `json:"registration_transaction"`
}

func (*IdpSelected) Name() Name { return NameIdpSelected }

// CountrySelected is the eIDAS counterpart of IdpSelected.
type CountrySelected struct {
	Envelope

	CountryEntityID   string             `json:"country_entity_id"`
	LevelsOfAssurance []LevelOfAssurance `json:"levels_of_assurance"`
}

func (*CountrySelected) Name() Name { return NameCountrySelected }

// Cycle0And1MatchRequestSent means a default-dataset attribute query is
// outstanding at the matching service. RequestSentAt feeds sub-timeout
// accounting for the matching leg.
type Cycle0And1MatchRequestSent struct {
	Envelope

	IdpEntityID                       string           `json:"idp_entity_id"`
	MatchingServiceEntityID           string           `json:"matching_service_entity_id"`
	EncryptedMatchingDatasetAssertion string           `json:"encrypted_matching_dataset_assertion"`
	AuthnStatementAssertion           string           `json:"authn_statement_assertion"`
	PersistentID                      string           `json:"persistent_id"`
	IdpLevelOfAssurance               LevelOfAssurance `json:"idp_level_of_assurance"`
	RegistrationTransaction           bool             `json:"registration_transaction"`
	RequestSentAt                     time.Time        `json:"request_sent_at"`
}

func (*Cycle0And1MatchRequestSent) Name() Name { return NameCycle0And1MatchRequestSent }

// EidasCycle0And1MatchRequestSent is the cross-border variant of
// Cycle0And1MatchRequestSent; country responses carry a single encrypted
// identity assertion instead of the dataset/authn-statement pair.
type EidasCycle0And1MatchRequestSent struct {
	Envelope

	CountryEntityID            string           `json:"country_entity_id"`
	MatchingServiceEntityID    string           `json:"matching_service_entity_id"`
	EncryptedIdentityAssertion string           `json:"encrypted_identity_assertion"`
	PersistentID               string           `json:"persistent_id"`
	LevelOfAssurance           LevelOfAssurance `json:"level_of_assurance"`
	RequestSentAt              time.Time        `json:"request_sent_at"`
}

func (*EidasCycle0And1MatchRequestSent) Name() Name { return NameEidasCycle0And1MatchRequestSent }

// Cycle3MatchRequestSent means a supplementary attribute query carrying
// the user-provided cycle-3 value is outstanding at the matching service.
type Cycle3MatchRequestSent struct {
	Envelope

	IdpEntityID                       string           `json:"idp_entity_id"`
	MatchingServiceEntityID           string           `json:"matching_service_entity_id"`
	EncryptedMatchingDatasetAssertion string           `json:"encrypted_matching_dataset_assertion"`
	AuthnStatementAssertion           string           `json:"authn_statement_assertion"`
	PersistentID                      string           `json:"persistent_id"`
	IdpLevelOfAssurance               LevelOfAssurance `json:"idp_level_of_assurance"`
	RegistrationTransaction           bool             `json:"registration_transaction"`
	Cycle3AttributeName               string           `json:"cycle3_attribute_name"`
	RequestSentAt                     time.Time        `json:"request_sent_at"`
}

func (*Cycle3MatchRequestSent) Name() Name { return NameCycle3MatchRequestSent }

// AwaitingCycle3Data means the matching service asked for a supplementary
// attribute and the hub is waiting for the user to provide it.
// Cycle3EntryDeadline is an independent sub-deadline for the data-entry
// window; it does not move the parent transaction's expiry.
type AwaitingCycle3Data struct {
	Envelope

	IdpEntityID                       string           `json:"idp_entity_id"`
	MatchingServiceEntityID           string           `json:"matching_service_entity_id"`
	EncryptedMatchingDatasetAssertion string           `json:"encrypted_matching_dataset_assertion"`
	AuthnStatementAssertion           string           `json:"authn_statement_assertion"`
	PersistentID                      string           `json:"persistent_id"`
	IdpLevelOfAssurance               LevelOfAssurance `json:"idp_level_of_assurance"`
	RegistrationTransaction           bool             `json:"registration_transaction"`
	Cycle3AttributeName               string           `json:"cycle3_attribute_name"`
	Cycle3EntryDeadline               time.Time        `json:"cycle3_entry_deadline"`
}

func (*AwaitingCycle3Data) Name() Name { return NameAwaitingCycle3Data }

// Cycle3DataInputCancelled means the user abandoned the supplementary
// attribute entry; the transaction answers the relying party without a
// match.
type Cycle3DataInputCancelled struct {
	Envelope

	IdpEntityID string `json:"idp_entity_id"`
}

func (*Cycle3DataInputCancelled) Name() Name { return NameCycle3DataInputCancelled }

// SuccessfulMatch carries the matching service's assertion for the
// account the authenticated identity resolved to.
type SuccessfulMatch struct {
	Envelope

	IdpEntityID               string           `json:"idp_entity_id"`
	MatchingServiceAssertion  string           `json:"matching_service_assertion"`
	IdpLevelOfAssurance       LevelOfAssurance `json:"idp_level_of_assurance"`
	IsRegistrationTransaction bool             `json:"is_registration_transaction"`
}

func (*SuccessfulMatch) Name() Name { return NameSuccessfulMatch }

// EidasSuccessfulMatch is the cross-border match verdict.
type EidasSuccessfulMatch struct {
	Envelope

	CountryEntityID          string           `json:"country_entity_id"`
	MatchingServiceAssertion string           `json:"matching_service_assertion"`
	LevelOfAssurance         LevelOfAssurance `json:"level_of_assurance"`
}

func (*EidasSuccessfulMatch) Name() Name { return NameEidasSuccessfulMatch }

// NoMatch means the matching service exhausted its cycles without
// resolving the identity to an account.
type NoMatch struct {
	Envelope

	IdpEntityID         string           `json:"idp_entity_id"`
	IdpLevelOfAssurance LevelOfAssurance `json:"idp_level_of_assurance,omitempty"`
}

func (*NoMatch) Name() Name { return NameNoMatch }

// UserAccountCreationRequestSent means the hub asked the matching
// service to create an account for the unmatched identity.
type UserAccountCreationRequestSent struct {
	Envelope

	IdpEntityID             string           `json:"idp_entity_id"`
	MatchingServiceEntityID string           `json:"matching_service_entity_id"`
	PersistentID            string           `json:"persistent_id"`
	IdpLevelOfAssurance     LevelOfAssurance `json:"idp_level_of_assurance"`
	RequestSentAt           time.Time        `json:"request_sent_at"`
}

func (*UserAccountCreationRequestSent) Name() Name { return NameUserAccountCreationRequestSent }

// UserAccountCreated carries the assertion for the freshly created
// account.
type UserAccountCreated struct {
	Envelope

	IdpEntityID              string           `json:"idp_entity_id"`
	MatchingServiceAssertion string           `json:"matching_service_assertion"`
	IdpLevelOfAssurance      LevelOfAssurance `json:"idp_level_of_assurance"`
}

func (*UserAccountCreated) Name() Name { return NameUserAccountCreated }

// UserAccountCreationFailed means the matching service declined or
// failed to create an account.
type UserAccountCreationFailed struct {
	Envelope
}

func (*UserAccountCreationFailed) Name() Name { return NameUserAccountCreationFailed }

// PausedRegistration means the identity provider parked the user
// mid-registration (for example pending offline verification).
type PausedRegistration struct {
	Envelope

	IdpEntityID string `json:"idp_entity_id"`
}

func (*PausedRegistration) Name() Name { return NamePausedRegistration }

// FraudEventDetected means the identity provider reported the
// authentication as fraudulent.
type FraudEventDetected struct {
	Envelope

	IdpEntityID    string `json:"idp_entity_id"`
	FraudEventID   string `json:"fraud_event_id"`
	FraudIndicator string `json:"fraud_indicator"`
}

func (*FraudEventDetected) Name() Name { return NameFraudEventDetected }

// RequesterError means the relying party's request was at fault (bad
// request, requester-initiated cancel).
type RequesterError struct {
	Envelope

	ErrorDetail string `json:"error_detail,omitempty"`
}

func (*RequesterError) Name() Name { return NameRequesterError }

// AuthnFailedError means the identity provider failed to authenticate
// the user.
type AuthnFailedError struct {
	Envelope

	IdpEntityID string `json:"idp_entity_id,omitempty"`
}

func (*AuthnFailedError) Name() Name { return NameAuthnFailedError }

// MatchingServiceRequestError means the attribute query leg failed
// before a verdict was produced.
type MatchingServiceRequestError struct {
	Envelope

	IdpEntityID string `json:"idp_entity_id,omitempty"`
}

func (*MatchingServiceRequestError) Name() Name { return NameMatchingServiceRequestError }

// Timeout is the terminal state an expired session is lazily converted
// to on first access past its deadline.
type Timeout struct {
	Envelope
}

func (*Timeout) Name() Name { return NameTimeout }
