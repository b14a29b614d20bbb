package saml

import (
	"errors"
	"fmt"
	"time"

	"github.com/platinummonkey/verihub/pkg/state"
)

// DatasetKind selects which attribute set an outbound query asks the
// matching service for.
type DatasetKind string

const (
	DatasetCycle01             DatasetKind = "cycle-0-1"
	DatasetCycle3              DatasetKind = "cycle-3"
	DatasetUserAccountCreation DatasetKind = "user-account-creation"
)

// Cycle3Attribute is the supplementary user-provided attribute sent on a
// cycle-3 query.
type Cycle3Attribute struct {
	Name  string
	Value string
}

// AttributeQueryRequest describes one outbound matching-service query.
type AttributeQueryRequest struct {
	RequestID               string
	PersistentID            string
	LevelOfAssurance        state.LevelOfAssurance
	MatchingServiceEntityID string
	DatasetKind             DatasetKind

	// EncryptedAssertions are the opaque IDP assertion blobs forwarded
	// verbatim for the matching service to decrypt.
	EncryptedAssertions []string

	Cycle3Attribute *Cycle3Attribute
}

// ValidatedResponse is a structurally and cryptographically checked
// inbound IDP (or country) authentication response.
type ValidatedResponse struct {
	InResponseTo                      string
	IssuerEntityID                    string
	PersistentID                      string
	LevelOfAssurance                  state.LevelOfAssurance
	EncryptedMatchingDatasetAssertion string
	AuthnStatementAssertion           string
	SessionIndex                      string
	AuthnInstant                      time.Time
}

// MatchVerdict is the matching service's answer to an attribute query.
type MatchVerdict string

const (
	VerdictMatch                 MatchVerdict = "match"
	VerdictNoMatch               MatchVerdict = "no-match"
	VerdictRequestCycle3         MatchVerdict = "request-cycle-3"
	VerdictCreateAccount         MatchVerdict = "create-account"
	VerdictAccountCreated        MatchVerdict = "account-created"
	VerdictAccountCreationFailed MatchVerdict = "account-creation-failed"
)

// MatchResponse is a validated inbound matching-service response.
type MatchResponse struct {
	InResponseTo   string
	IssuerEntityID string
	Verdict        MatchVerdict

	// Assertion carries the matching-service assertion blob on match and
	// account-created verdicts, empty otherwise.
	Assertion string

	// Cycle3AttributeName names the supplementary attribute the
	// matching service needs; only set on a request-cycle-3 verdict.
	Cycle3AttributeName string
}

// Engine produces and validates the hub's SAML payloads. Implementations
// must be safe for concurrent use; one engine serves all sessions.
type Engine interface {
	// BuildAttributeQuery returns an opaque signed query payload for the
	// matching service identified in req.
	BuildAttributeQuery(req AttributeQueryRequest) (string, error)

	// ValidateAuthnResponse checks a raw inbound response against the
	// trust material of the issuing entity and returns its typed
	// content, or a *ValidationError.
	ValidateAuthnResponse(issuerEntityID, raw string) (*ValidatedResponse, error)

	// ValidateMatchResponse checks a raw inbound matching-service
	// response and returns its verdict, or a *ValidationError.
	ValidateMatchResponse(raw string) (*MatchResponse, error)
}

// ValidationError reports a structural or cryptographic failure in an
// inbound payload. Controllers translate it into a domain error without
// transitioning, so the request stays retryable.
type ValidationError struct {
	Reason string
	Cause  error
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("saml validation failed: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("saml validation failed: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
