package session

import (
	"context"
	"fmt"

	"github.com/platinummonkey/verihub/pkg/saml"
	"github.com/platinummonkey/verihub/pkg/state"
)

// IdpSelectedController drives the identity provider leg: it accepts
// the IDP's authentication outcome and opens the matching leg.
type IdpSelectedController struct {
	controllerBase
	current *state.IdpSelected
}

func (c *IdpSelectedController) StateName() state.Name { return state.NameIdpSelected }

// State returns the selection being driven.
func (c *IdpSelectedController) State() *state.IdpSelected { return c.current }

// matchingServiceFor resolves which matching service answers for the
// relying party that opened the transaction.
func (c *controllerBase) matchingServiceFor(requestIssuerEntityID string) (string, error) {
	rp, err := c.deps.Federation.Entity(requestIssuerEntityID)
	if err != nil {
		return "", err
	}
	if rp.MatchingServiceEntityID == "" {
		return "", fmt.Errorf("relying party %s has no matching service configured", requestIssuerEntityID)
	}
	if _, err := c.deps.Federation.RequireEnabled(rp.MatchingServiceEntityID); err != nil {
		return "", err
	}
	return rp.MatchingServiceEntityID, nil
}

// HandleIdpAuthnResponse validates a successful IDP response, opens
// the cycle-0/1 matching leg and returns the signed attribute query
// for the caller to deliver. Validation failures leave the stored
// state untouched so the post can be retried.
func (c *IdpSelectedController) HandleIdpAuthnResponse(ctx context.Context, raw string) (string, error) {
	resp, err := c.deps.Engine.ValidateAuthnResponse(c.current.IdpEntityID, raw)
	if err != nil {
		return "", err
	}
	if resp.InResponseTo != c.current.RequestID {
		return "", &RequestIDMismatchError{SessionID: c.id, Expected: c.current.RequestID, Got: resp.InResponseTo}
	}
	if !acceptsLevel(c.current.LevelsOfAssurance, resp.LevelOfAssurance) {
		return "", &LoaUnsupportedError{EntityID: c.current.IdpEntityID, Wanted: c.current.LevelsOfAssurance}
	}

	msEntityID, err := c.matchingServiceFor(c.current.RequestIssuerEntityID)
	if err != nil {
		return "", err
	}

	query, err := c.deps.Engine.BuildAttributeQuery(saml.AttributeQueryRequest{
		RequestID:               c.current.RequestID,
		PersistentID:            resp.PersistentID,
		LevelOfAssurance:        resp.LevelOfAssurance,
		MatchingServiceEntityID: msEntityID,
		DatasetKind:             saml.DatasetCycle01,
		EncryptedAssertions:     []string{resp.EncryptedMatchingDatasetAssertion, resp.AuthnStatementAssertion},
	})
	if err != nil {
		return "", err
	}

	next := &state.Cycle0And1MatchRequestSent{
		Envelope:                          *c.current.Common(),
		IdpEntityID:                       c.current.IdpEntityID,
		MatchingServiceEntityID:           msEntityID,
		EncryptedMatchingDatasetAssertion: resp.EncryptedMatchingDatasetAssertion,
		AuthnStatementAssertion:           resp.AuthnStatementAssertion,
		PersistentID:                      resp.PersistentID,
		IdpLevelOfAssurance:               resp.LevelOfAssurance,
		RegistrationTransaction:           c.current.RegistrationTransaction,
		RequestSentAt:                     c.deps.Now(),
	}
	if err := c.action.Transition(ctx, next); err != nil {
		return "", err
	}
	return query, nil
}

// HandleIdpAuthnFailure records that the IDP could not authenticate
// the user.
func (c *IdpSelectedController) HandleIdpAuthnFailure(ctx context.Context) error {
	next := &state.AuthnFailedError{
		Envelope:    *c.current.Common(),
		IdpEntityID: c.current.IdpEntityID,
	}
	return c.action.Transition(ctx, next)
}

// HandleRequesterError records a relying-party-side failure reported
// mid-leg.
func (c *IdpSelectedController) HandleRequesterError(ctx context.Context, detail string) error {
	next := &state.RequesterError{
		Envelope:    *c.current.Common(),
		ErrorDetail: detail,
	}
	return c.action.Transition(ctx, next)
}

// HandleFraudEvent records a fraud report from the IDP.
func (c *IdpSelectedController) HandleFraudEvent(ctx context.Context, fraudEventID, indicator string) error {
	next := &state.FraudEventDetected{
		Envelope:       *c.current.Common(),
		IdpEntityID:    c.current.IdpEntityID,
		FraudEventID:   fraudEventID,
		FraudIndicator: indicator,
	}
	return c.action.Transition(ctx, next)
}

// HandlePausedRegistration records that the IDP parked the user
// mid-registration.
func (c *IdpSelectedController) HandlePausedRegistration(ctx context.Context) error {
	next := &state.PausedRegistration{
		Envelope:    *c.current.Common(),
		IdpEntityID: c.current.IdpEntityID,
	}
	return c.action.Transition(ctx, next)
}

// TryAnotherIdp returns the session to SessionStarted so the user can
// pick a different provider.
func (c *IdpSelectedController) TryAnotherIdp(ctx context.Context) error {
	next := &state.SessionStarted{Envelope: *c.current.Common()}
	return c.action.Transition(ctx, next)
}

// CountrySelectedController drives the cross-border identity provider
// leg.
type CountrySelectedController struct {
	controllerBase
	current *state.CountrySelected
}

func (c *CountrySelectedController) StateName() state.Name { return state.NameCountrySelected }

// State returns the selection being driven.
func (c *CountrySelectedController) State() *state.CountrySelected { return c.current }

// HandleCountryAuthnResponse validates a successful country response,
// opens the eIDAS matching leg and returns the signed attribute query
// for the caller to deliver.
func (c *CountrySelectedController) HandleCountryAuthnResponse(ctx context.Context, raw string) (string, error) {
	resp, err := c.deps.Engine.ValidateAuthnResponse(c.current.CountryEntityID, raw)
	if err != nil {
		return "", err
	}
	if resp.InResponseTo != c.current.RequestID {
		return "", &RequestIDMismatchError{SessionID: c.id, Expected: c.current.RequestID, Got: resp.InResponseTo}
	}
	if !acceptsLevel(c.current.LevelsOfAssurance, resp.LevelOfAssurance) {
		return "", &LoaUnsupportedError{EntityID: c.current.CountryEntityID, Wanted: c.current.LevelsOfAssurance}
	}

	msEntityID, err := c.matchingServiceFor(c.current.RequestIssuerEntityID)
	if err != nil {
		return "", err
	}

	// Country responses carry a single encrypted identity assertion
	// rather than the dataset/authn-statement pair.
	query, err := c.deps.Engine.BuildAttributeQuery(saml.AttributeQueryRequest{
		RequestID:               c.current.RequestID,
		PersistentID:            resp.PersistentID,
		LevelOfAssurance:        resp.LevelOfAssurance,
		MatchingServiceEntityID: msEntityID,
		DatasetKind:             saml.DatasetCycle01,
		EncryptedAssertions:     []string{resp.EncryptedMatchingDatasetAssertion},
	})
	if err != nil {
		return "", err
	}

	next := &state.EidasCycle0And1MatchRequestSent{
		Envelope:                   *c.current.Common(),
		CountryEntityID:            c.current.CountryEntityID,
		MatchingServiceEntityID:    msEntityID,
		EncryptedIdentityAssertion: resp.EncryptedMatchingDatasetAssertion,
		PersistentID:               resp.PersistentID,
		LevelOfAssurance:           resp.LevelOfAssurance,
		RequestSentAt:              c.deps.Now(),
	}
	if err := c.action.Transition(ctx, next); err != nil {
		return "", err
	}
	return query, nil
}
