package session

import (
	"context"

	"github.com/platinummonkey/verihub/pkg/state"
)

// ResponseStatus is the outcome the hub reports back to the relying
// party.
type ResponseStatus string

const (
	StatusSuccess               ResponseStatus = "success"
	StatusNoMatch               ResponseStatus = "no-match"
	StatusCancelled             ResponseStatus = "cancelled"
	StatusAccountCreationFailed ResponseStatus = "account-creation-failed"
	StatusPaused                ResponseStatus = "paused-registration"
	StatusTimeout               ResponseStatus = "timeout"
	StatusRequesterError        ResponseStatus = "requester-error"
	StatusAuthnFailed           ResponseStatus = "authn-failed"
	StatusMatchingServiceError  ResponseStatus = "matching-service-error"
)

// ResponseDescriptor carries everything the transport layer needs to
// answer the relying party.
type ResponseDescriptor struct {
	SessionID                   state.SessionID
	RequestID                   string
	AssertionConsumerServiceURI string
	RelayState                  string
	StateName                   state.Name
	Status                      ResponseStatus
	IsError                     bool

	// Assertion is set only for success statuses.
	Assertion        string
	LevelOfAssurance state.LevelOfAssurance
}

// ResponseController serves every variant from which a final answer to
// the relying party can be produced. Preparing the response is a read:
// the session stays in its terminal state so the answer can be
// re-delivered.
type ResponseController struct {
	controllerBase
	current state.ResponsePrepared
}

func (c *ResponseController) StateName() state.Name { return c.current.Name() }

// PrepareResponse builds the answer for the relying party.
func (c *ResponseController) PrepareResponse(ctx context.Context) (*ResponseDescriptor, error) {
	env := c.current.Common()
	desc := &ResponseDescriptor{
		SessionID:                   c.id,
		RequestID:                   env.RequestID,
		AssertionConsumerServiceURI: env.AssertionConsumerServiceURI,
		RelayState:                  env.RelayState,
		StateName:                   c.current.Name(),
		IsError:                     state.IsErrorResponsePrepared(c.current),
	}

	switch cur := c.current.(type) {
	case *state.SuccessfulMatch:
		desc.Status = StatusSuccess
		desc.Assertion = cur.MatchingServiceAssertion
		desc.LevelOfAssurance = cur.IdpLevelOfAssurance
	case *state.EidasSuccessfulMatch:
		desc.Status = StatusSuccess
		desc.Assertion = cur.MatchingServiceAssertion
		desc.LevelOfAssurance = cur.LevelOfAssurance
	case *state.UserAccountCreated:
		desc.Status = StatusSuccess
		desc.Assertion = cur.MatchingServiceAssertion
		desc.LevelOfAssurance = cur.IdpLevelOfAssurance
	case *state.NoMatch:
		desc.Status = StatusNoMatch
	case *state.UserAccountCreationFailed:
		desc.Status = StatusAccountCreationFailed
	case *state.Cycle3DataInputCancelled:
		desc.Status = StatusCancelled
	case *state.PausedRegistration:
		desc.Status = StatusPaused
	case *state.Timeout:
		desc.Status = StatusTimeout
	case *state.RequesterError:
		desc.Status = StatusRequesterError
	case *state.AuthnFailedError:
		desc.Status = StatusAuthnFailed
	case *state.FraudEventDetected:
		// Fraud is reported to the relying party as a plain
		// authentication failure; the detail stays in the audit trail.
		desc.Status = StatusAuthnFailed
	case *state.MatchingServiceRequestError:
		desc.Status = StatusMatchingServiceError
	}
	return desc, nil
}

// PrepareErrorResponse builds the answer for the relying party,
// refusing states that can only produce a success answer.
func (c *ResponseController) PrepareErrorResponse(ctx context.Context) (*ResponseDescriptor, error) {
	if !state.IsErrorResponsePrepared(c.current) {
		return nil, &InvalidSessionStateError{
			SessionID: c.id,
			Expected:  ExpectCapability(CapabilityErrorResponsePrepared).String(),
			Actual:    c.current.Name(),
		}
	}
	return c.PrepareResponse(ctx)
}
