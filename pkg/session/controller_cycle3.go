package session

import (
	"context"

	"github.com/platinummonkey/verihub/pkg/saml"
	"github.com/platinummonkey/verihub/pkg/state"
)

// AwaitingCycle3DataController waits for the user to supply the
// supplementary attribute the matching service asked for.
type AwaitingCycle3DataController struct {
	controllerBase
	current *state.AwaitingCycle3Data
}

func (c *AwaitingCycle3DataController) StateName() state.Name { return state.NameAwaitingCycle3Data }

// State returns the pending request.
func (c *AwaitingCycle3DataController) State() *state.AwaitingCycle3Data { return c.current }

// AttributeName names the attribute the user must supply.
func (c *AwaitingCycle3DataController) AttributeName() string { return c.current.Cycle3AttributeName }

// SubmitCycle3Attribute sends the user-provided value to the matching
// service and returns the signed query for the caller to deliver. The
// entry window is its own deadline; a late submission fails without
// touching the parent transaction's expiry.
func (c *AwaitingCycle3DataController) SubmitCycle3Attribute(ctx context.Context, value string) (string, error) {
	if !c.deps.Now().Before(c.current.Cycle3EntryDeadline) {
		return "", &Cycle3WindowExpiredError{SessionID: c.id, Deadline: c.current.Cycle3EntryDeadline}
	}

	query, err := c.deps.Engine.BuildAttributeQuery(saml.AttributeQueryRequest{
		RequestID:               c.current.RequestID,
		PersistentID:            c.current.PersistentID,
		LevelOfAssurance:        c.current.IdpLevelOfAssurance,
		MatchingServiceEntityID: c.current.MatchingServiceEntityID,
		DatasetKind:             saml.DatasetCycle3,
		EncryptedAssertions: []string{
			c.current.EncryptedMatchingDatasetAssertion,
			c.current.AuthnStatementAssertion,
		},
		Cycle3Attribute: &saml.Cycle3Attribute{
			Name:  c.current.Cycle3AttributeName,
			Value: value,
		},
	})
	if err != nil {
		return "", err
	}

	next := &state.Cycle3MatchRequestSent{
		Envelope:                          *c.current.Common(),
		IdpEntityID:                       c.current.IdpEntityID,
		MatchingServiceEntityID:           c.current.MatchingServiceEntityID,
		EncryptedMatchingDatasetAssertion: c.current.EncryptedMatchingDatasetAssertion,
		AuthnStatementAssertion:           c.current.AuthnStatementAssertion,
		PersistentID:                      c.current.PersistentID,
		IdpLevelOfAssurance:               c.current.IdpLevelOfAssurance,
		RegistrationTransaction:           c.current.RegistrationTransaction,
		Cycle3AttributeName:               c.current.Cycle3AttributeName,
		RequestSentAt:                     c.deps.Now(),
	}
	if err := c.action.Transition(ctx, next); err != nil {
		return "", err
	}
	return query, nil
}

// CancelCycle3Input records that the user abandoned the supplementary
// attribute entry.
func (c *AwaitingCycle3DataController) CancelCycle3Input(ctx context.Context) error {
	next := &state.Cycle3DataInputCancelled{
		Envelope:    *c.current.Common(),
		IdpEntityID: c.current.IdpEntityID,
	}
	return c.action.Transition(ctx, next)
}
