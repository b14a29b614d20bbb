package session

import (
	"context"
	"time"

	"github.com/platinummonkey/verihub/pkg/saml"
	"github.com/platinummonkey/verihub/pkg/state"
)

// matchKind distinguishes which outstanding attribute query a
// MatchRequestSentController is waiting on.
type matchKind int

const (
	matchCycle01 matchKind = iota
	matchCycle3
	matchEidas
)

// MatchRequestSentController waits on an outstanding matching-service
// query. It serves the cycle-0/1, cycle-3 and eIDAS variants; the
// verdicts legal for each differ.
type MatchRequestSentController struct {
	controllerBase
	current state.State
	kind    matchKind

	// Identity-provider leg recorded when the query was sent. For the
	// eIDAS kind partyEntityID is the country entity id.
	partyEntityID           string
	matchingServiceEntityID string
	persistentID            string
	level                   state.LevelOfAssurance
	registration            bool
	requestSentAt           time.Time
}

func (c *MatchRequestSentController) StateName() state.Name { return c.current.Name() }

// RequestSentAt exposes the query send time for the transport layer's
// sub-timeout accounting. The matching leg has its own patience,
// independent of the session deadline.
func (c *MatchRequestSentController) RequestSentAt() time.Time { return c.requestSentAt }

// HandleMatchResponse validates the matching service's answer and
// commits the verdict. When the verdict asks for account creation the
// returned payload is the follow-up query for the caller to deliver;
// it is empty for every other verdict.
func (c *MatchRequestSentController) HandleMatchResponse(ctx context.Context, raw string) (string, error) {
	env := c.current.Common()

	resp, err := c.deps.Engine.ValidateMatchResponse(raw)
	if err != nil {
		return "", err
	}
	if resp.InResponseTo != env.RequestID {
		return "", &RequestIDMismatchError{SessionID: c.id, Expected: env.RequestID, Got: resp.InResponseTo}
	}

	switch resp.Verdict {
	case saml.VerdictMatch:
		return "", c.action.Transition(ctx, c.matchedState(resp.Assertion))

	case saml.VerdictNoMatch:
		next := &state.NoMatch{
			Envelope:            *env,
			IdpEntityID:         c.partyEntityID,
			IdpLevelOfAssurance: c.level,
		}
		return "", c.action.Transition(ctx, next)

	case saml.VerdictRequestCycle3:
		// Only the first matching round may escalate to a
		// supplementary attribute.
		if c.kind != matchCycle01 {
			return "", &MatchVerdictError{SessionID: c.id, Verdict: resp.Verdict, Stage: c.current.Name()}
		}
		cur := c.current.(*state.Cycle0And1MatchRequestSent)
		next := &state.AwaitingCycle3Data{
			Envelope:                          *env,
			IdpEntityID:                       cur.IdpEntityID,
			MatchingServiceEntityID:           cur.MatchingServiceEntityID,
			EncryptedMatchingDatasetAssertion: cur.EncryptedMatchingDatasetAssertion,
			AuthnStatementAssertion:           cur.AuthnStatementAssertion,
			PersistentID:                      cur.PersistentID,
			IdpLevelOfAssurance:               cur.IdpLevelOfAssurance,
			RegistrationTransaction:           cur.RegistrationTransaction,
			Cycle3AttributeName:               resp.Cycle3AttributeName,
			Cycle3EntryDeadline:               c.deps.Now().Add(c.deps.Cycle3Window),
		}
		return "", c.action.Transition(ctx, next)

	case saml.VerdictCreateAccount:
		if c.kind == matchEidas {
			return "", &MatchVerdictError{SessionID: c.id, Verdict: resp.Verdict, Stage: c.current.Name()}
		}
		query, err := c.deps.Engine.BuildAttributeQuery(saml.AttributeQueryRequest{
			RequestID:               env.RequestID,
			PersistentID:            c.persistentID,
			LevelOfAssurance:        c.level,
			MatchingServiceEntityID: c.matchingServiceEntityID,
			DatasetKind:             saml.DatasetUserAccountCreation,
		})
		if err != nil {
			return "", err
		}
		next := &state.UserAccountCreationRequestSent{
			Envelope:                *env,
			IdpEntityID:             c.partyEntityID,
			MatchingServiceEntityID: c.matchingServiceEntityID,
			PersistentID:            c.persistentID,
			IdpLevelOfAssurance:     c.level,
			RequestSentAt:           c.deps.Now(),
		}
		if err := c.action.Transition(ctx, next); err != nil {
			return "", err
		}
		return query, nil

	default:
		return "", &MatchVerdictError{SessionID: c.id, Verdict: resp.Verdict, Stage: c.current.Name()}
	}
}

// matchedState builds the terminal match state for the controller's
// kind.
func (c *MatchRequestSentController) matchedState(assertion string) state.State {
	env := c.current.Common()
	if c.kind == matchEidas {
		return &state.EidasSuccessfulMatch{
			Envelope:                 *env,
			CountryEntityID:          c.partyEntityID,
			MatchingServiceAssertion: assertion,
			LevelOfAssurance:         c.level,
		}
	}
	return &state.SuccessfulMatch{
		Envelope:                  *env,
		IdpEntityID:               c.partyEntityID,
		MatchingServiceAssertion:  assertion,
		IdpLevelOfAssurance:       c.level,
		IsRegistrationTransaction: c.registration,
	}
}

// HandleMatchRequestFailure records that the matching leg failed
// before a verdict was produced (transport failure, unanswered query).
func (c *MatchRequestSentController) HandleMatchRequestFailure(ctx context.Context) error {
	next := &state.MatchingServiceRequestError{
		Envelope:    *c.current.Common(),
		IdpEntityID: c.partyEntityID,
	}
	return c.action.Transition(ctx, next)
}

// UserAccountCreationController waits on an outstanding
// account-creation request at the matching service.
type UserAccountCreationController struct {
	controllerBase
	current *state.UserAccountCreationRequestSent
}

func (c *UserAccountCreationController) StateName() state.Name {
	return state.NameUserAccountCreationRequestSent
}

// RequestSentAt exposes the request send time for sub-timeout
// accounting.
func (c *UserAccountCreationController) RequestSentAt() time.Time { return c.current.RequestSentAt }

// HandleAccountCreationResponse validates the matching service's
// account-creation outcome and commits it.
func (c *UserAccountCreationController) HandleAccountCreationResponse(ctx context.Context, raw string) error {
	resp, err := c.deps.Engine.ValidateMatchResponse(raw)
	if err != nil {
		return err
	}
	if resp.InResponseTo != c.current.RequestID {
		return &RequestIDMismatchError{SessionID: c.id, Expected: c.current.RequestID, Got: resp.InResponseTo}
	}

	switch resp.Verdict {
	case saml.VerdictAccountCreated:
		next := &state.UserAccountCreated{
			Envelope:                 *c.current.Common(),
			IdpEntityID:              c.current.IdpEntityID,
			MatchingServiceAssertion: resp.Assertion,
			IdpLevelOfAssurance:      c.current.IdpLevelOfAssurance,
		}
		return c.action.Transition(ctx, next)

	case saml.VerdictAccountCreationFailed:
		next := &state.UserAccountCreationFailed{Envelope: *c.current.Common()}
		return c.action.Transition(ctx, next)

	default:
		return &MatchVerdictError{SessionID: c.id, Verdict: resp.Verdict, Stage: c.current.Name()}
	}
}

// HandleMatchRequestFailure records that the account-creation leg
// failed before an outcome was produced.
func (c *UserAccountCreationController) HandleMatchRequestFailure(ctx context.Context) error {
	next := &state.MatchingServiceRequestError{
		Envelope:    *c.current.Common(),
		IdpEntityID: c.current.IdpEntityID,
	}
	return c.action.Transition(ctx, next)
}
