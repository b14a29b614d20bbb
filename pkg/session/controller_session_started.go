package session

import (
	"context"

	"github.com/platinummonkey/verihub/pkg/state"
)

// SessionStartedController drives an admitted transaction that has not
// yet chosen an identity provider.
type SessionStartedController struct {
	controllerBase
	current *state.SessionStarted
}

func (c *SessionStartedController) StateName() state.Name { return state.NameSessionStarted }

// State returns the admitted transaction.
func (c *SessionStartedController) State() *state.SessionStarted { return c.current }

// SelectIdp commits the user's identity provider choice. The provider
// must be enabled in the federation and support at least one of the
// required levels of assurance.
func (c *SessionStartedController) SelectIdp(ctx context.Context, idpEntityID string, levels []state.LevelOfAssurance, registration bool) error {
	cfg, err := c.deps.Federation.RequireEnabled(idpEntityID)
	if err != nil {
		return err
	}
	if !cfg.SupportsLevel(levels...) {
		return &LoaUnsupportedError{EntityID: idpEntityID, Wanted: levels}
	}

	next := &state.IdpSelected{
		Envelope:                   *c.current.Common(),
		IdpEntityID:                idpEntityID,
		AvailableIdentityProviders: c.deps.Federation.EnabledIdentityProviders(false, levels...),
		LevelsOfAssurance:          levels,
		RegistrationTransaction:    registration,
	}
	return c.action.Transition(ctx, next)
}

// SelectCountry commits a cross-border identity provider choice. The
// transaction itself and the chosen country must both support eIDAS.
func (c *SessionStartedController) SelectCountry(ctx context.Context, countryEntityID string, levels []state.LevelOfAssurance) error {
	if !c.current.TransactionSupportsEidas {
		return &EidasUnsupportedError{SessionID: c.id}
	}
	cfg, err := c.deps.Federation.RequireEnabled(countryEntityID)
	if err != nil {
		return err
	}
	if !cfg.SupportsEidas {
		return &EidasUnsupportedError{SessionID: c.id, EntityID: countryEntityID}
	}
	if !cfg.SupportsLevel(levels...) {
		return &LoaUnsupportedError{EntityID: countryEntityID, Wanted: levels}
	}

	next := &state.CountrySelected{
		Envelope:          *c.current.Common(),
		CountryEntityID:   countryEntityID,
		LevelsOfAssurance: levels,
	}
	return c.action.Transition(ctx, next)
}

// HandleRequesterError records a relying-party-side failure (bad
// request, requester-initiated cancel) before an IDP was chosen.
func (c *SessionStartedController) HandleRequesterError(ctx context.Context, detail string) error {
	next := &state.RequesterError{
		Envelope:    *c.current.Common(),
		ErrorDetail: detail,
	}
	return c.action.Transition(ctx, next)
}
