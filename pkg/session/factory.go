package session

import (
	"fmt"
	"time"

	"github.com/platinummonkey/verihub/pkg/state"
)

// ControllerFactory maps a concrete state to the one controller built
// for its variant.
type ControllerFactory struct {
	deps ControllerDeps
}

// NewControllerFactory validates the collaborator set and applies
// defaults.
func NewControllerFactory(deps ControllerDeps) *ControllerFactory {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Cycle3Window <= 0 {
		deps.Cycle3Window = DefaultCycle3Window
	}
	return &ControllerFactory{deps: deps}
}

// Build returns the controller for the current variant. A variant
// with no mapping is a programming error and panics: the dispatch
// table below must stay exhaustive over state.AllNames.
func (f *ControllerFactory) Build(id state.SessionID, current state.State, action TransitionAction) Controller {
	base := controllerBase{id: id, action: action, deps: f.deps}

	switch cur := current.(type) {
	case *state.SessionStarted:
		return &SessionStartedController{controllerBase: base, current: cur}

	case *state.IdpSelected:
		return &IdpSelectedController{controllerBase: base, current: cur}

	case *state.CountrySelected:
		return &CountrySelectedController{controllerBase: base, current: cur}

	case *state.Cycle0And1MatchRequestSent:
		return &MatchRequestSentController{
			controllerBase:          base,
			current:                 cur,
			kind:                    matchCycle01,
			partyEntityID:           cur.IdpEntityID,
			matchingServiceEntityID: cur.MatchingServiceEntityID,
			persistentID:            cur.PersistentID,
			level:                   cur.IdpLevelOfAssurance,
			registration:            cur.RegistrationTransaction,
			requestSentAt:           cur.RequestSentAt,
		}

	case *state.Cycle3MatchRequestSent:
		return &MatchRequestSentController{
			controllerBase:          base,
			current:                 cur,
			kind:                    matchCycle3,
			partyEntityID:           cur.IdpEntityID,
			matchingServiceEntityID: cur.MatchingServiceEntityID,
			persistentID:            cur.PersistentID,
			level:                   cur.IdpLevelOfAssurance,
			registration:            cur.RegistrationTransaction,
			requestSentAt:           cur.RequestSentAt,
		}

	case *state.EidasCycle0And1MatchRequestSent:
		return &MatchRequestSentController{
			controllerBase:          base,
			current:                 cur,
			kind:                    matchEidas,
			partyEntityID:           cur.CountryEntityID,
			matchingServiceEntityID: cur.MatchingServiceEntityID,
			persistentID:            cur.PersistentID,
			level:                   cur.LevelOfAssurance,
			requestSentAt:           cur.RequestSentAt,
		}

	case *state.AwaitingCycle3Data:
		return &AwaitingCycle3DataController{controllerBase: base, current: cur}

	case *state.UserAccountCreationRequestSent:
		return &UserAccountCreationController{controllerBase: base, current: cur}

	case state.ResponsePrepared:
		return &ResponseController{controllerBase: base, current: cur}

	default:
		panic(fmt.Sprintf("no controller mapped for state %s", current.Name()))
	}
}
