package session

import (
	"time"

	"github.com/platinummonkey/verihub/pkg/federation"
	"github.com/platinummonkey/verihub/pkg/saml"
	"github.com/platinummonkey/verihub/pkg/state"
)

// Controller is the per-variant operation surface handed out by the
// repository. Callers type-assert to the concrete controller for the
// variant they requested.
type Controller interface {
	// SessionID identifies the session the controller is bound to.
	SessionID() state.SessionID

	// StateName names the variant the controller was built for.
	StateName() state.Name
}

// FederationLookup is the slice of the federation registry controllers
// consult before committing transitions that depend on an external
// party's standing.
type FederationLookup interface {
	Entity(entityID string) (*federation.EntityConfig, error)
	RequireEnabled(entityID string) (*federation.EntityConfig, error)
	EnabledIdentityProviders(eidas bool, wanted ...state.LevelOfAssurance) []string
}

// DefaultCycle3Window is how long a user gets to supply the
// supplementary attribute once the matching service asks for it.
const DefaultCycle3Window = time.Hour

// ControllerDeps are the collaborators every controller operation may
// call out to. One value is shared across all sessions.
type ControllerDeps struct {
	Engine     saml.Engine
	Federation FederationLookup

	// Now is the clock; defaults to time.Now.
	Now func() time.Time

	// Cycle3Window sizes the supplementary-attribute entry deadline;
	// defaults to DefaultCycle3Window.
	Cycle3Window time.Duration
}

// controllerBase carries what every controller shares.
type controllerBase struct {
	id     state.SessionID
	action TransitionAction
	deps   ControllerDeps
}

func (c *controllerBase) SessionID() state.SessionID { return c.id }

// acceptsLevel reports whether got satisfies at least one of the
// relying party's required levels. An empty requirement accepts any
// valid level.
func acceptsLevel(required []state.LevelOfAssurance, got state.LevelOfAssurance) bool {
	if !got.Valid() {
		return false
	}
	if len(required) == 0 {
		return true
	}
	for _, want := range required {
		if got.AtLeast(want) {
			return true
		}
	}
	return false
}
