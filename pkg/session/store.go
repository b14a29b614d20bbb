package session

import (
	"context"

	"github.com/platinummonkey/verihub/pkg/state"
)

// Store is the minimal keyed persistence the session core relies on.
// Implementations must provide at least read-your-writes consistency
// per key; Replace on a contended key must not silently drop a
// concurrent writer's value (compare-and-swap or per-key locking).
type Store interface {
	// Insert stores the first state for a fresh session id. It returns
	// ErrSessionExists if the id is already present.
	Insert(ctx context.Context, id state.SessionID, s state.State) error

	// Replace swaps the whole stored value for an existing session. It
	// returns ErrSessionNotFound if the id is absent and
	// ErrTransitionConflict if a concurrent writer won the swap.
	Replace(ctx context.Context, id state.SessionID, s state.State) error

	// Get loads the current state, or ErrSessionNotFound.
	Get(ctx context.Context, id state.SessionID) (state.State, error)

	// Has reports whether the session id is present.
	Has(ctx context.Context, id state.SessionID) (bool, error)
}
