package session

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/verihub/pkg/audit"
	"github.com/platinummonkey/verihub/pkg/observability"
	"github.com/platinummonkey/verihub/pkg/state"
)

// TransitionAction is the only path by which a controller can mutate
// session state. One action is bound to one session id and one loaded
// state; a controller operation must call Transition exactly once on
// success and never on a validation failure.
type TransitionAction interface {
	Transition(ctx context.Context, next state.State) error
}

// storeTransitionAction writes through the repository's store, emits
// the audit event and counts the transition. It refuses a second call
// so an operation cannot commit two conflicting results.
type storeTransitionAction struct {
	id      state.SessionID
	from    state.State
	store   Store
	audit   audit.Logger
	metrics *observability.Metrics
	log     *logrus.Logger

	mu        sync.Mutex
	committed bool
}

func (a *storeTransitionAction) Transition(ctx context.Context, next state.State) error {
	a.mu.Lock()
	if a.committed {
		a.mu.Unlock()
		return ErrTransitionAlreadyCommitted
	}
	a.committed = true
	a.mu.Unlock()

	if err := a.store.Replace(ctx, a.id, next); err != nil {
		if a.metrics != nil && errors.Is(err, ErrTransitionConflict) {
			a.metrics.TransitionConflictsTotal.Inc()
		}
		return err
	}

	if a.metrics != nil {
		a.metrics.StateTransitionsTotal.WithLabelValues(string(a.from.Name()), string(next.Name())).Inc()
		if state.IsMatchRequestPending(next) {
			a.metrics.MatchRequestsTotal.WithLabelValues(matchDataset(next.Name())).Inc()
		}
	}

	// Audit is fire-and-forget: a sink failure never unwinds a
	// committed protocol step.
	if err := a.audit.LogTransition(ctx, a.id, a.from, next); err != nil {
		a.log.WithError(err).WithFields(logrus.Fields{
			"session_id": a.id,
			"from":       a.from.Name(),
			"to":         next.Name(),
		}).Warn("failed to audit state transition")
	}
	return nil
}

// matchDataset labels which matching leg a request belongs to.
func matchDataset(name state.Name) string {
	switch name {
	case state.NameEidasCycle0And1MatchRequestSent:
		return "eidas"
	case state.NameCycle3MatchRequestSent:
		return "cycle3"
	case state.NameUserAccountCreationRequestSent:
		return "account-creation"
	default:
		return "cycle0-1"
	}
}
