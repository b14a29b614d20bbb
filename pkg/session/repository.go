package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/verihub/pkg/audit"
	"github.com/platinummonkey/verihub/pkg/observability"
	"github.com/platinummonkey/verihub/pkg/state"
)

// Repository is the single entry point for session access: it creates
// sessions, enforces timeout and type semantics on every load, and
// hands back the controller for the state the session is actually in.
type Repository struct {
	store     Store
	factory   *ControllerFactory
	clock     func() time.Time
	audit     audit.Logger
	metrics   *observability.Metrics
	log       *logrus.Logger
	tolerance TimeoutTolerance
}

// RepositoryOption customizes a Repository.
type RepositoryOption func(*Repository)

// WithClock overrides the wall clock, for tests.
func WithClock(clock func() time.Time) RepositoryOption {
	return func(r *Repository) { r.clock = clock }
}

// WithAuditLogger attaches the audit sink for lifecycle events.
func WithAuditLogger(logger audit.Logger) RepositoryOption {
	return func(r *Repository) { r.audit = logger }
}

// WithMetrics instruments session lifecycle counters.
func WithMetrics(m *observability.Metrics) RepositoryOption {
	return func(r *Repository) { r.metrics = m }
}

// WithLogger overrides the application logger.
func WithLogger(log *logrus.Logger) RepositoryOption {
	return func(r *Repository) { r.log = log }
}

// WithTimeoutTolerance overrides which expectations may still be
// served after the session deadline.
func WithTimeoutTolerance(t TimeoutTolerance) RepositoryOption {
	return func(r *Repository) { r.tolerance = t }
}

// NewRepository wires the repository over a store and a controller
// factory.
func NewRepository(store Store, factory *ControllerFactory, opts ...RepositoryOption) *Repository {
	r := &Repository{
		store:     store,
		factory:   factory,
		clock:     time.Now,
		audit:     audit.NopLogger{},
		log:       logrus.StandardLogger(),
		tolerance: DefaultTimeoutTolerance,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateSession admits a new transaction. Every session starts as
// SessionStarted; the minted id is the sole key for all later access.
func (r *Repository) CreateSession(ctx context.Context, initial *state.SessionStarted) (state.SessionID, error) {
	if initial == nil {
		return "", errors.New("initial state is required")
	}

	id := state.NewSessionID()
	if err := r.store.Insert(ctx, id, initial); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	if r.metrics != nil {
		r.metrics.SessionsCreatedTotal.Inc()
	}
	event := audit.NewEvent(audit.EventSessionStarted, id)
	event.RequestID = initial.RequestID
	event.IssuerEntityID = initial.RequestIssuerEntityID
	if err := r.audit.Log(ctx, event); err != nil {
		r.log.WithError(err).WithField("session_id", id).Warn("failed to audit session creation")
	}
	return id, nil
}

// HasSession reports whether a session exists.
func (r *Repository) HasSession(ctx context.Context, id state.SessionID) (bool, error) {
	return r.store.Has(ctx, id)
}

// GetStateController loads the session, enforces the deadline, checks
// the stored variant against the caller's expectation and returns the
// controller for it.
//
// An expired session is lazily converted to Timeout on first access.
// Two accesses survive expiry: asking for the Timeout variant itself,
// and a timeout-tolerant capability the stored state already
// satisfies (a prepared answer may still be delivered late). Every
// other access persists the Timeout conversion and gets a
// SessionTimeoutError; repeating the call fails the same way.
func (r *Repository) GetStateController(ctx context.Context, id state.SessionID, expected Expectation) (Controller, error) {
	current, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	env := current.Common()
	if env.Expired(r.clock()) && !r.tolerance(expected, current) {
		if current.Name() != state.NameTimeout {
			converted := &state.Timeout{Envelope: *env}
			if err := r.store.Replace(ctx, id, converted); err != nil {
				return nil, fmt.Errorf("failed to persist timeout for session %s: %w", id, err)
			}
			r.recordTimeout(ctx, id, env)
			current = converted
		}
		if !expected.IsTimeout() {
			return nil, &SessionTimeoutError{
				SessionID:      id,
				IssuerEntityID: env.RequestIssuerEntityID,
				ExpiredAt:      env.SessionExpiryTimestamp,
				RequestID:      env.RequestID,
			}
		}
	}

	if !expected.Matches(current) {
		if r.metrics != nil {
			r.metrics.InvalidStateAccessesTotal.WithLabelValues(expected.String(), string(current.Name())).Inc()
		}
		if err := r.audit.LogInvalidStateAccess(ctx, id, expected.String(), current.Name()); err != nil {
			r.log.WithError(err).WithField("session_id", id).Warn("failed to audit invalid state access")
		}
		return nil, &InvalidSessionStateError{
			SessionID: id,
			Expected:  expected.String(),
			Actual:    current.Name(),
		}
	}

	action := &storeTransitionAction{
		id:      id,
		from:    current,
		store:   r.store,
		audit:   r.audit,
		metrics: r.metrics,
		log:     r.log,
	}
	return r.factory.Build(id, current, action), nil
}

func (r *Repository) recordTimeout(ctx context.Context, id state.SessionID, env *state.Envelope) {
	if r.metrics != nil {
		r.metrics.SessionTimeoutsTotal.Inc()
	}
	if err := r.audit.LogSessionTimeout(ctx, id, env.RequestIssuerEntityID, env.SessionExpiryTimestamp, env.RequestID); err != nil {
		r.log.WithError(err).WithField("session_id", id).Warn("failed to audit session timeout")
	}
}

// GetLevelOfAssuranceFromIdp returns the level of assurance recorded
// by the identity provider leg, if the session has progressed far
// enough to have one. It is a plain read for reporting: no timeout
// conversion, no type check.
func (r *Repository) GetLevelOfAssuranceFromIdp(ctx context.Context, id state.SessionID) (state.LevelOfAssurance, bool, error) {
	current, err := r.store.Get(ctx, id)
	if err != nil {
		return "", false, err
	}

	switch cur := current.(type) {
	case *state.Cycle0And1MatchRequestSent:
		return cur.IdpLevelOfAssurance, true, nil
	case *state.Cycle3MatchRequestSent:
		return cur.IdpLevelOfAssurance, true, nil
	case *state.AwaitingCycle3Data:
		return cur.IdpLevelOfAssurance, true, nil
	case *state.EidasCycle0And1MatchRequestSent:
		return cur.LevelOfAssurance, true, nil
	case *state.SuccessfulMatch:
		return cur.IdpLevelOfAssurance, true, nil
	case *state.EidasSuccessfulMatch:
		return cur.LevelOfAssurance, true, nil
	case *state.NoMatch:
		if cur.IdpLevelOfAssurance == "" {
			return "", false, nil
		}
		return cur.IdpLevelOfAssurance, true, nil
	case *state.UserAccountCreationRequestSent:
		return cur.IdpLevelOfAssurance, true, nil
	case *state.UserAccountCreated:
		return cur.IdpLevelOfAssurance, true, nil
	default:
		return "", false, nil
	}
}
