package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/platinummonkey/verihub/pkg/saml"
	"github.com/platinummonkey/verihub/pkg/state"
)

var (
	// ErrSessionExists is returned by Store.Insert when the id is taken.
	ErrSessionExists = errors.New("session already exists")

	// ErrSessionNotFound is returned when no record exists for the id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTransitionConflict is returned to the loser when two requests
	// race to replace the same session's state.
	ErrTransitionConflict = errors.New("concurrent state transition conflict")

	// ErrTransitionAlreadyCommitted is returned when a controller
	// operation attempts a second transition for one logical operation.
	ErrTransitionAlreadyCommitted = errors.New("transition already committed for this operation")
)

// InvalidSessionStateError reports a protocol-sequencing error: the
// caller asked for a variant or capability the session is not in.
type InvalidSessionStateError struct {
	SessionID state.SessionID
	Expected  string
	Actual    state.Name
}

func (e *InvalidSessionStateError) Error() string {
	return fmt.Sprintf("session %s: expected state %s, got %s", e.SessionID, e.Expected, e.Actual)
}

// SessionTimeoutError reports that the session deadline passed before a
// non-timeout-tolerant access. By the time the caller sees it the
// stored state has already been converted to Timeout.
type SessionTimeoutError struct {
	SessionID      state.SessionID
	IssuerEntityID string
	ExpiredAt      time.Time
	RequestID      string
}

func (e *SessionTimeoutError) Error() string {
	return fmt.Sprintf("session %s for %s timed out at %s (request %s)",
		e.SessionID, e.IssuerEntityID, e.ExpiredAt.Format(time.RFC3339), e.RequestID)
}

// LoaUnsupportedError reports a level-of-assurance mismatch between
// what the relying party requires and what the chosen party offers.
type LoaUnsupportedError struct {
	EntityID string
	Wanted   []state.LevelOfAssurance
}

func (e *LoaUnsupportedError) Error() string {
	return fmt.Sprintf("entity %s supports none of the required levels of assurance %v", e.EntityID, e.Wanted)
}

// EidasUnsupportedError reports a cross-border step on a transaction or
// entity that does not support eIDAS.
type EidasUnsupportedError struct {
	SessionID state.SessionID
	EntityID  string
}

func (e *EidasUnsupportedError) Error() string {
	if e.EntityID != "" {
		return fmt.Sprintf("session %s: entity %s does not support eIDAS", e.SessionID, e.EntityID)
	}
	return fmt.Sprintf("session %s: transaction does not support eIDAS", e.SessionID)
}

// RequestIDMismatchError reports an inbound response answering a
// request this session never sent.
type RequestIDMismatchError struct {
	SessionID state.SessionID
	Expected  string
	Got       string
}

func (e *RequestIDMismatchError) Error() string {
	return fmt.Sprintf("session %s: response answers request %q, expected %q", e.SessionID, e.Got, e.Expected)
}

// MatchVerdictError reports a matching-service verdict that is not
// legal for the session's current stage.
type MatchVerdictError struct {
	SessionID state.SessionID
	Verdict   saml.MatchVerdict
	Stage     state.Name
}

func (e *MatchVerdictError) Error() string {
	return fmt.Sprintf("session %s: verdict %q is not valid in state %s", e.SessionID, e.Verdict, e.Stage)
}

// Cycle3WindowExpiredError reports a supplementary attribute submitted
// after its data-entry window closed.
type Cycle3WindowExpiredError struct {
	SessionID state.SessionID
	Deadline  time.Time
}

func (e *Cycle3WindowExpiredError) Error() string {
	return fmt.Sprintf("session %s: cycle-3 entry window closed at %s", e.SessionID, e.Deadline.Format(time.RFC3339))
}
