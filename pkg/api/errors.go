package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/verihub/pkg/federation"
	"github.com/platinummonkey/verihub/pkg/httputil"
	"github.com/platinummonkey/verihub/pkg/saml"
	"github.com/platinummonkey/verihub/pkg/session"
)

// writeDomainError maps a session-layer error to its status code.
// Sequencing violations are conflicts, a passed deadline is gone, and
// anything wrong with the caller's input is a bad request.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var (
		invalidState  *session.InvalidSessionStateError
		timedOut      *session.SessionTimeoutError
		windowExpired *session.Cycle3WindowExpiredError
		loa           *session.LoaUnsupportedError
		eidas         *session.EidasUnsupportedError
		mismatch      *session.RequestIDMismatchError
		verdict       *session.MatchVerdictError
		notFound      *federation.NotFoundError
		disabled      *federation.DisabledError
	)

	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		httputil.WriteNotFoundError(w, err.Error())
	case errors.As(err, &invalidState):
		httputil.WriteConflict(w, invalidState.Error())
	case errors.Is(err, session.ErrTransitionConflict):
		httputil.WriteConflict(w, err.Error())
	case errors.As(err, &timedOut):
		httputil.WriteGone(w, timedOut.Error())
	case errors.As(err, &windowExpired):
		httputil.WriteGone(w, windowExpired.Error())
	case saml.IsValidationError(err):
		httputil.WriteBadRequest(w, err.Error())
	case errors.As(err, &loa),
		errors.As(err, &eidas),
		errors.As(err, &mismatch),
		errors.As(err, &verdict),
		errors.As(err, &notFound),
		errors.As(err, &disabled):
		httputil.WriteBadRequest(w, err.Error())
	default:
		s.log.WithError(err).Error("session operation failed")
		httputil.WriteInternalError(w, err)
	}
}
