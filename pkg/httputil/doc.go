// Package httputil provides HTTP handler utilities for consistent error
// handling, JSON encoding/decoding, request parsing and middleware.
//
// # Overview
//
// Response writers keep the error body shape uniform across resources:
//
//	httputil.WriteConflict(w, "session is not in the expected state")
//	httputil.WriteGone(w, "session timed out")
//	httputil.WriteSuccess(w, payload)
//
// Request helpers pair parsing with the matching error response:
//
//	var req startSessionRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return
//	}
//
// Middleware composes with Chain; the first listed runs outermost:
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(log),
//		httputil.RecoveryMiddleware(log),
//	)(mux)
package httputil
