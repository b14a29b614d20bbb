// Package api exposes the session state machine over HTTP.
//
// The resources are thin: each handler decodes a request, asks the
// session repository for the controller the operation needs, invokes
// exactly one controller operation and renders the result. All
// sequencing rules live in pkg/session; this package only maps domain
// errors to status codes:
//
//	InvalidSessionStateError  -> 409 Conflict
//	ErrTransitionConflict     -> 409 Conflict
//	SessionTimeoutError       -> 410 Gone
//	Cycle3WindowExpiredError  -> 410 Gone
//	ErrSessionNotFound        -> 404 Not Found
//	validation failures       -> 400 Bad Request
package api
