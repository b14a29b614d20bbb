// Package saml is the hub's SAML engine boundary.
//
// The session core never touches raw XML: controllers hand the engine an
// inbound payload and get back either a validated, typed result or a
// ValidationError, and ask it to produce opaque signed payloads for the
// outbound matching-service legs. Engine is the interface the session
// package depends on; Provider is the gosaml2/goxmldsig implementation
// wired in production.
package saml
