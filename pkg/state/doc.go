// Package state defines the session state model for the federation hub.
//
// # Overview
//
// A session tracks one end-to-end federated authentication transaction
// between a relying party, an identity provider and a matching service.
// Each stage of the transaction is a distinct State variant. The set of
// variants is closed: every variant lives in this package and implements
// the unexported marker method, so controller dispatch can be exhaustive.
//
// # State Envelope
//
// Every variant embeds Envelope, the fields shared by all stages:
//
//	RequestID                   - the relying party's original request id
//	RequestIssuerEntityID       - entity id relevant to the current step
//	SessionExpiryTimestamp      - absolute deadline for the whole session
//	AssertionConsumerServiceURI - destination for the eventual response
//	RelayState                  - opaque optional pass-through
//	ForceAuthentication         - optional tri-state
//	TransactionSupportsEidas    - cross-border support flag
//
// # Persistence Contract
//
// States are stored flat under their session id with a "state"
// discriminator field naming the variant (see Marshal/Unmarshal).
// The serialized shape is a compatibility contract across rolling
// deployments: adding fields is safe, renaming or removing fields or
// discriminator values breaks in-flight sessions and requires an
// explicit migration.
//
// # Capabilities
//
// Cross-cutting groupings orthogonal to the exact variant are expressed
// as small marker interfaces (ResponsePrepared, ErrorResponsePrepared)
// that a variant opts into. Callers test them with type assertions.
//
// # Related Packages
//
//   - pkg/session: repository, store and controllers over these states
//   - pkg/saml: engine producing/validating the SAML payloads carried here
package state
