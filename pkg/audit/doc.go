// Package audit records business-relevant session events: state
// transitions, timeouts, invalid-state accesses, fraud reports.
//
// Audit logging is fire-and-forget from the protocol's point of view:
// the session core emits events on its write path but never lets an
// audit failure alter a transition. Concrete sinks are a JSON-lines
// FileLogger, a PostgreSQL DBLogger, and a MultiLogger fan-out.
package audit
