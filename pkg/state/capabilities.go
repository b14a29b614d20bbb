package state

// ResponsePrepared marks any variant from which a final answer to the
// relying party can be produced.
type ResponsePrepared interface {
	State
	responsePrepared()
}

// ErrorResponsePrepared marks the narrower set of variants from which
// only an error answer can be produced. Every ErrorResponsePrepared
// state is also ResponsePrepared.
type ErrorResponsePrepared interface {
	ResponsePrepared
	errorResponsePrepared()
}

// Success-path response states.
func (*SuccessfulMatch) responsePrepared()           {}
func (*EidasSuccessfulMatch) responsePrepared()      {}
func (*NoMatch) responsePrepared()                   {}
func (*UserAccountCreated) responsePrepared()        {}
func (*UserAccountCreationFailed) responsePrepared() {}
func (*Cycle3DataInputCancelled) responsePrepared()  {}
func (*PausedRegistration) responsePrepared()        {}

// Error-path response states; these satisfy both capabilities.
func (*Timeout) responsePrepared()                          {}
func (*Timeout) errorResponsePrepared()                     {}
func (*RequesterError) responsePrepared()                   {}
func (*RequesterError) errorResponsePrepared()              {}
func (*AuthnFailedError) responsePrepared()                 {}
func (*AuthnFailedError) errorResponsePrepared()            {}
func (*FraudEventDetected) responsePrepared()               {}
func (*FraudEventDetected) errorResponsePrepared()          {}
func (*MatchingServiceRequestError) responsePrepared()      {}
func (*MatchingServiceRequestError) errorResponsePrepared() {}

// MatchRequestPending marks any variant with a request to the matching
// service outstanding. The matching-service response endpoint accepts a
// session in any of these, so they share one capability.
type MatchRequestPending interface {
	State
	matchRequestPending()
}

func (*Cycle0And1MatchRequestSent) matchRequestPending()      {}
func (*EidasCycle0And1MatchRequestSent) matchRequestPending() {}
func (*Cycle3MatchRequestSent) matchRequestPending()          {}
func (*UserAccountCreationRequestSent) matchRequestPending()  {}

// IsResponsePrepared reports whether s can answer the relying party.
func IsResponsePrepared(s State) bool {
	_, ok := s.(ResponsePrepared)
	return ok
}

// IsErrorResponsePrepared reports whether s can produce an error answer.
func IsErrorResponsePrepared(s State) bool {
	_, ok := s.(ErrorResponsePrepared)
	return ok
}

// IsMatchRequestPending reports whether s has a matching-service
// request in flight.
func IsMatchRequestPending(s State) bool {
	_, ok := s.(MatchRequestPending)
	return ok
}
