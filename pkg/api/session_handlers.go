package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/platinummonkey/verihub/pkg/httputil"
	"github.com/platinummonkey/verihub/pkg/session"
	"github.com/platinummonkey/verihub/pkg/state"
)

type createSessionRequest struct {
	RequestID                   string `json:"request_id"`
	IssuerEntityID              string `json:"issuer_entity_id"`
	AssertionConsumerServiceURI string `json:"assertion_consumer_service_uri"`
	RelayState                  string `json:"relay_state,omitempty"`
	ForceAuthentication         *bool  `json:"force_authentication,omitempty"`
	TransactionSupportsEidas    bool   `json:"transaction_supports_eidas"`
}

type sessionCreatedResponse struct {
	SessionID string    `json:"session_id"`
	State     string    `json:"state"`
	ExpiresAt time.Time `json:"expires_at"`
}

type sessionStateResponse struct {
	SessionID      string `json:"session_id"`
	State          string `json:"state,omitempty"`
	AttributeQuery string `json:"attribute_query,omitempty"`
}

// createSession handles POST /policy/session
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.RequestID, "request_id") ||
		!httputil.RequireNonEmpty(w, req.IssuerEntityID, "issuer_entity_id") ||
		!httputil.RequireNonEmpty(w, req.AssertionConsumerServiceURI, "assertion_consumer_service_uri") {
		return
	}

	initial := &state.SessionStarted{Envelope: state.Envelope{
		RequestID:                   req.RequestID,
		RequestIssuerEntityID:       req.IssuerEntityID,
		SessionExpiryTimestamp:      s.now().Add(s.lifetime),
		AssertionConsumerServiceURI: req.AssertionConsumerServiceURI,
		RelayState:                  req.RelayState,
		ForceAuthentication:         req.ForceAuthentication,
		TransactionSupportsEidas:    req.TransactionSupportsEidas,
	}}

	id, err := s.repo.CreateSession(r.Context(), initial)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	httputil.WriteCreated(w, sessionCreatedResponse{
		SessionID: id.String(),
		State:     string(state.NameSessionStarted),
		ExpiresAt: initial.SessionExpiryTimestamp,
	})
}

type selectIdpRequest struct {
	IdpEntityID             string   `json:"idp_entity_id"`
	LevelsOfAssurance       []string `json:"levels_of_assurance"`
	RegistrationTransaction bool     `json:"registration_transaction"`
}

// selectIdp handles POST /policy/session/{id}/select-idp
func (s *Server) selectIdp(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	var req selectIdpRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.IdpEntityID, "idp_entity_id") {
		return
	}
	levels, ok := parseLevels(w, req.LevelsOfAssurance)
	if !ok {
		return
	}

	ctrl, err := s.repo.GetStateController(r.Context(), id, session.ExpectState(state.NameSessionStarted))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	started := ctrl.(*session.SessionStartedController)
	if err := started.SelectIdp(r.Context(), req.IdpEntityID, levels, req.RegistrationTransaction); err != nil {
		s.writeDomainError(w, err)
		return
	}

	httputil.WriteSuccess(w, sessionStateResponse{
		SessionID: id.String(),
		State:     string(state.NameIdpSelected),
	})
}

type selectCountryRequest struct {
	CountryEntityID   string   `json:"country_entity_id"`
	LevelsOfAssurance []string `json:"levels_of_assurance"`
}

// selectCountry handles POST /policy/session/{id}/select-country
func (s *Server) selectCountry(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	var req selectCountryRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.CountryEntityID, "country_entity_id") {
		return
	}
	levels, ok := parseLevels(w, req.LevelsOfAssurance)
	if !ok {
		return
	}

	ctrl, err := s.repo.GetStateController(r.Context(), id, session.ExpectState(state.NameSessionStarted))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	started := ctrl.(*session.SessionStartedController)
	if err := started.SelectCountry(r.Context(), req.CountryEntityID, levels); err != nil {
		s.writeDomainError(w, err)
		return
	}

	httputil.WriteSuccess(w, sessionStateResponse{
		SessionID: id.String(),
		State:     string(state.NameCountrySelected),
	})
}

type idpResponseRequest struct {
	// Status defaults to "success". The other outcomes the frontend can
	// report are "authn-failed", "fraud", "pause" and "try-another".
	Status         string `json:"status,omitempty"`
	SAMLResponse   string `json:"saml_response,omitempty"`
	FraudEventID   string `json:"fraud_event_id,omitempty"`
	FraudIndicator string `json:"fraud_indicator,omitempty"`
}

// handleIdpResponse handles POST /policy/session/{id}/idp-response
func (s *Server) handleIdpResponse(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	var req idpResponseRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	ctrl, err := s.repo.GetStateController(r.Context(), id, session.ExpectState(state.NameIdpSelected))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	selected := ctrl.(*session.IdpSelectedController)

	var next state.Name
	var query string
	switch req.Status {
	case "", "success":
		if !httputil.RequireNonEmpty(w, req.SAMLResponse, "saml_response") {
			return
		}
		query, err = selected.HandleIdpAuthnResponse(r.Context(), req.SAMLResponse)
		next = state.NameCycle0And1MatchRequestSent
	case "authn-failed":
		err = selected.HandleIdpAuthnFailure(r.Context())
		next = state.NameAuthnFailedError
	case "fraud":
		if !httputil.RequireNonEmpty(w, req.FraudEventID, "fraud_event_id") {
			return
		}
		err = selected.HandleFraudEvent(r.Context(), req.FraudEventID, req.FraudIndicator)
		next = state.NameFraudEventDetected
	case "pause":
		err = selected.HandlePausedRegistration(r.Context())
		next = state.NamePausedRegistration
	case "try-another":
		err = selected.TryAnotherIdp(r.Context())
		next = state.NameSessionStarted
	default:
		httputil.WriteBadRequest(w, "unknown idp response status "+req.Status)
		return
	}
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	httputil.WriteSuccess(w, sessionStateResponse{
		SessionID:      id.String(),
		State:          string(next),
		AttributeQuery: query,
	})
}

type countryResponseRequest struct {
	SAMLResponse string `json:"saml_response"`
}

// handleCountryResponse handles POST /policy/session/{id}/country-response
func (s *Server) handleCountryResponse(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	var req countryResponseRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.SAMLResponse, "saml_response") {
		return
	}

	ctrl, err := s.repo.GetStateController(r.Context(), id, session.ExpectState(state.NameCountrySelected))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	selected := ctrl.(*session.CountrySelectedController)
	query, err := selected.HandleCountryAuthnResponse(r.Context(), req.SAMLResponse)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	httputil.WriteSuccess(w, sessionStateResponse{
		SessionID:      id.String(),
		State:          string(state.NameEidasCycle0And1MatchRequestSent),
		AttributeQuery: query,
	})
}

type matchingServiceResponseRequest struct {
	// Status defaults to "success"; "failure" reports that the request
	// to the matching service could not be delivered or answered.
	Status       string `json:"status,omitempty"`
	SAMLResponse string `json:"saml_response,omitempty"`
}

// handleMatchingServiceResponse handles POST /policy/session/{id}/ms-response.
// Any variant with a matching-service request in flight is accepted;
// which operation runs depends on the leg the session is on.
func (s *Server) handleMatchingServiceResponse(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	var req matchingServiceResponseRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	ctrl, err := s.repo.GetStateController(r.Context(), id, session.ExpectCapability(session.CapabilityMatchRequestPending))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	switch req.Status {
	case "", "success":
		if !httputil.RequireNonEmpty(w, req.SAMLResponse, "saml_response") {
			return
		}
		var query string
		switch c := ctrl.(type) {
		case *session.MatchRequestSentController:
			query, err = c.HandleMatchResponse(r.Context(), req.SAMLResponse)
		case *session.UserAccountCreationController:
			err = c.HandleAccountCreationResponse(r.Context(), req.SAMLResponse)
		}
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		httputil.WriteSuccess(w, sessionStateResponse{
			SessionID:      id.String(),
			AttributeQuery: query,
		})
	case "failure":
		switch c := ctrl.(type) {
		case *session.MatchRequestSentController:
			err = c.HandleMatchRequestFailure(r.Context())
		case *session.UserAccountCreationController:
			err = c.HandleMatchRequestFailure(r.Context())
		}
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		httputil.WriteSuccess(w, sessionStateResponse{
			SessionID: id.String(),
			State:     string(state.NameMatchingServiceRequestError),
		})
	default:
		httputil.WriteBadRequest(w, "unknown matching service response status "+req.Status)
	}
}

type cycle3Response struct {
	SessionID     string    `json:"session_id"`
	AttributeName string    `json:"attribute_name"`
	Deadline      time.Time `json:"deadline"`
}

// getCycle3 handles GET /policy/session/{id}/cycle3
func (s *Server) getCycle3(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	ctrl, err := s.repo.GetStateController(r.Context(), id, session.ExpectState(state.NameAwaitingCycle3Data))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	awaiting := ctrl.(*session.AwaitingCycle3DataController)
	httputil.WriteSuccess(w, cycle3Response{
		SessionID:     id.String(),
		AttributeName: awaiting.AttributeName(),
		Deadline:      awaiting.State().Cycle3EntryDeadline,
	})
}

type submitCycle3Request struct {
	Value string `json:"value"`
}

// submitCycle3 handles POST /policy/session/{id}/cycle3
func (s *Server) submitCycle3(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	var req submitCycle3Request
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Value, "value") {
		return
	}

	ctrl, err := s.repo.GetStateController(r.Context(), id, session.ExpectState(state.NameAwaitingCycle3Data))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	awaiting := ctrl.(*session.AwaitingCycle3DataController)
	query, err := awaiting.SubmitCycle3Attribute(r.Context(), req.Value)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	httputil.WriteSuccess(w, sessionStateResponse{
		SessionID:      id.String(),
		State:          string(state.NameCycle3MatchRequestSent),
		AttributeQuery: query,
	})
}

// cancelCycle3 handles DELETE /policy/session/{id}/cycle3
func (s *Server) cancelCycle3(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	ctrl, err := s.repo.GetStateController(r.Context(), id, session.ExpectState(state.NameAwaitingCycle3Data))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	awaiting := ctrl.(*session.AwaitingCycle3DataController)
	if err := awaiting.CancelCycle3Input(r.Context()); err != nil {
		s.writeDomainError(w, err)
		return
	}

	httputil.WriteSuccess(w, sessionStateResponse{
		SessionID: id.String(),
		State:     string(state.NameCycle3DataInputCancelled),
	})
}

type requesterErrorRequest struct {
	Detail string `json:"detail,omitempty"`
}

type requesterErrorHandler interface {
	HandleRequesterError(ctx context.Context, detail string) error
}

// handleRequesterError handles POST /policy/session/{id}/error. The
// relying party can abort while an identity provider is being chosen or
// while authentication is underway, so two variants are acceptable.
func (s *Server) handleRequesterError(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	var req requesterErrorRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	ctrl, err := s.repo.GetStateController(r.Context(), id, session.ExpectState(state.NameSessionStarted))
	var invalidState *session.InvalidSessionStateError
	if errors.As(err, &invalidState) {
		ctrl, err = s.repo.GetStateController(r.Context(), id, session.ExpectState(state.NameIdpSelected))
	}
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	if err := ctrl.(requesterErrorHandler).HandleRequesterError(r.Context(), req.Detail); err != nil {
		s.writeDomainError(w, err)
		return
	}

	httputil.WriteSuccess(w, sessionStateResponse{
		SessionID: id.String(),
		State:     string(state.NameRequesterError),
	})
}

type levelOfAssuranceResponse struct {
	SessionID        string `json:"session_id"`
	LevelOfAssurance string `json:"level_of_assurance,omitempty"`
	Determined       bool   `json:"determined"`
}

// getLevelOfAssurance handles GET /policy/session/{id}/loa
func (s *Server) getLevelOfAssurance(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	level, determined, err := s.repo.GetLevelOfAssuranceFromIdp(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, levelOfAssuranceResponse{
		SessionID:        id.String(),
		LevelOfAssurance: string(level),
		Determined:       determined,
	})
}

type responsePayload struct {
	SessionID                   string `json:"session_id"`
	RequestID                   string `json:"request_id"`
	AssertionConsumerServiceURI string `json:"assertion_consumer_service_uri"`
	RelayState                  string `json:"relay_state,omitempty"`
	State                       string `json:"state"`
	Status                      string `json:"status"`
	IsError                     bool   `json:"is_error"`
	Assertion                   string `json:"assertion,omitempty"`
	LevelOfAssurance            string `json:"level_of_assurance,omitempty"`
}

// getResponse handles GET /policy/session/{id}/response
func (s *Server) getResponse(w http.ResponseWriter, r *http.Request) {
	s.prepareResponse(w, r, session.CapabilityResponsePrepared)
}

// getErrorResponse handles GET /policy/session/{id}/error-response
func (s *Server) getErrorResponse(w http.ResponseWriter, r *http.Request) {
	s.prepareResponse(w, r, session.CapabilityErrorResponsePrepared)
}

func (s *Server) prepareResponse(w http.ResponseWriter, r *http.Request, capability session.Capability) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	ctrl, err := s.repo.GetStateController(r.Context(), id, session.ExpectCapability(capability))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	responder := ctrl.(*session.ResponseController)
	var desc *session.ResponseDescriptor
	if capability == session.CapabilityErrorResponsePrepared {
		desc, err = responder.PrepareErrorResponse(r.Context())
	} else {
		desc, err = responder.PrepareResponse(r.Context())
	}
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	httputil.WriteSuccess(w, responsePayload{
		SessionID:                   desc.SessionID.String(),
		RequestID:                   desc.RequestID,
		AssertionConsumerServiceURI: desc.AssertionConsumerServiceURI,
		RelayState:                  desc.RelayState,
		State:                       string(desc.StateName),
		Status:                      string(desc.Status),
		IsError:                     desc.IsError,
		Assertion:                   desc.Assertion,
		LevelOfAssurance:            string(desc.LevelOfAssurance),
	})
}

// sessionID pulls the {id} path variable.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) (state.SessionID, bool) {
	raw, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return "", false
	}
	return state.SessionID(raw), true
}

// parseLevels converts the wire form of acceptable levels of assurance,
// rejecting unknown values.
func parseLevels(w http.ResponseWriter, raw []string) ([]state.LevelOfAssurance, bool) {
	levels := make([]state.LevelOfAssurance, 0, len(raw))
	for _, v := range raw {
		level, err := state.ParseLevelOfAssurance(v)
		if err != nil {
			httputil.WriteBadRequest(w, err.Error())
			return nil, false
		}
		levels = append(levels, level)
	}
	return levels, true
}
