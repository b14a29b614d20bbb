package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/verihub/pkg/federation"
	"github.com/platinummonkey/verihub/pkg/saml"
	"github.com/platinummonkey/verihub/pkg/session"
	"github.com/platinummonkey/verihub/pkg/state"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type fakeEngine struct {
	authnResp *saml.ValidatedResponse
	authnErr  error
	matchResp *saml.MatchResponse
	matchErr  error
}

func (f *fakeEngine) BuildAttributeQuery(req saml.AttributeQueryRequest) (string, error) {
	return "query-payload", nil
}

func (f *fakeEngine) ValidateAuthnResponse(issuerEntityID, raw string) (*saml.ValidatedResponse, error) {
	return f.authnResp, f.authnErr
}

func (f *fakeEngine) ValidateMatchResponse(raw string) (*saml.MatchResponse, error) {
	return f.matchResp, f.matchErr
}

type fakeFederation struct {
	entities map[string]*federation.EntityConfig
}

func (f *fakeFederation) Entity(entityID string) (*federation.EntityConfig, error) {
	e, ok := f.entities[entityID]
	if !ok {
		return nil, &federation.NotFoundError{EntityID: entityID}
	}
	return e, nil
}

func (f *fakeFederation) RequireEnabled(entityID string) (*federation.EntityConfig, error) {
	e, err := f.Entity(entityID)
	if err != nil {
		return nil, err
	}
	if !e.Enabled {
		return nil, &federation.DisabledError{EntityID: entityID}
	}
	return e, nil
}

func (f *fakeFederation) EnabledIdentityProviders(eidas bool, wanted ...state.LevelOfAssurance) []string {
	var out []string
	for id, e := range f.entities {
		if e.Enabled && e.Type == federation.EntityTypeIdp && e.SupportsLevel(wanted...) {
			out = append(out, id)
		}
	}
	return out
}

func testFederation() *fakeFederation {
	return &fakeFederation{entities: map[string]*federation.EntityConfig{
		"https://rp.example.com": {
			EntityID:                "https://rp.example.com",
			Type:                    federation.EntityTypeRelyingParty,
			Enabled:                 true,
			MatchingServiceEntityID: "https://msa.example.com",
		},
		"https://idp.example.com": {
			EntityID:        "https://idp.example.com",
			Type:            federation.EntityTypeIdp,
			Enabled:         true,
			SupportedLevels: []state.LevelOfAssurance{state.Level1, state.Level2},
		},
		"https://country.example.eu": {
			EntityID:        "https://country.example.eu",
			Type:            federation.EntityTypeCountry,
			Enabled:         true,
			SupportsEidas:   true,
			SupportedLevels: []state.LevelOfAssurance{state.Level2},
		},
		"https://msa.example.com": {
			EntityID: "https://msa.example.com",
			Type:     federation.EntityTypeMatchingService,
			Enabled:  true,
		},
	}}
}

type apiFixture struct {
	server *Server
	store  *session.MemoryStore
	engine *fakeEngine

	mu  sync.Mutex
	now time.Time
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	f := &apiFixture{
		store:  session.NewMemoryStore(),
		engine: &fakeEngine{},
		now:    time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.now
	}
	factory := session.NewControllerFactory(session.ControllerDeps{
		Engine:     f.engine,
		Federation: testFederation(),
		Now:        clock,
	})
	repo := session.NewRepository(f.store, factory,
		session.WithClock(clock),
		session.WithLogger(testLogger()),
	)
	f.server = NewServer(repo,
		WithLogger(testLogger()),
		WithClock(clock),
		WithSessionLifetime(90*time.Minute),
	)
	return f
}

func (f *apiFixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dest))
}

// createSession admits a fresh transaction and returns its id.
func (f *apiFixture) createSession(t *testing.T) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/policy/session", createSessionRequest{
		RequestID:                   "request-1",
		IssuerEntityID:              "https://rp.example.com",
		AssertionConsumerServiceURI: "https://rp.example.com/acs",
		RelayState:                  "opaque",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp sessionCreatedResponse
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

// selectIdp moves the session onto the identity provider leg.
func (f *apiFixture) selectIdp(t *testing.T, id string) {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/policy/session/"+id+"/select-idp", selectIdpRequest{
		IdpEntityID:       "https://idp.example.com",
		LevelsOfAssurance: []string{"LEVEL_2"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

// deliverIdpResponse pushes a validated authentication response through,
// leaving a cycle-0/1 match request in flight.
func (f *apiFixture) deliverIdpResponse(t *testing.T, id string) {
	t.Helper()
	f.engine.authnResp = &saml.ValidatedResponse{
		InResponseTo:                      "request-1",
		IssuerEntityID:                    "https://idp.example.com",
		PersistentID:                      "pid-1",
		LevelOfAssurance:                  state.Level2,
		EncryptedMatchingDatasetAssertion: "blob-mds",
		AuthnStatementAssertion:           "blob-authn",
	}
	rec := f.do(t, http.MethodPost, "/policy/session/"+id+"/idp-response", idpResponseRequest{
		SAMLResponse: "<response/>",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
