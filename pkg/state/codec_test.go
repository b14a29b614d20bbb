package state

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnvelope() Envelope {
	force := true
	return Envelope{
		RequestID:                   "request-1",
		RequestIssuerEntityID:       "https://rp.example.com",
		SessionExpiryTimestamp:      time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		AssertionConsumerServiceURI: "https://rp.example.com/saml/acs",
		RelayState:                  "relay-abc",
		ForceAuthentication:         &force,
		TransactionSupportsEidas:    true,
	}
}

func TestMarshal_FlatRecordWithDiscriminator(t *testing.T) {
	s := &IdpSelected{
		Envelope:                   testEnvelope(),
		IdpEntityID:                "https://idp-a.example.com",
		AvailableIdentityProviders: []string{"https://idp-a.example.com", "https://idp-b.example.com"},
		LevelsOfAssurance:          []LevelOfAssurance{Level1, Level2},
	}

	data, err := Marshal(s)
	require.NoError(t, err)

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &record))

	// Discriminator plus envelope plus variant fields at one level.
	assert.Equal(t, "idp_selected", record["state"])
	assert.Equal(t, "request-1", record["request_id"])
	assert.Equal(t, "https://rp.example.com", record["request_issuer_entity_id"])
	assert.Equal(t, "https://idp-a.example.com", record["idp_entity_id"])
	assert.Equal(t, true, record["force_authentication"])

	_, nested := record["envelope"]
	assert.False(t, nested, "envelope fields must not be nested")
}

func TestRoundTrip_AllVariants(t *testing.T) {
	env := testEnvelope()
	sent := time.Date(2026, 3, 14, 9, 21, 53, 0, time.UTC)

	states := []State{
		&SessionStarted{Envelope: env},
		&IdpSelected{Envelope: env, IdpEntityID: "idp-a", LevelsOfAssurance: []LevelOfAssurance{Level2}},
		&CountrySelected{Envelope: env, CountryEntityID: "https://connector.eu", LevelsOfAssurance: []LevelOfAssurance{Level2}},
		&Cycle0And1MatchRequestSent{Envelope: env, IdpEntityID: "idp-a", MatchingServiceEntityID: "msa-1", EncryptedMatchingDatasetAssertion: "blob-mds", AuthnStatementAssertion: "blob-authn", PersistentID: "pid-1", IdpLevelOfAssurance: Level2, RequestSentAt: sent},
		&EidasCycle0And1MatchRequestSent{Envelope: env, CountryEntityID: "https://connector.eu", MatchingServiceEntityID: "msa-1", EncryptedIdentityAssertion: "blob-id", PersistentID: "pid-1", LevelOfAssurance: Level2, RequestSentAt: sent},
		&Cycle3MatchRequestSent{Envelope: env, IdpEntityID: "idp-a", MatchingServiceEntityID: "msa-1", EncryptedMatchingDatasetAssertion: "blob-mds", AuthnStatementAssertion: "blob-authn", PersistentID: "pid-1", IdpLevelOfAssurance: Level2, Cycle3AttributeName: "NationalInsuranceNumber", RequestSentAt: sent},
		&AwaitingCycle3Data{Envelope: env, IdpEntityID: "idp-a", MatchingServiceEntityID: "msa-1", EncryptedMatchingDatasetAssertion: "blob-mds", AuthnStatementAssertion: "blob-authn", PersistentID: "pid-1", IdpLevelOfAssurance: Level2, Cycle3AttributeName: "NationalInsuranceNumber", Cycle3EntryDeadline: sent.Add(10 * time.Minute)},
		&Cycle3DataInputCancelled{Envelope: env, IdpEntityID: "idp-a"},
		&SuccessfulMatch{Envelope: env, IdpEntityID: "idp-a", MatchingServiceAssertion: "blob-match", IdpLevelOfAssurance: Level2},
		&EidasSuccessfulMatch{Envelope: env, CountryEntityID: "https://connector.eu", MatchingServiceAssertion: "blob-match", LevelOfAssurance: Level2},
		&NoMatch{Envelope: env, IdpEntityID: "idp-a", IdpLevelOfAssurance: Level1},
		&UserAccountCreationRequestSent{Envelope: env, IdpEntityID: "idp-a", MatchingServiceEntityID: "msa-1", PersistentID: "pid-1", IdpLevelOfAssurance: Level2, RequestSentAt: sent},
		&UserAccountCreated{Envelope: env, IdpEntityID: "idp-a", MatchingServiceAssertion: "blob-account", IdpLevelOfAssurance: Level2},
		&UserAccountCreationFailed{Envelope: env},
		&PausedRegistration{Envelope: env, IdpEntityID: "idp-a"},
		&FraudEventDetected{Envelope: env, IdpEntityID: "idp-a", FraudEventID: "fraud-1", FraudIndicator: "FI001"},
		&RequesterError{Envelope: env, ErrorDetail: "bad request"},
		&AuthnFailedError{Envelope: env, IdpEntityID: "idp-a"},
		&MatchingServiceRequestError{Envelope: env, IdpEntityID: "idp-a"},
		&Timeout{Envelope: env},
	}

	require.Len(t, states, len(AllNames()), "every variant must be exercised")

	for _, s := range states {
		t.Run(string(s.Name()), func(t *testing.T) {
			data, err := Marshal(s)
			require.NoError(t, err)

			got, err := Unmarshal(data)
			require.NoError(t, err)

			assert.Equal(t, s.Name(), got.Name())
			assert.Equal(t, s, got)
		})
	}
}

func TestUnmarshal_UnknownDiscriminator(t *testing.T) {
	_, err := Unmarshal([]byte(`{"state":"warp_drive_engaged","request_id":"r1"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warp_drive_engaged")
}

func TestUnmarshal_MissingDiscriminator(t *testing.T) {
	_, err := Unmarshal([]byte(`{"request_id":"r1"}`))
	assert.Error(t, err)
}

func TestUnmarshal_IgnoresUnknownFields(t *testing.T) {
	// A newer deployment may add fields; older readers must still parse.
	data := []byte(`{"state":"session_started","request_id":"r1","field_from_the_future":42}`)
	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, "r1", got.Common().RequestID)
}

func TestNewByName_CoversAllNames(t *testing.T) {
	for _, n := range AllNames() {
		s, err := newByName(n)
		require.NoError(t, err, "no constructor for %s", n)
		assert.Equal(t, n, s.Name())
	}
}
