package saml

import (
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/verihub/pkg/state"
)

type staticCerts struct {
	certs map[string][]*x509.Certificate
}

func (s *staticCerts) CertificatesFor(entityID string) ([]*x509.Certificate, error) {
	certs, ok := s.certs[entityID]
	if !ok {
		return nil, fmt.Errorf("unknown entity %s", entityID)
	}
	return certs, nil
}

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := NewProvider(ProviderConfig{
		HubEntityID: "https://hub.example.com",
		AudienceURI: "https://hub.example.com",
	}, &staticCerts{certs: map[string][]*x509.Certificate{}})
	require.NoError(t, err)
	return p
}

func TestNewProvider_RequiresEntityID(t *testing.T) {
	_, err := NewProvider(ProviderConfig{}, &staticCerts{})
	assert.Error(t, err)
}

func TestNewProvider_RequiresCertificateSource(t *testing.T) {
	_, err := NewProvider(ProviderConfig{HubEntityID: "https://hub.example.com"}, nil)
	assert.Error(t, err)
}

func TestNewProvider_RejectsBadSigningKey(t *testing.T) {
	_, err := NewProvider(ProviderConfig{
		HubEntityID:    "https://hub.example.com",
		HubPrivateKey:  "not a pem",
		HubCertificate: "not a pem",
	}, &staticCerts{})
	assert.Error(t, err)
}

func TestBuildAttributeQuery_Unsigned(t *testing.T) {
	p := newTestProvider(t)

	payload, err := p.BuildAttributeQuery(AttributeQueryRequest{
		RequestID:               "request-1",
		PersistentID:            "pid-1",
		LevelOfAssurance:        state.Level2,
		MatchingServiceEntityID: "https://msa.example.com",
		DatasetKind:             DatasetCycle3,
		EncryptedAssertions:     []string{"blob-a", "blob-b"},
		Cycle3Attribute:         &Cycle3Attribute{Name: "NationalInsuranceNumber", Value: "QQ123456C"},
	})
	require.NoError(t, err)

	decoded, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(decoded))

	root := doc.Root()
	require.NotNil(t, root)
	assert.Equal(t, "AttributeQuery", root.Tag)
	assert.Equal(t, "https://msa.example.com", root.SelectAttrValue("Destination", ""))

	issuer := root.FindElement("./Issuer")
	require.NotNil(t, issuer)
	assert.Equal(t, "https://hub.example.com", issuer.Text())

	nameID := root.FindElement("./Subject/NameID")
	require.NotNil(t, nameID)
	assert.Equal(t, "pid-1", nameID.Text())

	dataset := root.FindElement("./Extensions/Dataset")
	require.NotNil(t, dataset)
	assert.Equal(t, "cycle-3", dataset.SelectAttrValue("Kind", ""))
	assert.Equal(t, "LEVEL_2", dataset.SelectAttrValue("LevelOfAssurance", ""))
	assert.Equal(t, "request-1", dataset.SelectAttrValue("InResponseTo", ""))

	cycle3 := root.FindElement("./Extensions/Cycle3Attribute")
	require.NotNil(t, cycle3)
	assert.Equal(t, "NationalInsuranceNumber", cycle3.SelectAttrValue("Name", ""))
	assert.Equal(t, "QQ123456C", cycle3.Text())

	assert.Len(t, root.FindElements("./EncryptedAssertion"), 2)
}

func TestBuildAttributeQuery_RequiresPersistentID(t *testing.T) {
	p := newTestProvider(t)
	_, err := p.BuildAttributeQuery(AttributeQueryRequest{
		MatchingServiceEntityID: "https://msa.example.com",
	})
	assert.Error(t, err)
}

func TestValidateAuthnResponse_UntrustedIssuer(t *testing.T) {
	p := newTestProvider(t)

	_, err := p.ValidateAuthnResponse("https://unknown-idp.example.com", "payload")
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "untrusted issuer", ve.Reason)
}

// countingCerts reports how many times trust material was resolved.
type countingCerts struct {
	calls int
}

func (c *countingCerts) CertificatesFor(string) ([]*x509.Certificate, error) {
	c.calls++
	return nil, nil
}

func TestInvalidateTrust_RebuildsFromCertificateSource(t *testing.T) {
	source := &countingCerts{}
	p, err := NewProvider(ProviderConfig{
		HubEntityID: "https://hub.example.com",
		AudienceURI: "https://hub.example.com",
	}, source)
	require.NoError(t, err)

	idp := "https://idp.example.com"

	// The payload is rejected, but the service provider for the issuer
	// is built and cached on the way in.
	_, err = p.ValidateAuthnResponse(idp, "garbage")
	require.Error(t, err)
	require.Equal(t, 1, source.calls)

	_, err = p.ValidateAuthnResponse(idp, "garbage")
	require.Error(t, err)
	assert.Equal(t, 1, source.calls, "cached trust should not be re-resolved")

	p.InvalidateTrust(idp)
	_, err = p.ValidateAuthnResponse(idp, "garbage")
	require.Error(t, err)
	assert.Equal(t, 2, source.calls, "invalidated trust must be rebuilt from the source")

	p.InvalidateAllTrust()
	_, err = p.ValidateAuthnResponse(idp, "garbage")
	require.Error(t, err)
	assert.Equal(t, 3, source.calls)
}

func encodeMatchResponse(t *testing.T, subStatus, assertion string) string {
	t.Helper()
	doc := etree.NewDocument()
	root := doc.CreateElement("samlp:Response")
	root.CreateAttr("xmlns:samlp", "urn:oasis:names:tc:SAML:2.0:protocol")
	root.CreateAttr("InResponseTo", "request-1")
	root.CreateElement("Issuer").SetText("https://msa.example.com")
	status := root.CreateElement("Status")
	top := status.CreateElement("StatusCode")
	top.CreateAttr("Value", statusSuccess)
	if subStatus != "" {
		sub := top.CreateElement("StatusCode")
		sub.CreateAttr("Value", subStatus)
	}
	if subStatus == statusCycle3Required {
		attr := root.CreateElement("Extensions").CreateElement("Cycle3Attribute")
		attr.CreateAttr("Name", "NationalInsuranceNumber")
	}
	if assertion != "" {
		root.CreateElement("EncryptedAssertion").SetText(assertion)
	}
	out, err := doc.WriteToString()
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString([]byte(out))
}

func TestValidateMatchResponse_Verdicts(t *testing.T) {
	p := newTestProvider(t)

	tests := []struct {
		status  string
		verdict MatchVerdict
	}{
		{statusMatch, VerdictMatch},
		{statusNoMatch, VerdictNoMatch},
		{statusCycle3Required, VerdictRequestCycle3},
		{statusCreateAccount, VerdictCreateAccount},
		{statusCreated, VerdictAccountCreated},
		{statusCreateFailed, VerdictAccountCreationFailed},
	}

	for _, tt := range tests {
		t.Run(string(tt.verdict), func(t *testing.T) {
			resp, err := p.ValidateMatchResponse(encodeMatchResponse(t, tt.status, "blob"))
			require.NoError(t, err)
			assert.Equal(t, tt.verdict, resp.Verdict)
			assert.Equal(t, "request-1", resp.InResponseTo)
			assert.Equal(t, "https://msa.example.com", resp.IssuerEntityID)
			assert.Equal(t, "blob", resp.Assertion)
			if tt.verdict == VerdictRequestCycle3 {
				assert.Equal(t, "NationalInsuranceNumber", resp.Cycle3AttributeName)
			} else {
				assert.Empty(t, resp.Cycle3AttributeName)
			}
		})
	}
}

func TestValidateMatchResponse_Cycle3WithoutAttribute(t *testing.T) {
	p := newTestProvider(t)

	doc := etree.NewDocument()
	root := doc.CreateElement("samlp:Response")
	root.CreateAttr("xmlns:samlp", "urn:oasis:names:tc:SAML:2.0:protocol")
	root.CreateAttr("InResponseTo", "request-1")
	root.CreateElement("Issuer").SetText("https://msa.example.com")
	top := root.CreateElement("Status").CreateElement("StatusCode")
	top.CreateAttr("Value", statusSuccess)
	sub := top.CreateElement("StatusCode")
	sub.CreateAttr("Value", statusCycle3Required)
	out, err := doc.WriteToString()
	require.NoError(t, err)

	_, err = p.ValidateMatchResponse(base64.StdEncoding.EncodeToString([]byte(out)))
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestValidateMatchResponse_Rejections(t *testing.T) {
	p := newTestProvider(t)

	tests := []struct {
		name    string
		payload string
	}{
		{"not base64", "!!!"},
		{"not xml", base64.StdEncoding.EncodeToString([]byte("<oops"))},
		{"no verdict", encodeMatchResponse(t, "", "")},
		{"unknown verdict", encodeMatchResponse(t, "urn:verihub:matching:status:banana", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ValidateMatchResponse(tt.payload)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
		})
	}
}
