package saml

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"encoding/xml"
	"fmt"
	"sync"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	saml2 "github.com/russellhaering/gosaml2"
	dsig "github.com/russellhaering/goxmldsig"

	"github.com/platinummonkey/verihub/pkg/state"
)

// Attribute names the hub expects on inbound IDP assertions.
const (
	attrLevelOfAssurance = "levelOfAssurance"
)

// CertificateSource resolves the trust certificates for a federation
// entity. pkg/federation's Registry satisfies this.
type CertificateSource interface {
	CertificatesFor(entityID string) ([]*x509.Certificate, error)
}

// ProviderConfig configures the hub-side SAML provider.
type ProviderConfig struct {
	// HubEntityID is the issuer on outbound payloads.
	HubEntityID string

	// HubCertificate and HubPrivateKey are PEM encoded signing material
	// for outbound attribute queries. Leave empty to emit unsigned
	// queries (test environments only).
	HubCertificate string
	HubPrivateKey  string

	// AudienceURI restricts which assertions the hub accepts.
	AudienceURI string

	// ClockSkew widens NotBefore/NotOnOrAfter checks.
	ClockSkew time.Duration
}

// Provider implements Engine on gosaml2/goxmldsig. Per-issuer service
// providers are built lazily from the CertificateSource and cached.
type Provider struct {
	config ProviderConfig
	certs  CertificateSource

	signingCtx *dsig.SigningContext

	mu  sync.RWMutex
	sps map[string]*saml2.SAMLServiceProvider
}

// NewProvider creates a Provider. The signing key is parsed eagerly so
// misconfiguration surfaces at startup, not on the first query.
func NewProvider(config ProviderConfig, certs CertificateSource) (*Provider, error) {
	if config.HubEntityID == "" {
		return nil, fmt.Errorf("hub entity id is required")
	}
	if certs == nil {
		return nil, fmt.Errorf("certificate source is required")
	}

	p := &Provider{
		config: config,
		certs:  certs,
		sps:    make(map[string]*saml2.SAMLServiceProvider),
	}

	if config.HubPrivateKey != "" {
		keyStore, err := parseKeyStore(config.HubCertificate, config.HubPrivateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse hub signing material: %w", err)
		}
		p.signingCtx = dsig.NewDefaultSigningContext(keyStore)
	}

	return p, nil
}

// serviceProviderFor returns the cached gosaml2 service provider for an
// issuer, building one from the entity's current trust certificates on
// first use.
func (p *Provider) serviceProviderFor(issuerEntityID string) (*saml2.SAMLServiceProvider, error) {
	p.mu.RLock()
	sp, ok := p.sps[issuerEntityID]
	p.mu.RUnlock()
	if ok {
		return sp, nil
	}

	roots, err := p.certs.CertificatesFor(issuerEntityID)
	if err != nil {
		return nil, fmt.Errorf("no trust certificates for %s: %w", issuerEntityID, err)
	}

	certStore := &dsig.MemoryX509CertificateStore{Roots: roots}
	sp = &saml2.SAMLServiceProvider{
		IdentityProviderIssuer: issuerEntityID,
		ServiceProviderIssuer:  p.config.HubEntityID,
		AudienceURI:            p.config.AudienceURI,
		IDPCertificateStore:    certStore,
		Clock:                  dsig.NewRealClock(),
	}

	p.mu.Lock()
	p.sps[issuerEntityID] = sp
	p.mu.Unlock()
	return sp, nil
}

// InvalidateTrust drops the cached service provider for an entity, for
// use when federation trust material is reloaded.
func (p *Provider) InvalidateTrust(entityID string) {
	p.mu.Lock()
	delete(p.sps, entityID)
	p.mu.Unlock()
}

// InvalidateAllTrust drops every cached service provider, for use when
// the federation view is replaced wholesale. The next validation per
// issuer rebuilds from the CertificateSource.
func (p *Provider) InvalidateAllTrust() {
	p.mu.Lock()
	p.sps = make(map[string]*saml2.SAMLServiceProvider)
	p.mu.Unlock()
}

// ValidateAuthnResponse implements Engine.
func (p *Provider) ValidateAuthnResponse(issuerEntityID, raw string) (*ValidatedResponse, error) {
	sp, err := p.serviceProviderFor(issuerEntityID)
	if err != nil {
		return nil, &ValidationError{Reason: "untrusted issuer", Cause: err}
	}

	response, err := sp.ValidateEncodedResponse(raw)
	if err != nil {
		return nil, &ValidationError{Reason: "response rejected", Cause: err}
	}

	info, err := sp.RetrieveAssertionInfo(raw)
	if err != nil {
		return nil, &ValidationError{Reason: "assertion rejected", Cause: err}
	}
	if info.WarningInfo.InvalidTime {
		return nil, &ValidationError{Reason: "assertion outside validity window"}
	}
	if info.WarningInfo.NotInAudience {
		return nil, &ValidationError{Reason: "assertion not for this audience"}
	}
	if info.NameID == "" {
		return nil, &ValidationError{Reason: "assertion carries no persistent id"}
	}

	loa, err := state.ParseLevelOfAssurance(info.Values.Get(attrLevelOfAssurance))
	if err != nil {
		return nil, &ValidationError{Reason: "missing or unknown level of assurance", Cause: err}
	}

	mdsBlob, authnBlob, err := assertionBlobs(info)
	if err != nil {
		return nil, &ValidationError{Reason: "failed to extract assertions", Cause: err}
	}

	validated := &ValidatedResponse{
		InResponseTo:                      response.InResponseTo,
		IssuerEntityID:                    issuerEntityID,
		PersistentID:                      info.NameID,
		LevelOfAssurance:                  loa,
		EncryptedMatchingDatasetAssertion: mdsBlob,
		AuthnStatementAssertion:           authnBlob,
		SessionIndex:                      info.SessionIndex,
	}
	if info.AuthnInstant != nil {
		validated.AuthnInstant = *info.AuthnInstant
	}
	return validated, nil
}

// assertionBlobs re-serializes the validated assertions into the opaque
// blobs forwarded to the matching service. A single-assertion response
// serves both the dataset and authn-statement legs.
func assertionBlobs(info *saml2.AssertionInfo) (mds string, authn string, err error) {
	if len(info.Assertions) == 0 {
		return "", "", fmt.Errorf("response contains no assertions")
	}

	encode := func(i int) (string, error) {
		data, err := xml.Marshal(info.Assertions[i])
		if err != nil {
			return "", err
		}
		return base64.StdEncoding.EncodeToString(data), nil
	}

	mds, err = encode(0)
	if err != nil {
		return "", "", err
	}
	authn = mds
	if len(info.Assertions) > 1 {
		authn, err = encode(1)
		if err != nil {
			return "", "", err
		}
	}
	return mds, authn, nil
}

// BuildAttributeQuery implements Engine.
func (p *Provider) BuildAttributeQuery(req AttributeQueryRequest) (string, error) {
	if req.PersistentID == "" {
		return "", fmt.Errorf("attribute query requires a persistent id")
	}
	if req.MatchingServiceEntityID == "" {
		return "", fmt.Errorf("attribute query requires a matching service entity id")
	}

	doc := etree.NewDocument()
	query := doc.CreateElement("samlp:AttributeQuery")
	query.CreateAttr("xmlns:samlp", "urn:oasis:names:tc:SAML:2.0:protocol")
	query.CreateAttr("xmlns:saml", "urn:oasis:names:tc:SAML:2.0:assertion")
	query.CreateAttr("ID", "_"+uuid.NewString())
	query.CreateAttr("Version", "2.0")
	query.CreateAttr("IssueInstant", time.Now().UTC().Format(time.RFC3339))
	query.CreateAttr("Destination", req.MatchingServiceEntityID)

	issuer := query.CreateElement("saml:Issuer")
	issuer.SetText(p.config.HubEntityID)

	subject := query.CreateElement("saml:Subject")
	nameID := subject.CreateElement("saml:NameID")
	nameID.CreateAttr("Format", "urn:oasis:names:tc:SAML:2.0:nameid-format:persistent")
	nameID.SetText(req.PersistentID)

	ext := query.CreateElement("samlp:Extensions")
	dataset := ext.CreateElement("verihub:Dataset")
	dataset.CreateAttr("xmlns:verihub", "urn:verihub:attributequery")
	dataset.CreateAttr("Kind", string(req.DatasetKind))
	dataset.CreateAttr("LevelOfAssurance", string(req.LevelOfAssurance))
	dataset.CreateAttr("InResponseTo", req.RequestID)

	if req.Cycle3Attribute != nil {
		attr := ext.CreateElement("verihub:Cycle3Attribute")
		attr.CreateAttr("xmlns:verihub", "urn:verihub:attributequery")
		attr.CreateAttr("Name", req.Cycle3Attribute.Name)
		attr.SetText(req.Cycle3Attribute.Value)
	}

	for _, blob := range req.EncryptedAssertions {
		ea := query.CreateElement("saml:EncryptedAssertion")
		ea.SetText(blob)
	}

	root := query
	if p.signingCtx != nil {
		signed, err := p.signingCtx.SignEnveloped(query)
		if err != nil {
			return "", fmt.Errorf("failed to sign attribute query: %w", err)
		}
		root = signed
	}

	signedDoc := etree.NewDocument()
	signedDoc.SetRoot(root)
	out, err := signedDoc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("failed to serialize attribute query: %w", err)
	}
	return base64.StdEncoding.EncodeToString([]byte(out)), nil
}

// parseKeyStore builds a goxmldsig key store from PEM material,
// accepting PKCS1 or PKCS8 keys. Adapted certificate handling mirrors
// the inbound side: misparsing fails loudly.
func parseKeyStore(certPEM, keyPEM string) (dsig.X509KeyStore, error) {
	keyBlock, _ := pem.Decode([]byte(keyPEM))
	if keyBlock == nil {
		return nil, fmt.Errorf("failed to decode private key PEM")
	}

	privateKey, err := x509.ParsePKCS1PrivateKey(keyBlock.Bytes)
	if err != nil {
		pkcs8Key, err := x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		var ok bool
		privateKey, ok = pkcs8Key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private key is not RSA")
		}
	}

	certBlock, _ := pem.Decode([]byte(certPEM))
	if certBlock == nil {
		return nil, fmt.Errorf("failed to decode certificate PEM")
	}

	return &dsig.TLSCertKeyStore{
		PrivateKey:  privateKey,
		Certificate: [][]byte{certBlock.Bytes},
	}, nil
}
