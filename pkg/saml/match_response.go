package saml

import (
	"encoding/base64"
	"fmt"

	"github.com/beevik/etree"
)

// Matching-service status values carried in the second-level
// samlp:StatusCode of a response. These are wire constants.
const (
	statusSuccess       = "urn:oasis:names:tc:SAML:2.0:status:Success"
	statusRequestDenied = "urn:oasis:names:tc:SAML:2.0:status:Responder"

	statusMatch          = "urn:verihub:matching:status:match"
	statusNoMatch        = "urn:verihub:matching:status:no-match"
	statusCycle3Required = "urn:verihub:matching:status:cycle3-required"
	statusCreateAccount  = "urn:verihub:matching:status:create-account"
	statusCreated        = "urn:verihub:matching:status:account-created"
	statusCreateFailed   = "urn:verihub:matching:status:account-creation-failed"
)

var verdictByStatus = map[string]MatchVerdict{
	statusMatch:          VerdictMatch,
	statusNoMatch:        VerdictNoMatch,
	statusCycle3Required: VerdictRequestCycle3,
	statusCreateAccount:  VerdictCreateAccount,
	statusCreated:        VerdictAccountCreated,
	statusCreateFailed:   VerdictAccountCreationFailed,
}

// ValidateMatchResponse implements Engine. The matching-service channel
// is mutually authenticated at the transport layer, so validation here
// is structural: well-formed XML, a known status, a consistent issuer.
func (p *Provider) ValidateMatchResponse(raw string) (*MatchResponse, error) {
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, &ValidationError{Reason: "response is not valid base64", Cause: err}
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(decoded); err != nil {
		return nil, &ValidationError{Reason: "response is not well-formed XML", Cause: err}
	}

	root := doc.Root()
	if root == nil || root.Tag != "Response" {
		return nil, &ValidationError{Reason: "document is not a samlp:Response"}
	}

	resp := &MatchResponse{
		InResponseTo: root.SelectAttrValue("InResponseTo", ""),
	}
	if issuer := root.FindElement("./Issuer"); issuer != nil {
		resp.IssuerEntityID = issuer.Text()
	}

	top := root.FindElement("./Status/StatusCode")
	if top == nil {
		return nil, &ValidationError{Reason: "response carries no status"}
	}
	topValue := top.SelectAttrValue("Value", "")
	if topValue != statusSuccess && topValue != statusRequestDenied {
		return nil, &ValidationError{Reason: fmt.Sprintf("unexpected top-level status %q", topValue)}
	}

	sub := top.FindElement("./StatusCode")
	if sub == nil {
		return nil, &ValidationError{Reason: "response carries no matching verdict"}
	}
	verdict, ok := verdictByStatus[sub.SelectAttrValue("Value", "")]
	if !ok {
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown matching verdict %q", sub.SelectAttrValue("Value", ""))}
	}
	resp.Verdict = verdict

	if ea := root.FindElement("./EncryptedAssertion"); ea != nil {
		resp.Assertion = ea.Text()
	}

	if verdict == VerdictRequestCycle3 {
		attr := root.FindElement("./Extensions/Cycle3Attribute")
		if attr == nil {
			return nil, &ValidationError{Reason: "cycle-3 verdict names no attribute"}
		}
		resp.Cycle3AttributeName = attr.SelectAttrValue("Name", "")
		if resp.Cycle3AttributeName == "" {
			return nil, &ValidationError{Reason: "cycle-3 verdict names no attribute"}
		}
	}

	return resp, nil
}
