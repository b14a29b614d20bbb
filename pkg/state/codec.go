package state

import (
	"encoding/json"
	"fmt"
)

// discriminatorField names the concrete variant inside the persisted
// record. Renaming it breaks every in-flight session.
const discriminatorField = "state"

// Marshal serializes s as one flat JSON record: envelope fields and
// variant fields at the top level plus the "state" discriminator.
func Marshal(s State) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("cannot marshal nil state")
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s state: %w", s.Name(), err)
	}

	var record map[string]json.RawMessage
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("failed to flatten %s state: %w", s.Name(), err)
	}

	name, err := json.Marshal(s.Name())
	if err != nil {
		return nil, err
	}
	record[discriminatorField] = name

	return json.Marshal(record)
}

// Unmarshal reconstructs the concrete variant from a persisted record.
// Unknown discriminators are an error: a record written by a newer
// deployment with a brand-new variant cannot be interpreted here.
func Unmarshal(data []byte) (State, error) {
	var head struct {
		Name Name `json:"state"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to read state discriminator: %w", err)
	}

	s, err := newByName(head.Name)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s state: %w", head.Name, err)
	}
	return s, nil
}

// newByName allocates the zero value for a discriminator. The switch is
// exhaustive over AllNames.
func newByName(n Name) (State, error) {
	switch n {
	case NameSessionStarted:
		return &SessionStarted{}, nil
	case NameIdpSelected:
		return &IdpSelected{}, nil
	case NameCountrySelected:
		return &CountrySelected{}, nil
	case NameCycle0And1MatchRequestSent:
		return &Cycle0And1MatchRequestSent{}, nil
	case NameEidasCycle0And1MatchRequestSent:
		return &EidasCycle0And1MatchRequestSent{}, nil
	case NameCycle3MatchRequestSent:
		return &Cycle3MatchRequestSent{}, nil
	case NameAwaitingCycle3Data:
		return &AwaitingCycle3Data{}, nil
	case NameCycle3DataInputCancelled:
		return &Cycle3DataInputCancelled{}, nil
	case NameSuccessfulMatch:
		return &SuccessfulMatch{}, nil
	case NameEidasSuccessfulMatch:
		return &EidasSuccessfulMatch{}, nil
	case NameNoMatch:
		return &NoMatch{}, nil
	case NameUserAccountCreationRequestSent:
		return &UserAccountCreationRequestSent{}, nil
	case NameUserAccountCreated:
		return &UserAccountCreated{}, nil
	case NameUserAccountCreationFailed:
		return &UserAccountCreationFailed{}, nil
	case NamePausedRegistration:
		return &PausedRegistration{}, nil
	case NameFraudEventDetected:
		return &FraudEventDetected{}, nil
	case NameRequesterError:
		return &RequesterError{}, nil
	case NameAuthnFailedError:
		return &AuthnFailedError{}, nil
	case NameMatchingServiceRequestError:
		return &MatchingServiceRequestError{}, nil
	case NameTimeout:
		return &Timeout{}, nil
	default:
		return nil, fmt.Errorf("unknown state discriminator %q", n)
	}
}
