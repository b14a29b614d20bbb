package federation

import (
	"fmt"

	"github.com/platinummonkey/verihub/pkg/state"
)

// EntityType classifies a federation participant.
type EntityType string

const (
	EntityTypeRelyingParty    EntityType = "relying_party"
	EntityTypeIdp             EntityType = "identity_provider"
	EntityTypeCountry         EntityType = "country"
	EntityTypeMatchingService EntityType = "matching_service"
)

// EntityConfig is the federation standing of one entity: whether the
// hub will transact with it, the trust material to validate its
// signatures, and routing hints for the matching leg.
type EntityConfig struct {
	EntityID      string     `yaml:"entity_id"`
	Type          EntityType `yaml:"type"`
	Enabled       bool       `yaml:"enabled"`
	Onboarding    bool       `yaml:"onboarding"`
	SupportsEidas bool       `yaml:"supports_eidas"`

	// Certificates are PEM encoded signing certificates.
	Certificates []string `yaml:"certificates"`

	SupportedLevels []state.LevelOfAssurance `yaml:"supported_levels"`

	// MatchingServiceEntityID routes a relying party's attribute
	// queries; only set on relying-party entries.
	MatchingServiceEntityID string `yaml:"matching_service_entity_id,omitempty"`
}

// SupportsLevel reports whether the entity can serve any of the wanted
// levels of assurance.
func (e *EntityConfig) SupportsLevel(wanted ...state.LevelOfAssurance) bool {
	for _, w := range wanted {
		for _, have := range e.SupportedLevels {
			if have == w {
				return true
			}
		}
	}
	return false
}

// NotFoundError means an entity id is not in the federation at all.
type NotFoundError struct {
	EntityID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("entity %s is not in the federation", e.EntityID)
}

// DisabledError means the entity exists but the hub must refuse to
// transact with it.
type DisabledError struct {
	EntityID string
}

func (e *DisabledError) Error() string {
	return fmt.Sprintf("entity %s is disabled", e.EntityID)
}
