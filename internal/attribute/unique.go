package attribute

import (
	"fmt"

	"labledger.io/lims/internal/domain"
)

// FindConflict returns the first config in existing that shares key, ignoring
// the config whose ID equals excludeID. Inactive configs count: a name stays
// reserved after deactivation.
func FindConflict(existing []domain.AttributeConfig, key domain.AttributeKey, excludeID string) (domain.AttributeConfig, bool) {
	for _, cfg := range existing {
		if excludeID != "" && cfg.ID == excludeID {
			continue
		}
		if cfg.EntityType == key.EntityType && cfg.AttrName == key.AttrName {
			return cfg, true
		}
	}
	return domain.AttributeConfig{}, false
}

// CheckUnique reports whether key is free in existing.
func CheckUnique(existing []domain.AttributeConfig, key domain.AttributeKey, excludeID string) bool {
	_, taken := FindConflict(existing, key, excludeID)
	return !taken
}

// ConflictMessage is the user-facing message for a taken (entity_type, attr_name).
func ConflictMessage(key domain.AttributeKey) string {
	return fmt.Sprintf("custom attribute %q already exists for entity type %q", key.AttrName, string(key.EntityType))
}

// DuplicateKeys returns every key held by more than one config in configs.
func DuplicateKeys(configs []domain.AttributeConfig) []domain.AttributeKey {
	seen := make(map[domain.AttributeKey]int, len(configs))
	var dups []domain.AttributeKey
	for _, cfg := range configs {
		k := cfg.Key()
		seen[k]++
		if seen[k] == 2 {
			dups = append(dups, k)
		}
	}
	return dups
}
