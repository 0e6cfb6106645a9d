package model

import (
	"encoding/json"
	"time"
)

// Severity tiers how far past its threshold a violation is.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityUrgent  Severity = "urgent"
)

// ExceptionStatus is the lifecycle state of an Exception. The evaluator
// only ever produces active exceptions.
type ExceptionStatus string

const (
	ExceptionStatusActive    ExceptionStatus = "active"
	ExceptionStatusResolved  ExceptionStatus = "resolved"
	ExceptionStatusDismissed ExceptionStatus = "dismissed"
)

// Entity type discriminators for Exception.EntityType.
const (
	EntityTypeOneOnOne   = "OneOnOne"
	EntityTypeInitiative = "Initiative"
	EntityTypePerson     = "Person"
)

// Exception records a single detected violation of a tolerance rule for
// one entity. At most one active Exception may exist per
// (RuleID, OrganizationID, EntityType, EntityID).
type Exception struct {
	// ID is the unique identifier for this exception.
	ID string `json:"id" db:"id"`

	// RuleID is the tolerance rule that raised this exception.
	RuleID string `json:"rule_id" db:"rule_id"`

	// OrganizationID scopes the exception to its organization.
	OrganizationID string `json:"organization_id" db:"organization_id"`

	Severity Severity `json:"severity" db:"severity"`

	// EntityType and EntityID reference the violating subject. Pair-based
	// subjects use a PairKey serialized with PairKey.String.
	EntityType string `json:"entity_type" db:"entity_type"`
	EntityID   string `json:"entity_id" db:"entity_id"`

	// Message is the human-readable description of the violation.
	Message string `json:"message" db:"message"`

	// Metadata carries the raw ids, names, thresholds and elapsed time
	// that produced Message.
	Metadata map[string]any `json:"metadata" db:"-"`

	Status    ExceptionStatus `json:"status" db:"status"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// MetadataJSON encodes Metadata for storage. A nil map encodes as "{}".
func (e Exception) MetadataJSON() (string, error) {
	return encodeMetadata(e.Metadata)
}

func encodeMetadata(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeMetadata parses a stored metadata column back into a map.
func DecodeMetadata(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	return m, nil
}
