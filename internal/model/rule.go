package model

import (
	"encoding/json"
	"time"
)

// RuleType identifies the kind of tolerance rule.
type RuleType string

const (
	RuleTypeOneOnOneFrequency RuleType = "one_on_one_frequency"
	RuleTypeInitiativeCheckIn RuleType = "initiative_checkin"
	RuleTypeFeedback360       RuleType = "feedback_360"
	RuleTypeManagerSpan       RuleType = "manager_span"
)

// RuleTypes lists every supported rule type in evaluation order.
var RuleTypes = []RuleType{
	RuleTypeOneOnOneFrequency,
	RuleTypeInitiativeCheckIn,
	RuleTypeFeedback360,
	RuleTypeManagerSpan,
}

// ToleranceRule is an organization's configured policy for an acceptable
// cadence or threshold. Config holds the rule-type-specific payload and
// is only interpreted once RuleType is known.
type ToleranceRule struct {
	ID             string          `json:"id" db:"id"`
	OrganizationID string          `json:"organization_id" db:"organization_id"`
	RuleType       RuleType        `json:"rule_type" db:"rule_type"`
	IsEnabled      bool            `json:"is_enabled" db:"is_enabled"`
	Name           string          `json:"name" db:"name"`
	Config         json.RawMessage `json:"config" db:"config"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// RuleConfig is implemented by the per-type configuration payloads.
type RuleConfig interface {
	RuleType() RuleType
}

// OneOnOneConfig configures the one-on-one frequency rule.
type OneOnOneConfig struct {
	WarningThresholdDays  int  `json:"warningThresholdDays" yaml:"warningThresholdDays" validate:"required,gt=0"`
	UrgentThresholdDays   int  `json:"urgentThresholdDays" yaml:"urgentThresholdDays" validate:"required,gt=0"`
	OnlyFullTimeEmployees bool `json:"onlyFullTimeEmployees,omitempty" yaml:"onlyFullTimeEmployees,omitempty"`
}

func (OneOnOneConfig) RuleType() RuleType { return RuleTypeOneOnOneFrequency }

// InitiativeCheckInConfig configures the initiative check-in rule.
type InitiativeCheckInConfig struct {
	WarningThresholdDays int `json:"warningThresholdDays" yaml:"warningThresholdDays" validate:"required,gt=0"`
}

func (InitiativeCheckInConfig) RuleType() RuleType { return RuleTypeInitiativeCheckIn }

// Feedback360Config configures the 360-feedback cadence rule.
type Feedback360Config struct {
	WarningThresholdMonths int `json:"warningThresholdMonths" yaml:"warningThresholdMonths" validate:"required,gt=0"`
}

func (Feedback360Config) RuleType() RuleType { return RuleTypeFeedback360 }

// ManagerSpanConfig configures the manager span-of-control rule.
type ManagerSpanConfig struct {
	MaxDirectReports int `json:"maxDirectReports" yaml:"maxDirectReports" validate:"required,gt=0"`
}

func (ManagerSpanConfig) RuleType() RuleType { return RuleTypeManagerSpan }
