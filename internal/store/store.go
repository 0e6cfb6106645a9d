package store

import (
	"context"
	"errors"

	"github.com/nhle/tolerance-rules/internal/model"
)

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("not found")

// ExceptionFilter controls filtering and pagination for exception queries.
type ExceptionFilter struct {
	OrganizationID *string
	RuleID         *string
	EntityType     *string
	Status         *model.ExceptionStatus
	Limit          int
}

// Store defines the persistence interface used by the tolerance-rule
// evaluator: read access to organization data, rule configuration, and
// the exception and notification records the evaluator produces.
type Store interface {
	// === Tolerance rules ===

	GetEnabledRules(ctx context.Context, organizationID string) ([]model.ToleranceRule, error)
	GetRules(ctx context.Context, organizationID string) ([]model.ToleranceRule, error)
	GetRuleByID(ctx context.Context, id string) (*model.ToleranceRule, error)
	UpsertRule(ctx context.Context, rule model.ToleranceRule) (string, error)
	SetRuleEnabled(ctx context.Context, id string, enabled bool) error

	// === Candidate reads ===

	GetReportPairs(ctx context.Context, organizationID string, onlyFullTime bool) ([]model.ReportPair, error)
	GetOneOnOnesForPairs(ctx context.Context, pairs []model.PairKey) ([]model.OneOnOne, error)
	GetInitiatives(ctx context.Context, organizationID string, statuses []string) ([]model.Initiative, error)
	GetCheckIns(ctx context.Context, initiativeIDs []string) ([]model.CheckIn, error)
	GetInitiativeOwners(ctx context.Context, initiativeIDs []string) ([]model.Owner, error)
	GetActivePeople(ctx context.Context, organizationID string) ([]model.ActivePerson, error)
	GetFeedbackCampaigns(ctx context.Context, personIDs []string) ([]model.FeedbackCampaign, error)
	GetManagerSpans(ctx context.Context, organizationID string) ([]model.ManagerSpan, error)

	// === Exceptions ===

	// ExistingExceptions returns the subset of entityIDs that already have
	// an active exception for the rule.
	ExistingExceptions(ctx context.Context, ruleID, organizationID, entityType string, entityIDs []string) (map[string]struct{}, error)

	// CreateExceptionIfAbsent inserts ex unless an active exception with the
	// same rule, organization, entity type and entity id exists. It reports
	// whether a row was created; losing a race is not an error.
	CreateExceptionIfAbsent(ctx context.Context, ex model.Exception) (bool, error)

	GetExceptions(ctx context.Context, filter ExceptionFilter) ([]model.Exception, error)
	SetExceptionStatus(ctx context.Context, id string, status model.ExceptionStatus) error

	// === Notifications ===

	CreateNotification(ctx context.Context, n model.Notification) (string, error)
	LinkNotification(ctx context.Context, exceptionID, notificationID string) error
	GetNotificationsForException(ctx context.Context, exceptionID string) ([]model.Notification, error)
	GetUnreadNotifications(ctx context.Context, userID string) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error

	// === Bulk writes ===

	ImportSnapshot(ctx context.Context, snap model.Snapshot) error
}
