// Package rules evaluates an organization's tolerance rules and raises
// exceptions for the entities that violate them.
//
// # Rules
//
//   - one_on_one_frequency: manager/report pairs without a recent 1:1.
//     Meetings are matched in both directions, so a 1:1 recorded with
//     the roles swapped still counts.
//   - initiative_checkin: planned or in-progress initiatives without a
//     recent check-in. Every owner is notified.
//   - feedback_360: active people without a recent 360-feedback campaign.
//     A month is 30 days.
//   - manager_span: managers with more active direct reports than allowed.
//
// # Deduplication
//
// At most one active exception exists per (rule, organization, entity
// type, entity id). Each rule first drops candidates that already have one
// using a bulk query, then creates each exception through
// store.Store.CreateExceptionIfAbsent, which rechecks inside a
// serializable transaction. Only a newly created exception produces
// notifications.
//
// # Constructor
//
//	func DefaultRegistry(deps Deps) *Registry
//	func NewEvaluator(s store.Store, registry *Registry, logger *zap.Logger) *Evaluator
//	func (e *Evaluator) EvaluateAllRules(ctx context.Context, organizationID string) (Result, error)
package rules
