package rules

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/tolerance-rules/internal/model"
)

// checkInStatuses are the initiative statuses that expect check-ins.
var checkInStatuses = []string{
	model.InitiativeStatusPlanned,
	model.InitiativeStatusInProgress,
}

// InitiativeCheckInRule flags open initiatives without a recent check-in
// and notifies every owner.
type InitiativeCheckInRule struct {
	base
}

// NewInitiativeCheckInRule returns the initiative_checkin rule.
func NewInitiativeCheckInRule(deps Deps) *InitiativeCheckInRule {
	return &InitiativeCheckInRule{base: newBase(model.RuleTypeInitiativeCheckIn, deps)}
}

func (r *InitiativeCheckInRule) Evaluate(ctx context.Context, rule model.ToleranceRule) (int, error) {
	cfg, err := configFor[model.InitiativeCheckInConfig](rule)
	if err != nil {
		return 0, err
	}

	initiatives, err := r.store.GetInitiatives(ctx, rule.OrganizationID, checkInStatuses)
	if err != nil {
		return 0, err
	}
	if len(initiatives) == 0 {
		return 0, nil
	}

	ids := make([]string, len(initiatives))
	for i, in := range initiatives {
		ids[i] = in.ID
	}

	existing, err := r.existingExceptions(ctx, rule, model.EntityTypeInitiative, ids)
	if err != nil {
		return 0, err
	}

	pending := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := existing[id]; !ok {
			pending = append(pending, id)
		}
	}

	lastCheckIn := make(map[string]*time.Time, len(pending))
	owners := make(map[string][]model.Owner, len(pending))
	for _, batch := range chunk(pending, batchSize) {
		checkIns, err := r.store.GetCheckIns(ctx, batch)
		if err != nil {
			return 0, err
		}
		// Newest first: the first row per initiative is its latest.
		for _, c := range checkIns {
			if _, ok := lastCheckIn[c.InitiativeID]; !ok {
				at := c.CreatedAt
				lastCheckIn[c.InitiativeID] = &at
			}
		}

		batchOwners, err := r.store.GetInitiativeOwners(ctx, batch)
		if err != nil {
			return 0, err
		}
		for _, o := range batchOwners {
			owners[o.InitiativeID] = append(owners[o.InitiativeID], o)
		}
	}

	now := r.clock()
	created := 0
	for _, in := range initiatives {
		if _, ok := existing[in.ID]; ok {
			continue
		}

		last := lastCheckIn[in.ID]
		days := since(now, last, day)
		if !days.exceeds(cfg.WarningThresholdDays) {
			continue
		}

		message := fmt.Sprintf("Initiative %q has not had a check-in in %d days", in.Title, days.n)
		if days.never {
			message = fmt.Sprintf("Initiative %q has never had a check-in", in.Title)
		}

		recipients := make([]string, 0, len(owners[in.ID]))
		ownerIDs := make([]string, 0, len(owners[in.ID]))
		for _, o := range owners[in.ID] {
			ownerIDs = append(ownerIDs, o.PersonID)
			recipients = append(recipients, deref(o.UserID))
		}

		ok, err := r.raise(ctx, rule, violation{
			severity:   model.SeverityWarning,
			entityType: model.EntityTypeInitiative,
			entityID:   in.ID,
			message:    message,
			metadata: map[string]any{
				"initiativeId":         in.ID,
				"initiativeTitle":      in.Title,
				"ownerIds":             ownerIDs,
				"daysSinceLastCheckIn": days.value(),
				"lastCheckInAt":        timeValue(last),
				"warningThresholdDays": cfg.WarningThresholdDays,
			},
			title:          fmt.Sprintf("Check-in overdue: %s", in.Title),
			navigationPath: "/initiatives/" + in.ID,
			recipients:     recipients,
		})
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}

	r.logger.Info("initiative check-in rule evaluated",
		zap.String("rule_id", rule.ID),
		zap.Int("initiatives", len(initiatives)),
		zap.Int("already_active", len(existing)),
		zap.Int("created", created),
	)
	return created, nil
}
