package rules

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/tolerance-rules/internal/model"
)

// Feedback360Rule flags active people without a recent 360-feedback
// campaign. Months are 30 days long.
type Feedback360Rule struct {
	base
}

// NewFeedback360Rule returns the feedback_360 rule.
func NewFeedback360Rule(deps Deps) *Feedback360Rule {
	return &Feedback360Rule{base: newBase(model.RuleTypeFeedback360, deps)}
}

func (r *Feedback360Rule) Evaluate(ctx context.Context, rule model.ToleranceRule) (int, error) {
	cfg, err := configFor[model.Feedback360Config](rule)
	if err != nil {
		return 0, err
	}

	people, err := r.store.GetActivePeople(ctx, rule.OrganizationID)
	if err != nil {
		return 0, err
	}
	if len(people) == 0 {
		return 0, nil
	}

	ids := make([]string, len(people))
	for i, p := range people {
		ids[i] = p.ID
	}

	existing, err := r.existingExceptions(ctx, rule, model.EntityTypePerson, ids)
	if err != nil {
		return 0, err
	}

	pending := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := existing[id]; !ok {
			pending = append(pending, id)
		}
	}

	lastCampaign := make(map[string]*time.Time, len(pending))
	for _, batch := range chunk(pending, batchSize) {
		campaigns, err := r.store.GetFeedbackCampaigns(ctx, batch)
		if err != nil {
			return 0, err
		}
		for _, c := range campaigns {
			if _, ok := lastCampaign[c.TargetPersonID]; !ok {
				at := c.CreatedAt
				lastCampaign[c.TargetPersonID] = &at
			}
		}
	}

	now := r.clock()
	created := 0
	for _, p := range people {
		if _, ok := existing[p.ID]; ok {
			continue
		}

		last := lastCampaign[p.ID]
		months := since(now, last, month)
		if !months.exceeds(cfg.WarningThresholdMonths) {
			continue
		}

		message := fmt.Sprintf("%s has not had a 360 feedback campaign in %d months", p.Name, months.n)
		if months.never {
			message = fmt.Sprintf("%s has never had a 360 feedback campaign", p.Name)
		}

		ok, err := r.raise(ctx, rule, violation{
			severity:   model.SeverityWarning,
			entityType: model.EntityTypePerson,
			entityID:   p.ID,
			message:    message,
			metadata: map[string]any{
				"personId":                p.ID,
				"personName":              p.Name,
				"managerId":               p.ManagerID,
				"monthsSinceLastCampaign": months.value(),
				"lastCampaignAt":          timeValue(last),
				"warningThresholdMonths":  cfg.WarningThresholdMonths,
			},
			title:          fmt.Sprintf("360 feedback due for %s", p.Name),
			navigationPath: "/people/" + p.ID,
			recipients:     []string{deref(p.ManagerUserID)},
		})
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}

	r.logger.Info("feedback 360 rule evaluated",
		zap.String("rule_id", rule.ID),
		zap.Int("people", len(people)),
		zap.Int("already_active", len(existing)),
		zap.Int("created", created),
	)
	return created, nil
}
