package rules

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nhle/tolerance-rules/internal/model"
)

// ManagerSpanRule flags managers with too many active direct reports. The
// manager is notified directly.
type ManagerSpanRule struct {
	base
}

// NewManagerSpanRule returns the manager_span rule.
func NewManagerSpanRule(deps Deps) *ManagerSpanRule {
	return &ManagerSpanRule{base: newBase(model.RuleTypeManagerSpan, deps)}
}

func (r *ManagerSpanRule) Evaluate(ctx context.Context, rule model.ToleranceRule) (int, error) {
	cfg, err := configFor[model.ManagerSpanConfig](rule)
	if err != nil {
		return 0, err
	}

	spans, err := r.store.GetManagerSpans(ctx, rule.OrganizationID)
	if err != nil {
		return 0, err
	}

	var over []model.ManagerSpan
	for _, s := range spans {
		if s.DirectReports > cfg.MaxDirectReports {
			over = append(over, s)
		}
	}
	if len(over) == 0 {
		return 0, nil
	}

	ids := make([]string, len(over))
	for i, s := range over {
		ids[i] = s.ManagerID
	}
	existing, err := r.existingExceptions(ctx, rule, model.EntityTypePerson, ids)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, s := range over {
		if _, ok := existing[s.ManagerID]; ok {
			continue
		}

		ok, err := r.raise(ctx, rule, violation{
			severity:   model.SeverityWarning,
			entityType: model.EntityTypePerson,
			entityID:   s.ManagerID,
			message: fmt.Sprintf("%s has %d direct reports, exceeding the maximum of %d",
				s.Name, s.DirectReports, cfg.MaxDirectReports),
			metadata: map[string]any{
				"managerId":        s.ManagerID,
				"managerName":      s.Name,
				"directReports":    s.DirectReports,
				"maxDirectReports": cfg.MaxDirectReports,
			},
			title:          "Span of control exceeded",
			navigationPath: "/people/" + s.ManagerID,
			recipients:     []string{deref(s.UserID)},
		})
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}

	r.logger.Info("manager span rule evaluated",
		zap.String("rule_id", rule.ID),
		zap.Int("managers_over_limit", len(over)),
		zap.Int("already_active", len(existing)),
		zap.Int("created", created),
	)
	return created, nil
}
