package rules

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/tolerance-rules/internal/model"
)

// OneOnOneRule flags manager/report pairs whose last 1:1 is too old.
type OneOnOneRule struct {
	base
}

// NewOneOnOneRule returns the one_on_one_frequency rule.
func NewOneOnOneRule(deps Deps) *OneOnOneRule {
	return &OneOnOneRule{base: newBase(model.RuleTypeOneOnOneFrequency, deps)}
}

func (r *OneOnOneRule) Evaluate(ctx context.Context, rule model.ToleranceRule) (int, error) {
	cfg, err := configFor[model.OneOnOneConfig](rule)
	if err != nil {
		return 0, err
	}

	pairs, err := r.store.GetReportPairs(ctx, rule.OrganizationID, cfg.OnlyFullTimeEmployees)
	if err != nil {
		return 0, err
	}
	if len(pairs) == 0 {
		return 0, nil
	}

	lastMet, err := r.lastMeetings(ctx, pairs)
	if err != nil {
		return 0, err
	}

	keys := make([]string, len(pairs))
	for i, p := range pairs {
		keys[i] = p.Key().String()
	}
	existing, err := r.existingExceptions(ctx, rule, model.EntityTypeOneOnOne, keys)
	if err != nil {
		return 0, err
	}

	now := r.clock()
	created := 0
	for _, pair := range pairs {
		key := pair.Key()
		if _, ok := existing[key.String()]; ok {
			continue
		}

		last := later(lastMet[key], lastMet[key.Reversed()])
		days := since(now, last, day)

		var severity model.Severity
		switch {
		case days.exceeds(cfg.UrgentThresholdDays):
			severity = model.SeverityUrgent
		case days.exceeds(cfg.WarningThresholdDays):
			severity = model.SeverityWarning
		default:
			continue
		}

		ok, err := r.raise(ctx, rule, oneOnOneViolation(pair, severity, days, last, cfg))
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}

	r.logger.Info("one-on-one rule evaluated",
		zap.String("rule_id", rule.ID),
		zap.Int("pairs", len(pairs)),
		zap.Int("already_active", len(existing)),
		zap.Int("created", created),
	)
	return created, nil
}

// lastMeetings loads 1:1s for every pair in both directions and returns
// the latest scheduled time per direction. Unscheduled meetings are
// ignored.
func (r *OneOnOneRule) lastMeetings(
	ctx context.Context,
	pairs []model.ReportPair,
) (map[model.PairKey]*time.Time, error) {
	lastMet := make(map[model.PairKey]*time.Time)
	for _, batch := range chunk(pairs, batchSize) {
		keys := make([]model.PairKey, len(batch))
		for i, p := range batch {
			keys[i] = p.Key()
		}

		meetings, err := r.store.GetOneOnOnesForPairs(ctx, keys)
		if err != nil {
			return nil, err
		}
		for _, m := range meetings {
			if m.ScheduledAt == nil {
				continue
			}
			key := model.PairKey{ManagerID: m.ManagerID, ReportID: m.ReportID}
			if prev := lastMet[key]; prev == nil || m.ScheduledAt.After(*prev) {
				lastMet[key] = m.ScheduledAt
			}
		}
	}
	return lastMet, nil
}

func oneOnOneViolation(
	pair model.ReportPair,
	severity model.Severity,
	days elapsed,
	last *time.Time,
	cfg model.OneOnOneConfig,
) violation {
	message := fmt.Sprintf("%s has not had a 1:1 with %s in %d days",
		pair.ManagerName, pair.ReportName, days.n)
	title := fmt.Sprintf("Overdue 1:1 with %s", pair.ReportName)
	if days.never {
		message = fmt.Sprintf("%s has never had a one on one with %s",
			pair.ManagerName, pair.ReportName)
		title = fmt.Sprintf("No 1:1 with %s yet", pair.ReportName)
	}

	return violation{
		severity:   severity,
		entityType: model.EntityTypeOneOnOne,
		entityID:   pair.Key().String(),
		message:    message,
		metadata: map[string]any{
			"managerId":             pair.ManagerID,
			"managerName":           pair.ManagerName,
			"reportId":              pair.ReportID,
			"reportName":            pair.ReportName,
			"daysSinceLastOneOnOne": days.value(),
			"lastOneOnOneAt":        timeValue(last),
			"warningThresholdDays":  cfg.WarningThresholdDays,
			"urgentThresholdDays":   cfg.UrgentThresholdDays,
		},
		title:          title,
		navigationPath: "/people/" + pair.ReportID,
		recipients:     []string{deref(pair.ManagerUserID)},
	}
}

// later returns the later of two optional times.
func later(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.After(*a):
		return b
	default:
		return a
	}
}
