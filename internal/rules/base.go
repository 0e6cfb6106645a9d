package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nhle/tolerance-rules/internal/model"
	"github.com/nhle/tolerance-rules/internal/store"
)

// batchSize bounds the number of ids or pairs sent in a single query.
const batchSize = 100

const (
	day   = 24 * time.Hour
	month = 30 * day
)

// Deps are the collaborators shared by every rule.
type Deps struct {
	Store  store.Store
	Logger *zap.Logger
	// Clock returns the evaluation time. Defaults to time.Now.
	Clock func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	return d
}

// base implements the steps every rule shares: bulk dedup, exactly-once
// creation and notification fan-out.
type base struct {
	ruleType model.RuleType
	store    store.Store
	logger   *zap.Logger
	clock    func() time.Time
}

func newBase(ruleType model.RuleType, d Deps) base {
	d = d.withDefaults()
	return base{
		ruleType: ruleType,
		store:    d.Store,
		logger:   d.Logger.With(zap.String("rule_type", string(ruleType))),
		clock:    d.Clock,
	}
}

func (b *base) Type() model.RuleType { return b.ruleType }

// existingExceptions returns the entity ids among ids that already carry
// an active exception for rule.
func (b *base) existingExceptions(
	ctx context.Context,
	rule model.ToleranceRule,
	entityType string,
	ids []string,
) (map[string]struct{}, error) {
	existing := make(map[string]struct{}, len(ids))
	for _, part := range chunk(ids, batchSize) {
		found, err := b.store.ExistingExceptions(ctx, rule.ID, rule.OrganizationID, entityType, part)
		if err != nil {
			return nil, err
		}
		for id := range found {
			existing[id] = struct{}{}
		}
	}
	return existing, nil
}

// violation is a candidate exception together with the notification sent
// when it is first raised.
type violation struct {
	severity   model.Severity
	entityType string
	entityID   string
	message    string
	metadata   map[string]any

	title          string
	navigationPath string
	// recipients are user ids; empty and repeated ids are skipped.
	recipients []string
}

// raise creates the exception for v unless an active one already exists,
// then notifies each recipient. It reports whether the exception was new.
func (b *base) raise(ctx context.Context, rule model.ToleranceRule, v violation) (bool, error) {
	ex := model.Exception{
		ID:             uuid.New().String(),
		RuleID:         rule.ID,
		OrganizationID: rule.OrganizationID,
		Severity:       v.severity,
		EntityType:     v.entityType,
		EntityID:       v.entityID,
		Message:        v.message,
		Metadata:       v.metadata,
		Status:         model.ExceptionStatusActive,
		CreatedAt:      b.clock(),
	}

	created, err := b.store.CreateExceptionIfAbsent(ctx, ex)
	if err != nil {
		return false, fmt.Errorf("creating exception for %s %s: %w", v.entityType, v.entityID, err)
	}
	if !created {
		exceptionDuplicatesTotal.WithLabelValues(string(b.ruleType)).Inc()
		b.logger.Debug("exception already active",
			zap.String("entity_type", v.entityType),
			zap.String("entity_id", v.entityID),
		)
		return false, nil
	}
	exceptionsCreatedTotal.WithLabelValues(string(b.ruleType)).Inc()
	b.logger.Debug("exception created",
		zap.String("exception_id", ex.ID),
		zap.String("entity_type", v.entityType),
		zap.String("entity_id", v.entityID),
		zap.String("severity", string(v.severity)),
	)

	seen := make(map[string]struct{}, len(v.recipients))
	for _, userID := range v.recipients {
		if userID == "" {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}

		if err := b.notify(ctx, rule, ex, v, userID); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (b *base) notify(
	ctx context.Context,
	rule model.ToleranceRule,
	ex model.Exception,
	v violation,
	userID string,
) error {
	notificationID, err := b.store.CreateNotification(ctx, model.Notification{
		OrganizationID: rule.OrganizationID,
		UserID:         userID,
		Title:          v.title,
		Message:        v.message,
		Type:           model.NotificationTypeFor(v.severity),
		Metadata: map[string]any{
			"exceptionId":    ex.ID,
			"ruleId":         rule.ID,
			"entityType":     v.entityType,
			"entityId":       v.entityID,
			"navigationPath": v.navigationPath,
		},
		CreatedAt: ex.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("notifying user %s of exception %s: %w", userID, ex.ID, err)
	}
	if err := b.store.LinkNotification(ctx, ex.ID, notificationID); err != nil {
		return err
	}
	notificationsCreatedTotal.WithLabelValues(string(b.ruleType)).Inc()
	return nil
}

// elapsed is a whole number of periods since an event, or never when the
// event has not happened. never exceeds every finite threshold.
type elapsed struct {
	n     int
	never bool
}

func since(now time.Time, last *time.Time, period time.Duration) elapsed {
	if last == nil {
		return elapsed{never: true}
	}
	return elapsed{n: int(math.Floor(float64(now.Sub(*last)) / float64(period)))}
}

func (e elapsed) exceeds(threshold int) bool {
	return e.never || e.n > threshold
}

// value is the elapsed count for metadata, nil when never.
func (e elapsed) value() any {
	if e.never {
		return nil
	}
	return e.n
}

func timeValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	parts := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		parts = append(parts, items[start:end])
	}
	return parts
}

// ValidateConfig checks raw against the rule type's config schema.
func (b *base) ValidateConfig(raw json.RawMessage) error {
	_, err := DecodeConfig(b.ruleType, raw)
	return err
}
