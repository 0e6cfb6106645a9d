package rules

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/tolerance-rules/internal/model"
	"github.com/nhle/tolerance-rules/internal/store"
)

// Result summarizes one evaluation of an organization's rules.
type Result struct {
	ExceptionsCreated int      `json:"exceptionsCreated"`
	Errors            []string `json:"errors"`
}

// Evaluator runs every enabled rule of an organization in sequence. A
// failing rule is recorded in Result.Errors and does not stop the others.
type Evaluator struct {
	store    store.Store
	registry *Registry
	logger   *zap.Logger
}

// NewEvaluator creates an Evaluator. A nil logger disables logging.
func NewEvaluator(s store.Store, registry *Registry, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		store:    s,
		registry: registry,
		logger:   logger,
	}
}

// EvaluateAllRules evaluates the enabled rules of organizationID. The
// returned error is non-nil only when the rules themselves cannot be
// loaded.
func (e *Evaluator) EvaluateAllRules(ctx context.Context, organizationID string) (Result, error) {
	start := time.Now()
	result := Result{Errors: []string{}}

	enabled, err := e.store.GetEnabledRules(ctx, organizationID)
	if err != nil {
		return result, fmt.Errorf("loading rules for organization %s: %w", organizationID, err)
	}

	for _, rule := range enabled {
		created, err := e.evaluateRule(ctx, rule)
		result.ExceptionsCreated += created
		if err != nil {
			ruleErrorsTotal.WithLabelValues(string(rule.RuleType)).Inc()
			result.Errors = append(result.Errors,
				fmt.Sprintf("rule %s (%s): %v", rule.ID, rule.Name, err))
			e.logger.Warn("rule evaluation failed",
				zap.String("organization_id", organizationID),
				zap.String("rule_id", rule.ID),
				zap.String("rule_name", rule.Name),
				zap.String("rule_type", string(rule.RuleType)),
				zap.Error(err),
			)
		}
	}

	e.logger.Info("rules evaluated",
		zap.String("organization_id", organizationID),
		zap.Int("rules", len(enabled)),
		zap.Int("exceptions_created", result.ExceptionsCreated),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// evaluateRule dispatches rule to its implementation. A panic inside the
// rule is returned as an error.
func (e *Evaluator) evaluateRule(ctx context.Context, rule model.ToleranceRule) (created int, err error) {
	impl, ok := e.registry.Lookup(rule.RuleType)
	if !ok {
		return 0, fmt.Errorf("unknown rule type %q", rule.RuleType)
	}

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
		ruleEvaluationDuration.WithLabelValues(string(rule.RuleType)).
			Observe(time.Since(start).Seconds())
	}()

	return impl.Evaluate(ctx, rule)
}
