package rules

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nhle/tolerance-rules/internal/model"
	"github.com/nhle/tolerance-rules/internal/store"
	"github.com/nhle/tolerance-rules/internal/testutil"
)

// stubRule returns canned results.
type stubRule struct {
	ruleType model.RuleType
	created  int
	err      error
	panicMsg string
	calls    int
}

func (r *stubRule) Type() model.RuleType                  { return r.ruleType }
func (r *stubRule) ValidateConfig(json.RawMessage) error { return nil }
func (r *stubRule) Evaluate(context.Context, model.ToleranceRule) (int, error) {
	r.calls++
	if r.panicMsg != "" {
		panic(r.panicMsg)
	}
	return r.created, r.err
}

// failingStore fails to load rules.
type failingStore struct {
	store.Store
}

func (failingStore) GetEnabledRules(context.Context, string) ([]model.ToleranceRule, error) {
	return nil, errors.New("connection refused")
}

func TestEvaluateAllRules(t *testing.T) {
	s, org, deps := newTestEnv(t)
	ctx := context.Background()

	manager := org.Person("Mia", testutil.WithLinkedUser())
	org.Person("Ada", testutil.ManagedBy(manager))
	org.Person("Ben", testutil.ManagedBy(manager))
	org.Initiative("Launch", model.InitiativeStatusInProgress, manager)

	org.Rule("1:1 cadence", model.RuleTypeOneOnOneFrequency, oneOnOneConfig)
	org.Rule("check-ins", model.RuleTypeInitiativeCheckIn, model.InitiativeCheckInConfig{WarningThresholdDays: 14})
	org.Rule("span", model.RuleTypeManagerSpan, model.ManagerSpanConfig{MaxDirectReports: 1})

	disabled := org.Rule("360s", model.RuleTypeFeedback360, model.Feedback360Config{WarningThresholdMonths: 6})
	require.NoError(t, s.SetRuleEnabled(ctx, disabled.ID, false))

	eval := NewEvaluator(s, DefaultRegistry(deps), zaptest.NewLogger(t))

	result, err := eval.EvaluateAllRules(ctx, org.ID)
	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	// Two pairs, one initiative and one manager.
	assert.Equal(t, 4, result.ExceptionsCreated)
	assert.Empty(t, activeExceptions(t, s, disabled.ID))

	result, err = eval.EvaluateAllRules(ctx, org.ID)
	require.NoError(t, err)
	assert.Zero(t, result.ExceptionsCreated)
	assert.Empty(t, result.Errors)
}

func TestEvaluateAllRules_IsolatesFailures(t *testing.T) {
	s, org, deps := newTestEnv(t)
	ctx := context.Background()

	manager := org.Person("Mia")
	org.Person("Ada", testutil.ManagedBy(manager))

	broken := org.RawRule("broken", model.RuleTypeOneOnOneFrequency, `{"warningThresholdDays": 7}`)
	org.Rule("span", model.RuleTypeManagerSpan, model.ManagerSpanConfig{MaxDirectReports: 3})
	org.Rule("360s", model.RuleTypeFeedback360, model.Feedback360Config{WarningThresholdMonths: 6})

	eval := NewEvaluator(s, DefaultRegistry(deps), zaptest.NewLogger(t))
	result, err := eval.EvaluateAllRules(ctx, org.ID)
	require.NoError(t, err)

	// Mia and Ada have never had a campaign.
	assert.Equal(t, 2, result.ExceptionsCreated)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "rule "+broken.ID+" (broken): ")
	assert.Contains(t, result.Errors[0], "urgentThresholdDays is required")
	assert.Empty(t, activeExceptions(t, s, broken.ID))
}

func TestEvaluateAllRules_UnknownType(t *testing.T) {
	s, org, deps := newTestEnv(t)

	unknown := org.RawRule("legacy", model.RuleType("max_reports"), `{"maxReports": 5}`)

	eval := NewEvaluator(s, DefaultRegistry(deps), zaptest.NewLogger(t))
	result, err := eval.EvaluateAllRules(context.Background(), org.ID)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, `rule `+unknown.ID+` (legacy): unknown rule type "max_reports"`, result.Errors[0])
}

func TestEvaluateAllRules_RecoversPanics(t *testing.T) {
	s, org, _ := newTestEnv(t)

	panicking := &stubRule{ruleType: model.RuleTypeManagerSpan, panicMsg: "boom"}
	healthy := &stubRule{ruleType: model.RuleTypeFeedback360, created: 3}
	failing := &stubRule{ruleType: model.RuleTypeInitiativeCheckIn, created: 1, err: errors.New("db gone")}
	registry := NewRegistry()
	require.NoError(t, registry.Register(panicking))
	require.NoError(t, registry.Register(healthy))
	require.NoError(t, registry.Register(failing))

	org.Rule("span", model.RuleTypeManagerSpan, model.ManagerSpanConfig{MaxDirectReports: 3})
	org.Rule("360s", model.RuleTypeFeedback360, model.Feedback360Config{WarningThresholdMonths: 6})
	org.Rule("check-ins", model.RuleTypeInitiativeCheckIn, model.InitiativeCheckInConfig{WarningThresholdDays: 7})

	result, err := NewEvaluator(s, registry, zaptest.NewLogger(t)).
		EvaluateAllRules(context.Background(), org.ID)
	require.NoError(t, err)

	// Partial counts from a failing rule are kept.
	assert.Equal(t, 4, result.ExceptionsCreated)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, 1, panicking.calls)
	assert.Equal(t, 1, healthy.calls)
	assert.Equal(t, 1, failing.calls)

	joined := result.Errors[0] + "\n" + result.Errors[1]
	assert.Contains(t, joined, "panic: boom")
	assert.Contains(t, joined, "db gone")
}

func TestEvaluateAllRules_NoRules(t *testing.T) {
	s, org, deps := newTestEnv(t)

	result, err := NewEvaluator(s, DefaultRegistry(deps), nil).EvaluateAllRules(context.Background(), org.ID)
	require.NoError(t, err)
	assert.Zero(t, result.ExceptionsCreated)
	assert.NotNil(t, result.Errors)
	assert.Empty(t, result.Errors)
}

func TestEvaluateAllRules_LoadFailure(t *testing.T) {
	eval := NewEvaluator(failingStore{}, NewRegistry(), zaptest.NewLogger(t))

	_, err := eval.EvaluateAllRules(context.Background(), "org-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRegistry(t *testing.T) {
	registry := DefaultRegistry(Deps{Store: failingStore{}})
	assert.Equal(t, []model.RuleType{
		model.RuleTypeFeedback360,
		model.RuleTypeInitiativeCheckIn,
		model.RuleTypeManagerSpan,
		model.RuleTypeOneOnOneFrequency,
	}, registry.Types())

	for _, ruleType := range model.RuleTypes {
		rule, ok := registry.Lookup(ruleType)
		require.True(t, ok, "rule type %s", ruleType)
		assert.Equal(t, ruleType, rule.Type())
	}

	_, ok := registry.Lookup("max_reports")
	assert.False(t, ok)

	err := registry.Register(&stubRule{ruleType: model.RuleTypeManagerSpan})
	assert.ErrorContains(t, err, "already registered")

	assert.NoError(t, registry.Validate(model.RuleTypeManagerSpan, json.RawMessage(`{"maxDirectReports": 8}`)))
	assert.True(t, IsConfigError(registry.Validate(model.RuleTypeManagerSpan, json.RawMessage(`{}`))))
	assert.ErrorContains(t, registry.Validate("max_reports", nil), "unknown rule type")
}
