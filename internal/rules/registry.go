package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/nhle/tolerance-rules/internal/model"
)

// Rule evaluates one rule type against an organization.
type Rule interface {
	Type() model.RuleType
	// ValidateConfig checks a config payload without evaluating anything.
	ValidateConfig(raw json.RawMessage) error
	// Evaluate raises exceptions for rule and returns how many were newly
	// created. On error the count covers what was created before it.
	Evaluate(ctx context.Context, rule model.ToleranceRule) (int, error)
}

// Registry maps rule types to their implementations.
type Registry struct {
	mu    sync.RWMutex
	rules map[model.RuleType]Rule
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[model.RuleType]Rule)}
}

// DefaultRegistry returns a registry with every built-in rule.
func DefaultRegistry(deps Deps) *Registry {
	r := NewRegistry()
	for _, rule := range []Rule{
		NewOneOnOneRule(deps),
		NewInitiativeCheckInRule(deps),
		NewFeedback360Rule(deps),
		NewManagerSpanRule(deps),
	} {
		if err := r.Register(rule); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds rule. Registering a type twice is an error.
func (r *Registry) Register(rule Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rules[rule.Type()]; ok {
		return fmt.Errorf("rule type %q already registered", rule.Type())
	}
	r.rules[rule.Type()] = rule
	return nil
}

// Lookup returns the rule registered for ruleType.
func (r *Registry) Lookup(ruleType model.RuleType) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.rules[ruleType]
	return rule, ok
}

// Types returns the registered rule types in sorted order.
func (r *Registry) Types() []model.RuleType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]model.RuleType, 0, len(r.rules))
	for t := range r.rules {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Validate checks raw as a config for ruleType.
func (r *Registry) Validate(ruleType model.RuleType, raw json.RawMessage) error {
	rule, ok := r.Lookup(ruleType)
	if !ok {
		return fmt.Errorf("unknown rule type %q", ruleType)
	}
	return rule.ValidateConfig(raw)
}
