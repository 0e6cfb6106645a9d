package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nhle/tolerance-rules/internal/model"
)

const ruleColumns = `id, organization_id, rule_type, is_enabled, name, config, created_at, updated_at`

// GetEnabledRules retrieves the enabled tolerance rules of an organization.
func (s *SQLStore) GetEnabledRules(
	ctx context.Context,
	organizationID string,
) ([]model.ToleranceRule, error) {
	return s.queryRules(ctx,
		"SELECT "+ruleColumns+" FROM tolerance_rules WHERE organization_id = ? AND is_enabled = 1 ORDER BY created_at, id",
		organizationID,
	)
}

// GetRules retrieves every tolerance rule of an organization.
func (s *SQLStore) GetRules(
	ctx context.Context,
	organizationID string,
) ([]model.ToleranceRule, error) {
	return s.queryRules(ctx,
		"SELECT "+ruleColumns+" FROM tolerance_rules WHERE organization_id = ? ORDER BY created_at, id",
		organizationID,
	)
}

// GetRuleByID retrieves a single rule by its ID.
func (s *SQLStore) GetRuleByID(
	ctx context.Context,
	id string,
) (*model.ToleranceRule, error) {
	row := s.db.QueryRowxContext(ctx,
		s.db.Rebind("SELECT "+ruleColumns+" FROM tolerance_rules WHERE id = ?"), id)

	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting rule %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting rule %s: %w", id, err)
	}
	return &rule, nil
}

// UpsertRule inserts or replaces a rule and returns its ID.
// If the rule has no ID, a new UUID is generated.
func (s *SQLStore) UpsertRule(
	ctx context.Context,
	rule model.ToleranceRule,
) (string, error) {
	if strings.TrimSpace(rule.Name) == "" {
		return "", fmt.Errorf("rule name must not be empty")
	}
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx, s.db.Rebind(upsertRuleSQL), ruleArgs(s, rule)...)
	if err != nil {
		return "", fmt.Errorf("upserting rule %s: %w", rule.ID, err)
	}
	return rule.ID, nil
}

// SetRuleEnabled toggles a rule on or off.
func (s *SQLStore) SetRuleEnabled(ctx context.Context, id string, enabled bool) error {
	result, err := s.db.ExecContext(ctx,
		s.db.Rebind("UPDATE tolerance_rules SET is_enabled = ?, updated_at = ? WHERE id = ?"),
		boolToInt(enabled), s.timestamp(s.now()), id,
	)
	if err != nil {
		return fmt.Errorf("updating rule %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("rule %s: %w", id, ErrNotFound)
	}
	return nil
}

const upsertRuleSQL = `
	INSERT INTO tolerance_rules (
		id, organization_id, rule_type, is_enabled, name, config, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		organization_id = excluded.organization_id,
		rule_type = excluded.rule_type,
		is_enabled = excluded.is_enabled,
		name = excluded.name,
		config = excluded.config,
		updated_at = excluded.updated_at`

// ruleArgs returns the positional arguments for upsertRuleSQL.
func ruleArgs(s *SQLStore, rule model.ToleranceRule) []interface{} {
	config := string(rule.Config)
	if strings.TrimSpace(config) == "" {
		config = "{}"
	}
	created := s.timestamp(rule.CreatedAt)
	updated := s.timestamp(rule.UpdatedAt)
	if rule.UpdatedAt.IsZero() {
		updated = created
	}
	return []interface{}{
		rule.ID, rule.OrganizationID, string(rule.RuleType),
		boolToInt(rule.IsEnabled), rule.Name, config, created, updated,
	}
}

func (s *SQLStore) queryRules(
	ctx context.Context,
	query string,
	args ...interface{},
) ([]model.ToleranceRule, error) {
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying rules: %w", err)
	}
	defer rows.Close()

	var rules []model.ToleranceRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// scanRule scans a tolerance_rules row selected with ruleColumns.
func scanRule(row interface{ Scan(dest ...interface{}) error }) (model.ToleranceRule, error) {
	var (
		rule     model.ToleranceRule
		ruleType string
		enabled  int
		config   string
	)

	err := row.Scan(
		&rule.ID, &rule.OrganizationID, &ruleType, &enabled,
		&rule.Name, &config, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return model.ToleranceRule{}, fmt.Errorf("scanning rule row: %w", err)
	}

	rule.RuleType = model.RuleType(ruleType)
	rule.IsEnabled = enabled != 0
	rule.Config = json.RawMessage(config)
	return rule, nil
}
