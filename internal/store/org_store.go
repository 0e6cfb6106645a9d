package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/tolerance-rules/internal/model"
)

// GetReportPairs returns every active manager/report pair of the
// organization, optionally restricted to full-time reports.
func (s *SQLStore) GetReportPairs(
	ctx context.Context,
	organizationID string,
	onlyFullTime bool,
) ([]model.ReportPair, error) {
	query := `
		SELECT m.id AS manager_id, m.name AS manager_name, m.user_id AS manager_user_id,
		       r.id AS report_id, r.name AS report_name
		FROM people r
		INNER JOIN people m ON r.manager_id = m.id
		WHERE r.organization_id = ? AND r.status = ? AND m.status = ?`
	args := []interface{}{organizationID, model.PersonStatusActive, model.PersonStatusActive}

	if onlyFullTime {
		query += " AND r.employee_type = ?"
		args = append(args, model.EmployeeTypeFullTime)
	}
	query += " ORDER BY m.id, r.id"

	var pairs []model.ReportPair
	if err := s.db.SelectContext(ctx, &pairs, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying report pairs: %w", err)
	}
	return pairs, nil
}

// GetOneOnOnesForPairs returns the one-on-ones recorded for the given pairs
// in either direction, so a meeting stored with manager and report swapped
// still matches. Callers bound len(pairs) to keep the query size in check.
func (s *SQLStore) GetOneOnOnesForPairs(
	ctx context.Context,
	pairs []model.PairKey,
) ([]model.OneOnOne, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	conditions := make([]string, 0, len(pairs)*2)
	args := make([]interface{}, 0, len(pairs)*4)
	for _, p := range pairs {
		conditions = append(conditions,
			"(manager_id = ? AND report_id = ?)",
			"(manager_id = ? AND report_id = ?)",
		)
		args = append(args, p.ManagerID, p.ReportID, p.ReportID, p.ManagerID)
	}

	query := "SELECT id, manager_id, report_id, scheduled_at FROM one_on_ones WHERE " +
		strings.Join(conditions, " OR ")

	var meetings []model.OneOnOne
	if err := s.db.SelectContext(ctx, &meetings, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying one-on-ones for %d pairs: %w", len(pairs), err)
	}
	return meetings, nil
}

// GetInitiatives returns the organization's initiatives whose status is
// one of statuses.
func (s *SQLStore) GetInitiatives(
	ctx context.Context,
	organizationID string,
	statuses []string,
) ([]model.Initiative, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, organization_id, title, status
		FROM initiatives
		WHERE organization_id = ? AND status IN (?)
		ORDER BY id`, organizationID, statuses)
	if err != nil {
		return nil, fmt.Errorf("building initiatives query: %w", err)
	}

	var initiatives []model.Initiative
	if err := s.db.SelectContext(ctx, &initiatives, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying initiatives: %w", err)
	}
	return initiatives, nil
}

// GetCheckIns returns the check-ins of the given initiatives, newest first.
func (s *SQLStore) GetCheckIns(
	ctx context.Context,
	initiativeIDs []string,
) ([]model.CheckIn, error) {
	if len(initiativeIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, initiative_id, created_at
		FROM check_ins
		WHERE initiative_id IN (?)
		ORDER BY created_at DESC`, initiativeIDs)
	if err != nil {
		return nil, fmt.Errorf("building check-ins query: %w", err)
	}

	var checkIns []model.CheckIn
	if err := s.db.SelectContext(ctx, &checkIns, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying check-ins: %w", err)
	}
	return checkIns, nil
}

// GetInitiativeOwners returns the owners of the given initiatives together
// with their linked user, if any.
func (s *SQLStore) GetInitiativeOwners(
	ctx context.Context,
	initiativeIDs []string,
) ([]model.Owner, error) {
	if len(initiativeIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT o.initiative_id, o.person_id, COALESCE(p.name, '') AS name, p.user_id
		FROM initiative_owners o
		LEFT JOIN people p ON p.id = o.person_id
		WHERE o.initiative_id IN (?)
		ORDER BY o.initiative_id, o.person_id`, initiativeIDs)
	if err != nil {
		return nil, fmt.Errorf("building initiative owners query: %w", err)
	}

	var owners []model.Owner
	if err := s.db.SelectContext(ctx, &owners, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying initiative owners: %w", err)
	}
	return owners, nil
}

// GetActivePeople returns the organization's active people with their
// manager's name and linked user.
func (s *SQLStore) GetActivePeople(
	ctx context.Context,
	organizationID string,
) ([]model.ActivePerson, error) {
	query := `
		SELECT p.id, p.name, p.manager_id, m.name AS manager_name, m.user_id AS manager_user_id
		FROM people p
		LEFT JOIN people m ON p.manager_id = m.id
		WHERE p.organization_id = ? AND p.status = ?
		ORDER BY p.id`

	var people []model.ActivePerson
	err := s.db.SelectContext(ctx, &people, s.db.Rebind(query),
		organizationID, model.PersonStatusActive)
	if err != nil {
		return nil, fmt.Errorf("querying active people: %w", err)
	}
	return people, nil
}

// GetFeedbackCampaigns returns the feedback campaigns targeting the given
// people, newest first.
func (s *SQLStore) GetFeedbackCampaigns(
	ctx context.Context,
	personIDs []string,
) ([]model.FeedbackCampaign, error) {
	if len(personIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, target_person_id, created_at
		FROM feedback_campaigns
		WHERE target_person_id IN (?)
		ORDER BY created_at DESC`, personIDs)
	if err != nil {
		return nil, fmt.Errorf("building feedback campaigns query: %w", err)
	}

	var campaigns []model.FeedbackCampaign
	if err := s.db.SelectContext(ctx, &campaigns, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying feedback campaigns: %w", err)
	}
	return campaigns, nil
}

// GetManagerSpans returns every active person with at least one active
// direct report, annotated with the number of active direct reports.
func (s *SQLStore) GetManagerSpans(
	ctx context.Context,
	organizationID string,
) ([]model.ManagerSpan, error) {
	query := `
		SELECT m.id AS manager_id, m.name, m.user_id, COUNT(r.id) AS direct_reports
		FROM people m
		INNER JOIN people r ON r.manager_id = m.id AND r.status = ?
		WHERE m.organization_id = ? AND m.status = ?
		GROUP BY m.id, m.name, m.user_id
		ORDER BY m.id`

	var spans []model.ManagerSpan
	err := s.db.SelectContext(ctx, &spans, s.db.Rebind(query),
		model.PersonStatusActive, organizationID, model.PersonStatusActive)
	if err != nil {
		return nil, fmt.Errorf("querying manager spans: %w", err)
	}
	return spans, nil
}
