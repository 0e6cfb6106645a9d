package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/tolerance-rules/internal/model"
)

// ImportSnapshot upserts a batch of organization data in a single
// transaction. Rows are written parents first so foreign keys hold.
func (s *SQLStore) ImportSnapshot(ctx context.Context, snap model.Snapshot) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	err = upsertEach(ctx, tx, "users", `
		INSERT INTO users (id, email, name) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET email = excluded.email, name = excluded.name`,
		snap.Users, func(u model.User) []interface{} {
			return []interface{}{u.ID, u.Email, u.Name}
		})
	if err != nil {
		return err
	}

	err = upsertEach(ctx, tx, "people", `
		INSERT INTO people (
			id, organization_id, name, email, status, employee_type, manager_id, user_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			organization_id = excluded.organization_id,
			name = excluded.name,
			email = excluded.email,
			status = excluded.status,
			employee_type = excluded.employee_type,
			manager_id = excluded.manager_id,
			user_id = excluded.user_id`,
		snap.People, func(p model.Person) []interface{} {
			status := p.Status
			if status == "" {
				status = model.PersonStatusActive
			}
			employeeType := p.EmployeeType
			if employeeType == "" {
				employeeType = model.EmployeeTypeFullTime
			}
			return []interface{}{
				p.ID, p.OrganizationID, p.Name, p.Email,
				status, employeeType, p.ManagerID, p.UserID,
			}
		})
	if err != nil {
		return err
	}

	err = upsertEach(ctx, tx, "one_on_ones", `
		INSERT INTO one_on_ones (id, manager_id, report_id, scheduled_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			manager_id = excluded.manager_id,
			report_id = excluded.report_id,
			scheduled_at = excluded.scheduled_at`,
		snap.OneOnOnes, func(o model.OneOnOne) []interface{} {
			var scheduledAt interface{}
			if o.ScheduledAt != nil {
				scheduledAt = o.ScheduledAt.UTC()
			}
			return []interface{}{o.ID, o.ManagerID, o.ReportID, scheduledAt}
		})
	if err != nil {
		return err
	}

	err = upsertEach(ctx, tx, "initiatives", `
		INSERT INTO initiatives (id, organization_id, title, status) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			organization_id = excluded.organization_id,
			title = excluded.title,
			status = excluded.status`,
		snap.Initiatives, func(i model.Initiative) []interface{} {
			return []interface{}{i.ID, i.OrganizationID, i.Title, i.Status}
		})
	if err != nil {
		return err
	}

	err = upsertEach(ctx, tx, "initiative_owners", `
		INSERT INTO initiative_owners (initiative_id, person_id) VALUES (?, ?)
		ON CONFLICT (initiative_id, person_id) DO NOTHING`,
		snap.InitiativeOwners, func(o model.InitiativeOwner) []interface{} {
			return []interface{}{o.InitiativeID, o.PersonID}
		})
	if err != nil {
		return err
	}

	err = upsertEach(ctx, tx, "check_ins", `
		INSERT INTO check_ins (id, initiative_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			initiative_id = excluded.initiative_id,
			created_at = excluded.created_at`,
		snap.CheckIns, func(c model.CheckIn) []interface{} {
			return []interface{}{c.ID, c.InitiativeID, s.timestamp(c.CreatedAt)}
		})
	if err != nil {
		return err
	}

	err = upsertEach(ctx, tx, "feedback_campaigns", `
		INSERT INTO feedback_campaigns (id, target_person_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			target_person_id = excluded.target_person_id,
			created_at = excluded.created_at`,
		snap.FeedbackCampaigns, func(f model.FeedbackCampaign) []interface{} {
			return []interface{}{f.ID, f.TargetPersonID, s.timestamp(f.CreatedAt)}
		})
	if err != nil {
		return err
	}

	err = upsertEach(ctx, tx, "tolerance_rules", upsertRuleSQL,
		snap.Rules, func(r model.ToleranceRule) []interface{} {
			return ruleArgs(s, r)
		})
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

// upsertEach prepares query once and executes it for every item.
func upsertEach[T any](
	ctx context.Context,
	tx *sqlx.Tx,
	table string,
	query string,
	items []T,
	args func(T) []interface{},
) error {
	if len(items) == 0 {
		return nil
	}

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(query))
	if err != nil {
		return fmt.Errorf("preparing %s upsert: %w", table, err)
	}
	defer stmt.Close()

	for i, item := range items {
		if _, err := stmt.ExecContext(ctx, args(item)...); err != nil {
			return fmt.Errorf("upserting %s row %d: %w", table, i, err)
		}
	}
	return nil
}
