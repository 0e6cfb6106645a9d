package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/tolerance-rules/internal/model"
)

// maxTxAttempts bounds retries of the exception transaction after a
// serialization failure or lock timeout.
const maxTxAttempts = 4

const exceptionColumns = `id, rule_id, organization_id, severity, entity_type, entity_id,
	message, metadata, status, created_at`

// ExistingExceptions returns the subset of entityIDs that already have an
// active exception for (ruleID, organizationID, entityType).
func (s *SQLStore) ExistingExceptions(
	ctx context.Context,
	ruleID, organizationID, entityType string,
	entityIDs []string,
) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(entityIDs) == 0 {
		return existing, nil
	}

	query, args, err := sqlx.In(`
		SELECT entity_id FROM exceptions
		WHERE rule_id = ? AND organization_id = ? AND entity_type = ?
		  AND status = ? AND entity_id IN (?)`,
		ruleID, organizationID, entityType,
		string(model.ExceptionStatusActive), entityIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("building existing exceptions query: %w", err)
	}

	var ids []string
	if err := s.db.SelectContext(ctx, &ids, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying existing exceptions: %w", err)
	}
	for _, id := range ids {
		existing[id] = struct{}{}
	}
	return existing, nil
}

// CreateExceptionIfAbsent inserts ex inside a serializable transaction
// that first rechecks for an active exception on the same entity. It
// returns false without error when one already exists, including when a
// concurrent transaction wins the race and the insert hits the
// ux_exceptions_active index.
func (s *SQLStore) CreateExceptionIfAbsent(
	ctx context.Context,
	ex model.Exception,
) (bool, error) {
	if ex.ID == "" {
		ex.ID = uuid.New().String()
	}
	if ex.Status == "" {
		ex.Status = model.ExceptionStatusActive
	}
	ex.CreatedAt = s.timestamp(ex.CreatedAt)

	metadata, err := ex.MetadataJSON()
	if err != nil {
		return false, fmt.Errorf("marshaling exception metadata: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, time.Duration(attempt*attempt)*25*time.Millisecond); err != nil {
				return false, err
			}
		}

		created, err := s.createExceptionTx(ctx, ex, metadata)
		switch {
		case err == nil:
			return created, nil
		case s.dialect.isUniqueViolation(err):
			return false, nil
		case s.dialect.isRetryable(err):
			lastErr = err
			continue
		default:
			return false, err
		}
	}

	return false, fmt.Errorf("creating exception for %s %s after %d attempts: %w",
		ex.EntityType, ex.EntityID, maxTxAttempts, lastErr)
}

// createExceptionTx runs one attempt of the recheck-then-insert transaction.
func (s *SQLStore) createExceptionTx(
	ctx context.Context,
	ex model.Exception,
	metadata string,
) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, s.dialect.serializableTx())
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	err = tx.GetContext(ctx, &count, tx.Rebind(`
		SELECT COUNT(*) FROM exceptions
		WHERE rule_id = ? AND organization_id = ? AND entity_type = ?
		  AND entity_id = ? AND status = ?`),
		ex.RuleID, ex.OrganizationID, ex.EntityType, ex.EntityID,
		string(model.ExceptionStatusActive),
	)
	if err != nil {
		return false, fmt.Errorf("checking existing exception: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO exceptions (`+exceptionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		ex.ID, ex.RuleID, ex.OrganizationID, string(ex.Severity),
		ex.EntityType, ex.EntityID, ex.Message, metadata,
		string(ex.Status), ex.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("inserting exception: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing exception: %w", err)
	}
	return true, nil
}

// GetExceptions retrieves exceptions matching the filter, newest first.
func (s *SQLStore) GetExceptions(
	ctx context.Context,
	filter ExceptionFilter,
) ([]model.Exception, error) {
	var conditions []string
	var args []interface{}

	if filter.OrganizationID != nil {
		conditions = append(conditions, "organization_id = ?")
		args = append(args, *filter.OrganizationID)
	}
	if filter.RuleID != nil {
		conditions = append(conditions, "rule_id = ?")
		args = append(args, *filter.RuleID)
	}
	if filter.EntityType != nil {
		conditions = append(conditions, "entity_type = ?")
		args = append(args, *filter.EntityType)
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*filter.Status))
	}

	query := "SELECT " + exceptionColumns + " FROM exceptions"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying exceptions: %w", err)
	}
	defer rows.Close()

	var exceptions []model.Exception
	for rows.Next() {
		ex, err := scanException(rows)
		if err != nil {
			return nil, err
		}
		exceptions = append(exceptions, ex)
	}
	return exceptions, rows.Err()
}

// SetExceptionStatus moves an exception to status. Once an exception
// leaves the active state its entity may be flagged again.
func (s *SQLStore) SetExceptionStatus(
	ctx context.Context,
	id string,
	status model.ExceptionStatus,
) error {
	result, err := s.db.ExecContext(ctx,
		s.db.Rebind("UPDATE exceptions SET status = ? WHERE id = ?"),
		string(status), id,
	)
	if err != nil {
		if s.dialect.isUniqueViolation(err) {
			return fmt.Errorf("exception %s: another active exception exists for the entity", id)
		}
		return fmt.Errorf("updating exception %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("exception %s: %w", id, ErrNotFound)
	}
	return nil
}

// scanException scans an exceptions row selected with exceptionColumns.
func scanException(rows *sqlx.Rows) (model.Exception, error) {
	var (
		ex       model.Exception
		severity string
		status   string
		metadata string
	)

	err := rows.Scan(
		&ex.ID, &ex.RuleID, &ex.OrganizationID, &severity,
		&ex.EntityType, &ex.EntityID, &ex.Message, &metadata,
		&status, &ex.CreatedAt,
	)
	if err != nil {
		return model.Exception{}, fmt.Errorf("scanning exception row: %w", err)
	}

	ex.Severity = model.Severity(severity)
	ex.Status = model.ExceptionStatus(status)
	ex.Metadata, err = model.DecodeMetadata(metadata)
	if err != nil {
		return model.Exception{}, fmt.Errorf("unmarshaling exception metadata: %w", err)
	}
	return ex, nil
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
