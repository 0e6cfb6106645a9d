package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/tolerance-rules/internal/model"
)

const notificationColumns = `n.id, n.organization_id, n.user_id, n.title, n.message,
	n.type, n.metadata, n.read, n.created_at`

// CreateNotification inserts a new notification record and returns its ID.
func (s *SQLStore) CreateNotification(
	ctx context.Context,
	n model.Notification,
) (string, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Type == "" {
		n.Type = model.NotificationTypeInfo
	}

	metadata, err := n.MetadataJSON()
	if err != nil {
		return "", fmt.Errorf("marshaling notification metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO notifications (
			id, organization_id, user_id, title, message, type, metadata, read, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		n.ID, n.OrganizationID, n.UserID, n.Title, n.Message,
		string(n.Type), metadata, boolToInt(n.Read), s.timestamp(n.CreatedAt),
	)
	if err != nil {
		return "", fmt.Errorf("creating notification: %w", err)
	}

	return n.ID, nil
}

// LinkNotification records that notificationID was raised for exceptionID.
func (s *SQLStore) LinkNotification(
	ctx context.Context,
	exceptionID, notificationID string,
) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO exception_notifications (exception_id, notification_id)
		VALUES (?, ?)`),
		exceptionID, notificationID,
	)
	if err != nil {
		return fmt.Errorf("linking notification %s to exception %s: %w",
			notificationID, exceptionID, err)
	}
	return nil
}

// GetNotificationsForException retrieves the notifications linked to an
// exception, oldest first.
func (s *SQLStore) GetNotificationsForException(
	ctx context.Context,
	exceptionID string,
) ([]model.Notification, error) {
	return s.queryNotifications(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications n
		INNER JOIN exception_notifications en ON en.notification_id = n.id
		WHERE en.exception_id = ?
		ORDER BY n.created_at, n.id`, exceptionID)
}

// GetUnreadNotifications retrieves a user's unread notifications,
// ordered by creation time descending.
func (s *SQLStore) GetUnreadNotifications(
	ctx context.Context,
	userID string,
) ([]model.Notification, error) {
	return s.queryNotifications(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications n
		WHERE n.user_id = ? AND n.read = 0
		ORDER BY n.created_at DESC, n.id`, userID)
}

// MarkNotificationRead marks a single notification as read.
func (s *SQLStore) MarkNotificationRead(
	ctx context.Context,
	id string,
) error {
	result, err := s.db.ExecContext(ctx,
		s.db.Rebind("UPDATE notifications SET read = 1 WHERE id = ?"), id,
	)
	if err != nil {
		return fmt.Errorf("marking notification %s as read: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLStore) queryNotifications(
	ctx context.Context,
	query string,
	args ...interface{},
) ([]model.Notification, error) {
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// scanNotification scans a notification row from a sqlx.Rows result set.
func scanNotification(rows *sqlx.Rows) (model.Notification, error) {
	var (
		n        model.Notification
		nType    string
		metadata string
		readInt  int
	)

	err := rows.Scan(
		&n.ID, &n.OrganizationID, &n.UserID, &n.Title, &n.Message,
		&nType, &metadata, &readInt, &n.CreatedAt,
	)
	if err != nil {
		return model.Notification{}, fmt.Errorf("scanning notification row: %w", err)
	}

	n.Type = model.NotificationType(nType)
	n.Read = readInt != 0
	n.Metadata, err = model.DecodeMetadata(metadata)
	if err != nil {
		return model.Notification{}, fmt.Errorf("unmarshaling notification metadata: %w", err)
	}
	return n, nil
}
