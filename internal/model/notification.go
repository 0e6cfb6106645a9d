package model

import "time"

// NotificationType controls how a notification is presented.
type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "info"
	NotificationTypeWarning NotificationType = "warning"
	NotificationTypeError   NotificationType = "error"
)

// NotificationTypeFor maps an exception severity onto the notification
// type shown to its recipients.
func NotificationTypeFor(s Severity) NotificationType {
	if s == SeverityUrgent {
		return NotificationTypeError
	}
	return NotificationTypeWarning
}

// Notification is a one-time alert addressed to a user about a newly
// raised exception.
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id"`

	// OrganizationID scopes the notification to its organization.
	OrganizationID string `json:"organization_id"`

	// UserID is the recipient's user account.
	UserID string `json:"user_id"`

	// Title is the short headline.
	Title string `json:"title"`

	// Message is the human-readable notification text.
	Message string `json:"message"`

	Type NotificationType `json:"type"`

	// Metadata holds exceptionId, entityType, entityId and the
	// navigationPath used for deep-linking.
	Metadata map[string]any `json:"metadata"`

	// Read indicates whether the user has seen this notification.
	Read bool `json:"read"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at"`
}

// MetadataJSON encodes Metadata for storage.
func (n Notification) MetadataJSON() (string, error) {
	return encodeMetadata(n.Metadata)
}
