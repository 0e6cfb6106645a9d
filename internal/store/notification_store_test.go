package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tolerance-rules/internal/model"
	"github.com/nhle/tolerance-rules/internal/store"
	"github.com/nhle/tolerance-rules/internal/testutil"
)

func TestNotifications(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	org := testutil.NewOrg(t, s, now)
	person := org.Person("Mia", testutil.WithLinkedUser())
	userID := org.UserOf(person)
	rule := org.Rule("span", model.RuleTypeManagerSpan, model.ManagerSpanConfig{MaxDirectReports: 5})

	ex := newException(rule, person)
	ex.ID = uuid.New().String()
	_, err := s.CreateExceptionIfAbsent(ctx, ex)
	require.NoError(t, err)

	first, err := s.CreateNotification(ctx, model.Notification{
		OrganizationID: org.ID,
		UserID:         userID,
		Title:          "Span of control exceeded",
		Message:        ex.Message,
		Type:           model.NotificationTypeWarning,
		Metadata:       map[string]any{"navigationPath": "/people/" + person},
		CreatedAt:      now,
	})
	require.NoError(t, err)
	second, err := s.CreateNotification(ctx, model.Notification{
		OrganizationID: org.ID,
		UserID:         userID,
		Title:          "Unlinked",
		CreatedAt:      now.Add(time.Minute),
	})
	require.NoError(t, err)

	require.NoError(t, s.LinkNotification(ctx, ex.ID, first))
	assert.Error(t, s.LinkNotification(ctx, ex.ID, first), "duplicate link")
	assert.Error(t, s.LinkNotification(ctx, "missing", second), "foreign key")

	linked, err := s.GetNotificationsForException(ctx, ex.ID)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, first, linked[0].ID)
	assert.Equal(t, "/people/"+person, linked[0].Metadata["navigationPath"])
	assert.Equal(t, model.NotificationTypeWarning, linked[0].Type)
	assert.False(t, linked[0].Read)

	unread, err := s.GetUnreadNotifications(ctx, userID)
	require.NoError(t, err)
	require.Len(t, unread, 2)
	assert.Equal(t, second, unread[0].ID, "newest first")
	assert.Equal(t, model.NotificationTypeInfo, unread[0].Type, "type defaults to info")

	require.NoError(t, s.MarkNotificationRead(ctx, second))
	unread, err = s.GetUnreadNotifications(ctx, userID)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, first, unread[0].ID)

	assert.ErrorIs(t, s.MarkNotificationRead(ctx, "missing"), store.ErrNotFound)
}
