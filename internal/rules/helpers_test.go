package rules

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nhle/tolerance-rules/internal/model"
	"github.com/nhle/tolerance-rules/internal/store"
	"github.com/nhle/tolerance-rules/internal/testutil"
)

var testNow = time.Date(2026, time.March, 16, 9, 30, 0, 0, time.UTC)

// newTestEnv returns a fresh store, an organization builder and rule deps
// that share a fixed clock.
func newTestEnv(t *testing.T) (*store.SQLStore, *testutil.Org, Deps) {
	t.Helper()
	s := testutil.NewTestStore(t)
	clock := func() time.Time { return testNow }
	s.SetClock(clock)
	deps := Deps{
		Store:  s,
		Logger: zaptest.NewLogger(t),
		Clock:  clock,
	}
	return s, testutil.NewOrg(t, s, testNow), deps
}

func activeExceptions(t *testing.T, s store.Store, ruleID string) []model.Exception {
	t.Helper()
	status := model.ExceptionStatusActive
	exceptions, err := s.GetExceptions(context.Background(), store.ExceptionFilter{
		RuleID: &ruleID,
		Status: &status,
	})
	require.NoError(t, err)
	return exceptions
}

// exceptionFor returns the single active exception of ruleID on entityID.
func exceptionFor(t *testing.T, s store.Store, ruleID, entityID string) model.Exception {
	t.Helper()
	var found []model.Exception
	for _, ex := range activeExceptions(t, s, ruleID) {
		if ex.EntityID == entityID {
			found = append(found, ex)
		}
	}
	require.Len(t, found, 1, "active exceptions for %s", entityID)
	return found[0]
}

func notificationsFor(t *testing.T, s store.Store, exceptionID string) []model.Notification {
	t.Helper()
	notifications, err := s.GetNotificationsForException(context.Background(), exceptionID)
	require.NoError(t, err)
	return notifications
}

func pairID(managerID, reportID string) string {
	return model.PairKey{ManagerID: managerID, ReportID: reportID}.String()
}
