package rules

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tolerance-rules/internal/model"
	"github.com/nhle/tolerance-rules/internal/testutil"
)

var oneOnOneConfig = model.OneOnOneConfig{WarningThresholdDays: 7, UrgentThresholdDays: 14}

func TestOneOnOneRule_Thresholds(t *testing.T) {
	s, org, deps := newTestEnv(t)
	ctx := context.Background()

	manager := org.Person("Mia", testutil.WithLinkedUser())
	onTime := org.Person("Ada", testutil.ManagedBy(manager))
	atWarning := org.Person("Ben", testutil.ManagedBy(manager))
	pastWarning := org.Person("Cal", testutil.ManagedBy(manager))
	atUrgent := org.Person("Dee", testutil.ManagedBy(manager))
	pastUrgent := org.Person("Eve", testutil.ManagedBy(manager))
	never := org.Person("Fay", testutil.ManagedBy(manager))

	org.OneOnOne(manager, onTime, 3)
	org.OneOnOne(manager, atWarning, 7)
	org.OneOnOne(manager, pastWarning, 8)
	org.OneOnOne(manager, atUrgent, 14)
	org.OneOnOne(manager, pastUrgent, 15)

	rule := org.Rule("1:1 cadence", model.RuleTypeOneOnOneFrequency, oneOnOneConfig)

	created, err := NewOneOnOneRule(deps).Evaluate(ctx, rule)
	require.NoError(t, err)
	assert.Equal(t, 4, created)

	exceptions := activeExceptions(t, s, rule.ID)
	require.Len(t, exceptions, 4)

	severities := make(map[string]model.Severity)
	for _, ex := range exceptions {
		assert.Equal(t, model.EntityTypeOneOnOne, ex.EntityType)
		assert.Equal(t, org.ID, ex.OrganizationID)
		severities[ex.EntityID] = ex.Severity
	}
	assert.Equal(t, map[string]model.Severity{
		pairID(manager, pastWarning): model.SeverityWarning,
		pairID(manager, atUrgent):    model.SeverityWarning,
		pairID(manager, pastUrgent):  model.SeverityUrgent,
		pairID(manager, never):       model.SeverityUrgent,
	}, severities)
}

func TestOneOnOneRule_Messages(t *testing.T) {
	s, org, deps := newTestEnv(t)
	ctx := context.Background()

	manager := org.Person("Mia", testutil.WithLinkedUser())
	late := org.Person("Ada", testutil.ManagedBy(manager))
	never := org.Person("Ben", testutil.ManagedBy(manager))
	org.OneOnOne(manager, late, 10)

	rule := org.Rule("1:1 cadence", model.RuleTypeOneOnOneFrequency, oneOnOneConfig)
	_, err := NewOneOnOneRule(deps).Evaluate(ctx, rule)
	require.NoError(t, err)

	lateEx := exceptionFor(t, s, rule.ID, pairID(manager, late))
	assert.Equal(t, "Mia has not had a 1:1 with Ada in 10 days", lateEx.Message)
	assert.EqualValues(t, 10, lateEx.Metadata["daysSinceLastOneOnOne"])
	assert.Equal(t, manager, lateEx.Metadata["managerId"])
	assert.Equal(t, late, lateEx.Metadata["reportId"])

	neverEx := exceptionFor(t, s, rule.ID, pairID(manager, never))
	assert.Equal(t, "Mia has never had a one on one with Ben", neverEx.Message)
	assert.Nil(t, neverEx.Metadata["daysSinceLastOneOnOne"])
	assert.Nil(t, neverEx.Metadata["lastOneOnOneAt"])
}

func TestOneOnOneRule_MatchesReversedMeetings(t *testing.T) {
	s, org, deps := newTestEnv(t)
	ctx := context.Background()

	manager := org.Person("Mia", testutil.WithLinkedUser())
	reversedOnly := org.Person("Ada", testutil.ManagedBy(manager))
	both := org.Person("Ben", testutil.ManagedBy(manager))

	// Recorded with the roles swapped relative to the hierarchy.
	org.OneOnOne(reversedOnly, manager, 2)

	// The later of the two directions wins.
	org.OneOnOne(manager, both, 30)
	org.OneOnOne(both, manager, 9)

	rule := org.Rule("1:1 cadence", model.RuleTypeOneOnOneFrequency, oneOnOneConfig)
	created, err := NewOneOnOneRule(deps).Evaluate(ctx, rule)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	ex := exceptionFor(t, s, rule.ID, pairID(manager, both))
	assert.Equal(t, model.SeverityWarning, ex.Severity)
	assert.EqualValues(t, 9, ex.Metadata["daysSinceLastOneOnOne"])
}

func TestOneOnOneRule_IgnoresUnscheduledMeetings(t *testing.T) {
	s, org, deps := newTestEnv(t)

	manager := org.Person("Mia")
	report := org.Person("Ada", testutil.ManagedBy(manager))
	org.UnscheduledOneOnOne(manager, report)

	rule := org.Rule("1:1 cadence", model.RuleTypeOneOnOneFrequency, oneOnOneConfig)
	_, err := NewOneOnOneRule(deps).Evaluate(context.Background(), rule)
	require.NoError(t, err)

	ex := exceptionFor(t, s, rule.ID, pairID(manager, report))
	assert.Equal(t, model.SeverityUrgent, ex.Severity)
}

func TestOneOnOneRule_CandidateFilters(t *testing.T) {
	s, org, deps := newTestEnv(t)
	ctx := context.Background()

	manager := org.Person("Mia")
	fullTime := org.Person("Ada", testutil.ManagedBy(manager))
	partTime := org.Person("Ben", testutil.ManagedBy(manager),
		testutil.WithEmployeeType(model.EmployeeTypePartTime))
	org.Person("Cal", testutil.ManagedBy(manager), testutil.Inactive())

	inactiveManager := org.Person("Nia", testutil.Inactive())
	org.Person("Dee", testutil.ManagedBy(inactiveManager))

	allRule := org.Rule("everyone", model.RuleTypeOneOnOneFrequency, oneOnOneConfig)
	_, err := NewOneOnOneRule(deps).Evaluate(ctx, allRule)
	require.NoError(t, err)

	var ids []string
	for _, ex := range activeExceptions(t, s, allRule.ID) {
		ids = append(ids, ex.EntityID)
	}
	assert.ElementsMatch(t, []string{pairID(manager, fullTime), pairID(manager, partTime)}, ids)

	cfg := oneOnOneConfig
	cfg.OnlyFullTimeEmployees = true
	fullTimeRule := org.Rule("full-time only", model.RuleTypeOneOnOneFrequency, cfg)
	created, err := NewOneOnOneRule(deps).Evaluate(ctx, fullTimeRule)
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	exceptionFor(t, s, fullTimeRule.ID, pairID(manager, fullTime))
}

func TestOneOnOneRule_NotifiesManager(t *testing.T) {
	s, org, deps := newTestEnv(t)
	ctx := context.Background()

	linked := org.Person("Mia", testutil.WithLinkedUser())
	linkedReport := org.Person("Ada", testutil.ManagedBy(linked))
	unlinked := org.Person("Nia")
	unlinkedReport := org.Person("Ben", testutil.ManagedBy(unlinked))
	org.OneOnOne(linked, linkedReport, 9)

	rule := org.Rule("1:1 cadence", model.RuleTypeOneOnOneFrequency, oneOnOneConfig)
	created, err := NewOneOnOneRule(deps).Evaluate(ctx, rule)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	ex := exceptionFor(t, s, rule.ID, pairID(linked, linkedReport))
	notifications := notificationsFor(t, s, ex.ID)
	require.Len(t, notifications, 1)
	n := notifications[0]
	assert.Equal(t, org.UserOf(linked), n.UserID)
	assert.Equal(t, org.ID, n.OrganizationID)
	assert.Equal(t, model.NotificationTypeWarning, n.Type)
	assert.Equal(t, ex.Message, n.Message)
	assert.Equal(t, ex.ID, n.Metadata["exceptionId"])
	assert.Equal(t, model.EntityTypeOneOnOne, n.Metadata["entityType"])
	assert.Equal(t, ex.EntityID, n.Metadata["entityId"])
	assert.Equal(t, "/people/"+linkedReport, n.Metadata["navigationPath"])

	// Without a linked user the exception stands alone.
	orphan := exceptionFor(t, s, rule.ID, pairID(unlinked, unlinkedReport))
	assert.Empty(t, notificationsFor(t, s, orphan.ID))
}

func TestOneOnOneRule_Idempotent(t *testing.T) {
	s, org, deps := newTestEnv(t)
	ctx := context.Background()

	manager := org.Person("Mia", testutil.WithLinkedUser())
	report := org.Person("Ada", testutil.ManagedBy(manager))

	rule := org.Rule("1:1 cadence", model.RuleTypeOneOnOneFrequency, oneOnOneConfig)
	r := NewOneOnOneRule(deps)

	created, err := r.Evaluate(ctx, rule)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	created, err = r.Evaluate(ctx, rule)
	require.NoError(t, err)
	assert.Zero(t, created)

	ex := exceptionFor(t, s, rule.ID, pairID(manager, report))
	assert.Len(t, notificationsFor(t, s, ex.ID), 1)

	unread, err := s.GetUnreadNotifications(ctx, org.UserOf(manager))
	require.NoError(t, err)
	assert.Len(t, unread, 1)
}

func TestOneOnOneRule_ConcurrentRunsCreateOnce(t *testing.T) {
	s, org, deps := newTestEnv(t)
	ctx := context.Background()

	manager := org.Person("Mia", testutil.WithLinkedUser())
	for i := 0; i < 5; i++ {
		org.Person(fmt.Sprintf("Report %d", i), testutil.ManagedBy(manager))
	}
	rule := org.Rule("1:1 cadence", model.RuleTypeOneOnOneFrequency, oneOnOneConfig)

	const runs = 6
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		total   int
		errs    []error
		release = make(chan struct{})
	)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-release
			created, err := NewOneOnOneRule(deps).Evaluate(ctx, rule)
			mu.Lock()
			defer mu.Unlock()
			total += created
			if err != nil {
				errs = append(errs, err)
			}
		}()
	}
	close(release)
	wg.Wait()

	require.Empty(t, errs)
	assert.Equal(t, 5, total)

	exceptions := activeExceptions(t, s, rule.ID)
	require.Len(t, exceptions, 5)
	for _, ex := range exceptions {
		assert.Len(t, notificationsFor(t, s, ex.ID), 1, "notifications for %s", ex.EntityID)
	}
}

func TestOneOnOneRule_BatchesLargeTeams(t *testing.T) {
	s, org, deps := newTestEnv(t)

	manager := org.Person("Mia")
	reports := make([]string, 0, batchSize+25)
	for i := 0; i < batchSize+25; i++ {
		reports = append(reports, org.Person(fmt.Sprintf("Report %03d", i), testutil.ManagedBy(manager)))
	}
	// Meetings on both sides of the batch boundary.
	org.OneOnOne(manager, reports[0], 1)
	org.OneOnOne(reports[batchSize+10], manager, 1)

	rule := org.Rule("1:1 cadence", model.RuleTypeOneOnOneFrequency, oneOnOneConfig)
	created, err := NewOneOnOneRule(deps).Evaluate(context.Background(), rule)
	require.NoError(t, err)
	assert.Equal(t, len(reports)-2, created)
	assert.Len(t, activeExceptions(t, s, rule.ID), len(reports)-2)
}

func TestOneOnOneRule_NoPairs(t *testing.T) {
	_, org, deps := newTestEnv(t)
	org.Person("Solo")

	rule := org.Rule("1:1 cadence", model.RuleTypeOneOnOneFrequency, oneOnOneConfig)
	created, err := NewOneOnOneRule(deps).Evaluate(context.Background(), rule)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestLater(t *testing.T) {
	a := testNow
	b := testNow.Add(testutil.Day)

	assert.Nil(t, later(nil, nil))
	assert.Equal(t, &a, later(&a, nil))
	assert.Equal(t, &b, later(nil, &b))
	assert.Equal(t, &b, later(&a, &b))
	assert.Equal(t, &b, later(&b, &a))
}
