package orgimport

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tolerance-rules/internal/model"
	"github.com/nhle/tolerance-rules/internal/rules"
	"github.com/nhle/tolerance-rules/internal/testutil"
)

var now = time.Date(2026, time.March, 16, 9, 30, 0, 0, time.UTC)

func TestImport(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	registry := rules.DefaultRegistry(rules.Deps{Store: s})

	f, err := os.Open("testdata/acme.yaml")
	require.NoError(t, err)
	defer f.Close()

	summary, err := Import(ctx, s, registry, f, now)
	require.NoError(t, err)
	assert.Equal(t, Summary{
		OrganizationID:    "org-acme",
		Users:             2,
		People:            5,
		OneOnOnes:         3,
		Initiatives:       2,
		CheckIns:          2,
		FeedbackCampaigns: 1,
		Rules:             4,
	}, summary)

	pairs, err := s.GetReportPairs(ctx, "org-acme", false)
	require.NoError(t, err)
	assert.Len(t, pairs, 3, "inactive reports are not paired")

	stored, err := s.GetRules(ctx, "org-acme")
	require.NoError(t, err)
	require.Len(t, stored, 4)
	enabled, err := s.GetEnabledRules(ctx, "org-acme")
	require.NoError(t, err)
	assert.Len(t, enabled, 3)

	checkIns, err := s.GetCheckIns(ctx, []string{"i-launch"})
	require.NoError(t, err)
	require.Len(t, checkIns, 2)
	assert.True(t, checkIns[0].CreatedAt.Equal(now.Add(-20*24*time.Hour)))

	// Importing again updates rows in place.
	f2, err := os.Open("testdata/acme.yaml")
	require.NoError(t, err)
	defer f2.Close()
	_, err = Import(ctx, s, registry, f2, now.Add(time.Hour))
	require.NoError(t, err)

	stored, err = s.GetRules(ctx, "org-acme")
	require.NoError(t, err)
	assert.Len(t, stored, 4)
	checkIns, err = s.GetCheckIns(ctx, []string{"i-launch"})
	require.NoError(t, err)
	assert.Len(t, checkIns, 2)
}

func TestImport_ThenEvaluate(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	deps := rules.Deps{Store: s, Clock: func() time.Time { return now }}
	registry := rules.DefaultRegistry(deps)

	f, err := os.Open("testdata/acme.yaml")
	require.NoError(t, err)
	defer f.Close()
	_, err = Import(ctx, s, registry, f, now)
	require.NoError(t, err)

	result, err := rules.NewEvaluator(s, registry, nil).EvaluateAllRules(ctx, "org-acme")
	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	// Ada (last 1:1 ten days ago, reversed) and Ben (never scheduled),
	// the launch initiative, and Mia's span of three.
	assert.Equal(t, 4, result.ExceptionsCreated)
}

func TestSnapshot_ReportsEveryProblem(t *testing.T) {
	doc, err := Parse(strings.NewReader(`
organization: org-bad
people:
  - id: p-1
    name: One
    manager: p-missing
    status: retired
  - id: p-1
    name: Duplicate
one_on_ones:
  - manager: p-1
    report: p-2
    scheduled_at: yesterday
initiatives:
  - id: i-1
    title: Thing
    status: someday
    owners: [p-9]
rules:
  - name: Broken span
    type: manager_span
    config:
      maxDirectReports: 0
  - name: Legacy
    type: max_reports
`))
	require.NoError(t, err)

	_, err = doc.Snapshot(now, rules.DefaultRegistry(rules.Deps{}))
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		`unknown manager "p-missing"`,
		`unknown status "retired"`,
		`duplicate id "p-1"`,
		`unknown report "p-2"`,
		`invalid time "yesterday"`,
		`unknown status "someday"`,
		`unknown owner "p-9"`,
		"maxDirectReports is required",
		`unknown rule type "max_reports"`,
	} {
		assert.Contains(t, msg, want)
	}
}

func TestParse(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	assert.EqualError(t, err, "snapshot is empty")

	_, err = Parse(strings.NewReader("people: []\n"))
	assert.ErrorContains(t, err, "organization is required")

	_, err = Parse(strings.NewReader("organization: x\nteams: []\n"))
	assert.ErrorContains(t, err, "teams")
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "now", want: now},
		{in: "-8d", want: now.Add(-8 * 24 * time.Hour)},
		{in: "+2w", want: now.Add(14 * 24 * time.Hour)},
		{in: "-36h", want: now.Add(-36 * time.Hour)},
		{in: "-90m", want: now.Add(-90 * time.Minute)},
		{in: "-15s", want: now.Add(-15 * time.Second)},
		{in: "2026-01-05T10:00:00Z", want: time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)},
		{in: "8d", wantErr: true},
		{in: "-8y", wantErr: true},
		{in: "-xd", wantErr: true},
		{in: "yesterday", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTime(tt.in, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestSnapshot_Defaults(t *testing.T) {
	doc, err := Parse(strings.NewReader(`
organization: org-min
people:
  - id: p-1
    name: One
rules:
  - name: Span
    type: manager_span
    config: {maxDirectReports: 5}
`))
	require.NoError(t, err)

	snap, err := doc.Snapshot(now, nil)
	require.NoError(t, err)
	require.Len(t, snap.People, 1)
	assert.Equal(t, model.PersonStatusActive, snap.People[0].Status)
	assert.Equal(t, model.EmployeeTypeFullTime, snap.People[0].EmployeeType)

	require.Len(t, snap.Rules, 1)
	assert.True(t, snap.Rules[0].IsEnabled)
	assert.JSONEq(t, `{"maxDirectReports": 5}`, string(snap.Rules[0].Config))

	again, err := doc.Snapshot(now, nil)
	require.NoError(t, err)
	assert.Equal(t, snap.Rules[0].ID, again.Rules[0].ID, "derived ids are stable")
}
