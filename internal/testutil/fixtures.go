package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/tolerance-rules/internal/model"
	"github.com/nhle/tolerance-rules/internal/store"
)

// Day is one calendar-independent day.
const Day = 24 * time.Hour

// Org builds organization fixtures in a store. Every helper writes
// immediately and returns the id of what it created.
type Org struct {
	t   *testing.T
	s   store.Store
	ID  string
	Now time.Time

	users map[string]string
}

// NewOrg returns a builder for a fresh organization whose relative
// timestamps are computed from now.
func NewOrg(t *testing.T, s store.Store, now time.Time) *Org {
	t.Helper()
	return &Org{
		t:     t,
		s:     s,
		ID:    "org-" + uuid.New().String(),
		Now:   now,
		users: make(map[string]string),
	}
}

// PersonOption customizes a fixture person.
type PersonOption func(p *model.Person, snap *model.Snapshot)

// ManagedBy sets the person's manager.
func ManagedBy(managerID string) PersonOption {
	return func(p *model.Person, _ *model.Snapshot) {
		p.ManagerID = &managerID
	}
}

// WithLinkedUser creates a user account for the person.
func WithLinkedUser() PersonOption {
	return func(p *model.Person, snap *model.Snapshot) {
		userID := uuid.New().String()
		snap.Users = append(snap.Users, model.User{
			ID:    userID,
			Email: p.Name + "@example.com",
			Name:  p.Name,
		})
		p.UserID = &userID
	}
}

// Inactive marks the person as no longer active.
func Inactive() PersonOption {
	return func(p *model.Person, _ *model.Snapshot) {
		p.Status = model.PersonStatusInactive
	}
}

// WithEmployeeType sets the person's employee type.
func WithEmployeeType(employeeType string) PersonOption {
	return func(p *model.Person, _ *model.Snapshot) {
		p.EmployeeType = employeeType
	}
}

// Person creates an active full-time person.
func (o *Org) Person(name string, opts ...PersonOption) string {
	o.t.Helper()
	p := model.Person{
		ID:             uuid.New().String(),
		OrganizationID: o.ID,
		Name:           name,
		Status:         model.PersonStatusActive,
		EmployeeType:   model.EmployeeTypeFullTime,
	}
	var snap model.Snapshot
	for _, opt := range opts {
		opt(&p, &snap)
	}
	snap.People = append(snap.People, p)
	o.importSnapshot(snap)
	if p.UserID != nil {
		o.users[p.ID] = *p.UserID
	}
	return p.ID
}

// UserOf returns the linked user id of a person, or "" when unlinked.
func (o *Org) UserOf(personID string) string {
	return o.users[personID]
}

// OneOnOne records a one-on-one held daysAgo days before Now.
func (o *Org) OneOnOne(managerID, reportID string, daysAgo int) string {
	o.t.Helper()
	at := o.Now.Add(-time.Duration(daysAgo) * Day)
	return o.oneOnOne(managerID, reportID, &at)
}

// UnscheduledOneOnOne records a one-on-one without a date.
func (o *Org) UnscheduledOneOnOne(managerID, reportID string) string {
	o.t.Helper()
	return o.oneOnOne(managerID, reportID, nil)
}

func (o *Org) oneOnOne(managerID, reportID string, at *time.Time) string {
	o.t.Helper()
	m := model.OneOnOne{
		ID:          uuid.New().String(),
		ManagerID:   managerID,
		ReportID:    reportID,
		ScheduledAt: at,
	}
	o.importSnapshot(model.Snapshot{OneOnOnes: []model.OneOnOne{m}})
	return m.ID
}

// Initiative creates an initiative owned by ownerIDs.
func (o *Org) Initiative(title, status string, ownerIDs ...string) string {
	o.t.Helper()
	i := model.Initiative{
		ID:             uuid.New().String(),
		OrganizationID: o.ID,
		Title:          title,
		Status:         status,
	}
	snap := model.Snapshot{Initiatives: []model.Initiative{i}}
	for _, owner := range ownerIDs {
		snap.InitiativeOwners = append(snap.InitiativeOwners, model.InitiativeOwner{
			InitiativeID: i.ID,
			PersonID:     owner,
		})
	}
	o.importSnapshot(snap)
	return i.ID
}

// CheckIn records a check-in posted daysAgo days before Now.
func (o *Org) CheckIn(initiativeID string, daysAgo int) string {
	o.t.Helper()
	c := model.CheckIn{
		ID:           uuid.New().String(),
		InitiativeID: initiativeID,
		CreatedAt:    o.Now.Add(-time.Duration(daysAgo) * Day),
	}
	o.importSnapshot(model.Snapshot{CheckIns: []model.CheckIn{c}})
	return c.ID
}

// Campaign records a feedback campaign about personID started daysAgo
// days before Now.
func (o *Org) Campaign(personID string, daysAgo int) string {
	o.t.Helper()
	f := model.FeedbackCampaign{
		ID:             uuid.New().String(),
		TargetPersonID: personID,
		CreatedAt:      o.Now.Add(-time.Duration(daysAgo) * Day),
	}
	o.importSnapshot(model.Snapshot{FeedbackCampaigns: []model.FeedbackCampaign{f}})
	return f.ID
}

// Rule creates an enabled rule whose config is cfg encoded as JSON.
func (o *Org) Rule(name string, ruleType model.RuleType, cfg any) model.ToleranceRule {
	o.t.Helper()
	raw, err := json.Marshal(cfg)
	if err != nil {
		o.t.Fatalf("marshaling rule config: %v", err)
	}
	return o.RawRule(name, ruleType, string(raw))
}

// RawRule creates an enabled rule with a verbatim config payload.
func (o *Org) RawRule(name string, ruleType model.RuleType, config string) model.ToleranceRule {
	o.t.Helper()
	r := model.ToleranceRule{
		ID:             uuid.New().String(),
		OrganizationID: o.ID,
		RuleType:       ruleType,
		IsEnabled:      true,
		Name:           name,
		Config:         json.RawMessage(config),
		CreatedAt:      o.Now,
	}
	o.importSnapshot(model.Snapshot{Rules: []model.ToleranceRule{r}})
	return r
}

func (o *Org) importSnapshot(snap model.Snapshot) {
	o.t.Helper()
	if err := o.s.ImportSnapshot(context.Background(), snap); err != nil {
		o.t.Fatalf("importing fixture: %v", err)
	}
}
