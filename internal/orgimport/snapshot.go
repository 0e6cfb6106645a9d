package orgimport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/tolerance-rules/internal/model"
	"github.com/nhle/tolerance-rules/internal/store"
)

// ConfigValidator checks a rule config for its type.
type ConfigValidator interface {
	Validate(ruleType model.RuleType, raw json.RawMessage) error
}

// Summary counts the rows written by an import.
type Summary struct {
	OrganizationID    string
	Users             int
	People            int
	OneOnOnes         int
	Initiatives       int
	CheckIns          int
	FeedbackCampaigns int
	Rules             int
}

// Import parses a snapshot from r, validates it and writes it to s in a
// single transaction.
func Import(
	ctx context.Context,
	s store.Store,
	validator ConfigValidator,
	r io.Reader,
	now time.Time,
) (Summary, error) {
	doc, err := Parse(r)
	if err != nil {
		return Summary{}, err
	}
	snap, err := doc.Snapshot(now, validator)
	if err != nil {
		return Summary{}, err
	}
	if err := s.ImportSnapshot(ctx, snap); err != nil {
		return Summary{}, fmt.Errorf("importing %s: %w", doc.Organization, err)
	}
	return Summary{
		OrganizationID:    doc.Organization,
		Users:             len(snap.Users),
		People:            len(snap.People),
		OneOnOnes:         len(snap.OneOnOnes),
		Initiatives:       len(snap.Initiatives),
		CheckIns:          len(snap.CheckIns),
		FeedbackCampaigns: len(snap.FeedbackCampaigns),
		Rules:             len(snap.Rules),
	}, nil
}

// Snapshot converts the document into store rows. Relative timestamps are
// resolved against now. Every problem found is reported, not just the
// first.
func (d *Document) Snapshot(now time.Time, validator ConfigValidator) (model.Snapshot, error) {
	b := &builder{doc: d, now: now}
	snap := model.Snapshot{
		Users:     b.users(),
		People:    b.people(),
		OneOnOnes: b.oneOnOnes(),
	}
	snap.Initiatives, snap.InitiativeOwners = b.initiatives()
	snap.CheckIns = b.checkIns()
	snap.FeedbackCampaigns = b.feedbackCampaigns()
	snap.Rules = b.rules(validator)

	if len(b.errs) > 0 {
		return model.Snapshot{}, fmt.Errorf("invalid snapshot for %s: %w", d.Organization, errors.Join(b.errs...))
	}
	return snap, nil
}

type builder struct {
	doc  *Document
	now  time.Time
	errs []error

	userIDs       map[string]bool
	personIDs     map[string]bool
	initiativeIDs map[string]bool
}

func (b *builder) fail(format string, args ...any) {
	b.errs = append(b.errs, fmt.Errorf(format, args...))
}

// stableID derives a repeatable id for rows the document leaves unnamed,
// so importing the same file twice updates instead of duplicating.
func (b *builder) stableID(kind, key string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL,
		[]byte("tolerance:"+b.doc.Organization+":"+kind+":"+key)).String()
}

func (b *builder) users() []model.User {
	b.userIDs = make(map[string]bool, len(b.doc.Users))
	users := make([]model.User, 0, len(b.doc.Users))
	for i, u := range b.doc.Users {
		switch {
		case u.ID == "":
			b.fail("users[%d]: id is required", i)
			continue
		case b.userIDs[u.ID]:
			b.fail("users[%d]: duplicate id %q", i, u.ID)
			continue
		}
		b.userIDs[u.ID] = true
		users = append(users, model.User{ID: u.ID, Email: u.Email, Name: u.Name})
	}
	return users
}

func (b *builder) people() []model.Person {
	b.personIDs = make(map[string]bool, len(b.doc.People))
	for _, p := range b.doc.People {
		if p.ID != "" {
			b.personIDs[p.ID] = true
		}
	}

	seen := make(map[string]bool, len(b.doc.People))
	people := make([]model.Person, 0, len(b.doc.People))
	for i, p := range b.doc.People {
		if p.ID == "" {
			b.fail("people[%d]: id is required", i)
			continue
		}
		if seen[p.ID] {
			b.fail("people[%d]: duplicate id %q", i, p.ID)
			continue
		}
		seen[p.ID] = true
		if p.Name == "" {
			b.fail("people[%d]: name is required", i)
		}

		person := model.Person{
			ID:             p.ID,
			OrganizationID: b.doc.Organization,
			Name:           p.Name,
			Email:          p.Email,
			Status:         orDefault(p.Status, model.PersonStatusActive),
			EmployeeType:   orDefault(p.EmployeeType, model.EmployeeTypeFullTime),
		}
		if !oneOf(person.Status, model.PersonStatusActive, model.PersonStatusInactive) {
			b.fail("people[%d]: unknown status %q", i, p.Status)
		}
		if !oneOf(person.EmployeeType, model.EmployeeTypeFullTime, model.EmployeeTypePartTime, model.EmployeeTypeContractor) {
			b.fail("people[%d]: unknown employee_type %q", i, p.EmployeeType)
		}
		if p.Manager != "" {
			if !b.personIDs[p.Manager] {
				b.fail("people[%d]: unknown manager %q", i, p.Manager)
			}
			if p.Manager == p.ID {
				b.fail("people[%d]: person cannot manage themselves", i)
			}
			person.ManagerID = ptr(p.Manager)
		}
		if p.User != "" {
			if !b.userIDs[p.User] {
				b.fail("people[%d]: unknown user %q", i, p.User)
			}
			person.UserID = ptr(p.User)
		}
		people = append(people, person)
	}
	return people
}

func (b *builder) oneOnOnes() []model.OneOnOne {
	meetings := make([]model.OneOnOne, 0, len(b.doc.OneOnOnes))
	for i, m := range b.doc.OneOnOnes {
		if !b.personIDs[m.Manager] {
			b.fail("one_on_ones[%d]: unknown manager %q", i, m.Manager)
		}
		if !b.personIDs[m.Report] {
			b.fail("one_on_ones[%d]: unknown report %q", i, m.Report)
		}

		meeting := model.OneOnOne{
			ID:        orDefault(m.ID, b.stableID("one_on_one", strconv.Itoa(i))),
			ManagerID: m.Manager,
			ReportID:  m.Report,
		}
		if m.ScheduledAt != "" {
			at, err := ParseTime(m.ScheduledAt, b.now)
			if err != nil {
				b.fail("one_on_ones[%d]: scheduled_at: %w", i, err)
			}
			meeting.ScheduledAt = &at
		}
		meetings = append(meetings, meeting)
	}
	return meetings
}

func (b *builder) initiatives() ([]model.Initiative, []model.InitiativeOwner) {
	b.initiativeIDs = make(map[string]bool, len(b.doc.Initiatives))
	initiatives := make([]model.Initiative, 0, len(b.doc.Initiatives))
	var owners []model.InitiativeOwner
	for i, in := range b.doc.Initiatives {
		if in.ID == "" {
			b.fail("initiatives[%d]: id is required", i)
			continue
		}
		if b.initiativeIDs[in.ID] {
			b.fail("initiatives[%d]: duplicate id %q", i, in.ID)
			continue
		}
		b.initiativeIDs[in.ID] = true

		status := orDefault(in.Status, model.InitiativeStatusPlanned)
		if !oneOf(status,
			model.InitiativeStatusPlanned, model.InitiativeStatusInProgress,
			model.InitiativeStatusOnHold, model.InitiativeStatusDone,
			model.InitiativeStatusCanceled,
		) {
			b.fail("initiatives[%d]: unknown status %q", i, in.Status)
		}
		initiatives = append(initiatives, model.Initiative{
			ID:             in.ID,
			OrganizationID: b.doc.Organization,
			Title:          in.Title,
			Status:         status,
		})

		for _, owner := range in.Owners {
			if !b.personIDs[owner] {
				b.fail("initiatives[%d]: unknown owner %q", i, owner)
				continue
			}
			owners = append(owners, model.InitiativeOwner{InitiativeID: in.ID, PersonID: owner})
		}
	}
	return initiatives, owners
}

func (b *builder) checkIns() []model.CheckIn {
	checkIns := make([]model.CheckIn, 0, len(b.doc.CheckIns))
	for i, c := range b.doc.CheckIns {
		if !b.initiativeIDs[c.Initiative] {
			b.fail("check_ins[%d]: unknown initiative %q", i, c.Initiative)
		}
		at, err := ParseTime(orDefault(c.CreatedAt, "now"), b.now)
		if err != nil {
			b.fail("check_ins[%d]: created_at: %w", i, err)
		}
		checkIns = append(checkIns, model.CheckIn{
			ID:           orDefault(c.ID, b.stableID("check_in", strconv.Itoa(i))),
			InitiativeID: c.Initiative,
			CreatedAt:    at,
		})
	}
	return checkIns
}

func (b *builder) feedbackCampaigns() []model.FeedbackCampaign {
	campaigns := make([]model.FeedbackCampaign, 0, len(b.doc.FeedbackCampaigns))
	for i, f := range b.doc.FeedbackCampaigns {
		if !b.personIDs[f.Target] {
			b.fail("feedback_campaigns[%d]: unknown target %q", i, f.Target)
		}
		at, err := ParseTime(orDefault(f.CreatedAt, "now"), b.now)
		if err != nil {
			b.fail("feedback_campaigns[%d]: created_at: %w", i, err)
		}
		campaigns = append(campaigns, model.FeedbackCampaign{
			ID:             orDefault(f.ID, b.stableID("feedback_campaign", strconv.Itoa(i))),
			TargetPersonID: f.Target,
			CreatedAt:      at,
		})
	}
	return campaigns
}

func (b *builder) rules(validator ConfigValidator) []model.ToleranceRule {
	rules := make([]model.ToleranceRule, 0, len(b.doc.Rules))
	for i, r := range b.doc.Rules {
		if r.Name == "" {
			b.fail("rules[%d]: name is required", i)
			continue
		}

		config := r.Config
		if config == nil {
			config = map[string]any{}
		}
		raw, err := json.Marshal(config)
		if err != nil {
			b.fail("rules[%d]: encoding config: %w", i, err)
			continue
		}

		ruleType := model.RuleType(r.Type)
		if validator != nil {
			if err := validator.Validate(ruleType, raw); err != nil {
				b.fail("rules[%d] (%s): %w", i, r.Name, err)
			}
		}

		enabled := true
		if r.Enabled != nil {
			enabled = *r.Enabled
		}
		rules = append(rules, model.ToleranceRule{
			ID:             orDefault(r.ID, b.stableID("rule", r.Name)),
			OrganizationID: b.doc.Organization,
			RuleType:       ruleType,
			IsEnabled:      enabled,
			Name:           r.Name,
			Config:         raw,
			CreatedAt:      b.now,
			UpdatedAt:      b.now,
		})
	}
	return rules
}

// ParseTime parses an RFC3339 timestamp or a time relative to now:
// "now", or a signed amount with unit w, d, h, m or s ("-8d", "+2w",
// "-90m").
func ParseTime(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "now" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}

	if len(value) < 3 || (value[0] != '-' && value[0] != '+') {
		return time.Time{}, fmt.Errorf("invalid time %q", value)
	}

	unit := value[len(value)-1]
	amount, err := strconv.Atoi(value[1 : len(value)-1])
	if err != nil || amount < 0 {
		return time.Time{}, fmt.Errorf("invalid relative time %q", value)
	}

	var step time.Duration
	switch unit {
	case 'w':
		step = 7 * 24 * time.Hour
	case 'd':
		step = 24 * time.Hour
	case 'h':
		step = time.Hour
	case 'm':
		step = time.Minute
	case 's':
		step = time.Second
	default:
		return time.Time{}, fmt.Errorf("invalid relative time unit in %q", value)
	}

	offset := time.Duration(amount) * step
	if value[0] == '-' {
		offset = -offset
	}
	return now.Add(offset), nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

func ptr(s string) *string { return &s }
