package model

import "time"

// Person status constants.
const (
	PersonStatusActive   = "active"
	PersonStatusInactive = "inactive"
)

// Employee type constants.
const (
	EmployeeTypeFullTime   = "full_time"
	EmployeeTypePartTime   = "part_time"
	EmployeeTypeContractor = "contractor"
)

// Initiative status constants.
const (
	InitiativeStatusPlanned    = "planned"
	InitiativeStatusInProgress = "in_progress"
	InitiativeStatusOnHold     = "on_hold"
	InitiativeStatusDone       = "done"
	InitiativeStatusCanceled   = "canceled"
)

// User is a login account that can receive notifications.
type User struct {
	ID    string `json:"id" db:"id" yaml:"id"`
	Email string `json:"email" db:"email" yaml:"email"`
	Name  string `json:"name" db:"name" yaml:"name"`
}

// Person is a member of an organization's people directory. A person may
// be linked to a User account through UserID.
type Person struct {
	ID             string  `json:"id" db:"id"`
	OrganizationID string  `json:"organization_id" db:"organization_id"`
	Name           string  `json:"name" db:"name"`
	Email          string  `json:"email" db:"email"`
	Status         string  `json:"status" db:"status"`
	EmployeeType   string  `json:"employee_type" db:"employee_type"`
	ManagerID      *string `json:"manager_id,omitempty" db:"manager_id"`
	UserID         *string `json:"user_id,omitempty" db:"user_id"`
}

// OneOnOne is a scheduled meeting between a manager and a report.
// ScheduledAt is nil for meetings that were never put on the calendar.
type OneOnOne struct {
	ID          string     `json:"id" db:"id"`
	ManagerID   string     `json:"manager_id" db:"manager_id"`
	ReportID    string     `json:"report_id" db:"report_id"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty" db:"scheduled_at"`
}

// Initiative is a tracked organizational goal with one or more owners.
type Initiative struct {
	ID             string `json:"id" db:"id"`
	OrganizationID string `json:"organization_id" db:"organization_id"`
	Title          string `json:"title" db:"title"`
	Status         string `json:"status" db:"status"`
}

// InitiativeOwner links an initiative to an owning person.
type InitiativeOwner struct {
	InitiativeID string `json:"initiative_id" db:"initiative_id"`
	PersonID     string `json:"person_id" db:"person_id"`
}

// CheckIn is a progress update posted on an initiative.
type CheckIn struct {
	ID           string    `json:"id" db:"id"`
	InitiativeID string    `json:"initiative_id" db:"initiative_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// FeedbackCampaign is a 360-feedback round about a target person.
type FeedbackCampaign struct {
	ID             string    `json:"id" db:"id"`
	TargetPersonID string    `json:"target_person_id" db:"target_person_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
