package model

// PairKey identifies a manager/report pair. It is serialized with String
// only at the persistence boundary.
type PairKey struct {
	ManagerID string
	ReportID  string
}

// String renders the key as "<managerId>-<reportId>". Two pairs can only
// collide when ids contain "-" at matching offsets; generated ids are
// fixed-width UUIDs, for which the split point is always the same.
func (k PairKey) String() string {
	return k.ManagerID + "-" + k.ReportID
}

// Reversed swaps the manager and report roles.
func (k PairKey) Reversed() PairKey {
	return PairKey{ManagerID: k.ReportID, ReportID: k.ManagerID}
}

// ReportPair is an active manager with one of their active direct reports.
type ReportPair struct {
	ManagerID     string  `db:"manager_id"`
	ManagerName   string  `db:"manager_name"`
	ManagerUserID *string `db:"manager_user_id"`
	ReportID      string  `db:"report_id"`
	ReportName    string  `db:"report_name"`
}

// Key returns the pair's composite identity.
func (p ReportPair) Key() PairKey {
	return PairKey{ManagerID: p.ManagerID, ReportID: p.ReportID}
}

// Owner is an initiative owner with their optional linked user.
type Owner struct {
	InitiativeID string  `db:"initiative_id"`
	PersonID     string  `db:"person_id"`
	Name         string  `db:"name"`
	UserID       *string `db:"user_id"`
}

// ActivePerson is an active person together with their manager's linked
// user, if any.
type ActivePerson struct {
	ID            string  `db:"id"`
	Name          string  `db:"name"`
	ManagerID     *string `db:"manager_id"`
	ManagerName   *string `db:"manager_name"`
	ManagerUserID *string `db:"manager_user_id"`
}

// ManagerSpan is an active manager with the number of their active
// direct reports.
type ManagerSpan struct {
	ManagerID     string  `db:"manager_id"`
	Name          string  `db:"name"`
	UserID        *string `db:"user_id"`
	DirectReports int     `db:"direct_reports"`
}
