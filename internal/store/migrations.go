package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// schemaVersionTable is created before migrations run so the current
// version can be read the same way on every driver.
const schemaVersionTable = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
)`

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
// The SQL is restricted to the subset shared by SQLite and PostgreSQL.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS users (
	id    TEXT PRIMARY KEY,
	email TEXT NOT NULL DEFAULT '',
	name  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS people (
	id              TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	name            TEXT NOT NULL,
	email           TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT 'active',
	employee_type   TEXT NOT NULL DEFAULT 'full_time',
	manager_id      TEXT,
	user_id         TEXT REFERENCES users(id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS one_on_ones (
	id           TEXT PRIMARY KEY,
	manager_id   TEXT NOT NULL,
	report_id    TEXT NOT NULL,
	scheduled_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS initiatives (
	id              TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	title           TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'planned'
);

CREATE TABLE IF NOT EXISTS initiative_owners (
	initiative_id TEXT NOT NULL REFERENCES initiatives(id) ON DELETE CASCADE,
	person_id     TEXT NOT NULL,
	PRIMARY KEY (initiative_id, person_id)
);

CREATE TABLE IF NOT EXISTS check_ins (
	id            TEXT PRIMARY KEY,
	initiative_id TEXT NOT NULL REFERENCES initiatives(id) ON DELETE CASCADE,
	created_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS feedback_campaigns (
	id               TEXT PRIMARY KEY,
	target_person_id TEXT NOT NULL,
	created_at       TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_people_org_status ON people(organization_id, status);
CREATE INDEX IF NOT EXISTS idx_people_manager_id ON people(manager_id);
CREATE INDEX IF NOT EXISTS idx_one_on_ones_pair ON one_on_ones(manager_id, report_id);
CREATE INDEX IF NOT EXISTS idx_initiatives_org_status ON initiatives(organization_id, status);
CREATE INDEX IF NOT EXISTS idx_check_ins_initiative ON check_ins(initiative_id, created_at);
CREATE INDEX IF NOT EXISTS idx_feedback_campaigns_target ON feedback_campaigns(target_person_id, created_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS tolerance_rules (
	id              TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	rule_type       TEXT NOT NULL,
	is_enabled      INTEGER NOT NULL DEFAULT 1 CHECK(is_enabled IN (0, 1)),
	name            TEXT NOT NULL,
	config          TEXT NOT NULL DEFAULT '{}',
	created_at      TIMESTAMP NOT NULL,
	updated_at      TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS exceptions (
	id              TEXT PRIMARY KEY,
	rule_id         TEXT NOT NULL REFERENCES tolerance_rules(id) ON DELETE CASCADE,
	organization_id TEXT NOT NULL,
	severity        TEXT NOT NULL CHECK(severity IN ('warning', 'urgent')),
	entity_type     TEXT NOT NULL,
	entity_id       TEXT NOT NULL,
	message         TEXT NOT NULL,
	metadata        TEXT NOT NULL DEFAULT '{}',
	status          TEXT NOT NULL DEFAULT 'active',
	created_at      TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	id              TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	user_id         TEXT NOT NULL,
	title           TEXT NOT NULL,
	message         TEXT NOT NULL,
	type            TEXT NOT NULL DEFAULT 'info',
	metadata        TEXT NOT NULL DEFAULT '{}',
	read            INTEGER NOT NULL DEFAULT 0,
	created_at      TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS exception_notifications (
	exception_id    TEXT NOT NULL REFERENCES exceptions(id) ON DELETE CASCADE,
	notification_id TEXT NOT NULL REFERENCES notifications(id) ON DELETE CASCADE,
	PRIMARY KEY (exception_id, notification_id)
);

CREATE INDEX IF NOT EXISTS idx_tolerance_rules_org ON tolerance_rules(organization_id, is_enabled);
CREATE INDEX IF NOT EXISTS idx_exceptions_lookup
	ON exceptions(rule_id, organization_id, entity_type, status);
CREATE UNIQUE INDEX IF NOT EXISTS ux_exceptions_active
	ON exceptions(rule_id, organization_id, entity_type, entity_id)
	WHERE status = 'active';
CREATE INDEX IF NOT EXISTS idx_notifications_user_read ON notifications(user_id, read);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
