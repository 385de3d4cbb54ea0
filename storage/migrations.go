package storage

type migration struct {
	version int
	sql     string
}

// migrations is applied in order; versions are sequential from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL UNIQUE,
	image      TEXT,
	role       TEXT NOT NULL DEFAULT 'MEMBER',
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS teams (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	type        TEXT NOT NULL,
	color       TEXT NOT NULL DEFAULT '#6366f1',
	description TEXT
);

CREATE TABLE IF NOT EXISTS team_members (
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	team_id TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
	role    TEXT NOT NULL DEFAULT 'MEMBER',
	PRIMARY KEY (user_id, team_id)
);

CREATE TABLE IF NOT EXISTS projects (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT,
	status      TEXT NOT NULL DEFAULT 'ACTIVE',
	start_date  DATETIME,
	end_date    DATETIME,
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS project_teams (
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	team_id    TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
	PRIMARY KEY (project_id, team_id)
);

CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT,
	status      TEXT NOT NULL DEFAULT 'TODO',
	priority    TEXT NOT NULL DEFAULT 'MEDIUM',
	position    INTEGER NOT NULL DEFAULT 0,
	due_date    DATETIME,
	project_id  TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	assignee_id TEXT,
	creator_id  TEXT NOT NULL,
	team_id     TEXT,
	parent_id   TEXT,
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS labels (
	id    TEXT PRIMARY KEY,
	name  TEXT NOT NULL UNIQUE,
	color TEXT NOT NULL DEFAULT '#6b7280'
);

CREATE TABLE IF NOT EXISTS task_labels (
	task_id  TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	label_id TEXT NOT NULL REFERENCES labels(id) ON DELETE CASCADE,
	PRIMARY KEY (task_id, label_id)
);

CREATE TABLE IF NOT EXISTS comments (
	id         TEXT PRIMARY KEY,
	content    TEXT NOT NULL,
	task_id    TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	user_id    TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS activity_logs (
	id         TEXT PRIMARY KEY,
	action     TEXT NOT NULL,
	field      TEXT,
	old_value  TEXT,
	new_value  TEXT,
	task_id    TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	title      TEXT NOT NULL,
	message    TEXT NOT NULL,
	link       TEXT,
	read       INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_partition ON tasks(project_id, status, position);
CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assignee_id);
CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_id);
CREATE INDEX IF NOT EXISTS idx_comments_task ON comments(task_id, created_at);
CREATE INDEX IF NOT EXISTS idx_activity_created ON activity_logs(created_at);
CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at);
`,
	},
}
