package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	folder     TEXT NOT NULL,
	uid        INTEGER NOT NULL,
	message_id TEXT NOT NULL DEFAULT '',
	subject    TEXT NOT NULL DEFAULT '',
	sender     TEXT NOT NULL DEFAULT '',
	date       DATETIME NOT NULL,
	body       TEXT NOT NULL DEFAULT '',
	fetched_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (folder, uid)
);

CREATE INDEX IF NOT EXISTS idx_messages_date ON messages(date);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
