package store

// schema is the full DDL applied by ensureSchema on every Open. Statements
// use "IF NOT EXISTS" throughout so re-running it against an already
// migrated database is a no-op.
const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS conversations (
	id             TEXT PRIMARY KEY,
	slug           TEXT NOT NULL UNIQUE,
	title          TEXT NOT NULL DEFAULT '',
	source         TEXT,
	model          TEXT,
	project        TEXT,
	custom_data    TEXT,
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL,
	starred_at     TEXT,
	pinned_at      TEXT,
	archived_at    TEXT,
	root_message_ids TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_conversations_updated_at ON conversations(updated_at);
CREATE INDEX IF NOT EXISTS idx_conversations_project ON conversations(project) WHERE project IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_conversations_starred ON conversations(starred_at) WHERE starred_at IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_conversations_pinned ON conversations(pinned_at) WHERE pinned_at IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_conversations_archived ON conversations(archived_at) WHERE archived_at IS NOT NULL;

CREATE TABLE IF NOT EXISTS messages (
	id          TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	parent_id   TEXT,
	role        TEXT NOT NULL,
	text        TEXT NOT NULL DEFAULT '',
	media       TEXT,
	tool_calls  TEXT,
	metadata    TEXT,
	timestamp   TEXT
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);
CREATE INDEX IF NOT EXISTS idx_messages_parent ON messages(parent_id);

CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
	text, title, content='', tokenize='porter unicode61'
);

CREATE TABLE IF NOT EXISTS tags (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS conversation_tags (
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	tag_id          INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	PRIMARY KEY (conversation_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_conversation_tags_tag ON conversation_tags(tag_id);

CREATE TABLE IF NOT EXISTS embeddings (
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	config_hash     TEXT NOT NULL,
	provider        TEXT NOT NULL,
	dims            INTEGER NOT NULL,
	vector          BLOB NOT NULL,
	created_at      TEXT NOT NULL,
	PRIMARY KEY (conversation_id, config_hash)
);

CREATE INDEX IF NOT EXISTS idx_embeddings_config ON embeddings(config_hash);

CREATE TABLE IF NOT EXISTS similarities (
	id_a        TEXT NOT NULL,
	id_b        TEXT NOT NULL,
	config_hash TEXT NOT NULL,
	metric      TEXT NOT NULL,
	score       REAL NOT NULL,
	computed_at TEXT NOT NULL,
	PRIMARY KEY (id_a, id_b, config_hash, metric)
);
`

// currentSchemaVersion is bumped whenever a new migration step is added
// below.
const currentSchemaVersion = 1

func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(schema); err != nil {
		return newErr(KindIO, "applying schema", err)
	}
	return s.migrate()
}

// migrate applies forward-only migrations tracked by a single row in
// schema_version. With only version 1 defined so far this is a no-op
// beyond seeding the row, but the shape is in place for future steps.
func (s *Store) migrate() error {
	var version int
	row := s.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`)
	if err := row.Scan(&version); err != nil {
		if _, err := s.db.Exec(`INSERT INTO schema_version(version) VALUES (?)`, currentSchemaVersion); err != nil {
			return newErr(KindIO, "seeding schema_version", err)
		}
		return nil
	}
	if version > currentSchemaVersion {
		return newErr(KindMigrationTimeout, "database schema is newer than this build supports", nil)
	}
	// No migration steps beyond v1 exist yet.
	return nil
}
