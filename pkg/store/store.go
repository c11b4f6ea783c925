package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/ncruces/go-sqlite3/driver"
	"github.com/sirupsen/logrus"

	"github.com/queelius/ctk/pkg/conversation"
)

// Store is the durable, single-writer SQLite-backed conversation store
// (C2). All public methods are safe for concurrent use; writes are
// serialized through mu, and reads take mu's read lock. The database/sql
// pool is limited to a single open connection, so statements themselves
// run one at a time.
type Store struct {
	mu  sync.RWMutex
	db  *sql.DB
	log *logrus.Entry
}

// Open opens (creating if absent) a SQLite database at path and ensures
// the schema is current.
func Open(path string) (*Store, error) {
	return OpenWithDSN(fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on", path))
}

// OpenWithDSN opens a database using a caller-provided DSN, e.g. for an
// in-memory database in tests ("file::memory:?cache=shared").
func OpenWithDSN(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, newErr(KindIO, "opening database", err)
	}
	db.SetMaxOpenConns(1) // single-writer model

	s := &Store{db: db, log: logrus.WithField("component", "store")}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

var slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugNonAlnum.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		s = "conversation"
	}
	if len(s) > 80 {
		s = s[:80]
	}
	return s
}

// uniqueSlug appends -2, -3, ... to base until it no longer collides.
func (s *Store) uniqueSlug(base string) (string, error) {
	candidate := base
	for n := 2; ; n++ {
		var exists int
		err := s.db.QueryRow(`SELECT 1 FROM conversations WHERE slug = ?`, candidate).Scan(&exists)
		if err == sql.ErrNoRows {
			return candidate, nil
		}
		if err != nil {
			return "", newErr(KindIO, "checking slug uniqueness", err)
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

// Save persists a new ConversationTree, assigning it a unique slug derived
// from its title. Returns KindConflict if tree.ID already exists.
func (s *Store) Save(tree *conversation.ConversationTree) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	if err := s.db.QueryRow(`SELECT 1 FROM conversations WHERE id = ?`, tree.ID).Scan(&exists); err == nil {
		return newErr(KindConflict, fmt.Sprintf("conversation %q already exists", tree.ID), nil)
	} else if err != sql.ErrNoRows {
		return newErr(KindIO, "checking existing conversation", err)
	}

	slug, err := s.uniqueSlug(slugify(tree.Title))
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return newErr(KindIO, "beginning transaction", err)
	}
	defer tx.Rollback()

	if err := s.insertConversation(tx, tree, slug); err != nil {
		return err
	}
	for _, msg := range tree.Messages {
		if err := s.insertMessage(tx, tree.ID, msg); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return newErr(KindIO, "committing save", err)
	}
	return nil
}

func (s *Store) insertConversation(tx *sql.Tx, tree *conversation.ConversationTree, slug string) error {
	custom, err := json.Marshal(tree.Metadata.CustomData)
	if err != nil {
		return newErr(KindIO, "marshaling custom_data", err)
	}
	roots, err := json.Marshal(tree.RootMessageIDs)
	if err != nil {
		return newErr(KindIO, "marshaling root_message_ids", err)
	}
	_, err = tx.Exec(`
		INSERT INTO conversations (id, slug, title, source, model, project, custom_data, created_at, updated_at, root_message_ids)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tree.ID, slug, tree.Title, tree.Metadata.Source, tree.Metadata.Model, tree.Metadata.Project,
		string(custom), tree.CreatedAt.UTC().Format(time.RFC3339Nano), tree.UpdatedAt.UTC().Format(time.RFC3339Nano),
		string(roots))
	if err != nil {
		return newErr(KindIO, "inserting conversation", err)
	}
	for _, tag := range tree.Metadata.Tags {
		if err := s.attachTag(tx, tree.ID, tag); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) insertMessage(tx *sql.Tx, conversationID string, msg *conversation.Message) error {
	media, err := json.Marshal(msg.Content.Media)
	if err != nil {
		return newErr(KindIO, "marshaling media", err)
	}
	toolCalls, err := json.Marshal(msg.Content.ToolCalls)
	if err != nil {
		return newErr(KindIO, "marshaling tool_calls", err)
	}
	meta, err := json.Marshal(msg.Metadata)
	if err != nil {
		return newErr(KindIO, "marshaling message metadata", err)
	}
	var parentID sql.NullString
	if msg.ParentID != nil {
		parentID = sql.NullString{String: *msg.ParentID, Valid: true}
	}
	_, err = tx.Exec(`
		INSERT INTO messages (id, conversation_id, parent_id, role, text, media, tool_calls, metadata, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, conversationID, parentID, string(msg.Role), msg.Content.Text,
		string(media), string(toolCalls), string(meta), nullTime(msg.Timestamp))
	if err != nil {
		return newErr(KindIO, "inserting message", err)
	}
	_, err = tx.Exec(`INSERT INTO messages_fts(rowid, text, title) SELECT rowid, ?, '' FROM messages WHERE id = ?`,
		msg.Content.Text, msg.ID)
	if err != nil {
		return newErr(KindIO, "indexing message text", err)
	}
	return nil
}

func (s *Store) attachTag(tx *sql.Tx, conversationID, tag string) error {
	if _, err := tx.Exec(`INSERT OR IGNORE INTO tags(name) VALUES (?)`, tag); err != nil {
		return newErr(KindIO, "inserting tag", err)
	}
	var tagID int64
	if err := tx.QueryRow(`SELECT id FROM tags WHERE name = ?`, tag).Scan(&tagID); err != nil {
		return newErr(KindIO, "looking up tag id", err)
	}
	if _, err := tx.Exec(`INSERT OR IGNORE INTO conversation_tags(conversation_id, tag_id) VALUES (?, ?)`,
		conversationID, tagID); err != nil {
		return newErr(KindIO, "attaching tag", err)
	}
	return nil
}

// Load reconstructs a full ConversationTree by ID.
func (s *Store) Load(id string) (*conversation.ConversationTree, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		title, source, model, project, customRaw, rootsRaw string
		createdRaw, updatedRaw                              string
	)
	row := s.db.QueryRow(`
		SELECT title, COALESCE(source,''), COALESCE(model,''), COALESCE(project,''), COALESCE(custom_data,'{}'),
		       created_at, updated_at, root_message_ids
		FROM conversations WHERE id = ?`, id)
	if err := row.Scan(&title, &source, &model, &project, &customRaw, &createdRaw, &updatedRaw, &rootsRaw); err != nil {
		if err == sql.ErrNoRows {
			return nil, NotFound(id)
		}
		return nil, newErr(KindIO, "loading conversation", err)
	}

	created, err := time.Parse(time.RFC3339Nano, createdRaw)
	if err != nil {
		return nil, newErr(KindIO, "parsing created_at", err)
	}
	updated, err := time.Parse(time.RFC3339Nano, updatedRaw)
	if err != nil {
		return nil, newErr(KindIO, "parsing updated_at", err)
	}

	tree := &conversation.ConversationTree{
		ID:        id,
		Title:     title,
		CreatedAt: created,
		UpdatedAt: updated,
		Messages:  make(map[string]*conversation.Message),
	}
	var custom map[string]any
	_ = json.Unmarshal([]byte(customRaw), &custom)
	_ = json.Unmarshal([]byte(rootsRaw), &tree.RootMessageIDs)
	tree.Metadata = conversation.ConversationMetadata{Source: source, Model: model, Project: project, CustomData: custom}

	tags, err := s.tagsForConversation(id)
	if err != nil {
		return nil, err
	}
	tree.Metadata.Tags = tags

	rows, err := s.db.Query(`
		SELECT id, parent_id, role, text, COALESCE(media,'[]'), COALESCE(tool_calls,'[]'), COALESCE(metadata,'{}'), timestamp
		FROM messages WHERE conversation_id = ?`, id)
	if err != nil {
		return nil, newErr(KindIO, "loading messages", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			msgID, role, text, mediaRaw, toolsRaw, metaRaw string
			parentID                                       sql.NullString
			ts                                              sql.NullString
		)
		if err := rows.Scan(&msgID, &parentID, &role, &text, &mediaRaw, &toolsRaw, &metaRaw, &ts); err != nil {
			return nil, newErr(KindIO, "scanning message row", err)
		}
		msg := &conversation.Message{ID: msgID, Role: conversation.MessageRole(role)}
		if parentID.Valid {
			v := parentID.String
			msg.ParentID = &v
		}
		msg.Content.Text = text
		_ = json.Unmarshal([]byte(mediaRaw), &msg.Content.Media)
		_ = json.Unmarshal([]byte(toolsRaw), &msg.Content.ToolCalls)
		_ = json.Unmarshal([]byte(metaRaw), &msg.Metadata)
		t, err := parseNullTime(ts)
		if err != nil {
			return nil, newErr(KindIO, "parsing message timestamp", err)
		}
		msg.Timestamp = t
		tree.Messages[msg.ID] = msg
	}
	if err := rows.Err(); err != nil {
		return nil, newErr(KindIO, "reading message rows", err)
	}

	return tree, nil
}

func (s *Store) tagsForConversation(id string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT t.name FROM tags t
		JOIN conversation_tags ct ON ct.tag_id = t.id
		WHERE ct.conversation_id = ? ORDER BY t.name`, id)
	if err != nil {
		return nil, newErr(KindIO, "loading tags", err)
	}
	defer rows.Close()
	var tags []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, newErr(KindIO, "scanning tag row", err)
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}

// Delete removes a conversation and all its messages/tags/embeddings
// (cascading via foreign keys).
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return newErr(KindIO, "deleting conversation", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return newErr(KindIO, "checking delete result", err)
	}
	if n == 0 {
		return NotFound(id)
	}
	return nil
}

// UpdateMetadata applies a partial metadata update (title/tags/custom data)
// to an existing conversation, bumping updated_at.
func (s *Store) UpdateMetadata(id string, title *string, tags []string, custom map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return newErr(KindIO, "beginning transaction", err)
	}
	defer tx.Rollback()

	if title != nil {
		if _, err := tx.Exec(`UPDATE conversations SET title = ?, updated_at = ? WHERE id = ?`,
			*title, time.Now().UTC().Format(time.RFC3339Nano), id); err != nil {
			return newErr(KindIO, "updating title", err)
		}
	}
	if custom != nil {
		raw, err := json.Marshal(custom)
		if err != nil {
			return newErr(KindIO, "marshaling custom_data", err)
		}
		if _, err := tx.Exec(`UPDATE conversations SET custom_data = ? WHERE id = ?`, string(raw), id); err != nil {
			return newErr(KindIO, "updating custom_data", err)
		}
	}
	if tags != nil {
		if _, err := tx.Exec(`DELETE FROM conversation_tags WHERE conversation_id = ?`, id); err != nil {
			return newErr(KindIO, "clearing tags", err)
		}
		for _, tag := range tags {
			if err := s.attachTag(tx, id, tag); err != nil {
				return err
			}
		}
	}
	if _, err := tx.Exec(`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), id); err != nil {
		return newErr(KindIO, "bumping updated_at", err)
	}
	if err := tx.Commit(); err != nil {
		return newErr(KindIO, "committing update", err)
	}
	return nil
}

// UpdateOrganization applies a partial update to a conversation's
// project/source/model fields, bumping updated_at. A nil pointer leaves
// the corresponding field untouched.
func (s *Store) UpdateOrganization(id string, project, source, model *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := "updated_at = ?"
	args := []interface{}{time.Now().UTC().Format(time.RFC3339Nano)}
	if project != nil {
		set += ", project = ?"
		args = append(args, *project)
	}
	if source != nil {
		set += ", source = ?"
		args = append(args, *source)
	}
	if model != nil {
		set += ", model = ?"
		args = append(args, *model)
	}
	args = append(args, id)

	res, err := s.db.Exec(fmt.Sprintf(`UPDATE conversations SET %s WHERE id = ?`, set), args...)
	if err != nil {
		return newErr(KindIO, "updating conversation organization metadata", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return newErr(KindIO, "checking update result", err)
	}
	if n == 0 {
		return NotFound(id)
	}
	return nil
}

// AddTags attaches tags to an existing conversation, ignoring any that are
// already present. Returns false if id does not exist.
func (s *Store) AddTags(id string, tags []string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	if err := s.db.QueryRow(`SELECT 1 FROM conversations WHERE id = ?`, id).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, newErr(KindIO, "checking conversation existence", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return false, newErr(KindIO, "beginning transaction", err)
	}
	defer tx.Rollback()

	for _, tag := range tags {
		if err := s.attachTag(tx, id, tag); err != nil {
			return false, err
		}
	}
	if _, err := tx.Exec(`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), id); err != nil {
		return false, newErr(KindIO, "bumping updated_at", err)
	}
	if err := tx.Commit(); err != nil {
		return false, newErr(KindIO, "committing add tags", err)
	}
	return true, nil
}

// RemoveTag detaches a single tag from a conversation. Returns false if
// the conversation didn't carry that tag (or doesn't exist).
func (s *Store) RemoveTag(id, tag string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		DELETE FROM conversation_tags
		WHERE conversation_id = ? AND tag_id = (SELECT id FROM tags WHERE name = ?)`, id, tag)
	if err != nil {
		return false, newErr(KindIO, "removing tag", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, newErr(KindIO, "checking remove result", err)
	}
	if n == 0 {
		return false, nil
	}
	if _, err := s.db.Exec(`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), id); err != nil {
		return false, newErr(KindIO, "bumping updated_at", err)
	}
	return true, nil
}

// TagCount names a tag and, when requested, how many conversations carry
// it.
type TagCount struct {
	Name       string
	UsageCount int
}

// GetAllTags returns every tag known to the store, alphabetically. With
// withCounts, UsageCount reports how many conversations carry each tag;
// otherwise it is left zero and the query skips the join entirely.
func (s *Store) GetAllTags(withCounts bool) ([]TagCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT name FROM tags ORDER BY name`
	if withCounts {
		query = `
			SELECT t.name, COUNT(ct.conversation_id) AS usage_count
			FROM tags t
			LEFT JOIN conversation_tags ct ON ct.tag_id = t.id
			GROUP BY t.id
			ORDER BY t.name`
	}
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, newErr(KindIO, "listing tags", err)
	}
	defer rows.Close()

	var tags []TagCount
	for rows.Next() {
		var tc TagCount
		if withCounts {
			if err := rows.Scan(&tc.Name, &tc.UsageCount); err != nil {
				return nil, newErr(KindIO, "scanning tag row", err)
			}
		} else {
			if err := rows.Scan(&tc.Name); err != nil {
				return nil, newErr(KindIO, "scanning tag row", err)
			}
		}
		tags = append(tags, tc)
	}
	return tags, rows.Err()
}

// ValueCount names a distinct metadata value and how many conversations
// carry it, the shape shared by GetModels and GetSources.
type ValueCount struct {
	Value string
	Count int
}

// GetModels returns every distinct model in use, with conversation
// counts, most-used first.
func (s *Store) GetModels() ([]ValueCount, error) {
	return s.distinctValueCounts("model")
}

// GetSources returns every distinct source in use, with conversation
// counts, most-used first.
func (s *Store) GetSources() ([]ValueCount, error) {
	return s.distinctValueCounts("source")
}

func (s *Store) distinctValueCounts(column string) ([]ValueCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT %s, COUNT(*) AS count FROM conversations
		WHERE %s IS NOT NULL AND %s != ''
		GROUP BY %s ORDER BY count DESC, %s ASC`, column, column, column, column, column))
	if err != nil {
		return nil, newErr(KindIO, fmt.Sprintf("aggregating %s", column), err)
	}
	defer rows.Close()

	var out []ValueCount
	for rows.Next() {
		var vc ValueCount
		if err := rows.Scan(&vc.Value, &vc.Count); err != nil {
			return nil, newErr(KindIO, "scanning aggregate row", err)
		}
		out = append(out, vc)
	}
	return out, rows.Err()
}

// TimelineGranularity buckets GetConversationTimeline entries by calendar
// period.
type TimelineGranularity string

const (
	TimelineDay   TimelineGranularity = "day"
	TimelineWeek  TimelineGranularity = "week"
	TimelineMonth TimelineGranularity = "month"
)

// TimelineEntry is one bucket of GetConversationTimeline: a period label
// (format depends on granularity) and the conversation count created in
// it.
type TimelineEntry struct {
	Period string
	Count  int
}

// GetConversationTimeline buckets conversation creation times by
// granularity, returning the most recent limit buckets.
func (s *Store) GetConversationTimeline(granularity TimelineGranularity, limit int) ([]TimelineEntry, error) {
	if limit <= 0 {
		limit = DefaultTimelineLimit
	}
	var strftimeFormat string
	switch granularity {
	case TimelineDay, "":
		strftimeFormat = "%Y-%m-%d"
	case TimelineWeek:
		strftimeFormat = "%Y-W%W"
	case TimelineMonth:
		strftimeFormat = "%Y-%m"
	default:
		return nil, newErr(KindValidation, fmt.Sprintf("unknown timeline granularity: %s", granularity), nil)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT strftime('%s', created_at) AS period, COUNT(*) AS count
		FROM conversations
		GROUP BY period
		ORDER BY period DESC
		LIMIT ?`, strftimeFormat), limit)
	if err != nil {
		return nil, newErr(KindIO, "computing conversation timeline", err)
	}
	defer rows.Close()

	var entries []TimelineEntry
	for rows.Next() {
		var e TimelineEntry
		if err := rows.Scan(&e.Period, &e.Count); err != nil {
			return nil, newErr(KindIO, "scanning timeline row", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// setOrganizeFlag sets column (one of starred_at/pinned_at/archived_at) to
// now, or clears it to NULL.
func (s *Store) setOrganizeFlag(id, column string, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if on {
		_, err = s.db.Exec(fmt.Sprintf(`UPDATE conversations SET %s = ? WHERE id = ?`, column),
			time.Now().UTC().Format(time.RFC3339Nano), id)
	} else {
		_, err = s.db.Exec(fmt.Sprintf(`UPDATE conversations SET %s = NULL WHERE id = ?`, column), id)
	}
	if err != nil {
		return newErr(KindIO, fmt.Sprintf("setting %s", column), err)
	}
	return nil
}

// SetStarred toggles the starred organization flag.
func (s *Store) SetStarred(id string, starred bool) error { return s.setOrganizeFlag(id, "starred_at", starred) }

// SetPinned toggles the pinned organization flag.
func (s *Store) SetPinned(id string, pinned bool) error { return s.setOrganizeFlag(id, "pinned_at", pinned) }

// SetArchived toggles the archived organization flag.
func (s *Store) SetArchived(id string, archived bool) error {
	return s.setOrganizeFlag(id, "archived_at", archived)
}

// Statistics summarizes the whole store, grounded on ctk/stats.py's
// top-level counters.
type Statistics struct {
	TotalConversations int
	TotalMessages      int
	TotalTags          int
	StarredCount       int
	ArchivedCount      int
}

// Statistics computes store-wide counters.
func (s *Store) Statistics() (Statistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st Statistics
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM conversations`).Scan(&st.TotalConversations); err != nil {
		return st, newErr(KindIO, "counting conversations", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&st.TotalMessages); err != nil {
		return st, newErr(KindIO, "counting messages", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM tags`).Scan(&st.TotalTags); err != nil {
		return st, newErr(KindIO, "counting tags", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM conversations WHERE starred_at IS NOT NULL`).Scan(&st.StarredCount); err != nil {
		return st, newErr(KindIO, "counting starred", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM conversations WHERE archived_at IS NOT NULL`).Scan(&st.ArchivedCount); err != nil {
		return st, newErr(KindIO, "counting archived", err)
	}
	return st, nil
}

// Duplicate clones a conversation under a new ID and a "(copy)"-suffixed
// title, preserving every message, tag, and custom metadata field.
func (s *Store) Duplicate(id string) (*conversation.ConversationTree, error) {
	original, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	clone := conversation.NewConversationTree(original.Title + " (copy)")
	clone.Metadata = original.Metadata

	idMap := make(map[string]string, len(original.Messages))
	for _, msg := range original.Messages {
		idMap[msg.ID] = conversation.NewMessage(msg.Role, "").ID
	}
	for _, msg := range original.Messages {
		copied := *msg
		copied.ID = idMap[msg.ID]
		if msg.ParentID != nil {
			if np, ok := idMap[*msg.ParentID]; ok {
				copied.ParentID = &np
			}
		}
		clone.AddMessage(&copied)
	}

	if err := s.Save(clone); err != nil {
		return nil, err
	}
	return clone, nil
}
