package store

import (
	"time"

	"github.com/queelius/ctk/pkg/conversation"
)

// StreamConversations returns a range-over-func iterator (Go 1.23+) over
// every conversation summary in updated_at-descending order, backed by a
// single held *sql.Rows cursor rather than materializing the whole result
// set. Breaking out of the range loop (or the caller returning false from
// yield) closes the cursor immediately — there is no separate Close call.
func (s *Store) StreamConversations() func(yield func(conversation.ConversationSummary, error) bool) {
	return func(yield func(conversation.ConversationSummary, error) bool) {
		s.mu.RLock()
		rows, err := s.db.Query(`
			SELECT id, slug, title, created_at, updated_at,
			       COALESCE(source,''), COALESCE(model,''), COALESCE(project,''),
			       starred_at, pinned_at, archived_at,
			       (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)
			FROM conversations c ORDER BY updated_at DESC`)
		s.mu.RUnlock()
		if err != nil {
			yield(conversation.ConversationSummary{}, newErr(KindIO, "streaming conversations", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			sum, createdRaw, updatedRaw, starredNS, pinnedNS, archivedNS, scanErr := scanSummaryRow(rows)
			if scanErr != nil {
				yield(conversation.ConversationSummary{}, scanErr)
				return
			}
			if sum.CreatedAt, err = time.Parse(time.RFC3339Nano, createdRaw); err != nil {
				yield(conversation.ConversationSummary{}, newErr(KindIO, "parsing created_at", err))
				return
			}
			if sum.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedRaw); err != nil {
				yield(conversation.ConversationSummary{}, newErr(KindIO, "parsing updated_at", err))
				return
			}
			sum.Starred = starredNS.Valid
			sum.Pinned = pinnedNS.Valid
			sum.Archived = archivedNS.Valid
			if !yield(sum, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(conversation.ConversationSummary{}, newErr(KindIO, "reading streamed rows", err))
		}
	}
}

// StreamSearch streams full-text search matches the same way
// StreamConversations streams the whole table, for callers that want to
// process unbounded result sets without pulling SearchBuffer+limit rows
// into memory up front.
func (s *Store) StreamSearch(query string) func(yield func(conversation.ConversationSummary, error) bool) {
	return func(yield func(conversation.ConversationSummary, error) bool) {
		s.mu.RLock()
		rows, err := s.db.Query(`
			SELECT DISTINCT c.id, c.slug, c.title, c.created_at, c.updated_at,
			       COALESCE(c.source,''), COALESCE(c.model,''), COALESCE(c.project,''),
			       c.starred_at, c.pinned_at, c.archived_at,
			       (SELECT COUNT(*) FROM messages m2 WHERE m2.conversation_id = c.id)
			FROM messages_fts
			JOIN messages msg ON msg.rowid = messages_fts.rowid
			JOIN conversations c ON c.id = msg.conversation_id
			WHERE messages_fts MATCH ?
			ORDER BY bm25(messages_fts) ASC`, query)
		s.mu.RUnlock()
		if err != nil {
			yield(conversation.ConversationSummary{}, newErr(KindIO, "streaming search", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			sum, createdRaw, updatedRaw, starredNS, pinnedNS, archivedNS, scanErr := scanSummaryRow(rows)
			if scanErr != nil {
				yield(conversation.ConversationSummary{}, scanErr)
				return
			}
			if sum.CreatedAt, err = time.Parse(time.RFC3339Nano, createdRaw); err != nil {
				yield(conversation.ConversationSummary{}, newErr(KindIO, "parsing created_at", err))
				return
			}
			if sum.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedRaw); err != nil {
				yield(conversation.ConversationSummary{}, newErr(KindIO, "parsing updated_at", err))
				return
			}
			sum.Starred = starredNS.Valid
			sum.Pinned = pinnedNS.Valid
			sum.Archived = archivedNS.Valid
			if !yield(sum, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(conversation.ConversationSummary{}, newErr(KindIO, "reading streamed search rows", err))
		}
	}
}
