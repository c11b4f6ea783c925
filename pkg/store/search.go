package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/coregx/ahocorasick"

	"github.com/queelius/ctk/pkg/conversation"
	"github.com/queelius/ctk/pkg/validate"
)

// listFilterOptions captures the filter fields ListConversations and
// Search have in common: source/model/project/a single tag/starred/
// pinned/archived all mean the same thing and apply the same way in
// both operations. Archived conversations are excluded by default
// unless Archived explicitly asks for them.
type listFilterOptions struct {
	Source   string
	Model    string
	Project  string
	Tag      string
	Starred  *bool
	Pinned   *bool
	Archived *bool
}

func appendListFilters(query *string, args *[]interface{}, f listFilterOptions) {
	if f.Source != "" {
		*query += " AND c.source = ?"
		*args = append(*args, f.Source)
	}
	if f.Model != "" {
		*query += " AND c.model = ?"
		*args = append(*args, f.Model)
	}
	if f.Project != "" {
		*query += " AND c.project = ?"
		*args = append(*args, f.Project)
	}
	if f.Tag != "" {
		*query += ` AND c.id IN (SELECT ct.conversation_id FROM conversation_tags ct JOIN tags t ON t.id = ct.tag_id WHERE t.name = ?)`
		*args = append(*args, f.Tag)
	}
	if f.Starred != nil {
		if *f.Starred {
			*query += " AND c.starred_at IS NOT NULL"
		} else {
			*query += " AND c.starred_at IS NULL"
		}
	}
	if f.Pinned != nil {
		if *f.Pinned {
			*query += " AND c.pinned_at IS NOT NULL"
		} else {
			*query += " AND c.pinned_at IS NULL"
		}
	}
	if f.Archived != nil && *f.Archived {
		*query += " AND c.archived_at IS NOT NULL"
	} else if f.Archived != nil && !*f.Archived {
		*query += " AND c.archived_at IS NULL"
	} else {
		*query += " AND c.archived_at IS NULL" // default: exclude archived
	}
}

// ListOptions controls ListConversations (C2's "list" operation).
type ListOptions struct {
	Project  string
	Source   string
	Model    string
	Tag      string   // single-tag filter, applied in SQL
	Tags     []string // OR semantics: a conversation matches if it carries any of these tags
	Starred  *bool
	Pinned   *bool
	Archived *bool
	Limit    int
	Offset   int    // limit+offset pagination; ignored when Cursor is set
	Cursor   string // keyset pagination; takes precedence over Offset
}

// ListConversations returns a page of conversation summaries ordered
// pinned-first, then starred-first, then by updated_at descending, ties
// broken by id ascending.
func (s *Store) ListConversations(opts ListOptions) (Paginated[conversation.ConversationSummary], error) {
	if _, err := validate.Integer(opts.Limit, "limit", 1, MaxResultLimit); err != nil {
		return Paginated[conversation.ConversationSummary]{}, newErr(KindValidation, err.Error(), err)
	}

	cursorPinned, cursorStarred, cursorKey, cursorID, err := DecodeCursor(opts.Cursor)
	if err != nil {
		return Paginated[conversation.ConversationSummary]{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT c.id, c.slug, c.title, c.created_at, c.updated_at, c.source, c.model, c.project,
		       c.starred_at, c.pinned_at, c.archived_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id) AS message_count
		FROM conversations c WHERE 1=1`
	var args []interface{}

	appendListFilters(&query, &args, listFilterOptions{
		Project: opts.Project, Source: opts.Source, Model: opts.Model, Tag: opts.Tag,
		Starred: opts.Starred, Pinned: opts.Pinned, Archived: opts.Archived,
	})

	if opts.Cursor != "" {
		pr, sr := boolToInt(!cursorPinned), boolToInt(!cursorStarred)
		query += ` AND (
			(c.pinned_at IS NULL) > ?
			OR ((c.pinned_at IS NULL) = ? AND (c.starred_at IS NULL) > ?)
			OR ((c.pinned_at IS NULL) = ? AND (c.starred_at IS NULL) = ? AND c.updated_at < ?)
			OR ((c.pinned_at IS NULL) = ? AND (c.starred_at IS NULL) = ? AND c.updated_at = ? AND c.id > ?)
		)`
		args = append(args, pr, pr, sr, pr, sr, cursorKey, pr, sr, cursorKey, cursorID)
	}
	query += " ORDER BY (c.pinned_at IS NULL) ASC, (c.starred_at IS NULL) ASC, c.updated_at DESC, c.id ASC"

	if opts.Cursor == "" && opts.Offset > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit+1, opts.Offset)
	} else {
		query += " LIMIT ?"
		args = append(args, opts.Limit+1) // fetch one extra to know if there's a next page
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return Paginated[conversation.ConversationSummary]{}, newErr(KindIO, "listing conversations", err)
	}
	defer rows.Close()

	var summaries []conversation.ConversationSummary
	for rows.Next() {
		sum, createdRaw, updatedRaw, starredNS, pinnedNS, archivedNS, err := scanSummaryRow(rows)
		if err != nil {
			return Paginated[conversation.ConversationSummary]{}, err
		}
		if sum.CreatedAt, err = time.Parse(time.RFC3339Nano, createdRaw); err != nil {
			return Paginated[conversation.ConversationSummary]{}, newErr(KindIO, "parsing created_at", err)
		}
		if sum.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedRaw); err != nil {
			return Paginated[conversation.ConversationSummary]{}, newErr(KindIO, "parsing updated_at", err)
		}
		sum.Starred = starredNS.Valid
		sum.Pinned = pinnedNS.Valid
		sum.Archived = archivedNS.Valid
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return Paginated[conversation.ConversationSummary]{}, newErr(KindIO, "reading conversation rows", err)
	}

	if len(opts.Tags) > 0 {
		summaries, err = s.filterByTags(summaries, opts.Tags)
		if err != nil {
			return Paginated[conversation.ConversationSummary]{}, err
		}
	}

	hasMore := len(summaries) > opts.Limit
	var next string
	if hasMore {
		last := summaries[opts.Limit-1]
		next = EncodeCursor(last.Pinned, last.Starred, last.UpdatedAt.Format(time.RFC3339Nano), last.ID)
		summaries = summaries[:opts.Limit]
	}

	return Paginated[conversation.ConversationSummary]{Items: summaries, NextCursor: next, HasMore: hasMore}, nil
}

func scanSummaryRow(rows *sql.Rows) (sum conversation.ConversationSummary, createdRaw, updatedRaw string, starredNS, pinnedNS, archivedNS sql.NullString, err error) {
	var source, model, project sql.NullString
	err = rows.Scan(&sum.ID, &sum.Slug, &sum.Title, &createdRaw, &updatedRaw, &source, &model, &project,
		&starredNS, &pinnedNS, &archivedNS, &sum.MessageCount)
	if err != nil {
		err = newErr(KindIO, "scanning conversation row", err)
		return
	}
	sum.Metadata = conversation.ConversationMetadata{Source: source.String, Model: model.String, Project: project.String}
	return
}

// filterByTags applies an OR filter over each summary's tag set using an
// Aho-Corasick automaton built from opts.Tags, avoiding an O(n*m) nested
// substring-style scan when the filter list is large. Tags are matched as
// whole tokens (each wrapped in sentinel separators, then concatenated)
// rather than substrings.
func (s *Store) filterByTags(summaries []conversation.ConversationSummary, tags []string) ([]conversation.ConversationSummary, error) {
	automaton, err := ahocorasick.NewBuilder().
		AddStrings(wrapTags(tags)).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, newErr(KindIO, "building tag matcher", err)
	}

	var out []conversation.ConversationSummary
	for _, sum := range summaries {
		convTags, err := s.tagsForConversation(sum.ID)
		if err != nil {
			return nil, err
		}
		haystack := []byte(strings.Join(wrapTags(convTags), ""))
		if len(automaton.FindAllOverlapping(haystack)) > 0 {
			sum.Metadata.Tags = convTags
			out = append(out, sum)
		}
	}
	return out, nil
}

// wrapTags wraps each tag with sentinel delimiters so Aho-Corasick whole-
// tag matches can't be fooled by one tag being a substring of another
// (e.g. "go" inside "golang").
func wrapTags(tags []string) []string {
	wrapped := make([]string, len(tags))
	for i, t := range tags {
		wrapped[i] = "\x00" + t + "\x00"
	}
	return wrapped
}

// SearchOptions controls Search (C2's "search" operation): a full-text
// query plus the structural and list-style filters search_conversations
// supports alongside it.
type SearchOptions struct {
	Query       string
	TitleOnly   bool // mutually exclusive with ContentOnly
	ContentOnly bool
	DateFrom    *time.Time
	DateTo      *time.Time
	MinMessages *int
	MaxMessages *int
	HasBranches *bool
	OrderBy     string // one of "" (relevance), "created_at", "updated_at", "title", "relevance"
	Ascending   bool

	Project  string
	Source   string
	Model    string
	Tag      string
	Tags     []string
	Starred  *bool
	Pinned   *bool
	Archived *bool

	Limit int
}

// Search runs a full-text query over titles and message bodies (or just
// one of them, per TitleOnly/ContentOnly), applies the same structural
// and list-style filters list_conversations supports, and orders the
// result per OrderBy/Ascending. An empty Query searches on filters alone.
// A Limit above DefaultSearchLimit is capped to DefaultSearchLimit, so no
// page holds more than DefaultSearchLimit items. Internally over-fetches
// the capped limit plus SearchBuffer rows (and one more, to set HasMore)
// before truncating to the capped limit.
func (s *Store) Search(opts SearchOptions) (Paginated[conversation.ConversationSummary], error) {
	if opts.TitleOnly && opts.ContentOnly {
		err := fmt.Errorf("'title_only' and 'content_only' are mutually exclusive")
		return Paginated[conversation.ConversationSummary]{}, newErr(KindValidation, err.Error(), err)
	}
	if err := validate.String(&opts.Query, "query", MaxQueryLength, false); err != nil {
		return Paginated[conversation.ConversationSummary]{}, newErr(KindValidation, err.Error(), err)
	}
	if _, err := validate.Integer(opts.Limit, "limit", 1, MaxResultLimit); err != nil {
		return Paginated[conversation.ConversationSummary]{}, newErr(KindValidation, err.Error(), err)
	}

	limit := opts.Limit
	if limit > DefaultSearchLimit {
		limit = DefaultSearchLimit
	}
	fetchLimit := limit + SearchBuffer

	hasRank := opts.Query != ""
	orderClause, err := searchOrderClause(opts.OrderBy, opts.Ascending, hasRank)
	if err != nil {
		return Paginated[conversation.ConversationSummary]{}, newErr(KindValidation, err.Error(), err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var query string
	var args []interface{}

	if opts.Query == "" {
		query = `
			SELECT c.id, c.slug, c.title, c.created_at, c.updated_at, c.source, c.model, c.project,
			       c.starred_at, c.pinned_at, c.archived_at,
			       (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id) AS message_count
			FROM conversations c WHERE 1=1`
	} else {
		query = `
			WITH matches AS (`
		switch {
		case opts.TitleOnly:
			query += `
				SELECT c.id AS id, 0.0 AS rank FROM conversations c WHERE c.title LIKE '%' || ? || '%'`
			args = append(args, opts.Query)
		case opts.ContentOnly:
			query += `
				SELECT m.conversation_id AS id, bm25(messages_fts) AS rank
				FROM messages_fts JOIN messages m ON m.rowid = messages_fts.rowid
				WHERE messages_fts MATCH ?`
			args = append(args, opts.Query)
		default:
			query += `
				SELECT c.id AS id, (0.0 - ?) AS rank FROM conversations c WHERE c.title LIKE '%' || ? || '%'
				UNION ALL
				SELECT m.conversation_id AS id, bm25(messages_fts) AS rank
				FROM messages_fts JOIN messages m ON m.rowid = messages_fts.rowid
				WHERE messages_fts MATCH ?`
			args = append(args, TitleMatchBoost, opts.Query, opts.Query)
		}
		query += `
			)
			SELECT c.id, c.slug, c.title, c.created_at, c.updated_at, c.source, c.model, c.project,
			       c.starred_at, c.pinned_at, c.archived_at,
			       (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id) AS message_count
			FROM conversations c
			JOIN (SELECT id, MIN(rank) AS rank FROM matches GROUP BY id) mt ON mt.id = c.id
			WHERE 1=1`
	}

	appendListFilters(&query, &args, listFilterOptions{
		Project: opts.Project, Source: opts.Source, Model: opts.Model, Tag: opts.Tag,
		Starred: opts.Starred, Pinned: opts.Pinned, Archived: opts.Archived,
	})
	if opts.DateFrom != nil {
		query += " AND c.created_at >= ?"
		args = append(args, opts.DateFrom.UTC().Format(time.RFC3339Nano))
	}
	if opts.DateTo != nil {
		query += " AND c.created_at <= ?"
		args = append(args, opts.DateTo.UTC().Format(time.RFC3339Nano))
	}
	if opts.MinMessages != nil {
		query += " AND (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id) >= ?"
		args = append(args, *opts.MinMessages)
	}
	if opts.MaxMessages != nil {
		query += " AND (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id) <= ?"
		args = append(args, *opts.MaxMessages)
	}
	if opts.HasBranches != nil {
		branchPred := `EXISTS (
			SELECT 1 FROM messages mb WHERE mb.conversation_id = c.id AND mb.parent_id IS NOT NULL
			GROUP BY mb.parent_id HAVING COUNT(*) > 1
		)`
		if *opts.HasBranches {
			query += " AND " + branchPred
		} else {
			query += " AND NOT " + branchPred
		}
	}

	query += " ORDER BY " + orderClause + " LIMIT ?"
	args = append(args, fetchLimit+1)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return Paginated[conversation.ConversationSummary]{}, newErr(KindIO, "searching conversations", err)
	}
	defer rows.Close()

	var summaries []conversation.ConversationSummary
	for rows.Next() {
		sum, createdRaw, updatedRaw, starredNS, pinnedNS, archivedNS, err := scanSummaryRow(rows)
		if err != nil {
			return Paginated[conversation.ConversationSummary]{}, err
		}
		if sum.CreatedAt, err = time.Parse(time.RFC3339Nano, createdRaw); err != nil {
			return Paginated[conversation.ConversationSummary]{}, newErr(KindIO, "parsing created_at", err)
		}
		if sum.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedRaw); err != nil {
			return Paginated[conversation.ConversationSummary]{}, newErr(KindIO, "parsing updated_at", err)
		}
		sum.Starred = starredNS.Valid
		sum.Pinned = pinnedNS.Valid
		sum.Archived = archivedNS.Valid
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return Paginated[conversation.ConversationSummary]{}, newErr(KindIO, "reading search rows", err)
	}

	if len(opts.Tags) > 0 {
		summaries, err = s.filterByTags(summaries, opts.Tags)
		if err != nil {
			return Paginated[conversation.ConversationSummary]{}, err
		}
	}

	hasMore := len(summaries) > limit
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}

	return Paginated[conversation.ConversationSummary]{Items: summaries, HasMore: hasMore}, nil
}

// searchOrderClause validates order_by and renders it plus tiebreak into a
// SQL ORDER BY fragment. "relevance" sorts by the matches CTE's bm25-
// derived rank, where lower is a better match; Ascending there means
// worst-match-first rather than a literal numeric ascending sort, the
// inverse of its meaning for the other fields.
func searchOrderClause(orderBy string, ascending bool, hasRank bool) (string, error) {
	dir := "DESC"
	if ascending {
		dir = "ASC"
	}
	switch orderBy {
	case "", "relevance":
		if !hasRank {
			return "c.updated_at " + dir + ", c.id ASC", nil
		}
		rankDir := "ASC"
		if ascending {
			rankDir = "DESC"
		}
		return "rank " + rankDir + ", c.id ASC", nil
	case "created_at":
		return "c.created_at " + dir + ", c.id ASC", nil
	case "updated_at":
		return "c.updated_at " + dir + ", c.id ASC", nil
	case "title":
		return "c.title " + dir + ", c.id ASC", nil
	default:
		return "", fmt.Errorf("unknown order_by: %s", orderBy)
	}
}
