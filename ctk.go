// Package ctk is the library entrypoint: a fluent API over pkg/store and
// pkg/conversation (Config also carries a pkg/embedding Config), mirroring
// ctk/api.py's CTK/ConversationBuilder/SearchBuilder/QueryBuilder shape.
package ctk

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/queelius/ctk/pkg/conversation"
	"github.com/queelius/ctk/pkg/store"
)

// CTK is the top-level handle on an open database.
type CTK struct {
	db  *store.Store
	log *logrus.Entry
}

// Open opens (creating if absent) a database at path and initializes
// logging per cfg.
func Open(path string, cfg Config) (*CTK, error) {
	InitLogging(cfg.Logging)
	db, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	return &CTK{db: db, log: logrus.WithField("component", "ctk")}, nil
}

// DB exposes the underlying store for callers that need operations this
// fluent layer doesn't wrap directly.
func (c *CTK) DB() *store.Store { return c.db }

// Close releases the underlying database handle.
func (c *CTK) Close() error { return c.db.Close() }

// Conversation starts a ConversationBuilder for a new conversation titled
// title.
func (c *CTK) Conversation(title string) *ConversationBuilder {
	return &ConversationBuilder{ctk: c, tree: conversation.NewConversationTree(title)}
}

// Get resolves ident (id, slug, or unambiguous prefix) and loads the full
// conversation.
func (c *CTK) Get(ident string) (*conversation.ConversationTree, error) {
	id, err := c.db.ResolveIdentifier(ident)
	if err != nil {
		return nil, err
	}
	return c.db.Load(id)
}

// Delete resolves ident and removes the conversation.
func (c *CTK) Delete(ident string) error {
	id, err := c.db.ResolveIdentifier(ident)
	if err != nil {
		return err
	}
	return c.db.Delete(id)
}

// Search starts a SearchBuilder for a full-text query.
func (c *CTK) Search(query string) *SearchBuilder {
	return &SearchBuilder{ctk: c, opts: store.SearchOptions{Query: query, Limit: store.DefaultSearchLimit}}
}

// Query starts a QueryBuilder for structured listing/filtering.
func (c *CTK) Query() *QueryBuilder {
	return &QueryBuilder{ctk: c, opts: store.ListOptions{Limit: store.DefaultSearchLimit}}
}

// Stats returns store-wide statistics.
func (c *CTK) Stats() (store.Statistics, error) {
	return c.db.Statistics()
}

// ConversationBuilder incrementally assembles a ConversationTree before
// persisting it, mirroring ctk.api.ConversationBuilder's
// system/user/assistant/branch chain.
type ConversationBuilder struct {
	ctk    *CTK
	tree   *conversation.ConversationTree
	lastID *string
}

// System appends a system message under the current branch point.
func (b *ConversationBuilder) System(text string) *ConversationBuilder {
	return b.add(conversation.RoleSystem, text)
}

// User appends a user message under the current branch point.
func (b *ConversationBuilder) User(text string) *ConversationBuilder {
	return b.add(conversation.RoleUser, text)
}

// Assistant appends an assistant message under the current branch point.
func (b *ConversationBuilder) Assistant(text string) *ConversationBuilder {
	return b.add(conversation.RoleAssistant, text)
}

func (b *ConversationBuilder) add(role conversation.MessageRole, text string) *ConversationBuilder {
	msg := conversation.NewMessage(role, text)
	msg.ParentID = b.lastID
	b.tree.AddMessage(msg)
	id := msg.ID
	b.lastID = &id
	return b
}

// Branch returns the builder to parentMsgID as the point new messages
// attach under, enabling alternate continuations of the same tree.
func (b *ConversationBuilder) Branch(parentMsgID string) *ConversationBuilder {
	b.lastID = &parentMsgID
	return b
}

// WithTags sets the conversation's tags.
func (b *ConversationBuilder) WithTags(tags ...string) *ConversationBuilder {
	b.tree.Metadata.Tags = tags
	return b
}

// WithMetadata merges custom metadata into the conversation.
func (b *ConversationBuilder) WithMetadata(data map[string]any) *ConversationBuilder {
	if b.tree.Metadata.CustomData == nil {
		b.tree.Metadata.CustomData = make(map[string]any)
	}
	for k, v := range data {
		b.tree.Metadata.CustomData[k] = v
	}
	return b
}

// Build persists the assembled tree and returns it.
func (b *ConversationBuilder) Build() (*conversation.ConversationTree, error) {
	if err := b.ctk.db.Save(b.tree); err != nil {
		return nil, err
	}
	return b.tree, nil
}

// SearchBuilder configures and runs a full-text search.
type SearchBuilder struct {
	ctk  *CTK
	opts store.SearchOptions
}

// Limit caps the number of results.
func (s *SearchBuilder) Limit(n int) *SearchBuilder {
	s.opts.Limit = n
	return s
}

// TitleOnly restricts matching to conversation titles.
func (s *SearchBuilder) TitleOnly() *SearchBuilder {
	s.opts.TitleOnly = true
	return s
}

// ContentOnly restricts matching to message content.
func (s *SearchBuilder) ContentOnly() *SearchBuilder {
	s.opts.ContentOnly = true
	return s
}

// Between restricts results to conversations created within [from, to].
// Either bound may be the zero time to leave it open.
func (s *SearchBuilder) Between(from, to time.Time) *SearchBuilder {
	if !from.IsZero() {
		s.opts.DateFrom = &from
	}
	if !to.IsZero() {
		s.opts.DateTo = &to
	}
	return s
}

// MessageCountBetween restricts results to conversations with a message
// count in [min, max]. Either bound may be negative to leave it open.
func (s *SearchBuilder) MessageCountBetween(min, max int) *SearchBuilder {
	if min >= 0 {
		s.opts.MinMessages = &min
	}
	if max >= 0 {
		s.opts.MaxMessages = &max
	}
	return s
}

// HasBranches restricts results to branching (or, if has is false,
// strictly linear) conversations.
func (s *SearchBuilder) HasBranches(has bool) *SearchBuilder {
	s.opts.HasBranches = &has
	return s
}

// OrderBy sets the result ordering: one of "relevance", "created_at",
// "updated_at", or "title".
func (s *SearchBuilder) OrderBy(field string, ascending bool) *SearchBuilder {
	s.opts.OrderBy = field
	s.opts.Ascending = ascending
	return s
}

// WithTags restricts results to conversations carrying any of tags.
func (s *SearchBuilder) WithTags(tags ...string) *SearchBuilder {
	s.opts.Tags = tags
	return s
}

// Starred restricts results to starred (or, if starred is false,
// not-starred) conversations.
func (s *SearchBuilder) Starred(starred bool) *SearchBuilder {
	s.opts.Starred = &starred
	return s
}

// Pinned restricts results to pinned (or, if pinned is false,
// not-pinned) conversations.
func (s *SearchBuilder) Pinned(pinned bool) *SearchBuilder {
	s.opts.Pinned = &pinned
	return s
}

// Get runs the search and returns a page of results.
func (s *SearchBuilder) Get() (store.Paginated[conversation.ConversationSummary], error) {
	return s.ctk.db.Search(s.opts)
}

// QueryBuilder configures and runs a structured list query.
type QueryBuilder struct {
	ctk  *CTK
	opts store.ListOptions
}

// InProject restricts results to a project.
func (q *QueryBuilder) InProject(project string) *QueryBuilder {
	q.opts.Project = project
	return q
}

// FromSource restricts results to a source.
func (q *QueryBuilder) FromSource(source string) *QueryBuilder {
	q.opts.Source = source
	return q
}

// WithModel restricts results to a model.
func (q *QueryBuilder) WithModel(model string) *QueryBuilder {
	q.opts.Model = model
	return q
}

// WithTag restricts results to conversations carrying tag, applied in SQL.
func (q *QueryBuilder) WithTag(tag string) *QueryBuilder {
	q.opts.Tag = tag
	return q
}

// WithTags restricts results to conversations carrying any of tags.
func (q *QueryBuilder) WithTags(tags ...string) *QueryBuilder {
	q.opts.Tags = tags
	return q
}

// Starred restricts results to starred (or, if starred is false,
// not-starred) conversations.
func (q *QueryBuilder) Starred(starred bool) *QueryBuilder {
	q.opts.Starred = &starred
	return q
}

// Pinned restricts results to pinned (or, if pinned is false,
// not-pinned) conversations.
func (q *QueryBuilder) Pinned(pinned bool) *QueryBuilder {
	q.opts.Pinned = &pinned
	return q
}

// Archived restricts results to archived (or, if archived is false,
// non-archived) conversations. Without this call, archived conversations
// are excluded by default.
func (q *QueryBuilder) Archived(archived bool) *QueryBuilder {
	q.opts.Archived = &archived
	return q
}

// Limit caps the number of results per page.
func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.opts.Limit = n
	return q
}

// Offset skips the first n results; ignored once Cursor is set.
func (q *QueryBuilder) Offset(n int) *QueryBuilder {
	q.opts.Offset = n
	return q
}

// Cursor resumes from a previously returned page's NextCursor.
func (q *QueryBuilder) Cursor(cursor string) *QueryBuilder {
	q.opts.Cursor = cursor
	return q
}

// Get runs the query and returns a page of results.
func (q *QueryBuilder) Get() (store.Paginated[conversation.ConversationSummary], error) {
	return q.ctk.db.ListConversations(q.opts)
}
