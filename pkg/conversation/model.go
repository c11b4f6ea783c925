// Package conversation implements the core conversation data model: a tree
// of messages rooted at zero or more top-level entries, with metadata,
// tool calls, and multi-modal content attachments.
package conversation

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MessageRole identifies who produced a message.
type MessageRole string

const (
	RoleSystem     MessageRole = "system"
	RoleUser       MessageRole = "user"
	RoleAssistant  MessageRole = "assistant"
	RoleTool       MessageRole = "tool"
	RoleFunction   MessageRole = "function"
	RoleToolResult MessageRole = "tool_result"
)

// roleAliases mirrors ctk.core.models.MessageRole.from_string's alias table:
// the canonical variant names (so "system"/"user"/... resolve to
// themselves) plus the platform-specific aliases it maps explicitly.
var roleAliases = map[string]MessageRole{
	"system":        RoleSystem,
	"user":          RoleUser,
	"assistant":     RoleAssistant,
	"tool":          RoleTool,
	"function":      RoleFunction,
	"tool_result":   RoleToolResult,
	"human":         RoleUser,
	"ai":            RoleAssistant,
	"claude":        RoleAssistant,
	"gpt":           RoleAssistant,
	"chatgpt":       RoleAssistant,
	"bot":           RoleAssistant,
	"model":         RoleAssistant,
	"tool_use":      RoleTool,
	"function_call": RoleFunction,
}

// RoleFromString resolves a free-form role string to a MessageRole, falling
// back to RoleUser for anything unrecognized (including the empty string),
// mirroring ctk.core.models.MessageRole.from_string's default.
func RoleFromString(s string) MessageRole {
	if r, ok := roleAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return r
	}
	return RoleUser
}

// ContentType identifies the kind of payload a MessageContent block or
// MediaContent attachment carries.
type ContentType string

const (
	ContentText     ContentType = "text"
	ContentImage    ContentType = "image"
	ContentAudio    ContentType = "audio"
	ContentVideo    ContentType = "video"
	ContentFile     ContentType = "file"
	ContentToolCall ContentType = "tool_call"
	ContentToolResp ContentType = "tool_response"
)

// MediaContent represents a single non-text attachment (image, audio,
// video, or arbitrary file), referenced either inline (base64 Data) or by
// URL.
type MediaContent struct {
	Type     ContentType `json:"type"`
	MimeType string      `json:"mime_type,omitempty"`
	URL      string      `json:"url,omitempty"`
	Data     string      `json:"data,omitempty"`
	Filename string      `json:"filename,omitempty"`
}

// ToolCall captures a single function/tool invocation requested within a
// message, and its result once resolved.
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
	Result    string                 `json:"result,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// NewToolCall allocates a ToolCall with a fresh ID.
func NewToolCall(name string, args map[string]interface{}) *ToolCall {
	return &ToolCall{ID: uuid.NewString(), Name: name, Arguments: args}
}

// MessageContent is the structured body of a message: a single text
// field, media attachments, and tool calls. GetText returns the text
// field; role-weighted extraction for embeddings lives in pkg/embedding.
type MessageContent struct {
	Text      string         `json:"text,omitempty"`
	Media     []MediaContent `json:"media,omitempty"`
	ToolCalls []ToolCall     `json:"tool_calls,omitempty"`
}

// GetText returns the plain-text portion of the content, trimmed.
func (c MessageContent) GetText() string {
	return strings.TrimSpace(c.Text)
}

// IsEmpty reports whether the content carries no text, media, or tool
// calls.
func (c MessageContent) IsEmpty() bool {
	return strings.TrimSpace(c.Text) == "" && len(c.Media) == 0 && len(c.ToolCalls) == 0
}

// Message is a single node in a ConversationTree.
type Message struct {
	ID        string          `json:"id"`
	ParentID  *string         `json:"parent_id,omitempty"`
	Role      MessageRole     `json:"role"`
	Content   MessageContent  `json:"content"`
	Timestamp *time.Time      `json:"timestamp,omitempty"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
}

// NewMessage builds a Message with a fresh ID and no parent.
func NewMessage(role MessageRole, text string) *Message {
	return &Message{ID: uuid.NewString(), Role: role, Content: MessageContent{Text: text}}
}

// ConversationMetadata holds the free-form and well-known attributes of a
// conversation: source, model, project, tags, and arbitrary custom data.
type ConversationMetadata struct {
	Source     string         `json:"source,omitempty"`
	Model      string         `json:"model,omitempty"`
	Project    string         `json:"project,omitempty"`
	Tags       []string       `json:"tags,omitempty"`
	CustomData map[string]any `json:"custom_data,omitempty"`
}

// MetadataFromDict builds ConversationMetadata from a loosely-typed map, accepting
// both the current "custom_data" key and the legacy "custom" key for
// backward compatibility with older exports.
func MetadataFromDict(d map[string]any) ConversationMetadata {
	m := ConversationMetadata{}
	if v, ok := d["source"].(string); ok {
		m.Source = v
	}
	if v, ok := d["model"].(string); ok {
		m.Model = v
	}
	if v, ok := d["project"].(string); ok {
		m.Project = v
	}
	if v, ok := d["tags"].([]string); ok {
		m.Tags = v
	}
	if v, ok := d["custom_data"].(map[string]any); ok {
		m.CustomData = v
	} else if v, ok := d["custom"].(map[string]any); ok {
		m.CustomData = v
	}
	return m
}

// ConversationSummary is the lightweight projection of a conversation used
// by list/search results, carrying no message bodies.
type ConversationSummary struct {
	ID           string                `json:"id"`
	Slug         string                `json:"slug"`
	Title        string                `json:"title"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	MessageCount int                   `json:"message_count"`
	Metadata     ConversationMetadata  `json:"metadata"`
	Starred      bool                  `json:"starred"`
	Pinned       bool                  `json:"pinned"`
	Archived     bool                  `json:"archived"`
}

// ConversationTree is the full in-memory representation of one
// conversation: every message, indexed by ID, plus the ordered set of root
// message IDs.
type ConversationTree struct {
	ID              string
	Title           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Metadata        ConversationMetadata
	Messages        map[string]*Message
	RootMessageIDs  []string

	pathsCache     [][]string
	pathsCacheHash string
}

// NewConversationTree creates an empty tree with a fresh ID.
func NewConversationTree(title string) *ConversationTree {
	now := time.Now().UTC()
	return &ConversationTree{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  make(map[string]*Message),
	}
}

// AddMessage inserts msg into the tree, registering it as a root if it has
// no parent (or its parent is absent) and isn't already present in
// RootMessageIDs — mirrors ctk.core.models.ConversationTree.add_message's
// duplicate-root guard.
func (t *ConversationTree) AddMessage(msg *Message) {
	t.Messages[msg.ID] = msg
	t.invalidatePathsCache()

	if msg.ParentID == nil {
		t.addRootIfAbsent(msg.ID)
		return
	}
	if _, ok := t.Messages[*msg.ParentID]; !ok {
		t.addRootIfAbsent(msg.ID)
	}
}

func (t *ConversationTree) addRootIfAbsent(id string) {
	for _, r := range t.RootMessageIDs {
		if r == id {
			return
		}
	}
	t.RootMessageIDs = append(t.RootMessageIDs, id)
}

func (t *ConversationTree) invalidatePathsCache() {
	t.pathsCache = nil
	t.pathsCacheHash = ""
}

// GetChildren returns the direct children of id, ordered by timestamp
// ascending with messages carrying no timestamp sorted last. Children are
// collected from the Messages map before the stable sort, so the relative
// order of children with equal timestamps (or with no timestamp at all)
// follows map iteration and is not defined; insertion order is not kept.
func (t *ConversationTree) GetChildren(id string) []*Message {
	var children []*Message
	for _, m := range t.Messages {
		if m.ParentID != nil && *m.ParentID == id {
			children = append(children, m)
		}
	}
	sort.SliceStable(children, func(i, j int) bool {
		a, b := children[i].Timestamp, children[j].Timestamp
		switch {
		case a == nil && b == nil:
			return false
		case a == nil:
			return false // missing timestamps sort last
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return children
}

// MaxPathDepth bounds recursive path enumeration; exceeding it returns
// ErrPathTooDeep rather than risking unbounded recursion on malformed or
// cyclic data.
const MaxPathDepth = 10000

// ErrPathTooDeep is returned by GetAllPaths/GetLongestPath when a path
// would exceed MaxPathDepth messages.
type ErrPathTooDeep struct{ RootID string }

func (e ErrPathTooDeep) Error() string {
	return "path from root " + e.RootID + " exceeds maximum depth of " + strconv.Itoa(MaxPathDepth)
}

// GetAllPaths enumerates every root-to-leaf path in the tree, each as an
// ordered slice of message IDs. Results are cached until the next mutation.
func (t *ConversationTree) GetAllPaths() ([][]string, error) {
	if t.pathsCache != nil && t.pathsCacheHash == t.fingerprint() {
		return t.pathsCache, nil
	}
	var all [][]string
	for _, rootID := range t.RootMessageIDs {
		paths, err := t.pathsFrom(rootID, []string{}, 0)
		if err != nil {
			if deep, ok := err.(ErrPathTooDeep); ok {
				deep.RootID = rootID
				return nil, deep
			}
			return nil, err
		}
		all = append(all, paths...)
	}
	t.pathsCache = all
	t.pathsCacheHash = t.fingerprint()
	return all, nil
}

func (t *ConversationTree) pathsFrom(id string, prefix []string, depth int) ([][]string, error) {
	if depth >= MaxPathDepth {
		return nil, ErrPathTooDeep{RootID: id}
	}
	path := append(append([]string{}, prefix...), id)
	children := t.GetChildren(id)
	if len(children) == 0 {
		return [][]string{path}, nil
	}
	var all [][]string
	for _, c := range children {
		sub, err := t.pathsFrom(c.ID, path, depth+1)
		if err != nil {
			return nil, err
		}
		all = append(all, sub...)
	}
	return all, nil
}

// GetLongestPath returns the path with the most messages, or nil if the
// tree has no messages.
func (t *ConversationTree) GetLongestPath() ([]string, error) {
	paths, err := t.GetAllPaths()
	if err != nil {
		return nil, err
	}
	var longest []string
	for _, p := range paths {
		if len(p) > len(longest) {
			longest = p
		}
	}
	return longest, nil
}

// GetLinearHistory walks parent pointers from leafID up to its root and
// returns the resulting root-to-leaf id sequence. An empty leafID falls
// back to GetLongestPath; a leafID absent from the tree yields an empty
// (nil) history rather than an error.
func (t *ConversationTree) GetLinearHistory(leafID string) ([]string, error) {
	if leafID == "" {
		return t.GetLongestPath()
	}
	var history []string
	for current := leafID; current != ""; {
		msg, ok := t.Messages[current]
		if !ok {
			break
		}
		history = append(history, current)
		if msg.ParentID == nil {
			break
		}
		current = *msg.ParentID
	}
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}
	return history, nil
}

// CountBranches returns the number of messages with more than one child.
func (t *ConversationTree) CountBranches() int {
	n := 0
	for id := range t.Messages {
		if len(t.GetChildren(id)) > 1 {
			n++
		}
	}
	return n
}

// fingerprint returns a structural hash of the tree (message IDs + parent
// links), used to detect whether a cached paths slice is stale even if the
// caller forgot to invalidate it explicitly.
func (t *ConversationTree) fingerprint() string {
	ids := make([]string, 0, len(t.Messages))
	for id := range t.Messages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	h := sha256.New()
	for _, id := range ids {
		h.Write([]byte(id))
		if p := t.Messages[id].ParentID; p != nil {
			h.Write([]byte(*p))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
