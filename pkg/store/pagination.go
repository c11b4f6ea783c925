package store

import (
	"encoding/base64"
	"encoding/json"
)

// Paginated is the generic result carrier (C10): a page of items plus an
// opaque cursor for fetching the next page, or an empty cursor when the
// caller has reached the end.
type Paginated[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
	Total      *int   `json:"total,omitempty"`
}

type cursorEnvelope struct {
	Pinned  bool   `json:"p"` // whether the last item was pinned
	Starred bool   `json:"s"` // whether the last item was starred
	Key     string `json:"k"` // ordering key (e.g. updated_at) of the last item
	ID      string `json:"i"` // tiebreaker id of the last item
}

// EncodeCursor builds an opaque cursor from the last item's pinned/starred
// rank, ordering key, and id — the full tuple ListConversations sorts by,
// so resuming from it reproduces the same ordering exactly.
func EncodeCursor(pinned, starred bool, key, id string) string {
	raw, _ := json.Marshal(cursorEnvelope{Pinned: pinned, Starred: starred, Key: key, ID: id})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses an opaque cursor previously returned by
// EncodeCursor, returning a KindValidation *Error on malformed input.
func DecodeCursor(cursor string) (pinned, starred bool, key, id string, err error) {
	if cursor == "" {
		return false, false, "", "", nil
	}
	raw, decErr := base64.RawURLEncoding.DecodeString(cursor)
	if decErr != nil {
		return false, false, "", "", newErr(KindValidation, "malformed cursor", decErr)
	}
	var env cursorEnvelope
	if jsonErr := json.Unmarshal(raw, &env); jsonErr != nil {
		return false, false, "", "", newErr(KindValidation, "malformed cursor", jsonErr)
	}
	return env.Pinned, env.Starred, env.Key, env.ID, nil
}
