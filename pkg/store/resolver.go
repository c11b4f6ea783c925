package store

import (
	"database/sql"

	"github.com/queelius/ctk/pkg/validate"
)

// ResolveIdentifier resolves a user-supplied identifier — a full id, a
// slug, or an unambiguous prefix of either — to the full conversation id
// (C8). It never loads a full ConversationTree: resolution goes through
// the id/slug indexes only.
func (s *Store) ResolveIdentifier(ident string) (string, error) {
	if err := validate.String(&ident, "identifier", MaxIDLength, true); err != nil {
		return "", newErr(KindValidation, err.Error(), err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var id string
	err := s.db.QueryRow(`SELECT id FROM conversations WHERE id = ? OR slug = ?`, ident, ident).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", newErr(KindIO, "resolving identifier", err)
	}

	rows, err := s.db.Query(`
		SELECT id FROM conversations
		WHERE id LIKE ? || '%' OR slug LIKE ? || '%'
		LIMIT ?`, ident, ident, AmbiguityCheckLimit+1)
	if err != nil {
		return "", newErr(KindIO, "resolving identifier prefix", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var candidate string
		if err := rows.Scan(&candidate); err != nil {
			return "", newErr(KindIO, "scanning identifier match", err)
		}
		matches = append(matches, candidate)
	}
	if err := rows.Err(); err != nil {
		return "", newErr(KindIO, "reading identifier matches", err)
	}

	switch len(matches) {
	case 0:
		return "", NotFound(ident)
	case 1:
		return matches[0], nil
	default:
		return "", Ambiguous(ident, matches)
	}
}
