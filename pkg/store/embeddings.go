package store

import (
	"database/sql"
	"encoding/binary"
	"math"
	"time"
)

// StoredEmbedding is a single conversation's vector under a given config
// hash, as persisted in the embeddings table.
type StoredEmbedding struct {
	ConversationID string
	ConfigHash     string
	Provider       string
	Vector         []float64
}

func encodeVector(v []float64) []byte {
	buf := make([]byte, len(v)*8)
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float64 {
	v := make([]float64, len(buf)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return v
}

// SaveEmbedding upserts a conversation's embedding under the given config
// hash.
func (s *Store) SaveEmbedding(e StoredEmbedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO embeddings (conversation_id, config_hash, provider, dims, vector, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(conversation_id, config_hash) DO UPDATE SET
			provider = excluded.provider, dims = excluded.dims, vector = excluded.vector, created_at = excluded.created_at`,
		e.ConversationID, e.ConfigHash, e.Provider, len(e.Vector), encodeVector(e.Vector),
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return newErr(KindIO, "saving embedding", err)
	}
	return nil
}

// GetEmbedding fetches a single conversation's embedding under configHash.
func (s *Store) GetEmbedding(conversationID, configHash string) (*StoredEmbedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var provider string
	var raw []byte
	err := s.db.QueryRow(`SELECT provider, vector FROM embeddings WHERE conversation_id = ? AND config_hash = ?`,
		conversationID, configHash).Scan(&provider, &raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, newErr(KindIO, "loading embedding", err)
	}
	return &StoredEmbedding{ConversationID: conversationID, ConfigHash: configHash, Provider: provider, Vector: decodeVector(raw)}, nil
}

// GetAllEmbeddings returns every stored embedding under configHash, for
// brute-force similarity fallback when no cached similarity row exists.
func (s *Store) GetAllEmbeddings(configHash string) ([]StoredEmbedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT conversation_id, provider, vector FROM embeddings WHERE config_hash = ?`, configHash)
	if err != nil {
		return nil, newErr(KindIO, "loading embeddings", err)
	}
	defer rows.Close()

	var out []StoredEmbedding
	for rows.Next() {
		var e StoredEmbedding
		var raw []byte
		if err := rows.Scan(&e.ConversationID, &e.Provider, &raw); err != nil {
			return nil, newErr(KindIO, "scanning embedding row", err)
		}
		e.ConfigHash = configHash
		e.Vector = decodeVector(raw)
		out = append(out, e)
	}
	return out, rows.Err()
}

// canonicalPair orders two ids so (a, b) and (b, a) key the same cache row.
func canonicalPair(a, b string) (string, string) {
	if a <= b {
		return a, b
	}
	return b, a
}

// SaveSimilarity upserts a cached similarity score between two
// conversations under (configHash, metric), keyed by the canonicalized
// (min_id, max_id) pair so order of computation never matters.
func (s *Store) SaveSimilarity(idA, idB, configHash, metric string, score float64) error {
	a, b := canonicalPair(idA, idB)

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO similarities (id_a, id_b, config_hash, metric, score, computed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id_a, id_b, config_hash, metric) DO UPDATE SET
			score = excluded.score, computed_at = excluded.computed_at`,
		a, b, configHash, metric, score, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return newErr(KindIO, "saving similarity", err)
	}
	return nil
}

// GetSimilarity fetches a cached similarity score, returning ok=false on a
// cache miss rather than an error.
func (s *Store) GetSimilarity(idA, idB, configHash, metric string) (score float64, ok bool, err error) {
	a, b := canonicalPair(idA, idB)

	s.mu.RLock()
	defer s.mu.RUnlock()

	dbErr := s.db.QueryRow(`SELECT score FROM similarities WHERE id_a = ? AND id_b = ? AND config_hash = ? AND metric = ?`,
		a, b, configHash, metric).Scan(&score)
	if dbErr == sql.ErrNoRows {
		return 0, false, nil
	}
	if dbErr != nil {
		return 0, false, newErr(KindIO, "loading similarity", dbErr)
	}
	return score, true, nil
}

// FindSimilarCached returns up to topK cached similarity rows for id above
// threshold, ordered descending. Returns an empty (not nil) slice and
// ok=false if no cached rows exist for the given config, signaling the
// caller to fall back to on-the-fly computation.
func (s *Store) FindSimilarCached(id, configHash, metric string, topK int, threshold float64) ([]SimilarityMatch, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT CASE WHEN id_a = ? THEN id_b ELSE id_a END AS other, score
		FROM similarities
		WHERE (id_a = ? OR id_b = ?) AND config_hash = ? AND metric = ? AND score >= ?
		ORDER BY score DESC LIMIT ?`, id, id, id, configHash, metric, threshold, topK)
	if err != nil {
		return nil, false, newErr(KindIO, "loading cached similarities", err)
	}
	defer rows.Close()

	out := []SimilarityMatch{}
	for rows.Next() {
		var m SimilarityMatch
		if err := rows.Scan(&m.ConversationID, &m.Score); err != nil {
			return nil, false, newErr(KindIO, "scanning similarity row", err)
		}
		out = append(out, m)
	}
	return out, len(out) > 0, rows.Err()
}

// SimilarityMatch is one entry of a FindSimilar result.
type SimilarityMatch struct {
	ConversationID string
	Score          float64
}
