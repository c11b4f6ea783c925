package similarity

import "github.com/queelius/ctk/pkg/store"

// Store is the subset of *store.Store this package depends on, so tests
// can fake it without spinning up SQLite.
type Store interface {
	GetEmbedding(conversationID, configHash string) (*store.StoredEmbedding, error)
	GetAllEmbeddings(configHash string) ([]store.StoredEmbedding, error)
	FindSimilarCached(id, configHash, metric string, topK int, threshold float64) ([]store.SimilarityMatch, bool, error)
	SaveSimilarity(idA, idB, configHash, metric string, score float64) error
}

// FindSimilarCacheFirst resolves similar conversations for id, trying the
// similarities cache first and falling back to a direct sweep over every
// stored embedding under configHash when no cache rows exist — exactly
// the two-tier strategy ctk/interfaces/mcp/handlers/analysis.py's
// handle_find_similar uses.
func FindSimilarCacheFirst(s Store, id, configHash string, metric Metric, topK int, threshold float64) ([]Candidate, error) {
	cached, ok, err := s.FindSimilarCached(id, configHash, string(metric), topK, threshold)
	if err != nil {
		return nil, err
	}
	if ok {
		out := make([]Candidate, len(cached))
		for i, m := range cached {
			out[i] = Candidate{ConversationID: m.ConversationID, Score: m.Score}
		}
		return out, nil
	}

	query, err := s.GetEmbedding(id, configHash)
	if err != nil {
		return nil, err
	}
	if query == nil {
		return nil, ErrNoEmbeddings
	}

	all, err := s.GetAllEmbeddings(configHash)
	if err != nil {
		return nil, err
	}
	candidates := make(map[string][]float64, len(all))
	for _, e := range all {
		if e.ConversationID == id {
			continue
		}
		candidates[e.ConversationID] = e.Vector
	}

	results, err := FindSimilar(query.Vector, candidates, metric, topK, threshold)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		_ = s.SaveSimilarity(id, r.ConversationID, configHash, string(metric), r.Score)
	}
	return results, nil
}
