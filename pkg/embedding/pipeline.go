package embedding

import (
	"github.com/queelius/ctk/pkg/conversation"
)

// Embed runs the full pipeline for one conversation: extract and chunk
// text per cfg.Chunking, embed each chunk with provider, and aggregate the
// resulting vectors per cfg.Aggregation into a single conversation-level
// vector.
func Embed(tree *conversation.ConversationTree, cfg Config, provider Provider) ([]float64, error) {
	chunks, err := BuildChunks(tree, cfg)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return make([]float64, provider.Dims()), nil
	}

	texts := make([]string, len(chunks))
	weights := make([]float64, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
		weights[i] = c.Weight
	}

	vectors, err := provider.EmbedBatch(texts)
	if err != nil {
		return nil, err
	}
	return Aggregate(vectors, weights, cfg.Aggregation)
}
