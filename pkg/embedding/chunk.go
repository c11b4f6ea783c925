package embedding

import (
	"strings"

	"github.com/queelius/ctk/pkg/conversation"
)

// Chunk is one unit of text to be embedded, plus the role weight that
// applies to it during aggregation.
type Chunk struct {
	Text   string
	Weight float64
}

// extractWeighted returns msg's text as a Chunk, weighted per weights
// (defaulting to 1.0 for unlisted roles).
func extractWeighted(msg *conversation.Message, weights RoleWeights) Chunk {
	w, ok := weights[string(msg.Role)]
	if !ok {
		w = 1.0
	}
	return Chunk{Text: msg.Content.GetText(), Weight: w}
}

// BuildChunks splits tree's longest path into chunks per cfg.Chunking.
func BuildChunks(tree *conversation.ConversationTree, cfg Config) ([]Chunk, error) {
	path, err := tree.GetLongestPath()
	if err != nil {
		return nil, err
	}
	msgs := make([]*conversation.Message, 0, len(path))
	for _, id := range path {
		if m, ok := tree.Messages[id]; ok {
			msgs = append(msgs, m)
		}
	}

	weights := cfg.RoleWeights
	if weights == nil {
		weights = DefaultRoleWeights()
	}

	switch cfg.Chunking {
	case ChunkMessage:
		return chunkPerMessage(msgs, weights), nil
	case ChunkMessagePair:
		return chunkPerPair(msgs, weights), nil
	case ChunkWindow:
		size := cfg.WindowSize
		if size <= 0 {
			size = 3
		}
		return chunkWindow(msgs, weights, size), nil
	case ChunkWhole, "":
		return chunkWhole(msgs, weights), nil
	default:
		return nil, ErrUnknownChunking{Strategy: cfg.Chunking}
	}
}

// ErrUnknownChunking is returned by BuildChunks for an unrecognized
// ChunkingStrategy value.
type ErrUnknownChunking struct{ Strategy ChunkingStrategy }

func (e ErrUnknownChunking) Error() string { return "unknown chunking strategy: " + string(e.Strategy) }

func chunkWhole(msgs []*conversation.Message, weights RoleWeights) []Chunk {
	var sb strings.Builder
	var totalWeight float64
	var n int
	for _, m := range msgs {
		c := extractWeighted(m, weights)
		if c.Text == "" {
			continue
		}
		sb.WriteString(string(m.Role))
		sb.WriteString(": ")
		sb.WriteString(c.Text)
		sb.WriteString("\n")
		totalWeight += c.Weight
		n++
	}
	if n == 0 {
		return nil
	}
	return []Chunk{{Text: sb.String(), Weight: totalWeight / float64(n)}}
}

func chunkPerMessage(msgs []*conversation.Message, weights RoleWeights) []Chunk {
	var chunks []Chunk
	for _, m := range msgs {
		c := extractWeighted(m, weights)
		if c.Text == "" {
			continue
		}
		chunks = append(chunks, c)
	}
	return chunks
}

func chunkPerPair(msgs []*conversation.Message, weights RoleWeights) []Chunk {
	var chunks []Chunk
	for i := 0; i+1 < len(msgs); i += 2 {
		a := extractWeighted(msgs[i], weights)
		b := extractWeighted(msgs[i+1], weights)
		text := strings.TrimSpace(a.Text + "\n" + b.Text)
		if text == "" {
			continue
		}
		chunks = append(chunks, Chunk{Text: text, Weight: (a.Weight + b.Weight) / 2})
	}
	// odd trailing message forms its own chunk
	if len(msgs)%2 == 1 && len(msgs) > 0 {
		c := extractWeighted(msgs[len(msgs)-1], weights)
		if c.Text != "" {
			chunks = append(chunks, c)
		}
	}
	return chunks
}

func chunkWindow(msgs []*conversation.Message, weights RoleWeights, size int) []Chunk {
	var chunks []Chunk
	for i := 0; i < len(msgs); i += size {
		end := i + size
		if end > len(msgs) {
			end = len(msgs)
		}
		var sb strings.Builder
		var totalWeight float64
		var n int
		for _, m := range msgs[i:end] {
			c := extractWeighted(m, weights)
			if c.Text == "" {
				continue
			}
			sb.WriteString(c.Text)
			sb.WriteString("\n")
			totalWeight += c.Weight
			n++
		}
		if n == 0 {
			continue
		}
		chunks = append(chunks, Chunk{Text: sb.String(), Weight: totalWeight / float64(n)})
	}
	return chunks
}
