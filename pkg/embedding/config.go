// Package embedding implements the conversation embedding pipeline (C4):
// configurable text extraction and chunking, pluggable embedding
// providers, and aggregation of per-chunk vectors into one
// conversation-level vector.
package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// ChunkingStrategy controls how a conversation's text is split before
// embedding.
type ChunkingStrategy string

const (
	ChunkWhole        ChunkingStrategy = "whole"
	ChunkMessage       ChunkingStrategy = "message"
	ChunkMessagePair   ChunkingStrategy = "message_pair"
	ChunkWindow        ChunkingStrategy = "window"
)

// AggregationStrategy controls how per-chunk vectors are combined into a
// single conversation vector.
type AggregationStrategy string

const (
	AggMean         AggregationStrategy = "mean"
	AggWeightedMean AggregationStrategy = "weighted_mean"
	AggFirst        AggregationStrategy = "first"
	AggLast         AggregationStrategy = "last"
	AggMax          AggregationStrategy = "max"
)

// RoleWeights assigns an extraction weight per message role; roles absent
// from the map default to 1.0.
type RoleWeights map[string]float64

// DefaultRoleWeights mirrors the distilled spec's default: user content
// carries double weight, assistant content full weight, and system prompts
// and tool output half weight since they're rarely representative of what
// a conversation is "about".
func DefaultRoleWeights() RoleWeights {
	return RoleWeights{
		"user":      2.0,
		"assistant": 1.0,
		"system":    0.5,
		"tool":      0.5,
	}
}

// Config is the full configuration of an embedding run. Its ToHash is the
// cache key for both the embeddings and similarities tables.
type Config struct {
	Provider    string              `json:"provider"`
	Model       string              `json:"model,omitempty"`
	Chunking    ChunkingStrategy    `json:"chunking"`
	Aggregation AggregationStrategy `json:"aggregation"`
	WindowSize  int                 `json:"window_size,omitempty"`
	RoleWeights RoleWeights         `json:"role_weights,omitempty"`
}

// ToHash returns a stable 16-hex-digit SHA-256 digest of the config's
// canonical JSON representation, used as the cache key in the embeddings
// and similarities tables.
func (c Config) ToHash() string {
	canon := canonicalJSON(c)
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:])[:16]
}

// canonicalJSON marshals c with map keys sorted, so two logically
// identical configs always hash the same regardless of Go map iteration
// order.
func canonicalJSON(c Config) []byte {
	keys := make([]string, 0, len(c.RoleWeights))
	for k := range c.RoleWeights {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	type orderedWeight struct {
		Role   string  `json:"role"`
		Weight float64 `json:"weight"`
	}
	weights := make([]orderedWeight, 0, len(keys))
	for _, k := range keys {
		weights = append(weights, orderedWeight{Role: k, Weight: c.RoleWeights[k]})
	}

	canonical := struct {
		Provider    string          `json:"provider"`
		Model       string          `json:"model"`
		Chunking    ChunkingStrategy `json:"chunking"`
		Aggregation AggregationStrategy `json:"aggregation"`
		WindowSize  int             `json:"window_size"`
		RoleWeights []orderedWeight `json:"role_weights"`
	}{c.Provider, c.Model, c.Chunking, c.Aggregation, c.WindowSize, weights}

	raw, _ := json.Marshal(canonical)
	return raw
}
