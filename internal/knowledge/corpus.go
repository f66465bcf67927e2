// Package knowledge provides the product knowledge base retrieval for the
// sales copilot.
//
// The corpus is loaded once at startup and indexed twice: a lexical
// (term-matching) index and a semantic vector index built from the same
// snapshot. Queries blend both scores into a weighted ensemble.
package knowledge

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Chunk is one unit of the static knowledge base. Metadata may carry a
// training-video link under the url_video/titulo_video keys.
type Chunk struct {
	ID       string            `json:"id,omitempty"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// LoadCorpus reads the knowledge base from a JSON file containing an array
// of chunks. Chunks without an ID are assigned a positional one; chunks
// with blank content are dropped.
func LoadCorpus(path string) ([]Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("knowledge.LoadCorpus: failed to read corpus file", "error", err, "path", path)
		return nil, fmt.Errorf("failed to read knowledge corpus %s: %w", path, err)
	}
	var raw []Chunk
	if err := json.Unmarshal(data, &raw); err != nil {
		slog.Error("knowledge.LoadCorpus: failed to parse corpus JSON", "error", err, "path", path)
		return nil, fmt.Errorf("failed to parse knowledge corpus %s: %w", path, err)
	}

	chunks := make([]Chunk, 0, len(raw))
	for i, c := range raw {
		if strings.TrimSpace(c.Content) == "" {
			slog.Warn("knowledge.LoadCorpus: dropping chunk with blank content", "index", i)
			continue
		}
		if c.ID == "" {
			c.ID = fmt.Sprintf("chunk-%d", i)
		}
		chunks = append(chunks, c)
	}
	slog.Info("knowledge.LoadCorpus: corpus loaded", "path", path, "chunks", len(chunks))
	return chunks, nil
}
