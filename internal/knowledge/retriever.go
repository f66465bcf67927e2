package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/philippgille/chromem-go"

	"github.com/venai/copilot/internal/models"
)

// Constants for knowledge retrieval configuration
const (
	// DefaultTopK is how many results each index contributes per query.
	DefaultTopK = 3
	// LexicalWeight and VectorWeight blend the two index scores.
	LexicalWeight = 0.5
	VectorWeight  = 0.5
	// NoContextSentinel is returned when no chunk matches the query.
	NoContextSentinel = "Nenhum contexto técnico relevante encontrado."

	collectionName = "knowledge"
)

// Metadata keys for video suggestions, written by the ingestion pipeline.
const (
	metaVideoURL   = "url_video"
	metaVideoTitle = "titulo_video"
)

// videoHostAllowlist restricts video suggestions to known hosting domains.
var videoHostAllowlist = map[string]bool{
	"youtube.com":   true,
	"youtu.be":      true,
	"m.youtube.com": true,
}

// Opts holds configuration options for the knowledge retriever.
type Opts struct {
	TopK int
}

// Option defines a configuration option for the knowledge retriever.
type Option func(*Opts)

// WithTopK sets how many results each index contributes per query.
func WithTopK(k int) Option {
	return func(o *Opts) { o.TopK = k }
}

// Result is one scored chunk from the ensemble.
type Result struct {
	Chunk Chunk
	Score float64
}

// Retriever serves ensemble queries over the static knowledge base. Both
// indices are built once from the same corpus snapshot and are read-only
// afterwards; there is no reload protocol.
type Retriever struct {
	chunks  map[string]Chunk
	lexical bleve.Index
	vectors *chromem.Collection
	topK    int
}

// NewRetriever indexes the corpus into a lexical index and a vector
// collection. An empty corpus or a count mismatch between the two indices
// is a startup integrity error; the service must not serve without its
// knowledge base.
func NewRetriever(ctx context.Context, chunks []Chunk, embed chromem.EmbeddingFunc, opts ...Option) (*Retriever, error) {
	cfg := Opts{TopK: DefaultTopK}
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("knowledge corpus is empty; run the ingestion pipeline before starting")
	}

	lexical, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create lexical index: %w", err)
	}

	byID := make(map[string]Chunk, len(chunks))
	docs := make([]chromem.Document, 0, len(chunks))
	for _, c := range chunks {
		if _, dup := byID[c.ID]; dup {
			return nil, fmt.Errorf("duplicate chunk id %q in knowledge corpus", c.ID)
		}
		byID[c.ID] = c
		if err := lexical.Index(c.ID, map[string]interface{}{"content": c.Content}); err != nil {
			return nil, fmt.Errorf("failed to index chunk %s: %w", c.ID, err)
		}
		docs = append(docs, chromem.Document{ID: c.ID, Content: c.Content, Metadata: c.Metadata})
	}

	db := chromem.NewDB()
	vectors, err := db.CreateCollection(collectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector collection: %w", err)
	}
	if err := vectors.AddDocuments(ctx, docs, 1); err != nil {
		return nil, fmt.Errorf("failed to embed knowledge corpus: %w", err)
	}

	lexCount, err := lexical.DocCount()
	if err != nil {
		return nil, fmt.Errorf("failed to count lexical index: %w", err)
	}
	if int(lexCount) != vectors.Count() {
		return nil, fmt.Errorf("index integrity error: lexical has %d documents, vector has %d", lexCount, vectors.Count())
	}

	slog.Info("knowledge.NewRetriever: indices built", "chunks", len(chunks), "top_k", cfg.TopK)
	return &Retriever{chunks: byID, lexical: lexical, vectors: vectors, topK: cfg.TopK}, nil
}

// Retrieve returns the top-k chunks for the query using a weighted blend
// of lexical and vector scores. Lexical scores are normalized by the best
// hit before blending; vector similarity is already in [0, 1].
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]Result, error) {
	if k <= 0 {
		k = r.topK
	}
	scores := make(map[string]float64)

	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = k
	lexRes, err := r.lexical.Search(req)
	if err != nil {
		return nil, fmt.Errorf("lexical search failed: %w", err)
	}
	if len(lexRes.Hits) > 0 {
		max := lexRes.Hits[0].Score
		for _, hit := range lexRes.Hits {
			if max > 0 {
				scores[hit.ID] += LexicalWeight * (hit.Score / max)
			}
		}
	}

	n := k
	if count := r.vectors.Count(); n > count {
		n = count
	}
	vecRes, err := r.vectors.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	for _, res := range vecRes {
		sim := float64(res.Similarity)
		if sim < 0 {
			sim = 0
		}
		scores[res.ID] += VectorWeight * sim
	}

	results := make([]Result, 0, len(scores))
	for id, score := range scores {
		results = append(results, Result{Chunk: r.chunks[id], Score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
	if len(results) > k {
		results = results[:k]
	}
	slog.Debug("knowledge.Retrieve: ensemble query done", "query_length", len(query), "results", len(results))
	return results, nil
}

// TechnicalContext returns the top chunks' content joined by blank lines,
// or the no-context sentinel when nothing matches. Retrieval errors are
// propagated: a request without its knowledge backend is a service error.
func (r *Retriever) TechnicalContext(ctx context.Context, query string) (string, error) {
	results, err := r.Retrieve(ctx, query, r.topK)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return NoContextSentinel, nil
	}
	blocks := make([]string, 0, len(results))
	for _, res := range results {
		blocks = append(blocks, res.Chunk.Content)
	}
	return strings.Join(blocks, "\n\n"), nil
}

// VideoSuggestion inspects the single best ensemble hit for video
// metadata and returns a suggestion only when the URL host is on the
// video-hosting allowlist. Never fatal: any failure yields no suggestion.
func (r *Retriever) VideoSuggestion(ctx context.Context, query string) *models.VideoSuggestion {
	results, err := r.Retrieve(ctx, query, 1)
	if err != nil {
		slog.Warn("knowledge.VideoSuggestion: retrieval failed, skipping suggestion", "error", err)
		return nil
	}
	if len(results) == 0 {
		return nil
	}

	meta := results[0].Chunk.Metadata
	videoURL := meta[metaVideoURL]
	videoTitle := meta[metaVideoTitle]
	if videoURL == "" || videoTitle == "" {
		slog.Debug("knowledge.VideoSuggestion: top hit has no video metadata", "chunk", results[0].Chunk.ID)
		return nil
	}
	parsed, err := url.Parse(videoURL)
	if err != nil {
		slog.Warn("knowledge.VideoSuggestion: invalid video URL in metadata", "error", err, "chunk", results[0].Chunk.ID)
		return nil
	}
	host := strings.TrimPrefix(parsed.Hostname(), "www.")
	if !videoHostAllowlist[host] && !videoHostAllowlist[parsed.Hostname()] {
		slog.Debug("knowledge.VideoSuggestion: host not allowlisted", "host", parsed.Hostname())
		return nil
	}
	slog.Debug("knowledge.VideoSuggestion: video suggested", "title", videoTitle)
	return &models.VideoSuggestion{Title: videoTitle, URL: videoURL}
}
