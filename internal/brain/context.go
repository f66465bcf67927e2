package brain

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/philippgille/chromem-go"

	"github.com/venai/copilot/internal/models"
)

// Context building configuration.
const (
	// NoHistorySentinel is returned for an empty conversation history.
	NoHistorySentinel = "Nenhum histórico de conversa encontrado."
	// FuzzyThreshold is the 0-100 similarity cutoff for a lexical hit.
	FuzzyThreshold = 85.0
	// ContextTopK bounds both the semantic hits and the recency fallback.
	ContextTopK = 5

	contextCollection = "conversation"
)

// ContextBuilder condenses a full conversation history into the slice of
// messages relevant to the current query. Lexical hits come from fuzzy
// token matching; semantic hits from a transient vector index built over
// this conversation only. Rebuilding the index per call is accepted
// because conversations are small and bounded.
type ContextBuilder struct {
	embed chromem.EmbeddingFunc
	lev   *metrics.Levenshtein
	topK  int
}

// NewContextBuilder creates a context builder backed by the given
// embedding function.
func NewContextBuilder(embed chromem.EmbeddingFunc) *ContextBuilder {
	return &ContextBuilder{embed: embed, lev: metrics.NewLevenshtein(), topK: ContextTopK}
}

// Build returns the conversation context for the query as a readable
// transcript slice, one "Sender: content" line per message in
// chronological order. An empty history yields the no-history sentinel.
// A vector backend failure degrades to lexical hits or the recency
// fallback instead of aborting the request.
func (b *ContextBuilder) Build(ctx context.Context, history []models.Message, query string) string {
	if len(history) == 0 {
		return NoHistorySentinel
	}

	queryTokens := tokenize(query)
	lexical := b.lexicalHits(history, queryTokens)

	semantic, err := b.semanticHits(ctx, history, query)
	if err != nil {
		slog.Warn("brain.Build: semantic search unavailable, degrading to lexical context", "error", err)
		semantic = nil
	}

	// Union with first occurrence winning; lexical hits take precedence.
	seen := make(map[string]bool)
	selected := make([]models.Message, 0, len(lexical)+len(semantic))
	for _, idx := range append(lexical, semantic...) {
		msg := history[idx]
		key := strings.TrimSpace(msg.Content)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		selected = append(selected, msg)
	}

	if len(selected) == 0 {
		selected = recentMessages(history, b.topK)
		slog.Debug("brain.Build: no hits, falling back to recent messages", "messages", len(selected))
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Timestamp < selected[j].Timestamp
	})

	lines := make([]string, 0, len(selected))
	for _, msg := range selected {
		sender := string(msg.Sender)
		if sender == "" {
			sender = "desconhecido"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", capitalize(sender), msg.Content))
	}
	return strings.Join(lines, "\n")
}

// lexicalHits returns the indices of messages where any message token is
// fuzzy-similar to any query token.
func (b *ContextBuilder) lexicalHits(history []models.Message, queryTokens []string) []int {
	if len(queryTokens) == 0 {
		return nil
	}
	var hits []int
	for i, msg := range history {
		if b.matchesAnyToken(tokenize(msg.Content), queryTokens) {
			hits = append(hits, i)
		}
	}
	return hits
}

func (b *ContextBuilder) matchesAnyToken(messageTokens, queryTokens []string) bool {
	for _, mt := range messageTokens {
		for _, qt := range queryTokens {
			if strutil.Similarity(qt, mt, b.lev)*100 >= FuzzyThreshold {
				return true
			}
		}
	}
	return false
}

// semanticHits indexes the conversation into a transient vector
// collection and returns the indices of the top messages by similarity
// to the query.
func (b *ContextBuilder) semanticHits(ctx context.Context, history []models.Message, query string) ([]int, error) {
	docs := make([]chromem.Document, 0, len(history))
	byDocID := make(map[string]int, len(history))
	for i, msg := range history {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		id := fmt.Sprintf("msg-%d", i)
		byDocID[id] = i
		docs = append(docs, chromem.Document{ID: id, Content: msg.Content})
	}
	if len(docs) == 0 {
		return nil, nil
	}

	col, err := chromem.NewDB().CreateCollection(contextCollection, nil, b.embed)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation collection: %w", err)
	}
	if err := col.AddDocuments(ctx, docs, 1); err != nil {
		return nil, fmt.Errorf("failed to embed conversation: %w", err)
	}

	n := b.topK
	if count := col.Count(); n > count {
		n = count
	}
	results, err := col.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("conversation similarity search failed: %w", err)
	}

	hits := make([]int, 0, len(results))
	for _, res := range results {
		if idx, ok := byDocID[res.ID]; ok {
			hits = append(hits, idx)
		}
	}
	return hits, nil
}

// recentMessages returns the last n messages in chronological order.
func recentMessages(history []models.Message, n int) []models.Message {
	ordered := make([]models.Message, len(history))
	copy(ordered, history)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp < ordered[j].Timestamp
	})
	if len(ordered) > n {
		ordered = ordered[len(ordered)-n:]
	}
	return ordered
}

// tokenize lowercases, strips trailing punctuation and deduplicates the
// words of a text.
func tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	seen := make(map[string]bool, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimRight(f, ".,!?;:")
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		tokens = append(tokens, f)
	}
	return tokens
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
