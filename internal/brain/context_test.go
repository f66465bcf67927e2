package brain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/venai/copilot/internal/models"
)

func constantEmbedding(ctx context.Context, text string) ([]float32, error) {
	return []float32{0, 0, 1}, nil
}

func failingEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("embedding backend down")
}

func msg(id string, sender models.Sender, content string, ts int64) models.Message {
	return models.Message{ID: id, ContactID: "5511999999999", Sender: sender, Content: content, Timestamp: ts}
}

func TestBuildEmptyHistory(t *testing.T) {
	b := NewContextBuilder(constantEmbedding)
	if got := b.Build(context.Background(), nil, "qualquer pergunta"); got != NoHistorySentinel {
		t.Errorf("expected no-history sentinel, got %q", got)
	}
}

func TestBuildRecencyFallback(t *testing.T) {
	// No lexical match and no vector backend: output must be exactly the
	// last 5 messages in chronological order.
	b := NewContextBuilder(failingEmbedding)
	history := make([]models.Message, 0, 7)
	for i := 1; i <= 7; i++ {
		history = append(history, msg(fmt.Sprintf("m%d", i), models.SenderCustomer, fmt.Sprintf("bom dia numero %d", i), int64(i)))
	}

	got := b.Build(context.Background(), history, "financeiro")

	var want []string
	for i := 3; i <= 7; i++ {
		want = append(want, fmt.Sprintf("Cliente: bom dia numero %d", i))
	}
	if got != strings.Join(want, "\n") {
		t.Errorf("expected last 5 messages in order, got:\n%s", got)
	}
}

func TestBuildFuzzyLexicalHit(t *testing.T) {
	b := NewContextBuilder(failingEmbedding)
	history := []models.Message{
		msg("m1", models.SenderCustomer, "O relatorio mensal pode ser exportado em PDF", 1),
		msg("m2", models.SenderSalesperson, "Bom dia", 2),
	}

	got := b.Build(context.Background(), history, "Como exportar relatorios?")

	// "relatorios" vs "relatorio" scores 90 on the fuzzy scale; "Bom dia"
	// has no token near the query.
	want := "Cliente: O relatorio mensal pode ser exportado em PDF"
	if got != want {
		t.Errorf("expected only the lexical hit, got %q", got)
	}
}

func TestBuildDeduplicatesByContent(t *testing.T) {
	// With a constant embedding every message is a vector hit, so the
	// repeated content shows up in both hit sets but must render once.
	b := NewContextBuilder(constantEmbedding)
	history := []models.Message{
		msg("m1", models.SenderCustomer, "Qual o valor do plano?", 1),
		msg("m2", models.SenderCustomer, "Qual o valor do plano?", 2),
		msg("m3", models.SenderSalesperson, "Depende do porte da empresa", 3),
	}

	got := b.Build(context.Background(), history, "valor do plano")
	if n := strings.Count(got, "Qual o valor do plano?"); n != 1 {
		t.Errorf("expected deduplicated content to appear once, appeared %d times in:\n%s", n, got)
	}
}

func TestBuildOrdersByTimestamp(t *testing.T) {
	b := NewContextBuilder(constantEmbedding)
	history := []models.Message{
		msg("m3", models.SenderCustomer, "E o suporte?", 30),
		msg("m1", models.SenderCustomer, "Bom dia", 10),
		msg("m2", models.SenderSalesperson, "Olá, tudo bem?", 20),
	}

	got := b.Build(context.Background(), history, "suporte bom dia olá")
	want := strings.Join([]string{
		"Cliente: Bom dia",
		"Vendedor: Olá, tudo bem?",
		"Cliente: E o suporte?",
	}, "\n")
	if got != want {
		t.Errorf("expected chronological order, got:\n%s", got)
	}
}

func TestBuildMissingTimestampSortsFirst(t *testing.T) {
	b := NewContextBuilder(constantEmbedding)
	history := []models.Message{
		msg("m1", models.SenderCustomer, "Mensagem com horário", 100),
		msg("m2", models.SenderCustomer, "Mensagem sem horário", 0),
	}

	got := b.Build(context.Background(), history, "mensagem")
	lines := strings.Split(got, "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], "sem horário") {
		t.Errorf("expected missing timestamp to sort first, got:\n%s", got)
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("Qual o PREÇO do plano, do plano Pro?")
	want := []string{"qual", "o", "preço", "do", "plano", "pro"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}
