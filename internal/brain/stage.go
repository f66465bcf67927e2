package brain

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/venai/copilot/internal/playbook"
)

// StageDecision is the structured output of the stage decision call. The
// justification is diagnostic only and never used downstream.
type StageDecision struct {
	NextStageID   string `json:"proximo_stage_id"`
	Justification string `json:"justificativa"`
}

const stageDecisionSchemaName = "stage_decision"

const stageDecisionSystemPrompt = `Você é o "Gerente de Estágios de Vendas". Sua única tarefa é analisar o contexto da conversa e decidir para qual estágio a venda deve avançar.`

const stageDecisionUserTemplate = `---
CONTEXTO GERAL (O CLIENTE E A CONVERSA)
Este é o histórico da conversa. Use-o para entender o ponto de partida e o que levou à pergunta atual.
%s
---
ESTÁGIO ATUAL: %s

ROTAS POSSÍVEIS PARA O PRÓXIMO ESTÁGIO:
Abaixo está uma lista de próximos estágios possíveis e as condições para ir para cada um.
Você DEVE escolher o 'proximo_stage_id' estritamente a partir desta lista.
%s
---

ÚLTIMA AÇÃO / PERGUNTA: "%s"

Decida e justifique o 'proximo_stage_id' em formato JSON.`

// stageDecisionSchema constrains the model output to the candidate stage
// IDs via an enum, so an out-of-set choice is rejected structurally
// rather than asked for in prose.
func stageDecisionSchema(candidates []string) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"proximo_stage_id": map[string]interface{}{
				"type": "string",
				"enum": candidates,
			},
			"justificativa": map[string]interface{}{"type": "string"},
		},
		"required":             []string{"proximo_stage_id", "justificativa"},
		"additionalProperties": false,
	}
}

// decideNextStage asks the model to pick the next playbook stage from
// the routes reachable out of the current one. Any failure is
// conservative: the current stage is kept unchanged, because no forward
// progress beats wrong progress.
func (e *Engine) decideNextStage(ctx context.Context, conversationContext, currentStageID, query string) string {
	routes := e.playbook.Routes(currentStageID)
	if len(routes) == 0 {
		slog.Debug("brain.decideNextStage: stage has no routes, keeping current", "stage", currentStageID)
		return currentStageID
	}
	candidates := make([]string, 0, len(routes))
	for _, r := range routes {
		candidates = append(candidates, r.StageID)
	}

	userPrompt := fmt.Sprintf(stageDecisionUserTemplate,
		conversationContext, currentStageID, playbook.FormatRoutes(routes), query)

	var decision StageDecision
	if err := e.generateJSON(ctx, stageDecisionSystemPrompt, userPrompt, stageDecisionSchemaName,
		stageDecisionSchema(candidates), &decision); err != nil {
		slog.Warn("brain.decideNextStage: decision failed, keeping current stage",
			"error", err, "current_stage", currentStageID)
		return currentStageID
	}
	if !slices.Contains(candidates, decision.NextStageID) {
		slog.Warn("brain.decideNextStage: model chose a stage outside the candidate set, keeping current stage",
			"chosen", decision.NextStageID, "current_stage", currentStageID)
		return currentStageID
	}
	slog.Info("brain.decideNextStage: stage decided",
		"current_stage", currentStageID, "next_stage", decision.NextStageID)
	return decision.NextStageID
}
