package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/venai/copilot/internal/models"
)

// aiResponse is the structured output of the synthesis call.
type aiResponse struct {
	SuggestedReply string  `json:"sugestao_resposta"`
	NextStep       *string `json:"proximo_passo"`
}

const synthesisSchemaName = "sales_response"

const synthesisSystemPrompt = `Você é o "Venai Copilot", um assistente de vendas especialista em IA para o sistema VenaiERP.

Sua missão é analisar o contexto completo de uma interação com o cliente e gerar uma resposta estruturada em JSON contendo duas partes: uma resposta direta e factual para a dúvida atual ('sugestao_resposta'), e uma sugestão estratégica de próximo passo ('proximo_passo'). O ID do próximo estágio é decidido externamente.`

const synthesisUserTemplate = `---
CONTEXTO GERAL (O CLIENTE E A CONVERSA)
Este é o histórico completo da conversa até agora. Use-o para entender quem é o cliente, o que já foi dito e o tom da conversa.
%s
---
DADOS DO CLIENTE
%s
---
OBJETIVO ESTRATÉGICO (O PLAYBOOK DE VENDAS)
Com base na conversa, o estágio atual da venda é '%s'. O seu objetivo agora é: '%s'.

EVIDÊNCIAS TÉCNICAS (A BASE DE CONHECIMENTO)
Para responder à pergunta, utilize estritamente as seguintes informações técnicas sobre o produto. Não invente funcionalidades.
%s
---

PERGUNTA ATUAL: "%s"

Baseado em TODOS os contextos acima, gere a sua resposta.
%s`

const (
	synthesisPrivateInstruction  = `- Esta é uma consulta interna do vendedor para tirar uma dúvida: foque em fornecer a 'sugestao_resposta' e retorne o 'proximo_passo' como nulo.`
	synthesisCustomerInstruction = `- A pergunta é do cliente: forneça tanto a 'sugestao_resposta' quanto o 'proximo_passo' alinhado com o OBJETIVO ESTRATÉGICO.`

	noClientDataSentinel = "Nenhum dado cadastral do cliente disponível."
)

func synthesisSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"sugestao_resposta": map[string]interface{}{"type": "string"},
			"proximo_passo":     map[string]interface{}{"type": []string{"string", "null"}},
		},
		"required":             []string{"sugestao_resposta", "proximo_passo"},
		"additionalProperties": false,
	}
}

// synthesisInput carries all the section texts of the super prompt.
type synthesisInput struct {
	Query               string
	ClientData          models.ClientData
	ConversationContext string
	StageName           string
	StageGoal           string
	TechnicalContext    string
	IsPrivate           bool
}

// synthesize runs the single super-prompt call that produces the
// customer-facing answer and the optional next step. Unlike the advisory
// sub-steps this call is fatal on failure: without it there is no
// suggestion to return.
func (e *Engine) synthesize(ctx context.Context, in synthesisInput) (*aiResponse, error) {
	clientData := noClientDataSentinel
	if !in.ClientData.IsEmpty() {
		raw, err := json.Marshal(in.ClientData)
		if err == nil {
			clientData = string(raw)
		}
	}
	instruction := synthesisCustomerInstruction
	if in.IsPrivate {
		instruction = synthesisPrivateInstruction
	}

	userPrompt := fmt.Sprintf(synthesisUserTemplate,
		in.ConversationContext, clientData, in.StageName, in.StageGoal,
		in.TechnicalContext, in.Query, instruction)

	var resp aiResponse
	if err := e.generateJSON(ctx, synthesisSystemPrompt, userPrompt, synthesisSchemaName,
		synthesisSchema(), &resp); err != nil {
		slog.Error("brain.synthesize: synthesis call failed", "error", err)
		return nil, fmt.Errorf("failed to synthesize response: %w", err)
	}
	slog.Debug("brain.synthesize: response synthesized",
		"answer_length", len(resp.SuggestedReply), "has_next_step", resp.NextStep != nil)
	return &resp, nil
}
