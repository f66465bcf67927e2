package brain

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/venai/copilot/internal/models"
)

const clientDataSchemaName = "client_data"

const clientDataSystemPrompt = `Você é um assistente que extrai dados cadastrais de clientes a partir de conversas de vendas. Preencha apenas os campos mencionados explicitamente na conversa; deixe os demais vazios.`

const clientDataUserTemplate = `HISTÓRICO DA CONVERSA:
%s

Extraia os dados do cliente em formato JSON.`

func clientDataSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name":    map[string]interface{}{"type": "string"},
			"company": map[string]interface{}{"type": "string"},
			"manager": map[string]interface{}{"type": "string"},
			"needs": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string"},
			},
		},
		"required":             []string{"name", "company", "manager", "needs"},
		"additionalProperties": false,
	}
}

// extractClientData pulls a best-effort structured snapshot of the
// client out of the conversation. Extraction never blocks the main flow:
// any failure yields the empty snapshot.
func (e *Engine) extractClientData(ctx context.Context, conversationContext string) models.ClientData {
	userPrompt := fmt.Sprintf(clientDataUserTemplate, conversationContext)

	var data models.ClientData
	if err := e.generateJSON(ctx, clientDataSystemPrompt, userPrompt, clientDataSchemaName,
		clientDataSchema(), &data); err != nil {
		slog.Warn("brain.extractClientData: extraction failed, using empty client data", "error", err)
		return models.ClientData{}
	}
	slog.Debug("brain.extractClientData: client data extracted", "empty", data.IsEmpty())
	return data
}
