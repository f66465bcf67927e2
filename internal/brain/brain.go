// Package brain orchestrates the sales suggestion flow.
//
// For each request it condenses the conversation history, retrieves
// technical context from the knowledge base, advances the playbook
// stage, extracts client data and synthesizes the final answer in a
// single structured model call. The engine holds no durable mutable
// state: the playbook and knowledge indices are read-only after startup
// and everything else is supplied and returned per call.
package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/venai/copilot/internal/genai"
	"github.com/venai/copilot/internal/models"
	"github.com/venai/copilot/internal/playbook"
)

// StatusSuccess is the status of a completed suggestion result.
const StatusSuccess = "success"

// Stage placeholders used when the playbook cannot supply them.
const (
	privateStageName = "Consulta Interna"
	privateStageGoal = "Responder à dúvida interna do vendedor com base na base de conhecimento."
	defaultStageName = "Análise Inicial"
	defaultStageGoal = "Manter a conversa fluindo e guiar para o próximo passo lógico."

	toneFriendly = "amigavel"
)

// KnowledgeProvider is the knowledge base surface the engine depends on.
type KnowledgeProvider interface {
	// TechnicalContext returns the knowledge blocks relevant to the query.
	TechnicalContext(ctx context.Context, query string) (string, error)

	// VideoSuggestion returns an optional training-video link for the query.
	VideoSuggestion(ctx context.Context, query string) *models.VideoSuggestion
}

// Engine is the suggestion-generation core.
type Engine struct {
	ai        genai.ClientInterface
	knowledge KnowledgeProvider
	playbook  *playbook.Playbook
	contexts  *ContextBuilder
}

// NewEngine creates a suggestion engine over the given model client,
// knowledge base and playbook.
func NewEngine(ai genai.ClientInterface, knowledge KnowledgeProvider, pb *playbook.Playbook) *Engine {
	return &Engine{
		ai:        ai,
		knowledge: knowledge,
		playbook:  pb,
		contexts:  NewContextBuilder(ai.Embed),
	}
}

// GenerateSalesSuggestions runs the full suggestion flow for one request
// and returns the payload plus the stage the conversation should move
// to. Stage persistence stays with the caller; the engine only receives
// the current stage and returns the next one.
func (e *Engine) GenerateSalesSuggestions(ctx context.Context, req models.SuggestionRequest) (*models.SuggestionResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	currentStageID := req.CurrentStageID
	if currentStageID == "" {
		currentStageID = e.playbook.InitialStageID
	}
	slog.Info("brain.GenerateSalesSuggestions: starting flow",
		"contact_id", req.ContactID, "current_stage", currentStageID, "private", req.IsPrivate)

	// The conversation context and the technical context are data
	// independent, so both retrievals run concurrently.
	var (
		conversationContext string
		technicalContext    string
		techErr             error
		wg                  sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		conversationContext = e.contexts.Build(ctx, req.History, req.Query)
	}()
	go func() {
		defer wg.Done()
		technicalContext, techErr = e.knowledge.TechnicalContext(ctx, req.Query)
	}()
	wg.Wait()
	if techErr != nil {
		return nil, fmt.Errorf("failed to retrieve technical context: %w", techErr)
	}

	stageName, stageGoal := privateStageName, privateStageGoal
	newStageID := currentStageID
	if !req.IsPrivate {
		stageName, stageGoal = defaultStageName, defaultStageGoal
		if stage, ok := e.playbook.Stage(currentStageID); ok {
			stageName = stage.Name
			if stage.Goal != "" {
				stageGoal = stage.Goal
			}
		}
		newStageID = e.decideNextStage(ctx, conversationContext, currentStageID, req.Query)
	}

	clientData := models.ClientData{}
	if req.ClientData != nil {
		clientData = *req.ClientData
	} else if len(req.History) > 0 {
		clientData = e.extractClientData(ctx, conversationContext)
	}

	resp, err := e.synthesize(ctx, synthesisInput{
		Query:               req.Query,
		ClientData:          clientData,
		ConversationContext: conversationContext,
		StageName:           stageName,
		StageGoal:           stageGoal,
		TechnicalContext:    technicalContext,
		IsPrivate:           req.IsPrivate,
	})
	if err != nil {
		return nil, err
	}

	payload := models.SuggestionPayload{
		ImmediateAnswer: resp.SuggestedReply,
		TextOptions:     []string{},
		FollowUpOptions: []models.FollowUpOption{},
		Video:           e.knowledge.VideoSuggestion(ctx, req.Query),
	}
	if !req.IsPrivate && resp.NextStep != nil && strings.TrimSpace(*resp.NextStep) != "" {
		payload.FollowUpOptions = append(payload.FollowUpOptions, models.FollowUpOption{
			Tone:          toneFriendly,
			Text:          *resp.NextStep,
			IsRecommended: true,
		})
	}

	slog.Info("brain.GenerateSalesSuggestions: flow completed",
		"contact_id", req.ContactID, "new_stage", newStageID,
		"follow_ups", len(payload.FollowUpOptions), "has_video", payload.Video != nil)
	return &models.SuggestionResult{
		Status:      StatusSuccess,
		NewStageID:  newStageID,
		Suggestions: payload,
	}, nil
}

// generateJSON runs a structured completion and unmarshals its JSON
// output, retrying once when the model returns a document that does not
// parse. Structured output is a post-condition the provider must
// guarantee; a second violation is an error for the caller to classify.
func (e *Engine) generateJSON(ctx context.Context, systemPrompt, userPrompt, schemaName string, schema map[string]interface{}, out interface{}) error {
	raw, err := e.ai.GenerateStructured(ctx, systemPrompt, userPrompt, schemaName, schema)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		slog.Warn("brain.generateJSON: model returned invalid JSON, retrying once",
			"schema", schemaName, "error", err)
		raw, err = e.ai.GenerateStructured(ctx, systemPrompt, userPrompt, schemaName, schema)
		if err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(raw), out); err != nil {
			return fmt.Errorf("model returned invalid JSON for %s: %w", schemaName, err)
		}
	}
	return nil
}
