// Package api provides HTTP handlers for the sales copilot endpoints.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/venai/copilot/internal/models"
)

// sendMessageRequest is the body of POST /conversations/{jid}/messages.
type sendMessageRequest struct {
	Message string `json:"message"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("service healthy", nil))
}

// suggestionsHandler handles POST /suggestions: it loads the
// conversation history when the caller supplies only a contact ID,
// resolves the current stage pointer, runs the brain and advances the
// stored stage.
func (s *Server) suggestionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.suggestionsHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.suggestionsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.SuggestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.suggestionsHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.suggestionsHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	if req.ContactID != "" && len(req.History) == 0 {
		history, err := s.st.GetMessages(req.ContactID)
		if err != nil {
			slog.Error("Server.suggestionsHandler: failed to load history", "error", err, "contact_id", req.ContactID)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load conversation history"))
			return
		}
		req.History = history
	}
	if req.CurrentStageID == "" {
		req.CurrentStageID = s.currentStage(req.ContactID)
	}

	result, err := s.engine.GenerateSalesSuggestions(r.Context(), req)
	if err != nil {
		slog.Error("Server.suggestionsHandler: suggestion generation failed", "error", err, "contact_id", req.ContactID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to generate suggestions"))
		return
	}
	s.setStage(req.ContactID, result.NewStageID)

	slog.Info("Server.suggestionsHandler: suggestions generated", "contact_id", req.ContactID, "new_stage", result.NewStageID)
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

// conversationsHandler handles GET /conversations (paginated listing)
// and DELETE /conversations (full wipe).
func (s *Server) conversationsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		skip := parseIntParam(r, "skip", 0)
		limit := parseIntParam(r, "limit", 50)
		summaries, err := s.st.ListConversations(skip, limit)
		if err != nil {
			slog.Error("Server.conversationsHandler: listing failed", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list conversations"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(summaries))
	case http.MethodDelete:
		if err := s.st.DeleteAllConversations(); err != nil {
			slog.Error("Server.conversationsHandler: wipe failed", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to delete conversations"))
			return
		}
		slog.Info("Server.conversationsHandler: all conversations deleted")
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("All conversations deleted", nil))
	default:
		w.Header().Set("Allow", strings.Join([]string{http.MethodGet, http.MethodDelete}, ", "))
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// conversationRouter dispatches /conversations/{jid} and
// /conversations/{jid}/messages by path segments.
func (s *Server) conversationRouter(w http.ResponseWriter, r *http.Request) {
	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(segments) == 2:
		s.conversationHandler(w, r, segments[1])
	case len(segments) == 3 && segments[2] == "messages":
		s.conversationMessagesHandler(w, r, segments[1])
	default:
		writeJSONResponse(w, http.StatusNotFound, models.Error("Not found"))
	}
}

// conversationHandler handles DELETE /conversations/{jid}.
func (s *Server) conversationHandler(w http.ResponseWriter, r *http.Request, contactID string) {
	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", http.MethodDelete)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := s.st.DeleteConversation(contactID); err != nil {
		slog.Error("Server.conversationHandler: delete failed", "error", err, "contact_id", contactID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to delete conversation"))
		return
	}
	slog.Info("Server.conversationHandler: conversation deleted", "contact_id", contactID)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Conversation deleted", nil))
}

// conversationMessagesHandler handles GET and POST on
// /conversations/{jid}/messages.
func (s *Server) conversationMessagesHandler(w http.ResponseWriter, r *http.Request, contactID string) {
	switch r.Method {
	case http.MethodGet:
		history, err := s.st.GetMessages(contactID)
		if err != nil {
			slog.Error("Server.conversationMessagesHandler: failed to load history", "error", err, "contact_id", contactID)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load conversation history"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(history))
	case http.MethodPost:
		s.sendConversationMessage(w, r, contactID)
	default:
		w.Header().Set("Allow", strings.Join([]string{http.MethodGet, http.MethodPost}, ", "))
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// sendConversationMessage delivers a salesperson message and persists it
// so the conversation history stays complete.
func (s *Server) sendConversationMessage(w http.ResponseWriter, r *http.Request, contactID string) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.sendConversationMessage: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Message cannot be empty"))
		return
	}

	canonicalTo, err := s.msgService.ValidateAndCanonicalizeRecipient(contactID)
	if err != nil {
		slog.Warn("Server.sendConversationMessage: recipient validation failed", "error", err, "contact_id", contactID)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	if err := s.msgService.SendMessage(context.Background(), canonicalTo, req.Message); err != nil {
		slog.Error("Server.sendConversationMessage: failed to send message", "error", err, "contact_id", canonicalTo)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to send message"))
		return
	}

	msg := models.Message{
		ID:        "seller_init_" + uuid.NewString(),
		ContactID: canonicalTo,
		Sender:    models.SenderSalesperson,
		Content:   req.Message,
		Timestamp: time.Now().Unix(),
	}
	if err := s.st.AddMessage(msg); err != nil {
		slog.Error("Server.sendConversationMessage: failed to persist message", "error", err, "contact_id", canonicalTo)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Message sent but not persisted"))
		return
	}

	slog.Info("Server.sendConversationMessage: message sent", "contact_id", canonicalTo)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Message sent successfully", msg))
}

// parseIntParam reads a non-negative integer query parameter with a default.
func parseIntParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
