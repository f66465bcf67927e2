// Package models defines the core data structures for the sales copilot.
//
// It includes conversation messages, extracted client data, and the
// suggestion payload shared across modules.
package models

import (
	"errors"
	"strings"
)

// Sender identifies which side of the conversation wrote a message.
type Sender string

const (
	// SenderCustomer marks a message written by the customer.
	SenderCustomer Sender = "cliente"
	// SenderSalesperson marks a message written by the salesperson.
	SenderSalesperson Sender = "vendedor"
)

// Error variables for better error handling and testability
var (
	ErrEmptyMessageID = errors.New("message id cannot be empty")
	ErrEmptyContactID = errors.New("contact id cannot be empty")
	ErrEmptyContent   = errors.New("message content cannot be empty")
	ErrInvalidSender  = errors.New("invalid sender role")
	ErrEmptyQuery     = errors.New("query cannot be empty")
	ErrMissingHandler = errors.New("no handler configured for provider")
	ErrServiceStopped = errors.New("messaging service stopped")
)

// IsValidSender checks if the given sender role is supported.
func IsValidSender(s Sender) bool {
	switch s {
	case SenderCustomer, SenderSalesperson:
		return true
	default:
		return false
	}
}

// Message represents a single WhatsApp message in a conversation.
// Messages are immutable once written; identity is the message ID and
// ordering key is the Unix timestamp.
type Message struct {
	ID         string `json:"message_id"`
	ContactID  string `json:"contact_id"` // WhatsApp JID of the conversation
	Sender     Sender `json:"sender"`
	Content    string `json:"content"`
	Timestamp  int64  `json:"timestamp"`
	PushName   string `json:"push_name,omitempty"`
	AvatarURL  string `json:"profile_pic_url,omitempty"`
	InstanceID string `json:"instance_id,omitempty"`
}

// Validate performs validation on a Message structure.
func (m *Message) Validate() error {
	if m.ID == "" {
		return ErrEmptyMessageID
	}
	if m.ContactID == "" {
		return ErrEmptyContactID
	}
	if strings.TrimSpace(m.Content) == "" {
		return ErrEmptyContent
	}
	if !IsValidSender(m.Sender) {
		return ErrInvalidSender
	}
	return nil
}

// ConversationSummary is a derived view of a conversation for listing.
// Conversations have no entity of their own; they are grouped by contact ID.
type ConversationSummary struct {
	ContactID     string `json:"contact_id"`
	PushName      string `json:"push_name,omitempty"`
	LastMessage   string `json:"last_message"`
	LastTimestamp int64  `json:"last_timestamp"`
	MessageCount  int    `json:"message_count"`
}

// ClientData is a best-effort structured snapshot extracted from the
// conversation history. Fields are empty when not mentioned; the zero
// value is the safe default on extraction failure.
type ClientData struct {
	Name    string   `json:"name,omitempty"`
	Company string   `json:"company,omitempty"`
	Manager string   `json:"manager,omitempty"`
	Needs   []string `json:"needs,omitempty"`
}

// IsEmpty reports whether no field of the snapshot was filled.
func (c ClientData) IsEmpty() bool {
	return c.Name == "" && c.Company == "" && c.Manager == "" && len(c.Needs) == 0
}

// VideoSuggestion is an optional training-video link attached to a
// suggestion when the top knowledge hit carries video metadata.
type VideoSuggestion struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// FollowUpOption is one suggested next message for the salesperson.
type FollowUpOption struct {
	Tone          string `json:"tone"`
	Text          string `json:"text"`
	IsRecommended bool   `json:"is_recommended"`
}

// SuggestionPayload is the suggestion block returned to the caller.
type SuggestionPayload struct {
	ImmediateAnswer string           `json:"immediate_answer"`
	TextOptions     []string         `json:"text_options"`
	FollowUpOptions []FollowUpOption `json:"follow_up_options"`
	Video           *VideoSuggestion `json:"video,omitempty"`
}

// SuggestionRequest is the input of the suggestion-generation operation.
// History carries the full conversation; CurrentStageID is owned by the
// caller and passed through on every invocation.
type SuggestionRequest struct {
	Query          string      `json:"query"`
	ContactID      string      `json:"contact_id"`
	History        []Message   `json:"history,omitempty"`
	CurrentStageID string      `json:"current_stage_id,omitempty"`
	IsPrivate      bool        `json:"is_private,omitempty"`
	ClientData     *ClientData `json:"client_data,omitempty"`
}

// Validate checks that a suggestion request carries the required fields.
func (r *SuggestionRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return ErrEmptyQuery
	}
	return nil
}

// SuggestionResult is the output of the suggestion-generation operation.
// NewStageID is returned to the caller, which owns stage persistence.
type SuggestionResult struct {
	Status      string            `json:"status"`
	NewStageID  string            `json:"new_stage_id"`
	Suggestions SuggestionPayload `json:"suggestions"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
