// Package api provides HTTP handlers and the main API server logic for
// the sales copilot.
//
// It exposes RESTful endpoints for suggestion generation and
// conversation management, and wires together the store, knowledge
// base, brain and messaging modules at startup.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/venai/copilot/internal/brain"
	"github.com/venai/copilot/internal/genai"
	"github.com/venai/copilot/internal/knowledge"
	"github.com/venai/copilot/internal/messaging"
	"github.com/venai/copilot/internal/models"
	"github.com/venai/copilot/internal/playbook"
	"github.com/venai/copilot/internal/store"
	"github.com/venai/copilot/internal/twiliowhatsapp"
	"github.com/venai/copilot/internal/whatsapp"
)

// Default configuration for the API server.
const (
	// DefaultAddr is the default API listen address.
	DefaultAddr = ":8080"
	// DefaultPlaybookPath is the default sales playbook location.
	DefaultPlaybookPath = "data/playbook.json"
	// DefaultKnowledgePath is the default knowledge corpus location.
	DefaultKnowledgePath = "data/knowledge.json"

	// ProviderWhatsApp selects the Whatsmeow-based transport.
	ProviderWhatsApp = "whatsapp"
	// ProviderTwilio selects the Twilio-based transport.
	ProviderTwilio = "twilio"
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr          string
	PlaybookPath  string
	KnowledgePath string
	Provider      string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the API listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithPlaybookPath sets the sales playbook file path.
func WithPlaybookPath(path string) Option {
	return func(o *Opts) { o.PlaybookPath = path }
}

// WithKnowledgePath sets the knowledge corpus file path.
func WithKnowledgePath(path string) Option {
	return func(o *Opts) { o.KnowledgePath = path }
}

// WithProvider selects the messaging transport ("whatsapp" or "twilio").
func WithProvider(provider string) Option {
	return func(o *Opts) { o.Provider = provider }
}

// suggestionEngine is the brain surface the handlers depend on.
type suggestionEngine interface {
	GenerateSalesSuggestions(ctx context.Context, req models.SuggestionRequest) (*models.SuggestionResult, error)
}

// Server holds the API dependencies plus the per-conversation stage
// pointers. Stage state is owned here, not by the brain: the engine
// receives the current stage and returns the next one on each call.
type Server struct {
	st         store.Store
	engine     suggestionEngine
	msgService messaging.Service
	stageMu    sync.RWMutex
	stages     map[string]string
}

// NewServer creates an API server over the given dependencies.
func NewServer(st store.Store, engine suggestionEngine, msgService messaging.Service) *Server {
	return &Server{
		st:         st,
		engine:     engine,
		msgService: msgService,
		stages:     make(map[string]string),
	}
}

// Run wires all modules together and serves the API until the process
// exits. Configuration errors (missing playbook, empty knowledge
// corpus, missing API key) are fatal: the service refuses to start.
func Run(waOpts []whatsapp.Option, storeOpts []store.Option, genaiOpts []genai.Option, apiOpts []Option) error {
	cfg := Opts{
		Addr:          DefaultAddr,
		PlaybookPath:  DefaultPlaybookPath,
		KnowledgePath: DefaultKnowledgePath,
		Provider:      ProviderWhatsApp,
	}
	for _, opt := range apiOpts {
		opt(&cfg)
	}

	st, err := buildStore(storeOpts)
	if err != nil {
		return err
	}
	defer st.Close()

	aiClient, err := genai.NewClient(genaiOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize GenAI client: %w", err)
	}

	pb, err := playbook.Load(cfg.PlaybookPath)
	if err != nil {
		return err
	}

	chunks, err := knowledge.LoadCorpus(cfg.KnowledgePath)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	retriever, err := knowledge.NewRetriever(ctx, chunks, aiClient.Embed)
	if err != nil {
		return err
	}

	engine := brain.NewEngine(aiClient, retriever, pb)

	msgService, twilioService, err := buildMessagingService(cfg.Provider, waOpts)
	if err != nil {
		return err
	}
	if err := msgService.Start(ctx); err != nil {
		return fmt.Errorf("failed to start messaging service: %w", err)
	}
	defer msgService.Stop()

	ingestor := messaging.NewIngestor(msgService, st)
	go ingestor.Run(ctx)

	server := NewServer(st, engine, msgService)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", server.healthHandler)
	mux.HandleFunc("/suggestions", server.suggestionsHandler)
	mux.HandleFunc("/conversations", server.conversationsHandler)
	mux.HandleFunc("/conversations/", server.conversationRouter)
	if twilioService != nil {
		mux.HandleFunc("/webhook/twilio", twilioService.TwilioWebhookHandler)
	}

	slog.Info("API server listening", "addr", cfg.Addr, "provider", cfg.Provider)
	return http.ListenAndServe(cfg.Addr, mux)
}

// buildStore selects the persistence backend by DSN: PostgreSQL for
// postgres DSNs, SQLite for file paths, in-memory when no DSN is set.
func buildStore(storeOpts []store.Option) (store.Store, error) {
	var cfg store.Opts
	for _, opt := range storeOpts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Info("No database DSN provided, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(cfg.DSN) == "postgres" {
		slog.Info("Using PostgreSQL store")
		return store.NewPostgresStore(storeOpts...)
	}
	slog.Info("Using SQLite store", "path", cfg.DSN)
	return store.NewSQLiteStore(storeOpts...)
}

// buildMessagingService creates the configured transport. The Twilio
// service is returned separately so its webhook handler can be mounted.
func buildMessagingService(provider string, waOpts []whatsapp.Option) (messaging.Service, *messaging.TwilioService, error) {
	switch provider {
	case ProviderTwilio:
		twilioClient, err := twiliowhatsapp.NewClient()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Twilio client: %w", err)
		}
		svc := messaging.NewTwilioService(twilioClient)
		return svc, svc, nil
	case ProviderWhatsApp:
		waClient, err := whatsapp.NewClient(waOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize WhatsApp client: %w", err)
		}
		return messaging.NewWhatsAppService(waClient), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown messaging provider %q", provider)
	}
}

// currentStage returns the stored stage pointer for a contact, empty if
// the conversation has not advanced yet.
func (s *Server) currentStage(contactID string) string {
	s.stageMu.RLock()
	defer s.stageMu.RUnlock()
	return s.stages[contactID]
}

// setStage advances the stored stage pointer for a contact.
func (s *Server) setStage(contactID, stageID string) {
	if contactID == "" || stageID == "" {
		return
	}
	s.stageMu.Lock()
	defer s.stageMu.Unlock()
	s.stages[contactID] = stageID
}
