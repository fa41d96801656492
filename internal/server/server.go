package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"vetdesk-backend/internal/assistant"
	"vetdesk-backend/internal/chat"
	"vetdesk-backend/internal/config"
	"vetdesk-backend/internal/db"
	"vetdesk-backend/internal/intent"
	"vetdesk-backend/internal/mail"
	"vetdesk-backend/internal/news"
	"vetdesk-backend/internal/store"
	"vetdesk-backend/internal/summary"
	"vetdesk-backend/internal/types"
)

// completionClient is the slice of the OpenAI client the chat proxy uses.
type completionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Server struct {
	router       *chi.Mux
	cfg          config.Config
	llm          completionClient
	prompt       PromptSpec
	controller   *chat.Controller
	news         *news.Client
	mailer       *mail.Sender
	emailLimiter *ipLimiter
	database     *db.DB
	deliveries   *store.DeliveryLog
}

func NewServer(cfg config.Config) (*Server, error) {
	rates, err := intent.LoadRateTable(cfg.RatesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load rate table: %w", err)
	}
	prompt, err := LoadPromptSpec(cfg.PromptFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt spec: %w", err)
	}

	opts := []assistant.Option{assistant.WithSystemPrompt(prompt.System)}
	if cfg.RetryOnRateLimit {
		opts = append(opts, assistant.WithRetryOnRateLimit(cfg.RetryDelay))
	}
	assistClient := assistant.NewClient(cfg.APIURL, cfg.FrontendSecret, cfg.RequestTimeout, opts...)
	summarySvc := summary.NewService(assistClient, cfg.SummaryAPIURL, cfg.RequestTimeout)

	chatStore := chat.NewStore(cfg.MaxConversationLength)
	controller := chat.NewController(
		chatStore,
		rates,
		&assistantGateway{client: assistClient},
		summarySvc,
		cfg.MaxQuestions,
		cfg.MaxMessageLength,
	)

	// Delivery log is optional; the server runs without a database.
	var database *db.DB
	var deliveries *store.DeliveryLog
	if cfg.DatabaseURL != "" {
		database, err = db.New(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := database.EnsureSchema(); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to prepare database: %w", err)
		}
		log.Println("database connection established")
		deliveries = store.NewDeliveryLog(database)
	} else {
		log.Println("warning: DB_URL not provided, summary deliveries will not be logged")
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Session-Id"},
		AllowCredentials: true, // Enable credentials for cookies
		MaxAge:           300,
	}))

	s := &Server{
		router:       r,
		cfg:          cfg,
		llm:          openai.NewClient(cfg.OpenAIAPIKey),
		prompt:       prompt,
		controller:   controller,
		news:         news.NewClient(cfg.NewsAPIURL, cfg.NewsAPIKey, cfg.NewsCacheTTL, cfg.RequestTimeout),
		mailer: &mail.Sender{
			Host:     cfg.EmailHost,
			Port:     cfg.EmailPort,
			User:     cfg.EmailUser,
			Password: cfg.EmailPassword,
			FromName: cfg.EmailFromName,
		},
		emailLimiter: newIPLimiter(cfg.EmailRateLimit, cfg.EmailRateWindow),
		database:     database,
		deliveries:   deliveries,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Post("/api/message", s.handleMessage)
	s.router.Post("/api/reset", s.handleReset)
	s.router.Post("/api/chat", s.handleChat)
	s.router.Post("/api/send-summary", s.handleSendSummary)
	s.router.Get("/api/summary-log", s.handleSummaryLog)
	s.router.Get("/api/news", s.handleNews)
}

func (s *Server) Router() http.Handler { return s.router }

// Close releases the optional database connection.
func (s *Server) Close() error {
	if s.database != nil {
		return s.database.Close()
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if s.database != nil {
		if err := s.database.HealthCheck(); err != nil {
			log.Println("database health check failed:", err)
			status["database"] = "unavailable"
		} else {
			status["database"] = "ok"
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}

// handleReset ends the current session so the widget can start a fresh
// conversation after the question cap.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if sid := getSessionID(r); sid != "" {
		s.controller.Store().Delete(sid)
		log.Printf("[session] reset session: %s", sid)
	}
	ClearSessionCookie(w)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "reset"})
}

// handleMessage is the widget flow: one user submission through the
// conversation state machine.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req types.MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sid := getOrCreateSessionID(r, w)

	outcome, err := s.controller.Submit(r.Context(), sid, req.Message)
	if err != nil {
		// Validation failures become an inline error, never a turn.
		switch {
		case errors.Is(err, chat.ErrEmptyInput):
			s.writeError(w, http.StatusBadRequest, "message is required")
		case errors.Is(err, chat.ErrTooLong):
			s.writeError(w, http.StatusBadRequest,
				fmt.Sprintf("Message must be between 1 and %d characters.", s.cfg.MaxMessageLength))
		default:
			log.Printf("[message] submit failed: %v", err)
			s.writeError(w, http.StatusInternalServerError, "something went wrong, please try again")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Session-Id", sid)
	_ = json.NewEncoder(w).Encode(types.MessageResponse{
		SessionID:     sid,
		Reply:         outcome.Reply,
		Kind:          string(outcome.Kind),
		QuestionsLeft: outcome.QuestionsLeft,
	})
}

// handleChat is the proxy contract itself: candidates envelope in and out,
// bearer-secret auth, completion via the model provider.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if s.cfg.FrontendSecret == "" || token != s.cfg.FrontendSecret {
		s.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req types.ChatProxyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.ChatHistory) == 0 {
		s.writeError(w, http.StatusBadRequest, "invalid chat history")
		return
	}

	systemPrompt := s.prompt.System
	if strings.TrimSpace(req.SystemPrompt) != "" {
		systemPrompt = req.SystemPrompt
	}
	messages := make([]openai.ChatCompletionMessage, 0, len(req.ChatHistory)+1)
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	for _, m := range req.ChatHistory {
		if len(m.Parts) == 0 || strings.TrimSpace(m.Parts[0].Text) == "" {
			continue
		}
		role := openai.ChatMessageRoleUser
		if m.Role == "model" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Parts[0].Text})
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()
	resp, err := s.llm.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.cfg.Model,
		Messages:    messages,
		Temperature: s.prompt.Style.Temperature,
		MaxTokens:   s.prompt.Style.MaxTokens,
	})
	if err != nil {
		log.Println("chat completion error:", err)
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			s.writeError(w, http.StatusTooManyRequests, "model provider rate limited")
			return
		}
		s.writeError(w, http.StatusBadGateway, "chat completion failed")
		return
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		s.writeError(w, http.StatusBadGateway, "empty completion")
		return
	}

	var out types.ChatProxyResponse
	candidate := types.ChatCandidate{}
	candidate.Content.Parts = []types.ChatPart{{Text: resp.Choices[0].Message.Content}}
	out.Candidates = []types.ChatCandidate{candidate}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// handleSendSummary validates and delivers one summary email, enforcing the
// per-IP quota before anything else.
func (s *Server) handleSendSummary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")

	ip := clientIP(r)
	if !s.emailLimiter.Allow(ip) {
		s.writeSummaryError(w, http.StatusTooManyRequests, "Too many email requests. Please try again later.")
		return
	}

	var req types.SummaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeSummaryError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Subject == "" || req.Content == "" {
		s.writeSummaryError(w, http.StatusBadRequest, "Missing required fields: email, subject, and content are required")
		return
	}
	if !chat.ValidEmail(req.Email) {
		s.writeSummaryError(w, http.StatusBadRequest, "Invalid email format")
		return
	}
	if utf8.RuneCountInString(req.Content) > s.cfg.MaxContentLength {
		s.writeSummaryError(w, http.StatusBadRequest, "Content too long")
		return
	}
	if utf8.RuneCountInString(req.Subject) > s.cfg.MaxSubjectLength {
		s.writeSummaryError(w, http.StatusBadRequest, "Subject too long")
		return
	}
	// A subject line with CR or LF would terminate the header and let the
	// caller append headers of their own.
	if strings.ContainsAny(req.Subject, "\r\n") {
		s.writeSummaryError(w, http.StatusBadRequest, "Invalid subject")
		return
	}
	// With a delivery log available, the quota also binds to the recipient,
	// so rotating IPs doesn't flood one mailbox.
	if s.deliveries != nil {
		n, err := s.deliveries.CountSince(req.Email, time.Now().Add(-s.cfg.EmailRateWindow))
		if err != nil {
			log.Printf("[summary] delivery count lookup failed: %v", err)
		} else if n >= s.cfg.EmailRateLimit {
			s.writeSummaryError(w, http.StatusTooManyRequests, "Too many email requests. Please try again later.")
			return
		}
	}
	if !s.mailer.Configured() {
		log.Println("email service not configured - missing EMAIL_USER/EMAIL_PASSWORD")
		s.writeSummaryError(w, http.StatusInternalServerError, "Email service temporarily unavailable")
		return
	}

	messageID, err := s.mailer.Send(req.Email, req.Subject, req.Content)
	if err != nil {
		log.Println("email send error:", err)
		s.writeSummaryError(w, http.StatusInternalServerError, "Failed to send email. Please try again later.")
		return
	}
	log.Printf("[summary] email sent to %s (%s)", req.Email, messageID)

	if s.deliveries != nil {
		if err := s.deliveries.Record(req.Email, ip, messageID); err != nil {
			log.Printf("[summary] failed to record delivery: %v", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(types.SummaryResponse{
		Success:   true,
		Message:   "Email sent successfully",
		MessageID: messageID,
		Remaining: s.emailLimiter.Remaining(ip),
	})
}

// handleSummaryLog exposes the recent delivery rows for operators, behind
// the same bearer secret as the chat proxy.
func (s *Server) handleSummaryLog(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if s.cfg.FrontendSecret == "" || token != s.cfg.FrontendSecret {
		s.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if s.deliveries == nil {
		s.writeError(w, http.StatusServiceUnavailable, "delivery log not configured")
		return
	}
	recent, err := s.deliveries.Recent(20)
	if err != nil {
		log.Println("delivery log query error:", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read delivery log")
		return
	}
	if recent == nil {
		recent = []store.Delivery{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(recent)
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()
	articles, err := s.news.Articles(ctx)
	if err != nil {
		log.Println("news fetch error:", err)
		s.writeError(w, http.StatusBadGateway, "Unable to load news at this time. Please try again later.")
		return
	}
	if articles == nil {
		articles = []types.NewsArticle{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(types.NewsResponse{Articles: articles})
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg})
}

func (s *Server) writeSummaryError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(types.SummaryResponse{Success: false, Error: msg})
}

// assistantGateway adapts conversation turns to the chat-endpoint wire roles.
type assistantGateway struct {
	client *assistant.Client
}

func (g *assistantGateway) Complete(ctx context.Context, turns []chat.Turn) (string, error) {
	history := make([]types.ChatMessage, 0, len(turns))
	for _, t := range turns {
		if t.Pending || strings.TrimSpace(t.Text) == "" {
			continue
		}
		role := "user"
		if t.Role == chat.RoleAssistant {
			role = "model"
		}
		history = append(history, types.ChatMessage{Role: role, Parts: []types.ChatPart{{Text: t.Text}}})
	}
	return g.client.Complete(ctx, history)
}

func newSessionID() string {
	return "s_" + uuid.NewString()
}

// getSessionID retrieves the session ID from cookie or header
func getSessionID(r *http.Request) string {
	if cookie, err := GetSessionCookie(r); err == nil && cookie != "" {
		return cookie
	}
	if sid := r.Header.Get("X-Session-Id"); sid != "" {
		return sid
	}
	return ""
}

// getOrCreateSessionID gets existing session ID or creates a new one, setting the cookie
func getOrCreateSessionID(r *http.Request, w http.ResponseWriter) string {
	sid := getSessionID(r)
	if sid == "" {
		sid = newSessionID()
		log.Printf("[session] creating new session: %s", sid)
		SetSessionCookie(w, sid)
	}
	return sid
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the
// connection's remote address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
