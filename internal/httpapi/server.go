package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"privacy-chatter/internal/analytics"
	"privacy-chatter/internal/llm"
	"privacy-chatter/internal/storage"
)

// AnonymousUser is used when a request carries no userId.
const AnonymousUser = "anonymous"

// Chatter is the conversation surface exposed over HTTP.
type Chatter interface {
	Reply(ctx context.Context, userID, prompt string) string
	Reset(userID string)
	History(userID string) []llm.Message
}

type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

type Options struct {
	Addr           string
	AllowedOrigins []string
	// WriteTimeout must cover the topic check and the main completion.
	WriteTimeout time.Duration
	// Recorder backs /api/stats; nil disables the endpoint.
	Recorder      storage.Recorder
	Conversations func() int
	BreakerState  func() string
	Logger        *slog.Logger
}

type Server struct {
	chat      Chatter
	models    ModelLister
	opts      Options
	logger    *slog.Logger
	server    *http.Server
	startTime time.Time
	now       func() time.Time
}

func New(chat Chatter, models ModelLister, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 65 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		chat:      chat,
		models:    models,
		opts:      opts,
		logger:    opts.Logger,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// Handler returns the routed mux wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/openai/chat", s.handleChat)
	mux.HandleFunc("/api/openai/reset", s.handleReset)
	mux.HandleFunc("/api/openai/history", s.handleHistory)
	mux.HandleFunc("/api/openai/test", s.handleTest)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/status", s.handleStatus)

	var h http.Handler = mux
	h = cors(s.opts.AllowedOrigins)(h)
	h = securityHeaders(h)
	h = requestLog(s.logger)(h)
	return h
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	s.logger.Info("http server listening", "addr", s.opts.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func userID(r *http.Request) string {
	if id := strings.TrimSpace(r.URL.Query().Get("userId")); id != "" {
		return id
	}
	return AnonymousUser
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	prompt := r.URL.Query().Get("prompt")
	if strings.TrimSpace(prompt) == "" {
		http.Error(w, "prompt is required", http.StatusBadRequest)
		return
	}
	// The turn is recorded in history either way, so a client hanging up
	// must not cancel it halfway. Upstream calls keep their own timeout.
	reply := s.chat.Reply(context.WithoutCancel(r.Context()), userID(r), prompt)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(reply))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	s.chat.Reset(userID(r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	msgs := s.chat.History(userID(r))
	if msgs == nil {
		msgs = []llm.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	ids, err := s.models.ListModels(r.Context())
	if err != nil {
		s.logger.Error("connection test failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": ids})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if s.opts.Recorder == nil {
		http.Error(w, "interaction log disabled", http.StatusNotFound)
		return
	}
	day := s.now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid date %q, want YYYY-MM-DD", raw), http.StatusBadRequest)
			return
		}
		day = d
	}
	stats, err := analytics.LoadDailyStats(s.opts.Recorder, day)
	if err != nil {
		s.logger.Error("failed to load stats", "error", err)
		http.Error(w, "failed to load stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status": "ok",
		"uptime": s.now().Sub(s.startTime).Round(time.Second).String(),
	}
	if s.opts.Conversations != nil {
		resp["conversations"] = s.opts.Conversations()
	}
	if s.opts.BreakerState != nil {
		resp["breaker"] = s.opts.BreakerState()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}
