package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/felipepmaragno/bigboost-gateway/internal/auth"
	"github.com/felipepmaragno/bigboost-gateway/internal/tools"
)

type HandlerConfig struct {
	Registry *tools.Registry
	// Auth guards the /api routes when set.
	Auth          *auth.APIKeyAuthenticator
	Checkers      []HealthChecker
	HealthTimeout time.Duration
	Version       string
	Logger        *slog.Logger
}

type Handler struct {
	registry *tools.Registry
	version  string
	started  time.Time
	logger   *slog.Logger
	mux      *http.ServeMux
}

type callRequest struct {
	Name       string          `json:"name"`
	Parameters json.RawMessage `json:"parameters"`
}

func NewHandler(cfg HandlerConfig) *Handler {
	timeout := cfg.HealthTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		registry: cfg.Registry,
		version:  cfg.Version,
		started:  time.Now(),
		logger:   logger,
		mux:      http.NewServeMux(),
	}

	guard := func(next http.HandlerFunc) http.Handler {
		if cfg.Auth == nil {
			return next
		}
		return cfg.Auth.RequireAPIKey(next)
	}

	h.mux.Handle("POST /api", guard(h.handleCall))
	h.mux.Handle("GET /api/tools", guard(h.handleListTools))
	h.mux.HandleFunc("GET /status", h.handleStatus)
	h.mux.HandleFunc("GET /health/live", h.handleHealthLive)
	h.mux.HandleFunc("GET /health/ready", handleHealthReadyWithCheckers(cfg.Checkers, timeout, cfg.Version))
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
	}
	w.Header().Set("X-Request-ID", requestID)

	ctx := tools.WithRequestID(r.Context(), requestID)
	h.mux.ServeHTTP(w, r.WithContext(ctx))
}

func (h *Handler) handleCall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := tools.RequestIDFrom(ctx)

	var req callRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Corpo da requisição inválido")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Nome da ferramenta não especificado")
		return
	}

	if !h.registry.Has(req.Name) {
		h.logger.Warn("unknown tool requested", "tool", req.Name, "request_id", requestID)
		writeError(w, http.StatusNotFound, fmt.Sprintf("Ferramenta '%s' não encontrada", req.Name))
		return
	}

	res := h.registry.Call(ctx, req.Name, req.Parameters)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

func (h *Handler) handleListTools(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.registry.List())
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":     "online",
		"version":    h.version,
		"toolsCount": len(h.registry.List()),
		"uptime":     time.Since(h.started).Seconds(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) handleHealthLive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": message,
			"type":    "error",
			"code":    status,
		},
	})
}
