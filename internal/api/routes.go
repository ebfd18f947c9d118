package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/voiceast/server/domain/entities"
	"github.com/voiceast/server/domain/repositories"
	"github.com/voiceast/server/internal/auth"
	"github.com/voiceast/server/internal/dispatch"
	"github.com/voiceast/server/internal/intent"
	"github.com/voiceast/server/internal/metrics"
	"github.com/voiceast/server/internal/synthesis"
	"github.com/voiceast/server/internal/websocket"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
	defaultMemoryLimit  = 5
	healthCheckTimeout  = 2 * time.Second
)

// Dependencies are the collaborators behind the HTTP surface.
// Voices and Recognizer may be nil.
type Dependencies struct {
	Hub        *websocket.Hub
	Store      repositories.Store
	Gate       *synthesis.Gate
	Voices     repositories.VoiceLister
	Recognizer repositories.SpeechRecognizer
	Resolver   *intent.Resolver
	Patterns   *intent.PatternRecognizer
	Dispatcher *dispatch.Dispatcher
	Issuer     *auth.Issuer
	Metrics    *metrics.Metrics

	// ClientSecret is exchanged for a token at /api/v1/auth/token
	ClientSecret string
}

type handler struct {
	deps   Dependencies
	logger *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Dependencies, logger *zap.Logger) {
	h := &handler{deps: deps, logger: logger}

	api := e.Group("/api")
	api.GET("/health", h.health)
	api.GET("/history", h.history)
	api.POST("/history/clear", h.clearHistory)
	api.GET("/statistics", h.statistics)
	api.GET("/preferences/:key", h.getPreference)
	api.POST("/preferences/:key", h.setPreference)
	api.GET("/memories", h.searchMemories)
	api.POST("/memories", h.addMemory)
	api.GET("/voices", h.voices)
	api.POST("/tts/speak", h.speak)
	api.POST("/execute", h.execute)

	v1 := api.Group("/v1")
	v1.POST("/auth/token", h.token)

	if deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))
	}

	// WebSocket endpoint, JWT protected when a secret is configured
	e.GET("/ws", h.serveWS)
}

func (h *handler) health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	return c.JSON(http.StatusOK, HealthResponse{
		Status:           "healthy",
		VoiceRecognition: h.deps.Recognizer != nil,
		Database:         h.deps.Store.Ping(ctx) == nil,
		TTS:              h.deps.Gate.Available(),
		AI:               h.deps.Resolver.GenerativeAvailable(ctx),
	})
}

func (h *handler) history(c echo.Context) error {
	limit := defaultHistoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_limit",
				Message: "limit must be a positive integer",
			})
		}
		limit = n
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	records, err := h.deps.Store.History(c.Request().Context(), limit)
	if err != nil {
		return h.internalError(c, "Failed to load history", err)
	}
	if records == nil {
		records = []*entities.CommandRecord{}
	}
	return c.JSON(http.StatusOK, HistoryResponse{History: records})
}

func (h *handler) clearHistory(c echo.Context) error {
	if err := h.deps.Store.Clear(c.Request().Context()); err != nil {
		return h.internalError(c, "Failed to clear history", err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "History cleared"})
}

func (h *handler) statistics(c echo.Context) error {
	stats, err := h.deps.Store.Statistics(c.Request().Context())
	if err != nil {
		return h.internalError(c, "Failed to compute statistics", err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *handler) getPreference(c echo.Context) error {
	key := c.Param("key")
	value, err := h.deps.Store.Get(c.Request().Context(), key)
	if errors.Is(err, repositories.ErrNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Preference not set",
		})
	}
	if err != nil {
		return h.internalError(c, "Failed to load preference", err)
	}
	return c.JSON(http.StatusOK, PreferenceResponse{Key: key, Value: value})
}

func (h *handler) setPreference(c echo.Context) error {
	var req PreferenceRequest
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, err)
	}

	key := c.Param("key")
	if err := h.deps.Store.Set(c.Request().Context(), key, req.Value); err != nil {
		return h.internalError(c, "Failed to save preference", err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

func (h *handler) searchMemories(c echo.Context) error {
	limit := defaultMemoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	memories, err := h.deps.Store.SearchMemories(c.Request().Context(), c.QueryParam("q"), limit)
	if err != nil {
		return h.internalError(c, "Failed to search memories", err)
	}
	if memories == nil {
		memories = []string{}
	}
	return c.JSON(http.StatusOK, MemoriesResponse{Memories: memories})
}

func (h *handler) addMemory(c echo.Context) error {
	var req MemoryRequest
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, err)
	}
	if strings.TrimSpace(req.Text) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "text is required",
		})
	}

	if err := h.deps.Store.AddMemory(c.Request().Context(), req.Text); err != nil {
		return h.internalError(c, "Failed to save memory", err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

func (h *handler) voices(c echo.Context) error {
	voices := []repositories.Voice{}
	if h.deps.Voices != nil {
		listed, err := h.deps.Voices.Voices(c.Request().Context())
		if err != nil {
			h.logger.Warn("Failed to list voices", zap.Error(err))
		} else if listed != nil {
			voices = listed
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"voices": voices})
}

func (h *handler) speak(c echo.Context) error {
	var req SpeakRequest
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, err)
	}
	if strings.TrimSpace(req.Text) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "text is required",
		})
	}

	audio := h.deps.Gate.Synthesize(c.Request().Context(), req.Text, string(intent.DetectLanguage(req.Text)), synthesis.Unbounded)
	return c.JSON(http.StatusOK, SpeakResponse{
		Success: audio != "",
		Text:    req.Text,
		Audio:   audio,
	})
}

// execute runs a command through the regex recognizer, without any model
func (h *handler) execute(c echo.Context) error {
	var req ExecuteRequest
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, err)
	}
	if strings.TrimSpace(req.Command) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "command is required",
		})
	}

	ctx := c.Request().Context()
	recognized := h.deps.Patterns.Recognize(req.Command)
	response := h.deps.Patterns.FormatResponse(recognized.Action, recognized.Params)
	result := h.deps.Dispatcher.Dispatch(ctx, recognized.Action, recognized.Params, recognized.Language)

	record := entities.NewCommandRecord(req.Command, recognized.Action, response, result.Success, result.Map())
	if err := h.deps.Store.Save(ctx, record); err != nil {
		h.logger.Warn("Failed to save command history", zap.Error(err))
	}

	return c.JSON(http.StatusOK, ExecuteResponse{
		Success:  result.Success,
		Intent:   recognized.Action,
		Response: response,
		Result:   result,
	})
}

func (h *handler) token(c echo.Context) error {
	var req TokenRequest

	// Bind and validate request
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, err)
	}

	if req.ClientID == "" || req.SecretKey == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Client ID and secret key are required",
		})
	}

	if !h.deps.Issuer.Enabled() || h.deps.ClientSecret == "" {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "auth_disabled",
			Message: "Token authentication is not configured",
		})
	}

	if subtle.ConstantTimeCompare([]byte(req.SecretKey), []byte(h.deps.ClientSecret)) != 1 {
		h.logger.Warn("Client authentication failed", zap.String("clientID", req.ClientID))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "authentication_failed",
			Message: "Invalid client credentials",
		})
	}

	token, expiresAt, err := h.deps.Issuer.GenerateClientToken(req.ClientID)
	if err != nil {
		h.logger.Error("Failed to generate client token",
			zap.String("clientID", req.ClientID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	h.logger.Info("Client authenticated successfully", zap.String("clientID", req.ClientID))

	return c.JSON(http.StatusOK, TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		ClientID:  req.ClientID,
	})
}

// serveWS upgrades the connection. With auth enabled the token comes from
// the Authorization header or, for browsers, the token query parameter.
func (h *handler) serveWS(c echo.Context) error {
	if !h.deps.Issuer.Enabled() {
		return websocket.HandleWebSocket(h.deps.Hub, c, "", h.logger)
	}

	var token string
	authHeader := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		token = strings.TrimPrefix(authHeader, "Bearer ")
	}
	if token == "" {
		token = c.QueryParam("token")
	}

	if token == "" {
		h.logger.Warn("WebSocket connection rejected: missing token")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "JWT token is required",
		})
	}

	claims, err := h.deps.Issuer.ValidateToken(token)
	if err != nil {
		h.logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired JWT token",
		})
	}

	if claims.Role != auth.RoleClient {
		h.logger.Warn("WebSocket connection rejected: invalid role", zap.String("role", claims.Role))
		return c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "invalid_role",
			Message: "Only client tokens are allowed for WebSocket connections",
		})
	}

	return websocket.HandleWebSocket(h.deps.Hub, c, claims.ClientID, h.logger)
}

func (h *handler) badRequest(c echo.Context, err error) error {
	h.logger.Warn("Failed to bind request", zap.String("path", c.Path()), zap.Error(err))
	return c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "invalid_request",
		Message: "Invalid request format",
	})
}

func (h *handler) internalError(c echo.Context, message string, err error) error {
	h.logger.Error(message, zap.String("path", c.Path()), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: message,
	})
}
