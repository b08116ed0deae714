// Package server exposes the chat abstraction over HTTP.
package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/docbt/docbt/internal/config"
	"github.com/docbt/docbt/internal/llm"
)

type Server struct {
	echo *echo.Echo
	addr string
}

func NewServer(cfg *config.Config) *Server {
	addr := cfg.Server.Listen
	if addr == "" {
		addr = ":8555"
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	h := &chatHandler{cfg: cfg}
	h.Register(e)

	return &Server{
		echo: e,
		addr: addr,
	}
}

func (s *Server) Start() error {
	return s.echo.Start(s.addr)
}

// Handler returns the underlying HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// chatRequest is the HTTP chat body. Unset optional fields fall back to the
// selected provider profile.
type chatRequest struct {
	Message              string            `json:"message"`
	Profile              string            `json:"profile"`
	SystemPrompt         string            `json:"system_prompt"`
	History              []llm.HistoryTurn `json:"history"`
	Model                string            `json:"model"`
	MaxTokens            *int              `json:"max_tokens"`
	Temperature          *float64          `json:"temperature"`
	TopP                 *float64          `json:"top_p"`
	Stop                 []string          `json:"stop"`
	ResponseFormat       map[string]any    `json:"response_format"`
	Endpoint             string            `json:"endpoint"`
	ReturnMetrics        *bool             `json:"return_metrics"`
	ReturnChainOfThought *bool             `json:"return_chain_of_thought"`
}

type chatHandler struct {
	cfg *config.Config
}

func (h *chatHandler) Register(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	e.POST("/api/chat", h.Chat)
}

func (h *chatHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *chatHandler) Chat(c echo.Context) error {
	var body chatRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}

	profile := h.cfg.Profile(body.Profile)
	req := profile.ChatRequest(body.Message, body.History)
	applyOverrides(&req, body)

	resp, err := llm.Chat(c.Request().Context(), req)
	if err != nil {
		if isConfigError(err) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if errors.Is(err, llm.ErrStructuredValidation) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, resp)
}

func applyOverrides(req *llm.ChatRequest, body chatRequest) {
	if body.SystemPrompt != "" {
		req.SystemPrompt = body.SystemPrompt
	}
	if body.Model != "" {
		req.Model = body.Model
	}
	if body.MaxTokens != nil {
		req.MaxTokens = body.MaxTokens
	}
	if body.Temperature != nil {
		req.Temperature = body.Temperature
	}
	if body.TopP != nil {
		req.TopP = body.TopP
	}
	if len(body.Stop) > 0 {
		req.Stop = body.Stop
	}
	if len(body.ResponseFormat) > 0 {
		req.ResponseFormat = body.ResponseFormat
	}
	if body.Endpoint != "" {
		req.Endpoint = llm.Endpoint(body.Endpoint)
	}
	if body.ReturnMetrics != nil {
		req.ReturnMetrics = *body.ReturnMetrics
	}
	if body.ReturnChainOfThought != nil {
		req.ReturnChainOfThought = *body.ReturnChainOfThought
	}
}

func isConfigError(err error) bool {
	return errors.Is(err, llm.ErrInvalidProvider) ||
		errors.Is(err, llm.ErrInvalidEndpoint) ||
		errors.Is(err, llm.ErrServerURLRequired) ||
		errors.Is(err, llm.ErrAPIKeyRequired)
}
