package chat

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/medvault/medvault/internal/platform/auth"
	"github.com/medvault/medvault/internal/platform/llm"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/chat", h.Chat)
}

type chatRequest struct {
	Message     string   `json:"message"`
	MaxTokens   int      `json:"max_tokens"`
	Temperature *float64 `json:"temperature"`
}

func (h *Handler) Chat(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())

	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}

	reply, err := h.svc.Ask(c.Request().Context(), userID, req.Message, req.MaxTokens, req.Temperature)
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "language model not configured")
	case errors.Is(err, llm.ErrTimeout):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "language model timed out")
	case errors.Is(err, llm.ErrUpstream):
		return echo.NewHTTPError(http.StatusBadGateway, "language model request failed")
	case err != nil:
		return err
	}
	return c.JSON(http.StatusOK, reply)
}
