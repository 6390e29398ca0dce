package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/quillhive/backend/internal/models"
	"github.com/quillhive/backend/internal/repositories"
	"github.com/quillhive/backend/internal/security"
)

// SettingsHandler handles notification preference HTTP requests
type SettingsHandler struct {
	settingsRepository repositories.SettingsRepository
	userRepository     repositories.UserRepository
	tokens             *security.TokenIssuer
	logger             *zap.Logger
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(settingsRepo repositories.SettingsRepository, userRepo repositories.UserRepository, tokens *security.TokenIssuer, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{
		settingsRepository: settingsRepo,
		userRepository:     userRepo,
		tokens:             tokens,
		logger:             logger,
	}
}

// RegisterSettingsRoutes registers authenticated settings routes
func (h *SettingsHandler) RegisterSettingsRoutes(g *echo.Group) {
	g.GET("/settings", h.GetSettings)
	g.PUT("/settings", h.UpdateSettings)
}

// RegisterPublicRoutes registers routes reachable from email links
// without a session.
func (h *SettingsHandler) RegisterPublicRoutes(e *echo.Echo) {
	e.GET("/api/v1/settings/unsubscribe", h.Unsubscribe)
}

// GetSettings returns the user's preferences, creating the default
// record on first read.
func (h *SettingsHandler) GetSettings(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	settings, err := h.settingsRepository.GetOrCreate(c.Request().Context(), currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": settings})
}

// UpdateSettings overwrites the categories present in the payload.
func (h *SettingsHandler) UpdateSettings(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.UpdateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.settingsRepository.Update(c.Request().Context(), currentUserID, req); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"success": true}})
}

// Unsubscribe handles the opt-out link embedded in outbound email: the
// signed token names the address and the category losing its email
// channel.
func (h *SettingsHandler) Unsubscribe(c echo.Context) error {
	token := c.QueryParam("token")
	email := c.QueryParam("email")
	if token == "" || email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing token or email")
	}

	tokenEmail, category, err := h.tokens.ParseUnsubscribe(token)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid token")
	}
	if !strings.EqualFold(tokenEmail, email) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid token")
	}

	user, err := h.userRepository.GetUserByEmail(tokenEmail)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}

	if err := h.settingsRepository.RemoveChannel(c.Request().Context(), user.ID, category, models.ChannelEmail); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.logger.Info("email channel unsubscribed",
		zap.Uint("user_id", user.ID), zap.String("category", string(category)))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"success": true}})
}
