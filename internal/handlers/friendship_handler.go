package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/quillhive/backend/internal/models"
	"github.com/quillhive/backend/internal/notify"
	"github.com/quillhive/backend/internal/repositories"
	"github.com/quillhive/backend/internal/security"
)

// FriendshipHandler handles HTTP requests related to friendships. It is
// the single-target notification trigger: sending a request queues a
// friend_request event for the receiver.
type FriendshipHandler struct {
	friendshipRepository repositories.FriendshipRepository
	userRepository       repositories.UserRepository
	dispatcher           *notify.Dispatcher
	tokens               *security.TokenIssuer
	logger               *zap.Logger
}

// NewFriendshipHandler creates a new FriendshipHandler
func NewFriendshipHandler(friendshipRepo repositories.FriendshipRepository, userRepo repositories.UserRepository, dispatcher *notify.Dispatcher, tokens *security.TokenIssuer, logger *zap.Logger) *FriendshipHandler {
	return &FriendshipHandler{
		friendshipRepository: friendshipRepo,
		userRepository:       userRepo,
		dispatcher:           dispatcher,
		tokens:               tokens,
		logger:               logger,
	}
}

// RegisterFriendshipRoutes registers friendship-related routes
func (h *FriendshipHandler) RegisterFriendshipRoutes(g *echo.Group) {
	g.POST("/friends/request", h.SendFriendRequest)
	g.GET("/friends/requests/pending", h.GetPendingFriendRequests)
	g.PUT("/friends/request/:id/status", h.UpdateFriendRequestStatus)
}

// RegisterPublicRoutes registers the accept/decline endpoint reachable
// from the signed links in the friend-request email.
func (h *FriendshipHandler) RegisterPublicRoutes(e *echo.Echo) {
	e.GET("/api/v1/friends/action", h.FriendAction)
}

// SendFriendRequest handles sending a friend request
func (h *FriendshipHandler) SendFriendRequest(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreateFriendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if currentUserID == req.ReceiverID {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot send a friend request to yourself")
	}

	// Check if receiver exists
	if _, err := h.userRepository.GetUserByID(req.ReceiverID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Receiver user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	friendRequest := &models.FriendRequest{
		SenderID:   currentUserID,
		ReceiverID: req.ReceiverID,
	}
	if err := h.friendshipRepository.SendFriendRequest(friendRequest); err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}

	// Fan-out is queued so this request returns without waiting on
	// notification delivery.
	h.dispatcher.QueueOne(models.Event{
		Kind:         models.KindFriendRequest,
		FromUserID:   currentUserID,
		FromUsername: getUsernameFromContext(c),
		Content:      getUsernameFromContext(c) + " sent you a friend request",
		Details: map[string]any{
			"request_id": friendRequest.ID,
		},
	}, req.ReceiverID)

	return c.JSON(http.StatusCreated, friendRequest)
}

// GetPendingFriendRequests retrieves pending friend requests for the authenticated user
func (h *FriendshipHandler) GetPendingFriendRequests(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	requests, err := h.friendshipRepository.GetUserPendingFriendRequests(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": requests})
}

// UpdateFriendRequestStatus accepts or declines a request through the API
func (h *FriendshipHandler) UpdateFriendRequestStatus(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	requestID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request ID")
	}

	var req models.UpdateFriendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	friendRequest, err := h.friendshipRepository.GetFriendRequestByID(uint(requestID))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Friend request not found")
	}
	if friendRequest.ReceiverID != currentUserID {
		return echo.NewHTTPError(http.StatusForbidden, "Only the receiver can act on a friend request")
	}

	if err := h.friendshipRepository.UpdateFriendRequestStatus(uint(requestID), req.Status); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"status": req.Status}})
}

// FriendAction resolves the pre-signed accept/decline token carried in a
// friend-request email and applies it without a session.
func (h *FriendshipHandler) FriendAction(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing token")
	}

	requestID, action, err := h.tokens.ParseFriendAction(token)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid token")
	}

	friendRequest, err := h.friendshipRepository.GetFriendRequestByID(requestID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Friend request not found")
	}
	if friendRequest.Status != models.FriendStatusPending {
		return echo.NewHTTPError(http.StatusConflict, "Friend request already resolved")
	}

	status := models.FriendStatusAccepted
	if action == security.ActionDecline {
		status = models.FriendStatusDeclined
	}
	if err := h.friendshipRepository.UpdateFriendRequestStatus(requestID, status); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.logger.Info("friend request resolved via email link",
		zap.Uint("request_id", requestID), zap.String("action", action))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"status": status}})
}
