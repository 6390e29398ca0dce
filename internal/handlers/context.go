package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/quillhive/backend/internal/models"
)

// getUserIDFromContext pulls the authenticated user id set by the JWT
// middleware. Returns 0 when the request carries no valid claims.
func getUserIDFromContext(c echo.Context) uint {
	claims, ok := c.Get("user").(*models.JwtCustomClaims)
	if !ok || claims == nil {
		return 0
	}
	return claims.UserID
}

// getUsernameFromContext pulls the authenticated username, if any.
func getUsernameFromContext(c echo.Context) string {
	claims, ok := c.Get("user").(*models.JwtCustomClaims)
	if !ok || claims == nil {
		return ""
	}
	return claims.Username
}
