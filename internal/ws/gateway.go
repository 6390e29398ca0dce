package ws

import (
	"context"
	"fmt"
	"net/http"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/quillhive/backend/internal/models"
	"github.com/quillhive/backend/internal/repositories"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now (adjust for production)
	},
}

// TokenVerifier authenticates a realtime handshake token to a user id.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (uint, error)
}

// JWTVerifier validates the backend's own HMAC-signed session tokens.
type JWTVerifier struct {
	Secret string
}

func (v JWTVerifier) Verify(_ context.Context, tokenString string) (uint, error) {
	claims := &models.JwtCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(v.Secret), nil
	})
	if err != nil || !token.Valid || claims.UserID == 0 {
		return 0, fmt.Errorf("invalid session token")
	}
	return claims.UserID, nil
}

// FirebaseVerifier validates Firebase ID tokens and maps the Firebase
// UID back to a local account.
type FirebaseVerifier struct {
	Auth  *firebaseauth.Client
	Users repositories.UserRepository
}

func (v FirebaseVerifier) Verify(ctx context.Context, tokenString string) (uint, error) {
	token, err := v.Auth.VerifyIDToken(ctx, tokenString)
	if err != nil {
		return 0, fmt.Errorf("invalid or expired ID token: %w", err)
	}
	user, err := v.Users.GetUserByFirebaseUID(token.UID)
	if err != nil {
		return 0, fmt.Errorf("authenticated user not found: %w", err)
	}
	return user.ID, nil
}

// Gateway upgrades authenticated HTTP requests into registered live
// sessions. Each verifier is tried in order until one accepts the token.
type Gateway struct {
	hub       *Hub
	verifiers []TokenVerifier
	logger    *zap.Logger
}

func NewGateway(hub *Hub, logger *zap.Logger, verifiers ...TokenVerifier) *Gateway {
	return &Gateway{hub: hub, verifiers: verifiers, logger: logger}
}

// RegisterRoutes registers the websocket endpoint
func (g *Gateway) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", g.Connect)
}

// Connect handles the websocket handshake: verify the token first, only
// then upgrade and register the endpoint.
func (g *Gateway) Connect(c echo.Context) error {
	var respHeader http.Header
	token := c.QueryParam("token")
	if token == "" {
		token = c.Request().Header.Get("Sec-WebSocket-Protocol")
		if token != "" {
			// Browsers abort the handshake unless the subprotocol they
			// offered is echoed back as the negotiated one.
			respHeader = http.Header{"Sec-WebSocket-Protocol": []string{token}}
		}
	}
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Missing handshake token")
	}

	userID, err := g.verify(c.Request().Context(), token)
	if err != nil {
		g.logger.Warn("websocket authentication failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusUnauthorized, "Authentication error")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), respHeader)
	if err != nil {
		return err
	}

	client := g.hub.NewClient(conn, userID)
	g.hub.Register(client)
	go client.WritePump()
	go client.ReadPump()
	return nil
}

func (g *Gateway) verify(ctx context.Context, token string) (uint, error) {
	var lastErr error
	for _, v := range g.verifiers {
		userID, err := v.Verify(ctx, token)
		if err == nil {
			return userID, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no token verifiers configured")
	}
	return 0, lastErr
}
