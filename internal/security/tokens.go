package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/quillhive/backend/internal/models"
)

// Friend-request actions a signed email link can carry.
const (
	ActionAccept  = "accept"
	ActionDecline = "decline"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenIssuer mints and verifies the opaque signed tokens embedded in
// outbound email: friend-request accept/decline action links and
// per-category unsubscribe links. The tokens are HMAC-signed JWTs, safe
// to place in an unauthenticated link.
type TokenIssuer struct {
	secret []byte
}

func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret)}
}

type friendActionClaims struct {
	RequestID uint   `json:"request_id"`
	Action    string `json:"action"`
	jwt.RegisteredClaims
}

// FriendActionToken signs a friend-request id together with the action
// the link performs.
func (t *TokenIssuer) FriendActionToken(requestID uint, action string) (string, error) {
	if action != ActionAccept && action != ActionDecline {
		return "", fmt.Errorf("unknown friend action %q", action)
	}
	claims := friendActionClaims{
		RequestID: requestID,
		Action:    action,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(30 * 24 * time.Hour)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// ParseFriendAction verifies an action token and returns the request id
// and action it was minted for.
func (t *TokenIssuer) ParseFriendAction(token string) (uint, string, error) {
	claims := &friendActionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, t.keyFunc)
	if err != nil || !parsed.Valid {
		return 0, "", ErrInvalidToken
	}
	if claims.RequestID == 0 || (claims.Action != ActionAccept && claims.Action != ActionDecline) {
		return 0, "", ErrInvalidToken
	}
	return claims.RequestID, claims.Action, nil
}

type unsubscribeClaims struct {
	Email    string `json:"email"`
	Category string `json:"setting"`
	jwt.RegisteredClaims
}

// UnsubscribeToken signs an email address together with the preference
// category the link opts out of.
func (t *TokenIssuer) UnsubscribeToken(email string, category models.Category) (string, error) {
	claims := unsubscribeClaims{
		Email:    email,
		Category: string(category),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// ParseUnsubscribe verifies an unsubscribe token and returns the email
// and category it covers.
func (t *TokenIssuer) ParseUnsubscribe(token string) (string, models.Category, error) {
	claims := &unsubscribeClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, t.keyFunc)
	if err != nil || !parsed.Valid {
		return "", "", ErrInvalidToken
	}
	if claims.Email == "" || claims.Category == "" {
		return "", "", ErrInvalidToken
	}
	return claims.Email, models.Category(claims.Category), nil
}

func (t *TokenIssuer) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
	}
	return t.secret, nil
}
