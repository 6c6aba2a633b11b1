package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/signin-dev/signin/internal/session"
)

var ErrJWTNotInitialized = errors.New("JWT secret not initialized")

// JWTClaims represents the JWT token claims
type JWTClaims struct {
	UserID string       `json:"user_id"`
	Email  string       `json:"email"`
	Role   session.Role `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues and validates HS256 tokens. The secret may be set after construction
// because it is generated during first-run setup.
type Tokens struct {
	secret []byte
	ttl    time.Duration
}

// NewTokens creates a token issuer; ttl <= 0 means tokens do not expire
func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl}
}

// SetSecret sets the JWT secret key
func (t *Tokens) SetSecret(secret string) {
	t.secret = []byte(secret)
}

// Ready reports whether a secret is configured
func (t *Tokens) Ready() bool {
	return len(t.secret) > 0
}

// Generate creates a new JWT token for a user
func (t *Tokens) Generate(userID, email string, role session.Role) (string, error) {
	if !t.Ready() {
		return "", ErrJWTNotInitialized
	}

	now := time.Now()
	claims := JWTClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	if t.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(t.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Validate validates a JWT token and returns the claims
func (t *Tokens) Validate(tokenString string) (*JWTClaims, error) {
	if !t.Ready() {
		return nil, ErrJWTNotInitialized
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
