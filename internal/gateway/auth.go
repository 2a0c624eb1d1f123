package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"osraclinic.com/workbench/internal/session"
)

type contextKey string

const (
	roleKey   contextKey = "role"
	userIDKey contextKey = "user_id"
)

const bearerPrefix = "Bearer "

// sessionClaims are the JWT claims a login token carries.
type sessionClaims struct {
	Role   string `json:"role"`
	UserID int    `json:"user_id"`
	jwt.RegisteredClaims
}

// issueToken signs a session token for a logged-in user.
func (g *Gateway) issueToken(role session.Role, userID int) (string, error) {
	claims := sessionClaims{
		Role:   string(role),
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(g.tokenTTL)),
			Issuer:    "osra-workbench",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(g.tokenSecret)
}

// validateToken parses and verifies a session token.
func (g *Gateway) validateToken(tokenString string) (*sessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return g.tokenSecret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// authSkipped lists the paths reachable without a token.
func authSkipped(path string) bool {
	switch path {
	case "/health", "/metrics", "/auth/login":
		return true
	}
	return strings.HasPrefix(path, "/signup/")
}

// AuthMiddleware validates session tokens and stashes role and user id in
// the request context. EMR routes additionally require the dentist role.
func (g *Gateway) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if authSkipped(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			writeError(w, http.StatusUnauthorized, "authorization header required")
			return
		}

		claims, err := g.validateToken(strings.TrimPrefix(authHeader, bearerPrefix))
		if err != nil {
			log.Warn().Err(err).Str("path", r.URL.Path).Msg("Session token validation failed")
			writeError(w, http.StatusUnauthorized, "invalid session token")
			return
		}

		if strings.HasPrefix(r.URL.Path, "/emr/") && claims.Role != string(session.RoleDentist) {
			writeError(w, http.StatusForbidden, "EMR access requires the dentist role")
			return
		}

		ctx := context.WithValue(r.Context(), roleKey, claims.Role)
		ctx = context.WithValue(ctx, userIDKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
