package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"fieldservice/internal/core"
)

type operatorKey struct{}

// operatorFromContext returns the operator stored in ctx by RequireAuth.
func operatorFromContext(ctx context.Context) (core.Operator, bool) {
	op, ok := ctx.Value(operatorKey{}).(core.Operator)
	return op, ok
}

// jwtClaims is the JWT payload struct used for signing and parsing.
type jwtClaims struct {
	OperatorID string `json:"operator_id"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// SignOperatorToken issues an HS256 token identifying op, valid for ttl.
func SignOperatorToken(secret string, op core.Operator, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &jwtClaims{
		OperatorID: op.ID.String(),
		Name:       op.Name,
		Role:       op.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// parseOperatorToken verifies raw and returns the operator it names.
func parseOperatorToken(secret, raw string) (core.Operator, error) {
	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return core.Operator{}, err
	}
	if !token.Valid {
		return core.Operator{}, fmt.Errorf("invalid token")
	}
	id, err := uuid.Parse(claims.OperatorID)
	if err != nil {
		return core.Operator{}, fmt.Errorf("operator_id claim: %w", err)
	}
	return core.Operator{ID: id, Name: claims.Name, Role: claims.Role}, nil
}

// bearerToken reads the token from the Authorization header, falling back to the
// auth_token cookie.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if rest, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(rest)
		}
		return ""
	}
	if cookie, err := r.Cookie("auth_token"); err == nil {
		return cookie.Value
	}
	return ""
}

// RequireAuth is chi middleware that validates the operator token and injects the
// core.Operator into the request context. Returns 401 if the token is absent or invalid.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			writeError(w, r, "authentication required", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}
		op, err := parseOperatorToken(h.jwtSecret, raw)
		if err != nil {
			writeError(w, r, "invalid or expired token", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}
		noteOperator(r.Context(), op)
		ctx := context.WithValue(r.Context(), operatorKey{}, op)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
