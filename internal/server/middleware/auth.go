// Package middleware provides HTTP middleware for authenticating athletes.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

const athleteIDKey ContextKey = "athleteID"

// TokenValidator validates bearer tokens. Implemented by server.JWTService through an
// adapter so this package does not import the server.
type TokenValidator interface {
	ValidateToken(tokenString string) (AthleteIDGetter, error)
}

// AthleteIDGetter extracts the athlete id from token claims.
type AthleteIDGetter interface {
	GetAthleteID() uuid.UUID
}

// Unauthorized writes the failure response. Replaceable so the server can keep its
// JSON envelope.
type Unauthorized func(w http.ResponseWriter, r *http.Request)

func plainUnauthorized(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// AuthMiddleware validates the bearer token and stores the athlete id in the request context.
// A nil onFail writes a plain text 401.
func AuthMiddleware(validator TokenValidator, onFail Unauthorized) func(http.Handler) http.Handler {
	if onFail == nil {
		onFail = plainUnauthorized
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				onFail(w, r)
				return
			}

			claims, err := validator.ValidateToken(tokenString)
			if err != nil {
				onFail(w, r)
				return
			}

			athleteID := claims.GetAthleteID()
			if athleteID == uuid.Nil {
				onFail(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAthleteID(r.Context(), athleteID)))
		})
	}
}

// bearerToken parses "Bearer <token>", case-insensitive on the scheme.
func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// WithAthleteID returns a context carrying the authenticated athlete.
func WithAthleteID(ctx context.Context, athleteID uuid.UUID) context.Context {
	return context.WithValue(ctx, athleteIDKey, athleteID)
}

// GetAthleteID extracts the authenticated athlete id from the request context.
func GetAthleteID(r *http.Request) (uuid.UUID, error) {
	athleteID, ok := r.Context().Value(athleteIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("athlete ID not found in request context")
	}
	return athleteID, nil
}
