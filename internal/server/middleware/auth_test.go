package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testTokenValidator struct {
	validTokens map[string]uuid.UUID
}

func (v *testTokenValidator) ValidateToken(tokenString string) (AthleteIDGetter, error) {
	athleteID, ok := v.validTokens[tokenString]
	if !ok {
		return nil, fmt.Errorf("invalid token")
	}
	return testClaims(athleteID), nil
}

type testClaims uuid.UUID

func (c testClaims) GetAthleteID() uuid.UUID {
	return uuid.UUID(c)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	athleteID := uuid.New()
	validator := &testTokenValidator{validTokens: map[string]uuid.UUID{"good": athleteID}}

	var got uuid.UUID
	handler := AuthMiddleware(validator, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := GetAthleteID(r)
		require.NoError(t, err)
		got = id
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/plans/x", nil)
	req.Header.Set("Authorization", "bearer good")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, athleteID, got)
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	validator := &testTokenValidator{validTokens: map[string]uuid.UUID{
		"good": uuid.New(),
		"nil":  uuid.Nil,
	}}

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic good"},
		{name: "no token", header: "Bearer"},
		{name: "extra parts", header: "Bearer good extra"},
		{name: "unknown token", header: "Bearer bad"},
		{name: "nil athlete", header: "Bearer nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := AuthMiddleware(validator, nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/races", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.False(t, called)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuthMiddleware_CustomFailure(t *testing.T) {
	validator := &testTokenValidator{validTokens: map[string]uuid.UUID{}}
	handler := AuthMiddleware(validator, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})(http.NotFoundHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/races", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}

func TestGetAthleteID_Missing(t *testing.T) {
	_, err := GetAthleteID(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Error(t, err)
}
