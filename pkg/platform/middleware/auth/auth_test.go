package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthnet/pkg/requestcontext"
)

const secret = "test-secret"

func TestHS256Validator(t *testing.T) {
	v := NewHS256Validator(secret)

	t.Run("valid token", func(t *testing.T) {
		token, err := IssueHS256(secret, "ops@healthnet", "admin", time.Minute)
		require.NoError(t, err)
		claims, err := v.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "ops@healthnet", claims.Subject)
		assert.Equal(t, "admin", claims.Role)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := IssueHS256("other", "ops", "admin", time.Minute)
		require.NoError(t, err)
		_, err = v.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := IssueHS256(secret, "ops", "admin", -time.Hour)
		require.NoError(t, err)
		_, err = v.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("missing expiry", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			Role:             "admin",
			RegisteredClaims: jwt.RegisteredClaims{Subject: "ops"},
		}).SignedString([]byte(secret))
		require.NoError(t, err)
		_, err = v.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("no secret configured", func(t *testing.T) {
		token, err := IssueHS256(secret, "ops", "admin", time.Minute)
		require.NoError(t, err)
		_, err = NewHS256Validator("").ValidateToken(token)
		assert.Error(t, err)
	})
}

func TestRequireAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var actor, role string
	h := RequireAuth(NewHS256Validator(secret), logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor = requestcontext.ActorID(r.Context())
		role = GetRole(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	token, err := IssueHS256(secret, "ops@healthnet", "admin", time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + token, http.StatusNoContent},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			assert.Equal(t, tt.want, w.Code)
		})
	}
	assert.Equal(t, "ops@healthnet", actor)
	assert.Equal(t, "admin", role)
}
