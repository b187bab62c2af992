package security

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"signature-web-server/config"
	"signature-web-server/internal/model"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestJWTService() *JWTService {
	return NewJWTService(&config.JWTConfig{
		SecretKey:       "0123456789abcdef0123456789abcdef",
		AccessTokenTTL:  config.Duration{Duration: time.Minute},
		RefreshTokenTTL: config.Days(1),
		Issuer:          "test",
	})
}

type fakeTokenFinder struct {
	tokens map[string]*model.RefreshToken
}

func (f *fakeTokenFinder) FindByUUID(ctx context.Context, uuid string) (*model.RefreshToken, error) {
	token, ok := f.tokens[uuid]
	if !ok {
		return nil, model.ErrNotFound
	}
	return token, nil
}

func TestGenerateAndValidateJWT(t *testing.T) {
	service := newTestJWTService()

	pair, refresh, err := service.GenerateAccessRefreshTokens("user-1", true)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(refresh.TokenHash), []byte(pair.RefreshToken)))
	assert.Equal(t, "user-1", refresh.UserUUID)
	assert.True(t, refresh.ExpireAt.After(time.Now()))

	claims, err := service.ValidateJWT(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserUUID)
	assert.Equal(t, refresh.UUID, claims.RefreshTokenUUID)
	assert.True(t, claims.IsAdmin)

	other := newTestJWTService()
	other.SecretKey = "another-secret-another-secret-xx"
	_, err = other.ValidateJWT(pair.AccessToken)
	assert.Error(t, err)
}

func TestJWTMiddleware(t *testing.T) {
	service := newTestJWTService()
	pair, refresh, err := service.GenerateAccessRefreshTokens("user-1", false)
	require.NoError(t, err)

	usedPair, usedRefresh, err := service.GenerateAccessRefreshTokens("user-2", false)
	require.NoError(t, err)
	usedRefresh.Used = true

	finder := &fakeTokenFinder{tokens: map[string]*model.RefreshToken{
		refresh.UUID:     refresh,
		usedRefresh.UUID: usedRefresh,
	}}

	var seen *Claims
	handler := JWTMiddleware(service, finder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "no header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer abc", wantStatus: http.StatusUnauthorized},
		{name: "used refresh token", header: "Bearer " + usedPair.AccessToken, wantStatus: http.StatusUnauthorized},
		{name: "valid", header: "Bearer " + pair.AccessToken, wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	require.NotNil(t, seen)
	assert.Equal(t, "user-1", seen.UserUUID)
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	run := func(claims *Claims) int {
		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		if claims != nil {
			req = req.WithContext(context.WithValue(req.Context(), UserContextKey, claims))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, run(nil))
	assert.Equal(t, http.StatusForbidden, run(&Claims{UserUUID: "u"}))
	assert.Equal(t, http.StatusOK, run(&Claims{UserUUID: "a", IsAdmin: true}))
}

func TestActorFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := ActorFromRequest(req)
	assert.True(t, errors.Is(err, model.ErrUnauthorized))

	req = req.WithContext(context.WithValue(req.Context(), UserContextKey, &Claims{UserUUID: "u", IsAdmin: true}))
	req.RemoteAddr = "10.0.0.7:5555"
	req.Header.Set("User-Agent", "tests")
	actor, err := ActorFromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, model.Actor{UserUUID: "u", IsAdmin: true, IP: "10.0.0.7", UserAgent: "tests"}, actor)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name      string
		forwarded string
		realIP    string
		want      string
	}{
		{name: "только RemoteAddr", want: "192.0.2.1"},
		{name: "X-Real-IP", realIP: "198.51.100.2", want: "198.51.100.2"},
		{name: "первый адрес X-Forwarded-For", forwarded: "203.0.113.9, 10.0.0.1", realIP: "198.51.100.2", want: "203.0.113.9"},
		{name: "IPv6", forwarded: " 2001:db8::1 ", want: "2001:db8::1"},
		{name: "мусор в X-Forwarded-For", forwarded: "not-an-ip", realIP: "198.51.100.2", want: "198.51.100.2"},
		{name: "мусор во всех заголовках", forwarded: "not-an-ip", realIP: "<script>", want: "192.0.2.1"},
		{name: "слишком длинное значение", forwarded: strings.Repeat("z", 100), want: "192.0.2.1"},
		{name: "адрес с портом", realIP: "198.51.100.2:8080", want: "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.0.2.1:1234"
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}

			got := ClientIP(req)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), 64)
		})
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("Str0ngPass")
	require.NoError(t, err)
	assert.True(t, CheckPassword("Str0ngPass", &hash))
	assert.False(t, CheckPassword("wrong", &hash))
	assert.False(t, CheckPassword("Str0ngPass", nil))
}

func TestGoogleVerifier(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"google-1","email":"Signer@Example.com","email_verified":true}`))
	}))
	defer server.Close()

	verifier := NewGoogleVerifier(&config.OAuthConfig{
		GoogleUserInfoURL: server.URL,
		Timeout:           config.Duration{Duration: time.Second},
	})

	profile, err := verifier.Verify(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, &model.OAuthProfile{Subject: "google-1", Email: "signer@example.com", EmailVerified: true}, profile)

	_, err = verifier.Verify(context.Background(), "bad")
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	_, err = verifier.Verify(context.Background(), "")
	assert.ErrorIs(t, err, model.ErrValidation)
}
