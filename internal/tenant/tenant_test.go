package tenant

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/database"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/logger"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/monitoring"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

const (
	testSecret = "test-secret"
	testUserID = "5f0c6b9e-2f43-4a57-9d36-0d5c2d7a9a11"
	testOrgID  = "0b8f7a3e-7e1d-4c3b-8d64-2a1c9f5e6b22"
)

type mockProfileStore struct {
	mock.Mock
}

func (m *mockProfileStore) GetProfile(ctx context.Context, userID string) (*types.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Profile), args.Error(1)
}

func signToken(t *testing.T, secret string, claims AccessTokenClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims() AccessTokenClaims {
	return AccessTokenClaims{
		Email: "biller@example.com",
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   testUserID,
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func strPtr(s string) *string { return &s }

func setupAuthorizer(store ProfileStore) *Authorizer {
	return NewAuthorizer(
		NewTokenValidator(testSecret, "authenticated"),
		store,
		monitoring.NewMetricsCollector("test"),
		logger.NewWithOutput("error", io.Discard),
	)
}

func TestTokenValidator_ValidateJWT(t *testing.T) {
	validator := NewTokenValidator(testSecret, "authenticated")

	claims, err := validator.ValidateJWT(signToken(t, testSecret, validClaims()))
	require.NoError(t, err)
	assert.Equal(t, testUserID, claims.UserID)
	assert.Equal(t, "biller@example.com", claims.Email)

	t.Run("expired", func(t *testing.T) {
		c := validClaims()
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		_, err := validator.ValidateJWT(signToken(t, testSecret, c))
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("no expiry", func(t *testing.T) {
		c := validClaims()
		c.ExpiresAt = nil
		_, err := validator.ValidateJWT(signToken(t, testSecret, c))
		assert.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := validator.ValidateJWT(signToken(t, "other-secret", validClaims()))
		assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	})

	t.Run("wrong audience", func(t *testing.T) {
		c := validClaims()
		c.Audience = jwt.ClaimStrings{"anon"}
		_, err := validator.ValidateJWT(signToken(t, testSecret, c))
		assert.ErrorIs(t, err, jwt.ErrTokenInvalidAudience)
	})

	t.Run("missing subject", func(t *testing.T) {
		c := validClaims()
		c.Subject = ""
		_, err := validator.ValidateJWT(signToken(t, testSecret, c))
		assert.Error(t, err)
	})

	t.Run("unsigned", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims()).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = validator.ValidateJWT(token)
		assert.Error(t, err)
	})
}

func TestAuthorizer_Require(t *testing.T) {
	var seen *types.Principal
	protected := func(a *Authorizer) http.Handler {
		return a.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = PrincipalFrom(r.Context())
			w.WriteHeader(http.StatusOK)
		}))
	}

	t.Run("missing header", func(t *testing.T) {
		store := &mockProfileStore{}
		rec := httptest.NewRecorder()
		protected(setupAuthorizer(store)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/claims", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
		store.AssertNotCalled(t, "GetProfile", mock.Anything, mock.Anything)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/claims", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		protected(setupAuthorizer(&mockProfileStore{})).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/claims", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret", validClaims()))
		rec := httptest.NewRecorder()
		protected(setupAuthorizer(&mockProfileStore{})).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
	})

	t.Run("no profile", func(t *testing.T) {
		store := &mockProfileStore{}
		store.On("GetProfile", mock.Anything, testUserID).Return(nil, database.ErrNotFound)

		req := httptest.NewRequest(http.MethodGet, "/api/claims", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims()))
		rec := httptest.NewRecorder()
		protected(setupAuthorizer(store)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.JSONEq(t, `{"error":"User not associated with an organization"}`, rec.Body.String())
	})

	t.Run("profile without organization", func(t *testing.T) {
		store := &mockProfileStore{}
		store.On("GetProfile", mock.Anything, testUserID).Return(&types.Profile{ID: testUserID}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/claims", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims()))
		rec := httptest.NewRecorder()
		protected(setupAuthorizer(store)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("profile lookup failure", func(t *testing.T) {
		store := &mockProfileStore{}
		store.On("GetProfile", mock.Anything, testUserID).Return(nil, errors.New("connection reset"))

		req := httptest.NewRequest(http.MethodGet, "/api/claims", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims()))
		rec := httptest.NewRecorder()
		protected(setupAuthorizer(store)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
	})

	t.Run("resolved", func(t *testing.T) {
		store := &mockProfileStore{}
		store.On("GetProfile", mock.Anything, testUserID).
			Return(&types.Profile{ID: testUserID, OrganizationID: strPtr(testOrgID), Role: types.RoleBiller}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/claims", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims()))
		rec := httptest.NewRecorder()
		protected(setupAuthorizer(store)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, testOrgID, seen.OrganizationID)
		assert.Equal(t, types.RoleBiller, seen.Role)
		store.AssertExpectations(t)
	})
}

func TestAuthorizer_AuthenticatedSkipsProfile(t *testing.T) {
	store := &mockProfileStore{}
	a := setupAuthorizer(store)

	var seen *types.Principal
	h := a.Authenticated(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims()))
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, seen)
	assert.Equal(t, testUserID, seen.UserID)
	assert.Empty(t, seen.OrganizationID)
	store.AssertNotCalled(t, "GetProfile", mock.Anything, mock.Anything)
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	h := CORS("https://app.example.com", http.MethodGet, http.MethodPut)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/profile", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.False(t, called)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, PUT, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, AllowedHeaders, rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestDispatch(t *testing.T) {
	h := Dispatch(Methods{
		Get: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) },
	}, logger.NewWithOutput("error", io.Discard))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	for _, method := range []string{http.MethodPost, http.MethodPatch, http.MethodDelete} {
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "/", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		assert.JSONEq(t, `{"error":"Method not allowed"}`, rec.Body.String())
	}
}

func TestRecover(t *testing.T) {
	metrics := monitoring.NewMetricsCollector("test")
	h := Recover(logger.NewWithOutput("error", io.Discard), metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil map write in handler")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/claims", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())

	count, err := testutil.GatherAndCount(metrics.Registry(), "system_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))

	// one token comes back every 30s
	now = now.Add(31 * time.Second)
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))

	// 10.0.0.2 is full again, 10.0.0.1 is not
	rl.Cleanup()
	assert.Len(t, rl.limiters, 1)
	assert.Contains(t, rl.limiters, "10.0.0.1")

	now = now.Add(time.Minute)
	rl.Cleanup()
	assert.Empty(t, rl.limiters)
}
