package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightharbor/homecare-platform/internal/audit"
	httpmiddleware "github.com/brightharbor/homecare-platform/internal/http/middleware"
	"github.com/brightharbor/homecare-platform/internal/lifecycle"
	"github.com/brightharbor/homecare-platform/internal/security"
)

const testSecret = "router-test-secret"

func signToken(t *testing.T, role string) string {
	t.Helper()
	claims := httpmiddleware.SessionClaims{
		Email: "user@agency.example",
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newTestRouter() http.Handler {
	return New(&Config{
		AuthJWTSecret:    testSecret,
		AuditHandler:     audit.NewHandler(nil, nil),
		LifecycleHandler: lifecycle.NewHandler(nil, nil),
		SecurityHandler:  security.NewHandler(nil, nil, nil),
	})
}

func TestHealthIsPublic(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuthedRoutesRequireToken(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit/access", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestAdminRoutesRejectCaregiver(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/admin/security/scan", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, httpmiddleware.RoleCaregiver))
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminRoutesRejectAnonymous(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/lifecycle/archive", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnknownRouteIs404(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
