package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazelpoint/tutorhub-api/internal/models"
	"github.com/hazelpoint/tutorhub-api/internal/service"
)

const jwtTestSecret = "test-secret"

type noopAuthRepo struct{}

func (noopAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, nil
}
func (noopAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) { return nil, nil }
func (noopAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}
func (noopAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	return nil
}
func (noopAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error { return nil }
func (noopAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	return nil
}
func (noopAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	return nil, nil
}
func (noopAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	return nil
}
func (noopAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error { return nil }

func newJWTAuthService() *service.AuthService {
	return service.NewAuthService(noopAuthRepo{}, nil, nil, service.AuthConfig{
		AccessTokenSecret:  jwtTestSecret,
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: time.Hour,
	})
}

func signToken(t *testing.T, userID string, role models.UserRole) string {
	t.Helper()
	claims := &models.JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtTestSecret))
	require.NoError(t, err)
	return signed
}

func runJWT(t *testing.T, configure func(*http.Request)) (*httptest.ResponseRecorder, *models.JWTClaims) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	configure(req)
	c.Request = req

	JWT(newJWTAuthService())(c)

	var claims *models.JWTClaims
	if value, ok := c.Get(ContextUserKey); ok {
		claims = value.(*models.JWTClaims)
	}
	return w, claims
}

func TestJWTAcceptsBearerHeader(t *testing.T) {
	token := signToken(t, "u1", models.RoleAdmin)
	w, claims := runJWT(t, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	})
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, claims)
	assert.Equal(t, "u1", claims.UserID)
}

func TestJWTAcceptsLegacyCookies(t *testing.T) {
	for _, cookie := range []string{"tutorhub_token", "admin_token", "staff_token"} {
		token := signToken(t, "u-"+cookie, models.RoleStaff)
		w, claims := runJWT(t, func(req *http.Request) {
			req.AddCookie(&http.Cookie{Name: cookie, Value: token})
		})
		assert.Equal(t, http.StatusOK, w.Code, cookie)
		require.NotNil(t, claims, cookie)
		assert.Equal(t, "u-"+cookie, claims.UserID)
	}
}

func TestJWTHeaderWinsOverCookie(t *testing.T) {
	headerToken := signToken(t, "header-user", models.RoleAdmin)
	cookieToken := signToken(t, "cookie-user", models.RoleStaff)

	w, claims := runJWT(t, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+headerToken)
		req.AddCookie(&http.Cookie{Name: "tutorhub_token", Value: cookieToken})
	})
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, claims)
	assert.Equal(t, "header-user", claims.UserID)
}

func TestJWTSharedCookieBeatsRoleCookies(t *testing.T) {
	shared := signToken(t, "shared-user", models.RoleAdmin)
	admin := signToken(t, "admin-user", models.RoleAdmin)

	w, claims := runJWT(t, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "admin_token", Value: admin})
		req.AddCookie(&http.Cookie{Name: "tutorhub_token", Value: shared})
	})
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, claims)
	assert.Equal(t, "shared-user", claims.UserID)
}

func TestJWTMalformedHeaderDoesNotFallBack(t *testing.T) {
	cookieToken := signToken(t, "cookie-user", models.RoleStaff)

	w, claims := runJWT(t, func(req *http.Request) {
		req.Header.Set("Authorization", "NotBearer something")
		req.AddCookie(&http.Cookie{Name: "tutorhub_token", Value: cookieToken})
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, claims)
}

func TestJWTMissingToken(t *testing.T) {
	w, claims := runJWT(t, func(req *http.Request) {})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, claims)
}

func TestJWTExpiredToken(t *testing.T) {
	claims := &models.JWTClaims{
		UserID: "u1",
		Role:   models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtTestSecret))
	require.NoError(t, err)

	w, got := runJWT(t, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, got)
}
