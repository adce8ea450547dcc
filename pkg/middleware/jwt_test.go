package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, userID, role string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     userID,
		"user_id": userID,
		"email":   userID + "@example.com",
		"role":    role,
		"exp":     exp.Unix(),
		"iat":     time.Now().Unix(),
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func newAuthRouter(roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWTMiddleware(&JWTConfig{Secret: testSecret, SkipPaths: []string{"/health"}}))
	if len(roles) > 0 {
		r.Use(RequireRole(roles...))
	}
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/me", func(c *gin.Context) {
		id, _ := GetUserID(c)
		c.String(http.StatusOK, id)
	})
	return r
}

func doGet(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTMiddleware(t *testing.T) {
	r := newAuthRouter()
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name       string
		path       string
		token      string
		wantStatus int
		wantBody   string
	}{
		{"valid token", "/me", signToken(t, testSecret, "user-1", RoleOrganiser, future), http.StatusOK, "user-1"},
		{"missing token", "/me", "", http.StatusUnauthorized, ""},
		{"wrong secret", "/me", signToken(t, "other", "user-1", RoleOrganiser, future), http.StatusUnauthorized, ""},
		{"expired", "/me", signToken(t, testSecret, "user-1", RoleOrganiser, time.Now().Add(-time.Minute)), http.StatusUnauthorized, ""},
		{"skip path", "/health", "", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGet(r, tt.path, tt.token)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestParseToken_RejectsNoneAlg(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": "u"})
	s, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseToken(&JWTConfig{Secret: testSecret}, "Bearer "+s)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_Issuer(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "u", "iss": "other"})
	s, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = ParseToken(&JWTConfig{Secret: testSecret, Issuer: "organiser"}, "Bearer "+s)
	assert.Error(t, err)
}

func TestRequireRole(t *testing.T) {
	r := newAuthRouter(RoleAdmin, RoleOrganiser)
	future := time.Now().Add(time.Hour)

	assert.Equal(t, http.StatusOK, doGet(r, "/me", signToken(t, testSecret, "u1", RoleOrganiser, future)).Code)
	assert.Equal(t, http.StatusOK, doGet(r, "/me", signToken(t, testSecret, "u2", RoleAdmin, future)).Code)
	assert.Equal(t, http.StatusForbidden, doGet(r, "/me", signToken(t, testSecret, "u3", "attendee", future)).Code)
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextKeyRequestID)) })

	w := doGet(r, "/", "")
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, w.Header().Get(RequestIDHeader), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "fixed")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "fixed", w.Body.String())
}
