package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"go-soilsync/logger"
	"go-soilsync/models"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func userClaims(sub string, ttl time.Duration) Claims {
	return Claims{
		Email: sub + "@example.com",
		Role:  models.RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
}

func authRouter(secret string) *gin.Engine {
	r := gin.New()
	r.Use(AuthMiddleware(secret))
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": CurrentUser(c), "userID": c.GetString(ContextUserID)})
	})
	return r
}

func call(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeUser(t *testing.T, w *httptest.ResponseRecorder) models.User {
	t.Helper()
	var body struct {
		User   models.User `json:"user"`
		UserID string      `json:"userID"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, body.User.ID, body.UserID)
	return body.User
}

func TestAuthAnonymousWithoutHeader(t *testing.T) {
	w := call(authRouter(secret), "")
	require.Equal(t, http.StatusOK, w.Code)
	u := decodeUser(t, w)
	assert.True(t, u.IsAnonymous())
	assert.Equal(t, models.RoleAnonymous, u.Role)
}

func TestAuthValidToken(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, []byte(secret), userClaims("user-42", time.Hour))

	w := call(authRouter(secret), "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	u := decodeUser(t, w)
	assert.Equal(t, "user-42", u.ID)
	assert.Equal(t, "user-42@example.com", u.Email)
	assert.Equal(t, models.RoleUser, u.Role)
}

func TestAuthRejectsBadTokens(t *testing.T) {
	cases := map[string]string{
		"malformed header": "Token abc",
		"garbage":          "Bearer not-a-jwt",
		"wrong secret":     "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), userClaims("u", time.Hour)),
		"expired":          "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), userClaims("u", -time.Hour)),
		"no subject":       "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), Claims{Role: models.RoleUser}),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			w := call(authRouter(secret), header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), `"code":401`)
		})
	}
}

func TestAuthAnonRoleToken(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, []byte(secret), Claims{Role: models.RoleAnonymous})
	w := call(authRouter(secret), "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeUser(t, w).IsAnonymous())
}

func TestAuthWithoutSecretIgnoresToken(t *testing.T) {
	w := call(authRouter(""), "Bearer whatever")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeUser(t, w).IsAnonymous())
}

func TestCurrentUserDefaultsToAnonymous(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.True(t, CurrentUser(c).IsAnonymous())
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(HeaderRequestID)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
}

func TestRequestLoggerLevels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := &logger.Logger{SugaredLogger: zap.New(core).Sugar()}

	r := gin.New()
	r.Use(RequestID(), RequestLogger(log))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, path := range []string{"/ok", "/bad", "/boom"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, zap.ErrorLevel, entries[2].Level)

	fields := entries[1].ContextMap()
	assert.Equal(t, "/bad", fields["path"])
	assert.EqualValues(t, http.StatusBadRequest, fields["status"])
	assert.NotEmpty(t, fields["request_id"])
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
