package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nicetravel/pkg/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestTraceIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(TraceIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("trace_id")) })

	inbound := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Trace-ID", inbound)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, inbound, w.Body.String())
	assert.Equal(t, inbound, w.Header().Get("X-Trace-ID"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Trace-ID", "<script>")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	minted := w.Body.String()
	assert.NotEqual(t, "<script>", minted)
	_, err := uuid.Parse(minted)
	assert.NoError(t, err)
}

func protectedRouter(issuer *utils.TokenIssuer, role string) *gin.Engine {
	r := gin.New()
	handlers := []gin.HandlerFunc{JWTAuthMiddleware(issuer)}
	if role != "" {
		handlers = append(handlers, RoleMiddleware(role))
	}
	handlers = append(handlers, func(c *gin.Context) { c.String(http.StatusOK, c.GetString("user_id")) })
	r.GET("/private", handlers...)
	return r
}

func get(r http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuthMiddleware(t *testing.T) {
	issuer := utils.NewTokenIssuer("test-secret", time.Hour)
	r := protectedRouter(issuer, "")
	userID := uuid.New()

	token, err := issuer.CreateToken(userID, "user")
	require.NoError(t, err)

	w := get(r, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID.String(), w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, token).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer not-a-token").Code)

	forged, err := utils.NewTokenIssuer("other-secret", time.Hour).CreateToken(userID, "user")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer "+forged).Code)

	expired, err := utils.NewTokenIssuer("test-secret", -time.Minute).CreateToken(userID, "user")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer "+expired).Code)
}

func TestRoleMiddleware(t *testing.T) {
	issuer := utils.NewTokenIssuer("test-secret", time.Hour)
	r := protectedRouter(issuer, "admin")

	userToken, err := issuer.CreateToken(uuid.New(), "user")
	require.NoError(t, err)
	adminToken, err := issuer.CreateToken(uuid.New(), "admin")
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, get(r, "Bearer "+userToken).Code)
	assert.Equal(t, http.StatusOK, get(r, "Bearer "+adminToken).Code)
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://app.nicetravel.example"}))
	r.GET("/plans", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/plans", nil)
	req.Header.Set("Origin", "https://app.nicetravel.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.nicetravel.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/plans", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
