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

var testJWTConfig = JWTConfig{
	SigningKey: []byte("test-signing-key-1234567890123456"),
	Issuer:     "stateflow",
	ExpiresIn:  time.Hour,
}

func TestJWTConfigValidateToken_Success(t *testing.T) {
	token, _, err := GenerateToken(testJWTConfig, "alice")
	require.NoError(t, err)

	claims, err := testJWTConfig.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.ActorID)
	assert.Equal(t, "alice", claims.Subject)
	require.NotNil(t, claims.NotBefore)
}

func TestJWTConfigValidateToken_RejectsInvalidIssuer(t *testing.T) {
	token, _, err := GenerateToken(testJWTConfig, "alice")
	require.NoError(t, err)

	validator := JWTConfig{SigningKey: testJWTConfig.SigningKey, Issuer: "other-issuer"}
	_, err = validator.ValidateToken(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}

func TestJWTConfigValidateToken_RejectsExpired(t *testing.T) {
	cfg := testJWTConfig
	cfg.ExpiresIn = -time.Minute
	token, _, err := GenerateToken(cfg, "alice")
	require.NoError(t, err)

	_, err = testJWTConfig.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestJWTConfigValidateToken_RejectsNoneSigningMethod(t *testing.T) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodNone, JWTClaims{
		ActorID: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "stateflow",
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = testJWTConfig.ValidateToken(tokenString)
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestJWTConfigValidateToken_FallsBackToSubject(t *testing.T) {
	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "stateflow",
			Subject:   "bob",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString(testJWTConfig.SigningKey)
	require.NoError(t, err)

	claims, err := testJWTConfig.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "bob", claims.ActorID)
}

func actorRouter(cfg JWTConfig, extra ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(ErrorHandler(), ActorIdentity(cfg))
	router.Use(extra...)
	handler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"actor": GetActorID(c.Request.Context())})
	}
	router.GET("/whoami", handler)
	router.POST("/whoami", handler)
	return router
}

func TestActorIdentity(t *testing.T) {
	token, _, err := GenerateToken(testJWTConfig, "alice")
	require.NoError(t, err)

	tests := []struct {
		name       string
		cfg        JWTConfig
		header     string
		value      string
		wantStatus int
		wantActor  string
	}{
		{"valid bearer", testJWTConfig, "Authorization", "Bearer " + token, http.StatusOK, "alice"},
		{"no token stays anonymous", testJWTConfig, "", "", http.StatusOK, ""},
		{"bad scheme", testJWTConfig, "Authorization", "Basic abc", http.StatusUnauthorized, ""},
		{"garbage token", testJWTConfig, "Authorization", "Bearer nope", http.StatusUnauthorized, ""},
		{"actor header ignored with key", testJWTConfig, ActorIDHeader, "mallory", http.StatusOK, ""},
		{"actor header without key", JWTConfig{}, ActorIDHeader, " carol ", http.StatusOK, "carol"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			actorRouter(tt.cfg).ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantStatus == http.StatusOK {
				assert.JSONEq(t, `{"actor":"`+tt.wantActor+`"}`, w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), `"UNAUTHORIZED"`)
			}
		})
	}
}

func TestRequireActor(t *testing.T) {
	router := actorRouter(JWTConfig{}, RequireActor())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/whoami", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/whoami", nil)
	req.Header.Set(ActorIDHeader, "alice")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
