package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	apperrors "stateflow.dev/stateflow/internal/pkg/errors"
)

// JWTClaims identifies the actor behind a request.
type JWTClaims struct {
	ActorID string `json:"actor_id"`
	jwt.RegisteredClaims
}

// JWTConfig holds JWT signing configuration.
type JWTConfig struct {
	SigningKey []byte
	Issuer     string
	ExpiresIn  time.Duration
}

// Enabled reports whether Bearer tokens are verified.
func (cfg JWTConfig) Enabled() bool {
	return len(cfg.SigningKey) > 0
}

// GenerateToken creates a signed JWT naming actorID.
func GenerateToken(cfg JWTConfig, actorID string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(cfg.ExpiresIn)

	claims := JWTClaims{
		ActorID: actorID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   actorID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(cfg.SigningKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return tokenString, expiresAt, nil
}

// ValidateToken parses and verifies tokenString.
func (cfg JWTConfig) ValidateToken(tokenString string) (*JWTClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return cfg.SigningKey, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.ActorID == "" {
		claims.ActorID = claims.Subject
	}
	if claims.ActorID == "" {
		return nil, errors.New("token names no actor")
	}
	return claims, nil
}

// ActorIdentity identifies the caller and stores it in the request context.
//
// With a signing key, the actor comes from a Bearer token; a malformed or
// invalid token is rejected, a missing one leaves the request anonymous.
// Without a signing key, the X-Actor-ID header is trusted as-is.
func ActorIdentity(cfg JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := ""
		if cfg.Enabled() {
			authHeader := c.GetHeader("Authorization")
			if authHeader != "" {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
					abortWithError(c, apperrors.Unauthorized(apperrors.CodeUnauthorized, "invalid authorization header format"))
					return
				}
				claims, err := cfg.ValidateToken(strings.TrimSpace(parts[1]))
				if err != nil {
					msg := "invalid token"
					if errors.Is(err, jwt.ErrTokenExpired) {
						msg = "token expired"
					}
					abortWithError(c, apperrors.Unauthorized(apperrors.CodeUnauthorized, msg))
					return
				}
				actorID = claims.ActorID
			}
		} else {
			actorID = strings.TrimSpace(c.GetHeader(ActorIDHeader))
		}

		if actorID != "" {
			c.Set(string(ctxKeyActorID), actorID)
			c.Request = c.Request.WithContext(SetActor(c.Request.Context(), actorID))
		}
		c.Next()
	}
}

// RequireActor rejects mutating requests that carry no identified actor.
// Safe methods pass through.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if GetActorID(c.Request.Context()) == "" {
			abortWithError(c, apperrors.Unauthorized(apperrors.CodeUnauthorized, "authentication required"))
			return
		}
		c.Next()
	}
}
