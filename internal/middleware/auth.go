package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/gm-table/pkg/auth"
)

const (
	UserIDKey   = "userID"
	UsernameKey = "username"
	TokenKey    = "token"
)

// AuthMiddleware accepts a bearer token from the Authorization header.
func AuthMiddleware(jwtManager *auth.JWTManager, blacklist Blacklist) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractTokenFromHeader(c.Request)
		if err != nil {
			abort(c, "missing or invalid token")
			return
		}
		authenticate(c, jwtManager, blacklist, token)
	}
}

// WSAuthMiddleware also accepts the token as a query parameter, since
// browsers cannot set headers on a websocket handshake.
func WSAuthMiddleware(jwtManager *auth.JWTManager, blacklist Blacklist) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token, _ = auth.ExtractTokenFromHeader(c.Request)
		}
		if token == "" {
			abort(c, "missing token")
			return
		}
		authenticate(c, jwtManager, blacklist, token)
	}
}

func authenticate(c *gin.Context, jwtManager *auth.JWTManager, blacklist Blacklist, token string) {
	revoked, err := blacklist.Revoked(c.Request.Context(), token)
	if err != nil || revoked {
		abort(c, "token is blacklisted")
		return
	}

	claims, err := jwtManager.Verify(token)
	if err != nil {
		abort(c, "invalid token")
		return
	}

	userID, err := claims.UserID()
	if err != nil {
		abort(c, "invalid user id")
		return
	}

	c.Set(UserIDKey, userID)
	c.Set(UsernameKey, claims.Username)
	c.Set(TokenKey, token)
	c.Next()
}

func abort(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "code": "unauthorized"})
}

// Identity returns the caller set by one of the auth middlewares.
func Identity(c *gin.Context) (uuid.UUID, string) {
	return c.MustGet(UserIDKey).(uuid.UUID), c.GetString(UsernameKey)
}
