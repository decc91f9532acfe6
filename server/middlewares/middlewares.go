package middlewares

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sunshen/weblog/model"
	"github.com/sunshen/weblog/service"
	"gorm.io/gorm"
)

const (
	ErrorTokenAuthFail    = 20001
	ErrorPermissionDenied = 20003

	contextUserKey = "current_user"

	sessionTTL = 24 * time.Hour
)

func sessionSecret() []byte {
	return []byte(os.Getenv("SESSION_SECRET"))
}

// NewSessionToken issues the short-lived bearer token returned by login.
func NewSessionToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(sessionTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(sessionSecret())
}

func parseSessionToken(tok string) (string, bool) {
	parsed, err := jwt.Parse(
		tok,
		func(t *jwt.Token) (interface{}, error) { return sessionSecret(), nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return "", false
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}
	sub, ok := claims["sub"].(string)
	return sub, ok
}

func tokenFromRequest(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); len(auth) > 7 && auth[:7] == "Bearer " {
		return auth[7:]
	}
	return c.Query("token")
}

// Auth validates the session token, loads the user with role preloaded,
// refreshes last-seen and stores the user on the request context. Aborts
// with 401 on a missing or invalid token.
func Auth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := tokenFromRequest(c)
		if tok == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code": ErrorTokenAuthFail,
				"msg":  "empty session token",
			})
			c.Abort()
			return
		}

		userID, ok := parseSessionToken(tok)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code": ErrorTokenAuthFail,
				"msg":  "invalid or expired session token",
			})
			c.Abort()
			return
		}

		user, err := service.GetUser(db, userID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code": ErrorTokenAuthFail,
				"msg":  "unknown user",
			})
			c.Abort()
			return
		}

		service.RefreshLastSeen(db, user.Id)
		c.Set(contextUserKey, user)
		c.Next()
	}
}

// OptionalAuth loads the user when a valid token is present but never
// aborts. Used on public reads that render more for moderators.
func OptionalAuth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tok := tokenFromRequest(c); tok != "" {
			if userID, ok := parseSessionToken(tok); ok {
				if user, err := service.GetUser(db, userID); err == nil {
					c.Set(contextUserKey, user)
				}
			}
		}
		c.Next()
	}
}

// RequirePermission short-circuits with 403 when the authenticated user's
// role lacks permission p. Must run after Auth.
func RequirePermission(p model.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok || !user.Can(p) {
			c.JSON(http.StatusForbidden, gin.H{
				"code": ErrorPermissionDenied,
				"msg":  "insufficient permission",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user placed on the context by Auth/OptionalAuth.
func CurrentUser(c *gin.Context) (*model.User, bool) {
	val, exists := c.Get(contextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := val.(*model.User)
	return user, ok
}
