package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/tour-booking-api/internal/models"
)

const (
	// CookieName holds the session token for browser clients.
	CookieName = "jwt"
	// LoggedOutValue replaces the token on logout.
	LoggedOutValue = "loggedout"

	userKey = "user"
)

type Authenticator interface {
	Verify(ctx context.Context, token string) (*models.User, error)
	RequireRole(user *models.User, roles ...string) error
}

// CurrentUser returns the user attached by Protect or IsLoggedIn, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

func SetCurrentUser(c *gin.Context, u *models.User) {
	c.Set(userKey, u)
}

func tokenFrom(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if cookie, err := c.Cookie(CookieName); err == nil && cookie != LoggedOutValue {
		return cookie
	}
	return ""
}

// Protect requires a valid session from the Authorization header or the jwt
// cookie.
func Protect(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := auth.Verify(c.Request.Context(), tokenFrom(c))
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		SetCurrentUser(c, user)
		c.Next()
	}
}

// IsLoggedIn attaches the cookie session's user when there is one. It never
// fails the request.
func IsLoggedIn(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(CookieName)
		if err == nil && cookie != "" && cookie != LoggedOutValue {
			if user, err := auth.Verify(c.Request.Context(), cookie); err == nil {
				SetCurrentUser(c, user)
			}
		}
		c.Next()
	}
}

// RestrictTo must run after Protect.
func RestrictTo(auth Authenticator, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.RequireRole(CurrentUser(c), roles...); err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Next()
	}
}
