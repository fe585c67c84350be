package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	sessionIDContextKey = "session_id"
	csrfTokenContextKey = "csrf_token"
)

// Middleware resolves the session cookie, issuing a fresh session and CSRF token
// when the browser has none, and stores both in the context.
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(s.cookieName)
		if err != nil || !s.ValidSessionID(sessionID) {
			sessionID = s.NewSessionID()
		}
		csrfToken, err := c.Cookie(s.csrfCookieName)
		if err != nil || csrfToken == "" {
			csrfToken, err = s.NewCSRFToken()
			if err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "could not issue csrf token"})
				return
			}
		}
		// refresh both cookies so an active session keeps its lifetime
		s.setCookies(c, sessionID, csrfToken)
		c.Set(sessionIDContextKey, sessionID)
		c.Set(csrfTokenContextKey, csrfToken)
		c.Next()
	}
}

// SessionIDFromContext retrieves the session id resolved by the middleware.
func SessionIDFromContext(c *gin.Context) (string, bool) {
	val, ok := c.Get(sessionIDContextKey)
	if !ok {
		return "", false
	}
	id, ok := val.(string)
	return id, ok && id != ""
}

// CSRFTokenFromContext retrieves the CSRF token paired with the session.
func CSRFTokenFromContext(c *gin.Context) (string, bool) {
	val, ok := c.Get(csrfTokenContextKey)
	if !ok {
		return "", false
	}
	token, ok := val.(string)
	return token, ok
}
