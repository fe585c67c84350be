package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Service issues anonymous session cookies and the CSRF tokens paired with them.
type Service struct {
	sessionTTL     time.Duration
	cookieName     string
	csrfCookieName string
	csrfHeaderName string
}

// NewService constructs an auth service; ttl bounds the cookie lifetime.
func NewService(cookieName string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	if cookieName == "" {
		cookieName = "readmegen_session"
	}
	return &Service{
		sessionTTL:     ttl,
		cookieName:     cookieName,
		csrfCookieName: "csrf_token",
		csrfHeaderName: "X-CSRF-Token",
	}
}

// NewSessionID mints a random session identifier.
func (s *Service) NewSessionID() string {
	return uuid.NewString()
}

// ValidSessionID reports whether id looks like one we issued.
func (s *Service) ValidSessionID(id string) bool {
	if id == "" {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// NewCSRFToken returns a random token used for CSRF protection.
func (s *Service) NewCSRFToken() (string, error) {
	return generateToken()
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// SessionCookieName returns the cookie name storing the session id.
func (s *Service) SessionCookieName() string {
	return s.cookieName
}

// CSRFCookieName returns the cookie used for CSRF tokens.
func (s *Service) CSRFCookieName() string {
	return s.csrfCookieName
}

// CSRFHeaderName returns the CSRF header name.
func (s *Service) CSRFHeaderName() string {
	return s.csrfHeaderName
}

// SessionTTL reports the configured cookie lifetime.
func (s *Service) SessionTTL() time.Duration {
	return s.sessionTTL
}

func (s *Service) setCookies(c *gin.Context, sessionID, csrfToken string) {
	maxAge := int(s.sessionTTL.Seconds())
	secure := gin.Mode() == gin.ReleaseMode
	if sessionID != "" {
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     s.cookieName,
			Value:    sessionID,
			MaxAge:   maxAge,
			Path:     "/",
			Secure:   secure,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	if csrfToken != "" {
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     s.csrfCookieName,
			Value:    csrfToken,
			MaxAge:   maxAge,
			Path:     "/",
			Secure:   secure,
			HttpOnly: false,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
