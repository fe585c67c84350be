package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newTestRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(svc.Middleware(), svc.CSRFMiddleware())
	handler := func(c *gin.Context) {
		id, _ := SessionIDFromContext(c)
		c.String(http.StatusOK, id)
	}
	r.GET("/whoami", handler)
	r.POST("/change", handler)
	return r
}

func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, ck := range cookies {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func TestMiddlewareIssuesSession(t *testing.T) {
	svc := NewService("", time.Hour)
	r := newTestRouter(svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	sessionCookie := cookieByName(rec.Result().Cookies(), svc.SessionCookieName())
	csrfCookie := cookieByName(rec.Result().Cookies(), svc.CSRFCookieName())
	if sessionCookie == nil || csrfCookie == nil {
		t.Fatalf("expected session and csrf cookies")
	}
	if !sessionCookie.HttpOnly || csrfCookie.HttpOnly {
		t.Fatalf("session cookie must be HttpOnly and csrf cookie readable by scripts")
	}
	if !svc.ValidSessionID(sessionCookie.Value) || rec.Body.String() != sessionCookie.Value {
		t.Fatalf("session id not exposed in context: %q vs %q", rec.Body.String(), sessionCookie.Value)
	}
}

func TestMiddlewareKeepsValidSession(t *testing.T) {
	svc := NewService("sid", time.Hour)
	r := newTestRouter(svc)
	id := svc.NewSessionID()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: id})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Body.String() != id {
		t.Fatalf("expected existing session %s, got %s", id, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "../../etc/passwd"})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Body.String() == "../../etc/passwd" || !svc.ValidSessionID(rec.Body.String()) {
		t.Fatalf("forged session id accepted: %s", rec.Body.String())
	}
}

func TestCSRFMiddleware(t *testing.T) {
	svc := NewService("sid", time.Hour)
	r := newTestRouter(svc)
	id := svc.NewSessionID()

	cases := []struct {
		name   string
		cookie string
		header string
		want   int
	}{
		{"missing both", "", "", http.StatusForbidden},
		{"missing header", "tok", "", http.StatusForbidden},
		{"mismatch", "tok", "other", http.StatusForbidden},
		{"match", "tok", "tok", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/change", nil)
			req.AddCookie(&http.Cookie{Name: "sid", Value: id})
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: svc.CSRFCookieName(), Value: tc.cookie})
			}
			if tc.header != "" {
				req.Header.Set(svc.CSRFHeaderName(), tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}
