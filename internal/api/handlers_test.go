package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"readmegen/internal/auth"
	"readmegen/internal/config"
	"readmegen/internal/service/ai"
	"readmegen/internal/service/assistant"
	"readmegen/internal/session"
)

type mockGenerator struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
	last  string
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) ai.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.last = prompt
	if m.err != nil {
		return ai.Fail(m.err)
	}
	return ai.Success(m.reply)
}

type testClient struct {
	t       *testing.T
	router  *gin.Engine
	cookies []*http.Cookie
	csrf    string
}

func newTestServer(t *testing.T, gen ai.Generator, configErr error) *testClient {
	t.Helper()
	gin.SetMode(gin.TestMode)

	asst, err := assistant.NewService(assistant.Options{
		Sessions:          session.NewManager(session.NewMemoryStore(), time.Hour),
		Generator:         gen,
		ConfigErr:         configErr,
		AllowedExtensions: config.DefaultUploadExtensions,
		MaxFileBytes:      1 << 20,
	})
	if err != nil {
		t.Fatalf("new assistant: %v", err)
	}
	handler := NewHandler(asst, auth.NewService("readmegen_session", time.Hour), 1<<20)
	router := gin.New()
	handler.RegisterRoutes(router)

	client := &testClient{t: t, router: router}
	rec := client.do(http.MethodGet, "/api/session", nil, "")
	assertStatus(t, rec, http.StatusOK)
	client.cookies = rec.Result().Cookies()
	for _, ck := range client.cookies {
		if ck.Name == "csrf_token" {
			client.csrf = ck.Value
		}
	}
	if client.csrf == "" {
		t.Fatalf("expected csrf cookie on first request")
	}
	return client
}

func (c *testClient) do(method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	c.t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	if c.csrf != "" {
		req.Header.Set("X-CSRF-Token", c.csrf)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	return rec
}

func (c *testClient) doJSON(method, path string, body interface{}) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode body: %v", err)
		}
	}
	return c.do(method, path, &buf, "application/json")
}

func (c *testClient) upload(files map[string]string, order []string) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range order {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			c.t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write([]byte(files[name])); err != nil {
			c.t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		c.t.Fatalf("close multipart: %v", err)
	}
	return c.do(http.MethodPost, "/api/files", &buf, mw.FormDataContentType())
}

func decodeJSON(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode json: %v", err)
	}
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("unexpected status %d, body: %s", rec.Code, rec.Body.String())
	}
}

type snapshotBody struct {
	Output       string `json:"output"`
	Generated    bool   `json:"generated"`
	ResetCounter int64  `json:"reset_counter"`
	LastError    string `json:"last_error"`
	ConfigError  string `json:"config_error"`
	Files        []struct {
		Name string `json:"name"`
		Text string `json:"text"`
	} `json:"files"`
	Stats struct {
		FilesUploaded int    `json:"files_uploaded"`
		Status        string `json:"status"`
	} `json:"stats"`
}

func TestHandlersEndToEndFlow(t *testing.T) {
	gen := &mockGenerator{reply: "# X\n\nA CLI tool for X."}
	client := newTestServer(t, gen, nil)

	rec := client.upload(map[string]string{
		"main.py":  "print('x')",
		"logo.png": "\x89PNG",
	}, []string{"main.py", "logo.png"})
	assertStatus(t, rec, http.StatusOK)
	var up struct {
		Accepted []string `json:"accepted"`
		Rejected []struct {
			Name string `json:"name"`
		} `json:"rejected"`
		Session snapshotBody `json:"session"`
	}
	decodeJSON(t, rec.Body.Bytes(), &up)
	if len(up.Accepted) != 1 || up.Accepted[0] != "main.py" || len(up.Rejected) != 1 {
		t.Fatalf("unexpected upload result %+v", up)
	}
	if up.Session.Stats.FilesUploaded != 1 {
		t.Fatalf("expected one file in session, got %+v", up.Session.Stats)
	}

	rec = client.doJSON(http.MethodPost, "/api/generate", map[string]string{"description": "A CLI tool for X"})
	assertStatus(t, rec, http.StatusOK)
	var snap snapshotBody
	decodeJSON(t, rec.Body.Bytes(), &snap)
	if !snap.Generated || snap.Output != "# X\n\nA CLI tool for X." || snap.Stats.Status != "generated" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if !strings.Contains(gen.last, "\n--- main.py ---\nprint('x')\n") {
		t.Fatalf("uploaded file missing from prompt")
	}

	rec = client.do(http.MethodGet, "/api/readme?mode=rendered", nil, "")
	assertStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "<h1>X</h1>") {
		t.Fatalf("rendered readme missing heading: %s", rec.Body.String())
	}
	rec = client.do(http.MethodGet, "/api/readme?mode=code", nil, "")
	assertStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "<pre") {
		t.Fatalf("code view should be highlighted: %s", rec.Body.String())
	}
	rec = client.do(http.MethodGet, "/api/readme?mode=sideways", nil, "")
	assertStatus(t, rec, http.StatusBadRequest)

	rec = client.do(http.MethodGet, "/api/readme/download", nil, "")
	assertStatus(t, rec, http.StatusOK)
	if rec.Body.String() != "# X\n\nA CLI tool for X." {
		t.Fatalf("download altered content: %q", rec.Body.String())
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/markdown") ||
		!strings.Contains(rec.Header().Get("Content-Disposition"), `filename="README.md"`) {
		t.Fatalf("unexpected download headers: %v", rec.Header())
	}

	rec = client.doJSON(http.MethodPost, "/api/reset", nil)
	assertStatus(t, rec, http.StatusOK)
	var after snapshotBody
	decodeJSON(t, rec.Body.Bytes(), &after)
	if after.Generated || len(after.Files) != 0 || after.ResetCounter <= snap.ResetCounter {
		t.Fatalf("reset did not clear session: %+v", after)
	}
	rec = client.do(http.MethodGet, "/api/readme/download", nil, "")
	assertStatus(t, rec, http.StatusNotFound)
}

func TestGenerateValidation(t *testing.T) {
	gen := &mockGenerator{reply: "# X"}
	client := newTestServer(t, gen, nil)

	rec := client.doJSON(http.MethodPost, "/api/generate", map[string]string{"description": "   "})
	assertStatus(t, rec, http.StatusBadRequest)
	if !strings.Contains(rec.Body.String(), "Please enter a project description first") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
	if gen.calls != 0 {
		t.Fatalf("model called for blank description")
	}

	rec = client.do(http.MethodPost, "/api/generate", bytes.NewBufferString("{"), "application/json")
	assertStatus(t, rec, http.StatusBadRequest)
}

func TestGenerateFailureReportsReason(t *testing.T) {
	gen := &mockGenerator{err: errors.New("permission denied: bad key")}
	client := newTestServer(t, gen, nil)

	rec := client.doJSON(http.MethodPost, "/api/generate", map[string]string{"description": "desc"})
	assertStatus(t, rec, http.StatusBadGateway)
	var body struct {
		Error   string       `json:"error"`
		Session snapshotBody `json:"session"`
	}
	decodeJSON(t, rec.Body.Bytes(), &body)
	if body.Error != "Error generating README: permission denied: bad key" {
		t.Fatalf("unexpected error %q", body.Error)
	}
	if body.Session.Output != "" || body.Session.Generated {
		t.Fatalf("output must stay empty on failure: %+v", body.Session)
	}
}

func TestMissingCredentialStillServesUI(t *testing.T) {
	cfgErr := fmt.Errorf("%w: please set the GOOGLE_API_KEY environment variable", config.ErrMissingCredential)
	client := newTestServer(t, nil, cfgErr)

	rec := client.do(http.MethodGet, "/", nil, "")
	assertStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "GOOGLE_API_KEY") {
		t.Fatalf("page should show configuration error")
	}

	rec = client.upload(map[string]string{"notes.md": "# notes"}, []string{"notes.md"})
	assertStatus(t, rec, http.StatusOK)

	rec = client.doJSON(http.MethodPost, "/api/generate", map[string]string{"description": "desc"})
	assertStatus(t, rec, http.StatusServiceUnavailable)

	rec = client.do(http.MethodGet, "/api/session", nil, "")
	var snap snapshotBody
	decodeJSON(t, rec.Body.Bytes(), &snap)
	if !strings.Contains(snap.ConfigError, "GOOGLE_API_KEY") {
		t.Fatalf("snapshot should carry configuration error: %+v", snap)
	}
}

func TestClearKeepsCounter(t *testing.T) {
	client := newTestServer(t, &mockGenerator{reply: "# X"}, nil)

	assertStatus(t, client.doJSON(http.MethodPost, "/api/generate", map[string]string{"description": "d"}), http.StatusOK)
	rec := client.doJSON(http.MethodPost, "/api/clear", nil)
	assertStatus(t, rec, http.StatusOK)
	var snap snapshotBody
	decodeJSON(t, rec.Body.Bytes(), &snap)
	if snap.Generated || snap.ResetCounter != 0 {
		t.Fatalf("clear should drop output and keep counter: %+v", snap)
	}
}

func TestStateChangesRequireCSRF(t *testing.T) {
	client := newTestServer(t, &mockGenerator{reply: "# X"}, nil)
	client.csrf = ""

	rec := client.doJSON(http.MethodPost, "/api/reset", nil)
	assertStatus(t, rec, http.StatusForbidden)
}

func TestSessionsAreIsolated(t *testing.T) {
	gen := &mockGenerator{reply: "# Mine"}
	first := newTestServer(t, gen, nil)
	assertStatus(t, first.doJSON(http.MethodPost, "/api/generate", map[string]string{"description": "d"}), http.StatusOK)

	// a browser without cookies gets its own, empty session on the same router
	other := &testClient{t: t, router: first.router}
	rec := other.do(http.MethodGet, "/api/session", nil, "")
	assertStatus(t, rec, http.StatusOK)
	var snap snapshotBody
	decodeJSON(t, rec.Body.Bytes(), &snap)
	if snap.Generated {
		t.Fatalf("new session sees another session's output")
	}
}

func TestHealthz(t *testing.T) {
	client := newTestServer(t, &mockGenerator{reply: "# X"}, nil)
	rec := client.do(http.MethodGet, "/healthz", nil, "")
	assertStatus(t, rec, http.StatusOK)
}
