package api

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"log"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"readmegen/internal/auth"
	"readmegen/internal/config"
	"readmegen/internal/ingest"
	"readmegen/internal/prompt"
	"readmegen/internal/render"
	"readmegen/internal/service/ai"
	"readmegen/internal/service/assistant"
	"readmegen/internal/worker"
)

//go:embed templates/*.html
var templatesFS embed.FS

const defaultMaxUploadBytes = 10 << 20

// Handler wires HTTP routes to the assistant service.
type Handler struct {
	assistant      *assistant.Service
	auth           *auth.Service
	maxUploadBytes int64
	templates      *template.Template
}

// NewHandler constructs a Handler instance.
func NewHandler(service *assistant.Service, authService *auth.Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{
		assistant:      service,
		auth:           authService,
		maxUploadBytes: maxUploadBytes,
		templates:      template.Must(template.ParseFS(templatesFS, "templates/*.html")),
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.SetHTMLTemplate(h.templates)
	router.GET("/healthz", h.health)

	app := router.Group("/", h.auth.Middleware(), h.auth.CSRFMiddleware())
	app.GET("/", h.index)

	api := app.Group("/api")
	api.GET("/session", h.getSession)
	api.POST("/files", h.uploadFiles)
	api.POST("/generate", h.generate)
	api.POST("/reset", h.reset)
	api.POST("/clear", h.clear)
	api.GET("/readme", h.readme)
	api.GET("/readme/download", h.download)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) sessionID(c *gin.Context) (string, bool) {
	id, ok := auth.SessionIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session required"})
		return "", false
	}
	return id, true
}

func (h *Handler) index(c *gin.Context) {
	data := gin.H{"CSRFHeader": h.auth.CSRFHeaderName(), "CSRFCookie": h.auth.CSRFCookieName()}
	if err := h.assistant.ConfigError(); err != nil {
		data["ConfigError"] = err.Error()
	}
	c.HTML(http.StatusOK, "index.html", data)
}

func (h *Handler) getSession(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	snap, err := h.assistant.Snapshot(c.Request.Context(), id)
	if err != nil {
		log.Printf("load session %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load session failed"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) uploadFiles(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}
	headers := form.File["files"]
	sources := make([]ingest.Source, 0, len(headers))
	for _, fh := range headers {
		sources = append(sources, ingest.Source{
			Name: filepath.Base(fh.Filename),
			Size: fh.Size,
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	res, err := h.assistant.Upload(c.Request.Context(), id, sources)
	if err != nil {
		log.Printf("upload for session %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save uploads failed"})
		return
	}
	c.JSON(http.StatusOK, res)
}

type generateRequest struct {
	Description string `json:"description"`
}

func (h *Handler) generate(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	snap, err := h.assistant.Generate(c.Request.Context(), id, req.Description)
	if err != nil {
		var failure *ai.Failure
		switch {
		case errors.Is(err, prompt.ErrEmptyDescription):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter a project description first"})
		case errors.Is(err, config.ErrMissingCredential):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		case errors.Is(err, worker.ErrDispatcherBusy):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
		case errors.As(err, &failure):
			c.JSON(http.StatusBadGateway, gin.H{"error": assistant.FailureMessage(failure), "session": snap})
		default:
			log.Printf("generate for session %s: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "generation failed"})
		}
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) reset(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	snap, err := h.assistant.Reset(c.Request.Context(), id)
	if err != nil {
		log.Printf("reset session %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reset failed"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) clear(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	snap, err := h.assistant.Clear(c.Request.Context(), id)
	if err != nil {
		log.Printf("clear session %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "clear failed"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) readme(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	mode, err := render.ParseMode(c.Query("mode"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	html, err := h.assistant.Readme(c.Request.Context(), id, mode)
	if err != nil {
		h.outputError(c, id, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

func (h *Handler) download(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	output, err := h.assistant.Download(c.Request.Context(), id)
	if err != nil {
		h.outputError(c, id, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="README.md"`)
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(output))
}

func (h *Handler) outputError(c *gin.Context, id string, err error) {
	if errors.Is(err, assistant.ErrNoReadme) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	log.Printf("render readme for session %s: %v", id, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "render failed"})
}
