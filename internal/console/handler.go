package console

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"damage-inspector/internal/detection"
	"damage-inspector/internal/upload"
	"damage-inspector/pkg/models"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

const (
	sessionCookie = "inspector_session"

	noticeSessionExpired = "Your session expired. Please choose the file again."
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// Handler serves the web console. Every browser session gets its own
// UploadClient; the handlers translate form posts into its input events.
type Handler struct {
	ctx      context.Context
	store    *SessionStore
	hub      *Hub
	backend  Backend
	page     *template.Template
	runs     sync.WaitGroup
	maxBytes int64
}

type stateResponse struct {
	Page   upload.Page `json:"page"`
	Alerts []string    `json:"alerts"`
}

// NewHandler creates a Handler. Detections started from the console run
// under ctx, so cancelling it aborts them.
func NewHandler(ctx context.Context, store *SessionStore, hub *Hub, backend Backend, maxBytes int64) *Handler {
	return &Handler{
		ctx:      ctx,
		store:    store,
		hub:      hub,
		backend:  backend,
		page:     template.Must(template.ParseFS(templatesFS, "templates/*.html")),
		maxBytes: maxBytes,
	}
}

// NewSessionFactory wires a fresh UploadClient to a PageView publishing on hub
func NewSessionFactory(hub *Hub, backend upload.Backend) SessionFactory {
	return func(id string) *Session {
		view := NewPageView(id, hub)
		client := upload.New(view, backend, upload.WithLogger(log.WithField("session", id)))
		return &Session{Client: client, View: view}
	}
}

// RegisterRoutes registers console routes. limit guards the routes that
// upload files or start detections.
func (h *Handler) RegisterRoutes(e *echo.Echo, limit ...echo.MiddlewareFunc) {
	e.GET("/", h.handleIndex)
	e.GET("/events", h.handleEvents)
	e.GET("/preview", h.handlePreview)
	e.GET("/media", h.handleMedia)
	e.GET("/api/state", h.handleState)
	e.GET("/healthz", h.handleHealth)

	e.POST("/select", h.handleSelect, limit...)
	e.POST("/detect/image", h.detectHandler(models.ModeImage), limit...)
	e.POST("/detect/video", h.detectHandler(models.ModeVideo), limit...)
	e.POST("/media-ready", h.handleMediaReady)
	e.POST("/drag", h.handleDrag)

	e.StaticFS("/static", echo.MustSubFS(staticFS, "static"))
}

// Wait blocks until background detections have finished
func (h *Handler) Wait() {
	h.runs.Wait()
}

// session returns the caller's session, starting a new one when the cookie
// is missing or stale.
func (h *Handler) session(c echo.Context) *Session {
	expired := false
	if cookie, err := c.Cookie(sessionCookie); err == nil {
		session, err := h.store.Get(cookie.Value)
		if err == nil {
			return session
		}
		expired = errors.Is(err, ErrSessionExpired)
	}

	session := h.store.Create()
	if expired {
		session.View.Alert(noticeSessionExpired)
	}
	c.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	log.WithField("session", session.ID).Info("[Console] new session")
	return session
}

func (h *Handler) handleIndex(c echo.Context) error {
	session := h.session(c)

	var buf strings.Builder
	err := h.page.ExecuteTemplate(&buf, "page.html", stateResponse{
		Page:   session.Client.Page(),
		Alerts: session.View.TakeAlerts(),
	})
	if err != nil {
		log.WithError(err).Error("[Console] failed to render page")
		return c.String(http.StatusInternalServerError, "failed to render page")
	}
	return c.HTML(http.StatusOK, buf.String())
}

func (h *Handler) handleState(c echo.Context) error {
	session := h.session(c)
	return c.JSON(http.StatusOK, stateResponse{
		Page:   session.Client.Page(),
		Alerts: session.View.TakeAlerts(),
	})
}

// handleSelect handles POST /select. A form field via=drop marks files that
// were dropped on the target rather than picked.
func (h *Handler) handleSelect(c echo.Context) error {
	session := h.session(c)

	header, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "file is required",
		})
	}
	if h.maxBytes > 0 && header.Size > h.maxBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{
			"error": fmt.Sprintf("file is larger than %d bytes", h.maxBytes),
		})
	}

	src, err := header.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to process uploaded file",
		})
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to read uploaded file",
		})
	}

	contentType := header.Header.Get(echo.HeaderContentType)
	if contentType == "" || contentType == echo.MIMEOctetStream {
		contentType = models.ContentTypeForName(header.Filename)
	}
	file := &models.SelectedFile{
		Name:        header.Filename,
		ContentType: contentType,
		Data:        data,
	}

	input := session.Client.Input()
	if c.FormValue("via") == "drop" {
		input.Drop([]*models.SelectedFile{file})
	} else {
		input.PickerChange([]*models.SelectedFile{file})
	}

	return h.respond(c, session, http.StatusOK)
}

func (h *Handler) detectHandler(mode models.Mode) echo.HandlerFunc {
	return func(c echo.Context) error {
		session := h.session(c)

		if page := session.Client.Page(); !page.ActionEnabled(mode) {
			if wantsJSON(c) {
				return c.JSON(http.StatusConflict, map[string]string{
					"error": upload.ErrActionUnavailable.Error(),
				})
			}
			return c.Redirect(http.StatusSeeOther, "/")
		}

		run := session.Client.DetectImage
		if mode == models.ModeVideo {
			run = session.Client.DetectVideo
		}

		h.runs.Add(1)
		go func() {
			defer h.runs.Done()
			if err := run(h.ctx); err != nil {
				log.WithError(err).WithFields(log.Fields{
					"session": session.ID,
					"mode":    mode.String(),
				}).Debug("[Console] detection did not complete")
			}
		}()

		return h.respond(c, session, http.StatusAccepted)
	}
}

// handleDrag mirrors the drop target's drag state: active=true on drag-over,
// anything else on drag-leave.
func (h *Handler) handleDrag(c echo.Context) error {
	input := h.session(c).Client.Input()
	if c.FormValue("active") == "true" {
		input.DragOver()
	} else {
		input.DragLeave()
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) handleMediaReady(c echo.Context) error {
	h.session(c).Client.MediaReady()
	return c.NoContent(http.StatusNoContent)
}

// handleEvents streams the session's render, alert and play events
func (h *Handler) handleEvents(c echo.Context) error {
	session := h.session(c)

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	ch, unsub := h.hub.Subscribe(session.ID)
	defer unsub()

	fmt.Fprintf(res, ": connected\n\n")
	res.Flush()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case evt, ok := <-ch:
			if !ok {
				return nil
			}
			fmt.Fprintf(res, "event: %s\ndata: %s\n\n", evt.Type, evt.Data)
			res.Flush()
		}
	}
}

func (h *Handler) handlePreview(c echo.Context) error {
	file := h.session(c).Client.File()
	if file == nil {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "no file selected",
		})
	}

	if file.ContentType != "" {
		c.Response().Header().Set(echo.HeaderContentType, file.ContentType)
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	http.ServeContent(c.Response(), c.Request(), file.Name, time.Time{}, bytes.NewReader(file.Data))
	return nil
}

func (h *Handler) handleHealth(c echo.Context) error {
	if c.QueryParam("backend") == "" {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}

	if err := h.backend.Health(c.Request().Context()); err != nil {
		log.WithError(err).Warn("[Health] detection backend unreachable")
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "degraded",
			"backend": detection.GetErrorResponse(err).Message,
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "backend": "ok"})
}

// respond answers fetch calls with the page state and plain form posts with
// a redirect back to the page. Queued alerts are left for the page load that
// follows, so the response only reports them.
func (h *Handler) respond(c echo.Context, session *Session, status int) error {
	if wantsJSON(c) {
		return c.JSON(status, stateResponse{
			Page:   session.Client.Page(),
			Alerts: session.View.Alerts(),
		})
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func wantsJSON(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}
