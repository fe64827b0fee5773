package console

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"damage-inspector/internal/detection"

	"github.com/labstack/echo/v4"
	"go.viam.com/test"
)

const processedVideo = "0123456789abcdefghij"

type consoleHarness struct {
	e       *echo.Echo
	handler *Handler
	backend *httptest.Server
	cookie  *http.Cookie
}

func newConsoleHarness(t *testing.T) *consoleHarness {
	t.Helper()

	mux := http.NewServeMux()
	var backend *httptest.Server
	mux.HandleFunc("/api/detect", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"image_url":  backend.URL + "/api/result_image?path=a.jpg",
			"detections": []any{},
		})
	})
	mux.HandleFunc("/api/result_video", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		http.ServeContent(w, r, "v.mp4", time.Time{}, strings.NewReader(processedVideo))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("backend"))
	})
	backend = httptest.NewServer(mux)
	t.Cleanup(backend.Close)

	client, err := detection.NewClient(backend.URL)
	test.That(t, err, test.ShouldBeNil)

	hub := NewHub()
	store := NewSessionStore(time.Hour, NewSessionFactory(hub, client))
	handler := NewHandler(testContext(t), store, hub, client, 1<<20)

	e := echo.New()
	handler.RegisterRoutes(e)
	return &consoleHarness{e: e, handler: handler, backend: backend}
}

func (h *consoleHarness) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			h.cookie = c
		}
	}
	return rec
}

func (h *consoleHarness) state(t *testing.T) stateResponse {
	t.Helper()
	rec := h.do(t, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)

	var state stateResponse
	test.That(t, json.Unmarshal(rec.Body.Bytes(), &state), test.ShouldBeNil)
	return state
}

func uploadRequest(t *testing.T, name, contentType, via string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	test.That(t, err, test.ShouldBeNil)
	part.Write(data)
	if via != "" {
		w.WriteField("via", via)
	}
	test.That(t, w.Close(), test.ShouldBeNil)

	req := httptest.NewRequest(http.MethodPost, "/select", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	return req
}

func TestIndexStartsSession(t *testing.T) {
	h := newConsoleHarness(t)

	rec := h.do(t, httptest.NewRequest(http.MethodGet, "/", nil))

	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	test.That(t, h.cookie, test.ShouldNotBeNil)
	test.That(t, rec.Body.String(), test.ShouldContainSubstring, "Drag &amp; drop an image or video here")
	test.That(t, rec.Body.String(), test.ShouldContainSubstring, `id="run-image" type="submit" disabled`)
	// The file input sits outside the drop target so one click opens one picker.
	test.That(t, rec.Body.String(), test.ShouldContainSubstring, `<div id="drop-zone" class="drop-zone" role="button" tabindex="0">`)
	test.That(t, rec.Body.String(), test.ShouldNotContainSubstring, "<label")
}

func TestSelectImageEnablesImageAction(t *testing.T) {
	h := newConsoleHarness(t)

	rec := h.do(t, uploadRequest(t, "wall.jpg", "image/jpeg", "drop", []byte("jpeg")))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)

	state := h.state(t)
	test.That(t, state.Page.ImageAction, test.ShouldBeTrue)
	test.That(t, state.Page.VideoAction, test.ShouldBeFalse)
	test.That(t, state.Page.ImagePreview.Visible, test.ShouldBeTrue)
	test.That(t, state.Page.Helper, test.ShouldEqual, "Image ready — click Run Image Detection")

	preview := h.do(t, httptest.NewRequest(http.MethodGet, "/preview", nil))
	test.That(t, preview.Code, test.ShouldEqual, http.StatusOK)
	test.That(t, preview.Header().Get(echo.HeaderContentType), test.ShouldEqual, "image/jpeg")
	test.That(t, preview.Body.String(), test.ShouldEqual, "jpeg")
}

func TestSelectFallsBackToFileName(t *testing.T) {
	h := newConsoleHarness(t)

	h.do(t, uploadRequest(t, "clip.mp4", echo.MIMEOctetStream, "", []byte("mp4")))

	test.That(t, h.state(t).Page.VideoAction, test.ShouldBeTrue)
}

func TestSelectUnsupportedFlashesAlert(t *testing.T) {
	h := newConsoleHarness(t)

	rec := h.do(t, uploadRequest(t, "notes.txt", "text/plain", "", []byte("hi")))

	var state stateResponse
	test.That(t, json.Unmarshal(rec.Body.Bytes(), &state), test.ShouldBeNil)
	test.That(t, state.Alerts, test.ShouldResemble, []string{"Unsupported file type. Please upload an image or video."})
	test.That(t, state.Page.ImageAction, test.ShouldBeFalse)

	// The page load that follows the upload shows the notice exactly once.
	page := h.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	test.That(t, strings.Count(page.Body.String(), `role="alert"`), test.ShouldEqual, 1)
	test.That(t, page.Body.String(), test.ShouldContainSubstring, "Unsupported file type. Please upload an image or video.")

	again := h.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	test.That(t, again.Body.String(), test.ShouldNotContainSubstring, `role="alert"`)
}

func TestDragStateReachesPage(t *testing.T) {
	h := newConsoleHarness(t)

	drag := func(active string) {
		req := httptest.NewRequest(http.MethodPost, "/drag", strings.NewReader("active="+active))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		rec := h.do(t, req)
		test.That(t, rec.Code, test.ShouldEqual, http.StatusNoContent)
	}

	drag("true")
	test.That(t, h.state(t).Page.DropActive, test.ShouldBeTrue)
	page := h.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	test.That(t, page.Body.String(), test.ShouldContainSubstring, `class="drop-zone active"`)

	drag("false")
	test.That(t, h.state(t).Page.DropActive, test.ShouldBeFalse)

	drag("true")
	h.do(t, uploadRequest(t, "wall.jpg", "image/jpeg", "drop", []byte("jpeg")))
	test.That(t, h.state(t).Page.DropActive, test.ShouldBeFalse)
}

func TestExpiredSessionStartsOverWithNotice(t *testing.T) {
	h := newConsoleHarness(t)
	h.do(t, uploadRequest(t, "wall.jpg", "image/jpeg", "", []byte("jpeg")))
	old := h.cookie.Value

	later := time.Now().Add(2 * time.Hour)
	h.handler.store.now = func() time.Time { return later }

	page := h.do(t, httptest.NewRequest(http.MethodGet, "/", nil))

	test.That(t, h.cookie.Value, test.ShouldNotEqual, old)
	test.That(t, page.Body.String(), test.ShouldContainSubstring, "Your session expired. Please choose the file again.")
	test.That(t, h.state(t).Page.ImageAction, test.ShouldBeFalse)
}

func TestDetectImageRunsInBackground(t *testing.T) {
	h := newConsoleHarness(t)
	h.do(t, uploadRequest(t, "wall.jpg", "image/jpeg", "", []byte("jpeg")))

	req := httptest.NewRequest(http.MethodPost, "/detect/image", nil)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	rec := h.do(t, req)
	test.That(t, rec.Code, test.ShouldEqual, http.StatusAccepted)

	h.handler.Wait()

	state := h.state(t)
	test.That(t, state.Page.ResultImage.Visible, test.ShouldBeTrue)
	test.That(t, state.Page.ResultImage.Source, test.ShouldEqual, h.backend.URL+"/api/result_image?path=a.jpg")
	test.That(t, state.Page.Summary, test.ShouldHaveLength, 1)
	test.That(t, state.Page.Summary[0].Notice, test.ShouldEqual, "No damage detected.")
	test.That(t, state.Page.ImageAction, test.ShouldBeTrue)
	test.That(t, state.Page.Status.Visible, test.ShouldBeFalse)
}

func TestDetectDisabledActionConflicts(t *testing.T) {
	h := newConsoleHarness(t)
	h.do(t, uploadRequest(t, "wall.jpg", "image/jpeg", "", []byte("jpeg")))

	req := httptest.NewRequest(http.MethodPost, "/detect/video", nil)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	rec := h.do(t, req)
	test.That(t, rec.Code, test.ShouldEqual, http.StatusConflict)

	rec = h.do(t, httptest.NewRequest(http.MethodPost, "/detect/video", nil))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusSeeOther)
}

func TestMediaProxyForwardsRange(t *testing.T) {
	h := newConsoleHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/media?src="+h.backend.URL+"/api/result_video%3Fpath%3Dv.mp4", nil)
	req.Header.Set("Range", "bytes=10-14")
	rec := h.do(t, req)

	test.That(t, rec.Code, test.ShouldEqual, http.StatusPartialContent)
	test.That(t, rec.Header().Get("Content-Range"), test.ShouldEqual, "bytes 10-14/20")
	test.That(t, rec.Header().Get(echo.HeaderContentType), test.ShouldEqual, "video/mp4")
	test.That(t, rec.Body.String(), test.ShouldEqual, "abcde")
}

func TestMediaProxyRejectsForeignURL(t *testing.T) {
	h := newConsoleHarness(t)

	rec := h.do(t, httptest.NewRequest(http.MethodGet, "/media?src=http://elsewhere.example/x.jpg", nil))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusBadRequest)

	rec = h.do(t, httptest.NewRequest(http.MethodGet, "/media", nil))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusBadRequest)
}

func TestHealth(t *testing.T) {
	h := newConsoleHarness(t)

	rec := h.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)

	rec = h.do(t, httptest.NewRequest(http.MethodGet, "/healthz?backend=1", nil))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	test.That(t, rec.Body.String(), test.ShouldContainSubstring, `"backend":"ok"`)
}

func TestHealthBackendDown(t *testing.T) {
	h := newConsoleHarness(t)
	h.backend.Close()

	rec := h.do(t, httptest.NewRequest(http.MethodGet, "/healthz?backend=1", nil))

	test.That(t, rec.Code, test.ShouldEqual, http.StatusServiceUnavailable)
}
