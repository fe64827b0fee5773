package console

import (
	"errors"
	"io"
	"net/http"

	"damage-inspector/internal/detection"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// Headers that let the browser seek inside a proxied video
var forwardedMediaHeaders = []string{
	echo.HeaderContentType,
	echo.HeaderContentLength,
	"Content-Range",
	"Accept-Ranges",
	echo.HeaderLastModified,
	"ETag",
}

// handleMedia proxies a processed image or video from the detection backend.
// Only URLs on the backend's own origin are fetched.
func (h *Handler) handleMedia(c echo.Context) error {
	src := c.QueryParam("src")
	if src == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "src is required",
		})
	}

	if !h.backend.SameOrigin(src) {
		resp := detection.GetErrorResponse(detection.ErrForeignMediaURL)
		return c.JSON(resp.StatusCode, map[string]string{
			"error": resp.Message,
		})
	}

	stream, err := h.backend.OpenMedia(c.Request().Context(), src, c.Request().Header.Get("Range"))
	if err != nil {
		log.WithError(err).WithField("src", src).Warn("[Media] failed to fetch processed media")
		return mediaError(c, err)
	}
	defer stream.Body.Close()

	header := c.Response().Header()
	for _, name := range forwardedMediaHeaders {
		if v := stream.Header.Get(name); v != "" {
			header.Set(name, v)
		}
	}
	header.Set("Cache-Control", "private, max-age=3600")

	c.Response().WriteHeader(stream.StatusCode)
	_, err = io.Copy(c.Response(), stream.Body)
	return err
}

// mediaError keeps the backend's own status for rejected paths and ranges,
// so a 403 or 416 reaches the browser unchanged.
func mediaError(c echo.Context, err error) error {
	var statusErr *detection.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 {
		return c.JSON(statusErr.StatusCode, map[string]string{
			"error": statusErr.Message,
		})
	}

	resp := detection.GetErrorResponse(err)
	return c.JSON(resp.StatusCode, map[string]string{
		"error": resp.Message,
	})
}
