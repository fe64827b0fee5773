package upload

import (
	"context"
	"errors"

	"damage-inspector/pkg/models"

	log "github.com/sirupsen/logrus"
)

// ErrActionUnavailable is returned when a detect action is clicked while it
// is disabled or does not match the selected file.
var ErrActionUnavailable = errors.New("detection action is not available")

const (
	busyImage = "Running image detection..."
	busyVideo = "Processing video (this may take a while)..."

	failureImage = "Image detection failed. Check backend logs and CORS."
	failureVideo = "Video detection failed. Check backend logs and available codecs."
)

// DetectImage runs image detection on the selected file
func (c *UploadClient) DetectImage(ctx context.Context) error {
	return c.detect(ctx, models.ModeImage)
}

// DetectVideo runs video detection on the selected file
func (c *UploadClient) DetectVideo(ctx context.Context) error {
	return c.detect(ctx, models.ModeVideo)
}

// detect blocks until the backend answers. The lock is released for the
// request so other events keep flowing while it is outstanding.
func (c *UploadClient) detect(ctx context.Context, mode models.Mode) error {
	c.mu.Lock()
	if c.file == nil || c.mode != mode || !c.page.ActionEnabled(mode) {
		c.mu.Unlock()
		return ErrActionUnavailable
	}

	file := c.file
	generation := c.generation
	c.inflight++
	c.page.Status = Status{Visible: true, Text: busyText(mode)}
	c.page.ImageAction = false
	c.page.VideoAction = false
	c.render()
	c.mu.Unlock()

	var (
		imageResult *models.DetectionResult
		videoResult *models.VideoResult
		err         error
	)
	if mode == models.ModeImage {
		imageResult, err = c.backend.DetectImage(ctx, file)
	} else {
		videoResult, err = c.backend.DetectVideo(ctx, file)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.inflight--
	stale := generation != c.generation
	logger := c.logger.WithFields(log.Fields{
		"mode": mode.String(),
		"file": file.Name,
	})

	switch {
	case err != nil:
		logger.WithError(err).Error("[Detect] detection failed")
		if c.inflight == 0 {
			c.page.Status = Status{}
			c.render()
		}
		c.view.Alert(failureText(mode))
	case stale:
		logger.Info("[Detect] discarding result for a file that is no longer selected")
	case mode == models.ModeImage:
		c.renderImageResultLocked(imageResult)
	default:
		c.renderVideoResultLocked(videoResult)
	}

	// Buttons follow the current mode, which may have changed while the
	// request was out. A newer request keeps them disabled until it ends.
	if c.inflight == 0 {
		c.page.Status = Status{}
		c.page.ImageAction = c.mode == models.ModeImage
		c.page.VideoAction = c.mode == models.ModeVideo
	}
	c.render()

	return err
}

func busyText(mode models.Mode) string {
	if mode == models.ModeVideo {
		return busyVideo
	}
	return busyImage
}

func failureText(mode models.Mode) string {
	if mode == models.ModeVideo {
		return failureVideo
	}
	return failureImage
}
