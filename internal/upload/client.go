package upload

import (
	"sync"

	"damage-inspector/pkg/models"

	log "github.com/sirupsen/logrus"
)

const (
	helperIdle  = "Drag & drop an image or video here, or click to choose a file"
	helperImage = "Image ready — click Run Image Detection"
	helperVideo = "Video ready — click Run Video Detection"

	noticeUnsupported = "Unsupported file type. Please upload an image or video."
)

// UploadClient owns the selected file, its mode and the page shown by a View.
// All state changes happen under one lock, which stands in for the single UI
// thread of a page.
type UploadClient struct {
	mu      sync.Mutex
	view    View
	backend Backend
	logger  log.FieldLogger
	input   *InputHandler

	file       *models.SelectedFile
	mode       models.Mode
	generation uint64
	inflight   int
	page       Page
}

type Option func(*UploadClient)

func WithPicker(p Picker) Option {
	return func(c *UploadClient) {
		c.input.picker = p
	}
}

func WithLogger(logger log.FieldLogger) Option {
	return func(c *UploadClient) {
		c.logger = logger
	}
}

// New builds a client bound to view and renders the initial, empty page
func New(view View, backend Backend, opts ...Option) *UploadClient {
	c := &UploadClient{
		view:    view,
		backend: backend,
		logger:  log.StandardLogger(),
	}
	c.input = &InputHandler{
		setActive: c.setDropActive,
		onChosen:  c.HandleFile,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.page.Helper = helperIdle
	c.resetLocked()
	c.render()
	return c
}

// Input returns the handler for drop-target and picker events
func (c *UploadClient) Input() *InputHandler {
	return c.input
}

// Page returns a snapshot of the current view state
func (c *UploadClient) Page() Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page.clone()
}

// File returns the selected file, or nil
func (c *UploadClient) File() *models.SelectedFile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.file
}

func (c *UploadClient) Mode() models.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// HandleFile selects file and switches the page into the matching mode.
// Results of the previous file are always cleared first.
func (c *UploadClient) HandleFile(file *models.SelectedFile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.page.Selection = c.generation
	c.clearResultsLocked()

	c.file = file
	c.page.FileName = file.Name

	switch models.ModeForContentType(file.ContentType) {
	case models.ModeImage:
		c.mode = models.ModeImage
		c.page.Mode = c.mode
		c.page.ImageAction = true
		c.page.VideoAction = false
		c.page.VideoPreview = Preview{}
		c.page.ImagePreview = Preview{Visible: true, Source: file.Name}
		c.page.Helper = helperImage
	case models.ModeVideo:
		c.mode = models.ModeVideo
		c.page.Mode = c.mode
		c.page.ImageAction = false
		c.page.VideoAction = true
		c.page.ImagePreview = Preview{}
		c.page.VideoPreview = Preview{Visible: true, Source: file.Name}
		c.page.Helper = helperVideo
	default:
		c.logger.WithFields(log.Fields{
			"file":         file.Name,
			"content_type": file.ContentType,
		}).Warn("[Select] unsupported file type")
		c.view.Alert(noticeUnsupported)
		c.resetLocked()
	}

	c.render()
}

// MediaReady reports that the processed video can play. Playback starts on
// the first report after a video result only.
func (c *UploadClient) MediaReady() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.page.ResultVideo.Autoplay {
		return
	}
	c.page.ResultVideo.Autoplay = false
	c.view.Play()
	c.render()
}

func (c *UploadClient) setDropActive(active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.page.DropActive == active {
		return
	}
	c.page.DropActive = active
	c.render()
}

func (c *UploadClient) clearResultsLocked() {
	c.page.Summary = nil
	c.page.ResultImage = Media{}
	c.page.ResultVideo = Media{}
}

// resetLocked returns the page to its empty state without touching the
// drop target or helper text.
func (c *UploadClient) resetLocked() {
	c.page.ImagePreview = Preview{}
	c.page.VideoPreview = Preview{}
	c.clearResultsLocked()
	c.page.ImageAction = false
	c.page.VideoAction = false
	c.page.Status = Status{}
	c.page.FileName = ""
	c.page.Mode = models.ModeUnset
	c.file = nil
	c.mode = models.ModeUnset
}

func (c *UploadClient) render() {
	c.view.Render(c.page.clone())
}
