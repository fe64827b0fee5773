package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"damage-inspector/pkg/models"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

// Client talks to the remote detection backend
type Client struct {
	baseURL *url.URL
	http    *resty.Client
	logger  log.FieldLogger
}

type Option func(*Client)

// WithTimeout bounds every request. Zero leaves requests unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(d)
	}
}

func WithLogger(logger log.FieldLogger) Option {
	return func(c *Client) {
		c.logger = logger
		c.http.SetLogger(logger)
	}
}

// NewClient creates a Client for the backend at baseURL, for example
// "http://127.0.0.1:5000".
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend url %q: %w", baseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: base,
		http:    resty.New().SetBaseURL(base.String()),
		logger:  log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend origin the client was built for
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// DetectImage uploads an image as the "image" field of /api/detect
func (c *Client) DetectImage(ctx context.Context, file *models.SelectedFile) (*models.DetectionResult, error) {
	if models.ModeForContentType(file.ContentType) != models.ModeImage {
		return nil, fmt.Errorf("%w: %q is not an image", ErrUnsupportedFileType, file.ContentType)
	}

	var wire imageDetectResponse
	if err := c.upload(ctx, imageEndpoint, imageField, file, &wire); err != nil {
		return nil, err
	}

	return toDetectionResult(&wire)
}

// DetectVideo uploads a video as the "video" field of /api/video
func (c *Client) DetectVideo(ctx context.Context, file *models.SelectedFile) (*models.VideoResult, error) {
	if models.ModeForContentType(file.ContentType) != models.ModeVideo {
		return nil, fmt.Errorf("%w: %q is not a video", ErrUnsupportedFileType, file.ContentType)
	}

	var wire videoDetectResponse
	if err := c.upload(ctx, videoEndpoint, videoField, file, &wire); err != nil {
		return nil, err
	}

	if wire.VideoURL == nil || *wire.VideoURL == "" {
		return nil, fmt.Errorf("%w: video_url is missing", ErrMalformedResponse)
	}
	return &models.VideoResult{VideoURL: *wire.VideoURL}, nil
}

// upload posts a single-field multipart form and decodes the JSON reply into out
func (c *Client) upload(ctx context.Context, endpoint, field string, file *models.SelectedFile, out any) error {
	name := file.Name
	if name == "" {
		name = field
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetMultipartField(field, name, contentType, bytes.NewReader(file.Data)).
		Post(endpoint)
	if err != nil {
		return handleNetworkError(err)
	}

	if !isSuccess(resp.StatusCode()) {
		return handleServerError(resp.StatusCode(), resp.Body())
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// MediaStream is an open processed-media response. Callers must close Body.
type MediaStream struct {
	Body       io.ReadCloser
	StatusCode int
	Header     http.Header
}

// OpenMedia streams a processed image or video. byteRange, when set, is
// forwarded as the Range header so video players can seek.
func (c *Client) OpenMedia(ctx context.Context, mediaURL, byteRange string) (*MediaStream, error) {
	target, err := c.ResolveMediaURL(mediaURL)
	if err != nil {
		return nil, err
	}

	req := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true)
	if byteRange != "" {
		req.SetHeader("Range", byteRange)
	}

	resp, err := req.Get(target)
	if err != nil {
		return nil, handleNetworkError(err)
	}

	body := resp.RawBody()
	if !isSuccess(resp.StatusCode()) {
		defer body.Close()
		data, _ := io.ReadAll(io.LimitReader(body, 4096))
		return nil, handleServerError(resp.StatusCode(), data)
	}

	return &MediaStream{
		Body:       body,
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
	}, nil
}

// ResolveMediaURL turns a media reference into an absolute URL. Relative
// references resolve against the backend origin.
func (c *Client) ResolveMediaURL(mediaURL string) (string, error) {
	ref, err := url.Parse(mediaURL)
	if err != nil || mediaURL == "" {
		return "", fmt.Errorf("%w: %q", ErrForeignMediaURL, mediaURL)
	}
	resolved := c.baseURL.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", fmt.Errorf("%w: %q", ErrForeignMediaURL, mediaURL)
	}
	return resolved.String(), nil
}

// SameOrigin reports whether mediaURL points at the backend itself
func (c *Client) SameOrigin(mediaURL string) bool {
	resolved, err := c.ResolveMediaURL(mediaURL)
	if err != nil {
		return false
	}
	u, err := url.Parse(resolved)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, c.baseURL.Scheme) && strings.EqualFold(u.Host, c.baseURL.Host)
}

// Health checks that the backend answers HTTP at all. Any status counts.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/")
	if err != nil {
		return handleNetworkError(err)
	}
	c.logger.WithField("status", resp.StatusCode()).Debug("[Health] detection backend answered")
	return nil
}

func toDetectionResult(wire *imageDetectResponse) (*models.DetectionResult, error) {
	if wire.ImageURL == nil || *wire.ImageURL == "" {
		return nil, fmt.Errorf("%w: image_url is missing", ErrMalformedResponse)
	}

	result := &models.DetectionResult{
		ImageURL:   *wire.ImageURL,
		Detections: make([]models.Detection, 0, len(wire.Detections)),
	}
	for i, rec := range wire.Detections {
		if rec.Class == nil || rec.Confidence == nil || rec.Severity == nil || rec.BBox == nil {
			return nil, fmt.Errorf("%w: detection %d is incomplete", ErrMalformedResponse, i)
		}
		result.Detections = append(result.Detections, models.Detection{
			Class:      *rec.Class,
			Confidence: *rec.Confidence,
			Severity:   *rec.Severity,
			BBox:       rec.BBox,
		})
	}
	return result, nil
}

// isSuccess accepts 2xx and 3xx; redirects are followed before we get here.
func isSuccess(status int) bool {
	return status >= 200 && status < 400
}
