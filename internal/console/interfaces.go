package console

import (
	"context"

	"damage-inspector/internal/detection"
)

// Backend is the part of the detection client the console proxies through
type Backend interface {
	OpenMedia(ctx context.Context, mediaURL, byteRange string) (*detection.MediaStream, error)
	SameOrigin(mediaURL string) bool
	Health(ctx context.Context) error
}
