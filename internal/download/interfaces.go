package download

import (
	"context"

	"damage-inspector/internal/detection"
)

type MediaSource interface {
	OpenMedia(ctx context.Context, mediaURL, byteRange string) (*detection.MediaStream, error)
}
